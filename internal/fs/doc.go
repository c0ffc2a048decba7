// Package fs provides the file abstraction used by the store, for testability
// and fault injection.
//
// The package defines two interfaces:
//
//   - [File]: an open file with positional read/write, truncate and sync
//   - [FileSystem]: opens files by name
//
// # Implementations
//
//   - [LocalFS]: production implementation using the standard os package
//   - [FaultyFS]: test utility for fault injection (simulate I/O errors)
//
// # Usage
//
// Production code should use fs.Default (which is [LocalFS]):
//
//	file, err := fs.Default.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
//
// Tests can inject [FaultyFS] to simulate failures:
//
//	ffs := fs.NewFaultyFS(nil)
//	ffs.AddRule("store.bin", fs.Fault{FailAfterBytes: 1024})
//	// inject ffs into component under test
//
// # Design Notes
//
// All reads and writes are positional (ReadAt/WriteAt). The store keeps its
// own read and write cursors and never relies on the shared seek offset of
// the underlying file.
//
// This package does NOT include context.Context parameters. Local file
// operations are non-interruptible at the syscall level.
package fs
