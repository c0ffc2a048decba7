package bunchfile

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bunchfile/internal/fs"
	"github.com/hupe1980/bunchfile/internal/layout"
)

type testHeader struct {
	Version int32
}

type item struct {
	A int32
}

func tempPath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "store.bin")
}

func openTest(t *testing.T, path string, optFns ...Option) *Store[testHeader, item] {
	t.Helper()
	s, err := Open[testHeader, item](path, optFns...)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func appendItems(t *testing.T, s *Store[testHeader, item], values ...int32) {
	t.Helper()
	for _, v := range values {
		require.NoError(t, s.Append(item{A: v}))
	}
}

func TestScenario_WriteCloseReopen(t *testing.T) {
	path := tempPath(t)

	s, err := Open[testHeader, item](path, WithCompressionLevel(9))
	require.NoError(t, err)
	require.NoError(t, s.WriteHeader(testHeader{Version: 2}))
	appendItems(t, s, 0, 1, 4, 9, 16)
	require.NoError(t, s.Close())

	s = openTest(t, path, WithCompressionLevel(9))
	assert.Equal(t, 5, s.Count())

	h, err := s.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, testHeader{Version: 2}, h)

	v, ok, err := s.Read(2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, item{A: 4}, v)
}

func TestOpen_InitializesEmptyFile(t *testing.T) {
	path := tempPath(t)
	s := openTest(t, path)

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.Equal(t, int64(4+layout.BlockHeaderSize), info.Size())

	assert.Equal(t, 0, s.Count())
	assert.Equal(t, []int64{4}, s.dir.Offsets())

	h, err := s.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, testHeader{}, h)

	_, ok, err := s.Read(0)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestOpen_ExistingEmptyFileIsInitialized(t *testing.T) {
	path := tempPath(t)
	require.NoError(t, os.WriteFile(path, nil, 0644))

	s, err := OpenWithHeader[testHeader, item](path, testHeader{Version: 7})
	require.NoError(t, err)
	defer s.Close()

	h, err := s.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, int32(7), h.Version)
}

func TestOpenWithHeader_KeepsExistingHeader(t *testing.T) {
	path := tempPath(t)

	s, err := OpenWithHeader[testHeader, item](path, testHeader{Version: 1})
	require.NoError(t, err)
	appendItems(t, s, 42)
	require.NoError(t, s.Close())

	s2, err := OpenWithHeader[testHeader, item](path, testHeader{Version: 99})
	require.NoError(t, err)
	defer s2.Close()

	h, err := s2.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, int32(1), h.Version)
	assert.Equal(t, 1, s2.Count())
}

func TestOpen_InvalidArguments(t *testing.T) {
	type notFixed struct {
		N int
	}

	_, err := Open[testHeader, notFixed](tempPath(t))
	assert.ErrorIs(t, err, ErrInvalidRecordType)

	_, err = Open[notFixed, item](tempPath(t))
	assert.ErrorIs(t, err, ErrInvalidRecordType)

	_, err = Open[testHeader, item](tempPath(t), WithBunchSize(0))
	assert.ErrorIs(t, err, ErrInvalidBunchSize)

	type wide struct {
		B [1 << 20]byte
	}
	_, err = Open[testHeader, wide](tempPath(t), WithBunchSize(1<<13))
	assert.ErrorIs(t, err, ErrInvalidBunchSize)

	_, err = Open[testHeader, item](tempPath(t), WithCompressionLevel(42))
	assert.ErrorIs(t, err, ErrInvalidCompressionLevel)
}

func TestOpen_IOError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing", "dir", "store.bin")

	_, err := Open[testHeader, item](path)
	require.Error(t, err)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "open", ioErr.Op)
	assert.Equal(t, path, ioErr.Path)
}

func TestOpen_CorruptStore(t *testing.T) {
	build := func(t *testing.T, tail []byte) string {
		t.Helper()
		path := tempPath(t)
		img := append(make([]byte, 4), tail...)
		require.NoError(t, os.WriteFile(path, img, 0644))
		return path
	}

	tests := []struct {
		name string
		tail []byte
	}{
		{"header only", nil},
		{"truncated block header", []byte{1, 0, 0}},
		{"payload past end of file", append(layout.BlockHeader{PayloadLen: 100, RecordCount: 2}.Bytes(), 1, 2, 3)},
		{"records without payload", layout.BlockHeader{PayloadLen: 0, RecordCount: 2}.Bytes()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Open[testHeader, item](build(t, tt.tail))
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrCorruptStore)

			var ce *CorruptStoreError
			require.ErrorAs(t, err, &ce)
			assert.NotEmpty(t, ce.Reason)
		})
	}

	t.Run("garbage record count", func(t *testing.T) {
		path := tempPath(t)
		s, err := Open[testHeader, item](path, WithBunchSize(4))
		require.NoError(t, err)
		appendItems(t, s, 1, 2, 3)
		require.NoError(t, s.Close())

		// Record count field of block 0.
		f, err := os.OpenFile(path, os.O_RDWR, 0)
		require.NoError(t, err)
		_, err = f.WriteAt([]byte{0xF0, 0xFF, 0xFF, 0xFF}, 4+4)
		require.NoError(t, err)
		require.NoError(t, f.Close())

		_, err = Open[testHeader, item](path, WithBunchSize(4))
		require.Error(t, err)
		assert.ErrorIs(t, err, ErrCorruptStore)

		var me *BunchSizeMismatchError
		require.ErrorAs(t, err, &me)
		assert.EqualValues(t, uint32(0xFFFFFFF0), me.Found)
	})
}

func TestOpen_DetectsTruncatedLastBlock(t *testing.T) {
	path := tempPath(t)

	s, err := Open[testHeader, item](path, WithBunchSize(4))
	require.NoError(t, err)
	appendItems(t, s, 1, 2, 3, 4, 5, 6)
	require.NoError(t, s.Close())

	// Simulate a crash mid-write of the last block.
	info, err := os.Stat(path)
	require.NoError(t, err)
	require.NoError(t, os.Truncate(path, info.Size()-1))

	_, err = Open[testHeader, item](path, WithBunchSize(4))
	assert.ErrorIs(t, err, ErrCorruptStore)
}

func TestOpen_BunchSizeMismatch(t *testing.T) {
	path := tempPath(t)

	s, err := Open[testHeader, item](path, WithBunchSize(3))
	require.NoError(t, err)
	appendItems(t, s, 1, 2, 3, 4, 5, 6, 7)
	require.NoError(t, s.Close())

	for _, bunch := range []int{2, 5} {
		_, err := Open[testHeader, item](path, WithBunchSize(bunch))
		var me *BunchSizeMismatchError
		require.ErrorAs(t, err, &me, "bunch size %d", bunch)
		assert.Equal(t, bunch, me.Configured)
		assert.Equal(t, 3, me.Found)
		assert.ErrorIs(t, err, ErrCorruptStore)
	}

	s = openTest(t, path, WithBunchSize(3))
	assert.Equal(t, 7, s.Count())
}

func TestHeader_Overwrite(t *testing.T) {
	path := tempPath(t)
	s := openTest(t, path)

	appendItems(t, s, 1, 2, 3)
	require.NoError(t, s.WriteHeader(testHeader{Version: 5}))
	require.NoError(t, s.WriteHeader(testHeader{Version: 6}))

	h, err := s.ReadHeader()
	require.NoError(t, err)
	assert.Equal(t, int32(6), h.Version)

	// Header rewrites never touch records.
	all, err := s.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []item{{1}, {2}, {3}}, all)
}

func TestClose(t *testing.T) {
	s, err := Open[testHeader, item](tempPath(t))
	require.NoError(t, err)
	appendItems(t, s, 1)

	require.NoError(t, s.Close())
	require.NoError(t, s.Close())

	assert.ErrorIs(t, s.Append(item{A: 2}), ErrClosed)
	assert.ErrorIs(t, s.Sync(), ErrClosed)
	assert.ErrorIs(t, s.WriteHeader(testHeader{}), ErrClosed)
	_, err = s.ReadHeader()
	assert.ErrorIs(t, err, ErrClosed)
	_, _, err = s.Read(0)
	assert.ErrorIs(t, err, ErrClosed)
	_, err = s.ReadAll()
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Reindex(func(a, b item) bool { return a.A < b.A }), ErrClosed)
}

func TestClose_FlushesDirtyBlock(t *testing.T) {
	path := tempPath(t)

	s, err := Open[testHeader, item](path, WithBunchSize(100))
	require.NoError(t, err)
	appendItems(t, s, 10, 20, 30)
	assert.True(t, s.Stats().Dirty)
	require.NoError(t, s.Close())

	s = openTest(t, path, WithBunchSize(100))
	all, err := s.ReadAll()
	require.NoError(t, err)
	assert.Equal(t, []item{{10}, {20}, {30}}, all)
}

func TestSync_Idempotent(t *testing.T) {
	metrics := &BasicMetricsCollector{}
	s := openTest(t, tempPath(t), WithMetricsCollector(metrics))

	require.NoError(t, s.Sync())
	assert.Equal(t, int64(0), metrics.GetStats().FlushCount)

	appendItems(t, s, 1, 2)
	require.NoError(t, s.Sync())
	require.NoError(t, s.Sync())
	require.NoError(t, s.Sync())
	assert.Equal(t, int64(1), metrics.GetStats().FlushCount)
	assert.False(t, s.Stats().Dirty)
}

func TestSync_IOError(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	// Header record and the empty block header fit; nothing after them does.
	ffs.AddRule("store.bin", fs.Fault{FailAfterBytes: 4 + layout.BlockHeaderSize})

	s := openTest(t, tempPath(t), withFileSystem(ffs))
	appendItems(t, s, 1, 2, 3)

	err := s.Sync()
	require.Error(t, err)

	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "write", ioErr.Op)
	assert.True(t, errors.Is(err, fs.ErrInjected))
}

func TestSync_FsyncError(t *testing.T) {
	ffs := fs.NewFaultyFS(nil)
	path := tempPath(t)

	s, err := Open[testHeader, item](path, withFileSystem(ffs))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	ffs.AddRule("store.bin", fs.Fault{FailAfterBytes: -1, FailOnSync: true})
	s = openTest(t, path, withFileSystem(ffs))
	appendItems(t, s, 1)

	err = s.Sync()
	var ioErr *IOError
	require.ErrorAs(t, err, &ioErr)
	assert.Equal(t, "sync", ioErr.Op)
}

func TestStats(t *testing.T) {
	s := openTest(t, tempPath(t), WithBunchSize(3))

	appendItems(t, s, 1, 2, 3, 4, 5, 6, 7)
	require.NoError(t, s.Sync())

	st := s.Stats()
	assert.Equal(t, 3, st.Blocks)
	assert.Equal(t, 7, st.Records)
	assert.Equal(t, int64(7*4), st.RawBytes)
	assert.False(t, st.Dirty)

	info, err := os.Stat(s.Path())
	require.NoError(t, err)
	assert.Equal(t, info.Size(), st.FileSize)
	assert.Equal(t, info.Size(), int64(4)+3*layout.BlockHeaderSize+st.StoredBytes)
}
