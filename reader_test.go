package bunchfile

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/bunchfile/codec"
	"github.com/hupe1980/bunchfile/internal/layout"
	"github.com/hupe1980/bunchfile/testutil"
)

func TestRead_RandomAccess(t *testing.T) {
	path := tempPath(t)

	s, err := Open[testHeader, item](path, WithBunchSize(7))
	require.NoError(t, err)
	for i := int32(0); i < 100; i++ {
		require.NoError(t, s.Append(item{A: i * 3}))
	}
	require.NoError(t, s.Close())

	s = openTest(t, path, WithBunchSize(7))
	rng := testutil.NewRNG(42)
	for _, pos := range rng.Perm(100) {
		v, ok, err := s.Read(pos)
		require.NoError(t, err)
		require.True(t, ok, "pos %d", pos)
		assert.Equal(t, item{A: int32(pos * 3)}, v)
	}
}

func TestRead_OutOfRange(t *testing.T) {
	s := openTest(t, tempPath(t))
	appendItems(t, s, 1, 2, 3)

	for _, pos := range []int{-1, 3, 100} {
		v, ok, err := s.Read(pos)
		require.NoError(t, err)
		assert.False(t, ok, "pos %d", pos)
		assert.Equal(t, item{}, v)
	}
}

func TestRead_ZeroValueIsARecord(t *testing.T) {
	s := openTest(t, tempPath(t))
	appendItems(t, s, 0)

	v, ok, err := s.Read(0)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, item{}, v)
}

func TestNext_Sequential(t *testing.T) {
	s := openTest(t, tempPath(t), WithBunchSize(2))
	appendItems(t, s, 10, 11, 12, 13, 14)

	var got []item
	for {
		v, ok, err := s.Next()
		require.NoError(t, err)
		if !ok {
			break
		}
		got = append(got, v)
	}
	assert.Equal(t, []item{{10}, {11}, {12}, {13}, {14}}, got)
	assert.Equal(t, 5, s.Pos())

	// New records become visible to the cursor.
	appendItems(t, s, 15)
	v, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, item{A: 15}, v)
}

func TestNext_AfterReadAndSeek(t *testing.T) {
	s := openTest(t, tempPath(t), WithBunchSize(2))
	appendItems(t, s, 10, 11, 12, 13, 14)

	_, ok, err := s.Read(2)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 3, s.Pos())

	v, ok, err := s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, item{A: 13}, v)

	require.NoError(t, s.Seek(0))
	v, ok, err = s.Next()
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, item{A: 10}, v)

	require.NoError(t, s.Seek(50))
	_, ok, err = s.Next()
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, 50, s.Pos())

	assert.ErrorIs(t, s.Seek(-1), ErrInvalidPosition)
}

func TestRead_BlockCache(t *testing.T) {
	path := tempPath(t)

	s, err := Open[testHeader, item](path, WithBunchSize(3))
	require.NoError(t, err)
	appendItems(t, s, 1, 2, 3, 4, 5, 6, 7, 8, 9)
	require.NoError(t, s.Close())

	metrics := &BasicMetricsCollector{}
	s = openTest(t, path, WithBunchSize(3), WithMetricsCollector(metrics))
	for i := 0; i < 9; i++ {
		_, ok, err := s.Read(i)
		require.NoError(t, err)
		require.True(t, ok)
	}

	// One decompression per block for a sequential pass.
	stats := metrics.GetStats()
	assert.Equal(t, int64(3), stats.CacheMisses)
	assert.Equal(t, int64(6), stats.CacheHits)

	// Jumping back to block 0 evicts block 2.
	_, _, err = s.Read(0)
	require.NoError(t, err)
	assert.Equal(t, int64(4), metrics.GetStats().CacheMisses)
	assert.Equal(t, 0, s.cache.block)
}

func corruptPayload(t *testing.T, path string, off int64, n int) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()

	garbage := make([]byte, n)
	for i := range garbage {
		garbage[i] = 0xFF
	}
	_, err = f.WriteAt(garbage, off)
	require.NoError(t, err)
}

func TestRead_DecompressionError(t *testing.T) {
	path := tempPath(t)

	s, err := Open[testHeader, item](path, WithBunchSize(64))
	require.NoError(t, err)
	for i := 0; i < 64; i++ {
		require.NoError(t, s.Append(item{A: 1}))
	}
	require.NoError(t, s.Close())

	s = openTest(t, path, WithBunchSize(64))
	h := s.dir.Entry(0).Header
	require.False(t, s.geo.StoredRaw(h))
	corruptPayload(t, path, 4+layout.BlockHeaderSize, int(h.PayloadLen))

	_, _, err = s.Read(0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDecompression)

	var de *DecompressionError
	require.ErrorAs(t, err, &de)
	assert.Equal(t, 0, de.Block)
	assert.Equal(t, 64*4, de.Expected)
}

type shortCodec struct {
	*codec.Zlib
}

func (c shortCodec) Decompress(src []byte, n int) ([]byte, error) {
	raw, err := c.Zlib.Decompress(src, n)
	if err != nil {
		return nil, err
	}
	return raw[:n-1], nil
}

func TestRead_DecompressedLengthMismatch(t *testing.T) {
	z, err := codec.NewZlib(9)
	require.NoError(t, err)

	s := openTest(t, tempPath(t), WithBunchSize(32), WithCodec(shortCodec{z}))
	for i := 0; i < 32; i++ {
		require.NoError(t, s.Append(item{A: 2}))
	}
	require.NoError(t, s.Sync())
	s.cache.reset()

	_, _, err = s.Read(5)
	assert.ErrorIs(t, err, ErrDecompression)
}

func TestRead_BlockHeaderMismatch(t *testing.T) {
	path := tempPath(t)

	s, err := Open[testHeader, item](path, WithBunchSize(4))
	require.NoError(t, err)
	appendItems(t, s, 1, 2, 3)
	require.NoError(t, s.Close())

	s = openTest(t, path, WithBunchSize(4))

	// Another writer changed the record count behind the store's back.
	h := s.dir.Entry(0).Header
	h.RecordCount = 2
	f, err := os.OpenFile(path, os.O_RDWR, 0)
	require.NoError(t, err)
	_, err = f.WriteAt(h.Bytes(), 4)
	require.NoError(t, err)
	require.NoError(t, f.Close())

	_, _, err = s.Read(0)
	assert.ErrorIs(t, err, ErrCorruptStore)
}
