package array

import (
	"math"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/tetra/bitstream"
	"github.com/arloliu/tetra/codec"
	"github.com/arloliu/tetra/errs"
)

func smoothData(n int) []float64 {
	data := make([]float64, n)
	for i := range data {
		data[i] = math.Sin(0.05 * float64(i))
	}

	return data
}

func TestArray_New_Validation(t *testing.T) {
	_, err := New2D[float64](0, 4, 16)
	require.ErrorIs(t, err, errs.ErrInvalidDimensions)

	_, err = New2D[float64](4, 4, -1)
	require.ErrorIs(t, err, errs.ErrInvalidRate)

	_, err = New1D[float64](4, 1)
	require.ErrorIs(t, err, errs.ErrInvalidRate, "rate too small for a float64 exponent header")

	a, err := New3D[float64](10, 7, 5, 16)
	require.NoError(t, err)
	require.Equal(t, 3, a.Dims())
	require.Equal(t, 350, a.Size())
	require.Equal(t, 16.0, a.Rate())
}

func TestArray_ZeroInitialized(t *testing.T) {
	a, err := New2D[float64](9, 6, 16)
	require.NoError(t, err)

	for j := 0; j < 6; j++ {
		for i := 0; i < 9; i++ {
			require.Zero(t, a.Get(i, j))
		}
	}
}

func TestArray_SetGet_SameBlock(t *testing.T) {
	a, err := New2D[float64](8, 8, 32)
	require.NoError(t, err)

	a.Set(1.25, 2, 3)
	require.Equal(t, 1.25, a.Get(2, 3))
}

func TestArray_SetGet_AcrossEvictions(t *testing.T) {
	// A tight cache forces evictions and write-backs between accesses; the
	// values must survive the recompression round trip within rate error.
	a, err := New2D[float64](16, 16, 32, WithCacheSize(1))
	require.NoError(t, err)
	require.Equal(t, 4, a.CacheSize()/(16*8), "floor of one x row of blocks")

	want := smoothData(16 * 16)
	for j := 0; j < 16; j++ {
		for i := 0; i < 16; i++ {
			a.Set(want[i+16*j], i, j)
		}
	}
	// Column-major read-back defeats the row-sized cache, evicting every
	// block between writes and reads.
	for i := 0; i < 16; i++ {
		for j := 0; j < 16; j++ {
			require.InDelta(t, want[i+16*j], a.Get(i, j), 1e-4, "(%d,%d)", i, j)
		}
	}
}

func TestArray_SetDefersReencode(t *testing.T) {
	a, err := New1D[float64](4, 32)
	require.NoError(t, err)

	a.Set(3.5, 1)

	// The compressed stream still decodes to the old contents.
	raw := make([]float64, a.blockLen)
	a.bs.SeekRead(0)
	_, err = codec.DecodeBlock(a.st, a.bs, raw, 1)
	require.NoError(t, err)
	require.Zero(t, raw[1])

	require.NoError(t, a.Flush())

	a.bs.SeekRead(0)
	_, err = codec.DecodeBlock(a.st, a.bs, raw, 1)
	require.NoError(t, err)
	require.InDelta(t, 3.5, raw[1], 1e-4)
}

func TestArray_FillDump_Roundtrip(t *testing.T) {
	a, err := New2D[float64](13, 9, 32)
	require.NoError(t, err)

	want := smoothData(13 * 9)
	require.NoError(t, a.Fill(want))

	got, err := a.Dump()
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		require.InDelta(t, want[i], got[i], 1e-4, "index %d", i)
	}
}

func TestArray_Fill_WrongLength(t *testing.T) {
	a, err := New1D[float64](8, 16)
	require.NoError(t, err)
	require.ErrorIs(t, a.Fill(make([]float64, 7)), errs.ErrInvalidDimensions)
}

func TestArray_Bytes_SetBytes_Roundtrip(t *testing.T) {
	a, err := New2D[float64](10, 10, 24)
	require.NoError(t, err)
	require.NoError(t, a.Fill(smoothData(100)))

	raw, err := a.Bytes()
	require.NoError(t, err)
	require.Equal(t, a.CompressedSize(), len(raw))

	b, err := New2D[float64](10, 10, 24)
	require.NoError(t, err)
	require.NoError(t, b.SetBytes(raw))

	for j := 0; j < 10; j++ {
		for i := 0; i < 10; i++ {
			require.Equal(t, a.Get(i, j), b.Get(i, j), "(%d,%d)", i, j)
		}
	}
}

func TestArray_Bytes_FullFootprintWithoutWrites(t *testing.T) {
	// The exported buffer always spans every block's byte range, even when
	// no block (or only block 0) has ever been encoded.
	a, err := New1D[float64](16, 32) // 4 blocks
	require.NoError(t, err)

	raw, err := a.Bytes()
	require.NoError(t, err)
	require.Len(t, raw, a.CompressedSize())

	a.Set(2.5, 0) // dirties block 0 only
	raw, err = a.Bytes()
	require.NoError(t, err)
	require.Len(t, raw, a.CompressedSize())

	b, err := New1D[float64](16, 32)
	require.NoError(t, err)
	require.NoError(t, b.SetBytes(raw))
	require.InDelta(t, 2.5, b.Get(0), 1e-4)
	require.Equal(t, 0.0, b.Get(15))

	require.NoError(t, a.Resize(24))
	raw, err = a.Bytes()
	require.NoError(t, err)
	require.Len(t, raw, a.CompressedSize())
}

func TestArray_SetBytes_WrongLength(t *testing.T) {
	a, err := New1D[float64](16, 16)
	require.NoError(t, err)
	require.ErrorIs(t, a.SetBytes(make([]byte, 3)), errs.ErrTruncatedPayload)
}

func TestArray_Bytes_IncludesPendingWrites(t *testing.T) {
	a, err := New1D[float64](4, 32)
	require.NoError(t, err)
	a.Set(2.5, 0)

	raw, err := a.Bytes()
	require.NoError(t, err)

	b, err := New1D[float64](4, 32)
	require.NoError(t, err)
	require.NoError(t, b.SetBytes(raw))
	require.InDelta(t, 2.5, b.Get(0), 1e-4)
}

func TestArray_Resize_DiscardsContents(t *testing.T) {
	a, err := New2D[float64](8, 8, 16)
	require.NoError(t, err)
	a.Set(9, 1, 1)

	require.NoError(t, a.Resize(12, 20))
	nx, ny, _, _ := a.Extents()
	require.Equal(t, 12, nx)
	require.Equal(t, 20, ny)
	require.Equal(t, 240, a.Size())
	require.Zero(t, a.Get(1, 1))

	require.ErrorIs(t, a.Resize(5), errs.ErrInvalidDimensions)
	require.ErrorIs(t, a.Resize(5, 0), errs.ErrInvalidDimensions)
}

func TestArray_SetRate_Recompresses(t *testing.T) {
	a, err := New2D[float64](12, 12, 16)
	require.NoError(t, err)
	want := smoothData(144)
	require.NoError(t, a.Fill(want))

	actual, err := a.SetRate(40)
	require.NoError(t, err)
	require.Equal(t, 40.0, actual)
	require.Equal(t, 40.0, a.Rate())

	for j := 0; j < 12; j++ {
		for i := 0; i < 12; i++ {
			require.InDelta(t, want[i+12*j], a.Get(i, j), 1e-3, "(%d,%d)", i, j)
		}
	}
}

func TestArray_CacheSize_Floor(t *testing.T) {
	a, err := New2D[float64](32, 32, 16, WithCacheSize(0))
	require.NoError(t, err)

	// 8 x-blocks of 16 float64 each.
	require.Equal(t, 8*16*8, a.CacheSize())

	require.NoError(t, a.SetCacheSize(1<<20))
	require.Greater(t, a.CacheSize(), 8*16*8)

	require.Error(t, a.SetCacheSize(-1))
}

func TestArray_SetCacheSize_WritesBackEvicted(t *testing.T) {
	a, err := New2D[float64](16, 16, 32, WithCacheSize(1<<20))
	require.NoError(t, err)

	want := smoothData(256)
	for j := 0; j < 16; j++ {
		for i := 0; i < 16; i++ {
			a.Set(want[i+16*j], i, j)
		}
	}

	// Shrinking to the floor evicts dirty blocks, which must write back.
	require.NoError(t, a.SetCacheSize(0))

	for j := 0; j < 16; j++ {
		for i := 0; i < 16; i++ {
			require.InDelta(t, want[i+16*j], a.Get(i, j), 1e-4)
		}
	}
}

func TestArray_Int64_CacheResidentExact(t *testing.T) {
	// The default cache holds the whole 4-block array, so values read back
	// exactly regardless of rate.
	a, err := New1D[int64](16, 64)
	require.NoError(t, err)

	for i := 0; i < 16; i++ {
		a.Set(int64(i*i-50), i)
	}
	for i := 0; i < 16; i++ {
		require.Equal(t, int64(i*i-50), a.Get(i))
	}
}

func TestArray_Get_PanicsOutOfRange(t *testing.T) {
	a, err := New2D[float64](4, 4, 16)
	require.NoError(t, err)

	require.Panics(t, func() { a.Get(4, 0) })
	require.Panics(t, func() { a.Get(0, -1) })
	require.Panics(t, func() { a.Get(1) })
	require.Panics(t, func() { a.Get(1, 1, 1) })
}

func TestArray_4D(t *testing.T) {
	a, err := New4D[float64](5, 4, 3, 2, 32)
	require.NoError(t, err)

	a.Set(1.5, 4, 3, 2, 1)
	require.InDelta(t, 1.5, a.Get(4, 3, 2, 1), 1e-4)
	require.Zero(t, a.Get(0, 0, 0, 0))
}

func TestArray_CompressedFootprint(t *testing.T) {
	// 64x64 float64 at 8 bits/value compresses 32 KiB of data into 4 KiB.
	a, err := New2D[float64](64, 64, 8)
	require.NoError(t, err)
	require.Equal(t, 4096, a.CompressedSize())

	raw, err := a.Bytes()
	require.NoError(t, err)
	require.Len(t, raw, 4096)

	_ = bitstream.FromBytes(raw) // layout is plain bitstream serialization
}
