package codec

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/arloliu/tetra/errs"
)

func ramp2D(nx, ny int) []float64 {
	data := make([]float64, nx*ny)
	for j := 0; j < ny; j++ {
		for i := 0; i < nx; i++ {
			data[i+nx*j] = float64(i + 100*j)
		}
	}

	return data
}

func TestField_New_Validation(t *testing.T) {
	_, err := New1D([]float64{1, 2}, 0)
	require.ErrorIs(t, err, errs.ErrInvalidDimensions)

	_, err = New2D([]float64{1, 2}, 2, 2)
	require.ErrorIs(t, err, errs.ErrInvalidDimensions)

	f, err := New2D(make([]float64, 6), 3, 2)
	require.NoError(t, err)
	require.Equal(t, 2, f.Dims())
	require.Equal(t, 6, f.Size())
}

func TestField_Blocks(t *testing.T) {
	f, err := New2D(make([]float64, 9*5), 9, 5)
	require.NoError(t, err)

	bx, by, _, _, total := f.Blocks()
	require.Equal(t, 3, bx)
	require.Equal(t, 2, by)
	require.Equal(t, 6, total)
}

func TestField_BlockOrigin(t *testing.T) {
	f, err := New3D(make([]float64, 8*8*8), 8, 8, 8)
	require.NoError(t, err)

	// Blocks number x fastest.
	i, j, k, l := f.blockOrigin(0)
	require.Equal(t, [4]int{0, 0, 0, 0}, [4]int{i, j, k, l})

	i, j, k, _ = f.blockOrigin(1)
	require.Equal(t, [3]int{4, 0, 0}, [3]int{i, j, k})

	i, j, k, _ = f.blockOrigin(2)
	require.Equal(t, [3]int{0, 4, 0}, [3]int{i, j, k})

	i, j, k, _ = f.blockOrigin(5)
	require.Equal(t, [3]int{4, 0, 4}, [3]int{i, j, k})
}

func TestField_GatherScatter_Interior(t *testing.T) {
	nx, ny := 8, 8
	data := ramp2D(nx, ny)
	f, err := New2D(data, nx, ny)
	require.NoError(t, err)

	block := make([]float64, blockSize(2))
	f.GatherBlock(3, block) // origin (4,4)
	for j := 0; j < 4; j++ {
		for i := 0; i < 4; i++ {
			require.Equal(t, float64(4+i+100*(4+j)), block[i+4*j])
		}
	}

	out := make([]float64, len(data))
	g, err := New2D(out, nx, ny)
	require.NoError(t, err)
	g.ScatterBlock(3, block)
	for j := 4; j < 8; j++ {
		for i := 4; i < 8; i++ {
			require.Equal(t, data[i+nx*j], out[i+nx*j])
		}
	}
}

func TestField_GatherBlock_PadsPartialByReplication(t *testing.T) {
	// A 5x5 field: block 3 (origin (4,4)) holds a single valid sample that
	// must replicate across the whole block.
	f, err := New2D(ramp2D(5, 5), 5, 5)
	require.NoError(t, err)

	block := make([]float64, blockSize(2))
	f.GatherBlock(3, block)

	want := float64(4 + 100*4)
	for i, v := range block {
		require.Equal(t, want, v, "index %d", i)
	}
}

func TestField_GatherBlock_PadsAlongOneDimension(t *testing.T) {
	// 6x8: x blocks are full then half; padding replicates column 1 of the
	// partial block into columns 2 and 3.
	f, err := New2D(ramp2D(6, 8), 6, 8)
	require.NoError(t, err)

	block := make([]float64, blockSize(2))
	f.GatherBlock(1, block) // origin (4,0), valid 2x4

	for j := 0; j < 4; j++ {
		require.Equal(t, float64(4+100*j), block[0+4*j])
		require.Equal(t, float64(5+100*j), block[1+4*j])
		require.Equal(t, float64(5+100*j), block[2+4*j])
		require.Equal(t, float64(5+100*j), block[3+4*j])
	}
}

func TestField_ScatterBlock_SkipsPadding(t *testing.T) {
	out := make([]float64, 5*5)
	f, err := New2D(out, 5, 5)
	require.NoError(t, err)

	block := make([]float64, blockSize(2))
	for i := range block {
		block[i] = 7
	}
	f.ScatterBlock(1, block) // origin (4,0), valid 1x4

	for j := 0; j < 5; j++ {
		for i := 0; i < 5; i++ {
			want := 0.0
			if i == 4 && j < 4 {
				want = 7
			}
			require.Equal(t, want, out[i+5*j], "(%d,%d)", i, j)
		}
	}
}

func TestField_SetStrides_TransposedView(t *testing.T) {
	// View a row-major 4x4 as its transpose by swapping strides.
	nx := 4
	data := ramp2D(nx, nx)
	f, err := New2D(data, nx, nx)
	require.NoError(t, err)
	require.NoError(t, f.SetStrides(0, nx, 1))

	require.Equal(t, data[2+nx*1], f.At(1, 2, 0, 0))
	require.Equal(t, data[0+nx*3], f.At(3, 0, 0, 0))
}

func TestField_SetStrides_ReversedView(t *testing.T) {
	data := []float64{0, 1, 2, 3, 4, 5, 6, 7}
	f, err := New1D(data, 8)
	require.NoError(t, err)
	require.NoError(t, f.SetStrides(7, -1))

	for i := 0; i < 8; i++ {
		require.Equal(t, float64(7-i), f.At(i, 0, 0, 0))
	}
}

func TestField_SetStrides_Validation(t *testing.T) {
	f, err := New2D(make([]float64, 16), 4, 4)
	require.NoError(t, err)

	require.ErrorIs(t, f.SetStrides(0, 1), errs.ErrInvalidDimensions)
	require.ErrorIs(t, f.SetStrides(-1, 1, 4), errs.ErrInvalidDimensions)
	require.ErrorIs(t, f.SetStrides(16, 1, 4), errs.ErrInvalidDimensions)
}
