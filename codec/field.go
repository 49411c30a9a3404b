package codec

import (
	"fmt"

	"github.com/arloliu/tetra/errs"
)

const (
	// blockEdge is the side length of a block along every dimension.
	blockEdge = 4
	// maxDims is the highest supported dimensionality.
	maxDims = 4
)

// blockSize returns the number of elements in a full block: 4^dims.
func blockSize(dims int) int {
	return 1 << (2 * dims)
}

// Field is a non-owning view of a d-dimensional array being compressed or
// decompressed: scalar data, per-dimension extents, and per-dimension
// strides in elements. Strides may describe non-contiguous, permuted, or
// reversed layouts; a negative stride walks the underlying slice backward
// from the base offset.
//
// Field never owns or copies the raw data. The caller keeps the backing
// slice alive for the lifetime of the view.
type Field[T Scalar] struct {
	data []T
	base int // element offset of (0,0,0,0) in data

	nx, ny, nz, nw int
	sx, sy, sz, sw int
	dims           int
}

// New1D creates a contiguous one-dimensional field view over data.
func New1D[T Scalar](data []T, nx int) (*Field[T], error) {
	return newField(data, 1, [maxDims]int{nx, 1, 1, 1}, [maxDims]int{1, 0, 0, 0})
}

// New2D creates a contiguous two-dimensional field view over data, with x
// varying fastest.
func New2D[T Scalar](data []T, nx, ny int) (*Field[T], error) {
	return newField(data, 2, [maxDims]int{nx, ny, 1, 1}, [maxDims]int{1, nx, 0, 0})
}

// New3D creates a contiguous three-dimensional field view over data.
func New3D[T Scalar](data []T, nx, ny, nz int) (*Field[T], error) {
	return newField(data, 3, [maxDims]int{nx, ny, nz, 1}, [maxDims]int{1, nx, nx * ny, 0})
}

// New4D creates a contiguous four-dimensional field view over data.
func New4D[T Scalar](data []T, nx, ny, nz, nw int) (*Field[T], error) {
	return newField(data, 4, [maxDims]int{nx, ny, nz, nw}, [maxDims]int{1, nx, nx * ny, nx * ny * nz})
}

func newField[T Scalar](data []T, dims int, n [maxDims]int, s [maxDims]int) (*Field[T], error) {
	for d := 0; d < dims; d++ {
		if n[d] <= 0 {
			return nil, fmt.Errorf("%w: extent %d of dimension %d", errs.ErrInvalidDimensions, n[d], d)
		}
	}

	f := &Field[T]{
		data: data,
		nx:   n[0], ny: n[1], nz: n[2], nw: n[3],
		sx: s[0], sy: s[1], sz: s[2], sw: s[3],
		dims: dims,
	}
	if f.Size() > len(data) {
		return nil, fmt.Errorf("%w: %d elements for %d-element field",
			errs.ErrInvalidDimensions, len(data), f.Size())
	}

	return f, nil
}

// SetStrides overrides the per-dimension strides, in elements. base is the
// element offset of the logical origin, which allows reversed layouts
// (negative strides) to stay within the backing slice. Strides for
// dimensions beyond the field's dimensionality are ignored.
func (f *Field[T]) SetStrides(base int, strides ...int) error {
	if len(strides) < f.dims {
		return fmt.Errorf("%w: %d strides for %d dims", errs.ErrInvalidDimensions, len(strides), f.dims)
	}
	if base < 0 || base >= len(f.data) {
		return fmt.Errorf("%w: base offset %d", errs.ErrInvalidDimensions, base)
	}

	f.base = base
	s := [maxDims]int{}
	copy(s[:], strides[:f.dims])
	f.sx, f.sy, f.sz, f.sw = s[0], s[1], s[2], s[3]

	return nil
}

// Dims returns the dimensionality, in [1, 4].
func (f *Field[T]) Dims() int { return f.dims }

// Extents returns the per-dimension extents; trailing unused dimensions
// report 1.
func (f *Field[T]) Extents() (nx, ny, nz, nw int) {
	return f.nx, f.ny, f.nz, f.nw
}

// Size returns the total number of elements in the view.
func (f *Field[T]) Size() int {
	return f.nx * f.ny * f.nz * f.nw
}

// Blocks returns the per-dimension block counts and the total number of
// blocks, with partial blocks at the upper boundaries counted.
func (f *Field[T]) Blocks() (bx, by, bz, bw, total int) {
	ceil4 := func(n int) int { return (n + blockEdge - 1) / blockEdge }
	bx, by, bz, bw = ceil4(f.nx), ceil4(f.ny), ceil4(f.nz), ceil4(f.nw)

	return bx, by, bz, bw, bx * by * bz * bw
}

// offset returns the element offset of (i,j,k,l) in the backing slice.
func (f *Field[T]) offset(i, j, k, l int) int {
	return f.base + i*f.sx + j*f.sy + k*f.sz + l*f.sw
}

// At returns the element at (i,j,k,l); indices beyond the field's
// dimensionality must be 0.
func (f *Field[T]) At(i, j, k, l int) T {
	return f.data[f.offset(i, j, k, l)]
}

// SetAt stores v at (i,j,k,l).
func (f *Field[T]) SetAt(v T, i, j, k, l int) {
	f.data[f.offset(i, j, k, l)] = v
}

// blockOrigin returns the field coordinates of the first element of block b,
// where blocks are numbered row-major with the x block index fastest.
func (f *Field[T]) blockOrigin(b int) (i, j, k, l int) {
	bx, by, bz, _, _ := f.Blocks()
	i = (b % bx) * blockEdge
	b /= bx
	j = (b % by) * blockEdge
	b /= by
	k = (b % bz) * blockEdge
	b /= bz
	l = b * blockEdge

	return i, j, k, l
}

// blockExtent returns how many samples of block b are valid along each
// dimension: blockEdge for interior blocks, fewer for partial blocks at the
// array boundary. Dimensions beyond the field's dimensionality report 1.
func (f *Field[T]) blockExtent(i, j, k, l int) (mx, my, mz, mw int) {
	clamp := func(origin, extent int) int {
		m := extent - origin
		if m > blockEdge {
			m = blockEdge
		}

		return m
	}
	mx, my, mz, mw = clamp(i, f.nx), clamp(j, f.ny), clamp(k, f.nz), clamp(l, f.nw)

	return mx, my, mz, mw
}

// GatherBlock copies block b into dst, which must hold blockSize(dims)
// elements laid out with x fastest. Partial blocks are padded by replicating
// the last valid sample along each truncated dimension, which keeps the
// decorrelating transform well-conditioned at array boundaries.
func (f *Field[T]) GatherBlock(b int, dst []T) {
	oi, oj, ok, ol := f.blockOrigin(b)
	mx, my, mz, mw := f.blockExtent(oi, oj, ok, ol)

	// Gather the valid region.
	for l := 0; l < mw; l++ {
		for k := 0; k < mz; k++ {
			for j := 0; j < my; j++ {
				for i := 0; i < mx; i++ {
					dst[i+blockEdge*(j+blockEdge*(k+blockEdge*l))] = f.At(oi+i, oj+j, ok+k, ol+l)
				}
			}
		}
	}

	// Pad dimension by dimension; each pass replicates the last valid
	// sample across the truncated range, extending what earlier passes
	// already filled.
	edge := f.dims
	if edge >= 1 && mx < blockEdge {
		for l := 0; l < mw; l++ {
			for k := 0; k < mz; k++ {
				for j := 0; j < my; j++ {
					row := blockEdge * (j + blockEdge*(k+blockEdge*l))
					for i := mx; i < blockEdge; i++ {
						dst[row+i] = dst[row+mx-1]
					}
				}
			}
		}
	}
	if edge >= 2 && my < blockEdge {
		for l := 0; l < mw; l++ {
			for k := 0; k < mz; k++ {
				src := blockEdge * (my - 1 + blockEdge*(k+blockEdge*l))
				for j := my; j < blockEdge; j++ {
					row := blockEdge * (j + blockEdge*(k+blockEdge*l))
					copy(dst[row:row+blockEdge], dst[src:src+blockEdge])
				}
			}
		}
	}
	if edge >= 3 && mz < blockEdge {
		for l := 0; l < mw; l++ {
			src := blockEdge * blockEdge * (mz - 1 + blockEdge*l)
			for k := mz; k < blockEdge; k++ {
				plane := blockEdge * blockEdge * (k + blockEdge*l)
				copy(dst[plane:plane+blockEdge*blockEdge], dst[src:src+blockEdge*blockEdge])
			}
		}
	}
	if edge >= 4 && mw < blockEdge {
		const cube = blockEdge * blockEdge * blockEdge
		src := cube * (mw - 1)
		for l := mw; l < blockEdge; l++ {
			copy(dst[cube*l:cube*(l+1)], dst[src:src+cube])
		}
	}
}

// ScatterBlock copies block b from src back into the field, writing only the
// valid extents so padding never leaks into the array.
func (f *Field[T]) ScatterBlock(b int, src []T) {
	oi, oj, ok, ol := f.blockOrigin(b)
	mx, my, mz, mw := f.blockExtent(oi, oj, ok, ol)

	for l := 0; l < mw; l++ {
		for k := 0; k < mz; k++ {
			for j := 0; j < my; j++ {
				for i := 0; i < mx; i++ {
					f.SetAt(src[i+blockEdge*(j+blockEdge*(k+blockEdge*l))], oi+i, oj+j, ok+k, ol+l)
				}
			}
		}
	}
}
