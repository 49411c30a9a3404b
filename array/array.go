// Package array implements compressed in-memory arrays with random access.
//
// An Array holds its contents as a fixed-rate compressed bitstream plus a
// bounded cache of decompressed blocks. Reads fault the containing block into
// the cache; writes modify the cached block and defer re-encoding until the
// block is evicted or the array is flushed, so repeated accesses to nearby
// elements cost one decode. Fixed-rate compression is what makes this
// possible: block n always lives at bit offset n*rate*4^dims, so any block
// can be decoded or rewritten in place without touching its neighbors.
//
// An Array is safe for a single writer. Concurrent readers are safe only when
// no access faults a block, so shared read-mostly use should size the cache
// to hold the working set and pre-fault it.
package array

import (
	"fmt"

	"github.com/arloliu/tetra/bitstream"
	"github.com/arloliu/tetra/codec"
	"github.com/arloliu/tetra/errs"
	"github.com/arloliu/tetra/format"
	"github.com/arloliu/tetra/internal/options"
)

const blockEdge = 4

// Config holds the tunables shared by every Array constructor.
type Config struct {
	cacheBytes int
}

// Option represents a functional option for configuring an Array.
type Option = options.Option[*Config]

// WithCacheSize sets the block cache budget in bytes of decompressed data.
// The cache never shrinks below one row of blocks along the x dimension,
// which is the minimum for sequential traversals to fault each block once.
func WithCacheSize(bytes int) Option {
	return options.New(func(c *Config) error {
		if bytes < 0 {
			return fmt.Errorf("%w: cache size %d bytes", errs.ErrInvalidCacheSize, bytes)
		}
		c.cacheBytes = bytes

		return nil
	})
}

// Array is a compressed d-dimensional array of fixed-rate blocks with a
// decompressed block cache. The zero value is not usable; use New1D..New4D.
type Array[T codec.Scalar] struct {
	st *codec.Stream
	bs *bitstream.Stream

	nx, ny, nz, nw int
	bx, by, bz, bw int
	dims           int
	blocks         int
	blockBits      uint64
	blockLen       int

	cache *blockCache[T]
}

// New1D creates a one-dimensional compressed array of nx zeros at the given
// rate in bits per value.
func New1D[T codec.Scalar](nx int, rate float64, opts ...Option) (*Array[T], error) {
	return newArray[T](1, [4]int{nx, 1, 1, 1}, rate, opts)
}

// New2D creates a two-dimensional compressed array of nx*ny zeros, x varying
// fastest.
func New2D[T codec.Scalar](nx, ny int, rate float64, opts ...Option) (*Array[T], error) {
	return newArray[T](2, [4]int{nx, ny, 1, 1}, rate, opts)
}

// New3D creates a three-dimensional compressed array of nx*ny*nz zeros.
func New3D[T codec.Scalar](nx, ny, nz int, rate float64, opts ...Option) (*Array[T], error) {
	return newArray[T](3, [4]int{nx, ny, nz, 1}, rate, opts)
}

// New4D creates a four-dimensional compressed array of nx*ny*nz*nw zeros.
func New4D[T codec.Scalar](nx, ny, nz, nw int, rate float64, opts ...Option) (*Array[T], error) {
	return newArray[T](4, [4]int{nx, ny, nz, nw}, rate, opts)
}

func newArray[T codec.Scalar](dims int, n [4]int, rate float64, opts []Option) (*Array[T], error) {
	cfg := &Config{}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	for d := 0; d < dims; d++ {
		if n[d] <= 0 {
			return nil, fmt.Errorf("%w: extent %d of dimension %d", errs.ErrInvalidDimensions, n[d], d)
		}
	}

	st := codec.NewStream()
	if _, err := st.SetRate(rate, dims); err != nil {
		return nil, err
	}
	if err := st.Validate(codec.ScalarTypeOf[T]()); err != nil {
		return nil, err
	}
	blockBits, err := st.BlockBits(dims)
	if err != nil {
		return nil, err
	}

	a := &Array[T]{
		st:        st,
		nx:        n[0], ny: n[1], nz: n[2], nw: n[3],
		dims:      dims,
		blockBits: blockBits,
		blockLen:  1 << (2 * dims),
	}
	a.layout()
	a.bs = newStorage(uint64(a.blocks) * blockBits)
	a.cache = newBlockCache[T](a.cacheCapacity(cfg.cacheBytes), a.encodeBlock)

	return a, nil
}

// newStorage allocates the fixed compressed stream with its full capacity
// marked as written, so Bytes always covers every block's byte range even
// before any block has been encoded. A zero-filled block range decodes to
// zeros.
func newStorage(bits uint64) *bitstream.Stream {
	bs := bitstream.NewFixed(bits)
	if bits > 0 {
		bs.SeekWrite(bits - 1)
		bs.WriteBits(0, 1)
		bs.Rewind()
	}

	return bs
}

func (a *Array[T]) layout() {
	ceil4 := func(n int) int { return (n + blockEdge - 1) / blockEdge }
	a.bx, a.by, a.bz, a.bw = ceil4(a.nx), ceil4(a.ny), ceil4(a.nz), ceil4(a.nw)
	a.blocks = a.bx * a.by * a.bz * a.bw
}

// cacheCapacity converts a byte budget to a block count, clamped to
// [one x row, all blocks].
func (a *Array[T]) cacheCapacity(bytes int) int {
	blockBytes := a.blockLen * codec.ScalarTypeOf[T]().Size()
	capacity := bytes / blockBytes
	if capacity < a.bx {
		capacity = a.bx
	}
	if capacity > a.blocks {
		capacity = a.blocks
	}

	return capacity
}

// Dims returns the dimensionality, in [1, 4].
func (a *Array[T]) Dims() int { return a.dims }

// Extents returns the per-dimension extents; unused dimensions report 1.
func (a *Array[T]) Extents() (nx, ny, nz, nw int) {
	return a.nx, a.ny, a.nz, a.nw
}

// Size returns the total number of elements.
func (a *Array[T]) Size() int {
	return a.nx * a.ny * a.nz * a.nw
}

// Rate returns the actual rate in bits per value.
func (a *Array[T]) Rate() float64 { return a.st.Rate() }

// CacheSize returns the cache budget in bytes of decompressed block data.
func (a *Array[T]) CacheSize() int {
	return a.cache.capacity * a.blockLen * codec.ScalarTypeOf[T]().Size()
}

// SetCacheSize changes the cache budget, writing back any dirty blocks that
// no longer fit.
func (a *Array[T]) SetCacheSize(bytes int) error {
	if bytes < 0 {
		return fmt.Errorf("%w: cache size %d bytes", errs.ErrInvalidCacheSize, bytes)
	}

	return a.cache.resize(a.cacheCapacity(bytes))
}

// CompressedSize returns the size of the compressed representation in bytes,
// not counting cached blocks.
func (a *Array[T]) CompressedSize() int {
	return int((uint64(a.blocks)*a.blockBits + 7) / 8)
}

func (a *Array[T]) checkCoords(coords []int) (i, j, k, l int) {
	if len(coords) != a.dims {
		panic(fmt.Sprintf("array: %d coordinates for a %d-dimensional array", len(coords), a.dims))
	}
	var c [4]int
	copy(c[:], coords)
	n := [4]int{a.nx, a.ny, a.nz, a.nw}
	for d := 0; d < a.dims; d++ {
		if c[d] < 0 || c[d] >= n[d] {
			panic(fmt.Sprintf("array: coordinate %d out of range [0, %d) in dimension %d", c[d], n[d], d))
		}
	}

	return c[0], c[1], c[2], c[3]
}

// blockOf maps element coordinates to a block index and the element's offset
// within the decompressed block.
func (a *Array[T]) blockOf(i, j, k, l int) (block, offset int) {
	block = (i >> 2) + a.bx*((j>>2)+a.by*((k>>2)+a.bz*(l>>2)))
	offset = (i & 3) + blockEdge*((j&3)+blockEdge*((k&3)+blockEdge*(l&3)))

	return block, offset
}

// fault returns the cached entry for block, decoding it on a miss.
func (a *Array[T]) fault(block int) *cacheEntry[T] {
	if e := a.cache.lookup(block); e != nil {
		return e
	}

	data := make([]T, a.blockLen)
	a.bs.SeekRead(uint64(block) * a.blockBits)
	if _, err := codec.DecodeBlock(a.st, a.bs, data, a.dims); err != nil {
		panic(fmt.Sprintf("array: block %d decode: %v", block, err))
	}

	e, err := a.cache.insert(block, data)
	if err != nil {
		panic(fmt.Sprintf("array: block eviction: %v", err))
	}

	return e
}

// encodeBlock re-encodes a dirty block in place. It is the cache's write-back
// callback.
func (a *Array[T]) encodeBlock(block int, data []T) error {
	a.bs.SeekWrite(uint64(block) * a.blockBits)
	if _, err := codec.EncodeBlock(a.st, a.bs, data, a.dims); err != nil {
		return fmt.Errorf("block %d write-back: %w", block, err)
	}

	return nil
}

// Get returns the element at the given coordinates, faulting its block into
// the cache if needed. It panics if the coordinate count does not match the
// dimensionality or a coordinate is out of range, mirroring slice indexing.
func (a *Array[T]) Get(coords ...int) T {
	i, j, k, l := a.checkCoords(coords)
	block, offset := a.blockOf(i, j, k, l)

	return a.fault(block).data[offset]
}

// Set stores v at the given coordinates. The cached block is marked dirty and
// re-encoded on eviction or Flush; until then the compressed bytes still hold
// the old value.
func (a *Array[T]) Set(v T, coords ...int) {
	i, j, k, l := a.checkCoords(coords)
	block, offset := a.blockOf(i, j, k, l)

	e := a.fault(block)
	e.data[offset] = v
	e.dirty = true
}

// getLinear and setLinear serve the Ref/Ptr/Iter views, which address
// elements by row-major linear index with i fastest.
func (a *Array[T]) getLinear(idx int) T {
	i, j, k, l := a.coordsOf(idx)
	block, offset := a.blockOf(i, j, k, l)

	return a.fault(block).data[offset]
}

func (a *Array[T]) setLinear(idx int, v T) {
	i, j, k, l := a.coordsOf(idx)
	block, offset := a.blockOf(i, j, k, l)

	e := a.fault(block)
	e.data[offset] = v
	e.dirty = true
}

func (a *Array[T]) coordsOf(idx int) (i, j, k, l int) {
	if idx < 0 || idx >= a.Size() {
		panic(fmt.Sprintf("array: linear index %d out of range [0, %d)", idx, a.Size()))
	}
	i = idx % a.nx
	idx /= a.nx
	j = idx % a.ny
	idx /= a.ny
	k = idx % a.nz
	l = idx / a.nz

	return i, j, k, l
}

// linearOf is the inverse of coordsOf.
func (a *Array[T]) linearOf(i, j, k, l int) int {
	return i + a.nx*(j+a.ny*(k+a.nz*l))
}

// Flush re-encodes every dirty cached block into the compressed stream.
// Cached blocks stay resident and clean.
func (a *Array[T]) Flush() error {
	return a.cache.flush()
}

// Bytes returns the compressed representation, flushing dirty blocks first.
// The layout matches bitstream serialization: block n at bit offset
// n*rate*4^dims, little-endian 64-bit words.
func (a *Array[T]) Bytes() ([]byte, error) {
	if err := a.Flush(); err != nil {
		return nil, err
	}

	return a.bs.Bytes(), nil
}

// SetBytes replaces the compressed contents with data previously produced by
// Bytes on an array of the same shape, rate and scalar type. The cache is
// dropped without write-back, since any cached blocks describe the old
// contents.
func (a *Array[T]) SetBytes(data []byte) error {
	want := a.CompressedSize()
	if len(data) != want {
		return fmt.Errorf("%w: %d bytes, want %d", errs.ErrTruncatedPayload, len(data), want)
	}

	a.cache.drop()
	a.bs = bitstream.FromBytes(data)

	return nil
}

// Fill compresses data, which must hold exactly Size() elements in row-major
// order with i fastest, replacing the array contents.
func (a *Array[T]) Fill(data []T) error {
	if len(data) != a.Size() {
		return fmt.Errorf("%w: %d elements for %d-element array", errs.ErrInvalidDimensions, len(data), a.Size())
	}

	f, err := a.fieldOver(data)
	if err != nil {
		return err
	}

	a.cache.drop()
	a.bs.Reset()
	if _, err := codec.Compress(a.st, f, a.bs); err != nil {
		return err
	}

	return nil
}

// Dump decompresses the whole array into a freshly allocated slice in
// row-major order, flushing dirty blocks first.
func (a *Array[T]) Dump() ([]T, error) {
	if err := a.Flush(); err != nil {
		return nil, err
	}

	out := make([]T, a.Size())
	f, err := a.fieldOver(out)
	if err != nil {
		return nil, err
	}

	a.bs.SeekRead(0)
	if _, err := codec.Decompress(a.st, f, a.bs); err != nil {
		return nil, err
	}

	return out, nil
}

func (a *Array[T]) fieldOver(data []T) (*codec.Field[T], error) {
	switch a.dims {
	case 1:
		return codec.New1D(data, a.nx)
	case 2:
		return codec.New2D(data, a.nx, a.ny)
	case 3:
		return codec.New3D(data, a.nx, a.ny, a.nz)
	default:
		return codec.New4D(data, a.nx, a.ny, a.nz, a.nw)
	}
}

// Resize changes the array extents, discarding the contents. The cache is
// dropped and the compressed stream reallocated at the configured rate.
func (a *Array[T]) Resize(extents ...int) error {
	if len(extents) != a.dims {
		return fmt.Errorf("%w: %d extents for %d dims", errs.ErrInvalidDimensions, len(extents), a.dims)
	}
	n := [4]int{1, 1, 1, 1}
	for d, e := range extents {
		if e <= 0 {
			return fmt.Errorf("%w: extent %d of dimension %d", errs.ErrInvalidDimensions, e, d)
		}
		n[d] = e
	}

	capacityBytes := a.CacheSize()
	a.nx, a.ny, a.nz, a.nw = n[0], n[1], n[2], n[3]
	a.layout()
	a.bs = newStorage(uint64(a.blocks) * a.blockBits)
	a.cache.drop()

	return a.cache.resize(a.cacheCapacity(capacityBytes))
}

// SetRate changes the rate in bits per value, recompressing the current
// contents, and returns the actual rate after rounding.
func (a *Array[T]) SetRate(rate float64) (float64, error) {
	data, err := a.Dump()
	if err != nil {
		return 0, err
	}

	st := codec.NewStream()
	actual, err := st.SetRate(rate, a.dims)
	if err != nil {
		return 0, err
	}
	blockBits, err := st.BlockBits(a.dims)
	if err != nil {
		return 0, err
	}

	capacityBytes := a.CacheSize()
	a.st = st
	a.blockBits = blockBits
	a.bs = newStorage(uint64(a.blocks) * blockBits)
	a.cache.drop()
	if err := a.cache.resize(a.cacheCapacity(capacityBytes)); err != nil {
		return 0, err
	}

	return actual, a.Fill(data)
}

// ScalarType returns the element type tag, for serialization headers.
func (a *Array[T]) ScalarType() format.ScalarType {
	return codec.ScalarTypeOf[T]()
}
