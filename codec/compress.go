package codec

import (
	"runtime"
	"sync"

	"github.com/arloliu/tetra/bitstream"
	"github.com/arloliu/tetra/errs"
	"github.com/arloliu/tetra/format"
	"github.com/arloliu/tetra/internal/options"
)

// ExecConfig controls how whole-array compression and decompression execute.
type ExecConfig struct {
	workers int
}

// ExecOption represents a functional option for configuring whole-array
// execution.
type ExecOption = options.Option[*ExecConfig]

// WithParallel requests block-parallel execution with the given number of
// workers (0 selects GOMAXPROCS). Only fixed-rate streams can be
// parallelized: every other mode has a sequential byte-offset dependency
// between blocks, and requesting parallelism for one is a configuration
// error.
func WithParallel(workers int) ExecOption {
	return options.New(func(c *ExecConfig) error {
		if workers < 0 {
			return errs.ErrInvalidWorkerCount
		}
		if workers == 0 {
			workers = runtime.GOMAXPROCS(0)
		}
		c.workers = workers

		return nil
	})
}

// Compress encodes every block of the field into the bitstream in sequence,
// x blocks fastest, and returns the total number of bits written.
//
// For fixed-rate streams the blocks land at their computable offsets
// n*rate*4^dims relative to the write position at entry; other modes emit a
// dense variable-size sequence that can only be decoded sequentially.
func Compress[T Scalar](st *Stream, f *Field[T], bs *bitstream.Stream, opts ...ExecOption) (uint64, error) {
	if err := st.Validate(ScalarTypeOf[T]()); err != nil {
		return 0, err
	}
	cfg := &ExecConfig{}
	if err := options.Apply(cfg, opts...); err != nil {
		return 0, err
	}

	_, _, _, _, total := f.Blocks()
	dims := f.Dims()

	if cfg.workers > 1 {
		if st.Mode() != format.ModeFixedRate {
			return 0, errs.ErrNotFixedRate
		}

		return compressParallel(st, f, bs, total, cfg.workers)
	}

	n := blockSize(dims)
	scratch := make([]T, n)
	written := uint64(0)
	for b := 0; b < total; b++ {
		f.GatherBlock(b, scratch)
		bits, err := EncodeBlock(st, bs, scratch, dims)
		if err != nil {
			return written, err
		}
		written += bits
	}

	return written, nil
}

// compressParallel partitions the block range into contiguous chunks, lets
// each worker encode its chunk into a private stream, and stitches the
// results into the destination at their fixed-rate offsets. Workers share no
// mutable state beyond per-worker scratch, so the block codec runs with no
// synchronization.
func compressParallel[T Scalar](st *Stream, f *Field[T], bs *bitstream.Stream, total, workers int) (uint64, error) {
	dims := f.Dims()
	blockBits := st.maxBits

	if workers > total {
		workers = total
	}
	chunk := (total + workers - 1) / workers

	type result struct {
		start int // first block of the chunk
		bits  *bitstream.Stream
		err   error
	}
	results := make([]result, workers)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > total {
			hi = total
		}
		if lo >= hi {
			continue
		}

		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()

			ws := bitstream.NewSize(uint64(hi-lo) * blockBits)
			scratch := make([]T, blockSize(dims))
			for b := lo; b < hi; b++ {
				f.GatherBlock(b, scratch)
				if _, err := EncodeBlock(st, ws, scratch, dims); err != nil {
					results[w] = result{err: err}
					return
				}
			}
			results[w] = result{start: lo, bits: ws}
		}(w, lo, hi)
	}
	wg.Wait()

	// Stitch sequentially; fixed-rate offsets make the destination ranges
	// disjoint and exact.
	base := bs.WritePos()
	for _, r := range results {
		if r.err != nil {
			return 0, r.err
		}
		if r.bits == nil {
			continue
		}
		bs.SeekWrite(base + uint64(r.start)*blockBits)
		appendBits(bs, r.bits)
		if err := bs.Err(); err != nil {
			return 0, err
		}
	}
	written := uint64(total) * blockBits
	bs.SeekWrite(base + written)

	return written, nil
}

// appendBits copies the full contents of src to dst at dst's write cursor.
func appendBits(dst, src *bitstream.Stream) {
	src.SeekRead(0)
	remaining := src.Size()
	for remaining >= 64 {
		dst.WriteBits(src.ReadBits(64), 64)
		remaining -= 64
	}
	if remaining > 0 {
		dst.WriteBits(src.ReadBits(uint(remaining)), uint(remaining))
	}
}

// Decompress decodes every block of the bitstream into the field in the same
// order Compress wrote them and returns the total number of bits read.
func Decompress[T Scalar](st *Stream, f *Field[T], bs *bitstream.Stream, opts ...ExecOption) (uint64, error) {
	if err := st.Validate(ScalarTypeOf[T]()); err != nil {
		return 0, err
	}
	cfg := &ExecConfig{}
	if err := options.Apply(cfg, opts...); err != nil {
		return 0, err
	}

	_, _, _, _, total := f.Blocks()
	dims := f.Dims()

	if cfg.workers > 1 {
		if st.Mode() != format.ModeFixedRate {
			return 0, errs.ErrNotFixedRate
		}

		return decompressParallel(st, f, bs, total, cfg.workers)
	}

	n := blockSize(dims)
	scratch := make([]T, n)
	read := uint64(0)
	for b := 0; b < total; b++ {
		bits, err := DecodeBlock(st, bs, scratch, dims)
		if err != nil {
			return read, err
		}
		f.ScatterBlock(b, scratch)
		read += bits
	}

	return read, nil
}

// decompressParallel decodes chunks of blocks concurrently. Each worker
// reads through its own cursor over the shared storage; scattering targets
// disjoint field regions, so no synchronization is needed.
func decompressParallel[T Scalar](st *Stream, f *Field[T], bs *bitstream.Stream, total, workers int) (uint64, error) {
	dims := f.Dims()
	blockBits := st.maxBits
	base := bs.ReadPos()

	if workers > total {
		workers = total
	}
	chunk := (total + workers - 1) / workers

	errors := make([]error, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		lo := w * chunk
		hi := lo + chunk
		if hi > total {
			hi = total
		}
		if lo >= hi {
			continue
		}

		wg.Add(1)
		go func(w, lo, hi int) {
			defer wg.Done()

			rs := bs.Clone()
			rs.SeekRead(base + uint64(lo)*blockBits)
			scratch := make([]T, blockSize(dims))
			for b := lo; b < hi; b++ {
				if _, err := DecodeBlock(st, rs, scratch, dims); err != nil {
					errors[w] = err
					return
				}
				f.ScatterBlock(b, scratch)
			}
		}(w, lo, hi)
	}
	wg.Wait()

	for _, err := range errors {
		if err != nil {
			return 0, err
		}
	}

	read := uint64(total) * blockBits
	bs.SeekRead(base + read)

	return read, nil
}

// CompressedSizeBound returns an upper bound in bytes for compressing the
// field with the stream configuration, used to preallocate buffers. For
// fixed-rate streams the bound is exact.
func CompressedSizeBound[T Scalar](st *Stream, f *Field[T]) int {
	_, _, _, _, total := f.Blocks()
	dims := f.Dims()

	if st.Mode() == format.ModeFixedRate {
		return int((uint64(total)*st.maxBits + 7) / 8)
	}

	// Worst case per block: header plus, per plane, one refinement or value
	// bit and one group-test bit per coefficient plus a terminating group bit.
	tr := traitsOf(ScalarTypeOf[T]())
	perBlock := uint64(tr.ebits) + 2 + uint64(tr.intprec)*(2*uint64(blockSize(dims))+1)

	return int((uint64(total)*perBlock + 7) / 8)
}
