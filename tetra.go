// Package tetra provides compressed storage for multi-dimensional numeric
// arrays of int32, int64, float32, and float64 data.
//
// Tetra partitions a d-dimensional field (d = 1..4) into blocks of 4^d
// values, decorrelates each block with a separable transform, and encodes
// the coefficients one bit plane at a time from most to least significant.
// Truncating the embedded stream at any point yields the best available
// approximation for that many bits.
//
// # Core Features
//
//   - Four compression modes: fixed-rate, fixed-precision, fixed-accuracy,
//     and lossless reversible
//   - Fixed-rate streams support random block access and parallel
//     compression and decompression
//   - In-memory compressed arrays with an LRU block cache and slice-like
//     element access (see the array package)
//   - Self-describing container format with optional outer compression
//     (Zstd, S2, LZ4) and xxHash64 payload checksums
//
// # Basic Usage
//
// Compressing a 2-D field into a self-describing container:
//
//	import "github.com/arloliu/tetra"
//
//	data := make([]float64, 512*512)
//	// ... fill data ...
//
//	buf, _ := tetra.Compress(data, []int{512, 512},
//	    tetra.WithFixedAccuracy(1e-6),
//	    tetra.WithCompression(format.CompressionZstd),
//	)
//
// Decompressing it back:
//
//	out, extents, _ := tetra.Decompress[float64](buf)
//	// extents == []int{512, 512}
//
// # Package Structure
//
// This package provides convenient top-level wrappers around the codec and
// container packages, covering the common whole-field round trip. For
// fine-grained control (strided fields, preallocated bitstreams, per-block
// access) use the codec package directly; for random-access in-memory
// arrays use the array package.
package tetra

import (
	"fmt"

	"github.com/arloliu/tetra/array"
	"github.com/arloliu/tetra/bitstream"
	"github.com/arloliu/tetra/codec"
	"github.com/arloliu/tetra/container"
	"github.com/arloliu/tetra/errs"
	"github.com/arloliu/tetra/format"
	"github.com/arloliu/tetra/internal/options"
)

// Config holds top-level compression options.
type Config struct {
	mode        format.Mode
	rate        float64
	precision   uint
	tolerance   float64
	compression format.CompressionType
	workers     int
}

// Option configures top-level Compress and Decompress calls.
type Option = options.Option[*Config]

// WithFixedRate selects fixed-rate mode at the given number of bits per
// value. Rate is rounded to a multiple of 1/4^d bits; fixed-rate is the
// only mode supporting random access and parallel execution.
func WithFixedRate(rate float64) Option {
	return options.NoError(func(c *Config) {
		c.mode = format.ModeFixedRate
		c.rate = rate
	})
}

// WithFixedPrecision selects fixed-precision mode, keeping the given number
// of most significant bit planes per block.
func WithFixedPrecision(prec uint) Option {
	return options.NoError(func(c *Config) {
		c.mode = format.ModeFixedPrecision
		c.precision = prec
	})
}

// WithFixedAccuracy selects fixed-accuracy mode with the given absolute
// error tolerance. Only valid for floating-point data.
func WithFixedAccuracy(tolerance float64) Option {
	return options.NoError(func(c *Config) {
		c.mode = format.ModeFixedAccuracy
		c.tolerance = tolerance
	})
}

// WithReversible selects lossless reversible mode. This is the default.
func WithReversible() Option {
	return options.NoError(func(c *Config) {
		c.mode = format.ModeReversible
	})
}

// WithCompression applies an outer general-purpose compressor to the
// serialized stream. The default is no outer compression.
func WithCompression(ct format.CompressionType) Option {
	return options.New(func(c *Config) error {
		if !ct.Valid() {
			return fmt.Errorf("%w: 0x%02x", errs.ErrInvalidCompression, uint8(ct))
		}
		c.compression = ct

		return nil
	})
}

// WithParallel runs block coding on the given number of worker goroutines,
// or GOMAXPROCS workers when zero. Requires fixed-rate mode.
func WithParallel(workers int) Option {
	return options.New(func(c *Config) error {
		if workers < 0 {
			return fmt.Errorf("%w: %d", errs.ErrInvalidWorkerCount, workers)
		}
		c.workers = workers

		return nil
	})
}

func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		mode:        format.ModeReversible,
		compression: format.CompressionNone,
		workers:     -1,
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

func newStream(cfg *Config, dims int) (*codec.Stream, error) {
	st := codec.NewStream()

	switch cfg.mode {
	case format.ModeFixedRate:
		if _, err := st.SetRate(cfg.rate, dims); err != nil {
			return nil, err
		}
	case format.ModeFixedPrecision:
		if err := st.SetPrecision(cfg.precision); err != nil {
			return nil, err
		}
	case format.ModeFixedAccuracy:
		if err := st.SetAccuracy(cfg.tolerance); err != nil {
			return nil, err
		}
	default:
		st.SetReversible()
	}

	return st, nil
}

func newField[T codec.Scalar](data []T, extents []int) (*codec.Field[T], error) {
	switch len(extents) {
	case 1:
		return codec.New1D(data, extents[0])
	case 2:
		return codec.New2D(data, extents[0], extents[1])
	case 3:
		return codec.New3D(data, extents[0], extents[1], extents[2])
	case 4:
		return codec.New4D(data, extents[0], extents[1], extents[2], extents[3])
	default:
		return nil, fmt.Errorf("%w: %d extents", errs.ErrInvalidDimensions, len(extents))
	}
}

// Compress compresses a whole field into a self-describing container.
//
// The data slice holds the field values in row-major order with the first
// extent varying fastest; len(data) must equal the product of the extents.
// The result can be stored or transmitted as-is and decompressed with
// Decompress using only the bytes themselves.
func Compress[T codec.Scalar](data []T, extents []int, opts ...Option) ([]byte, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	st, err := newStream(cfg, len(extents))
	if err != nil {
		return nil, err
	}
	if err := st.Validate(codec.ScalarTypeOf[T]()); err != nil {
		return nil, err
	}

	f, err := newField(data, extents)
	if err != nil {
		return nil, err
	}

	h, err := container.NewHeader(st, codec.ScalarTypeOf[T](), extents...)
	if err != nil {
		return nil, err
	}

	bs := bitstream.NewSize(uint64(codec.CompressedSizeBound(st, f)) * 8)

	var execOpts []codec.ExecOption
	if cfg.workers >= 0 {
		execOpts = append(execOpts, codec.WithParallel(cfg.workers))
	}
	if _, err := codec.Compress(st, f, bs, execOpts...); err != nil {
		return nil, err
	}

	return container.Pack(h, bs.Bytes(), container.WithCompression(cfg.compression))
}

// Decompress unpacks a container produced by Compress and decompresses the
// whole field, returning the values and the original extents.
//
// The type parameter must match the scalar type recorded in the container;
// a mismatch returns ErrInvalidScalarType.
func Decompress[T codec.Scalar](buf []byte, opts ...Option) ([]T, []int, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, nil, err
	}

	h, payload, err := container.Unpack(buf)
	if err != nil {
		return nil, nil, err
	}
	if h.ScalarType != codec.ScalarTypeOf[T]() {
		return nil, nil, fmt.Errorf("%w: container holds %v", errs.ErrInvalidScalarType, h.ScalarType)
	}

	st, err := h.Stream()
	if err != nil {
		return nil, nil, err
	}

	nx, ny, nz, nw := h.Extents()
	extents := []int{nx, ny, nz, nw}[:h.Dims]

	// A fixed-rate stream has a computable exact footprint; a payload
	// shorter than the field shape implies would silently decode the
	// missing tail blocks as zeros, so reject it here.
	if h.Mode == format.ModeFixedRate {
		blockBits, err := st.BlockBits(int(h.Dims))
		if err != nil {
			return nil, nil, err
		}
		blocks := uint64(1)
		for _, e := range extents {
			blocks *= uint64((e + 3) / 4)
		}
		if uint64(len(payload))*8 < blocks*blockBits {
			return nil, nil, fmt.Errorf("%w: %d payload bits, field needs %d",
				errs.ErrTruncatedStream, uint64(len(payload))*8, blocks*blockBits)
		}
	}

	data := make([]T, h.Size())
	f, err := newField(data, extents)
	if err != nil {
		return nil, nil, err
	}

	var execOpts []codec.ExecOption
	if cfg.workers >= 0 {
		execOpts = append(execOpts, codec.WithParallel(cfg.workers))
	}
	if _, err := codec.Decompress(st, f, bitstream.FromBytes(payload), execOpts...); err != nil {
		return nil, nil, err
	}

	return data, extents, nil
}

// Describe parses a container header without decompressing the payload.
// Useful for inspecting the scalar type, mode, and extents before choosing
// a decompression path.
func Describe(buf []byte) (container.Header, error) {
	return container.ParseHeader(buf)
}

// NewArray1D creates a 1-D compressed array with random element access.
// Arrays always use fixed-rate mode; see the array package for details.
func NewArray1D[T codec.Scalar](nx int, rate float64, opts ...array.Option) (*array.Array[T], error) {
	return array.New1D[T](nx, rate, opts...)
}

// NewArray2D creates a 2-D compressed array with random element access.
func NewArray2D[T codec.Scalar](nx, ny int, rate float64, opts ...array.Option) (*array.Array[T], error) {
	return array.New2D[T](nx, ny, rate, opts...)
}

// NewArray3D creates a 3-D compressed array with random element access.
func NewArray3D[T codec.Scalar](nx, ny, nz int, rate float64, opts ...array.Option) (*array.Array[T], error) {
	return array.New3D[T](nx, ny, nz, rate, opts...)
}

// NewArray4D creates a 4-D compressed array with random element access.
func NewArray4D[T codec.Scalar](nx, ny, nz, nw int, rate float64, opts ...array.Option) (*array.Array[T], error) {
	return array.New4D[T](nx, ny, nz, nw, rate, opts...)
}
