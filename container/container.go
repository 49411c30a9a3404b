// Package container serializes compressed streams into a self-describing
// byte format. A container is a fixed 64-byte header followed by the
// stream payload, optionally run through an outer general-purpose
// compressor to squeeze the structured redundancy the bit-plane coder
// leaves behind (exponent bytes, zero padding of fixed-rate blocks).
//
// The header records the scalar type, compression mode and its parameter,
// the field extents, and an xxHash64 checksum of the raw payload, so a
// container alone is enough to reconstruct the stream configuration and
// verify integrity.
package container

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"

	"github.com/arloliu/tetra/compress"
	"github.com/arloliu/tetra/endian"
	"github.com/arloliu/tetra/errs"
	"github.com/arloliu/tetra/format"
	"github.com/arloliu/tetra/internal/options"
	"github.com/arloliu/tetra/internal/pool"
)

// Config holds container serialization options.
type Config struct {
	compression format.CompressionType
	engine      endian.EndianEngine
}

// Option configures container packing and unpacking.
type Option = options.Option[*Config]

// WithCompression selects the outer compression applied to the payload.
// The default is CompressionNone; the choice is recorded in the header,
// so Unpack needs no matching option.
func WithCompression(ct format.CompressionType) Option {
	return options.New(func(c *Config) error {
		if !ct.Valid() {
			return fmt.Errorf("%w: 0x%02x", errs.ErrInvalidCompression, uint8(ct))
		}
		c.compression = ct

		return nil
	})
}

// WithEndianEngine selects the byte order of the serialized header.
// The default is little-endian.
func WithEndianEngine(engine endian.EndianEngine) Option {
	return options.NoError(func(c *Config) {
		c.engine = engine
	})
}

func newConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		compression: format.CompressionNone,
		engine:      endian.GetLittleEndianEngine(),
	}
	if err := options.Apply(cfg, opts...); err != nil {
		return nil, err
	}

	return cfg, nil
}

// seal fills in the header's payload fields and applies the configured
// outer compression, returning the finalized header and the stored payload.
func seal(h Header, payload []byte, cfg *Config) (Header, []byte, error) {
	h.Compression = cfg.compression
	h.RawSize = uint64(len(payload))
	h.Checksum = xxhash.Sum64(payload)

	stored := payload
	if cfg.compression != format.CompressionNone {
		codec, err := compress.GetCodec(cfg.compression)
		if err != nil {
			return Header{}, nil, err
		}
		stored, err = codec.Compress(payload)
		if err != nil {
			return Header{}, nil, fmt.Errorf("compress payload: %w", err)
		}
	}
	h.PayloadSize = uint64(len(stored))

	return h, stored, nil
}

// Pack serializes a header and payload into a single container buffer.
// The header's payload fields (sizes, checksum, compression) are filled in
// here; the caller only provides the configuration fields from NewHeader.
func Pack(h Header, payload []byte, opts ...Option) ([]byte, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return nil, err
	}

	h, stored, err := seal(h, payload, cfg)
	if err != nil {
		return nil, err
	}

	buf := make([]byte, 0, HeaderSize+len(stored))
	buf = h.marshal(buf, cfg.engine)
	buf = append(buf, stored...)

	return buf, nil
}

// Write serializes a container directly to w, assembling it in a pooled
// buffer instead of allocating a result slice. It returns the number of
// bytes written.
func Write(w io.Writer, h Header, payload []byte, opts ...Option) (int64, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return 0, err
	}

	h, stored, err := seal(h, payload, cfg)
	if err != nil {
		return 0, err
	}

	bb := pool.GetPayloadBuffer()
	defer pool.PutPayloadBuffer(bb)

	var hdr [HeaderSize]byte
	bb.MustWrite(h.marshal(hdr[:0], cfg.engine))
	bb.MustWrite(stored)

	return bb.WriteTo(w)
}

// ParseHeader parses and validates just the fixed header of a container,
// without touching the payload.
func ParseHeader(data []byte, opts ...Option) (Header, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return Header{}, err
	}

	return unmarshalHeader(data, cfg.engine)
}

// Unpack parses a container buffer, decompresses the payload if needed,
// and verifies its checksum. The returned payload does not alias data
// unless the container was packed without outer compression.
func Unpack(data []byte, opts ...Option) (Header, []byte, error) {
	cfg, err := newConfig(opts...)
	if err != nil {
		return Header{}, nil, err
	}

	h, err := unmarshalHeader(data, cfg.engine)
	if err != nil {
		return Header{}, nil, err
	}

	if uint64(len(data)-HeaderSize) < h.PayloadSize {
		return Header{}, nil, fmt.Errorf("%w: have %d payload bytes, header claims %d",
			errs.ErrTruncatedPayload, len(data)-HeaderSize, h.PayloadSize)
	}
	stored := data[HeaderSize : HeaderSize+int(h.PayloadSize)]

	payload := stored
	if h.Compression != format.CompressionNone {
		codec, err := compress.GetCodec(h.Compression)
		if err != nil {
			return Header{}, nil, err
		}
		payload, err = codec.Decompress(stored)
		if err != nil {
			return Header{}, nil, fmt.Errorf("%w: %w", errs.ErrTruncatedPayload, err)
		}
	}

	if uint64(len(payload)) != h.RawSize {
		return Header{}, nil, fmt.Errorf("%w: raw size %d, header claims %d",
			errs.ErrTruncatedPayload, len(payload), h.RawSize)
	}
	if sum := xxhash.Sum64(payload); sum != h.Checksum {
		return Header{}, nil, fmt.Errorf("%w: got 0x%016x, want 0x%016x",
			errs.ErrChecksumMismatch, sum, h.Checksum)
	}

	return h, payload, nil
}
