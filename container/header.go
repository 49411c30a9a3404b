package container

import (
	"fmt"
	"math"

	"github.com/arloliu/tetra/codec"
	"github.com/arloliu/tetra/endian"
	"github.com/arloliu/tetra/errs"
	"github.com/arloliu/tetra/format"
)

const (
	// magicNumber serializes as the bytes 'T','T','R','A'.
	magicNumber uint32 = 0x41525454

	// formatVersion is bumped on any incompatible header or payload change.
	formatVersion uint16 = 1

	// HeaderSize is the fixed serialized header size in bytes.
	HeaderSize = 64
)

// Header is the fixed-size descriptor at the front of a serialized
// container. It carries everything needed to reconstruct the stream
// configuration and field shape, plus integrity metadata for the payload.
//
// Serialized layout (little-endian by default):
//
//	offset  size  field
//	     0     4  magic 'TTRA'
//	     4     2  format version
//	     6     1  scalar type
//	     7     1  compression mode
//	     8     1  dimensionality
//	     9     1  outer compression type
//	    10     6  reserved
//	    16    16  extents, 4 x uint32
//	    32     8  mode parameter (rate/tolerance as IEEE bits, precision)
//	    40     8  raw payload size in bytes
//	    48     8  stored payload size in bytes
//	    56     8  xxHash64 checksum of the raw payload
type Header struct {
	ScalarType     format.ScalarType
	Mode           format.Mode
	Dims           uint8
	Compression    format.CompressionType
	Nx, Ny, Nz, Nw uint32
	ModeParam      uint64
	RawSize        uint64
	PayloadSize    uint64
	Checksum       uint64
}

// NewHeader builds a header describing a stream configuration applied to a
// field of the given shape. The payload fields (sizes, checksum) are filled
// in by Pack.
func NewHeader(st *codec.Stream, scalarType format.ScalarType, extents ...int) (Header, error) {
	dims := len(extents)
	if dims < 1 || dims > 4 {
		return Header{}, fmt.Errorf("%w: %d extents", errs.ErrInvalidDimensions, dims)
	}
	if !scalarType.Valid() {
		return Header{}, fmt.Errorf("%w: %v", errs.ErrInvalidScalarType, scalarType)
	}

	n := [4]int{1, 1, 1, 1}
	for d, e := range extents {
		if e <= 0 || e > math.MaxUint32 {
			return Header{}, fmt.Errorf("%w: extent %d of dimension %d", errs.ErrInvalidDimensions, e, d)
		}
		n[d] = e
	}

	var param uint64
	switch st.Mode() {
	case format.ModeFixedRate:
		param = math.Float64bits(st.Rate())
	case format.ModeFixedPrecision:
		param = uint64(st.Precision())
	case format.ModeFixedAccuracy:
		param = math.Float64bits(st.Tolerance())
	case format.ModeReversible:
		param = 0
	default:
		return Header{}, fmt.Errorf("%w: stream mode not configured", errs.ErrModeTypeMismatch)
	}

	return Header{
		ScalarType:  scalarType,
		Mode:        st.Mode(),
		Dims:        uint8(dims), //nolint:gosec // dims in [1, 4]
		Compression: format.CompressionNone,
		Nx:          uint32(n[0]), //nolint:gosec // bounds checked above
		Ny:          uint32(n[1]), //nolint:gosec
		Nz:          uint32(n[2]), //nolint:gosec
		Nw:          uint32(n[3]), //nolint:gosec
		ModeParam:   param,
	}, nil
}

// Stream reconstructs the codec stream configuration the header describes.
func (h Header) Stream() (*codec.Stream, error) {
	st := codec.NewStream()

	switch h.Mode {
	case format.ModeFixedRate:
		if _, err := st.SetRate(math.Float64frombits(h.ModeParam), int(h.Dims)); err != nil {
			return nil, err
		}
	case format.ModeFixedPrecision:
		if err := st.SetPrecision(uint(h.ModeParam)); err != nil {
			return nil, err
		}
	case format.ModeFixedAccuracy:
		if err := st.SetAccuracy(math.Float64frombits(h.ModeParam)); err != nil {
			return nil, err
		}
	case format.ModeReversible:
		st.SetReversible()
	default:
		return nil, fmt.Errorf("%w: mode %v", errs.ErrModeTypeMismatch, h.Mode)
	}

	if err := st.Validate(h.ScalarType); err != nil {
		return nil, err
	}

	return st, nil
}

// Extents returns the field extents recorded in the header; unused
// dimensions report 1.
func (h Header) Extents() (nx, ny, nz, nw int) {
	return int(h.Nx), int(h.Ny), int(h.Nz), int(h.Nw)
}

// Size returns the number of field elements described by the header.
func (h Header) Size() int {
	return int(h.Nx) * int(h.Ny) * int(h.Nz) * int(h.Nw)
}

// marshal appends the serialized header to dst.
func (h Header) marshal(dst []byte, engine endian.EndianEngine) []byte {
	dst = engine.AppendUint32(dst, magicNumber)
	dst = engine.AppendUint16(dst, formatVersion)
	dst = append(dst, uint8(h.ScalarType), uint8(h.Mode), h.Dims, uint8(h.Compression))
	dst = append(dst, 0, 0, 0, 0, 0, 0) // reserved
	dst = engine.AppendUint32(dst, h.Nx)
	dst = engine.AppendUint32(dst, h.Ny)
	dst = engine.AppendUint32(dst, h.Nz)
	dst = engine.AppendUint32(dst, h.Nw)
	dst = engine.AppendUint64(dst, h.ModeParam)
	dst = engine.AppendUint64(dst, h.RawSize)
	dst = engine.AppendUint64(dst, h.PayloadSize)
	dst = engine.AppendUint64(dst, h.Checksum)

	return dst
}

// unmarshalHeader parses and validates a serialized header.
func unmarshalHeader(data []byte, engine endian.EndianEngine) (Header, error) {
	if len(data) < HeaderSize {
		return Header{}, fmt.Errorf("%w: %d bytes, want %d", errs.ErrInvalidHeaderSize, len(data), HeaderSize)
	}
	if engine.Uint32(data[0:4]) != magicNumber {
		return Header{}, errs.ErrInvalidMagic
	}
	if v := engine.Uint16(data[4:6]); v != formatVersion {
		return Header{}, fmt.Errorf("%w: %d", errs.ErrInvalidVersion, v)
	}

	h := Header{
		ScalarType:  format.ScalarType(data[6]),
		Mode:        format.Mode(data[7]),
		Dims:        data[8],
		Compression: format.CompressionType(data[9]),
		Nx:          engine.Uint32(data[16:20]),
		Ny:          engine.Uint32(data[20:24]),
		Nz:          engine.Uint32(data[24:28]),
		Nw:          engine.Uint32(data[28:32]),
		ModeParam:   engine.Uint64(data[32:40]),
		RawSize:     engine.Uint64(data[40:48]),
		PayloadSize: engine.Uint64(data[48:56]),
		Checksum:    engine.Uint64(data[56:64]),
	}

	if !h.ScalarType.Valid() {
		return Header{}, fmt.Errorf("%w: 0x%02x", errs.ErrInvalidScalarType, data[6])
	}
	if !h.Mode.Valid() {
		return Header{}, fmt.Errorf("%w: mode 0x%02x", errs.ErrModeTypeMismatch, data[7])
	}
	if h.Dims < 1 || h.Dims > 4 {
		return Header{}, fmt.Errorf("%w: %d", errs.ErrInvalidDimensions, h.Dims)
	}
	if !h.Compression.Valid() {
		return Header{}, fmt.Errorf("%w: 0x%02x", errs.ErrInvalidCompression, data[9])
	}

	return h, nil
}
