package format

type (
	ScalarType      uint8
	Mode            uint8
	CompressionType uint8
)

const (
	TypeInt32   ScalarType = 0x1 // TypeInt32 represents 32-bit signed integer data.
	TypeInt64   ScalarType = 0x2 // TypeInt64 represents 64-bit signed integer data.
	TypeFloat32 ScalarType = 0x3 // TypeFloat32 represents IEEE-754 single precision data.
	TypeFloat64 ScalarType = 0x4 // TypeFloat64 represents IEEE-754 double precision data.

	ModeFixedRate      Mode = 0x1 // ModeFixedRate guarantees a constant number of bits per value.
	ModeFixedPrecision Mode = 0x2 // ModeFixedPrecision emits a fixed number of bit planes per block.
	ModeFixedAccuracy  Mode = 0x3 // ModeFixedAccuracy bounds the absolute reconstruction error.
	ModeReversible     Mode = 0x4 // ModeReversible guarantees bit-exact reconstruction.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no outer compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard outer compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 outer compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 outer compression.
)

// IsInteger reports whether the scalar type is an integer type.
//
// Integer types skip exponent alignment and cannot use fixed-accuracy mode,
// since an accuracy tolerance is a floating-point error bound.
func (s ScalarType) IsInteger() bool {
	return s == TypeInt32 || s == TypeInt64
}

// IsFloat reports whether the scalar type is a floating-point type.
func (s ScalarType) IsFloat() bool {
	return s == TypeFloat32 || s == TypeFloat64
}

// Valid reports whether the scalar type is one of the supported types.
func (s ScalarType) Valid() bool {
	return s >= TypeInt32 && s <= TypeFloat64
}

// Size returns the size of one value in bytes, or 0 for an invalid type.
func (s ScalarType) Size() int {
	switch s {
	case TypeInt32, TypeFloat32:
		return 4
	case TypeInt64, TypeFloat64:
		return 8
	default:
		return 0
	}
}

func (s ScalarType) String() string {
	switch s {
	case TypeInt32:
		return "Int32"
	case TypeInt64:
		return "Int64"
	case TypeFloat32:
		return "Float32"
	case TypeFloat64:
		return "Float64"
	default:
		return "Unknown"
	}
}

// Valid reports whether the mode is one of the four compression modes.
func (m Mode) Valid() bool {
	return m >= ModeFixedRate && m <= ModeReversible
}

func (m Mode) String() string {
	switch m {
	case ModeFixedRate:
		return "FixedRate"
	case ModeFixedPrecision:
		return "FixedPrecision"
	case ModeFixedAccuracy:
		return "FixedAccuracy"
	case ModeReversible:
		return "Reversible"
	default:
		return "Unknown"
	}
}

// Valid reports whether the compression type is one of the supported codecs.
func (c CompressionType) Valid() bool {
	return c >= CompressionNone && c <= CompressionLZ4
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
