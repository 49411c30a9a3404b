package codec

import (
	"math"

	"github.com/arloliu/tetra/format"
)

// Scalar is the set of element types the block codec understands.
//
// Integer types are transformed directly and must keep two high-order guard
// bits unused; values outside [-2^29, 2^29) for int32 or [-2^61, 2^61) for
// int64 can overflow the decorrelating transform.
type Scalar interface {
	int32 | int64 | float32 | float64
}

// traits captures the per-scalar-type constants of the fixed-point pipeline:
// the integer precision of the common representation, and the width and bias
// of the per-block shared exponent for floating types.
type traits struct {
	intprec uint // bit planes in the fixed-point representation
	ebits   uint // exponent field width (floating types only)
	ebias   int  // exponent bias (floating types only)
	isFloat bool
}

func traitsOf(st format.ScalarType) traits {
	switch st {
	case format.TypeInt32:
		return traits{intprec: 32}
	case format.TypeInt64:
		return traits{intprec: 64}
	case format.TypeFloat32:
		return traits{intprec: 32, ebits: 8, ebias: 127, isFloat: true}
	case format.TypeFloat64:
		return traits{intprec: 64, ebits: 11, ebias: 1023, isFloat: true}
	default:
		return traits{}
	}
}

// ScalarTypeOf returns the format.ScalarType for the Go element type T.
func ScalarTypeOf[T Scalar]() format.ScalarType {
	var zero T
	switch any(zero).(type) {
	case int32:
		return format.TypeInt32
	case int64:
		return format.TypeInt64
	case float32:
		return format.TypeFloat32
	default:
		return format.TypeFloat64
	}
}

// exponent returns the binary exponent e of x with 0.5 <= |x|/2^e < 1,
// clamped to -ebias so the biased exponent of subnormal-dominated blocks
// never goes negative.
func exponent(x float64, ebias int) int {
	_, e := math.Frexp(x)
	if e < -ebias {
		return -ebias
	}

	return e
}

// blockExponent computes the shared exponent of a block: the maximum
// exponent over all nonzero magnitudes, or -ebias as the all-zero sentinel
// (its biased form is 0, which the encoder emits as a 1-bit empty block).
func blockExponent(block []float64, ebias int) int {
	maxMag := 0.0
	for _, v := range block {
		mag := math.Abs(v)
		if mag > maxMag {
			maxMag = mag
		}
	}
	if maxMag == 0 {
		return -ebias
	}

	return exponent(maxMag, ebias)
}
