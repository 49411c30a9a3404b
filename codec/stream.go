package codec

import (
	"fmt"
	"math"

	"github.com/arloliu/tetra/errs"
	"github.com/arloliu/tetra/format"
)

// unlimitedBits is the per-block bit budget for modes whose block size is
// data-dependent (fixed-precision, fixed-accuracy, reversible).
const unlimitedBits = uint64(math.MaxUint32)

// minExpUnbounded disables the accuracy cutoff for modes other than
// fixed-accuracy.
const minExpUnbounded = math.MinInt32

// Stream describes the compression parameters shared by every block of a
// compressed stream: the active mode and its single mode parameter.
//
// Exactly one mode is active at a time; calling any of the Set* methods
// switches the mode and invalidates rate computations cached by callers.
// A zero-value Stream is not usable; NewStream returns one configured for
// reversible compression.
//
// Stream is immutable during compression from the codec's point of view:
// EncodeBlock and DecodeBlock only read it, so one Stream may drive many
// concurrent block operations.
type Stream struct {
	mode format.Mode

	// Internal parameter set, in the style of an expert configuration:
	// every mode is a preset over these four values.
	minBits uint64 // bits a block is padded out to (fixed-rate only)
	maxBits uint64 // bit budget per block
	maxPrec uint   // bit planes encoded, clamped to intprec per scalar type
	minExp  int    // smallest block exponent encoded (fixed-accuracy only)

	// User-facing parameters retained for queries and serialization.
	rate      float64
	precision uint
	tolerance float64
}

// NewStream creates a stream descriptor configured for reversible
// (lossless) compression.
func NewStream() *Stream {
	s := &Stream{}
	s.SetReversible()

	return s
}

// Mode returns the active compression mode.
func (s *Stream) Mode() format.Mode { return s.mode }

// Rate returns the configured rate in bits per value, or 0 when the active
// mode is not fixed-rate.
func (s *Stream) Rate() float64 {
	if s.mode != format.ModeFixedRate {
		return 0
	}

	return s.rate
}

// Precision returns the configured number of bit planes, or 0 when the
// active mode is not fixed-precision.
func (s *Stream) Precision() uint {
	if s.mode != format.ModeFixedPrecision {
		return 0
	}

	return s.precision
}

// Tolerance returns the configured absolute error tolerance, or 0 when the
// active mode is not fixed-accuracy.
func (s *Stream) Tolerance() float64 {
	if s.mode != format.ModeFixedAccuracy {
		return 0
	}

	return s.tolerance
}

// SetRate switches the stream to fixed-rate mode at the given rate in bits
// per value for fields of the given dimensionality, and returns the actual
// rate after rounding the per-block budget to a whole number of bits.
//
// In fixed-rate mode every block occupies exactly rate*4^dims bits, so block
// n of a stream always begins at bit offset n*rate*4^dims. This is the only
// mode that supports random access and parallel (de)compression.
//
// Parameters:
//   - rate: target bits per value, must be positive
//   - dims: field dimensionality in [1, 4]
//
// Returns:
//   - float64: the actual rate after rounding
//   - error: ErrInvalidRate or ErrInvalidDimensions; the prior configuration
//     is left untouched on error
func (s *Stream) SetRate(rate float64, dims int) (float64, error) {
	if dims < 1 || dims > maxDims {
		return 0, fmt.Errorf("%w: %d", errs.ErrInvalidDimensions, dims)
	}
	if rate <= 0 || math.IsNaN(rate) || math.IsInf(rate, 0) {
		return 0, fmt.Errorf("%w: %v bits/value", errs.ErrInvalidRate, rate)
	}

	n := blockSize(dims)
	bits := uint64(math.Floor(rate*float64(n) + 0.5))
	if bits == 0 {
		bits = 1
	}

	s.mode = format.ModeFixedRate
	s.minBits = bits
	s.maxBits = bits
	s.maxPrec = 64
	s.minExp = minExpUnbounded
	s.rate = float64(bits) / float64(n)

	return s.rate, nil
}

// SetPrecision switches the stream to fixed-precision mode, emitting at most
// prec bit planes per block. Block sizes vary with content, so the stream
// supports sequential access only.
func (s *Stream) SetPrecision(prec uint) error {
	if prec == 0 || prec > 64 {
		return fmt.Errorf("%w: %d bit planes", errs.ErrInvalidPrecision, prec)
	}

	s.mode = format.ModeFixedPrecision
	s.minBits = 0
	s.maxBits = unlimitedBits
	s.maxPrec = prec
	s.minExp = minExpUnbounded
	s.precision = prec

	return nil
}

// SetAccuracy switches the stream to fixed-accuracy mode with the given
// absolute error tolerance. Only floating-point fields support this mode;
// the combination with integer data is rejected by Validate at
// configuration time.
func (s *Stream) SetAccuracy(tolerance float64) error {
	if tolerance <= 0 || math.IsNaN(tolerance) || math.IsInf(tolerance, 0) {
		return fmt.Errorf("%w: %v", errs.ErrInvalidTolerance, tolerance)
	}

	s.mode = format.ModeFixedAccuracy
	s.minBits = 0
	s.maxBits = unlimitedBits
	s.maxPrec = 64
	s.minExp = int(math.Floor(math.Log2(tolerance)))
	s.tolerance = tolerance

	return nil
}

// SetReversible switches the stream to reversible (lossless) mode: all bit
// planes of the exactly invertible transform are emitted, guaranteeing
// bit-identical reconstruction.
func (s *Stream) SetReversible() {
	s.mode = format.ModeReversible
	s.minBits = 0
	s.maxBits = unlimitedBits
	s.maxPrec = 64
	s.minExp = minExpUnbounded
}

// BlockBits returns the exact number of bits a block occupies, which is only
// defined for fixed-rate mode. Every other mode returns ErrNotFixedRate
// because block sizes are data-dependent and not indexable without a side
// table.
func (s *Stream) BlockBits(dims int) (uint64, error) {
	if dims < 1 || dims > maxDims {
		return 0, fmt.Errorf("%w: %d", errs.ErrInvalidDimensions, dims)
	}
	if s.mode != format.ModeFixedRate {
		return 0, errs.ErrNotFixedRate
	}

	return s.maxBits, nil
}

// Validate checks that the stream configuration can be applied to fields of
// the given scalar type. It rejects unsupported combinations synchronously,
// before any block is touched:
//
//   - fixed-accuracy on integer data (a tolerance is a floating-point error
//     bound) returns ErrModeTypeMismatch
//   - a fixed-rate budget too small to hold a floating block's exponent
//     returns ErrInvalidRate
func (s *Stream) Validate(st format.ScalarType) error {
	if !st.Valid() {
		return fmt.Errorf("%w: %v", errs.ErrInvalidScalarType, st)
	}
	if !s.mode.Valid() {
		return fmt.Errorf("%w: stream mode not configured", errs.ErrModeTypeMismatch)
	}
	if s.mode == format.ModeFixedAccuracy && st.IsInteger() {
		return fmt.Errorf("%w: %v with %v", errs.ErrModeTypeMismatch, s.mode, st)
	}
	if s.mode == format.ModeFixedRate && st.IsFloat() {
		tr := traitsOf(st)
		if s.maxBits < uint64(tr.ebits)+1 {
			return fmt.Errorf("%w: %v bits/block cannot hold a %v exponent",
				errs.ErrInvalidRate, s.maxBits, st)
		}
	}

	return nil
}

// blockPrecision returns the number of bit planes to encode for a block with
// the given shared exponent. For fixed-accuracy mode the count shrinks as
// the block magnitude approaches the tolerance; once it reaches zero the
// whole block is below the error bound and is encoded as empty.
func (s *Stream) blockPrecision(emax int, dims int, intprec uint) uint {
	if s.mode == format.ModeFixedAccuracy {
		// The 2*(dims+1) term accounts for error growth through the
		// inverse transform, one bit per lifting pass plus rounding.
		p := emax - s.minExp + 2*(dims+1)
		if p < 0 {
			p = 0
		}
		if uint(p) > intprec {
			return intprec
		}

		return uint(p)
	}

	if s.maxPrec > intprec {
		return intprec
	}

	return s.maxPrec
}
