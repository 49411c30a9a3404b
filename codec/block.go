package codec

import (
	"fmt"
	"math"

	"github.com/arloliu/tetra/bitstream"
	"github.com/arloliu/tetra/errs"
	"github.com/arloliu/tetra/format"
	"github.com/arloliu/tetra/internal/pool"
)

// Per-block bitstream layout:
//
//	floating, lossy modes:   1 marker bit; if 1: biased exponent (ebits),
//	                         then embedded coefficient planes
//	floating, reversible:    1 marker bit; if 1: 1 cast bit (1 = fixed-point
//	                         cast, exponent follows; 0 = raw IEEE bits),
//	                         then full-precision planes
//	integer, all modes:      embedded coefficient planes only
//
// A 0 marker encodes an all-zero block (or, under fixed-accuracy, a block
// whose magnitude is entirely below the tolerance) in a single bit.
// Fixed-rate blocks are zero-padded to exactly their bit budget, so block n
// always starts at bit offset n*rate*4^dims.

// EncodeBlock compresses one gathered block of 4^dims values into the
// bitstream at its current write position and returns the number of bits
// written, padding included.
//
// The block codec is stateless across blocks: concurrent calls are safe as
// long as each call targets a distinct bitstream (or disjoint bit ranges of
// a fixed-rate stream via separate cursors).
func EncodeBlock[T Scalar](st *Stream, bs *bitstream.Stream, block []T, dims int) (uint64, error) {
	styp := ScalarTypeOf[T]()
	if err := st.Validate(styp); err != nil {
		return 0, err
	}
	n := blockSize(dims)
	if len(block) != n {
		return 0, fmt.Errorf("%w: block of %d elements for %d dims", errs.ErrInvalidDimensions, len(block), dims)
	}

	tr := traitsOf(styp)
	start := bs.WritePos()

	coeffs, cleanup := pool.GetInt64Slice(n)
	defer cleanup()
	ucoeffs, ucleanup := pool.GetUint64Slice(n)
	defer ucleanup()

	if tr.isFloat {
		encodeFloatBlock(st, bs, block, coeffs, ucoeffs, dims, tr)
	} else {
		encodeIntBlock(st, bs, block, coeffs, ucoeffs, dims, tr)
	}

	written := bs.WritePos() - start
	if written < st.minBits {
		bs.Pad(st.minBits - written)
		written = st.minBits
	}
	if err := bs.Err(); err != nil {
		return 0, err
	}

	return written, nil
}

// DecodeBlock decompresses one block from the bitstream at its current read
// position into block and returns the number of bits read. For fixed-rate
// streams the read cursor is advanced over the block's padding so that it
// always lands on the next block boundary.
func DecodeBlock[T Scalar](st *Stream, bs *bitstream.Stream, block []T, dims int) (uint64, error) {
	styp := ScalarTypeOf[T]()
	if err := st.Validate(styp); err != nil {
		return 0, err
	}
	n := blockSize(dims)
	if len(block) != n {
		return 0, fmt.Errorf("%w: block of %d elements for %d dims", errs.ErrInvalidDimensions, len(block), dims)
	}

	tr := traitsOf(styp)
	start := bs.ReadPos()

	coeffs, cleanup := pool.GetInt64Slice(n)
	defer cleanup()
	ucoeffs, ucleanup := pool.GetUint64Slice(n)
	defer ucleanup()

	if tr.isFloat {
		decodeFloatBlock(st, bs, block, coeffs, ucoeffs, dims, tr)
	} else {
		decodeIntBlock(st, bs, block, coeffs, ucoeffs, dims, tr)
	}

	read := bs.ReadPos() - start
	if st.mode == format.ModeFixedRate && read < st.maxBits {
		bs.SeekRead(start + st.maxBits)
		read = st.maxBits
	}

	return read, nil
}

func encodeFloatBlock[T Scalar](st *Stream, bs *bitstream.Stream, block []T, coeffs []int64, ucoeffs []uint64, dims int, tr traits) {
	fblock, fcleanup := pool.GetFloat64Slice(len(block))
	defer fcleanup()
	for i, v := range block {
		fblock[i] = float64(v)
	}

	if st.mode == format.ModeReversible {
		encodeFloatBlockReversible(bs, fblock, coeffs, ucoeffs, dims, tr)
		return
	}

	emax := blockExponent(fblock, tr.ebias)
	prec := st.blockPrecision(emax, dims, tr.intprec)
	biased := emax + tr.ebias
	if biased == 0 || prec == 0 {
		// All zero, or entirely below the accuracy tolerance.
		bs.WriteBit(0)
		return
	}

	bs.WriteBit(1)
	bs.WriteBits(uint64(biased), tr.ebits) //nolint:gosec // biased in [1, 2^ebits)

	fwdCast(coeffs, fblock, emax, tr.intprec)
	fwdXform(coeffs, dims, false)
	for i, idx := range blockPerm(dims) {
		ucoeffs[i] = int2uint(coeffs[idx], tr.intprec)
	}

	budget := st.maxBits - uint64(tr.ebits) - 1
	encodeInts(bs, ucoeffs, tr.intprec, prec, budget)
}

func encodeFloatBlockReversible(bs *bitstream.Stream, fblock []float64, coeffs []int64, ucoeffs []uint64, dims int, tr traits) {
	allZero := true
	for _, v := range fblock {
		if v != 0 {
			allZero = false
			break
		}
	}
	if allZero {
		bs.WriteBit(0)
		return
	}
	bs.WriteBit(1)

	// Try the fixed-point cast; fall back to transforming the raw IEEE bit
	// patterns when the cast cannot reproduce the block exactly (subnormals,
	// large exponent spread within the block).
	emax := blockExponent(fblock, tr.ebias)
	biased := emax + tr.ebias
	exact := biased != 0
	if exact {
		fwdCast(coeffs, fblock, emax, tr.intprec)
		scale := math.Ldexp(1, emax+2-int(tr.intprec))
		for i, q := range coeffs {
			if float64(q)*scale != fblock[i] {
				exact = false
				break
			}
		}
	}

	if exact {
		bs.WriteBit(1)
		bs.WriteBits(uint64(biased), tr.ebits) //nolint:gosec // biased in [1, 2^ebits)
	} else {
		bs.WriteBit(0)
		if tr.intprec <= 32 {
			for i, v := range fblock {
				coeffs[i] = int64(int32(math.Float32bits(float32(v)))) //nolint:gosec // bit reinterpretation
			}
		} else {
			for i, v := range fblock {
				coeffs[i] = int64(math.Float64bits(v)) //nolint:gosec // bit reinterpretation
			}
		}
	}

	fwdXform(coeffs, dims, true)
	for i, idx := range blockPerm(dims) {
		ucoeffs[i] = int2uint(coeffs[idx], tr.intprec)
	}
	encodeInts(bs, ucoeffs, tr.intprec, tr.intprec, unlimitedBits)
}

func decodeFloatBlock[T Scalar](st *Stream, bs *bitstream.Stream, block []T, coeffs []int64, ucoeffs []uint64, dims int, tr traits) {
	fblock, fcleanup := pool.GetFloat64Slice(len(block))
	defer fcleanup()

	if st.mode == format.ModeReversible {
		decodeFloatBlockReversible(bs, fblock, coeffs, ucoeffs, dims, tr)
	} else if bs.ReadBit() == 0 {
		for i := range fblock {
			fblock[i] = 0
		}
	} else {
		biased := int(bs.ReadBits(tr.ebits)) //nolint:gosec // at most 11 bits
		emax := biased - tr.ebias
		prec := st.blockPrecision(emax, dims, tr.intprec)

		budget := st.maxBits - uint64(tr.ebits) - 1
		decodeInts(bs, ucoeffs, tr.intprec, prec, budget)

		for i, idx := range blockPerm(dims) {
			coeffs[idx] = uint2int(ucoeffs[i], tr.intprec)
		}
		invXform(coeffs, dims, false)
		invCast(fblock, coeffs, emax, tr.intprec)
	}

	for i, v := range fblock {
		block[i] = T(v)
	}
}

func decodeFloatBlockReversible(bs *bitstream.Stream, fblock []float64, coeffs []int64, ucoeffs []uint64, dims int, tr traits) {
	if bs.ReadBit() == 0 {
		for i := range fblock {
			fblock[i] = 0
		}
		return
	}

	cast := bs.ReadBit() != 0
	emax := 0
	if cast {
		biased := int(bs.ReadBits(tr.ebits)) //nolint:gosec // at most 11 bits
		emax = biased - tr.ebias
	}

	decodeInts(bs, ucoeffs, tr.intprec, tr.intprec, unlimitedBits)
	for i, idx := range blockPerm(dims) {
		coeffs[idx] = uint2int(ucoeffs[i], tr.intprec)
	}
	invXform(coeffs, dims, true)

	if cast {
		invCast(fblock, coeffs, emax, tr.intprec)
		return
	}
	if tr.intprec <= 32 {
		for i, q := range coeffs {
			fblock[i] = float64(math.Float32frombits(uint32(q))) //nolint:gosec // bit reinterpretation
		}
	} else {
		for i, q := range coeffs {
			fblock[i] = math.Float64frombits(uint64(q)) //nolint:gosec // bit reinterpretation
		}
	}
}

func encodeIntBlock[T Scalar](st *Stream, bs *bitstream.Stream, block []T, coeffs []int64, ucoeffs []uint64, dims int, tr traits) {
	for i, v := range block {
		coeffs[i] = int64(v)
	}

	rev := st.mode == format.ModeReversible
	fwdXform(coeffs, dims, rev)
	for i, idx := range blockPerm(dims) {
		ucoeffs[i] = int2uint(coeffs[idx], tr.intprec)
	}

	prec := st.maxPrec
	if prec > tr.intprec {
		prec = tr.intprec
	}
	encodeInts(bs, ucoeffs, tr.intprec, prec, st.maxBits)
}

func decodeIntBlock[T Scalar](st *Stream, bs *bitstream.Stream, block []T, coeffs []int64, ucoeffs []uint64, dims int, tr traits) {
	prec := st.maxPrec
	if prec > tr.intprec {
		prec = tr.intprec
	}
	decodeInts(bs, ucoeffs, tr.intprec, prec, st.maxBits)

	for i, idx := range blockPerm(dims) {
		coeffs[idx] = uint2int(ucoeffs[i], tr.intprec)
	}
	rev := st.mode == format.ModeReversible
	invXform(coeffs, dims, rev)

	for i, q := range coeffs {
		block[i] = T(q)
	}
}
