package codec

import "github.com/arloliu/tetra/bitstream"

// Embedded bit-plane coder. Transformed coefficients are converted to
// negabinary, which interleaves positive and negative values so magnitude
// ordering survives bit-plane truncation, then serialized one bit plane at a
// time from most to least significant.
//
// Within a plane, coefficients already known significant contribute one
// refinement bit each; the remainder of the plane is run-length coded with
// group testing: a 1 bit announces that at least one untouched coefficient
// becomes significant in this plane, followed by its unary-coded position.
// Any prefix of the emitted stream decodes to a valid lower-fidelity block,
// which is what makes mid-plane truncation at a fixed bit budget safe.

// Negabinary masks: 0b1010...10 for the configured precision.
const (
	nbMask64 = 0xaaaaaaaaaaaaaaaa
	nbMask32 = 0xaaaaaaaa
)

// int2uint maps a two's complement coefficient to negabinary at the given
// precision (32 or 64 bit planes).
func int2uint(x int64, intprec uint) uint64 {
	if intprec <= 32 {
		u := uint32(x) //nolint:gosec // intentional 32-bit wraparound
		return uint64((u + nbMask32) ^ nbMask32)
	}

	return (uint64(x) + nbMask64) ^ nbMask64 //nolint:gosec // intentional wraparound
}

// uint2int inverts int2uint.
func uint2int(u uint64, intprec uint) int64 {
	if intprec <= 32 {
		v := (uint32(u) ^ nbMask32) - nbMask32 //nolint:gosec // intentional wraparound
		return int64(int32(v))                 //nolint:gosec // sign extension intended
	}

	return int64((u ^ nbMask64) - nbMask64) //nolint:gosec // intentional wraparound
}

// planeSet is one extracted bit plane for up to 256 coefficients (a 4D
// block), consumed LSB-first.
type planeSet [4]uint64

func (p *planeSet) set(i uint) {
	p[i>>6] |= uint64(1) << (i & 63)
}

func (p *planeSet) any() bool {
	return p[0]|p[1]|p[2]|p[3] != 0
}

func (p *planeSet) lsb() uint64 {
	return p[0] & 1
}

// shr shifts the plane right by n bits, n in [0, 64].
func (p *planeSet) shr(n uint) {
	if n == 0 {
		return
	}
	if n >= 64 {
		p[0], p[1], p[2], p[3] = p[1], p[2], p[3], 0
		return
	}
	p[0] = p[0]>>n | p[1]<<(64-n)
	p[1] = p[1]>>n | p[2]<<(64-n)
	p[2] = p[2]>>n | p[3]<<(64-n)
	p[3] >>= n
}

func (p *planeSet) shr1() {
	p[0] = p[0]>>1 | p[1]<<63
	p[1] = p[1]>>1 | p[2]<<63
	p[2] = p[2]>>1 | p[3]<<63
	p[3] >>= 1
}

// encodeInts emits the embedded code for n negabinary coefficients in
// sequency order, most significant plane first, spending at most budget
// bits and encoding at most maxprec of the intprec bit planes.
//
// Returns the number of bits written, which is below budget only when every
// requested plane fit.
func encodeInts(bs *bitstream.Stream, data []uint64, intprec, maxprec uint, budget uint64) uint64 {
	n := uint(len(data))
	kmin := 0
	if maxprec < intprec {
		kmin = int(intprec - maxprec)
	}

	bits := budget
	sig := uint(0) // coefficients found significant in earlier planes

	for k := int(intprec) - 1; k >= kmin && bits > 0; k-- {
		// Extract bit plane k.
		var x planeSet
		for i := uint(0); i < n; i++ {
			x[i>>6] |= ((data[i] >> uint(k)) & 1) << (i & 63) //nolint:gosec // k >= 0
		}

		// Refinement bits for coefficients already significant.
		m := uint64(sig)
		if m > bits {
			m = bits
		}
		bits -= m
		writePlanePrefix(bs, &x, uint(m))

		// Group testing for the rest of the plane. The group bit says
		// whether any untouched coefficient becomes significant here; its
		// position follows in unary. The last coefficient's significance
		// bit is implied by the group bit itself.
		i := sig
		for i < n && bits > 0 {
			bits--
			group := x.any()
			if group {
				bs.WriteBit(1)
			} else {
				bs.WriteBit(0)
				break
			}
			for i < n-1 && bits > 0 {
				bits--
				b := x.lsb()
				bs.WriteBit(b)
				if b != 0 {
					break
				}
				x.shr1()
				i++
			}
			x.shr1()
			i++
		}
		sig = i
	}

	return budget - bits
}

// decodeInts mirrors encodeInts, reconstructing coefficients from at most
// budget bits. Truncated streams (or smaller budgets) yield correctly
// rounded lower-precision coefficients.
//
// Returns the number of bits read.
func decodeInts(bs *bitstream.Stream, data []uint64, intprec, maxprec uint, budget uint64) uint64 {
	n := uint(len(data))
	kmin := 0
	if maxprec < intprec {
		kmin = int(intprec - maxprec)
	}

	for i := range data {
		data[i] = 0
	}

	bits := budget
	sig := uint(0)

	for k := int(intprec) - 1; k >= kmin && bits > 0; k-- {
		// Refinement bits for known-significant coefficients.
		m := uint64(sig)
		if m > bits {
			m = bits
		}
		bits -= m
		var x planeSet
		readPlanePrefix(bs, &x, uint(m))

		// Group-test decode for newly significant coefficients.
		i := sig
		for i < n && bits > 0 {
			bits--
			if bs.ReadBit() == 0 {
				break
			}
			for i < n-1 && bits > 0 {
				bits--
				if bs.ReadBit() != 0 {
					break
				}
				i++
			}
			x.set(i)
			i++
		}
		sig = i

		// Deposit the plane.
		for i := uint(0); i < n; i++ {
			if x[i>>6]>>(i&63)&1 != 0 {
				data[i] |= uint64(1) << uint(k) //nolint:gosec // k >= 0
			}
		}
	}

	return budget - bits
}

// writePlanePrefix emits the low m bits of the plane LSB-first and shifts
// them out.
func writePlanePrefix(bs *bitstream.Stream, x *planeSet, m uint) {
	for m > 0 {
		c := m
		if c > 64 {
			c = 64
		}
		bs.WriteBits(x[0], c)
		x.shr(c)
		m -= c
	}
}

// readPlanePrefix reads m bits into the low positions of the plane.
func readPlanePrefix(bs *bitstream.Stream, x *planeSet, m uint) {
	pos := uint(0)
	for m > 0 {
		c := m
		if c > 64 {
			c = 64
		}
		v := bs.ReadBits(c)
		word := pos >> 6
		off := pos & 63
		x[word] |= v << off
		if off+c > 64 && word+1 < 4 {
			x[word+1] |= v >> (64 - off)
		}
		pos += c
		m -= c
	}
}
