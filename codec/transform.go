package codec

import (
	"math"
	"sync"
)

// The decorrelating transform operates on 4-vectors along one dimension at a
// time, dimension x first on encode and last on decode. Two variants exist:
//
//   - the lossy lifting transform, a near-orthogonal integer approximation
//     whose right shifts drop up to one low-order bit per pass; used by the
//     fixed-rate, fixed-precision and fixed-accuracy modes where truncation
//     dominates that loss anyway
//   - the reversible Lorenzo (high-order difference) transform, exactly
//     invertible in integer arithmetic; used by reversible mode
//
// fwdLift transforms the 4-vector p[0], p[s], p[2s], p[3s] in place.
func fwdLift(p []int64, s int) {
	x, y, z, w := p[0], p[s], p[2*s], p[3*s]

	x += w
	x >>= 1
	w -= x
	z += y
	z >>= 1
	y -= z
	x += z
	x >>= 1
	z -= x
	w += y
	w >>= 1
	y -= w
	w += y >> 1
	y -= w >> 1

	p[0], p[s], p[2*s], p[3*s] = x, y, z, w
}

// invLift undoes fwdLift up to the low-order bits dropped by its shifts.
func invLift(p []int64, s int) {
	x, y, z, w := p[0], p[s], p[2*s], p[3*s]

	y += w >> 1
	w -= y >> 1
	y += w
	w <<= 1
	w -= y
	z += x
	x <<= 1
	x -= z
	y += z
	z <<= 1
	z -= y
	w += x
	x <<= 1
	x -= w

	p[0], p[s], p[2*s], p[3*s] = x, y, z, w
}

// revFwdLift applies the integer Lorenzo transform, the third-order
// difference operator. Every step is a subtraction, so revInvLift inverts it
// exactly.
func revFwdLift(p []int64, s int) {
	x, y, z, w := p[0], p[s], p[2*s], p[3*s]

	w -= z
	z -= y
	y -= x
	w -= z
	z -= y
	w -= z

	p[0], p[s], p[2*s], p[3*s] = x, y, z, w
}

// revInvLift exactly inverts revFwdLift.
func revInvLift(p []int64, s int) {
	x, y, z, w := p[0], p[s], p[2*s], p[3*s]

	w += z
	z += y
	w += z
	y += x
	z += y
	w += z

	p[0], p[s], p[2*s], p[3*s] = x, y, z, w
}

// forEachLine invokes lift once per 4-vector line along dimension d of a
// dims-dimensional block stored x fastest.
func forEachLine(block []int64, dims, d int, lift func([]int64, int)) {
	n := blockSize(dims)
	s := 1 << (2 * d) // element stride along dimension d

	for hi := 0; hi < n; hi += blockEdge * s {
		for lo := 0; lo < s; lo++ {
			lift(block[hi+lo:], s)
		}
	}
}

// fwdXform applies the forward transform along dimension x, then y, z, w.
// The order is fixed and must match invXform.
func fwdXform(block []int64, dims int, reversible bool) {
	lift := fwdLift
	if reversible {
		lift = revFwdLift
	}
	for d := 0; d < dims; d++ {
		forEachLine(block, dims, d, lift)
	}
}

// invXform applies the inverse transform along dimensions in reverse order.
func invXform(block []int64, dims int, reversible bool) {
	lift := invLift
	if reversible {
		lift = revInvLift
	}
	for d := dims - 1; d >= 0; d-- {
		forEachLine(block, dims, d, lift)
	}
}

// Fixed-point cast. Floating blocks are scaled into a shared fixed-point
// representation at intprec-2 fractional bits below the block exponent; the
// two guard bits absorb transform growth.

// fwdCast scales the floating block to fixed point under the shared exponent
// emax.
func fwdCast(dst []int64, src []float64, emax int, intprec uint) {
	scale := math.Ldexp(1, int(intprec)-2-emax)
	for i, v := range src {
		dst[i] = int64(v * scale)
	}
}

// invCast restores floating values from the fixed-point representation.
func invCast(dst []float64, src []int64, emax int, intprec uint) {
	scale := math.Ldexp(1, emax+2-int(intprec))
	for i, q := range src {
		dst[i] = float64(q) * scale
	}
}

// Coefficient ordering. After the transform, coefficients are traversed in
// order of total sequency (sum of coordinates), low sums first, so that
// low-frequency coefficients, which carry most of the energy, are coded
// first within every bit plane. Ties break on linear index. The permutation
// only depends on dimensionality and is computed once.

var (
	permOnce sync.Once
	perms    [maxDims + 1][]int
)

func blockPerm(dims int) []int {
	permOnce.Do(func() {
		for d := 1; d <= maxDims; d++ {
			perms[d] = makePerm(d)
		}
	})

	return perms[dims]
}

func makePerm(dims int) []int {
	n := blockSize(dims)
	perm := make([]int, n)
	pos := 0
	// Coordinate sums range over [0, 3*dims]; a counting pass per sum keeps
	// the tie-break order by linear index with no sorting.
	for sum := 0; sum <= 3*dims; sum++ {
		for idx := 0; idx < n; idx++ {
			s, v := 0, idx
			for d := 0; d < dims; d++ {
				s += v & 3
				v >>= 2
			}
			if s == sum {
				perm[pos] = idx
				pos++
			}
		}
	}

	return perm
}

// reorderFwd gathers block coefficients into sequency order.
func reorderFwd(dst, src []int64, dims int) {
	for i, idx := range blockPerm(dims) {
		dst[i] = src[idx]
	}
}

// reorderInv scatters sequency-ordered coefficients back to block order.
func reorderInv(dst, src []int64, dims int) {
	for i, idx := range blockPerm(dims) {
		dst[idx] = src[i]
	}
}
