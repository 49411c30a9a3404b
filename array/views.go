package array

import "github.com/arloliu/tetra/codec"

// Views address elements by row-major linear index with i fastest:
// idx = i + nx*(j + ny*(k + nz*l)). A view holds {array, index} and nothing
// else; creating or moving one never faults a block, only dereferencing does.
// Views from different arrays must not be compared or subtracted.

// Ref is a reference to a single element.
type Ref[T codec.Scalar] struct {
	a   *Array[T]
	idx int
}

// RefAt returns a reference to the element at the given coordinates.
func (a *Array[T]) RefAt(coords ...int) Ref[T] {
	i, j, k, l := a.checkCoords(coords)

	return Ref[T]{a: a, idx: a.linearOf(i, j, k, l)}
}

// Get returns the referenced element.
func (r Ref[T]) Get() T { return r.a.getLinear(r.idx) }

// Set stores v in the referenced element.
func (r Ref[T]) Set(v T) { r.a.setLinear(r.idx, v) }

// CopyFrom assigns the value of o to the referenced element. The references
// may belong to different arrays.
func (r Ref[T]) CopyFrom(o Ref[T]) { r.Set(o.Get()) }

// Ptr is a pointer into the array's row-major element sequence, supporting
// the arithmetic and comparison operations of a random-access pointer. All
// motion methods are value-returning; a Ptr itself is immutable.
type Ptr[T codec.Scalar] struct {
	a   *Array[T]
	idx int
}

// PtrAt returns a pointer to the element at the given coordinates.
func (a *Array[T]) PtrAt(coords ...int) Ptr[T] {
	i, j, k, l := a.checkCoords(coords)

	return Ptr[T]{a: a, idx: a.linearOf(i, j, k, l)}
}

// Ref returns a reference to the pointed-to element.
func (p Ptr[T]) Ref() Ref[T] { return Ref[T]{a: p.a, idx: p.idx} }

// Get returns the pointed-to element.
func (p Ptr[T]) Get() T { return p.a.getLinear(p.idx) }

// Set stores v in the pointed-to element.
func (p Ptr[T]) Set(v T) { p.a.setLinear(p.idx, v) }

// Eq reports whether p and q point to the same element of the same array.
func (p Ptr[T]) Eq(q Ptr[T]) bool { return p.a == q.a && p.idx == q.idx }

// Ne reports whether p and q differ.
func (p Ptr[T]) Ne(q Ptr[T]) bool { return !p.Eq(q) }

// Lt reports whether p precedes q in row-major order.
func (p Ptr[T]) Lt(q Ptr[T]) bool { return p.idx < q.idx }

// Gt reports whether p follows q.
func (p Ptr[T]) Gt(q Ptr[T]) bool { return p.idx > q.idx }

// Leq reports whether p precedes or equals q.
func (p Ptr[T]) Leq(q Ptr[T]) bool { return p.idx <= q.idx }

// Geq reports whether p follows or equals q.
func (p Ptr[T]) Geq(q Ptr[T]) bool { return p.idx >= q.idx }

// Inc returns a pointer advanced by one element.
func (p Ptr[T]) Inc() Ptr[T] { return Ptr[T]{a: p.a, idx: p.idx + 1} }

// Dec returns a pointer moved back by one element.
func (p Ptr[T]) Dec() Ptr[T] { return Ptr[T]{a: p.a, idx: p.idx - 1} }

// Next returns a pointer advanced by n elements; n may be negative.
func (p Ptr[T]) Next(n int) Ptr[T] { return Ptr[T]{a: p.a, idx: p.idx + n} }

// Prev returns a pointer moved back by n elements.
func (p Ptr[T]) Prev(n int) Ptr[T] { return Ptr[T]{a: p.a, idx: p.idx - n} }

// Distance returns the number of elements from p to q, so that
// p.Next(p.Distance(q)).Eq(q) holds.
func (p Ptr[T]) Distance(q Ptr[T]) int { return q.idx - p.idx }

// Iter is an iterator over the array's elements in row-major order. It
// supports the same comparisons and arithmetic as Ptr, plus coordinate
// queries. The canonical loop is
//
//	for it := a.Begin(); it.Ne(a.End()); it = it.Inc() {
//	    v := it.Get()
//	    ...
//	}
type Iter[T codec.Scalar] struct {
	a   *Array[T]
	idx int
}

// Begin returns an iterator at the first element.
func (a *Array[T]) Begin() Iter[T] { return Iter[T]{a: a, idx: 0} }

// End returns the past-the-end iterator. Dereferencing it panics.
func (a *Array[T]) End() Iter[T] { return Iter[T]{a: a, idx: a.Size()} }

// Get returns the current element.
func (it Iter[T]) Get() T { return it.a.getLinear(it.idx) }

// Set stores v in the current element.
func (it Iter[T]) Set(v T) { it.a.setLinear(it.idx, v) }

// Ref returns a reference to the current element.
func (it Iter[T]) Ref() Ref[T] { return Ref[T]{a: it.a, idx: it.idx} }

// Ptr returns a pointer to the current element.
func (it Iter[T]) Ptr() Ptr[T] { return Ptr[T]{a: it.a, idx: it.idx} }

// Coords returns the coordinates of the current element; unused dimensions
// report 0.
func (it Iter[T]) Coords() (i, j, k, l int) { return it.a.coordsOf(it.idx) }

// Eq reports whether both iterators are at the same position of the same
// array.
func (it Iter[T]) Eq(o Iter[T]) bool { return it.a == o.a && it.idx == o.idx }

// Ne reports whether the iterators differ.
func (it Iter[T]) Ne(o Iter[T]) bool { return !it.Eq(o) }

// Lt reports whether it precedes o.
func (it Iter[T]) Lt(o Iter[T]) bool { return it.idx < o.idx }

// Gt reports whether it follows o.
func (it Iter[T]) Gt(o Iter[T]) bool { return it.idx > o.idx }

// Leq reports whether it precedes or equals o.
func (it Iter[T]) Leq(o Iter[T]) bool { return it.idx <= o.idx }

// Geq reports whether it follows or equals o.
func (it Iter[T]) Geq(o Iter[T]) bool { return it.idx >= o.idx }

// Inc returns an iterator advanced by one element.
func (it Iter[T]) Inc() Iter[T] { return Iter[T]{a: it.a, idx: it.idx + 1} }

// Dec returns an iterator moved back by one element.
func (it Iter[T]) Dec() Iter[T] { return Iter[T]{a: it.a, idx: it.idx - 1} }

// Next returns an iterator advanced by n elements; n may be negative.
func (it Iter[T]) Next(n int) Iter[T] { return Iter[T]{a: it.a, idx: it.idx + n} }

// Prev returns an iterator moved back by n elements.
func (it Iter[T]) Prev(n int) Iter[T] { return Iter[T]{a: it.a, idx: it.idx - n} }

// Distance returns the number of elements from it to o.
func (it Iter[T]) Distance(o Iter[T]) int { return o.idx - it.idx }
