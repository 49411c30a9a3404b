// Package bitstream implements a growable bit-addressable buffer with
// independent read and write cursors.
//
// The stream stores bits in 64-bit words. Within a word, bits fill from the
// least significant position upward, and words are serialized little-endian,
// so bit offset n of the stream always lands at byte n/8, bit n%8 of the
// serialized form. This fixed layout is what makes per-block offsets
// computable for fixed-rate random access.
//
// The read and write cursors are fully independent: a block can be decoded
// for inspection while a separate write cursor appends or rewrites data
// elsewhere in the stream. Writes at a seeked position are read-modify-write,
// so overwriting a block's bit range never disturbs neighboring blocks.
package bitstream

import "github.com/arloliu/tetra/errs"

const wordBits = 64

// Stream is a bit-addressable buffer.
//
// Stream is not safe for concurrent use. Independent callers may operate on
// disjoint bit ranges of separate Stream instances in parallel; a single
// instance assumes one goroutine.
type Stream struct {
	words []uint64
	wpos  uint64 // write cursor, in bits
	rpos  uint64 // read cursor, in bits
	size  uint64 // high-water mark of bits written
	fixed bool   // capacity is fixed; writes past it latch an error
	err   error
}

// New creates an empty growable stream.
func New() *Stream {
	return &Stream{}
}

// NewSize creates an empty growable stream with capacity preallocated for
// the given number of bits.
func NewSize(bits uint64) *Stream {
	return &Stream{words: make([]uint64, 0, (bits+wordBits-1)/wordBits)}
}

// NewFixed creates a stream with a fixed capacity of the given number of
// bits. Writing past the capacity latches ErrStreamOverflow instead of
// reallocating; the overflowing bits are dropped and Err reports the
// condition.
func NewFixed(bits uint64) *Stream {
	return &Stream{
		words: make([]uint64, (bits+wordBits-1)/wordBits),
		fixed: true,
	}
}

// FromBytes creates a stream whose contents are a copy of data, with the
// write cursor at the end and the read cursor rewound to the start.
//
// The byte layout must match Bytes(): little-endian words, LSB-first bits.
func FromBytes(data []byte) *Stream {
	s := &Stream{
		words: make([]uint64, (len(data)+7)/8),
		size:  uint64(len(data)) * 8,
	}
	for i, b := range data {
		s.words[i>>3] |= uint64(b) << ((i & 7) * 8)
	}
	s.wpos = s.size

	return s
}

// mask returns a mask of the low n bits, valid for n in [0, 64].
func mask(n uint) uint64 {
	if n >= wordBits {
		return ^uint64(0)
	}

	return (uint64(1) << n) - 1
}

// ensure grows the word slice to hold end bits, doubling capacity as needed.
// It returns false, latching ErrStreamOverflow, if the stream has fixed
// capacity and end exceeds it.
func (s *Stream) ensure(end uint64) bool {
	need := int((end + wordBits - 1) / wordBits)
	if need <= len(s.words) {
		return true
	}
	if s.fixed {
		if s.err == nil {
			s.err = errs.ErrStreamOverflow
		}

		return false
	}
	if need <= cap(s.words) {
		s.words = s.words[:need]

		return true
	}

	newCap := cap(s.words) * 2
	if newCap < need {
		newCap = need
	}
	grown := make([]uint64, need, newCap)
	copy(grown, s.words)
	s.words = grown

	return true
}

func (s *Stream) wordAt(i uint64) uint64 {
	if i < uint64(len(s.words)) {
		return s.words[i]
	}

	return 0
}

// WriteBits appends the low width bits of value at the write cursor and
// advances it. width must be in [0, 64]; bits of value above width are
// ignored.
//
// Writing past the end of a growable stream reallocates; on a fixed-capacity
// stream the write is dropped and Err reports ErrStreamOverflow.
func (s *Stream) WriteBits(value uint64, width uint) {
	if width == 0 {
		return
	}
	value &= mask(width)

	end := s.wpos + uint64(width)
	if !s.ensure(end) {
		return
	}

	word := s.wpos >> 6
	off := uint(s.wpos & 63)

	// Merge into the current word; shifted mask bits above 63 fall away,
	// which is exactly the spill handled below.
	m := mask(width) << off
	s.words[word] = (s.words[word] &^ m) | (value << off)

	if off+width > wordBits {
		spill := off + width - wordBits
		mhi := mask(spill)
		s.words[word+1] = (s.words[word+1] &^ mhi) | (value >> (wordBits - off))
	}

	s.wpos = end
	if end > s.size {
		s.size = end
	}
}

// WriteBit appends a single bit (0 or 1).
func (s *Stream) WriteBit(bit uint64) {
	s.WriteBits(bit, 1)
}

// ReadBits reads width bits at the read cursor and advances it. width must
// be in [0, 64]. Reading past the written size yields zero bits, so decoding
// a truncated stream degrades to a valid lower-fidelity result instead of
// failing.
func (s *Stream) ReadBits(width uint) uint64 {
	if width == 0 {
		return 0
	}

	word := s.rpos >> 6
	off := uint(s.rpos & 63)

	v := s.wordAt(word) >> off
	if off+width > wordBits {
		v |= s.wordAt(word+1) << (wordBits - off)
	}
	v &= mask(width)

	s.rpos += uint64(width)

	return v
}

// ReadBit reads a single bit.
func (s *Stream) ReadBit() uint64 {
	return s.ReadBits(1)
}

// Pad appends n zero bits. It is used by fixed-rate encoding to fill a block
// out to its exact bit budget.
func (s *Stream) Pad(n uint64) {
	for n >= wordBits {
		s.WriteBits(0, wordBits)
		n -= wordBits
	}
	if n > 0 {
		s.WriteBits(0, uint(n))
	}
}

// Flush pads the write cursor forward to the next word boundary with zero
// bits and returns the number of bits padded.
func (s *Stream) Flush() uint {
	pad := uint((wordBits - s.wpos%wordBits) % wordBits)
	if pad > 0 {
		s.WriteBits(0, pad)
	}

	return pad
}

// AlignRead advances the read cursor to the next word boundary.
func (s *Stream) AlignRead() {
	s.rpos = (s.rpos + wordBits - 1) &^ uint64(wordBits-1)
}

// SeekWrite repositions the write cursor to the given bit offset.
// Subsequent writes merge into existing content without disturbing
// neighboring bits.
func (s *Stream) SeekWrite(bitpos uint64) {
	s.wpos = bitpos
}

// SeekRead repositions the read cursor to the given bit offset.
func (s *Stream) SeekRead(bitpos uint64) {
	s.rpos = bitpos
}

// Rewind resets both cursors to the start of the stream. The stream contents
// are unchanged.
func (s *Stream) Rewind() {
	s.wpos = 0
	s.rpos = 0
}

// Reset empties the stream and clears any latched error. Allocated capacity
// is retained for reuse.
func (s *Stream) Reset() {
	if s.fixed {
		for i := range s.words {
			s.words[i] = 0
		}
	} else {
		s.words = s.words[:0]
	}
	s.wpos = 0
	s.rpos = 0
	s.size = 0
	s.err = nil
}

// WritePos returns the write cursor position in bits.
func (s *Stream) WritePos() uint64 { return s.wpos }

// ReadPos returns the read cursor position in bits.
func (s *Stream) ReadPos() uint64 { return s.rpos }

// Size returns the number of bits written, measured as the high-water mark
// over all writes regardless of the current cursor position.
func (s *Stream) Size() uint64 { return s.size }

// Len returns the serialized length in bytes.
func (s *Stream) Len() int {
	return int((s.size + 7) / 8)
}

// Err returns the latched overflow error of a fixed-capacity stream, or nil.
func (s *Stream) Err() error { return s.err }

// Clone returns a stream sharing this stream's storage with freshly rewound,
// independent cursors. It exists for concurrent readers: multiple clones may
// decode disjoint or overlapping ranges in parallel as long as no writer is
// active. Writing through a clone while the parent grows is not supported.
func (s *Stream) Clone() *Stream {
	return &Stream{
		words: s.words,
		size:  s.size,
		fixed: true,
	}
}

// Bytes serializes the stream contents: little-endian words, truncated to
// Len() bytes. The returned slice is freshly allocated and owned by the
// caller.
func (s *Stream) Bytes() []byte {
	n := s.Len()
	out := make([]byte, n)
	for i := range out {
		out[i] = byte(s.words[i>>3] >> ((i & 7) * 8))
	}

	return out
}
