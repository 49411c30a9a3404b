package pool

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestByteBuffer_BasicOperations(t *testing.T) {
	bb := NewByteBuffer(64)

	require.Equal(t, 0, bb.Len())
	require.GreaterOrEqual(t, bb.Cap(), 64)

	bb.MustWrite([]byte("hello"))
	require.Equal(t, 5, bb.Len())
	require.Equal(t, []byte("hello"), bb.Bytes())

	bb.Reset()
	require.Equal(t, 0, bb.Len())
	require.GreaterOrEqual(t, bb.Cap(), 64)
}

func TestByteBuffer_ExtendOrGrow(t *testing.T) {
	bb := NewByteBuffer(8)

	bb.ExtendOrGrow(16)
	require.Equal(t, 16, bb.Len())

	// Growing far past capacity must preserve existing content.
	copy(bb.B, []byte("0123456789abcdef"))
	bb.ExtendOrGrow(PayloadBufferDefaultSize)
	require.Equal(t, 16+PayloadBufferDefaultSize, bb.Len())
	require.Equal(t, []byte("0123456789abcdef"), bb.B[:16])
}

func TestByteBuffer_SliceAndSetLength(t *testing.T) {
	bb := NewByteBuffer(32)
	bb.MustWrite([]byte("abcdef"))

	require.Equal(t, []byte("cde"), bb.Slice(2, 5))

	bb.SetLength(3)
	require.Equal(t, []byte("abc"), bb.Bytes())

	require.Panics(t, func() { bb.Slice(-1, 2) })
	require.Panics(t, func() { bb.SetLength(-1) })
}

func TestByteBuffer_Write(t *testing.T) {
	bb := NewByteBuffer(8)

	n, err := bb.Write([]byte("payload"))
	require.NoError(t, err)
	require.Equal(t, 7, n)

	var out bytes.Buffer
	written, err := bb.WriteTo(&out)
	require.NoError(t, err)
	require.Equal(t, int64(7), written)
	require.Equal(t, "payload", out.String())
}

func TestByteBufferPool_GetPut(t *testing.T) {
	p := NewByteBufferPool(128, 1024)

	bb := p.Get()
	require.NotNil(t, bb)
	bb.MustWrite([]byte("data"))
	p.Put(bb)

	// Reused buffers come back empty.
	bb2 := p.Get()
	require.Equal(t, 0, bb2.Len())
	p.Put(bb2)

	// Nil put is a no-op.
	p.Put(nil)
}

func TestByteBufferPool_DiscardsOversized(t *testing.T) {
	p := NewByteBufferPool(16, 64)

	bb := p.Get()
	bb.Grow(1024)
	p.Put(bb) // exceeds threshold, must be dropped silently

	bb2 := p.Get()
	p.Put(bb2)
}

func TestGetPayloadBuffer(t *testing.T) {
	bb := GetPayloadBuffer()
	require.NotNil(t, bb)
	require.Equal(t, 0, bb.Len())

	bb.MustWrite([]byte{1, 2, 3})
	PutPayloadBuffer(bb)
}
