package compress

import "github.com/klauspost/compress/s2"

// S2Compressor wraps S2, the Snappy-compatible format. It sits between LZ4
// and Zstd on the speed/ratio curve and needs no codec state, so instances
// are stateless values.
type S2Compressor struct{}

var _ Codec = (*S2Compressor)(nil)

// NewS2Compressor creates a new S2 compressor.
func NewS2Compressor() S2Compressor {
	return S2Compressor{}
}

// Compress compresses data in S2 block format. Returns nil for empty input.
func (c S2Compressor) Compress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Encode(nil, data), nil
}

// Decompress decompresses an S2 block; the format carries the decoded
// length, so no buffer sizing loop is needed.
func (c S2Compressor) Decompress(data []byte) ([]byte, error) {
	if len(data) == 0 {
		return nil, nil
	}

	return s2.Decode(nil, data)
}
