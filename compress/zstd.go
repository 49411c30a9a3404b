package compress

// ZstdCompressor provides Zstandard compression, the ratio-oriented choice
// for archival containers and network transfer of compressed fields.
//
// Two implementations exist behind build tags: the default pure-Go
// klauspost/compress encoder, and valyala/gozstd cgo bindings selected by
// building with -tags zstdcgo. Both produce interchangeable zstd frames.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd codec with default settings.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
