// Package compress provides the outer compression codecs applied to
// serialized container payloads.
//
// The block codec already squeezes the numeric content; outer compression
// targets what it leaves behind, mainly the zero padding of fixed-rate
// streams and cross-block redundancy of very smooth fields. Reversible and
// fixed-accuracy payloads from structured data often shrink a further 1.2-2x.
//
// Four algorithms are supported, selected by format.CompressionType:
//
//   - None: pass-through, for payloads that are effectively incompressible
//     (high-rate or noisy data)
//   - Zstd: best ratio, for archival and network transfer
//   - S2: balanced speed and ratio
//   - LZ4: fastest decompression, for read-heavy stores
//
// Zstd uses the pure-Go klauspost implementation by default; building with
// the zstdcgo tag switches to the cgo gozstd bindings, which compress
// roughly twice as fast at the same ratio.
//
// All codecs are safe for concurrent use.
package compress
