// Package errs defines the sentinel errors shared across tetra packages.
//
// Callers can match them with errors.Is even when call sites wrap them with
// additional context via fmt.Errorf("%w: ...").
package errs

import "errors"

// Configuration errors. These are reported synchronously by the call that
// sets the invalid configuration and leave prior state untouched.
var (
	ErrInvalidScalarType = errors.New("invalid scalar type")
	ErrInvalidDimensions = errors.New("invalid dimensions")
	ErrInvalidRate       = errors.New("invalid rate")
	ErrInvalidPrecision  = errors.New("invalid precision")
	ErrInvalidTolerance  = errors.New("invalid tolerance")

	// ErrModeTypeMismatch is returned when a mode cannot be combined with the
	// field's scalar type, e.g. fixed-accuracy on integer data.
	ErrModeTypeMismatch = errors.New("mode not supported for scalar type")

	// ErrNotFixedRate is returned by operations that need O(1) block offsets,
	// such as random-access arrays and parallel compression.
	ErrNotFixedRate = errors.New("operation requires fixed-rate mode")

	ErrInvalidWorkerCount = errors.New("invalid worker count")
	ErrInvalidCacheSize   = errors.New("invalid cache size")
)

// Bitstream and codec errors.
var (
	// ErrStreamOverflow is returned when a write would exceed the capacity of
	// a fixed-capacity bitstream.
	ErrStreamOverflow = errors.New("bitstream capacity exceeded")

	// ErrTruncatedStream is returned when a serialized fixed-rate stream is
	// shorter than the footprint its field shape implies; decoding it would
	// silently read the missing tail as zeros.
	ErrTruncatedStream = errors.New("bitstream truncated")
)

// Container errors.
var (
	ErrInvalidMagic       = errors.New("invalid container magic")
	ErrInvalidCompression = errors.New("invalid compression type")
	ErrInvalidVersion     = errors.New("unsupported container version")
	ErrInvalidHeaderSize  = errors.New("invalid container header size")
	ErrChecksumMismatch   = errors.New("payload checksum mismatch")
	ErrTruncatedPayload   = errors.New("payload shorter than header declares")
)
