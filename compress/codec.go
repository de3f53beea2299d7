// Package compress provides the chunk compression codecs used by the
// filesystem store backend.
//
// Dataset chunks are compressed independently, so any codec here must be a
// self-contained block format: compress a payload, get a payload back.
// Callers own the returned slices; inputs are never modified.
package compress

import (
	"fmt"

	"github.com/arloliu/featstore/format"
)

// Compressor compresses one chunk payload.
type Compressor interface {
	// Compress compresses data and returns a newly allocated result.
	// Internal buffers may be reused across calls.
	Compress(data []byte) ([]byte, error)
}

// Decompressor decompresses one chunk payload.
type Decompressor interface {
	// Decompress decompresses data previously produced by the matching
	// Compressor. Corrupted or mismatched input returns an error.
	Decompress(data []byte) ([]byte, error)
}

// Codec combines compression and decompression for one algorithm.
type Codec interface {
	Compressor
	Decompressor
}

// CreateCodec returns the codec for the given compression type.
// The target string names the caller's use in error messages.
func CreateCodec(compressionType format.CompressionType, target string) (Codec, error) {
	switch compressionType {
	case format.CompressionNone:
		return NewNoOpCompressor(), nil
	case format.CompressionZstd:
		return NewZstdCompressor(), nil
	case format.CompressionS2:
		return NewS2Compressor(), nil
	case format.CompressionLZ4:
		return NewLZ4Compressor(), nil
	default:
		return nil, fmt.Errorf("invalid %s compression: %s", target, compressionType)
	}
}
