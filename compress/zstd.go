package compress

// ZstdCompressor compresses chunk payloads with Zstandard. Best compression
// ratio of the available codecs; the right choice for archival stores read
// infrequently.
type ZstdCompressor struct{}

var _ Codec = (*ZstdCompressor)(nil)

// NewZstdCompressor creates a new Zstd codec.
//
// Two implementations exist behind this constructor: the pure-Go
// klauspost/compress encoder (default) and a cgo gozstd variant selected by
// build tag.
func NewZstdCompressor() ZstdCompressor {
	return ZstdCompressor{}
}
