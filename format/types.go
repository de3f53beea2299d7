package format

type (
	// VersionTag identifies which on-disk layout era produced a store group.
	VersionTag uint8

	// FormatTag identifies the frame layout of the features dataset.
	FormatTag uint8

	// CompressionType selects the chunk compression codec used by the
	// filesystem store backend.
	CompressionType uint8
)

const (
	VersionLegacy  VersionTag = 0x1 // VersionLegacy is the pre-versioned layout (no version marker, or "0.1").
	VersionV1      VersionTag = 0x2 // VersionV1 is the "1.0" layout.
	VersionCurrent VersionTag = 0x3 // VersionCurrent is the "1.1" layout written by this library.

	FormatDense  FormatTag = 0x1 // FormatDense stores one fixed-width feature vector per frame.
	FormatSparse FormatTag = 0x2 // FormatSparse stores per-frame dimensionality side arrays.

	CompressionNone CompressionType = 0x1 // CompressionNone represents no compression.
	CompressionZstd CompressionType = 0x2 // CompressionZstd represents Zstandard compression.
	CompressionS2   CompressionType = 0x3 // CompressionS2 represents S2 compression.
	CompressionLZ4  CompressionType = 0x4 // CompressionLZ4 represents LZ4 compression.
)

// Version marker attribute values as stored in the "version" group attribute.
// An absent marker implies the legacy layout.
const (
	VersionMarkerLegacy  = "0.1"
	VersionMarkerV1      = "1.0"
	VersionMarkerCurrent = "1.1"
)

// Format tag attribute values as stored in the "format" group attribute.
const (
	FormatMarkerDense  = "dense"
	FormatMarkerSparse = "sparse"
)

// ParseVersion maps a version marker string to its VersionTag.
// The empty string maps to VersionLegacy, matching stores written before
// the marker existed. Unknown markers return false.
func ParseVersion(marker string) (VersionTag, bool) {
	switch marker {
	case "", VersionMarkerLegacy:
		return VersionLegacy, true
	case VersionMarkerV1:
		return VersionV1, true
	case VersionMarkerCurrent:
		return VersionCurrent, true
	default:
		return 0, false
	}
}

// ParseFormat maps a format marker string to its FormatTag.
// Unknown markers return false.
func ParseFormat(marker string) (FormatTag, bool) {
	switch marker {
	case FormatMarkerDense:
		return FormatDense, true
	case FormatMarkerSparse:
		return FormatSparse, true
	default:
		return 0, false
	}
}

func (v VersionTag) String() string {
	switch v {
	case VersionLegacy:
		return "Legacy"
	case VersionV1:
		return "V1"
	case VersionCurrent:
		return "Current"
	default:
		return "Unknown"
	}
}

// Marker returns the attribute value written for this version tag.
func (v VersionTag) Marker() string {
	switch v {
	case VersionLegacy:
		return VersionMarkerLegacy
	case VersionV1:
		return VersionMarkerV1
	case VersionCurrent:
		return VersionMarkerCurrent
	default:
		return ""
	}
}

func (f FormatTag) String() string {
	switch f {
	case FormatDense:
		return "Dense"
	case FormatSparse:
		return "Sparse"
	default:
		return "Unknown"
	}
}

// Marker returns the attribute value written for this format tag.
func (f FormatTag) Marker() string {
	switch f {
	case FormatDense:
		return FormatMarkerDense
	case FormatSparse:
		return FormatMarkerSparse
	default:
		return ""
	}
}

func (c CompressionType) String() string {
	switch c {
	case CompressionNone:
		return "None"
	case CompressionZstd:
		return "Zstd"
	case CompressionS2:
		return "S2"
	case CompressionLZ4:
		return "LZ4"
	default:
		return "Unknown"
	}
}
