package index

import "strings"

// Legacy stores packed all item names into a single flat array of Unicode
// code points. Inside the packed string, "/\" separates names and "/-"
// escapes a literal "/" inside a name. The transform below reproduces the
// historical decoder byte for byte; files written by that era depend on it.
const (
	legacyNameSeparator = "/\\"
	legacyPathEscape    = "/-"
)

// DecodeLegacyNames recovers the item name list from a legacy packed
// code-point array.
//
// The code points are concatenated into one string, every "/-" escape is
// replaced with "/", and the result is split on the "/\" separator.
func DecodeLegacyNames(codepoints []int64) []string {
	var sb strings.Builder
	sb.Grow(len(codepoints))
	for _, c := range codepoints {
		sb.WriteRune(rune(c))
	}

	packed := strings.ReplaceAll(sb.String(), legacyPathEscape, "/")

	return strings.Split(packed, legacyNameSeparator)
}

// EncodeLegacyNames packs item names into the legacy code-point array, the
// exact inverse of DecodeLegacyNames for names free of the reserved "/-"
// and "/\" sequences.
func EncodeLegacyNames(names []string) []int64 {
	escaped := make([]string, len(names))
	for i, n := range names {
		escaped[i] = strings.ReplaceAll(n, "/", legacyPathEscape)
	}

	packed := strings.Join(escaped, legacyNameSeparator)
	out := make([]int64, 0, len(packed))
	for _, r := range packed {
		out = append(out, int64(r))
	}

	return out
}
