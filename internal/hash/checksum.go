// Package hash provides the checksum function used for chunk integrity.
package hash

import "github.com/cespare/xxhash/v2"

// Checksum computes the xxHash64 digest of data.
//
// xxHash64 is not cryptographic; it detects corruption, not tampering.
func Checksum(data []byte) uint64 {
	return xxhash.Sum64(data)
}
