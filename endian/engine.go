// Package endian provides byte order utilities for the fixed-width fields in
// featstore files.
//
// It combines the ByteOrder and AppendByteOrder interfaces of
// encoding/binary into one EndianEngine interface, so encoders can use the
// append forms without juggling two values. All store files are written
// little-endian; the engine abstraction keeps the file coders testable
// against both orders.
package endian

import "encoding/binary"

// EndianEngine combines ByteOrder and AppendByteOrder from encoding/binary.
// binary.LittleEndian and binary.BigEndian both satisfy it.
type EndianEngine interface {
	binary.ByteOrder
	binary.AppendByteOrder
}

// GetLittleEndianEngine returns the little-endian engine.
func GetLittleEndianEngine() EndianEngine {
	return binary.LittleEndian
}

// GetBigEndianEngine returns the big-endian engine.
func GetBigEndianEngine() EndianEngine {
	return binary.BigEndian
}
