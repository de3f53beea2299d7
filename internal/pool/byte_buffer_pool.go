// Package pool provides reusable byte buffers for chunk assembly and file
// header serialization in the filesystem store backend.
package pool

import "sync"

const (
	// ChunkBufferDefaultSize is the initial capacity of pooled buffers,
	// sized for a typical compressed chunk plus its framing.
	ChunkBufferDefaultSize = 64 * 1024

	// ChunkBufferMaxThreshold caps the capacity of buffers returned to the
	// pool; anything larger is dropped to avoid retaining oversized
	// allocations.
	ChunkBufferMaxThreshold = 4 * 1024 * 1024
)

// ByteBuffer is a growable byte slice with an exported backing array so
// callers can append to it directly.
type ByteBuffer struct {
	B []byte
}

// Bytes returns the underlying byte slice.
func (bb *ByteBuffer) Bytes() []byte {
	return bb.B
}

// Len returns the length of the buffer.
func (bb *ByteBuffer) Len() int {
	return len(bb.B)
}

// Reset empties the buffer but retains its allocation for reuse.
func (bb *ByteBuffer) Reset() {
	bb.B = bb.B[:0]
}

// Write appends data to the buffer. It implements io.Writer and never fails.
func (bb *ByteBuffer) Write(data []byte) (int, error) {
	bb.B = append(bb.B, data...)
	return len(data), nil
}

var chunkBufferPool = sync.Pool{
	New: func() any {
		return &ByteBuffer{B: make([]byte, 0, ChunkBufferDefaultSize)}
	},
}

// GetChunkBuffer retrieves an empty buffer from the pool.
func GetChunkBuffer() *ByteBuffer {
	bb, _ := chunkBufferPool.Get().(*ByteBuffer)
	return bb
}

// PutChunkBuffer returns a buffer to the pool for reuse.
// Buffers above ChunkBufferMaxThreshold are discarded.
func PutChunkBuffer(bb *ByteBuffer) {
	if bb == nil || cap(bb.B) > ChunkBufferMaxThreshold {
		return
	}

	bb.Reset()
	chunkBufferPool.Put(bb)
}
