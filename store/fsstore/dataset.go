package fsstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"

	"github.com/arloliu/featstore/compress"
	"github.com/arloliu/featstore/endian"
	"github.com/arloliu/featstore/errs"
	"github.com/arloliu/featstore/format"
	"github.com/arloliu/featstore/internal/hash"
	"github.com/arloliu/featstore/internal/pool"
	"github.com/arloliu/featstore/store"
)

// Dataset file layout.
//
// <name>.ds: 24-byte header followed by sealed chunk payloads back to back.
//
//	magic u32 | version u8 | dtype u8 | compression u8 | reserved u8 |
//	width u32 | chunkRows u32 | reserved u64
//
// <name>.idx: chunk directory, rewritten wholly on every Flush.
//
//	magic u32 | version u8 | reserved u8[3] | rows u64 | chunkCount u32
//	then per chunk: offset u64 | storedLen u32 | rawLen u32 | rows u32 | checksum u64
//
// Every sealed chunk holds exactly chunkRows rows; only the final chunk in
// the directory may be partial, and it is reloaded into the in-memory tail
// when the dataset is reopened.
const (
	dsMagic  uint32 = 0x46534453 // "FSDS"
	idxMagic uint32 = 0x46534958 // "FSIX"

	fileVersion = 1

	dsHeaderSize  = 24
	idxHeaderSize = 20
	idxEntrySize  = 28
)

var engine = endian.GetLittleEndianEngine()

type chunkEntry struct {
	offset    uint64
	storedLen uint32
	rawLen    uint32
	rows      uint32
	checksum  uint64
}

// Dataset is a chunked, compressed, typed array backed by two files.
type Dataset struct {
	group       *Group
	name        string
	dtype       store.DType
	width       int
	chunkRows   int
	compression format.CompressionType
	codec       compress.Codec

	file     *os.File
	entries  []chunkEntry // sealed chunks, each exactly chunkRows rows
	writeOff uint64       // file offset of the next chunk to write
	tail     []byte       // encoded rows not yet sealed
	tailRows int
	rows     int64
	dirty    bool
}

var _ store.Dataset = (*Dataset)(nil)

func createDataset(g *Group, name string, dtype store.DType, width int) (*Dataset, error) {
	switch dtype {
	case store.Int64:
		if width != 1 {
			return nil, fmt.Errorf("int64 dataset %q must have width 1, got %d", name, width)
		}
	case store.Float64:
		if width < 1 {
			return nil, fmt.Errorf("float64 dataset %q must have width >= 1, got %d", name, width)
		}
	case store.String:
		width = 0
	default:
		return nil, fmt.Errorf("invalid dtype for dataset %q: %v", name, dtype)
	}

	codec, err := compress.CreateCodec(g.store.compression, "chunk")
	if err != nil {
		return nil, err
	}

	file, err := os.OpenFile(g.datasetPath(name), os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	if err != nil {
		return nil, err
	}

	ds := &Dataset{
		group:       g,
		name:        name,
		dtype:       dtype,
		width:       width,
		chunkRows:   g.store.chunkRows,
		compression: g.store.compression,
		codec:       codec,
		file:        file,
		writeOff:    dsHeaderSize,
	}

	if err := ds.writeHeader(); err != nil {
		file.Close()
		return nil, err
	}
	if err := ds.writeIndex(nil); err != nil {
		file.Close()
		return nil, err
	}

	return ds, nil
}

func openDataset(g *Group, name string) (*Dataset, error) {
	flag := os.O_RDWR
	if g.store.readOnly {
		flag = os.O_RDONLY
	}

	file, err := os.OpenFile(g.datasetPath(name), flag, 0o644)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %q in group %q", errs.ErrDatasetNotFound, name, g.name)
		}

		return nil, err
	}

	ds := &Dataset{group: g, name: name, file: file}
	if err := ds.readHeader(); err != nil {
		file.Close()
		return nil, err
	}

	ds.codec, err = compress.CreateCodec(ds.compression, "chunk")
	if err != nil {
		file.Close()
		return nil, err
	}

	if err := ds.readIndex(); err != nil {
		file.Close()
		return nil, err
	}

	return ds, nil
}

func (d *Dataset) writeHeader() error {
	buf := pool.GetChunkBuffer()
	defer pool.PutChunkBuffer(buf)

	buf.B = engine.AppendUint32(buf.B, dsMagic)
	buf.B = append(buf.B, fileVersion, byte(d.dtype), byte(d.compression), 0)
	buf.B = engine.AppendUint32(buf.B, uint32(d.width))
	buf.B = engine.AppendUint32(buf.B, uint32(d.chunkRows))
	buf.B = engine.AppendUint64(buf.B, 0)

	_, err := d.file.WriteAt(buf.B, 0)

	return err
}

func (d *Dataset) readHeader() error {
	hdr := make([]byte, dsHeaderSize)
	if _, err := d.file.ReadAt(hdr, 0); err != nil {
		return fmt.Errorf("%w: dataset %q header: %v", errs.ErrFormat, d.name, err)
	}

	if engine.Uint32(hdr[0:4]) != dsMagic || hdr[4] != fileVersion {
		return fmt.Errorf("%w: dataset %q has an unrecognized header", errs.ErrFormat, d.name)
	}

	d.dtype = store.DType(hdr[5])
	d.compression = format.CompressionType(hdr[6])
	d.width = int(engine.Uint32(hdr[8:12]))
	d.chunkRows = int(engine.Uint32(hdr[12:16]))
	if d.chunkRows <= 0 {
		return fmt.Errorf("%w: dataset %q has invalid chunk size %d", errs.ErrFormat, d.name, d.chunkRows)
	}

	return nil
}

// writeIndex rewrites the chunk directory, appending tailEntry when the tail
// was flushed as a partial chunk.
func (d *Dataset) writeIndex(tailEntry *chunkEntry) error {
	count := len(d.entries)
	if tailEntry != nil {
		count++
	}

	buf := pool.GetChunkBuffer()
	defer pool.PutChunkBuffer(buf)

	buf.B = engine.AppendUint32(buf.B, idxMagic)
	buf.B = append(buf.B, fileVersion, 0, 0, 0)
	buf.B = engine.AppendUint64(buf.B, uint64(d.rows))
	buf.B = engine.AppendUint32(buf.B, uint32(count))

	appendEntry := func(e chunkEntry) {
		buf.B = engine.AppendUint64(buf.B, e.offset)
		buf.B = engine.AppendUint32(buf.B, e.storedLen)
		buf.B = engine.AppendUint32(buf.B, e.rawLen)
		buf.B = engine.AppendUint32(buf.B, e.rows)
		buf.B = engine.AppendUint64(buf.B, e.checksum)
	}
	for _, e := range d.entries {
		appendEntry(e)
	}
	if tailEntry != nil {
		appendEntry(*tailEntry)
	}

	return writeFileAtomic(d.group.indexPath(d.name), buf.B)
}

func (d *Dataset) readIndex() error {
	data, err := os.ReadFile(d.group.indexPath(d.name))
	if err != nil {
		return fmt.Errorf("%w: dataset %q chunk directory: %v", errs.ErrFormat, d.name, err)
	}
	if len(data) < idxHeaderSize || engine.Uint32(data[0:4]) != idxMagic || data[4] != fileVersion {
		return fmt.Errorf("%w: dataset %q has an unrecognized chunk directory", errs.ErrFormat, d.name)
	}

	d.rows = int64(engine.Uint64(data[8:16]))
	count := int(engine.Uint32(data[16:20]))
	if len(data) != idxHeaderSize+count*idxEntrySize {
		return fmt.Errorf("%w: dataset %q chunk directory is truncated", errs.ErrFormat, d.name)
	}

	d.entries = make([]chunkEntry, 0, count)
	off := idxHeaderSize
	for i := 0; i < count; i++ {
		e := chunkEntry{
			offset:    engine.Uint64(data[off : off+8]),
			storedLen: engine.Uint32(data[off+8 : off+12]),
			rawLen:    engine.Uint32(data[off+12 : off+16]),
			rows:      engine.Uint32(data[off+16 : off+20]),
			checksum:  engine.Uint64(data[off+20 : off+28]),
		}
		// Only the final chunk may hold fewer than chunkRows rows.
		if i < count-1 && int(e.rows) != d.chunkRows {
			return fmt.Errorf("%w: dataset %q has a short interior chunk", errs.ErrFormat, d.name)
		}
		d.entries = append(d.entries, e)
		off += idxEntrySize
	}

	d.writeOff = dsHeaderSize
	if len(d.entries) > 0 {
		last := d.entries[len(d.entries)-1]
		d.writeOff = last.offset + uint64(last.storedLen)

		// A partial final chunk becomes the in-memory tail so appends can
		// keep filling it.
		if int(last.rows) < d.chunkRows {
			raw, err := d.readChunk(last)
			if err != nil {
				return err
			}
			d.tail = append(d.tail, raw...)
			d.tailRows = int(last.rows)
			d.writeOff = last.offset
			d.entries = d.entries[:len(d.entries)-1]
		}
	}

	sealed := int64(len(d.entries)) * int64(d.chunkRows)
	if d.rows != sealed+int64(d.tailRows) {
		return fmt.Errorf("%w: dataset %q row count %d does not match its chunks", errs.ErrFormat, d.name, d.rows)
	}

	return nil
}

// Name returns the dataset name.
func (d *Dataset) Name() string {
	return d.name
}

// DType returns the element type.
func (d *Dataset) DType() store.DType {
	return d.dtype
}

// Width returns the number of columns per row (0 for String datasets).
func (d *Dataset) Width() int {
	return d.width
}

// Rows returns the current number of rows.
func (d *Dataset) Rows() int64 {
	return d.rows
}

func (d *Dataset) rowSize() int {
	return 8 * d.width
}

// byteLenOfRows returns the encoded byte length of the first n rows of raw.
func (d *Dataset) byteLenOfRows(raw []byte, n int) (int, error) {
	if d.dtype != store.String {
		return n * d.rowSize(), nil
	}

	off := 0
	for i := 0; i < n; i++ {
		l, sz := binary.Uvarint(raw[off:])
		if sz <= 0 {
			return 0, fmt.Errorf("%w: dataset %q has a corrupt string row", errs.ErrFormat, d.name)
		}
		off += sz + int(l)
	}

	return off, nil
}

// AppendInt64 appends values to an Int64 dataset.
func (d *Dataset) AppendInt64(vals []int64) error {
	if err := d.checkAppend(store.Int64); err != nil {
		return err
	}

	for _, v := range vals {
		d.tail = engine.AppendUint64(d.tail, uint64(v))
	}

	return d.noteAppend(len(vals))
}

// AppendFloat64 appends rows to a Float64 dataset. The length of vals must
// be a multiple of the dataset width.
func (d *Dataset) AppendFloat64(vals []float64) error {
	if err := d.checkAppend(store.Float64); err != nil {
		return err
	}
	if len(vals)%d.width != 0 {
		return fmt.Errorf("%w: %d values do not fill rows of width %d", errs.ErrDTypeMismatch, len(vals), d.width)
	}

	for _, v := range vals {
		d.tail = engine.AppendUint64(d.tail, floatBits(v))
	}

	return d.noteAppend(len(vals) / d.width)
}

// AppendStrings appends values to a String dataset.
func (d *Dataset) AppendStrings(vals []string) error {
	if err := d.checkAppend(store.String); err != nil {
		return err
	}

	for _, v := range vals {
		d.tail = binary.AppendUvarint(d.tail, uint64(len(v)))
		d.tail = append(d.tail, v...)
	}

	return d.noteAppend(len(vals))
}

func (d *Dataset) checkAppend(want store.DType) error {
	if d.group.store.readOnly {
		return fmt.Errorf("%w: cannot append to dataset %q", errs.ErrReadOnly, d.name)
	}
	if d.dtype != want {
		return fmt.Errorf("%w: dataset %q is %s, not %s", errs.ErrDTypeMismatch, d.name, d.dtype, want)
	}

	return nil
}

func (d *Dataset) noteAppend(n int) error {
	d.tailRows += n
	d.rows += int64(n)
	d.dirty = true

	return d.sealFullChunks()
}

// sealFullChunks compresses and writes every complete chunk sitting in the
// tail buffer.
func (d *Dataset) sealFullChunks() error {
	for d.tailRows >= d.chunkRows {
		boundary, err := d.byteLenOfRows(d.tail, d.chunkRows)
		if err != nil {
			return err
		}

		if err := d.sealChunk(d.tail[:boundary]); err != nil {
			return err
		}

		n := copy(d.tail, d.tail[boundary:])
		d.tail = d.tail[:n]
		d.tailRows -= d.chunkRows
	}

	return nil
}

func (d *Dataset) sealChunk(raw []byte) error {
	stored, err := d.codec.Compress(raw)
	if err != nil {
		return err
	}

	if _, err := d.file.WriteAt(stored, int64(d.writeOff)); err != nil {
		return err
	}

	d.entries = append(d.entries, chunkEntry{
		offset:    d.writeOff,
		storedLen: uint32(len(stored)),
		rawLen:    uint32(len(raw)),
		rows:      uint32(d.chunkRows),
		checksum:  hash.Checksum(stored),
	})
	d.writeOff += uint64(len(stored))

	return nil
}

// Truncate discards all rows at index >= rows.
func (d *Dataset) Truncate(rows int64) error {
	if d.group.store.readOnly {
		return fmt.Errorf("%w: cannot truncate dataset %q", errs.ErrReadOnly, d.name)
	}
	if rows < 0 || rows > d.rows {
		return fmt.Errorf("cannot truncate dataset %q to %d rows, have %d", d.name, rows, d.rows)
	}
	if rows == d.rows {
		return nil
	}

	sealed := int64(len(d.entries)) * int64(d.chunkRows)
	if rows >= sealed {
		keep := int(rows - sealed)
		boundary, err := d.byteLenOfRows(d.tail, keep)
		if err != nil {
			return err
		}
		d.tail = d.tail[:boundary]
		d.tailRows = keep
	} else {
		// The cut lands inside a sealed chunk: that chunk becomes the new
		// tail and everything after it is dropped.
		ci := rows / int64(d.chunkRows)
		raw, err := d.readChunk(d.entries[ci])
		if err != nil {
			return err
		}
		keep := int(rows - ci*int64(d.chunkRows))
		boundary, err := d.byteLenOfRows(raw, keep)
		if err != nil {
			return err
		}
		d.tail = append(d.tail[:0], raw[:boundary]...)
		d.tailRows = keep
		d.writeOff = d.entries[ci].offset
		d.entries = d.entries[:ci]
	}

	d.rows = rows
	d.dirty = true

	return nil
}

// ReadInt64 reads rows [start, end) from an Int64 dataset.
func (d *Dataset) ReadInt64(start, end int64) ([]int64, error) {
	if err := d.checkRead(store.Int64, start, end); err != nil {
		return nil, err
	}

	raw, err := d.readRowBytes(start, end)
	if err != nil {
		return nil, err
	}

	out := make([]int64, end-start)
	for i := range out {
		out[i] = int64(engine.Uint64(raw[i*8 : i*8+8]))
	}

	return out, nil
}

// ReadFloat64 reads rows [start, end) from a Float64 dataset, returned flat
// in row-major order.
func (d *Dataset) ReadFloat64(start, end int64) ([]float64, error) {
	if err := d.checkRead(store.Float64, start, end); err != nil {
		return nil, err
	}

	raw, err := d.readRowBytes(start, end)
	if err != nil {
		return nil, err
	}

	out := make([]float64, int(end-start)*d.width)
	for i := range out {
		out[i] = floatFromBits(engine.Uint64(raw[i*8 : i*8+8]))
	}

	return out, nil
}

// ReadStrings reads rows [start, end) from a String dataset.
func (d *Dataset) ReadStrings(start, end int64) ([]string, error) {
	if err := d.checkRead(store.String, start, end); err != nil {
		return nil, err
	}

	out := make([]string, 0, end-start)
	for ci := start / int64(d.chunkRows); ci*int64(d.chunkRows) < end; ci++ {
		raw, first, last, err := d.chunkRowSpan(ci, start, end)
		if err != nil {
			return nil, err
		}

		skip, err := d.byteLenOfRows(raw, first)
		if err != nil {
			return nil, err
		}
		off := skip
		for i := first; i < last; i++ {
			l, sz := binary.Uvarint(raw[off:])
			if sz <= 0 {
				return nil, fmt.Errorf("%w: dataset %q has a corrupt string row", errs.ErrFormat, d.name)
			}
			off += sz
			out = append(out, string(raw[off:off+int(l)]))
			off += int(l)
		}
	}

	return out, nil
}

func (d *Dataset) checkRead(want store.DType, start, end int64) error {
	if d.dtype != want {
		return fmt.Errorf("%w: dataset %q is %s, not %s", errs.ErrDTypeMismatch, d.name, d.dtype, want)
	}
	if start < 0 || end < start || end > d.rows {
		return fmt.Errorf("row range [%d, %d) out of bounds for dataset %q with %d rows", start, end, d.name, d.rows)
	}

	return nil
}

// readRowBytes gathers the encoded bytes of rows [start, end) of a
// fixed-width dataset across its chunks and the tail.
func (d *Dataset) readRowBytes(start, end int64) ([]byte, error) {
	rowSize := d.rowSize()
	out := make([]byte, 0, (end-start)*int64(rowSize))

	for ci := start / int64(d.chunkRows); ci*int64(d.chunkRows) < end; ci++ {
		raw, first, last, err := d.chunkRowSpan(ci, start, end)
		if err != nil {
			return nil, err
		}
		out = append(out, raw[first*rowSize:last*rowSize]...)
	}

	return out, nil
}

// chunkRowSpan returns the raw bytes of chunk ci together with the local row
// range [first, last) that intersects the global range [start, end). Chunk
// indexes beyond the sealed entries address the tail.
func (d *Dataset) chunkRowSpan(ci, start, end int64) (raw []byte, first, last int, err error) {
	chunkStart := ci * int64(d.chunkRows)

	if ci < int64(len(d.entries)) {
		raw, err = d.readChunk(d.entries[ci])
		if err != nil {
			return nil, 0, 0, err
		}
		chunkEnd := chunkStart + int64(d.chunkRows)
		first, last = localSpan(chunkStart, chunkEnd, start, end)

		return raw, first, last, nil
	}

	chunkEnd := chunkStart + int64(d.tailRows)
	first, last = localSpan(chunkStart, chunkEnd, start, end)

	return d.tail, first, last, nil
}

func localSpan(chunkStart, chunkEnd, start, end int64) (first, last int) {
	lo, hi := start, end
	if lo < chunkStart {
		lo = chunkStart
	}
	if hi > chunkEnd {
		hi = chunkEnd
	}

	return int(lo - chunkStart), int(hi - chunkStart)
}

// readChunk loads, verifies and decompresses one sealed chunk.
func (d *Dataset) readChunk(e chunkEntry) ([]byte, error) {
	stored := make([]byte, e.storedLen)
	if _, err := d.file.ReadAt(stored, int64(e.offset)); err != nil {
		return nil, fmt.Errorf("%w: dataset %q chunk at %d: %v", errs.ErrFormat, d.name, e.offset, err)
	}

	if hash.Checksum(stored) != e.checksum {
		return nil, fmt.Errorf("%w: dataset %q chunk at %d", errs.ErrChecksumMismatch, d.name, e.offset)
	}

	raw, err := d.codec.Decompress(stored)
	if err != nil {
		return nil, fmt.Errorf("%w: dataset %q chunk at %d: %v", errs.ErrFormat, d.name, e.offset, err)
	}
	if len(raw) != int(e.rawLen) {
		return nil, fmt.Errorf("%w: dataset %q chunk at %d decompressed to %d bytes, expected %d",
			errs.ErrFormat, d.name, e.offset, len(raw), e.rawLen)
	}

	return raw, nil
}

// Flush persists the tail as a partial chunk, trims the data file and
// rewrites the chunk directory.
func (d *Dataset) Flush() error {
	if !d.dirty {
		return nil
	}

	fileEnd := d.writeOff
	var tailEntry *chunkEntry
	if d.tailRows > 0 {
		stored, err := d.codec.Compress(d.tail)
		if err != nil {
			return err
		}
		if _, err := d.file.WriteAt(stored, int64(d.writeOff)); err != nil {
			return err
		}
		tailEntry = &chunkEntry{
			offset:    d.writeOff,
			storedLen: uint32(len(stored)),
			rawLen:    uint32(len(d.tail)),
			rows:      uint32(d.tailRows),
			checksum:  hash.Checksum(stored),
		}
		fileEnd += uint64(len(stored))
	}

	if err := d.file.Truncate(int64(fileEnd)); err != nil {
		return err
	}
	if err := d.file.Sync(); err != nil {
		return err
	}

	if err := d.writeIndex(tailEntry); err != nil {
		return err
	}
	d.dirty = false

	return nil
}

func (d *Dataset) close() error {
	return d.file.Close()
}

func floatBits(v float64) uint64 {
	return math.Float64bits(v)
}

func floatFromBits(b uint64) float64 {
	return math.Float64frombits(b)
}
