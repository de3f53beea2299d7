// Package featstore stores many variable-length sequences of numeric feature
// vectors, one sequence per named item, concatenated into a single on-disk
// store alongside a parallel per-frame timestamp array, and answers item- and
// time-range queries without loading the frame data into memory.
//
// # Data Model
//
// An item is a named, ordered run of frames; a frame is one feature vector
// occupying one row of the concatenated store. A cumulative index holds one
// entry per item: the offset of the item's last frame. A times array holds
// one timestamp per frame, non-decreasing within each item.
//
// # Writing
//
//	w, err := featstore.CreateWriter("corpus.fst", "mfcc",
//	    featstore.WithCompression(format.CompressionZstd),
//	)
//	err = w.Write(featstore.Item{
//	    Name:     "rec-001",
//	    Times:    []float64{0.01, 0.02, 0.03},
//	    Features: [][]float64{{1, 2}, {3, 4}, {5, 6}},
//	})
//	err = w.Close()
//
// Writing the same item name again in the immediately following write call
// continues that item instead of starting a new one.
//
// # Reading
//
//	r, err := featstore.OpenReader("corpus.fst", "mfcc")
//	data, err := r.Read(
//	    featstore.FromItem("rec-001"),
//	    featstore.FromTime(0.02),
//	)
//
// A reader loads the full index once at open time and resolves every query
// against that immutable snapshot. Three on-disk layout eras are readable
// (Legacy, V1 and Current, probed from the group's version marker); writers
// always produce the Current layout.
//
// # Concurrency
//
// Neither the sessions nor the backing store are safe for concurrent use,
// and writes are not atomic across processes. Callers must serialize all
// access to a store: one writer at a time, readers excluded during writes.
package featstore
