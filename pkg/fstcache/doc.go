// Package fstcache provides a compact, read-only, memory-mapped key-value
// store.
//
// A store is two companion files: an index (a finite-state transducer
// mapping byte keys to value offsets) and a value blob (the raw
// concatenation of all values in key order). [Builder] produces the pair
// from a sorted key stream; [Cache] memory-maps the pair and resolves keys
// in time proportional to the key length, not the store size.
//
// # Building
//
//	b, err := fstcache.CreateFiles("store.idx", "store.val")
//	if err != nil { ... }
//	b.Insert([]byte("cat"), catBytes)
//	b.Insert([]byte("dog"), dogBytes)
//	err = b.Finish()
//
// Keys must be inserted in strictly ascending lexicographic order. A value
// may also be assembled from chunks with [Builder.AppendValueBytes] followed
// by [Builder.CommitEntry].
//
// # Reading
//
//	c, err := fstcache.MapPaths("store.idx", "store.val")
//	if err != nil { ... }
//	defer c.Close()
//
//	off, found, err := c.GetOffset([]byte("dog"))
//	value := c.ValueBytes()[off : off+12]
//
// The store records offsets, not lengths: a value's length is the caller's
// business, inferred from the encoding inside the value bytes or from the
// gap to the next key's offset.
//
// # Concurrency
//
// A Cache holds no mutable state after construction; concurrent readers on
// one Cache are safe. A Builder is exclusively owned and not safe for
// concurrent use.
//
// # Error Handling
//
// Errors fall into two classes, checked with [errors.Is]:
//
//   - [ErrIndex]: the index codec failed (malformed index on open,
//     out-of-order or duplicate key on insert).
//   - [ErrIO]: the underlying byte I/O failed (open, write, flush, mmap),
//     with the OS error preserved in the chain.
//
// Width-contract violations on [Cache.First] and [Cache.LastLE] panic: they
// indicate a size-discipline bug in the caller, not a runtime condition.
package fstcache
