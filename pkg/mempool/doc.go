// Package mempool implements a chunked, fixed-size element allocator with an
// embedded free list. It is designed for workloads that allocate and release
// many equally-sized objects, amortizing allocation cost across large chunks
// and reusing freed slots with zero per-element overhead.
//
// Architecture
//
// A Pool owns an ordered list of chunks. Each chunk is a single contiguous
// byte buffer holding a fixed number of element slots. Unused slots are
// threaded into a singly-linked free list whose link words live inside the
// slots themselves, so the pool carries no per-element headers and no
// parallel bookkeeping structures.
//
// Core Types:
//
//   - Pool: the allocator instance for one element size
//   - Config: creation-time configuration (element size, chunk capacity, flags)
//   - Iterator: forward cursor over live elements
//   - Allocator: pluggable backing memory provider
//   - TypedPool[T]: generic facade returning *T instead of []byte
//
// Free/Live Tracking
//
// When Config.SafeIteration is set, every free slot carries a sentinel word
// that distinguishes it from live data. This enables iteration, element
// lookup and table export without a separate liveness bitmap. Pools created
// without the flag are smaller-overhead but refuse all iteration APIs.
//
// Reuse Policy
//
// Freed slots are pushed onto the head of the free list (LIFO), so the most
// recently released memory is handed out first. When the last live element
// is freed, the pool defragments: every chunk except the first is released
// and the free list is rebuilt over the retained chunk in ascending slot
// order. A fully drained pool therefore always occupies exactly one chunk.
//
// Usage
//
//	p := mempool.New(mempool.Config{
//		ElementSize:   64,
//		ChunkCapacity: 512,
//		SafeIteration: true,
//	})
//	defer p.Close()
//
//	elem := p.Alloc()
//	// ... write element payload into elem ...
//	p.Free(elem)
//
// Iterating live elements:
//
//	it := p.NewIterator()
//	for elem, ok := it.Next(); ok; elem, ok = it.Next() {
//		process(elem)
//	}
//
// Concurrency
//
// A Pool is deliberately not safe for concurrent use. Callers that share a
// pool across goroutines must serialize all operations externally; the
// intended pattern is one pool per worker.
package mempool
