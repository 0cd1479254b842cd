package mempool

import "unsafe"

// TypedPool is a generic facade over Pool that hands out *T instead of raw
// slot bytes. The element size is taken from T's in-memory size.
//
// T must not contain Go pointers: the backing chunks are plain byte buffers
// that the garbage collector does not scan, and free-list link words are
// written over slot memory after Free. Value types made of integers,
// floats, bools and fixed-size arrays of those are safe.
type TypedPool[T any] struct {
	p *Pool
}

// NewTyped creates a typed pool. cfg.ElementSize is ignored and replaced
// with unsafe.Sizeof(T); all other configuration applies as in New.
func NewTyped[T any](cfg Config) *TypedPool[T] {
	var zero T
	cfg.ElementSize = int(unsafe.Sizeof(zero))
	return &TypedPool[T]{p: New(cfg)}
}

// Alloc returns an unused element. Its fields are undefined; use
// AllocZeroed for a zero-valued element.
func (tp *TypedPool[T]) Alloc() *T {
	s := tp.p.Alloc()
	return (*T)(unsafe.Pointer(&s[0]))
}

// AllocZeroed returns an element with every field set to its zero value.
func (tp *TypedPool[T]) AllocZeroed() *T {
	s := tp.p.AllocZeroed()
	return (*T)(unsafe.Pointer(&s[0]))
}

// Free returns an element to the pool. The same ownership and double-free
// rules as Pool.Free apply.
func (tp *TypedPool[T]) Free(v *T) {
	tp.p.Free(unsafe.Slice((*byte)(unsafe.Pointer(v)), tp.p.elemSize))
}

// Len returns the number of live elements.
func (tp *TypedPool[T]) Len() int { return tp.p.Len() }

// ChunkCount returns the number of chunks currently owned.
func (tp *TypedPool[T]) ChunkCount() int { return tp.p.ChunkCount() }

// Clear resets the pool to a single fresh chunk with no live elements.
func (tp *TypedPool[T]) Clear() { tp.p.Clear() }

// Close releases all memory; the pool is unusable afterwards.
func (tp *TypedPool[T]) Close() { tp.p.Close() }

// All calls f for every live element in iteration order until f returns
// false. Requires a pool created with SafeIteration.
func (tp *TypedPool[T]) All(f func(*T) bool) {
	it := tp.p.NewIterator()
	for s, ok := it.Next(); ok; s, ok = it.Next() {
		if !f((*T)(unsafe.Pointer(&s[0]))) {
			return
		}
	}
}
