package mempool

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/ajitpratap0/mempool/pkg/metrics"
)

// Allocator is the backing memory provider for a pool. Pools issue only
// fixed-size chunk requests and never resize a live chunk. Implementations
// are expected to be fail-fast: returning a short or nil buffer is not an
// option, and genuine exhaustion should abort the process (which is what
// the Go runtime already does on OOM).
type Allocator interface {
	// AllocChunk returns a buffer of exactly size bytes.
	AllocChunk(size int) []byte
	// FreeChunk releases a buffer previously returned by AllocChunk.
	FreeChunk(buf []byte)
}

// HeapAllocator serves chunks straight from the Go heap. Freeing drops the
// reference and lets the garbage collector reclaim the memory.
type HeapAllocator struct{}

// AllocChunk implements Allocator.
func (HeapAllocator) AllocChunk(size int) []byte { return make([]byte, size) }

// FreeChunk implements Allocator.
func (HeapAllocator) FreeChunk([]byte) {}

// MeteredAllocator wraps another Allocator and tracks outstanding chunk
// bytes in the prometheus ChunkBytes gauge. It is the tracked counterpart
// of HeapAllocator for pools whose resident footprint should be observable.
type MeteredAllocator struct {
	inner Allocator
	bytes prometheus.Gauge
}

// NewMeteredAllocator wraps inner (HeapAllocator when nil) with byte
// accounting labeled by name.
func NewMeteredAllocator(name string, inner Allocator) *MeteredAllocator {
	if inner == nil {
		inner = HeapAllocator{}
	}
	return &MeteredAllocator{
		inner: inner,
		bytes: metrics.ChunkBytes.WithLabelValues(name),
	}
}

// AllocChunk implements Allocator.
func (a *MeteredAllocator) AllocChunk(size int) []byte {
	a.bytes.Add(float64(size))
	return a.inner.AllocChunk(size)
}

// FreeChunk implements Allocator.
func (a *MeteredAllocator) FreeChunk(buf []byte) {
	a.bytes.Sub(float64(cap(buf)))
	a.inner.FreeChunk(buf)
}

var (
	_ Allocator = HeapAllocator{}
	_ Allocator = (*MeteredAllocator)(nil)
)
