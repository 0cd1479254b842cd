package mempool

import (
	"encoding/binary"
	"unsafe"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/ajitpratap0/mempool/pkg/metrics"
)

// ptrSize is the machine word width in bytes (4 on 32-bit, 8 on 64-bit).
const ptrSize = 4 << (^uintptr(0) >> 63)

const (
	// minElemSize guarantees a free-list link fits inside any slot.
	minElemSize = 2 * ptrSize

	// freeNodeSize is the number of slot bytes the free-node view occupies
	// when safe iteration is enabled: an 8-byte link plus a 4-byte sentinel.
	freeNodeSize = linkOffset + linkSize + sentinelSize

	linkOffset     = 0
	linkSize       = 8
	sentinelOffset = linkOffset + linkSize
	sentinelSize   = 4

	// freeWord marks a slot as free ("free" in little-endian ASCII).
	freeWord uint32 = 0x65657266
	// inUseWord is written on allocation so an in-progress iterator never
	// mistakes a freshly handed-out slot for a free one.
	inUseWord uint32 = 0x7FFFFFFF
)

// DefaultChunkCapacity is used when Config.ChunkCapacity is zero or negative.
const DefaultChunkCapacity = 512

// Config describes a pool at creation time. All fields are fixed for the
// lifetime of the pool.
type Config struct {
	// ElementSize is the byte size of every element. Clamped upward to at
	// least two machine words, and to the free-node layout when
	// SafeIteration is set.
	ElementSize int

	// InitialCapacity is a hint for how many elements the pool should hold
	// without growing. Zero or negative values still produce one chunk.
	InitialCapacity int

	// ChunkCapacity is the number of element slots per chunk. Defaults to
	// DefaultChunkCapacity when zero or negative.
	ChunkCapacity int

	// SafeIteration enables the free/live sentinel and with it every
	// iteration API (NewIterator, ElemAt, AsTable, AsArray) plus
	// double-free detection.
	SafeIteration bool

	// Allocator is the backing memory provider. Nil selects HeapAllocator.
	Allocator Allocator

	// Logger, when non-nil, receives debug events for chunk growth and
	// defragmentation.
	Logger *zap.Logger

	// Name, when non-empty, enables prometheus metrics labeled with it.
	Name string
}

// chunk is a single contiguous slab of element slots. Chunks never resize.
type chunk struct {
	data []byte
	base uintptr
}

// Pool is a chunked fixed-size element allocator. Not safe for concurrent
// use; see the package documentation.
type Pool struct {
	elemSize  int
	chunkCap  int
	chunkSize int // elemSize * chunkCap
	safeIter  bool
	alloc     Allocator
	log       *zap.Logger

	chunks   []*chunk // allocation order, also iteration order
	freeHead uint64   // packed slot handle, 0 = empty free list
	live     int
	closed   bool

	// metrics, nil unless Config.Name was set
	mAllocs  prometheus.Counter
	mFrees   prometheus.Counter
	mDefrags prometheus.Counter
	mChunks  prometheus.Gauge
	mLive    prometheus.Gauge
}

// New creates a pool with at least ceil(InitialCapacity/ChunkCapacity)
// chunks (minimum one), every slot linked into a single free list in
// chunk-order-then-slot-order, and no live elements.
func New(cfg Config) *Pool {
	elemSize := cfg.ElementSize
	if elemSize < minElemSize {
		elemSize = minElemSize
	}
	if cfg.SafeIteration && elemSize < freeNodeSize {
		elemSize = freeNodeSize
	}

	chunkCap := cfg.ChunkCapacity
	if chunkCap <= 0 {
		chunkCap = DefaultChunkCapacity
	}

	alloc := cfg.Allocator
	if alloc == nil {
		alloc = HeapAllocator{}
	}

	p := &Pool{
		elemSize:  elemSize,
		chunkCap:  chunkCap,
		chunkSize: elemSize * chunkCap,
		safeIter:  cfg.SafeIteration,
		alloc:     alloc,
		log:       cfg.Logger,
	}

	if cfg.Name != "" {
		p.mAllocs = metrics.AllocationsTotal.WithLabelValues(cfg.Name)
		p.mFrees = metrics.FreesTotal.WithLabelValues(cfg.Name)
		p.mDefrags = metrics.DefragsTotal.WithLabelValues(cfg.Name)
		p.mChunks = metrics.ChunksInUse.WithLabelValues(cfg.Name)
		p.mLive = metrics.LiveElements.WithLabelValues(cfg.Name)
	}

	nchunks := 1
	if cfg.InitialCapacity > chunkCap {
		nchunks = (cfg.InitialCapacity + chunkCap - 1) / chunkCap
	}
	for i := 0; i < nchunks; i++ {
		p.addChunk()
	}

	// Link back to front so the list head ends up at chunk 0, slot 0 and
	// traversal follows chunk allocation order.
	var tail uint64
	for ci := len(p.chunks) - 1; ci >= 0; ci-- {
		tail = p.linkChunk(ci, tail)
	}
	p.freeHead = tail

	return p
}

// addChunk allocates one chunk through the backing allocator and appends it
// to the chunk list. Slots are not linked; callers do that.
func (p *Pool) addChunk() int {
	data := p.alloc.AllocChunk(p.chunkSize)
	p.chunks = append(p.chunks, &chunk{
		data: data,
		base: uintptr(unsafe.Pointer(&data[0])),
	})
	if p.mChunks != nil {
		p.mChunks.Set(float64(len(p.chunks)))
	}
	return len(p.chunks) - 1
}

// linkChunk threads every slot of chunk ci into a free chain ending at tail
// and returns the handle of the chain head (slot 0). Sentinels are stamped
// when safe iteration is enabled.
func (p *Pool) linkChunk(ci int, tail uint64) uint64 {
	next := tail
	for si := p.chunkCap - 1; si >= 0; si-- {
		s := p.slot(ci, si)
		binary.LittleEndian.PutUint64(s[linkOffset:linkOffset+linkSize], next)
		if p.safeIter {
			binary.LittleEndian.PutUint32(s[sentinelOffset:sentinelOffset+sentinelSize], freeWord)
		}
		next = packHandle(ci, si)
	}
	return next
}

// slot returns the full-capacity view of slot si in chunk ci.
func (p *Pool) slot(ci, si int) []byte {
	off := si * p.elemSize
	return p.chunks[ci].data[off : off+p.elemSize : off+p.elemSize]
}

// packHandle encodes a chunk/slot pair as a non-zero free-list link word.
func packHandle(ci, si int) uint64 {
	return uint64(ci+1)<<32 | uint64(uint32(si))
}

func unpackHandle(h uint64) (ci, si int) {
	return int(h>>32) - 1, int(uint32(h))
}

// Alloc returns an unused element slot. The slot contents are undefined
// (they may hold stale free-list words or data from a previous occupant);
// use AllocZeroed for a cleared slot. Alloc grows the pool by one chunk
// when the free list is empty and never fails: backing memory exhaustion
// aborts the process.
func (p *Pool) Alloc() []byte {
	if p.closed {
		panic("mempool: Alloc on closed pool")
	}

	p.live++

	if p.freeHead == 0 {
		// The old list was empty, so the fresh chain needs no splice.
		ci := p.addChunk()
		p.freeHead = p.linkChunk(ci, 0)
		if p.log != nil {
			p.log.Debug("mempool grew",
				zap.Int("chunks", len(p.chunks)),
				zap.Int("live", p.live))
		}
	}

	ci, si := unpackHandle(p.freeHead)
	s := p.slot(ci, si)

	if p.safeIter {
		binary.LittleEndian.PutUint32(s[sentinelOffset:sentinelOffset+sentinelSize], inUseWord)
	}
	p.freeHead = binary.LittleEndian.Uint64(s[linkOffset : linkOffset+linkSize])

	if p.mAllocs != nil {
		p.mAllocs.Inc()
		p.mLive.Set(float64(p.live))
	}
	return s
}

// AllocZeroed is Alloc followed by clearing every byte of the slot.
func (p *Pool) AllocZeroed() []byte {
	s := p.Alloc()
	clear(s)
	return s
}

// Free returns a slot previously obtained from Alloc on this pool. The
// address must belong to one of the pool's chunks and be slot-aligned;
// violations panic. With SafeIteration enabled, freeing a slot that is
// already free also panics.
//
// When the last live element is freed the pool defragments: every chunk
// except the first is released and the free list is rebuilt over the
// retained chunk in ascending slot order.
func (p *Pool) Free(buf []byte) {
	if p.closed {
		panic("mempool: Free on closed pool")
	}
	if len(buf) == 0 {
		panic("mempool: Free of empty slice")
	}

	ci, si := p.locate(buf)

	s := p.slot(ci, si)
	if p.safeIter {
		if binary.LittleEndian.Uint32(s[sentinelOffset:sentinelOffset+sentinelSize]) == freeWord {
			panic("mempool: double free")
		}
		binary.LittleEndian.PutUint32(s[sentinelOffset:sentinelOffset+sentinelSize], freeWord)
	}

	binary.LittleEndian.PutUint64(s[linkOffset:linkOffset+linkSize], p.freeHead)
	p.freeHead = packHandle(ci, si)
	p.live--

	if p.mFrees != nil {
		p.mFrees.Inc()
		p.mLive.Set(float64(p.live))
	}

	if p.live == 0 {
		p.defragment()
	}
}

// locate maps a slot address back to its chunk and slot index, panicking on
// addresses the pool does not own.
func (p *Pool) locate(buf []byte) (ci, si int) {
	addr := uintptr(unsafe.Pointer(&buf[0]))
	for i, c := range p.chunks {
		if addr < c.base || addr >= c.base+uintptr(p.chunkSize) {
			continue
		}
		off := int(addr - c.base)
		if off%p.elemSize != 0 {
			panic("mempool: Free of misaligned pointer")
		}
		return i, off / p.elemSize
	}
	panic("mempool: Free of pointer not owned by pool")
}

// defragment drops every chunk except the first and relinks its slots.
// Only called on the live-count zero crossing.
func (p *Pool) defragment() {
	for _, c := range p.chunks[1:] {
		p.alloc.FreeChunk(c.data)
	}
	p.chunks = p.chunks[:1]
	p.freeHead = p.linkChunk(0, 0)

	if p.mDefrags != nil {
		p.mDefrags.Inc()
		p.mChunks.Set(1)
	}
	if p.log != nil {
		p.log.Debug("mempool defragmented", zap.Int("chunk_bytes", p.chunkSize))
	}
}

// Clear releases every chunk except the first and resets the pool to its
// just-created state: one fully linked chunk, no live elements. The
// configured element size, chunk capacity and flags are retained.
func (p *Pool) Clear() {
	if p.closed {
		panic("mempool: Clear on closed pool")
	}
	for _, c := range p.chunks[1:] {
		p.alloc.FreeChunk(c.data)
	}
	p.chunks = p.chunks[:1]
	p.live = 0
	p.freeHead = p.linkChunk(0, 0)

	if p.mChunks != nil {
		p.mChunks.Set(1)
		p.mLive.Set(0)
	}
}

// Close releases every chunk. No operation on the pool is valid afterwards.
func (p *Pool) Close() {
	if p.closed {
		return
	}
	for _, c := range p.chunks {
		p.alloc.FreeChunk(c.data)
	}
	p.chunks = nil
	p.freeHead = 0
	p.live = 0
	p.closed = true

	if p.mChunks != nil {
		p.mChunks.Set(0)
		p.mLive.Set(0)
	}
}

// Len returns the number of currently live elements.
func (p *Pool) Len() int {
	return p.live
}

// ElemSize returns the effective element size in bytes, after clamping.
func (p *Pool) ElemSize() int {
	return p.elemSize
}

// ChunkCount returns the number of chunks currently owned by the pool.
func (p *Pool) ChunkCount() int {
	return len(p.chunks)
}

// ChunkCapacity returns the number of element slots per chunk.
func (p *Pool) ChunkCapacity() int {
	return p.chunkCap
}
