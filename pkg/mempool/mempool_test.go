package mempool

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	p := New(Config{ElementSize: 1})
	defer p.Close()

	// Element size is clamped so a free-list link always fits.
	assert.Equal(t, minElemSize, p.ElemSize())
	assert.Equal(t, DefaultChunkCapacity, p.ChunkCapacity())
	assert.Equal(t, 1, p.ChunkCount())
	assert.Equal(t, 0, p.Len())
}

func TestNewNegativeHint(t *testing.T) {
	p := New(Config{ElementSize: 16, InitialCapacity: -100, ChunkCapacity: 4})
	defer p.Close()

	// Underflow is normalized, never an error.
	assert.Equal(t, 1, p.ChunkCount())
}

func TestNewInitialCapacityRoundsUp(t *testing.T) {
	p := New(Config{ElementSize: 16, InitialCapacity: 9, ChunkCapacity: 4})
	defer p.Close()

	// ceil(9/4) = 3 chunks, all pre-linked.
	assert.Equal(t, 3, p.ChunkCount())
	assert.Equal(t, 0, p.Len())

	// The pre-allocated capacity is served without growing.
	for i := 0; i < 12; i++ {
		p.Alloc()
	}
	assert.Equal(t, 3, p.ChunkCount())
	assert.Equal(t, 12, p.Len())
}

func TestSafeIterationClampsElementSize(t *testing.T) {
	p := New(Config{ElementSize: 1, ChunkCapacity: 4, SafeIteration: true})
	defer p.Close()

	assert.GreaterOrEqual(t, p.ElemSize(), freeNodeSize)
}

func TestAllocGrowsOneChunkWhenExhausted(t *testing.T) {
	p := New(Config{ElementSize: 16, ChunkCapacity: 4})
	defer p.Close()

	for i := 0; i < 4; i++ {
		p.Alloc()
	}
	assert.Equal(t, 1, p.ChunkCount())

	p.Alloc()
	assert.Equal(t, 2, p.ChunkCount())
	assert.Equal(t, 5, p.Len())
}

func TestAllocSliceShape(t *testing.T) {
	p := New(Config{ElementSize: 24, ChunkCapacity: 4})
	defer p.Close()

	s := p.Alloc()
	assert.Equal(t, p.ElemSize(), len(s))
	// Full slice expression keeps appends from bleeding into the next slot.
	assert.Equal(t, p.ElemSize(), cap(s))
}

func TestLenTracksAllocsMinusFrees(t *testing.T) {
	p := New(Config{ElementSize: 16, ChunkCapacity: 8, SafeIteration: true})
	defer p.Close()

	var live [][]byte
	for i := 0; i < 50; i++ {
		live = append(live, p.Alloc())
		assert.Equal(t, len(live), p.Len())
	}
	for i := 0; i < 30; i++ {
		p.Free(live[len(live)-1])
		live = live[:len(live)-1]
		assert.Equal(t, len(live), p.Len())
	}
	for _, s := range live {
		p.Free(s)
	}
	assert.Equal(t, 0, p.Len())
}

func TestFreeIsLIFO(t *testing.T) {
	p := New(Config{ElementSize: 16, ChunkCapacity: 4})
	defer p.Close()

	a := p.Alloc()
	b := p.Alloc()
	p.Free(b)
	c := p.Alloc()

	// The most recently freed slot is handed out first.
	assert.Same(t, &b[0], &c[0])
	p.Free(a)
	p.Free(c)
}

func TestAllocZeroed(t *testing.T) {
	p := New(Config{ElementSize: 32, ChunkCapacity: 4, SafeIteration: true})
	defer p.Close()

	s := p.Alloc()
	for i := range s {
		s[i] = 0xFF
	}
	p.Free(s)

	// LIFO reuse gives back the same slot; it must come out fully zeroed
	// even though the free-list link and sentinel were written into it.
	z := p.AllocZeroed()
	require.Same(t, &s[0], &z[0])
	for i, v := range z {
		require.Zerof(t, v, "byte %d not zeroed", i)
	}
}

func TestDefragmentOnEmpty(t *testing.T) {
	// Scenario from the original allocator: elem 16, hint 0, chunk cap 4.
	p := New(Config{ElementSize: 16, ChunkCapacity: 4, SafeIteration: true})
	defer p.Close()

	require.Equal(t, 1, p.ChunkCount())
	require.Equal(t, 0, p.Len())

	var elems [][]byte
	for i := 0; i < 5; i++ {
		elems = append(elems, p.Alloc())
	}
	assert.Equal(t, 2, p.ChunkCount())
	assert.Equal(t, 5, p.Len())

	for i := 0; i < 4; i++ {
		p.Free(elems[i])
	}
	// Defragmentation fires only on the zero crossing, not on every free.
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 2, p.ChunkCount())

	p.Free(elems[4])
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 1, p.ChunkCount())

	// The retained chunk serves subsequent allocations without growing.
	s := p.Alloc()
	assert.Equal(t, 1, p.Len())
	assert.Equal(t, 1, p.ChunkCount())
	p.Free(s)
}

func TestDefragmentRetainsFirstChunk(t *testing.T) {
	p := New(Config{ElementSize: 16, ChunkCapacity: 2})
	defer p.Close()

	first := p.Alloc()
	firstBase := &first[0]
	var rest [][]byte
	for i := 0; i < 7; i++ {
		rest = append(rest, p.Alloc())
	}
	require.Equal(t, 4, p.ChunkCount())

	for _, s := range rest {
		p.Free(s)
	}
	p.Free(first)
	require.Equal(t, 1, p.ChunkCount())

	// After the collapse, allocations come from the first-allocated chunk
	// in ascending slot order.
	s := p.Alloc()
	assert.Same(t, firstBase, &s[0])
}

func TestRoundTripLeavesCreationState(t *testing.T) {
	p := New(Config{ElementSize: 16, ChunkCapacity: 4, SafeIteration: true})
	defer p.Close()

	for i := 0; i < 100; i++ {
		s := p.Alloc()
		p.Free(s)
	}
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 1, p.ChunkCount())
}

func TestClear(t *testing.T) {
	p := New(Config{ElementSize: 16, ChunkCapacity: 4, SafeIteration: true})
	defer p.Close()

	for i := 0; i < 10; i++ {
		p.Alloc()
	}
	require.Equal(t, 3, p.ChunkCount())

	p.Clear()
	assert.Equal(t, 0, p.Len())
	assert.Equal(t, 1, p.ChunkCount())

	// Configuration survives: the cleared pool behaves like a fresh one.
	for i := 0; i < 5; i++ {
		p.Alloc()
	}
	assert.Equal(t, 2, p.ChunkCount())
	assert.Equal(t, 5, p.Len())
}

func TestDoubleFreePanics(t *testing.T) {
	p := New(Config{ElementSize: 16, ChunkCapacity: 4, SafeIteration: true})
	defer p.Close()

	s := p.Alloc()
	p.Free(s)
	assert.PanicsWithValue(t, "mempool: double free", func() {
		p.Free(s)
	})
}

func TestFreeForeignPointerPanics(t *testing.T) {
	p := New(Config{ElementSize: 16, ChunkCapacity: 4})
	defer p.Close()

	foreign := make([]byte, 16)
	assert.Panics(t, func() {
		p.Free(foreign)
	})
}

func TestFreeMisalignedPanics(t *testing.T) {
	p := New(Config{ElementSize: 16, ChunkCapacity: 4})
	defer p.Close()

	s := p.Alloc()
	assert.Panics(t, func() {
		p.Free(s[1:])
	})
	p.Free(s)
}

func TestClosedPoolPanics(t *testing.T) {
	p := New(Config{ElementSize: 16, ChunkCapacity: 4})
	s := p.Alloc()
	p.Close()

	assert.Panics(t, func() { p.Alloc() })
	assert.Panics(t, func() { p.Free(s) })
	assert.Panics(t, func() { p.Clear() })

	// Closing twice is a no-op.
	p.Close()
}

func TestMeteredAllocator(t *testing.T) {
	alloc := NewMeteredAllocator("metered_test", nil)
	p := New(Config{ElementSize: 16, ChunkCapacity: 4, Allocator: alloc})

	for i := 0; i < 9; i++ {
		p.Alloc()
	}
	assert.Equal(t, 3, p.ChunkCount())
	p.Close()
	assert.Equal(t, 0, p.ChunkCount())
}

func TestNamedPoolRecordsMetrics(t *testing.T) {
	p := New(Config{ElementSize: 16, ChunkCapacity: 4, Name: "metrics_test"})
	defer p.Close()

	s := p.Alloc()
	p.Free(s)
	assert.Equal(t, 0, p.Len())
}
