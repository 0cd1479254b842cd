package mempool

import "encoding/binary"

// Iterator is a forward cursor over the live elements of a pool, in chunk
// allocation order and ascending slot order within each chunk. It is
// invalidated by any mutation of the pool (Free, Clear, Close or a growth
// triggered by Alloc); continuing to step an invalidated iterator is a
// documented precondition violation, not a detected error.
type Iterator struct {
	pool     *Pool
	chunkIdx int
	slotIdx  int
}

// NewIterator returns a fresh iterator positioned before the first live
// element. The pool must have been created with SafeIteration; without the
// sentinel, free slots cannot be told apart from live ones.
func (p *Pool) NewIterator() *Iterator {
	p.requireSafeIter("NewIterator")
	return &Iterator{pool: p}
}

// Next returns the next live element, or ok == false once every live
// element has been visited.
func (it *Iterator) Next() ([]byte, bool) {
	p := it.pool
	if p.live == 0 {
		return nil, false
	}
	for it.chunkIdx < len(p.chunks) {
		s := p.slot(it.chunkIdx, it.slotIdx)
		if it.slotIdx++; it.slotIdx >= p.chunkCap {
			it.slotIdx = 0
			it.chunkIdx++
		}
		if binary.LittleEndian.Uint32(s[sentinelOffset:sentinelOffset+sentinelSize]) != freeWord {
			return s, true
		}
	}
	return nil, false
}

// ElemAt returns the i-th live element in iteration order, or nil when i is
// outside [0, Len()). The lookup is a linear scan from the start; there is
// no random-access shortcut, so indexed access over the whole pool is
// quadratic. Requires SafeIteration.
func (p *Pool) ElemAt(i int) []byte {
	p.requireSafeIter("ElemAt")
	if i < 0 || i >= p.live {
		return nil
	}
	it := p.NewIterator()
	for {
		s, ok := it.Next()
		if !ok {
			return nil
		}
		if i == 0 {
			return s
		}
		i--
	}
}

// AsTable returns a slice holding one entry per live element, each aliasing
// the element's slot memory, in iteration order. Requires SafeIteration.
func (p *Pool) AsTable() [][]byte {
	return p.AppendTable(make([][]byte, 0, p.live))
}

// AppendTable appends every live element to dst and returns the extended
// slice. Exactly Len() entries are appended. Requires SafeIteration.
func (p *Pool) AppendTable(dst [][]byte) [][]byte {
	p.requireSafeIter("AppendTable")
	it := p.NewIterator()
	for s, ok := it.Next(); ok; s, ok = it.Next() {
		dst = append(dst, s)
	}
	return dst
}

// AsArray returns a flat copy of every live element's bytes, Len()*ElemSize
// bytes in iteration order. Requires SafeIteration.
func (p *Pool) AsArray() []byte {
	return p.AppendArray(make([]byte, 0, p.live*p.elemSize))
}

// AppendArray appends the bytes of every live element to dst and returns
// the extended slice. Requires SafeIteration.
func (p *Pool) AppendArray(dst []byte) []byte {
	p.requireSafeIter("AppendArray")
	it := p.NewIterator()
	for s, ok := it.Next(); ok; s, ok = it.Next() {
		dst = append(dst, s...)
	}
	return dst
}

func (p *Pool) requireSafeIter(op string) {
	if !p.safeIter {
		panic("mempool: " + op + " requires a pool created with SafeIteration")
	}
	if p.closed {
		panic("mempool: " + op + " on closed pool")
	}
}
