package mempool_test

import (
	"encoding/binary"
	"fmt"

	"github.com/ajitpratap0/mempool/pkg/mempool"
)

// Example demonstrates basic allocate/free usage.
func Example() {
	p := mempool.New(mempool.Config{
		ElementSize:   32,
		ChunkCapacity: 128,
	})
	defer p.Close()

	elem := p.Alloc()
	binary.LittleEndian.PutUint64(elem[:8], 42)

	fmt.Printf("live: %d\n", p.Len())
	p.Free(elem)
	fmt.Printf("live: %d\n", p.Len())

	// Output:
	// live: 1
	// live: 0
}

// ExamplePool_NewIterator shows iterating live elements with SafeIteration.
func ExamplePool_NewIterator() {
	p := mempool.New(mempool.Config{
		ElementSize:   16,
		ChunkCapacity: 4,
		SafeIteration: true,
	})
	defer p.Close()

	for i := uint64(0); i < 3; i++ {
		elem := p.AllocZeroed()
		binary.LittleEndian.PutUint64(elem[:8], i*10)
	}

	it := p.NewIterator()
	for elem, ok := it.Next(); ok; elem, ok = it.Next() {
		fmt.Println(binary.LittleEndian.Uint64(elem[:8]))
	}

	// Output:
	// 0
	// 10
	// 20
}

// ExampleNewTyped shows the generic facade over the byte pool.
func ExampleNewTyped() {
	type particle struct {
		X, Y     float32
		Lifetime uint32
	}

	tp := mempool.NewTyped[particle](mempool.Config{
		ChunkCapacity: 256,
		SafeIteration: true,
	})
	defer tp.Close()

	pt := tp.AllocZeroed()
	pt.X, pt.Y = 1.5, -2.5
	pt.Lifetime = 120

	tp.All(func(p *particle) bool {
		fmt.Printf("%.1f %.1f %d\n", p.X, p.Y, p.Lifetime)
		return true
	})

	// Output:
	// 1.5 -2.5 120
}
