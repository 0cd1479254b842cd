// Package metrics provides performance tracking for the mempool library
// using Prometheus metrics. All metrics are labeled by pool name; pools
// created without a name record nothing.
//
// # Basic Usage
//
//	p := mempool.New(mempool.Config{ElementSize: 64, Name: "bmesh_verts"})
//	// alloc/free activity now shows up as:
//	//   mempool_allocations_total{pool="bmesh_verts"}
//	//   mempool_live_elements{pool="bmesh_verts"}
//
//	// Track a workload duration
//	timer := metrics.NewTimer("churn")
//	runWorkload()
//	duration := timer.Stop()
//
// # Metric Types
//
// Counter: monotonically increasing values (allocations, frees, defrags)
// Gauge: values that go up and down (chunks, live elements, chunk bytes)
// Histogram: distribution of workload durations
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// AllocationsTotal counts element allocations per pool.
	AllocationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempool_allocations_total",
			Help: "Total number of elements allocated",
		},
		[]string{"pool"},
	)

	// FreesTotal counts elements returned to their pool.
	FreesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempool_frees_total",
			Help: "Total number of elements freed",
		},
		[]string{"pool"},
	)

	// DefragsTotal counts pool defragmentations (all chunks but the first
	// released after the pool drained to zero live elements).
	DefragsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "mempool_defrags_total",
			Help: "Total number of defragmentations on empty",
		},
		[]string{"pool"},
	)

	// ChunksInUse tracks the number of chunks owned by each pool.
	ChunksInUse = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mempool_chunks",
			Help: "Number of chunks currently owned by the pool",
		},
		[]string{"pool"},
	)

	// LiveElements tracks the number of live elements per pool.
	LiveElements = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mempool_live_elements",
			Help: "Number of currently allocated elements",
		},
		[]string{"pool"},
	)

	// ChunkBytes tracks outstanding backing memory per pool, reported by
	// MeteredAllocator.
	ChunkBytes = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "mempool_chunk_bytes",
			Help: "Outstanding chunk bytes held from the backing allocator",
		},
		[]string{"pool"},
	)

	// WorkloadDuration tracks benchmark workload durations in nanoseconds.
	// The buckets are tuned for in-memory operation latencies.
	WorkloadDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "mempool_workload_duration_nanoseconds",
			Help: "Benchmark workload duration in nanoseconds",
			Buckets: []float64{
				1000,  // 1μs - single alloc/free pairs
				10000, // 10μs - small batches
				1e5,   // 100μs - chunk growth paths
				1e6,   // 1ms - medium workloads
				1e7,   // 10ms - large churn runs
				1e8,   // 100ms - full benchmark iterations
				1e9,   // 1s
			},
		},
		[]string{"workload"},
	)
)

// Timer provides a simple timing mechanism for measuring operation durations.
// It captures the start time on creation and calculates elapsed time on stop.
type Timer struct {
	start time.Time
	name  string
}

// NewTimer creates a new timer and starts timing immediately.
// The name parameter identifies the workload in the duration histogram.
func NewTimer(name string) *Timer {
	return &Timer{
		start: time.Now(),
		name:  name,
	}
}

// Stop stops the timer, records the elapsed time in WorkloadDuration and
// returns it. The timer can be stopped multiple times, each recording the
// total elapsed time since creation.
func (t *Timer) Stop() time.Duration {
	duration := time.Since(t.start)
	WorkloadDuration.WithLabelValues(t.name).Observe(float64(duration.Nanoseconds()))
	return duration
}
