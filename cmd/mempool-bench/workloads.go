package main

import (
	"math/rand"
	"os"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/ajitpratap0/mempool/pkg/config"
	"github.com/ajitpratap0/mempool/pkg/logger"
	"github.com/ajitpratap0/mempool/pkg/mempool"
	"github.com/ajitpratap0/mempool/pkg/metrics"
)

// Report is the JSON document written with --output.
type Report struct {
	Version string          `json:"version"`
	Results []ProfileResult `json:"results"`
}

// ProfileResult aggregates the workload runs for one profile.
type ProfileResult struct {
	Profile   config.BenchProfile `json:"profile"`
	Workloads []WorkloadResult    `json:"workloads"`
	RSSBytes  uint64              `json:"rss_bytes"`
}

// WorkloadResult is the outcome of a single workload.
type WorkloadResult struct {
	Name       string        `json:"name"`
	Operations int           `json:"operations"`
	Duration   time.Duration `json:"duration_ns"`
	NsPerOp    float64       `json:"ns_per_op"`
	Chunks     int           `json:"chunks_after"`
	Live       int           `json:"live_after"`
}

// runProfile runs every applicable workload for one profile against a
// fresh pool.
func runProfile(p config.BenchProfile) (ProfileResult, error) {
	log := logger.With(zap.String("profile", p.Name))
	log.Info("running profile",
		zap.Int("element_size", p.ElementSize),
		zap.Int("chunk_capacity", p.ChunkCapacity),
		zap.Int("iterations", p.Iterations),
		zap.Float64("churn", p.Churn),
		zap.Bool("safe_iteration", p.SafeIteration))

	pool := mempool.New(mempool.Config{
		ElementSize:     p.ElementSize,
		InitialCapacity: p.InitialCapacity,
		ChunkCapacity:   p.ChunkCapacity,
		SafeIteration:   p.SafeIteration,
		Allocator:       mempool.NewMeteredAllocator(p.Name, nil),
		Name:            p.Name,
	})
	defer pool.Close()

	result := ProfileResult{Profile: p}

	result.Workloads = append(result.Workloads, runChurn(pool, p))
	result.Workloads = append(result.Workloads, runGrowDrain(pool, p))
	if p.SafeIteration {
		result.Workloads = append(result.Workloads, runExport(pool, p))
	}

	if rss, err := processRSS(); err == nil {
		result.RSSBytes = rss
	} else {
		log.Warn("failed to read process RSS", zap.Error(err))
	}

	for _, w := range result.Workloads {
		log.Info("workload finished",
			zap.String("workload", w.Name),
			zap.Int("operations", w.Operations),
			zap.Duration("duration", w.Duration),
			zap.Float64("ns_per_op", w.NsPerOp))
	}
	return result, nil
}

// runChurn performs a mixed alloc/free workload. The churn ratio selects
// how often an operation frees a random live element instead of
// allocating. The PRNG is seeded deterministically so runs are comparable.
func runChurn(pool *mempool.Pool, p config.BenchProfile) WorkloadResult {
	rng := rand.New(rand.NewSource(1)) //nolint:gosec // deterministic workload, not crypto
	live := make([][]byte, 0, p.Iterations)

	timer := metrics.NewTimer("churn")
	for i := 0; i < p.Iterations; i++ {
		if len(live) > 0 && rng.Float64() < p.Churn {
			j := rng.Intn(len(live))
			pool.Free(live[j])
			live[j] = live[len(live)-1]
			live = live[:len(live)-1]
		} else {
			live = append(live, pool.Alloc())
		}
	}
	duration := timer.Stop()

	for _, s := range live {
		pool.Free(s)
	}
	return workloadResult("churn", p.Iterations, duration, pool)
}

// runGrowDrain allocates every element up front and frees them all,
// exercising chunk growth on the way up and the defragment-on-empty path
// on the way down.
func runGrowDrain(pool *mempool.Pool, p config.BenchProfile) WorkloadResult {
	live := make([][]byte, 0, p.Iterations)

	timer := metrics.NewTimer("grow_drain")
	for i := 0; i < p.Iterations; i++ {
		live = append(live, pool.Alloc())
	}
	for _, s := range live {
		pool.Free(s)
	}
	duration := timer.Stop()

	return workloadResult("grow_drain", 2*p.Iterations, duration, pool)
}

// runExport fills the pool and materializes the live set as a pointer
// table and as a flat byte array.
func runExport(pool *mempool.Pool, p config.BenchProfile) WorkloadResult {
	count := p.Iterations
	if count > 1_000_000 {
		count = 1_000_000
	}
	live := make([][]byte, 0, count)
	for i := 0; i < count; i++ {
		live = append(live, pool.AllocZeroed())
	}

	timer := metrics.NewTimer("export")
	table := pool.AsTable()
	flat := pool.AsArray()
	duration := timer.Stop()

	if len(table) != pool.Len() || len(flat) != pool.Len()*pool.ElemSize() {
		logger.Fatal("export size mismatch",
			zap.Int("table", len(table)),
			zap.Int("flat", len(flat)),
			zap.Int("live", pool.Len()))
	}

	for _, s := range live {
		pool.Free(s)
	}
	return workloadResult("export", 2*count, duration, pool)
}

func workloadResult(name string, ops int, d time.Duration, pool *mempool.Pool) WorkloadResult {
	return WorkloadResult{
		Name:       name,
		Operations: ops,
		Duration:   d,
		NsPerOp:    float64(d.Nanoseconds()) / float64(ops),
		Chunks:     pool.ChunkCount(),
		Live:       pool.Len(),
	}
}

// processRSS returns the current resident set size of this process.
func processRSS() (uint64, error) {
	proc, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}
	info, err := proc.MemoryInfo()
	if err != nil {
		return 0, err
	}
	return info.RSS, nil
}
