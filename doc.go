// Package mempool provides a chunked, fixed-size element allocator for Go,
// modeled on the slab-with-embedded-free-list design used by large
// content-creation and database systems to manage millions of equally-sized
// objects with minimal allocator and garbage-collector pressure.
//
// The allocator lives in pkg/mempool; see that package's documentation for
// the full API. Supporting packages provide structured logging (pkg/logger),
// typed errors (pkg/errors), prometheus metrics (pkg/metrics) and benchmark
// profile loading (pkg/config). cmd/mempool-bench is a workload harness for
// measuring pool behavior.
//
// # Highlights
//
//   - O(1) allocate and free with zero per-element overhead: free slots
//     store their own list links
//   - Chunked growth: one backing allocation serves many elements
//   - Optional safe iteration over live elements via an in-slot sentinel,
//     with pointer-table and flat-array export
//   - Automatic defragmentation to a single chunk when the pool drains
//   - Pluggable backing allocator with prometheus byte accounting
package mempool
