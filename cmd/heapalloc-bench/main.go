// Command heapalloc-bench drives an allocator.Heap with a configurable mix
// of concurrent allocate/release traffic through the safe wrapper, then
// prints a Verify report and basic throughput numbers. It plays the same
// role as the reference codebase's standalone cmd/numa-integration-test
// exercisers: a runnable proof that the package works end to end, not a
// correctness test in itself.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"time"
	"unsafe"

	"golang.org/x/sync/errgroup"

	"github.com/orizon-lang/heapalloc/internal/allocator"
	"github.com/orizon-lang/heapalloc/internal/allocator/safe"
	"github.com/orizon-lang/heapalloc/internal/segment"
)

func main() {
	var (
		workers   = flag.Int("workers", 8, "concurrent goroutines issuing allocate/release pairs")
		opsEach   = flag.Int("ops", 5000, "allocate/release pairs per worker")
		maxSize   = flag.Int("max-size", 2048, "maximum single allocation size in bytes")
		segBytes  = flag.Uint64("segment-bytes", 64*1024*1024, "reserved segment capacity")
		seedFlag  = flag.Int64("seed", 1, "PRNG seed, for reproducible runs")
	)
	flag.Parse()

	seg := segment.NewMemSegment(uintptr(*segBytes), 0)

	heap, err := allocator.New(seg, allocator.WithInitialPages(4))
	if err != nil {
		fmt.Fprintln(os.Stderr, "init:", err)
		os.Exit(1)
	}
	defer heap.Close()

	wrapped := safe.Wrap(heap)

	start := time.Now()

	g, _ := errgroup.WithContext(context.Background())

	for w := 0; w < *workers; w++ {
		w := w
		g.Go(func() error {
			return runWorker(wrapped, rand.New(rand.NewSource(*seedFlag+int64(w))), *opsEach, *maxSize)
		})
	}

	if err := g.Wait(); err != nil {
		fmt.Fprintln(os.Stderr, "worker failed:", err)
		os.Exit(1)
	}

	elapsed := time.Since(start)
	totalOps := *workers * *opsEach * 2

	fmt.Printf("completed %d operations across %d workers in %v (%.0f ops/sec)\n",
		totalOps, *workers, elapsed, float64(totalOps)/elapsed.Seconds())

	report, err := wrapped.Verify()
	if err != nil {
		fmt.Fprintln(os.Stderr, "verify:", err)
		os.Exit(1)
	}

	fmt.Printf("final state: %d free units, %d allocated units, %d free blocks, ok=%v\n",
		report.FreeUnits, report.AllocatedUnits, report.FreeBlocks, report.OK())

	for _, v := range report.Violations {
		fmt.Fprintln(os.Stderr, "violation:", v)
	}
}

func runWorker(h *safe.Heap, rng *rand.Rand, ops, maxSize int) error {
	live := make([]unsafe.Pointer, 0, ops)

	for i := 0; i < ops; i++ {
		size := uintptr(1 + rng.Intn(maxSize))

		p, err := h.Allocate(size)
		if err != nil {
			return fmt.Errorf("allocate %d: %w", size, err)
		}

		live = append(live, p)

		if len(live) > 0 && rng.Intn(2) == 0 {
			idx := rng.Intn(len(live))
			h.Release(live[idx])
			live[idx] = live[len(live)-1]
			live = live[:len(live)-1]
		}
	}

	for _, p := range live {
		h.Release(p)
	}

	return nil
}
