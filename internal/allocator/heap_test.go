package allocator

import (
	"errors"
	"testing"
	"unsafe"

	"github.com/orizon-lang/heapalloc/internal/allocator/allocerr"
	"github.com/orizon-lang/heapalloc/internal/segment"
	"github.com/orizon-lang/heapalloc/internal/segment/segmenttest"
)

// Scenario 1: first allocate triggers growth.
func TestAllocate_FirstCallTriggersGrowth(t *testing.T) {
	h := newTestHeap(t, 1<<20, 4096)

	pageUnits := h.seg.PageSize() / unitSize
	units1 := unitsForBytes(1)

	p, err := h.Allocate(1)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if p == nil {
		t.Fatal("Allocate returned nil pointer")
	}

	if h.freep == nil {
		t.Fatal("free list empty after first allocate, want one remainder block")
	}

	if h.freep.link != h.freep {
		t.Fatal("free list has more than one block after first allocate")
	}

	wantFree := pageUnits - units1
	if h.freep.size != wantFree {
		t.Fatalf("remainder free block size = %d units, want %d", h.freep.size, wantFree)
	}

	alloc := h.blockFromPayload(p)
	if alloc.size != units1 {
		t.Fatalf("allocated block size = %d units, want %d", alloc.size, units1)
	}
}

// Scenario 2: exact-fit reuse.
func TestAllocate_ExactFitReuse(t *testing.T) {
	h := newTestHeap(t, 1<<20, 4096)

	n := bytesForUnits(10)

	p1, err := h.Allocate(n)
	if err != nil {
		t.Fatalf("Allocate p1: %v", err)
	}

	if _, err := h.Allocate(n); err != nil {
		t.Fatalf("Allocate p2: %v", err)
	}

	h.Release(p1)

	p3, err := h.Allocate(n)
	if err != nil {
		t.Fatalf("Allocate p3: %v", err)
	}

	if p3 != p1 {
		t.Fatalf("expected reuse of freed block: p1=%p p3=%p", p1, p3)
	}

	ms := h.seg.(*segment.MemSegment)
	if calls := ms.SbrkCalls(); calls != 1 {
		t.Fatalf("Sbrk called %d times, want exactly 1 (no extra growth on reuse)", calls)
	}
}

// Scenario 4: bidirectional coalesce.
func TestRelease_BidirectionalCoalesce(t *testing.T) {
	h := newTestHeap(t, 1<<20, 4096)

	n := bytesForUnits(10)

	pA, err := h.Allocate(n)
	if err != nil {
		t.Fatalf("Allocate A: %v", err)
	}

	pB, err := h.Allocate(n)
	if err != nil {
		t.Fatalf("Allocate B: %v", err)
	}

	pC, err := h.Allocate(n)
	if err != nil {
		t.Fatalf("Allocate C: %v", err)
	}

	h.Release(pA)
	h.Release(pC)
	h.Release(pB)

	if h.freep == nil {
		t.Fatal("free list empty after releasing every allocation")
	}

	if h.freep.link != h.freep {
		t.Fatalf("expected full coalescing into a single block, free list has more than one member")
	}

	if h.FreeBytes() != h.seg.Size() {
		t.Fatalf("FreeBytes() = %d, want segment size %d", h.FreeBytes(), h.seg.Size())
	}
}

// Scenario 5: wrap-around growth, injected-failure branch only: the second
// Sbrk call fails, so the allocate that needs it reports out-of-memory.
func TestAllocate_WrapAroundGrowth(t *testing.T) {
	seg := segmenttest.NewMockProvider(1<<20, 64) // pageUnits = 64/16 = 4

	h, err := New(seg, WithInitialPages(1))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer h.Close()

	seg.FailSbrkAfter(1)

	p1, err := h.Allocate(1)
	if err != nil {
		t.Fatalf("first Allocate: %v", err)
	}

	if p1 == nil {
		t.Fatal("first Allocate returned nil")
	}

	if h.freep != nil {
		t.Fatalf("expected near-fit whole-take to empty the free list, got size %d", h.freep.size)
	}

	p2, err := h.Allocate(1)
	if err == nil {
		t.Fatal("expected second Allocate to fail once Sbrk is exhausted")
	}

	if p2 != nil {
		t.Fatal("expected nil pointer on failure")
	}

	if !errors.Is(err, allocerr.ErrOutOfMemory) {
		t.Fatalf("err = %v, want wrapping allocerr.ErrOutOfMemory", err)
	}
}

func TestHeap_Verify_CleanAfterFullRelease(t *testing.T) {
	h := newTestHeap(t, 1<<20, 4096)

	sizes := []uintptr{8, 64, bytesForUnits(20), 1024}
	ptrs := make([]unsafe.Pointer, 0, len(sizes))

	for _, s := range sizes {
		p, err := h.Allocate(s)
		if err != nil {
			t.Fatalf("Allocate(%d): %v", s, err)
		}

		ptrs = append(ptrs, p)
	}

	for _, p := range ptrs {
		h.Release(p)
	}

	report, err := h.Verify()
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}

	if !report.OK() {
		t.Fatalf("Verify found violations: %v", report.Violations)
	}

	if report.FreeBlocks != 1 {
		t.Fatalf("FreeBlocks = %d, want 1 after releasing every allocation", report.FreeBlocks)
	}

	if h.FreeBytes() != h.seg.Size() {
		t.Fatalf("FreeBytes() = %d, want %d", h.FreeBytes(), h.seg.Size())
	}
}

func TestHeap_Reset_InvalidatesFreeList(t *testing.T) {
	h := newTestHeap(t, 1<<20, 4096)

	if _, err := h.Allocate(100); err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	if err := h.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}

	if h.freep != nil {
		t.Fatal("freep not nil after Reset")
	}

	if h.seg.Size() != 0 {
		t.Fatalf("segment size after Reset = %d, want 0", h.seg.Size())
	}
}
