// Package safe wraps allocator.Heap in a mutex so multiple goroutines can
// share a single heap. It adds no allocation logic of its own - only
// mutual exclusion - making explicit that the CORE allocator's
// single-threadedness is a deliberate design choice (see SPEC_FULL.md §5),
// and that concurrent access is the caller's opt-in responsibility rather
// than something the allocator itself guarantees.
package safe

import (
	"sync"
	"unsafe"

	"github.com/orizon-lang/heapalloc/internal/allocator"
)

// Heap serializes every call to an underlying allocator.Heap behind a
// single mutex.
type Heap struct {
	mu   sync.Mutex
	heap *allocator.Heap
}

// Wrap returns a Heap that forwards to h with every call serialized.
func Wrap(h *allocator.Heap) *Heap {
	return &Heap{heap: h}
}

func (s *Heap) Allocate(n uintptr) (unsafe.Pointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.heap.Allocate(n)
}

func (s *Heap) Release(p unsafe.Pointer) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.heap.Release(p)
}

func (s *Heap) Reallocate(p unsafe.Pointer, n uintptr) (unsafe.Pointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.heap.Reallocate(p, n)
}

func (s *Heap) AllocateZeroed(count, elemSize uintptr) (unsafe.Pointer, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.heap.AllocateZeroed(count, elemSize)
}

func (s *Heap) FreeBytes() uintptr {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.heap.FreeBytes()
}

func (s *Heap) Verify() (allocator.VerifyReport, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.heap.Verify()
}
