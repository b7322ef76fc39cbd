package allocator

import (
	"fmt"
	"unsafe"

	"github.com/orizon-lang/heapalloc/internal/allocator/allocerr"
)

// Reallocate resizes the allocation at p to hold n bytes. A nil p behaves
// as Allocate(n). If the existing block already has capacity, p is
// returned unchanged - callers must not assume a copy ever happens.
// Otherwise a fresh block is allocated, the lesser of the old payload size
// and n bytes is copied, and the old block is released.
//
// Only the payload bytes are ever copied (not the old footer), which is
// the safely-expressible equivalent of the spec's note that the original
// implementation copied payload+footer harmlessly; see SPEC_FULL.md §9.
func (h *Heap) Reallocate(p unsafe.Pointer, n uintptr) (unsafe.Pointer, error) {
	if p == nil {
		return h.Allocate(n)
	}

	h.assertPointerWasOurs(p)

	if err := validateSize(n); err != nil {
		return nil, fmt.Errorf("reallocate: %w", err)
	}

	b := h.blockFromPayload(p)
	units := unitsForBytes(n)

	if b.size >= units {
		return p, nil
	}

	oldPayloadBytes := (b.size - 2) * unitSize

	newP, err := h.Allocate(n)
	if err != nil {
		return nil, fmt.Errorf("reallocate: %w", err)
	}

	copyBytes := oldPayloadBytes
	if n < copyBytes {
		copyBytes = n
	}

	copyMemory(newP, p, copyBytes)
	h.Release(p)

	return newP, nil
}

// AllocateZeroed allocates space for count objects of elemSize bytes each,
// zeroing the returned payload. It fails with allocerr.ErrOverflow, without
// touching the segment, if count*elemSize overflows uintptr.
func (h *Heap) AllocateZeroed(count, elemSize uintptr) (unsafe.Pointer, error) {
	if count == 0 || elemSize == 0 {
		return nil, nil
	}

	total := count * elemSize
	if elemSize != 0 && total/elemSize != count {
		return nil, allocerr.Overflow(count, elemSize)
	}

	p, err := h.Allocate(total)
	if err != nil {
		return nil, fmt.Errorf("allocate_zeroed: %w", err)
	}

	zeroMemory(p, total)

	return p, nil
}

// copyMemory copies n bytes from src to dst, both assumed non-overlapping
// (true for every call site here: dst is always a freshly allocated
// block).
func copyMemory(dst, src unsafe.Pointer, n uintptr) {
	copy(unsafe.Slice((*byte)(dst), n), unsafe.Slice((*byte)(src), n))
}

// zeroMemory zeroes n bytes starting at p.
func zeroMemory(p unsafe.Pointer, n uintptr) {
	b := unsafe.Slice((*byte)(p), n)
	for i := range b {
		b[i] = 0
	}
}
