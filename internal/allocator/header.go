package allocator

import (
	"unsafe"

	"github.com/orizon-lang/heapalloc/internal/allocator/allocerr"
)

// header is the single binary layout shared by every block's header slot
// and footer slot, mirroring the spec's tagged (next/prev, size) union: one
// Go struct plays both roles depending on which end of the block it
// occupies and whether the block is free or allocated.
//
//   - Header slot, block free:      link = next free block, size = unit count.
//   - Footer slot, block free:      link = prev free block, size = unit count.
//   - Header slot, block allocated: link = nil,              size = unit count.
//   - Footer slot, block allocated: link = nil (unused),      size = unit count.
//
// link == nil in the header slot is exactly the allocated/free
// discriminator invariant 3 depends on; it is never repurposed for
// anything else.
type header struct {
	link *header
	size uintptr
}

// maxAlignScalar is the widest scalar Go's ABI aligns on this platform;
// header's own alignment matching it is what lets payload pointers satisfy
// "aligned for any object type" without any extra padding logic.
type maxAlignScalar struct {
	_ complex128
}

// unitSize is one allocation unit: the size of a single header record.
const unitSize = unsafe.Sizeof(header{})

func init() {
	if unsafe.Alignof(header{}) < unsafe.Alignof(maxAlignScalar{}) {
		panic("allocator: header alignment narrower than platform maximal alignment")
	}
}

// unitsForBytes is the sizing formula: enough units for a header, a footer,
// and b payload bytes, rounded up to a whole number of units.
func unitsForBytes(b uintptr) uintptr {
	return (b+2*unitSize-1)/unitSize + 1
}

// maxRequestBytes is the largest byte count unitsForBytes can add its
// rounding term to without overflowing uintptr.
const maxRequestBytes = ^uintptr(0) - (2*unitSize - 1)

// validateSize rejects a requested byte count that would overflow the
// sizing formula before it ever reaches unitsForBytes.
func validateSize(nbytes uintptr) error {
	if nbytes > maxRequestBytes {
		return allocerr.InvalidSize(nbytes)
	}

	return nil
}

// blockAt returns the header record at unit offset off from the segment's
// base address. Navigation throughout the allocator is expressed in unit
// offsets, never raw byte addresses, matching the spec's "three coordinate
// systems" model.
func (h *Heap) blockAt(off uintptr) *header {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(h.seg.Bytes())))

	return (*header)(unsafe.Pointer(base + off*unitSize)) //nolint:govet // intentional raw pointer arithmetic, see header doc
}

// unitOffset is the inverse of blockAt.
func (h *Heap) unitOffset(b *header) uintptr {
	base := uintptr(unsafe.Pointer(unsafe.SliceData(h.seg.Bytes())))

	return (uintptr(unsafe.Pointer(b)) - base) / unitSize
}

// hiUnits is the exclusive upper bound of valid unit offsets: the segment
// is always grown in whole units, so Size()/unitSize is exact.
func (h *Heap) hiUnits() uintptr {
	return h.seg.Size() / unitSize
}

// setSize writes the size tag into both the header and the footer slot of
// the block starting at b.
func (h *Heap) setSize(b *header, units uintptr) {
	b.size = units
	h.blockAt(h.unitOffset(b) + units - 1).size = units
}

// footerOf returns the footer slot of the block starting at b.
func (h *Heap) footerOf(b *header) *header {
	return h.blockAt(h.unitOffset(b) + b.size - 1)
}

// payloadOf returns the caller-visible pointer for the block starting at b.
func (h *Heap) payloadOf(b *header) unsafe.Pointer {
	return unsafe.Pointer(h.blockAt(h.unitOffset(b) + 1))
}

// blockFromPayload is the inverse of payloadOf.
func (h *Heap) blockFromPayload(p unsafe.Pointer) *header {
	return (*header)(unsafe.Pointer(uintptr(p) - unitSize))
}

// after returns the block physically following b, or nil if b's footer
// abuts the current high watermark.
func (h *Heap) after(b *header) *header {
	off := h.unitOffset(b) + b.size
	if off >= h.hiUnits() {
		return nil
	}

	return h.blockAt(off)
}

// before returns the block physically preceding b, reconstructed from the
// footer of that neighbour, or nil if b sits at the segment's low
// watermark.
func (h *Heap) before(b *header) *header {
	off := h.unitOffset(b)
	if off == 0 {
		return nil
	}

	footer := h.blockAt(off - 1)
	prevOff := off - footer.size

	return h.blockAt(prevOff)
}

// isFree reports whether b is currently on the free list, per invariant 3.
func isFree(b *header) bool { return b.link != nil }
