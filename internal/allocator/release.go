package allocator

import (
	"unsafe"

	"github.com/orizon-lang/heapalloc/internal/allocator/allocerr"
)

// Release returns the block backing p to the free pool, immediately
// coalescing it with any physically adjacent free neighbours. A nil p is a
// no-op. Release panics with an *allocerr.CorruptionError if p's embedded
// block metadata cannot possibly be valid - this is the one fatal,
// unrecoverable error path in the package, per SPEC_FULL.md §7.
func (h *Heap) Release(p unsafe.Pointer) {
	if p == nil {
		return
	}

	h.assertPointerWasOurs(p)

	b := h.blockFromPayload(p)

	if b.size == 0 || b.size*unitSize > h.seg.Size() {
		panic(allocerr.Corruption("release: implausible block size", map[string]any{
			"size_units": b.size,
			"heap_bytes": h.seg.Size(),
		}))
	}

	h.releaseBlock(b)
}

// releaseBlock runs the coalescing algorithm on an already-validated block.
// It is also the sole path that installs blocks onto the free list - the
// growth protocol (growth.go) calls it on every newly grown region, so all
// coalescing logic is exercised uniformly regardless of whether a block's
// first appearance on the list came from a user Release or from growth.
func (h *Heap) releaseBlock(b *header) {
	if h.freep == nil {
		h.link(b, nil)

		return
	}

	if u := h.after(b); u != nil && isFree(u) {
		if h.freep == u {
			h.freep = h.prev(u)
		}

		h.unlink(u)
		h.setSize(b, b.size+u.size)
	}

	if l := h.before(b); l != nil && isFree(l) {
		if h.freep == l {
			h.freep = h.prev(l)
		}

		h.unlink(l)
		h.setSize(l, l.size+b.size)
		b = l
	}

	h.link(b, h.freep)
	h.freep = h.prev(b)
}
