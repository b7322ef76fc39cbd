package allocator

import (
	"fmt"
	"unsafe"
)

// Allocate returns a maximally-aligned pointer to at least nbytes usable
// bytes, or an error (always wrapping allocerr.ErrOutOfMemory, or
// allocerr.ErrInvalidSize if nbytes itself is unsatisfiable) if the request
// could not be honored. A request of zero bytes returns (nil, nil), matching
// the reference codebase's SystemAllocator convention.
func (h *Heap) Allocate(nbytes uintptr) (unsafe.Pointer, error) {
	if nbytes == 0 {
		return nil, nil
	}

	if err := validateSize(nbytes); err != nil {
		return nil, fmt.Errorf("allocate %d bytes: %w", nbytes, err)
	}

	units := unitsForBytes(nbytes)

	if h.freep == nil {
		if _, err := h.grow(units); err != nil {
			return nil, fmt.Errorf("allocate %d bytes: %w", nbytes, err)
		}
	}

	for {
		c := h.freep.link

		for {
			if c.size >= units {
				return h.takeOrSplit(c, units), nil
			}

			if c == h.freep {
				break // full circle: no fit without growing
			}

			c = c.link
		}

		if _, err := h.grow(units); err != nil {
			return nil, fmt.Errorf("allocate %d bytes: %w", nbytes, err)
		}
		// freep now points at (the neighbour of) the freshly grown block;
		// the outer loop restarts the traversal from there.
	}
}

// takeOrSplit satisfies a request from candidate block c, which is already
// known to have c.size >= units. It either removes c whole (exact or
// near-fit) or splits off the upper units-sized piece and leaves the lower,
// shrunk remainder on the free list.
func (h *Heap) takeOrSplit(c *header, units uintptr) unsafe.Pointer {
	if c.size == units || c.size == units+1 {
		if h.freep == c {
			h.freep = h.prev(c)
		}

		h.unlink(c)

		return h.payloadOf(c)
	}

	remaining := c.size - units
	prevOfC := h.prev(c)

	h.setSize(c, remaining)
	h.setPrev(c, prevOfC) // c's footer moved down; carry its backward link

	nb := h.blockAt(h.unitOffset(c) + remaining)
	h.setSize(nb, units)
	nb.link = nil
	h.setPrev(nb, nil)

	h.freep = h.prev(c)

	return h.payloadOf(nb)
}
