package allocator

// link inserts b into the circular free list. If anchor is nil, b becomes a
// singleton cycle and the heap's roving head moves to it; otherwise b is
// spliced in immediately before anchor.
func (h *Heap) link(b, anchor *header) {
	if anchor == nil {
		b.link = b
		h.setPrev(b, b)
		h.freep = b

		return
	}

	prevOfAnchor := h.prev(anchor)

	b.link = anchor
	h.setPrev(b, prevOfAnchor)

	h.setPrev(anchor, b)
	prevOfAnchor.link = b
}

// unlink removes b from the circular free list. b's own link slots are
// nulled afterward, which is what lets coalescing tell allocated and free
// blocks apart (invariant 3).
func (h *Heap) unlink(b *header) {
	if b.link == b {
		b.link = nil
		h.setPrev(b, nil)
		h.freep = nil

		return
	}

	p := h.prev(b)
	n := b.link

	p.link = n
	h.setPrev(n, p)

	b.link = nil
	h.setPrev(b, nil)
}

// prev reads the free-list backward pointer, which lives in b's footer
// slot.
func (h *Heap) prev(b *header) *header {
	return h.footerOf(b).link
}

// setPrev writes the free-list backward pointer into b's footer slot.
func (h *Heap) setPrev(b, prev *header) {
	h.footerOf(b).link = prev
}
