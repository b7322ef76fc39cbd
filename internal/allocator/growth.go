package allocator

import (
	"fmt"

	"github.com/orizon-lang/heapalloc/internal/allocator/allocerr"
)

// grow extends the segment by max(units, configured floor pages in units)
// allocation units - a request larger than the floor is not rounded to a
// whole number of pages - and folds the new region into the free list via the ordinary
// release path, so it coalesces with the previous top-of-heap block if that
// block was free.
func (h *Heap) grow(units uintptr) (*header, error) {
	pageUnits := h.seg.PageSize() / unitSize
	if pageUnits == 0 {
		pageUnits = 1
	}

	floorPages := h.config.MinGrowthPages
	if h.seg.Size() == 0 && h.config.InitialPages > floorPages {
		floorPages = h.config.InitialPages
	}

	if floorPages == 0 {
		floorPages = 1
	}

	n := units
	if floor := pageUnits * floorPages; n < floor {
		n = floor
	}

	startOffset := h.hiUnits()

	if _, err := h.seg.Sbrk(n * unitSize); err != nil {
		h.logger().Warn("heap growth failed", "requested_units", units, "error", err)

		return nil, fmt.Errorf("%w (%v)", allocerr.OutOfMemory(units), err)
	}

	region := h.blockAt(startOffset)
	h.setSize(region, n)

	h.releaseBlock(region)

	return h.freep, nil
}
