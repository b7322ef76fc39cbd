package allocator

import (
	"fmt"
	"strings"
)

// VerifyReport is the structured result of a Verify walk, mirroring the
// reference codebase's BlockStatistics/AllocStats style of returning a
// report rather than a bare boolean.
type VerifyReport struct {
	TotalUnits    uintptr
	FreeUnits     uintptr
	AllocatedUnits uintptr
	FreeBlocks    int
	Violations    []string
}

// OK reports whether the walk found no invariant violations.
func (r VerifyReport) OK() bool { return len(r.Violations) == 0 }

// Verify independently re-derives invariants (1)-(5) and (7) of
// SPEC_FULL.md §3 by walking the segment physically (header to header) and
// the free list separately, then cross-checking them. Payload alignment
// (invariant 6) is not checked. It is diagnostics-only: the
// allocator's correctness never depends on Verify being called.
func (h *Heap) Verify() (VerifyReport, error) {
	var report VerifyReport

	onFreeList := make(map[uintptr]bool)

	if h.freep != nil {
		b := h.freep
		for {
			onFreeList[h.unitOffset(b)] = true
			report.FreeBlocks++

			if b.size < 2 {
				report.Violations = append(report.Violations,
					fmt.Sprintf("free block at unit %d has size %d < 2", h.unitOffset(b), b.size))
			}

			if h.footerOf(b).size != b.size {
				report.Violations = append(report.Violations,
					fmt.Sprintf("free block at unit %d: header/footer size mismatch", h.unitOffset(b)))
			}

			n, p := b.link, h.prev(b)
			if h.prev(n) != b {
				report.Violations = append(report.Violations, fmt.Sprintf("prev(next(%d)) != %d", h.unitOffset(b), h.unitOffset(b)))
			}

			if p.link != b {
				report.Violations = append(report.Violations, fmt.Sprintf("next(prev(%d)) != %d", h.unitOffset(b), h.unitOffset(b)))
			}

			b = b.link
			if b == h.freep {
				break
			}
		}
	}

	hi := h.hiUnits()
	prevWasFree := false

	for off := uintptr(0); off < hi; {
		b := h.blockAt(off)
		if b.size < 2 {
			report.Violations = append(report.Violations, fmt.Sprintf("block at unit %d has size %d < 2", off, b.size))

			break
		}

		if h.footerOf(b).size != b.size {
			report.Violations = append(report.Violations, fmt.Sprintf("block at unit %d: header/footer size mismatch", off))
		}

		free := onFreeList[off]
		if free != isFree(b) {
			report.Violations = append(report.Violations,
				fmt.Sprintf("block at unit %d: free-list membership disagrees with link-nil discriminator", off))
		}

		if free && prevWasFree {
			report.Violations = append(report.Violations, fmt.Sprintf("adjacent free blocks ending at unit %d", off))
		}

		report.TotalUnits += b.size

		if free {
			report.FreeUnits += b.size
		} else {
			report.AllocatedUnits += b.size
		}

		prevWasFree = free
		off += b.size
	}

	if report.TotalUnits != hi {
		report.Violations = append(report.Violations,
			fmt.Sprintf("sum of block sizes %d != segment size %d", report.TotalUnits, hi))
	}

	if (h.freep == nil) != (report.FreeBlocks == 0) {
		report.Violations = append(report.Violations, "freep nil-ness disagrees with free block count")
	}

	return report, nil
}

// String renders a one-line-per-block dump of the free list, in roving-head
// traversal order. It is an operator/test convenience, not part of the
// CORE's correctness surface.
func (h *Heap) String() string {
	if h.freep == nil {
		return "free list: (empty)"
	}

	var sb strings.Builder

	fmt.Fprintf(&sb, "free list (head=unit %d):\n", h.unitOffset(h.freep))

	b := h.freep
	for {
		fmt.Fprintf(&sb, "  unit %d: %d units (%d bytes)\n", h.unitOffset(b), b.size, b.size*unitSize)

		b = b.link
		if b == h.freep {
			break
		}
	}

	return sb.String()
}
