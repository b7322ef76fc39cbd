// Package allocator implements a first-fit, boundary-tagged, immediately
// coalescing dynamic memory allocator on top of a segment.Provider. See
// SPEC_FULL.md for the full design; this file owns the Heap type's
// lifecycle (New/Reset/Close) and the bookkeeping shared by every
// operation.
package allocator

import (
	"fmt"
	"log/slog"
	"unsafe"

	"github.com/orizon-lang/heapalloc/internal/allocator/allocerr"
	"github.com/orizon-lang/heapalloc/internal/segment"
)

// Heap is a single allocator instance. It owns no process-wide global
// state: freep and the segment both live on the value, so a process may run
// several independent heaps concurrently (each individually
// single-threaded - see SPEC_FULL.md §5).
type Heap struct {
	seg    segment.Provider
	freep  *header
	config *Config
}

// New initializes seg and returns a ready Heap with an empty free list.
func New(seg segment.Provider, opts ...Option) (*Heap, error) {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}

	if err := cfg.checkCompat(); err != nil {
		return nil, err
	}

	if err := seg.Init(); err != nil {
		return nil, fmt.Errorf("allocator: initializing segment: %w", err)
	}

	return &Heap{seg: seg, config: cfg}, nil
}

// Reset rolls the segment back to empty and forgets every block. Every
// pointer previously returned by Allocate becomes invalid.
func (h *Heap) Reset() error {
	if err := h.seg.Reset(); err != nil {
		return fmt.Errorf("allocator: resetting segment: %w", err)
	}

	h.freep = nil

	return nil
}

// Close tears the segment down. The Heap must not be used afterward.
func (h *Heap) Close() error {
	if err := h.seg.Deinit(); err != nil {
		return fmt.Errorf("allocator: closing segment: %w", err)
	}

	h.freep = nil

	return nil
}

// FreeBytes returns the sum of payload+metadata bytes currently on the free
// list.
func (h *Heap) FreeBytes() uintptr {
	if h.freep == nil {
		return 0
	}

	total := uintptr(0)
	b := h.freep

	for {
		total += b.size * unitSize
		b = b.link

		if b == h.freep {
			break
		}
	}

	return total
}

func (h *Heap) setMinGrowthPages(n uintptr) {
	h.config.MinGrowthPages = n
}

// logger is a small accessor so the rest of the package never touches
// config directly.
func (h *Heap) logger() *slog.Logger {
	if h.config.Logger != nil {
		return h.config.Logger
	}

	return slog.Default()
}

// assertPointerWasOurs is a defensive fast check used by Release before it
// trusts embedded block metadata; it does not (and per the spec's Non-goals
// cannot) detect use-after-free or double-free in general, only pointers
// clearly outside the segment. The unit-alignment check is allocator-
// specific; the range check itself delegates to segment.VerifyBounds so the
// two packages share one definition of "inside the committed segment".
func (h *Heap) assertPointerWasOurs(p unsafe.Pointer) {
	off := uintptr(p) - uintptr(unsafe.Pointer(unsafe.SliceData(h.seg.Bytes())))
	if off%unitSize != 0 || off == 0 {
		panic(allocerr.Corruption("release: pointer not within segment", map[string]any{"offset": off}))
	}

	if err := segment.VerifyBounds(h.seg, off, unitSize); err != nil {
		panic(allocerr.Corruption("release: pointer not within segment", map[string]any{"offset": off, "reason": err.Error()}))
	}
}
