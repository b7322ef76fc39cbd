package allocator

import (
	"testing"

	"github.com/orizon-lang/heapalloc/internal/segment"
)

// bytesForUnits returns a byte count whose sizing-formula result is
// exactly target units (target must be >= 2).
func bytesForUnits(target uintptr) uintptr {
	return (target - 2) * unitSize
}

func newTestHeap(t *testing.T, maxBytes, pageSize uintptr, opts ...Option) *Heap {
	t.Helper()

	seg := segment.NewMemSegment(maxBytes, pageSize)

	h, err := New(seg, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	t.Cleanup(func() { h.Close() })

	return h
}
