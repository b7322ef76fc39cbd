package allocator

import (
	"testing"
	"unsafe"

	"github.com/orizon-lang/heapalloc/internal/allocator/allocerr"
)

// Scenario 7: corruption detection. Release must panic with a
// *allocerr.CorruptionError rather than silently corrupt the free list when
// handed a pointer it cannot possibly have produced, or a block whose
// embedded size tag has been stomped on.
func TestRelease_PanicsOnForeignPointer(t *testing.T) {
	h := newTestHeap(t, 1<<20, 4096)

	var local [8]byte
	foreign := unsafe.Pointer(&local[0])

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected Release to panic on a pointer outside the segment")
		}

		if _, ok := r.(*allocerr.CorruptionError); !ok {
			t.Fatalf("panic value = %#v, want *allocerr.CorruptionError", r)
		}
	}()

	h.Release(foreign)
}

func TestRelease_PanicsOnImplausibleSize(t *testing.T) {
	h := newTestHeap(t, 1<<20, 4096)

	p, err := h.Allocate(64)
	if err != nil {
		t.Fatalf("Allocate: %v", err)
	}

	b := h.blockFromPayload(p)
	b.size = 0 // simulate a stomped header

	defer func() {
		r := recover()
		if r == nil {
			t.Fatal("expected Release to panic on an implausible block size")
		}

		if _, ok := r.(*allocerr.CorruptionError); !ok {
			t.Fatalf("panic value = %#v, want *allocerr.CorruptionError", r)
		}
	}()

	h.Release(p)
}

func TestRelease_NilIsNoOp(t *testing.T) {
	h := newTestHeap(t, 1<<20, 4096)

	defer func() {
		if r := recover(); r != nil {
			t.Fatalf("Release(nil) panicked: %v", r)
		}
	}()

	h.Release(nil)
}
