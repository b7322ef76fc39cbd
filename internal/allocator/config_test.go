package allocator

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/orizon-lang/heapalloc/internal/segment"
)

func TestNew_CompatVersionConstraintRejected(t *testing.T) {
	seg := segment.NewMemSegment(1<<16, 4096)

	_, err := New(seg, WithCompatVersion("^2.0.0"))
	if err == nil {
		t.Fatal("expected New to reject a constraint the wire version cannot satisfy")
	}
}

func TestNew_CompatVersionConstraintAccepted(t *testing.T) {
	h := newTestHeap(t, 1<<16, 4096, WithCompatVersion("^1.0.0"))
	if h == nil {
		t.Fatal("expected a usable Heap")
	}
}

// Scenario 8: the growth policy file can be hot-reloaded without a restart,
// and a malformed update is ignored rather than applied.
func TestWatchPolicyFile_HotReloadsMinGrowthPages(t *testing.T) {
	h := newTestHeap(t, 1<<20, 4096, WithMinGrowthPages(1))

	dir := t.TempDir()
	path := filepath.Join(dir, "growth-policy")

	if err := os.WriteFile(path, []byte("3\n"), 0o644); err != nil {
		t.Fatalf("seed policy file: %v", err)
	}

	stop, err := h.WatchPolicyFile(path)
	if err != nil {
		t.Fatalf("WatchPolicyFile: %v", err)
	}
	defer stop()

	if !waitUntil(t, func() bool { return h.config.MinGrowthPages == 3 }) {
		t.Fatalf("MinGrowthPages = %d after initial load, want 3", h.config.MinGrowthPages)
	}

	if err := os.WriteFile(path, []byte("7\n"), 0o644); err != nil {
		t.Fatalf("update policy file: %v", err)
	}

	if !waitUntil(t, func() bool { return h.config.MinGrowthPages == 7 }) {
		t.Fatalf("MinGrowthPages = %d after update, want 7", h.config.MinGrowthPages)
	}

	if err := os.WriteFile(path, []byte("not-a-number\n"), 0o644); err != nil {
		t.Fatalf("write malformed policy file: %v", err)
	}

	// A malformed update must be ignored; give the watcher a chance to
	// process it and confirm the last-good value survives.
	time.Sleep(100 * time.Millisecond)

	if h.config.MinGrowthPages != 7 {
		t.Fatalf("MinGrowthPages = %d after malformed update, want unchanged 7", h.config.MinGrowthPages)
	}
}

func waitUntil(t *testing.T, cond func() bool) bool {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}

		time.Sleep(10 * time.Millisecond)
	}

	return cond()
}
