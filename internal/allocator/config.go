package allocator

import (
	"bufio"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/Masterminds/semver/v3"
	"github.com/fsnotify/fsnotify"
)

// WireVersion is the allocator's declared wire/ABI version. New checks it
// against Config.CompatVersion when that constraint is set; the package has
// no snapshot or restore facility that reads it.
const WireVersion = "1.0.0"

// Config holds tunables for a Heap, built with the functional-options
// pattern used throughout the reference codebase's allocator package.
type Config struct {
	// InitialPages is how many pages to request on the very first growth.
	InitialPages uintptr

	// MinGrowthPages is the floor applied to every growth request,
	// independent of how large the triggering allocation was.
	MinGrowthPages uintptr

	// CompatVersion, if set, must satisfy a semver constraint against
	// WireVersion at Init time.
	CompatVersion string

	// Logger receives structured records for growth failures and for
	// policy-file reloads. Verify() does not log.
	Logger *slog.Logger
}

// Option mutates a Config during New.
type Option func(*Config)

func defaultConfig() *Config {
	return &Config{
		InitialPages:   1,
		MinGrowthPages: 1,
		Logger:         slog.Default(),
	}
}

// WithInitialPages sets how many pages the first growth should request.
func WithInitialPages(n uintptr) Option {
	return func(c *Config) { c.InitialPages = n }
}

// WithMinGrowthPages sets the floor applied to every subsequent growth
// request.
func WithMinGrowthPages(n uintptr) Option {
	return func(c *Config) { c.MinGrowthPages = n }
}

// WithLogger overrides the default slog.Logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// WithCompatVersion requires the wire version to satisfy the given semver
// constraint (e.g. "^1.0.0") at Init time.
func WithCompatVersion(constraint string) Option {
	return func(c *Config) { c.CompatVersion = constraint }
}

func (c *Config) checkCompat() error {
	if c.CompatVersion == "" {
		return nil
	}

	constraint, err := semver.NewConstraint(c.CompatVersion)
	if err != nil {
		return fmt.Errorf("allocator: invalid compat constraint %q: %w", c.CompatVersion, err)
	}

	wire, err := semver.NewVersion(WireVersion)
	if err != nil {
		return fmt.Errorf("allocator: invalid wire version %q: %w", WireVersion, err)
	}

	if !constraint.Check(wire) {
		return fmt.Errorf("allocator: wire version %s does not satisfy constraint %q", WireVersion, c.CompatVersion)
	}

	return nil
}

// policyWatcher hot-reloads Heap.minGrowthPages from a one-line text file
// (a single decimal integer, the preferred growth page-count hint) without
// requiring a restart. It is intentionally minimal: malformed or missing
// files leave the last-good value in place and only produce a warning log,
// per SPEC_FULL.md's "non-fatal" requirement for this feature.
type policyWatcher struct {
	watcher *fsnotify.Watcher
	heap    *Heap
	path    string
	done    chan struct{}
}

// WatchPolicyFile starts watching path for changes and hot-reloads the
// heap's minimum-growth-page hint whenever it changes. The returned stop
// function stops watching; it is safe to call more than once.
func (h *Heap) WatchPolicyFile(path string) (stop func(), err error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("allocator: starting policy watcher: %w", err)
	}

	if err := w.Add(path); err != nil {
		w.Close()
		return nil, fmt.Errorf("allocator: watching policy file %s: %w", path, err)
	}

	pw := &policyWatcher{watcher: w, heap: h, path: path, done: make(chan struct{})}
	pw.reload() // best-effort initial load

	go pw.loop()

	return func() {
		select {
		case <-pw.done:
		default:
			close(pw.done)
			w.Close()
		}
	}, nil
}

func (pw *policyWatcher) loop() {
	for {
		select {
		case event, ok := <-pw.watcher.Events:
			if !ok {
				return
			}

			if event.Op&(fsnotify.Write|fsnotify.Create) != 0 {
				pw.reload()
			}
		case err, ok := <-pw.watcher.Errors:
			if !ok {
				return
			}

			pw.heap.config.Logger.Warn("policy watcher error", "path", pw.path, "error", err)
		case <-pw.done:
			return
		}
	}
}

func (pw *policyWatcher) reload() {
	f, err := os.Open(pw.path)
	if err != nil {
		pw.heap.config.Logger.Warn("policy reload: cannot open file, keeping prior value",
			"path", pw.path, "error", err)

		return
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	if !scanner.Scan() {
		pw.heap.config.Logger.Warn("policy reload: empty file, keeping prior value", "path", pw.path)
		return
	}

	n, err := strconv.ParseUint(strings.TrimSpace(scanner.Text()), 10, 64)
	if err != nil || n == 0 {
		pw.heap.config.Logger.Warn("policy reload: malformed page-count hint, keeping prior value",
			"path", pw.path, "error", err)

		return
	}

	pw.heap.setMinGrowthPages(uintptr(n))
	pw.heap.config.Logger.Info("policy reloaded", "path", pw.path, "min_growth_pages", n)
}
