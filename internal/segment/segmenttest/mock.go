// Package segmenttest provides a Provider test double used to exercise the
// allocator's growth-failure paths without relying on real memory pressure.
//
// It is written directly against segment.Provider rather than generated by a
// mocking framework, because the interface is tiny and stable and every
// caller only ever needs to fail a chosen Sbrk call - a hand-written double
// wrapping a real MemSegment is simpler than generating and driving call
// expectations for that.
package segmenttest

import "github.com/orizon-lang/heapalloc/internal/segment"

// MockProvider wraps a real segment.MemSegment and lets tests fail every
// Sbrk call from a chosen point on, to exercise ErrOutOfMemory handling
// deterministically.
type MockProvider struct {
	inner *segment.MemSegment

	failAfter int // fail the (failAfter+1)-th Sbrk call onward; -1 disables
	sbrkCalls int
}

// NewMockProvider creates a MockProvider backed by a fresh MemSegment.
func NewMockProvider(maxBytes, pageSize uintptr) *MockProvider {
	return &MockProvider{
		inner:     segment.NewMemSegment(maxBytes, pageSize),
		failAfter: -1,
	}
}

// FailSbrkAfter lets the first n Sbrk calls succeed and makes the (n+1)-th
// and all later calls fail with segment.ErrExhausted. n == 0 fails every
// call.
func (m *MockProvider) FailSbrkAfter(n int) { m.failAfter = n }

func (m *MockProvider) Init() error     { return m.inner.Init() }
func (m *MockProvider) Reset() error    { m.sbrkCalls = 0; return m.inner.Reset() }
func (m *MockProvider) Deinit() error   { return m.inner.Deinit() }
func (m *MockProvider) Lo() uintptr     { return m.inner.Lo() }
func (m *MockProvider) Hi() uintptr     { return m.inner.Hi() }
func (m *MockProvider) Size() uintptr   { return m.inner.Size() }
func (m *MockProvider) PageSize() uintptr { return m.inner.PageSize() }
func (m *MockProvider) Bytes() []byte   { return m.inner.Bytes() }

func (m *MockProvider) Sbrk(n uintptr) ([]byte, error) {
	if m.failAfter >= 0 && m.sbrkCalls >= m.failAfter {
		return nil, segment.ErrExhausted
	}

	m.sbrkCalls++

	return m.inner.Sbrk(n)
}
