package vision

import (
	"sync"

	"github.com/arilabs/go-ari/pkg/attention"
)

// Mock is a scripted landmark provider for tests. Each Detect call pops
// the next scripted result; once the script is exhausted the last result
// repeats.
type Mock struct {
	mu      sync.Mutex
	results []MockResult
	index   int
	calls   int
	closed  bool
}

// MockResult is one scripted Detect outcome.
type MockResult struct {
	Landmarks *attention.Landmarks
	Err       error
}

// NewMock creates a mock provider with the given script.
func NewMock(results ...MockResult) *Mock {
	return &Mock{results: results}
}

// Detect returns the next scripted result.
func (m *Mock) Detect(_ []byte) (*attention.Landmarks, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls++
	if len(m.results) == 0 {
		return nil, nil
	}
	r := m.results[m.index]
	if m.index < len(m.results)-1 {
		m.index++
	}
	return r.Landmarks, r.Err
}

// Calls returns how many times Detect was invoked.
func (m *Mock) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Close marks the provider closed.
func (m *Mock) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// Closed reports whether Close was called.
func (m *Mock) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}
