package playback

import (
	"sync"
	"time"

	"github.com/arilabs/go-ari/pkg/pcm"
)

// MockClock is a manually advanced Clock for tests.
type MockClock struct {
	mu  sync.Mutex
	now time.Duration
}

// NewMockClock returns a clock pinned at zero.
func NewMockClock() *MockClock { return &MockClock{} }

func (c *MockClock) Now() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *MockClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now += d
	c.mu.Unlock()
}

// PlayedChunk records one Play call on a MockSink.
type PlayedChunk struct {
	Chunk pcm.Chunk
	Start time.Duration
	Done  func()
}

// MockSink records scheduled chunks without rendering anything. Tests
// invoke each recorded Done callback to simulate playback completing.
type MockSink struct {
	mu      sync.Mutex
	played  []PlayedChunk
	flushes int
	closed  bool
}

// NewMockSink returns an empty recording sink.
func NewMockSink() *MockSink { return &MockSink{} }

func (s *MockSink) Play(chunk pcm.Chunk, start time.Duration, done func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.played = append(s.played, PlayedChunk{Chunk: chunk, Start: start, Done: done})
	return nil
}

func (s *MockSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *MockSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Played returns a copy of the recorded Play calls.
func (s *MockSink) Played() []PlayedChunk {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]PlayedChunk(nil), s.played...)
}

// Flushes returns how many times Flush was called.
func (s *MockSink) Flushes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.flushes
}

// Closed reports whether Close was called.
func (s *MockSink) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}
