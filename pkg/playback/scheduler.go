// Package playback schedules decoded model audio for gapless output.
// Chunks arrive faster than real time; the scheduler assigns each one a
// start offset on a monotonic timeline so consecutive chunks chain
// back-to-back, and supports flushing the whole pipeline when the model
// is interrupted.
package playback

import (
	"errors"
	"sync"
	"time"

	"github.com/arilabs/go-ari/pkg/pcm"
)

// ErrClosed is returned by Enqueue after the scheduler shuts down.
var ErrClosed = errors.New("playback: scheduler closed")

// Clock supplies the monotonic playback timeline. The zero offset is
// the moment the clock was created.
type Clock interface {
	Now() time.Duration
}

type realClock struct {
	base time.Time
}

func (c *realClock) Now() time.Duration { return time.Since(c.base) }

// NewClock returns a wall-backed monotonic clock starting at zero.
// Share one clock between the scheduler and its sink.
func NewClock() Clock { return &realClock{base: time.Now()} }

// Sink renders one chunk starting at the given timeline offset and
// invokes done when that chunk has finished playing. Flush discards
// everything the sink has buffered but not yet played. Play must not
// invoke done before returning; the scheduler calls Play with its lock
// held so chunks reach the sink in start order.
type Sink interface {
	Play(chunk pcm.Chunk, start time.Duration, done func()) error
	Flush() error
	Close() error
}

// Option configures a Scheduler.
type Option func(*Scheduler)

// WithClock replaces the monotonic clock. Tests use this to pin the
// timeline.
func WithClock(clock Clock) Option {
	return func(s *Scheduler) { s.clock = clock }
}

// Scheduler assigns start offsets to inbound audio chunks. The next
// chunk starts either now or exactly when the previous one ends,
// whichever is later, so playback is gapless and never scheduled in
// the past.
type Scheduler struct {
	sink  Sink
	clock Clock

	mu      sync.Mutex
	next    time.Duration
	pending int
	gen     uint64
	closed  bool
}

// NewScheduler creates a scheduler over the given sink.
func NewScheduler(sink Sink, opts ...Option) *Scheduler {
	s := &Scheduler{
		sink:  sink,
		clock: NewClock(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Enqueue schedules one chunk for playback. Chunks play in arrival
// order; each start offset is max(now, end of previous chunk).
func (s *Scheduler) Enqueue(chunk pcm.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}

	start := s.clock.Now()
	if s.next > start {
		start = s.next
	}
	s.next = start + chunk.Duration()
	s.pending++
	gen := s.gen

	// The lock stays held across Play: concurrent enqueuers must not
	// hand the sink chunks out of start order.
	return s.sink.Play(chunk, start, func() { s.chunkDone(gen) })
}

// chunkDone retires one completion. Completions from before the most
// recent flush are ignored.
func (s *Scheduler) chunkDone(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen || s.pending == 0 {
		return
	}
	s.pending--
}

// Flush discards all queued and in-flight audio and resets the timeline
// cursor so the next chunk starts immediately.
func (s *Scheduler) Flush() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.gen++
	s.pending = 0
	s.next = s.clock.Now()
	s.mu.Unlock()

	return s.sink.Flush()
}

// Pending returns the number of chunks scheduled but not yet finished.
func (s *Scheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

// NextStart returns the timeline offset the next chunk would start at.
func (s *Scheduler) NextStart() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if now := s.clock.Now(); now > s.next {
		return now
	}
	return s.next
}

// Close flushes and releases the sink. Enqueue fails afterwards.
func (s *Scheduler) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.gen++
	s.pending = 0
	s.mu.Unlock()

	return s.sink.Close()
}
