// Package turns assembles streaming transcription deltas into completed
// conversation turns. The remote endpoint emits partial user and model
// transcripts interleaved with audio; the aggregator buffers each side,
// mirrors the partials as live captions, and flushes one Turn per
// completed exchange.
package turns

import (
	"strings"
	"sync"
	"time"
)

// DefaultCaptionClearDelay is how long captions stay visible after a
// turn completes.
const DefaultCaptionClearDelay = 2 * time.Second

// Turn is one completed exchange: everything the user said and
// everything the model answered between two turn boundaries.
type Turn struct {
	User  string
	Model string
}

// Caption is the live partial transcript of the in-progress turn.
type Caption struct {
	User  string
	Model string
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithCaptionClearDelay overrides how long captions linger after a
// completed turn.
func WithCaptionClearDelay(d time.Duration) Option {
	return func(a *Aggregator) { a.clearDelay = d }
}

// Aggregator folds transcription deltas into turns. onTurn fires
// exactly once per completed non-empty turn; onCaption fires on every
// partial update and once more, empty, after the linger delay. Either
// callback may be nil.
type Aggregator struct {
	onTurn     func(Turn)
	onCaption  func(Caption)
	clearDelay time.Duration

	mu         sync.Mutex
	user       strings.Builder
	model      strings.Builder
	clearTimer *time.Timer
	closed     bool
}

// NewAggregator creates an aggregator.
func NewAggregator(onTurn func(Turn), onCaption func(Caption), opts ...Option) *Aggregator {
	a := &Aggregator{
		onTurn:     onTurn,
		onCaption:  onCaption,
		clearDelay: DefaultCaptionClearDelay,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// AddUserDelta appends a partial user transcript.
func (a *Aggregator) AddUserDelta(text string) {
	a.addDelta(&a.user, text)
}

// AddModelDelta appends a partial model transcript.
func (a *Aggregator) AddModelDelta(text string) {
	a.addDelta(&a.model, text)
}

func (a *Aggregator) addDelta(buf *strings.Builder, text string) {
	a.mu.Lock()
	if a.closed || text == "" {
		a.mu.Unlock()
		return
	}
	a.stopClearTimerLocked()
	buf.WriteString(text)
	caption := a.captionLocked()
	a.mu.Unlock()

	a.emitCaption(caption)
}

// CompleteTurn flushes the buffered transcripts. Turns where both sides
// are empty are dropped. Captions clear after the linger delay.
func (a *Aggregator) CompleteTurn() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	turn := Turn{User: a.user.String(), Model: a.model.String()}
	a.user.Reset()
	a.model.Reset()
	a.scheduleClearLocked()
	a.mu.Unlock()

	if turn.User == "" && turn.Model == "" {
		return
	}
	if a.onTurn != nil {
		a.onTurn(turn)
	}
}

// Interrupt discards the model's partial transcript while keeping the
// user's. Called when the user barges in over model speech.
func (a *Aggregator) Interrupt() {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return
	}
	a.model.Reset()
	caption := a.captionLocked()
	a.mu.Unlock()

	a.emitCaption(caption)
}

// Pending returns the in-progress caption.
func (a *Aggregator) Pending() Caption {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.captionLocked()
}

// Close cancels the caption timer. Further deltas are ignored.
func (a *Aggregator) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.closed = true
	a.stopClearTimerLocked()
}

func (a *Aggregator) captionLocked() Caption {
	return Caption{User: a.user.String(), Model: a.model.String()}
}

func (a *Aggregator) scheduleClearLocked() {
	a.stopClearTimerLocked()
	if a.onCaption == nil {
		return
	}
	a.clearTimer = time.AfterFunc(a.clearDelay, func() {
		a.mu.Lock()
		closed := a.closed
		a.mu.Unlock()
		if !closed {
			a.onCaption(Caption{})
		}
	})
}

func (a *Aggregator) stopClearTimerLocked() {
	if a.clearTimer != nil {
		a.clearTimer.Stop()
		a.clearTimer = nil
	}
}

func (a *Aggregator) emitCaption(c Caption) {
	if a.onCaption != nil {
		a.onCaption(c)
	}
}
