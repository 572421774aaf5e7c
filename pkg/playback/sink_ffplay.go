package playback

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"runtime"
	"sync"
	"time"

	"github.com/arilabs/go-ari/pkg/pcm"
)

// FFPlaySink renders PCM by piping raw samples into an ffplay child
// process. ffplay buffers stdin internally, so chunks written in order
// play back-to-back; done callbacks fire on timers at each chunk's
// scheduled end. Flush restarts the process, which drops whatever it
// had buffered.
type FFPlaySink struct {
	path       string
	sampleRate int
	volume     int
	clock      Clock
	logger     *slog.Logger

	mu     sync.Mutex
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	timers []*time.Timer
	closed bool
}

// FFPlayOption configures an FFPlaySink.
type FFPlayOption func(*FFPlaySink)

// WithFFPlayPath overrides the ffplay binary path.
func WithFFPlayPath(path string) FFPlayOption {
	return func(s *FFPlaySink) { s.path = path }
}

// WithVolume sets the output volume, 0 to 100.
func WithVolume(volume int) FFPlayOption {
	return func(s *FFPlaySink) { s.volume = volume }
}

// NewFFPlaySink starts an ffplay process reading mono s16le from stdin
// at the given rate. The clock must be the same one the scheduler uses.
func NewFFPlaySink(sampleRate int, clock Clock, logger *slog.Logger, opts ...FFPlayOption) (*FFPlaySink, error) {
	if logger == nil {
		logger = slog.Default()
	}
	s := &FFPlaySink{
		path:       "ffplay",
		sampleRate: sampleRate,
		volume:     80,
		clock:      clock,
		logger:     logger,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.startLocked(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *FFPlaySink) startLocked() error {
	args := []string{
		"-hide_banner",
		"-loglevel", "error",
		"-nostats",
		"-volume", fmt.Sprintf("%d", s.volume),
		"-nodisp",
		"-f", "s16le",
		"-ch_layout", "mono",
		"-ar", fmt.Sprintf("%d", s.sampleRate),
		"-i", "-",
	}
	cmd := exec.Command(s.path, args...)
	if runtime.GOOS == "darwin" && os.Getenv("SDL_AUDIODRIVER") == "" {
		// SDL can pick a silent dummy backend on macOS; prefer CoreAudio.
		cmd.Env = append(os.Environ(), "SDL_AUDIODRIVER=coreaudio")
	}

	stdin, err := cmd.StdinPipe()
	if err != nil {
		return err
	}
	cmd.Stdout = io.Discard
	cmd.Stderr = os.Stderr
	if err := cmd.Start(); err != nil {
		stdin.Close()
		return fmt.Errorf("playback: starting %s: %w", s.path, err)
	}
	s.logger.Debug("ffplay started", "pid", cmd.Process.Pid, "rate", s.sampleRate)

	s.cmd = cmd
	s.stdin = stdin
	go func(c *exec.Cmd) {
		c.Wait()
		s.mu.Lock()
		if s.cmd == c {
			s.cmd = nil
			s.stdin = nil
		}
		s.mu.Unlock()
	}(cmd)
	return nil
}

// Play writes the chunk to ffplay immediately and arms a timer to fire
// done at the chunk's scheduled end.
func (s *FFPlaySink) Play(chunk pcm.Chunk, start time.Duration, done func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if s.stdin == nil {
		if err := s.startLocked(); err != nil {
			return err
		}
	}

	if _, err := s.stdin.Write(pcm.Pack(chunk.Samples)); err != nil {
		return fmt.Errorf("playback: writing to ffplay: %w", err)
	}

	if done != nil {
		delay := start + chunk.Duration() - s.clock.Now()
		if delay < 0 {
			delay = 0
		}
		s.timers = append(s.timers, time.AfterFunc(delay, done))
	}
	return nil
}

// Flush restarts the ffplay process, discarding its buffered audio, and
// cancels all pending done timers.
func (s *FFPlaySink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	s.stopLocked()
	return s.startLocked()
}

// Close stops ffplay and cancels pending timers. Idempotent.
func (s *FFPlaySink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	s.stopLocked()
	return nil
}

func (s *FFPlaySink) stopLocked() {
	for _, t := range s.timers {
		t.Stop()
	}
	s.timers = nil

	if s.stdin != nil {
		s.stdin.Close()
		s.stdin = nil
	}
	if s.cmd != nil && s.cmd.Process != nil {
		s.cmd.Process.Kill()
		s.cmd = nil
	}
}
