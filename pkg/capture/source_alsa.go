//go:build linux

package capture

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"sync"
)

// ALSASource captures microphone audio on Linux by reading raw S16_LE
// PCM from arecord. Running the capture through a child process keeps
// the build cgo-free.
type ALSASource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan Block
	stopCh   chan struct{}
	loopDone chan struct{}
	cmd      *exec.Cmd
	stdout   io.ReadCloser
	device   string
}

func newALSASource(cfg Config, logger *slog.Logger) (*ALSASource, error) {
	device := cfg.MicDevice
	if device == "" {
		device = "default"
	}
	return &ALSASource{
		cfg:      cfg,
		logger:   logger,
		device:   device,
		streamCh: make(chan Block, 10),
		stopCh:   make(chan struct{}),
	}, nil
}

// Start spawns arecord and begins delivering blocks.
func (s *ALSASource) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return io.ErrClosedPipe
	}
	if s.running {
		return nil
	}

	cmd := exec.Command("arecord",
		"-q",
		"-D", s.device,
		"-f", "S16_LE",
		"-c", "1",
		"-r", fmt.Sprintf("%d", s.cfg.MicRate),
		"-t", "raw",
	)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMediaAccess, err)
	}
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("%w: arecord: %v", ErrMediaAccess, err)
	}

	s.cmd = cmd
	s.stdout = stdout
	s.running = true
	s.stopCh = make(chan struct{})
	s.streamCh = make(chan Block, 10)
	s.loopDone = make(chan struct{})

	go s.readLoop(ctx, stdout, s.stopCh, s.streamCh, s.loopDone)

	s.logger.Info("ALSA audio source started", "device", s.device, "rate", s.cfg.MicRate)
	return nil
}

// readLoop owns streamCh: it is the only goroutine that sends on it and
// the only one that closes it, on exit.
func (s *ALSASource) readLoop(ctx context.Context, r io.Reader, stopCh <-chan struct{}, streamCh chan<- Block, done chan<- struct{}) {
	defer close(done)
	defer close(streamCh)

	raw := make([]byte, s.cfg.BlockSize*2)
	for {
		select {
		case <-ctx.Done():
			s.reap()
			return
		case <-stopCh:
			return
		default:
		}

		if _, err := io.ReadFull(r, raw); err != nil {
			s.mu.Lock()
			running := s.running
			s.mu.Unlock()
			if running {
				s.logger.Warn("ALSA capture ended", "err", err)
			}
			return
		}

		samples := make([]float32, len(raw)/2)
		for i := range samples {
			v := int16(raw[i*2]) | int16(raw[i*2+1])<<8
			samples[i] = float32(v) / 32768.0
		}

		select {
		case streamCh <- Block{Samples: samples, Rate: s.cfg.MicRate}:
		default:
			s.logger.Debug("ALSA source: buffer full, dropping block")
		}
	}
}

// reap kills arecord when the capture context is cancelled.
func (s *ALSASource) reap() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.running = false
	if s.cmd != nil && s.cmd.Process != nil {
		_ = s.cmd.Process.Kill()
		_ = s.cmd.Wait()
	}
	s.cmd = nil
}

// Stream returns the block channel.
func (s *ALSASource) Stream() <-chan Block {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.streamCh
}

// Stop halts capture, kills the child process and waits for the stream
// channel to close. Safe to call multiple times.
func (s *ALSASource) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	close(s.stopCh)
	if s.cmd != nil && s.cmd.Process != nil {
		// Unblocks the read loop; it observes EOF and exits.
		_ = s.cmd.Process.Kill()
	}
	done := s.loopDone
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	if s.cmd != nil {
		_ = s.cmd.Wait()
		s.cmd = nil
	}
	s.mu.Unlock()
	return nil
}

// Name returns the backend name.
func (s *ALSASource) Name() string { return string(BackendALSA) }

// Close releases the source.
func (s *ALSASource) Close() error {
	if err := s.Stop(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
