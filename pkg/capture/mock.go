package capture

import (
	"context"
	"io"
	"log/slog"
	"math"
	"sync"
	"time"
)

// MockSource is a synthetic microphone for tests and CI. It emits
// silence by default or a sine wave when configured.
type MockSource struct {
	cfg    Config
	logger *slog.Logger

	mu       sync.Mutex
	running  bool
	closed   bool
	streamCh chan Block
	stopCh   chan struct{}
	loopDone chan struct{}

	phase     float64
	frequency float64 // Hz, 0 = silence
	amplitude float64
}

// MockSourceOption configures a MockSource.
type MockSourceOption func(*MockSource)

// WithSineWave configures the mock to generate a sine wave.
func WithSineWave(frequency, amplitude float64) MockSourceOption {
	return func(m *MockSource) {
		m.frequency = frequency
		m.amplitude = amplitude
	}
}

// NewMockSource creates a new mock microphone source.
func NewMockSource(cfg Config, logger *slog.Logger, opts ...MockSourceOption) *MockSource {
	if logger == nil {
		logger = slog.Default()
	}
	m := &MockSource{
		cfg:       cfg,
		logger:    logger,
		streamCh:  make(chan Block, 10),
		stopCh:    make(chan struct{}),
		amplitude: 0.5,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Start begins generating blocks.
func (m *MockSource) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return io.ErrClosedPipe
	}
	if m.running {
		return nil
	}

	m.running = true
	m.stopCh = make(chan struct{})
	m.streamCh = make(chan Block, 10)
	m.loopDone = make(chan struct{})

	go m.generateLoop(ctx, m.stopCh, m.streamCh, m.loopDone)
	return nil
}

// generateLoop owns streamCh: it is the only goroutine that sends on it
// and the only one that closes it, on exit.
func (m *MockSource) generateLoop(ctx context.Context, stopCh <-chan struct{}, streamCh chan<- Block, done chan<- struct{}) {
	defer close(done)
	defer close(streamCh)

	interval := time.Duration(float64(m.cfg.BlockSize) / float64(m.cfg.MicRate) * float64(time.Second))
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.mu.Lock()
			m.running = false
			m.mu.Unlock()
			return
		case <-stopCh:
			return
		case <-ticker.C:
			block := m.generateBlock()
			select {
			case streamCh <- block:
			default:
				m.logger.Debug("mock source: buffer full, dropping block")
			}
		}
	}
}

func (m *MockSource) generateBlock() Block {
	samples := make([]float32, m.cfg.BlockSize)
	if m.frequency > 0 {
		for i := range samples {
			samples[i] = float32(m.amplitude * math.Sin(2*math.Pi*m.frequency*m.phase/float64(m.cfg.MicRate)))
			m.phase++
			if m.phase >= float64(m.cfg.MicRate) {
				m.phase = 0
			}
		}
	}
	return Block{Samples: samples, Rate: m.cfg.MicRate}
}

// Stream returns the block channel.
func (m *MockSource) Stream() <-chan Block {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.streamCh
}

// Stop halts generation and waits for the stream channel to close.
// Safe to call multiple times.
func (m *MockSource) Stop() error {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return nil
	}
	m.running = false
	close(m.stopCh)
	done := m.loopDone
	m.mu.Unlock()

	<-done
	return nil
}

// Name returns the backend name.
func (m *MockSource) Name() string { return string(BackendMock) }

// Close releases the source.
func (m *MockSource) Close() error {
	if err := m.Stop(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}

// MockCamera is a scripted camera for tests. Every grab returns the
// configured frame.
type MockCamera struct {
	mu     sync.Mutex
	frame  Frame
	grabs  int
	closes int
}

// NewMockCamera creates a mock camera serving the given frame.
func NewMockCamera(frame Frame) *MockCamera {
	return &MockCamera{frame: frame}
}

// Grab returns the scripted frame.
func (c *MockCamera) Grab() (Frame, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.grabs++
	return c.frame, nil
}

// GrabScaled returns the scripted frame.
func (c *MockCamera) GrabScaled(_, _ int) (Frame, error) {
	return c.Grab()
}

// Grabs returns how many frames were grabbed.
func (c *MockCamera) Grabs() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.grabs
}

// Close records the call. Idempotent.
func (c *MockCamera) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closes++
	return nil
}

// Closes returns how many times Close was called.
func (c *MockCamera) Closes() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closes
}
