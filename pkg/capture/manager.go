package capture

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Manager owns the raw media pipeline: one camera and one microphone
// acquired together, feeding three continuous outputs. Callbacks must be
// set before Start and are invoked from the manager's own goroutines.
type Manager struct {
	cfg    Config
	logger *slog.Logger

	// OnFrame receives sampled frames for gaze inference.
	OnFrame func(Frame)

	// OnSnapshot receives periodic downscaled JPEG stills for
	// scene-context transmission.
	OnSnapshot func(jpeg []byte)

	// OnAudioBlock receives fixed-size microphone sample blocks.
	OnAudioBlock func(Block)

	mu      sync.Mutex
	camera  Camera
	source  Source
	running bool
	closed  bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

// NewManager creates a capture manager. The camera and microphone are
// not acquired until Start.
func NewManager(cfg Config, logger *slog.Logger) (*Manager, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{cfg: cfg, logger: logger}, nil
}

// NewManagerWithDevices creates a manager over pre-built devices. Used
// by tests and callers that manage device construction themselves.
func NewManagerWithDevices(cfg Config, logger *slog.Logger, camera Camera, source Source) (*Manager, error) {
	m, err := NewManager(cfg, logger)
	if err != nil {
		return nil, err
	}
	m.camera = camera
	m.source = source
	return m, nil
}

// Start acquires both devices and begins emitting. If either device
// fails the other is released and ErrMediaAccess is reported.
func (m *Manager) Start(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return fmt.Errorf("capture: manager closed")
	}
	if m.running {
		return nil
	}

	if m.camera == nil {
		cam, err := OpenWebcam(m.cfg.CameraDevice)
		if err != nil {
			return err
		}
		m.camera = cam
	}
	if m.source == nil {
		src, err := NewSource(m.cfg, m.logger)
		if err != nil {
			m.camera.Close()
			m.camera = nil
			return err
		}
		m.source = src
	}

	if err := m.source.Start(ctx); err != nil {
		m.camera.Close()
		m.camera = nil
		m.source.Close()
		m.source = nil
		return fmt.Errorf("%w: %v", ErrMediaAccess, err)
	}

	m.running = true
	m.stopCh = make(chan struct{})

	m.wg.Add(3)
	go m.frameLoop()
	go m.snapshotLoop()
	go m.audioLoop()

	m.logger.Info("capture started",
		"mic", m.source.Name(),
		"frame_interval", m.cfg.FrameInterval,
		"snapshot_interval", m.cfg.SnapshotInterval,
	)
	return nil
}

func (m *Manager) frameLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.FrameInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			frame, err := m.camera.Grab()
			if err != nil {
				m.logger.Debug("frame grab failed", "err", err)
				continue
			}
			if fn := m.OnFrame; fn != nil {
				fn(frame)
			}
		}
	}
}

func (m *Manager) snapshotLoop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.SnapshotInterval)
	defer ticker.Stop()

	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			frame, err := m.camera.GrabScaled(m.cfg.SnapshotMaxWidth, m.cfg.JPEGQuality)
			if err != nil {
				m.logger.Debug("snapshot grab failed", "err", err)
				continue
			}
			if fn := m.OnSnapshot; fn != nil {
				fn(frame.JPEG)
			}
		}
	}
}

func (m *Manager) audioLoop() {
	defer m.wg.Done()

	stream := m.source.Stream()
	pending := make([]float32, 0, m.cfg.BlockSize)

	for {
		select {
		case <-m.stopCh:
			return
		case block, ok := <-stream:
			if !ok {
				return
			}
			pending = append(pending, block.Samples...)
			for len(pending) >= m.cfg.BlockSize {
				out := make([]float32, m.cfg.BlockSize)
				copy(out, pending[:m.cfg.BlockSize])
				pending = pending[m.cfg.BlockSize:]
				if fn := m.OnAudioBlock; fn != nil {
					fn(Block{Samples: out, Rate: block.Rate})
				}
			}
		}
	}
}

// Close stops all outputs and releases both devices synchronously.
// Idempotent: calling it again is a no-op.
func (m *Manager) Close() error {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return nil
	}
	m.closed = true
	running := m.running
	m.running = false
	if running {
		close(m.stopCh)
	}
	camera, source := m.camera, m.source
	m.camera, m.source = nil, nil
	m.mu.Unlock()

	if running {
		m.wg.Wait()
	}

	var firstErr error
	if source != nil {
		if err := source.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	if camera != nil {
		if err := camera.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	m.logger.Info("capture stopped")
	return firstErr
}
