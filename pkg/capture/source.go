package capture

import (
	"context"
	"fmt"
	"log/slog"
	"runtime"
)

// Block is a fixed-size buffer of raw microphone samples at the capture
// rate. Ownership transfers to the receiver once delivered.
type Block struct {
	Samples []float32
	Rate    int
}

// Source captures audio from a microphone or other input device.
type Source interface {
	// Start begins capture. Blocks arrive on Stream afterward.
	Start(ctx context.Context) error

	// Stream returns the channel delivering captured blocks. It is
	// closed when the source stops.
	Stream() <-chan Block

	// Stop halts capture. Safe to call multiple times.
	Stop() error

	// Name returns the backend name.
	Name() string

	// Close releases all resources. After Close the source cannot be
	// restarted.
	Close() error
}

// NewSource creates the microphone source for the configured backend.
// BackendAuto picks ALSA on Linux and the mock elsewhere.
func NewSource(cfg Config, logger *slog.Logger) (Source, error) {
	if logger == nil {
		logger = slog.Default()
	}

	backend := cfg.MicBackend
	if backend == BackendAuto {
		backend = detectBestBackend()
	}

	logger.Info("creating audio source",
		"backend", backend,
		"rate", cfg.MicRate,
		"block_size", cfg.BlockSize,
	)

	switch backend {
	case BackendMock:
		return NewMockSource(cfg, logger), nil
	case BackendALSA:
		src, err := newALSASource(cfg, logger)
		if err != nil {
			return nil, err
		}
		return src, nil
	default:
		return nil, fmt.Errorf("%w: unsupported mic backend %q", ErrMediaAccess, backend)
	}
}

func detectBestBackend() Backend {
	if runtime.GOOS == "linux" {
		return BackendALSA
	}
	return BackendMock
}
