// Package capture acquires the camera and microphone as a single media
// grant and exposes the three continuous outputs the live pipeline needs:
// sampled frames for gaze inference, periodic downscaled JPEG snapshots
// for scene context, and fixed-size microphone sample blocks.
package capture

import (
	"errors"
	"fmt"
	"time"
)

// ErrMediaAccess indicates the camera or microphone could not be
// acquired: permission denied or no such device. The pipeline must not
// proceed to connect when acquisition fails.
var ErrMediaAccess = errors.New("capture: media access denied or device absent")

// Backend selects the microphone implementation.
type Backend string

const (
	// BackendAuto selects the best available backend for the platform.
	BackendAuto Backend = "auto"
	// BackendALSA uses Linux ALSA capture.
	BackendALSA Backend = "alsa"
	// BackendMock generates synthetic audio for tests and CI.
	BackendMock Backend = "mock"
)

// Config holds capture configuration.
type Config struct {
	// CameraDevice is the capture device index.
	CameraDevice int `yaml:"camera_device"`

	// FrameInterval is the gaze-inference sampling cadence.
	FrameInterval time.Duration `yaml:"frame_interval"`

	// SnapshotInterval is the scene-context snapshot cadence.
	SnapshotInterval time.Duration `yaml:"snapshot_interval"`

	// SnapshotMaxWidth bounds the snapshot width; larger frames are
	// scaled down for bandwidth before JPEG encoding.
	SnapshotMaxWidth int `yaml:"snapshot_max_width"`

	// JPEGQuality is the snapshot encode quality, 1-100.
	JPEGQuality int `yaml:"jpeg_quality"`

	// MicBackend selects the microphone implementation.
	MicBackend Backend `yaml:"mic_backend"`

	// MicDevice is the platform-specific microphone identifier.
	MicDevice string `yaml:"mic_device"`

	// MicRate is the microphone capture rate in Hz.
	MicRate int `yaml:"mic_rate"`

	// BlockSize is the number of samples per delivered audio block.
	BlockSize int `yaml:"block_size"`
}

// DefaultConfig returns capture defaults.
func DefaultConfig() Config {
	return Config{
		CameraDevice:     0,
		FrameInterval:    100 * time.Millisecond,
		SnapshotInterval: 500 * time.Millisecond,
		SnapshotMaxWidth: 640,
		JPEGQuality:      80,
		MicBackend:       BackendAuto,
		MicRate:          48000,
		BlockSize:        4096,
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	if c.FrameInterval <= 0 {
		return fmt.Errorf("capture: frame_interval must be positive, got %v", c.FrameInterval)
	}
	if c.SnapshotInterval <= 0 {
		return fmt.Errorf("capture: snapshot_interval must be positive, got %v", c.SnapshotInterval)
	}
	if c.JPEGQuality < 1 || c.JPEGQuality > 100 {
		return fmt.Errorf("capture: jpeg_quality must be 1-100, got %d", c.JPEGQuality)
	}
	if c.MicRate <= 0 {
		return fmt.Errorf("capture: mic_rate must be positive, got %d", c.MicRate)
	}
	if c.BlockSize <= 0 {
		return fmt.Errorf("capture: block_size must be positive, got %d", c.BlockSize)
	}
	return nil
}
