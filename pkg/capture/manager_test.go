package capture

import (
	"context"
	"sync"
	"testing"
	"time"
)

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.MicBackend = BackendMock
	cfg.FrameInterval = 5 * time.Millisecond
	cfg.SnapshotInterval = 10 * time.Millisecond
	cfg.MicRate = 16000
	cfg.BlockSize = 160
	return cfg
}

func TestManagerEmitsAllOutputs(t *testing.T) {
	cfg := testConfig()
	cam := NewMockCamera(Frame{JPEG: []byte{0xff, 0xd8}, Width: 640, Height: 480})
	src := NewMockSource(cfg, nil, WithSineWave(440, 0.5))

	m, err := NewManagerWithDevices(cfg, nil, cam, src)
	if err != nil {
		t.Fatalf("NewManagerWithDevices: %v", err)
	}

	var mu sync.Mutex
	frames, snapshots, blocks := 0, 0, 0
	m.OnFrame = func(Frame) { mu.Lock(); frames++; mu.Unlock() }
	m.OnSnapshot = func([]byte) { mu.Lock(); snapshots++; mu.Unlock() }
	m.OnAudioBlock = func(b Block) {
		mu.Lock()
		blocks++
		mu.Unlock()
		if len(b.Samples) != cfg.BlockSize {
			t.Errorf("block size %d, want %d", len(b.Samples), cfg.BlockSize)
		}
		if b.Rate != cfg.MicRate {
			t.Errorf("block rate %d, want %d", b.Rate, cfg.MicRate)
		}
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		mu.Lock()
		done := frames > 0 && snapshots > 0 && blocks > 0
		mu.Unlock()
		if done {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if frames == 0 {
		t.Error("no gaze frames emitted")
	}
	if snapshots == 0 {
		t.Error("no snapshots emitted")
	}
	if blocks == 0 {
		t.Error("no audio blocks emitted")
	}
}

func TestManagerCloseIdempotent(t *testing.T) {
	cfg := testConfig()
	cam := NewMockCamera(Frame{JPEG: []byte{1}})
	src := NewMockSource(cfg, nil)

	m, err := NewManagerWithDevices(cfg, nil, cam, src)
	if err != nil {
		t.Fatalf("NewManagerWithDevices: %v", err)
	}
	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if err := m.Close(); err != nil {
		t.Fatalf("first Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}

	if cam.Closes() != 1 {
		t.Errorf("camera closed %d times, want 1", cam.Closes())
	}
}

func TestManagerNoEmissionAfterClose(t *testing.T) {
	cfg := testConfig()
	cam := NewMockCamera(Frame{JPEG: []byte{1}})
	src := NewMockSource(cfg, nil, WithSineWave(440, 0.5))

	m, _ := NewManagerWithDevices(cfg, nil, cam, src)

	var mu sync.Mutex
	emissions := 0
	m.OnFrame = func(Frame) { mu.Lock(); emissions++; mu.Unlock() }

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(30 * time.Millisecond)
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	mu.Lock()
	atClose := emissions
	mu.Unlock()

	time.Sleep(30 * time.Millisecond)

	mu.Lock()
	defer mu.Unlock()
	if emissions != atClose {
		t.Errorf("emissions continued after Close: %d -> %d", atClose, emissions)
	}
}

func TestManagerStartAfterCloseFails(t *testing.T) {
	cfg := testConfig()
	m, _ := NewManagerWithDevices(cfg, nil, NewMockCamera(Frame{}), NewMockSource(cfg, nil))
	if err := m.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := m.Start(context.Background()); err == nil {
		t.Error("Start after Close should fail")
	}
}

func TestManagerBlockAccumulation(t *testing.T) {
	// The mock delivers BlockSize samples per tick; halving the block
	// size must double delivered blocks without changing sample counts.
	cfg := testConfig()
	cfg.BlockSize = 80

	src := NewMockSource(testConfig(), nil, WithSineWave(100, 0.3))
	m, _ := NewManagerWithDevices(cfg, nil, NewMockCamera(Frame{JPEG: []byte{1}}), src)

	var mu sync.Mutex
	total := 0
	m.OnAudioBlock = func(b Block) {
		mu.Lock()
		total += len(b.Samples)
		mu.Unlock()
		if len(b.Samples) != 80 {
			t.Errorf("block size %d, want 80", len(b.Samples))
		}
	}

	if err := m.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	time.Sleep(100 * time.Millisecond)
	m.Close()

	mu.Lock()
	defer mu.Unlock()
	if total == 0 {
		t.Error("no samples delivered")
	}
	if total%80 != 0 {
		t.Errorf("total samples %d not a multiple of block size", total)
	}
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"defaults", func(*Config) {}, false},
		{"zero frame interval", func(c *Config) { c.FrameInterval = 0 }, true},
		{"zero snapshot interval", func(c *Config) { c.SnapshotInterval = 0 }, true},
		{"bad jpeg quality", func(c *Config) { c.JPEGQuality = 0 }, true},
		{"bad mic rate", func(c *Config) { c.MicRate = -1 }, true},
		{"bad block size", func(c *Config) { c.BlockSize = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)
			if err := cfg.Validate(); (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestSourceStopDuringDelivery(t *testing.T) {
	cfg := testConfig()
	// 1ms tick so Stop lands while the generator is mid-send.
	cfg.BlockSize = 16

	for i := 0; i < 30; i++ {
		src := NewMockSource(cfg, nil, WithSineWave(440, 0.5))
		if err := src.Start(context.Background()); err != nil {
			t.Fatalf("iteration %d: Start: %v", i, err)
		}

		drained := make(chan struct{})
		go func(stream <-chan Block) {
			for range stream {
			}
			close(drained)
		}(src.Stream())

		time.Sleep(time.Millisecond)
		if err := src.Stop(); err != nil {
			t.Fatalf("iteration %d: Stop: %v", i, err)
		}

		select {
		case <-drained:
		case <-time.After(time.Second):
			t.Fatalf("iteration %d: stream not closed after Stop", i)
		}
		if err := src.Close(); err != nil {
			t.Fatalf("iteration %d: Close: %v", i, err)
		}
	}
}

func TestSourceContextCancelClosesStream(t *testing.T) {
	cfg := testConfig()
	src := NewMockSource(cfg, nil)

	ctx, cancel := context.WithCancel(context.Background())
	if err := src.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	cancel()

	drained := make(chan struct{})
	go func() {
		for range src.Stream() {
		}
		close(drained)
	}()

	select {
	case <-drained:
	case <-time.After(time.Second):
		t.Fatal("stream not closed after context cancel")
	}
	if err := src.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
}
