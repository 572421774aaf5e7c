package pcm

import (
	"encoding/base64"
	"errors"
	"math"
	"testing"
	"time"
)

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []float32{0, 0.5, -0.5, 1, -1, 0.001, -0.001, 0.9999, -0.9999}

	out, err := Decode(Encode(in))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if len(out) != len(in) {
		t.Fatalf("length mismatch: got %d, want %d", len(out), len(in))
	}

	const step = 1.0 / 32768.0
	for i := range in {
		if diff := math.Abs(float64(out[i] - in[i])); diff > step {
			t.Errorf("sample %d: got %f, want %f (diff %f > %f)", i, out[i], in[i], diff, step)
		}
	}
}

func TestEncodeClamps(t *testing.T) {
	out, err := Decode(Encode([]float32{2.5, -3.0}))
	if err != nil {
		t.Fatalf("Decode failed: %v", err)
	}
	if out[0] < 0.999 {
		t.Errorf("positive overdrive not clamped to full scale, got %f", out[0])
	}
	if out[1] != -1 {
		t.Errorf("negative overdrive not clamped to -1, got %f", out[1])
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"invalid base64", "not-base64!!!"},
		{"odd byte count", base64.StdEncoding.EncodeToString([]byte{1, 2, 3})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.data); !errors.Is(err, ErrDecode) {
				t.Errorf("expected ErrDecode, got %v", err)
			}
		})
	}
}

func TestResampleIdentity(t *testing.T) {
	buf := []float32{0.1, 0.2, 0.3, 0.4}

	for _, rate := range []int{8000, 16000, 24000, 48000} {
		out := Resample(buf, rate, rate)
		if len(out) != len(buf) {
			t.Fatalf("rate %d: length changed from %d to %d", rate, len(buf), len(out))
		}
		for i := range buf {
			if out[i] != buf[i] {
				t.Errorf("rate %d: sample %d changed from %f to %f", rate, i, buf[i], out[i])
			}
		}
	}
}

func TestResampleDownLength(t *testing.T) {
	buf := make([]float32, 48000)
	out := Resample(buf, 48000, 16000)
	if len(out) != 16000 {
		t.Errorf("expected 16000 samples, got %d", len(out))
	}
}

func TestResampleDownAverages(t *testing.T) {
	// 3:1 decimation averages each window of three samples.
	buf := []float32{3, 3, 3, 6, 6, 6}
	out := Resample(buf, 48000, 16000)
	if len(out) != 2 {
		t.Fatalf("expected 2 samples, got %d", len(out))
	}
	if out[0] != 3 || out[1] != 6 {
		t.Errorf("expected [3 6], got %v", out)
	}
}

func TestResampleUp(t *testing.T) {
	// Upsampling admits single-sample windows; the output tracks the input.
	buf := []float32{1, -1}
	out := Resample(buf, 8000, 16000)
	if len(out) != 4 {
		t.Fatalf("expected 4 samples, got %d", len(out))
	}
	if out[0] != 1 {
		t.Errorf("expected first sample 1, got %f", out[0])
	}
}

func TestResampleEmpty(t *testing.T) {
	if out := Resample(nil, 48000, 16000); len(out) != 0 {
		t.Errorf("expected empty output, got %d samples", len(out))
	}
}

func TestChunkDuration(t *testing.T) {
	c := Chunk{Samples: make([]float32, 2400), Rate: 24000}
	if got := c.Duration(); got != 100*time.Millisecond {
		t.Errorf("expected 100ms, got %v", got)
	}

	zero := Chunk{Samples: make([]float32, 100)}
	if got := zero.Duration(); got != 0 {
		t.Errorf("expected 0 for zero rate, got %v", got)
	}
}
