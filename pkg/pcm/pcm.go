// Package pcm converts between the textual wire encoding used by the live
// session (base64 little-endian PCM16) and float32 sample buffers, and
// provides the sample-rate conversion used on the microphone path.
package pcm

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"
)

// ErrDecode indicates a malformed inbound audio payload.
var ErrDecode = errors.New("pcm: malformed audio payload")

// Chunk is an immutable buffer of mono samples at a declared rate.
type Chunk struct {
	Samples []float32
	Rate    int
}

// Duration returns the playback length of the chunk.
func (c Chunk) Duration() time.Duration {
	if c.Rate <= 0 {
		return 0
	}
	return time.Duration(float64(len(c.Samples)) / float64(c.Rate) * float64(time.Second))
}

// Decode interprets base64 text as little-endian 16-bit signed PCM and
// scales each sample to [-1.0, 1.0].
func Decode(data string) ([]float32, error) {
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrDecode, err)
	}
	if len(raw)%2 != 0 {
		return nil, fmt.Errorf("%w: odd byte count %d", ErrDecode, len(raw))
	}

	out := make([]float32, len(raw)/2)
	for i := range out {
		s := int16(raw[i*2]) | int16(raw[i*2+1])<<8
		out[i] = float32(s) / 32768.0
	}
	return out, nil
}

// Encode clamps samples to [-1.0, 1.0], quantizes to 16-bit signed PCM and
// returns the base64 encoding. Positive samples scale by 32767 and negative
// samples by 32768, matching the asymmetric int16 range, so a decode of the
// result stays within one quantization step of the input.
func Encode(samples []float32) string {
	return base64.StdEncoding.EncodeToString(Pack(samples))
}

// Pack quantizes samples to raw little-endian 16-bit signed PCM bytes,
// the format consumed by local playback sinks.
func Pack(samples []float32) []byte {
	raw := make([]byte, len(samples)*2)
	for i, f := range samples {
		if f > 1 {
			f = 1
		}
		if f < -1 {
			f = -1
		}

		var s int16
		if f < 0 {
			s = int16(f * 32768)
		} else {
			s = int16(f * 32767)
		}
		raw[i*2] = byte(s)
		raw[i*2+1] = byte(s >> 8)
	}
	return raw
}
