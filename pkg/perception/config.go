// Package perception coordinates the live interaction pipeline: media
// capture feeds the attention detector and the streaming session, and
// server events fan out to playback, captions, and the chat log. All
// event sources push into one internal channel consumed by a single
// loop, so cross-component state never needs shared locks.
package perception

import (
	"github.com/arilabs/go-ari/pkg/attention"
	"github.com/arilabs/go-ari/pkg/capture"
	"github.com/arilabs/go-ari/pkg/live"
	"github.com/arilabs/go-ari/pkg/vision"
)

// Config aggregates the per-component configuration.
type Config struct {
	// AttentionThreshold is the nose-deviance fraction of face width.
	AttentionThreshold float64 `yaml:"attention_threshold"`

	// InputRate is the sample rate transmitted to the session.
	InputRate int `yaml:"input_rate"`

	// OutputRate is the sample rate of audio the session returns.
	OutputRate int `yaml:"output_rate"`

	Capture capture.Config `yaml:"capture"`
	Session live.Config    `yaml:"session"`
	Vision  vision.Config  `yaml:"vision"`
}

// DefaultConfig returns pipeline defaults.
func DefaultConfig() Config {
	return Config{
		AttentionThreshold: attention.DefaultThreshold,
		InputRate:          16000,
		OutputRate:         24000,
		Capture:            capture.DefaultConfig(),
		Session:            live.DefaultConfig(),
		Vision:             vision.DefaultConfig(),
	}
}

// Validate checks the aggregate configuration.
func (c *Config) Validate() error {
	if err := c.Capture.Validate(); err != nil {
		return err
	}
	return c.Session.Validate()
}
