// Package live manages the bidirectional streaming session with the
// Gemini Live endpoint: connect and setup, outbound media chunks
// (continuous gated audio, periodic video stills), inbound server event
// demultiplexing, and teardown.
package live

import (
	"errors"
	"fmt"
)

const (
	// liveURL is the BidiGenerateContent WebSocket endpoint.
	liveURL = "wss://generativelanguage.googleapis.com/ws/google.ai.generativelanguage.v1beta.GenerativeService.BidiGenerateContent"

	// defaultModel is used when no model is configured.
	defaultModel = "models/gemini-2.0-flash-exp"

	// defaultVoice is the prebuilt voice used when none is configured.
	defaultVoice = "Zephyr"

	// MimeAudioPCM is the outbound audio chunk mime type.
	MimeAudioPCM = "audio/pcm;rate=16000"

	// MimeJPEG is the outbound video snapshot mime type.
	MimeJPEG = "image/jpeg"
)

// Common errors returned by sessions.
var (
	ErrNotConnected  = errors.New("live: session not open")
	ErrAlreadyOpen   = errors.New("live: session already open")
	ErrMissingAPIKey = errors.New("live: missing API key")
	ErrConnection    = errors.New("live: connection failed")
)

// Config carries the connect-time options for a session.
type Config struct {
	// APIKey authenticates the WebSocket dial.
	APIKey string `yaml:"-"`

	// Model is the remote model identity.
	Model string `yaml:"model"`

	// Voice selects the prebuilt output voice.
	Voice string `yaml:"voice"`

	// SystemInstruction is the session preamble text.
	SystemInstruction string `yaml:"system_instruction"`

	// InputTranscription requests transcript events for user speech.
	InputTranscription bool `yaml:"input_transcription"`

	// OutputTranscription requests transcript events for model speech.
	OutputTranscription bool `yaml:"output_transcription"`

	// Endpoint overrides the default WebSocket URL. Used by tests and
	// proxies.
	Endpoint string `yaml:"endpoint"`
}

// DefaultConfig returns session defaults with transcription enabled on
// both directions.
func DefaultConfig() Config {
	return Config{
		Model:               defaultModel,
		Voice:               defaultVoice,
		InputTranscription:  true,
		OutputTranscription: true,
	}
}

// Validate checks the configuration.
func (c *Config) Validate() error {
	if c.APIKey == "" {
		return ErrMissingAPIKey
	}
	return nil
}

func (c *Config) url() string {
	endpoint := c.Endpoint
	if endpoint == "" {
		endpoint = liveURL
	}
	return fmt.Sprintf("%s?key=%s", endpoint, c.APIKey)
}

func (c *Config) model() string {
	if c.Model == "" {
		return defaultModel
	}
	return c.Model
}

func (c *Config) voice() string {
	if c.Voice == "" {
		return defaultVoice
	}
	return c.Voice
}
