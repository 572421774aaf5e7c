// Package vision provides face landmark inference for the attention gate.
package vision

import "github.com/arilabs/go-ari/pkg/attention"

// Provider runs face landmark inference on captured frames.
type Provider interface {
	// Detect returns landmarks for the most prominent face in the JPEG
	// frame, or nil when no face is found.
	Detect(jpeg []byte) (*attention.Landmarks, error)

	// Close releases detector resources.
	Close() error
}

// Config holds detector configuration.
type Config struct {
	// ModelPath locates the YuNet ONNX model.
	ModelPath string `yaml:"model_path"`

	// ConfidenceThresh is the minimum detection confidence.
	ConfidenceThresh float64 `yaml:"confidence_threshold"`

	// InputWidth and InputHeight set the model input size.
	InputWidth  int `yaml:"input_width"`
	InputHeight int `yaml:"input_height"`
}

// DefaultConfig returns production defaults for YuNet.
func DefaultConfig() Config {
	return Config{
		ModelPath:        "models/face_detection_yunet.onnx",
		ConfidenceThresh: 0.5,
		InputWidth:       320,
		InputHeight:      320,
	}
}
