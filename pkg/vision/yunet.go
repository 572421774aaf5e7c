package vision

import (
	"fmt"
	"image"
	"os"
	"sync"

	"gocv.io/x/gocv"

	"github.com/arilabs/go-ari/pkg/attention"
)

// YuNet detects faces with OpenCV's FaceDetectorYN and maps its output
// to the landmark set the attention heuristic consumes. YuNet does not
// report ear tragions, so the lateral reference points are taken from
// the face box edges at eye height, which preserves the nose-deviance
// geometry.
type YuNet struct {
	detector gocv.FaceDetectorYN
	config   Config
	mu       sync.Mutex // serializes inference
}

// NewYuNet creates a YuNet-backed landmark provider.
func NewYuNet(cfg Config) (*YuNet, error) {
	if _, err := os.Stat(cfg.ModelPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("vision: model file not found: %s", cfg.ModelPath)
	}

	detector := gocv.NewFaceDetectorYNWithParams(
		cfg.ModelPath,
		"", // no config file needed for ONNX
		image.Pt(cfg.InputWidth, cfg.InputHeight),
		float32(cfg.ConfidenceThresh),
		0.3,  // NMS threshold
		5000, // top K
		int(gocv.NetBackendDefault),
		int(gocv.NetTargetCPU),
	)

	return &YuNet{detector: detector, config: cfg}, nil
}

// Detect finds the most confident face in the JPEG frame and returns its
// landmarks in normalized coordinates, or nil when no face is present.
func (y *YuNet) Detect(jpeg []byte) (*attention.Landmarks, error) {
	y.mu.Lock()
	defer y.mu.Unlock()

	img, err := gocv.IMDecode(jpeg, gocv.IMReadColor)
	if err != nil {
		return nil, fmt.Errorf("vision: decode image: %w", err)
	}
	defer img.Close()

	if img.Empty() {
		return nil, fmt.Errorf("vision: empty image")
	}

	imgW := float64(img.Cols())
	imgH := float64(img.Rows())

	y.detector.SetInputSize(image.Pt(img.Cols(), img.Rows()))

	faces := gocv.NewMat()
	defer faces.Close()
	y.detector.Detect(img, &faces)

	// YuNet output rows have 15 columns: box x/y/w/h, five landmark
	// x,y pairs (right eye, left eye, nose tip, mouth corners), score.
	best := -1
	bestScore := 0.0
	for r := 0; r < faces.Rows(); r++ {
		if score := float64(faces.GetFloatAt(r, 14)); score > bestScore {
			bestScore = score
			best = r
		}
	}
	if best < 0 {
		return nil, nil
	}

	x := float64(faces.GetFloatAt(best, 0))
	w := float64(faces.GetFloatAt(best, 2))
	rightEyeY := float64(faces.GetFloatAt(best, 5))
	leftEyeY := float64(faces.GetFloatAt(best, 7))
	noseX := float64(faces.GetFloatAt(best, 8))
	noseY := float64(faces.GetFloatAt(best, 9))
	earY := (rightEyeY + leftEyeY) / 2

	return &attention.Landmarks{
		Nose:     attention.Point{X: noseX / imgW, Y: noseY / imgH},
		LeftEar:  attention.Point{X: (x + w) / imgW, Y: earY / imgH},
		RightEar: attention.Point{X: x / imgW, Y: earY / imgH},
	}, nil
}

// Close releases the detector resources.
func (y *YuNet) Close() error {
	y.mu.Lock()
	defer y.mu.Unlock()
	y.detector.Close()
	return nil
}
