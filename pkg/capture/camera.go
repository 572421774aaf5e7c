package capture

import (
	"fmt"
	"image"
	"sync"

	"gocv.io/x/gocv"
)

// Frame is one captured video sample, already JPEG encoded. Frames are
// ephemeral: consumed immediately by gaze inference or the snapshot
// path, never retained across processing steps.
type Frame struct {
	JPEG   []byte
	Width  int
	Height int
}

// Camera grabs frames from a video device.
type Camera interface {
	// Grab captures the current frame at native resolution.
	Grab() (Frame, error)

	// GrabScaled captures a frame scaled down to at most maxWidth,
	// encoded at the given JPEG quality.
	GrabScaled(maxWidth, quality int) (Frame, error)

	// Close releases the device. Safe to call more than once.
	Close() error
}

// Webcam is the gocv-backed camera.
type Webcam struct {
	mu     sync.Mutex
	cap    *gocv.VideoCapture
	closed bool
}

// OpenWebcam opens the capture device at the given index. A missing or
// unreadable device reports ErrMediaAccess.
func OpenWebcam(device int) (*Webcam, error) {
	cap, err := gocv.OpenVideoCapture(device)
	if err != nil {
		return nil, fmt.Errorf("%w: camera %d: %v", ErrMediaAccess, device, err)
	}
	if !cap.IsOpened() {
		cap.Close()
		return nil, fmt.Errorf("%w: camera %d not opened", ErrMediaAccess, device)
	}
	return &Webcam{cap: cap}, nil
}

// Grab captures one frame and encodes it as JPEG.
func (w *Webcam) Grab() (Frame, error) {
	return w.grab(0, 90)
}

// GrabScaled captures one frame scaled down to at most maxWidth.
func (w *Webcam) GrabScaled(maxWidth, quality int) (Frame, error) {
	return w.grab(maxWidth, quality)
}

func (w *Webcam) grab(maxWidth, quality int) (Frame, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return Frame{}, fmt.Errorf("capture: camera closed")
	}

	img := gocv.NewMat()
	defer img.Close()

	if ok := w.cap.Read(&img); !ok || img.Empty() {
		return Frame{}, fmt.Errorf("capture: failed to read frame")
	}

	if maxWidth > 0 && img.Cols() > maxWidth {
		scale := float64(maxWidth) / float64(img.Cols())
		scaled := gocv.NewMat()
		gocv.Resize(img, &scaled, image.Point{}, scale, scale, gocv.InterpolationArea)
		img.Close()
		img = scaled
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, img, []int{gocv.IMWriteJpegQuality, quality})
	if err != nil {
		return Frame{}, fmt.Errorf("capture: encode frame: %w", err)
	}
	defer buf.Close()

	jpeg := make([]byte, buf.Len())
	copy(jpeg, buf.GetBytes())

	return Frame{JPEG: jpeg, Width: img.Cols(), Height: img.Rows()}, nil
}

// Close releases the device handle. Idempotent.
func (w *Webcam) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return nil
	}
	w.closed = true
	return w.cap.Close()
}
