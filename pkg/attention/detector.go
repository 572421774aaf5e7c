// Package attention derives a binary looking-at-camera signal from face
// landmark geometry. Only the latest classification is retained; a slow
// reader simply observes the most recent value.
package attention

import (
	"fmt"
	"math"
	"sync/atomic"
)

// State is the current attention classification.
type State int32

const (
	// Initializing means no frame has been classified yet.
	Initializing State = iota
	// Focused means the user is looking at the camera.
	Focused
	// Distracted means the user is looking away or no face was found.
	Distracted
)

func (s State) String() string {
	switch s {
	case Initializing:
		return "initializing"
	case Focused:
		return "focused"
	case Distracted:
		return "distracted"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Point is a 2D landmark position in normalized image coordinates.
type Point struct {
	X float64
	Y float64
}

// Landmarks are the three facial points the heuristic needs, as reported
// by the landmark inference provider.
type Landmarks struct {
	Nose     Point
	LeftEar  Point
	RightEar Point
}

// DefaultThreshold is the nose-deviance ratio below which a face counts
// as looking at the camera. Observed working values range 0.25 to 0.30.
const DefaultThreshold = 0.25

// Detector classifies per-frame landmark sets into an attention state.
// It is written from one video-frame path and read from the audio send
// path, so the state is an atomic.
type Detector struct {
	threshold float64
	state     atomic.Int32
}

// NewDetector creates a detector with the given deviance threshold.
func NewDetector(threshold float64) (*Detector, error) {
	if threshold <= 0 || threshold >= 1 {
		return nil, fmt.Errorf("attention: threshold must be in (0, 1), got %f", threshold)
	}
	d := &Detector{threshold: threshold}
	d.state.Store(int32(Initializing))
	return d, nil
}

// Observe classifies one frame worth of landmarks and returns the new
// state. A nil set means no face was detected and always classifies
// Distracted. A face is Focused when the nose sits within threshold *
// faceWidth of the ear midpoint; the boundary itself is Distracted.
func (d *Detector) Observe(lm *Landmarks) State {
	state := Distracted
	if lm != nil {
		earMidX := (lm.LeftEar.X + lm.RightEar.X) / 2
		faceWidth := math.Abs(lm.LeftEar.X - lm.RightEar.X)
		noseDeviance := math.Abs(lm.Nose.X - earMidX)
		if noseDeviance < d.threshold*faceWidth {
			state = Focused
		}
	}
	d.state.Store(int32(state))
	return state
}

// State returns the most recent classification.
func (d *Detector) State() State {
	return State(d.state.Load())
}

// Reset returns the detector to Initializing, as on pipeline restart.
func (d *Detector) Reset() {
	d.state.Store(int32(Initializing))
}

// Threshold returns the configured deviance threshold.
func (d *Detector) Threshold() float64 {
	return d.threshold
}
