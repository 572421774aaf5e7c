package attention

import "testing"

// face returns landmarks with ears at x and x+width and the nose offset
// from the ear midpoint by deviance.
func face(x, width, deviance float64) *Landmarks {
	return &Landmarks{
		Nose:     Point{X: x + width/2 + deviance},
		LeftEar:  Point{X: x + width},
		RightEar: Point{X: x},
	}
}

func TestObserveClassification(t *testing.T) {
	tests := []struct {
		name string
		lm   *Landmarks
		want State
	}{
		{"centered nose", face(0.2, 0.4, 0), Focused},
		{"slight deviance", face(0.2, 0.4, 0.05), Focused},
		{"just under threshold", face(0.2, 0.4, 0.4*0.25-0.0001), Focused},
		{"exactly at threshold", face(0.2, 0.4, 0.4 * 0.25), Distracted},
		{"over threshold", face(0.2, 0.4, 0.2), Distracted},
		{"negative deviance over threshold", face(0.2, 0.4, -0.2), Distracted},
		{"no face", nil, Distracted},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := NewDetector(0.25)
			if err != nil {
				t.Fatalf("NewDetector: %v", err)
			}
			if got := d.Observe(tt.lm); got != tt.want {
				t.Errorf("Observe() = %v, want %v", got, tt.want)
			}
			if got := d.State(); got != tt.want {
				t.Errorf("State() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestObserveMirroredEars(t *testing.T) {
	// Left ear at a lower x than the right must not flip the result.
	d, _ := NewDetector(0.25)
	lm := &Landmarks{
		Nose:     Point{X: 0.4},
		LeftEar:  Point{X: 0.2},
		RightEar: Point{X: 0.6},
	}
	if got := d.Observe(lm); got != Focused {
		t.Errorf("Observe() = %v, want Focused", got)
	}
}

func TestInitialState(t *testing.T) {
	d, _ := NewDetector(0.25)
	if got := d.State(); got != Initializing {
		t.Errorf("initial State() = %v, want Initializing", got)
	}
}

func TestReset(t *testing.T) {
	d, _ := NewDetector(0.25)
	d.Observe(face(0.2, 0.4, 0))
	d.Reset()
	if got := d.State(); got != Initializing {
		t.Errorf("State() after Reset = %v, want Initializing", got)
	}
}

func TestThresholdIsTunable(t *testing.T) {
	// The same face classifies differently under the two observed
	// threshold revisions.
	lm := face(0.2, 0.4, 0.4*0.27)

	strict, _ := NewDetector(0.25)
	if got := strict.Observe(lm); got != Distracted {
		t.Errorf("threshold 0.25: got %v, want Distracted", got)
	}

	loose, _ := NewDetector(0.30)
	if got := loose.Observe(lm); got != Focused {
		t.Errorf("threshold 0.30: got %v, want Focused", got)
	}
}

func TestNewDetectorValidation(t *testing.T) {
	for _, th := range []float64{0, -0.1, 1, 1.5} {
		if _, err := NewDetector(th); err == nil {
			t.Errorf("NewDetector(%f) expected error", th)
		}
	}
}

func TestStateString(t *testing.T) {
	if Initializing.String() != "initializing" || Focused.String() != "focused" || Distracted.String() != "distracted" {
		t.Error("State.String() mismatch")
	}
}
