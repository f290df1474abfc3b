package editormonitor

const trialWindowSize = 3

// TrialWindow smooths the size check over the last three samples. A sample
// is true when the image looked too small. The window starts full of
// failures so a single passing sample clears it.
type TrialWindow struct {
	samples []bool
}

// NewTrialWindow returns a window initialised to three failures
func NewTrialWindow() *TrialWindow {
	return &TrialWindow{samples: []bool{true, true, true}}
}

// Push records a sample, evicting the oldest one
func (w *TrialWindow) Push(tooSmall bool) {
	if len(w.samples) > trialWindowSize-1 {
		w.samples = w.samples[1:]
	}
	w.samples = append(w.samples, tooSmall)
}

// TooSmall reports whether every retained sample failed
func (w *TrialWindow) TooSmall() bool {
	return w.Failures() > trialWindowSize-1
}

// Failures counts the failing samples
func (w *TrialWindow) Failures() int {
	n := 0
	for _, s := range w.samples {
		if s {
			n++
		}
	}
	return n
}

// Samples returns a copy of the retained samples, oldest first
func (w *TrialWindow) Samples() []bool {
	out := make([]bool, len(w.samples))
	copy(out, w.samples)
	return out
}
