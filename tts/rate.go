package tts

import (
	"fmt"
	"math"
	"sync"
)

// Rate bounds accepted by the controller.
const (
	MinRate     = 0.1
	MaxRate     = 10.0
	DefaultRate = 1.0
)

// DefaultRateSteps are the presets the UI cycles through.
var DefaultRateSteps = []float64{0.5, 0.75, 1.0, 1.25, 1.5, 1.75, 2.0, 2.5, 3.0}

// ValidRate reports whether r is within [MinRate, MaxRate].
func ValidRate(r float64) bool {
	return !math.IsNaN(r) && r >= MinRate && r <= MaxRate
}

// RateStepper moves a speech rate through discrete presets.
type RateStepper struct {
	mu    sync.Mutex
	steps []float64
	index int
}

// NewRateStepper creates a stepper positioned at the preset nearest to rate.
func NewRateStepper(rate float64) *RateStepper {
	return NewRateStepperWithSteps(DefaultRateSteps, rate)
}

// NewRateStepperWithSteps creates a stepper with custom presets.
func NewRateStepperWithSteps(steps []float64, rate float64) *RateStepper {
	if len(steps) == 0 {
		steps = DefaultRateSteps
	}
	rs := &RateStepper{steps: steps}
	rs.index = rs.nearest(rate)
	return rs
}

// Rate returns the current preset.
func (rs *RateStepper) Rate() float64 {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	return rs.steps[rs.index]
}

// Set snaps the stepper to the preset nearest to rate.
func (rs *RateStepper) Set(rate float64) {
	rs.mu.Lock()
	defer rs.mu.Unlock()
	rs.index = rs.nearest(rate)
}

// Next increases to the next preset.
func (rs *RateStepper) Next() (float64, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.index >= len(rs.steps)-1 {
		return rs.steps[rs.index], fmt.Errorf("already at maximum rate")
	}
	rs.index++
	return rs.steps[rs.index], nil
}

// Previous decreases to the previous preset.
func (rs *RateStepper) Previous() (float64, error) {
	rs.mu.Lock()
	defer rs.mu.Unlock()

	if rs.index <= 0 {
		return rs.steps[rs.index], fmt.Errorf("already at minimum rate")
	}
	rs.index--
	return rs.steps[rs.index], nil
}

// nearest must be called with the lock held.
func (rs *RateStepper) nearest(rate float64) int {
	best := 0
	minDiff := math.MaxFloat64
	for i, step := range rs.steps {
		if diff := math.Abs(step - rate); diff < minDiff {
			minDiff = diff
			best = i
		}
	}
	return best
}

// FormatRate renders a rate compactly, e.g. "1.25x".
func FormatRate(rate float64) string {
	if rate == math.Trunc(rate) {
		return fmt.Sprintf("%.1fx", rate)
	}
	return fmt.Sprintf("%gx", rate)
}
