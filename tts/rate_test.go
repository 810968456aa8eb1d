package tts

import (
	"errors"
	"fmt"
	"testing"
)

func TestRateStepper(t *testing.T) {
	rs := NewRateStepper(1.0)
	if got := rs.Rate(); got != 1.0 {
		t.Fatalf("Rate() = %v, want 1.0", got)
	}

	up := []float64{1.25, 1.5, 1.75, 2.0, 2.5, 3.0}
	for _, want := range up {
		got, err := rs.Next()
		if err != nil {
			t.Fatalf("Next() error = %v", err)
		}
		if got != want {
			t.Errorf("Next() = %v, want %v", got, want)
		}
	}
	if _, err := rs.Next(); err == nil {
		t.Error("Next() at maximum should fail")
	}

	rs.Set(0.6)
	if got := rs.Rate(); got != 0.5 {
		t.Errorf("Set(0.6) snapped to %v, want 0.5", got)
	}
	if _, err := rs.Previous(); err == nil {
		t.Error("Previous() at minimum should fail")
	}
}

func TestRateStepperCustomSteps(t *testing.T) {
	rs := NewRateStepperWithSteps([]float64{0.8, 1.2}, 5)
	if got := rs.Rate(); got != 1.2 {
		t.Errorf("Rate() = %v, want 1.2", got)
	}
	if got, _ := rs.Previous(); got != 0.8 {
		t.Errorf("Previous() = %v, want 0.8", got)
	}

	rs = NewRateStepperWithSteps(nil, 1)
	if got := rs.Rate(); got != 1 {
		t.Errorf("empty steps fell back to %v", got)
	}
}

func TestFormatRate(t *testing.T) {
	tests := map[float64]string{
		1:    "1.0x",
		2:    "2.0x",
		1.25: "1.25x",
		0.5:  "0.5x",
	}
	for in, want := range tests {
		if got := FormatRate(in); got != want {
			t.Errorf("FormatRate(%v) = %q, want %q", in, got, want)
		}
	}
}

func TestSpeechError(t *testing.T) {
	cause := errors.New("device lost")
	err := fmt.Errorf("segment 3: %w", &SpeechError{Reason: ReasonPlaybackFailed, Err: cause})

	if !errors.Is(err, cause) {
		t.Error("SpeechError should unwrap to its cause")
	}
	var se *SpeechError
	if !errors.As(err, &se) || se.Reason != ReasonPlaybackFailed {
		t.Errorf("errors.As() = %+v", se)
	}
	if got := (&SpeechError{Reason: "network"}).Error(); got != "speech error: network" {
		t.Errorf("Error() = %q", got)
	}
}

func TestIsRecoverableError(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{nil, true},
		{ErrEmptyText, true},
		{&SpeechError{Reason: ReasonSynthesisFailed}, true},
		{ErrSpeakerUnavailable, false},
		{fmt.Errorf("open: %w", ErrEngineNotAvailable), false},
		{ErrUnknownEngine, false},
	}
	for _, tt := range tests {
		if got := IsRecoverableError(tt.err); got != tt.want {
			t.Errorf("IsRecoverableError(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
