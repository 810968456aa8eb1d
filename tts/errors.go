package tts

import (
	"errors"
	"fmt"
)

// Common errors for the TTS system.
var (
	// Controller errors
	ErrEmptyInput         = errors.New(MsgNoReadableText)
	ErrSpeakerUnavailable = errors.New(MsgUnavailable)
	ErrInvalidRate        = fmt.Errorf("rate must be between %.1f and %.1f", MinRate, MaxRate)
	ErrInvalidSkip        = errors.New("skip amount must be at least 1")
	ErrControlsDisabled   = errors.New("controls are disabled")

	// Engine errors
	ErrEngineNotAvailable = errors.New("TTS engine is not available")
	ErrUnknownEngine      = errors.New("unknown TTS engine")
	ErrVoiceNotFound      = errors.New("requested voice not found")
	ErrEmptyText          = errors.New("no text to synthesize")
	ErrEmptyAudio         = errors.New("engine returned no audio")
)

// SpeechError is a spontaneous failure reported by a Speaker.
type SpeechError struct {
	Reason string // Speaker-supplied reason, e.g. "synthesis-failed"
	Err    error  // Underlying cause, may be nil
}

// Error implements the error interface.
func (e *SpeechError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("speech error: %s: %v", e.Reason, e.Err)
	}
	return "speech error: " + e.Reason
}

// Unwrap returns the underlying error.
func (e *SpeechError) Unwrap() error {
	return e.Err
}

// IsRecoverableError reports whether playback may be retried after err.
// Missing engines and audio devices are permanent.
func IsRecoverableError(err error) bool {
	if err == nil {
		return true
	}

	switch {
	case errors.Is(err, ErrSpeakerUnavailable),
		errors.Is(err, ErrEngineNotAvailable),
		errors.Is(err, ErrUnknownEngine):
		return false
	}

	return true
}
