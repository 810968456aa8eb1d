package tts

import (
	"context"
	"time"
)

// Speaker is the utterance speaker the controller drives. It speaks one
// utterance at a time and reports the outcome on the Events channel.
//
// Implementations must honour two rules: Speak replaces whatever is in
// flight, and Cancel suppresses the EventDone of the cancelled utterance
// (an EventError with ReasonInterrupted may be sent instead).
type Speaker interface {
	// Speak submits an utterance and returns immediately.
	Speak(u Utterance) error

	// Cancel drops the in-flight utterance, if any.
	Cancel()

	// Pause suspends the in-flight utterance.
	Pause()

	// Resume continues a paused utterance.
	Resume()

	// State reports what the speaker is physically doing right now.
	State() SpeakerState

	// Events delivers completion and error notifications.
	Events() <-chan Event
}

// Prefetcher is implemented by speakers that can prepare audio for
// upcoming utterances while the current one is playing.
type Prefetcher interface {
	Prefetch(upcoming []Utterance)
}

// Synthesizer converts text to PCM audio.
type Synthesizer interface {
	// Name returns the engine name, e.g. "piper".
	Name() string

	// Synthesize renders text to 16-bit mono PCM at SampleRate.
	Synthesize(ctx context.Context, text string, opts SynthesisOptions) (*Audio, error)

	// Voices lists the voices the engine can use.
	Voices(ctx context.Context) ([]Voice, error)

	// Close releases engine resources.
	Close() error
}

// SynthesisOptions carries per-utterance synthesis settings.
type SynthesisOptions struct {
	Rate  float64 // Speech rate multiplier (1.0 = normal)
	Voice Voice   // Zero value selects the engine default
}

// Audio format shared by every engine and player.
const (
	SampleRate     = 22050
	Channels       = 1
	BytesPerSample = 2
)

// Audio represents synthesized audio data.
type Audio struct {
	Data       []byte        // 16-bit little endian PCM
	SampleRate int           // Sample rate in Hz
	Channels   int           // Number of audio channels
	Duration   time.Duration // Duration of the audio
}

// NewAudio wraps canonical PCM data and computes its duration.
func NewAudio(pcm []byte) *Audio {
	return &Audio{
		Data:       pcm,
		SampleRate: SampleRate,
		Channels:   Channels,
		Duration:   PCMDuration(len(pcm)),
	}
}

// PCMDuration returns the playing time of n bytes of canonical PCM.
func PCMDuration(n int) time.Duration {
	samples := n / (BytesPerSample * Channels)
	return time.Duration(samples) * time.Second / SampleRate
}

// Sentence is one readable segment of a document.
type Sentence struct {
	Index    int           // Index in the segment sequence
	Text     string        // Plain text content
	Page     int           // 1-based page number, 0 when the source has no pages
	Start    int           // Start byte offset in the page text
	End      int           // End byte offset in the page text
	Duration time.Duration // Estimated speaking duration
}

// Voice represents a TTS voice.
type Voice struct {
	ID       string // Voice identifier
	Name     string // Human-readable name
	Language string // Language code (e.g., "en-US")
	Gender   string // Voice gender
}

// IsZero reports whether the voice selects the engine default.
func (v Voice) IsZero() bool {
	return v.ID == ""
}

// Label returns a short display name.
func (v Voice) Label() string {
	switch {
	case v.Name != "":
		return v.Name
	case v.ID != "":
		return v.ID
	default:
		return "default"
	}
}

// Utterance is a single request submitted to a Speaker.
type Utterance struct {
	ID    string  // Unique, sortable request ID
	Index int     // Segment index the text came from
	Text  string  // Text to speak
	Rate  float64 // Speech rate multiplier
	Voice Voice   // Voice to speak with
}

// Options returns the synthesis options for the utterance.
func (u Utterance) Options() SynthesisOptions {
	return SynthesisOptions{Rate: u.Rate, Voice: u.Voice}
}

// EventKind distinguishes speaker notifications.
type EventKind int

const (
	// EventDone means the utterance was spoken to the end.
	EventDone EventKind = iota
	// EventError means the utterance stopped early.
	EventError
)

// String returns the string representation of the event kind.
func (k EventKind) String() string {
	switch k {
	case EventDone:
		return "done"
	case EventError:
		return "error"
	default:
		return "unknown"
	}
}

// Error reasons reported by speakers.
const (
	ReasonInterrupted     = "interrupted"
	ReasonSynthesisFailed = "synthesis-failed"
	ReasonPlaybackFailed  = "playback-failed"
)

// Event is a notification about one utterance.
type Event struct {
	UtteranceID string
	Kind        EventKind
	Reason      string // Set for EventError
	Err         error  // Underlying cause, if any
}

// Interrupted reports whether the event is the expected result of a cancel.
func (e Event) Interrupted() bool {
	return e.Kind == EventError && e.Reason == ReasonInterrupted
}
