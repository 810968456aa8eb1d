// Package mock provides a mock TTS engine and speaker for testing.
package mock

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/txtparrot/parrot/tts"
)

// Synthesizer implements tts.Synthesizer by producing silence.
type Synthesizer struct {
	mu sync.Mutex

	// Configuration
	delay          time.Duration // Simulated processing delay
	wordsPerMinute int

	// Control for testing
	shouldFail   bool
	failureError error

	// State
	closed    bool
	callCount int
	texts     []string
}

// New creates a new mock synthesizer.
func New() *Synthesizer {
	return &Synthesizer{wordsPerMinute: 150}
}

// Name returns the engine name.
func (s *Synthesizer) Name() string { return "mock" }

// Synthesize returns silent PCM sized to the estimated speaking time.
func (s *Synthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesisOptions) (*tts.Audio, error) {
	s.mu.Lock()
	s.callCount++
	s.texts = append(s.texts, text)
	fail, failErr, delay := s.shouldFail, s.failureError, s.delay
	s.mu.Unlock()

	if fail {
		return nil, failErr
	}
	if strings.TrimSpace(text) == "" {
		return nil, tts.ErrEmptyText
	}

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	rate := opts.Rate
	if rate <= 0 {
		rate = tts.DefaultRate
	}
	words := len(strings.Fields(text))
	seconds := float64(words) * 60.0 / float64(s.wordsPerMinute) / rate
	samples := int(seconds * tts.SampleRate)
	return tts.NewAudio(make([]byte, samples*tts.BytesPerSample)), nil
}

// Voices returns available mock voices.
func (s *Synthesizer) Voices(context.Context) ([]tts.Voice, error) {
	return Voices(), nil
}

// Close simulates engine shutdown.
func (s *Synthesizer) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Test control methods

// SetDelay sets the simulated processing delay.
func (s *Synthesizer) SetDelay(delay time.Duration) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.delay = delay
}

// SetFailure configures the engine to fail with the given error.
func (s *Synthesizer) SetFailure(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFail = true
	s.failureError = err
}

// ClearFailure resets the engine to normal operation.
func (s *Synthesizer) ClearFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.shouldFail = false
	s.failureError = nil
}

// CallCount returns the number of Synthesize calls.
func (s *Synthesizer) CallCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.callCount
}

// Texts returns every text passed to Synthesize, in order.
func (s *Synthesizer) Texts() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.texts...)
}

// Closed reports whether Close was called.
func (s *Synthesizer) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Voices returns the fixed mock voice catalog.
func Voices() []tts.Voice {
	return []tts.Voice{
		{ID: "mock-voice-1", Name: "Mock Voice 1", Language: "en-US", Gender: "neutral"},
		{ID: "mock-voice-2", Name: "Mock Voice 2", Language: "en-GB", Gender: "female"},
		{ID: "mock-voice-3", Name: "Mock Voice 3", Language: "en-US", Gender: "male"},
	}
}

// Call records one interaction with the Speaker.
type Call struct {
	Op        string // "speak", "cancel", "pause", "resume"
	Utterance tts.Utterance
}

// Speaker is a scripted tts.Speaker. Nothing completes on its own: tests
// drive outcomes with Complete and Fail.
type Speaker struct {
	mu      sync.Mutex
	state   tts.SpeakerState
	current *tts.Utterance
	calls   []Call
	events  chan tts.Event

	speakErr error
}

// NewSpeaker creates a mock speaker with a buffered event channel.
func NewSpeaker() *Speaker {
	return &Speaker{events: make(chan tts.Event, 64)}
}

// Speak records the utterance and starts "speaking" it.
func (s *Speaker) Speak(u tts.Utterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.speakErr != nil {
		return s.speakErr
	}
	if s.current != nil {
		s.interruptLocked()
	}
	s.calls = append(s.calls, Call{Op: "speak", Utterance: u})
	s.current = &u
	s.state = tts.SpeakerSpeaking
	return nil
}

// Cancel interrupts the current utterance, mirroring platform speech APIs
// that report an "interrupted" error.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Op: "cancel"})
	if s.current != nil {
		s.interruptLocked()
	}
	s.state = tts.SpeakerIdle
}

// Pause suspends the current utterance.
func (s *Speaker) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Op: "pause"})
	if s.state == tts.SpeakerSpeaking {
		s.state = tts.SpeakerPaused
	}
}

// Resume continues the current utterance.
func (s *Speaker) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.calls = append(s.calls, Call{Op: "resume"})
	if s.state == tts.SpeakerPaused {
		s.state = tts.SpeakerSpeaking
	}
}

// State returns the scripted speaker state.
func (s *Speaker) State() tts.SpeakerState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Events returns the notification channel.
func (s *Speaker) Events() <-chan tts.Event {
	return s.events
}

// Test control methods

// Complete finishes the current utterance and returns its ID.
func (s *Speaker) Complete() (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return "", fmt.Errorf("nothing is being spoken")
	}
	id := s.current.ID
	s.current = nil
	s.state = tts.SpeakerIdle
	s.events <- tts.Event{UtteranceID: id, Kind: tts.EventDone}
	return id, nil
}

// Fail ends the current utterance with the given reason.
func (s *Speaker) Fail(reason string, err error) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.current == nil {
		return "", fmt.Errorf("nothing is being spoken")
	}
	id := s.current.ID
	s.current = nil
	s.state = tts.SpeakerIdle
	s.events <- tts.Event{UtteranceID: id, Kind: tts.EventError, Reason: reason, Err: err}
	return id, nil
}

// SetSpeakError makes subsequent Speak calls fail.
func (s *Speaker) SetSpeakError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.speakErr = err
}

// SetState forces the reported state.
func (s *Speaker) SetState(state tts.SpeakerState) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state = state
}

// Current returns the utterance being spoken, if any.
func (s *Speaker) Current() (tts.Utterance, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil {
		return tts.Utterance{}, false
	}
	return *s.current, true
}

// Calls returns every recorded interaction.
func (s *Speaker) Calls() []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Call(nil), s.calls...)
}

// Spoken returns the utterances submitted with Speak.
func (s *Speaker) Spoken() []tts.Utterance {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []tts.Utterance
	for _, c := range s.calls {
		if c.Op == "speak" {
			out = append(out, c.Utterance)
		}
	}
	return out
}

// Count returns how many times op was called.
func (s *Speaker) Count(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for _, c := range s.calls {
		if c.Op == op {
			n++
		}
	}
	return n
}

// Drain returns the queued events without blocking.
func (s *Speaker) Drain() []tts.Event {
	var out []tts.Event
	for {
		select {
		case ev := <-s.events:
			out = append(out, ev)
		default:
			return out
		}
	}
}

// Close closes the event channel.
func (s *Speaker) Close() {
	close(s.events)
}

func (s *Speaker) interruptLocked() {
	id := s.current.ID
	s.current = nil
	s.events <- tts.Event{UtteranceID: id, Kind: tts.EventError, Reason: tts.ReasonInterrupted}
}
