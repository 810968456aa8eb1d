// Package tts reads a sequence of text segments aloud through a Speaker.
package tts

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/oklog/ulid/v2"
)

// ControllerConfig holds the initial playback settings.
type ControllerConfig struct {
	Rate      float64 // Speech rate multiplier
	Voice     Voice   // Initial voice, zero for engine default
	Skip      int     // Segments moved per forward/backward step
	Lookahead int     // Upcoming utterances handed to a Prefetcher
}

// DefaultControllerConfig returns a sensible default configuration.
func DefaultControllerConfig() ControllerConfig {
	return ControllerConfig{
		Rate:      DefaultRate,
		Skip:      1,
		Lookahead: 2,
	}
}

// Controller reads segments aloud continuously. It keeps the user's
// playback intent separate from the speaker's own state, which is polled
// at decision points and treated as ground truth.
//
// All methods are safe for concurrent use. Status listeners run after the
// internal lock is released.
type Controller struct {
	speaker Speaker

	mu        sync.Mutex
	segments  []Sentence
	cursor    int
	intent    bool
	rate      float64
	voice     Voice
	skip      int
	lookahead int
	loading   bool
	live      string // ID of the in-flight utterance, "" when none
	status    Status
	err       error // last playback failure, nil once speech succeeds

	listeners []func(Status)
	pending   []Status

	entropy *ulid.MonotonicEntropy
}

// NewController creates a controller driving the given speaker. A nil
// speaker is allowed; playback then reports ErrSpeakerUnavailable.
func NewController(speaker Speaker, cfg ControllerConfig) *Controller {
	if !ValidRate(cfg.Rate) {
		cfg.Rate = DefaultRate
	}
	if cfg.Skip < 1 {
		cfg.Skip = 1
	}
	if cfg.Lookahead < 0 {
		cfg.Lookahead = 0
	}

	return &Controller{
		speaker:   speaker,
		rate:      cfg.Rate,
		voice:     cfg.Voice,
		skip:      cfg.Skip,
		lookahead: cfg.Lookahead,
		status:    Status{Kind: StatusInfo, Message: MsgNoReadableText},
		entropy:   ulid.Monotonic(rand.Reader, 0),
	}
}

// OnStatus registers a listener for status changes.
func (c *Controller) OnStatus(fn func(Status)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.listeners = append(c.listeners, fn)
}

// BeginLoad marks a document load in progress. Controls stay disabled
// until LoadSegments is called.
func (c *Controller) BeginLoad() {
	c.mu.Lock()
	defer c.unlock()

	c.cancelLive()
	c.intent = false
	c.loading = true
	c.report(StatusInfo, MsgLoading)
}

// LoadSegments replaces the segment sequence and rewinds to the start.
func (c *Controller) LoadSegments(segments []Sentence) error {
	c.mu.Lock()
	defer c.unlock()

	c.cancelLive()
	c.loading = false
	c.segments = append([]Sentence(nil), segments...)
	c.cursor = 0
	c.intent = false
	c.err = nil

	if len(c.segments) == 0 {
		c.report(StatusInfo, MsgNoReadableText)
		return ErrEmptyInput
	}

	if c.speaker == nil {
		c.err = ErrSpeakerUnavailable
		c.report(StatusError, MsgUnavailable)
		return nil
	}

	log.Debug("segments loaded", "count", len(c.segments))
	c.report(StatusInfo, fmt.Sprintf("%s: %d segments", MsgReady, len(c.segments)))
	return nil
}

// Play toggles playback according to what the speaker is doing: it pauses
// speech in progress, resumes paused speech, or starts at the cursor.
func (c *Controller) Play() error {
	c.mu.Lock()
	defer c.unlock()

	if err := c.checkControls(); err != nil {
		return err
	}

	switch c.speaker.State() {
	case SpeakerSpeaking:
		c.speaker.Pause()
		c.intent = false
		c.report(StatusInfo, MsgPaused)
		return nil
	case SpeakerPaused:
		c.speaker.Resume()
		c.intent = true
		c.reportReading()
		return nil
	default:
		return c.speakAt(c.cursor)
	}
}

// Pause suspends speech in progress. An explicit pause always clears the
// playback intent.
func (c *Controller) Pause() error {
	c.mu.Lock()
	defer c.unlock()

	if err := c.checkControls(); err != nil {
		return err
	}

	if c.speaker.State() == SpeakerSpeaking {
		c.speaker.Pause()
		c.report(StatusInfo, MsgPaused)
	}
	c.intent = false
	return nil
}

// Stop cancels speech and rewinds to the first segment.
func (c *Controller) Stop() error {
	c.mu.Lock()
	defer c.unlock()

	if err := c.checkControls(); err != nil {
		return err
	}

	c.speaker.Cancel()
	c.live = ""
	c.intent = false
	c.cursor = 0
	c.report(StatusInfo, MsgStopped)
	return nil
}

// Forward speaks the segment skip positions ahead, stopping at the last one.
func (c *Controller) Forward() error {
	c.mu.Lock()
	defer c.unlock()

	if err := c.checkControls(); err != nil {
		return err
	}
	return c.speakAt(min(c.cursor+c.skip, len(c.segments)-1))
}

// Backward speaks the segment skip positions back, stopping at the first one.
func (c *Controller) Backward() error {
	c.mu.Lock()
	defer c.unlock()

	if err := c.checkControls(); err != nil {
		return err
	}
	return c.speakAt(max(c.cursor-c.skip, 0))
}

// SpeakAt starts speaking at index. An index past the end finishes the
// document.
func (c *Controller) SpeakAt(index int) error {
	c.mu.Lock()
	defer c.unlock()

	if err := c.checkControls(); err != nil {
		return err
	}
	return c.speakAt(index)
}

// Seek moves the cursor to index. Speech restarts there only when the user
// intends continuous playback.
func (c *Controller) Seek(index int) error {
	c.mu.Lock()
	defer c.unlock()

	if err := c.checkControls(); err != nil {
		return err
	}

	index = max(0, min(index, len(c.segments)-1))
	if c.intent {
		return c.speakAt(index)
	}

	c.speaker.Cancel()
	c.live = ""
	c.cursor = index
	c.reportPosition()
	return nil
}

// SetRate changes the speech rate. Playback in progress restarts the
// current segment at the new rate.
func (c *Controller) SetRate(rate float64) error {
	c.mu.Lock()
	defer c.unlock()

	if !ValidRate(rate) {
		return ErrInvalidRate
	}

	c.rate = rate
	if c.intent && len(c.segments) > 0 && c.speaker != nil {
		return c.speakAt(c.cursor)
	}
	return nil
}

// SetVoice changes the voice. Playback in progress restarts the current
// segment with the new voice.
func (c *Controller) SetVoice(voice Voice) error {
	c.mu.Lock()
	defer c.unlock()

	c.voice = voice
	if c.intent && len(c.segments) > 0 && c.speaker != nil {
		return c.speakAt(c.cursor)
	}
	return nil
}

// SetSkipAmount sets how many segments forward and backward move.
func (c *Controller) SetSkipAmount(n int) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if n < 1 {
		return ErrInvalidSkip
	}
	c.skip = n
	return nil
}

// HandleEvent processes a speaker notification. Events for anything but
// the live utterance are stale and ignored.
func (c *Controller) HandleEvent(ev Event) {
	c.mu.Lock()
	defer c.unlock()

	if ev.UtteranceID == "" || ev.UtteranceID != c.live {
		log.Debug("stale speaker event", "id", ev.UtteranceID, "kind", ev.Kind, "reason", ev.Reason)
		return
	}

	switch ev.Kind {
	case EventDone:
		c.live = ""
		if c.intent && c.speaker.State() != SpeakerPaused {
			_ = c.speakAt(c.cursor + 1)
			return
		}
		c.intent = false

	case EventError:
		c.live = ""
		if ev.Interrupted() {
			return
		}
		err := &SpeechError{Reason: ev.Reason, Err: ev.Err}
		log.Warn("speech failed", "index", c.cursor, "reason", ev.Reason, "err", ev.Err)
		c.intent = false
		c.err = err
		c.report(StatusError, err.Error())
	}
}

// Run dispatches speaker events until ctx is done or the event channel
// is closed.
func (c *Controller) Run(ctx context.Context) error {
	if c.speaker == nil {
		return ErrSpeakerUnavailable
	}

	events := c.speaker.Events()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			c.HandleEvent(ev)
		}
	}
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Snapshot{
		Cursor:          c.cursor,
		Total:           len(c.segments),
		Intent:          c.intent,
		Rate:            c.rate,
		Voice:           c.voice,
		Skip:            c.skip,
		Loading:         c.loading,
		Status:          c.status,
		ControlsEnabled: c.controlsEnabled(),
	}
	if c.speaker != nil {
		s.Speaker = c.speaker.State()
	}
	return s
}

// Err returns the failure behind the last StatusError: a *SpeechError for
// errors reported by the speaker, or the error Speak returned. It is nil
// once a segment is spoken successfully.
func (c *Controller) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Status returns the current status line.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.status
}

// ControlsEnabled reports whether playback controls accept input.
func (c *Controller) ControlsEnabled() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.controlsEnabled()
}

// Current returns the segment under the cursor.
func (c *Controller) Current() (Sentence, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cursor < 0 || c.cursor >= len(c.segments) {
		return Sentence{}, false
	}
	return c.segments[c.cursor], true
}

// Segments returns the loaded segment sequence.
func (c *Controller) Segments() []Sentence {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Sentence(nil), c.segments...)
}

// Private helper methods

// speakAt must be called with the lock held.
func (c *Controller) speakAt(index int) error {
	if index < 0 {
		index = 0
	}

	if index >= len(c.segments) {
		c.intent = false
		c.cursor = 0
		c.cancelLive()
		c.report(StatusEnd, MsgEndOfDocument)
		return nil
	}

	// Cancel unconditionally; the speaker may hold a paused utterance we
	// no longer track.
	c.speaker.Cancel()
	c.live = ""

	u := c.utterance(index)
	c.intent = true
	c.cursor = index

	log.Debug("speak", "index", index, "id", u.ID, "rate", u.Rate, "voice", u.Voice.ID)
	if err := c.speaker.Speak(u); err != nil {
		c.intent = false
		c.err = fmt.Errorf("speak segment %d: %w", index, err)
		c.report(StatusError, err.Error())
		return c.err
	}
	c.live = u.ID
	c.err = nil
	c.reportReading()

	if p, ok := c.speaker.(Prefetcher); ok && c.lookahead > 0 {
		upcoming := make([]Utterance, 0, c.lookahead)
		for i := index + 1; i < len(c.segments) && len(upcoming) < c.lookahead; i++ {
			upcoming = append(upcoming, c.utterance(i))
		}
		if len(upcoming) > 0 {
			p.Prefetch(upcoming)
		}
	}
	return nil
}

func (c *Controller) utterance(index int) Utterance {
	return Utterance{
		ID:    ulid.MustNew(ulid.Timestamp(time.Now()), c.entropy).String(),
		Index: index,
		Text:  c.segments[index].Text,
		Rate:  c.rate,
		Voice: c.voice,
	}
}

func (c *Controller) cancelLive() {
	if c.live == "" || c.speaker == nil {
		return
	}
	c.speaker.Cancel()
	c.live = ""
}

func (c *Controller) controlsEnabled() bool {
	return !c.loading && len(c.segments) > 0 && c.speaker != nil
}

func (c *Controller) checkControls() error {
	switch {
	case c.loading:
		return ErrControlsDisabled
	case len(c.segments) == 0:
		c.report(StatusInfo, MsgNoReadableText)
		return ErrEmptyInput
	case c.speaker == nil:
		c.err = ErrSpeakerUnavailable
		c.report(StatusError, MsgUnavailable)
		return ErrSpeakerUnavailable
	}
	return nil
}

func (c *Controller) reportReading() {
	c.report(StatusInfo, fmt.Sprintf("reading %d/%d", c.cursor+1, len(c.segments)))
}

func (c *Controller) reportPosition() {
	c.report(StatusInfo, fmt.Sprintf("at %d/%d", c.cursor+1, len(c.segments)))
}

// report must be called with the lock held.
func (c *Controller) report(kind StatusKind, msg string) {
	st := Status{Kind: kind, Message: msg}
	if st == c.status {
		return
	}
	c.status = st
	c.pending = append(c.pending, st)
}

// unlock releases the lock and then delivers queued status changes.
func (c *Controller) unlock() {
	pending := c.pending
	c.pending = nil
	listeners := c.listeners
	c.mu.Unlock()

	for _, st := range pending {
		for _, fn := range listeners {
			fn(st)
		}
	}
}
