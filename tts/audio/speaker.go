package audio

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/txtparrot/parrot/tts"
)

// ErrSpeakerClosed is returned by Speak after Close.
var ErrSpeakerClosed = errors.New("speaker is closed")

// SpeakerConfig tunes a Speaker.
type SpeakerConfig struct {
	PollInterval     time.Duration // How often playback completion is checked
	PrefetchLimit    int           // Concurrent lookahead syntheses
	SynthesisTimeout time.Duration // Upper bound for one synthesis
	Buffer           BufferConfig
}

// DefaultSpeakerConfig returns sensible defaults.
func DefaultSpeakerConfig() SpeakerConfig {
	return SpeakerConfig{
		PollInterval:     20 * time.Millisecond,
		PrefetchLimit:    2,
		SynthesisTimeout: 60 * time.Second,
		Buffer:           DefaultBufferConfig(),
	}
}

// Speaker speaks utterances by synthesizing them and playing the audio.
// It implements tts.Speaker and tts.Prefetcher.
type Speaker struct {
	synth  tts.Synthesizer
	player Player
	config SpeakerConfig

	events  chan tts.Event
	closing chan struct{}
	wg      sync.WaitGroup

	buffer   *Buffer
	inflight singleflight.Group

	mu             sync.Mutex
	job            *job
	prefetchCancel context.CancelFunc
	closed         bool
}

// job is one utterance from Speak until it finishes or is cancelled.
type job struct {
	u       tts.Utterance
	cancel  context.CancelFunc
	playing bool // audio handed to the player
	paused  bool
}

// NewSpeaker creates a speaker from a synthesizer and a player.
func NewSpeaker(synth tts.Synthesizer, player Player, config SpeakerConfig) *Speaker {
	def := DefaultSpeakerConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = def.PollInterval
	}
	if config.PrefetchLimit <= 0 {
		config.PrefetchLimit = def.PrefetchLimit
	}
	if config.SynthesisTimeout <= 0 {
		config.SynthesisTimeout = def.SynthesisTimeout
	}

	return &Speaker{
		synth:   synth,
		player:  player,
		config:  config,
		events:  make(chan tts.Event, 64),
		closing: make(chan struct{}),
		buffer:  NewBuffer(config.Buffer),
	}
}

// Speak replaces anything in flight with u and returns immediately.
func (s *Speaker) Speak(u tts.Utterance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrSpeakerClosed
	}
	s.cancelLocked()

	ctx, cancel := context.WithCancel(context.Background())
	j := &job{u: u, cancel: cancel}
	s.job = j

	s.wg.Add(1)
	go s.run(ctx, j)
	return nil
}

// Cancel stops the in-flight utterance. Its completion is never reported;
// an interrupted error is sent instead.
func (s *Speaker) Cancel() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancelLocked()
}

// Pause suspends the in-flight utterance. A pause during synthesis takes
// effect when playback starts.
func (s *Speaker) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := s.job
	if j == nil || j.paused {
		return
	}
	if j.playing {
		if err := s.player.Pause(); err != nil {
			log.Debug("pause", "err", err)
		}
	}
	j.paused = true
}

// Resume continues a paused utterance.
func (s *Speaker) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	j := s.job
	if j == nil || !j.paused {
		return
	}
	if j.playing {
		if err := s.player.Resume(); err != nil {
			log.Debug("resume", "err", err)
		}
	}
	j.paused = false
}

// State reports what the speaker is doing.
func (s *Speaker) State() tts.SpeakerState {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch {
	case s.job == nil:
		return tts.SpeakerIdle
	case s.job.paused:
		return tts.SpeakerPaused
	default:
		return tts.SpeakerSpeaking
	}
}

// Events delivers completion and error notifications.
func (s *Speaker) Events() <-chan tts.Event {
	return s.events
}

// Prefetch synthesizes upcoming utterances into the buffer. Each call
// abandons the previous batch.
func (s *Speaker) Prefetch(upcoming []tts.Utterance) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	if s.prefetchCancel != nil {
		s.prefetchCancel()
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.prefetchCancel = cancel
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()

		g, ctx := errgroup.WithContext(ctx)
		g.SetLimit(s.config.PrefetchLimit)
		for _, u := range upcoming {
			if s.buffer.Has(bufferKey(u)) {
				continue
			}
			g.Go(func() error {
				_, err := s.synthesize(ctx, u)
				return err
			})
		}
		if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
			log.Debug("prefetch failed", "err", err)
		}
	}()
}

// Buffer exposes the prefetch buffer.
func (s *Speaker) Buffer() *Buffer {
	return s.buffer
}

// Close stops everything, waits for workers and closes the event channel.
func (s *Speaker) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.cancelLocked()
	if s.prefetchCancel != nil {
		s.prefetchCancel()
	}
	close(s.closing)
	s.mu.Unlock()

	s.wg.Wait()
	close(s.events)
	s.buffer.Close()
	return s.player.Close()
}

// run synthesizes and plays one job.
func (s *Speaker) run(ctx context.Context, j *job) {
	defer s.wg.Done()

	audio, err := s.synthesize(ctx, j.u)
	if ctx.Err() != nil {
		return
	}
	if err != nil {
		s.finish(j, tts.Event{Kind: tts.EventError, Reason: tts.ReasonSynthesisFailed, Err: err})
		return
	}

	s.mu.Lock()
	if s.job != j {
		s.mu.Unlock()
		return
	}
	err = s.player.Play(audio)
	if err == nil {
		j.playing = true
		if j.paused {
			err = s.player.Pause()
		}
	}
	s.mu.Unlock()
	if err != nil {
		s.finish(j, tts.Event{Kind: tts.EventError, Reason: tts.ReasonPlaybackFailed, Err: err})
		return
	}

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if s.player.IsPlaying() {
				continue
			}
			if err := s.player.Err(); err != nil {
				s.finish(j, tts.Event{Kind: tts.EventError, Reason: tts.ReasonPlaybackFailed, Err: err})
				return
			}
			s.finish(j, tts.Event{Kind: tts.EventDone})
			return
		}
	}
}

// synthesize returns audio for u, sharing work between Speak and Prefetch.
func (s *Speaker) synthesize(ctx context.Context, u tts.Utterance) (*tts.Audio, error) {
	key := bufferKey(u)
	if audio, ok := s.buffer.Get(key); ok {
		return audio, nil
	}

	ch := s.inflight.DoChan(key, func() (interface{}, error) {
		// Detached so a cancelled prefetch does not fail a waiting Speak.
		sctx, cancel := context.WithTimeout(context.Background(), s.config.SynthesisTimeout)
		defer cancel()

		audio, err := s.synth.Synthesize(sctx, u.Text, u.Options())
		if err != nil {
			return nil, err
		}
		if audio == nil || len(audio.Data) == 0 {
			return nil, tts.ErrEmptyAudio
		}
		_ = s.buffer.Add(key, audio)
		return audio, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}
		return res.Val.(*tts.Audio), nil
	}
}

// finish reports the outcome of j unless it was cancelled meanwhile.
func (s *Speaker) finish(j *job, ev tts.Event) {
	s.mu.Lock()
	if s.job != j {
		s.mu.Unlock()
		return
	}
	s.job = nil
	s.mu.Unlock()

	ev.UtteranceID = j.u.ID
	if ev.Kind == tts.EventError {
		log.Warn("utterance failed", "index", j.u.Index, "reason", ev.Reason, "err", ev.Err)
	}
	select {
	case s.events <- ev:
	case <-s.closing:
	}
}

// cancelLocked must be called with the lock held.
func (s *Speaker) cancelLocked() {
	j := s.job
	if j == nil {
		return
	}
	s.job = nil
	j.cancel()
	if j.playing {
		if err := s.player.Stop(); err != nil {
			log.Debug("stop", "err", err)
		}
	}

	// Never block here: the consumer may be waiting on a lock our caller holds.
	select {
	case s.events <- tts.Event{UtteranceID: j.u.ID, Kind: tts.EventError, Reason: tts.ReasonInterrupted}:
	default:
		log.Debug("dropped interrupted event", "id", j.u.ID)
	}
}

func bufferKey(u tts.Utterance) string {
	return fmt.Sprintf("%s|%.3f|%s", u.Voice.ID, u.Rate, u.Text)
}
