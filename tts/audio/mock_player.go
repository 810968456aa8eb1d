package audio

import (
	"sync"
	"time"

	"github.com/txtparrot/parrot/tts"
)

// MockPlayer implements Player for testing.
// It simulates audio playback with accurate timing without actual audio output.
type MockPlayer struct {
	mu sync.Mutex

	current *tts.Audio
	playing bool
	paused  bool

	// Timing simulation
	started time.Time     // start of the current unpaused run
	played  time.Duration // position accumulated before started

	// Test control
	speedMultiplier float64 // Allows tests to speed up/slow down playback
	hold            bool    // Never finish on its own
	history         []PlaybackEvent

	// Error injection for testing
	playError error
	endError  error
	lastError error
}

// PlaybackEvent records an event for testing verification.
type PlaybackEvent struct {
	Type      string
	Timestamp time.Time
	Position  time.Duration
	Audio     *tts.Audio
}

// NewMockPlayer creates a new mock audio player for testing.
func NewMockPlayer() *MockPlayer {
	return &MockPlayer{speedMultiplier: 1.0}
}

// Play starts playing the given audio.
func (mp *MockPlayer) Play(audio *tts.Audio) error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.playError != nil {
		return mp.playError
	}
	if err := validate(audio); err != nil {
		return err
	}

	mp.current = audio
	mp.playing = true
	mp.paused = false
	mp.started = time.Now()
	mp.played = 0
	mp.lastError = nil
	mp.recordEvent("play", audio)
	return nil
}

// Pause temporarily stops playback.
func (mp *MockPlayer) Pause() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if !mp.update() {
		return ErrNotPlaying
	}
	if mp.paused {
		return nil
	}
	mp.played = mp.positionLocked()
	mp.paused = true
	mp.recordEvent("pause", nil)
	return nil
}

// Resume continues playback from paused position.
func (mp *MockPlayer) Resume() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if !mp.playing || !mp.paused {
		return ErrNotPaused
	}
	mp.paused = false
	mp.started = time.Now()
	mp.recordEvent("resume", nil)
	return nil
}

// Stop halts playback and resets position.
func (mp *MockPlayer) Stop() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if !mp.playing {
		return nil
	}
	mp.playing = false
	mp.paused = false
	mp.current = nil
	mp.played = 0
	mp.recordEvent("stop", nil)
	return nil
}

// IsPlaying reports whether audio remains to be played.
func (mp *MockPlayer) IsPlaying() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.update()
}

// IsPaused reports whether playback is suspended.
func (mp *MockPlayer) IsPaused() bool {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.playing && mp.paused
}

// Err returns the injected end-of-playback error.
func (mp *MockPlayer) Err() error {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.lastError
}

// Close stops playback.
func (mp *MockPlayer) Close() error {
	return mp.Stop()
}

// Position returns the simulated playback position.
func (mp *MockPlayer) Position() time.Duration {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	if !mp.playing {
		return 0
	}
	return mp.positionLocked()
}

// Test control methods

// SetSpeedMultiplier scales simulated time; 10 plays ten times faster.
func (mp *MockPlayer) SetSpeedMultiplier(multiplier float64) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if multiplier <= 0 {
		multiplier = 1
	}
	if mp.playing && !mp.paused {
		mp.played = mp.positionLocked()
		mp.started = time.Now()
	}
	mp.speedMultiplier = multiplier
}

// Hold keeps audio "playing" until SimulateCompletion is called.
func (mp *MockPlayer) Hold(hold bool) {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	mp.hold = hold
}

// InjectError makes Play fail, or makes playback end with err when
// method is "end".
func (mp *MockPlayer) InjectError(method string, err error) {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	switch method {
	case "play":
		mp.playError = err
	case "end":
		mp.endError = err
	}
}

// SimulateCompletion finishes the current audio immediately.
func (mp *MockPlayer) SimulateCompletion() {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	if mp.playing {
		mp.finishLocked()
	}
}

// GetHistory returns the recorded events.
func (mp *MockPlayer) GetHistory() []PlaybackEvent {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return append([]PlaybackEvent(nil), mp.history...)
}

// EventTypes returns the recorded event types in order.
func (mp *MockPlayer) EventTypes() []string {
	mp.mu.Lock()
	defer mp.mu.Unlock()

	types := make([]string, len(mp.history))
	for i, ev := range mp.history {
		types[i] = ev.Type
	}
	return types
}

// GetCurrentAudio returns the audio being played.
func (mp *MockPlayer) GetCurrentAudio() *tts.Audio {
	mp.mu.Lock()
	defer mp.mu.Unlock()
	return mp.current
}

// update advances simulated time and reports whether audio remains.
func (mp *MockPlayer) update() bool {
	if !mp.playing {
		return false
	}
	if mp.paused || mp.hold {
		return true
	}
	if mp.positionLocked() >= mp.current.Duration {
		mp.finishLocked()
		return false
	}
	return true
}

func (mp *MockPlayer) positionLocked() time.Duration {
	if mp.paused {
		return mp.played
	}
	elapsed := float64(time.Since(mp.started)) * mp.speedMultiplier
	return mp.played + time.Duration(elapsed)
}

func (mp *MockPlayer) finishLocked() {
	mp.playing = false
	mp.paused = false
	mp.lastError = mp.endError
	mp.recordEvent("complete", nil)
}

func (mp *MockPlayer) recordEvent(eventType string, audio *tts.Audio) {
	var pos time.Duration
	if mp.playing && mp.current != nil {
		pos = mp.positionLocked()
	}
	mp.history = append(mp.history, PlaybackEvent{
		Type:      eventType,
		Timestamp: time.Now(),
		Position:  pos,
		Audio:     audio,
	})
}
