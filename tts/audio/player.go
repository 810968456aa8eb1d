// Package audio plays synthesized speech and implements tts.Speaker.
package audio

import (
	"errors"
	"fmt"

	"github.com/txtparrot/parrot/tts"
)

// Player errors.
var (
	ErrNotPlaying = errors.New("not playing")
	ErrNotPaused  = errors.New("not paused")
	ErrNilAudio   = errors.New("no audio to play")
)

// Player outputs canonical PCM audio.
type Player interface {
	// Play starts playing audio, replacing anything already playing.
	Play(audio *tts.Audio) error

	// Pause suspends playback.
	Pause() error

	// Resume continues paused playback.
	Resume() error

	// Stop halts playback and discards the current audio.
	Stop() error

	// IsPlaying reports whether audio remains to be played. A paused
	// player is still playing.
	IsPlaying() bool

	// IsPaused reports whether playback is suspended.
	IsPaused() bool

	// Err returns the error that ended playback, if any.
	Err() error

	// Close releases the output device.
	Close() error
}

// validate checks that audio can be handed to a player.
func validate(audio *tts.Audio) error {
	if audio == nil || len(audio.Data) == 0 {
		return ErrNilAudio
	}
	if len(audio.Data)%tts.BytesPerSample != 0 {
		return fmt.Errorf("invalid PCM data length: %d bytes (not aligned to %d-byte samples)",
			len(audio.Data), tts.BytesPerSample)
	}
	if audio.SampleRate != 0 && audio.SampleRate != tts.SampleRate {
		return fmt.Errorf("unsupported sample rate %d, want %d", audio.SampleRate, tts.SampleRate)
	}
	return nil
}
