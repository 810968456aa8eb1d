//go:build nocgo
// +build nocgo

package audio

import (
	"github.com/txtparrot/parrot/tts"
)

// OtoPlayer is unavailable in builds without cgo.
type OtoPlayer struct{}

// NewOtoPlayer always fails: there is no audio device without cgo.
func NewOtoPlayer() (*OtoPlayer, error) {
	return nil, tts.ErrSpeakerUnavailable
}

func (p *OtoPlayer) Play(*tts.Audio) error { return tts.ErrSpeakerUnavailable }
func (p *OtoPlayer) Pause() error          { return ErrNotPlaying }
func (p *OtoPlayer) Resume() error         { return ErrNotPaused }
func (p *OtoPlayer) Stop() error           { return nil }
func (p *OtoPlayer) IsPlaying() bool       { return false }
func (p *OtoPlayer) IsPaused() bool        { return false }
func (p *OtoPlayer) Err() error            { return nil }
func (p *OtoPlayer) Close() error          { return nil }
