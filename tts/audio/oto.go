//go:build !nocgo
// +build !nocgo

package audio

import (
	"bytes"
	"fmt"
	"runtime"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/txtparrot/parrot/tts"
)

// oto allows a single context per process.
var (
	otoContext *oto.Context
	otoErr     error
	otoOnce    sync.Once
)

func sharedContext() (*oto.Context, error) {
	otoOnce.Do(func() {
		options := &oto.NewContextOptions{
			SampleRate:   tts.SampleRate,
			ChannelCount: tts.Channels,
			Format:       oto.FormatSignedInt16LE,
		}

		switch runtime.GOOS {
		case "darwin":
			// CoreAudio underruns with small buffers.
			options.BufferSize = 100 * time.Millisecond
		default:
			options.BufferSize = 50 * time.Millisecond
		}

		ctx, ready, err := oto.NewContext(options)
		if err != nil {
			otoErr = fmt.Errorf("%w: %v", tts.ErrSpeakerUnavailable, err)
			return
		}
		<-ready

		log.Debug("audio context ready", "sample_rate", options.SampleRate, "buffer", options.BufferSize)
		otoContext = ctx
	})
	return otoContext, otoErr
}

// OtoPlayer plays audio on the system output device.
type OtoPlayer struct {
	ctx *oto.Context

	mu     sync.Mutex
	player *oto.Player
	paused bool
}

// NewOtoPlayer opens the audio device. It returns an error wrapping
// tts.ErrSpeakerUnavailable when no device can be opened.
func NewOtoPlayer() (*OtoPlayer, error) {
	ctx, err := sharedContext()
	if err != nil {
		return nil, err
	}
	return &OtoPlayer{ctx: ctx}, nil
}

// Play starts playing audio.
func (p *OtoPlayer) Play(audio *tts.Audio) error {
	if err := validate(audio); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.stopLocked()
	p.player = p.ctx.NewPlayer(bytes.NewReader(audio.Data))
	p.paused = false
	p.player.Play()
	return nil
}

// Pause suspends playback.
func (p *OtoPlayer) Pause() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return ErrNotPlaying
	}
	p.player.Pause()
	p.paused = true
	return nil
}

// Resume continues playback.
func (p *OtoPlayer) Resume() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil || !p.paused {
		return ErrNotPaused
	}
	p.player.Play()
	p.paused = false
	return nil
}

// Stop halts playback.
func (p *OtoPlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

// IsPlaying reports whether audio remains to be played.
func (p *OtoPlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return false
	}
	return p.paused || p.player.IsPlaying()
}

// IsPaused reports whether playback is suspended.
func (p *OtoPlayer) IsPaused() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.player != nil && p.paused
}

// Err returns the device error of the current playback.
func (p *OtoPlayer) Err() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return nil
	}
	return p.player.Err()
}

// Close stops playback. The shared context stays open for reuse.
func (p *OtoPlayer) Close() error {
	return p.Stop()
}

func (p *OtoPlayer) stopLocked() error {
	if p.player == nil {
		return nil
	}
	p.player.Pause()
	err := p.player.Close()
	p.player = nil
	p.paused = false
	return err
}
