// Package clone speaks with a voice cloned on a remote voice-clone server.
package clone

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/txtparrot/parrot/internal/voiceclone"
	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/audio"
)

// Config holds configuration for the clone engine.
type Config struct {
	URL      string // Server base URL
	UserID   string // Default cloned voice
	Language string // Defaults to "EN"
}

// Engine sends each utterance to the server's /tts endpoint.
type Engine struct {
	client   *voiceclone.Client
	userID   string
	language string
}

// New creates a clone engine for the server at cfg.URL.
func New(cfg Config) (*Engine, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("%w: %v", tts.ErrEngineNotAvailable, voiceclone.ErrNoURL)
	}
	return NewWithClient(voiceclone.New(cfg.URL), cfg), nil
}

// NewWithClient creates a clone engine around an existing client.
func NewWithClient(c *voiceclone.Client, cfg Config) *Engine {
	if cfg.Language == "" {
		cfg.Language = "EN"
	}
	return &Engine{client: c, userID: cfg.UserID, language: cfg.Language}
}

// Name returns the engine name.
func (e *Engine) Name() string { return "clone" }

// Synthesize speaks text with the cloned voice. The voice ID is the clone
// user ID. The server ignores the requested speed, so the rate is applied
// locally.
func (e *Engine) Synthesize(ctx context.Context, text string, opts tts.SynthesisOptions) (*tts.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, tts.ErrEmptyText
	}

	user := e.userID
	if !opts.Voice.IsZero() {
		user = opts.Voice.ID
	}
	speed := opts.Rate
	if speed <= 0 {
		speed = tts.DefaultRate
	}

	start := time.Now()
	wav, err := e.client.Synthesize(ctx, voiceclone.Request{
		Text:     text,
		Language: e.language,
		UserID:   user,
		Speed:    tts.DefaultRate,
	})
	if err != nil {
		return nil, err
	}
	log.Debug("clone synthesized", "user", user, "bytes", len(wav), "took", time.Since(start))

	a, err := audio.DecodeWAV(wav)
	if err != nil {
		return nil, err
	}
	return audio.ChangeRate(a, speed)
}

// Voices returns the configured cloned voice. The server has no listing
// endpoint.
func (e *Engine) Voices(context.Context) ([]tts.Voice, error) {
	if e.userID == "" {
		return nil, nil
	}
	return []tts.Voice{{ID: e.userID, Name: "clone:" + e.userID, Language: e.language}}, nil
}

// Close is a no-op.
func (e *Engine) Close() error { return nil }
