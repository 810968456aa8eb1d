// Package openai implements a speech engine using the OpenAI speech endpoint.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/audio"
)

// DefaultURL is the OpenAI speech endpoint.
const DefaultURL = "https://api.openai.com/v1/audio/speech"

// MaxTextSize is the API's input limit in characters.
const MaxTextSize = 4096

// ErrNoAPIKey is returned when no API key is configured.
var ErrNoAPIKey = errors.New("openai api key is required")

// Config holds configuration for the OpenAI engine.
type Config struct {
	APIKey string // Falls back to OPENAI_API_KEY
	Model  string // Defaults to "gpt-4o-mini-tts"
	Voice  string // Defaults to "alloy"
	URL    string // Defaults to DefaultURL
	HTTP   *http.Client
}

// Engine requests WAV audio and decodes it to canonical PCM.
type Engine struct {
	apiKey string
	model  string
	voice  string
	url    string
	http   *http.Client
}

// New creates an OpenAI engine.
func New(cfg Config) (*Engine, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv("OPENAI_API_KEY")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %v", tts.ErrEngineNotAvailable, ErrNoAPIKey)
	}
	if cfg.Model == "" {
		cfg.Model = "gpt-4o-mini-tts"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	if cfg.URL == "" {
		cfg.URL = DefaultURL
	}
	if cfg.HTTP == nil {
		cfg.HTTP = &http.Client{Timeout: 90 * time.Second}
	}
	return &Engine{
		apiKey: cfg.APIKey,
		model:  cfg.Model,
		voice:  cfg.Voice,
		url:    cfg.URL,
		http:   cfg.HTTP,
	}, nil
}

// Name returns the engine name.
func (e *Engine) Name() string { return "openai" }

// Synthesize converts text to audio with the API's native speed control
// (0.25 to 4.0). Rates outside that range are resampled locally.
func (e *Engine) Synthesize(ctx context.Context, text string, opts tts.SynthesisOptions) (*tts.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	if n := len([]rune(text)); n > MaxTextSize {
		return nil, fmt.Errorf("text too long: %d characters (max %d)", n, MaxTextSize)
	}

	voice := e.voice
	if !opts.Voice.IsZero() {
		voice = opts.Voice.ID
	}
	speed := opts.Rate
	if speed <= 0 {
		speed = tts.DefaultRate
	}
	native := speed
	if native < 0.25 || native > 4 {
		native = 1
	}

	payload := map[string]interface{}{
		"model":           e.model,
		"input":           text,
		"voice":           voice,
		"speed":           native,
		"response_format": "wav",
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	start := time.Now()
	resp, err := e.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("openai request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
		return nil, fmt.Errorf("openai error %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	wav, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	log.Debug("openai synthesized", "model", e.model, "voice", voice, "bytes", len(wav), "took", time.Since(start))

	a, err := audio.DecodeWAV(wav)
	if err != nil {
		return nil, err
	}
	if native == speed {
		return a, nil
	}
	return audio.ChangeRate(a, speed)
}

// Voices returns the built-in OpenAI voices.
func (e *Engine) Voices(context.Context) ([]tts.Voice, error) {
	names := []string{"alloy", "ash", "ballad", "coral", "echo", "fable", "nova", "onyx", "sage", "shimmer"}
	voices := make([]tts.Voice, 0, len(names))
	for _, n := range names {
		voices = append(voices, tts.Voice{ID: n, Name: n, Language: "en"})
	}
	return voices, nil
}

// Close is a no-op.
func (e *Engine) Close() error { return nil }
