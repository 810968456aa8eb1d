// Package gtts implements a speech engine on top of gtts-cli (Google
// Translate TTS). It needs no API key but requires network access.
package gtts

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/time/rate"

	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/audio"
	"github.com/txtparrot/parrot/tts/engines/subprocess"
)

// MaxTextSize is the longest text accepted per request.
const MaxTextSize = 5000

// Config holds configuration for the gTTS engine.
type Config struct {
	// Binary is the gtts-cli executable. Defaults to "gtts-cli".
	Binary string

	// Language code (e.g., "en", "es", "fr"). Defaults to "en".
	Language string

	// TLD selects the Google Translate host, which changes the accent.
	// Defaults to "com".
	TLD string

	// RequestsPerMinute limits requests to avoid being blocked. Defaults to 50.
	RequestsPerMinute int

	// Timeout bounds one request. Defaults to 30s.
	Timeout time.Duration
}

// Engine synthesizes speech through gtts-cli. Output is MP3, decoded and
// time-scaled locally since the service has no rate control.
type Engine struct {
	binary   string
	language string
	tld      string
	timeout  time.Duration
	limiter  *rate.Limiter
}

// New creates a gTTS engine. It fails when gtts-cli is not installed.
func New(cfg Config) (*Engine, error) {
	if cfg.Binary == "" {
		cfg.Binary = "gtts-cli"
	}
	if !subprocess.Available(cfg.Binary) {
		return nil, fmt.Errorf("%w: gtts-cli not found, install it with: pip install gTTS", tts.ErrEngineNotAvailable)
	}
	if cfg.Language == "" {
		cfg.Language = "en"
	}
	if cfg.TLD == "" {
		cfg.TLD = "com"
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = 50
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	return &Engine{
		binary:   cfg.Binary,
		language: cfg.Language,
		tld:      cfg.TLD,
		timeout:  cfg.Timeout,
		limiter:  rate.NewLimiter(rate.Every(time.Minute/time.Duration(cfg.RequestsPerMinute)), 1),
	}, nil
}

// Name returns the engine name.
func (e *Engine) Name() string { return "gtts" }

// Synthesize fetches MP3 audio for text and converts it to canonical PCM.
// A voice ID, when set, is used as the language code.
func (e *Engine) Synthesize(ctx context.Context, text string, opts tts.SynthesisOptions) (*tts.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	if len(text) > MaxTextSize {
		return nil, fmt.Errorf("text too long: %d characters (max %d)", len(text), MaxTextSize)
	}

	lang := e.language
	if !opts.Voice.IsZero() {
		lang = opts.Voice.ID
	}

	if err := e.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit wait cancelled: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	mp3, err := subprocess.Run(ctx, strings.NewReader(text), e.binary, "-", "--lang", lang, "--tld", e.tld)
	if err != nil {
		return nil, fmt.Errorf("MP3 generation failed: %w", err)
	}
	log.Debug("gtts synthesized", "bytes", len(mp3), "lang", lang, "took", time.Since(start))

	decoded, err := audio.DecodeMP3(mp3)
	if err != nil {
		return nil, fmt.Errorf("MP3 decoding failed: %w", err)
	}

	speed := opts.Rate
	if speed <= 0 {
		speed = tts.DefaultRate
	}
	return audio.ChangeRate(decoded, speed)
}

// Voices returns the languages gTTS handles well.
func (e *Engine) Voices(context.Context) ([]tts.Voice, error) {
	voices := make([]tts.Voice, 0, len(languages))
	for _, l := range languages {
		voices = append(voices, tts.Voice{ID: l[0], Name: l[1], Language: l[0]})
	}
	return voices, nil
}

// Close is a no-op.
func (e *Engine) Close() error { return nil }

var languages = [][2]string{
	{"en", "English"},
	{"de", "German"},
	{"es", "Spanish"},
	{"fr", "French"},
	{"it", "Italian"},
	{"ja", "Japanese"},
	{"ko", "Korean"},
	{"nl", "Dutch"},
	{"pl", "Polish"},
	{"pt", "Portuguese"},
	{"ru", "Russian"},
	{"zh-CN", "Chinese (Simplified)"},
}
