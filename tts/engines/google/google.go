// Package google implements a speech engine backed by Google Cloud
// Text-to-Speech. Credentials come from Application Default Credentials.
package google

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/charmbracelet/log"
	"github.com/googleapis/gax-go/v2"

	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/audio"
)

// MaxTextSize is the API's input limit in bytes.
const MaxTextSize = 5000

// DefaultVoice is used when neither the config nor the request names one.
const DefaultVoice = "en-US-Chirp3-HD-Charon"

// client is the subset of *texttospeech.Client the engine calls.
type client interface {
	SynthesizeSpeech(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest, opts ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error)
	ListVoices(ctx context.Context, req *texttospeechpb.ListVoicesRequest, opts ...gax.CallOption) (*texttospeechpb.ListVoicesResponse, error)
	Close() error
}

// Config holds configuration for the Google engine.
type Config struct {
	LanguageCode string // Defaults to "en-US"
	Voice        string // Voice name, e.g. "en-US-Chirp3-HD-Leda"
}

// Engine synthesizes LINEAR16 audio at the canonical sample rate, so no
// resampling is needed.
type Engine struct {
	client   client
	language string
	voice    string
}

// New connects to Google Cloud TTS.
func New(ctx context.Context, cfg Config) (*Engine, error) {
	c, err := texttospeech.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: create Google TTS client: %v", tts.ErrEngineNotAvailable, err)
	}
	return newEngine(c, cfg), nil
}

func newEngine(c client, cfg Config) *Engine {
	if cfg.LanguageCode == "" {
		cfg.LanguageCode = "en-US"
	}
	if cfg.Voice == "" {
		cfg.Voice = DefaultVoice
	}
	return &Engine{client: c, language: cfg.LanguageCode, voice: cfg.Voice}
}

// Name returns the engine name.
func (e *Engine) Name() string { return "google" }

// Synthesize renders text with the API's native speaking rate.
func (e *Engine) Synthesize(ctx context.Context, text string, opts tts.SynthesisOptions) (*tts.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	if len(text) > MaxTextSize {
		return nil, fmt.Errorf("text too long: %d bytes (max %d)", len(text), MaxTextSize)
	}

	voice, lang := e.voice, e.language
	if !opts.Voice.IsZero() {
		voice = opts.Voice.ID
		if opts.Voice.Language != "" {
			lang = opts.Voice.Language
		}
	}

	cfg := &texttospeechpb.AudioConfig{
		AudioEncoding:   texttospeechpb.AudioEncoding_LINEAR16,
		SampleRateHertz: tts.SampleRate,
	}
	// The API accepts 0.25 to 4.0; outside that range fall back to resampling.
	speed := opts.Rate
	if speed <= 0 {
		speed = tts.DefaultRate
	}
	native := speed >= 0.25 && speed <= 4
	if native {
		cfg.SpeakingRate = speed
	}

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         voice,
		},
		AudioConfig: cfg,
	}

	start := time.Now()
	resp, err := e.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("Google TTS synthesize: %w", err)
	}
	log.Debug("google synthesized", "chars", len(text), "bytes", len(resp.AudioContent), "took", time.Since(start).Round(time.Millisecond))

	// LINEAR16 responses carry a WAV header.
	a, err := audio.DecodeWAV(resp.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decode Google TTS audio: %w", err)
	}
	if native {
		return a, nil
	}
	return audio.ChangeRate(a, speed)
}

// Voices lists the voices available for the configured language.
func (e *Engine) Voices(ctx context.Context) ([]tts.Voice, error) {
	resp, err := e.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{LanguageCode: e.language})
	if err != nil {
		return nil, fmt.Errorf("list Google TTS voices: %w", err)
	}
	voices := make([]tts.Voice, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		voice := tts.Voice{
			ID:     v.Name,
			Name:   v.Name,
			Gender: strings.ToLower(v.SsmlGender.String()),
		}
		if len(v.LanguageCodes) > 0 {
			voice.Language = v.LanguageCodes[0]
		}
		voices = append(voices, voice)
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].ID < voices[j].ID })
	return voices, nil
}

// Close closes the API client.
func (e *Engine) Close() error { return e.client.Close() }
