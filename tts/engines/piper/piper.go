// Package piper provides the Piper TTS engine integration.
package piper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/log"

	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/audio"
	"github.com/txtparrot/parrot/tts/engines/subprocess"
)

// MaxTextSize is the longest text accepted per request.
const MaxTextSize = 5000

// PiperError represents Piper-specific errors.
type PiperError struct {
	Type    string // "dependency", "model" or "synthesis"
	Message string
	Cause   error
}

func (e *PiperError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("piper %s: %s: %v", e.Type, e.Message, e.Cause)
	}
	return fmt.Sprintf("piper %s: %s", e.Type, e.Message)
}

func (e *PiperError) Unwrap() error {
	return e.Cause
}

// Config holds configuration for the Piper engine.
type Config struct {
	Binary  string        // Path to the piper executable, searched for when empty
	Model   string        // Default ONNX voice model
	Timeout time.Duration // Per-synthesis timeout
}

// Engine synthesizes speech with a fresh Piper process per request.
type Engine struct {
	binary  string
	model   string
	timeout time.Duration
}

// New creates a Piper engine. The binary and model must exist.
func New(cfg Config) (*Engine, error) {
	binary := cfg.Binary
	if binary == "" {
		binary = findBinary()
	}
	if !subprocess.Available(binary) {
		return nil, &PiperError{
			Type:    "dependency",
			Message: "piper binary not found, install it from https://github.com/rhasspy/piper",
			Cause:   tts.ErrEngineNotAvailable,
		}
	}

	model := cfg.Model
	if model == "" {
		model = findModel()
	}
	if err := checkModel(model); err != nil {
		return nil, err
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Engine{binary: binary, model: model, timeout: cfg.Timeout}, nil
}

// Name returns the engine name.
func (e *Engine) Name() string { return "piper" }

// Synthesize renders text with the voice's model. Piper slows down with a
// larger length scale, so the rate is inverted.
func (e *Engine) Synthesize(ctx context.Context, text string, opts tts.SynthesisOptions) (*tts.Audio, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, tts.ErrEmptyText
	}
	if len(text) > MaxTextSize {
		return nil, &PiperError{Type: "synthesis", Message: fmt.Sprintf("text too long: %d bytes (max %d)", len(text), MaxTextSize)}
	}

	model := e.model
	if !opts.Voice.IsZero() {
		model = opts.Voice.ID
		if err := checkModel(model); err != nil {
			return nil, err
		}
	}

	rate := opts.Rate
	if rate <= 0 {
		rate = tts.DefaultRate
	}

	args := []string{
		"--model", model,
		"--output-raw",
		"--length_scale", fmt.Sprintf("%.3f", 1/rate),
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	start := time.Now()
	pcm, err := subprocess.Run(ctx, strings.NewReader(text+"\n"), e.binary, args...)
	if err != nil {
		return nil, &PiperError{Type: "synthesis", Message: "synthesis failed", Cause: err}
	}
	log.Debug("piper synthesized", "bytes", len(pcm), "took", time.Since(start))

	return audio.FromPCM(pcm, modelSampleRate(model))
}

// Voices lists the ONNX models next to the configured model.
func (e *Engine) Voices(context.Context) ([]tts.Voice, error) {
	dirs := append([]string{filepath.Dir(e.model)}, modelDirs()...)
	seen := map[string]bool{}
	var voices []tts.Voice
	for _, dir := range dirs {
		matches, _ := filepath.Glob(filepath.Join(dir, "*.onnx"))
		for _, m := range matches {
			if seen[m] {
				continue
			}
			seen[m] = true
			voices = append(voices, voiceFromModel(m))
		}
	}
	sort.Slice(voices, func(i, j int) bool { return voices[i].Name < voices[j].Name })
	return voices, nil
}

// Close is a no-op; each request runs its own process.
func (e *Engine) Close() error { return nil }

// voiceFromModel derives a voice from a model file such as
// "en_US-lessac-medium.onnx".
func voiceFromModel(path string) tts.Voice {
	name := strings.TrimSuffix(filepath.Base(path), ".onnx")
	v := tts.Voice{ID: path, Name: name}
	if lang, _, ok := strings.Cut(name, "-"); ok {
		v.Language = strings.ReplaceAll(lang, "_", "-")
	}
	return v
}

// modelSampleRate reads audio.sample_rate from the model's JSON config.
func modelSampleRate(model string) int {
	data, err := os.ReadFile(model + ".json")
	if err != nil {
		return tts.SampleRate
	}
	var cfg struct {
		Audio struct {
			SampleRate int `json:"sample_rate"`
		} `json:"audio"`
	}
	if err := json.Unmarshal(data, &cfg); err != nil || cfg.Audio.SampleRate == 0 {
		return tts.SampleRate
	}
	return cfg.Audio.SampleRate
}

func checkModel(model string) error {
	if model == "" {
		return &PiperError{Type: "model", Message: "no voice model configured", Cause: tts.ErrVoiceNotFound}
	}
	if !strings.HasSuffix(model, ".onnx") {
		return &PiperError{Type: "model", Message: "model must be an .onnx file: " + model, Cause: tts.ErrVoiceNotFound}
	}
	if _, err := os.Stat(model); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = tts.ErrVoiceNotFound
		}
		return &PiperError{Type: "model", Message: "model not accessible: " + model, Cause: err}
	}
	return nil
}

func findBinary() string {
	candidates := []string{"piper"}
	if home, err := os.UserHomeDir(); err == nil {
		candidates = append(candidates,
			filepath.Join(home, ".local", "bin", "piper"),
			filepath.Join(home, "bin", "piper"),
		)
	}
	candidates = append(candidates, "/usr/local/bin/piper", "/opt/piper/piper")
	return subprocess.Find(candidates...)
}

func modelDirs() []string {
	var dirs []string
	if home, err := os.UserHomeDir(); err == nil {
		dirs = append(dirs,
			filepath.Join(home, ".local", "share", "piper-voices"),
			filepath.Join(home, ".config", "piper", "voices"),
		)
	}
	return append(dirs, "/usr/share/piper-voices", "/usr/local/share/piper-voices", "/opt/piper/voices")
}

func findModel() string {
	for _, dir := range modelDirs() {
		matches, _ := filepath.Glob(filepath.Join(dir, "*.onnx"))
		if len(matches) > 0 {
			sort.Strings(matches)
			return matches[0]
		}
	}
	return ""
}
