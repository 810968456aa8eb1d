package main

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/viper"

	"github.com/txtparrot/parrot/internal/cache"
	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/engines"
	"github.com/txtparrot/parrot/tts/engines/clone"
	"github.com/txtparrot/parrot/tts/engines/google"
	"github.com/txtparrot/parrot/tts/engines/gtts"
	"github.com/txtparrot/parrot/tts/engines/openai"
	"github.com/txtparrot/parrot/tts/engines/piper"
	"github.com/txtparrot/parrot/utils"
)

// Settings is the effective configuration, merged by viper from the config
// file, PARROT_* environment variables and flags.
type Settings struct {
	Engine        string  `mapstructure:"engine"         yaml:"engine"`
	Fallback      string  `mapstructure:"fallback"       yaml:"fallback"`
	FallbackAfter int     `mapstructure:"fallback_after" yaml:"fallback_after"`
	Voice         string  `mapstructure:"voice"          yaml:"voice"`
	Rate          float64 `mapstructure:"rate"           yaml:"rate"`
	Skip          int     `mapstructure:"skip"           yaml:"skip"`
	Lookahead     int     `mapstructure:"lookahead"      yaml:"lookahead"`
	Width         uint    `mapstructure:"width"          yaml:"width"`
	Mouse         bool    `mapstructure:"mouse"          yaml:"mouse"`

	Cache  CacheSettings  `mapstructure:"cache"  yaml:"cache"`
	Piper  PiperSettings  `mapstructure:"piper"  yaml:"piper"`
	GTTS   GTTSSettings   `mapstructure:"gtts"   yaml:"gtts"`
	Google GoogleSettings `mapstructure:"google" yaml:"google"`
	Clone  CloneSettings  `mapstructure:"clone"  yaml:"clone"`
	OpenAI OpenAISettings `mapstructure:"openai" yaml:"openai"`
}

// CacheSettings configures the audio cache. Sizes are in megabytes.
type CacheSettings struct {
	Enabled    bool          `mapstructure:"enabled"     yaml:"enabled"`
	Dir        string        `mapstructure:"dir"         yaml:"dir"`
	MaxSize    int64         `mapstructure:"max_size"    yaml:"max_size"`
	MemorySize int64         `mapstructure:"memory_size" yaml:"memory_size"`
	TTL        time.Duration `mapstructure:"ttl"         yaml:"ttl"`
}

// PiperSettings contains Piper TTS engine specific settings.
type PiperSettings struct {
	Binary  string        `mapstructure:"binary"  yaml:"binary"`
	Model   string        `mapstructure:"model"   yaml:"model"`
	Timeout time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// GTTSSettings contains gTTS engine specific settings.
type GTTSSettings struct {
	Binary            string `mapstructure:"binary"              yaml:"binary"`
	Language          string `mapstructure:"language"            yaml:"language"`
	TLD               string `mapstructure:"tld"                 yaml:"tld"`
	RequestsPerMinute int    `mapstructure:"requests_per_minute" yaml:"requests_per_minute"`
}

// GoogleSettings contains Google Cloud TTS specific settings. Credentials
// come from GOOGLE_APPLICATION_CREDENTIALS.
type GoogleSettings struct {
	LanguageCode string `mapstructure:"language_code" yaml:"language_code"`
	Voice        string `mapstructure:"voice"         yaml:"voice"`
}

// CloneSettings points at a voice-clone server.
type CloneSettings struct {
	URL      string `mapstructure:"url"      yaml:"url"`
	UserID   string `mapstructure:"user_id"  yaml:"user_id"`
	Language string `mapstructure:"language" yaml:"language"`
}

// OpenAISettings contains OpenAI speech API settings.
type OpenAISettings struct {
	Model  string `mapstructure:"model"   yaml:"model"`
	Voice  string `mapstructure:"voice"   yaml:"voice"`
	APIKey string `mapstructure:"api_key" yaml:"api_key"`
	URL    string `mapstructure:"url"     yaml:"url"`
}

// envKeyReplacer maps nested keys to environment variables, e.g.
// cache.dir to PARROT_CACHE_DIR.
var envKeyReplacer = strings.NewReplacer(".", "_")

func setDefaults(v *viper.Viper) {
	v.SetDefault("engine", "piper")
	v.SetDefault("fallback", "")
	v.SetDefault("fallback_after", 3)
	v.SetDefault("voice", "")
	v.SetDefault("rate", tts.DefaultRate)
	v.SetDefault("skip", 1)
	v.SetDefault("lookahead", 2)
	v.SetDefault("width", 100)
	v.SetDefault("mouse", false)

	v.SetDefault("cache.enabled", true)
	v.SetDefault("cache.dir", "")
	v.SetDefault("cache.max_size", 512)
	v.SetDefault("cache.memory_size", 64)
	v.SetDefault("cache.ttl", 30*24*time.Hour)

	v.SetDefault("piper.binary", "")
	v.SetDefault("piper.model", "")
	v.SetDefault("piper.timeout", 30*time.Second)

	v.SetDefault("gtts.binary", "gtts-cli")
	v.SetDefault("gtts.language", "en")
	v.SetDefault("gtts.tld", "com")
	v.SetDefault("gtts.requests_per_minute", 50)

	v.SetDefault("google.language_code", "en-US")
	v.SetDefault("google.voice", google.DefaultVoice)

	v.SetDefault("clone.url", "")
	v.SetDefault("clone.user_id", "")
	v.SetDefault("clone.language", "EN")

	v.SetDefault("openai.model", "gpt-4o-mini-tts")
	v.SetDefault("openai.voice", "alloy")
	v.SetDefault("openai.api_key", "")
	v.SetDefault("openai.url", "")
}

// loadSettings reads the effective settings from v and validates them.
func loadSettings(v *viper.Viper) (Settings, error) {
	var s Settings
	if err := v.Unmarshal(&s); err != nil {
		return s, fmt.Errorf("unable to parse configuration: %w", err)
	}

	s.Engine = strings.ToLower(strings.TrimSpace(s.Engine))
	s.Fallback = strings.ToLower(strings.TrimSpace(s.Fallback))
	s.Cache.Dir = utils.ExpandPath(s.Cache.Dir)
	s.Piper.Binary = utils.ExpandPath(s.Piper.Binary)
	s.Piper.Model = utils.ExpandPath(s.Piper.Model)
	s.GTTS.Binary = utils.ExpandPath(s.GTTS.Binary)

	if s.Cache.Dir == "" {
		dir, err := defaultCacheDir()
		if err != nil {
			return s, err
		}
		s.Cache.Dir = dir
	}

	return s, s.Validate()
}

// Validate checks that the settings are usable.
func (s Settings) Validate() error {
	var errs []error

	names := engines.Names()
	if !contains(names, s.Engine) {
		errs = append(errs, fmt.Errorf("invalid engine %q: must be one of %v", s.Engine, names))
	}
	if s.Fallback != "" && !contains(names, s.Fallback) {
		errs = append(errs, fmt.Errorf("invalid fallback engine %q: must be one of %v", s.Fallback, names))
	}
	if s.Fallback != "" && s.Fallback == s.Engine {
		errs = append(errs, errors.New("fallback engine must differ from the engine"))
	}
	if !tts.ValidRate(s.Rate) {
		errs = append(errs, fmt.Errorf("%w, got %.2f", tts.ErrInvalidRate, s.Rate))
	}
	if s.Skip < 1 {
		errs = append(errs, fmt.Errorf("%w, got %d", tts.ErrInvalidSkip, s.Skip))
	}
	if s.Lookahead < 0 || s.Lookahead > 10 {
		errs = append(errs, fmt.Errorf("lookahead must be between 0 and 10, got %d", s.Lookahead))
	}
	if s.Cache.MaxSize < 1 || s.Cache.MaxSize > 100000 {
		errs = append(errs, fmt.Errorf("cache max_size must be between 1 and 100000 MB, got %d", s.Cache.MaxSize))
	}
	if s.Cache.MemorySize < 0 || s.Cache.MemorySize > s.Cache.MaxSize {
		errs = append(errs, fmt.Errorf("cache memory_size must be between 0 and max_size, got %d", s.Cache.MemorySize))
	}
	if l := len(s.GTTS.Language); l < 2 || l > 5 {
		errs = append(errs, fmt.Errorf("gtts language code must be 2-5 characters, got %q", s.GTTS.Language))
	}
	if s.GTTS.RequestsPerMinute < 1 {
		errs = append(errs, fmt.Errorf("gtts requests_per_minute must be positive, got %d", s.GTTS.RequestsPerMinute))
	}
	return errors.Join(errs...)
}

// EngineConfig maps the settings onto engine constructors.
func (s Settings) EngineConfig() engines.Config {
	return engines.Config{
		Piper: piper.Config{
			Binary:  s.Piper.Binary,
			Model:   s.Piper.Model,
			Timeout: s.Piper.Timeout,
		},
		GTTS: gtts.Config{
			Binary:            s.GTTS.Binary,
			Language:          s.GTTS.Language,
			TLD:               s.GTTS.TLD,
			RequestsPerMinute: s.GTTS.RequestsPerMinute,
		},
		Google: google.Config{
			LanguageCode: s.Google.LanguageCode,
			Voice:        s.Google.Voice,
		},
		Clone: clone.Config{
			URL:      s.Clone.URL,
			UserID:   s.Clone.UserID,
			Language: s.Clone.Language,
		},
		OpenAI: openai.Config{
			APIKey: s.OpenAI.APIKey,
			Model:  s.OpenAI.Model,
			Voice:  s.OpenAI.Voice,
			URL:    s.OpenAI.URL,
		},
	}
}

// CacheConfig returns the audio cache configuration.
func (s Settings) CacheConfig() cache.Config {
	cfg := cache.DefaultConfig(s.Cache.Dir)
	cfg.DiskCapacity = s.Cache.MaxSize * 1024 * 1024
	cfg.MemoryCapacity = s.Cache.MemorySize * 1024 * 1024
	if s.Cache.TTL > 0 {
		cfg.TTL = s.Cache.TTL
	}
	return cfg
}

// ControllerConfig returns the initial playback settings.
func (s Settings) ControllerConfig() tts.ControllerConfig {
	cfg := tts.DefaultControllerConfig()
	cfg.Rate = s.Rate
	cfg.Skip = s.Skip
	cfg.Lookahead = s.Lookahead
	if s.Voice != "" {
		cfg.Voice = tts.Voice{ID: s.Voice}
	}
	return cfg
}

// synthesizer is a ready engine plus what has to be released after use.
type synthesizer struct {
	tts.Synthesizer
	cache *cache.Manager
}

func (s *synthesizer) Close() error {
	err := s.Synthesizer.Close()
	if s.cache != nil {
		err = errors.Join(err, s.cache.Close())
	}
	return err
}

// openSynthesizer creates the configured engine, wrapped with the fallback
// engine and the audio cache when they are enabled.
func openSynthesizer(ctx context.Context, s Settings) (*synthesizer, error) {
	cfg := s.EngineConfig()
	synth, err := engines.New(ctx, s.Engine, cfg)
	if err != nil {
		return nil, err
	}

	if s.Fallback != "" {
		fb, err := engines.New(ctx, s.Fallback, cfg)
		if err != nil {
			log.Warn("fallback engine unavailable", "engine", s.Fallback, "err", err)
		} else {
			synth = engines.NewFallback(synth, fb, s.FallbackAfter)
		}
	}

	out := &synthesizer{Synthesizer: synth}
	if s.Cache.Enabled {
		m, err := cache.NewManager(s.CacheConfig())
		if err != nil {
			log.Warn("audio cache unavailable", "dir", s.Cache.Dir, "err", err)
		} else {
			out.cache = m
			out.Synthesizer = engines.NewCached(synth, m)
		}
	}
	return out, nil
}

func defaultCacheDir() (string, error) {
	dir, err := gap.NewScope(gap.User, "parrot").CacheDir()
	if err != nil {
		return "", fmt.Errorf("unable to find cache directory: %w", err)
	}
	return filepath.Join(dir, "audio"), nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
