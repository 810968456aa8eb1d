package engines

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/txtparrot/parrot/internal/cache"
	"github.com/txtparrot/parrot/tts"
)

// CachedSynthesizer memoizes synthesized PCM in a cache.Manager, keyed by
// engine, voice, rate and text.
type CachedSynthesizer struct {
	tts.Synthesizer
	cache *cache.Manager
}

// NewCached wraps synth with cache c. A nil cache disables caching.
func NewCached(synth tts.Synthesizer, c *cache.Manager) tts.Synthesizer {
	if c == nil {
		return synth
	}
	return &CachedSynthesizer{Synthesizer: synth, cache: c}
}

// Synthesize returns cached audio when available.
func (s *CachedSynthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesisOptions) (*tts.Audio, error) {
	key := CacheKey(s.Name(), text, opts)
	if pcm, ok := s.cache.Get(key); ok {
		return tts.NewAudio(pcm), nil
	}

	audio, err := s.Synthesizer.Synthesize(ctx, text, opts)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Put(key, audio.Data); err != nil {
		log.Warn("failed to cache audio", "err", err)
	}
	return audio, nil
}

// Cached reports whether text is already cached for opts.
func (s *CachedSynthesizer) Cached(text string, opts tts.SynthesisOptions) bool {
	return s.cache.Contains(CacheKey(s.Name(), text, opts))
}

// CacheKey derives the cache key for one synthesis request.
func CacheKey(engine, text string, opts tts.SynthesisOptions) string {
	rate := opts.Rate
	if rate <= 0 {
		rate = tts.DefaultRate
	}
	return cache.Key(engine, opts.Voice.ID, fmt.Sprintf("%.2f", rate), strings.TrimSpace(text))
}
