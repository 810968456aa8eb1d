package engines

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/charmbracelet/log"

	"github.com/txtparrot/parrot/tts"
)

// FallbackSynthesizer wraps a primary engine with automatic fallback to a
// secondary engine once the primary fails maxFailures times in a row.
type FallbackSynthesizer struct {
	primary       tts.Synthesizer
	fallback      tts.Synthesizer
	failures      int
	maxFailures   int
	usingFallback bool
	mu            sync.Mutex
}

// NewFallback creates a synthesizer that fails over from primary to fallback.
func NewFallback(primary, fallback tts.Synthesizer, maxFailures int) *FallbackSynthesizer {
	if maxFailures < 1 {
		maxFailures = 1
	}
	return &FallbackSynthesizer{
		primary:     primary,
		fallback:    fallback,
		maxFailures: maxFailures,
	}
}

// Name returns the active engine's name.
func (f *FallbackSynthesizer) Name() string {
	return f.active().Name()
}

// Synthesize uses the active engine. Empty text and cancellation are not
// counted as engine failures.
func (f *FallbackSynthesizer) Synthesize(ctx context.Context, text string, opts tts.SynthesisOptions) (*tts.Audio, error) {
	f.mu.Lock()
	if f.usingFallback {
		f.mu.Unlock()
		return f.fallback.Synthesize(ctx, text, opts)
	}
	f.mu.Unlock()

	audio, err := f.primary.Synthesize(ctx, text, opts)
	if err == nil {
		f.mu.Lock()
		if f.failures > 0 {
			log.Info("primary engine recovered", "failures", f.failures)
			f.failures = 0
		}
		f.mu.Unlock()
		return audio, nil
	}
	if errors.Is(err, tts.ErrEmptyText) || ctx.Err() != nil {
		return nil, err
	}

	f.mu.Lock()
	f.failures++
	failures := f.failures
	switched := failures >= f.maxFailures && !f.usingFallback
	if switched {
		f.usingFallback = true
	}
	f.mu.Unlock()

	log.Warn("primary engine failed", "attempt", failures, "max", f.maxFailures, "err", err)
	if !switched {
		return nil, err
	}

	log.Warn("switching to fallback engine", "primary", f.primary.Name(), "fallback", f.fallback.Name())
	audio, ferr := f.fallback.Synthesize(ctx, text, opts)
	if ferr != nil {
		return nil, fmt.Errorf("both engines failed: %w", ferr)
	}
	return audio, nil
}

// Voices returns the active engine's voices.
func (f *FallbackSynthesizer) Voices(ctx context.Context) ([]tts.Voice, error) {
	return f.active().Voices(ctx)
}

// Close closes both engines.
func (f *FallbackSynthesizer) Close() error {
	return errors.Join(f.primary.Close(), f.fallback.Close())
}

// Reset returns to the primary engine.
func (f *FallbackSynthesizer) Reset() {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.failures = 0
	f.usingFallback = false
	log.Info("reset to primary engine")
}

// Status describes which engine is active.
func (f *FallbackSynthesizer) Status() string {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.usingFallback {
		return fmt.Sprintf("Using fallback engine (primary failed %d times)", f.failures)
	}
	return fmt.Sprintf("Using primary engine (failures: %d/%d)", f.failures, f.maxFailures)
}

func (f *FallbackSynthesizer) active() tts.Synthesizer {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.usingFallback {
		return f.fallback
	}
	return f.primary
}
