// Package engines constructs speech synthesizers by name and provides
// wrappers that add caching and failover to any tts.Synthesizer.
package engines

import (
	"context"
	"fmt"
	"sort"

	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/engines/clone"
	"github.com/txtparrot/parrot/tts/engines/google"
	"github.com/txtparrot/parrot/tts/engines/gtts"
	"github.com/txtparrot/parrot/tts/engines/mock"
	"github.com/txtparrot/parrot/tts/engines/openai"
	"github.com/txtparrot/parrot/tts/engines/piper"
)

// Config holds per-engine settings. Only the selected engine's section is
// used.
type Config struct {
	Piper  piper.Config
	GTTS   gtts.Config
	Google google.Config
	Clone  clone.Config
	OpenAI openai.Config
}

var constructors = map[string]func(context.Context, Config) (tts.Synthesizer, error){
	"piper": func(_ context.Context, c Config) (tts.Synthesizer, error) {
		return piper.New(c.Piper)
	},
	"gtts": func(_ context.Context, c Config) (tts.Synthesizer, error) {
		return gtts.New(c.GTTS)
	},
	"google": func(ctx context.Context, c Config) (tts.Synthesizer, error) {
		return google.New(ctx, c.Google)
	},
	"clone": func(_ context.Context, c Config) (tts.Synthesizer, error) {
		return clone.New(c.Clone)
	},
	"openai": func(_ context.Context, c Config) (tts.Synthesizer, error) {
		return openai.New(c.OpenAI)
	},
	"mock": func(context.Context, Config) (tts.Synthesizer, error) {
		return mock.New(), nil
	},
}

// New creates the engine called name.
func New(ctx context.Context, name string, cfg Config) (tts.Synthesizer, error) {
	ctor, ok := constructors[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", tts.ErrUnknownEngine, name, Names())
	}
	synth, err := ctor(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("%s engine: %w", name, err)
	}
	return synth, nil
}

// Names returns the known engine names, sorted.
func Names() []string {
	names := make([]string, 0, len(constructors))
	for name := range constructors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
