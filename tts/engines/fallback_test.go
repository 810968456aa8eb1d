package engines

import (
	"context"
	"errors"
	"testing"

	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/engines/mock"
)

// TestFallbackSynthesizer tests the fallback mechanism
func TestFallbackSynthesizer(t *testing.T) {
	ctx := context.Background()
	opts := tts.SynthesisOptions{Rate: 1}

	primary := mock.New()
	primary.SetFailure(errors.New("primary engine failure"))
	fallback := mock.New()

	engine := NewFallback(primary, fallback, 2)

	// First attempt fails (count = 1).
	if _, err := engine.Synthesize(ctx, "test one", opts); err == nil {
		t.Error("Expected first attempt to fail")
	}

	// Second attempt switches to the fallback (count = 2).
	audio, err := engine.Synthesize(ctx, "test two", opts)
	if err != nil {
		t.Errorf("Expected second attempt to succeed with fallback: %v", err)
	}
	if audio == nil {
		t.Error("Expected audio to be generated")
	}

	if status := engine.Status(); status != "Using fallback engine (primary failed 2 times)" {
		t.Errorf("Unexpected status: %s", status)
	}

	if _, err := engine.Synthesize(ctx, "test three", opts); err != nil {
		t.Errorf("Expected subsequent calls to use fallback: %v", err)
	}
	if primary.CallCount() != 2 {
		t.Errorf("primary called %d times after switching, want 2", primary.CallCount())
	}
	if fallback.CallCount() != 2 {
		t.Errorf("fallback called %d times, want 2", fallback.CallCount())
	}
}

func TestFallbackRecoveryAndReset(t *testing.T) {
	ctx := context.Background()
	primary := mock.New()
	fallback := mock.New()
	engine := NewFallback(primary, fallback, 3)

	primary.SetFailure(errors.New("flaky"))
	_, _ = engine.Synthesize(ctx, "one", tts.SynthesisOptions{})
	primary.ClearFailure()
	if _, err := engine.Synthesize(ctx, "two", tts.SynthesisOptions{}); err != nil {
		t.Fatal(err)
	}
	if status := engine.Status(); status != "Using primary engine (failures: 0/3)" {
		t.Errorf("status after recovery = %q", status)
	}

	// Empty text is a caller error, not an engine failure.
	for i := 0; i < 5; i++ {
		_, _ = engine.Synthesize(ctx, "  ", tts.SynthesisOptions{})
	}
	if engine.Status() != "Using primary engine (failures: 0/3)" {
		t.Errorf("empty text counted as failure: %q", engine.Status())
	}

	primary.SetFailure(errors.New("down"))
	for i := 0; i < 3; i++ {
		_, _ = engine.Synthesize(ctx, "text", tts.SynthesisOptions{})
	}
	engine.Reset()
	if engine.Status() != "Using primary engine (failures: 0/3)" {
		t.Errorf("status after Reset = %q", engine.Status())
	}

	if err := engine.Close(); err != nil {
		t.Fatal(err)
	}
	if !primary.Closed() || !fallback.Closed() {
		t.Error("Close did not close both engines")
	}
}

func TestFallbackBothFail(t *testing.T) {
	primary := mock.New()
	primary.SetFailure(errors.New("primary down"))
	fallback := mock.New()
	fallback.SetFailure(errors.New("fallback down"))

	engine := NewFallback(primary, fallback, 1)
	_, err := engine.Synthesize(context.Background(), "hello", tts.SynthesisOptions{})
	if err == nil || err.Error() != "both engines failed: fallback down" {
		t.Errorf("error = %v", err)
	}
}
