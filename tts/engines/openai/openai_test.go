package openai

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/audio/audiotest"
)

type speechRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	Speed          float64 `json:"speed"`
	ResponseFormat string  `json:"response_format"`
}

func newServer(t *testing.T, got *speechRequest) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-key" {
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte(`{"error": {"message": "Incorrect API key provided"}}`))
			return
		}
		_ = json.NewDecoder(r.Body).Decode(got)
		_, _ = w.Write(audiotest.SilentWAV(time.Second, 24000))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestSynthesize(t *testing.T) {
	var got speechRequest
	srv := newServer(t, &got)

	e, err := New(Config{APIKey: "test-key", URL: srv.URL})
	if err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name      string
		rate      float64
		wantSpeed float64
		wantDur   time.Duration
	}{
		{"native speed", 2, 2, time.Second},
		{"resampled speed", 5, 1, 200 * time.Millisecond},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := e.Synthesize(context.Background(), "Hello.", tts.SynthesisOptions{Rate: tt.rate})
			if err != nil {
				t.Fatalf("Synthesize() error = %v", err)
			}
			if got.Speed != tt.wantSpeed {
				t.Errorf("speed = %v, want %v", got.Speed, tt.wantSpeed)
			}
			if diff := a.Duration - tt.wantDur; diff < -15*time.Millisecond || diff > 15*time.Millisecond {
				t.Errorf("duration = %v, want about %v", a.Duration, tt.wantDur)
			}
		})
	}

	if got.ResponseFormat != "wav" || got.Voice != "alloy" || got.Model != "gpt-4o-mini-tts" || got.Input != "Hello." {
		t.Errorf("request = %+v", got)
	}
}

func TestSynthesizeUnauthorized(t *testing.T) {
	var got speechRequest
	srv := newServer(t, &got)

	e, _ := New(Config{APIKey: "wrong", URL: srv.URL})
	_, err := e.Synthesize(context.Background(), "Hello.", tts.SynthesisOptions{})
	if err == nil || !strings.Contains(err.Error(), "401") {
		t.Errorf("error = %v, want status 401", err)
	}
}

func TestNew(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := New(Config{}); !errors.Is(err, tts.ErrEngineNotAvailable) {
		t.Errorf("New() without key error = %v", err)
	}

	t.Setenv("OPENAI_API_KEY", "env-key")
	e, err := New(Config{})
	if err != nil {
		t.Fatal(err)
	}
	if e.apiKey != "env-key" {
		t.Errorf("apiKey = %q, want key from environment", e.apiKey)
	}

	if _, err := e.Synthesize(context.Background(), strings.Repeat("a", MaxTextSize+1), tts.SynthesisOptions{}); err == nil {
		t.Error("expected error for oversized text")
	}
}
