package clone

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/txtparrot/parrot/internal/voiceclone"
	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/audio/audiotest"
)

func TestSynthesize(t *testing.T) {
	var got voiceclone.Request
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/tts" {
			http.NotFound(w, r)
			return
		}
		_ = json.NewDecoder(r.Body).Decode(&got)
		_, _ = w.Write(audiotest.SilentWAV(time.Second, 24000))
	}))
	defer srv.Close()

	e, err := New(Config{URL: srv.URL, UserID: "alice"})
	if err != nil {
		t.Fatal(err)
	}

	a, err := e.Synthesize(context.Background(), " Hello there. ", tts.SynthesisOptions{Rate: 2})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if got.Text != "Hello there." || got.UserID != "alice" || got.Language != "EN" || got.Speed != 1 {
		t.Errorf("request = %+v", got)
	}
	// One second at 24 kHz, resampled and played twice as fast.
	if a.SampleRate != tts.SampleRate || a.Duration < 490*time.Millisecond || a.Duration > 510*time.Millisecond {
		t.Errorf("audio = %d Hz, %v", a.SampleRate, a.Duration)
	}

	if _, err := e.Synthesize(context.Background(), "Hi.", tts.SynthesisOptions{Voice: tts.Voice{ID: "bob"}}); err != nil {
		t.Fatal(err)
	}
	if got.UserID != "bob" {
		t.Errorf("voice override user = %q", got.UserID)
	}
}

func TestSynthesizeServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error": "Speaker alice not found. Please clone the speaker first."}`))
	}))
	defer srv.Close()

	e, _ := New(Config{URL: srv.URL, UserID: "alice"})
	_, err := e.Synthesize(context.Background(), "Hi.", tts.SynthesisOptions{})
	var apiErr *voiceclone.APIError
	if !errors.As(err, &apiErr) || !apiErr.NotFound() {
		t.Errorf("error = %v, want not found APIError", err)
	}
}

func TestNew(t *testing.T) {
	if _, err := New(Config{}); !errors.Is(err, tts.ErrEngineNotAvailable) {
		t.Errorf("New() without URL error = %v", err)
	}

	e, err := New(Config{URL: "http://localhost:5000", UserID: "alice"})
	if err != nil {
		t.Fatal(err)
	}
	voices, _ := e.Voices(context.Background())
	if len(voices) != 1 || voices[0].ID != "alice" {
		t.Errorf("voices = %+v", voices)
	}
	if _, err := e.Synthesize(context.Background(), "", tts.SynthesisOptions{}); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("empty text error = %v", err)
	}
}
