package google

import (
	"context"
	"errors"
	"testing"
	"time"

	texttospeechpb "cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"github.com/googleapis/gax-go/v2"

	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/audio/audiotest"
)

type fakeClient struct {
	wav    []byte
	err    error
	last   *texttospeechpb.SynthesizeSpeechRequest
	closed bool
}

func (f *fakeClient) SynthesizeSpeech(_ context.Context, req *texttospeechpb.SynthesizeSpeechRequest, _ ...gax.CallOption) (*texttospeechpb.SynthesizeSpeechResponse, error) {
	f.last = req
	if f.err != nil {
		return nil, f.err
	}
	return &texttospeechpb.SynthesizeSpeechResponse{AudioContent: f.wav}, nil
}

func (f *fakeClient) ListVoices(_ context.Context, req *texttospeechpb.ListVoicesRequest, _ ...gax.CallOption) (*texttospeechpb.ListVoicesResponse, error) {
	return &texttospeechpb.ListVoicesResponse{Voices: []*texttospeechpb.Voice{
		{Name: "en-US-Chirp3-HD-Leda", LanguageCodes: []string{"en-US"}, SsmlGender: texttospeechpb.SsmlVoiceGender_FEMALE},
		{Name: "en-US-Chirp3-HD-Charon", LanguageCodes: []string{"en-US"}, SsmlGender: texttospeechpb.SsmlVoiceGender_MALE},
	}}, nil
}

func (f *fakeClient) Close() error {
	f.closed = true
	return nil
}

func silentWAV(t *testing.T) []byte {
	t.Helper()
	return audiotest.SilentWAV(time.Second, tts.SampleRate)
}

func TestSynthesizeNativeRate(t *testing.T) {
	fc := &fakeClient{wav: silentWAV(t)}
	e := newEngine(fc, Config{})

	a, err := e.Synthesize(context.Background(), "Hello.", tts.SynthesisOptions{Rate: 1.5})
	if err != nil {
		t.Fatalf("Synthesize() error = %v", err)
	}
	if a.Duration < 990*time.Millisecond || a.Duration > 1010*time.Millisecond {
		t.Errorf("duration = %v, audio should not be resampled", a.Duration)
	}

	cfg := fc.last.AudioConfig
	if cfg.AudioEncoding != texttospeechpb.AudioEncoding_LINEAR16 || cfg.SampleRateHertz != tts.SampleRate {
		t.Errorf("audio config = %v", cfg)
	}
	if cfg.SpeakingRate != 1.5 {
		t.Errorf("speaking rate = %v, want 1.5", cfg.SpeakingRate)
	}
	if fc.last.Voice.Name != DefaultVoice || fc.last.Voice.LanguageCode != "en-US" {
		t.Errorf("voice = %v", fc.last.Voice)
	}
}

func TestSynthesizeResamplesOutsideNativeRange(t *testing.T) {
	fc := &fakeClient{wav: silentWAV(t)}
	e := newEngine(fc, Config{})

	a, err := e.Synthesize(context.Background(), "Hello.", tts.SynthesisOptions{Rate: 5})
	if err != nil {
		t.Fatal(err)
	}
	if fc.last.AudioConfig.SpeakingRate != 0 {
		t.Errorf("speaking rate = %v, want unset", fc.last.AudioConfig.SpeakingRate)
	}
	if a.Duration < 190*time.Millisecond || a.Duration > 210*time.Millisecond {
		t.Errorf("duration = %v, want about 200ms", a.Duration)
	}
}

func TestSynthesizeVoiceOverride(t *testing.T) {
	fc := &fakeClient{wav: silentWAV(t)}
	e := newEngine(fc, Config{LanguageCode: "en-US"})

	voice := tts.Voice{ID: "de-DE-Wavenet-A", Language: "de-DE"}
	if _, err := e.Synthesize(context.Background(), "Hallo.", tts.SynthesisOptions{Voice: voice}); err != nil {
		t.Fatal(err)
	}
	if fc.last.Voice.Name != "de-DE-Wavenet-A" || fc.last.Voice.LanguageCode != "de-DE" {
		t.Errorf("voice = %v", fc.last.Voice)
	}
}

func TestSynthesizeErrors(t *testing.T) {
	boom := errors.New("permission denied")
	e := newEngine(&fakeClient{err: boom}, Config{})

	if _, err := e.Synthesize(context.Background(), "", tts.SynthesisOptions{}); !errors.Is(err, tts.ErrEmptyText) {
		t.Errorf("empty text error = %v", err)
	}
	if _, err := e.Synthesize(context.Background(), "Hi.", tts.SynthesisOptions{}); !errors.Is(err, boom) {
		t.Errorf("API error = %v, want wrapped %v", err, boom)
	}
}

func TestVoicesAndClose(t *testing.T) {
	fc := &fakeClient{}
	e := newEngine(fc, Config{})

	voices, err := e.Voices(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(voices) != 2 || voices[0].Name != "en-US-Chirp3-HD-Charon" || voices[0].Gender != "male" {
		t.Errorf("voices = %+v", voices)
	}

	if err := e.Close(); err != nil || !fc.closed {
		t.Errorf("Close() = %v, closed = %v", err, fc.closed)
	}
}
