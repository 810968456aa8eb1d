package audio

import (
	"encoding/binary"
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/txtparrot/parrot/tts"
)

// sine returns d of a 440 Hz tone in canonical PCM.
func sine(d time.Duration) []byte {
	n := int(d.Seconds() * tts.SampleRate)
	pcm := make([]byte, n*tts.BytesPerSample)
	for i := 0; i < n; i++ {
		v := math.Sin(2 * math.Pi * 440 * float64(i) / tts.SampleRate)
		binary.LittleEndian.PutUint16(pcm[i*2:], uint16(int16(v*0.5*math.MaxInt16)))
	}
	return pcm
}

func TestWAVRoundTrip(t *testing.T) {
	original := tts.NewAudio(sine(500 * time.Millisecond))

	path := filepath.Join(t.TempDir(), "tone.wav")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	if err := EncodeWAV(f, original); err != nil {
		t.Fatalf("EncodeWAV() error = %v", err)
	}
	f.Close()

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if kind, err := Sniff(data); err != nil || kind != "wav" {
		t.Fatalf("Sniff() = %q, %v", kind, err)
	}

	decoded, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if decoded.SampleRate != tts.SampleRate || decoded.Channels != 1 {
		t.Errorf("format = %d Hz / %d ch", decoded.SampleRate, decoded.Channels)
	}
	if diff := decoded.Duration - original.Duration; diff < -10*time.Millisecond || diff > 10*time.Millisecond {
		t.Errorf("duration = %v, want about %v", decoded.Duration, original.Duration)
	}
}

func TestChangeRate(t *testing.T) {
	original := tts.NewAudio(sine(time.Second))

	tests := []struct {
		rate float64
		want time.Duration
	}{
		{2, 500 * time.Millisecond},
		{0.5, 2 * time.Second},
	}
	for _, tt := range tests {
		got, err := ChangeRate(original, tt.rate)
		if err != nil {
			t.Fatalf("ChangeRate(%v) error = %v", tt.rate, err)
		}
		if diff := got.Duration - tt.want; diff < -20*time.Millisecond || diff > 20*time.Millisecond {
			t.Errorf("ChangeRate(%v) duration = %v, want about %v", tt.rate, got.Duration, tt.want)
		}
	}

	same, _ := ChangeRate(original, 1)
	if same != original {
		t.Error("rate 1 should return the input unchanged")
	}
	if _, err := ChangeRate(original, 50); !errors.Is(err, tts.ErrInvalidRate) {
		t.Errorf("ChangeRate(50) error = %v", err)
	}
}

func TestSniff(t *testing.T) {
	tests := []struct {
		data []byte
		want string
	}{
		{[]byte("RIFF\x00\x00\x00\x00WAVEfmt "), "wav"},
		{[]byte("ID3\x04\x00"), "mp3"},
		{[]byte{0xFF, 0xFB, 0x90, 0x00}, "mp3"},
	}
	for _, tt := range tests {
		if got, err := Sniff(tt.data); err != nil || got != tt.want {
			t.Errorf("Sniff(%q) = %q, %v; want %q", tt.data, got, err, tt.want)
		}
	}
	if _, err := Sniff([]byte("hello")); err == nil {
		t.Error("expected error for unknown data")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		audio   *tts.Audio
		wantErr bool
	}{
		{"nil", nil, true},
		{"empty", tts.NewAudio(nil), true},
		{"odd length", tts.NewAudio([]byte{1, 2, 3}), true},
		{"wrong rate", &tts.Audio{Data: []byte{0, 0}, SampleRate: 44100}, true},
		{"ok", tts.NewAudio([]byte{0, 0, 1, 1}), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := validate(tt.audio); (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestMockPlayerTiming(t *testing.T) {
	mp := NewMockPlayer()
	mp.SetSpeedMultiplier(10)

	if err := mp.Play(tts.NewAudio(sine(200 * time.Millisecond))); err != nil {
		t.Fatal(err)
	}
	if !mp.IsPlaying() {
		t.Fatal("should be playing")
	}

	if err := mp.Pause(); err != nil {
		t.Fatal(err)
	}
	pos := mp.Position()
	time.Sleep(30 * time.Millisecond)
	if mp.Position() != pos {
		t.Error("position moved while paused")
	}
	if !mp.IsPlaying() {
		t.Error("paused player still counts as playing")
	}

	if err := mp.Resume(); err != nil {
		t.Fatal(err)
	}
	deadline := time.Now().Add(time.Second)
	for mp.IsPlaying() && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	if mp.IsPlaying() {
		t.Fatal("playback did not finish")
	}

	want := []string{"play", "pause", "resume", "complete"}
	got := mp.EventTypes()
	if len(got) != len(want) {
		t.Fatalf("history = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("history[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMockPlayerErrors(t *testing.T) {
	mp := NewMockPlayer()

	if err := mp.Pause(); !errors.Is(err, ErrNotPlaying) {
		t.Errorf("Pause() error = %v", err)
	}
	if err := mp.Resume(); !errors.Is(err, ErrNotPaused) {
		t.Errorf("Resume() error = %v", err)
	}
	if err := mp.Play(nil); !errors.Is(err, ErrNilAudio) {
		t.Errorf("Play(nil) error = %v", err)
	}
	if err := mp.Stop(); err != nil {
		t.Errorf("Stop() when idle error = %v", err)
	}
}

func TestBuffer(t *testing.T) {
	b := NewBuffer(BufferConfig{Capacity: 2})
	a1 := tts.NewAudio([]byte{1, 0})
	a2 := tts.NewAudio([]byte{2, 0})
	a3 := tts.NewAudio([]byte{3, 0})

	_ = b.Add("one", a1)
	_ = b.Add("two", a2)
	time.Sleep(time.Millisecond)
	if got, ok := b.Get("one"); !ok || got != a1 {
		t.Fatal("expected hit for one")
	}

	// "two" is now least recently used.
	_ = b.Add("three", a3)
	if b.Has("two") {
		t.Error("two should have been dropped")
	}
	if !b.Has("one") || !b.Has("three") {
		t.Error("one and three should remain")
	}
	if _, ok := b.Get("missing"); ok {
		t.Error("unexpected hit")
	}

	stats := b.GetStats()
	if stats.TotalAdded != 3 || stats.TotalDropped != 1 || stats.TotalHits != 1 || stats.TotalMisses != 1 {
		t.Errorf("stats = %v", stats)
	}
	if stats.PeakSize != 2 {
		t.Errorf("peak = %d, want 2", stats.PeakSize)
	}

	b.Clear()
	if b.Size() != 0 {
		t.Errorf("Size() after Clear = %d", b.Size())
	}
	_ = b.Close()
	if err := b.Add("x", a1); !errors.Is(err, ErrBufferClosed) {
		t.Errorf("Add() after Close error = %v", err)
	}
}

func TestBufferExpiry(t *testing.T) {
	b := NewBuffer(BufferConfig{Capacity: 4, MaxItemAge: 10 * time.Millisecond})
	_ = b.Add("a", tts.NewAudio([]byte{0, 0}))
	time.Sleep(20 * time.Millisecond)

	if _, ok := b.Get("a"); ok {
		t.Error("expired item returned")
	}

	_ = b.Add("b", tts.NewAudio([]byte{0, 0}))
	time.Sleep(20 * time.Millisecond)
	if n := b.EvictOldItems(5 * time.Millisecond); n != 1 {
		t.Errorf("EvictOldItems() = %d, want 1", n)
	}
}
