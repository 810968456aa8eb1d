package tts_test

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/engines/mock"
)

func segments(texts ...string) []tts.Sentence {
	out := make([]tts.Sentence, len(texts))
	for i, t := range texts {
		out[i] = tts.Sentence{Index: i, Text: t}
	}
	return out
}

func newTestController(t *testing.T, texts ...string) (*tts.Controller, *mock.Speaker) {
	t.Helper()
	speaker := mock.NewSpeaker()
	c := tts.NewController(speaker, tts.DefaultControllerConfig())
	if len(texts) > 0 {
		if err := c.LoadSegments(segments(texts...)); err != nil {
			t.Fatalf("LoadSegments() error = %v", err)
		}
	}
	return c, speaker
}

// pump delivers every queued speaker event to the controller.
func pump(c *tts.Controller, s *mock.Speaker) {
	for {
		events := s.Drain()
		if len(events) == 0 {
			return
		}
		for _, ev := range events {
			c.HandleEvent(ev)
		}
	}
}

func complete(t *testing.T, c *tts.Controller, s *mock.Speaker) {
	t.Helper()
	if _, err := s.Complete(); err != nil {
		t.Fatalf("Complete() error = %v", err)
	}
	pump(c, s)
}

func TestReadsToEndOfDocument(t *testing.T) {
	c, s := newTestController(t, "A.", "B.", "C.")

	var mu sync.Mutex
	var statuses []tts.Status
	c.OnStatus(func(st tts.Status) {
		mu.Lock()
		defer mu.Unlock()
		statuses = append(statuses, st)
	})

	if err := c.Play(); err != nil {
		t.Fatalf("Play() error = %v", err)
	}
	for i := 0; i < 3; i++ {
		complete(t, c, s)
	}

	spoken := s.Spoken()
	if len(spoken) != 3 {
		t.Fatalf("spoke %d utterances, want 3", len(spoken))
	}
	for i, want := range []string{"A.", "B.", "C."} {
		if spoken[i].Text != want {
			t.Errorf("utterance %d = %q, want %q", i, spoken[i].Text, want)
		}
		if spoken[i].Index != i {
			t.Errorf("utterance %d index = %d", i, spoken[i].Index)
		}
	}

	snap := c.Snapshot()
	if snap.Intent {
		t.Error("intent should be false at end of document")
	}
	if snap.Cursor != 0 {
		t.Errorf("cursor = %d, want 0", snap.Cursor)
	}
	if snap.Status.Kind != tts.StatusEnd || snap.Status.Message != tts.MsgEndOfDocument {
		t.Errorf("status = %+v, want end of document", snap.Status)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(statuses) == 0 || statuses[len(statuses)-1].Message != tts.MsgEndOfDocument {
		t.Errorf("listener did not see end of document: %+v", statuses)
	}
}

func TestUtteranceIDsAreUnique(t *testing.T) {
	c, s := newTestController(t, "A.", "B.", "C.")

	_ = c.Play()
	_ = c.Forward()
	_ = c.Backward()
	complete(t, c, s)

	seen := map[string]bool{}
	for _, u := range s.Spoken() {
		if u.ID == "" {
			t.Fatal("empty utterance ID")
		}
		if seen[u.ID] {
			t.Fatalf("duplicate utterance ID %s", u.ID)
		}
		seen[u.ID] = true
	}
}

func TestPlayTogglesPauseAndResume(t *testing.T) {
	c, s := newTestController(t, "A.", "B.")

	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	if got := s.State(); got != tts.SpeakerPaused {
		t.Fatalf("speaker state = %v, want paused", got)
	}
	if c.Snapshot().Intent {
		t.Error("intent should be false while paused")
	}

	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	if got := s.State(); got != tts.SpeakerSpeaking {
		t.Fatalf("speaker state = %v, want speaking", got)
	}
	if !c.Snapshot().Intent {
		t.Error("intent should be true after resume")
	}
	if n := s.Count("speak"); n != 1 {
		t.Errorf("resume submitted new utterances: speak count = %d", n)
	}
	if n := s.Count("resume"); n != 1 {
		t.Errorf("resume count = %d, want 1", n)
	}
}

func TestPauseClearsIntent(t *testing.T) {
	c, s := newTestController(t, "A.", "B.")

	_ = c.Play()
	if err := c.Pause(); err != nil {
		t.Fatal(err)
	}
	if c.Snapshot().Intent {
		t.Error("intent should be false after pause")
	}

	// A completion arriving after the pause must not advance.
	complete(t, c, s)
	if n := s.Count("speak"); n != 1 {
		t.Errorf("speak count = %d, want 1", n)
	}
	if c.Snapshot().Cursor != 0 {
		t.Errorf("cursor = %d, want 0", c.Snapshot().Cursor)
	}
}

func TestDoneWhileSpeakerPausedDoesNotAdvance(t *testing.T) {
	c, s := newTestController(t, "A.", "B.")

	_ = c.Play()
	u, _ := s.Current()
	s.SetState(tts.SpeakerPaused)
	c.HandleEvent(tts.Event{UtteranceID: u.ID, Kind: tts.EventDone})

	if n := s.Count("speak"); n != 1 {
		t.Errorf("speak count = %d, want 1", n)
	}
	if c.Snapshot().Intent {
		t.Error("intent should be false")
	}
}

func TestSetRateRestartsCurrentSegment(t *testing.T) {
	c, s := newTestController(t, "A.", "B.", "C.", "D.")

	_ = c.Play()
	complete(t, c, s)
	complete(t, c, s)
	if got := c.Snapshot().Cursor; got != 2 {
		t.Fatalf("cursor = %d, want 2", got)
	}

	if err := c.SetRate(1.5); err != nil {
		t.Fatalf("SetRate() error = %v", err)
	}
	pump(c, s)

	spoken := s.Spoken()
	last := spoken[len(spoken)-1]
	if last.Index != 2 || last.Rate != 1.5 {
		t.Errorf("last utterance = index %d rate %v, want index 2 rate 1.5", last.Index, last.Rate)
	}
	if len(spoken) != 4 {
		t.Errorf("spoke %d utterances, want 4", len(spoken))
	}

	snap := c.Snapshot()
	if !snap.Intent || snap.Cursor != 2 || snap.Rate != 1.5 {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestSetRateWhileIdleDoesNotSpeak(t *testing.T) {
	c, s := newTestController(t, "A.", "B.")

	if err := c.SetRate(2); err != nil {
		t.Fatal(err)
	}
	if n := s.Count("speak"); n != 0 {
		t.Errorf("speak count = %d, want 0", n)
	}

	_ = c.Play()
	if u, _ := s.Current(); u.Rate != 2 {
		t.Errorf("utterance rate = %v, want 2", u.Rate)
	}
}

func TestSetRateValidation(t *testing.T) {
	c, _ := newTestController(t, "A.")

	tests := []struct {
		rate    float64
		wantErr bool
	}{
		{0.1, false},
		{1, false},
		{10, false},
		{0.05, true},
		{0, true},
		{-1, true},
		{10.5, true},
		{math.NaN(), true},
	}
	for _, tt := range tests {
		err := c.SetRate(tt.rate)
		if (err != nil) != tt.wantErr {
			t.Errorf("SetRate(%v) error = %v, wantErr %v", tt.rate, err, tt.wantErr)
		}
		if tt.wantErr && !errors.Is(err, tts.ErrInvalidRate) {
			t.Errorf("SetRate(%v) error = %v, want ErrInvalidRate", tt.rate, err)
		}
	}
}

func TestSetVoiceRestartsCurrentSegment(t *testing.T) {
	c, s := newTestController(t, "A.", "B.")
	voice := tts.Voice{ID: "v2", Name: "Second"}

	_ = c.Play()
	if err := c.SetVoice(voice); err != nil {
		t.Fatal(err)
	}
	pump(c, s)

	u, ok := s.Current()
	if !ok || u.Voice != voice || u.Index != 0 {
		t.Errorf("current utterance = %+v", u)
	}
}

func TestEmptyDocument(t *testing.T) {
	speaker := mock.NewSpeaker()
	c := tts.NewController(speaker, tts.DefaultControllerConfig())

	err := c.LoadSegments(nil)
	if !errors.Is(err, tts.ErrEmptyInput) {
		t.Fatalf("LoadSegments(nil) error = %v, want ErrEmptyInput", err)
	}
	if c.ControlsEnabled() {
		t.Error("controls should be disabled for an empty document")
	}
	if got := c.Status().Message; got != tts.MsgNoReadableText {
		t.Errorf("status = %q, want %q", got, tts.MsgNoReadableText)
	}

	for name, op := range map[string]func() error{
		"Play":     c.Play,
		"Forward":  c.Forward,
		"Backward": c.Backward,
		"Stop":     c.Stop,
	} {
		if err := op(); !errors.Is(err, tts.ErrEmptyInput) {
			t.Errorf("%s() error = %v, want ErrEmptyInput", name, err)
		}
	}
	if n := speaker.Count("speak"); n != 0 {
		t.Errorf("speak count = %d, want 0", n)
	}
}

func TestForwardBackwardClamp(t *testing.T) {
	c, s := newTestController(t, "A.", "B.", "C.")

	steps := []struct {
		op   string
		want int
	}{
		{"forward", 1},
		{"forward", 2},
		{"forward", 2},
		{"backward", 1},
		{"backward", 0},
		{"backward", 0},
	}
	for i, step := range steps {
		var err error
		if step.op == "forward" {
			err = c.Forward()
		} else {
			err = c.Backward()
		}
		if err != nil {
			t.Fatalf("step %d: %s error = %v", i, step.op, err)
		}
		pump(c, s)
		if got := c.Snapshot().Cursor; got != step.want {
			t.Errorf("step %d: cursor = %d, want %d", i, got, step.want)
		}
		if u, _ := s.Current(); u.Index != step.want {
			t.Errorf("step %d: speaking index %d, want %d", i, u.Index, step.want)
		}
	}
}

func TestSkipAmount(t *testing.T) {
	c, s := newTestController(t, "A.", "B.", "C.", "D.", "E.")

	if err := c.SetSkipAmount(0); !errors.Is(err, tts.ErrInvalidSkip) {
		t.Errorf("SetSkipAmount(0) error = %v, want ErrInvalidSkip", err)
	}
	if err := c.SetSkipAmount(3); err != nil {
		t.Fatal(err)
	}

	_ = c.Forward()
	pump(c, s)
	if got := c.Snapshot().Cursor; got != 3 {
		t.Errorf("cursor = %d, want 3", got)
	}
	_ = c.Forward()
	if got := c.Snapshot().Cursor; got != 4 {
		t.Errorf("cursor = %d, want 4", got)
	}
	_ = c.Backward()
	if got := c.Snapshot().Cursor; got != 1 {
		t.Errorf("cursor = %d, want 1", got)
	}
}

func TestStopRewinds(t *testing.T) {
	c, s := newTestController(t, "A.", "B.", "C.")

	_ = c.Play()
	complete(t, c, s)
	if err := c.Stop(); err != nil {
		t.Fatal(err)
	}
	pump(c, s)

	snap := c.Snapshot()
	if snap.Intent || snap.Cursor != 0 {
		t.Errorf("snapshot after stop = %+v", snap)
	}
	if snap.Status.Message != tts.MsgStopped {
		t.Errorf("status = %q, want %q", snap.Status.Message, tts.MsgStopped)
	}
	if _, ok := s.Current(); ok {
		t.Error("speaker still has an utterance after stop")
	}
}

func TestInterruptedNeverChangesStatus(t *testing.T) {
	c, s := newTestController(t, "A.", "B.", "C.")

	_ = c.Play()
	before := c.Status()

	u, _ := s.Current()
	c.HandleEvent(tts.Event{UtteranceID: u.ID, Kind: tts.EventError, Reason: tts.ReasonInterrupted})

	if got := c.Status(); got != before {
		t.Errorf("status changed from %+v to %+v", before, got)
	}

	// Cancels issued by navigation also produce interrupted events.
	_ = c.Forward()
	before = c.Status()
	pump(c, s)
	if got := c.Status(); got != before {
		t.Errorf("status changed from %+v to %+v", before, got)
	}
}

func TestSpeechErrorStopsPlayback(t *testing.T) {
	c, s := newTestController(t, "A.", "B.", "C.")

	_ = c.Play()
	complete(t, c, s)
	if _, err := s.Fail(tts.ReasonSynthesisFailed, errors.New("boom")); err != nil {
		t.Fatal(err)
	}
	pump(c, s)

	snap := c.Snapshot()
	if snap.Intent {
		t.Error("intent should be false after a speech error")
	}
	if snap.Cursor != 1 {
		t.Errorf("cursor = %d, want 1", snap.Cursor)
	}
	if snap.Status.Kind != tts.StatusError {
		t.Errorf("status kind = %v, want error", snap.Status.Kind)
	}
	want := "speech error: synthesis-failed: boom"
	if snap.Status.Message != want {
		t.Errorf("status = %q, want %q", snap.Status.Message, want)
	}
	if n := s.Count("speak"); n != 2 {
		t.Errorf("speak count = %d, want 2", n)
	}

	var se *tts.SpeechError
	if err := c.Err(); !errors.As(err, &se) || se.Reason != tts.ReasonSynthesisFailed {
		t.Fatalf("Err() = %v, want a synthesis-failed SpeechError", err)
	}
	if !tts.IsRecoverableError(c.Err()) {
		t.Error("a synthesis failure should be recoverable")
	}

	// Speaking again clears the failure.
	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	if err := c.Err(); err != nil {
		t.Errorf("Err() after resuming = %v, want nil", err)
	}
}

func TestStaleEventsIgnored(t *testing.T) {
	c, s := newTestController(t, "A.", "B.", "C.")

	_ = c.Play()
	first, _ := s.Current()
	_ = c.Forward()
	pump(c, s)

	// A late completion of the replaced utterance must not advance.
	c.HandleEvent(tts.Event{UtteranceID: first.ID, Kind: tts.EventDone})
	c.HandleEvent(tts.Event{UtteranceID: "", Kind: tts.EventDone})
	c.HandleEvent(tts.Event{UtteranceID: "unknown", Kind: tts.EventError, Reason: "network"})

	if got := c.Snapshot().Cursor; got != 1 {
		t.Errorf("cursor = %d, want 1", got)
	}
	if n := s.Count("speak"); n != 2 {
		t.Errorf("speak count = %d, want 2", n)
	}
	if c.Status().Kind == tts.StatusError {
		t.Error("stale error changed the status")
	}
}

func TestSpeakAtPastEnd(t *testing.T) {
	c, _ := newTestController(t, "A.", "B.")

	_ = c.Play()
	if err := c.SpeakAt(5); err != nil {
		t.Fatal(err)
	}
	snap := c.Snapshot()
	if snap.Intent || snap.Cursor != 0 || snap.Status.Kind != tts.StatusEnd {
		t.Errorf("snapshot = %+v", snap)
	}
}

func TestSpeakFailure(t *testing.T) {
	c, s := newTestController(t, "A.")
	s.SetSpeakError(tts.ErrSpeakerUnavailable)

	err := c.Play()
	if !errors.Is(err, tts.ErrSpeakerUnavailable) {
		t.Fatalf("Play() error = %v, want ErrSpeakerUnavailable", err)
	}
	if c.Snapshot().Intent {
		t.Error("intent should be false after a failed speak")
	}
	if c.Status().Kind != tts.StatusError {
		t.Errorf("status = %+v", c.Status())
	}
	if err := c.Err(); !errors.Is(err, tts.ErrSpeakerUnavailable) || tts.IsRecoverableError(err) {
		t.Errorf("Err() = %v, want unrecoverable ErrSpeakerUnavailable", err)
	}
}

func TestNilSpeaker(t *testing.T) {
	c := tts.NewController(nil, tts.DefaultControllerConfig())
	if err := c.LoadSegments(segments("A.")); err != nil {
		t.Fatal(err)
	}

	if err := c.Play(); !errors.Is(err, tts.ErrSpeakerUnavailable) {
		t.Errorf("Play() error = %v, want ErrSpeakerUnavailable", err)
	}
	if c.ControlsEnabled() {
		t.Error("controls should be disabled without a speaker")
	}
	if got := c.Status().Message; got != tts.MsgUnavailable {
		t.Errorf("status = %q", got)
	}
	if err := c.Run(context.Background()); !errors.Is(err, tts.ErrSpeakerUnavailable) {
		t.Errorf("Run() error = %v", err)
	}
}

func TestControlsDisabledWhileLoading(t *testing.T) {
	c, s := newTestController(t, "A.")

	_ = c.Play()
	c.BeginLoad()
	if c.ControlsEnabled() {
		t.Error("controls should be disabled while loading")
	}
	if err := c.Play(); !errors.Is(err, tts.ErrControlsDisabled) {
		t.Errorf("Play() error = %v, want ErrControlsDisabled", err)
	}
	if _, ok := s.Current(); ok {
		t.Error("BeginLoad should cancel speech")
	}

	if err := c.LoadSegments(segments("X.", "Y.")); err != nil {
		t.Fatal(err)
	}
	if !c.ControlsEnabled() {
		t.Error("controls should be enabled after load")
	}
}

func TestSeek(t *testing.T) {
	c, s := newTestController(t, "A.", "B.", "C.", "D.")

	// Idle: cursor moves, nothing is spoken.
	if err := c.Seek(2); err != nil {
		t.Fatal(err)
	}
	if got := c.Snapshot().Cursor; got != 2 {
		t.Errorf("cursor = %d, want 2", got)
	}
	if n := s.Count("speak"); n != 0 {
		t.Errorf("speak count = %d, want 0", n)
	}

	// Playing: speech restarts at the target.
	_ = c.Play()
	if err := c.Seek(99); err != nil {
		t.Fatal(err)
	}
	pump(c, s)
	if u, _ := s.Current(); u.Index != 3 {
		t.Errorf("speaking index %d, want 3", u.Index)
	}
}

type prefetchSpeaker struct {
	*mock.Speaker
	mu       sync.Mutex
	upcoming [][]tts.Utterance
}

func (p *prefetchSpeaker) Prefetch(u []tts.Utterance) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.upcoming = append(p.upcoming, u)
}

func TestLookahead(t *testing.T) {
	speaker := &prefetchSpeaker{Speaker: mock.NewSpeaker()}
	cfg := tts.DefaultControllerConfig()
	cfg.Lookahead = 2
	c := tts.NewController(speaker, cfg)
	_ = c.LoadSegments(segments("A.", "B.", "C."))

	_ = c.Play()
	_ = c.Forward()

	speaker.mu.Lock()
	defer speaker.mu.Unlock()
	if len(speaker.upcoming) != 2 {
		t.Fatalf("prefetch calls = %d, want 2", len(speaker.upcoming))
	}
	if got := speaker.upcoming[0]; len(got) != 2 || got[0].Index != 1 || got[1].Index != 2 {
		t.Errorf("first prefetch = %+v", got)
	}
	if got := speaker.upcoming[1]; len(got) != 1 || got[0].Index != 2 {
		t.Errorf("second prefetch = %+v", got)
	}
}

func TestRunDispatchesEvents(t *testing.T) {
	c, s := newTestController(t, "A.", "B.", "C.")

	done := make(chan struct{})
	c.OnStatus(func(st tts.Status) {
		if st.Kind == tts.StatusEnd {
			close(done)
		}
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- c.Run(ctx) }()

	if err := c.Play(); err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 3; i++ {
		waitForIndex(t, s, i)
		if _, err := s.Complete(); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for end of document")
	}

	cancel()
	if err := <-errc; !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRunReturnsWhenEventsClose(t *testing.T) {
	c, s := newTestController(t, "A.")
	s.Close()
	if err := c.Run(context.Background()); err != nil {
		t.Errorf("Run() error = %v", err)
	}
}

func waitForIndex(t *testing.T, s *mock.Speaker, index int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if u, ok := s.Current(); ok && u.Index == index {
			return
		}
		time.Sleep(time.Millisecond)
	}
	t.Fatalf("timed out waiting for segment %d", index)
}

func TestSnapshotProgress(t *testing.T) {
	tests := []struct {
		snap tts.Snapshot
		want float64
	}{
		{tts.Snapshot{}, 0},
		{tts.Snapshot{Cursor: 0, Total: 4}, 0.25},
		{tts.Snapshot{Cursor: 3, Total: 4}, 1},
	}
	for _, tt := range tests {
		if got := tt.snap.Progress(); got != tt.want {
			t.Errorf("Progress(%+v) = %v, want %v", tt.snap, got, tt.want)
		}
	}
}

func TestCancelPrecedesEverySpeak(t *testing.T) {
	tests := []struct {
		name string
		act  func(t *testing.T, c *tts.Controller, s *mock.Speaker)
	}{
		{"forward", func(t *testing.T, c *tts.Controller, _ *mock.Speaker) {
			if err := c.Forward(); err != nil {
				t.Fatal(err)
			}
		}},
		{"backward", func(t *testing.T, c *tts.Controller, _ *mock.Speaker) {
			_ = c.Forward()
			if err := c.Backward(); err != nil {
				t.Fatal(err)
			}
		}},
		{"rate", func(t *testing.T, c *tts.Controller, _ *mock.Speaker) {
			if err := c.SetRate(1.5); err != nil {
				t.Fatal(err)
			}
		}},
		{"voice", func(t *testing.T, c *tts.Controller, _ *mock.Speaker) {
			if err := c.SetVoice(tts.Voice{ID: "v2"}); err != nil {
				t.Fatal(err)
			}
		}},
		{"completion", func(t *testing.T, c *tts.Controller, s *mock.Speaker) {
			complete(t, c, s)
			complete(t, c, s)
		}},
		{"speak at", func(t *testing.T, c *tts.Controller, _ *mock.Speaker) {
			if err := c.SpeakAt(3); err != nil {
				t.Fatal(err)
			}
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, s := newTestController(t, "A.", "B.", "C.", "D.")
			if err := c.Play(); err != nil {
				t.Fatal(err)
			}
			tt.act(t, c, s)
			pump(c, s)

			calls := s.Calls()
			speaks := 0
			for i, call := range calls {
				if call.Op != "speak" {
					continue
				}
				speaks++
				if i == 0 || calls[i-1].Op != "cancel" {
					t.Errorf("speak of segment %d at call %d not preceded by cancel: %+v", call.Utterance.Index, i, calls)
				}
			}
			if speaks < 2 {
				t.Errorf("spoke %d utterances, want at least 2", speaks)
			}
		})
	}
}
