package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/charmbracelet/log"

	"github.com/txtparrot/parrot/internal/document"
	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/audio"
	"github.com/txtparrot/parrot/tts/sentence"
	"github.com/txtparrot/parrot/ui"
	"github.com/txtparrot/parrot/utils"
)

// reader wires an engine, the audio device and a controller together.
type reader struct {
	synth      *synthesizer
	speaker    *audio.Speaker
	controller *tts.Controller
}

// openReader opens the configured engine and audio device. When no audio
// device is available the controller runs without a speaker and reports
// speech as unavailable.
func openReader(ctx context.Context, s Settings) (*reader, error) {
	synth, err := openSynthesizer(ctx, s)
	if err != nil {
		return nil, err
	}

	r := &reader{synth: synth}
	player, err := audio.NewOtoPlayer()
	if err != nil {
		log.Error("audio device unavailable", "err", err)
		r.controller = tts.NewController(nil, s.ControllerConfig())
		return r, nil
	}

	r.speaker = audio.NewSpeaker(synth, player, audio.DefaultSpeakerConfig())
	r.controller = tts.NewController(r.speaker, s.ControllerConfig())
	return r, nil
}

// ttsSpeaker returns the speaker as an interface value, nil when there is
// no audio device.
func (r *reader) ttsSpeaker() tts.Speaker {
	if r.speaker == nil {
		return nil
	}
	return r.speaker
}

func (r *reader) Close() error {
	var err error
	if r.speaker != nil {
		err = r.speaker.Close()
	}
	return errors.Join(err, r.synth.Close())
}

func runTUI(ctx context.Context, source string) error {
	// Read environment to get debugging stuff
	cfg, err := env.ParseAs[ui.Config]()
	if err != nil {
		return fmt.Errorf("error parsing config: %v", err)
	}

	r, err := openReader(ctx, settings)
	if err != nil {
		return err
	}
	defer r.Close() //nolint:errcheck

	cfg.Source = utils.AbsSource(source)
	cfg.Page = startPage
	cfg.MaxWidth = settings.Width
	cfg.EnableMouse = settings.Mouse
	cfg.Engine = settings.Engine
	cfg.Voices = listVoices(ctx, r.synth)

	if _, err := ui.NewProgram(cfg, r.controller, r.ttsSpeaker(), &document.Loader{}).Run(); err != nil {
		return fmt.Errorf("unable to run tui program: %w", err)
	}
	return nil
}

// listVoices asks the engine for its voices, giving up quickly so a slow
// service does not delay startup.
func listVoices(ctx context.Context, synth tts.Synthesizer) []tts.Voice {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	voices, err := synth.Voices(ctx)
	if err != nil {
		log.Warn("unable to list voices", "engine", synth.Name(), "err", err)
		return nil
	}
	return voices
}

// loadSegments loads source and splits it into segments numbered with the
// document's page numbers.
func loadSegments(ctx context.Context, source string) (*document.Document, []tts.Sentence, error) {
	doc, err := document.Load(ctx, source)
	if err != nil {
		return nil, nil, err
	}

	segments := sentence.NewParser().ParsePages(doc.Texts())
	for i := range segments {
		segments[i].Page = doc.Pages[segments[i].Page-1].Number
	}
	if len(segments) == 0 {
		return doc, nil, tts.ErrEmptyInput
	}
	return doc, segments, nil
}

// runHeadless reads source aloud without a UI, printing each segment to w
// as it is spoken. It returns when the document ends, speech fails or the
// process is interrupted.
func runHeadless(ctx context.Context, source string, w io.Writer) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt)
	defer stop()

	doc, segments, err := loadSegments(ctx, source)
	if err != nil {
		return err
	}

	r, err := openReader(ctx, settings)
	if err != nil {
		return err
	}
	defer r.Close() //nolint:errcheck
	if r.speaker == nil {
		return tts.ErrSpeakerUnavailable
	}

	c := r.controller
	if err := c.LoadSegments(segments); err != nil {
		return err
	}

	ctx, finish := context.WithCancelCause(ctx)
	defer finish(nil)
	h := newHeadless(c, w, finish)
	c.OnStatus(h.onStatus)

	start := 0
	if startPage > 1 {
		for _, s := range segments {
			if s.Page >= startPage {
				start = s.Index
				break
			}
		}
	}
	fmt.Fprintf(w, "%s %s\n", keyword(doc.Title), subtle(fmt.Sprintf("(%d words)", doc.Words())))
	if err := c.SpeakAt(start); err != nil {
		return err
	}

	runErr := c.Run(ctx)
	_ = c.Stop()

	switch cause := context.Cause(ctx); {
	case errors.Is(cause, errEndOfDocument):
		return nil
	case errors.Is(cause, context.Canceled):
		fmt.Fprintln(w, subtle("stopped"))
		return nil
	case cause != nil:
		return cause
	}
	return runErr
}

// errEndOfDocument ends a headless session normally.
var errEndOfDocument = errors.New("end of document")

// headlessRetries is how often a segment is retried after a recoverable
// speech error before the session gives up.
const headlessRetries = 2

// headlessSession prints segments as the controller reaches them and decides
// when a session without a UI is over.
type headlessSession struct {
	c       *tts.Controller
	w       io.Writer
	finish  context.CancelCauseFunc
	printed int
	retries int
}

func newHeadless(c *tts.Controller, w io.Writer, finish context.CancelCauseFunc) *headlessSession {
	return &headlessSession{c: c, w: w, finish: finish, printed: -1, retries: headlessRetries}
}

func (h *headlessSession) onStatus(st tts.Status) {
	switch st.Kind {
	case tts.StatusEnd:
		h.finish(errEndOfDocument)

	case tts.StatusError:
		err := h.c.Err()
		if err == nil {
			err = errors.New(st.Message)
		}
		cur, _ := h.c.Current()
		if tts.IsRecoverableError(err) && h.retries > 0 {
			h.retries--
			log.Warn("retrying segment", "index", cur.Index, "left", h.retries, "err", err)
			// A failed retry reports another error and lands back here.
			_ = h.c.SpeakAt(cur.Index)
			return
		}
		h.finish(fmt.Errorf("segment %d: %w", cur.Index+1, err))

	default:
		snap := h.c.Snapshot()
		cur, ok := h.c.Current()
		if !ok || !snap.Intent || cur.Index == h.printed {
			return
		}
		h.printed = cur.Index
		h.retries = headlessRetries
		fmt.Fprintf(h.w, "%s %s\n", subtle(fmt.Sprintf("[%d/%d]", cur.Index+1, snap.Total)), cur.Text)
	}
}
