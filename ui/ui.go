// Package ui implements the reading TUI.
package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/muesli/termenv"

	"github.com/txtparrot/parrot/internal/document"
	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/sentence"
)

// Loader loads the document being read.
type Loader interface {
	Load(ctx context.Context, source string) (*document.Document, error)
}

// NewProgram returns a new Tea program reading cfg.Source aloud through
// the controller. The speaker must be the one driven by the controller.
func NewProgram(cfg Config, c *tts.Controller, s tts.Speaker, l Loader) *tea.Program {
	log.Debug(
		"Starting parrot",
		"source", cfg.Source,
		"engine", cfg.Engine,
		"voices", len(cfg.Voices),
	)

	switch cfg.GlamourStyle {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}

	opts := []tea.ProgramOption{tea.WithAltScreen()}
	if cfg.EnableMouse {
		opts = append(opts, tea.WithMouseCellMotion())
	}
	return tea.NewProgram(newModel(cfg, c, s, l), opts...)
}

type errMsg struct{ err error }

func (e errMsg) Error() string { return e.err.Error() }

type documentLoadedMsg struct {
	doc    *document.Document
	reload bool
}

type state int

const (
	stateLoading state = iota
	stateReading
	stateError
)

func (s state) String() string {
	return map[state]string{
		stateLoading: "loading",
		stateReading: "reading",
		stateError:   "error",
	}[s]
}

type model struct {
	cfg        Config
	controller *tts.Controller
	speaker    tts.Speaker
	loader     Loader
	parser     *sentence.Parser
	keys       keyMap
	rates      *tts.RateStepper

	state   state
	fatal   error
	doc     *document.Document
	spinner spinner.Model
	pager   pagerModel

	width  int
	height int

	voice     int // index into cfg.Voices, -1 for the engine default
	startPage int
}

func newModel(cfg Config, c *tts.Controller, s tts.Speaker, l Loader) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = spinnerStyle

	snap := c.Snapshot()
	voice := -1
	for i, v := range cfg.Voices {
		if v.ID == snap.Voice.ID && !snap.Voice.IsZero() {
			voice = i
		}
	}

	c.BeginLoad()
	return model{
		cfg:        cfg,
		controller: c,
		speaker:    s,
		loader:     l,
		parser:     sentence.NewParser(),
		keys:       newKeyMap(),
		rates:      tts.NewRateStepper(snap.Rate),
		state:      stateLoading,
		spinner:    sp,
		pager:      newPagerModel(cfg),
		voice:      voice,
		startPage:  cfg.Page,
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(
		m.spinner.Tick,
		loadDocument(m.loader, m.cfg.Source, false),
		tts.WaitForEvent(m.speaker),
	)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.pager.setSize(msg.Width, msg.Height)

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			if m.speaker != nil {
				m.speaker.Cancel()
			}
			m.pager.close()
			return m, tea.Quit
		}
		if m.state == stateError {
			m.pager.close()
			return m, tea.Quit
		}
		if cmd, handled := m.handleKey(msg); handled {
			m.syncPager()
			return m, cmd
		}

	case spinner.TickMsg:
		if m.state == stateLoading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}
		return m, nil

	case documentLoadedMsg:
		cmds = append(cmds, m.documentLoaded(msg))

	case errMsg:
		log.Error("unable to load document", "error", msg.err)
		if m.doc != nil {
			// A failed reload keeps the document already on screen.
			prev := m.controller.Snapshot().Cursor
			_ = m.controller.LoadSegments(m.controller.Segments())
			_ = m.controller.Seek(prev)
			cmds = append(cmds, m.pager.showStatusMessage(pagerStatusMessage{"Reload failed: " + msg.err.Error(), true}))
			break
		}
		m.state = stateError
		m.fatal = msg.err

	case reloadMsg:
		m.pager.watching = false
		cmds = append(cmds, m.reload())

	case statusMessageTimeoutMsg:
		m.pager.statusMessage = nil

	case tts.SpeakerEventMsg:
		cmds = append(cmds, tts.DispatchEvent(m.controller, m.speaker, msg))

	case tts.SpeakerClosedMsg:
		log.Debug("speaker event channel closed")
	}

	m.syncPager()

	if m.state == stateReading {
		var cmd tea.Cmd
		m.pager.viewport, cmd = m.pager.viewport.Update(msg)
		cmds = append(cmds, cmd)
	}
	return m, tea.Batch(cmds...)
}

// handleKey runs the action bound to msg. Playback keys are no-ops while
// the controller's controls are disabled.
func (m *model) handleKey(msg tea.KeyMsg) (tea.Cmd, bool) {
	switch {
	case key.Matches(msg, m.keys.Help):
		m.pager.toggleHelp()
		m.pager.invalidate()
		return nil, true
	case key.Matches(msg, m.keys.Reload):
		if m.state != stateReading {
			return nil, true
		}
		return m.reload(), true
	}

	if !key.Matches(msg, m.keys.playback()...) {
		return nil, false
	}
	if !m.controller.ControlsEnabled() {
		return nil, true
	}

	var err error
	c := m.controller
	switch {
	case key.Matches(msg, m.keys.Play):
		err = c.Play()
	case key.Matches(msg, m.keys.Pause):
		err = c.Pause()
	case key.Matches(msg, m.keys.Stop):
		err = c.Stop()
	case key.Matches(msg, m.keys.Forward):
		err = c.Forward()
	case key.Matches(msg, m.keys.Backward):
		err = c.Backward()

	case key.Matches(msg, m.keys.Faster, m.keys.Slower):
		m.rates.Set(c.Snapshot().Rate)
		var rate float64
		if key.Matches(msg, m.keys.Faster) {
			rate, err = m.rates.Next()
		} else {
			rate, err = m.rates.Previous()
		}
		if err == nil {
			err = c.SetRate(rate)
		}

	case key.Matches(msg, m.keys.Voice):
		if len(m.cfg.Voices) == 0 {
			return m.pager.showStatusMessage(pagerStatusMessage{"No other voices available", false}), true
		}
		m.voice = (m.voice + 1) % len(m.cfg.Voices)
		v := m.cfg.Voices[m.voice]
		err = c.SetVoice(v)
		if err == nil {
			return m.pager.showStatusMessage(pagerStatusMessage{"Voice: " + v.Label(), false}), true
		}

	case key.Matches(msg, m.keys.SkipMore):
		err = c.SetSkipAmount(c.Snapshot().Skip + 1)
	case key.Matches(msg, m.keys.SkipLess):
		if skip := c.Snapshot().Skip; skip > 1 {
			err = c.SetSkipAmount(skip - 1)
		}

	case key.Matches(msg, m.keys.NextPage, m.keys.PrevPage):
		step := 1
		if key.Matches(msg, m.keys.PrevPage) {
			step = -1
		}
		if idx, ok := m.pageStart(step); ok {
			err = c.Seek(idx)
		}

	case key.Matches(msg, m.keys.Copy):
		cur, ok := c.Current()
		if !ok {
			return nil, true
		}
		termenv.Copy(cur.Text)
		if err := clipboard.WriteAll(cur.Text); err != nil {
			log.Debug("clipboard unavailable", "error", err)
		}
		return m.pager.showStatusMessage(pagerStatusMessage{"Copied segment", false}), true
	}

	if err != nil && !errors.Is(err, tts.ErrControlsDisabled) {
		log.Debug("control failed", "key", msg.String(), "error", err)
		return m.pager.showStatusMessage(pagerStatusMessage{err.Error(), true}), true
	}
	return nil, true
}

// pageStart returns the first segment of the page step pages away from
// the current one.
func (m *model) pageStart(step int) (int, bool) {
	cur, ok := m.controller.Current()
	if !ok {
		return 0, false
	}
	segments := m.controller.Segments()
	if step > 0 {
		for _, s := range segments[cur.Index:] {
			if s.Page > cur.Page {
				return s.Index, true
			}
		}
		return 0, false
	}

	// Going back from the middle of a page returns to its start first.
	target := cur.Page - 1
	if first := firstOnPage(segments, cur.Page); first >= 0 && first < cur.Index {
		target = cur.Page
	}
	for p := target; p >= 1; p-- {
		if first := firstOnPage(segments, p); first >= 0 {
			return first, true
		}
	}
	return 0, false
}

func firstOnPage(segments []tts.Sentence, page int) int {
	for _, s := range segments {
		if s.Page == page {
			return s.Index
		}
	}
	return -1
}

func (m *model) documentLoaded(msg documentLoadedMsg) tea.Cmd {
	prev := m.controller.Snapshot().Cursor

	m.doc = msg.doc
	m.state = stateReading
	m.pager.invalidate()

	// Segments carry the document's own page numbers, which skip pages
	// without text.
	segments := m.parser.ParsePages(msg.doc.Texts())
	for i := range segments {
		segments[i].Page = msg.doc.Pages[segments[i].Page-1].Number
	}
	if err := m.controller.LoadSegments(segments); err != nil {
		log.Debug("document has no segments", "source", msg.doc.Source, "error", err)
	}

	switch {
	case msg.reload && prev > 0 && len(segments) > 0:
		_ = m.controller.Seek(min(prev, len(segments)-1))
	case m.startPage > 1:
		if idx := firstOnPage(segments, m.startPage); idx >= 0 {
			_ = m.controller.Seek(idx)
		}
		m.startPage = 0
	}

	var cmds []tea.Cmd
	if msg.reload {
		cmds = append(cmds, m.pager.showStatusMessage(pagerStatusMessage{"Reloaded", false}))
	}
	if msg.doc.Local() {
		cmds = append(cmds, m.pager.watchFile(msg.doc.Source))
	}
	return tea.Batch(cmds...)
}

func (m *model) reload() tea.Cmd {
	m.controller.BeginLoad()
	return loadDocument(m.loader, m.cfg.Source, true)
}

func (m *model) syncPager() {
	if m.state != stateReading {
		return
	}
	cur, ok := m.controller.Current()
	m.pager.sync(m.doc, cur, ok)
}

func (m model) currentPage() int {
	if cur, ok := m.controller.Current(); ok {
		return cur.Page
	}
	if m.doc != nil && len(m.doc.Pages) > 0 {
		return m.doc.Pages[0].Number
	}
	return 0
}

func (m model) View() string {
	switch m.state {
	case stateLoading:
		return fmt.Sprintf("\n  %s Loading %s%s", m.spinner.View(), m.cfg.Source, ellipsis)
	case stateError:
		return errorView(m.fatal, true)
	default:
		return m.pager.View(m.doc, m.controller.Snapshot(), m.currentPage())
	}
}

func errorView(err error, fatal bool) string {
	exitMsg := "press any key to "
	if fatal {
		exitMsg += "exit"
	} else {
		exitMsg += "return"
	}
	s := fmt.Sprintf("%s\n\n%v\n\n%s",
		errorTitleStyle.Render("ERROR"),
		err,
		pageStyle.Render(exitMsg),
	)
	return "\n" + indent(s, 3)
}

// COMMANDS

func loadDocument(l Loader, source string, reload bool) tea.Cmd {
	return func() tea.Msg {
		doc, err := l.Load(context.Background(), source)
		if err != nil {
			return errMsg{err}
		}
		return documentLoadedMsg{doc: doc, reload: reload}
	}
}

// ETC

// Lightweight version of reflow's indent function.
func indent(s string, n int) string {
	if n <= 0 || s == "" {
		return s
	}
	l := strings.Split(s, "\n")
	b := strings.Builder{}
	i := strings.Repeat(" ", n)
	for _, v := range l {
		fmt.Fprintf(&b, "%s%s\n", i, v)
	}
	return strings.TrimSuffix(b.String(), "\n")
}
