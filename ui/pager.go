package ui

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
	"github.com/muesli/reflow/ansi"
	"github.com/muesli/reflow/truncate"

	"github.com/txtparrot/parrot/internal/document"
	"github.com/txtparrot/parrot/tts"
)

const (
	statusBarHeight      = 1
	headerHeight         = 2
	statusMessageTimeout = 3 * time.Second
)

type (
	reloadMsg               struct{}
	statusMessageTimeoutMsg struct{}
)

type pagerStatusMessage struct {
	message string
	isError bool
}

// pagerModel shows one page of the document with the current segment
// highlighted.
type pagerModel struct {
	viewport viewport.Model
	help     help.Model
	showHelp bool
	width    int
	height   int
	maxWidth int

	highlight lipgloss.Style

	statusMessage      *pagerStatusMessage
	statusMessageTimer *time.Timer

	// What is currently rendered, so unchanged frames are not re-wrapped.
	renderedPage   int
	renderedCursor int
	renderedWidth  int

	watcher  *fsnotify.Watcher
	watched  string
	watching bool
}

func newPagerModel(cfg Config) pagerModel {
	vp := viewport.New(0, 0)
	vp.YPosition = headerHeight
	vp.MouseWheelEnabled = cfg.EnableMouse

	m := pagerModel{
		viewport:       vp,
		help:           help.New(),
		maxWidth:       int(cfg.MaxWidth), //nolint:gosec
		highlight:      highlightStyle,
		renderedPage:   -1,
		renderedCursor: -1,
	}
	if cfg.HighContrast {
		m.highlight = highContrastHighlightStyle
	}
	if !cfg.NoWatch {
		m.initWatcher()
	}
	return m
}

func (m *pagerModel) setSize(w, h int) {
	m.width = w
	m.height = h
	m.help.Width = w
	m.viewport.Width = w
	m.viewport.Height = max(0, h-statusBarHeight-headerHeight)
	if m.showHelp {
		m.viewport.Height = max(0, m.viewport.Height-lipgloss.Height(m.helpView()))
	}
	m.renderedWidth = -1
}

func (m *pagerModel) toggleHelp() {
	m.showHelp = !m.showHelp
	m.help.ShowAll = m.showHelp
	m.setSize(m.width, m.height)
}

func (m *pagerModel) showStatusMessage(msg pagerStatusMessage) tea.Cmd {
	m.statusMessage = &msg
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	m.statusMessageTimer = time.NewTimer(statusMessageTimeout)
	return waitForStatusMessageTimeout(m.statusMessageTimer)
}

func (m *pagerModel) textWidth() int {
	w := m.viewport.Width - 2
	if m.maxWidth > 0 {
		w = min(w, m.maxWidth)
	}
	return max(w, 10)
}

// sync renders the page holding the current segment and scrolls so the
// highlight is visible.
func (m *pagerModel) sync(doc *document.Document, current tts.Sentence, ok bool) {
	if doc == nil || len(doc.Pages) == 0 || m.viewport.Width == 0 {
		return
	}

	pageIdx := 0
	cursor := -1
	if ok {
		pageIdx = pageIndex(doc, current.Page)
		cursor = current.Index
	}
	width := m.textWidth()
	if pageIdx == m.renderedPage && cursor == m.renderedCursor && width == m.renderedWidth {
		return
	}

	start, end := 0, 0
	if ok {
		start, end = current.Start, current.End
	}
	content, line := renderPage(doc.Pages[pageIdx].Text, width, start, end, m.highlight)
	m.viewport.SetContent(indent(content, 1))

	if pageIdx != m.renderedPage {
		m.viewport.GotoTop()
	}
	if line >= 0 && (line < m.viewport.YOffset || line >= m.viewport.YOffset+m.viewport.Height) {
		m.viewport.SetYOffset(max(0, line-m.viewport.Height/3))
	}

	m.renderedPage, m.renderedCursor, m.renderedWidth = pageIdx, cursor, width
}

// invalidate forces the next sync to re-render.
func (m *pagerModel) invalidate() {
	m.renderedPage, m.renderedCursor = -1, -1
}

func (m pagerModel) View(doc *document.Document, snap tts.Snapshot, page int) string {
	var b strings.Builder

	title := ""
	pages := 0
	if doc != nil && len(doc.Pages) > 0 {
		title = doc.Title
		pages = doc.Pages[len(doc.Pages)-1].Number
	}
	header := titleStyle.Render(truncate.StringWithTail(title, uint(max(0, m.width-12)), ellipsis)) //nolint:gosec
	if pages > 1 {
		header += pageStyle.Render(fmt.Sprintf("  p. %d", page))
	}
	fmt.Fprint(&b, " "+header+"\n\n")
	fmt.Fprint(&b, m.viewport.View()+"\n")

	m.statusBarView(&b, snap, page, pages)

	if m.showHelp {
		fmt.Fprint(&b, "\n"+m.helpView())
	}
	return b.String()
}

func (m pagerModel) statusBarView(b *strings.Builder, snap tts.Snapshot, page, pages int) {
	logo := logoView()
	position := statusBarPosStyle(positionNote(snap))
	helpNote := statusBarHelpStyle(" ? Help ")

	style := statusBarNoteStyle
	note := statusNote(snap, page, pages)
	switch {
	case m.statusMessage != nil && m.statusMessage.isError:
		note, style = m.statusMessage.message, statusBarErrorStyle
	case m.statusMessage != nil:
		note, style = m.statusMessage.message, statusBarMessageStyle
	case snap.Status.Kind == tts.StatusError:
		style = statusBarErrorStyle
	}

	note = truncate.StringWithTail(" "+note+" ", uint(max(0, //nolint:gosec
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(helpNote),
	)), ellipsis)
	note = style(note)

	padding := max(0,
		m.width-
			ansi.PrintableRuneWidth(logo)-
			ansi.PrintableRuneWidth(note)-
			ansi.PrintableRuneWidth(position)-
			ansi.PrintableRuneWidth(helpNote),
	)
	emptySpace := style(strings.Repeat(" ", padding))

	fmt.Fprintf(b, "%s%s%s%s%s", logo, note, emptySpace, position, helpNote)
}

func (m pagerModel) helpView() string {
	return "\n" + indent(m.help.View(newKeyMap()), 2)
}

func pageIndex(doc *document.Document, number int) int {
	for i, p := range doc.Pages {
		if p.Number == number {
			return i
		}
	}
	return 0
}

// COMMANDS

func waitForStatusMessageTimeout(t *time.Timer) tea.Cmd {
	return func() tea.Msg {
		<-t.C
		return statusMessageTimeoutMsg{}
	}
}

func (m *pagerModel) initWatcher() {
	var err error
	m.watcher, err = fsnotify.NewWatcher()
	if err != nil {
		log.Error("error creating fsnotify watcher", "error", err)
	}
}

// watchFile returns a command that waits for path to be written. It
// returns nil when the file is already watched.
func (m *pagerModel) watchFile(path string) tea.Cmd {
	if m.watcher == nil || m.watching {
		return nil
	}

	dir := filepath.Dir(path)
	if m.watched != dir {
		if m.watched != "" {
			_ = m.watcher.Remove(m.watched)
		}
		if err := m.watcher.Add(dir); err != nil {
			log.Error("error adding dir to fsnotify watcher", "error", err)
			return nil
		}
		log.Info("fsnotify watching dir", "dir", dir)
		m.watched = dir
	}
	m.watching = true

	watcher := m.watcher
	target, _ := filepath.Abs(path)
	return func() tea.Msg {
		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return nil
				}
				name, _ := filepath.Abs(event.Name)
				if name != target {
					continue
				}
				if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
					continue
				}
				log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
				return reloadMsg{}
			case err, ok := <-watcher.Errors:
				if !ok {
					return nil
				}
				log.Debug("fsnotify error", "dir", dir, "error", err)
			}
		}
	}
}

func (m *pagerModel) close() {
	if m.statusMessageTimer != nil {
		m.statusMessageTimer.Stop()
	}
	if m.watcher != nil {
		_ = m.watcher.Close()
	}
}
