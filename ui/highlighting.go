package ui

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"
	"github.com/muesli/reflow/wrap"
)

// wrapText word-wraps s at width, hard-wrapping words longer than a line.
func wrapText(s string, width int) string {
	if width <= 0 {
		return s
	}
	return wrap.String(wordwrap.String(s, width), width)
}

// renderPage wraps page text to width and highlights the bytes
// [start, end). It returns the rendered page and the line the highlight
// begins on, or -1 when nothing is highlighted.
//
// Paragraphs are separated by blank lines. The highlight is applied word by
// word so that wrapping never carries styling across a line break.
func renderPage(text string, width, start, end int, highlight lipgloss.Style) (string, int) {
	var (
		line     int
		hlLine   = -1
		offset   int
		rendered []string
	)

	for _, para := range strings.Split(text, "\n\n") {
		ps, pe := offset, offset+len(para)
		offset = pe + 2

		a, z := max(start, ps)-ps, min(end, pe)-ps
		if start >= end || a >= z {
			wrapped := wrapText(para, width)
			rendered = append(rendered, wrapped)
			line += strings.Count(wrapped, "\n") + 2
			continue
		}

		mid := para[a:z]
		if hlLine < 0 {
			first, _, _ := strings.Cut(strings.TrimSpace(mid), " ")
			hlLine = line + strings.Count(wrapText(para[:a]+first, width), "\n")
		}

		styled := para[:a] + highlightWords(mid, highlight) + para[z:]
		wrapped := wrapText(styled, width)
		rendered = append(rendered, wrapped)
		line += strings.Count(wrapped, "\n") + 2
	}

	return strings.Join(rendered, "\n\n"), hlLine
}

func highlightWords(s string, style lipgloss.Style) string {
	words := strings.Split(s, " ")
	for i, w := range words {
		if w != "" {
			words[i] = style.Render(w)
		}
	}
	return strings.Join(words, " ")
}
