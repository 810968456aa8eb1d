package document

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownText converts Markdown to speakable plain text. Top level
// headings (H1 and H2) start a new page so long documents can be
// navigated by section.
type markdownText struct {
	source []byte
	title  string
	pages  []Page
	buf    strings.Builder
}

func parseMarkdown(data []byte) *Document {
	reader := text.NewReader(data)
	root := goldmark.New().Parser().Parse(reader)

	m := &markdownText{source: reader.Source()}
	for c := root.FirstChild(); c != nil; c = c.NextSibling() {
		m.block(c)
	}
	m.flush()
	return &Document{Kind: KindMarkdown, Title: m.title, Pages: m.pages}
}

func (m *markdownText) flush() {
	if strings.TrimSpace(m.buf.String()) != "" {
		m.pages = append(m.pages, Page{Number: len(m.pages) + 1, Text: m.buf.String()})
	}
	m.buf.Reset()
}

func (m *markdownText) paragraph(s string) {
	s = strings.TrimSpace(s)
	if s == "" {
		return
	}
	m.buf.WriteString(terminate(s))
	m.buf.WriteString("\n\n")
}

func (m *markdownText) block(node ast.Node) {
	switch n := node.(type) {
	case *ast.CodeBlock, *ast.FencedCodeBlock, *ast.HTMLBlock:
		return

	case *ast.Heading:
		heading := m.inline(n)
		if n.Level <= 2 {
			m.flush()
		}
		if n.Level == 1 && m.title == "" {
			m.title = strings.TrimSpace(heading)
		}
		m.paragraph(heading)

	case *ast.Paragraph, *ast.TextBlock:
		m.paragraph(m.inline(n))

	case *ast.ListItem:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			m.block(c)
		}

	case *ast.ThematicBreak:
		m.buf.WriteString("\n\n")

	default:
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			m.block(c)
		}
	}
}

func (m *markdownText) inline(node ast.Node) string {
	var b strings.Builder
	var walk func(ast.Node)
	walk = func(node ast.Node) {
		switch n := node.(type) {
		case *ast.Text:
			b.Write(n.Segment.Value(m.source))
			if n.SoftLineBreak() || n.HardLineBreak() {
				b.WriteByte(' ')
			}
			return
		case *ast.String:
			b.Write(n.Value)
			return
		case *ast.Image, *ast.RawHTML:
			return
		case *ast.AutoLink:
			b.Write(n.Label(m.source))
			return
		}
		for c := node.FirstChild(); c != nil; c = c.NextSibling() {
			walk(c)
		}
	}
	walk(node)
	return b.String()
}

// terminate adds a full stop to text that does not end a sentence, so a
// heading or list item is not read into the next line.
func terminate(s string) string {
	switch s[len(s)-1] {
	case '.', '!', '?', ':', ';':
		return s
	}
	return s + "."
}
