// Package document loads readable text from PDFs, Markdown, plain text and
// web pages.
package document

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const (
	// MaxSize is the largest input accepted, in bytes.
	MaxSize = 25 * 1024 * 1024

	// FetchTimeout bounds a web page download.
	FetchTimeout = 30 * time.Second
)

// ErrNoText is returned when a document contains no readable text.
var ErrNoText = errors.New("no readable text")

// Kind is the detected document type.
type Kind string

// Document kinds.
const (
	KindText     Kind = "text"
	KindMarkdown Kind = "markdown"
	KindPDF      Kind = "pdf"
	KindURL      Kind = "url"
)

var markdownExts = map[string]bool{
	".md":       true,
	".markdown": true,
	".mdown":    true,
	".mkd":      true,
	".mkdn":     true,
}

// Detect returns the kind of source.
func Detect(source string) Kind {
	if strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://") {
		return KindURL
	}
	ext := strings.ToLower(filepath.Ext(source))
	switch {
	case ext == ".pdf":
		return KindPDF
	case markdownExts[ext]:
		return KindMarkdown
	default:
		return KindText
	}
}

// Page is one page of text. Documents without pages have a single page.
type Page struct {
	Number int // 1-based
	Text   string
}

// Document is the normalized text of a source.
type Document struct {
	Title  string
	Source string
	Kind   Kind
	Pages  []Page
}

// Texts returns the text of every page, in order.
func (d *Document) Texts() []string {
	texts := make([]string, len(d.Pages))
	for i, p := range d.Pages {
		texts[i] = p.Text
	}
	return texts
}

// Words counts the words in the document.
func (d *Document) Words() int {
	n := 0
	for _, p := range d.Pages {
		n += len(strings.Fields(p.Text))
	}
	return n
}

// Local reports whether the document was read from a file on disk.
func (d *Document) Local() bool {
	return d.Kind != KindURL && d.Source != "-"
}

// Loader reads documents. The zero value is ready to use.
type Loader struct {
	// HTTP fetches web pages. Defaults to a client with FetchTimeout.
	HTTP *http.Client
	// Stdin is read for the "-" source. Defaults to os.Stdin.
	Stdin io.Reader
}

// Load reads source with a default Loader.
func Load(ctx context.Context, source string) (*Document, error) {
	var l Loader
	return l.Load(ctx, source)
}

// Load reads and normalizes source. It returns ErrNoText when nothing
// readable remains.
func (l *Loader) Load(ctx context.Context, source string) (*Document, error) {
	var (
		doc *Document
		err error
	)
	switch kind := Detect(source); kind {
	case KindURL:
		doc, err = l.loadURL(ctx, source)
	case KindPDF:
		doc, err = loadPDF(ctx, source)
	default:
		var data []byte
		data, err = l.readFile(source)
		if err == nil {
			if kind == KindMarkdown {
				doc = parseMarkdown(data)
			} else {
				doc = parseText(data)
			}
			doc.Kind = kind
		}
	}
	if err != nil {
		return nil, err
	}

	doc.Source = source
	doc.Pages = normalizePages(doc.Pages)
	if len(doc.Pages) == 0 {
		return nil, fmt.Errorf("%s: %w", source, ErrNoText)
	}
	if doc.Title == "" {
		doc.Title = titleFromText(doc.Pages[0].Text, 80)
	}
	return doc, nil
}

func (l *Loader) readFile(source string) ([]byte, error) {
	if source == "-" {
		var in io.Reader = os.Stdin
		if l.Stdin != nil {
			in = l.Stdin
		}
		return readLimited(in, source)
	}
	if err := validateFile(source); err != nil {
		return nil, err
	}
	f, err := os.Open(source)
	if err != nil {
		return nil, fmt.Errorf("unable to open file: %w", err)
	}
	defer f.Close()
	return readLimited(f, source)
}

func validateFile(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("cannot access %s: %w", path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}
	if info.Size() > MaxSize {
		return fmt.Errorf("%s is too large (%d MB, max %d MB)", path, info.Size()/(1024*1024), MaxSize/(1024*1024))
	}
	return nil
}

func titleFromText(text string, maxLen int) string {
	line, _, _ := strings.Cut(strings.TrimSpace(text), "\n")
	line = strings.TrimSpace(line)
	if r := []rune(line); len(r) > maxLen {
		line = string(r[:maxLen]) + "..."
	}
	if line == "" {
		return "Untitled"
	}
	return line
}
