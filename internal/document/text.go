package document

import (
	"fmt"
	"io"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// readLimited reads at most MaxSize bytes and fails if there is more.
func readLimited(r io.Reader, name string) ([]byte, error) {
	data, err := io.ReadAll(io.LimitReader(r, MaxSize+1))
	if err != nil {
		return nil, fmt.Errorf("unable to read %s: %w", name, err)
	}
	if len(data) > MaxSize {
		return nil, fmt.Errorf("%s is too large (max %d MB)", name, MaxSize/(1024*1024))
	}
	return data, nil
}

// parseText splits plain text into pages at form feeds, as written by
// pdftotext and friends.
func parseText(data []byte) *Document {
	var pages []Page
	for i, chunk := range strings.Split(string(data), "\f") {
		pages = append(pages, Page{Number: i + 1, Text: chunk})
	}
	return &Document{Kind: KindText, Pages: pages}
}

var (
	hyphenBreak = regexp.MustCompile(`(\p{L})-[ \t]*\r?\n[ \t]*(\p{Ll})`)
	blankLines  = regexp.MustCompile(`\n[ \t]*\n\s*`)
)

// Normalize prepares extracted text for reading: NFKC folds ligatures and
// compatibility characters, words hyphenated across lines are joined,
// single line breaks become spaces and blank lines separate paragraphs.
func Normalize(s string) string {
	s = norm.NFKC.String(s)
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.Map(func(r rune) rune {
		switch {
		case r == '\u00ad': // soft hyphen
			return -1
		case r == '\n':
			return r
		case unicode.IsSpace(r):
			return ' '
		case unicode.IsControl(r):
			return -1
		}
		return r
	}, s)
	s = hyphenBreak.ReplaceAllString(s, "$1$2")

	paragraphs := blankLines.Split(s, -1)
	out := paragraphs[:0]
	for _, p := range paragraphs {
		if p = strings.Join(strings.Fields(p), " "); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, "\n\n")
}

// normalizePages normalizes every page and drops empty ones. Pages keep
// their original numbers.
func normalizePages(pages []Page) []Page {
	out := make([]Page, 0, len(pages))
	for i, p := range pages {
		text := Normalize(p.Text)
		if !hasWord(text) {
			continue
		}
		if p.Number <= 0 {
			p.Number = i + 1
		}
		out = append(out, Page{Number: p.Number, Text: text})
	}
	return out
}

func hasWord(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}
