// Package sentence splits plain text into readable segments.
package sentence

import (
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/txtparrot/parrot/tts"
)

// DefaultMinLength is the shortest segment, in runes, that is kept.
const DefaultMinLength = 2

// WordsPerMinute is the speaking pace used for duration estimates.
const WordsPerMinute = 150

// Parser extracts sentences from plain text.
type Parser struct {
	// MinLength drops segments shorter than this many runes.
	MinLength int

	// Titles and Latin shorthand that never end a sentence.
	abbreviations map[string]bool

	// Abbreviations that are also ordinary words ("sat", "sun", "co").
	// They only hold a sentence open when a number follows: "Mar. 3".
	numberAbbreviations map[string]bool
}

// NewParser creates a new sentence parser.
func NewParser() *Parser {
	return &Parser{
		MinLength:           DefaultMinLength,
		abbreviations:       makeAbbreviationMap(titleAbbreviations),
		numberAbbreviations: makeAbbreviationMap(numberAbbreviations),
	}
}

// Parse splits text into sentences. Start and End are byte offsets into
// text; Page is left at zero.
func (p *Parser) Parse(text string) []tts.Sentence {
	return p.parse(text, 0, 0)
}

// ParsePages splits each page and numbers the sentences across pages.
// Offsets are relative to the page they came from.
func (p *Parser) ParsePages(pages []string) []tts.Sentence {
	var out []tts.Sentence
	for i, page := range pages {
		out = append(out, p.parse(page, i+1, len(out))...)
	}
	return out
}

func (p *Parser) parse(text string, page, firstIndex int) []tts.Sentence {
	var sentences []tts.Sentence
	for _, b := range p.boundaries(text) {
		start, end := trimRange(text, b.start, b.end)
		if start >= end {
			continue
		}
		clean := strings.Join(strings.Fields(text[start:end]), " ")
		if utf8.RuneCountInString(clean) < p.minLength() || !hasWord(clean) {
			continue
		}
		sentences = append(sentences, tts.Sentence{
			Index:    firstIndex + len(sentences),
			Text:     clean,
			Page:     page,
			Start:    start,
			End:      end,
			Duration: EstimateDuration(clean),
		})
	}
	return sentences
}

func (p *Parser) minLength() int {
	if p.MinLength <= 0 {
		return 1
	}
	return p.MinLength
}

// EstimateDuration estimates the speaking duration for text.
func EstimateDuration(text string) time.Duration {
	words := len(strings.Fields(text))
	if words == 0 {
		return 0
	}
	seconds := float64(words) * 60.0 / WordsPerMinute
	return time.Duration(seconds * float64(time.Second))
}

// boundary is a half-open byte range.
type boundary struct {
	start int
	end   int
}

// boundaries finds sentence ranges in text, as byte offsets.
func (p *Parser) boundaries(text string) []boundary {
	runes := []rune(text)
	var out []boundary
	lastStart := 0

	for i := 0; i < len(runes); i++ {
		if !isTerminal(runes[i]) {
			continue
		}

		// Collect the whole punctuation run, e.g. "?!" or "...".
		punctEnd := i + 1
		for punctEnd < len(runes) && isTerminal(runes[punctEnd]) {
			punctEnd++
		}

		if !p.isSentenceEnd(runes, i, punctEnd) {
			i = punctEnd - 1
			continue
		}

		for punctEnd < len(runes) && isClosing(runes[punctEnd]) {
			punctEnd++
		}
		out = append(out, boundary{start: lastStart, end: punctEnd})

		for punctEnd < len(runes) && unicode.IsSpace(runes[punctEnd]) {
			punctEnd++
		}
		lastStart = punctEnd
		i = punctEnd - 1
	}

	if lastStart < len(runes) {
		out = append(out, boundary{start: lastStart, end: len(runes)})
	}

	// Convert rune positions to byte positions
	offsets := make([]int, len(runes)+1)
	n := 0
	for i, r := range runes {
		offsets[i] = n
		n += utf8.RuneLen(r)
	}
	offsets[len(runes)] = n
	for i := range out {
		out[i].start = offsets[out[i].start]
		out[i].end = offsets[out[i].end]
	}
	return out
}

// isSentenceEnd reports whether the punctuation run runes[pos:punctEnd]
// ends a sentence.
func (p *Parser) isSentenceEnd(runes []rune, pos, punctEnd int) bool {
	run := string(runes[pos:punctEnd])

	// An ellipsis only ends the text, never a sentence inside it.
	ellipsis := strings.HasPrefix(run, "..") || strings.ContainsRune(run, '…')

	var word string
	if run == "." {
		word = strings.ToLower(wordBefore(runes, pos))
		if p.abbreviations[word] {
			return false
		}
		// Multi-part abbreviations like "U.S." or "Ph.D."
		if strings.Contains(word, ".") {
			return false
		}
		// Decimal numbers: "3.14"
		if pos > 0 && punctEnd < len(runes) && unicode.IsDigit(runes[pos-1]) && unicode.IsDigit(runes[punctEnd]) {
			return false
		}
	}

	next := punctEnd
	for next < len(runes) && isClosing(runes[next]) {
		next++
	}
	if next >= len(runes) {
		return true
	}

	// Must have whitespace after punctuation
	if !unicode.IsSpace(runes[next]) {
		return false
	}
	for next < len(runes) && unicode.IsSpace(runes[next]) {
		next++
	}
	if next >= len(runes) {
		return true
	}

	if ellipsis {
		return false
	}

	r := runes[next]
	if unicode.IsDigit(r) && p.numberAbbreviations[word] {
		return false
	}
	return unicode.IsUpper(r) || unicode.IsDigit(r) || isOpening(r)
}

// wordBefore returns the whitespace-delimited word ending at pos,
// without the punctuation at pos.
func wordBefore(runes []rune, pos int) string {
	start := pos - 1
	for start >= 0 && !unicode.IsSpace(runes[start]) && !isOpening(runes[start]) {
		start--
	}
	return string(runes[start+1 : pos])
}

func trimRange(text string, start, end int) (int, int) {
	for start < end {
		r, size := utf8.DecodeRuneInString(text[start:])
		if !unicode.IsSpace(r) {
			break
		}
		start += size
	}
	for end > start {
		r, size := utf8.DecodeLastRuneInString(text[:end])
		if !unicode.IsSpace(r) {
			break
		}
		end -= size
	}
	return start, end
}

// hasWord reports whether s contains a letter or digit.
func hasWord(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool {
		return unicode.IsLetter(r) || unicode.IsDigit(r)
	}) >= 0
}

func isTerminal(r rune) bool {
	return r == '.' || r == '!' || r == '?' || r == '…'
}

func isClosing(r rune) bool {
	switch r {
	case '"', '\'', ')', ']', '”', '’', '»':
		return true
	}
	return false
}

func isOpening(r rune) bool {
	switch r {
	case '"', '\'', '(', '[', '“', '‘', '«':
		return true
	}
	return false
}

var titleAbbreviations = []string{
	"mr", "mrs", "ms", "dr", "prof", "sr", "jr", "st", "mt",
	"vs", "cf", "approx", "fig", "figs", "eq", "eqs", "vol", "vols",
	"pp", "pg", "dept", "univ", "eds",
}

var numberAbbreviations = []string{
	"no", "nos", "ch", "sec", "p", "ed", "al", "etc",
	"co", "inc", "corp", "ltd", "llc",
	"jan", "feb", "mar", "apr", "jun", "jul", "aug", "sep", "sept", "oct", "nov", "dec",
	"mon", "tue", "wed", "thu", "fri", "sat", "sun",
	"rd", "ave", "blvd", "ln", "ct",
	"ft", "lbs", "oz", "kg", "km", "cm", "mm", "mi", "yd",
	"hr", "hrs",
}

func makeAbbreviationMap(abbrevs []string) map[string]bool {
	m := make(map[string]bool, len(abbrevs))
	for _, abbrev := range abbrevs {
		m[abbrev] = true
	}
	return m
}
