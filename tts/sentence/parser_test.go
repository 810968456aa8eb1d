package sentence

import (
	"strings"
	"testing"
	"time"
)

func TestNewParser(t *testing.T) {
	parser := NewParser()
	if parser == nil {
		t.Fatal("NewParser returned nil")
	}
	if parser.MinLength != DefaultMinLength {
		t.Errorf("Expected MinLength=%d, got %d", DefaultMinLength, parser.MinLength)
	}
}

func TestParsePlainText(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "simple sentences",
			input:    "Hello world. How are you? I'm fine!",
			expected: []string{"Hello world.", "How are you?", "I'm fine!"},
		},
		{
			name:     "sentences with newlines",
			input:    "First sentence.\nSecond sentence.\nThird sentence.",
			expected: []string{"First sentence.", "Second sentence.", "Third sentence."},
		},
		{
			name:     "sentences with multiple spaces",
			input:    "First.  Second.   Third.",
			expected: []string{"First.", "Second.", "Third."},
		},
		{
			name:     "single letters",
			input:    "A. B. C.",
			expected: []string{"A.", "B.", "C."},
		},
		{
			name:     "sentence with ellipsis",
			input:    "Wait... I'm thinking. Done!",
			expected: []string{"Wait... I'm thinking.", "Done!"},
		},
		{
			name:     "mixed punctuation",
			input:    "Really? Yes! Of course. Why not?!",
			expected: []string{"Really?", "Yes!", "Of course.", "Why not?!"},
		},
		{
			name:     "quoted sentences",
			input:    `She said "Hello." Then she left.`,
			expected: []string{`She said "Hello."`, "Then she left."},
		},
		{
			name:     "parenthetical sentences",
			input:    "Main point (see appendix). Next point.",
			expected: []string{"Main point (see appendix).", "Next point."},
		},
		{
			name:     "no terminal punctuation",
			input:    "A heading without a period",
			expected: []string{"A heading without a period"},
		},
		{
			name:     "wrapped lines are joined",
			input:    "This sentence was\nwrapped across   lines. Next.",
			expected: []string{"This sentence was wrapped across lines.", "Next."},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentences := parser.Parse(tt.input)

			if len(sentences) != len(tt.expected) {
				t.Errorf("Expected %d sentences, got %d", len(tt.expected), len(sentences))
				for i, s := range sentences {
					t.Logf("  [%d]: %q", i, s.Text)
				}
				return
			}

			for i, expected := range tt.expected {
				if sentences[i].Text != expected {
					t.Errorf("Sentence %d: expected %q, got %q", i, expected, sentences[i].Text)
				}
				if sentences[i].Index != i {
					t.Errorf("Sentence %d: index %d", i, sentences[i].Index)
				}
			}
		})
	}
}

func TestAbbreviationsAndNumbers(t *testing.T) {
	parser := NewParser()

	tests := []struct {
		name  string
		input string
		want  int
	}{
		{"title", "Mr. Smith went to Washington. He stayed.", 2},
		{"doctor", "Dr. Jones is here. She is early.", 2},
		{"latin", "Bring fruit, e.g. apples. Thanks.", 2},
		{"country", "He moved to the U.S. in May. It rained.", 2},
		{"degree", "She has a Ph.D. from MIT. Impressive.", 2},
		{"decimal", "Pi is about 3.14 today. Tomorrow too.", 2},
		{"version", "Version 2.0.1 shipped. Upgrade now.", 2},
		{"lowercase after period", "This ends. but this continues here.", 1},
		{"word sat", "The cat sat. Then it slept.", 2},
		{"word sun", "We watched the sun. It was bright.", 2},
		{"word wed", "They finally wed. Everyone cheered.", 2},
		{"word co", "He called the co. The line was busy.", 2},
		{"month before day", "It opens Mar. 3 at noon. Come early.", 2},
		{"weekday before date", "Meet me Sat. 14 June. Bring snacks.", 2},
		{"question before lowercase", "Wait? no way.", 1},
		{"exclamation before lowercase", "Oh! what a day. Truly.", 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sentences := parser.Parse(tt.input)
			if len(sentences) != tt.want {
				t.Errorf("Parse(%q) = %d sentences, want %d", tt.input, len(sentences), tt.want)
				for i, s := range sentences {
					t.Logf("  [%d]: %q", i, s.Text)
				}
			}
		})
	}
}

func TestParseEmpty(t *testing.T) {
	parser := NewParser()

	for _, input := range []string{"", "   ", "\n\n\t", ". . ."} {
		if got := parser.Parse(input); len(got) != 0 {
			t.Errorf("Parse(%q) = %v, want none", input, got)
		}
	}
}

func TestMinLength(t *testing.T) {
	parser := NewParser()
	parser.MinLength = 5

	sentences := parser.Parse("Hi. Hello there. Ok!")
	if len(sentences) != 1 || sentences[0].Text != "Hello there." {
		t.Errorf("unexpected sentences: %+v", sentences)
	}
	if sentences[0].Index != 0 {
		t.Errorf("indices must be contiguous after filtering, got %d", sentences[0].Index)
	}
}

func TestOffsets(t *testing.T) {
	parser := NewParser()
	input := "  Ünïcode first.  Second one."

	sentences := parser.Parse(input)
	if len(sentences) != 2 {
		t.Fatalf("expected 2 sentences, got %d", len(sentences))
	}
	for _, s := range sentences {
		if got := input[s.Start:s.End]; got != s.Text {
			t.Errorf("input[%d:%d] = %q, want %q", s.Start, s.End, got, s.Text)
		}
	}
}

func TestParsePages(t *testing.T) {
	parser := NewParser()
	pages := []string{
		"Page one starts. It ends here.",
		"",
		"Page three.",
	}

	sentences := parser.ParsePages(pages)
	if len(sentences) != 3 {
		t.Fatalf("expected 3 sentences, got %d", len(sentences))
	}

	wantPages := []int{1, 1, 3}
	for i, s := range sentences {
		if s.Index != i {
			t.Errorf("sentence %d has index %d", i, s.Index)
		}
		if s.Page != wantPages[i] {
			t.Errorf("sentence %d on page %d, want %d", i, s.Page, wantPages[i])
		}
	}
	if s := sentences[2]; pages[2][s.Start:s.End] != s.Text {
		t.Errorf("page-relative offsets wrong: %+v", s)
	}
}

func TestEstimateDuration(t *testing.T) {
	tests := []struct {
		text string
		want time.Duration
	}{
		{"", 0},
		{"one", 400 * time.Millisecond},
		{strings.Repeat("word ", 150), time.Minute},
	}
	for _, tt := range tests {
		if got := EstimateDuration(tt.text); got != tt.want {
			t.Errorf("EstimateDuration(%d words) = %v, want %v", len(strings.Fields(tt.text)), got, tt.want)
		}
	}

	sentences := NewParser().Parse("Five words are right here.")
	if sentences[0].Duration != 2*time.Second {
		t.Errorf("sentence duration = %v, want 2s", sentences[0].Duration)
	}
}

func BenchmarkParse(b *testing.B) {
	parser := NewParser()
	text := strings.Repeat("The quick brown fox jumps over the lazy dog. Is it fast? Yes! ", 200)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		parser.Parse(text)
	}
}
