package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/txtparrot/parrot/tts"
)

var segmentsCmd = &cobra.Command{
	Use:     "segments SOURCE",
	Short:   "Print the segments a document is read in",
	Long:    paragraph(fmt.Sprintf("\nSplit a document into sentence segments and %s them, grouped by page.", keyword("print"))),
	Example: paragraph("parrot segments paper.pdf\nparrot segments README.md | less"),
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, segments, err := loadSegments(cmd.Context(), args[0])
		if err != nil {
			return err
		}

		md := segmentsMarkdown(doc.Title, segments)
		fd := int(os.Stdout.Fd()) //nolint:gosec
		if !term.IsTerminal(fd) {
			_, err := fmt.Fprint(cmd.OutOrStdout(), md)
			return err
		}

		width := int(settings.Width) //nolint:gosec
		if w, _, err := term.GetSize(fd); err == nil && (width == 0 || w < width) {
			width = w
		}

		r, err := glamour.NewTermRenderer(
			glamour.WithColorProfile(lipgloss.ColorProfile()),
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(width),
		)
		if err != nil {
			return fmt.Errorf("unable to create renderer: %w", err)
		}
		out, err := r.Render(md)
		if err != nil {
			return fmt.Errorf("unable to render segments: %w", err)
		}
		_, err = fmt.Fprint(cmd.OutOrStdout(), out)
		return err
	},
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`,
	"`", "\\`",
	"*", `\*`,
	"_", `\_`,
	"#", `\#`,
	"[", `\[`,
	"]", `\]`,
	"<", `\<`,
)

// segmentsMarkdown lists segments as Markdown, one heading per page.
func segmentsMarkdown(title string, segments []tts.Sentence) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n", markdownEscaper.Replace(title))

	page := -1
	for _, s := range segments {
		if s.Page != page {
			page = s.Page
			fmt.Fprintf(&b, "\n## Page %d\n\n", page)
		}
		fmt.Fprintf(&b, "%d. %s\n", s.Index+1, markdownEscaper.Replace(s.Text))
	}
	return b.String()
}
