package main

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sahilm/fuzzy"
	"github.com/spf13/cobra"

	"github.com/txtparrot/parrot/tts"
)

var voicesCmd = &cobra.Command{
	Use:     "voices [QUERY]",
	Short:   "List the voices of the configured engine",
	Long:    paragraph(fmt.Sprintf("\nList the voices the engine offers. A %s narrows the list with fuzzy matching on ID, name and language.", keyword("query"))),
	Example: paragraph("parrot voices\nparrot voices --engine google en-GB\nparrot voices -e openai nova"),
	Args:    cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
		defer cancel()

		synth, err := openSynthesizer(ctx, settings)
		if err != nil {
			return err
		}
		defer synth.Close() //nolint:errcheck

		voices, err := synth.Voices(ctx)
		if err != nil {
			return fmt.Errorf("unable to list %s voices: %w", synth.Name(), err)
		}

		if len(args) == 1 {
			voices = filterVoices(voices, args[0])
		}
		if len(voices) == 0 {
			fmt.Fprintln(cmd.ErrOrStderr(), subtle("no voices found"))
			return nil
		}

		printVoices(cmd.OutOrStdout(), voices)
		return nil
	},
}

// voiceSource adapts a voice list for fuzzy matching.
type voiceSource []tts.Voice

func (v voiceSource) String(i int) string {
	return strings.Join([]string{v[i].ID, v[i].Name, v[i].Language, v[i].Gender}, " ")
}

func (v voiceSource) Len() int { return len(v) }

// filterVoices returns the voices matching query, best match first.
func filterVoices(voices []tts.Voice, query string) []tts.Voice {
	matches := fuzzy.FindFrom(query, voiceSource(voices))

	out := make([]tts.Voice, 0, len(matches))
	for _, m := range matches {
		out = append(out, voices[m.Index])
	}
	return out
}

func printVoices(w io.Writer, voices []tts.Voice) {
	idWidth := 0
	for _, v := range voices {
		idWidth = max(idWidth, len(v.ID))
	}

	for _, v := range voices {
		details := []string{}
		for _, s := range []string{v.Language, v.Gender} {
			if s != "" {
				details = append(details, s)
			}
		}
		line := keyword(fmt.Sprintf("%-*s", idWidth, v.ID))
		if v.Name != "" && v.Name != v.ID {
			line += "  " + v.Name
		}
		if len(details) > 0 {
			line += "  " + subtle(strings.Join(details, ", "))
		}
		fmt.Fprintln(w, line)
	}
}
