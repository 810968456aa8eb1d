package main

import (
	"errors"
	"fmt"
	"os"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/txtparrot/parrot/tts"
	"github.com/txtparrot/parrot/tts/audio"
	"github.com/txtparrot/parrot/tts/engines"
)

var (
	prefetchJobs   int
	prefetchOutput string

	prefetchCmd = &cobra.Command{
		Use:     "prefetch SOURCE",
		Short:   "Synthesize a whole document into the audio cache",
		Long:    paragraph(fmt.Sprintf("\nSynthesize every segment of a document %s so it can later be read without waiting on the engine.", keyword("ahead of time"))),
		Example: paragraph("parrot prefetch paper.pdf\nparrot prefetch --engine gtts --jobs 2 notes.md\nparrot prefetch -o paper.wav paper.pdf"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !settings.Cache.Enabled && prefetchOutput == "" {
				return errors.New("the audio cache is disabled: set cache.enabled to true")
			}

			ctx := cmd.Context()
			_, segments, err := loadSegments(ctx, args[0])
			if err != nil {
				return err
			}

			synth, err := openSynthesizer(ctx, settings)
			if err != nil {
				return err
			}
			defer synth.Close() //nolint:errcheck

			cached, ok := synth.Synthesizer.(*engines.CachedSynthesizer)
			if !ok && prefetchOutput == "" {
				return errors.New("the audio cache could not be opened")
			}
			isCached := func(text string, so tts.SynthesisOptions) bool {
				return ok && cached.Cached(text, so)
			}

			opts := settings.ControllerConfig()
			so := tts.SynthesisOptions{Rate: opts.Rate, Voice: opts.Voice}
			start := time.Now()

			var done, skipped, failed atomic.Int64
			var size atomic.Uint64
			parts := make([]*tts.Audio, len(segments))

			g, ctx := errgroup.WithContext(ctx)
			g.SetLimit(max(prefetchJobs, 1))
			for i, s := range segments {
				hit := isCached(s.Text, so)
				if hit {
					skipped.Add(1)
					if prefetchOutput == "" {
						continue
					}
				}
				g.Go(func() error {
					a, err := synth.Synthesize(ctx, s.Text, so)
					if err != nil {
						if errors.Is(err, ctx.Err()) {
							return err
						}
						failed.Add(1)
						log.Warn("prefetch failed", "index", s.Index, "err", err)
						return nil
					}
					parts[i] = a
					if hit {
						return nil
					}
					size.Add(uint64(len(a.Data)))
					n := done.Add(1)
					log.Debug("prefetched", "index", s.Index, "done", n)
					return nil
				})
			}
			if err := g.Wait(); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "%s %d segments synthesized (%s), %d already cached",
				keyword("✓"), done.Load(), humanize.IBytes(size.Load()), skipped.Load())
			if n := failed.Load(); n > 0 {
				fmt.Fprint(cmd.OutOrStdout(), errorStyle(fmt.Sprintf(", %d failed", n)))
			}
			fmt.Fprintln(cmd.OutOrStdout(), subtle(" in "+time.Since(start).Round(time.Millisecond).String()))

			if prefetchOutput == "" {
				return nil
			}
			if err := exportWAV(prefetchOutput, parts); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s wrote %s\n", keyword("✓"), prefetchOutput)
			return nil
		},
	}
)

func init() {
	prefetchCmd.Flags().IntVarP(&prefetchJobs, "jobs", "j", 4, "concurrent syntheses")
	prefetchCmd.Flags().StringVarP(&prefetchOutput, "output", "o", "", "also write the whole document to this WAV file")
}

// exportWAV writes the parts back to back as one WAV file. Missing parts
// are segments that failed to synthesize and are left out.
func exportWAV(path string, parts []*tts.Audio) error {
	var pcm []byte
	for _, p := range parts {
		if p != nil {
			pcm = append(pcm, p.Data...)
		}
	}
	if len(pcm) == 0 {
		return tts.ErrEmptyAudio
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("unable to create %s: %w", path, err)
	}
	if err := audio.EncodeWAV(f, tts.NewAudio(pcm)); err != nil {
		_ = f.Close()
		return fmt.Errorf("unable to write %s: %w", path, err)
	}
	return f.Close()
}
