package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/txtparrot/parrot/internal/voiceclone"
)

var (
	cloneUser string
	cloneURL  string

	cloneCmd = &cobra.Command{
		Use:   "clone AUDIO",
		Short: "Upload a voice sample to the voice-clone server",
		Long: paragraph(fmt.Sprintf("\nUpload a voice sample so the %s engine can read with that voice. "+
			"The user ID becomes the voice ID.", keyword("clone"))),
		Example: paragraph("parrot clone sample.wav --user me\nparrot --engine clone --voice me paper.pdf"),
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			url := settings.Clone.URL
			if cmd.Flags().Changed("url") {
				url = cloneURL
			}
			if url == "" {
				return fmt.Errorf("%w: set clone.url or pass --url", voiceclone.ErrNoURL)
			}
			user := cloneUser
			if user == "" {
				user = settings.Clone.UserID
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Minute)
			defer cancel()

			msg, err := voiceclone.New(url).Clone(ctx, user, args[0])
			var apiErr *voiceclone.APIError
			if errors.As(err, &apiErr) {
				return fmt.Errorf("server rejected the sample: %s", errorStyle(apiErr.Message))
			}
			if err != nil {
				return err
			}

			if msg == "" {
				msg = "voice cloned"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", keyword(user), msg)
			return nil
		},
	}
)

func init() {
	cloneCmd.Flags().StringVarP(&cloneUser, "user", "u", "", "user ID to clone the voice for (default clone.user_id)")
	cloneCmd.Flags().StringVar(&cloneURL, "url", "", "voice-clone server URL (default clone.url)")
}
