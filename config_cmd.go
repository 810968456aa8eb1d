package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/charmbracelet/x/editor"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const defaultConfig = `# speech engine: piper, gtts, google, clone, openai or mock
engine: "piper"
# engine used after repeated failures of the main engine (empty disables)
fallback: ""
fallback_after: 3
# voice ID, model path or clone user ID (empty uses the engine default)
voice: ""
# speech rate multiplier (0.1 to 10)
rate: 1.0
# segments moved by forward and backward
skip: 1
# segments synthesized ahead of the one being spoken
lookahead: 2
# word-wrap at width
width: 100
# mouse support
mouse: false

cache:
  enabled: true
  # dir: "~/.cache/parrot/audio"
  # sizes in megabytes
  max_size: 512
  memory_size: 64
  ttl: "720h"

piper:
  # binary: "/usr/local/bin/piper"
  # model: "~/voices/en_US-lessac-medium.onnx"
  timeout: "30s"

gtts:
  binary: "gtts-cli"
  language: "en"
  tld: "com"
  requests_per_minute: 50

# Credentials are read from GOOGLE_APPLICATION_CREDENTIALS.
google:
  language_code: "en-US"
  voice: "en-US-Chirp3-HD-Charon"

clone:
  # url: "http://localhost:5000"
  # user_id: "me"
  language: "EN"

openai:
  model: "gpt-4o-mini-tts"
  voice: "alloy"
  # api_key: "sk-..."
`

var (
	configCmd = &cobra.Command{
		Use:     "config",
		Hidden:  false,
		Short:   "Edit the parrot config file",
		Long:    paragraph(fmt.Sprintf("\n%s the parrot config file. We’ll use EDITOR to determine which editor to use. If the config file doesn't exist, it will be created.", keyword("Edit"))),
		Example: paragraph("parrot config\nparrot config show\nparrot config --config path/to/config.yml"),
		Args:    cobra.NoArgs,
		RunE:    editConfig,
	}

	configEditCmd = &cobra.Command{
		Use:   "edit",
		Short: "Edit the parrot config file",
		Args:  cobra.NoArgs,
		RunE:  editConfig,
	}

	configShowCmd = &cobra.Command{
		Use:   "show",
		Short: "Print the effective configuration",
		Long:  paragraph("\nPrint the configuration after merging the config file, PARROT_* environment variables and flags."),
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := settings
			if out.OpenAI.APIKey != "" {
				out.OpenAI.APIKey = "<redacted>"
			}

			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			if err := enc.Encode(out); err != nil {
				return fmt.Errorf("unable to encode config: %w", err)
			}
			if err := enc.Close(); err != nil {
				return fmt.Errorf("unable to encode config: %w", err)
			}
			if used := viper.ConfigFileUsed(); used != "" {
				fmt.Fprintln(cmd.ErrOrStderr(), subtle("# from "+used))
			}
			return nil
		},
	}
)

func editConfig(*cobra.Command, []string) error {
	if err := ensureConfigFile(); err != nil {
		return err
	}

	c, err := editor.Cmd("Parrot", configFile)
	if err != nil {
		return fmt.Errorf("unable to set config file: %w", err)
	}
	c.Stdin = os.Stdin
	c.Stdout = os.Stdout
	c.Stderr = os.Stderr
	if err := c.Run(); err != nil {
		return fmt.Errorf("unable to run command: %w", err)
	}

	fmt.Println("Wrote config file to:", configFile)
	return nil
}

func init() {
	configCmd.AddCommand(configEditCmd, configShowCmd)
}

func ensureConfigFile() error {
	if configFile == "" {
		configFile = viper.GetViper().ConfigFileUsed()
		if err := os.MkdirAll(filepath.Dir(configFile), 0o755); err != nil { //nolint:gosec
			return fmt.Errorf("could not write configuration file: %w", err)
		}
	}

	if ext := path.Ext(configFile); ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("'%s' is not a supported configuration type: use '%s' or '%s'", ext, ".yaml", ".yml")
	}

	if _, err := os.Stat(configFile); errors.Is(err, fs.ErrNotExist) {
		// File doesn't exist yet, create all necessary directories and
		// write the default config file
		if err := os.MkdirAll(filepath.Dir(configFile), 0o700); err != nil {
			return fmt.Errorf("unable create directory: %w", err)
		}

		f, err := os.Create(configFile)
		if err != nil {
			return fmt.Errorf("unable to create config file: %w", err)
		}
		defer func() { _ = f.Close() }()

		if _, err := f.WriteString(defaultConfig); err != nil {
			return fmt.Errorf("unable to write config file: %w", err)
		}
	} else if err != nil { // some other error occurred
		return fmt.Errorf("unable to stat config file: %w", err)
	}
	return nil
}
