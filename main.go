// Package main provides the entry point for the parrot CLI application.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/txtparrot/parrot/internal/document"
)

var (
	// Version as provided by goreleaser.
	Version = ""
	// CommitSHA as provided by goreleaser.
	CommitSHA = ""

	configFile string
	settings   Settings

	headless  bool
	startPage int
	showAll   bool

	rootCmd = &cobra.Command{
		Use:   "parrot [SOURCE|DIR]",
		Short: "Read documents aloud in the terminal",
		Long: paragraph(
			fmt.Sprintf("\nRead PDFs, Markdown, text files and web pages %s, one sentence at a time.", keyword("aloud")),
		),
		Example: paragraph("parrot paper.pdf\nparrot https://go.dev/blog/intro\nparrot --engine gtts --rate 1.5 notes.md\ncat notes.txt | parrot --headless"),
		SilenceErrors:    false,
		SilenceUsage:     true,
		TraverseChildren: true,
		Args:             cobra.MaximumNArgs(1),
		ValidArgsFunction: func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
			return nil, cobra.ShellCompDirectiveDefault
		},
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return validateOptions(cmd)
		},
		RunE: execute,
	}
)

func validateOptions(cmd *cobra.Command) error {
	if cmd.Flags().Changed("config") {
		viper.SetConfigFile(configFile)
		if err := viper.ReadInConfig(); err != nil {
			return fmt.Errorf("unable to read config file %s: %w", configFile, err)
		}
	}

	s, err := loadSettings(viper.GetViper())
	if err != nil {
		return err
	}
	settings = s
	log.Debug("settings loaded", "engine", s.Engine, "voice", s.Voice, "rate", s.Rate, "config", viper.ConfigFileUsed())
	return nil
}

func stdinIsPipe() (bool, error) {
	stat, err := os.Stdin.Stat()
	if err != nil {
		return false, fmt.Errorf("unable to open file: %w", err)
	}
	if stat.Mode()&os.ModeCharDevice == 0 || stat.Size() > 0 {
		return true, nil
	}
	return false, nil
}

// resolveSource turns the command line argument into a document source.
// Without an argument stdin is read when it is a pipe, otherwise the
// current directory is searched.
func resolveSource(ctx context.Context, args []string) (string, error) {
	if len(args) == 0 {
		if yes, err := stdinIsPipe(); err != nil {
			return "", err
		} else if yes {
			return "-", nil
		}
		args = []string{"."}
	}

	arg := args[0]
	if arg == "-" || document.Detect(arg) == document.KindURL {
		return arg, nil
	}

	info, err := os.Stat(arg)
	if err != nil || !info.IsDir() {
		// Let the loader report missing files.
		return arg, nil
	}

	found, err := document.FindDocuments(ctx, arg, showAll, nil)
	if err != nil {
		return "", fmt.Errorf("unable to search %s: %w", arg, err)
	}
	if len(found) == 0 {
		return "", fmt.Errorf("no readable documents in %s", arg)
	}
	log.Debug("picked document from directory", "dir", arg, "path", found[0].Path, "found", len(found))
	return found[0].Path, nil
}

func execute(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	source, err := resolveSource(ctx, args)
	if err != nil {
		return err
	}

	if headless {
		return runHeadless(ctx, source, cmd.ErrOrStderr())
	}
	return runTUI(ctx, source)
}

func main() {
	closer := setupLog()
	if err := rootCmd.Execute(); err != nil {
		_ = closer()
		os.Exit(1)
	}
	_ = closer()
}

func init() {
	tryLoadConfigFromDefaultPlaces()
	if len(CommitSHA) >= 7 {
		vt := rootCmd.VersionTemplate()
		rootCmd.SetVersionTemplate(vt[:len(vt)-1] + " (" + CommitSHA[0:7] + ")\n")
	}
	if Version == "" {
		Version = "unknown (built from source)"
	}
	rootCmd.Version = Version
	rootCmd.InitDefaultCompletionCmd()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", configFile, "config file")
	rootCmd.PersistentFlags().StringP("engine", "e", "", "speech engine (piper, gtts, google, clone, openai, mock)")
	rootCmd.PersistentFlags().StringP("voice", "v", "", "voice ID, model path or clone user ID")
	rootCmd.PersistentFlags().Float64P("rate", "r", 0, "speech rate multiplier")
	rootCmd.Flags().IntP("skip", "k", 0, "segments moved by forward and backward")
	rootCmd.Flags().IntVarP(&startPage, "page", "p", 0, "start reading at this page")
	rootCmd.Flags().BoolVar(&headless, "headless", false, "read aloud without the TUI")
	rootCmd.Flags().BoolVarP(&showAll, "all", "a", false, "include ignored files when searching a directory")
	rootCmd.Flags().UintP("width", "w", 0, "word-wrap at width")
	rootCmd.Flags().BoolP("mouse", "m", false, "enable mouse wheel")
	_ = rootCmd.Flags().MarkHidden("mouse")

	// Config bindings
	_ = viper.BindPFlag("engine", rootCmd.PersistentFlags().Lookup("engine"))
	_ = viper.BindPFlag("voice", rootCmd.PersistentFlags().Lookup("voice"))
	_ = viper.BindPFlag("rate", rootCmd.PersistentFlags().Lookup("rate"))
	_ = viper.BindPFlag("skip", rootCmd.Flags().Lookup("skip"))
	_ = viper.BindPFlag("width", rootCmd.Flags().Lookup("width"))
	_ = viper.BindPFlag("mouse", rootCmd.Flags().Lookup("mouse"))

	setDefaults(viper.GetViper())

	rootCmd.AddCommand(
		configCmd,
		manCmd,
		segmentsCmd,
		voicesCmd,
		cloneCmd,
		prefetchCmd,
		cacheCmd,
	)
}

func tryLoadConfigFromDefaultPlaces() {
	scope := gap.NewScope(gap.User, "parrot")
	dirs, err := scope.ConfigDirs()
	if err != nil {
		fmt.Println("Could not load find configuration directory.")
		os.Exit(1)
	}

	if c := os.Getenv("XDG_CONFIG_HOME"); c != "" {
		dirs = append([]string{filepath.Join(c, "parrot")}, dirs...)
	}

	if c := os.Getenv("PARROT_CONFIG_HOME"); c != "" {
		dirs = append([]string{c}, dirs...)
	}

	for _, v := range dirs {
		viper.AddConfigPath(v)
	}

	viper.SetConfigName("parrot")
	viper.SetConfigType("yaml")
	viper.SetEnvPrefix("parrot")
	viper.SetEnvKeyReplacer(envKeyReplacer)
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			log.Warn("Could not parse configuration file", "err", err)
		}
	}

	if used := viper.ConfigFileUsed(); used != "" {
		log.Debug("Using configuration file", "path", used)
		configFile = used
		return
	}

	configFile = filepath.Join(dirs[0], "parrot.yml")
	if err := ensureConfigFile(); err != nil {
		log.Error("Could not create default configuration", "error", err)
	}
}
