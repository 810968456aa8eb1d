package main

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	gap "github.com/muesli/go-app-paths"
)

func getLogFilePath() (string, error) {
	dir, err := gap.NewScope(gap.User, "parrot").CacheDir()
	if err != nil {
		return "", err //nolint:wrapcheck
	}
	return filepath.Join(dir, "parrot.log"), nil
}

// setupLog sends log output to the log file in the user cache dir and
// returns a function closing it. Logging is discarded when the file cannot
// be opened.
func setupLog() func() error {
	log.SetOutput(io.Discard)
	noop := func() error { return nil }

	logFile, err := getLogFilePath()
	if err != nil {
		return noop
	}
	if err := os.MkdirAll(filepath.Dir(logFile), 0o755); err != nil { //nolint:gosec
		return noop
	}
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644) //nolint:gosec
	if err != nil {
		return noop
	}
	log.SetOutput(f)
	log.SetLevel(log.DebugLevel)
	log.SetReportTimestamp(true)
	return f.Close
}
