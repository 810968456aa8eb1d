package ui

import "github.com/txtparrot/parrot/tts"

// Config contains TUI-specific configuration.
type Config struct {
	// Document to read: a file path, URL or "-".
	Source string

	// 1-based page to start on, 0 for the beginning.
	Page int

	// Wrap text at this width; 0 uses the terminal width.
	MaxWidth uint

	// Engine name shown in the status bar.
	Engine string

	// Voices cycled through with the voice key. Empty keeps the engine
	// default.
	Voices []tts.Voice

	EnableMouse bool

	// Read from the environment
	GlamourStyle string `env:"GLAMOUR_STYLE"         envDefault:"auto"`
	HighContrast bool   `env:"PARROT_HIGH_CONTRAST"`
	NoWatch      bool   `env:"PARROT_NO_WATCH"`
}
