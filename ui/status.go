package ui

import (
	"fmt"
	"strings"

	"github.com/txtparrot/parrot/tts"
)

// statusNote is the status bar summary of the reader: play state, segment
// position, page, rate, voice, skip amount and the controller's message.
func statusNote(snap tts.Snapshot, page, pages int) string {
	if snap.Loading {
		return tts.MsgLoading
	}

	parts := []string{snap.Speaker.Icon()}
	if snap.Total > 0 {
		parts = append(parts, fmt.Sprintf("segment %d/%d", snap.Cursor+1, snap.Total))
	}
	if pages > 1 {
		parts = append(parts, fmt.Sprintf("page %d/%d", page, pages))
	}
	parts = append(parts,
		tts.FormatRate(snap.Rate),
		snap.Voice.Label(),
		fmt.Sprintf("skip %d", snap.Skip),
	)
	if msg := snap.Status.Message; msg != "" {
		parts = append(parts, msg)
	}
	return strings.Join(parts, " · ")
}

// positionNote is the compact progress indicator on the right of the
// status bar.
func positionNote(snap tts.Snapshot) string {
	if snap.Total == 0 {
		return " --% "
	}
	return fmt.Sprintf(" %3.f%% ", snap.Progress()*100)
}
