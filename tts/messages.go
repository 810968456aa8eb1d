package tts

import (
	tea "github.com/charmbracelet/bubbletea"
)

// Messages for Bubble Tea communication between TTS and UI.

// SpeakerEventMsg carries a speaker notification into the Update loop.
type SpeakerEventMsg struct {
	Event Event
}

// SpeakerClosedMsg indicates the speaker's event channel was closed.
type SpeakerClosedMsg struct{}

// WaitForEvent creates a command that blocks until the speaker reports
// the next event. Re-issue it after every SpeakerEventMsg.
func WaitForEvent(s Speaker) tea.Cmd {
	if s == nil {
		return nil
	}
	events := s.Events()
	return func() tea.Msg {
		ev, ok := <-events
		if !ok {
			return SpeakerClosedMsg{}
		}
		return SpeakerEventMsg{Event: ev}
	}
}

// DispatchEvent hands a SpeakerEventMsg to the controller and returns the
// command waiting for the following event.
func DispatchEvent(c *Controller, s Speaker, msg SpeakerEventMsg) tea.Cmd {
	c.HandleEvent(msg.Event)
	return WaitForEvent(s)
}
