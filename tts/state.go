package tts

// SpeakerState is what a Speaker is physically doing.
type SpeakerState int

const (
	// SpeakerIdle indicates nothing is being spoken.
	SpeakerIdle SpeakerState = iota
	// SpeakerSpeaking indicates an utterance is in progress.
	SpeakerSpeaking
	// SpeakerPaused indicates an utterance is suspended.
	SpeakerPaused
)

// String returns the string representation of the state.
func (s SpeakerState) String() string {
	switch s {
	case SpeakerIdle:
		return "idle"
	case SpeakerSpeaking:
		return "speaking"
	case SpeakerPaused:
		return "paused"
	default:
		return "unknown"
	}
}

// Icon returns the status bar glyph for the state.
func (s SpeakerState) Icon() string {
	switch s {
	case SpeakerSpeaking:
		return "▶"
	case SpeakerPaused:
		return "⏸"
	default:
		return "■"
	}
}

// StatusKind classifies a status message.
type StatusKind int

const (
	// StatusInfo is an ordinary progress message.
	StatusInfo StatusKind = iota
	// StatusEnd marks normal termination at the end of the document.
	StatusEnd
	// StatusError is a reported failure.
	StatusError
)

// Status is the user-visible status line.
type Status struct {
	Kind    StatusKind
	Message string
}

// Status messages.
const (
	MsgNoReadableText = "no readable text"
	MsgEndOfDocument  = "end of document"
	MsgUnavailable    = "speech synthesis unavailable"
	MsgLoading        = "loading document"
	MsgPaused         = "paused"
	MsgStopped        = "stopped"
	MsgReady          = "ready"
)

// Snapshot is a point-in-time copy of the controller state.
type Snapshot struct {
	Cursor          int
	Total           int
	Intent          bool
	Rate            float64
	Voice           Voice
	Skip            int
	Loading         bool
	Speaker         SpeakerState
	Status          Status
	ControlsEnabled bool
}

// Progress returns how far through the document the cursor is (0.0 to 1.0).
func (s Snapshot) Progress() float64 {
	if s.Total == 0 {
		return 0
	}
	return float64(s.Cursor+1) / float64(s.Total)
}
