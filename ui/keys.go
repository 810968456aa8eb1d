package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Play     key.Binding
	Pause    key.Binding
	Stop     key.Binding
	Forward  key.Binding
	Backward key.Binding
	Faster   key.Binding
	Slower   key.Binding
	Voice    key.Binding
	SkipMore key.Binding
	SkipLess key.Binding
	NextPage key.Binding
	PrevPage key.Binding
	Copy     key.Binding
	Reload   key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func newKeyMap() keyMap {
	return keyMap{
		Play:     key.NewBinding(key.WithKeys(" "), key.WithHelp("space", "play/pause")),
		Pause:    key.NewBinding(key.WithKeys("p"), key.WithHelp("p", "pause")),
		Stop:     key.NewBinding(key.WithKeys("s"), key.WithHelp("s", "stop")),
		Forward:  key.NewBinding(key.WithKeys("right", "l"), key.WithHelp("→/l", "forward")),
		Backward: key.NewBinding(key.WithKeys("left", "h"), key.WithHelp("←/h", "backward")),
		Faster:   key.NewBinding(key.WithKeys("+", "="), key.WithHelp("+", "faster")),
		Slower:   key.NewBinding(key.WithKeys("-", "_"), key.WithHelp("-", "slower")),
		Voice:    key.NewBinding(key.WithKeys("v"), key.WithHelp("v", "next voice")),
		SkipMore: key.NewBinding(key.WithKeys("]"), key.WithHelp("]", "skip more")),
		SkipLess: key.NewBinding(key.WithKeys("["), key.WithHelp("[", "skip less")),
		NextPage: key.NewBinding(key.WithKeys("n"), key.WithHelp("n", "next page")),
		PrevPage: key.NewBinding(key.WithKeys("N"), key.WithHelp("N", "previous page")),
		Copy:     key.NewBinding(key.WithKeys("y"), key.WithHelp("y", "copy segment")),
		Reload:   key.NewBinding(key.WithKeys("r"), key.WithHelp("r", "reload")),
		Help:     key.NewBinding(key.WithKeys("?"), key.WithHelp("?", "help")),
		Quit:     key.NewBinding(key.WithKeys("q", "ctrl+c"), key.WithHelp("q", "quit")),
	}
}

// playback reports the bindings that drive the controller. They are
// ignored while controls are disabled.
func (k keyMap) playback() []key.Binding {
	return []key.Binding{
		k.Play, k.Pause, k.Stop, k.Forward, k.Backward,
		k.Faster, k.Slower, k.Voice, k.SkipMore, k.SkipLess,
		k.NextPage, k.PrevPage, k.Copy,
	}
}

// ShortHelp implements help.KeyMap.
func (k keyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Play, k.Forward, k.Backward, k.Help, k.Quit}
}

// FullHelp implements help.KeyMap.
func (k keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Play, k.Pause, k.Stop, k.Forward, k.Backward},
		{k.Faster, k.Slower, k.Voice, k.SkipMore, k.SkipLess},
		{k.NextPage, k.PrevPage, k.Copy, k.Reload, k.Help, k.Quit},
	}
}
