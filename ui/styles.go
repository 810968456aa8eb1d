package ui

import "github.com/charmbracelet/lipgloss"

const ellipsis = "…"

var (
	cream     = lipgloss.AdaptiveColor{Light: "#FFFDF5", Dark: "#FFFDF5"}
	fuchsia   = lipgloss.Color("#EE6FF8")
	green     = lipgloss.Color("#04B575")
	red       = lipgloss.AdaptiveColor{Light: "#FF4672", Dark: "#ED567A"}
	faintRed  = lipgloss.AdaptiveColor{Light: "#FF6F91", Dark: "#C74665"}
	gray      = lipgloss.AdaptiveColor{Light: "#909090", Dark: "#626262"}
	mintGreen = lipgloss.AdaptiveColor{Light: "#89F0CB", Dark: "#89F0CB"}
	darkGreen = lipgloss.AdaptiveColor{Light: "#1C8760", Dark: "#1C8760"}

	statusBarNoteFg = lipgloss.AdaptiveColor{Light: "#656565", Dark: "#7D7D7D"}
	statusBarBg     = lipgloss.AdaptiveColor{Light: "#E6E6E6", Dark: "#242424"}

	logoStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(fuchsia).
			Bold(true)

	statusBarNoteStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(statusBarBg).
				Render

	statusBarPosStyle = lipgloss.NewStyle().
				Foreground(lipgloss.AdaptiveColor{Light: "#949494", Dark: "#5A5A5A"}).
				Background(statusBarBg).
				Render

	statusBarHelpStyle = lipgloss.NewStyle().
				Foreground(statusBarNoteFg).
				Background(lipgloss.AdaptiveColor{Light: "#DCDCDC", Dark: "#323232"}).
				Render

	statusBarMessageStyle = lipgloss.NewStyle().
				Foreground(mintGreen).
				Background(darkGreen).
				Render

	statusBarErrorStyle = lipgloss.NewStyle().
				Foreground(cream).
				Background(faintRed).
				Render

	titleStyle = lipgloss.NewStyle().
			Foreground(fuchsia).
			Bold(true)

	pageStyle = lipgloss.NewStyle().
			Foreground(gray)

	spinnerStyle = lipgloss.NewStyle().
			Foreground(green)

	errorTitleStyle = lipgloss.NewStyle().
			Foreground(cream).
			Background(red).
			Padding(0, 1)

	highlightStyle = lipgloss.NewStyle().
			Background(lipgloss.AdaptiveColor{Light: "#FFF3A3", Dark: "#5C4B00"}).
			Foreground(lipgloss.AdaptiveColor{Light: "#1A1A1A", Dark: "#FFFDF5"})

	highContrastHighlightStyle = lipgloss.NewStyle().
					Background(lipgloss.Color("226")).
					Foreground(lipgloss.Color("0")).
					Bold(true)
)

func logoView() string {
	return logoStyle.Render(" Parrot ")
}
