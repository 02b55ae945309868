package output

import (
	"github.com/charmbracelet/lipgloss"
)

// Colors
var (
	ColorApplied = lipgloss.Color("#04B575") // green
	ColorPending = lipgloss.Color("#FFB800") // yellow
	ColorFailed  = lipgloss.Color("#FF4040") // red
	ColorInfo    = lipgloss.Color("#00BFFF") // cyan
	ColorMuted   = lipgloss.Color("#666666")
	ColorLabel   = lipgloss.Color("#AAAAAA")
)

func box(border lipgloss.TerminalColor) lipgloss.Style {
	return lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(0, 1)
}

// Box styles
var (
	BoxStyle        = box(ColorInfo)
	AppliedBoxStyle = box(ColorApplied)
	PendingBoxStyle = box(ColorPending)
	FailedBoxStyle  = box(ColorFailed)
)

// Text styles
var (
	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(ColorInfo)

	LabelStyle = lipgloss.NewStyle().
			Foreground(ColorLabel).
			Width(16)

	ValueStyle = lipgloss.NewStyle()

	AppliedText = lipgloss.NewStyle().
			Foreground(ColorApplied).
			Bold(true)

	PendingText = lipgloss.NewStyle().
			Foreground(ColorPending).
			Bold(true)

	FailedText = lipgloss.NewStyle().
			Foreground(ColorFailed).
			Bold(true)

	MutedText = lipgloss.NewStyle().
			Foreground(ColorMuted)

	SQLStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#E0E0E0"))
)

// Indicators
const (
	IconApplied = "✅"
	IconPending = "•"
	IconFailed  = "❌"
	IconSkipped = "○"
)
