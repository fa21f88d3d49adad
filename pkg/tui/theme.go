package tui

import "github.com/charmbracelet/lipgloss"

type theme struct {
	Header     lipgloss.Style
	Frame      lipgloss.Style
	Display    lipgloss.Style
	Key        lipgloss.Style
	Operator   lipgloss.Style
	Muted      lipgloss.Style
	Accent     lipgloss.Style
	Success    lipgloss.Style
	Danger     lipgloss.Style
	Input      lipgloss.Style
	Overlay    lipgloss.Style
	OverlayBox lipgloss.Style
}

func defaultTheme() theme {
	accent := lipgloss.Color("#FF9F0A")
	secondary := lipgloss.Color("#7D7D7D")
	keyFace := lipgloss.Color("#D4D4D2")
	success := lipgloss.Color("#30D158")
	danger := lipgloss.Color("#FF453A")

	return theme{
		Header: lipgloss.NewStyle().
			Bold(true).
			Foreground(keyFace),
		Frame: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondary).
			Padding(0, 1),
		Display: lipgloss.NewStyle().
			Bold(true).
			Width(displayWidth).
			Align(lipgloss.Right).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(secondary),
		Key: lipgloss.NewStyle().
			Width(keyWidth).
			Align(lipgloss.Center).
			Foreground(keyFace),
		Operator: lipgloss.NewStyle().
			Width(keyWidth).
			Align(lipgloss.Center).
			Bold(true).
			Foreground(accent),
		Muted: lipgloss.NewStyle().
			Foreground(secondary),
		Accent: lipgloss.NewStyle().
			Foreground(accent),
		Success: lipgloss.NewStyle().
			Foreground(success),
		Danger: lipgloss.NewStyle().
			Foreground(danger),
		Input: lipgloss.NewStyle().
			Foreground(accent),
		Overlay: lipgloss.NewStyle().
			Foreground(secondary),
		OverlayBox: lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(accent).
			Padding(0, 1),
	}
}
