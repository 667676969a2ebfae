// Package theme is the TUI palette. Colors adapt to light and dark
// terminals; every panel draws from here so the views stay consistent.
package theme

import "github.com/charmbracelet/lipgloss"

var (
	Violet = lipgloss.AdaptiveColor{Light: "#6D28D9", Dark: "#7C3AED"}
	Green  = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#10B981"}
	Red    = lipgloss.AdaptiveColor{Light: "#B91C1C", Dark: "#EF4444"}
	Amber  = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#F59E0B"}
	Sky    = lipgloss.AdaptiveColor{Light: "#1D4ED8", Dark: "#60A5FA"}
	Slate  = lipgloss.AdaptiveColor{Light: "#4B5563", Dark: "#6B7280"}
	Ink    = lipgloss.AdaptiveColor{Light: "#111827", Dark: "#FFFFFF"}
	Edge   = lipgloss.AdaptiveColor{Light: "#D1D5DB", Dark: "#374151"}
)

var (
	Panel = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(Edge).Padding(0, 1)

	// Heading titles a panel; Banner is the app title bar.
	Heading = lipgloss.NewStyle().Bold(true).Foreground(Violet)
	Banner  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFFFFF")).Background(Violet).Padding(0, 2)
	Alert   = lipgloss.NewStyle().Bold(true).Foreground(Red)

	Up     = lipgloss.NewStyle().Foreground(Green)
	Down   = lipgloss.NewStyle().Foreground(Red)
	Faint  = lipgloss.NewStyle().Foreground(Slate)
	Strong = lipgloss.NewStyle().Bold(true).Foreground(Ink)
	Accent = lipgloss.NewStyle().Foreground(Sky)

	Good    = Up.Bold(true)
	Bad     = Down.Bold(true)
	Caution = lipgloss.NewStyle().Bold(true).Foreground(Amber)

	Help = Faint.Padding(0, 1)
)

// Signed picks Up or Down by sign; zero renders faint.
func Signed(sign int) lipgloss.Style {
	switch {
	case sign > 0:
		return Up
	case sign < 0:
		return Down
	}
	return Faint
}
