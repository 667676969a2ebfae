package ui

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/dexter/pkg/ui/theme"
)

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}
	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcome()
	case PhaseStartup:
		return m.renderStartup()
	}

	var b strings.Builder
	b.WriteString(theme.Banner.Render(" 🤖 DEXTER "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	left := strings.Join([]string{
		m.prices.View(),
		theme.Heading.Render("VENUES") + "\n" + m.venues.View(),
		m.pools.View(),
	}, "\n\n")
	right := strings.Join([]string{
		m.renderActivity(),
		m.threats.View(),
		m.opportunities.View(),
	}, "\n\n")

	if m.width > 100 {
		half := theme.Panel.Width(m.width/2 - 2)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, half.Render(left), half.Render(right)))
	} else {
		full := theme.Panel.Width(max(m.width-4, 20))
		b.WriteString(full.Render(left))
		b.WriteString("\n")
		b.WriteString(full.Render(right))
	}
	b.WriteString("\n\n")

	if panel := m.renderErrors(); panel != "" {
		b.WriteString(panel)
		b.WriteString("\n\n")
	}

	if m.paused {
		b.WriteString(theme.Caution.Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(theme.Help.Render(m.help.View(m.keys)))
	return b.String()
}

func (m Model) renderErrors() string {
	if len(m.errors) == 0 {
		return ""
	}
	var b strings.Builder
	b.WriteString(theme.Bad.Render("ERRORS"))
	b.WriteString(theme.Faint.Render(" (e: clear)"))
	for _, e := range m.errors {
		b.WriteString("\n")
		b.WriteString(theme.Down.Render("  • " + e.Message + " "))
		b.WriteString(theme.Faint.Render(fmt.Sprintf("(%s ago)", time.Since(e.Timestamp).Round(time.Second))))
	}
	return b.String()
}

func (m Model) renderActivity() string {
	blockStyle := theme.Accent

	var b strings.Builder
	b.WriteString(theme.Heading.Render("LIVE ACTIVITY"))
	b.WriteString("\n")
	if len(m.activity) == 0 {
		b.WriteString(theme.Faint.Render("  Waiting for blocks..."))
		return b.String()
	}
	for _, line := range m.activity {
		style := theme.Faint
		if strings.Contains(line, "Block #") {
			style = blockStyle
		}
		b.WriteString("\n" + style.Render("  "+line))
	}
	return b.String()
}

var spinner = []string{"◐", "◓", "◑", "◒"}

func spin(elapsed, step time.Duration) string {
	return spinner[int(elapsed/step)%len(spinner)]
}

func (m Model) renderStatusBar() string {
	var parts []string

	if time.Since(m.lastScan) < 500*time.Millisecond {
		parts = append(parts, theme.Good.Render(spin(time.Duration(time.Now().UnixNano()), 100*time.Millisecond)+" Scanning"))
	}
	parts = append(parts, fmt.Sprintf("Block: #%d", m.block))
	if m.gasGwei > 0 {
		gas := fmt.Sprintf("Gas: %.1f gwei", m.gasGwei)
		if m.baseFee > 0 {
			gas += fmt.Sprintf(" (base %.1f)", m.baseFee)
		}
		parts = append(parts, gas)
	}
	if m.scans > 0 {
		parts = append(parts, theme.Up.Render(fmt.Sprintf("Scans: %d", m.scans)))
	}

	names := make([]string, 0, len(m.connections))
	for name := range m.connections {
		names = append(names, name)
	}
	slices.Sort(names)
	for _, name := range names {
		info := m.connections[name]
		switch {
		case !info.Connected:
			parts = append(parts, theme.Bad.Render("○ "+name+" (disconnected)"))
		case info.Latency > 0:
			parts = append(parts, theme.Good.Render(fmt.Sprintf("● %s (%dms)", name, info.Latency.Milliseconds())))
		default:
			parts = append(parts, theme.Good.Render("● "+name))
		}
	}

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		text := fmt.Sprintf("Updated: %s ago", ago)
		if ago < 2*time.Second {
			text += " ▪"
		}
		parts = append(parts, theme.Faint.Render(text))
	}
	return strings.Join(parts, "  │  ")
}
