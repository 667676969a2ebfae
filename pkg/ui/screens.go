package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/fd1az/dexter/pkg/ui/theme"
)

const logo = `
   ██████╗ ███████╗██╗  ██╗████████╗███████╗██████╗
   ██╔══██╗██╔════╝╚██╗██╔╝╚══██╔══╝██╔════╝██╔══██╗
   ██║  ██║█████╗   ╚███╔╝    ██║   █████╗  ██████╔╝
   ██║  ██║██╔══╝   ██╔██╗    ██║   ██╔══╝  ██╔══██╗
   ██████╔╝███████╗██╔╝ ██╗   ██║   ███████╗██║  ██║
   ╚═════╝ ╚══════╝╚═╝  ╚═╝   ╚═╝   ╚══════╝╚═╝  ╚═╝
`

func (m Model) renderWelcome() string {
	gold := theme.Caution
	dots := strings.Repeat(".", int(time.Since(m.welcomeStart)/(300*time.Millisecond))%4)

	lines := []string{
		"\n\n\n",
		theme.Heading.Render(logo),
		theme.Faint.Render("            D E X T E R   T R A D I N G   P L A T F O R M"),
		"\n",
		gold.Render("              💰  Let's make money  💰"),
		"\n",
		theme.Up.Render("                  Initializing" + dots),
		"",
		theme.Faint.Render("            Press any key to skip, or wait..."),
	}
	return strings.Join(lines, "\n") + "\n"
}

func (m Model) renderStartup() string {
	var b strings.Builder
	b.WriteString("\n\n")
	b.WriteString(theme.Heading.Padding(0, 1).Render(" 🤖 DEXTER"))
	b.WriteString("\n\n")
	b.WriteString(theme.Strong.Render("  Starting modules..."))
	b.WriteString("\n\n")

	if len(m.steps) == 0 {
		b.WriteString(theme.Faint.Render("  Loading configuration") + "\n")
	}
	for _, step := range m.steps {
		var icon, label string
		style := theme.Faint
		switch step.Status {
		case StepDone:
			icon, label, style = "✓", "Ready", theme.Up
		case StepRunning:
			icon, label, style = spin(time.Since(m.startupStart), 200*time.Millisecond), "Starting...", theme.Caution
		case StepFailed:
			icon, label, style = "✗", "Failed", theme.Down
		default:
			icon, label = "○", "Pending"
		}
		fmt.Fprintf(&b, "  %s %-12s %s\n", style.Render(icon), theme.Faint.Render(step.Key), style.Render(label))
	}

	b.WriteString("\n")
	b.WriteString(theme.Faint.Render(fmt.Sprintf("  Elapsed: %s", time.Since(m.startupStart).Round(time.Second))))
	if m.startupErr != "" {
		b.WriteString("\n\n")
		b.WriteString(theme.Down.Render("  " + m.startupErr))
		b.WriteString("\n")
		b.WriteString(theme.Faint.Render("  Press q to quit"))
	}
	b.WriteString("\n")
	return b.String()
}
