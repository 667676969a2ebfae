package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/dexter/pkg/ui/theme"
)

// PoolRow is one ranked liquidity pool.
type PoolRow struct {
	Pair     string
	Protocol string
	APY      float64
	TVL      float64
	IL       float64
	Risk     string
}

// PoolsComponent renders the best pools table.
type PoolsComponent struct {
	rows []PoolRow
}

// NewPoolsComponent creates a pools component.
func NewPoolsComponent() *PoolsComponent {
	return &PoolsComponent{}
}

// Update replaces the ranking.
func (p *PoolsComponent) Update(rows []PoolRow) {
	p.rows = rows
}

// View renders the pools component.
func (p *PoolsComponent) View() string {
	headerStyle := theme.Heading
	if len(p.rows) == 0 {
		return headerStyle.Render("BEST POOLS") + "\nNo pools discovered yet..."
	}
	ilStyle := lipgloss.NewStyle().Foreground(theme.Amber)

	var b strings.Builder
	b.WriteString(headerStyle.Render("BEST POOLS"))
	b.WriteString("\n")
	b.WriteString(fmt.Sprintf("%-12s %-14s %8s %12s %7s %s\n", "Pair", "Protocol", "APY", "TVL", "IL", "Risk"))
	for _, r := range p.rows {
		il := fmt.Sprintf("%6.2f%%", r.IL*100)
		if r.IL > 0.05 {
			il = ilStyle.Render(il)
		}
		b.WriteString(fmt.Sprintf("%-12s %-14s %7.1f%% %12s %s %s\n",
			r.Pair, r.Protocol, r.APY, fmt.Sprintf("$%.0f", r.TVL), il, r.Risk))
	}
	return strings.TrimRight(b.String(), "\n")
}
