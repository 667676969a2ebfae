// Package components provides reusable TUI components.
package components

import (
	"fmt"

	"github.com/fd1az/dexter/pkg/ui/theme"
)

// Stats holds platform-wide counters for display.
type Stats struct {
	VenueOpportunities int
	CrossChainQuotes   int
	MEVDetections      uint64
	MEVProtected       uint64
	FlashLoanSims      int
	FlashLoanSuccess   int
	PoolsTracked       int
	Positions          int
	StreamClients      int
	StreamDropped      uint64
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update updates the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	style := theme.Faint
	valueStyle := theme.Strong
	warnStyle := theme.Bad

	successRate := float64(0)
	if s.stats.FlashLoanSims > 0 {
		successRate = float64(s.stats.FlashLoanSuccess) / float64(s.stats.FlashLoanSims) * 100
	}

	mev := valueStyle.Render(fmt.Sprintf("%d", s.stats.MEVDetections))
	if s.stats.MEVDetections > 0 {
		mev = warnStyle.Render(fmt.Sprintf("%d", s.stats.MEVDetections))
	}

	return style.Render("PLATFORM") + "\n" +
		fmt.Sprintf("Venue opps: %s  │  Cross-chain quotes: %s  │  MEV: %s (%s protected)\n",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.VenueOpportunities)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.CrossChainQuotes)),
			mev,
			valueStyle.Render(fmt.Sprintf("%d", s.stats.MEVProtected)),
		) +
		fmt.Sprintf("Flash loans: %s (%.0f%% ok)  │  Pools: %s / %s positions  │  Stream: %s clients, %s dropped",
			valueStyle.Render(fmt.Sprintf("%d", s.stats.FlashLoanSims)),
			successRate,
			valueStyle.Render(fmt.Sprintf("%d", s.stats.PoolsTracked)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.Positions)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.StreamClients)),
			valueStyle.Render(fmt.Sprintf("%d", s.stats.StreamDropped)),
		)
}
