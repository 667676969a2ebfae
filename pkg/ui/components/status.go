// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"sort"
	"time"

	"github.com/fd1az/dexter/pkg/ui/theme"
)

// VenueStatus is one aggregator venue's latest quote state.
type VenueStatus struct {
	Name       string
	Quotes     int
	LastUpdate time.Time
}

// StatusComponent renders venue quote freshness.
type StatusComponent struct {
	venues []VenueStatus
	stale  time.Duration
}

// NewStatusComponent creates a status component. Venues without a quote
// newer than stale are shown as down.
func NewStatusComponent(stale time.Duration) *StatusComponent {
	return &StatusComponent{stale: stale}
}

// Update replaces the venue list.
func (s *StatusComponent) Update(venues []VenueStatus) {
	s.venues = append(s.venues[:0], venues...)
	sort.Slice(s.venues, func(i, j int) bool { return s.venues[i].Name < s.venues[j].Name })
}

// View renders the status component.
func (s *StatusComponent) View() string {
	if len(s.venues) == 0 {
		return "No venues"
	}

	up := theme.Up
	down := theme.Down

	var result string
	for _, v := range s.venues {
		line := fmt.Sprintf("├─ %-14s", v.Name)
		if v.Quotes == 0 || time.Since(v.LastUpdate) > s.stale {
			line += down.Render("○ no quotes")
		} else {
			line += up.Render(fmt.Sprintf("● %d pairs", v.Quotes))
			line += fmt.Sprintf(" (%s ago)", time.Since(v.LastUpdate).Round(time.Second))
		}
		result += line + "\n"
	}
	return result
}
