package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/fd1az/dexter/pkg/ui/theme"
)

// ThreatRow is one MEV detection.
type ThreatRow struct {
	Type       string
	TxHash     string
	Confidence float64
	LossUSD    float64
	Protected  bool
	DetectedAt time.Time
}

// ThreatsComponent renders recent MEV detections, newest first.
type ThreatsComponent struct {
	rows    []ThreatRow
	maxRows int
}

// NewThreatsComponent creates a threats component.
func NewThreatsComponent(maxRows int) *ThreatsComponent {
	return &ThreatsComponent{maxRows: maxRows}
}

// Add prepends a detection.
func (t *ThreatsComponent) Add(row ThreatRow) {
	t.rows = append([]ThreatRow{row}, t.rows...)
	if len(t.rows) > t.maxRows {
		t.rows = t.rows[:t.maxRows]
	}
}

// View renders the threats component.
func (t *ThreatsComponent) View() string {
	headerStyle := theme.Alert
	if len(t.rows) == 0 {
		return headerStyle.Render("MEV THREATS") + "\nNone detected"
	}
	okStyle := theme.Up

	var b strings.Builder
	b.WriteString(headerStyle.Render("MEV THREATS"))
	b.WriteString("\n")
	for _, r := range t.rows {
		hash := r.TxHash
		if len(hash) > 12 {
			hash = hash[:12] + "…"
		}
		line := fmt.Sprintf("%s %-12s %-14s %3.0f%%  ~$%.2f",
			r.DetectedAt.Format("15:04:05"), r.Type, hash, r.Confidence*100, r.LossUSD)
		if r.Protected {
			line += okStyle.Render(" ✓ protected")
		}
		b.WriteString(line + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
