package components

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/pkg/ui/theme"
)

// OpportunityRow is one evaluated arbitrage candidate.
type OpportunityRow struct {
	Time       time.Time
	Block      uint64
	Pair       string
	Size       string
	Direction  string
	SpreadBps  decimal.Decimal
	Profit     decimal.Decimal
	Capital    decimal.Decimal
	Profitable bool
	Steps      []string
	Risks      []string
}

// OpportunitiesComponent keeps the newest candidates and a cursor into them.
type OpportunitiesComponent struct {
	rows     []OpportunityRow
	capacity int
	visible  int
	cursor   int
}

// NewOpportunitiesComponent keeps up to capacity rows and shows visible of them.
func NewOpportunitiesComponent(capacity, visible int) *OpportunitiesComponent {
	if visible <= 0 || visible > capacity {
		visible = capacity
	}
	return &OpportunitiesComponent{capacity: capacity, visible: visible}
}

// Add prepends row. A moved cursor stays on the row it pointed at.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.capacity {
		o.rows = o.rows[:o.capacity]
	}
	if o.cursor > 0 {
		o.cursor = min(o.cursor+1, len(o.rows)-1)
	}
}

// Clear drops every row.
func (o *OpportunitiesComponent) Clear() {
	o.rows = nil
	o.cursor = 0
}

// Len returns the number of rows kept.
func (o *OpportunitiesComponent) Len() int { return len(o.rows) }

// ScrollUp moves the cursor towards newer rows.
func (o *OpportunitiesComponent) ScrollUp() {
	if o.cursor > 0 {
		o.cursor--
	}
}

// ScrollDown moves the cursor towards older rows.
func (o *OpportunitiesComponent) ScrollDown() {
	if o.cursor < len(o.rows)-1 {
		o.cursor++
	}
}

// Selected returns the row under the cursor.
func (o *OpportunitiesComponent) Selected() (OpportunityRow, bool) {
	if len(o.rows) == 0 {
		return OpportunityRow{}, false
	}
	return o.rows[o.cursor], true
}

// window returns the [start, end) range of rows to draw around the cursor.
func (o *OpportunitiesComponent) window() (int, int) {
	start := 0
	if o.cursor >= o.visible {
		start = o.cursor - o.visible + 1
	}
	return start, min(start+o.visible, len(o.rows))
}

// View renders the list followed by the selected row's details.
func (o *OpportunitiesComponent) View() string {
	headerStyle := theme.Heading
	if len(o.rows) == 0 {
		return headerStyle.Render("OPPORTUNITIES") + "\nNo opportunities detected yet..."
	}
	goodStyle := theme.Up
	badStyle := theme.Down
	dimStyle := theme.Faint

	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("OPPORTUNITIES (%d/%d)", o.cursor+1, len(o.rows))))
	b.WriteString("\n")
	b.WriteString(dimStyle.Render(fmt.Sprintf("   %-8s %-9s %-10s %-10s %9s %10s", "time", "block", "size", "route", "spread", "net")))
	b.WriteString("\n")

	start, end := o.window()
	for i := start; i < end; i++ {
		r := o.rows[i]
		marker := "  "
		if i == o.cursor {
			marker = "› "
		}
		style := goodStyle
		if !r.Profitable {
			style = badStyle
		}
		b.WriteString(fmt.Sprintf("%s %-8s %-9d %-10s %-10s %9s %s\n",
			marker,
			r.Time.Format("15:04:05"),
			r.Block,
			r.Size,
			r.Direction,
			fmt.Sprintf("%+.1fbp", r.SpreadBps.InexactFloat64()),
			style.Render(fmt.Sprintf("%10s", "$"+r.Profit.StringFixed(2))),
		))
	}

	sel, _ := o.Selected()
	if len(sel.Steps) > 0 {
		b.WriteString("\n")
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %s  capital $%s", sel.Pair, sel.Capital.StringFixed(0))))
		b.WriteString("\n")
		for i, step := range sel.Steps {
			b.WriteString(fmt.Sprintf("  %d. %s\n", i+1, step))
		}
	}
	for _, risk := range sel.Risks {
		b.WriteString(badStyle.Render("  ! "+risk) + "\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
