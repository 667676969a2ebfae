package components

import (
	"fmt"
	"slices"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/pkg/ui/theme"
)

// PriceRow compares both venues at one trade size.
type PriceRow struct {
	TradeSize decimal.Decimal
	CEXPrice  decimal.Decimal
	DEXPrice  decimal.Decimal
	SpreadBps decimal.Decimal
}

// CostBreakdown is the cost side of the last evaluated candidate.
type CostBreakdown struct {
	TradeSize     string
	TradeValueUSD float64
	GrossProfit   float64
	GasCostUSD    float64
	ExchangeFees  float64
	TotalCosts    float64
	NetProfit     float64
	IsProfitable  bool
}

// PricesComponent renders CEX against DEX prices per trade size.
type PricesComponent struct {
	cex, dex string
	pair     string
	rows     map[string]PriceRow
	costs    *CostBreakdown
}

// NewPricesComponent creates a prices table labelled with the two venue names.
func NewPricesComponent(cex, dex string) *PricesComponent {
	return &PricesComponent{cex: cex, dex: dex, rows: make(map[string]PriceRow)}
}

// Set records row for pair, replacing the previous row of the same size.
// Switching pair starts a fresh table.
func (p *PricesComponent) Set(pair string, row PriceRow) {
	if pair != p.pair {
		p.pair = pair
		clear(p.rows)
	}
	p.rows[row.TradeSize.String()] = row
}

// Rows returns the rows ordered by trade size.
func (p *PricesComponent) Rows() []PriceRow {
	out := make([]PriceRow, 0, len(p.rows))
	for _, r := range p.rows {
		out = append(out, r)
	}
	slices.SortFunc(out, func(a, b PriceRow) int { return a.TradeSize.Cmp(b.TradeSize) })
	return out
}

// SetCostBreakdown replaces the cost panel.
func (p *PricesComponent) SetCostBreakdown(cb CostBreakdown) {
	p.costs = &cb
}

// View renders the prices component.
func (p *PricesComponent) View() string {
	if len(p.rows) == 0 {
		return "Waiting for price data..."
	}

	rule := theme.Faint.Render("  "+strings.Repeat("─", 56)) + "\n"

	var b strings.Builder
	b.WriteString(theme.Heading.Render("PRICES " + p.pair))
	b.WriteString("\n\n")
	fmt.Fprintf(&b, "  %-10s  %14s  %14s  %12s\n", "Size", p.cex, p.dex, "Spread")
	b.WriteString(rule)

	for _, r := range p.Rows() {
		style := theme.Signed(r.SpreadBps.Sign())
		fmt.Fprintf(&b, "  %-10s  %14s  %14s  %s\n",
			r.TradeSize.String(),
			"$"+r.CEXPrice.StringFixed(2),
			"$"+r.DEXPrice.StringFixed(2),
			style.Render(fmt.Sprintf("%12s", fmt.Sprintf("%+.1f bps", r.SpreadBps.InexactFloat64()))),
		)
	}
	b.WriteString("\n")
	b.WriteString(rule)

	cb := p.costs
	if cb == nil {
		b.WriteString(theme.Faint.Render("  Waiting for cost analysis..."))
		return b.String()
	}
	verdict, netStyle := "LAST CANDIDATE: NOT PROFITABLE", theme.Down
	if cb.IsProfitable {
		verdict, netStyle = "LAST CANDIDATE: PROFITABLE", theme.Up
	}
	b.WriteString(theme.Heading.Render("  "+verdict) + "\n\n")
	lines := []struct {
		label string
		value string
	}{
		{"Size", theme.Faint.Render(cb.TradeSize)},
		{"Value", theme.Faint.Render(fmt.Sprintf("$%.0f", cb.TradeValueUSD))},
		{"Gross", fmt.Sprintf("$%.2f", cb.GrossProfit)},
		{"Gas", theme.Down.Render(fmt.Sprintf("-$%.2f", cb.GasCostUSD))},
		{"Fees", theme.Down.Render(fmt.Sprintf("-$%.2f", cb.ExchangeFees))},
		{"Net", netStyle.Render(fmt.Sprintf("%+.2f", cb.NetProfit))},
	}
	for _, l := range lines {
		fmt.Fprintf(&b, "  %-6s %s\n", l.label, l.value)
	}
	return strings.TrimRight(b.String(), "\n")
}
