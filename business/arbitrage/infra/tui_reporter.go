// Package infra contains infrastructure adapters for the arbitrage context.
package infra

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/dexter/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/pkg/ui"
)

// TUIReporter implements Reporter for Bubble Tea TUI.
type TUIReporter struct {
	send func(tea.Msg)
}

// NewTUIReporter creates a TUIReporter that forwards to the running program.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{send: ui.Send}
}

// NewTUIReporterWith creates a TUIReporter with a custom message sink.
func NewTUIReporterWith(send func(tea.Msg)) *TUIReporter {
	return &TUIReporter{send: send}
}

// Start announces the detector to the TUI. The program itself is owned by main.
func (r *TUIReporter) Start(ctx context.Context) error {
	r.send(ui.LogMsg{Level: "info", Message: "arbitrage detector started"})
	return nil
}

// Report sends an arbitrage opportunity to the TUI.
func (r *TUIReporter) Report(opp *domain.Opportunity) {
	r.send(ui.OpportunityMsg{Opportunity: opp})
}

// ReportScan sends the cost breakdown of every evaluated candidate.
func (r *TUIReporter) ReportScan(opp *domain.Opportunity) {
	if opp.Profit == nil {
		return
	}
	p := opp.Profit
	r.send(ui.CostBreakdownMsg{
		TradeSize:     opp.TradeSize.String() + " " + opp.Pair.Base.Symbol(),
		TradeValueUSD: opp.RequiredCapital.InexactFloat64(),
		GrossProfit:   p.GrossProfit.ToFloat64(),
		GasCostUSD:    p.GasCost.ToFloat64(),
		ExchangeFees:  p.ExchangeFees.ToFloat64(),
		TotalCosts:    p.TotalCosts.ToFloat64(),
		NetProfit:     p.NetProfitRaw.InexactFloat64(),
		IsProfitable:  p.IsProfitable,
	})
	if !opp.IsProfitable() {
		r.send(ui.OpportunityMsg{Opportunity: opp})
	}
}

// UpdatePrices sends price updates to the TUI.
func (r *TUIReporter) UpdatePrices(prices *pricingDomain.PriceSnapshot) {
	r.send(ui.PriceUpdateMsg{Snapshot: prices})
	if prices.CEXAsk == nil || prices.DEXQuote == nil {
		return
	}
	r.send(ui.ScanMsg{
		Pair:        prices.Pair.String(),
		TradeSize:   prices.DEXQuote.AmountIn.ToDecimal().String() + " " + prices.Pair.Base.Symbol(),
		CEXPrice:    prices.Spread.CEXPrice.InexactFloat64(),
		DEXPrice:    prices.Spread.DEXPrice.InexactFloat64(),
		SpreadBps:   prices.Spread.BasisPoints.InexactFloat64(),
		BlockNumber: prices.BlockNumber,
	})
}

// UpdateConnectionStatus sends connection status to the TUI.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.send(ui.ConnectionStatusMsg{Name: name, Connected: connected, Latency: latency})
}

// Stop notifies the TUI. Quitting the program is left to main.
func (r *TUIReporter) Stop() error {
	r.send(ui.LogMsg{Level: "info", Message: "arbitrage detector stopped"})
	return nil
}
