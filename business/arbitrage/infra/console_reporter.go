// Package infra holds the arbitrage reporters.
package infra

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"text/template"
	"time"

	"github.com/fd1az/dexter/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
)

var rule = strings.Repeat("=", 80)

var opportunityTmpl = template.Must(template.New("opportunity").Funcs(template.FuncMap{
	"usd":  func(v interface{ StringFixed(int32) string }) string { return "$" + v.StringFixed(2) },
	"rule": func() string { return rule },
	"thin": func() string { return strings.Repeat("-", 80) },
	"when": func(t time.Time) string { return t.Format(time.RFC3339) },
}).Parse(`
{{rule}}
OPPORTUNITY {{.ID}}  block #{{.BlockNumber}}  {{when .Timestamp}}
{{rule}}
{{.Pair}}  {{.Direction}}  size {{.TradeSize.StringFixed 4}} {{.Pair.Base.Symbol}}
  CEX      {{usd .CEXPrice}}
  DEX      {{usd .DEXPrice}}
  spread   {{.Spread}}
{{- with .GasCost}}
  gas      {{.TotalETH.ToDecimal.StringFixed 6}} ETH ({{usd .TotalUSD.ToDecimal}})
{{- end}}
{{- with .Profit}}
{{thin}}
  gross    {{usd .GrossProfit.ToDecimal}}
  fees     {{usd .ExchangeFees.ToDecimal}}
  net      {{usd .NetProfitRaw}} ({{.NetProfitPct.StringFixed 2}}%)
{{- end}}
{{- if .ExecutionSteps}}
{{thin}}
{{- range .ExecutionSteps}}
  {{.Number}}. {{.Description}}
{{- end}}
{{- end}}
{{- if .RiskFactors}}
{{thin}}
{{- range .RiskFactors}}
  [{{.Severity}}] {{.Name}}: {{.Description}}
{{- end}}
{{- end}}
{{rule}}
`))

// ConsoleReporter prints reportable opportunities as plain text blocks.
type ConsoleReporter struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsoleReporter writes to stdout.
func NewConsoleReporter() *ConsoleReporter {
	return NewConsoleReporterTo(os.Stdout)
}

// NewConsoleReporterTo writes to out.
func NewConsoleReporterTo(out io.Writer) *ConsoleReporter {
	return &ConsoleReporter{out: out}
}

func (r *ConsoleReporter) Start(ctx context.Context) error {
	r.printf("dexter: arbitrage detector running\n")
	return nil
}

// Report prints opp. Template failures are printed in place of the block.
func (r *ConsoleReporter) Report(opp *domain.Opportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := opportunityTmpl.Execute(r.out, opp); err != nil {
		fmt.Fprintf(r.out, "dexter: render opportunity %s: %v\n", opp.ID, err)
	}
}

// ReportScan ignores sub-threshold scans.
func (r *ConsoleReporter) ReportScan(*domain.Opportunity) {}

// UpdatePrices ignores ticks; the console only prints opportunities.
func (r *ConsoleReporter) UpdatePrices(*pricingDomain.PriceSnapshot) {}

func (r *ConsoleReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	state := "down"
	if connected {
		state = "up " + latency.Round(time.Millisecond).String()
	}
	r.printf("%s %-10s %s\n", time.Now().Format(time.TimeOnly), name, state)
}

func (r *ConsoleReporter) Stop() error {
	r.printf("dexter: arbitrage detector stopped\n")
	return nil
}

func (r *ConsoleReporter) printf(format string, args ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fmt.Fprintf(r.out, format, args...)
}
