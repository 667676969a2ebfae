// Package ui provides the Bubble Tea TUI for the DEXTER platform.
package ui

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/pkg/ui/components"
)

// Phase is the screen currently shown.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

const (
	maxErrors   = 3
	maxActivity = 6
	maxLogs     = 5
)

// StepStatus is the state of one startup step.
type StepStatus string

const (
	StepPending StepStatus = "pending"
	StepRunning StepStatus = "running"
	StepDone    StepStatus = "done"
	StepFailed  StepStatus = "failed"
)

// StartupStep is one line of the startup screen.
type StartupStep struct {
	Key    string
	Status StepStatus
}

// ConnectionInfo holds connection state and latency.
type ConnectionInfo struct {
	Connected bool
	Latency   time.Duration
	LastSeen  time.Time
}

// ErrorEntry is an error kept in the error panel.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	prices        *components.PricesComponent
	opportunities *components.OpportunitiesComponent
	stats         *components.StatsComponent
	venues        *components.StatusComponent
	pools         *components.PoolsComponent
	threats       *components.ThreatsComponent
	keys          KeyMap
	help          help.Model

	phase        Phase
	welcomeStart time.Time
	startupStart time.Time
	steps        []StartupStep
	startupDone  bool
	startupErr   string

	quitting bool
	paused   bool
	width    int
	height   int

	block       uint64
	gasGwei     float64
	baseFee     float64
	connections map[string]ConnectionInfo
	lastUpdate  time.Time
	lastScan    time.Time
	scans       uint64

	errors   []ErrorEntry
	logs     []string
	activity []string
}

// New creates the model. steps name the modules shown on the startup screen;
// StartupMsg for an unknown step appends it.
func New(steps ...string) Model {
	now := time.Now()
	m := Model{
		prices:        components.NewPricesComponent("Binance (CEX)", "Uniswap (DEX)"),
		opportunities: components.NewOpportunitiesComponent(50, 8),
		stats:         components.NewStatsComponent(),
		venues:        components.NewStatusComponent(30 * time.Second),
		pools:         components.NewPoolsComponent(),
		threats:       components.NewThreatsComponent(5),
		keys:          DefaultKeyMap(),
		help:          help.New(),
		phase:         PhaseWelcome,
		welcomeStart:  now,
		startupStart:  now,
		connections:   make(map[string]ConnectionInfo),
	}
	for _, s := range steps {
		m.steps = append(m.steps, StartupStep{Key: s, Status: StepPending})
	}
	return m
}

// Init starts the animation tick.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.leaveWelcome()
		}
		if m.phase == PhaseStartup && m.startupDone {
			m.phase = PhaseDashboard
		}
		return m, tickCmd()

	case StartupMsg:
		m.setStep(msg.Step, msg.Status)
		if msg.Status == StepFailed && msg.Message != "" {
			m.startupErr = msg.Message
		}

	case OpportunityMsg:
		if msg.Opportunity != nil && !m.paused {
			m.opportunities.Add(opportunityRow(msg.Opportunity))
			m.touch()
		}

	case PriceUpdateMsg:
		if s := msg.Snapshot; s != nil {
			if s.BlockNumber > m.block {
				m.block = s.BlockNumber
			}
			if row, ok := priceRow(s); ok {
				m.prices.Set(s.Pair.String(), row)
			}
			m.scans++
			m.lastScan = time.Now()
			m.touch()
		}

	case ScanMsg:
		m.activity = pushLine(m.activity, maxActivity, fmt.Sprintf("%s %s: CEX $%.2f | DEX $%.2f | %+.1f bps",
			msg.TradeSize, msg.Pair, msg.CEXPrice, msg.DEXPrice, msg.SpreadBps))
		m.lastScan = time.Now()
		m.touch()

	case CostBreakdownMsg:
		m.prices.SetCostBreakdown(components.CostBreakdown(msg))

	case ConnectionStatusMsg:
		m.connections[msg.Name] = ConnectionInfo{Connected: msg.Connected, Latency: msg.Latency, LastSeen: time.Now()}
		m.touch()

	case BlockMsg:
		if msg.Number > m.block {
			m.block = msg.Number
			m.activity = pushLine(m.activity, maxActivity, fmt.Sprintf("Block #%d received", msg.Number))
		}
		m.touch()

	case GasPriceMsg:
		m.gasGwei = msg.GweiPrice
		m.baseFee = msg.BaseFee

	case ErrorMsg:
		text := msg.Error.Error()
		m.logs = pushLine(m.logs, maxLogs, "error: "+text)
		m.errors = append(m.errors, ErrorEntry{Message: text, Timestamp: time.Now()})
		if len(m.errors) > maxErrors {
			m.errors = m.errors[len(m.errors)-maxErrors:]
		}

	case LogMsg:
		m.logs = pushLine(m.logs, maxLogs, msg.Level+": "+msg.Message)

	case PlatformStatsMsg:
		m.stats.Update(msg.Stats)

	case VenueStatusMsg:
		m.venues.Update(msg.Venues)

	case PoolsMsg:
		m.pools.Update(msg.Rows)

	case MEVAlertMsg:
		m.threats.Add(msg.Threat)
		m.activity = pushLine(m.activity, maxActivity,
			fmt.Sprintf("MEV %s detected (%.0f%%)", msg.Threat.Type, msg.Threat.Confidence*100))
		m.touch()
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, m.keys.Quit) {
		m.quitting = true
		return m, tea.Quit
	}
	if m.phase == PhaseWelcome {
		m.leaveWelcome()
		return m, nil
	}
	switch {
	case key.Matches(msg, m.keys.Clear):
		m.opportunities.Clear()
	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused
	case key.Matches(msg, m.keys.Up):
		m.opportunities.ScrollUp()
	case key.Matches(msg, m.keys.Down):
		m.opportunities.ScrollDown()
	case key.Matches(msg, m.keys.ClearErrors):
		m.errors = nil
	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, nil
}

// leaveWelcome moves to the startup screen and asks main to start modules.
// OnStartModules runs on its own goroutine; Program.Send must not be called
// from inside Update.
func (m *Model) leaveWelcome() {
	m.phase = PhaseStartup
	m.startupStart = time.Now()
	if OnStartModules != nil {
		go OnStartModules()
	}
}

func (m *Model) setStep(key string, status StepStatus) {
	found := false
	for i := range m.steps {
		if m.steps[i].Key == key {
			m.steps[i].Status = status
			found = true
		}
	}
	if !found {
		m.steps = append(m.steps, StartupStep{Key: key, Status: status})
	}

	m.startupDone = len(m.steps) > 0
	for _, s := range m.steps {
		if s.Status != StepDone {
			m.startupDone = false
		}
	}
}

func (m *Model) touch() {
	m.lastUpdate = time.Now()
}

func opportunityRow(opp *domain.Opportunity) components.OpportunityRow {
	row := components.OpportunityRow{
		Time:       opp.Timestamp,
		Block:      opp.BlockNumber,
		Pair:       opp.Pair.String(),
		Size:       opp.TradeSize.String() + " " + opp.Pair.Base.Symbol(),
		Direction:  opp.Direction.ShortString(),
		SpreadBps:  opp.Spread.BasisPoints,
		Capital:    opp.RequiredCapital,
		Profitable: opp.IsProfitable(),
	}
	if opp.Profit != nil {
		row.Profit = opp.Profit.NetProfitRaw
	}
	for _, s := range opp.ExecutionSteps {
		row.Steps = append(row.Steps, s.Description)
	}
	for _, r := range opp.RiskFactors {
		row.Risks = append(row.Risks, fmt.Sprintf("%s (%s)", r.Name, r.Severity))
	}
	return row
}

// priceRow needs both a CEX ask and a DEX quote to compare.
func priceRow(s *pricingDomain.PriceSnapshot) (components.PriceRow, bool) {
	if s.CEXAsk == nil || s.DEXQuote == nil {
		return components.PriceRow{}, false
	}
	cex := s.CEXAsk.Rate.Rate()
	dex := s.DEXQuote.Price.Rate()
	spread := decimal.Zero
	if !cex.IsZero() {
		spread = dex.Sub(cex).Div(cex).Shift(4)
	}
	return components.PriceRow{
		TradeSize: s.DEXQuote.AmountIn.ToDecimal(),
		CEXPrice:  cex,
		DEXPrice:  dex,
		SpreadBps: spread,
	}, true
}

// pushLine appends a timestamped line, keeping the last limit lines.
func pushLine(lines []string, limit int, text string) []string {
	lines = append(lines, time.Now().Format("15:04:05")+" "+text)
	if len(lines) > limit {
		lines = lines[len(lines)-limit:]
	}
	return lines
}
