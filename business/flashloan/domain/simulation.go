package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// StepGain is the per-leg output multiplier the simulator assumes.
var StepGain = decimal.RequireFromString("1.02")

// Request asks for a simulation of strategy funded by provider.
type Request struct {
	Provider string          `json:"provider"`
	Strategy string          `json:"strategy"`
	Token    string          `json:"token"`
	Amount   decimal.Decimal `json:"amount"`
}

// ExecutionStep is the simulated outcome of one strategy step.
type ExecutionStep struct {
	Step               int             `json:"step"`
	Action             string          `json:"action"`
	Input              decimal.Decimal `json:"input"`
	Output             decimal.Decimal `json:"output"`
	PriceImpact        float64         `json:"price_impact"`
	GasUsed            uint64          `json:"gas_used"`
	SuccessProbability float64         `json:"success_probability"`
}

// RiskAssessment scores a simulation between 0 and 1.
type RiskAssessment struct {
	Overall   float64  `json:"overall"`
	Liquidity float64  `json:"liquidity"`
	Execution float64  `json:"execution"`
	Factors   []string `json:"factors,omitempty"`
}

// Timing estimates how long the loan is open.
type Timing struct {
	Total          time.Duration `json:"total"`
	BlockDependent bool          `json:"block_dependent"`
}

// SimulationResult is the full outcome of a simulated flash loan. Amounts
// are in the borrowed token unless suffixed USD.
type SimulationResult struct {
	ID           string          `json:"id"`
	Request      Request         `json:"request"`
	Provider     string          `json:"provider"`
	Strategy     string          `json:"strategy"`
	Success      bool            `json:"success"`
	FinalOutput  decimal.Decimal `json:"final_output"`
	LoanFee      decimal.Decimal `json:"loan_fee"`
	GasCost      decimal.Decimal `json:"gas_cost"`
	GasCostUSD   decimal.Decimal `json:"gas_cost_usd"`
	TotalFees    decimal.Decimal `json:"total_fees"`
	ProfitLoss   decimal.Decimal `json:"profit_loss"`
	NetProfit    decimal.Decimal `json:"net_profit"`
	NetProfitUSD decimal.Decimal `json:"net_profit_usd"`
	Path         []ExecutionStep `json:"path"`
	Risk         RiskAssessment  `json:"risk"`
	Timing       Timing          `json:"timing"`
	SimulatedAt  time.Time       `json:"simulated_at"`
}

// Stats aggregates simulation history.
type Stats struct {
	Total       int             `json:"total"`
	Successful  int             `json:"successful"`
	AvgProfit   decimal.Decimal `json:"avg_profit"`
	AvgExecTime time.Duration   `json:"avg_exec_time"`
}
