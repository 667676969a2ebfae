package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// TokenPrice is a token's USD price on one chain.
type TokenPrice struct {
	Token     string          `json:"token"`
	Chain     string          `json:"chain"`
	Price     decimal.Decimal `json:"price"`
	Liquidity decimal.Decimal `json:"liquidity"`
	Volume24h decimal.Decimal `json:"volume_24h"`
	UpdatedAt time.Time       `json:"last_update"`
}

// Swap is a DEX leg on either end of a route.
type Swap struct {
	Chain     string          `json:"chain"`
	DEX       string          `json:"dex"`
	TokenIn   string          `json:"token_in"`
	TokenOut  string          `json:"token_out"`
	AmountIn  decimal.Decimal `json:"amount_in"`
	AmountOut decimal.Decimal `json:"amount_out"`
	Fee       decimal.Decimal `json:"fee"`
}

// SwapFee is the pool fee assumed for the buy and sell legs.
var SwapFee = decimal.RequireFromString("0.003")

// Route carries a token across one or two bridges. The profit fields are
// only set on routes returned as opportunities.
type Route struct {
	ID            string          `json:"id"`
	Token         string          `json:"token"`
	Amount        decimal.Decimal `json:"amount"`
	From          string          `json:"source_chain"`
	To            string          `json:"destination_chain"`
	Bridges       []Bridge        `json:"bridges"`
	Swaps         []Swap          `json:"dex_swaps,omitempty"`
	TotalFee      decimal.Decimal `json:"total_fee"`
	GasCostUSD    decimal.Decimal `json:"gas_cost_usd"`
	EstimatedTime time.Duration   `json:"estimated_time"`
	Profit        decimal.Decimal `json:"profit"`
	ProfitPct     decimal.Decimal `json:"profit_percentage"`
}

// FeeFraction sums the bridge fees as a fraction of the amount.
func (r Route) FeeFraction() decimal.Decimal {
	sum := decimal.Zero
	for _, b := range r.Bridges {
		sum = sum.Add(b.Fee)
	}
	return sum
}

// BridgeTime sums the bridges' estimated transfer times.
func (r Route) BridgeTime() time.Duration {
	var d time.Duration
	for _, b := range r.Bridges {
		d += b.EstimatedTime
	}
	return d
}

// ExecutionStatus tracks a route through its legs.
type ExecutionStatus string

const (
	StatusPending             ExecutionStatus = "PENDING"
	StatusSourceExecuted      ExecutionStatus = "SOURCE_EXECUTED"
	StatusBridging            ExecutionStatus = "BRIDGING"
	StatusDestinationExecuted ExecutionStatus = "DESTINATION_EXECUTED"
	StatusCompleted           ExecutionStatus = "COMPLETED"
	StatusFailed              ExecutionStatus = "FAILED"
)

// RequiredConfirmations before a bridged transfer is considered final.
const RequiredConfirmations = 15

// Execution is the simulated record of running a route. Nothing is submitted.
type Execution struct {
	ID           string          `json:"execution_id"`
	RouteID      string          `json:"route_id"`
	Route        Route           `json:"route"`
	Status       ExecutionStatus `json:"status"`
	SourceTx     string          `json:"source_tx_hash,omitempty"`
	BridgeTx     string          `json:"bridge_tx_hash,omitempty"`
	DestTx       string          `json:"destination_tx_hash,omitempty"`
	ActualProfit decimal.Decimal `json:"actual_profit"`
	StartedAt    time.Time       `json:"started_at"`
}

// BridgeStatus reports progress of an execution's bridge leg.
type BridgeStatus struct {
	ExecutionID         string          `json:"execution_id"`
	Status              ExecutionStatus `json:"status"`
	Confirmations       int             `json:"confirmations"`
	Required            int             `json:"required_confirmations"`
	EstimatedCompletion time.Time       `json:"estimated_completion"`
}
