// Package domain contains flash-loan providers, strategies and simulation results.
package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Provider is a flash-loan source.
type Provider struct {
	ID          string          `yaml:"id" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Protocol    string          `yaml:"protocol" json:"protocol"`
	Fee         decimal.Decimal `yaml:"fee" json:"fee"`
	MinAmount   decimal.Decimal `yaml:"min_amount" json:"min_amount"`
	MaxAmount   decimal.Decimal `yaml:"max_amount" json:"max_amount"`
	Tokens      []string        `yaml:"tokens" json:"tokens"`
	ExecTime    time.Duration   `yaml:"exec_time" json:"exec_time"`
	Reliability float64         `yaml:"reliability" json:"reliability"`
	GasEstimate uint64          `yaml:"gas_estimate" json:"gas_estimate"`
}

// Supports reports whether the provider lends token.
func (p Provider) Supports(token string) bool {
	return slices.ContainsFunc(p.Tokens, func(t string) bool { return strings.EqualFold(t, token) })
}

// Step is one leg of a strategy.
type Step struct {
	Action    string          `yaml:"action" json:"action"`
	Protocol  string          `yaml:"protocol" json:"protocol"`
	FromToken string          `yaml:"from_token" json:"from_token"`
	ToToken   string          `yaml:"to_token" json:"to_token"`
	AmountPct decimal.Decimal `yaml:"amount_pct" json:"amount_pct"` // of the previous leg's output, 0-100
	Slippage  float64         `yaml:"slippage" json:"slippage"`     // percent
	Gas       uint64          `yaml:"gas" json:"gas"`
	Risk      float64         `yaml:"risk" json:"risk"`
}

// Strategy is a named sequence of steps executed inside one loan.
type Strategy struct {
	ID          string          `yaml:"id" json:"id"`
	Name        string          `yaml:"name" json:"name"`
	Description string          `yaml:"description" json:"description"`
	Type        string          `yaml:"type" json:"type"`
	Steps       []Step          `yaml:"steps" json:"steps"`
	Risk        float64         `yaml:"risk" json:"risk"`
	MinProfit   decimal.Decimal `yaml:"min_profit" json:"min_profit"`
	MaxRisk     float64         `yaml:"max_risk" json:"max_risk"`
	SuccessRate float64         `yaml:"success_rate" json:"success_rate"`
	Complexity  int             `yaml:"complexity" json:"complexity"`
}

// TotalGas sums the gas of every step.
func (s Strategy) TotalGas() uint64 {
	var g uint64
	for _, st := range s.Steps {
		g += st.Gas
	}
	return g
}

// Catalog is the set of providers, strategies and reference prices the
// simulator starts with.
type Catalog struct {
	Providers  []Provider                 `yaml:"providers"`
	Strategies []Strategy                 `yaml:"strategies"`
	Prices     map[string]decimal.Decimal `yaml:"prices"`
}

// Validate checks that providers and strategies are usable.
func (c Catalog) Validate() error {
	for _, p := range c.Providers {
		if p.ID == "" || !p.MaxAmount.IsPositive() || p.MinAmount.GreaterThan(p.MaxAmount) {
			return fmt.Errorf("provider %q: invalid id or amount bounds", p.ID)
		}
	}
	for _, s := range c.Strategies {
		if s.ID == "" || len(s.Steps) == 0 {
			return fmt.Errorf("strategy %q: id and steps are required", s.ID)
		}
	}
	return nil
}
