package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RuleType selects what a protection rule does.
type RuleType string

const (
	RulePrivateMempool     RuleType = "PRIVATE_MEMPOOL"
	RuleDelayedExecution   RuleType = "DELAYED_EXECUTION"
	RuleGasPriceLimit      RuleType = "GAS_PRICE_LIMIT"
	RuleSlippageProtection RuleType = "SLIPPAGE_PROTECTION"
	RuleTimeBased          RuleType = "TIME_BASED"
	RuleVolumeBased        RuleType = "VOLUME_BASED"
)

var ruleTypes = map[RuleType]bool{
	RulePrivateMempool: true, RuleDelayedExecution: true, RuleGasPriceLimit: true,
	RuleSlippageProtection: true, RuleTimeBased: true, RuleVolumeBased: true,
}

// ProtectionRule is one configured mitigation.
type ProtectionRule struct {
	ID          string            `yaml:"id" json:"id"`
	Name        string            `yaml:"name" json:"name"`
	Description string            `yaml:"description" json:"description"`
	Type        RuleType          `yaml:"type" json:"type"`
	Enabled     bool              `yaml:"enabled" json:"enabled"`
	Priority    int               `yaml:"priority" json:"priority"`
	Params      map[string]string `yaml:"params" json:"params"`
}

// Validate checks the rule has an ID and a known type.
func (r ProtectionRule) Validate() error {
	if r.ID == "" {
		return fmt.Errorf("rule id is required")
	}
	if !ruleTypes[r.Type] {
		return fmt.Errorf("unknown rule type %q", r.Type)
	}
	return nil
}

// Param returns a decimal parameter, or def when missing or malformed.
func (r ProtectionRule) Param(key string, def decimal.Decimal) decimal.Decimal {
	raw, ok := r.Params[key]
	if !ok {
		return def
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return def
	}
	return v
}

// Matches reports whether the rule should fire for tx given its detection.
func (r ProtectionRule) Matches(tx PendingTx, det *Detection) bool {
	if !r.Enabled {
		return false
	}
	switch r.Type {
	case RulePrivateMempool:
		return tx.Value.GreaterThanOrEqual(r.Param("min_value", decimal.Zero))
	case RuleSlippageProtection:
		return det != nil && det.AttackType == AttackSandwiching
	case RuleDelayedExecution:
		return det != nil && det.AttackType == AttackFrontrunning
	case RuleVolumeBased:
		return tx.Value.GreaterThanOrEqual(r.Param("min_volume", decimal.Zero))
	default:
		return true
	}
}

// ProtectionResult records the rules applied to a transaction.
type ProtectionResult struct {
	TxHash         string          `json:"tx_hash"`
	Applied        []string        `json:"applied"`
	RiskReduced    float64         `json:"risk_reduced"`
	AdditionalCost decimal.Decimal `json:"additional_cost"`
	Success        bool            `json:"success"`
	Timestamp      time.Time       `json:"timestamp"`
}
