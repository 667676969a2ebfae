// Package domain contains MEV attack types, pending transactions, detections
// and protection rules.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// AttackType classifies a detected MEV pattern.
type AttackType string

const (
	AttackFrontrunning AttackType = "FRONTRUNNING"
	AttackBackrunning  AttackType = "BACKRUNNING"
	AttackSandwiching  AttackType = "SANDWICHING"
	AttackJITLiquidity AttackType = "JIT_LIQUIDITY"
	AttackLiquidation  AttackType = "LIQUIDATION"
	AttackUnknown      AttackType = "UNKNOWN"
)

// PendingTx is a transaction submitted for MEV analysis. Value is in USD.
type PendingTx struct {
	Hash         string          `json:"hash"`
	From         string          `json:"from"`
	To           string          `json:"to"`
	Value        decimal.Decimal `json:"value"`
	GasPriceGwei decimal.Decimal `json:"gas_price"`
	GasLimit     uint64          `json:"gas_limit"`
	BlockNumber  uint64          `json:"block_number"`
	Data         string          `json:"data,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// Detection is a flagged transaction.
type Detection struct {
	ID                string          `json:"id"`
	TxHash            string          `json:"tx_hash"`
	AttackType        AttackType      `json:"attack_type"`
	Confidence        float64         `json:"confidence"`
	EstimatedLoss     decimal.Decimal `json:"estimated_loss"`
	AttackerTxs       []string        `json:"attacker_txs,omitempty"`
	BlockNumber       uint64          `json:"block_number"`
	Reason            string          `json:"reason"`
	ProtectionApplied bool            `json:"protection_applied"`
	DetectedAt        time.Time       `json:"detected_at"`
}

// LossRate is the share of a victim's value assumed extracted.
var LossRate = decimal.RequireFromString("0.005")

// Stats aggregates detector history.
type Stats struct {
	Monitored          uint64             `json:"monitored"`
	TotalDetections    uint64             `json:"total_detections"`
	ByType             map[AttackType]int `json:"by_type"`
	Protected          uint64             `json:"protected"`
	TotalEstimatedLoss decimal.Decimal    `json:"total_estimated_loss"`
}
