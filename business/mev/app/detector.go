package app

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/fd1az/dexter/business/mev/domain"
	"github.com/fd1az/dexter/internal/logger"
)

const (
	meterName = "mev.detector"

	// Stream channel and frame type for detections.
	ChannelMEV   = "mev"
	MsgTypeAlert = "mev_alert"

	thresholdConfidence = 0.95
	baselineConfidence  = 0.7
	sandwichConfidence  = 0.85

	maxWindowTxs = 512
)

// DetectorConfig tunes the detection rules.
type DetectorConfig struct {
	GasThresholdGwei   decimal.Decimal // default 1000
	BaselineMultiplier decimal.Decimal // default 1.5
	Sensitivity        float64         // default 0.8; reports need confidence >= 1-sensitivity
	MaxHistory         int             // default 10000
}

func (c *DetectorConfig) applyDefaults() {
	if !c.GasThresholdGwei.IsPositive() {
		c.GasThresholdGwei = decimal.NewFromInt(1000)
	}
	if !c.BaselineMultiplier.IsPositive() {
		c.BaselineMultiplier = decimal.RequireFromString("1.5")
	}
	if c.Sensitivity <= 0 || c.Sensitivity > 1 {
		c.Sensitivity = 0.8
	}
	if c.MaxHistory <= 0 {
		c.MaxHistory = 10000
	}
}

// Detector flags pending transactions that look like MEV.
type Detector struct {
	config     DetectorConfig
	baseline   BaselineSource    // optional
	protection *ProtectionEngine // optional
	logger     logger.LoggerInterface

	mu        sync.RWMutex
	publisher Publisher
	window    []domain.PendingTx     // recent txs for sandwich matching
	flagged   map[sandwichKey]uint64 // reported sandwiches -> victim block
	history   []domain.Detection     // oldest first
	stats     domain.Stats
	now       func() time.Time

	detections metric.Int64Counter
	monitored  metric.Int64Counter
}

// NewDetector creates a Detector. baseline and protection may be nil.
func NewDetector(config DetectorConfig, baseline BaselineSource, protection *ProtectionEngine, log logger.LoggerInterface) *Detector {
	config.applyDefaults()
	d := &Detector{
		config:     config,
		baseline:   baseline,
		protection: protection,
		logger:     log,
		now:        time.Now,
		flagged:    make(map[sandwichKey]uint64),
		stats:      domain.Stats{ByType: make(map[domain.AttackType]int), TotalEstimatedLoss: decimal.Zero},
	}
	meter := otel.Meter(meterName)
	d.detections, _ = meter.Int64Counter("mev_detections_total",
		metric.WithDescription("MEV detections reported"))
	d.monitored, _ = meter.Int64Counter("mev_transactions_monitored_total",
		metric.WithDescription("Transactions analyzed for MEV"))
	return d
}

// SetPublisher attaches the stream fan-out.
func (d *Detector) SetPublisher(p Publisher) {
	d.mu.Lock()
	d.publisher = p
	d.mu.Unlock()
}

// Analyze runs the detection rules over tx. The gas threshold rule wins over
// the baseline rule, which wins over sandwich matching. A detection is
// reported only if its confidence clears the sensitivity gate.
func (d *Detector) Analyze(ctx context.Context, tx domain.PendingTx) (*domain.Detection, bool) {
	if tx.Timestamp.IsZero() {
		tx.Timestamp = d.now()
	}
	d.monitored.Add(ctx, 1)

	d.mu.Lock()
	d.stats.Monitored++
	det := d.gasRules(tx)
	if det == nil {
		det = d.sandwichLocked(tx)
	}
	d.remember(tx)
	d.mu.Unlock()

	if det == nil || det.Confidence < 1-d.config.Sensitivity {
		return nil, false
	}

	if d.protection != nil {
		det.ProtectionApplied = d.protection.Apply(tx, det).Success
	}

	d.mu.Lock()
	d.history = append(d.history, *det)
	if len(d.history) > d.config.MaxHistory {
		d.history = d.history[len(d.history)-d.config.MaxHistory:]
	}
	d.stats.TotalDetections++
	d.stats.ByType[det.AttackType]++
	d.stats.TotalEstimatedLoss = d.stats.TotalEstimatedLoss.Add(det.EstimatedLoss)
	if det.ProtectionApplied {
		d.stats.Protected++
	}
	pub := d.publisher
	d.mu.Unlock()

	d.detections.Add(ctx, 1, metric.WithAttributes(attribute.String("type", string(det.AttackType))))
	d.logger.Warn(ctx, "MEV activity detected",
		"type", det.AttackType, "tx", det.TxHash, "confidence", det.Confidence, "reason", det.Reason)

	if pub != nil {
		pub.Publish(ctx, ChannelMEV, MsgTypeAlert, *det)
	}
	return det, true
}

func (d *Detector) gasRules(tx domain.PendingTx) *domain.Detection {
	if tx.GasPriceGwei.GreaterThan(d.config.GasThresholdGwei) {
		return d.newDetection(tx, domain.AttackFrontrunning, thresholdConfidence,
			fmt.Sprintf("gas %s gwei above %s gwei threshold", tx.GasPriceGwei, d.config.GasThresholdGwei))
	}
	if d.baseline == nil {
		return nil
	}
	base, ok := d.baseline.GasBaseline()
	if !ok || !base.IsPositive() {
		return nil
	}
	limit := base.Mul(d.config.BaselineMultiplier)
	if tx.GasPriceGwei.GreaterThan(limit) {
		return d.newDetection(tx, domain.AttackFrontrunning, baselineConfidence,
			fmt.Sprintf("gas %s gwei above %s x baseline %s gwei",
				tx.GasPriceGwei, d.config.BaselineMultiplier, base.StringFixed(2)))
	}
	return nil
}

// sandwichLocked treats tx as a potential back-run: an earlier tx from the
// same sender to the same target, with another sender's tx to that target
// in between, within one block of tx.
func (d *Detector) sandwichLocked(tx domain.PendingTx) *domain.Detection {
	if tx.From == "" || tx.To == "" {
		return nil
	}
	front := -1
	for i, w := range d.window {
		if !sameBlockWindow(w, tx) {
			continue
		}
		if w.From == tx.From && w.To == tx.To && w.Hash != tx.Hash {
			front = i
			continue
		}
		if front >= 0 && w.To == tx.To && w.From != tx.From {
			key := sandwichKey{attacker: tx.From, victim: w.Hash}
			if _, seen := d.flagged[key]; seen {
				continue
			}
			d.flagged[key] = w.BlockNumber
			det := d.newDetection(w, domain.AttackSandwiching, sandwichConfidence,
				fmt.Sprintf("victim bracketed by %s", tx.From))
			det.AttackerTxs = []string{d.window[front].Hash, tx.Hash}
			return det
		}
	}
	return nil
}

// sandwichKey identifies a victim already reported against an attacker.
type sandwichKey struct {
	attacker string
	victim   string
}

func sameBlockWindow(a, b domain.PendingTx) bool {
	if a.BlockNumber > b.BlockNumber {
		return a.BlockNumber-b.BlockNumber <= 1
	}
	return b.BlockNumber-a.BlockNumber <= 1
}

func (d *Detector) remember(tx domain.PendingTx) {
	d.window = append(d.window, tx)
	if len(d.window) > maxWindowTxs {
		d.window = d.window[len(d.window)-maxWindowTxs:]
	}
	if len(d.flagged) > maxWindowTxs {
		live := make(map[string]bool, len(d.window))
		for _, w := range d.window {
			live[w.Hash] = true
		}
		for key := range d.flagged {
			if !live[key.victim] {
				delete(d.flagged, key)
			}
		}
	}
}

// AdvanceBlock drops window txs and reported sandwiches older than one
// block before number.
func (d *Detector) AdvanceBlock(number uint64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	kept := d.window[:0]
	for _, tx := range d.window {
		if tx.BlockNumber+1 >= number {
			kept = append(kept, tx)
		}
	}
	d.window = kept
	for key, block := range d.flagged {
		if block+1 < number {
			delete(d.flagged, key)
		}
	}
}

func (d *Detector) newDetection(tx domain.PendingTx, typ domain.AttackType, confidence float64, reason string) *domain.Detection {
	return &domain.Detection{
		ID:            uuid.NewString(),
		TxHash:        tx.Hash,
		AttackType:    typ,
		Confidence:    confidence,
		EstimatedLoss: tx.Value.Mul(domain.LossRate),
		BlockNumber:   tx.BlockNumber,
		Reason:        reason,
		DetectedAt:    d.now(),
	}
}

// Recent returns up to n detections, newest first.
func (d *Detector) Recent(n int) []domain.Detection {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if n <= 0 || n > len(d.history) {
		n = len(d.history)
	}
	out := make([]domain.Detection, 0, n)
	for i := len(d.history) - 1; i >= 0 && len(out) < n; i-- {
		out = append(out, d.history[i])
	}
	return out
}

// Stats returns a copy of the detector statistics.
func (d *Detector) Stats() domain.Stats {
	d.mu.RLock()
	defer d.mu.RUnlock()
	s := d.stats
	s.ByType = make(map[domain.AttackType]int, len(d.stats.ByType))
	for k, v := range d.stats.ByType {
		s.ByType[k] = v
	}
	return s
}

// Protection returns the protection engine, or nil.
func (d *Detector) Protection() *ProtectionEngine {
	return d.protection
}
