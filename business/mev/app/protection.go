package app

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/mev/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

const maxProtectionResults = 10000

var (
	protectionRiskReduction = 0.7
	protectionCost          = decimal.NewFromInt(10)
)

// ProtectionEngine holds the mitigation rules and applies them to flagged txs.
type ProtectionEngine struct {
	mu      sync.RWMutex
	rules   map[string]domain.ProtectionRule
	enabled bool
	results []domain.ProtectionResult
	logger  logger.LoggerInterface
	now     func() time.Time
}

// NewProtectionEngine creates an engine seeded with rules.
func NewProtectionEngine(rules []domain.ProtectionRule, enabled bool, log logger.LoggerInterface) *ProtectionEngine {
	e := &ProtectionEngine{
		rules:   make(map[string]domain.ProtectionRule, len(rules)),
		enabled: enabled,
		logger:  log,
		now:     time.Now,
	}
	for _, r := range rules {
		e.rules[r.ID] = r
	}
	return e
}

// SetEnabled turns protection on or off.
func (e *ProtectionEngine) SetEnabled(enabled bool) {
	e.mu.Lock()
	e.enabled = enabled
	e.mu.Unlock()
	if enabled {
		e.logger.Info(context.Background(), "MEV protection enabled")
	} else {
		e.logger.Warn(context.Background(), "MEV protection disabled")
	}
}

// Enabled reports whether protection is on.
func (e *ProtectionEngine) Enabled() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.enabled
}

// AddRule inserts or replaces a rule.
func (e *ProtectionEngine) AddRule(rule domain.ProtectionRule) error {
	if err := rule.Validate(); err != nil {
		return apperror.Validation(apperror.CodeInvalidMEVRule, err.Error())
	}
	e.mu.Lock()
	e.rules[rule.ID] = rule
	e.mu.Unlock()
	return nil
}

// SetRuleEnabled toggles a single rule.
func (e *ProtectionEngine) SetRuleEnabled(id string, enabled bool) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := e.rules[id]
	if !ok {
		return apperror.NotFound(apperror.CodeMEVRuleNotFound, id)
	}
	r.Enabled = enabled
	e.rules[id] = r
	return nil
}

// Rules returns the rules in priority order.
func (e *ProtectionEngine) Rules() []domain.ProtectionRule {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.sortedLocked()
}

func (e *ProtectionEngine) sortedLocked() []domain.ProtectionRule {
	out := make([]domain.ProtectionRule, 0, len(e.rules))
	for _, r := range e.rules {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Priority != out[j].Priority {
			return out[i].Priority < out[j].Priority
		}
		return out[i].ID < out[j].ID
	})
	return out
}

// Apply runs every matching rule against tx in priority order.
func (e *ProtectionEngine) Apply(tx domain.PendingTx, det *domain.Detection) domain.ProtectionResult {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := domain.ProtectionResult{TxHash: tx.Hash, Timestamp: e.now(), AdditionalCost: decimal.Zero}
	if !e.enabled {
		res.Applied = []string{"Protection disabled"}
		return res
	}

	for _, r := range e.sortedLocked() {
		if r.Matches(tx, det) {
			res.Applied = append(res.Applied, r.ID)
		}
	}
	if len(res.Applied) > 0 {
		res.Success = true
		res.RiskReduced = protectionRiskReduction
		res.AdditionalCost = protectionCost
	}

	e.results = append(e.results, res)
	if len(e.results) > maxProtectionResults {
		e.results = e.results[len(e.results)-maxProtectionResults:]
	}
	return res
}

// Results returns how many protection results are retained.
func (e *ProtectionEngine) Results() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return len(e.results)
}
