package app

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dexter/business/mev/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type stubBaseline struct {
	gwei decimal.Decimal
	ok   bool
}

func (s stubBaseline) GasBaseline() (decimal.Decimal, bool) { return s.gwei, s.ok }

type recordingPublisher struct {
	mu     sync.Mutex
	frames []string
}

func (r *recordingPublisher) Publish(ctx context.Context, channel, msgType string, data any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.frames = append(r.frames, channel+"/"+msgType)
}

func testRules() []domain.ProtectionRule {
	return []domain.ProtectionRule{
		{ID: "gas_price_limit", Type: domain.RuleGasPriceLimit, Enabled: true, Priority: 2,
			Params: map[string]string{"max_multiplier": "1.5"}},
		{ID: "private_mempool", Type: domain.RulePrivateMempool, Enabled: true, Priority: 1,
			Params: map[string]string{"min_value": "1000"}},
	}
}

func tx(hash, from, to string, gas string, block uint64) domain.PendingTx {
	return domain.PendingTx{Hash: hash, From: from, To: to, Value: d("10000"), GasPriceGwei: d(gas), BlockNumber: block}
}

func TestAnalyze_GasThreshold(t *testing.T) {
	det := NewDetector(DetectorConfig{}, nil, nil, logger.NewNop())

	got, ok := det.Analyze(context.Background(), tx("0x1", "a", "pool", "1500", 1))
	require.True(t, ok)
	assert.Equal(t, domain.AttackFrontrunning, got.AttackType)
	assert.Equal(t, 0.95, got.Confidence)
	assert.True(t, got.EstimatedLoss.Equal(d("50")))
	assert.NotEmpty(t, got.ID)

	_, ok = det.Analyze(context.Background(), tx("0x2", "a", "pool", "999", 1))
	assert.False(t, ok)
}

func TestAnalyze_Baseline(t *testing.T) {
	det := NewDetector(DetectorConfig{}, stubBaseline{gwei: d("40"), ok: true}, nil, logger.NewNop())

	got, ok := det.Analyze(context.Background(), tx("0x1", "a", "pool", "70", 1))
	require.True(t, ok)
	assert.Equal(t, 0.7, got.Confidence)

	_, ok = det.Analyze(context.Background(), tx("0x2", "b", "router", "50", 1))
	assert.False(t, ok)
}

func TestAnalyze_Sandwich(t *testing.T) {
	ctx := context.Background()
	det := NewDetector(DetectorConfig{}, nil, nil, logger.NewNop())

	victim := tx("0xv", "victim", "pool", "30", 10)
	victim.Value = d("20000")

	_, ok := det.Analyze(ctx, tx("0xf", "bot", "pool", "31", 10))
	assert.False(t, ok)
	_, ok = det.Analyze(ctx, victim)
	assert.False(t, ok)

	got, ok := det.Analyze(ctx, tx("0xb", "bot", "pool", "29", 10))
	require.True(t, ok)
	assert.Equal(t, domain.AttackSandwiching, got.AttackType)
	assert.Equal(t, "0xv", got.TxHash)
	assert.Equal(t, []string{"0xf", "0xb"}, got.AttackerTxs)
	assert.True(t, got.EstimatedLoss.Equal(d("100")))
}

func TestAnalyze_SandwichVictimFlaggedOnce(t *testing.T) {
	ctx := context.Background()
	det := NewDetector(DetectorConfig{}, nil, nil, logger.NewNop())

	det.Analyze(ctx, tx("0xf", "bot", "pool", "31", 10))
	det.Analyze(ctx, tx("0xv1", "alice", "pool", "30", 10))
	got, ok := det.Analyze(ctx, tx("0xb", "bot", "pool", "29", 10))
	require.True(t, ok)
	assert.Equal(t, "0xv1", got.TxHash)

	_, ok = det.Analyze(ctx, tx("0xb2", "bot", "pool", "29", 10))
	assert.False(t, ok, "the bot's next tx must not re-report the same victim")

	det.Analyze(ctx, tx("0xv2", "carol", "pool", "30", 10))
	got, ok = det.Analyze(ctx, tx("0xb3", "bot", "pool", "29", 10))
	require.True(t, ok)
	assert.Equal(t, "0xv2", got.TxHash)
	assert.Equal(t, []string{"0xb2", "0xb3"}, got.AttackerTxs)

	assert.Equal(t, 2, det.Stats().ByType[domain.AttackSandwiching])
	assert.Len(t, det.flagged, 2)
	det.AdvanceBlock(12)
	assert.Empty(t, det.flagged)
}

func TestAnalyze_SandwichOutsideBlockWindow(t *testing.T) {
	ctx := context.Background()
	det := NewDetector(DetectorConfig{}, nil, nil, logger.NewNop())

	det.Analyze(ctx, tx("0xf", "bot", "pool", "31", 5))
	det.Analyze(ctx, tx("0xv", "victim", "pool", "30", 5))
	_, ok := det.Analyze(ctx, tx("0xb", "bot", "pool", "29", 10))
	assert.False(t, ok)

	det.AdvanceBlock(10)
	assert.Len(t, det.window, 1)
}

func TestAnalyze_SensitivityGate(t *testing.T) {
	det := NewDetector(DetectorConfig{Sensitivity: 0.2}, stubBaseline{gwei: d("40"), ok: true}, nil, logger.NewNop())

	_, ok := det.Analyze(context.Background(), tx("0x1", "a", "pool", "70", 1))
	assert.False(t, ok, "0.7 confidence is below the 0.8 gate")

	_, ok = det.Analyze(context.Background(), tx("0x2", "a", "pool", "2000", 1))
	assert.True(t, ok)
}

func TestHistoryStatsAndPublish(t *testing.T) {
	ctx := context.Background()
	engine := NewProtectionEngine(testRules(), true, logger.NewNop())
	det := NewDetector(DetectorConfig{MaxHistory: 3}, nil, engine, logger.NewNop())
	pub := &recordingPublisher{}
	det.SetPublisher(pub)

	for i := 0; i < 5; i++ {
		_, ok := det.Analyze(ctx, tx(fmt.Sprintf("0x%d", i), "a", "pool", "2000", 1))
		require.True(t, ok)
	}

	recent := det.Recent(10)
	require.Len(t, recent, 3)
	assert.Equal(t, "0x4", recent[0].TxHash)
	assert.Equal(t, "0x2", recent[2].TxHash)
	assert.True(t, recent[0].ProtectionApplied)

	stats := det.Stats()
	assert.Equal(t, uint64(5), stats.Monitored)
	assert.Equal(t, uint64(5), stats.TotalDetections)
	assert.Equal(t, 5, stats.ByType[domain.AttackFrontrunning])
	assert.Equal(t, uint64(5), stats.Protected)
	assert.True(t, stats.TotalEstimatedLoss.Equal(d("250")))

	assert.Len(t, pub.frames, 5)
	assert.Equal(t, "mev/mev_alert", pub.frames[0])
}

func TestProtectionEngine(t *testing.T) {
	engine := NewProtectionEngine(testRules(), true, logger.NewNop())

	rules := engine.Rules()
	require.Len(t, rules, 2)
	assert.Equal(t, "private_mempool", rules[0].ID)

	big := tx("0x1", "a", "pool", "50", 1)
	res := engine.Apply(big, nil)
	assert.True(t, res.Success)
	assert.Equal(t, []string{"private_mempool", "gas_price_limit"}, res.Applied)
	assert.Equal(t, 0.7, res.RiskReduced)
	assert.True(t, res.AdditionalCost.Equal(d("10")))

	small := big
	small.Value = d("500")
	assert.Equal(t, []string{"gas_price_limit"}, engine.Apply(small, nil).Applied)

	require.NoError(t, engine.SetRuleEnabled("gas_price_limit", false))
	res = engine.Apply(small, nil)
	assert.False(t, res.Success)
	assert.Empty(t, res.Applied)

	engine.SetEnabled(false)
	res = engine.Apply(big, nil)
	assert.False(t, res.Success)
	assert.Equal(t, []string{"Protection disabled"}, res.Applied)
	assert.Equal(t, 3, engine.Results())

	err := engine.SetRuleEnabled("nope", true)
	assert.Equal(t, apperror.CodeMEVRuleNotFound, apperror.GetCode(err))

	err = engine.AddRule(domain.ProtectionRule{ID: "x", Type: "TELEPATHY"})
	assert.Equal(t, apperror.CodeInvalidMEVRule, apperror.GetCode(err))

	require.NoError(t, engine.AddRule(domain.ProtectionRule{ID: "slip", Type: domain.RuleSlippageProtection, Enabled: true, Priority: 0}))
	assert.Equal(t, "slip", engine.Rules()[0].ID)
}
