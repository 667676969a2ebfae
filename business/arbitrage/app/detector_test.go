package app

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/dexter/business/blockchain/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/asset"
	"github.com/fd1az/dexter/internal/logger"
)

type stubBlocks struct {
	ch     chan *blockchainDomain.Block
	gasErr error
}

func (s *stubBlocks) SubscribeBlocks(ctx context.Context) (<-chan *blockchainDomain.Block, error) {
	return s.ch, nil
}

func (s *stubBlocks) EstimateGasCost(ctx context.Context, gasLimit uint64) (*blockchainDomain.GasEstimate, error) {
	if s.gasErr != nil {
		return nil, s.gasErr
	}
	return blockchainDomain.NewGasEstimate(gasLimit, blockchainDomain.NewGasPriceFromGwei(decimal.NewFromInt(25))), nil
}

type stubPricing struct {
	bid, ask, dex decimal.Decimal
}

func (s *stubPricing) GetPriceSnapshot(ctx context.Context, pair pricingDomain.Pair, size decimal.Decimal) (*pricingDomain.PriceSnapshot, error) {
	amt, _ := asset.ParseDecimal(pair.Base, size)
	bid := pricingDomain.NewPrice(asset.NewPriceNow(pair.Base, pair.Quote, s.bid), amt, pricingDomain.SideSell, "binance")
	ask := pricingDomain.NewPrice(asset.NewPriceNow(pair.Base, pair.Quote, s.ask), amt, pricingDomain.SideBuy, "binance")

	out, _ := asset.ParseDecimal(pair.Quote, size.Mul(s.dex))
	quote := pricingDomain.NewQuote(pair.Base, pair.Quote, amt, out, 120000, 3000)

	mid := s.bid.Add(s.ask).Div(decimal.NewFromInt(2))
	return &pricingDomain.PriceSnapshot{
		Pair:     pair,
		CEXBid:   &bid,
		CEXAsk:   &ask,
		DEXQuote: &quote,
		Spread:   pricingDomain.CalculateSpread(mid, s.dex),
	}, nil
}

type recordingReporter struct {
	mu       sync.Mutex
	reported []*domain.Opportunity
	scanned  int
	prices   int
}

func (r *recordingReporter) Start(ctx context.Context) error { return nil }
func (r *recordingReporter) Stop() error                     { return nil }
func (r *recordingReporter) UpdateConnectionStatus(string, bool, time.Duration) {
}

func (r *recordingReporter) Report(opp *domain.Opportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.reported = append(r.reported, opp)
}

func (r *recordingReporter) ReportScan(opp *domain.Opportunity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scanned++
}

func (r *recordingReporter) UpdatePrices(*pricingDomain.PriceSnapshot) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.prices++
}

func (r *recordingReporter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.reported)
}

type stubRefs map[string]decimal.Decimal

func (s stubRefs) MidPrice(pair string) (decimal.Decimal, bool) {
	p, ok := s[pair]
	return p, ok
}

type fixedSizer decimal.Decimal

func (f fixedSizer) CalculatePositionSize(entry, stop decimal.Decimal) decimal.Decimal {
	return decimal.Decimal(f)
}

func newTestDetector(blocks BlockSource, sizer PositionSizer, rep Reporter) *Detector {
	return NewDetector(
		blocks,
		&stubPricing{bid: decimal.NewFromInt(3399), ask: decimal.NewFromInt(3401), dex: decimal.NewFromInt(3350)},
		NewProfitCalculator(decimal.NewFromInt(10), decimal.NewFromInt(50)),
		rep,
		sizer,
		DetectorConfig{
			Pairs:       []pricingDomain.Pair{pricingDomain.NewPair(asset.ETH, asset.USDC)},
			TradeSizes:  []decimal.Decimal{decimal.NewFromInt(1), decimal.NewFromInt(10)},
			StopLossPct: decimal.RequireFromString("0.02"),
		},
		logger.NewNop(),
	)
}

func TestDetector_ProcessBlock(t *testing.T) {
	rep := &recordingReporter{}
	d := newTestDetector(&stubBlocks{}, nil, rep)

	found := d.ProcessBlock(context.Background(), &blockchainDomain.Block{Number: 100, Hash: common.HexToHash("0x01")})

	// 1 ETH: gross 50, fees 13.6, gas 17 -> 19.4 < $50. 10 ETH: 500-136-17 = 347.
	if len(found) != 1 {
		t.Fatalf("found %d opportunities, want 1", len(found))
	}
	opp := found[0]

	if opp.Direction != domain.DirectionDEXToCEX {
		t.Errorf("direction = %s, want DEX_TO_CEX", opp.Direction)
	}
	if !opp.TradeSize.Equal(decimal.NewFromInt(10)) {
		t.Errorf("trade size = %s, want 10", opp.TradeSize)
	}
	if !opp.CEXPrice.Equal(decimal.NewFromInt(3399)) {
		t.Errorf("CEX price = %s, want bid 3399", opp.CEXPrice)
	}
	if !opp.Profit.NetProfitRaw.Equal(decimal.NewFromInt(347)) {
		t.Errorf("net = %s, want 347", opp.Profit.NetProfitRaw)
	}
	if opp.BlockNumber != 100 {
		t.Errorf("block = %d", opp.BlockNumber)
	}
	if len(opp.ExecutionSteps) != 3 {
		t.Errorf("execution steps = %d, want 3", len(opp.ExecutionSteps))
	}
	if rep.scanned != 2 || rep.prices != 2 || rep.count() != 1 {
		t.Errorf("scanned=%d prices=%d reported=%d", rep.scanned, rep.prices, rep.count())
	}
	if d.Found() != 1 {
		t.Errorf("Found() = %d", d.Found())
	}
}

func TestDetector_RiskSizerSkipsOversizedTrades(t *testing.T) {
	rep := &recordingReporter{}
	d := newTestDetector(&stubBlocks{}, fixedSizer(decimal.NewFromInt(10_000)), rep)

	found := d.ProcessBlock(context.Background(), &blockchainDomain.Block{Number: 1})

	if len(found) != 0 {
		t.Fatalf("found %d, want 0: 10 ETH is $34000 against a $10000 limit", len(found))
	}
	if rep.scanned != 1 {
		t.Errorf("scanned = %d, want only the 1 ETH candidate", rep.scanned)
	}
}

func TestDetector_GasFailureSkipsBlock(t *testing.T) {
	rep := &recordingReporter{}
	d := newTestDetector(&stubBlocks{gasErr: errors.New("rpc down")}, nil, rep)

	if found := d.ProcessBlock(context.Background(), &blockchainDomain.Block{Number: 1}); found != nil {
		t.Fatalf("expected nil, got %d", len(found))
	}
	if rep.prices != 0 {
		t.Errorf("prices fetched despite gas failure")
	}
}

func TestDetector_StartConsumesBlocks(t *testing.T) {
	blocks := &stubBlocks{ch: make(chan *blockchainDomain.Block, 1)}
	rep := &recordingReporter{}
	d := newTestDetector(blocks, nil, rep)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := d.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	blocks.ch <- &blockchainDomain.Block{Number: 7}

	deadline := time.Now().Add(time.Second)
	for rep.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if rep.count() != 1 {
		t.Fatalf("reported = %d, want 1", rep.count())
	}
}

func TestDetector_GasPricedFromReferenceMid(t *testing.T) {
	tests := []struct {
		name    string
		pair    pricingDomain.Pair
		refs    ReferencePrices
		scanned int
		gasUSD  string
		net     string
	}{
		{
			name: "aggregated ETH/USDC mid wins over the pair's own mid",
			pair: pricingDomain.NewPair(asset.ETH, asset.USDC),
			refs: stubRefs{"ETH/USDC": decimal.NewFromInt(3000)},
			// 200k gas at 25 gwei is 0.005 ETH
			scanned: 2, gasUSD: "15", net: "349",
		},
		{
			name:    "ETH pair falls back to its CEX mid",
			pair:    pricingDomain.NewPair(asset.ETH, asset.USDC),
			refs:    stubRefs{},
			scanned: 2, gasUSD: "17", net: "347",
		},
		{
			name:    "non-ETH pair uses the ETH/USDC mid",
			pair:    pricingDomain.NewPair(asset.WBTC, asset.USDC),
			refs:    stubRefs{"ETH/USDC": decimal.NewFromInt(3000)},
			scanned: 2, gasUSD: "15", net: "349",
		},
		{
			name: "non-ETH pair without a reference is skipped",
			pair: pricingDomain.NewPair(asset.WBTC, asset.USDC),
			refs: nil,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rep := &recordingReporter{}
			d := newTestDetector(&stubBlocks{}, nil, rep)
			d.config.Pairs = []pricingDomain.Pair{tt.pair}
			if tt.refs != nil {
				d.SetReferencePrices(tt.refs)
			}

			found := d.ProcessBlock(context.Background(), &blockchainDomain.Block{Number: 9})

			if rep.scanned != tt.scanned {
				t.Fatalf("scanned = %d, want %d", rep.scanned, tt.scanned)
			}
			if tt.scanned == 0 {
				return
			}
			if len(found) != 1 {
				t.Fatalf("found %d, want 1", len(found))
			}
			if got := found[0].GasCost.TotalUSD.ToDecimal(); !got.Equal(decimal.RequireFromString(tt.gasUSD)) {
				t.Errorf("gas = %s, want %s", got, tt.gasUSD)
			}
			if got := found[0].Profit.NetProfitRaw; !got.Equal(decimal.RequireFromString(tt.net)) {
				t.Errorf("net = %s, want %s", got, tt.net)
			}
		})
	}
}
