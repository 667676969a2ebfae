package main

import (
	"context"
	"time"

	blockchainDI "github.com/fd1az/dexter/business/blockchain/di"
	blockchainDomain "github.com/fd1az/dexter/business/blockchain/domain"
	crosschainDI "github.com/fd1az/dexter/business/crosschain/di"
	flashloanDI "github.com/fd1az/dexter/business/flashloan/di"
	liquidityDI "github.com/fd1az/dexter/business/liquidity/di"
	mevDI "github.com/fd1az/dexter/business/mev/di"
	pricingDI "github.com/fd1az/dexter/business/pricing/di"
	streamingDI "github.com/fd1az/dexter/business/streaming/di"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/di"
	"github.com/fd1az/dexter/pkg/ui"
	"github.com/fd1az/dexter/pkg/ui/components"
)

const (
	feedInterval = 2 * time.Second
	feedPools    = 5
	feedThreats  = 5
)

// feedTUI polls the loaded modules and pushes panel updates to the TUI until
// ctx ends.
func feedTUI(ctx context.Context, sr di.ServiceRegistry, cfg *config.Config) {
	f := &feeder{sr: sr, cfg: cfg, seen: make(map[string]struct{})}
	if f.has(blockchainDI.BlockchainService.Name()) {
		blockchainDI.GetBlockchainService(sr).OnBlock(func(_ context.Context, b *blockchainDomain.Block) {
			ui.Send(ui.BlockMsg{Number: b.Number, Timestamp: b.Timestamp})
		})
	}
	ticker := time.NewTicker(feedInterval)
	defer ticker.Stop()
	for {
		f.tick()
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

type feeder struct {
	sr   di.ServiceRegistry
	cfg  *config.Config
	seen map[string]struct{}
}

func (f *feeder) has(name string) bool {
	return f.sr.Has(name)
}

func (f *feeder) tick() {
	var stats components.Stats

	if f.has(blockchainDI.BlockchainService.Name()) {
		svc := blockchainDI.GetBlockchainService(f.sr)
		st := svc.ConnectionStatus()
		name := "Ethereum"
		if st.UsingHTTP {
			name += " (http)"
		}
		ui.Send(ui.ConnectionStatusMsg{
			Name:      name,
			Connected: st.State == blockchainDomain.StateConnected,
			Latency:   st.Latency,
		})
		if gwei, ok := svc.GasBaseline(); ok {
			ui.Send(ui.GasPriceMsg{GweiPrice: gwei.InexactFloat64(), BaseFee: st.BaseFeeGwei.InexactFloat64()})
		}
	}
	if f.has(pricingDI.PricingService.Name()) {
		if c, ok := pricingDI.GetPricingService(f.sr).CEX().(interface{ IsConnected() bool }); ok {
			ui.Send(ui.ConnectionStatusMsg{Name: "Binance", Connected: c.IsConnected()})
		}
	}

	if f.has(pricingDI.Aggregator.Name()) {
		agg := pricingDI.GetAggregator(f.sr)
		stats.VenueOpportunities = len(agg.TopOpportunities(0))

		venues := make(map[string]*components.VenueStatus)
		for _, name := range agg.Sources() {
			venues[name] = &components.VenueStatus{Name: name}
		}
		for _, pair := range f.cfg.Aggregator.Pairs {
			for _, p := range agg.Prices(pair) {
				v, ok := venues[p.Exchange]
				if !ok {
					continue
				}
				v.Quotes++
				if p.Timestamp.After(v.LastUpdate) {
					v.LastUpdate = p.Timestamp
				}
			}
		}
		rows := make([]components.VenueStatus, 0, len(venues))
		for _, v := range venues {
			rows = append(rows, *v)
		}
		ui.Send(ui.VenueStatusMsg{Venues: rows})
	}

	if f.has(crosschainDI.Service.Name()) {
		svc := crosschainDI.GetService(f.sr)
		for _, token := range f.cfg.CrossChain.Tokens {
			stats.CrossChainQuotes += len(svc.Prices(token))
		}
	}

	if f.has(mevDI.Detector.Name()) {
		det := mevDI.GetDetector(f.sr)
		s := det.Stats()
		stats.MEVDetections = s.TotalDetections
		stats.MEVProtected = s.Protected

		recent := det.Recent(feedThreats)
		// Oldest first so the panel ends up newest on top.
		for i := len(recent) - 1; i >= 0; i-- {
			d := recent[i]
			if _, ok := f.seen[d.ID]; ok {
				continue
			}
			f.seen[d.ID] = struct{}{}
			ui.Send(ui.MEVAlertMsg{Threat: components.ThreatRow{
				Type:       string(d.AttackType),
				TxHash:     d.TxHash,
				Confidence: d.Confidence,
				LossUSD:    d.EstimatedLoss.InexactFloat64(),
				Protected:  d.ProtectionApplied,
				DetectedAt: d.DetectedAt,
			}})
		}
	}

	if f.has(flashloanDI.Simulator.Name()) {
		s := flashloanDI.GetSimulator(f.sr).Stats()
		stats.FlashLoanSims = s.Total
		stats.FlashLoanSuccess = s.Successful
	}

	if f.has(liquidityDI.Manager.Name()) {
		mgr := liquidityDI.GetManager(f.sr)
		a := mgr.Analytics()
		stats.PoolsTracked = a.TotalPools
		stats.Positions = a.TotalPositions

		best := mgr.BestPools(feedPools)
		rows := make([]components.PoolRow, 0, len(best))
		for _, p := range best {
			pa, err := mgr.PoolAnalytics(p.ID)
			risk := ""
			if err == nil {
				risk = string(pa.RiskAssessment)
			}
			rows = append(rows, components.PoolRow{
				Pair:     p.Pair,
				Protocol: p.Protocol,
				APY:      p.APY,
				TVL:      p.TVL.InexactFloat64(),
				IL:       p.ImpermanentLoss,
				Risk:     risk,
			})
		}
		ui.Send(ui.PoolsMsg{Rows: rows})
	}

	if f.has(streamingDI.Hub.Name()) {
		s := streamingDI.GetHub(f.sr).Stats()
		stats.StreamClients = s.ConnectedClients
		stats.StreamDropped = s.MessagesDropped
	}

	ui.Send(ui.PlatformStatsMsg{Stats: stats})
}
