// Package app contains the flash-loan simulator.
package app

import (
	"context"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexter/business/flashloan/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

const (
	tracerName = "flashloan.simulator"

	stepOverhead        = 50 * time.Millisecond
	stepSuccessProb     = 0.95
	defaultMaxHistory   = 1000
	defaultGasPriceGwei = 30
)

var (
	hundred   = decimal.NewFromInt(100)
	gweiToETH = decimal.New(1, -9)
)

// Config tunes the simulator.
type Config struct {
	GasPriceGwei decimal.Decimal
	MaxHistory   int
}

// Simulator runs flash-loan strategies against a provider without touching a chain.
type Simulator struct {
	config Config
	logger logger.LoggerInterface
	tracer trace.Tracer
	now    func() time.Time

	mu         sync.RWMutex
	providers  map[string]domain.Provider
	strategies map[string]domain.Strategy
	prices     map[string]decimal.Decimal
	history    []domain.SimulationResult // newest first
}

// NewSimulator creates a Simulator over catalog.
func NewSimulator(catalog domain.Catalog, config Config, log logger.LoggerInterface) *Simulator {
	if !config.GasPriceGwei.IsPositive() {
		config.GasPriceGwei = decimal.NewFromInt(defaultGasPriceGwei)
	}
	if config.MaxHistory <= 0 {
		config.MaxHistory = defaultMaxHistory
	}
	s := &Simulator{
		config:     config,
		logger:     log,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
		providers:  make(map[string]domain.Provider),
		strategies: make(map[string]domain.Strategy),
		prices:     make(map[string]decimal.Decimal),
	}
	for _, p := range catalog.Providers {
		s.providers[strings.ToLower(p.ID)] = p
	}
	for _, st := range catalog.Strategies {
		s.strategies[st.ID] = st
	}
	for tok, px := range catalog.Prices {
		s.prices[strings.ToUpper(tok)] = px
	}
	return s
}

// Providers returns the provider catalog.
func (s *Simulator) Providers() []domain.Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Provider, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, p)
	}
	return out
}

// Strategies returns the strategy catalog.
func (s *Simulator) Strategies() []domain.Strategy {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Strategy, 0, len(s.strategies))
	for _, st := range s.strategies {
		out = append(out, st)
	}
	return out
}

// SetPrice updates a token's USD price.
func (s *Simulator) SetPrice(token string, price decimal.Decimal) {
	if !price.IsPositive() {
		return
	}
	s.mu.Lock()
	s.prices[strings.ToUpper(token)] = price
	s.mu.Unlock()
}

// Price returns a token's USD price.
func (s *Simulator) Price(token string) (decimal.Decimal, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.prices[strings.ToUpper(token)]
	return p, ok
}

func (s *Simulator) provider(name string) (domain.Provider, bool) {
	if p, ok := s.providers[strings.ToLower(name)]; ok {
		return p, true
	}
	for _, p := range s.providers {
		if strings.EqualFold(p.Name, name) {
			return p, true
		}
	}
	return domain.Provider{}, false
}

// Simulate executes req's strategy on paper. Each leg converts the previous
// output at StepGain. The loan fee is charged once on the borrowed amount;
// gas for every leg is priced in ETH and converted into the borrowed token.
func (s *Simulator) Simulate(ctx context.Context, req domain.Request) (*domain.SimulationResult, error) {
	ctx, span := s.tracer.Start(ctx, "flashloan.simulate", trace.WithAttributes(
		attribute.String("provider", req.Provider),
		attribute.String("strategy", req.Strategy),
		attribute.String("token", req.Token)))
	defer span.End()

	s.mu.RLock()
	provider, ok := s.provider(req.Provider)
	strategy, sok := s.strategies[req.Strategy]
	tokenPrice, pok := s.prices[strings.ToUpper(req.Token)]
	ethPrice, eok := s.prices["ETH"]
	s.mu.RUnlock()

	if !ok {
		return nil, apperror.NotFound(apperror.CodeFlashLoanProviderNotFound, req.Provider)
	}
	if !sok {
		return nil, apperror.NotFound(apperror.CodeFlashLoanStrategyNotFound, req.Strategy)
	}
	if !provider.Supports(req.Token) {
		return nil, apperror.Validation(apperror.CodeInvalidFlashLoanToken,
			fmt.Sprintf("%s does not lend %s", provider.Name, req.Token))
	}
	if !pok || !eok || !tokenPrice.IsPositive() {
		return nil, apperror.New(apperror.CodeFlashLoanPriceUnavailable,
			apperror.WithContext("no price for "+strings.ToUpper(req.Token)))
	}
	if req.Amount.LessThan(provider.MinAmount) || req.Amount.GreaterThan(provider.MaxAmount) {
		return nil, apperror.Validation(apperror.CodeInvalidFlashLoanAmount,
			fmt.Sprintf("%s not in [%s, %s]", req.Amount, provider.MinAmount, provider.MaxAmount))
	}

	path := make([]domain.ExecutionStep, 0, len(strategy.Steps))
	current := req.Amount
	overall := strategy.Risk
	for i, st := range strategy.Steps {
		in := current.Mul(st.AmountPct).Div(hundred)
		out := in.Mul(domain.StepGain)
		path = append(path, domain.ExecutionStep{
			Step:               i + 1,
			Action:             st.Action,
			Input:              in,
			Output:             out,
			PriceImpact:        st.Slippage,
			GasUsed:            st.Gas,
			SuccessProbability: stepSuccessProb,
		})
		overall = math.Max(overall, st.Risk)
		current = out
	}

	loanFee := req.Amount.Mul(provider.Fee)
	gasUSD := decimal.NewFromInt(int64(strategy.TotalGas())).Mul(s.config.GasPriceGwei).Mul(gweiToETH).Mul(ethPrice)
	gasToken := gasUSD.Div(tokenPrice)
	profitLoss := current.Sub(req.Amount).Sub(loanFee)
	net := profitLoss.Sub(gasToken)

	risk := domain.RiskAssessment{
		Overall:   overall,
		Liquidity: req.Amount.Div(provider.MaxAmount).InexactFloat64(),
		Execution: 1 - provider.Reliability,
	}
	if risk.Liquidity > 0.5 {
		risk.Factors = append(risk.Factors, "loan uses over half of provider liquidity")
	}
	if overall > strategy.MaxRisk {
		risk.Factors = append(risk.Factors, "step risk above strategy maximum")
	}
	if net.LessThan(strategy.MinProfit.Div(tokenPrice)) {
		risk.Factors = append(risk.Factors, "net profit below strategy minimum")
	}

	res := &domain.SimulationResult{
		ID:           uuid.NewString(),
		Request:      req,
		Provider:     provider.Name,
		Strategy:     strategy.Name,
		Success:      net.IsPositive(),
		FinalOutput:  current,
		LoanFee:      loanFee,
		GasCost:      gasToken,
		GasCostUSD:   gasUSD,
		TotalFees:    loanFee.Add(gasToken),
		ProfitLoss:   profitLoss,
		NetProfit:    net,
		NetProfitUSD: net.Mul(tokenPrice),
		Path:         path,
		Risk:         risk,
		Timing: domain.Timing{
			Total:          provider.ExecTime + time.Duration(len(path))*stepOverhead,
			BlockDependent: true,
		},
		SimulatedAt: s.now(),
	}

	s.mu.Lock()
	s.history = append([]domain.SimulationResult{*res}, s.history...)
	if len(s.history) > s.config.MaxHistory {
		s.history = s.history[:s.config.MaxHistory]
	}
	s.mu.Unlock()

	s.logger.Info(ctx, "flash loan simulated",
		"id", res.ID, "provider", provider.Name, "strategy", strategy.ID,
		"amount", req.Amount.String(), "token", req.Token,
		"net", net.StringFixed(4), "success", res.Success)
	return res, nil
}

// History returns up to n results, newest first.
func (s *Simulator) History(n int) []domain.SimulationResult {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if n <= 0 || n > len(s.history) {
		n = len(s.history)
	}
	out := make([]domain.SimulationResult, n)
	copy(out, s.history[:n])
	return out
}

// Stats aggregates the retained history.
func (s *Simulator) Stats() domain.Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := domain.Stats{Total: len(s.history), AvgProfit: decimal.Zero}
	if st.Total == 0 {
		return st
	}
	sum := decimal.Zero
	var exec time.Duration
	for _, r := range s.history {
		if r.Success {
			st.Successful++
		}
		sum = sum.Add(r.NetProfitUSD)
		exec += r.Timing.Total
	}
	st.AvgProfit = sum.Div(decimal.NewFromInt(int64(st.Total)))
	st.AvgExecTime = exec / time.Duration(st.Total)
	return st
}
