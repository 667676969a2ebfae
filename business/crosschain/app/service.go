package app

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dexter/business/crosschain/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

const (
	tracerName = "crosschain.service"
	meterName  = "crosschain.service"

	ChannelOpportunities = "opportunities"
	MsgTypeOpportunity   = "opportunity_update"

	confirmationBlocks = 3
	maxExecutions      = 1000
)

var hundred = decimal.NewFromInt(100)

type priceKey struct{ token, chain string }

// Service finds bridge routes and price gaps between chains.
type Service struct {
	logger    logger.LoggerInterface
	tracer    trace.Tracer
	found     metric.Int64Counter
	now       func() time.Time
	publisher Publisher

	mu         sync.RWMutex
	chains     map[string]domain.Chain
	order      []string
	bridges    []domain.Bridge
	prices     map[priceKey]domain.TokenPrice
	executions map[string]*domain.Execution
}

// NewService creates a Service over catalog.
func NewService(catalog domain.Catalog, log logger.LoggerInterface) *Service {
	s := &Service{
		logger:     log,
		tracer:     otel.Tracer(tracerName),
		now:        time.Now,
		chains:     make(map[string]domain.Chain, len(catalog.Chains)),
		bridges:    slices.Clone(catalog.Bridges),
		prices:     make(map[priceKey]domain.TokenPrice),
		executions: make(map[string]*domain.Execution),
	}
	for _, c := range catalog.Chains {
		s.chains[c.ID] = c
		s.order = append(s.order, c.ID)
	}
	s.found, _ = otel.Meter(meterName).Int64Counter("crosschain_opportunities_total",
		metric.WithDescription("Cross-chain opportunities above the profit floor"))
	return s
}

// SetPublisher enables streaming of scan results.
func (s *Service) SetPublisher(p Publisher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.publisher = p
}

// Chains returns the catalog chains in declaration order.
func (s *Service) Chains() []domain.Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]domain.Chain, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.chains[id])
	}
	return out
}

// Bridges returns the catalog bridges.
func (s *Service) Bridges() []domain.Bridge {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.bridges)
}

// Chain looks up a chain by ID.
func (s *Service) Chain(id string) (domain.Chain, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chains[strings.ToLower(id)]
	if !ok {
		return domain.Chain{}, apperror.NotFound(apperror.CodeChainNotFound, id)
	}
	return c, nil
}

// UpdateTokenPrice records token's USD price on chain.
func (s *Service) UpdateTokenPrice(chain, token string, price decimal.Decimal) error {
	chain = strings.ToLower(chain)
	token = strings.ToUpper(token)
	if !price.IsPositive() {
		return apperror.Validation(apperror.CodeInvalidTokenPrice, token+" on "+chain)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.chains[chain]; !ok {
		return apperror.NotFound(apperror.CodeChainNotFound, chain)
	}
	key := priceKey{token, chain}
	tp := s.prices[key]
	tp.Token, tp.Chain, tp.Price, tp.UpdatedAt = token, chain, price, s.now()
	s.prices[key] = tp
	return nil
}

// Prices returns the known per-chain prices of token.
func (s *Service) Prices(token string) []domain.TokenPrice {
	token = strings.ToUpper(token)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []domain.TokenPrice
	for k, p := range s.prices {
		if k.token == token {
			out = append(out, p)
		}
	}
	slices.SortFunc(out, func(a, b domain.TokenPrice) int { return strings.Compare(a.Chain, b.Chain) })
	return out
}

// FindRoute returns a direct bridge from one chain to another, or the
// cheapest two-hop route through an intermediate chain.
func (s *Service) FindRoute(from, to, token string) (domain.Route, error) {
	from, to, token = strings.ToLower(from), strings.ToLower(to), strings.ToUpper(token)

	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, id := range []string{from, to} {
		if _, ok := s.chains[id]; !ok {
			return domain.Route{}, apperror.NotFound(apperror.CodeChainNotFound, id)
		}
	}
	bridges, ok := s.route(from, to, token)
	if !ok {
		return domain.Route{}, apperror.NotFound(apperror.CodeBridgeRouteNotFound,
			fmt.Sprintf("%s %s->%s", token, from, to))
	}
	r := domain.Route{
		ID:      fmt.Sprintf("ROUTE_%s_%s_%s", token, from, to),
		Token:   token,
		From:    from,
		To:      to,
		Bridges: bridges,
	}
	r.EstimatedTime = s.totalTime(r)
	return r, nil
}

// route must be called with mu held.
func (s *Service) route(from, to, token string) ([]domain.Bridge, bool) {
	for _, b := range s.bridges {
		if b.From == from && b.To == to && b.Supports(token) {
			return []domain.Bridge{b}, true
		}
	}

	var best []domain.Bridge
	var bestFee decimal.Decimal
	for _, first := range s.bridges {
		if first.From != from || !first.Supports(token) {
			continue
		}
		for _, second := range s.bridges {
			if second.From != first.To || second.To != to || !second.Supports(token) {
				continue
			}
			fee := first.Fee.Add(second.Fee)
			if best == nil || fee.LessThan(bestFee) {
				best, bestFee = []domain.Bridge{first, second}, fee
			}
		}
	}
	return best, best != nil
}

// FindOpportunities compares token's price on every chain pair and keeps the
// bridgeable gaps whose net profit exceeds minProfitPct percent.
func (s *Service) FindOpportunities(ctx context.Context, token string, amount, minProfitPct decimal.Decimal) []domain.Route {
	_, span := s.tracer.Start(ctx, "crosschain.find_opportunities",
		trace.WithAttributes(attribute.String("token", token)))
	defer span.End()

	token = strings.ToUpper(token)
	if !amount.IsPositive() {
		return nil
	}

	s.mu.RLock()
	var prices []domain.TokenPrice
	for k, p := range s.prices {
		if k.token == token {
			prices = append(prices, p)
		}
	}
	slices.SortFunc(prices, func(a, b domain.TokenPrice) int {
		if c := a.Price.Cmp(b.Price); c != 0 {
			return c
		}
		return strings.Compare(a.Chain, b.Chain)
	})

	now := s.now()
	var opps []domain.Route
	for i := range prices {
		for j := i + 1; j < len(prices); j++ {
			low, high := prices[i], prices[j]
			if r, ok := s.evaluate(token, amount, low, high, minProfitPct, now); ok {
				opps = append(opps, r)
			}
		}
	}
	pub := s.publisher
	s.mu.RUnlock()

	slices.SortStableFunc(opps, func(a, b domain.Route) int { return b.ProfitPct.Cmp(a.ProfitPct) })

	if len(opps) > 0 {
		s.found.Add(ctx, int64(len(opps)), metric.WithAttributes(attribute.String("token", token)))
		if pub != nil {
			pub.Publish(ctx, ChannelOpportunities, MsgTypeOpportunity, opps)
		}
	}
	span.SetAttributes(attribute.Int("opportunities", len(opps)))
	return opps
}

// evaluate must be called with mu held.
func (s *Service) evaluate(token string, amount decimal.Decimal, low, high domain.TokenPrice, minProfitPct decimal.Decimal, now time.Time) (domain.Route, bool) {
	bridges, ok := s.route(low.Chain, high.Chain, token)
	if !ok {
		return domain.Route{}, false
	}
	r := domain.Route{
		ID:      fmt.Sprintf("XCHAIN_%s_%s_%s_%d", token, low.Chain, high.Chain, now.Unix()),
		Token:   token,
		Amount:  amount,
		From:    low.Chain,
		To:      high.Chain,
		Bridges: bridges,
	}

	fee := r.FeeFraction()
	cost := amount.Mul(low.Price)
	diffPct := high.Price.Sub(low.Price).Div(low.Price).Mul(hundred)
	gas := s.gasCost(low.Chain, high.Chain)
	gasPct := gas.Div(cost).Mul(hundred)
	net := diffPct.Sub(fee.Mul(hundred)).Sub(gasPct)
	if !net.GreaterThan(minProfitPct) {
		return domain.Route{}, false
	}

	one := decimal.NewFromInt(1)
	r.TotalFee = fee.Mul(cost)
	r.GasCostUSD = gas
	r.Profit = amount.Mul(high.Price.Sub(low.Price)).Mul(one.Sub(fee)).Sub(gas)
	r.ProfitPct = net
	r.EstimatedTime = r.BridgeTime()
	r.Swaps = []domain.Swap{
		{Chain: low.Chain, DEX: s.dexOn(low.Chain), TokenIn: "USDC", TokenOut: token,
			AmountIn: cost, AmountOut: amount, Fee: domain.SwapFee},
		{Chain: high.Chain, DEX: s.dexOn(high.Chain), TokenIn: token, TokenOut: "USDC",
			AmountIn: amount, AmountOut: amount.Mul(high.Price).Mul(one.Sub(fee)), Fee: domain.SwapFee},
	}
	return r, true
}

func (s *Service) dexOn(chain string) string {
	if c, ok := s.chains[chain]; ok && len(c.Venues) > 0 {
		return c.Venues[0]
	}
	return "dex"
}

// gasCost must be called with mu held.
func (s *Service) gasCost(from, to string) decimal.Decimal {
	total := decimal.Zero
	if c, ok := s.chains[from]; ok {
		total = total.Add(c.GasCostUSD(c.SourceGas))
	}
	if c, ok := s.chains[to]; ok {
		total = total.Add(c.GasCostUSD(domain.DestinationGasUnits))
	}
	return total
}

// totalTime must be called with mu held.
func (s *Service) totalTime(r domain.Route) time.Duration {
	d := r.BridgeTime()
	for _, id := range []string{r.From, r.To} {
		if c, ok := s.chains[id]; ok {
			d += confirmationBlocks * c.BlockTime
		}
	}
	return d
}

// EstimateTotalTime adds source and destination confirmations to the bridge time.
func (s *Service) EstimateTotalTime(r domain.Route) time.Duration {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.totalTime(r)
}

// SupportedTokens lists every token bridgeable to or from chain.
func (s *Service) SupportedTokens(chain string) []string {
	chain = strings.ToLower(chain)
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []string
	for _, b := range s.bridges {
		if !b.Touches(chain) {
			continue
		}
		for _, t := range b.Tokens {
			if !slices.Contains(out, t) {
				out = append(out, t)
			}
		}
	}
	slices.Sort(out)
	return out
}

// ValidateAddress checks addr against the address format of chain.
func (s *Service) ValidateAddress(chain, addr string) error {
	c, err := s.Chain(chain)
	if err != nil {
		return err
	}
	if err := c.ValidateAddress(addr); err != nil {
		return apperror.New(apperror.CodeInvalidAddress, apperror.WithContext(addr), apperror.WithCause(err))
	}
	return nil
}

// Execute records a simulated run of route. The returned execution stays
// pending; no transaction is signed or submitted.
func (s *Service) Execute(ctx context.Context, r domain.Route) (*domain.Execution, error) {
	if len(r.Bridges) == 0 {
		return nil, apperror.Validation(apperror.CodeInvalidInput, "route "+r.ID+" has no bridges")
	}
	exec := &domain.Execution{
		ID:           uuid.NewString(),
		RouteID:      r.ID,
		Route:        r,
		Status:       domain.StatusPending,
		ActualProfit: decimal.Zero,
		StartedAt:    s.now(),
	}

	s.mu.Lock()
	if len(s.executions) >= maxExecutions {
		s.evictOldest()
	}
	s.executions[exec.ID] = exec
	s.mu.Unlock()

	s.logger.Info(ctx, "cross-chain execution recorded",
		"execution", exec.ID, "route", r.ID, "from", r.From, "to", r.To, "token", r.Token)
	return exec, nil
}

// evictOldest must be called with mu held.
func (s *Service) evictOldest() {
	var oldest *domain.Execution
	for _, e := range s.executions {
		if oldest == nil || e.StartedAt.Before(oldest.StartedAt) {
			oldest = e
		}
	}
	if oldest != nil {
		delete(s.executions, oldest.ID)
	}
}

// BridgeStatus reports the bridge leg of a recorded execution.
func (s *Service) BridgeStatus(executionID string) (domain.BridgeStatus, error) {
	s.mu.RLock()
	exec, ok := s.executions[executionID]
	s.mu.RUnlock()
	if !ok {
		return domain.BridgeStatus{}, apperror.NotFound(apperror.CodeNotFound, executionID)
	}
	return domain.BridgeStatus{
		ExecutionID:         exec.ID,
		Status:              exec.Status,
		Required:            domain.RequiredConfirmations,
		EstimatedCompletion: exec.StartedAt.Add(exec.Route.BridgeTime()),
	}, nil
}
