package app

import (
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/market/domain"
	"github.com/fd1az/dexter/internal/apperror"
)

const defaultBacktestTimeframe = domain.M5

// BacktestConfig describes one replay of stored candles. Zero From or To
// leaves that end of the window open.
type BacktestConfig struct {
	Symbol         string           `json:"symbol"`
	Timeframe      domain.Timeframe `json:"timeframe"`
	From           time.Time        `json:"from"`
	To             time.Time        `json:"to"`
	InitialBalance decimal.Decimal  `json:"initial_balance"`
	TradeAmount    decimal.Decimal  `json:"trade_amount"`
	FeeRate        decimal.Decimal  `json:"fee_rate"`
	Slippage       decimal.Decimal  `json:"slippage"`
}

func (c BacktestConfig) validate() error {
	unit := func(v decimal.Decimal) bool { return !v.IsNegative() && v.LessThan(decimal.NewFromInt(1)) }
	switch {
	case c.Timeframe.Seconds() == 0:
		return apperror.Validation(apperror.CodeInvalidTimeframe, string(c.Timeframe))
	case !c.InitialBalance.IsPositive():
		return apperror.Validation(apperror.CodeInvalidBacktest, "initial_balance must be positive")
	case !c.TradeAmount.IsPositive():
		return apperror.Validation(apperror.CodeInvalidBacktest, "trade_amount must be positive")
	case !unit(c.FeeRate):
		return apperror.Validation(apperror.CodeInvalidBacktest, "fee_rate must be in [0, 1)")
	case !unit(c.Slippage):
		return apperror.Validation(apperror.CodeInvalidBacktest, "slippage must be in [0, 1)")
	case !c.From.IsZero() && !c.To.IsZero() && c.To.Before(c.From):
		return apperror.Validation(apperror.CodeInvalidBacktest, "to before from")
	}
	return nil
}

func (c BacktestConfig) covers(ts time.Time) bool {
	return (c.From.IsZero() || !ts.Before(c.From)) && (c.To.IsZero() || !ts.After(c.To))
}

// Strategy picks an action for a candle from the indicators over every
// close up to and including it.
type Strategy func(ind domain.Indicators, holding bool) domain.Signal

// RSIStrategy enters when RSI reads oversold and exits when it reads
// overbought.
func RSIStrategy(ind domain.Indicators, holding bool) domain.Signal {
	if !holding && ind.RSISignal == domain.SignalBuy {
		return domain.SignalBuy
	}
	if holding && ind.RSISignal == domain.SignalSell {
		return domain.SignalSell
	}
	return domain.SignalNeutral
}

// BacktestTrade is one closed round trip.
type BacktestTrade struct {
	EntryTime  time.Time       `json:"entry_time"`
	ExitTime   time.Time       `json:"exit_time"`
	EntryPrice decimal.Decimal `json:"entry_price"`
	ExitPrice  decimal.Decimal `json:"exit_price"`
	Amount     decimal.Decimal `json:"amount"`
	Fees       decimal.Decimal `json:"fees"`
	PnL        decimal.Decimal `json:"pnl"`
}

// EquityPoint is the marked-to-close portfolio value after a candle.
type EquityPoint struct {
	Time   time.Time       `json:"time"`
	Equity decimal.Decimal `json:"equity"`
}

// BacktestResult summarizes a replay. ProfitFactor is 0 when no trade
// lost money. An open position at the end is marked to the last close
// and is not counted as a trade.
type BacktestResult struct {
	Symbol        string           `json:"symbol"`
	Timeframe     domain.Timeframe `json:"timeframe"`
	Candles       int              `json:"candles"`
	TotalTrades   int              `json:"total_trades"`
	WinningTrades int              `json:"winning_trades"`
	LosingTrades  int              `json:"losing_trades"`
	WinRate       float64          `json:"win_rate"`
	ProfitFactor  float64          `json:"profit_factor"`
	MaxDrawdown   float64          `json:"max_drawdown"`
	Sharpe        float64          `json:"sharpe_ratio"`
	TotalPnL      decimal.Decimal  `json:"total_pnl"`
	TotalFees     decimal.Decimal  `json:"total_fees"`
	FinalEquity   decimal.Decimal  `json:"final_equity"`
	OpenPosition  bool             `json:"open_position"`
	Trades        []BacktestTrade  `json:"trades"`
	EquityCurve   []EquityPoint    `json:"equity_curve"`
}

type holding struct {
	at     time.Time
	price  decimal.Decimal
	amount decimal.Decimal
	fee    decimal.Decimal
}

// Backtest replays cfg.Symbol's stored candles through strategy, filling
// buys above and sells below the close by the slippage and charging the
// fee rate on each fill's notional. A nil strategy uses RSIStrategy.
func (s *Store) Backtest(cfg BacktestConfig, strategy Strategy) (*BacktestResult, error) {
	cfg.Symbol = normalize(cfg.Symbol)
	if cfg.Timeframe == "" {
		cfg.Timeframe = defaultBacktestTimeframe
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	if strategy == nil {
		strategy = RSIStrategy
	}

	var candles []domain.Candle
	for _, c := range s.Candles(cfg.Symbol, cfg.Timeframe, 0) {
		if cfg.covers(c.Start) {
			candles = append(candles, c)
		}
	}
	if len(candles) == 0 {
		return nil, apperror.NotFound(apperror.CodeSymbolNotFound, cfg.Symbol)
	}

	one := decimal.NewFromInt(1)
	res := &BacktestResult{
		Symbol:      cfg.Symbol,
		Timeframe:   cfg.Timeframe,
		Candles:     len(candles),
		TotalPnL:    decimal.Zero,
		TotalFees:   decimal.Zero,
		Trades:      []BacktestTrade{},
		EquityCurve: make([]EquityPoint, 0, len(candles)),
	}
	cash := cfg.InitialBalance
	var pos *holding

	closes := domain.Closes(candles)
	for i, c := range candles {
		ind := domain.Compute(cfg.Symbol, cfg.Timeframe, closes[:i+1])
		switch strategy(ind, pos != nil) {
		case domain.SignalBuy:
			if pos != nil {
				break
			}
			px := c.Close.Mul(one.Add(cfg.Slippage))
			fee := cfg.TradeAmount.Mul(px).Mul(cfg.FeeRate)
			cost := cfg.TradeAmount.Mul(px).Add(fee)
			if cash.LessThan(cost) {
				break
			}
			cash = cash.Sub(cost)
			res.TotalFees = res.TotalFees.Add(fee)
			pos = &holding{at: c.Start, price: px, amount: cfg.TradeAmount, fee: fee}
		case domain.SignalSell:
			if pos == nil {
				break
			}
			px := c.Close.Mul(one.Sub(cfg.Slippage))
			fee := pos.amount.Mul(px).Mul(cfg.FeeRate)
			cash = cash.Add(pos.amount.Mul(px)).Sub(fee)
			res.TotalFees = res.TotalFees.Add(fee)
			res.Trades = append(res.Trades, BacktestTrade{
				EntryTime:  pos.at,
				ExitTime:   c.Start,
				EntryPrice: pos.price,
				ExitPrice:  px,
				Amount:     pos.amount,
				Fees:       pos.fee.Add(fee),
				PnL:        px.Sub(pos.price).Mul(pos.amount).Sub(pos.fee).Sub(fee),
			})
			pos = nil
		}

		equity := cash
		if pos != nil {
			equity = equity.Add(pos.amount.Mul(c.Close))
		}
		res.EquityCurve = append(res.EquityCurve, EquityPoint{Time: c.Start, Equity: equity})
	}

	res.OpenPosition = pos != nil
	res.FinalEquity = res.EquityCurve[len(res.EquityCurve)-1].Equity
	summarize(res, cfg.InitialBalance)
	return res, nil
}

func summarize(res *BacktestResult, initial decimal.Decimal) {
	grossProfit, grossLoss := decimal.Zero, decimal.Zero
	for _, t := range res.Trades {
		res.TotalPnL = res.TotalPnL.Add(t.PnL)
		if t.PnL.IsPositive() {
			res.WinningTrades++
			grossProfit = grossProfit.Add(t.PnL)
		} else {
			res.LosingTrades++
			grossLoss = grossLoss.Add(t.PnL.Abs())
		}
	}
	res.TotalTrades = len(res.Trades)
	if res.TotalTrades > 0 {
		res.WinRate = float64(res.WinningTrades) / float64(res.TotalTrades)
	}
	if grossLoss.IsPositive() {
		res.ProfitFactor = grossProfit.Div(grossLoss).InexactFloat64()
	}

	peak := initial.InexactFloat64()
	returns := make([]float64, 0, len(res.EquityCurve))
	prev := peak
	for _, p := range res.EquityCurve {
		eq := p.Equity.InexactFloat64()
		peak = math.Max(peak, eq)
		if peak > 0 {
			res.MaxDrawdown = math.Max(res.MaxDrawdown, (peak-eq)/peak)
		}
		if prev > 0 {
			returns = append(returns, (eq-prev)/prev)
		}
		prev = eq
	}
	res.Sharpe = sharpe(returns)
}

// sharpe annualizes mean/std of per-candle returns over 252 periods.
func sharpe(returns []float64) float64 {
	if len(returns) < 2 {
		return 0
	}
	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))
	var variance float64
	for _, r := range returns {
		variance += (r - mean) * (r - mean)
	}
	std := math.Sqrt(variance / float64(len(returns)))
	if std == 0 {
		return 0
	}
	return mean / std * math.Sqrt(252)
}

// Features extracts the model features from symbol's candles on tf.
func (s *Store) Features(symbol string, tf domain.Timeframe) (domain.Features, error) {
	symbol = normalize(symbol)
	candles := s.Candles(symbol, tf, 0)
	if len(candles) == 0 {
		return domain.Features{}, apperror.NotFound(apperror.CodeSymbolNotFound, symbol)
	}
	f, ok := domain.ExtractFeatures(candles)
	if !ok {
		return domain.Features{}, apperror.New(apperror.CodeShortHistory,
			apperror.WithContext(symbol+" has fewer than 50 "+string(tf)+" candles"))
	}
	return f, nil
}
