package app

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sugawarayuuta/sonnet"

	flashloanDomain "github.com/fd1az/dexter/business/flashloan/domain"
	marketApp "github.com/fd1az/dexter/business/market/app"
	marketDomain "github.com/fd1az/dexter/business/market/domain"
	mevDomain "github.com/fd1az/dexter/business/mev/domain"
	pricingDomain "github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/apperror"
	"github.com/fd1az/dexter/internal/logger"
)

const (
	// APIPrefix is where every dashboard route is mounted.
	APIPrefix = "/api/v1"

	maxBodyBytes = 1 << 20
	maxListSize  = 100
)

// Handler serves the /api/v1 routes.
type Handler struct {
	deps     Deps
	defaults Defaults
	logger   logger.LoggerInterface
	started  time.Time
}

// NewHandler creates a Handler. Routes whose dependency is nil answer 503.
func NewHandler(deps Deps, defaults Defaults, log logger.LoggerInterface) *Handler {
	if defaults.TopN <= 0 {
		defaults.TopN = 10
	}
	if defaults.CrossChainToken == "" {
		defaults.CrossChainToken = "USDC"
	}
	if defaults.IndicatorTimeframe == "" {
		defaults.IndicatorTimeframe = marketDomain.H1
	}
	return &Handler{deps: deps, defaults: defaults, logger: log, started: time.Now()}
}

// Register mounts the routes on mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+APIPrefix+"/opportunities", h.opportunities)
	mux.HandleFunc("GET "+APIPrefix+"/prices/{pair}", h.prices)
	mux.HandleFunc("POST "+APIPrefix+"/simulate-flashloan", h.simulateFlashLoan)
	mux.HandleFunc("GET "+APIPrefix+"/market-depth/{pair}", h.marketDepth)
	mux.HandleFunc("GET "+APIPrefix+"/mev-threats", h.mevThreats)
	mux.HandleFunc("POST "+APIPrefix+"/mev/analyze", h.analyzeTx)
	mux.HandleFunc("GET "+APIPrefix+"/indicators/{pair}", h.indicators)
	mux.HandleFunc("GET "+APIPrefix+"/features/{pair}", h.features)
	mux.HandleFunc("POST "+APIPrefix+"/backtest", h.backtest)
	mux.HandleFunc("GET "+APIPrefix+"/crosschain/opportunities", h.crossChainOpportunities)
	mux.HandleFunc("GET "+APIPrefix+"/crosschain/prices/{token}", h.crossChainPrices)
	mux.HandleFunc("GET "+APIPrefix+"/pools/best", h.bestPools)
	mux.HandleFunc("POST "+APIPrefix+"/pools/{id}/liquidity", h.addLiquidity)
	mux.HandleFunc("DELETE "+APIPrefix+"/positions/{id}", h.removeLiquidity)
	mux.HandleFunc("GET "+APIPrefix+"/risk/metrics", h.riskMetrics)
	mux.HandleFunc("GET "+APIPrefix+"/stats", h.stats)
}

func (h *Handler) opportunities(w http.ResponseWriter, r *http.Request) {
	if h.deps.Opportunities == nil {
		h.unavailable(w, r, "pricing")
		return
	}
	n, err := intParam(r, "n", h.defaults.TopN)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"opportunities": h.deps.Opportunities.TopOpportunities(n),
	})
}

func (h *Handler) prices(w http.ResponseWriter, r *http.Request) {
	if h.deps.Opportunities == nil {
		h.unavailable(w, r, "pricing")
		return
	}
	pair, err := pricingDomain.ParseMarketPair(r.PathValue("pair"))
	if err != nil {
		h.writeError(w, r, apperror.Validation(apperror.CodeInvalidMarketPair, r.PathValue("pair")))
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"pair":   pair.String(),
		"prices": h.deps.Opportunities.Prices(pair.String()),
	})
}

func (h *Handler) simulateFlashLoan(w http.ResponseWriter, r *http.Request) {
	if h.deps.FlashLoans == nil {
		h.unavailable(w, r, "flashloan")
		return
	}
	var req flashloanDomain.Request
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	res, err := h.deps.FlashLoans.Simulate(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) marketDepth(w http.ResponseWriter, r *http.Request) {
	if h.deps.Depth == nil {
		h.unavailable(w, r, "pricing")
		return
	}
	depth, err := h.deps.Depth.Depth(r.Context(), r.PathValue("pair"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, depth)
}

func (h *Handler) mevThreats(w http.ResponseWriter, r *http.Request) {
	if h.deps.Threats == nil {
		h.unavailable(w, r, "mev")
		return
	}
	n, err := intParam(r, "n", maxListSize)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"threats": h.deps.Threats.Recent(n),
		"stats":   h.deps.Threats.Stats(),
	})
}

func (h *Handler) analyzeTx(w http.ResponseWriter, r *http.Request) {
	if h.deps.Threats == nil {
		h.unavailable(w, r, "mev")
		return
	}
	var tx mevDomain.PendingTx
	if err := decodeBody(r, &tx); err != nil {
		h.writeError(w, r, err)
		return
	}
	if tx.Hash == "" {
		h.writeError(w, r, apperror.Validation(apperror.CodeRequiredField, "hash"))
		return
	}
	if tx.Timestamp.IsZero() {
		tx.Timestamp = time.Now()
	}
	det, flagged := h.deps.Threats.Analyze(r.Context(), tx)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"flagged":   flagged,
		"detection": det,
	})
}

func (h *Handler) indicators(w http.ResponseWriter, r *http.Request) {
	if h.deps.Indicators == nil {
		h.unavailable(w, r, "market")
		return
	}
	symbol, tf, err := h.series(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	ind, err := h.deps.Indicators.Indicators(symbol, tf)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ind)
}

func (h *Handler) features(w http.ResponseWriter, r *http.Request) {
	if h.deps.Indicators == nil {
		h.unavailable(w, r, "market")
		return
	}
	symbol, tf, err := h.series(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	f, err := h.deps.Indicators.Features(symbol, tf)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"symbol":    symbol,
		"timeframe": tf,
		"features":  f,
	})
}

// series reads the {pair} path value and the optional timeframe query.
func (h *Handler) series(r *http.Request) (string, marketDomain.Timeframe, error) {
	pair, err := pricingDomain.ParseMarketPair(r.PathValue("pair"))
	if err != nil {
		return "", "", apperror.Validation(apperror.CodeInvalidMarketPair, r.PathValue("pair"))
	}
	tf := h.defaults.IndicatorTimeframe
	if raw := r.URL.Query().Get("timeframe"); raw != "" {
		if tf, err = marketDomain.ParseTimeframe(raw); err != nil {
			return "", "", apperror.Validation(apperror.CodeInvalidTimeframe, raw)
		}
	}
	return pair.String(), tf, nil
}

func (h *Handler) backtest(w http.ResponseWriter, r *http.Request) {
	if h.deps.Backtests == nil {
		h.unavailable(w, r, "market")
		return
	}
	var cfg marketApp.BacktestConfig
	if err := decodeBody(r, &cfg); err != nil {
		h.writeError(w, r, err)
		return
	}
	if pair, err := pricingDomain.ParseMarketPair(cfg.Symbol); err == nil {
		cfg.Symbol = pair.String()
	}
	res, err := h.deps.Backtests.Backtest(cfg, nil)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) crossChainOpportunities(w http.ResponseWriter, r *http.Request) {
	if h.deps.Routes == nil {
		h.unavailable(w, r, "crosschain")
		return
	}
	q := r.URL.Query()
	token := strings.ToUpper(q.Get("token"))
	if token == "" {
		token = h.defaults.CrossChainToken
	}
	amount, err := decimalParam(r, "amount", h.defaults.CrossChainAmount)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	minPct, err := decimalParam(r, "min_profit_pct", h.defaults.CrossChainMinPct)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	if !amount.IsPositive() {
		h.writeError(w, r, apperror.Validation(apperror.CodeInvalidQueryParam, "amount must be positive"))
		return
	}
	routes := h.deps.Routes.FindOpportunities(r.Context(), token, amount, minPct)
	h.writeJSON(w, http.StatusOK, map[string]any{
		"token":         token,
		"amount":        amount,
		"opportunities": routes,
	})
}

func (h *Handler) crossChainPrices(w http.ResponseWriter, r *http.Request) {
	if h.deps.Routes == nil {
		h.unavailable(w, r, "crosschain")
		return
	}
	token := strings.ToUpper(r.PathValue("token"))
	h.writeJSON(w, http.StatusOK, map[string]any{
		"token":  token,
		"prices": h.deps.Routes.Prices(token),
	})
}

func (h *Handler) bestPools(w http.ResponseWriter, r *http.Request) {
	if h.deps.Pools == nil {
		h.unavailable(w, r, "liquidity")
		return
	}
	n, err := intParam(r, "n", h.defaults.TopN)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"pools":     h.deps.Pools.BestPools(n),
		"analytics": h.deps.Pools.Analytics(),
	})
}

type addLiquidityRequest struct {
	Owner     string          `json:"owner"`
	AmountUSD decimal.Decimal `json:"amount_usd"`
}

func (h *Handler) addLiquidity(w http.ResponseWriter, r *http.Request) {
	if h.deps.Pools == nil {
		h.unavailable(w, r, "liquidity")
		return
	}
	var req addLiquidityRequest
	if err := decodeBody(r, &req); err != nil {
		h.writeError(w, r, err)
		return
	}
	pos, err := h.deps.Pools.AddLiquidity(r.Context(), r.PathValue("id"), req.Owner, req.AmountUSD)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, pos)
}

func (h *Handler) removeLiquidity(w http.ResponseWriter, r *http.Request) {
	if h.deps.Pools == nil {
		h.unavailable(w, r, "liquidity")
		return
	}
	fraction, err := decimalParam(r, "fraction", decimal.NewFromInt(1))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	value, err := h.deps.Pools.RemoveLiquidity(r.Context(), r.PathValue("id"), fraction)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"withdrawn_usd": value})
}

func (h *Handler) riskMetrics(w http.ResponseWriter, r *http.Request) {
	if h.deps.Risk == nil {
		h.unavailable(w, r, "risk")
		return
	}
	h.writeJSON(w, http.StatusOK, h.deps.Risk.PortfolioRisk())
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	out := map[string]any{
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
	}
	if h.deps.Opportunities != nil {
		out["opportunities"] = len(h.deps.Opportunities.TopOpportunities(maxListSize))
	}
	if h.deps.Threats != nil {
		out["mev"] = h.deps.Threats.Stats()
	}
	if h.deps.FlashLoans != nil {
		out["flashloans"] = h.deps.FlashLoans.Stats()
	}
	if h.deps.Pools != nil {
		out["liquidity"] = h.deps.Pools.Analytics()
	}
	if h.deps.Stream != nil {
		out["streaming"] = h.deps.Stream.Stats()
	}
	h.writeJSON(w, http.StatusOK, out)
}

func (h *Handler) unavailable(w http.ResponseWriter, r *http.Request, module string) {
	h.writeError(w, r, apperror.New(apperror.CodeServiceUnavailable,
		apperror.WithContext(module+" module not loaded")))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := sonnet.Marshal(v)
	if err != nil {
		h.logger.Error(context.Background(), "dashboard encode failed", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(data)
}

// writeError renders err as {"error": ..., "code": ...} with the status the
// error carries.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := apperror.HTTPStatus(err)
	code := apperror.GetCode(err)
	msg := err.Error()

	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Public()
	}
	if status >= http.StatusInternalServerError {
		h.logger.Error(r.Context(), "dashboard request failed", "path", r.URL.Path, "code", code, "error", err)
	}
	h.writeJSON(w, status, map[string]any{"error": msg, "code": code})
}

func decodeBody(r *http.Request, v any) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		return apperror.New(apperror.CodeInvalidRequestBody, apperror.WithCause(err))
	}
	if err := sonnet.Unmarshal(data, v); err != nil {
		return apperror.New(apperror.CodeInvalidRequestBody, apperror.WithCause(err), apperror.WithContext(err.Error()))
	}
	return nil
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return 0, apperror.Validation(apperror.CodeInvalidQueryParam, name+"="+raw)
	}
	return min(n, maxListSize), nil
}

func decimalParam(r *http.Request, name string, def decimal.Decimal) (decimal.Decimal, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, apperror.Validation(apperror.CodeInvalidQueryParam, name+"="+raw)
	}
	return d, nil
}
