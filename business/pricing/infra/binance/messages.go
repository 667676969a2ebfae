// Package binance implements the Binance CEX provider and 24h ticker source.
package binance

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/asset"
)

// controlRequest is a SUBSCRIBE, UNSUBSCRIBE or LIST_SUBSCRIPTIONS frame.
type controlRequest struct {
	Method string   `json:"method"`
	Params []string `json:"params,omitempty"`
	ID     int64    `json:"id"`
}

// envelope wraps every frame on the combined /stream endpoint. Control
// replies carry an id and result instead of stream and data.
type envelope struct {
	Stream string          `json:"stream"`
	Data   json.RawMessage `json:"data"`
	ID     *int64          `json:"id"`
}

// BookTicker is the best bid/ask pushed on <symbol>@bookTicker.
type BookTicker struct {
	UpdateID int64  `json:"u"`
	Symbol   string `json:"s"`
	BidPrice string `json:"b"`
	BidQty   string `json:"B"`
	AskPrice string `json:"a"`
	AskQty   string `json:"A"`
}

// Depth is a partial book snapshot from <symbol>@depth20 or REST /depth.
// Symbol is not part of the payload.
type Depth struct {
	LastUpdateID int64      `json:"lastUpdateId"`
	Bids         [][]string `json:"bids"`
	Asks         [][]string `json:"asks"`
	Symbol       string     `json:"-"`
}

// Ticker24h is the REST rolling 24h window ticker.
type Ticker24h struct {
	Symbol      string `json:"symbol"`
	LastPrice   string `json:"lastPrice"`
	BidPrice    string `json:"bidPrice"`
	AskPrice    string `json:"askPrice"`
	Volume      string `json:"volume"`
	QuoteVolume string `json:"quoteVolume"`
}

// APIError is the body Binance returns with 4xx responses.
type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"msg"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("binance API error %d: %s", e.Code, e.Message)
}

// parseLevels converts [price, qty] string pairs into domain levels in base
// units. Zero-quantity levels are dropped.
func parseLevels(raw [][]string, base *asset.Asset) ([]domain.OrderbookLevel, error) {
	out := make([]domain.OrderbookLevel, 0, len(raw))
	for _, r := range raw {
		if len(r) < 2 {
			continue
		}
		price, err := decimal.NewFromString(r[0])
		if err != nil {
			return nil, fmt.Errorf("price %q: %w", r[0], err)
		}
		qty, err := decimal.NewFromString(r[1])
		if err != nil {
			return nil, fmt.Errorf("qty %q: %w", r[1], err)
		}
		if qty.IsZero() {
			continue
		}
		amt, err := asset.ParseDecimal(base, qty)
		if err != nil {
			return nil, err
		}
		out = append(out, domain.OrderbookLevel{Price: price, Amount: amt})
	}
	return out, nil
}

func depthStream(symbol string, speedMs int) string {
	return strings.ToLower(symbol) + "@depth20@" + strconv.Itoa(speedMs) + "ms"
}

func bookTickerStream(symbol string) string {
	return strings.ToLower(symbol) + "@bookTicker"
}

// streamSymbol returns the upper-case symbol of a stream name such as
// "ethusdc@depth20@100ms".
func streamSymbol(stream string) string {
	sym, _, _ := strings.Cut(stream, "@")
	return strings.ToUpper(sym)
}
