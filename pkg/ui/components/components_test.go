package components

import (
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestThreatsComponent_KeepsNewestFirst(t *testing.T) {
	c := NewThreatsComponent(2)
	now := time.Now()
	c.Add(ThreatRow{Type: "frontrun", TxHash: "0xaaa", DetectedAt: now})
	c.Add(ThreatRow{Type: "sandwich", TxHash: "0xbbb", DetectedAt: now})
	c.Add(ThreatRow{Type: "backrun", TxHash: "0xccc", DetectedAt: now})

	if len(c.rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(c.rows))
	}
	if c.rows[0].Type != "backrun" || c.rows[1].Type != "sandwich" {
		t.Errorf("order = %s,%s", c.rows[0].Type, c.rows[1].Type)
	}
	if strings.Contains(c.View(), "frontrun") {
		t.Error("evicted detection still rendered")
	}
}

func TestThreatsComponent_TruncatesHash(t *testing.T) {
	c := NewThreatsComponent(1)
	c.Add(ThreatRow{Type: "sandwich", TxHash: "0x0123456789abcdef", DetectedAt: time.Now()})
	if !strings.Contains(c.View(), "0x0123456789…") {
		t.Errorf("hash not truncated:\n%s", c.View())
	}
}

func TestStatusComponent_SortsAndMarksStale(t *testing.T) {
	c := NewStatusComponent(time.Minute)
	c.Update([]VenueStatus{
		{Name: "uniswap", Quotes: 2, LastUpdate: time.Now()},
		{Name: "binance", Quotes: 0},
	})

	if c.venues[0].Name != "binance" {
		t.Errorf("first venue = %s, want binance", c.venues[0].Name)
	}
	view := c.View()
	if !strings.Contains(view, "no quotes") || !strings.Contains(view, "2 pairs") {
		t.Errorf("unexpected view:\n%s", view)
	}
}

func TestPoolsComponent_Empty(t *testing.T) {
	if !strings.Contains(NewPoolsComponent().View(), "No pools") {
		t.Error("empty placeholder missing")
	}
}

func TestOpportunitiesComponent_CursorFollowsRow(t *testing.T) {
	c := NewOpportunitiesComponent(3, 2)
	for _, b := range []uint64{1, 2} {
		c.Add(OpportunityRow{Block: b})
	}
	c.ScrollDown()
	if sel, _ := c.Selected(); sel.Block != 1 {
		t.Fatalf("selected block = %d, want 1", sel.Block)
	}

	c.Add(OpportunityRow{Block: 3})
	if sel, _ := c.Selected(); sel.Block != 1 {
		t.Errorf("cursor moved off block 1, now on %d", sel.Block)
	}

	c.Add(OpportunityRow{Block: 4})
	if c.Len() != 3 {
		t.Fatalf("len = %d, want capacity 3", c.Len())
	}
	if sel, _ := c.Selected(); sel.Block != 2 {
		t.Errorf("selected block = %d, want oldest kept row 2", sel.Block)
	}

	c.Clear()
	if _, ok := c.Selected(); ok {
		t.Error("selection after Clear")
	}
	c.ScrollDown()
	c.ScrollUp()
}

func TestOpportunitiesComponent_ViewShowsSelectedSteps(t *testing.T) {
	c := NewOpportunitiesComponent(5, 5)
	c.Add(OpportunityRow{Block: 9, Steps: []string{"buy on DEX", "sell on CEX"}, Risks: []string{"thin book"}})

	view := c.View()
	for _, want := range []string{"1. buy on DEX", "2. sell on CEX", "thin book", "(1/1)"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestPricesComponent_RowsSortedAndResetOnPairChange(t *testing.T) {
	c := NewPricesComponent("Binance", "Uniswap")
	c.Set("ETH/USDC", PriceRow{TradeSize: decimal.NewFromInt(10)})
	c.Set("ETH/USDC", PriceRow{TradeSize: decimal.NewFromInt(1)})
	c.Set("ETH/USDC", PriceRow{TradeSize: decimal.NewFromInt(10), CEXPrice: decimal.NewFromInt(3400)})

	rows := c.Rows()
	if len(rows) != 2 || !rows[0].TradeSize.Equal(decimal.NewFromInt(1)) {
		t.Fatalf("rows = %+v", rows)
	}
	if !rows[1].CEXPrice.Equal(decimal.NewFromInt(3400)) {
		t.Errorf("size 10 row was not replaced")
	}

	c.Set("WBTC/USDC", PriceRow{TradeSize: decimal.NewFromInt(1)})
	if len(c.Rows()) != 1 {
		t.Errorf("rows kept across pairs: %d", len(c.Rows()))
	}
}
