package domain

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/shopspring/decimal"
)

func gweiInt(n float64) *big.Int {
	return decimal.NewFromFloat(n).Mul(weiPerGwei).BigInt()
}

func TestBlock_NextBaseFee(t *testing.T) {
	tests := []struct {
		name    string
		baseFee *big.Int
		used    uint64
		want    *big.Int
	}{
		{"full block raises by an eighth", gweiInt(10), 30_000_000, gweiInt(11.25)},
		{"empty block lowers by an eighth", gweiInt(10), 0, gweiInt(8.75)},
		{"on target holds", gweiInt(10), 15_000_000, gweiInt(10)},
		{"tiny excess still raises by one wei", big.NewInt(7), 15_000_001, big.NewInt(8)},
		{"pre-London has none", nil, 30_000_000, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := &Block{GasLimit: 30_000_000, GasUsed: tt.used, BaseFee: tt.baseFee}
			got := b.NextBaseFee()
			if tt.want == nil {
				if got != nil {
					t.Fatalf("NextBaseFee() = %s, want nil", got)
				}
				return
			}
			if got == nil || got.Cmp(tt.want) != 0 {
				t.Errorf("NextBaseFee() = %v, want %s", got, tt.want)
			}
		})
	}
}

func TestBlockFromHeader(t *testing.T) {
	ts := time.Unix(1_700_000_000, 0)
	h := &types.Header{
		Number:   big.NewInt(19_000_000),
		Time:     uint64(ts.Unix()),
		GasLimit: 30_000_000,
		GasUsed:  24_000_000,
		BaseFee:  gweiInt(12.5),
	}

	hash := h.Hash()
	b := BlockFromHeader(h, "ws", ts.Add(1500*time.Millisecond))
	h.BaseFee.SetInt64(0)

	if b.Number != 19_000_000 || b.Hash != hash || b.Source != "ws" {
		t.Fatalf("block = %+v", b)
	}
	if b.Delay() != 1500*time.Millisecond {
		t.Errorf("Delay() = %s", b.Delay())
	}
	if !b.BaseFeeGwei().Equal(decimal.RequireFromString("12.5")) {
		t.Errorf("BaseFeeGwei() = %s, header mutation leaked", b.BaseFeeGwei())
	}
	if b.Utilization() != 0.8 {
		t.Errorf("Utilization() = %v", b.Utilization())
	}
}

func TestBlock_ZeroValues(t *testing.T) {
	var b Block
	if b.Delay() != 0 || b.Utilization() != 0 || !b.BaseFeeGwei().IsZero() {
		t.Errorf("zero block: delay=%s util=%v fee=%s", b.Delay(), b.Utilization(), b.BaseFeeGwei())
	}
}
