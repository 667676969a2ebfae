package domain

import (
	"math/big"
	"testing"

	"github.com/shopspring/decimal"
)

func TestGasPrice_Gwei(t *testing.T) {
	tests := []struct {
		name string
		wei  *big.Int
		want string
	}{
		{"thirty gwei", big.NewInt(30_000_000_000), "30"},
		{"fractional", big.NewInt(1_500_000_000), "1.5"},
		{"nil is zero", nil, "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := NewGasPrice(tt.wei).GweiDecimal()
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("GweiDecimal() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestNewGasPriceFromGwei(t *testing.T) {
	p := NewGasPriceFromGwei(decimal.NewFromInt(1200))
	if p.Wei().Cmp(big.NewInt(1_200_000_000_000)) != 0 {
		t.Errorf("Wei() = %s", p.Wei())
	}
	if p.Gwei() != 1200 {
		t.Errorf("Gwei() = %v, want 1200", p.Gwei())
	}
}

func TestNewGasEstimate(t *testing.T) {
	price := NewGasPrice(big.NewInt(30_000_000_000))
	est := NewGasEstimate(150_000, price)

	if est.TotalWei.Cmp(big.NewInt(4_500_000_000_000_000)) != 0 {
		t.Errorf("TotalWei = %s", est.TotalWei)
	}
	if est.TotalGwei() != 4_500_000 {
		t.Errorf("TotalGwei() = %v, want 4500000", est.TotalGwei())
	}
	if !est.TotalETH().Equal(decimal.RequireFromString("0.0045")) {
		t.Errorf("TotalETH() = %s, want 0.0045", est.TotalETH())
	}
}
