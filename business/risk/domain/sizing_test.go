package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPositionSizer(t *testing.T) {
	s := PositionSizer{PortfolioValue: d("100000")}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"kelly capped at 10%", s.Kelly(d("0.6"), d("2"), d("1")).String(), "10000"},
		{"quarter kelly", s.Kelly(d("0.55"), d("1"), d("1")).String(), "2500"},
		{"negative edge sizes to zero", s.Kelly(d("0.3"), d("1"), d("1")).String(), "0"},
		{"kelly without losses data", s.Kelly(d("0.6"), d("1"), d("0")).String(), "0"},
		{"fixed fractional", s.FixedFractional(d("0.05")).String(), "5000"},
		{"volatility capped at 20%", s.VolatilityBased(d("0.1"), d("0.25")).String(), "20000"},
		{"volatility ratio", s.VolatilityBased(d("0.05"), d("0.5")).String(), "10000"},
		{"zero asset vol", s.VolatilityBased(d("0.05"), d("0")).String(), "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, d(tt.got).Equal(d(tt.want)), "got %s, want %s", tt.got, tt.want)
		})
	}
}

func TestExitStrategy(t *testing.T) {
	long := ExitStrategy{}
	short := ExitStrategy{Short: true}

	eq := func(t *testing.T, want string, got interface{ String() string }) {
		t.Helper()
		assert.True(t, d(got.String()).Equal(d(want)), "got %s, want %s", got, want)
	}

	eq(t, "97", long.ATRStop(d("100"), d("2"), d("1.5")))
	eq(t, "103", short.ATRStop(d("100"), d("2"), d("1.5")))
	eq(t, "98", long.PercentStop(d("100"), d("0.02")))
	eq(t, "102", short.PercentStop(d("100"), d("0.02")))
	eq(t, "104", long.PercentTarget(d("100"), d("0.04")))
	eq(t, "104", long.RiskRewardTarget(d("100"), d("98"), d("2")))
	eq(t, "96", short.RiskRewardTarget(d("100"), d("102"), d("2")))

	t.Run("long trailing stop only ratchets up", func(t *testing.T) {
		stop := long.TrailingStop(d("0"), d("100"), d("0.05"))
		eq(t, "95", stop)
		stop = long.TrailingStop(stop, d("90"), d("0.05"))
		eq(t, "95", stop)
		stop = long.TrailingStop(stop, d("110"), d("0.05"))
		eq(t, "104.5", stop)
	})

	t.Run("short trailing stop only ratchets down", func(t *testing.T) {
		stop := short.TrailingStop(d("0"), d("100"), d("0.05"))
		eq(t, "105", stop)
		stop = short.TrailingStop(stop, d("110"), d("0.05"))
		eq(t, "105", stop)
		stop = short.TrailingStop(stop, d("90"), d("0.05"))
		eq(t, "94.5", stop)
	})
}
