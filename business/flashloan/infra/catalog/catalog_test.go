package catalog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	require.Len(t, c.Providers, 2)
	aave := c.Providers[0]
	assert.Equal(t, "aave-v3", aave.ID)
	assert.True(t, aave.Fee.Equal(decimal.RequireFromString("0.0009")))
	assert.True(t, aave.MaxAmount.Equal(decimal.NewFromInt(10_000_000)))
	assert.Equal(t, 200*time.Millisecond, aave.ExecTime)
	assert.True(t, aave.Supports("dai"))
	assert.False(t, c.Providers[1].Supports("DAI"))

	require.Len(t, c.Strategies, 1)
	s := c.Strategies[0]
	assert.Equal(t, "simple_arbitrage", s.ID)
	assert.Len(t, s.Steps, 2)
	assert.Equal(t, uint64(300000), s.TotalGas())

	assert.True(t, c.Prices["SOL"].Equal(decimal.RequireFromString("171.12")))
}

func TestParseRejectsBadBounds(t *testing.T) {
	_, err := Parse([]byte(`providers: [{id: x, min_amount: "10", max_amount: "5"}]`))
	assert.Error(t, err)
}
