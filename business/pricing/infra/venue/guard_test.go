package venue

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dexter/business/pricing/domain"
	"github.com/fd1az/dexter/internal/config"
	"github.com/fd1az/dexter/internal/logger"
)

func testVenueConfig() config.VenueConfig {
	return config.VenueConfig{
		Enabled:           true,
		BaseURL:           "http://localhost",
		Timeout:           time.Second,
		RequestsPerMinute: 6000,
		CacheTTL:          time.Minute,
	}
}

func TestGuard_CachesSuccessfulFetch(t *testing.T) {
	g := NewGuard("test", testVenueConfig(), logger.NewNop())
	defer g.Close()

	calls := 0
	fetch := func(ctx context.Context) (domain.ExchangePrice, error) {
		calls++
		return domain.NewExchangePrice("test", domain.ExchangeCEX,
			domain.MustParseMarketPair("ETH/USDC"), decimal.NewFromInt(3000)), nil
	}

	ctx := context.Background()
	first, err := g.Fetch(ctx, "ETH/USDC", fetch)
	require.NoError(t, err)
	second, err := g.Fetch(ctx, "ETH/USDC", fetch)
	require.NoError(t, err)

	assert.Equal(t, 1, calls)
	assert.True(t, first.Price.Equal(second.Price))
}

func TestGuard_DoesNotCacheErrors(t *testing.T) {
	g := NewGuard("test", testVenueConfig(), logger.NewNop())
	defer g.Close()

	calls := 0
	boom := errors.New("boom")
	fetch := func(ctx context.Context) (domain.ExchangePrice, error) {
		calls++
		return domain.ExchangePrice{}, boom
	}

	for i := 0; i < 2; i++ {
		_, err := g.Fetch(context.Background(), "ETH/USDC", fetch)
		require.ErrorIs(t, err, boom)
	}
	assert.Equal(t, 2, calls)
}

func TestGuard_BreakerOpensAfterConsecutiveFailures(t *testing.T) {
	g := NewGuard("test", testVenueConfig(), logger.NewNop())
	defer g.Close()

	fetch := func(ctx context.Context) (domain.ExchangePrice, error) {
		return domain.ExchangePrice{}, errors.New("down")
	}

	for i := 0; i < 5; i++ {
		_, _ = g.Fetch(context.Background(), "ETH/USDC", fetch)
	}
	assert.False(t, g.Healthy())
}

func TestGuard_CancelledContext(t *testing.T) {
	cfg := testVenueConfig()
	cfg.RequestsPerMinute = 1
	g := NewGuard("test", cfg, logger.NewNop())
	defer g.Close()

	ok := func(ctx context.Context) (domain.ExchangePrice, error) {
		return domain.ExchangePrice{Exchange: "test"}, nil
	}

	// First call consumes the only burst token.
	_, err := g.Fetch(context.Background(), "a", ok)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = g.Fetch(ctx, "b", ok)
	require.Error(t, err)
}
