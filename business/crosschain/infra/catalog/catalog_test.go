package catalog

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dexter/business/crosschain/domain"
	"github.com/fd1az/dexter/internal/apperror"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)

	require.Len(t, c.Chains, 5)
	require.Len(t, c.Bridges, 4)

	eth := c.Chains[1]
	assert.Equal(t, "ethereum", eth.ID)
	assert.Equal(t, domain.FamilyEVM, eth.Family)
	assert.Equal(t, 12*time.Second, eth.BlockTime)
	assert.True(t, eth.AvgGasPrice.Equal(decimal.NewFromInt(30)))

	wormhole := c.Bridges[0]
	assert.Equal(t, "solana", wormhole.From)
	assert.Equal(t, 10*time.Minute, wormhole.EstimatedTime)
	assert.True(t, wormhole.Fee.Equal(decimal.RequireFromString("0.001")))
	assert.True(t, wormhole.Supports("usdc"))
}

func TestParse_RejectsUnknownChain(t *testing.T) {
	doc := []byte(`
chains:
  - id: ethereum
    family: evm
bridges:
  - id: nowhere
    from: ethereum
    to: mars
    fee: "0.001"
    tokens: [USDC]
`)
	_, err := Parse(doc)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nowhere")
	assert.Equal(t, apperror.CodeCatalogLoadFailed, apperror.GetCode(err))
}

func TestParse_RejectsUnknownFamily(t *testing.T) {
	_, err := Parse([]byte("chains:\n  - id: cosmos\n    family: ibc\n"))
	require.Error(t, err)
}
