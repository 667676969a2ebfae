package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dexter/business/mev/domain"
)

func TestDefault(t *testing.T) {
	rules, err := Default()
	require.NoError(t, err)
	require.Len(t, rules, 2)

	assert.Equal(t, "private_mempool", rules[0].ID)
	assert.Equal(t, domain.RulePrivateMempool, rules[0].Type)
	assert.Equal(t, 1, rules[0].Priority)
	assert.Equal(t, "1000", rules[0].Params["min_value"])

	assert.Equal(t, domain.RuleGasPriceLimit, rules[1].Type)
	assert.Equal(t, "1.5", rules[1].Params["max_multiplier"])
}

func TestParseRejectsUnknownType(t *testing.T) {
	_, err := Parse([]byte("rules:\n  - id: x\n    type: TELEPATHY\n"))
	assert.Error(t, err)
}
