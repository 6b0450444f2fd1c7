package scorer

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scoreCode(t *testing.T, code string) (factors [8]float64) {
	t.Helper()
	h := NewHeuristic()
	f, _, err := h.Score(context.Background(), Contract{Address: "0xabc", Network: "ethereum", Code: code})
	require.NoError(t, err)
	copy(factors[:], f.Values())
	return factors
}

func TestAllFactorsWithinRange(t *testing.T) {
	samples := []string{
		"",
		"0x606060",
		"contract T { function mint() onlyOwner {} }",
		strings.Repeat("owner mint burn pause delegatecall selfdestruct ", 500),
		"// SPDX-License-Identifier: MIT\nimport \"@openzeppelin/contracts\"; OpenZeppelin @notice @dev modifier require( revert( SafeMath addLiquidity lock liquidity renounceOwnership timelock",
	}
	h := NewHeuristic()
	for _, code := range samples {
		f, _, err := h.Score(context.Background(), Contract{Code: code})
		require.NoError(t, err)
		for i, v := range f.Values() {
			assert.GreaterOrEqual(t, v, 0.0, "factor %d for %q", i, code)
			assert.LessOrEqual(t, v, 10.0, "factor %d for %q", i, code)
		}
	}
}

func TestRugPullOwnerMintWithoutRenounce(t *testing.T) {
	// owner+mint (+2), owner without renounce (+1.5), no timelock (+1),
	// owner+mint without renounce (+1): base 5 -> 10.5 pre-clamp.
	factors := scoreCode(t, "contract T { address owner; function mint() public {} }")
	assert.Equal(t, 10.0, factors[0])
}

func TestRugPullSafeContract(t *testing.T) {
	factors := scoreCode(t, "contract T { function renounceOwnership() {} timelock owner }")
	// owner present without mint; renounce and timelock present: base 5.
	assert.Equal(t, 5.0, factors[0])
}

func TestSmartContractRiskPatterns(t *testing.T) {
	short := scoreCode(t, "delegatecall selfdestruct")
	// base 5 + short(2) + delegatecall(1.5) + selfdestruct(1) = 9.5
	assert.Equal(t, 9.5, short[1])

	guarded := scoreCode(t, strings.Repeat("x", 1200) + " require( revert( SafeMath")
	// base 5 - guards(1) - safemath(0.5) = 3.5
	assert.Equal(t, 3.5, guarded[1])
}

func TestCentralizationRisk(t *testing.T) {
	withOwner := scoreCode(t, "owner")
	assert.Equal(t, 8.0, withOwner[2]) // 3 + 3 + 2

	renounced := scoreCode(t, "owner renounceOwnership")
	assert.Equal(t, 6.0, renounced[2]) // 3 + 3

	none := scoreCode(t, "stateless")
	assert.Equal(t, 3.0, none[2])
}

func TestTokenEconomicsRisk(t *testing.T) {
	mintNoBurn := scoreCode(t, "mint")
	assert.Equal(t, 8.0, mintNoBurn[4]) // 4 + 2 + 1 + 1

	mintAndBurn := scoreCode(t, "mint burn")
	assert.Equal(t, 6.0, mintAndBurn[4]) // 4 + 2

	neither := scoreCode(t, "transfer")
	assert.Equal(t, 5.0, neither[4]) // 4 + 1
}

func TestHistoricalRiskIsNeutral(t *testing.T) {
	factors := scoreCode(t, "anything")
	assert.Equal(t, 5.0, factors[7])
}

func TestHeuristicVerificationMetadata(t *testing.T) {
	h := NewHeuristic()
	_, v, err := h.Score(context.Background(), Contract{Code: "x"})
	require.NoError(t, err)
	assert.True(t, v.TEEVerified)
	assert.True(t, strings.HasPrefix(v.StorageID, "local_"))
	assert.Equal(t, 0.002, v.Cost)
	assert.Equal(t, 0.05, v.CloudCost)
	assert.Equal(t, 96.0, v.SavingsPct)
}

func TestHeuristicIsDeterministic(t *testing.T) {
	code := "contract T { address owner; function mint() {} }"
	a := scoreCode(t, code)
	b := scoreCode(t, code)
	assert.Equal(t, a, b)
}
