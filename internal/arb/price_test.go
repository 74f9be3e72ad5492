package arb

import (
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

// S3 — PriceKey(Eth, A, B, V3) == PriceKey(Eth, B, A, V3) where A < B.
func TestNewPriceKey_S3_Normalization(t *testing.T) {
	a := common.HexToAddress("0x0000000000000000000000000000000000000001")
	b := common.HexToAddress("0x0000000000000000000000000000000000000002")

	k1 := NewPriceKey(ChainEthereum, a, b, DexV3)
	k2 := NewPriceKey(ChainEthereum, b, a, DexV3)

	assert.Equal(t, k1, k2)
	assert.Equal(t, a, k1.TokenA)
	assert.Equal(t, b, k1.TokenB)
}

func TestPriceEntry_Staleness(t *testing.T) {
	now := time.Now()
	entry := PriceEntry{Value: 1.0, ObservedAt: now.Add(-2 * time.Second)}

	assert.False(t, entry.IsStale(now, 5*time.Second))
	assert.True(t, entry.IsStale(now, time.Second))
}

func TestGasPrice_EffectiveGasPriceClampsToMaxFee(t *testing.T) {
	gp := GasPrice{
		BaseFee:     uint256.NewInt(50),
		PriorityFee: uint256.NewInt(10),
		MaxFee:      uint256.NewInt(40),
	}
	assert.Equal(t, uint256.NewInt(40).String(), gp.EffectiveGasPrice().String())
}

func TestGasPrice_EstimateCost(t *testing.T) {
	gp := GasPrice{BaseFee: uint256.NewInt(10), PriorityFee: uint256.NewInt(5), MaxFee: uint256.NewInt(100)}
	cost := gp.EstimateCost(21000)
	assert.Equal(t, uint256.NewInt(15*21000).String(), cost.String())
}

func TestSwapRoute_TokenPathAndHopCount(t *testing.T) {
	t0 := common.HexToAddress("0x01")
	t1 := common.HexToAddress("0x02")
	t2 := common.HexToAddress("0x03")

	route := SwapRoute{
		Steps: []SwapStep{
			{TokenIn: t0, TokenOut: t1, AmountIn: uint256.NewInt(100), AmountOut: uint256.NewInt(90)},
			{TokenIn: t1, TokenOut: t2, AmountIn: uint256.NewInt(90), AmountOut: uint256.NewInt(80)},
		},
	}
	assert.Equal(t, []common.Address{t0, t1, t2}, route.TokenPath())
	assert.Equal(t, 2, route.HopCount())
	assert.Equal(t, uint256.NewInt(100).String(), route.TotalAmountIn().String())
	assert.Equal(t, uint256.NewInt(80).String(), route.TotalAmountOut().String())
}

// Opportunity expiry crosses zero exactly at expires_at.
func TestOpportunity_TTLCrossesZeroAtExpiry(t *testing.T) {
	now := time.Now()
	opp := Opportunity{DetectedAt: now, ExpiresAt: now.Add(100 * time.Millisecond)}

	assert.False(t, opp.IsExpired(now))
	assert.True(t, opp.TTLMs(now) > 0)

	atExpiry := opp.ExpiresAt
	assert.True(t, opp.IsExpired(atExpiry))
	assert.Equal(t, int64(0), opp.TTLMs(atExpiry))
}
