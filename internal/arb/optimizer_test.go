package arb

import (
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlatency-labs/arb-core/pkg/logger"
)

// S6 — gross_profit=500_000_000_000_000 wei, recomputed gas_cost=
// 600_000_000_000_000 wei: the optimizer must reject, because net profit is
// zero (gross < gas), well under any positive min_profit_after_gas floor.
func TestOptimizer_Optimize_S6_RejectsWhenGasExceedsGross(t *testing.T) {
	minProfit := uint256.NewInt(1) // any positive floor trips this case
	opt := NewOptimizer(minProfit, logger.New("test"))

	gross, _ := uint256.FromDecimal("500000000000000")
	gas := &GasPrice{
		BaseFee:     uint256.NewInt(20),
		PriorityFee: uint256.NewInt(10),
		MaxFee:      uint256.NewInt(1_000_000),
	}
	// gas_cost_wei = (base+priority) * total_gas = 30 * 20_000_000_000_000 = 600_000_000_000_000
	opp := Opportunity{
		InputAmount: uint256.NewInt(1_000_000_000),
		GrossProfit: gross,
		BuyRoute:    SwapRoute{GasEstimate: 10_000_000_000_000},
		SellRoute:   SwapRoute{GasEstimate: 10_000_000_000_000},
	}

	_, ok := opt.Optimize(opp, gas)
	assert.False(t, ok, "gas cost exceeding gross profit must be rejected")
}

func TestOptimizer_Optimize_AcceptsProfitableOpportunity(t *testing.T) {
	minProfit := uint256.NewInt(1000)
	opt := NewOptimizer(minProfit, logger.New("test"))

	gross := uint256.NewInt(1_000_000)
	gas := &GasPrice{BaseFee: uint256.NewInt(1), PriorityFee: uint256.NewInt(1), MaxFee: uint256.NewInt(100)}
	opp := Opportunity{
		InputAmount: uint256.NewInt(1_000_000),
		GrossProfit: gross,
		BuyRoute:    SwapRoute{GasEstimate: 100},
		SellRoute:   SwapRoute{GasEstimate: 100},
	}

	got, ok := opt.Optimize(opp, gas)
	require.True(t, ok)
	assert.Equal(t, uint256.NewInt(1_000_000-400).String(), got.NetProfit.String())
	assert.True(t, got.Confidence >= 0.1 && got.Confidence <= 0.99)
}

func TestOptimizer_Optimize_NilGasKeepsPrecomputedGasCost(t *testing.T) {
	minProfit := uint256.NewInt(10)
	opt := NewOptimizer(minProfit, logger.New("test"))

	opp := Opportunity{
		InputAmount: uint256.NewInt(1000),
		GrossProfit: uint256.NewInt(1000),
		GasCostWei:  uint256.NewInt(50),
	}

	got, ok := opt.Optimize(opp, nil)
	require.True(t, ok)
	assert.Equal(t, uint256.NewInt(950).String(), got.NetProfit.String())
}

func TestCalculateConfidence_PenaltiesAndClamping(t *testing.T) {
	base := calculateConfidence(Opportunity{ProfitBps: 100})
	assert.InDelta(t, 0.9, base, 1e-9)

	withCompetition := calculateConfidence(Opportunity{ProfitBps: 100, CompetingTxs: 4})
	assert.True(t, withCompetition < base)

	thinMargin := calculateConfidence(Opportunity{ProfitBps: 5})
	assert.InDelta(t, 0.72, thinMargin, 1e-9)

	manyHops := calculateConfidence(Opportunity{
		ProfitBps: 100,
		BuyRoute:  SwapRoute{Steps: make([]SwapStep, 3)},
		SellRoute: SwapRoute{Steps: make([]SwapStep, 3)},
	})
	assert.True(t, manyHops < base)

	extreme := calculateConfidence(Opportunity{ProfitBps: 1, CompetingTxs: 100})
	assert.Equal(t, 0.1, extreme)
}

func TestOpportunityFilter_Matches(t *testing.T) {
	f := OpportunityFilter{
		MinProfitUSD:  10,
		MinProfitBps:  5,
		MaxHops:       2,
		MinConfidence: 0.5,
		AllowedChains: []Chain{ChainEthereum},
	}

	good := Opportunity{
		ProfitUSD:  20,
		ProfitBps:  10,
		Confidence: 0.8,
		Chain:      ChainEthereum,
		BuyRoute:   SwapRoute{Steps: make([]SwapStep, 1)},
	}
	assert.True(t, f.Matches(good))

	wrongChain := good
	wrongChain.Chain = ChainArbitrum
	assert.False(t, f.Matches(wrongChain))

	tooManyHops := good
	tooManyHops.BuyRoute = SwapRoute{Steps: make([]SwapStep, 3)}
	assert.False(t, f.Matches(tooManyHops))

	lowConfidence := good
	lowConfidence.Confidence = 0.1
	assert.False(t, f.Matches(lowConfidence))
}
