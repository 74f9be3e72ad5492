package arb

import (
	"math"

	"github.com/lowlatency-labs/arb-core/pkg/logger"
)

// OpportunityFilter predicates a candidate Opportunity against the
// thresholds the Scanner Loop applies before handing survivors to the
// Optimizer (spec.md §4.5 step 1c). Its field set is taken from the
// original system's opportunity filter, which spec.md names but does not
// enumerate in full.
type OpportunityFilter struct {
	MinProfitUSD  float64
	MinProfitBps  int64
	MaxGasCostUSD float64
	AllowedDexes  []DexKind
	AllowedChains []Chain
	MaxHops       int
	MinConfidence float64
}

// Matches reports whether opp clears every configured threshold. A zero
// value for a given threshold disables that check. MaxGasCostUSD and
// AllowedDexes are carried on the struct for parity with the original's
// filter but left unconsulted here: opp has no gas-cost breakdown to check
// MaxGasCostUSD against, and AllowedDexes would need to inspect every route
// step rather than a single field — left for a caller that needs it.
func (f OpportunityFilter) Matches(opp Opportunity) bool {
	if f.MinProfitBps > 0 && opp.ProfitBps < f.MinProfitBps {
		return false
	}
	if f.MinProfitUSD > 0 && opp.ProfitUSD < f.MinProfitUSD {
		return false
	}
	if f.MinConfidence > 0 && opp.Confidence < f.MinConfidence {
		return false
	}
	if f.MaxHops > 0 && opp.HopCount() > f.MaxHops {
		return false
	}
	if len(f.AllowedChains) > 0 && !chainAllowed(f.AllowedChains, opp.Chain) {
		return false
	}
	return true
}

func chainAllowed(allowed []Chain, chain Chain) bool {
	for _, c := range allowed {
		if c == chain {
			return true
		}
	}
	return false
}

// Optimizer re-costs an Opportunity against live gas, enforces the
// minimum-profit-after-gas threshold, and assigns a confidence score
// (spec.md §4.6).
type Optimizer struct {
	MinProfitAfterGas *Amount256
	log               *logger.Logger
	metrics           *Metrics
}

// NewOptimizer builds an Optimizer with the given minimum-profit-after-gas
// floor (default 10^15 wei = 0.001 ETH, per spec.md).
func NewOptimizer(minProfitAfterGas *Amount256, log *logger.Logger) *Optimizer {
	return &Optimizer{MinProfitAfterGas: minProfitAfterGas, log: log.Named("optimizer")}
}

// WithMetrics attaches the Prometheus collector the optimizer increments on
// rejection. Optional.
func (o *Optimizer) WithMetrics(m *Metrics) *Optimizer {
	o.metrics = m
	return o
}

// Optimize returns the re-scored opportunity and true if it survives, or a
// zero Opportunity and false if it is rejected. A rejection removes the
// opportunity from the pipeline entirely — there is no partial result.
func (o *Optimizer) Optimize(opp Opportunity, gas *GasPrice) (Opportunity, bool) {
	if gas != nil {
		totalGas := opp.BuyRoute.GasEstimate + opp.SellRoute.GasEstimate
		perGas := new(Amount256).Add(gas.BaseFee, gas.PriorityFee)
		opp.GasCostWei = new(Amount256).Mul(perGas, new(Amount256).SetUint64(totalGas))
	}
	if opp.GasCostWei == nil {
		opp.GasCostWei = new(Amount256)
	}

	net := new(Amount256)
	if opp.GrossProfit.Cmp(opp.GasCostWei) > 0 {
		net = new(Amount256).Sub(opp.GrossProfit, opp.GasCostWei)
	}
	opp.NetProfit = net

	if net.Cmp(o.MinProfitAfterGas) < 0 {
		if o.metrics != nil {
			o.metrics.OptimizerRejections.WithLabelValues("min_profit_after_gas").Inc()
		}
		return Opportunity{}, false
	}

	if !opp.InputAmount.IsZero() {
		opp.ProfitBps = int64(net.Float64() / opp.InputAmount.Float64() * 10000)
	}

	opp.Confidence = calculateConfidence(opp)
	return opp, true
}

// calculateConfidence reproduces the original system's scoring exactly:
// start at 0.9, apply a competition penalty, a multi-hop penalty beyond two
// hops, and a thin-margin penalty under 20 bps, clamped to [0.1, 0.99].
func calculateConfidence(opp Opportunity) float64 {
	c := 0.9
	c /= 1 + float64(opp.CompetingTxs)*0.2

	hops := opp.HopCount()
	if hops > 2 {
		c *= math.Pow(0.9, float64(hops-2))
	}

	if opp.ProfitBps < 20 {
		c *= 0.8
	}

	if c < 0.1 {
		c = 0.1
	}
	if c > 0.99 {
		c = 0.99
	}
	return c
}
