package arb

import (
	"bytes"
	"time"
)

// PriceKey normalizes a traded pair so that (A,B) and (B,A) coalesce into a
// single entry. Address comparison defines the canonical order.
type PriceKey struct {
	Chain  Chain
	TokenA Address // lexicographically smaller
	TokenB Address // lexicographically larger
	Dex    DexKind
}

// NewPriceKey builds a normalized PriceKey from an unordered token pair.
func NewPriceKey(chain Chain, tokenX, tokenY Address, dex DexKind) PriceKey {
	if bytes.Compare(tokenX.Bytes(), tokenY.Bytes()) <= 0 {
		return PriceKey{Chain: chain, TokenA: tokenX, TokenB: tokenY, Dex: dex}
	}
	return PriceKey{Chain: chain, TokenA: tokenY, TokenB: tokenX, Dex: dex}
}

// PriceEntry is a timestamped price observation for a PriceKey.
type PriceEntry struct {
	Value      float64
	Block      uint64
	ObservedAt time.Time
}

func (e PriceEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.ObservedAt)
}

func (e PriceEntry) IsStale(now time.Time, maxAge time.Duration) bool {
	return e.Age(now) > maxAge
}

// GasPrice mirrors an EIP-1559 fee quote.
type GasPrice struct {
	BaseFee     *Amount256
	PriorityFee *Amount256
	MaxFee      *Amount256
}

// EffectiveGasPrice returns min(max_fee, base_fee+priority_fee), the price
// actually paid per unit of gas.
func (g GasPrice) EffectiveGasPrice() *Amount256 {
	sum := new(Amount256).Add(g.BaseFee, g.PriorityFee)
	if g.MaxFee != nil && g.MaxFee.Lt(sum) {
		return new(Amount256).Set(g.MaxFee)
	}
	return sum
}

// EstimateCost returns the effective gas price multiplied by a gas amount.
func (g GasPrice) EstimateCost(gas uint64) *Amount256 {
	return new(Amount256).Mul(g.EffectiveGasPrice(), new(Amount256).SetUint64(gas))
}

// SwapStep is one hop of a route: a concrete pool traded in one direction.
type SwapStep struct {
	PoolAddr  Address
	Dex       DexKind
	TokenIn   Address
	TokenOut  Address
	AmountIn  *Amount256
	AmountOut *Amount256
	FeeBps    uint32
}

// SwapRoute is an ordered, non-empty sequence of SwapSteps with coherent
// token chaining (steps[i].TokenOut == steps[i+1].TokenIn).
type SwapRoute struct {
	Steps          []SwapStep
	Chain          Chain
	GasEstimate    uint64
	PriceImpactBps int64
}

func (r SwapRoute) IsEmpty() bool { return len(r.Steps) == 0 }

func (r SwapRoute) HopCount() int { return len(r.Steps) }

// TotalAmountIn is the input amount of the route's first step.
func (r SwapRoute) TotalAmountIn() *Amount256 {
	if r.IsEmpty() {
		return new(Amount256)
	}
	return r.Steps[0].AmountIn
}

// TotalAmountOut is the output amount of the route's last step.
func (r SwapRoute) TotalAmountOut() *Amount256 {
	if r.IsEmpty() {
		return new(Amount256)
	}
	return r.Steps[len(r.Steps)-1].AmountOut
}

// EffectivePrice is total output / total input as a float, for ranking and
// display only.
func (r SwapRoute) EffectivePrice() float64 {
	in := r.TotalAmountIn()
	out := r.TotalAmountOut()
	if in.IsZero() {
		return 0
	}
	return out.Float64() / in.Float64()
}

// TokenPath returns the chain of tokens the route walks through.
func (r SwapRoute) TokenPath() []Address {
	if r.IsEmpty() {
		return nil
	}
	path := make([]Address, 0, len(r.Steps)+1)
	path = append(path, r.Steps[0].TokenIn)
	for _, s := range r.Steps {
		path = append(path, s.TokenOut)
	}
	return path
}

// TotalFeesBps sums the per-step fee_bps; an approximation of cumulative
// fee drag used for display, not for exact AMM math.
func (r SwapRoute) TotalFeesBps() uint64 {
	var total uint64
	for _, s := range r.Steps {
		total += uint64(s.FeeBps)
	}
	return total
}

// OpportunityKind tags the detection strategy that produced an Opportunity.
type OpportunityKind string

const (
	KindCrossVenue OpportunityKind = "cross_venue"
	KindTriangular OpportunityKind = "triangular"
	KindCrossChain OpportunityKind = "cross_chain"
	KindFlashLoan  OpportunityKind = "flash_loan"
)

// TradeStatus is the lifecycle status of a submitted trade, reported back
// from the (out-of-scope) executor.
type TradeStatus string

const (
	StatusPending   TradeStatus = "pending"
	StatusSubmitted TradeStatus = "submitted"
	StatusIncluded  TradeStatus = "included"
	StatusReverted  TradeStatus = "reverted"
	StatusDropped   TradeStatus = "dropped"
	StatusFailed    TradeStatus = "failed"
)

// Opportunity is a candidate arbitrage discovered by a Strategy and refined
// by the Optimizer.
type Opportunity struct {
	ID            string
	Kind          OpportunityKind
	Chain         Chain
	TokenA        Address
	TokenB        Address
	BuyRoute      SwapRoute
	SellRoute     SwapRoute
	InputAmount   *Amount256
	OutputAmount  *Amount256
	GrossProfit   *Amount256
	GasCostWei    *Amount256
	NetProfit     *Amount256
	ProfitBps     int64
	ProfitUSD     float64
	DetectedAt    time.Time
	ExpiresAt     time.Time
	BlockNumber   uint64
	Confidence    float64 // in [0, 1]
	CompetingTxs  int
}

// TTLMs returns the remaining time-to-live, in milliseconds, measured from
// now; crosses zero exactly at ExpiresAt.
func (o Opportunity) TTLMs(now time.Time) int64 {
	return o.ExpiresAt.Sub(now).Milliseconds()
}

// IsExpired reports whether the opportunity's TTL has crossed zero.
func (o Opportunity) IsExpired(now time.Time) bool {
	return !now.Before(o.ExpiresAt)
}

// HopCount is the total number of swap steps across both legs.
func (o Opportunity) HopCount() int {
	return o.BuyRoute.HopCount() + o.SellRoute.HopCount()
}
