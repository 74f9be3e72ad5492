package arb

import "math/big"

// v3Q96 is 2^96, the fixed-point base sqrt_price_x96 is expressed in.
var v3Q96 = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))

// V3CurrentPrice returns (sqrt_price_x96 / 2^96)^2 as a float64 — token1
// per token0, per spec.md §4.1.
func V3CurrentPrice(sqrtPriceX96 *Amount256) float64 {
	if sqrtPriceX96 == nil || sqrtPriceX96.IsZero() {
		return 0
	}
	ratio := new(big.Float).SetInt(sqrtPriceX96.ToBig())
	ratio.Quo(ratio, v3Q96)
	ratio.Mul(ratio, ratio)
	f, _ := ratio.Float64()
	return f
}

// V3GetAmountOut is a deliberate stub at the core boundary: exact
// concentrated-liquidity output quoting requires tick-map traversal that
// belongs in a separate math module or the external simulator (spec.md
// Design Notes). The core conservatively returns amount_in unchanged so
// strategies never emit an overly optimistic V3 leg. Neither the Optimizer
// nor the Scanner re-quotes or flags V3 legs; an exact V3 output is only
// obtained by passing the route through a RouteSimulator
// (Facade.SimulateRoute).
func V3GetAmountOut(amountIn *Amount256) *Amount256 {
	if amountIn == nil {
		return new(Amount256)
	}
	return new(Amount256).Set(amountIn)
}

// V3FeePercent returns fee_micro / 1_000_000.
func V3FeePercent(feeMicro uint32) float64 {
	return float64(feeMicro) / 1_000_000
}
