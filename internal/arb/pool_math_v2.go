package arb

import "github.com/holiman/uint256"

// V2GetAmountOut is the constant-product swap quote: given amount_in of
// token_in, returns the corresponding amount_out of the other token. All
// arithmetic is 256-bit integer, matching Uniswap V2's rounding exactly.
// Returns zero if amount_in, r_in, or r_out is zero — never panics, never
// raises, per spec.md §7's "Arithmetic" error kind.
func V2GetAmountOut(amountIn, reserveIn, reserveOut *Amount256, feeBps uint32) *Amount256 {
	if amountIn == nil || reserveIn == nil || reserveOut == nil ||
		amountIn.IsZero() || reserveIn.IsZero() || reserveOut.IsZero() {
		return new(Amount256)
	}

	f := new(Amount256).SetUint64(uint64(10000 - feeBps))
	inFee := new(Amount256).Mul(amountIn, f)

	numerator := new(Amount256).Mul(inFee, reserveOut)
	denominator := new(Amount256).Mul(reserveIn, uint256.NewInt(10000))
	denominator = denominator.Add(denominator, inFee)

	if denominator.IsZero() {
		return new(Amount256)
	}
	return new(Amount256).Div(numerator, denominator)
}

// V2GetAmountIn is the inverse quote: the amount_in required to receive
// amount_out of the other token. Returns (nil, false) — the "unreachable"
// sentinel — when amount_out is greater than or equal to the available
// reserve, since no finite input can buy the whole reserve.
func V2GetAmountIn(amountOut, reserveIn, reserveOut *Amount256, feeBps uint32) (*Amount256, bool) {
	if amountOut == nil || reserveIn == nil || reserveOut == nil || amountOut.IsZero() {
		return new(Amount256), true
	}
	if amountOut.Cmp(reserveOut) >= 0 {
		return nil, false
	}

	f := new(Amount256).SetUint64(uint64(10000 - feeBps))
	numerator := new(Amount256).Mul(reserveIn, amountOut)
	numerator = numerator.Mul(numerator, uint256.NewInt(10000))

	remaining := new(Amount256).Sub(reserveOut, amountOut)
	denominator := new(Amount256).Mul(remaining, f)
	if denominator.IsZero() {
		return nil, false
	}

	quotient, rem := quoRem(numerator, denominator)
	if !rem.IsZero() {
		quotient = quotient.AddUint64(quotient, 1)
	}
	quotient = quotient.AddUint64(quotient, 1)
	return quotient, true
}

// quoRem returns floor(a/b) and a-floor(a/b)*b without mutating a or b.
func quoRem(a, b *Amount256) (*Amount256, *Amount256) {
	q := new(Amount256).Div(a, b)
	r := new(Amount256).Mod(a, b)
	return q, r
}

// V2SpotPrice returns reserve1/reserve0 as a float64 for ranking and
// display. Undefined (returns 0) if reserve0 is zero.
func V2SpotPrice(reserve0, reserve1 *Amount256) float64 {
	if reserve0 == nil || reserve0.IsZero() {
		return 0
	}
	return reserve1.Float64() / reserve0.Float64()
}

// V2PriceImpact is 1 - effective/spot, clamped to [0,1]. tokenInIsToken0
// selects which reserve the trade is sized against.
func V2PriceImpact(amountIn *Amount256, reserve0, reserve1 *Amount256, feeBps uint32, tokenInIsToken0 bool) float64 {
	spot := V2SpotPrice(reserve0, reserve1)

	var rIn, rOut *Amount256
	if tokenInIsToken0 {
		rIn, rOut = reserve0, reserve1
	} else {
		rIn, rOut = reserve1, reserve0
	}
	amountOut := V2GetAmountOut(amountIn, rIn, rOut, feeBps)
	if amountIn == nil || amountIn.IsZero() {
		return 0
	}
	effective := amountOut.Float64() / amountIn.Float64()

	var reference float64
	if tokenInIsToken0 {
		reference = spot
	} else {
		if spot == 0 {
			return 0
		}
		reference = 1 / spot
	}
	if reference == 0 {
		return 0
	}
	impact := 1 - effective/reference
	if impact < 0 {
		return 0
	}
	if impact > 1 {
		return 1
	}
	return impact
}
