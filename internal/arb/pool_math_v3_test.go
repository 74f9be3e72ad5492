package arb

import (
	"math"
	"testing"

	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
)

// S2 — v3 price at sqrt_price_x96 == 2^96 must be 1.0.
func TestV3CurrentPrice_S2(t *testing.T) {
	q96 := new(uint256.Int).Lsh(uint256.NewInt(1), 96)
	price := V3CurrentPrice(q96)
	assert.InDelta(t, 1.0, price, 0.01)
}

func TestV3CurrentPrice_ZeroSentinel(t *testing.T) {
	assert.Equal(t, 0.0, V3CurrentPrice(nil))
	assert.Equal(t, 0.0, V3CurrentPrice(new(uint256.Int)))
}

func TestV3CurrentPrice_DoublesQ96(t *testing.T) {
	// sqrt_price_x96 for price=4 is 2 * 2^96.
	sqrtP := new(uint256.Int).Lsh(uint256.NewInt(2), 96)
	price := V3CurrentPrice(sqrtP)
	assert.True(t, math.Abs(price-4.0) < 0.01)
}

func TestV3GetAmountOut_Stub(t *testing.T) {
	in := uint256.NewInt(12345)
	out := V3GetAmountOut(in)
	assert.Equal(t, in.String(), out.String())
	assert.True(t, V3GetAmountOut(nil).IsZero())
}
