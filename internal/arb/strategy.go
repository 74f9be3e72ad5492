package arb

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
)

// Strategy is a pluggable detector: a pure function of a chain-local
// snapshot of Price State that produces candidate Opportunities. A
// Strategy must not mutate Price State, may be invoked in parallel with
// other strategies on the same snapshot, and must be deterministic given an
// identical snapshot (spec.md §4.4.3).
type Strategy interface {
	Name() string
	Find(chain Chain, pools []PoolEntry, now time.Time) []Opportunity
}

func canonicalOrder(x, y Address) (lo, hi Address) {
	if bytes.Compare(x.Bytes(), y.Bytes()) <= 0 {
		return x, y
	}
	return y, x
}

// poolPrice returns the pool's quote of hi-per-lo (the value of one lo
// expressed in units of hi), inverting the pool's raw spot/current price
// when its token0 is not the canonical lower address.
func poolPrice(pool Pool, lo Address) float64 {
	switch p := pool.(type) {
	case *V2Pool:
		price := V2SpotPrice(p.Reserve0, p.Reserve1) // token1 per token0
		if p.Token0 == lo {
			return price
		}
		if price == 0 {
			return 0
		}
		return 1 / price
	case *V3Pool:
		price := V3CurrentPrice(p.SqrtPriceX96) // token1 per token0
		if p.Token0 == lo {
			return price
		}
		if price == 0 {
			return 0
		}
		return 1 / price
	default:
		return 0
	}
}

func poolTokens(pool Pool) (Address, Address, bool) {
	switch pool.(type) {
	case *V2Pool, *V3Pool:
		a, b := pool.Tokens()
		return a, b, true
	default:
		return Address{}, Address{}, false
	}
}

func poolFeeBps(pool Pool) uint32 {
	switch p := pool.(type) {
	case *V2Pool:
		return p.FeeBps
	case *V3Pool:
		return uint32(float64(p.FeeMicro) / 100) // micro (1e-6) to bps (1e-4)
	default:
		return 0
	}
}

// simulateLeg quotes amountIn through pool in the direction tokenIn->tokenOut.
func simulateLeg(pool Pool, tokenIn Address, amountIn *Amount256) *Amount256 {
	switch p := pool.(type) {
	case *V2Pool:
		if tokenIn == p.Token0 {
			return V2GetAmountOut(amountIn, p.Reserve0, p.Reserve1, p.FeeBps)
		}
		return V2GetAmountOut(amountIn, p.Reserve1, p.Reserve0, p.FeeBps)
	case *V3Pool:
		return V3GetAmountOut(amountIn)
	default:
		return new(Amount256)
	}
}

// CrossVenueStrategy implements spec.md §4.4.1: for every canonical pair
// traded on two or more pools, compare the quoted prices of every pair of
// those pools and emit an Opportunity for each pair whose spread is at
// least MinSpreadBps.
type CrossVenueStrategy struct {
	MinSpreadBps    int64
	DefaultNotional *Amount256
	GasPerLeg       uint64
}

// NewCrossVenueStrategy builds the strategy with the given minimum spread
// (the config default is 10 bps) and 150 000 gas per leg.
func NewCrossVenueStrategy(minSpreadBps int64, defaultNotional *Amount256) *CrossVenueStrategy {
	return &CrossVenueStrategy{
		MinSpreadBps:    minSpreadBps,
		DefaultNotional: defaultNotional,
		GasPerLeg:       150000,
	}
}

func (s *CrossVenueStrategy) Name() string { return "cross_venue" }

type pairKey struct {
	Lo, Hi Address
}

func (s *CrossVenueStrategy) Find(chain Chain, pools []PoolEntry, now time.Time) []Opportunity {
	groups := make(map[pairKey][]PoolEntry)
	var pairOrder []pairKey

	for _, e := range pools {
		t0, t1, ok := poolTokens(e.Pool)
		if !ok {
			continue
		}
		lo, hi := canonicalOrder(t0, t1)
		k := pairKey{lo, hi}
		if _, seen := groups[k]; !seen {
			pairOrder = append(pairOrder, k)
		}
		groups[k] = append(groups[k], e)
	}

	sort.Slice(pairOrder, func(i, j int) bool {
		a, b := pairOrder[i], pairOrder[j]
		if c := bytes.Compare(a.Lo.Bytes(), b.Lo.Bytes()); c != 0 {
			return c < 0
		}
		return bytes.Compare(a.Hi.Bytes(), b.Hi.Bytes()) < 0
	})

	var out []Opportunity
	for _, k := range pairOrder {
		group := groups[k]
		if len(group) < 2 {
			continue
		}
		sort.Slice(group, func(i, j int) bool {
			return bytes.Compare(group[i].Pool.Address().Bytes(), group[j].Pool.Address().Bytes()) < 0
		})

		for i := 0; i < len(group); i++ {
			for j := i + 1; j < len(group); j++ {
				if opp, ok := s.evaluate(chain, k.Lo, k.Hi, group[i], group[j], now); ok {
					out = append(out, opp)
				}
			}
		}
	}
	return out
}

func (s *CrossVenueStrategy) evaluate(chain Chain, lo, hi Address, a, b PoolEntry, now time.Time) (Opportunity, bool) {
	priceA := poolPrice(a.Pool, lo)
	priceB := poolPrice(b.Pool, lo)
	if priceA <= 0 || priceB <= 0 {
		return Opportunity{}, false
	}

	var buy, sell PoolEntry
	var pBuy, pSell float64
	if priceA < priceB {
		buy, sell, pBuy, pSell = a, b, priceA, priceB
	} else if priceB < priceA {
		buy, sell, pBuy, pSell = b, a, priceB, priceA
	} else {
		return Opportunity{}, false
	}

	spreadBps := int64((pSell - pBuy) / pBuy * 10000)
	if spreadBps < s.MinSpreadBps {
		return Opportunity{}, false
	}

	notional := s.sizeTrade(buy.Pool, sell.Pool)

	// Start with `hi` (quote token), buy `lo` (base) on the cheap pool,
	// sell `lo` back into `hi` on the expensive pool.
	buyOut := simulateLeg(buy.Pool, hi, notional)
	sellOut := simulateLeg(sell.Pool, lo, buyOut)

	gross := new(Amount256)
	if sellOut.Cmp(notional) > 0 {
		gross = new(Amount256).Sub(sellOut, notional)
	}

	buyRoute := SwapRoute{
		Chain:       chain,
		GasEstimate: s.GasPerLeg,
		Steps: []SwapStep{{
			PoolAddr:  buy.Pool.Address(),
			Dex:       buy.Pool.Kind(),
			TokenIn:   hi,
			TokenOut:  lo,
			AmountIn:  notional,
			AmountOut: buyOut,
			FeeBps:    poolFeeBps(buy.Pool),
		}},
	}
	sellRoute := SwapRoute{
		Chain:       chain,
		GasEstimate: s.GasPerLeg,
		Steps: []SwapStep{{
			PoolAddr:  sell.Pool.Address(),
			Dex:       sell.Pool.Kind(),
			TokenIn:   lo,
			TokenOut:  hi,
			AmountIn:  buyOut,
			AmountOut: sellOut,
			FeeBps:    poolFeeBps(sell.Pool),
		}},
	}

	profitBps := int64(0)
	if !notional.IsZero() {
		profitBps = int64(gross.Float64() / notional.Float64() * 10000)
	}

	opp := Opportunity{
		ID:           uuid.NewString(),
		Kind:         KindCrossVenue,
		Chain:        chain,
		TokenA:       lo,
		TokenB:       hi,
		BuyRoute:     buyRoute,
		SellRoute:    sellRoute,
		InputAmount:  notional,
		OutputAmount: sellOut,
		GrossProfit:  gross,
		GasCostWei:   new(Amount256),
		NetProfit:    gross,
		ProfitBps:    profitBps,
		DetectedAt:   now,
		ExpiresAt:    now.Add(time.Duration(chain.BlockTimeMs()) * time.Millisecond),
		BlockNumber:  buy.Pool.BlockNumber(),
		Confidence:   0,
	}
	return opp, true
}

// sizeTrade returns 1% of the minimum reserve across all four legs for a
// V2<->V2 pair, or the configured default notional otherwise.
func (s *CrossVenueStrategy) sizeTrade(buy, sell Pool) *Amount256 {
	buyV2, buyOK := buy.(*V2Pool)
	sellV2, sellOK := sell.(*V2Pool)
	if !buyOK || !sellOK {
		return new(Amount256).Set(s.DefaultNotional)
	}

	min := buyV2.Reserve0
	for _, r := range []*Amount256{buyV2.Reserve1, sellV2.Reserve0, sellV2.Reserve1} {
		if r.Cmp(min) < 0 {
			min = r
		}
	}
	onePercent := new(Amount256).Div(min, new(Amount256).SetUint64(100))
	if onePercent.IsZero() {
		return new(Amount256).Set(s.DefaultNotional)
	}
	return onePercent
}
