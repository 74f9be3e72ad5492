package arb

import (
	"bytes"
	"sort"
	"time"

	"github.com/google/uuid"
)

// TriangularStrategy implements spec.md §4.4.2. It builds a directed graph
// over tokens where an edge token_in->token_out exists whenever some pool
// trades that ordered pair, enumerates simple 3-cycles A->B->C->A, and
// keeps a cycle whose composed quotes return strictly more of the opening
// token than was put in, by at least MinProfitBps.
//
// This fully implements the algorithm the original system's equivalent
// strategy left as an unimplemented placeholder, following the 3-cycle
// description spec.md gives in full.
type TriangularStrategy struct {
	MinProfitBps    int64
	DefaultNotional *Amount256
	GasPerLeg       uint64
}

// NewTriangularStrategy builds the strategy with the given minimum profit
// (the config default is 15 bps) and 150 000 gas per leg.
func NewTriangularStrategy(minProfitBps int64, defaultNotional *Amount256) *TriangularStrategy {
	return &TriangularStrategy{
		MinProfitBps:    minProfitBps,
		DefaultNotional: defaultNotional,
		GasPerLeg:       150000,
	}
}

func (s *TriangularStrategy) Name() string { return "triangular" }

// Find picks, for each ordered (tokenIn, tokenOut) pair, the lowest-address
// pool among those that trade it — keeping enumeration deterministic and
// independent of the quote amount — then enumerates simple 3-cycles over
// the resulting directed graph.
func (s *TriangularStrategy) Find(chain Chain, pools []PoolEntry, now time.Time) []Opportunity {
	type ordered struct{ from, to Address }
	edges := make(map[ordered]Pool)
	tokenSet := make(map[Address]struct{})

	for _, e := range pools {
		t0, t1, ok := poolTokens(e.Pool)
		if !ok {
			continue
		}
		tokenSet[t0] = struct{}{}
		tokenSet[t1] = struct{}{}

		for _, dir := range [2]ordered{{t0, t1}, {t1, t0}} {
			cur, exists := edges[dir]
			if !exists || bytes.Compare(e.Pool.Address().Bytes(), cur.Address().Bytes()) < 0 {
				edges[dir] = e.Pool
			}
		}
	}

	tokens := make([]Address, 0, len(tokenSet))
	for t := range tokenSet {
		tokens = append(tokens, t)
	}
	sort.Slice(tokens, func(i, j int) bool {
		return bytes.Compare(tokens[i].Bytes(), tokens[j].Bytes()) < 0
	})

	var out []Opportunity
	for ai, a := range tokens {
		for bi, b := range tokens {
			if bi == ai {
				continue
			}
			poolAB, ok := edges[ordered{a, b}]
			if !ok {
				continue
			}
			for ci, c := range tokens {
				if ci == ai || ci == bi {
					continue
				}
				poolBC, ok := edges[ordered{b, c}]
				if !ok {
					continue
				}
				poolCA, ok := edges[ordered{c, a}]
				if !ok {
					continue
				}
				if opp, ok := s.evaluateCycle(chain, a, b, c, poolAB, poolBC, poolCA, now); ok {
					out = append(out, opp)
				}
			}
		}
	}
	return out
}

func (s *TriangularStrategy) evaluateCycle(chain Chain, a, b, c Address, poolAB, poolBC, poolCA Pool, now time.Time) (Opportunity, bool) {
	start := new(Amount256).Set(s.DefaultNotional)

	amountB := simulateLeg(poolAB, a, start)
	if amountB.IsZero() {
		return Opportunity{}, false
	}
	amountC := simulateLeg(poolBC, b, amountB)
	if amountC.IsZero() {
		return Opportunity{}, false
	}
	closing := simulateLeg(poolCA, c, amountC)

	if closing.Cmp(start) <= 0 {
		return Opportunity{}, false
	}
	gross := new(Amount256).Sub(closing, start)
	profitBps := int64(gross.Float64() / start.Float64() * 10000)
	if profitBps < s.MinProfitBps {
		return Opportunity{}, false
	}

	buyRoute := SwapRoute{
		Chain:       chain,
		GasEstimate: s.GasPerLeg * 2,
		Steps: []SwapStep{
			{PoolAddr: poolAB.Address(), Dex: poolAB.Kind(), TokenIn: a, TokenOut: b, AmountIn: start, AmountOut: amountB, FeeBps: poolFeeBps(poolAB)},
			{PoolAddr: poolBC.Address(), Dex: poolBC.Kind(), TokenIn: b, TokenOut: c, AmountIn: amountB, AmountOut: amountC, FeeBps: poolFeeBps(poolBC)},
		},
	}
	sellRoute := SwapRoute{
		Chain:       chain,
		GasEstimate: s.GasPerLeg,
		Steps: []SwapStep{
			{PoolAddr: poolCA.Address(), Dex: poolCA.Kind(), TokenIn: c, TokenOut: a, AmountIn: amountC, AmountOut: closing, FeeBps: poolFeeBps(poolCA)},
		},
	}

	opp := Opportunity{
		ID:           uuid.NewString(),
		Kind:         KindTriangular,
		Chain:        chain,
		TokenA:       a,
		TokenB:       b,
		BuyRoute:     buyRoute,
		SellRoute:    sellRoute,
		InputAmount:  start,
		OutputAmount: closing,
		GrossProfit:  gross,
		GasCostWei:   new(Amount256),
		NetProfit:    gross,
		ProfitBps:    profitBps,
		DetectedAt:   now,
		ExpiresAt:    now.Add(time.Duration(chain.BlockTimeMs()) * time.Millisecond),
		BlockNumber:  poolAB.BlockNumber(),
		Confidence:   0,
	}
	return opp, true
}
