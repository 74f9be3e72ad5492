package arb

import (
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestV2Pool(addr string, block uint64) *V2Pool {
	return &V2Pool{
		Addr:     common.HexToAddress(addr),
		Token0:   common.HexToAddress("0x01"),
		Token1:   common.HexToAddress("0x02"),
		Reserve0: uint256.NewInt(1_000_000),
		Reserve1: uint256.NewInt(2_000_000),
		FeeBps:   30,
		Chain:    ChainEthereum,
		Block:    block,
	}
}

// Invariant #1 — get_pool returns the most recent accepted observation,
// respecting block-monotonicity: a lower block never overwrites a higher one.
func TestPriceState_UpdatePool_BlockMonotonic(t *testing.T) {
	ps := NewPriceState()
	now := time.Now()

	p10 := newTestV2Pool("0xAA", 10)
	p12 := newTestV2Pool("0xAA", 12)
	p11 := newTestV2Pool("0xAA", 11)

	assert.True(t, ps.UpdatePool(p10, now))
	assert.True(t, ps.UpdatePool(p12, now))
	assert.False(t, ps.UpdatePool(p11, now), "a stale block must be dropped")

	got, ok := ps.GetPool(ChainEthereum, p10.Address())
	require.True(t, ok)
	assert.Equal(t, uint64(12), got.Pool.BlockNumber())
}

// Applying the same PoolUpdate twice must leave state equal to applying it once.
func TestPriceState_UpdatePool_Idempotent(t *testing.T) {
	ps := NewPriceState()
	now := time.Now()
	p := newTestV2Pool("0xBB", 5)

	ps.UpdatePool(p, now)
	statsOnce := ps.Stats()
	ps.UpdatePool(p, now)
	statsTwice := ps.Stats()

	assert.Equal(t, statsOnce.PoolCount, statsTwice.PoolCount)
	got, ok := ps.GetPool(ChainEthereum, p.Address())
	require.True(t, ok)
	assert.Equal(t, uint64(5), got.Pool.BlockNumber())
}

// Invariant #2 — lookups with (A,B) and (B,A) return the same entry.
func TestPriceState_UpdatePrice_KeySymmetric(t *testing.T) {
	ps := NewPriceState()
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")
	now := time.Now()

	key := NewPriceKey(ChainEthereum, a, b, DexV2)
	ps.UpdatePrice(key, PriceEntry{Value: 2000, ObservedAt: now})

	got1, ok1 := ps.GetPrice(NewPriceKey(ChainEthereum, a, b, DexV2))
	got2, ok2 := ps.GetPrice(NewPriceKey(ChainEthereum, b, a, DexV2))
	require.True(t, ok1)
	require.True(t, ok2)
	assert.Equal(t, got1, got2)
}

// S4 — four parallel writers, 100 update_price calls each, must total 400
// and leave one of the observed inputs as the final value.
func TestPriceState_ConcurrentWrites_S4(t *testing.T) {
	ps := NewPriceState()
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")
	key := NewPriceKey(ChainEthereum, a, b, DexV2)

	const writers = 4
	const perWriter = 100

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < perWriter; i++ {
				ps.UpdatePrice(key, PriceEntry{
					Value:      float64(w*perWriter + i),
					ObservedAt: time.Now(),
				})
			}
		}(w)
	}
	wg.Wait()

	assert.Equal(t, uint64(writers*perWriter), ps.Stats().UpdateCount)

	final, ok := ps.GetPrice(key)
	require.True(t, ok)
	assert.True(t, final.Value >= 0 && final.Value < writers*perWriter)
}

// Invariant #6 — after cleanup(max_age), no returned entry is older than max_age.
func TestPriceState_Cleanup(t *testing.T) {
	ps := NewPriceState()
	now := time.Now()

	old := newTestV2Pool("0xCC", 1)
	ps.UpdatePool(old, now.Add(-time.Hour))
	fresh := newTestV2Pool("0xDD", 2)
	ps.UpdatePool(fresh, now)

	removed := ps.Cleanup(time.Minute, now)
	assert.Equal(t, 1, removed)

	pools := ps.GetChainPools(ChainEthereum, 24*time.Hour, now)
	for _, p := range pools {
		assert.False(t, p.IsStale(now, time.Minute))
	}
	_, ok := ps.GetPool(ChainEthereum, old.Address())
	assert.False(t, ok)
}

func TestPriceState_GetChainPools_FiltersByChainAndFreshness(t *testing.T) {
	ps := NewPriceState()
	now := time.Now()

	ethPool := newTestV2Pool("0xEE", 1)
	ps.UpdatePool(ethPool, now)

	arbPool := &V2Pool{Addr: common.HexToAddress("0xFF"), Token0: common.HexToAddress("0x01"), Token1: common.HexToAddress("0x02"), Reserve0: uint256.NewInt(1), Reserve1: uint256.NewInt(1), Chain: ChainArbitrum, Block: 1}
	ps.UpdatePool(arbPool, now)

	stalePool := newTestV2Pool("0x11", 1)
	ps.UpdatePool(stalePool, now.Add(-time.Hour))

	pools := ps.GetChainPools(ChainEthereum, time.Minute, now)
	addrs := make(map[common.Address]bool)
	for _, p := range pools {
		addrs[p.Pool.Address()] = true
	}
	assert.True(t, addrs[ethPool.Address()])
	assert.False(t, addrs[arbPool.Address()])
	assert.False(t, addrs[stalePool.Address()])
}

func TestPriceState_GetBestPrice_TiesByRecency(t *testing.T) {
	ps := NewPriceState()
	a := common.HexToAddress("0x01")
	b := common.HexToAddress("0x02")
	now := time.Now()

	older := NewPriceKey(ChainEthereum, a, b, DexV2)
	ps.UpdatePrice(older, PriceEntry{Value: 100, ObservedAt: now.Add(-time.Second)})
	newer := NewPriceKey(ChainEthereum, a, b, DexV3)
	ps.UpdatePrice(newer, PriceEntry{Value: 100, ObservedAt: now})

	best, ok := ps.GetBestPrice(ChainEthereum, a, b, time.Minute, now)
	require.True(t, ok)
	assert.Equal(t, now.Unix(), best.ObservedAt.Unix())
}

func TestPriceState_UpdateBlock_Monotonic(t *testing.T) {
	ps := NewPriceState()
	now := time.Now()

	assert.True(t, ps.UpdateBlock(ChainEthereum, 100, now))
	assert.True(t, ps.UpdateBlock(ChainEthereum, 101, now))
	assert.False(t, ps.UpdateBlock(ChainEthereum, 99, now))

	head, ok := ps.GetBlock(ChainEthereum)
	require.True(t, ok)
	assert.Equal(t, uint64(101), head)
}
