package arb

import (
	"hash/fnv"
	"sync"
	"sync/atomic"
	"time"
)

const priceStateShardCount = 32

type poolKey struct {
	Chain Chain
	Addr  Address
}

type poolShard struct {
	mu   sync.RWMutex
	data map[poolKey]PoolEntry
}

type priceShard struct {
	mu   sync.RWMutex
	data map[PriceKey]PriceEntry
}

// PriceState is the sharded concurrent index of pool and price observations
// that feeds write into and scanners read from (C2). It exposes three
// indexes — pools, prices, and per-chain block heads — plus a monotonic
// update counter and a last-update instant. Pool and price operations lock
// only the shard they touch, so a reader on one shard never waits on a
// writer of another; every write also takes a brief shared lock to record
// the last-update instant, and block heads sit behind one lock of their own.
type PriceState struct {
	poolShards  [priceStateShardCount]*poolShard
	priceShards [priceStateShardCount]*priceShard

	headsMu sync.RWMutex
	heads   map[Chain]uint64

	updateCount uint64 // atomic

	lastUpdateMu sync.RWMutex
	lastUpdate   time.Time

	metrics *Metrics
}

// WithMetrics attaches the Prometheus collectors Price State updates: the
// update counter on every write, and the pool-count gauge whenever Stats is
// called. Optional; a nil-metrics PriceState behaves identically, just
// without emitting samples.
func (ps *PriceState) WithMetrics(m *Metrics) *PriceState {
	ps.metrics = m
	return ps
}

// NewPriceState constructs an empty PriceState.
func NewPriceState() *PriceState {
	ps := &PriceState{
		heads: make(map[Chain]uint64),
	}
	for i := range ps.poolShards {
		ps.poolShards[i] = &poolShard{data: make(map[poolKey]PoolEntry)}
	}
	for i := range ps.priceShards {
		ps.priceShards[i] = &priceShard{data: make(map[PriceKey]PriceEntry)}
	}
	return ps
}

func shardIndex(b []byte) uint32 {
	h := fnv.New32a()
	_, _ = h.Write(b)
	return h.Sum32() % priceStateShardCount
}

func (ps *PriceState) poolShardFor(k poolKey) *poolShard {
	buf := append([]byte{byte(k.Chain)}, k.Addr.Bytes()...)
	return ps.poolShards[shardIndex(buf)]
}

func (ps *PriceState) priceShardFor(k PriceKey) *priceShard {
	buf := make([]byte, 0, 42)
	buf = append(buf, byte(k.Chain), byte(k.Dex))
	buf = append(buf, k.TokenA.Bytes()...)
	buf = append(buf, k.TokenB.Bytes()...)
	return ps.priceShards[shardIndex(buf)]
}

func (ps *PriceState) touch(now time.Time) {
	atomic.AddUint64(&ps.updateCount, 1)
	ps.lastUpdateMu.Lock()
	ps.lastUpdate = now
	ps.lastUpdateMu.Unlock()
	if ps.metrics != nil {
		ps.metrics.PriceUpdateTotal.Inc()
	}
}

// UpdatePool upserts a pool observation. The incoming pool is dropped if a
// newer block for the same (chain, address) is already stored; on an equal
// block the incoming (later-processed) entry replaces the stored one,
// matching spec.md §3's block-monotonicity rule.
func (ps *PriceState) UpdatePool(pool Pool, now time.Time) bool {
	key := poolKey{Chain: pool.ChainOf(), Addr: pool.Address()}
	shard := ps.poolShardFor(key)

	shard.mu.Lock()
	existing, ok := shard.data[key]
	if ok && existing.Pool.BlockNumber() > pool.BlockNumber() {
		shard.mu.Unlock()
		return false
	}
	shard.data[key] = PoolEntry{Pool: pool, ObservedAt: now}
	shard.mu.Unlock()

	ps.touch(now)
	return true
}

// UpdatePrice upserts a price observation, keyed by its normalized
// PriceKey.
func (ps *PriceState) UpdatePrice(key PriceKey, entry PriceEntry) {
	shard := ps.priceShardFor(key)
	shard.mu.Lock()
	shard.data[key] = entry
	shard.mu.Unlock()

	ps.touch(entry.ObservedAt)
}

// UpdateBlock sets the chain's head block number if n is not behind the
// current value.
func (ps *PriceState) UpdateBlock(chain Chain, n uint64, now time.Time) bool {
	ps.headsMu.Lock()
	defer ps.headsMu.Unlock()
	if cur, ok := ps.heads[chain]; ok && cur > n {
		return false
	}
	ps.heads[chain] = n
	ps.touch(now)
	return true
}

// GetBlock returns the chain's latest known block.
func (ps *PriceState) GetBlock(chain Chain) (uint64, bool) {
	ps.headsMu.RLock()
	defer ps.headsMu.RUnlock()
	n, ok := ps.heads[chain]
	return n, ok
}

// GetPool returns a snapshot of the stored pool entry for (chain, addr).
func (ps *PriceState) GetPool(chain Chain, addr Address) (PoolEntry, bool) {
	key := poolKey{Chain: chain, Addr: addr}
	shard := ps.poolShardFor(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	e, ok := shard.data[key]
	return e, ok
}

// GetPrice returns a snapshot of the stored price entry for key.
func (ps *PriceState) GetPrice(key PriceKey) (PriceEntry, bool) {
	shard := ps.priceShardFor(key)
	shard.mu.RLock()
	defer shard.mu.RUnlock()
	e, ok := shard.data[key]
	return e, ok
}

// GetBestPrice scans every DexKind variant of the canonical pair, ignores
// entries older than maxAge, and returns the maximum-value entry; ties
// break by the most recent observation.
func (ps *PriceState) GetBestPrice(chain Chain, a, b Address, maxAge time.Duration, now time.Time) (PriceEntry, bool) {
	var best PriceEntry
	found := false
	for _, dex := range []DexKind{DexV2, DexV3, DexStable, DexExternal} {
		key := NewPriceKey(chain, a, b, dex)
		entry, ok := ps.GetPrice(key)
		if !ok || entry.IsStale(now, maxAge) {
			continue
		}
		if !found {
			best, found = entry, true
			continue
		}
		if entry.Value > best.Value ||
			(entry.Value == best.Value && entry.ObservedAt.After(best.ObservedAt)) {
			best = entry
		}
	}
	return best, found
}

// GetChainPools returns a snapshot of every pool entry on chain whose
// observed_at satisfies the freshness predicate at iteration time.
func (ps *PriceState) GetChainPools(chain Chain, maxAge time.Duration, now time.Time) []PoolEntry {
	out := make([]PoolEntry, 0, 64)
	for _, shard := range ps.poolShards {
		shard.mu.RLock()
		for k, e := range shard.data {
			if k.Chain == chain && !e.IsStale(now, maxAge) {
				out = append(out, e)
			}
		}
		shard.mu.RUnlock()
	}
	return out
}

// GetChainPrices returns a snapshot of every price entry on chain that is
// currently fresh.
func (ps *PriceState) GetChainPrices(chain Chain, maxAge time.Duration, now time.Time) []PriceEntry {
	out := make([]PriceEntry, 0, 64)
	for _, shard := range ps.priceShards {
		shard.mu.RLock()
		for k, e := range shard.data {
			if k.Chain == chain && !e.IsStale(now, maxAge) {
				out = append(out, e)
			}
		}
		shard.mu.RUnlock()
	}
	return out
}

// Cleanup removes every pool and price entry older than maxAge. Safe to run
// concurrently with updates and reads: each shard is locked only for the
// duration of its own sweep.
func (ps *PriceState) Cleanup(maxAge time.Duration, now time.Time) int {
	removed := 0
	for _, shard := range ps.poolShards {
		shard.mu.Lock()
		for k, e := range shard.data {
			if e.IsStale(now, maxAge) {
				delete(shard.data, k)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	for _, shard := range ps.priceShards {
		shard.mu.Lock()
		for k, e := range shard.data {
			if e.IsStale(now, maxAge) {
				delete(shard.data, k)
				removed++
			}
		}
		shard.mu.Unlock()
	}
	return removed
}

// Stats is a point-in-time summary of Price State's size and activity.
type Stats struct {
	UpdateCount uint64
	LastUpdate  time.Time
	PoolCount   int
	PriceCount  int
}

// Stats returns a snapshot of the current counters and sizes.
func (ps *PriceState) Stats() Stats {
	pools := 0
	for _, shard := range ps.poolShards {
		shard.mu.RLock()
		pools += len(shard.data)
		shard.mu.RUnlock()
	}
	prices := 0
	for _, shard := range ps.priceShards {
		shard.mu.RLock()
		prices += len(shard.data)
		shard.mu.RUnlock()
	}
	ps.lastUpdateMu.RLock()
	last := ps.lastUpdate
	ps.lastUpdateMu.RUnlock()

	if ps.metrics != nil {
		ps.metrics.PoolCount.Set(float64(pools))
	}

	return Stats{
		UpdateCount: atomic.LoadUint64(&ps.updateCount),
		LastUpdate:  last,
		PoolCount:   pools,
		PriceCount:  prices,
	}
}
