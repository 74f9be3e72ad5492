package arb

import (
	"context"
	"sync"
	"time"

	"github.com/lowlatency-labs/arb-core/pkg/logger"
)

// ScannerConfig parameterizes the scan loop (spec.md §4.5).
type ScannerConfig struct {
	ScanInterval   time.Duration
	MaxPriceAge    time.Duration
	EnabledChains  []Chain
	ParallelChains bool
}

// ScannerStats is a point-in-time snapshot of the loop's counters, read
// through the same lock that guards them.
type ScannerStats struct {
	TicksRun       uint64
	LastTickAt     time.Time
	LastTickFound  int
	TotalFound     uint64
	TotalRejected  uint64
	LastTickErrors int
}

// GasOracle returns the chain's current gas price for the Optimizer to cost
// against. Left as an interface since the core spec scopes gas-price
// retrieval to the Executor/RPC boundary.
type GasOracle interface {
	GasPrice(chain Chain) (*GasPrice, bool)
}

// Scanner is the periodic driver (C5): on each tick it snapshots Price
// State per enabled chain, runs every configured Strategy against that
// snapshot, filters and optimizes the candidates, and emits survivors on
// Results(). Within one chain survivors arrive in (strategy_index,
// discovery_index) order; chains are emitted in (chain_index) order only
// when ParallelChains is off. With ParallelChains on, each chain publishes
// from its own goroutine and survivors of different chains may interleave.
//
// Scanner state and counters live behind a single reader-writer lock
// (spec.md §4.5); the loop itself listens on one cancellation signal and
// lets an in-flight tick run to completion before observing it.
type Scanner struct {
	cfg        ScannerConfig
	state      *PriceState
	strategies []Strategy
	filter     OpportunityFilter
	optimizer  *Optimizer
	gas        GasOracle
	log        *logger.Logger
	metrics    *Metrics

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
	stats   ScannerStats

	results chan Opportunity
}

// NewScanner builds a Scanner over the given strategies, in the order they
// will be queried on every tick.
func NewScanner(cfg ScannerConfig, state *PriceState, strategies []Strategy, filter OpportunityFilter, optimizer *Optimizer, gas GasOracle, log *logger.Logger) *Scanner {
	return &Scanner{
		cfg:        cfg,
		state:      state,
		strategies: strategies,
		filter:     filter,
		optimizer:  optimizer,
		gas:        gas,
		log:        log.Named("scanner"),
		results:    make(chan Opportunity, 256),
	}
}

// WithMetrics attaches the Prometheus collectors the scanner updates on
// every tick. Optional: a Scanner with no metrics attached behaves exactly
// as before, just without emitting samples.
func (s *Scanner) WithMetrics(m *Metrics) *Scanner {
	s.metrics = m
	return s
}

// EnabledChains reports the chains configured for the tick loop.
func (s *Scanner) EnabledChains() []Chain {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Chain, len(s.cfg.EnabledChains))
	copy(out, s.cfg.EnabledChains)
	return out
}

// SetEnabledChains replaces the chain set the next tick (or ScanOnce call)
// iterates. Used by the Service Facade's start_scanner(chains) contract.
func (s *Scanner) SetEnabledChains(chains []Chain) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cfg.EnabledChains = chains
}

// Results returns the channel of filtered, optimized opportunities.
func (s *Scanner) Results() <-chan Opportunity { return s.results }

// Start launches the tick loop in a new goroutine. Calling Start while
// already running is a no-op that reports ErrScannerAlreadyRunning — it
// does not replace the running loop or its cancellation (spec.md §8's
// idempotent-start property).
func (s *Scanner) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrScannerAlreadyRunning
	}
	runCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.running = true
	s.mu.Unlock()

	go s.loop(runCtx)
	return nil
}

// Stop signals the loop to exit at the next tick boundary. Calling Stop
// when not running is a no-op that reports ErrScannerNotRunning.
func (s *Scanner) Stop() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.running {
		return ErrScannerNotRunning
	}
	s.cancel()
	s.running = false
	return nil
}

// IsRunning reports whether the loop is currently active.
func (s *Scanner) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.running
}

// Stats returns a snapshot of the loop's counters.
func (s *Scanner) Stats() ScannerStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.stats
}

func (s *Scanner) loop(ctx context.Context) {
	interval := s.cfg.ScanInterval
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	defer close(s.results)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick runs one scan: snapshot -> strategies -> filter -> optimize ->
// publish, fanning chains out across goroutines when configured.
func (s *Scanner) tick() {
	start := time.Now()
	now := start
	found, rejected, errs := 0, 0, 0

	chains := s.EnabledChains()
	if s.cfg.ParallelChains && len(chains) > 1 {
		var wg sync.WaitGroup
		var mu sync.Mutex
		for _, chain := range chains {
			chain := chain
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, f, r := s.scanChain(chain, now, true)
				mu.Lock()
				found += f
				rejected += r
				mu.Unlock()
			}()
		}
		wg.Wait()
	} else {
		for _, chain := range chains {
			_, f, r := s.scanChain(chain, now, true)
			found += f
			rejected += r
		}
	}

	s.mu.Lock()
	s.stats.TicksRun++
	s.stats.LastTickAt = now
	s.stats.LastTickFound = found
	s.stats.TotalFound += uint64(found)
	s.stats.TotalRejected += uint64(rejected)
	s.stats.LastTickErrors = errs
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ScanDuration.Observe(time.Since(start).Seconds())
	}
}

// ScanOnce runs a single immediate scan across chains (or every enabled
// chain, if chains is empty) and returns the survivors synchronously,
// without touching the running tick loop's counters or its Results()
// channel. This backs the Service Facade's get_opportunities contract
// (spec.md §4.7), which asks for "a single scan result" rather than a
// sample of the background loop's stream.
func (s *Scanner) ScanOnce(chains []Chain) []Opportunity {
	if len(chains) == 0 {
		chains = s.EnabledChains()
	}
	now := time.Now()
	var out []Opportunity
	for _, chain := range chains {
		opps, _, _ := s.scanChain(chain, now, false)
		out = append(out, opps...)
	}
	return out
}

// scanChain runs every configured strategy, in order, against one chain's
// snapshot and returns the survivors, also sending them to Results() when
// publish is set. The (strategy_index, discovery_index) ordering within a
// chain falls directly out of s.strategies being iterated in its configured
// order, with each Strategy already returning its own candidates in
// deterministic order.
func (s *Scanner) scanChain(chain Chain, now time.Time, publish bool) (opps []Opportunity, found, rejected int) {
	pools := s.state.GetChainPools(chain, s.cfg.MaxPriceAge, now)
	if len(pools) == 0 {
		return nil, 0, 0
	}

	var gas *GasPrice
	if s.gas != nil {
		gas, _ = s.gas.GasPrice(chain)
	}

	for _, strat := range s.strategies {
		for _, opp := range strat.Find(chain, pools, now) {
			if !s.filter.Matches(opp) {
				rejected++
				continue
			}
			optimized, ok := s.optimizer.Optimize(opp, gas)
			if !ok {
				rejected++
				continue
			}
			found++
			opps = append(opps, optimized)
			if s.metrics != nil {
				s.metrics.OpportunitiesFound.WithLabelValues(chain.Name(), strat.Name()).Inc()
			}
			if !publish {
				continue
			}
			select {
			case s.results <- optimized:
			default:
				s.log.Warn("scanner results channel full, dropping opportunity")
			}
		}
	}
	return opps, found, rejected
}
