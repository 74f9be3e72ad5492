package arb

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lowlatency-labs/arb-core/pkg/logger"
	"github.com/lowlatency-labs/arb-core/pkg/redis"
	"github.com/shopspring/decimal"
)

// Facade is the Service Facade (C7): the thin request/stream boundary
// external consumers (the remote-procedure surface of spec.md §6) call
// through. All business logic lives in C1-C6; this type validates
// requests, delegates to Price State, the Scanner, and the Optimizer, and
// emits the audit events spec.md §4.7 requires. It never computes AMM math
// or opportunity scoring itself.
type Facade struct {
	state     *PriceState
	scanner   *Scanner
	audit     redis.Client
	log       *logger.Logger
	startedAt time.Time

	simulator  RouteSimulator
	submitter  TransactionSubmitter
	maxPriceAge time.Duration

	tradesMu sync.Mutex
	trades   map[string]*tradeRecord

	cfgMu sync.RWMutex
	cfg   map[string]string
}

type tradeRecord struct {
	TxHash string
	Status TradeStatus
}

// NewFacade builds a Facade over an already-constructed Price State and
// Scanner. audit may be nil, in which case audit events are logged but not
// cached (keeps the facade usable in tests without a Redis dependency).
func NewFacade(state *PriceState, scanner *Scanner, audit redis.Client, maxPriceAge time.Duration, log *logger.Logger) *Facade {
	return &Facade{
		state:       state,
		scanner:     scanner,
		audit:       audit,
		log:         log.Named("facade"),
		startedAt:   time.Now(),
		maxPriceAge: maxPriceAge,
		trades:      make(map[string]*tradeRecord),
		cfg:         make(map[string]string),
	}
}

// WithExecutor attaches the (out-of-scope) simulation and submission
// collaborators SimulateTrade/SimulateRoute/ExecuteTrade delegate to.
// Either may be left nil; calls against a nil collaborator return a benign
// "not available" error rather than panicking.
func (f *Facade) WithExecutor(sim RouteSimulator, sub TransactionSubmitter) *Facade {
	f.simulator = sim
	f.submitter = sub
	return f
}

// --- GetPrice / StreamPrices -----------------------------------------------

// PriceResponse mirrors spec.md §6's GetPrice output.
type PriceResponse struct {
	Success     bool
	PriceUSD    decimal.Decimal
	TimestampMs int64
	Source      string
	Error       string
}

// GetPrice returns the latest non-stale price of token against the chain's
// registered quote stablecoin (no USD oracle is in scope per spec.md's
// Non-goals; a stable-pegged quote token stands in, resolved via the token
// registry — see DESIGN.md's Open Question resolution).
func (f *Facade) GetPrice(chain Chain, token Address) PriceResponse {
	quote, ok := quoteTokenFor(chain)
	if !ok {
		return PriceResponse{Success: false, Error: "no quote token registered for chain"}
	}
	if token == quote {
		return PriceResponse{Success: true, PriceUSD: decimal.NewFromInt(1), TimestampMs: time.Now().UnixMilli(), Source: "facade"}
	}

	entry, found := f.state.GetBestPrice(chain, token, quote, f.maxPriceAge, time.Now())
	if !found {
		return PriceResponse{Success: false, Error: ErrPriceNotFound.Error()}
	}
	return PriceResponse{
		Success:     true,
		PriceUSD:    decimal.NewFromFloat(entry.Value),
		TimestampMs: entry.ObservedAt.UnixMilli(),
		Source:      "facade",
	}
}

// PriceUpdate is one element of the StreamPrices sequence.
type PriceUpdate struct {
	Token       Address
	Chain       Chain
	PriceUSD    decimal.Decimal
	TimestampMs int64
	Source      string
}

// StreamPrices polls GetPrice for every requested token at a 100ms cadence
// (spec.md §6) and publishes every successful sample on the returned
// channel, whether or not the price moved since the previous tick. The channel
// closes when ctx is cancelled; a slow consumer causes ticks to be dropped,
// never buffered unboundedly (spec.md §5's backpressure-by-drop rule).
func (f *Facade) StreamPrices(ctx context.Context, chain Chain, tokens []Address) <-chan PriceUpdate {
	out := make(chan PriceUpdate, len(tokens))
	go func() {
		defer close(out)
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				for _, tok := range tokens {
					resp := f.GetPrice(chain, tok)
					if !resp.Success {
						continue
					}
					update := PriceUpdate{Token: tok, Chain: chain, PriceUSD: resp.PriceUSD, TimestampMs: resp.TimestampMs, Source: resp.Source}
					select {
					case out <- update:
					case <-ctx.Done():
						return
					default:
						// consumer behind; drop this tick's sample for this token
					}
				}
			}
		}
	}()
	return out
}

// --- GetOpportunities / StreamOpportunities ---------------------------------

// OpportunitiesRequest mirrors spec.md §6's GetOpportunities input.
type OpportunitiesRequest struct {
	Chains        []Chain
	MinProfitUSD  float64
	MinConfidence float64
	Limit         int
}

// OpportunitiesResponse mirrors spec.md §6's GetOpportunities output.
type OpportunitiesResponse struct {
	Success         bool
	Opportunities   []Opportunity
	ScanDurationUs  int64
	Error           string
}

// GetOpportunities runs a single ad hoc scan (Scanner.ScanOnce) over the
// requested chains, applies the request's thresholds, and returns at most
// Limit survivors (capped at 100 per spec.md §4.7).
func (f *Facade) GetOpportunities(req OpportunitiesRequest) OpportunitiesResponse {
	limit := req.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	start := time.Now()
	opps := f.scanner.ScanOnce(req.Chains)
	elapsed := time.Since(start)

	filtered := make([]Opportunity, 0, len(opps))
	for _, o := range opps {
		if req.MinProfitUSD > 0 && o.ProfitUSD < req.MinProfitUSD {
			continue
		}
		if req.MinConfidence > 0 && o.Confidence < req.MinConfidence {
			continue
		}
		filtered = append(filtered, o)
		if len(filtered) >= limit {
			break
		}
	}

	return OpportunitiesResponse{
		Success:        true,
		Opportunities:  filtered,
		ScanDurationUs: elapsed.Microseconds(),
	}
}

// StreamOpportunities relays every Opportunity the background scanner
// publishes that matches filter, until ctx is cancelled or the scanner's
// Results() channel closes. Consumer backpressure is handled by dropping
// samples rather than blocking the scanner (spec.md §5).
func (f *Facade) StreamOpportunities(ctx context.Context, filter OpportunityFilter) <-chan Opportunity {
	out := make(chan Opportunity, 64)
	go func() {
		defer close(out)
		for {
			select {
			case <-ctx.Done():
				return
			case opp, ok := <-f.scanner.Results():
				if !ok {
					return
				}
				if !filter.Matches(opp) {
					continue
				}
				select {
				case out <- opp:
				case <-ctx.Done():
					return
				default:
				}
			}
		}
	}()
	return out
}

// --- Start/StopScanner -------------------------------------------------------

// StartScanner starts the background tick loop over the given chains.
// Idempotent: refuses with ErrScannerAlreadyRunning if already running,
// per spec.md §8's idempotent-start property.
func (f *Facade) StartScanner(ctx context.Context, chains []Chain) error {
	if len(chains) > 0 {
		f.scanner.SetEnabledChains(chains)
	}
	err := f.scanner.Start(ctx)
	f.emitAudit(ctx, "scanner_start", map[string]any{"chains": chainNames(chains), "ok": err == nil})
	return err
}

// StopScanner stops the background tick loop. Idempotent: refuses with
// ErrScannerNotRunning if not running.
func (f *Facade) StopScanner(ctx context.Context) error {
	err := f.scanner.Stop()
	f.emitAudit(ctx, "scanner_stop", map[string]any{"ok": err == nil})
	return err
}

// --- GetSystemStatus ----------------------------------------------------------

// ChainStatus reports per-chain freshness for GetSystemStatus.
type ChainStatus struct {
	Chain          Chain
	HeadBlock      uint64
	PoolCount      int
	FreshestAgeMs  int64
	ScannerRunning bool
}

// SystemStatus mirrors spec.md §6's GetSystemStatus output.
type SystemStatus struct {
	UptimeSeconds   int64
	ScannerRunning  bool
	ScannerStats    ScannerStats
	PriceStateStats Stats
	Chains          []ChainStatus
}

// SystemStatus reports uptime, scanner/price-state counters, and per-chain
// freshness for every chain the scanner is configured to cover.
func (f *Facade) SystemStatus() SystemStatus {
	now := time.Now()
	chains := f.scanner.EnabledChains()
	running := f.scanner.IsRunning()

	statuses := make([]ChainStatus, 0, len(chains))
	for _, c := range chains {
		pools := f.state.GetChainPools(c, 365*24*time.Hour, now)
		freshest := int64(-1)
		for _, p := range pools {
			age := p.Age(now).Milliseconds()
			if freshest < 0 || age < freshest {
				freshest = age
			}
		}
		head, _ := f.state.GetBlock(c)
		statuses = append(statuses, ChainStatus{
			Chain:          c,
			HeadBlock:      head,
			PoolCount:      len(pools),
			FreshestAgeMs:  freshest,
			ScannerRunning: running,
		})
	}

	return SystemStatus{
		UptimeSeconds:   int64(now.Sub(f.startedAt).Seconds()),
		ScannerRunning:  running,
		ScannerStats:    f.scanner.Stats(),
		PriceStateStats: f.state.Stats(),
		Chains:          statuses,
	}
}

// --- SimulateTrade / SimulateRoute -------------------------------------------

// SimulateRoute dry-runs route through the (out-of-scope) RouteSimulator.
// Returns ErrSimulationFailed-wrapped error if no simulator is attached.
func (f *Facade) SimulateRoute(ctx context.Context, route SwapRoute, amountIn *Amount256) (*Amount256, error) {
	if f.simulator == nil {
		return nil, fmt.Errorf("%w: no route simulator attached", ErrSimulationFailed)
	}
	return f.simulator.Simulate(ctx, route, amountIn)
}

// SimulateTrade simulates both legs of an Opportunity and returns the
// projected closing amount.
func (f *Facade) SimulateTrade(ctx context.Context, opp Opportunity) (*Amount256, error) {
	buyOut, err := f.SimulateRoute(ctx, opp.BuyRoute, opp.InputAmount)
	if err != nil {
		return nil, err
	}
	return f.SimulateRoute(ctx, opp.SellRoute, buyOut)
}

// --- ExecuteTrade / GetTradeStatus --------------------------------------------

// ExecuteRequest mirrors spec.md §6's ExecuteTrade input.
type ExecuteRequest struct {
	Chain        Chain
	Dex          DexKind
	DelegationID string
	AmountIn     *Amount256
	SignedTx     []byte
}

// ExecuteResponse mirrors spec.md §6's ExecuteTrade output.
type ExecuteResponse struct {
	Success bool
	TxHash  string
	TradeID string
	Status  TradeStatus
}

// ExecuteTrade submits a pre-signed transaction through the (out-of-scope)
// TransactionSubmitter, emitting the "trade execution request" and "trade
// execution result" audit events spec.md §4.7 requires around it.
func (f *Facade) ExecuteTrade(ctx context.Context, req ExecuteRequest) (ExecuteResponse, error) {
	tradeID := uuid.NewString()
	f.emitAudit(ctx, "trade_execution_request", map[string]any{
		"trade_id": tradeID, "chain": req.Chain.Name(), "dex": req.Dex.String(),
	})

	if f.submitter == nil {
		resp := ExecuteResponse{Success: false, TradeID: tradeID, Status: StatusFailed}
		f.emitAudit(ctx, "trade_execution_result", map[string]any{"trade_id": tradeID, "status": string(StatusFailed)})
		return resp, fmt.Errorf("%w: no transaction submitter attached", ErrSimulationFailed)
	}

	txHash, err := f.submitter.Submit(ctx, req.SignedTx)
	status := StatusSubmitted
	if err != nil {
		status = StatusFailed
	}

	f.tradesMu.Lock()
	f.trades[tradeID] = &tradeRecord{TxHash: txHash, Status: status}
	f.tradesMu.Unlock()

	f.emitAudit(ctx, "trade_execution_result", map[string]any{"trade_id": tradeID, "tx_hash": txHash, "status": string(status)})

	return ExecuteResponse{Success: err == nil, TxHash: txHash, TradeID: tradeID, Status: status}, err
}

// GetTradeStatus looks up a previously submitted trade's status, re-polling
// the submitter for its latest disposition when one is attached.
func (f *Facade) GetTradeStatus(ctx context.Context, tradeID string) (TradeStatus, error) {
	f.tradesMu.Lock()
	rec, ok := f.trades[tradeID]
	f.tradesMu.Unlock()
	if !ok {
		return "", fmt.Errorf("%w: trade %s", ErrTradeNotFound, tradeID)
	}
	if f.submitter == nil {
		return rec.Status, nil
	}
	status, err := f.submitter.Status(ctx, rec.TxHash)
	if err != nil {
		return rec.Status, nil
	}
	f.tradesMu.Lock()
	rec.Status = status
	f.tradesMu.Unlock()
	return status, nil
}

// --- UpdateConfig -------------------------------------------------------------

// UpdateConfig merges a partial set of key/value overrides into the
// facade's live config snapshot and emits the "configuration update" audit
// event. The concrete keys accepted (detection/execution tunables) are the
// boundary's contract; applying them to the running Scanner/Optimizer is
// the caller's (cmd/arb-core's) responsibility.
func (f *Facade) UpdateConfig(ctx context.Context, partial map[string]string) {
	f.cfgMu.Lock()
	for k, v := range partial {
		f.cfg[k] = v
	}
	f.cfgMu.Unlock()
	f.emitAudit(ctx, "configuration_update", map[string]any{"keys": keysOf(partial)})
}

// --- audit log ----------------------------------------------------------------

// emitAudit logs an audit event and, if a Redis client is attached, caches
// it under a bounded-lifetime key (no opportunity or pool state is ever
// persisted here, keeping spec.md's "no persistence of opportunities"
// non-goal intact).
func (f *Facade) emitAudit(ctx context.Context, eventType string, fields map[string]any) {
	f.log.Info("audit: " + eventType)

	if f.audit == nil {
		return
	}
	seq, err := f.audit.Incr(ctx, "arb:audit:seq")
	if err != nil {
		return
	}
	payload := map[string]any{
		"type":       eventType,
		"at_unix_ms": time.Now().UnixMilli(),
		"fields":     fields,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	key := fmt.Sprintf("arb:audit:%d", seq)
	_ = f.audit.Set(ctx, key, string(body), 24*time.Hour)
}

func keysOf(m map[string]string) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func chainNames(chains []Chain) []string {
	out := make([]string, len(chains))
	for i, c := range chains {
		out[i] = c.Name()
	}
	return out
}

// quoteTokenFor returns the chain's registered USDC address, standing in
// for a USD-pegged quote asset absent a price oracle (spec.md's Non-goals
// exclude a USD pricing oracle; see DESIGN.md).
func quoteTokenFor(chain Chain) (Address, bool) {
	m, ok := tokenRegistry[chain]
	if !ok {
		return Address{}, false
	}
	for addr, info := range m {
		if info.Symbol == "USDC" {
			return addr, true
		}
	}
	return Address{}, false
}
