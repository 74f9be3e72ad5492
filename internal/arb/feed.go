package arb

import (
	"context"
	"time"

	"github.com/lowlatency-labs/arb-core/pkg/logger"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// FeedState is the connection lifecycle a Feed moves through.
type FeedState int

const (
	FeedDisconnected FeedState = iota
	FeedConnecting
	FeedSubscribed
	FeedStreaming
	FeedClosed
)

func (s FeedState) String() string {
	switch s {
	case FeedDisconnected:
		return "disconnected"
	case FeedConnecting:
		return "connecting"
	case FeedSubscribed:
		return "subscribed"
	case FeedStreaming:
		return "streaming"
	case FeedClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// PoolUpdate is the transport-agnostic event a Feed adapter decodes inbound
// messages into.
type PoolUpdate struct {
	Pool  Pool
	Price *PricePoint
	Block *BlockPoint
	Err   error
}

// PricePoint is a decoded price observation awaiting normalization into a
// PriceKey.
type PricePoint struct {
	Chain  Chain
	TokenX Address
	TokenY Address
	Dex    DexKind
	Value  float64
	Block  uint64
}

// BlockPoint is a decoded chain-head advancement.
type BlockPoint struct {
	Chain  Chain
	Number uint64
}

// Adapter is the minimal contract a transport-specific feed (websocket,
// JSON-RPC subscription, ...) implements. Connect/Subscribe/Close own the
// wire-level concerns the core spec explicitly leaves external; FeedManager
// owns the reconnect loop, backoff, and the apply-before-publish contract
// around them.
type Adapter interface {
	Chain() Chain
	Dex() DexKind
	Connect(ctx context.Context) error
	Subscribe(ctx context.Context) error
	// Next blocks until the next decoded update, ctx cancellation, or a
	// transport error. A returned error is treated as a Streaming->
	// Disconnected transition triggering reconnect.
	Next(ctx context.Context) (PoolUpdate, error)
	Close() error
}

// BackoffConfig bounds a Feed's reconnect attempts.
type BackoffConfig struct {
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	MaxReconnects int
	Exponential   bool
}

// DefaultBackoffConfig matches spec.md §4.3's stated defaults: 5s delay, 10
// max attempts.
func DefaultBackoffConfig() BackoffConfig {
	return BackoffConfig{
		InitialDelay:  5 * time.Second,
		MaxDelay:      60 * time.Second,
		MaxReconnects: 10,
		Exponential:   false,
	}
}

func (b BackoffConfig) delayFor(attempt int) time.Duration {
	if !b.Exponential {
		return b.InitialDelay
	}
	d := b.InitialDelay
	for i := 0; i < attempt; i++ {
		d *= 2
		if d >= b.MaxDelay {
			return b.MaxDelay
		}
	}
	return d
}

// FeedManager drives one Adapter's connect/subscribe/stream/reconnect
// lifecycle and applies every decoded update to PriceState before
// publishing it on its outbound channel, so downstream consumers never
// observe an update more recent than the state (spec.md §4.3's "Apply
// before publish" contract).
type FeedManager struct {
	adapter Adapter
	state   *PriceState
	backoff BackoffConfig
	log     *logger.Logger
	metrics *Metrics
	limiter *rate.Limiter

	updates chan PoolUpdate
	done    chan struct{}

	currentState FeedState
}

// NewFeedManager constructs a manager for one adapter.
func NewFeedManager(adapter Adapter, state *PriceState, backoff BackoffConfig, log *logger.Logger) *FeedManager {
	return &FeedManager{
		adapter: adapter,
		state:   state,
		backoff: backoff,
		log:     log.Named("feed"),
		updates: make(chan PoolUpdate, 256),
		done:    make(chan struct{}),
	}
}

// WithRateLimiter attaches a token-bucket limiter that bounds how often this
// feed may attempt a reconnect, independent of and in addition to the fixed
// or exponential delay BackoffConfig already imposes. Shared across several
// FeedManagers, the same limiter caps the aggregate reconnect rate a single
// upstream RPC endpoint sees after a shared network blip. Optional: a nil
// limiter imposes no extra bound.
func (fm *FeedManager) WithRateLimiter(l *rate.Limiter) *FeedManager {
	fm.limiter = l
	return fm
}

// WithMetrics attaches the Prometheus collector the manager increments on
// every reconnect attempt. Optional.
func (fm *FeedManager) WithMetrics(m *Metrics) *FeedManager {
	fm.metrics = m
	return fm
}

func (fm *FeedManager) recordReconnect() {
	if fm.metrics != nil {
		fm.metrics.FeedReconnects.WithLabelValues(fm.adapter.Chain().Name(), fm.adapter.Dex().String()).Inc()
	}
}

// Updates returns the channel of applied updates. Closed once the feed
// reaches a terminal state.
func (fm *FeedManager) Updates() <-chan PoolUpdate { return fm.updates }

// State returns the feed's current lifecycle state.
func (fm *FeedManager) State() FeedState { return fm.currentState }

// Run drives the feed until ctx is cancelled (cooperative shutdown) or the
// reconnect budget is exhausted (terminal failure).
func (fm *FeedManager) Run(ctx context.Context) error {
	defer close(fm.updates)

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			fm.currentState = FeedClosed
			return nil
		default:
		}

		fm.currentState = FeedConnecting
		if err := fm.adapter.Connect(ctx); err != nil {
			attempt++
			if attempt > fm.backoff.MaxReconnects {
				fm.currentState = FeedClosed
				return &reconnectExhaustedError{chain: fm.adapter.Chain(), dex: fm.adapter.Dex(), cause: err}
			}
			fm.recordReconnect()
			fm.log.Warn("feed connect failed, backing off",
				zap.Int("attempt", attempt))
			if !fm.sleep(ctx, fm.backoff.delayFor(attempt)) {
				fm.currentState = FeedClosed
				return nil
			}
			continue
		}

		if err := fm.adapter.Subscribe(ctx); err != nil {
			_ = fm.adapter.Close()
			attempt++
			if attempt > fm.backoff.MaxReconnects {
				fm.currentState = FeedClosed
				return &reconnectExhaustedError{chain: fm.adapter.Chain(), dex: fm.adapter.Dex(), cause: err}
			}
			fm.recordReconnect()
			if !fm.sleep(ctx, fm.backoff.delayFor(attempt)) {
				fm.currentState = FeedClosed
				return nil
			}
			continue
		}

		fm.currentState = FeedSubscribed
		attempt = 0
		streamErr := fm.stream(ctx)
		_ = fm.adapter.Close()
		if streamErr == nil {
			fm.currentState = FeedClosed
			return nil
		}

		fm.currentState = FeedDisconnected
		attempt++
		if attempt > fm.backoff.MaxReconnects {
			fm.currentState = FeedClosed
			return &reconnectExhaustedError{chain: fm.adapter.Chain(), dex: fm.adapter.Dex(), cause: streamErr}
		}
		fm.recordReconnect()
		if !fm.sleep(ctx, fm.backoff.delayFor(attempt)) {
			fm.currentState = FeedClosed
			return nil
		}
	}
}

// stream reads decoded updates until ctx is cancelled or Next errors.
func (fm *FeedManager) stream(ctx context.Context) error {
	fm.currentState = FeedStreaming
	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		update, err := fm.adapter.Next(ctx)
		if err != nil {
			return err
		}
		if update.Err != nil {
			fm.log.Warn("feed decode error, dropping event")
			continue
		}

		fm.apply(update)

		select {
		case fm.updates <- update:
		case <-ctx.Done():
			return nil
		}
	}
}

func (fm *FeedManager) apply(update PoolUpdate) {
	now := time.Now()
	if update.Pool != nil {
		fm.state.UpdatePool(update.Pool, now)
	}
	if update.Price != nil {
		key := NewPriceKey(update.Price.Chain, update.Price.TokenX, update.Price.TokenY, update.Price.Dex)
		fm.state.UpdatePrice(key, PriceEntry{Value: update.Price.Value, Block: update.Price.Block, ObservedAt: now})
	}
	if update.Block != nil {
		fm.state.UpdateBlock(update.Block.Chain, update.Block.Number, now)
	}
}

func (fm *FeedManager) sleep(ctx context.Context, d time.Duration) bool {
	if fm.limiter != nil {
		if err := fm.limiter.Wait(ctx); err != nil {
			return false
		}
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

type reconnectExhaustedError struct {
	chain Chain
	dex   DexKind
	cause error
}

func (e *reconnectExhaustedError) Error() string {
	return "feed reconnect budget exhausted for " + e.chain.String() + "/" + e.dex.String()
}

func (e *reconnectExhaustedError) Unwrap() error {
	return ErrReconnectBudget
}
