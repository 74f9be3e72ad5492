package arb

import "errors"

// ErrorKind groups errors into the abstract kinds the core distinguishes:
// configuration failures are fatal at startup, transport errors are
// recovered locally with bounded retry, decode errors are logged and the
// event dropped, state/arithmetic/opportunity errors
// are benign and reported without retry, execution errors are downstream of
// this module's scope but still carried on the response path.
type ErrorKind string

const (
	KindConfiguration ErrorKind = "configuration"
	KindTransport     ErrorKind = "transport"
	KindDecode        ErrorKind = "decode"
	KindState         ErrorKind = "state"
	KindArithmetic    ErrorKind = "arithmetic"
	KindOpportunity   ErrorKind = "opportunity"
	KindExecution     ErrorKind = "execution"
)

// Sentinel errors, grouped by ErrorKind. Use errors.Is against these; wrap
// with fmt.Errorf("...: %w", ErrX) to attach context without losing identity.
var (
	// Configuration
	ErrChainNotConfigured = errors.New("chain not configured")
	ErrInvalidConfig      = errors.New("contradictory or malformed configuration")

	// Transport
	ErrConnectionFailed = errors.New("feed connection failed")
	ErrSubscribeFailed  = errors.New("feed subscription failed")
	ErrReconnectBudget  = errors.New("feed reconnect budget exhausted")

	// Decode
	ErrDecodeFailed = errors.New("could not decode inbound event")

	// State
	ErrPoolNotFound         = errors.New("pool not found")
	ErrPriceNotFound        = errors.New("price not found")
	ErrStalePrice           = errors.New("price observation is stale")
	ErrInsufficientLiquidity = errors.New("insufficient liquidity")

	// Opportunity
	ErrFilteredOut       = errors.New("opportunity filtered out")
	ErrRejectedByOptimizer = errors.New("opportunity rejected by optimizer")

	// Execution (mostly carried back from the executor; the facade itself
	// returns ErrSimulationFailed when no simulator or submitter is attached)
	ErrSimulationFailed = errors.New("trade simulation failed")
	ErrReverted         = errors.New("transaction reverted")
	ErrFrontrun         = errors.New("transaction frontrun")

	// Facade control
	ErrScannerAlreadyRunning = errors.New("scanner already running")
	ErrScannerNotRunning     = errors.New("scanner not running")
	ErrTradeNotFound         = errors.New("trade not found")
)

// StaleError carries the age/threshold pair for a stale-price rejection so
// callers can report both without parsing a message string.
type StaleError struct {
	AgeMs int64
	MaxMs int64
}

func (e *StaleError) Error() string {
	return "stale observation"
}

func (e *StaleError) Unwrap() error {
	return ErrStalePrice
}
