package arb

import "context"

// The Executor sits outside this module's scope (spec.md's Non-goals
// exclude transaction construction, submission, and private-relay
// routing). These three interfaces are the seam a concrete execution
// client plugs into: zero logic, just the contract the Service Facade's
// SimulateTrade/SimulateRoute/ExecuteTrade calls depend on.

// TransactionBuilder turns a chosen route into a signed, submittable
// transaction. Left unimplemented here; a concrete chain client owns gas
// estimation, nonce management, and signing.
type TransactionBuilder interface {
	Build(ctx context.Context, route SwapRoute, expectedOut *Amount256) (signedTx []byte, err error)
}

// RouteSimulator dry-runs a route against current chain state without
// broadcasting, returning the amount it would actually realize.
type RouteSimulator interface {
	Simulate(ctx context.Context, route SwapRoute, amountIn *Amount256) (amountOut *Amount256, err error)
}

// TransactionSubmitter broadcasts a signed transaction and reports its
// eventual on-chain disposition.
type TransactionSubmitter interface {
	Submit(ctx context.Context, signedTx []byte) (txHash string, err error)
	Status(ctx context.Context, txHash string) (TradeStatus, error)
}
