package arb

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
)

// Address is a 20-byte on-chain identity.
type Address = common.Address

// Amount256 is an unsigned 256-bit integer. All AMM arithmetic is carried
// out in this type; conversions to float64 happen only for display,
// ranking, and USD conversion at the Optimizer/Facade boundary.
type Amount256 = uint256.Int

// Pool is the tagged union of venue families the core prices. Each variant
// is a concrete struct rather than a shared interface with venue-specific
// methods: pool math dispatches on DexKind, and strategies frequently need
// to type-switch to exploit venue-specific structure (spec's "tagged
// variants over trait object" design choice).
type Pool interface {
	Address() Address
	ChainOf() Chain
	BlockNumber() uint64
	Kind() DexKind
	// Tokens returns the pool's two principal tokens in storage order
	// (token0, token1); for a StablePool these are the first two of its N
	// assets.
	Tokens() (Address, Address)
}

// V2Pool is a constant-product pool: invariant x*y=k, with a swap fee
// applied to the input leg.
type V2Pool struct {
	Addr            Address
	Token0, Token1  Address
	Reserve0        *Amount256
	Reserve1        *Amount256
	FeeBps          uint32 // in [0, 10000]
	Chain           Chain
	Block           uint64
}

func (p *V2Pool) Address() Address            { return p.Addr }
func (p *V2Pool) ChainOf() Chain              { return p.Chain }
func (p *V2Pool) BlockNumber() uint64         { return p.Block }
func (p *V2Pool) Kind() DexKind               { return DexV2 }
func (p *V2Pool) Tokens() (Address, Address)  { return p.Token0, p.Token1 }

// Tradeable reports whether both reserves are non-zero, per spec.md §3's
// V2Pool invariant.
func (p *V2Pool) Tradeable() bool {
	return p.Reserve0 != nil && p.Reserve1 != nil &&
		!p.Reserve0.IsZero() && !p.Reserve1.IsZero() && p.FeeBps <= 10000
}

// V3Pool is a concentrated-liquidity pool; price is encoded by
// sqrt_price_x96 rather than raw reserves.
type V3Pool struct {
	Addr         Address
	Token0       Address
	Token1       Address
	FeeMicro     uint32 // one of {100, 500, 3000, 10000}
	TickSpacing  int32
	Liquidity    *Amount256
	SqrtPriceX96 *Amount256
	Tick         int32
	Chain        Chain
	Block        uint64
}

func (p *V3Pool) Address() Address           { return p.Addr }
func (p *V3Pool) ChainOf() Chain             { return p.Chain }
func (p *V3Pool) BlockNumber() uint64        { return p.Block }
func (p *V3Pool) Kind() DexKind              { return DexV3 }
func (p *V3Pool) Tokens() (Address, Address) { return p.Token0, p.Token1 }

// StablePool is a low-slippage invariant for assets pegged near parity,
// parameterized by an amplification coefficient.
type StablePool struct {
	Addr     Address
	Tokens_  []Address
	Balances []*Amount256
	Amp      uint64
	FeeE10   uint64
	Chain    Chain
	Block    uint64
}

func (p *StablePool) Address() Address    { return p.Addr }
func (p *StablePool) ChainOf() Chain      { return p.Chain }
func (p *StablePool) BlockNumber() uint64 { return p.Block }
func (p *StablePool) Kind() DexKind       { return DexStable }
func (p *StablePool) Tokens() (Address, Address) {
	if len(p.Tokens_) < 2 {
		return Address{}, Address{}
	}
	return p.Tokens_[0], p.Tokens_[1]
}

// FeePercent returns fee_e10 / 1e10.
func (p *StablePool) FeePercent() float64 {
	return float64(p.FeeE10) / 1e10
}

// IsStablePool reports amp > 100, the amplification threshold the original
// system uses to distinguish a genuine stable-swap curve from a near-flat
// constant-product pool.
func (p *StablePool) IsStablePool() bool {
	return p.Amp > 100
}

// PoolEntry pairs a Pool with the monotonic instant it was observed, used
// by Price State for staleness and block-monotonicity decisions.
type PoolEntry struct {
	Pool       Pool
	ObservedAt time.Time
}

func (e PoolEntry) Age(now time.Time) time.Duration {
	return now.Sub(e.ObservedAt)
}

func (e PoolEntry) IsStale(now time.Time, maxAge time.Duration) bool {
	return e.Age(now) > maxAge
}
