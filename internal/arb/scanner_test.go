package arb

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlatency-labs/arb-core/pkg/logger"
)

func newTestScanner(t *testing.T, state *PriceState) *Scanner {
	t.Helper()
	cfg := ScannerConfig{
		ScanInterval:  10 * time.Millisecond,
		MaxPriceAge:   time.Minute,
		EnabledChains: []Chain{ChainEthereum},
	}
	opt := NewOptimizer(uint256.NewInt(0), logger.New("test"))
	strat := NewCrossVenueStrategy(10, uint256.NewInt(1000))
	return NewScanner(cfg, state, []Strategy{strat}, OpportunityFilter{}, opt, nil, logger.New("test"))
}

func TestScanner_Start_IdempotentWhileRunning(t *testing.T) {
	s := newTestScanner(t, NewPriceState())
	ctx := context.Background()

	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	err := s.Start(ctx)
	assert.ErrorIs(t, err, ErrScannerAlreadyRunning)
}

func TestScanner_Stop_NoopWhenNotRunning(t *testing.T) {
	s := newTestScanner(t, NewPriceState())
	err := s.Stop()
	assert.ErrorIs(t, err, ErrScannerNotRunning)
}

func TestScanner_Start_Stop_RunningFlag(t *testing.T) {
	s := newTestScanner(t, NewPriceState())
	ctx := context.Background()

	assert.False(t, s.IsRunning())
	require.NoError(t, s.Start(ctx))
	assert.True(t, s.IsRunning())
	require.NoError(t, s.Stop())
	assert.False(t, s.IsRunning())
}

func TestScanner_ScanOnce_EmptyStateYieldsEmptyResult(t *testing.T) {
	s := newTestScanner(t, NewPriceState())
	opps := s.ScanOnce(nil)
	assert.Empty(t, opps)
}

func TestScanner_ScanOnce_DoesNotMutateRunningStats(t *testing.T) {
	ps := NewPriceState()
	usdc := common.HexToAddress("0x01")
	weth := common.HexToAddress("0x02")
	now := time.Now()
	ps.UpdatePool(&V2Pool{Addr: common.HexToAddress("0xAAAA"), Token0: usdc, Token1: weth, Reserve0: uint256.NewInt(1_000_000), Reserve1: uint256.NewInt(2_000_000_000), FeeBps: 30, Chain: ChainEthereum, Block: 1}, now)
	ps.UpdatePool(&V2Pool{Addr: common.HexToAddress("0xBBBB"), Token0: usdc, Token1: weth, Reserve0: uint256.NewInt(1_000_000), Reserve1: uint256.NewInt(2_002_000_000), FeeBps: 30, Chain: ChainEthereum, Block: 1}, now)

	s := newTestScanner(t, ps)
	before := s.Stats()
	opps := s.ScanOnce([]Chain{ChainEthereum})
	after := s.Stats()

	assert.NotEmpty(t, opps)
	assert.Equal(t, before.TicksRun, after.TicksRun, "ScanOnce must not touch the tick loop's counters")
}

func TestScanner_EnabledChains_SetAndGet(t *testing.T) {
	s := newTestScanner(t, NewPriceState())
	s.SetEnabledChains([]Chain{ChainArbitrum, ChainBase})
	assert.Equal(t, []Chain{ChainArbitrum, ChainBase}, s.EnabledChains())
}
