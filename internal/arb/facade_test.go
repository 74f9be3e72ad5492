package arb

import (
	"context"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lowlatency-labs/arb-core/pkg/logger"
)

type fakeSimulator struct {
	out *Amount256
	err error
}

func (f *fakeSimulator) Simulate(ctx context.Context, route SwapRoute, amountIn *Amount256) (*Amount256, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.out, nil
}

type fakeSubmitter struct {
	txHash string
	status TradeStatus
	err    error
}

func (f *fakeSubmitter) Submit(ctx context.Context, signedTx []byte) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.txHash, nil
}

func (f *fakeSubmitter) Status(ctx context.Context, txHash string) (TradeStatus, error) {
	return f.status, nil
}

func newTestFacade(t *testing.T) *Facade {
	t.Helper()
	state := NewPriceState()
	scanner := newTestScanner(t, state)
	return NewFacade(state, scanner, nil, time.Minute, logger.New("test"))
}

func TestFacade_GetPrice_QuoteTokenIsAlwaysOne(t *testing.T) {
	f := newTestFacade(t)
	usdc, ok := quoteTokenFor(ChainEthereum)
	require.True(t, ok)

	resp := f.GetPrice(ChainEthereum, usdc)
	assert.True(t, resp.Success)
	assert.True(t, resp.PriceUSD.Equal(decimal.NewFromInt(1)))
}

func TestFacade_GetPrice_NotFoundWhenNoObservation(t *testing.T) {
	f := newTestFacade(t)
	weth := common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")

	resp := f.GetPrice(ChainEthereum, weth)
	assert.False(t, resp.Success)
	assert.Equal(t, ErrPriceNotFound.Error(), resp.Error)
}

func TestFacade_GetPrice_UnconfiguredChain(t *testing.T) {
	f := newTestFacade(t)
	resp := f.GetPrice(Chain(99), common.HexToAddress("0x01"))
	assert.False(t, resp.Success)
}

func TestFacade_GetOpportunities_CapsLimitAt100(t *testing.T) {
	f := newTestFacade(t)
	resp := f.GetOpportunities(OpportunitiesRequest{Limit: 500})
	assert.True(t, resp.Success)
	assert.True(t, len(resp.Opportunities) <= 100)
}

func TestFacade_StartStopScanner_Idempotent(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()

	require.NoError(t, f.StartScanner(ctx, []Chain{ChainEthereum}))
	assert.ErrorIs(t, f.StartScanner(ctx, nil), ErrScannerAlreadyRunning)

	require.NoError(t, f.StopScanner(ctx))
	assert.ErrorIs(t, f.StopScanner(ctx), ErrScannerNotRunning)
}

func TestFacade_SystemStatus_ReportsChainsAndUptime(t *testing.T) {
	f := newTestFacade(t)
	ctx := context.Background()
	require.NoError(t, f.StartScanner(ctx, []Chain{ChainEthereum}))
	defer f.StopScanner(ctx)

	status := f.SystemStatus()
	assert.True(t, status.ScannerRunning)
	assert.True(t, status.UptimeSeconds >= 0)
	require.Len(t, status.Chains, 1)
	assert.Equal(t, ChainEthereum, status.Chains[0].Chain)
}

func TestFacade_SimulateRoute_NoSimulatorAttached(t *testing.T) {
	f := newTestFacade(t)
	_, err := f.SimulateRoute(context.Background(), SwapRoute{}, uint256.NewInt(1))
	assert.ErrorIs(t, err, ErrSimulationFailed)
}

func TestFacade_SimulateTrade_ChainsBothLegsThroughSimulator(t *testing.T) {
	f := newTestFacade(t).WithExecutor(&fakeSimulator{out: uint256.NewInt(42)}, nil)
	out, err := f.SimulateTrade(context.Background(), Opportunity{
		BuyRoute:    SwapRoute{Steps: []SwapStep{{}}},
		SellRoute:   SwapRoute{Steps: []SwapStep{{}}},
		InputAmount: uint256.NewInt(100),
	})
	require.NoError(t, err)
	assert.Equal(t, uint256.NewInt(42).String(), out.String())
}

func TestFacade_ExecuteTrade_NoSubmitterAttachedReportsFailed(t *testing.T) {
	f := newTestFacade(t)
	resp, err := f.ExecuteTrade(context.Background(), ExecuteRequest{Chain: ChainEthereum, Dex: DexV2})
	assert.Error(t, err)
	assert.False(t, resp.Success)
	assert.Equal(t, StatusFailed, resp.Status)
	assert.NotEmpty(t, resp.TradeID)
}

func TestFacade_ExecuteTrade_ThenGetTradeStatus(t *testing.T) {
	f := newTestFacade(t).WithExecutor(nil, &fakeSubmitter{txHash: "0xdead", status: StatusIncluded})

	resp, err := f.ExecuteTrade(context.Background(), ExecuteRequest{Chain: ChainEthereum, Dex: DexV2})
	require.NoError(t, err)
	assert.True(t, resp.Success)
	assert.Equal(t, StatusSubmitted, resp.Status)

	status, err := f.GetTradeStatus(context.Background(), resp.TradeID)
	require.NoError(t, err)
	assert.Equal(t, StatusIncluded, status)
}

func TestFacade_GetTradeStatus_UnknownTradeID(t *testing.T) {
	f := newTestFacade(t)
	_, err := f.GetTradeStatus(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrTradeNotFound)
}

func TestFacade_UpdateConfig_NilAuditClientIsSafe(t *testing.T) {
	f := newTestFacade(t)
	assert.NotPanics(t, func() {
		f.UpdateConfig(context.Background(), map[string]string{"min_spread_bps": "20"})
	})
}
