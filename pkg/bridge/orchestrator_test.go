package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"path/filepath"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tron-bridge/pkg/notify"
	"tron-bridge/pkg/quote"
	"tron-bridge/pkg/sdk"
	"tron-bridge/pkg/types"
	"tron-bridge/pkg/wallet"
)

const (
	testAccount     = "0x1111111111111111111111111111111111111111"
	testTronAddress = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"
	testUSDT        = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	testUSDC        = "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"
)

type fakeSDK struct {
	catalogErr error
	onReceive  func()

	allowanceSufficient bool
	allowanceErr        error
	allowanceCalls      int

	approveCalls int
	sendCalls    int
	sendErr      error
	lastSend     sdk.SendParams
}

func newFakeSDK() *fakeSDK {
	return &fakeSDK{allowanceSufficient: true}
}

func (f *fakeSDK) ChainDetailsMap(context.Context) (map[types.ChainSymbol][]types.Token, error) {
	if f.catalogErr != nil {
		return nil, f.catalogErr
	}
	return map[types.ChainSymbol][]types.Token{
		types.ChainETH: {
			{Symbol: "USDT", Chain: types.ChainETH, TokenAddress: testUSDT, Decimals: 6, BridgeAddress: "0x2222222222222222222222222222222222222222"},
			{Symbol: "USDC", Chain: types.ChainETH, TokenAddress: testUSDC, Decimals: 6, BridgeAddress: "0x2222222222222222222222222222222222222222"},
			{Symbol: "DAI", Chain: types.ChainETH, TokenAddress: "0x3333333333333333333333333333333333333333", Decimals: 18},
		},
		types.ChainTRX: {
			{Symbol: "USDT", Chain: types.ChainTRX, TokenAddress: testTronAddress, Decimals: 6},
		},
	}, nil
}

func (f *fakeSDK) GetAmountToBeReceived(_ context.Context, amount string, _, _ types.Token) (string, error) {
	if f.onReceive != nil {
		f.onReceive()
	}
	return amount, nil
}

func (f *fakeSDK) GetGasFeeOptions(_ context.Context, _, _ types.Token, _ types.Messenger) (*types.GasFeeOptions, error) {
	return &types.GasFeeOptions{
		Native:     &types.FeeAmount{Float: "0.003", Int: "3000000000000000"},
		Stablecoin: &types.FeeAmount{Float: "4.2", Int: "4200000"},
	}, nil
}

func (f *fakeSDK) GetAverageTransferTime(context.Context, types.Token, types.Token, types.Messenger) (time.Duration, error) {
	return 4 * time.Minute, nil
}

func (f *fakeSDK) Bridge() sdk.Bridge { return f }

func (f *fakeSDK) CheckAllowance(_ context.Context, _ sdk.AllowanceParams) (bool, error) {
	f.allowanceCalls++
	return f.allowanceSufficient, f.allowanceErr
}

func (f *fakeSDK) RawTxBuilder() sdk.RawTxBuilder { return f }

func (f *fakeSDK) Approve(_ context.Context, params sdk.ApproveParams) (*sdk.RawTransaction, error) {
	f.approveCalls++
	return &sdk.RawTransaction{
		From:  params.Owner,
		To:    params.Token.TokenAddress,
		Data:  "0x095ea7b3",
		Value: "0",
	}, nil
}

func (f *fakeSDK) Send(_ context.Context, params sdk.SendParams) (*sdk.RawTransaction, error) {
	f.sendCalls++
	f.lastSend = params
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	return &sdk.RawTransaction{
		From:  params.FromAccountAddress,
		To:    params.SourceToken.BridgeAddress,
		Data:  "0xdeadbeef",
		Value: "3000000000000000",
	}, nil
}

type fakeProvider struct {
	balance   *big.Int
	callErr   error
	sendErr   error
	sendCalls int
	lastTx    wallet.TxObject

	accountsCh chan []string
	chainCh    chan string
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{
		balance:    big.NewInt(1_000_000_000), // 1000 tokens at 6 decimals
		accountsCh: make(chan []string, 1),
		chainCh:    make(chan string, 1),
	}
}

func (f *fakeProvider) Request(_ context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	switch method {
	case wallet.MethodCall:
		if f.callErr != nil {
			return nil, f.callErr
		}
		word := make([]byte, 32)
		f.balance.FillBytes(word)
		return json.Marshal(hexutil.Encode(word))
	case wallet.MethodSendTransaction:
		f.sendCalls++
		if len(params) > 0 {
			if tx, ok := params[0].(wallet.TxObject); ok {
				f.lastTx = tx
			}
		}
		if f.sendErr != nil {
			return nil, f.sendErr
		}
		return json.Marshal("0xabc123")
	default:
		return nil, fmt.Errorf("unexpected method: %s", method)
	}
}

func (f *fakeProvider) AccountsChanged() <-chan []string { return f.accountsCh }
func (f *fakeProvider) ChainChanged() <-chan string      { return f.chainCh }
func (f *fakeProvider) Close()                           {}

func newTestOrchestrator(t *testing.T, fake *fakeSDK, provider *fakeProvider) *Orchestrator {
	t.Helper()

	history, err := NewHistory(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)

	engine := quote.NewEngine(fake, notify.Discard{}, 0, 0)
	orch := New(Config{
		SDK:      fake,
		Provider: provider,
		Engine:   engine,
		Notifier: notify.Discard{},
		History:  history,
	})
	orch.SetAccount(testAccount)
	require.NoError(t, orch.LoadTokens(context.Background()))
	return orch
}

func fillRequest(orch *Orchestrator) {
	orch.SetSourceToken(testUSDT)
	orch.SetAmount("100")
	orch.SetDestinationAddress(testTronAddress)
}

func TestLoadTokensFiltersCatalog(t *testing.T) {
	orch := newTestOrchestrator(t, newFakeSDK(), newFakeProvider())

	tokens := orch.Tokens()
	require.Len(t, tokens.Source, 2)
	assert.Equal(t, "USDT", tokens.Source[0].Symbol)
	assert.Equal(t, "USDC", tokens.Source[1].Symbol)
	require.NotNil(t, tokens.Destination)
	assert.Equal(t, types.ChainTRX, tokens.Destination.Chain)

	// Default source token is preselected
	assert.Equal(t, testUSDT, orch.Request().SourceTokenAddress)
}

func TestLoadTokensFailure(t *testing.T) {
	fake := newFakeSDK()
	fake.catalogErr = fmt.Errorf("api down")

	history, err := NewHistory(filepath.Join(t.TempDir(), "history.json"))
	require.NoError(t, err)
	orch := New(Config{
		SDK:      fake,
		Provider: newFakeProvider(),
		Engine:   quote.NewEngine(fake, notify.Discard{}, 0, 0),
		History:  history,
	})

	assert.Error(t, orch.LoadTokens(context.Background()))
	assert.Empty(t, orch.Tokens().Source)
}

func TestSubmitHappyPath(t *testing.T) {
	fake := newFakeSDK()
	provider := newFakeProvider()
	orch := newTestOrchestrator(t, fake, provider)
	fillRequest(orch)

	q, err := orch.RefreshQuote(context.Background())
	require.NoError(t, err)
	require.NotNil(t, q)

	status, err := orch.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status)

	assert.Equal(t, types.StatusPending, status.Status)
	assert.Equal(t, "0xabc123", status.TxHash)
	assert.Equal(t, "100", status.Amount)
	assert.Equal(t, "USDT", status.SourceTokenSymbol)
	assert.Equal(t, testTronAddress, status.DestinationAddress)

	assert.Equal(t, 1, fake.sendCalls, "exactly one bridge transaction is built")
	assert.Equal(t, 1, provider.sendCalls, "exactly one transaction is sent")

	// Value is hex-normalized on the wire
	assert.Equal(t, "0x"+new(big.Int).SetInt64(3000000000000000).Text(16), provider.lastTx.Value)

	// Terminal outcome resets the session
	assert.Equal(t, StateIdle, orch.Flags().State)
	assert.Empty(t, orch.Request().Amount)
	assert.Nil(t, orch.Quote())
}

func TestSubmitRecordsHistory(t *testing.T) {
	fake := newFakeSDK()
	orch := newTestOrchestrator(t, fake, newFakeProvider())
	fillRequest(orch)

	_, err := orch.RefreshQuote(context.Background())
	require.NoError(t, err)
	_, err = orch.Submit(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, orch.history.Count())
	records := orch.history.List()
	assert.Equal(t, "0xabc123", records[0].TxHash)
}

func TestSubmitInvalidRequest(t *testing.T) {
	fake := newFakeSDK()
	orch := newTestOrchestrator(t, fake, newFakeProvider())
	orch.SetAmount("100")
	// No destination address

	status, err := orch.Submit(context.Background())
	assert.Nil(t, status)
	assert.Error(t, err)
	assert.Zero(t, fake.allowanceCalls)
	assert.Zero(t, fake.sendCalls)
}

func TestSubmitWithoutQuoteRecomputesOnce(t *testing.T) {
	fake := newFakeSDK()
	orch := newTestOrchestrator(t, fake, newFakeProvider())
	fillRequest(orch)

	// No RefreshQuote call: Submit recomputes synchronously
	status, err := orch.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status)
	assert.Equal(t, 1, fake.sendCalls)
}

func TestSubmitExpiredQuoteRecomputes(t *testing.T) {
	fake := newFakeSDK()
	orch := newTestOrchestrator(t, fake, newFakeProvider())
	fillRequest(orch)

	q, err := orch.RefreshQuote(context.Background())
	require.NoError(t, err)
	require.NotNil(t, q)

	// Age the stored quote past its deadline
	staleDeadline := time.Now().Unix() - 1
	orch.mu.Lock()
	orch.quote.Deadline = staleDeadline
	orch.mu.Unlock()

	status, err := orch.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status)

	// The transaction was built from the recomputed quote, not the stale one
	assert.Greater(t, fake.lastSend.Deadline, staleDeadline)
}

func TestSubmitPaymentMethodSwitchRequotes(t *testing.T) {
	fake := newFakeSDK()
	orch := newTestOrchestrator(t, fake, newFakeProvider())
	fillRequest(orch)

	_, err := orch.RefreshQuote(context.Background())
	require.NoError(t, err)

	// Switching the payment method drops the quote
	require.NoError(t, orch.SetPaymentMethod(types.FeeWithStablecoin))
	assert.Nil(t, orch.Quote())

	status, err := orch.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status)

	assert.Equal(t, types.FeeWithStablecoin, fake.lastSend.GasFeePaymentMethod)
	assert.Equal(t, "4200000", fake.lastSend.Fee, "stablecoin fee travels in smallest units")
}

func TestSubmitApprovalRequired(t *testing.T) {
	fake := newFakeSDK()
	fake.allowanceSufficient = false
	provider := newFakeProvider()
	orch := newTestOrchestrator(t, fake, provider)
	fillRequest(orch)

	_, err := orch.RefreshQuote(context.Background())
	require.NoError(t, err)

	status, err := orch.Submit(context.Background())
	assert.Nil(t, status)
	assert.ErrorIs(t, err, ErrApprovalRequired)

	assert.Zero(t, fake.sendCalls, "no transfer transaction before approval")
	assert.Zero(t, provider.sendCalls)

	flags := orch.Flags()
	assert.True(t, flags.NeedsApproval)
	assert.Equal(t, StateAwaitingApproval, flags.State)
	assert.False(t, flags.IsLoading)
}

func TestApproveFlow(t *testing.T) {
	fake := newFakeSDK()
	fake.allowanceSufficient = false
	provider := newFakeProvider()
	orch := newTestOrchestrator(t, fake, provider)
	fillRequest(orch)

	_, err := orch.RefreshQuote(context.Background())
	require.NoError(t, err)
	_, err = orch.Submit(context.Background())
	require.ErrorIs(t, err, ErrApprovalRequired)

	require.NoError(t, orch.Approve(context.Background()))
	assert.Equal(t, 1, fake.approveCalls)
	assert.Equal(t, 1, provider.sendCalls)

	// Approval resets the session
	flags := orch.Flags()
	assert.False(t, flags.NeedsApproval)
	assert.Equal(t, StateIdle, flags.State)
	assert.Nil(t, orch.Quote())
}

func TestApproveWithoutPendingApproval(t *testing.T) {
	orch := newTestOrchestrator(t, newFakeSDK(), newFakeProvider())
	assert.Error(t, orch.Approve(context.Background()))
}

func TestSubmitSendFailureResets(t *testing.T) {
	fake := newFakeSDK()
	provider := newFakeProvider()
	provider.sendErr = fmt.Errorf("execution reverted")
	orch := newTestOrchestrator(t, fake, provider)
	fillRequest(orch)

	_, err := orch.RefreshQuote(context.Background())
	require.NoError(t, err)

	status, err := orch.Submit(context.Background())
	assert.Nil(t, status)
	assert.Error(t, err)

	assert.Equal(t, StateIdle, orch.Flags().State)
	assert.Zero(t, orch.history.Count())
}

func TestSubmitLowBalanceWarnsOnly(t *testing.T) {
	fake := newFakeSDK()
	provider := newFakeProvider()
	provider.balance = big.NewInt(1_000_000) // 1 token, need 100
	orch := newTestOrchestrator(t, fake, provider)
	fillRequest(orch)

	_, err := orch.RefreshQuote(context.Background())
	require.NoError(t, err)

	status, err := orch.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status)
}

func TestSubmitBalanceReadFailureIgnored(t *testing.T) {
	fake := newFakeSDK()
	provider := newFakeProvider()
	provider.callErr = fmt.Errorf("rpc timeout")
	orch := newTestOrchestrator(t, fake, provider)
	fillRequest(orch)

	_, err := orch.RefreshQuote(context.Background())
	require.NoError(t, err)

	status, err := orch.Submit(context.Background())
	require.NoError(t, err)
	require.NotNil(t, status)
}

func TestStaleQuoteResultDiscarded(t *testing.T) {
	fake := newFakeSDK()
	orch := newTestOrchestrator(t, fake, newFakeProvider())
	fillRequest(orch)

	// An edit lands while the quote fetch is in flight
	fired := false
	fake.onReceive = func() {
		if !fired {
			fired = true
			orch.SetAmount("55")
		}
	}

	q, err := orch.RefreshQuote(context.Background())
	require.NoError(t, err)
	assert.Nil(t, q, "a result for a superseded request is discarded")
	assert.Nil(t, orch.Quote())
}

func TestSetPaymentMethodInvalidatesQuote(t *testing.T) {
	orch := newTestOrchestrator(t, newFakeSDK(), newFakeProvider())
	fillRequest(orch)

	_, err := orch.RefreshQuote(context.Background())
	require.NoError(t, err)
	require.NotNil(t, orch.Quote())

	require.NoError(t, orch.SetPaymentMethod(types.FeeWithStablecoin))
	assert.Nil(t, orch.Quote())
	assert.Nil(t, orch.GasFee())
	assert.Equal(t, types.FeeWithStablecoin, orch.Request().FeePaymentMethod)
}

func TestResetRestoresDefaults(t *testing.T) {
	orch := newTestOrchestrator(t, newFakeSDK(), newFakeProvider())
	fillRequest(orch)
	require.NoError(t, orch.SetPaymentMethod(types.FeeWithStablecoin))

	orch.Reset()

	req := orch.Request()
	assert.Equal(t, testUSDT, req.SourceTokenAddress)
	assert.Empty(t, req.Amount)
	assert.Empty(t, req.DestinationAddress)
	assert.Equal(t, types.FeeWithNativeCurrency, req.FeePaymentMethod)
	assert.Nil(t, orch.Quote())
}

func TestHexValue(t *testing.T) {
	tests := []struct {
		in   string
		out  string
		fail bool
	}{
		{in: "", out: "0x0"},
		{in: "0", out: "0x0"},
		{in: "3000000000000000", out: "0xaa87bee538000"},
		{in: "1", out: "0x1"},
		{in: "0x10", fail: true},
		{in: "abc", fail: true},
	}

	for _, tt := range tests {
		got, err := hexValue(tt.in)
		if tt.fail {
			assert.Error(t, err, tt.in)
			continue
		}
		require.NoError(t, err, tt.in)
		assert.Equal(t, tt.out, got, tt.in)
	}
}
