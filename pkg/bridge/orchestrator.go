package bridge

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"

	"tron-bridge/pkg/notify"
	"tron-bridge/pkg/quote"
	"tron-bridge/pkg/sdk"
	"tron-bridge/pkg/types"
	"tron-bridge/pkg/wallet"
)

const defaultSendTimeout = 60 * time.Second

// Config wires the orchestrator's collaborators
type Config struct {
	SDK      sdk.SDK
	Provider wallet.Provider
	Engine   *quote.Engine
	Notifier notify.Notifier
	History  *History
	OnStatus func(types.TransferStatus)
	// SendTimeout bounds eth_sendTransaction calls
	SendTimeout time.Duration
}

// Orchestrator drives the approval-then-transfer protocol. It owns the
// session state: the request, the current quote, the gas fee mirror, and
// the approval flag live behind one mutex with explicit Invalidate/Reset
// operations. Every stage re-validates its preconditions after resuming
// from a suspension point instead of trusting state captured before it.
type Orchestrator struct {
	sdk         sdk.SDK
	provider    wallet.Provider
	engine      *quote.Engine
	notifier    notify.Notifier
	history     *History
	onStatus    func(types.TransferStatus)
	sendTimeout time.Duration
	clock       func() time.Time

	mu              sync.Mutex
	tokens          types.TokenSet
	account         string
	req             types.TransferRequest
	quote           *types.Quote
	gasFee          *types.GasFeeOptions
	needsApproval   bool
	state           State
	seq             uint64
	isLoadingTokens bool
	isGettingQuote  bool
	isApproving     bool
	isLoading       bool
}

// New creates an orchestrator
func New(cfg Config) *Orchestrator {
	sendTimeout := cfg.SendTimeout
	if sendTimeout <= 0 {
		sendTimeout = defaultSendTimeout
	}
	notifier := cfg.Notifier
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &Orchestrator{
		sdk:         cfg.SDK,
		provider:    cfg.Provider,
		engine:      cfg.Engine,
		notifier:    notifier,
		history:     cfg.History,
		onStatus:    cfg.OnStatus,
		sendTimeout: sendTimeout,
		clock:       time.Now,
		state:       StateIdle,
		req:         types.TransferRequest{FeePaymentMethod: types.FeeWithNativeCurrency},
	}
}

// LoadTokens fetches the chain catalog and filters it down to the
// product's token set: USDC/USDT on Ethereum, first USDT on Tron.
// Loaded once per session; tokens are immutable afterwards.
func (o *Orchestrator) LoadTokens(ctx context.Context) error {
	o.mu.Lock()
	o.isLoadingTokens = true
	o.mu.Unlock()

	catalog, err := o.sdk.ChainDetailsMap(ctx)

	o.mu.Lock()
	defer o.mu.Unlock()
	o.isLoadingTokens = false

	if err != nil {
		fmt.Printf("[Bridge] failed to load tokens: %v\n", err)
		o.tokens = types.TokenSet{}
		o.notifier.Notify(notify.Notification{
			Title:   "Error",
			Message: "Failed to load available tokens",
			Level:   notify.LevelError,
		})
		return fmt.Errorf("failed to load available tokens: %w", err)
	}

	var set types.TokenSet
	for _, token := range catalog[types.ChainETH] {
		if token.Symbol == "USDC" || token.Symbol == "USDT" {
			set.Source = append(set.Source, token)
		}
	}
	for _, token := range catalog[types.ChainTRX] {
		if token.Symbol == "USDT" {
			destination := token
			set.Destination = &destination
			break
		}
	}

	o.tokens = set
	if o.req.SourceTokenAddress == "" && len(set.Source) > 0 {
		o.req.SourceTokenAddress = set.Source[0].TokenAddress
	}
	return nil
}

// Tokens returns the loaded token set
func (o *Orchestrator) Tokens() types.TokenSet {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.tokens
}

// SetAccount records the connected wallet account
func (o *Orchestrator) SetAccount(account string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.account = account
}

// Request returns a copy of the current form state
func (o *Orchestrator) Request() types.TransferRequest {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.req
}

// Quote returns the current quote, or nil
func (o *Orchestrator) Quote() *types.Quote {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.quote
}

// GasFee returns the gas fee options mirrored for display
func (o *Orchestrator) GasFee() *types.GasFeeOptions {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.gasFee
}

// Flags returns a snapshot of the live UI flags
func (o *Orchestrator) Flags() Flags {
	o.mu.Lock()
	defer o.mu.Unlock()
	return Flags{
		State:           o.state,
		IsLoadingTokens: o.isLoadingTokens,
		IsGettingQuote:  o.isGettingQuote,
		IsApproving:     o.isApproving,
		IsLoading:       o.isLoading,
		NeedsApproval:   o.needsApproval,
	}
}

// SetSourceToken updates the source token and invalidates the quote
func (o *Orchestrator) SetSourceToken(address string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.req.SourceTokenAddress = address
	o.invalidateLocked()
}

// SetAmount updates the amount and invalidates the quote
func (o *Orchestrator) SetAmount(amount string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.req.Amount = amount
	o.invalidateLocked()
}

// SetDestinationAddress updates the destination and invalidates the quote
func (o *Orchestrator) SetDestinationAddress(address string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.req.DestinationAddress = address
	o.invalidateLocked()
}

// SetPaymentMethod switches the fee payment method. Rejected while an
// approval or submission is in flight: a same-tick switch must not race
// the running operation.
func (o *Orchestrator) SetPaymentMethod(method types.FeePaymentMethod) error {
	o.mu.Lock()
	if o.isLoading || o.isApproving {
		o.mu.Unlock()
		o.notifier.Notify(notify.Notification{
			Title:   "Please Wait",
			Message: "Please wait for the current operation to complete",
			Level:   notify.LevelWarning,
		})
		return ErrOperationInFlight
	}
	o.req.FeePaymentMethod = method
	o.invalidateLocked()
	o.mu.Unlock()

	currency := "ETH"
	if method == types.FeeWithStablecoin {
		currency = "USDT"
	}
	o.notifier.Notify(notify.Notification{
		Title:   "Payment Method Changed",
		Message: fmt.Sprintf("Recalculating quote for %s payment.", currency),
		Level:   notify.LevelInfo,
	})
	return nil
}

// Invalidate drops the current quote and approval flag. A new cycle must
// pass fresh gating before a transaction may be built.
func (o *Orchestrator) Invalidate() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.invalidateLocked()
}

// invalidateLocked bumps the sequence so in-flight quote fetches keyed to
// the old form state get discarded when they land
func (o *Orchestrator) invalidateLocked() {
	o.quote = nil
	o.gasFee = nil
	o.needsApproval = false
	o.seq++
}

// Reset returns the session to a known-clean state: default source token,
// native fee method, no quote, no approval flag. Runs after every
// terminal outcome, successful or not, to prevent stale quote reuse.
func (o *Orchestrator) Reset() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.req = types.TransferRequest{FeePaymentMethod: types.FeeWithNativeCurrency}
	if len(o.tokens.Source) > 0 {
		o.req.SourceTokenAddress = o.tokens.Source[0].TokenAddress
	}
	o.invalidateLocked()
	o.state = StateIdle
	o.isLoading = false
	o.isApproving = false
}

// RefreshQuote recomputes the quote for the current form state. Each
// fetch is keyed to the sequence captured under lock before it starts; a
// result only lands if the sequence is still current when it returns
// (strict latest-request-wins).
func (o *Orchestrator) RefreshQuote(ctx context.Context) (*types.Quote, error) {
	o.mu.Lock()
	req := o.req
	tokens := o.tokens
	seq := o.seq
	o.isGettingQuote = true
	if o.state == StateIdle {
		o.state = StateQuoting
	}
	o.mu.Unlock()

	q, err := o.engine.GetQuote(ctx, req, &tokens)
	gasFee := o.engine.GasFeeOptions()

	o.mu.Lock()
	defer o.mu.Unlock()
	o.isGettingQuote = false
	if o.state == StateQuoting {
		o.state = StateIdle
	}
	if seq != o.seq {
		fmt.Printf("[Bridge] discarding stale quote result\n")
		return nil, nil
	}
	o.quote = q
	if q != nil {
		o.gasFee = gasFee
	} else {
		o.gasFee = nil
	}
	return q, err
}

// Submit drives one pass of the transfer protocol: revalidate the request
// and quote, warn on low balance, check allowance, then build and send.
// Returns ErrApprovalRequired when the pass halts for a spending
// approval; any terminal failure resets the session.
func (o *Orchestrator) Submit(ctx context.Context) (*types.TransferStatus, error) {
	o.mu.Lock()
	if o.isLoading || o.isApproving {
		o.mu.Unlock()
		o.notifier.Notify(notify.Notification{
			Title:   "Please Wait",
			Message: "Please wait for the current operation to complete",
			Level:   notify.LevelWarning,
		})
		return nil, ErrOperationInFlight
	}
	req := o.req
	q := o.quote
	o.mu.Unlock()

	if err := req.Validate(); err != nil {
		o.notifier.Notify(notify.Notification{
			Title:   "Error",
			Message: err.Error(),
			Level:   notify.LevelError,
		})
		return nil, err
	}

	// The quote can go stale between computation and submission: user
	// idle time past the deadline, or a background fee-method change.
	// One synchronous recomputation, then fail closed.
	if q == nil || q.PaymentMethod != req.FeePaymentMethod || q.Expired(o.clock()) {
		if q != nil && q.PaymentMethod != req.FeePaymentMethod {
			fmt.Printf("[Bridge] quote payment method mismatch, recalculating\n")
		}
		if q != nil && q.Expired(o.clock()) {
			fmt.Printf("[Bridge] quote expired, recalculating\n")
		}
		o.Invalidate()
		fresh, _ := o.RefreshQuote(ctx)
		if fresh == nil {
			o.notifier.Notify(notify.Notification{
				Title:   "Quote Required",
				Message: "Please wait for the quote to be calculated before proceeding",
				Level:   notify.LevelWarning,
			})
			return nil, ErrQuoteRequired
		}
		q = fresh
	}

	o.mu.Lock()
	account := o.account
	tokens := o.tokens
	gasFee := o.gasFee
	o.isLoading = true
	o.state = StateSubmitting
	o.mu.Unlock()

	sourceToken := tokens.FindSource(req.SourceTokenAddress)
	if sourceToken == nil || tokens.Destination == nil {
		return nil, o.failSubmit(fmt.Errorf("source token not found"))
	}

	// Fail closed: past the deadline nothing reaches the send builder.
	if q.Expired(o.clock()) {
		return nil, o.failSubmit(ErrQuoteExpired)
	}
	if q.PaymentMethod != req.FeePaymentMethod {
		return nil, o.failSubmit(ErrQuoteRequired)
	}

	o.checkBalance(ctx, *sourceToken, account, req.Amount)

	sufficient, err := o.sdk.Bridge().CheckAllowance(ctx, sdk.AllowanceParams{
		Token:               *sourceToken,
		Owner:               account,
		GasFeePaymentMethod: req.FeePaymentMethod,
		Amount:              req.Amount,
	})
	if err != nil {
		return nil, o.failSubmit(fmt.Errorf("allowance check failed: %w", err))
	}

	if !sufficient {
		o.mu.Lock()
		o.needsApproval = true
		o.isLoading = false
		o.state = StateAwaitingApproval
		o.mu.Unlock()
		o.notifier.Notify(notify.Notification{
			Title:   "Approval Required",
			Message: "Please approve the bridge to spend your tokens first",
			Level:   notify.LevelWarning,
		})
		return nil, ErrApprovalRequired
	}

	sendParams := sdk.SendParams{
		Amount:               req.Amount,
		FromAccountAddress:   account,
		ToAccountAddress:     req.DestinationAddress,
		SourceToken:          *sourceToken,
		DestinationToken:     *tokens.Destination,
		Messenger:            q.Messenger,
		GasFeePaymentMethod:  req.FeePaymentMethod,
		MinAmountToReceive:   q.MinAmountToReceive,
		Deadline:             q.Deadline,
		SlippageToleranceBps: q.SlippageToleranceBps,
	}
	if req.FeePaymentMethod == types.FeeWithStablecoin {
		if gasFee == nil || gasFee.Stablecoin == nil {
			return nil, o.failSubmit(fmt.Errorf("stablecoin fee not available"))
		}
		sendParams.Fee = gasFee.Stablecoin.Int
	}

	rawTx, err := o.sdk.Bridge().RawTxBuilder().Send(ctx, sendParams)
	if err != nil {
		return nil, o.failSubmit(fmt.Errorf("failed to build bridge transaction: %w", err))
	}

	txHash, err := o.sendRawTransaction(ctx, rawTx)
	if err != nil {
		return nil, o.failSubmit(err)
	}

	status := types.TransferStatus{
		Status:                 types.StatusPending,
		TxHash:                 txHash,
		Amount:                 req.Amount,
		SourceTokenSymbol:      sourceToken.Symbol,
		DestinationTokenSymbol: tokens.Destination.Symbol,
		DestinationAddress:     req.DestinationAddress,
		AmountToReceive:        q.ToAmount,
		EstimatedTime:          fmt.Sprintf("%d minutes", q.TransferTimeMinutes),
		Route:                  q.Route,
		CreatedAt:              o.clock(),
	}

	if o.history != nil {
		if histErr := o.history.Append(status); histErr != nil {
			fmt.Printf("[Bridge] failed to record transfer: %v\n", histErr)
		}
	}
	if o.onStatus != nil {
		o.onStatus(status)
	}

	o.notifier.Notify(notify.Notification{
		Title:   "Transfer Initiated",
		Message: fmt.Sprintf("Transaction hash: %s", txHash),
		Level:   notify.LevelSuccess,
	})

	o.Reset()
	return &status, nil
}

// Approve runs the explicit approval flow out of the AwaitingApproval
// side-state. Approval changes on-chain state, so both outcomes reset the
// session: derived fee and allowance assumptions are stale either way.
func (o *Orchestrator) Approve(ctx context.Context) error {
	o.mu.Lock()
	if !o.needsApproval {
		o.mu.Unlock()
		return fmt.Errorf("no approval pending")
	}
	if o.isApproving || o.isLoading {
		o.mu.Unlock()
		return ErrOperationInFlight
	}
	req := o.req
	tokens := o.tokens
	account := o.account
	o.isApproving = true
	o.state = StateApproving
	o.mu.Unlock()

	sourceToken := tokens.FindSource(req.SourceTokenAddress)
	if sourceToken == nil {
		return o.failApproval(fmt.Errorf("source token not found"))
	}

	rawTx, err := o.sdk.Bridge().RawTxBuilder().Approve(ctx, sdk.ApproveParams{
		Token: *sourceToken,
		Owner: account,
	})
	if err != nil {
		return o.failApproval(fmt.Errorf("failed to build approval transaction: %w", err))
	}

	txHash, err := o.sendRawTransaction(ctx, rawTx)
	if err != nil {
		return o.failApproval(err)
	}

	o.notifier.Notify(notify.Notification{
		Title:   "Approval Sent",
		Message: fmt.Sprintf("Approval transaction hash: %s", txHash),
		Level:   notify.LevelInfo,
	})

	o.Reset()
	return nil
}

// Watch reacts to provider change notifications until ctx is done.
// Account changes clear the session; chain changes force a full reload.
func (o *Orchestrator) Watch(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case accounts := <-o.provider.AccountsChanged():
			if len(accounts) == 0 {
				fmt.Printf("[Bridge] wallet disconnected\n")
				o.SetAccount("")
			} else {
				fmt.Printf("[Bridge] account changed to %s\n", accounts[0])
				o.SetAccount(accounts[0])
			}
			o.Reset()
		case chainID := <-o.provider.ChainChanged():
			fmt.Printf("[Bridge] chain changed to %s, reloading session\n", chainID)
			o.Reset()
			if err := o.LoadTokens(ctx); err != nil {
				fmt.Printf("[Bridge] reload after chain change failed: %v\n", err)
			}
		}
	}
}

// sendRawTransaction normalizes the value field to hex wire format and
// submits through the wallet provider
func (o *Orchestrator) sendRawTransaction(ctx context.Context, rawTx *sdk.RawTransaction) (string, error) {
	value, err := hexValue(rawTx.Value)
	if err != nil {
		return "", fmt.Errorf("invalid transaction value: %w", err)
	}

	sendCtx, cancel := context.WithTimeout(ctx, o.sendTimeout)
	defer cancel()

	raw, err := o.provider.Request(sendCtx, wallet.MethodSendTransaction, wallet.TxObject{
		From:  rawTx.From,
		To:    rawTx.To,
		Data:  rawTx.Data,
		Value: value,
	})
	if err != nil {
		return "", err
	}

	var txHash string
	if err := json.Unmarshal(raw, &txHash); err != nil {
		return "", fmt.Errorf("invalid transaction response: %w", err)
	}
	return txHash, nil
}

// checkBalance warns when the source token balance looks insufficient.
// Best effort only: balance reads can fail on RPC flakiness and must
// never block a valid transfer.
func (o *Orchestrator) checkBalance(ctx context.Context, token types.Token, account, amount string) {
	balance, err := wallet.TokenBalance(ctx, o.provider, token.TokenAddress, account, token.Decimals)
	if err != nil {
		fmt.Printf("[Bridge] balance check failed: %v\n", err)
		return
	}
	needed, err := decimal.NewFromString(amount)
	if err != nil {
		return
	}
	if balance.LessThan(needed) {
		o.notifier.Notify(notify.Notification{
			Title:   "Low Balance",
			Message: fmt.Sprintf("Insufficient %s balance. You have %s but need %s", token.Symbol, balance.StringFixed(6), amount),
			Level:   notify.LevelWarning,
		})
	}
}

func (o *Orchestrator) failSubmit(err error) error {
	fmt.Printf("[Bridge] transfer failed: %v\n", err)
	o.notifier.Notify(notify.Notification{
		Title:   "Transfer Failed",
		Message: NormalizeError(err),
		Level:   notify.LevelError,
	})
	o.Reset()
	return err
}

func (o *Orchestrator) failApproval(err error) error {
	fmt.Printf("[Bridge] approval failed: %v\n", err)
	o.notifier.Notify(notify.Notification{
		Title:   "Approval Failed",
		Message: NormalizeError(err),
		Level:   notify.LevelError,
	})
	o.Reset()
	return err
}

// hexValue converts a decimal wei string to the hex wire format the
// signing call requires
func hexValue(value string) (string, error) {
	if value == "" || value == "0" {
		return "0x0", nil
	}
	parsed, ok := new(big.Int).SetString(value, 10)
	if !ok {
		return "", fmt.Errorf("not a decimal value: %s", value)
	}
	return hexutil.EncodeBig(parsed), nil
}
