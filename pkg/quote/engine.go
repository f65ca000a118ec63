package quote

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"tron-bridge/pkg/notify"
	"tron-bridge/pkg/sdk"
	"tron-bridge/pkg/types"
)

const (
	// DefaultSlippageBps is the default slippage tolerance (0.5%)
	DefaultSlippageBps = 50
	// MinSlippageBps and MaxSlippageBps bound the configurable range
	MinSlippageBps = 10
	MaxSlippageBps = 200

	// DefaultTimeout bounds every SDK call the engine makes
	DefaultTimeout = 45 * time.Second

	// quoteTTL is how long a quote stays valid after computation
	quoteTTL = 5 * time.Minute
)

// Engine translates a transfer request into a priced, time-bounded,
// slippage-bounded quote. Side-effect free except for SDK calls and the
// gas fee mirror kept for display.
type Engine struct {
	sdk         sdk.SDK
	notifier    notify.Notifier
	slippageBps int
	timeout     time.Duration
	clock       func() time.Time

	mu     sync.Mutex
	gasFee *types.GasFeeOptions
}

// NewEngine creates a quote engine. Out-of-range slippage values are
// clamped to [MinSlippageBps, MaxSlippageBps].
func NewEngine(s sdk.SDK, notifier notify.Notifier, slippageBps int, timeout time.Duration) *Engine {
	if slippageBps == 0 {
		slippageBps = DefaultSlippageBps
	}
	if slippageBps < MinSlippageBps {
		slippageBps = MinSlippageBps
	}
	if slippageBps > MaxSlippageBps {
		slippageBps = MaxSlippageBps
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Engine{
		sdk:         s,
		notifier:    notifier,
		slippageBps: slippageBps,
		timeout:     timeout,
		clock:       time.Now,
	}
}

// SlippageBps returns the effective slippage tolerance
func (e *Engine) SlippageBps() int {
	return e.slippageBps
}

// GasFeeOptions returns the fee options mirrored from the last quote
func (e *Engine) GasFeeOptions() *types.GasFeeOptions {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.gasFee
}

// GetQuote computes a quote for the request, or nil when inputs are
// incomplete or tokens cannot be resolved. Incomplete input never reaches
// the SDK. Unrecoverable SDK failures surface as a notification and an
// error; the caller treats both the same way as "no quote".
func (e *Engine) GetQuote(ctx context.Context, req types.TransferRequest, tokens *types.TokenSet) (*types.Quote, error) {
	if !req.Complete() {
		return nil, nil
	}

	sourceToken := tokens.FindSource(req.SourceTokenAddress)
	if sourceToken == nil || tokens.Destination == nil {
		// Expected transient state while tokens load or the form is mid-edit
		fmt.Printf("[Quote] source or destination token not resolved yet\n")
		return nil, nil
	}
	destToken := *tokens.Destination

	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	amountOut, err := e.sdk.GetAmountToBeReceived(callCtx, req.Amount, *sourceToken, destToken)
	if err != nil {
		e.quoteFailed(err)
		return nil, err
	}

	feeOptions, transferTime, messenger, err := e.feeAndTime(callCtx, *sourceToken, destToken)
	if err != nil {
		e.quoteFailed(err)
		return nil, err
	}

	minReceive, err := applySlippage(amountOut, e.slippageBps)
	if err != nil {
		e.quoteFailed(err)
		return nil, err
	}

	e.mu.Lock()
	e.gasFee = feeOptions
	e.mu.Unlock()

	q := &types.Quote{
		FromToken:            *sourceToken,
		ToToken:              destToken,
		FromAmount:           req.Amount,
		ToAmount:             amountOut,
		MinAmountToReceive:   minReceive,
		SlippageToleranceBps: e.slippageBps,
		Deadline:             e.clock().Add(quoteTTL).Unix(),
		TransferTimeMinutes:  ceilMinutes(transferTime),
		Route:                types.Route(*sourceToken, destToken),
		PaymentMethod:        req.FeePaymentMethod,
		Messenger:            messenger,
	}
	if feeOptions.Native != nil {
		q.GasFeeNative = feeOptions.Native.Float
	}
	if feeOptions.Stablecoin != nil {
		q.GasFeeStablecoin = feeOptions.Stablecoin.Float
	}
	return q, nil
}

// feeAndTime fetches fee options and transfer time, preferring the
// primary messenger and falling back to CCTP transparently. Only a
// double failure surfaces to the caller.
func (e *Engine) feeAndTime(ctx context.Context, from, to types.Token) (*types.GasFeeOptions, time.Duration, types.Messenger, error) {
	options, err := e.sdk.GetGasFeeOptions(ctx, from, to, types.MessengerAllbridge)
	if err == nil {
		var transferTime time.Duration
		transferTime, err = e.sdk.GetAverageTransferTime(ctx, from, to, types.MessengerAllbridge)
		if err == nil {
			return options, transferTime, types.MessengerAllbridge, nil
		}
	}
	fmt.Printf("[Quote] primary messenger unavailable, trying CCTP: %v\n", err)

	options, fallbackErr := e.sdk.GetGasFeeOptions(ctx, from, to, types.MessengerCCTP)
	if fallbackErr != nil {
		return nil, 0, "", fmt.Errorf("all messengers failed: %w", fallbackErr)
	}
	transferTime, fallbackErr := e.sdk.GetAverageTransferTime(ctx, from, to, types.MessengerCCTP)
	if fallbackErr != nil {
		return nil, 0, "", fmt.Errorf("all messengers failed: %w", fallbackErr)
	}
	return options, transferTime, types.MessengerCCTP, nil
}

func (e *Engine) quoteFailed(err error) {
	fmt.Printf("[Quote] failed to get bridge quote: %v\n", err)
	e.notifier.Notify(notify.Notification{
		Title:   "Quote Error",
		Message: fmt.Sprintf("Failed to get bridge quote: %v", err),
		Level:   notify.LevelError,
	})
}

// applySlippage computes amount * (1 - bps/10000)
func applySlippage(amount string, bps int) (string, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return "", fmt.Errorf("invalid receive amount: %w", err)
	}
	factor := decimal.NewFromInt(10000 - int64(bps)).Div(decimal.NewFromInt(10000))
	return value.Mul(factor).String(), nil
}

// ceilMinutes rounds a duration up to whole minutes. Never round down:
// under-promising transfer time erodes user trust.
func ceilMinutes(d time.Duration) int {
	minutes := int(d / time.Minute)
	if d%time.Minute != 0 {
		minutes++
	}
	if minutes < 1 {
		minutes = 1
	}
	return minutes
}
