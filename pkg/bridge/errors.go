package bridge

import (
	"context"
	"errors"
	"strings"
)

var (
	// ErrQuoteRequired blocks submission when no usable quote exists even
	// after recomputation
	ErrQuoteRequired = errors.New("quote required")
	// ErrQuoteExpired blocks building a transaction past the quote deadline
	ErrQuoteExpired = errors.New("quote expired")
	// ErrApprovalRequired halts a submit pass that needs a spending approval
	// first. Not a failure: the caller should prompt for approval.
	ErrApprovalRequired = errors.New("approval required")
	// ErrOperationInFlight rejects state changes while an approval or
	// submission is running
	ErrOperationInFlight = errors.New("operation in flight")
)

// JSON-RPC error codes the wallet surfaces
const (
	codeUserRejected = 4001
	codeRPCInternal  = -32603
)

// rpcError matches go-ethereum's rpc error types without importing them here
type rpcError interface {
	Error() string
	ErrorCode() int
}

// NormalizeError maps any transaction error onto a small fixed set of
// user-safe messages. Raw provider text never reaches the user.
func NormalizeError(err error) string {
	if err == nil {
		return ""
	}

	if errors.Is(err, context.Canceled) {
		return "Transaction was cancelled by user"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "The operation timed out. Please try again."
	}
	if errors.Is(err, ErrQuoteExpired) {
		return "Quote expired. Please request a fresh quote and try again."
	}
	if errors.Is(err, ErrQuoteRequired) {
		return "Please wait for the quote to be calculated before proceeding"
	}

	message := err.Error()

	var coded rpcError
	if errors.As(err, &coded) {
		switch coded.ErrorCode() {
		case codeUserRejected:
			return "Transaction was cancelled by user"
		case codeRPCInternal:
			switch {
			case strings.Contains(message, "insufficient funds"):
				return "Insufficient ETH balance for gas fees. Please add more ETH to your wallet."
			case strings.Contains(message, "execution reverted"):
				return "Transaction failed - contract execution reverted. This might be due to insufficient token balance or contract issues."
			default:
				return "Transaction failed - RPC error. This might be due to network congestion or contract issues. Please try again."
			}
		}
	}

	switch {
	case strings.Contains(message, "insufficient funds"):
		return "Insufficient ETH balance for gas fees. Please add more ETH to your wallet."
	case strings.Contains(message, "execution reverted"):
		return "Transaction failed - contract execution reverted. Please check your token balance and try again."
	case strings.Contains(message, "gas"):
		return "Gas estimation failed. Please try again or increase gas limit."
	case strings.Contains(message, "rejected"):
		return "Transaction was cancelled by user"
	default:
		return "Transaction failed. Please try again."
	}
}
