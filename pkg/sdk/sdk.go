package sdk

import (
	"context"
	"time"

	"tron-bridge/pkg/types"
)

// SDK is the bridge service capability set consumed by the quote engine
// and the transfer orchestrator. The concrete implementation talks to the
// Allbridge Core API and the source chain; tests substitute fakes.
type SDK interface {
	// ChainDetailsMap returns the token catalog keyed by chain
	ChainDetailsMap(ctx context.Context) (map[types.ChainSymbol][]types.Token, error)

	// GetAmountToBeReceived returns the gross receivable amount for a transfer,
	// in destination token units
	GetAmountToBeReceived(ctx context.Context, amount string, from, to types.Token) (string, error)

	// GetGasFeeOptions returns the fee options for a route and messenger
	GetGasFeeOptions(ctx context.Context, from, to types.Token, messenger types.Messenger) (*types.GasFeeOptions, error)

	// GetAverageTransferTime returns the expected settlement time for a route
	GetAverageTransferTime(ctx context.Context, from, to types.Token, messenger types.Messenger) (time.Duration, error)

	// Bridge returns the transaction-level operations
	Bridge() Bridge
}

// Bridge exposes allowance checks and raw transaction builders
type Bridge interface {
	CheckAllowance(ctx context.Context, params AllowanceParams) (bool, error)
	RawTxBuilder() RawTxBuilder
}

// RawTxBuilder builds unsigned transactions for wallet signing
type RawTxBuilder interface {
	Approve(ctx context.Context, params ApproveParams) (*RawTransaction, error)
	Send(ctx context.Context, params SendParams) (*RawTransaction, error)
}

// RawTransaction is an unsigned transaction payload. Value is a decimal
// wei string; callers normalize it to hex before eth_sendTransaction.
type RawTransaction struct {
	From  string
	To    string
	Data  string
	Value string
}

// AllowanceParams describes an allowance check
type AllowanceParams struct {
	Token               types.Token
	Owner               string
	GasFeePaymentMethod types.FeePaymentMethod
	Amount              string
}

// ApproveParams describes an approval transaction
type ApproveParams struct {
	Token types.Token
	Owner string
}

// SendParams describes a bridge transfer transaction
type SendParams struct {
	Amount               string
	FromAccountAddress   string
	ToAccountAddress     string
	SourceToken          types.Token
	DestinationToken     types.Token
	Messenger            types.Messenger
	GasFeePaymentMethod  types.FeePaymentMethod
	MinAmountToReceive   string
	Deadline             int64
	SlippageToleranceBps int
	// Fee is the stablecoin fee in smallest units, set only when the
	// payment method is stablecoin
	Fee string
}
