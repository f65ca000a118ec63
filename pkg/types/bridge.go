package types

import (
	"fmt"
	"strings"
	"time"
)

// ChainSymbol identifies a blockchain in the bridge catalog
type ChainSymbol string

const (
	ChainETH ChainSymbol = "ETH"
	ChainTRX ChainSymbol = "TRX"
)

// ChainDisplayName returns a human readable name for a chain symbol
func ChainDisplayName(chain ChainSymbol) string {
	switch chain {
	case ChainETH:
		return "Ethereum"
	case ChainTRX:
		return "Tron"
	default:
		return string(chain)
	}
}

// FeePaymentMethod selects how the bridge gas fee is paid
type FeePaymentMethod string

const (
	FeeWithNativeCurrency FeePaymentMethod = "native"
	FeeWithStablecoin     FeePaymentMethod = "stablecoin"
)

// Messenger is the cross-chain message relay protocol used to settle a transfer
type Messenger string

const (
	MessengerAllbridge Messenger = "ALLBRIDGE"
	MessengerCCTP      Messenger = "CCTP"
)

// Token describes a bridgeable asset on one chain.
// Populated once at catalog load; immutable afterwards.
type Token struct {
	Symbol        string      `json:"symbol"`
	Name          string      `json:"name"`
	Chain         ChainSymbol `json:"chain"`
	TokenAddress  string      `json:"token_address"`
	Decimals      int         `json:"decimals"`
	BridgeAddress string      `json:"bridge_address,omitempty"`
}

// TokenSet holds the tokens this bridge can move.
// Destination is singular: the product only bridges to USDT on Tron.
type TokenSet struct {
	Source      []Token
	Destination *Token
}

// FindSource resolves a source token by its chain address
func (ts *TokenSet) FindSource(address string) *Token {
	for i := range ts.Source {
		if strings.EqualFold(ts.Source[i].TokenAddress, address) {
			return &ts.Source[i]
		}
	}
	return nil
}

// TransferRequest is the user's form state for a single transfer
type TransferRequest struct {
	SourceTokenAddress string
	Amount             string
	DestinationAddress string
	FeePaymentMethod   FeePaymentMethod
}

// Quote is a priced, time-bounded, slippage-bounded transfer estimate.
// It is conceptually single-use: any edit to the request invalidates it,
// and a transaction must never be built from it past Deadline.
type Quote struct {
	FromToken            Token
	ToToken              Token
	FromAmount           string
	ToAmount             string
	MinAmountToReceive   string
	SlippageToleranceBps int
	Deadline             int64 // unix seconds
	GasFeeNative         string
	GasFeeStablecoin     string
	TransferTimeMinutes  int
	Route                string
	PaymentMethod        FeePaymentMethod
	Messenger            Messenger
}

// Expired reports whether the quote's deadline has passed
func (q *Quote) Expired(now time.Time) bool {
	return now.Unix() > q.Deadline
}

// TransferStatusValue is the lifecycle state of a submitted transfer
type TransferStatusValue string

const (
	StatusPending   TransferStatusValue = "pending"
	StatusCompleted TransferStatusValue = "completed"
	StatusFailed    TransferStatusValue = "failed"
	StatusCancelled TransferStatusValue = "cancelled"
)

// TransferStatus is the record emitted once per successful submission.
// This client does not poll the destination chain, so records stay pending.
type TransferStatus struct {
	Status                 TransferStatusValue `json:"status"`
	TxHash                 string              `json:"tx_hash"`
	Amount                 string              `json:"amount"`
	SourceTokenSymbol      string              `json:"source_token_symbol"`
	DestinationTokenSymbol string              `json:"destination_token_symbol"`
	DestinationAddress     string              `json:"destination_address"`
	AmountToReceive        string              `json:"amount_to_receive"`
	EstimatedTime          string              `json:"estimated_time"`
	Route                  string              `json:"route"`
	CreatedAt              time.Time           `json:"created_at"`
}

// FeeAmount is one gas fee option in both representations the API returns
type FeeAmount struct {
	Float string `json:"float"` // decimal units, e.g. "0.0031"
	Int   string `json:"int"`   // smallest units, e.g. "3100000000000000"
}

// GasFeeOptions is a transient projection of SDK fee data,
// recomputed alongside every quote
type GasFeeOptions struct {
	Native     *FeeAmount `json:"native,omitempty"`
	Stablecoin *FeeAmount `json:"stablecoin,omitempty"`
}

// Route formats the display route for a token pair
func Route(from, to Token) string {
	return fmt.Sprintf("%s (%s) → %s (%s)",
		from.Symbol, ChainDisplayName(from.Chain),
		to.Symbol, ChainDisplayName(to.Chain))
}

// ExplorerURL returns the block explorer link for a transaction hash
func ExplorerURL(txHash string, chain ChainSymbol) string {
	switch chain {
	case ChainTRX:
		return "https://tronscan.org/#/transaction/" + txHash
	default:
		return "https://etherscan.io/tx/" + txHash
	}
}

// ShortenAddress truncates an address for display
func ShortenAddress(address string, chars int) string {
	if len(address) <= chars*2 {
		return address
	}
	return address[:chars] + "..." + address[len(address)-chars:]
}
