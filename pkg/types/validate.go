package types

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"
)

var (
	tronAddressPattern = regexp.MustCompile(`^T[A-Za-z1-9]{33}$`)
	ethAddressPattern  = regexp.MustCompile(`^0x[a-fA-F0-9]{40}$`)
)

// IsValidTronAddress reports whether address is a well-formed Tron base58 address
func IsValidTronAddress(address string) bool {
	return tronAddressPattern.MatchString(address)
}

// IsValidEthAddress reports whether address is a well-formed hex Ethereum address
func IsValidEthAddress(address string) bool {
	return ethAddressPattern.MatchString(address)
}

// Complete reports whether every field required for a quote is present.
// This is the cheap gating check: an incomplete request must not reach the SDK.
func (r *TransferRequest) Complete() bool {
	if r.SourceTokenAddress == "" || r.DestinationAddress == "" || r.FeePaymentMethod == "" {
		return false
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return false
	}
	return amount.IsPositive()
}

// Validate checks all four fields independently and returns the first failure
func (r *TransferRequest) Validate() error {
	if r.SourceTokenAddress == "" {
		return fmt.Errorf("please select a source token")
	}
	if r.Amount == "" {
		return fmt.Errorf("please enter an amount")
	}
	amount, err := decimal.NewFromString(r.Amount)
	if err != nil {
		return fmt.Errorf("invalid amount: %s", r.Amount)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("amount must be greater than 0")
	}
	if r.DestinationAddress == "" {
		return fmt.Errorf("please enter a destination address")
	}
	if !IsValidTronAddress(r.DestinationAddress) {
		return fmt.Errorf("please enter a valid Tron address")
	}
	switch r.FeePaymentMethod {
	case FeeWithNativeCurrency, FeeWithStablecoin:
	case "":
		return fmt.Errorf("please select a gas fee payment method")
	default:
		return fmt.Errorf("invalid gas fee payment method: %s", r.FeePaymentMethod)
	}
	return nil
}
