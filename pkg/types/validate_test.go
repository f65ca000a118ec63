package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

const validTronAddress = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"

func TestIsValidTronAddress(t *testing.T) {
	tests := []struct {
		name    string
		address string
		valid   bool
	}{
		{"valid address", validTronAddress, true},
		{"empty", "", false},
		{"too short", "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjL", false},
		{"too long", validTronAddress + "aa", false},
		{"wrong prefix", "XR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", false},
		{"ethereum address", "0x55d398326f99059fF775485246999027B3197955", false},
		{"contains zero", "TR0NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.valid, IsValidTronAddress(tt.address))
		})
	}
}

func TestIsValidEthAddress(t *testing.T) {
	assert.True(t, IsValidEthAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"))
	assert.False(t, IsValidEthAddress("dAC17F958D2ee523a2206206994597C13D831ec7"))
	assert.False(t, IsValidEthAddress("0xdAC17F958D2ee523a2206206994597C13D831e"))
	assert.False(t, IsValidEthAddress(validTronAddress))
}

func TestTransferRequestComplete(t *testing.T) {
	base := TransferRequest{
		SourceTokenAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		Amount:             "100",
		DestinationAddress: validTronAddress,
		FeePaymentMethod:   FeeWithNativeCurrency,
	}
	assert.True(t, base.Complete())

	missing := base
	missing.SourceTokenAddress = ""
	assert.False(t, missing.Complete())

	missing = base
	missing.Amount = ""
	assert.False(t, missing.Complete())

	missing = base
	missing.Amount = "0"
	assert.False(t, missing.Complete())

	missing = base
	missing.Amount = "-5"
	assert.False(t, missing.Complete())

	missing = base
	missing.Amount = "abc"
	assert.False(t, missing.Complete())

	missing = base
	missing.DestinationAddress = ""
	assert.False(t, missing.Complete())

	missing = base
	missing.FeePaymentMethod = ""
	assert.False(t, missing.Complete())
}

func TestTransferRequestValidate(t *testing.T) {
	base := TransferRequest{
		SourceTokenAddress: "0xdAC17F958D2ee523a2206206994597C13D831ec7",
		Amount:             "100",
		DestinationAddress: validTronAddress,
		FeePaymentMethod:   FeeWithNativeCurrency,
	}
	assert.NoError(t, base.Validate())

	bad := base
	bad.SourceTokenAddress = ""
	assert.EqualError(t, bad.Validate(), "please select a source token")

	bad = base
	bad.Amount = "0"
	assert.EqualError(t, bad.Validate(), "amount must be greater than 0")

	bad = base
	bad.DestinationAddress = "0xdAC17F958D2ee523a2206206994597C13D831ec7"
	assert.EqualError(t, bad.Validate(), "please enter a valid Tron address")

	bad = base
	bad.FeePaymentMethod = "credit-card"
	assert.Error(t, bad.Validate())
}

func TestQuoteExpired(t *testing.T) {
	q := Quote{Deadline: 1000}
	assert.False(t, q.Expired(unixTime(999)))
	assert.False(t, q.Expired(unixTime(1000)))
	assert.True(t, q.Expired(unixTime(1001)))
}

func TestShortenAddress(t *testing.T) {
	assert.Equal(t, "0xdAC1...831ec7",
		ShortenAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7", 6))
	assert.Equal(t, "short", ShortenAddress("short", 6))
}

func unixTime(sec int64) time.Time {
	return time.Unix(sec, 0)
}

func TestRoute(t *testing.T) {
	from := Token{Symbol: "USDT", Chain: ChainETH}
	to := Token{Symbol: "USDT", Chain: ChainTRX}
	assert.Equal(t, "USDT (Ethereum) → USDT (Tron)", Route(from, to))
}
