package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tron-bridge/pkg/types"
)

const tronAddress = "TR7NHqjeKQxGTCi8q8ZY4pL8otSzgjLj6t"

func TestParseBridgeCommand(t *testing.T) {
	tests := []struct {
		name       string
		command    string
		wantAmount string
		wantSymbol string
		wantErr    bool
	}{
		{
			name:       "basic",
			command:    "100 USDT to " + tronAddress,
			wantAmount: "100",
			wantSymbol: "USDT",
		},
		{
			name:       "with bridge prefix",
			command:    "bridge 100 USDT to " + tronAddress,
			wantAmount: "100",
			wantSymbol: "USDT",
		},
		{
			name:       "decimal amount",
			command:    "50.25 USDC to " + tronAddress,
			wantAmount: "50.25",
			wantSymbol: "USDC",
		},
		{
			name:       "lowercase symbol and keyword",
			command:    "100 usdt TO " + tronAddress,
			wantAmount: "100",
			wantSymbol: "USDT",
		},
		{
			name:       "tether alias",
			command:    "100 tether to " + tronAddress,
			wantAmount: "100",
			wantSymbol: "USDT",
		},
		{
			name:    "missing amount",
			command: "USDT to " + tronAddress,
			wantErr: true,
		},
		{
			name:    "unsupported token",
			command: "100 DAI to " + tronAddress,
			wantErr: true,
		},
		{
			name:    "ethereum destination",
			command: "100 USDT to 0xdAC17F958D2ee523a2206206994597C13D831ec7",
			wantErr: true,
		},
		{
			name:    "empty",
			command: "",
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, symbol, err := ParseBridgeCommand(tt.command)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantAmount, req.Amount)
			assert.Equal(t, tt.wantSymbol, symbol)
			assert.Equal(t, tronAddress, req.DestinationAddress)
			assert.Equal(t, types.FeeWithNativeCurrency, req.FeePaymentMethod)
		})
	}
}

func TestNormalizeTokenSymbol(t *testing.T) {
	assert.Equal(t, "USDT", NormalizeTokenSymbol("usdt"))
	assert.Equal(t, "USDT", NormalizeTokenSymbol(" Tether "))
	assert.Equal(t, "USDT", NormalizeTokenSymbol("USDT0"))
	assert.Equal(t, "USDC", NormalizeTokenSymbol("USDC"))
}
