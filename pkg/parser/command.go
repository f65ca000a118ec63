package parser

import (
	"fmt"
	"regexp"
	"strings"

	"tron-bridge/pkg/types"
)

// Pattern: <amount> <source_token> to <tron_address>
// The address segment stays case-sensitive: Tron addresses are base58check.
var bridgePattern = regexp.MustCompile(`^(?i:bridge\s+)?(\d+\.?\d*)\s+([A-Za-z0-9]+)\s+(?i:to)\s+(\S+)$`)

// ParseBridgeCommand parses a natural language bridge command
// Examples:
//   - "bridge 100 USDT to TUqEg3dzVEJNQBVWDYpMoTqkkZTQmAGFM3"
//   - "50.5 USDC to TUqEg3dzVEJNQBVWDYpMoTqkkZTQmAGFM3"
func ParseBridgeCommand(command string) (*types.TransferRequest, string, error) {
	command = strings.TrimSpace(command)

	matches := bridgePattern.FindStringSubmatch(command)
	if matches == nil {
		return nil, "", fmt.Errorf("invalid bridge command format. Expected: '<amount> <token> to <tron-address>' (e.g., '100 USDT to TUqE...')")
	}

	symbol := NormalizeTokenSymbol(matches[2])
	if symbol != "USDT" && symbol != "USDC" {
		return nil, "", fmt.Errorf("unsupported source token '%s'. Supported tokens: USDT, USDC", matches[2])
	}

	address := matches[3]
	if !types.IsValidTronAddress(address) {
		return nil, "", fmt.Errorf("'%s' is not a valid Tron address", address)
	}

	req := &types.TransferRequest{
		Amount:             matches[1],
		DestinationAddress: address,
		FeePaymentMethod:   types.FeeWithNativeCurrency,
	}
	return req, symbol, nil
}

// NormalizeTokenSymbol normalizes token symbols to standard format
func NormalizeTokenSymbol(symbol string) string {
	symbol = strings.TrimSpace(strings.ToUpper(symbol))

	// Handle common aliases
	aliases := map[string]string{
		"TETHER": "USDT",
		"USDT0":  "USDT",
	}

	if normalized, exists := aliases[symbol]; exists {
		return normalized
	}

	return symbol
}
