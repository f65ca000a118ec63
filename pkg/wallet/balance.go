package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/shopspring/decimal"
)

// balanceOf(address) function signature
const balanceOfABI = `[{"constant":true,"inputs":[{"name":"_owner","type":"address"}],"name":"balanceOf","outputs":[{"name":"balance","type":"uint256"}],"type":"function"}]`

// TokenBalance reads an ERC20 balance in token units through the
// provider's eth_call capability
func TokenBalance(ctx context.Context, provider Provider, tokenAddress, account string, decimals int) (decimal.Decimal, error) {
	parsedABI, err := abi.JSON(strings.NewReader(balanceOfABI))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to parse balanceOf ABI: %w", err)
	}

	data, err := parsedABI.Pack("balanceOf", common.HexToAddress(account))
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to pack balanceOf data: %w", err)
	}

	raw, err := provider.Request(ctx, MethodCall, CallObject{
		To:   tokenAddress,
		Data: hexutil.Encode(data),
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("failed to call balanceOf: %w", err)
	}

	var result string
	if err := json.Unmarshal(raw, &result); err != nil {
		return decimal.Zero, fmt.Errorf("invalid balanceOf response: %w", err)
	}

	bytes, err := hexutil.Decode(result)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid balanceOf response: %w", err)
	}

	balance := new(big.Int).SetBytes(bytes)
	return decimal.NewFromBigInt(balance, -int32(decimals)), nil
}
