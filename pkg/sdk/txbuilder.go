package sdk

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"time"

	"github.com/btcsuite/btcutil/base58"
	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/math"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/shopspring/decimal"

	"tron-bridge/pkg/types"
)

// Allbridge chain ids used in swapAndBridge calldata
const (
	bridgeChainIDEth uint8 = 1
	bridgeChainIDTrx uint8 = 4
)

func messengerID(m types.Messenger) (uint8, error) {
	switch m {
	case types.MessengerAllbridge:
		return 1, nil
	case types.MessengerCCTP:
		return 3, nil
	default:
		return 0, fmt.Errorf("unknown messenger: %s", m)
	}
}

// Bridge returns the transaction-level operations
func (c *Client) Bridge() Bridge {
	return &bridgeOps{c: c}
}

type bridgeOps struct {
	c *Client
}

// CheckAllowance reads the on-chain ERC20 allowance granted to the token's
// bridge contract and compares it against the requested amount. With the
// stablecoin fee method the fee is paid from the same token, so the
// required allowance includes it.
func (b *bridgeOps) CheckAllowance(ctx context.Context, params AllowanceParams) (bool, error) {
	if params.Token.BridgeAddress == "" {
		return false, fmt.Errorf("token %s has no bridge contract address", params.Token.Symbol)
	}

	required, err := scaleToUnits(params.Amount, params.Token.Decimals)
	if err != nil {
		return false, fmt.Errorf("invalid amount: %w", err)
	}

	if params.GasFeePaymentMethod == types.FeeWithStablecoin {
		fee, feeErr := b.stablecoinFee(ctx, params.Token)
		if feeErr != nil {
			return false, feeErr
		}
		required = new(big.Int).Add(required, fee)
	}

	data, err := b.c.erc20ABI.Pack("allowance",
		common.HexToAddress(params.Owner),
		common.HexToAddress(params.Token.BridgeAddress))
	if err != nil {
		return false, fmt.Errorf("failed to pack allowance data: %w", err)
	}

	tokenAddress := common.HexToAddress(params.Token.TokenAddress)
	result, err := b.c.eth.CallContract(ctx, ethereum.CallMsg{
		To:   &tokenAddress,
		Data: data,
	}, nil)
	if err != nil {
		return false, fmt.Errorf("failed to call allowance: %w", err)
	}

	allowance := new(big.Int).SetBytes(result)
	return allowance.Cmp(required) >= 0, nil
}

// stablecoinFee resolves the current stablecoin fee in smallest units,
// preferring the primary messenger
func (b *bridgeOps) stablecoinFee(ctx context.Context, token types.Token) (*big.Int, error) {
	destination := types.Token{Chain: types.ChainTRX, TokenAddress: token.TokenAddress, Decimals: token.Decimals}
	options, err := b.c.GetGasFeeOptions(ctx, token, destination, types.MessengerAllbridge)
	if err != nil {
		options, err = b.c.GetGasFeeOptions(ctx, token, destination, types.MessengerCCTP)
		if err != nil {
			return nil, fmt.Errorf("failed to get stablecoin fee: %w", err)
		}
	}
	if options.Stablecoin == nil {
		return nil, fmt.Errorf("stablecoin fee not available for %s", token.Symbol)
	}
	fee, ok := new(big.Int).SetString(options.Stablecoin.Int, 10)
	if !ok {
		return nil, fmt.Errorf("invalid stablecoin fee: %s", options.Stablecoin.Int)
	}
	return fee, nil
}

// RawTxBuilder returns the unsigned transaction builders
func (b *bridgeOps) RawTxBuilder() RawTxBuilder {
	return &rawTxBuilder{c: b.c}
}

type rawTxBuilder struct {
	c *Client
}

// Approve builds an unlimited ERC20 approval for the token's bridge contract
func (r *rawTxBuilder) Approve(ctx context.Context, params ApproveParams) (*RawTransaction, error) {
	if params.Token.BridgeAddress == "" {
		return nil, fmt.Errorf("token %s has no bridge contract address", params.Token.Symbol)
	}
	if !types.IsValidEthAddress(params.Owner) {
		return nil, fmt.Errorf("invalid owner address: %s", params.Owner)
	}

	data, err := r.c.erc20ABI.Pack("approve",
		common.HexToAddress(params.Token.BridgeAddress),
		math.MaxBig256)
	if err != nil {
		return nil, fmt.Errorf("failed to pack approve data: %w", err)
	}

	return &RawTransaction{
		From:  params.Owner,
		To:    params.Token.TokenAddress,
		Data:  hexData(data),
		Value: "0",
	}, nil
}

// Send builds the swapAndBridge transfer transaction. The deadline and
// minimum receive amount from the quote travel into the calldata; a
// params set whose deadline has already passed is rejected outright.
func (r *rawTxBuilder) Send(ctx context.Context, params SendParams) (*RawTransaction, error) {
	if params.Deadline > 0 && time.Now().Unix() > params.Deadline {
		return nil, fmt.Errorf("quote expired")
	}
	if params.SourceToken.BridgeAddress == "" {
		return nil, fmt.Errorf("token %s has no bridge contract address", params.SourceToken.Symbol)
	}
	if !types.IsValidEthAddress(params.FromAccountAddress) {
		return nil, fmt.Errorf("invalid sender address: %s", params.FromAccountAddress)
	}

	recipient, err := tronAddressToBytes32(params.ToAccountAddress)
	if err != nil {
		return nil, fmt.Errorf("invalid destination address: %w", err)
	}

	amount, err := scaleToUnits(params.Amount, params.SourceToken.Decimals)
	if err != nil {
		return nil, fmt.Errorf("invalid amount: %w", err)
	}
	minReceive, err := scaleToUnits(params.MinAmountToReceive, params.DestinationToken.Decimals)
	if err != nil {
		return nil, fmt.Errorf("invalid minimum receive amount: %w", err)
	}

	messenger, err := messengerID(params.Messenger)
	if err != nil {
		return nil, err
	}

	nonce, err := randomNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	feeTokenAmount := big.NewInt(0)
	value := "0"
	switch params.GasFeePaymentMethod {
	case types.FeeWithStablecoin:
		if params.Fee == "" {
			return nil, fmt.Errorf("stablecoin fee amount is required")
		}
		fee, ok := new(big.Int).SetString(params.Fee, 10)
		if !ok {
			return nil, fmt.Errorf("invalid stablecoin fee: %s", params.Fee)
		}
		feeTokenAmount = fee
	case types.FeeWithNativeCurrency:
		// The native fee rides along as the transaction value.
		options, optErr := r.c.GetGasFeeOptions(ctx, params.SourceToken, params.DestinationToken, params.Messenger)
		if optErr != nil {
			return nil, fmt.Errorf("failed to get native fee: %w", optErr)
		}
		if options.Native == nil {
			return nil, fmt.Errorf("native fee not available")
		}
		value = options.Native.Int
	default:
		return nil, fmt.Errorf("unknown gas fee payment method: %s", params.GasFeePaymentMethod)
	}

	data, err := r.c.bridgeABI.Pack("swapAndBridge",
		addressToBytes32(common.HexToAddress(params.SourceToken.TokenAddress)),
		amount,
		recipient,
		bridgeChainIDTrx,
		tokenToBytes32(params.DestinationToken),
		nonce,
		messenger,
		feeTokenAmount,
		minReceive,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to pack swapAndBridge data: %w", err)
	}

	return &RawTransaction{
		From:  params.FromAccountAddress,
		To:    params.SourceToken.BridgeAddress,
		Data:  hexData(data),
		Value: value,
	}, nil
}

// scaleToUnits converts a decimal token amount into smallest units
func scaleToUnits(amount string, decimals int) (*big.Int, error) {
	value, err := decimal.NewFromString(amount)
	if err != nil {
		return nil, err
	}
	if !value.IsPositive() {
		return nil, fmt.Errorf("amount must be greater than 0: %s", amount)
	}
	return value.Shift(int32(decimals)).BigInt(), nil
}

// tronAddressToBytes32 base58check-decodes a Tron address and left-pads
// the 20-byte account body into a bytes32 word
func tronAddressToBytes32(address string) ([32]byte, error) {
	var word [32]byte
	if !types.IsValidTronAddress(address) {
		return word, fmt.Errorf("not a Tron address: %s", address)
	}
	decoded := base58.Decode(address)
	// 0x41 prefix + 20-byte body + 4-byte checksum
	if len(decoded) != 25 || decoded[0] != 0x41 {
		return word, fmt.Errorf("malformed Tron address: %s", address)
	}
	copy(word[12:], decoded[1:21])
	return word, nil
}

func addressToBytes32(address common.Address) [32]byte {
	var word [32]byte
	copy(word[12:], address.Bytes())
	return word
}

func tokenToBytes32(token types.Token) [32]byte {
	if token.Chain == types.ChainTRX {
		word, err := tronAddressToBytes32(token.TokenAddress)
		if err == nil {
			return word
		}
	}
	return addressToBytes32(common.HexToAddress(token.TokenAddress))
}

func randomNonce() (*big.Int, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return nil, err
	}
	return new(big.Int).SetBytes(crypto.Keccak256(buf)), nil
}

func hexData(data []byte) string {
	return "0x" + common.Bytes2Hex(data)
}
