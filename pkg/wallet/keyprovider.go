package wallet

import (
	"context"
	"crypto/ecdsa"
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/ethereum/go-ethereum/rpc"
)

const (
	defaultConnectTimeout = 30 * time.Second
	defaultPollInterval   = 15 * time.Second
	fallbackGasLimit      = uint64(300000)
)

// Config configures the key-backed wallet provider
type Config struct {
	RPCEndpoint    string
	ChainID        int64
	Signer         SignerConfig
	ConnectTimeout time.Duration
	PollInterval   time.Duration
}

// KeyProvider implements Provider with an in-process signing key over a
// JSON-RPC endpoint. It is the CLI stand-in for an injected browser wallet.
type KeyProvider struct {
	rpcClient *rpc.Client
	eth       *ethclient.Client
	key       *ecdsa.PrivateKey
	address   common.Address
	flavor    string

	expectedChainID *big.Int
	connectTimeout  time.Duration
	pollInterval    time.Duration

	mu        sync.Mutex
	chainID   *big.Int
	connected bool

	accountsCh chan []string
	chainCh    chan string
	stopCh     chan struct{}
	stopOnce   sync.Once
}

// NewKeyProvider selects a signer flavor and prepares the provider.
// No network traffic happens until Connect.
func NewKeyProvider(cfg Config) (*KeyProvider, error) {
	if cfg.RPCEndpoint == "" {
		return nil, fmt.Errorf("RPC endpoint is required")
	}

	key, flavor, err := loadSigner(cfg.Signer)
	if err != nil {
		return nil, err
	}

	connectTimeout := cfg.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = defaultConnectTimeout
	}
	pollInterval := cfg.PollInterval
	if pollInterval <= 0 {
		pollInterval = defaultPollInterval
	}

	p := &KeyProvider{
		key:             key,
		address:         crypto.PubkeyToAddress(key.PublicKey),
		flavor:          flavor,
		expectedChainID: big.NewInt(cfg.ChainID),
		connectTimeout:  connectTimeout,
		pollInterval:    pollInterval,
		accountsCh:      make(chan []string, 1),
		chainCh:         make(chan string, 1),
		stopCh:          make(chan struct{}),
	}

	p.rpcClient, err = rpc.Dial(cfg.RPCEndpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RPC endpoint: %w", err)
	}
	p.eth = ethclient.NewClient(p.rpcClient)

	return p, nil
}

// Flavor returns the selected signer flavor
func (p *KeyProvider) Flavor() string {
	return p.flavor
}

// Connect validates the network and unlocks the session. The whole
// handshake is bounded by the connect timeout. Reconnecting an already
// connected provider is a fast no-op.
func (p *KeyProvider) Connect(ctx context.Context) (string, error) {
	p.mu.Lock()
	if p.connected {
		address := p.address.Hex()
		p.mu.Unlock()
		return address, nil
	}
	p.mu.Unlock()

	connectCtx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()

	chainID, err := p.eth.ChainID(connectCtx)
	if err != nil {
		if connectCtx.Err() == context.DeadlineExceeded {
			return "", fmt.Errorf("connection timeout")
		}
		return "", fmt.Errorf("failed to connect wallet: %w", err)
	}

	if p.expectedChainID.Sign() > 0 && chainID.Cmp(p.expectedChainID) != 0 {
		return "", fmt.Errorf("network validation failed: connected to chain %s, expected chain %s. Please switch to Ethereum mainnet",
			chainID, p.expectedChainID)
	}

	p.mu.Lock()
	p.chainID = chainID
	p.connected = true
	p.mu.Unlock()

	go p.watch()

	return p.address.Hex(), nil
}

// Request dispatches a wallet RPC call
func (p *KeyProvider) Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error) {
	switch method {
	case MethodAccounts, MethodRequestAccounts:
		p.mu.Lock()
		connected := p.connected
		p.mu.Unlock()
		if !connected && method == MethodAccounts {
			return json.Marshal([]string{})
		}
		return json.Marshal([]string{p.address.Hex()})

	case MethodChainID:
		p.mu.Lock()
		chainID := p.chainID
		p.mu.Unlock()
		if chainID == nil {
			return nil, fmt.Errorf("wallet not connected")
		}
		return json.Marshal(hexutil.EncodeBig(chainID))

	case MethodCall:
		call, err := callObjectFrom(params)
		if err != nil {
			return nil, err
		}
		to := common.HexToAddress(call.To)
		data, err := hexutil.Decode(call.Data)
		if err != nil {
			return nil, fmt.Errorf("invalid call data: %w", err)
		}
		result, err := p.eth.CallContract(ctx, ethereum.CallMsg{To: &to, Data: data}, nil)
		if err != nil {
			return nil, err
		}
		return json.Marshal(hexutil.Encode(result))

	case MethodSendTransaction:
		tx, err := txObjectFrom(params)
		if err != nil {
			return nil, err
		}
		hash, err := p.sendTransaction(ctx, tx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(hash)

	case MethodSwitchChain:
		return p.switchChain(params)

	default:
		var result json.RawMessage
		if err := p.rpcClient.CallContext(ctx, &result, method, params...); err != nil {
			return nil, err
		}
		return result, nil
	}
}

// sendTransaction fills nonce, gas, and gas price, signs with the session
// key, and broadcasts
func (p *KeyProvider) sendTransaction(ctx context.Context, txObj *TxObject) (string, error) {
	p.mu.Lock()
	if !p.connected {
		p.mu.Unlock()
		return "", fmt.Errorf("wallet not connected")
	}
	chainID := p.chainID
	p.mu.Unlock()

	if !strings.EqualFold(txObj.From, p.address.Hex()) {
		return "", fmt.Errorf("transaction sender %s does not match wallet account", txObj.From)
	}

	to := common.HexToAddress(txObj.To)
	value := new(big.Int)
	if txObj.Value != "" && txObj.Value != "0x0" {
		parsed, err := hexutil.DecodeBig(txObj.Value)
		if err != nil {
			return "", fmt.Errorf("invalid transaction value: %w", err)
		}
		value = parsed
	}

	var data []byte
	if txObj.Data != "" {
		decoded, err := hexutil.Decode(txObj.Data)
		if err != nil {
			return "", fmt.Errorf("invalid transaction data: %w", err)
		}
		data = decoded
	}

	nonce, err := p.eth.PendingNonceAt(ctx, p.address)
	if err != nil {
		return "", fmt.Errorf("failed to get nonce: %w", err)
	}

	gasPrice, err := p.eth.SuggestGasPrice(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to get gas price: %w", err)
	}

	gasLimit := fallbackGasLimit
	estimated, err := p.eth.EstimateGas(ctx, ethereum.CallMsg{
		From:  p.address,
		To:    &to,
		Value: value,
		Data:  data,
	})
	if err == nil {
		gasLimit = estimated * 120 / 100
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(chainID), p.key)
	if err != nil {
		return "", fmt.Errorf("failed to sign transaction: %w", err)
	}

	if err := p.eth.SendTransaction(ctx, signedTx); err != nil {
		return "", fmt.Errorf("failed to send transaction: %w", err)
	}

	return signedTx.Hash().Hex(), nil
}

func (p *KeyProvider) switchChain(params []interface{}) (json.RawMessage, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("missing chain parameter")
	}
	var requested SwitchChainParam
	switch v := params[0].(type) {
	case SwitchChainParam:
		requested = v
	case *SwitchChainParam:
		requested = *v
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("invalid chain parameter: %w", err)
		}
		if err := json.Unmarshal(raw, &requested); err != nil {
			return nil, fmt.Errorf("invalid chain parameter: %w", err)
		}
	}

	target, err := hexutil.DecodeBig(requested.ChainID)
	if err != nil {
		return nil, fmt.Errorf("invalid chain id: %w", err)
	}

	p.mu.Lock()
	current := p.chainID
	p.mu.Unlock()

	// A key provider is bound to its RPC endpoint, so switching is a
	// precondition gate only: either we are already there or we refuse.
	if current == nil || current.Cmp(target) != 0 {
		return nil, fmt.Errorf("cannot switch chain: provider is bound to chain %s", current)
	}
	return json.Marshal(nil)
}

// watch polls the RPC for chain changes and emits change notifications.
// Accounts cannot change under a fixed key, but the channel stays live so
// consumers have one subscription model for every provider kind.
func (p *KeyProvider) watch() {
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), endpointCheckTimeout)
			chainID, err := p.eth.ChainID(ctx)
			cancel()
			if err != nil {
				continue
			}

			p.mu.Lock()
			changed := p.chainID != nil && chainID.Cmp(p.chainID) != 0
			if changed {
				p.chainID = chainID
			}
			p.mu.Unlock()

			if changed {
				fmt.Printf("[Wallet] Chain changed to %s\n", chainID)
				select {
				case p.chainCh <- hexutil.EncodeBig(chainID):
				default:
				}
			}
		}
	}
}

const endpointCheckTimeout = 10 * time.Second

// AccountsChanged implements Provider
func (p *KeyProvider) AccountsChanged() <-chan []string {
	return p.accountsCh
}

// ChainChanged implements Provider
func (p *KeyProvider) ChainChanged() <-chan string {
	return p.chainCh
}

// Close stops the watcher and releases the RPC connection
func (p *KeyProvider) Close() {
	p.stopOnce.Do(func() {
		close(p.stopCh)
	})
	p.rpcClient.Close()
}

func callObjectFrom(params []interface{}) (*CallObject, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("missing call parameter")
	}
	switch v := params[0].(type) {
	case CallObject:
		return &v, nil
	case *CallObject:
		return v, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("invalid call parameter: %w", err)
		}
		var call CallObject
		if err := json.Unmarshal(raw, &call); err != nil {
			return nil, fmt.Errorf("invalid call parameter: %w", err)
		}
		return &call, nil
	}
}

func txObjectFrom(params []interface{}) (*TxObject, error) {
	if len(params) == 0 {
		return nil, fmt.Errorf("missing transaction parameter")
	}
	switch v := params[0].(type) {
	case TxObject:
		return &v, nil
	case *TxObject:
		return v, nil
	default:
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, fmt.Errorf("invalid transaction parameter: %w", err)
		}
		var tx TxObject
		if err := json.Unmarshal(raw, &tx); err != nil {
			return nil, fmt.Errorf("invalid transaction parameter: %w", err)
		}
		return &tx, nil
	}
}
