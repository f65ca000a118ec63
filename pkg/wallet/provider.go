package wallet

import (
	"context"
	"encoding/json"
)

// JSON-RPC methods the provider serves
const (
	MethodRequestAccounts = "eth_requestAccounts"
	MethodAccounts        = "eth_accounts"
	MethodChainID         = "eth_chainId"
	MethodCall            = "eth_call"
	MethodSendTransaction = "eth_sendTransaction"
	MethodSwitchChain     = "wallet_switchEthereumChain"
)

// Provider is the wallet capability set: a request dispatcher plus
// change notifications for accounts and chain. The concrete
// implementation is selected once at connect time, never per call.
type Provider interface {
	Request(ctx context.Context, method string, params ...interface{}) (json.RawMessage, error)
	AccountsChanged() <-chan []string
	ChainChanged() <-chan string
	Close()
}

// TxObject is the eth_sendTransaction wire parameter. Value is hex encoded.
type TxObject struct {
	From  string `json:"from"`
	To    string `json:"to"`
	Data  string `json:"data"`
	Value string `json:"value"`
}

// CallObject is the eth_call wire parameter
type CallObject struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// SwitchChainParam is the wallet_switchEthereumChain wire parameter
type SwitchChainParam struct {
	ChainID string `json:"chainId"`
}
