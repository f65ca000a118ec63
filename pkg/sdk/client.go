package sdk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/ethclient"

	"tron-bridge/pkg/types"
)

const endpointProbeTimeout = 5 * time.Second

// Options configures the Allbridge Core client
type Options struct {
	APIBaseURL    string
	EthEndpoints  []string
	TronEndpoints []string
	HTTPTimeout   time.Duration
}

// Client implements SDK against the Allbridge Core API, with on-chain
// reads and calldata building over the selected Ethereum RPC endpoint.
type Client struct {
	http         *http.Client
	baseURL      string
	eth          *ethclient.Client
	ethEndpoint  string
	tronEndpoint string
	erc20ABI     abi.ABI
	bridgeABI    abi.ABI
}

// NewClient probes the configured endpoint allow-lists in order, keeps the
// first healthy Ethereum RPC and Tron API endpoint, and returns a ready
// client. Endpoint selection happens once per session.
func NewClient(ctx context.Context, opts Options) (*Client, error) {
	if opts.APIBaseURL == "" {
		return nil, fmt.Errorf("bridge API base URL is required")
	}
	timeout := opts.HTTPTimeout
	if timeout <= 0 {
		timeout = 45 * time.Second
	}

	c := &Client{
		http:    &http.Client{Timeout: timeout},
		baseURL: strings.TrimSuffix(opts.APIBaseURL, "/"),
	}

	var err error
	if c.erc20ABI, err = abi.JSON(strings.NewReader(erc20ABIJSON)); err != nil {
		return nil, fmt.Errorf("failed to parse ERC20 ABI: %w", err)
	}
	if c.bridgeABI, err = abi.JSON(strings.NewReader(bridgeABIJSON)); err != nil {
		return nil, fmt.Errorf("failed to parse bridge ABI: %w", err)
	}

	for _, endpoint := range opts.EthEndpoints {
		client, probeErr := probeEthEndpoint(ctx, endpoint)
		if probeErr != nil {
			fmt.Printf("[SDK] Ethereum endpoint %s failed: %v\n", endpoint, probeErr)
			continue
		}
		c.eth = client
		c.ethEndpoint = endpoint
		break
	}
	if c.eth == nil {
		return nil, fmt.Errorf("bridge service initialization failed: no working Ethereum RPC endpoint")
	}

	for _, endpoint := range opts.TronEndpoints {
		if probeErr := c.probeTronEndpoint(ctx, endpoint); probeErr != nil {
			fmt.Printf("[SDK] Tron endpoint %s failed: %v\n", endpoint, probeErr)
			continue
		}
		c.tronEndpoint = endpoint
		break
	}
	if c.tronEndpoint == "" {
		return nil, fmt.Errorf("bridge service initialization failed: no working Tron API endpoint")
	}

	return c, nil
}

func probeEthEndpoint(ctx context.Context, endpoint string) (*ethclient.Client, error) {
	probeCtx, cancel := context.WithTimeout(ctx, endpointProbeTimeout)
	defer cancel()

	client, err := ethclient.DialContext(probeCtx, endpoint)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}
	if _, err := client.ChainID(probeCtx); err != nil {
		client.Close()
		return nil, fmt.Errorf("endpoint not responding: %w", err)
	}
	return client, nil
}

func (c *Client) probeTronEndpoint(ctx context.Context, endpoint string) error {
	probeCtx, cancel := context.WithTimeout(ctx, endpointProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet,
		strings.TrimSuffix(endpoint, "/")+"/wallet/getnowblock", nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("endpoint not responding: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("endpoint returned status %d", resp.StatusCode)
	}

	var block struct {
		BlockHeader json.RawMessage `json:"block_header"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&block); err != nil {
		return fmt.Errorf("invalid response: %w", err)
	}
	if len(block.BlockHeader) == 0 {
		return fmt.Errorf("invalid Tron API response")
	}
	return nil
}

// EthEndpoint returns the selected Ethereum RPC endpoint
func (c *Client) EthEndpoint() string {
	return c.ethEndpoint
}

// Close releases the underlying RPC connection
func (c *Client) Close() {
	if c.eth != nil {
		c.eth.Close()
	}
}

type apiToken struct {
	Symbol        string `json:"symbol"`
	Name          string `json:"name"`
	Decimals      int    `json:"decimals"`
	TokenAddress  string `json:"tokenAddress"`
	BridgeAddress string `json:"bridgeAddress"`
}

// ChainDetailsMap fetches the token catalog from the Core API
func (c *Client) ChainDetailsMap(ctx context.Context) (map[types.ChainSymbol][]types.Token, error) {
	var raw map[string]struct {
		Tokens []apiToken `json:"tokens"`
	}
	if err := c.getJSON(ctx, "/token-info", nil, &raw); err != nil {
		return nil, fmt.Errorf("failed to get tokens: %w", err)
	}

	catalog := make(map[types.ChainSymbol][]types.Token, len(raw))
	for chain, details := range raw {
		symbol := types.ChainSymbol(chain)
		tokens := make([]types.Token, 0, len(details.Tokens))
		for _, t := range details.Tokens {
			tokens = append(tokens, types.Token{
				Symbol:        t.Symbol,
				Name:          t.Name,
				Chain:         symbol,
				TokenAddress:  t.TokenAddress,
				Decimals:      t.Decimals,
				BridgeAddress: t.BridgeAddress,
			})
		}
		catalog[symbol] = tokens
	}
	return catalog, nil
}

// GetAmountToBeReceived returns the gross receivable amount for a transfer
func (c *Client) GetAmountToBeReceived(ctx context.Context, amount string, from, to types.Token) (string, error) {
	query := url.Values{}
	query.Set("amount", amount)
	query.Set("sourceChain", string(from.Chain))
	query.Set("sourceToken", from.TokenAddress)
	query.Set("destinationChain", string(to.Chain))
	query.Set("destinationToken", to.TokenAddress)

	var result struct {
		Amount string `json:"amount"`
	}
	if err := c.getJSON(ctx, "/receive-amount", query, &result); err != nil {
		return "", fmt.Errorf("failed to get receive amount: %w", err)
	}
	if result.Amount == "" {
		return "", fmt.Errorf("empty receive amount response")
	}
	return result.Amount, nil
}

// GetGasFeeOptions returns the fee options for a route and messenger
func (c *Client) GetGasFeeOptions(ctx context.Context, from, to types.Token, messenger types.Messenger) (*types.GasFeeOptions, error) {
	query := routeQuery(from, to, messenger)

	var options types.GasFeeOptions
	if err := c.getJSON(ctx, "/gas-fee-options", query, &options); err != nil {
		return nil, fmt.Errorf("failed to get gas fee options: %w", err)
	}
	if options.Native == nil && options.Stablecoin == nil {
		return nil, fmt.Errorf("empty gas fee options response")
	}
	return &options, nil
}

// GetAverageTransferTime returns the expected settlement time for a route
func (c *Client) GetAverageTransferTime(ctx context.Context, from, to types.Token, messenger types.Messenger) (time.Duration, error) {
	query := routeQuery(from, to, messenger)

	var result struct {
		AverageTimeMs int64 `json:"averageTimeMs"`
	}
	if err := c.getJSON(ctx, "/transfer-time", query, &result); err != nil {
		return 0, fmt.Errorf("failed to get transfer time: %w", err)
	}
	if result.AverageTimeMs <= 0 {
		return 0, fmt.Errorf("invalid transfer time response: %d", result.AverageTimeMs)
	}
	return time.Duration(result.AverageTimeMs) * time.Millisecond, nil
}

func routeQuery(from, to types.Token, messenger types.Messenger) url.Values {
	query := url.Values{}
	query.Set("sourceChain", string(from.Chain))
	query.Set("sourceToken", from.TokenAddress)
	query.Set("destinationChain", string(to.Chain))
	query.Set("destinationToken", to.TokenAddress)
	query.Set("messenger", string(messenger))
	return query
}

func (c *Client) getJSON(ctx context.Context, path string, query url.Values, v interface{}) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return readAPIError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// readAPIError extracts the actual error message from an API response
func readAPIError(resp *http.Response) error {
	body, err := io.ReadAll(resp.Body)
	if err != nil || len(body) == 0 {
		return fmt.Errorf("API returned status code %d", resp.StatusCode)
	}

	var errorResp map[string]interface{}
	if jsonErr := json.Unmarshal(body, &errorResp); jsonErr == nil {
		if message, ok := errorResp["message"].(string); ok {
			return fmt.Errorf("API error (status %d): %s", resp.StatusCode, message)
		}
	}
	return fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(body))
}
