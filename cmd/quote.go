package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/spf13/cobra"

	"tron-bridge/config"
	"tron-bridge/pkg/notify"
	"tron-bridge/pkg/parser"
	"tron-bridge/pkg/quote"
	"tron-bridge/pkg/sdk"
	"tron-bridge/pkg/types"
)

var quoteFeeMethod string

var quoteCmd = &cobra.Command{
	Use:   "quote <amount> <source-token> to <tron-address>",
	Short: "Quote a bridge transfer without sending anything",
	Long: `Quote a bridge transfer from Ethereum to Tron without signing or
sending any transaction. No wallet configuration is required.

Examples:
  tron-bridge quote 100 USDT to TUqEg3dzVEJNQBVWDYpMoTqkkZTQmAGFM3
  tron-bridge quote 50 USDC to TUqEg3dzVEJNQBVWDYpMoTqkkZTQmAGFM3 --fee-method stablecoin`,
	Args: cobra.MinimumNArgs(1),
	Run:  runQuote,
}

func init() {
	rootCmd.AddCommand(quoteCmd)

	quoteCmd.Flags().StringVar(&quoteFeeMethod, "fee-method", "native", "Gas fee payment method: native (ETH) or stablecoin")
}

func runQuote(cmd *cobra.Command, args []string) {
	commandStr := strings.Join(args, " ")
	req, symbol, err := parser.ParseBridgeCommand(commandStr)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	switch quoteFeeMethod {
	case "native":
		req.FeePaymentMethod = types.FeeWithNativeCurrency
	case "stablecoin":
		req.FeePaymentMethod = types.FeeWithStablecoin
	default:
		printError(fmt.Errorf("invalid fee method '%s'. Use 'native' or 'stablecoin'", quoteFeeMethod))
		os.Exit(1)
	}

	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx := context.Background()

	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Connecting to bridge service..."
		s.Start()
	}

	client, err := sdk.NewClient(ctx, sdk.Options{
		APIBaseURL:    cfg.APIBaseURL,
		EthEndpoints:  cfg.EthRPCEndpoints,
		TronEndpoints: cfg.TronAPIEndpoints,
		HTTPTimeout:   cfg.QuoteTimeout,
	})
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer client.Close()

	if !jsonOutput {
		s.Suffix = " Fetching quote..."
		s.Start()
	}

	q, gasFee, err := quoteOnce(ctx, client, cfg, req, symbol)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	if jsonOutput {
		output := map[string]interface{}{
			"route":              q.Route,
			"from_amount":        q.FromAmount,
			"to_amount":          q.ToAmount,
			"min_amount":         q.MinAmountToReceive,
			"slippage_bps":       q.SlippageToleranceBps,
			"messenger":          q.Messenger,
			"transfer_minutes":   q.TransferTimeMinutes,
			"deadline":           q.Deadline,
			"gas_fee_native":     q.GasFeeNative,
			"gas_fee_stablecoin": q.GasFeeStablecoin,
			"payment_method":     q.PaymentMethod,
		}
		jsonData, _ := json.MarshalIndent(output, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	displayQuote(q, gasFee, req.FeePaymentMethod)
}

// quoteOnce loads the catalog, resolves the requested token, and computes
// a single quote through the engine
func quoteOnce(ctx context.Context, client *sdk.Client, cfg *config.Config, req *types.TransferRequest, symbol string) (*types.Quote, *types.GasFeeOptions, error) {
	catalog, err := client.ChainDetailsMap(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load available tokens: %w", err)
	}

	var tokens types.TokenSet
	for _, token := range catalog[types.ChainETH] {
		if token.Symbol == "USDC" || token.Symbol == "USDT" {
			tokens.Source = append(tokens.Source, token)
		}
	}
	for _, token := range catalog[types.ChainTRX] {
		if token.Symbol == "USDT" {
			destination := token
			tokens.Destination = &destination
			break
		}
	}

	var source *types.Token
	for i := range tokens.Source {
		if tokens.Source[i].Symbol == symbol {
			source = &tokens.Source[i]
			break
		}
	}
	if source == nil {
		return nil, nil, fmt.Errorf("token %s is not available for bridging", symbol)
	}
	req.SourceTokenAddress = source.TokenAddress

	engine := quote.NewEngine(client, notify.Discard{}, cfg.SlippageBps, cfg.QuoteTimeout)
	q, err := engine.GetQuote(ctx, *req, &tokens)
	if err != nil {
		return nil, nil, err
	}
	if q == nil {
		return nil, nil, fmt.Errorf("could not compute a quote for this transfer")
	}
	return q, engine.GasFeeOptions(), nil
}
