package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tron-bridge/config"
	"tron-bridge/pkg/bridge"
	"tron-bridge/pkg/notify"
	"tron-bridge/pkg/parser"
	"tron-bridge/pkg/quote"
	"tron-bridge/pkg/sdk"
	"tron-bridge/pkg/types"
	"tron-bridge/pkg/wallet"
)

var (
	feeMethod string
	noConfirm bool
)

var bridgeCmd = &cobra.Command{
	Use:   "bridge <amount> <source-token> to <tron-address>",
	Short: "Bridge stablecoins from Ethereum to USDT on Tron",
	Long: `Bridge USDC or USDT from Ethereum to USDT on Tron through Allbridge Core.

The command quotes the transfer first and asks for confirmation before any
transaction is signed. If the bridge contract is not yet approved to spend
the source token, an approval transaction is sent first.

The bridge gas fee can be paid in ETH (default) or deducted from the
transferred stablecoin with --fee-method stablecoin.

Examples:
  # Bridge 100 USDT paying the fee in ETH
  tron-bridge bridge 100 USDT to TUqEg3dzVEJNQBVWDYpMoTqkkZTQmAGFM3

  # Bridge 50 USDC paying the fee from the transferred amount
  tron-bridge bridge 50 USDC to TUqEg3dzVEJNQBVWDYpMoTqkkZTQmAGFM3 --fee-method stablecoin

  # Skip the confirmation prompt
  tron-bridge bridge 100 USDT to TUqEg3dzVEJNQBVWDYpMoTqkkZTQmAGFM3 --yes`,
	Args: cobra.MinimumNArgs(1),
	Run:  runBridge,
}

func init() {
	rootCmd.AddCommand(bridgeCmd)

	bridgeCmd.Flags().StringVar(&feeMethod, "fee-method", "native", "Gas fee payment method: native (ETH) or stablecoin")
	bridgeCmd.Flags().BoolVarP(&noConfirm, "yes", "y", false, "Skip confirmation prompts")
}

func runBridge(cmd *cobra.Command, args []string) {
	// Parse the command
	commandStr := strings.Join(args, " ")
	req, symbol, err := parser.ParseBridgeCommand(commandStr)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	switch feeMethod {
	case "native":
		req.FeePaymentMethod = types.FeeWithNativeCurrency
	case "stablecoin":
		req.FeePaymentMethod = types.FeeWithStablecoin
	default:
		printError(fmt.Errorf("invalid fee method '%s'. Use 'native' or 'stablecoin'", feeMethod))
		os.Exit(1)
	}

	verbose, _ := cmd.Flags().GetBool("verbose")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Initialize the bridge service
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " Connecting to bridge service..."
	s.Start()

	client, err := sdk.NewClient(ctx, sdk.Options{
		APIBaseURL:    cfg.APIBaseURL,
		EthEndpoints:  cfg.EthRPCEndpoints,
		TronEndpoints: cfg.TronAPIEndpoints,
		HTTPTimeout:   cfg.QuoteTimeout,
	})
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer client.Close()

	if verbose {
		fmt.Printf("\nDebug: Using Ethereum RPC endpoint %s\n", client.EthEndpoint())
	}

	// Connect the wallet
	provider, err := wallet.NewKeyProvider(wallet.Config{
		RPCEndpoint: client.EthEndpoint(),
		ChainID:     cfg.ChainID,
		Signer: wallet.SignerConfig{
			PrivateKey:       cfg.PrivateKey,
			KeystorePath:     cfg.KeystorePath,
			KeystorePassword: cfg.KeystorePassword,
		},
		ConnectTimeout: cfg.ConnectTimeout,
	})
	if err != nil {
		printError(err)
		os.Exit(1)
	}
	defer provider.Close()

	s.Suffix = " Connecting wallet..."
	s.Start()
	account, err := provider.Connect(ctx)
	s.Stop()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	fmt.Printf("\nConnected wallet: %s (%s signer)\n",
		color.CyanString(types.ShortenAddress(account, 6)), provider.Flavor())

	history, err := bridge.NewHistory(cfg.HistoryFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	notifier := notify.NewTerminal()
	engine := quote.NewEngine(client, notifier, cfg.SlippageBps, cfg.QuoteTimeout)
	orch := bridge.New(bridge.Config{
		SDK:         client,
		Provider:    provider,
		Engine:      engine,
		Notifier:    notifier,
		History:     history,
		SendTimeout: cfg.SendTimeout,
	})
	orch.SetAccount(account)

	// Load the token catalog
	s.Suffix = " Loading tokens..."
	s.Start()
	err = orch.LoadTokens(ctx)
	s.Stop()
	if err != nil {
		os.Exit(1)
	}

	if err := applyRequest(orch, req, symbol); err != nil {
		printError(err)
		os.Exit(1)
	}

	q := fetchQuote(ctx, orch, s)
	displayQuote(q, orch.GasFee(), req.FeePaymentMethod)

	// Ask for confirmation
	if !noConfirm && !cfg.AutoConfirm {
		if !confirm("Proceed with bridge transfer?") {
			fmt.Println("\nTransfer cancelled.")
			os.Exit(0)
		}
	}

	status := submitTransfer(ctx, orch, req, symbol, cfg.AutoConfirm, s)
	displayStatus(status)
}

// applyRequest pushes the parsed request into the orchestrator, resolving
// the token symbol against the loaded catalog
func applyRequest(orch *bridge.Orchestrator, req *types.TransferRequest, symbol string) error {
	tokens := orch.Tokens()
	var source *types.Token
	for i := range tokens.Source {
		if tokens.Source[i].Symbol == symbol {
			source = &tokens.Source[i]
			break
		}
	}
	if source == nil {
		return fmt.Errorf("token %s is not available for bridging. Try: tron-bridge list-tokens", symbol)
	}

	orch.SetSourceToken(source.TokenAddress)
	orch.SetAmount(req.Amount)
	orch.SetDestinationAddress(req.DestinationAddress)
	if req.FeePaymentMethod != types.FeeWithNativeCurrency {
		if err := orch.SetPaymentMethod(req.FeePaymentMethod); err != nil {
			return err
		}
	}
	return nil
}

func fetchQuote(ctx context.Context, orch *bridge.Orchestrator, s *spinner.Spinner) *types.Quote {
	s.Suffix = " Fetching quote..."
	s.Start()
	q, err := orch.RefreshQuote(ctx)
	s.Stop()
	if err != nil {
		os.Exit(1)
	}
	if q == nil {
		printError(fmt.Errorf("could not compute a quote for this transfer"))
		os.Exit(1)
	}
	return q
}

// submitTransfer runs the submit pass and, when a spending approval is
// required, walks through approval and a second pass with a fresh quote
func submitTransfer(ctx context.Context, orch *bridge.Orchestrator, req *types.TransferRequest, symbol string, autoConfirm bool, s *spinner.Spinner) *types.TransferStatus {
	s.Suffix = " Submitting transfer..."
	s.Start()
	status, err := orch.Submit(ctx)
	s.Stop()

	if err == nil {
		return status
	}
	if !errors.Is(err, bridge.ErrApprovalRequired) {
		os.Exit(1)
	}

	if !noConfirm && !autoConfirm {
		if !confirm("Send approval transaction?") {
			fmt.Println("\nTransfer cancelled.")
			os.Exit(0)
		}
	}

	s.Suffix = " Sending approval..."
	s.Start()
	err = orch.Approve(ctx)
	s.Stop()
	if err != nil {
		os.Exit(1)
	}

	// Approval reset the session: rebuild the request and re-quote before
	// the second pass
	if err := applyRequest(orch, req, symbol); err != nil {
		printError(err)
		os.Exit(1)
	}
	fetchQuote(ctx, orch, s)

	s.Suffix = " Submitting transfer..."
	s.Start()
	status, err = orch.Submit(ctx)
	s.Stop()
	if err != nil {
		os.Exit(1)
	}
	return status
}

func displayQuote(q *types.Quote, gasFee *types.GasFeeOptions, method types.FeePaymentMethod) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	color.Green("                    BRIDGE QUOTE")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Printf("\n  Route:             %s\n", q.Route)
	fmt.Printf("  You send:          %s %s\n", q.FromAmount, color.YellowString(q.FromToken.Symbol))
	fmt.Printf("  You receive:       ~%s %s\n", q.ToAmount, color.YellowString(q.ToToken.Symbol))
	fmt.Printf("  Minimum received:  %s %s (%.2f%% slippage)\n",
		q.MinAmountToReceive, q.ToToken.Symbol, float64(q.SlippageToleranceBps)/100)

	if method == types.FeeWithStablecoin && gasFee != nil && gasFee.Stablecoin != nil {
		fmt.Printf("  Bridge fee:        %s %s (deducted from transfer)\n", gasFee.Stablecoin.Float, q.FromToken.Symbol)
	} else if gasFee != nil && gasFee.Native != nil {
		fmt.Printf("  Bridge fee:        %s ETH\n", gasFee.Native.Float)
	}

	fmt.Printf("  Messenger:         %s\n", q.Messenger)
	fmt.Printf("  Estimated time:    ~%d minutes\n", q.TransferTimeMinutes)
	fmt.Printf("  Quote valid until: %s\n", time.Unix(q.Deadline, 0).Format("15:04:05"))

	fmt.Println("\n" + strings.Repeat("=", 60))
}

func displayStatus(status *types.TransferStatus) {
	color.Green("\n✓ Transfer submitted!")
	fmt.Printf("\n  Transaction:     %s\n", color.CyanString(status.TxHash))
	fmt.Printf("  Explorer:        %s\n", types.ExplorerURL(status.TxHash, types.ChainETH))
	fmt.Printf("  Route:           %s\n", status.Route)
	fmt.Printf("  Receiving:       ~%s %s at %s\n",
		status.AmountToReceive, status.DestinationTokenSymbol,
		types.ShortenAddress(status.DestinationAddress, 6))
	fmt.Printf("  Estimated time:  %s\n", status.EstimatedTime)
	fmt.Println("\nYou can review past transfers using:")
	color.Cyan("  tron-bridge history\n")
}

func confirm(prompt string) bool {
	reader := bufio.NewReader(os.Stdin)
	fmt.Printf("\n%s (y/N): ", prompt)

	response, err := reader.ReadString('\n')
	if err != nil {
		return false
	}

	response = strings.TrimSpace(strings.ToLower(response))
	return response == "y" || response == "yes"
}
