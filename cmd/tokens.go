package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/briandowns/spinner"
	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tron-bridge/config"
	"tron-bridge/pkg/sdk"
	"tron-bridge/pkg/types"
)

var (
	filterChain  string
	filterSymbol string
)

var tokensCmd = &cobra.Command{
	Use:     "list-tokens",
	Aliases: []string{"tokens", "ls"},
	Short:   "List tokens known to the bridge",
	Long: `List the tokens the Allbridge Core API reports for Ethereum and Tron.

Only USDC and USDT on Ethereum can be bridged by this tool; the full
catalog is shown for reference.

Examples:
  tron-bridge list-tokens
  tron-bridge list-tokens --chain ETH
  tron-bridge list-tokens --symbol USDT`,
	Run: runListTokens,
}

func init() {
	rootCmd.AddCommand(tokensCmd)

	tokensCmd.Flags().StringVar(&filterChain, "chain", "", "Filter by chain symbol (ETH, TRX)")
	tokensCmd.Flags().StringVar(&filterSymbol, "symbol", "", "Filter by token symbol")
}

func runListTokens(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	ctx := context.Background()

	// Get tokens with spinner
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	if !jsonOutput {
		s.Suffix = " Fetching supported tokens..."
		s.Start()
	}

	client, err := sdk.NewClient(ctx, sdk.Options{
		APIBaseURL:    cfg.APIBaseURL,
		EthEndpoints:  cfg.EthRPCEndpoints,
		TronEndpoints: cfg.TronAPIEndpoints,
		HTTPTimeout:   cfg.QuoteTimeout,
	})
	if err != nil {
		if !jsonOutput {
			s.Stop()
		}
		printError(err)
		os.Exit(1)
	}
	defer client.Close()

	catalog, err := client.ChainDetailsMap(ctx)
	if !jsonOutput {
		s.Stop()
	}
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	// Apply filters
	filtered := make(map[types.ChainSymbol][]types.Token)
	for chain, tokens := range catalog {
		if filterChain != "" && !strings.EqualFold(string(chain), filterChain) {
			continue
		}
		for _, token := range tokens {
			if filterSymbol != "" && !strings.Contains(strings.ToUpper(token.Symbol), strings.ToUpper(filterSymbol)) {
				continue
			}
			filtered[chain] = append(filtered[chain], token)
		}
	}

	// Output
	if jsonOutput {
		jsonData, _ := json.MarshalIndent(filtered, "", "  ")
		fmt.Println(string(jsonData))
	} else {
		displayTokens(filtered)
	}
}

func displayTokens(catalog map[types.ChainSymbol][]types.Token) {
	total := 0
	for _, tokens := range catalog {
		total += len(tokens)
	}
	if total == 0 {
		fmt.Println("\nNo tokens found matching the criteria.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	color.Green("                            SUPPORTED TOKENS")
	fmt.Println(strings.Repeat("=", 90))

	// Sort chains alphabetically
	chains := make([]string, 0, len(catalog))
	for chain := range catalog {
		chains = append(chains, string(chain))
	}
	sort.Strings(chains)

	// Display tokens grouped by chain
	for _, chain := range chains {
		color.Cyan("\n%s", types.ChainDisplayName(types.ChainSymbol(chain)))
		fmt.Println(strings.Repeat("-", 90))

		for _, token := range catalog[types.ChainSymbol(chain)] {
			address := token.TokenAddress
			if len(address) > 44 {
				address = address[:41] + "..."
			}

			fmt.Printf("  %-10s  %2d decimals  %s\n",
				color.YellowString(token.Symbol),
				token.Decimals,
				color.HiBlackString(address))
		}
	}

	fmt.Println("\n" + strings.Repeat("=", 90))
	fmt.Printf("\nTotal: %d tokens across %d chains\n\n", total, len(chains))
}
