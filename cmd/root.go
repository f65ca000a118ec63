package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "tron-bridge",
	Short: "A CLI for bridging stablecoins from Ethereum to Tron via Allbridge Core",
	Long: `tron-bridge is a command-line tool that moves USDC and USDT from Ethereum
to USDT on Tron through the Allbridge Core liquidity bridge. It quotes the
transfer, handles the token spending approval, and submits the bridge
transaction from a locally configured signer.

Examples:
  tron-bridge bridge 100 USDT to TUqEg3dzVEJNQBVWDYpMoTqkkZTQmAGFM3
  tron-bridge quote 50 USDC to TUqEg3dzVEJNQBVWDYpMoTqkkZTQmAGFM3
  tron-bridge list-tokens
  tron-bridge history`,
	Version: "0.1.0",
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Add global flags
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().BoolP("json", "j", false, "Output in JSON format")
}

func printError(err error) {
	fmt.Printf("\nError: %v\n\n", err)
}
