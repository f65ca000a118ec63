package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"tron-bridge/config"
	"tron-bridge/pkg/bridge"
	"tron-bridge/pkg/types"
)

var historyLimit int

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show past bridge transfers",
	Long: `Show transfers submitted from this machine, newest first.

Examples:
  tron-bridge history
  tron-bridge history --limit 5
  tron-bridge history --json`,
	Run: runHistory,
}

func init() {
	rootCmd.AddCommand(historyCmd)

	historyCmd.Flags().IntVar(&historyLimit, "limit", 0, "Show at most this many transfers (0 = all)")
}

func runHistory(cmd *cobra.Command, args []string) {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	cfg, err := config.Load()
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	history, err := bridge.NewHistory(cfg.HistoryFile)
	if err != nil {
		printError(err)
		os.Exit(1)
	}

	records := history.List()
	if historyLimit > 0 && len(records) > historyLimit {
		records = records[:historyLimit]
	}

	if jsonOutput {
		jsonData, _ := json.MarshalIndent(records, "", "  ")
		fmt.Println(string(jsonData))
		return
	}

	if len(records) == 0 {
		fmt.Println("\nNo transfers recorded yet.")
		return
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	color.Green("                           TRANSFER HISTORY")
	fmt.Println(strings.Repeat("=", 80))

	for _, record := range records {
		fmt.Printf("\n  %s  %s\n",
			record.CreatedAt.Format("2006-01-02 15:04"),
			statusColor(record.Status))
		fmt.Printf("  %s %s → ~%s %s\n",
			record.Amount, color.YellowString(record.SourceTokenSymbol),
			record.AmountToReceive, color.YellowString(record.DestinationTokenSymbol))
		fmt.Printf("  To:  %s\n", types.ShortenAddress(record.DestinationAddress, 8))
		fmt.Printf("  Tx:  %s\n", color.HiBlackString(record.TxHash))
	}

	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Printf("\nTotal: %d transfers (stored in %s)\n\n", history.Count(), history.GetFilePath())
}

func statusColor(status types.TransferStatusValue) string {
	switch status {
	case types.StatusCompleted:
		return color.GreenString(string(status))
	case types.StatusFailed, types.StatusCancelled:
		return color.RedString(string(status))
	default:
		return color.YellowString(string(status))
	}
}
