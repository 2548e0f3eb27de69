package commands

import (
	"github.com/spf13/cobra"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "openalpha",
	Short: "Open Alpha - factor research platform",
	Long: `Open Alpha CLI

Evaluate factor expressions over OHLCV data and grade them with a
statistical backtest: IC analysis, quantile spreads, a long/short
portfolio and a composite quality score.

Usage:
  go run ./cmd/openalpha [command]

Examples:
  go run ./cmd/openalpha api
  go run ./cmd/openalpha backtest -e "rank(ts_mean(close, 20))"
  go run ./cmd/openalpha data`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}
