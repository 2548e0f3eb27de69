package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Genius-apple/open-alpha/internal/dataset"
	"github.com/Genius-apple/open-alpha/pkg/config"
	"github.com/Genius-apple/open-alpha/pkg/logger"
)

// dataCmd represents the data command
var dataCmd = &cobra.Command{
	Use:   "data",
	Short: "List the available candle data",
	Long: `Scans the data directory and prints every symbol and interval with
its row count and date range.

Example:
  go run ./cmd/openalpha data`,
	RunE: runDataCommand,
}

func init() {
	rootCmd.AddCommand(dataCmd)
}

func runDataCommand(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Open Alpha Data Catalog ===")

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.New(cfg)

	loader := dataset.NewLoader(cfg.DataDir, log)
	svc := dataset.NewService(loader, cfg.CacheTTL, cfg.CachePurge, log)

	catalog, err := svc.Catalog()
	if err != nil {
		return fmt.Errorf("scan data directory: %w", err)
	}

	fmt.Printf("\nData directory: %s\n\n", cfg.DataDir)
	if len(catalog) == 0 {
		fmt.Println("No candle files found.")
		return nil
	}

	symbols := make([]string, 0, len(catalog))
	for symbol := range catalog {
		symbols = append(symbols, symbol)
	}
	sort.Strings(symbols)

	fmt.Printf("%-10s  %-9s  %8s  %-12s  %-12s\n", "SYMBOL", "INTERVAL", "ROWS", "FROM", "TO")
	fmt.Println(strings.Repeat("-", 58))

	series := 0
	for _, symbol := range symbols {
		intervals := append([]string(nil), catalog[symbol]...)
		sort.Strings(intervals)
		for _, interval := range intervals {
			series++
			frame, err := svc.Frame(symbol, interval)
			if err != nil {
				fmt.Printf("%-10s  %-9s  %8s  %s\n", symbol, interval, "-", err)
				continue
			}
			times := frame.Timestamps()
			from, to := "-", "-"
			if len(times) > 0 {
				from = times[0].Format("2006-01-02")
				to = times[len(times)-1].Format("2006-01-02")
			}
			fmt.Printf("%-10s  %-9s  %8d  %-12s  %-12s\n", symbol, interval, frame.Len(), from, to)
		}
	}

	fmt.Printf("\n%d symbols, %d series\n", len(symbols), series)
	return nil
}
