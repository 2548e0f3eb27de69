package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Genius-apple/open-alpha/internal/backtest"
	"github.com/Genius-apple/open-alpha/internal/dataset"
	"github.com/Genius-apple/open-alpha/internal/factor"
	"github.com/Genius-apple/open-alpha/pkg/config"
	"github.com/Genius-apple/open-alpha/pkg/logger"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "Evaluate and backtest one factor expression",
	Long: `Evaluates a factor expression over one symbol's candles and runs
the full statistical backtest: IC analysis, quantile spreads, the
long/short portfolio, the composite score and the validity verdict.

Flags:
  -e, --expression  Factor expression (required)
      --symbol      Symbol to test on (default: BTC)
      --interval    Candle interval (default: 1d)
      --periods     Forward return horizon in bars (default: 1)
      --quantiles   Number of quantile buckets (default: 5)
      --start       Start date (YYYY-MM-DD)
      --end         End date (YYYY-MM-DD, inclusive)

Example:
  go run ./cmd/openalpha backtest -e "ts_zscore(close, 20)"
  go run ./cmd/openalpha backtest -e "rank(ts_mean(close, 20) / close)" --symbol ETH
  go run ./cmd/openalpha backtest -e "-ts_returns(close, 5)" --start 2023-01-01 --end 2023-12-31`,
	RunE: runBacktestCommand,
}

var (
	btExpression string
	btSymbol     string
	btInterval   string
	btPeriods    int
	btQuantiles  int
	btStart      string
	btEnd        string
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVarP(&btExpression, "expression", "e", "", "factor expression (required)")
	backtestCmd.Flags().StringVar(&btSymbol, "symbol", "BTC", "symbol to test on")
	backtestCmd.Flags().StringVar(&btInterval, "interval", "1d", "candle interval")
	backtestCmd.Flags().IntVar(&btPeriods, "periods", 1, "forward return horizon in bars")
	backtestCmd.Flags().IntVar(&btQuantiles, "quantiles", 5, "number of quantile buckets")
	backtestCmd.Flags().StringVar(&btStart, "start", "", "start date (YYYY-MM-DD)")
	backtestCmd.Flags().StringVar(&btEnd, "end", "", "end date (YYYY-MM-DD, inclusive)")

	backtestCmd.MarkFlagRequired("expression")
}

func runBacktestCommand(cmd *cobra.Command, args []string) error {
	fmt.Println("=== Open Alpha Backtest ===")

	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Initialize logger
	log := logger.New(cfg)

	// 3. Parse the date range
	var from, to time.Time
	if btStart != "" {
		from, err = time.Parse("2006-01-02", btStart)
		if err != nil {
			return fmt.Errorf("invalid start date: %w", err)
		}
	}
	if btEnd != "" {
		to, err = time.Parse("2006-01-02", btEnd)
		if err != nil {
			return fmt.Errorf("invalid end date: %w", err)
		}
		to = to.AddDate(0, 0, 1).Add(-time.Nanosecond)
	}

	// 4. Load candles
	loader := dataset.NewLoader(cfg.DataDir, log)
	svc := dataset.NewService(loader, cfg.CacheTTL, cfg.CachePurge, log)

	frame, err := svc.Range(btSymbol, btInterval, from, to)
	if err != nil {
		return fmt.Errorf("load candles: %w", err)
	}

	// 5. Evaluate the factor
	raw, err := factor.NewEngine().Evaluate(btExpression, frame)
	if err != nil {
		return fmt.Errorf("evaluate factor: %w", err)
	}
	filled := factor.CleanFill(raw, 0)

	// 6. Run the backtest
	bt, err := backtest.New(frame)
	if err != nil {
		return fmt.Errorf("prepare backtest: %w", err)
	}

	res, err := bt.Run(filled, backtest.Config{Periods: btPeriods, NQuantiles: btQuantiles})
	if err != nil {
		return fmt.Errorf("run backtest: %w", err)
	}
	if res.Insufficient() {
		return fmt.Errorf("backtest aborted: %s", res.Error)
	}

	printBacktestReport(frame, res)
	return nil
}

func printBacktestReport(frame *dataset.Frame, res *backtest.Result) {
	m := res.Metrics

	fmt.Println("\n✅ Backtest Completed")
	fmt.Println(strings.Repeat("=", 60))

	fmt.Println("\n📊 Factor")
	fmt.Printf("Expression:    %s\n", btExpression)
	fmt.Printf("Symbol:        %s (%s)\n", btSymbol, btInterval)
	fmt.Printf("Observations:  %d rows, %d-bar horizon, %d quantiles\n",
		m.NumObservations, m.Periods, m.NQuantiles)
	times := frame.Timestamps()
	if len(times) > 0 {
		fmt.Printf("Period:        %s ~ %s\n",
			times[0].Format("2006-01-02"), times[len(times)-1].Format("2006-01-02"))
	}

	fmt.Println("\n🔬 IC Analysis")
	fmt.Printf("IC Mean:       %+.4f\n", m.ICMean)
	fmt.Printf("IC Std:        %.4f\n", m.ICStd)
	fmt.Printf("ICIR:          %+.4f\n", m.ICIR)
	fmt.Printf("IC > 0:        %.1f%%\n", m.ICPositivePct*100)
	fmt.Printf("t-stat:        %+.2f (p=%.4f)\n", m.TStat, m.PValue)
	fmt.Printf("Autocorr:      %.3f\n", m.FactorAutocorr)
	fmt.Printf("Turnover:      %.1f%%\n", m.Turnover*100)

	fmt.Println("\n💰 Long/Short Portfolio")
	fmt.Printf("Total Return:  %+.2f%%\n", m.TotalReturn*100)
	fmt.Printf("Annual Return: %+.2f%%\n", m.AnnualizedReturn*100)
	fmt.Printf("Volatility:    %.2f%%\n", m.AnnualizedVol*100)
	fmt.Printf("Sharpe Ratio:  %.2f%s\n", m.Sharpe, sharpeBadge(m.Sharpe))
	fmt.Printf("Sortino:       %.2f\n", m.Sortino)
	fmt.Printf("Calmar:        %.2f\n", m.Calmar)
	fmt.Printf("Max Drawdown:  %.2f%%\n", m.MaxDrawdown*100)
	fmt.Printf("Win Rate:      %.1f%% (%d trades)\n", m.WinRate*100, m.NumTrades)
	fmt.Printf("Profit Factor: %.2f\n", m.ProfitFactor)

	fmt.Printf("\n📶 Quantiles (spread %+.4f, monotonic %s)\n",
		m.QuantileSummary.Spread, yesNo(m.QuantileSummary.IsMonotonic))
	fmt.Printf("%-8s  %10s  %8s  %8s  %8s  %6s\n", "Layer", "Mean", "Sharpe", "Total", "Win", "Count")
	fmt.Println(strings.Repeat("-", 58))
	for _, row := range res.Layers {
		fmt.Printf("%-8s  %+9.4f%%  %8.2f  %+7.2f%%  %5.1f%%  %6d\n",
			row.Layer, row.MeanReturn*100, row.Sharpe, row.TotalReturn*100, row.WinRate*100, row.Count)
	}

	fmt.Println("\n🏆 Verdict")
	fmt.Printf("Score:         %d/100\n", m.Score)
	if m.IsValidFactor {
		fmt.Printf("Validity:      ✅ %s\n", m.ValidityReason)
	} else {
		fmt.Printf("Validity:      ❌ %s\n", m.ValidityReason)
	}
	fmt.Printf("Checks:        significance %s | strength %s | sharpe %s | win rate %s | data %s\n",
		yesNo(m.ValidityChecks.ICSignificance),
		yesNo(m.ValidityChecks.ICMeaningful),
		yesNo(m.ValidityChecks.PositiveSharpe),
		yesNo(m.ValidityChecks.AboveRandom),
		yesNo(m.ValidityChecks.SufficientData))
	fmt.Println()
}

func sharpeBadge(sharpe float64) string {
	switch {
	case sharpe > 2.0:
		return " 🌟 (excellent)"
	case sharpe > 1.0:
		return " 👍 (good)"
	default:
		return ""
	}
}

func yesNo(ok bool) string {
	if ok {
		return "✔"
	}
	return "✘"
}
