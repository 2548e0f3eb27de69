package backtest

import "time"

// chartRows caps how many rows the chart series carries.
const chartRows = 500

// chartPoints assembles the date-keyed chart rows from the portfolio
// and IC series, keeping the trailing chartRows rows and forcing every
// value finite.
func chartPoints(times []time.Time, port portfolioResult, ic icResult) []ChartPoint {
	n := len(times)
	start := 0
	if n > chartRows {
		start = n - chartRows
	}

	out := make([]ChartPoint, 0, n-start)
	for i := start; i < n; i++ {
		out = append(out, ChartPoint{
			Date:         times[i].Format("2006-01-02"),
			Equity:       safeFloat(port.equity[i]),
			Drawdown:     safeFloat(port.drawdown[i]),
			RollingIC:    safeFloat(ic.rollingIC[i]),
			CumulativeIC: safeFloat(ic.cumulativeIC[i]),
			RollingICIR:  safeFloat(ic.rollingICIR[i]),
		})
	}
	return out
}
