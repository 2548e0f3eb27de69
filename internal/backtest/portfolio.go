package backtest

import "math"

// portfolioResult carries the long/short portfolio outputs. equity and
// drawdown span every aligned row, including rows without a position.
type portfolioResult struct {
	equity   []float64
	drawdown []float64

	totalReturn      float64
	annualizedReturn float64
	annualizedVol    float64
	sharpe           float64
	sortino          float64
	calmar           float64
	maxDrawdown      float64
	winRate          float64
	profitFactor     float64
	avgWin           float64
	avgLoss          float64
	numTrades        int
}

// portfolioMetrics simulates holding +1 in the top factor bucket and -1
// in the bottom bucket, then derives performance statistics from the
// resulting return stream.
func portfolioMetrics(factor, rets []float64, cfg Config) portfolioResult {
	n := len(factor)
	buckets := assignBuckets(factor, cfg.NQuantiles)

	maxQ, minQ := buckets[0], buckets[0]
	for _, b := range buckets {
		if b > maxQ {
			maxQ = b
		}
		if b < minQ {
			minQ = b
		}
	}

	// Strategy returns. The short side wins when every row shares one
	// bucket, so minQ is matched first.
	strategyRets := make([]float64, n)
	var active []float64
	for i, b := range buckets {
		switch b {
		case minQ:
			strategyRets[i] = -rets[i]
		case maxQ:
			strategyRets[i] = rets[i]
		}
		if strategyRets[i] != 0 {
			active = append(active, strategyRets[i])
		}
	}

	// Equity curve and drawdown
	equity := make([]float64, n)
	drawdown := make([]float64, n)
	cum := 1.0
	peak := math.Inf(-1)
	maxDD := 0.0
	for i, r := range strategyRets {
		cum *= 1 + r
		equity[i] = cum
		if cum > peak {
			peak = cum
		}
		drawdown[i] = (cum - peak) / peak
		if drawdown[i] < maxDD {
			maxDD = drawdown[i]
		}
	}

	// Total and annualized return
	totalReturn := 0.0
	if n > 0 {
		totalReturn = equity[n-1] - 1
	}
	annualizedReturn := 0.0
	if n > 0 {
		years := float64(n) / float64(cfg.AnnualizationFactor)
		annualizedReturn = math.Pow(1+totalReturn, 1/years) - 1
	}

	// Volatility and risk-adjusted ratios over active rows only
	sqrtAnnual := math.Sqrt(float64(cfg.AnnualizationFactor))
	dailyVol := sampleStd(active)
	meanRet := sampleMean(active)

	sharpe := 0.0
	if dailyVol > 0 {
		sharpe = meanRet / dailyVol * sqrtAnnual
	}

	var downside []float64
	for _, r := range active {
		if r < 0 {
			downside = append(downside, r)
		}
	}
	downsideStd := sampleStd(downside)
	sortino := 0.0
	if downsideStd > 0 {
		sortino = meanRet / downsideStd * sqrtAnnual
	}

	calmar := 0.0
	if maxDD != 0 {
		calmar = annualizedReturn / math.Abs(maxDD)
	}

	// Win rate and profit factor
	winSum, lossSum := 0.0, 0.0
	wins, losses := 0, 0
	for _, r := range active {
		if r > 0 {
			wins++
			winSum += r
		} else if r < 0 {
			losses++
			lossSum += r
		}
	}

	winRate := 0.5
	if len(active) > 0 {
		winRate = float64(wins) / float64(len(active))
	}

	profitFactor := 10.0
	if lossSum < 0 {
		profitFactor = winSum / -lossSum
	}
	if profitFactor > 99.9 {
		profitFactor = 99.9
	}

	avgWin := 0.0
	if wins > 0 {
		avgWin = winSum / float64(wins)
	}
	avgLoss := 0.0
	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}

	return portfolioResult{
		equity:           equity,
		drawdown:         drawdown,
		totalReturn:      safeFloat(totalReturn),
		annualizedReturn: safeFloat(annualizedReturn),
		annualizedVol:    safeFloat(dailyVol * sqrtAnnual),
		sharpe:           safeFloat(sharpe),
		sortino:          safeFloat(sortino),
		calmar:           safeFloat(calmar),
		maxDrawdown:      safeFloat(maxDD),
		winRate:          safeFloat(winRate),
		profitFactor:     safeFloat(profitFactor),
		avgWin:           safeFloat(avgWin),
		avgLoss:          safeFloat(avgLoss),
		numTrades:        len(active),
	}
}
