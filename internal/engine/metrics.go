package engine

import (
	"math"

	"github.com/tradeforge/backtest/internal/types"
)

// profitFactorCap replaces the ratio when a run has profits but no
// losing trades, keeping the metric finite for ranking and storage.
const profitFactorCap = 999.0

// computeMetrics fills the aggregate performance fields of a result from
// its equity curve and trade list. Runs with no closed trades or a flat
// equity curve get zeroes, never NaN or Inf.
func computeMetrics(result *types.BacktestResult, periodsPerYear float64) {
	returns := make([]float64, 0, len(result.EquityCurve))
	maxDrawdown := 0.0

	for _, p := range result.EquityCurve {
		returns = append(returns, p.PeriodReturn)

		if p.Drawdown < maxDrawdown {
			maxDrawdown = p.Drawdown
		}
	}

	result.MaxDrawdown = maxDrawdown

	mean := meanOf(returns)
	std := stdOf(returns, mean)

	if std > 0 {
		result.SharpeRatio = mean / std * math.Sqrt(periodsPerYear)
	}

	downside := downsideDeviation(returns)
	if downside > 0 {
		result.SortinoRatio = mean / downside * math.Sqrt(periodsPerYear)
	}

	result.Volatility = std

	if maxDrawdown < 0 {
		result.CalmarRatio = result.TotalReturnPct / math.Abs(maxDrawdown)
	}

	closed := result.ClosedTrades()
	result.TotalTrades = len(closed)

	var grossProfit, grossLoss, totalPnL float64

	for _, t := range closed {
		totalPnL += t.ProfitLoss

		if t.ProfitLoss > 0 {
			result.WinCount++
			grossProfit += t.ProfitLoss
		} else {
			result.LossCount++
			grossLoss += -t.ProfitLoss
		}
	}

	if len(closed) > 0 {
		result.WinRate = float64(result.WinCount) / float64(len(closed)) * 100
		result.Expectancy = totalPnL / float64(len(closed))
	}

	switch {
	case grossProfit == 0:
		result.ProfitFactor = 0
	case grossLoss == 0:
		result.ProfitFactor = profitFactorCap
	default:
		pf := grossProfit / grossLoss
		if pf > profitFactorCap {
			pf = profitFactorCap
		}

		result.ProfitFactor = pf
	}
}

func meanOf(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		sum += v
	}

	return sum / float64(len(values))
}

func stdOf(values []float64, mean float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sum := 0.0
	for _, v := range values {
		d := v - mean
		sum += d * d
	}

	return math.Sqrt(sum / float64(len(values)))
}

// downsideDeviation is the root mean square of negative returns over the
// whole sample, the denominator of the Sortino ratio.
func downsideDeviation(returns []float64) float64 {
	if len(returns) == 0 {
		return 0
	}

	sum := 0.0
	for _, r := range returns {
		if r < 0 {
			sum += r * r
		}
	}

	return math.Sqrt(sum / float64(len(returns)))
}
