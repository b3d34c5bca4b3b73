package engine

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tradeforge/backtest/internal/types"
)

type MetricsTestSuite struct {
	suite.Suite
}

func TestMetricsSuite(t *testing.T) {
	suite.Run(t, new(MetricsTestSuite))
}

func curveFromReturns(returns []float64) []types.EquityCurvePoint {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	points := make([]types.EquityCurvePoint, len(returns))

	equity := 10000.0
	peak := equity

	for i, r := range returns {
		equity *= 1 + r
		if equity > peak {
			peak = equity
		}

		points[i] = types.EquityCurvePoint{
			Timestamp:    start.Add(time.Duration(i) * 24 * time.Hour),
			Equity:       equity,
			Drawdown:     (equity/peak - 1) * 100,
			PeriodReturn: r,
		}
	}

	return points
}

func (s *MetricsTestSuite) TestSharpeSignFollowsMeanReturn() {
	up := &types.BacktestResult{EquityCurve: curveFromReturns([]float64{0.01, 0.02, -0.005, 0.015, 0.01})}
	computeMetrics(up, 365)
	s.Greater(up.SharpeRatio, 0.0)

	down := &types.BacktestResult{EquityCurve: curveFromReturns([]float64{-0.01, -0.02, 0.005, -0.015, -0.01})}
	computeMetrics(down, 365)
	s.Less(down.SharpeRatio, 0.0)
}

func (s *MetricsTestSuite) TestSharpeAnnualization() {
	returns := []float64{0.01, 0.02, -0.005, 0.015, 0.01}
	result := &types.BacktestResult{EquityCurve: curveFromReturns(returns)}
	computeMetrics(result, 365)

	mean := meanOf(returns)
	std := stdOf(returns, mean)

	s.InDelta(mean/std*math.Sqrt(365), result.SharpeRatio, 1e-9)
	s.InDelta(std, result.Volatility, 1e-9)
}

func (s *MetricsTestSuite) TestZeroVarianceYieldsZeroRatios() {
	result := &types.BacktestResult{EquityCurve: curveFromReturns([]float64{0, 0, 0, 0})}
	computeMetrics(result, 365)

	s.Zero(result.SharpeRatio)
	s.Zero(result.SortinoRatio)
	s.Zero(result.Volatility)
	s.Zero(result.MaxDrawdown)
	s.Zero(result.CalmarRatio)
}

func (s *MetricsTestSuite) TestSortinoIgnoresUpside() {
	// Same downside, extra upside: Sortino must not decrease.
	base := &types.BacktestResult{EquityCurve: curveFromReturns([]float64{0.01, -0.01, 0.01, -0.01})}
	computeMetrics(base, 365)

	richer := &types.BacktestResult{EquityCurve: curveFromReturns([]float64{0.03, -0.01, 0.03, -0.01})}
	computeMetrics(richer, 365)

	s.Greater(richer.SortinoRatio, base.SortinoRatio)
}

func (s *MetricsTestSuite) TestMaxDrawdownIsWorstTroughFromPeak() {
	result := &types.BacktestResult{
		TotalReturnPct: -16.84,
		EquityCurve:    curveFromReturns([]float64{0.10, -0.20, 0.05, -0.10}),
	}
	computeMetrics(result, 365)

	// After the +10% peak the curve ends at 0.756 of that peak.
	s.InDelta(-24.4, result.MaxDrawdown, 0.01)
	s.Less(result.CalmarRatio, 0.0)
}

func (s *MetricsTestSuite) TestProfitFactorCases() {
	win := types.Trade{ProfitLoss: 100}
	loss := types.Trade{ProfitLoss: -50}

	noTrades := &types.BacktestResult{}
	computeMetrics(noTrades, 365)
	s.Zero(noTrades.ProfitFactor)
	s.Zero(noTrades.WinRate)

	onlyWins := &types.BacktestResult{Trades: []types.Trade{win, win}}
	computeMetrics(onlyWins, 365)
	s.InDelta(profitFactorCap, onlyWins.ProfitFactor, 1e-9)
	s.InDelta(100.0, onlyWins.WinRate, 1e-9)

	onlyLosses := &types.BacktestResult{Trades: []types.Trade{loss, loss}}
	computeMetrics(onlyLosses, 365)
	s.Zero(onlyLosses.ProfitFactor)
	s.Zero(onlyLosses.WinRate)

	mixed := &types.BacktestResult{Trades: []types.Trade{win, loss}}
	computeMetrics(mixed, 365)
	s.InDelta(2.0, mixed.ProfitFactor, 1e-9)
	s.InDelta(50.0, mixed.WinRate, 1e-9)
	s.InDelta(25.0, mixed.Expectancy, 1e-9)
	s.Equal(1, mixed.WinCount)
	s.Equal(1, mixed.LossCount)
	s.Equal(2, mixed.TotalTrades)
}

func (s *MetricsTestSuite) TestMetricsNeverNaN() {
	results := []*types.BacktestResult{
		{},
		{EquityCurve: curveFromReturns([]float64{0.5})},
		{Trades: []types.Trade{{ProfitLoss: 0}}},
	}

	for _, result := range results {
		computeMetrics(result, 365)

		for name, v := range map[string]float64{
			"sharpe":        result.SharpeRatio,
			"sortino":       result.SortinoRatio,
			"calmar":        result.CalmarRatio,
			"volatility":    result.Volatility,
			"max_drawdown":  result.MaxDrawdown,
			"profit_factor": result.ProfitFactor,
			"expectancy":    result.Expectancy,
			"win_rate":      result.WinRate,
		} {
			s.False(math.IsNaN(v), name)
			s.False(math.IsInf(v, 0), name)
		}
	}
}
