package report_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tradeforge/backtest/internal/report"
	"github.com/tradeforge/backtest/internal/types"
)

type ReportTestSuite struct {
	suite.Suite
}

func TestReportSuite(t *testing.T) {
	suite.Run(t, new(ReportTestSuite))
}

func sampleResult() *types.BacktestResult {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	curve := make([]types.EquityCurvePoint, 10)
	for i := range curve {
		curve[i] = types.EquityCurvePoint{
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Equity:    10000 + float64(i)*50,
			Drawdown:  -float64(i % 3),
		}
	}

	return &types.BacktestResult{
		Symbol:         "BTCUSDT",
		StrategyName:   "sample",
		Timeframes:     []string{"1h"},
		StartDate:      start,
		EndDate:        start.Add(10 * time.Hour),
		InitialCapital: 10000,
		FinalEquity:    10450,
		TotalReturnPct: 4.5,
		TotalTrades:    2,
		WinCount:       1,
		LossCount:      1,
		WinRate:        50,
		MaxDrawdown:    -2,
		SharpeRatio:    1.3,
		SortinoRatio:   1.9,
		CalmarRatio:    2.25,
		ProfitFactor:   3.0,
		Expectancy:     100,
		Volatility:     0.01,
		Trades: []types.Trade{
			{ID: "t1", Side: types.SideBuy, Timestamp: start, Price: 100, Quantity: 1, EntryPoint: true},
			{ID: "t2", Side: types.SideSell, Timestamp: start.Add(time.Hour), Price: 103, Quantity: 1, ProfitLoss: 300},
			{ID: "t3", Side: types.SideBuy, Timestamp: start.Add(2 * time.Hour), Price: 104, Quantity: 1, EntryPoint: true},
			{ID: "t4", Side: types.SideSell, Timestamp: start.Add(3 * time.Hour), Price: 103, Quantity: 1, ProfitLoss: -100},
		},
		EquityCurve: curve,
	}
}

func (s *ReportTestSuite) TestWriteHTMLContainsSummarySections() {
	path := filepath.Join(s.T().TempDir(), "report.html")

	err := report.WriteHTML(sampleResult(), "plot.html", "trades.csv", path)
	s.Require().NoError(err)

	data, err := os.ReadFile(path)
	s.Require().NoError(err)

	html := string(data)

	for _, label := range []string{
		"Performance Summary",
		"Initial Capital",
		"Total Return",
		"Max Drawdown",
		"Sharpe Ratio",
		"Sortino Ratio",
		"Calmar Ratio",
		"Volatility",
		"Profit Factor",
		"Expectancy",
		"Trade Analysis",
		"Trade Statistics",
		"Winning Trades",
		"Losing Trades",
		"Win Rate",
		"Average Win",
		"Average Loss",
	} {
		s.Contains(html, label)
	}

	s.Contains(html, "4.50")
	s.Contains(html, "plot.html")
	s.Contains(html, "trades.csv")
}

func (s *ReportTestSuite) TestWriteHTMLAverages() {
	path := filepath.Join(s.T().TempDir(), "report.html")

	err := report.WriteHTML(sampleResult(), "", "", path)
	s.Require().NoError(err)

	data, err := os.ReadFile(path)
	s.Require().NoError(err)

	html := string(data)
	s.Contains(html, "300.00", "average win over one winning trade")
	s.Contains(html, "-100.00", "average loss over one losing trade")
}

func (s *ReportTestSuite) TestEChartsCanvasRendersAllPanels() {
	result := sampleResult()

	canvas := report.NewEChartsPlotter().NewCanvas("BTCUSDT / sample")
	canvas.AddEquityCurve(result.EquityCurve)
	canvas.AddDrawdown(result.EquityCurve)
	canvas.AddTradeMarkers(result.Trades)

	timestamps := make([]time.Time, len(result.EquityCurve))
	values := make([]float64, len(result.EquityCurve))

	for i, p := range result.EquityCurve {
		timestamps[i] = p.Timestamp
		values[i] = 50 + float64(i)
	}

	canvas.AddIndicatorPanel("rsi", timestamps, values)

	path := filepath.Join(s.T().TempDir(), "plot.html")
	s.Require().NoError(canvas.Save(path))

	data, err := os.ReadFile(path)
	s.Require().NoError(err)

	html := string(data)
	s.Contains(html, "Equity Curve")
	s.Contains(html, "Drawdown")
	s.Contains(html, "Trade Executions")
	s.Contains(html, "rsi")
}
