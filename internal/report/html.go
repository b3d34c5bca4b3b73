package report

import (
	"html/template"
	"os"
	"strings"
	"time"

	"github.com/tradeforge/backtest/internal/types"
	"github.com/tradeforge/backtest/pkg/errors"
)

var reportTemplate = template.Must(template.New("report").Parse(`<!DOCTYPE html>
<html>
<head>
<meta charset="utf-8">
<title>{{.Symbol}} {{.StrategyName}} Backtest Report</title>
<style>
body { font-family: sans-serif; margin: 2em; color: #222; }
h1 { border-bottom: 2px solid #444; padding-bottom: 0.3em; }
h2 { margin-top: 1.5em; }
table { border-collapse: collapse; margin-top: 0.5em; }
td, th { border: 1px solid #ccc; padding: 0.4em 0.9em; text-align: left; }
th { background: #f2f2f2; }
.negative { color: #b00020; }
.positive { color: #1b6e20; }
</style>
</head>
<body>
<h1>{{.Symbol}} / {{.StrategyName}}</h1>
<p>{{.StartDate}} to {{.EndDate}} on {{.Timeframes}}</p>

<h2>Performance Summary</h2>
<table>
<tr><th>Initial Capital</th><td>{{printf "%.2f" .InitialCapital}}</td></tr>
<tr><th>Final Equity</th><td>{{printf "%.2f" .FinalEquity}}</td></tr>
<tr><th>Total Return</th><td>{{printf "%.2f" .TotalReturnPct}}%</td></tr>
<tr><th>Max Drawdown</th><td class="negative">{{printf "%.2f" .MaxDrawdown}}%</td></tr>
<tr><th>Sharpe Ratio</th><td>{{printf "%.2f" .SharpeRatio}}</td></tr>
<tr><th>Sortino Ratio</th><td>{{printf "%.2f" .SortinoRatio}}</td></tr>
<tr><th>Calmar Ratio</th><td>{{printf "%.2f" .CalmarRatio}}</td></tr>
<tr><th>Volatility</th><td>{{printf "%.4f" .Volatility}}</td></tr>
<tr><th>Profit Factor</th><td>{{printf "%.2f" .ProfitFactor}}</td></tr>
<tr><th>Expectancy</th><td>{{printf "%.2f" .Expectancy}}</td></tr>
</table>

<h2>Trade Analysis</h2>
<h3>Trade Statistics</h3>
<table>
<tr><th>Total Trades</th><td>{{.TotalTrades}}</td></tr>
<tr><th>Winning Trades</th><td>{{.WinCount}}</td></tr>
<tr><th>Losing Trades</th><td>{{.LossCount}}</td></tr>
<tr><th>Win Rate</th><td>{{printf "%.2f" .WinRate}}%</td></tr>
<tr><th>Average Win</th><td class="positive">{{printf "%.2f" .AverageWin}}</td></tr>
<tr><th>Average Loss</th><td class="negative">{{printf "%.2f" .AverageLoss}}</td></tr>
</table>

{{if .PlotFile}}
<h2>Charts</h2>
<p><a href="{{.PlotFile}}">Interactive charts</a></p>
{{end}}

{{if .TradeLogFile}}
<p><a href="{{.TradeLogFile}}">Trade log (CSV)</a></p>
{{end}}
</body>
</html>
`))

type reportData struct {
	Symbol         string
	StrategyName   string
	Timeframes     string
	StartDate      string
	EndDate        string
	InitialCapital float64
	FinalEquity    float64
	TotalReturnPct float64
	MaxDrawdown    float64
	SharpeRatio    float64
	SortinoRatio   float64
	CalmarRatio    float64
	Volatility     float64
	ProfitFactor   float64
	Expectancy     float64
	TotalTrades    int
	WinCount       int
	LossCount      int
	WinRate        float64
	AverageWin     float64
	AverageLoss    float64
	PlotFile       string
	TradeLogFile   string
}

// WriteHTML renders the performance report to path. plotFile and
// tradeLogFile, when non-empty, are linked relative to the report.
func WriteHTML(result *types.BacktestResult, plotFile, tradeLogFile, path string) error {
	avgWin, avgLoss := averageTradeOutcomes(result)

	data := reportData{
		Symbol:         result.Symbol,
		StrategyName:   result.StrategyName,
		Timeframes:     strings.Join(result.Timeframes, ", "),
		StartDate:      result.StartDate.UTC().Format(time.DateOnly),
		EndDate:        result.EndDate.UTC().Format(time.DateOnly),
		InitialCapital: result.InitialCapital,
		FinalEquity:    result.FinalEquity,
		TotalReturnPct: result.TotalReturnPct,
		MaxDrawdown:    result.MaxDrawdown,
		SharpeRatio:    result.SharpeRatio,
		SortinoRatio:   result.SortinoRatio,
		CalmarRatio:    result.CalmarRatio,
		Volatility:     result.Volatility,
		ProfitFactor:   result.ProfitFactor,
		Expectancy:     result.Expectancy,
		TotalTrades:    result.TotalTrades,
		WinCount:       result.WinCount,
		LossCount:      result.LossCount,
		WinRate:        result.WinRate,
		AverageWin:     avgWin,
		AverageLoss:    avgLoss,
		PlotFile:       plotFile,
		TradeLogFile:   tradeLogFile,
	}

	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to create report %q", path)
	}
	defer f.Close()

	if err := reportTemplate.Execute(f, data); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to render report", err)
	}

	return nil
}

func averageTradeOutcomes(result *types.BacktestResult) (avgWin, avgLoss float64) {
	var winSum, lossSum float64
	var wins, losses int

	for _, t := range result.ClosedTrades() {
		if t.ProfitLoss > 0 {
			winSum += t.ProfitLoss
			wins++
		} else {
			lossSum += t.ProfitLoss
			losses++
		}
	}

	if wins > 0 {
		avgWin = winSum / float64(wins)
	}

	if losses > 0 {
		avgLoss = lossSum / float64(losses)
	}

	return avgWin, avgLoss
}
