package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// EquityCurvePoint is the mark-to-market account value after one bar.
type EquityCurvePoint struct {
	Timestamp    time.Time `yaml:"timestamp" json:"timestamp"`
	Equity       float64   `yaml:"equity" json:"equity"`
	PositionSize float64   `yaml:"position_size" json:"position_size"`
	Drawdown     float64   `yaml:"drawdown" json:"drawdown"`
	PeriodReturn float64   `yaml:"period_return" json:"period_return"`
}

// BacktestResult is the complete outcome of one backtest run. It is owned
// by the engine run that produced it and must be treated as immutable once
// returned.
type BacktestResult struct {
	Symbol         string             `yaml:"symbol" json:"symbol"`
	StrategyName   string             `yaml:"strategy_name" json:"strategy_name"`
	Timeframes     []string           `yaml:"timeframes" json:"timeframes"`
	StartDate      time.Time          `yaml:"start_date" json:"start_date"`
	EndDate        time.Time          `yaml:"end_date" json:"end_date"`
	InitialCapital float64            `yaml:"initial_capital" json:"initial_capital"`
	FinalEquity    float64            `yaml:"final_equity" json:"final_equity"`
	TotalProfit    float64            `yaml:"total_profit" json:"total_profit"`
	TotalReturnPct float64            `yaml:"total_return_pct" json:"total_return_pct"`
	TotalTrades    int                `yaml:"total_trades" json:"total_trades"`
	WinCount       int                `yaml:"win_count" json:"win_count"`
	LossCount      int                `yaml:"loss_count" json:"loss_count"`
	WinRate        float64            `yaml:"win_rate" json:"win_rate"`
	MaxDrawdown    float64            `yaml:"max_drawdown" json:"max_drawdown"`
	SharpeRatio    float64            `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	SortinoRatio   float64            `yaml:"sortino_ratio" json:"sortino_ratio"`
	CalmarRatio    float64            `yaml:"calmar_ratio" json:"calmar_ratio"`
	ProfitFactor   float64            `yaml:"profit_factor" json:"profit_factor"`
	Expectancy     float64            `yaml:"expectancy" json:"expectancy"`
	Volatility     float64            `yaml:"volatility" json:"volatility"`
	Trades         []Trade            `yaml:"trades" json:"trades"`
	EquityCurve    []EquityCurvePoint `yaml:"equity_curve" json:"equity_curve"`
}

// ClosedTrades returns the exit legs, each carrying the round-trip
// profit_loss for its (entry, exit) pair.
func (r *BacktestResult) ClosedTrades() []Trade {
	closed := make([]Trade, 0, len(r.Trades)/2)

	for _, t := range r.Trades {
		if !t.EntryPoint {
			closed = append(closed, t)
		}
	}

	return closed
}

// WriteSnapshot writes the result as a YAML document, used by the CLI to
// keep a machine-readable copy next to the HTML report.
func (r *BacktestResult) WriteSnapshot(path string) error {
	data, err := yaml.Marshal(r)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest result to file: %w", err)
	}

	return nil
}

// OptimizationResult is the winning candidate of a parameter grid search.
type OptimizationResult struct {
	Params      map[string]float64 `yaml:"params" json:"params"`
	SharpeRatio float64            `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	Result      *BacktestResult    `yaml:"result" json:"result"`
}
