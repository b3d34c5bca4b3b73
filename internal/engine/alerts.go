package engine

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/tradeforge/backtest/internal/types"
)

// MonitorAndAlert checks a finished run against the configured thresholds
// and returns alerts in a fixed order: drawdown, then win rate, then
// Sharpe. The win rate check is skipped when the trade sample is too
// small to be meaningful.
func (e *Engine) MonitorAndAlert(result *types.BacktestResult) []types.Alert {
	thresholds := e.cfg.Alerts

	var alerts []types.Alert

	if result.MaxDrawdown <= thresholds.MaxDrawdownPct {
		alerts = append(alerts, types.Alert{
			Type:        types.AlertTypeDrawdown,
			Severity:    types.AlertSeverityHigh,
			Message:     fmt.Sprintf("max drawdown %.2f%% breached the %.2f%% floor", result.MaxDrawdown, thresholds.MaxDrawdownPct),
			MetricValue: result.MaxDrawdown,
		})
	}

	if result.TotalTrades >= thresholds.MinTradeSample && result.WinRate < thresholds.MinWinRatePct {
		alerts = append(alerts, types.Alert{
			Type:        types.AlertTypeWinRate,
			Severity:    types.AlertSeverityMedium,
			Message:     fmt.Sprintf("win rate %.2f%% is below the %.2f%% floor over %d trades", result.WinRate, thresholds.MinWinRatePct, result.TotalTrades),
			MetricValue: result.WinRate,
		})
	}

	if result.SharpeRatio < thresholds.MinSharpe {
		alerts = append(alerts, types.Alert{
			Type:        types.AlertTypePerformance,
			Severity:    types.AlertSeverityMedium,
			Message:     fmt.Sprintf("Sharpe ratio %.2f is below the %.2f floor", result.SharpeRatio, thresholds.MinSharpe),
			MetricValue: result.SharpeRatio,
		})
	}

	for _, a := range alerts {
		e.log.Warn("Backtest alert",
			zap.String("symbol", result.Symbol),
			zap.String("strategy", result.StrategyName),
			zap.String("type", string(a.Type)),
			zap.String("severity", string(a.Severity)),
			zap.String("message", a.Message),
		)
	}

	return alerts
}
