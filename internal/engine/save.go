package engine

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/tradeforge/backtest/internal/store"
	"github.com/tradeforge/backtest/internal/types"
)

// SaveResults persists a run's trades and aggregate metrics under a fresh
// run id and returns that id. Timestamps are serialized to their
// canonical RFC3339 form before they reach the store.
func (e *Engine) SaveResults(result *types.BacktestResult) (string, error) {
	runID := uuid.NewString()

	for _, t := range result.Trades {
		ts, err := types.FormatTimestamp(t.Timestamp)
		if err != nil {
			return "", err
		}

		rec := store.TradeRecord{
			RunID:        runID,
			TradeID:      t.ID,
			Symbol:       t.Symbol,
			StrategyName: result.StrategyName,
			Side:         string(t.Side),
			Timestamp:    ts,
			Price:        t.Price,
			Quantity:     t.Quantity,
			Value:        t.Value,
			Commission:   t.Commission,
			EntryPoint:   t.EntryPoint,
			EntryPrice:   t.EntryPrice,
			ProfitLoss:   t.ProfitLoss,
			ROIPct:       t.ROIPct,
		}

		if err := e.store.InsertTrade(rec); err != nil {
			return "", err
		}
	}

	metrics := store.MetricsRecord{
		RunID:          runID,
		Symbol:         result.Symbol,
		StrategyName:   result.StrategyName,
		Timeframes:     strings.Join(result.Timeframes, ","),
		StartDate:      result.StartDate.UTC().Format(time.RFC3339),
		EndDate:        result.EndDate.UTC().Format(time.RFC3339),
		InitialCapital: result.InitialCapital,
		FinalEquity:    result.FinalEquity,
		TotalProfit:    result.TotalProfit,
		TotalReturnPct: result.TotalReturnPct,
		TotalTrades:    result.TotalTrades,
		WinCount:       result.WinCount,
		LossCount:      result.LossCount,
		WinRate:        result.WinRate,
		MaxDrawdown:    result.MaxDrawdown,
		SharpeRatio:    result.SharpeRatio,
		SortinoRatio:   result.SortinoRatio,
		CalmarRatio:    result.CalmarRatio,
		ProfitFactor:   result.ProfitFactor,
		Expectancy:     result.Expectancy,
		Volatility:     result.Volatility,
	}

	if err := e.store.StorePerformanceMetrics(metrics); err != nil {
		return "", err
	}

	e.log.Info("Results saved",
		zap.String("run_id", runID),
		zap.String("symbol", result.Symbol),
		zap.String("strategy", result.StrategyName),
		zap.Int("trades", len(result.Trades)),
	)

	return runID, nil
}
