package engine

import (
	"encoding/csv"
	"os"
	"strconv"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/tradeforge/backtest/internal/types"
	"github.com/tradeforge/backtest/pkg/errors"
)

// TradeLogEntry is one executed leg in chronological order. ProfitLoss
// and ROIPct are only meaningful on exit legs.
type TradeLogEntry struct {
	TradeID    string  `yaml:"trade_id" json:"trade_id"`
	Timestamp  string  `yaml:"timestamp" json:"timestamp"`
	Side       string  `yaml:"side" json:"side"`
	Price      float64 `yaml:"price" json:"price"`
	Quantity   float64 `yaml:"quantity" json:"quantity"`
	Value      float64 `yaml:"value" json:"value"`
	Commission float64 `yaml:"commission" json:"commission"`
	EntryPoint bool    `yaml:"entry_point" json:"entry_point"`
	ProfitLoss float64 `yaml:"profit_loss" json:"profit_loss"`
	ROIPct     float64 `yaml:"roi_pct" json:"roi_pct"`
}

// TradeLog is the ordered record of every leg executed during a run.
type TradeLog struct {
	Symbol       string          `yaml:"symbol" json:"symbol"`
	StrategyName string          `yaml:"strategy_name" json:"strategy_name"`
	Entries      []TradeLogEntry `yaml:"entries" json:"entries"`
}

// GenerateTradeLog converts a run's trades into a trade log, preserving
// execution order. When a filename is given the log is also written as
// CSV.
func (e *Engine) GenerateTradeLog(result *types.BacktestResult, filename optional.Option[string]) (*TradeLog, error) {
	log := &TradeLog{
		Symbol:       result.Symbol,
		StrategyName: result.StrategyName,
		Entries:      make([]TradeLogEntry, 0, len(result.Trades)),
	}

	for _, t := range result.Trades {
		ts, err := types.FormatTimestamp(t.Timestamp)
		if err != nil {
			return nil, err
		}

		log.Entries = append(log.Entries, TradeLogEntry{
			TradeID:    t.ID,
			Timestamp:  ts,
			Side:       string(t.Side),
			Price:      t.Price,
			Quantity:   t.Quantity,
			Value:      t.Value,
			Commission: t.Commission,
			EntryPoint: t.EntryPoint,
			ProfitLoss: t.ProfitLoss,
			ROIPct:     t.ROIPct,
		})
	}

	if filename.IsSome() {
		path := filename.Unwrap()

		if err := writeTradeLogCSV(log, path); err != nil {
			return nil, err
		}

		e.log.Info("Trade log written",
			zap.String("path", path),
			zap.Int("entries", len(log.Entries)),
		)
	}

	return log, nil
}

func writeTradeLogCSV(log *TradeLog, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to create trade log %q", path)
	}
	defer f.Close()

	w := csv.NewWriter(f)

	header := []string{
		"trade_id", "timestamp", "side", "price", "quantity",
		"value", "commission", "entry_point", "profit_loss", "roi_pct",
	}
	if err := w.Write(header); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to write trade log header", err)
	}

	for _, entry := range log.Entries {
		row := []string{
			entry.TradeID,
			entry.Timestamp,
			entry.Side,
			strconv.FormatFloat(entry.Price, 'f', -1, 64),
			strconv.FormatFloat(entry.Quantity, 'f', -1, 64),
			strconv.FormatFloat(entry.Value, 'f', -1, 64),
			strconv.FormatFloat(entry.Commission, 'f', -1, 64),
			strconv.FormatBool(entry.EntryPoint),
			strconv.FormatFloat(entry.ProfitLoss, 'f', -1, 64),
			strconv.FormatFloat(entry.ROIPct, 'f', -1, 64),
		}

		if err := w.Write(row); err != nil {
			return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to write trade log row", err)
		}
	}

	w.Flush()

	if err := w.Error(); err != nil {
		return errors.Wrap(errors.ErrCodeReportWriteFailed, "failed to flush trade log", err)
	}

	return nil
}
