// Package store is the persistence collaborator for the backtest engine.
// It keeps bars, executed trades and per-run performance metrics in a
// DuckDB database (file-backed or in-memory). Trade and metric inserts
// are append-only, keyed by run id, so independent runs can write
// concurrently through the same store.
package store

import (
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/tradeforge/backtest/internal/logger"
	"github.com/tradeforge/backtest/internal/types"
	"github.com/tradeforge/backtest/pkg/errors"
)

// Store is a DuckDB-backed implementation of the Database collaborator.
type Store struct {
	db  *sql.DB
	log *logger.Logger
	sq  squirrel.StatementBuilderType
}

// Open opens (or creates) a DuckDB database at path; pass ":memory:" for
// an ephemeral store. The schema is created on open.
func Open(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeStoreUnavailable, err, "failed to open duckdb at %q", path)
	}

	s := &Store{
		db:  db,
		log: log,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := s.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) initialize() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS market_data (
			symbol TEXT,
			timeframe TEXT,
			timestamp TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			PRIMARY KEY (symbol, timeframe, timestamp)
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			run_id TEXT,
			trade_id TEXT,
			symbol TEXT,
			strategy_name TEXT,
			side TEXT,
			timestamp TEXT,
			price DOUBLE,
			quantity DOUBLE,
			value DOUBLE,
			commission DOUBLE,
			entry_point BOOLEAN,
			entry_price DOUBLE,
			profit_loss DOUBLE,
			roi_pct DOUBLE
		)`,
		`CREATE TABLE IF NOT EXISTS performance_metrics (
			run_id TEXT PRIMARY KEY,
			symbol TEXT,
			strategy_name TEXT,
			timeframes TEXT,
			start_date TEXT,
			end_date TEXT,
			initial_capital DOUBLE,
			final_equity DOUBLE,
			total_profit DOUBLE,
			total_return_pct DOUBLE,
			total_trades INTEGER,
			win_count INTEGER,
			loss_count INTEGER,
			win_rate DOUBLE,
			max_drawdown DOUBLE,
			sharpe_ratio DOUBLE,
			sortino_ratio DOUBLE,
			calmar_ratio DOUBLE,
			profit_factor DOUBLE,
			expectancy DOUBLE,
			volatility DOUBLE,
			created_at TIMESTAMP
		)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create schema", err)
		}
	}

	return nil
}

// StoreMarketData persists bars for one symbol and timeframe. Bars whose
// (symbol, timeframe, timestamp) key already exists are skipped, keeping
// the uniqueness invariant without failing re-ingestion.
func (s *Store) StoreMarketData(bars []types.Bar, symbol, timeframe string) error {
	tx, err := s.db.Begin()
	if err != nil {
		return errors.Wrap(errors.ErrCodeInsertFailed, "failed to begin transaction", err)
	}

	for _, b := range bars {
		insert := s.sq.
			Insert("market_data").
			Columns("symbol", "timeframe", "timestamp", "open", "high", "low", "close", "volume").
			Values(symbol, timeframe, b.Timestamp, b.Open, b.High, b.Low, b.Close, b.Volume).
			Suffix("ON CONFLICT DO NOTHING").
			RunWith(tx)

		if _, err := insert.Exec(); err != nil {
			tx.Rollback()

			return errors.Wrapf(errors.ErrCodeInsertFailed, err, "failed to insert bar for %s %s", symbol, timeframe)
		}
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodeInsertFailed, "failed to commit bars", err)
	}

	s.log.Debug("Stored market data",
		zap.String("symbol", symbol),
		zap.String("timeframe", timeframe),
		zap.Int("bars", len(bars)),
	)

	return nil
}

// LoadBars reads bars for the symbol and timeframe within [start, end],
// ordered ascending by timestamp.
func (s *Store) LoadBars(symbol, timeframe string, start, end time.Time) ([]types.Bar, error) {
	query := s.sq.
		Select("symbol", "timeframe", "timestamp", "open", "high", "low", "close", "volume").
		From("market_data").
		Where(squirrel.Eq{"symbol": symbol, "timeframe": timeframe}).
		Where(squirrel.GtOrEq{"timestamp": start}).
		Where(squirrel.LtOrEq{"timestamp": end}).
		OrderBy("timestamp ASC").
		RunWith(s.db)

	rows, err := query.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query bars", err)
	}
	defer rows.Close()

	var bars []types.Bar

	for rows.Next() {
		var b types.Bar

		err := rows.Scan(&b.Symbol, &b.Timeframe, &b.Timestamp, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar", err)
		}

		bars = append(bars, b)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating bars", err)
	}

	return bars, nil
}

// TradeRecord is the persisted form of a trade. All non-primitive fields
// are serialized before they reach the store: the timestamp is the
// canonical RFC3339 string.
type TradeRecord struct {
	RunID        string
	TradeID      string
	Symbol       string
	StrategyName string
	Side         string
	Timestamp    string
	Price        float64
	Quantity     float64
	Value        float64
	Commission   float64
	EntryPoint   bool
	EntryPrice   float64
	ProfitLoss   float64
	ROIPct       float64
}

// InsertTrade appends one trade record.
func (s *Store) InsertTrade(rec TradeRecord) error {
	insert := s.sq.
		Insert("trades").
		Columns(
			"run_id", "trade_id", "symbol", "strategy_name", "side", "timestamp",
			"price", "quantity", "value", "commission", "entry_point",
			"entry_price", "profit_loss", "roi_pct",
		).
		Values(
			rec.RunID, rec.TradeID, rec.Symbol, rec.StrategyName, rec.Side, rec.Timestamp,
			rec.Price, rec.Quantity, rec.Value, rec.Commission, rec.EntryPoint,
			rec.EntryPrice, rec.ProfitLoss, rec.ROIPct,
		).
		RunWith(s.db)

	if _, err := insert.Exec(); err != nil {
		return errors.Wrapf(errors.ErrCodeInsertFailed, err, "failed to insert trade %s", rec.TradeID)
	}

	return nil
}

// LoadTrades returns the trade records of one run in insertion order.
func (s *Store) LoadTrades(runID string) ([]TradeRecord, error) {
	query := s.sq.
		Select(
			"run_id", "trade_id", "symbol", "strategy_name", "side", "timestamp",
			"price", "quantity", "value", "commission", "entry_point",
			"entry_price", "profit_loss", "roi_pct",
		).
		From("trades").
		Where(squirrel.Eq{"run_id": runID}).
		OrderBy("timestamp ASC").
		RunWith(s.db)

	rows, err := query.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query trades", err)
	}
	defer rows.Close()

	var records []TradeRecord

	for rows.Next() {
		var rec TradeRecord

		err := rows.Scan(
			&rec.RunID, &rec.TradeID, &rec.Symbol, &rec.StrategyName, &rec.Side, &rec.Timestamp,
			&rec.Price, &rec.Quantity, &rec.Value, &rec.Commission, &rec.EntryPoint,
			&rec.EntryPrice, &rec.ProfitLoss, &rec.ROIPct,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan trade", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating trades", err)
	}

	return records, nil
}

// MetricsRecord is the persisted aggregate of one backtest run.
type MetricsRecord struct {
	RunID          string
	Symbol         string
	StrategyName   string
	Timeframes     string
	StartDate      string
	EndDate        string
	InitialCapital float64
	FinalEquity    float64
	TotalProfit    float64
	TotalReturnPct float64
	TotalTrades    int
	WinCount       int
	LossCount      int
	WinRate        float64
	MaxDrawdown    float64
	SharpeRatio    float64
	SortinoRatio   float64
	CalmarRatio    float64
	ProfitFactor   float64
	Expectancy     float64
	Volatility     float64
}

// StorePerformanceMetrics inserts the aggregate metrics row for a run.
func (s *Store) StorePerformanceMetrics(rec MetricsRecord) error {
	insert := s.sq.
		Insert("performance_metrics").
		Columns(
			"run_id", "symbol", "strategy_name", "timeframes", "start_date", "end_date",
			"initial_capital", "final_equity", "total_profit", "total_return_pct",
			"total_trades", "win_count", "loss_count", "win_rate", "max_drawdown",
			"sharpe_ratio", "sortino_ratio", "calmar_ratio", "profit_factor",
			"expectancy", "volatility", "created_at",
		).
		Values(
			rec.RunID, rec.Symbol, rec.StrategyName, rec.Timeframes, rec.StartDate, rec.EndDate,
			rec.InitialCapital, rec.FinalEquity, rec.TotalProfit, rec.TotalReturnPct,
			rec.TotalTrades, rec.WinCount, rec.LossCount, rec.WinRate, rec.MaxDrawdown,
			rec.SharpeRatio, rec.SortinoRatio, rec.CalmarRatio, rec.ProfitFactor,
			rec.Expectancy, rec.Volatility, time.Now().UTC(),
		).
		RunWith(s.db)

	if _, err := insert.Exec(); err != nil {
		return errors.Wrapf(errors.ErrCodeInsertFailed, err, "failed to store metrics for run %s", rec.RunID)
	}

	return nil
}

// LoadMetrics returns all stored metric rows for a symbol, newest first.
func (s *Store) LoadMetrics(symbol string) ([]MetricsRecord, error) {
	query := s.sq.
		Select(
			"run_id", "symbol", "strategy_name", "timeframes", "start_date", "end_date",
			"initial_capital", "final_equity", "total_profit", "total_return_pct",
			"total_trades", "win_count", "loss_count", "win_rate", "max_drawdown",
			"sharpe_ratio", "sortino_ratio", "calmar_ratio", "profit_factor",
			"expectancy", "volatility",
		).
		From("performance_metrics").
		Where(squirrel.Eq{"symbol": symbol}).
		OrderBy("created_at DESC").
		RunWith(s.db)

	rows, err := query.Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query metrics", err)
	}
	defer rows.Close()

	var records []MetricsRecord

	for rows.Next() {
		var rec MetricsRecord

		err := rows.Scan(
			&rec.RunID, &rec.Symbol, &rec.StrategyName, &rec.Timeframes, &rec.StartDate, &rec.EndDate,
			&rec.InitialCapital, &rec.FinalEquity, &rec.TotalProfit, &rec.TotalReturnPct,
			&rec.TotalTrades, &rec.WinCount, &rec.LossCount, &rec.WinRate, &rec.MaxDrawdown,
			&rec.SharpeRatio, &rec.SortinoRatio, &rec.CalmarRatio, &rec.ProfitFactor,
			&rec.Expectancy, &rec.Volatility,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan metrics", err)
		}

		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating metrics", err)
	}

	return records, nil
}
