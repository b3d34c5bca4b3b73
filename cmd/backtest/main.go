// Command backtest runs trading strategy backtests against bar data kept
// in a DuckDB store. It can ingest CSV bars, run a single backtest with a
// full report bundle, compare strategies across symbols and print the
// config schema.
package main

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"github.com/tradeforge/backtest/internal/engine"
	"github.com/tradeforge/backtest/internal/logger"
	"github.com/tradeforge/backtest/internal/runner"
	"github.com/tradeforge/backtest/internal/store"
	"github.com/tradeforge/backtest/internal/strategy"
	"github.com/tradeforge/backtest/internal/types"
	"github.com/tradeforge/backtest/pkg/errors"

	"github.com/moznion/go-optional"
)

func main() {
	cmd := &cli.Command{
		Name:  "backtest",
		Usage: "run trading strategy backtests",
		Commands: []*cli.Command{
			ingestCommand(),
			runCommand(),
			compareCommand(),
			schemaCommand(),
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func dbFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "db",
		Usage: "path to the DuckDB database",
		Value: "backtest.db",
	}
}

func rangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:  "start",
			Usage: "range start (RFC3339 or YYYY-MM-DD)",
			Value: "2024-01-01",
		},
		&cli.StringFlag{
			Name:  "end",
			Usage: "range end (RFC3339 or YYYY-MM-DD)",
			Value: "2024-12-31",
		},
	}
}

func ingestCommand() *cli.Command {
	return &cli.Command{
		Name:      "ingest",
		Usage:     "load CSV bars into the store",
		ArgsUsage: "<file.csv>",
		Flags: []cli.Flag{
			dbFlag(),
			&cli.StringFlag{Name: "symbol", Usage: "symbol of the bars", Required: true},
			&cli.StringFlag{Name: "timeframe", Usage: "timeframe of the bars", Value: "1h"},
		},
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, err := logger.NewLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			if cmd.Args().Len() != 1 {
				return errors.New(errors.ErrCodeMissingParameter, "exactly one CSV file is required")
			}

			symbol := cmd.String("symbol")
			timeframe := cmd.String("timeframe")

			bars, err := readBarsCSV(cmd.Args().First(), symbol, timeframe)
			if err != nil {
				return err
			}

			st, err := store.Open(cmd.String("db"), log)
			if err != nil {
				return err
			}
			defer st.Close()

			if err := st.StoreMarketData(bars, symbol, timeframe); err != nil {
				return err
			}

			log.Info("Bars ingested",
				zap.String("symbol", symbol),
				zap.String("timeframe", timeframe),
				zap.Int("bars", len(bars)),
			)

			return nil
		},
	}
}

func runCommand() *cli.Command {
	flags := []cli.Flag{
		dbFlag(),
		&cli.StringFlag{Name: "symbol", Usage: "symbol to backtest", Required: true},
		&cli.StringSliceFlag{Name: "timeframes", Usage: "timeframes, primary first", Value: []string{"1h"}},
		&cli.StringFlag{Name: "strategy", Usage: "strategy name", Value: "sma_crossover"},
		&cli.StringFlag{Name: "config", Usage: "YAML run configuration"},
		&cli.StringFlag{Name: "output", Usage: "report output directory", Value: "reports"},
		&cli.BoolFlag{Name: "optimize", Usage: "grid-search RSI thresholds before the final run"},
	}
	flags = append(flags, rangeFlags()...)

	return &cli.Command{
		Name:  "run",
		Usage: "run one backtest and write its report bundle",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, err := logger.NewLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			cfg, err := loadConfig(cmd.String("config"))
			if err != nil {
				return err
			}

			start, end, err := parseRange(cmd.String("start"), cmd.String("end"))
			if err != nil {
				return err
			}

			st, err := store.Open(cmd.String("db"), log)
			if err != nil {
				return err
			}
			defer st.Close()

			timeframes := cmd.StringSlice("timeframes")

			eng, err := engine.New(cfg, cmd.String("symbol"), timeframes, start, end, st, log)
			if err != nil {
				return err
			}

			registry := defaultRegistry(timeframes[0])

			decision, ok := registry.Get(cmd.String("strategy"))
			if !ok {
				return errors.Newf(errors.ErrCodeStrategyNotFound, "unknown strategy %q, available: %v", cmd.String("strategy"), registry.List())
			}

			if cmd.Bool("optimize") {
				best, err := eng.OptimizeParameters(ctx, func(params map[string]float64) strategy.Decision {
					return strategy.NewRSIThresholdFromParams(timeframes[0], params)
				}, map[string][]float64{
					"oversold":   {20, 25, 30, 35},
					"overbought": {65, 70, 75, 80},
				})
				if err != nil {
					return err
				}

				fmt.Printf("best parameters %v (Sharpe %.2f)\n", best.Params, best.SharpeRatio)
				decision = strategy.NewRSIThresholdFromParams(timeframes[0], best.Params)
			}

			var bar *progressbar.ProgressBar

			progress := engine.ProgressCallback(func(processed, total int) {
				if bar == nil {
					bar = progressbar.Default(int64(total), "replaying bars")
				}

				bar.Set(processed)
			})

			result, err := eng.RunBacktest(ctx, decision, optional.Some(progress))
			if err != nil {
				return err
			}

			for _, alert := range eng.MonitorAndAlert(result) {
				fmt.Printf("[%s] %s: %s\n", alert.Severity, alert.Type, alert.Message)
			}

			runID, err := eng.SaveResults(result)
			if err != nil {
				return err
			}

			reportPath, err := eng.GenerateReport(result, cmd.String("output"))
			if err != nil {
				return err
			}

			snapshot := filepath.Join(cmd.String("output"), fmt.Sprintf("%s_%s_result.yaml", result.Symbol, result.StrategyName))
			if err := result.WriteSnapshot(snapshot); err != nil {
				return err
			}

			fmt.Printf("run %s finished: %.2f%% return over %d trades\n", runID, result.TotalReturnPct, result.TotalTrades)
			fmt.Printf("report: %s\n", reportPath)

			return nil
		},
	}
}

func compareCommand() *cli.Command {
	flags := []cli.Flag{
		dbFlag(),
		&cli.StringSliceFlag{Name: "symbols", Usage: "symbols to backtest", Required: true},
		&cli.StringSliceFlag{Name: "timeframes", Usage: "timeframes, primary first", Value: []string{"1h"}},
		&cli.StringFlag{Name: "config", Usage: "YAML run configuration"},
	}
	flags = append(flags, rangeFlags()...)

	return &cli.Command{
		Name:  "compare",
		Usage: "backtest every strategy on every symbol and summarize",
		Flags: flags,
		Action: func(ctx context.Context, cmd *cli.Command) error {
			log, err := logger.NewLogger()
			if err != nil {
				return err
			}
			defer log.Sync()

			cfg, err := loadConfig(cmd.String("config"))
			if err != nil {
				return err
			}

			start, end, err := parseRange(cmd.String("start"), cmd.String("end"))
			if err != nil {
				return err
			}

			st, err := store.Open(cmd.String("db"), log)
			if err != nil {
				return err
			}
			defer st.Close()

			timeframes := cmd.StringSlice("timeframes")
			registry := defaultRegistry(timeframes[0])

			var strategies []strategy.Decision
			for _, name := range registry.List() {
				decision, _ := registry.Get(name)
				strategies = append(strategies, decision)
			}

			r := runner.New(cfg, timeframes, start, end, st, log)

			symbols := cmd.StringSlice("symbols")
			if err := r.RunAll(ctx, symbols, strategies); err != nil {
				return err
			}

			rankings, err := r.CompareStrategies()
			if err != nil {
				log.Warn("No completed runs to compare", zap.Error(err))
			} else {
				fmt.Println()

				for _, rk := range rankings {
					fmt.Printf("  %-10s %-16s return %8.2f%% (rank %d)  sharpe %6.2f (rank %d)  overall %.1f\n",
						rk.Symbol, rk.StrategyName, rk.TotalReturnPct, rk.ReturnRank, rk.SharpeRatio, rk.SharpeRank, rk.OverallRank)
				}
			}

			fmt.Printf("\n%s", r.GenerateSummaryReport())

			return nil
		},
	}
}

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "print the JSON schema of the run configuration",
		Action: func(ctx context.Context, cmd *cli.Command) error {
			data, err := engine.SchemaJSON()
			if err != nil {
				return err
			}

			fmt.Println(string(data))

			return nil
		},
	}
}

func defaultRegistry(primaryTimeframe string) *strategy.Registry {
	registry := strategy.NewRegistry()
	registry.Register(strategy.NewSMACrossover(primaryTimeframe))
	registry.Register(strategy.NewRSIReversal(primaryTimeframe))
	registry.Register(strategy.NewMACDMomentum(primaryTimeframe))

	return registry
}

func loadConfig(path string) (engine.Config, error) {
	if path == "" {
		return engine.DefaultConfig(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return engine.Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config %q", path)
	}

	return engine.ParseConfig(data)
}

func parseRange(startStr, endStr string) (time.Time, time.Time, error) {
	start, err := types.ParseTimestamp(startStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	end, err := types.ParseTimestamp(endStr)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}

	return start, end, nil
}

// readBarsCSV parses bars from a CSV file with the header
// timestamp,open,high,low,close,volume.
func readBarsCSV(path, symbol, timeframe string) ([]types.Bar, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeNoMarketData, err, "failed to open %q", path)
	}
	defer f.Close()

	r := csv.NewReader(f)

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeNoMarketData, "failed to read CSV header", err)
	}

	col := make(map[string]int, len(header))
	for i, name := range header {
		col[name] = i
	}

	for _, required := range []string{"timestamp", "open", "high", "low", "close", "volume"} {
		if _, ok := col[required]; !ok {
			return nil, errors.Newf(errors.ErrCodeNoMarketData, "CSV is missing column %q", required)
		}
	}

	var bars []types.Bar

	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}

		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeNoMarketData, "failed to read CSV row", err)
		}

		ts, err := types.ParseTimestamp(record[col["timestamp"]])
		if err != nil {
			return nil, err
		}

		bar := types.Bar{
			Symbol:    symbol,
			Timeframe: timeframe,
			Timestamp: ts,
		}

		fields := []struct {
			name string
			dst  *float64
		}{
			{"open", &bar.Open},
			{"high", &bar.High},
			{"low", &bar.Low},
			{"close", &bar.Close},
			{"volume", &bar.Volume},
		}

		for _, field := range fields {
			v, err := strconv.ParseFloat(record[col[field.name]], 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeNoMarketData, err, "bad %s value %q", field.name, record[col[field.name]])
			}

			*field.dst = v
		}

		bars = append(bars, bar)
	}

	return bars, nil
}
