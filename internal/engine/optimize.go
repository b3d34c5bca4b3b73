package engine

import (
	"context"
	"math"
	"runtime"
	"sort"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tradeforge/backtest/internal/strategy"
	"github.com/tradeforge/backtest/internal/types"
	"github.com/tradeforge/backtest/pkg/errors"
)

// StrategyFactory builds a strategy decision from one grid point.
type StrategyFactory func(params map[string]float64) strategy.Decision

// OptimizeParameters runs one backtest per point of the Cartesian product
// of the grid and returns the best candidate. Candidates are ranked by
// Sharpe ratio, then total return, then smaller drawdown magnitude; with
// everything equal the earliest grid point in key-sorted order wins, so
// the search is deterministic. Runs execute in parallel: the engine's
// frames are read-only during replay and every run owns its own account
// state.
func (e *Engine) OptimizeParameters(ctx context.Context, factory StrategyFactory, grid map[string][]float64) (*types.OptimizationResult, error) {
	if len(grid) == 0 {
		return nil, errors.New(errors.ErrCodeMissingParameter, "parameter grid is empty")
	}

	keys := make([]string, 0, len(grid))
	for k := range grid {
		if len(grid[k]) == 0 {
			return nil, errors.Newf(errors.ErrCodeInvalidParameter, "parameter %q has no candidate values", k)
		}

		keys = append(keys, k)
	}

	sort.Strings(keys)

	combos := expandGrid(keys, grid)
	results := make([]*types.BacktestResult, len(combos))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.NumCPU())

	for i, params := range combos {
		g.Go(func() error {
			result, err := e.RunBacktest(gctx, factory(params), optional.None[ProgressCallback]())
			if err != nil {
				return err
			}

			results[i] = result

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	bestIdx := 0
	for i := 1; i < len(results); i++ {
		if betterCandidate(results[i], results[bestIdx]) {
			bestIdx = i
		}
	}

	best := results[bestIdx]

	e.log.Info("Parameter optimization complete",
		zap.String("symbol", e.symbol),
		zap.Int("combinations", len(combos)),
		zap.Any("best_params", combos[bestIdx]),
		zap.Float64("best_sharpe", best.SharpeRatio),
	)

	return &types.OptimizationResult{
		Params:      combos[bestIdx],
		SharpeRatio: best.SharpeRatio,
		Result:      best,
	}, nil
}

// expandGrid enumerates the Cartesian product of the grid in key-sorted,
// value-order-preserving order.
func expandGrid(keys []string, grid map[string][]float64) []map[string]float64 {
	combos := []map[string]float64{{}}

	for _, key := range keys {
		next := make([]map[string]float64, 0, len(combos)*len(grid[key]))

		for _, combo := range combos {
			for _, value := range grid[key] {
				expanded := make(map[string]float64, len(combo)+1)
				for k, v := range combo {
					expanded[k] = v
				}

				expanded[key] = value
				next = append(next, expanded)
			}
		}

		combos = next
	}

	return combos
}

// betterCandidate reports whether a strictly beats b. Equal candidates
// return false so the earlier grid point is kept.
func betterCandidate(a, b *types.BacktestResult) bool {
	if a.SharpeRatio != b.SharpeRatio {
		return a.SharpeRatio > b.SharpeRatio
	}

	if a.TotalReturnPct != b.TotalReturnPct {
		return a.TotalReturnPct > b.TotalReturnPct
	}

	return math.Abs(a.MaxDrawdown) < math.Abs(b.MaxDrawdown)
}
