// Package runner orchestrates backtests across many symbol and strategy
// combinations, collects their outcomes and compares strategies against
// each other.
package runner

import (
	"context"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/tradeforge/backtest/internal/engine"
	"github.com/tradeforge/backtest/internal/logger"
	"github.com/tradeforge/backtest/internal/store"
	"github.com/tradeforge/backtest/internal/strategy"
	"github.com/tradeforge/backtest/internal/types"
)

// RunOutcome is the result of one symbol and strategy combination. A
// combination that failed carries its error and nothing else.
type RunOutcome struct {
	RunID  string
	Result *types.BacktestResult
	Alerts []types.Alert
	Err    error
}

// Runner executes a batch of backtests over the same date range and
// timeframes. Outcomes accumulate across calls to RunAll.
type Runner struct {
	cfg        engine.Config
	timeframes []string
	start      time.Time
	end        time.Time
	store      *store.Store
	log        *logger.Logger

	mu       sync.Mutex
	outcomes map[string]map[string]*RunOutcome
}

// New creates a Runner sharing one store across all runs.
func New(cfg engine.Config, timeframes []string, start, end time.Time, st *store.Store, log *logger.Logger) *Runner {
	return &Runner{
		cfg:        cfg,
		timeframes: timeframes,
		start:      start,
		end:        end,
		store:      st,
		log:        log,
		outcomes:   make(map[string]map[string]*RunOutcome),
	}
}

// RunAll backtests every strategy on every symbol concurrently. A failing
// combination is recorded in its outcome and does not stop the others.
func (r *Runner) RunAll(ctx context.Context, symbols []string, strategies []strategy.Decision) error {
	g, gctx := errgroup.WithContext(ctx)

	for _, symbol := range symbols {
		for _, decision := range strategies {
			g.Go(func() error {
				outcome := r.runOne(gctx, symbol, decision)
				r.record(symbol, decision.Name(), outcome)

				return nil
			})
		}
	}

	return g.Wait()
}

func (r *Runner) runOne(ctx context.Context, symbol string, decision strategy.Decision) *RunOutcome {
	eng, err := engine.New(r.cfg, symbol, r.timeframes, r.start, r.end, r.store, r.log)
	if err != nil {
		r.log.Error("Backtest setup failed",
			zap.String("symbol", symbol),
			zap.String("strategy", decision.Name()),
			zap.Error(err),
		)

		return &RunOutcome{Err: err}
	}

	result, err := eng.RunBacktest(ctx, decision, optional.None[engine.ProgressCallback]())
	if err != nil {
		r.log.Error("Backtest run failed",
			zap.String("symbol", symbol),
			zap.String("strategy", decision.Name()),
			zap.Error(err),
		)

		return &RunOutcome{Err: err}
	}

	runID, err := eng.SaveResults(result)
	if err != nil {
		r.log.Error("Backtest persistence failed",
			zap.String("symbol", symbol),
			zap.String("strategy", decision.Name()),
			zap.Error(err),
		)

		return &RunOutcome{Err: err}
	}

	return &RunOutcome{
		RunID:  runID,
		Result: result,
		Alerts: eng.MonitorAndAlert(result),
	}
}

func (r *Runner) record(symbol, strategyName string, outcome *RunOutcome) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.outcomes[symbol] == nil {
		r.outcomes[symbol] = make(map[string]*RunOutcome)
	}

	r.outcomes[symbol][strategyName] = outcome
}

// Record stores an externally produced result, used to merge runs made
// outside this runner into its comparison set.
func (r *Runner) Record(result *types.BacktestResult, alerts []types.Alert) {
	r.record(result.Symbol, result.StrategyName, &RunOutcome{
		Result: result,
		Alerts: alerts,
	})
}

// Outcome returns the recorded outcome for one combination.
func (r *Runner) Outcome(symbol, strategyName string) (*RunOutcome, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	bySymbol, ok := r.outcomes[symbol]
	if !ok {
		return nil, false
	}

	outcome, ok := bySymbol[strategyName]

	return outcome, ok
}

// successfulOutcomes snapshots all outcomes that produced a result.
// Callers must hold no lock.
func (r *Runner) successfulOutcomes() []*RunOutcome {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*RunOutcome

	for _, bySymbol := range r.outcomes {
		for _, outcome := range bySymbol {
			if outcome.Err == nil && outcome.Result != nil {
				out = append(out, outcome)
			}
		}
	}

	return out
}
