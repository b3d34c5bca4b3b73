// Package engine replays historical bars through a strategy decision
// function and produces performance metrics, alerts and reports for the
// run. The replay is strictly causal: at bar i the strategy sees only
// bars with index <= i on the primary timeframe and bars at or before
// that bar's timestamp on every secondary timeframe.
package engine

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/tradeforge/backtest/internal/indicator"
	"github.com/tradeforge/backtest/internal/logger"
	"github.com/tradeforge/backtest/internal/report"
	"github.com/tradeforge/backtest/internal/store"
	"github.com/tradeforge/backtest/internal/strategy"
	"github.com/tradeforge/backtest/internal/types"
	"github.com/tradeforge/backtest/pkg/errors"
)

// ProgressCallback reports replay progress as (processed, total) bars.
type ProgressCallback func(processed, total int)

// Engine replays bars for one symbol across one or more timeframes.
// The first timeframe is primary and drives the replay clock.
type Engine struct {
	cfg        Config
	symbol     string
	timeframes []string
	start      time.Time
	end        time.Time
	frames     map[string]*indicator.Frame
	store      *store.Store
	log        *logger.Logger
	plotter    report.Plotter
}

// New loads bars for every requested timeframe from the store and
// prepares indicator frames. Every timeframe must have at least one bar
// in [start, end].
func New(cfg Config, symbol string, timeframes []string, start, end time.Time, st *store.Store, log *logger.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if len(timeframes) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidTimeframe, "at least one timeframe is required")
	}

	if !end.After(start) {
		return nil, errors.Newf(errors.ErrCodeInvalidDateRange, "end %s is not after start %s", end, start)
	}

	e := &Engine{
		cfg:        cfg,
		symbol:     symbol,
		timeframes: timeframes,
		start:      start,
		end:        end,
		frames:     make(map[string]*indicator.Frame, len(timeframes)),
		store:      st,
		log:        log,
		plotter:    report.NewEChartsPlotter(),
	}

	for _, tf := range timeframes {
		if _, ok := types.TimeframeDuration(tf); !ok {
			return nil, errors.Newf(errors.ErrCodeInvalidTimeframe, "unknown timeframe %q", tf)
		}

		bars, err := st.LoadBars(symbol, tf, start, end)
		if err != nil {
			return nil, err
		}

		if len(bars) == 0 {
			return nil, errors.Newf(errors.ErrCodeNoMarketData, "no market data for %s %s in [%s, %s]", symbol, tf, start, end)
		}

		e.frames[tf] = indicator.NewFrame(types.SortBars(bars))
	}

	if err := e.AddIndicators(); err != nil {
		return nil, err
	}

	log.Debug("Engine ready",
		zap.String("symbol", symbol),
		zap.Strings("timeframes", timeframes),
		zap.Int("primary_bars", e.frames[timeframes[0]].Len()),
	)

	return e, nil
}

// SetPlotter replaces the chart renderer used by PlotResults.
func (e *Engine) SetPlotter(p report.Plotter) {
	e.plotter = p
}

// Frame returns the annotated frame for a timeframe.
func (e *Engine) Frame(timeframe string) (*indicator.Frame, bool) {
	f, ok := e.frames[timeframe]

	return f, ok
}

// AddIndicators recomputes the default indicator column set on every
// timeframe. The computation depends only on the bars, so repeated calls
// leave the frames unchanged.
func (e *Engine) AddIndicators() error {
	for tf, frame := range e.frames {
		annotated, err := indicator.Annotate(frame.Bars)
		if err != nil {
			return errors.Wrapf(errors.ErrCodeIndicatorCalculation, err, "failed to annotate %s frame", tf)
		}

		e.frames[tf] = annotated
	}

	return nil
}

// RunBacktest replays the primary timeframe through the decision function
// and returns the run result. The account starts flat: a BUY while flat
// opens a position sized to PositionFraction of equity, a SELL while long
// closes it, and everything else holds. Any position still open after the
// final bar is closed at that bar's close price.
func (e *Engine) RunBacktest(ctx context.Context, decision strategy.Decision, progress optional.Option[ProgressCallback]) (*types.BacktestResult, error) {
	primary := e.frames[e.timeframes[0]]
	total := primary.Len()

	startIdx := e.cfg.WarmupBars
	if startIdx > total {
		startIdx = total
	}

	cash := e.cfg.InitialCapital
	quantity := 0.0
	peak := e.cfg.InitialCapital
	prevEquity := e.cfg.InitialCapital

	var (
		entry  types.Trade
		trades []types.Trade
		curve  []types.EquityCurvePoint
	)

	for i := startIdx; i < total; i++ {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(errors.ErrCodeStrategyFailed, "backtest cancelled", err)
		}

		bar := primary.Bars[i]

		view := strategy.MarketView{
			e.timeframes[0]: primary.Truncate(i + 1),
		}
		for _, tf := range e.timeframes[1:] {
			view[tf] = e.frames[tf].TruncateAt(bar.Timestamp)
		}

		signal, err := decision.Evaluate(view, e.symbol)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeStrategyFailed, err, "strategy %s failed at bar %d", decision.Name(), i)
		}

		if !signal.Valid() {
			return nil, errors.Newf(errors.ErrCodeStrategyBadSignal, "strategy %s returned invalid signal %q", decision.Name(), signal)
		}

		switch {
		case signal == types.SignalBuy && quantity == 0:
			opened, err := e.openPosition(&cash, &quantity, bar)
			if err != nil {
				return nil, err
			}

			entry = opened
			trades = append(trades, opened)
		case signal == types.SignalSell && quantity > 0:
			closed, err := e.closePosition(&cash, &quantity, bar, entry)
			if err != nil {
				return nil, err
			}

			trades = append(trades, closed)
		}

		equity := cash + quantity*bar.Close
		if equity > peak {
			peak = equity
		}

		point := types.EquityCurvePoint{
			Timestamp:    bar.Timestamp,
			Equity:       equity,
			PositionSize: quantity,
			Drawdown:     (equity/peak - 1) * 100,
		}
		if prevEquity != 0 {
			point.PeriodReturn = equity/prevEquity - 1
		}

		curve = append(curve, point)
		prevEquity = equity

		if progress.IsSome() {
			progress.Unwrap()(i-startIdx+1, total-startIdx)
		}
	}

	// Close any position left open so the final equity is fully realized.
	if quantity > 0 {
		lastBar := primary.Bars[total-1]

		closed, err := e.closePosition(&cash, &quantity, lastBar, entry)
		if err != nil {
			return nil, err
		}

		trades = append(trades, closed)

		last := &curve[len(curve)-1]
		last.Equity = cash
		last.PositionSize = 0

		if cash > peak {
			peak = cash
		}

		last.Drawdown = (cash/peak - 1) * 100

		if len(curve) > 1 {
			prev := curve[len(curve)-2].Equity
			if prev != 0 {
				last.PeriodReturn = cash/prev - 1
			}
		}
	}

	finalEquity := cash

	result := &types.BacktestResult{
		Symbol:         e.symbol,
		StrategyName:   decision.Name(),
		Timeframes:     e.timeframes,
		StartDate:      e.start,
		EndDate:        e.end,
		InitialCapital: e.cfg.InitialCapital,
		FinalEquity:    finalEquity,
		TotalProfit:    finalEquity - e.cfg.InitialCapital,
		TotalReturnPct: (finalEquity/e.cfg.InitialCapital - 1) * 100,
		Trades:         trades,
		EquityCurve:    curve,
	}

	periodsPerYear := e.cfg.PeriodsPerYear
	if periodsPerYear == 0 {
		periodsPerYear = types.PeriodsPerYear(e.timeframes[0])
	}

	computeMetrics(result, periodsPerYear)

	e.log.Info("Backtest complete",
		zap.String("symbol", e.symbol),
		zap.String("strategy", decision.Name()),
		zap.Int("trades", result.TotalTrades),
		zap.Float64("return_pct", result.TotalReturnPct),
	)

	return result, nil
}

func (e *Engine) openPosition(cash *float64, quantity *float64, bar types.Bar) (types.Trade, error) {
	budget := *cash * e.cfg.PositionFraction
	qty := budget / (bar.Close * (1 + e.cfg.CommissionRate))
	value := qty * bar.Close
	commission := value * e.cfg.CommissionRate

	trade, err := types.NewTrade(uuid.NewString(), e.symbol, types.SideBuy, bar.Timestamp, bar.Close, qty, commission)
	if err != nil {
		return types.Trade{}, err
	}

	*cash -= value + commission
	*quantity = qty

	return trade, nil
}

func (e *Engine) closePosition(cash *float64, quantity *float64, bar types.Bar, entry types.Trade) (types.Trade, error) {
	value := *quantity * bar.Close
	commission := value * e.cfg.CommissionRate

	trade, err := types.NewTrade(uuid.NewString(), e.symbol, types.SideSell, bar.Timestamp, bar.Close, *quantity, commission)
	if err != nil {
		return types.Trade{}, err
	}

	trade.CloseRoundTrip(entry)

	*cash += value - commission
	*quantity = 0

	return trade, nil
}
