package engine

import (
	"fmt"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/tradeforge/backtest/internal/indicator"
	"github.com/tradeforge/backtest/internal/types"
	"github.com/tradeforge/backtest/pkg/errors"
)

// PlotOptions configures PlotResults.
type PlotOptions struct {
	// ShowIndicators adds panels for the default indicator columns of the
	// primary timeframe.
	ShowIndicators bool

	// CustomIndicators names extra columns to plot. Naming a column the
	// frame does not have is an error.
	CustomIndicators []string

	// Filename overrides the default output path
	// <symbol>_<strategy>_plot.html.
	Filename optional.Option[string]
}

// defaultPlotColumns are the indicator panels added by ShowIndicators.
var defaultPlotColumns = []string{
	indicator.ColRSI,
	indicator.ColMACDHistogram,
	indicator.ColUpperBand,
	indicator.ColLowerBand,
}

// PlotResults renders the run's charts to an HTML file and returns its
// path.
func (e *Engine) PlotResults(result *types.BacktestResult, options PlotOptions) (string, error) {
	path := options.Filename.TakeOr(fmt.Sprintf("%s_%s_plot.html", result.Symbol, result.StrategyName))

	canvas := e.plotter.NewCanvas(fmt.Sprintf("%s / %s", result.Symbol, result.StrategyName))
	canvas.AddEquityCurve(result.EquityCurve)
	canvas.AddDrawdown(result.EquityCurve)
	canvas.AddTradeMarkers(result.Trades)

	primary := e.frames[e.timeframes[0]]
	timestamps := primary.Timestamps()

	columns := make([]string, 0, len(defaultPlotColumns)+len(options.CustomIndicators))
	if options.ShowIndicators {
		columns = append(columns, defaultPlotColumns...)
	}

	columns = append(columns, options.CustomIndicators...)

	for _, name := range columns {
		values, ok := primary.Column(name)
		if !ok {
			return "", errors.Newf(errors.ErrCodeUnknownIndicator, "no indicator column %q on timeframe %s", name, e.timeframes[0])
		}

		canvas.AddIndicatorPanel(name, timestamps, values)
	}

	if err := canvas.Save(path); err != nil {
		return "", err
	}

	e.log.Info("Charts written",
		zap.String("path", path),
		zap.Int("indicator_panels", len(columns)),
	)

	return path, nil
}
