// Package report renders backtest results as interactive HTML charts and
// a static HTML performance report.
package report

import (
	"time"

	"github.com/tradeforge/backtest/internal/types"
)

// Canvas assembles the chart panels for one run. Panels render in the
// order they are added.
type Canvas interface {
	// AddEquityCurve adds the mark-to-market equity panel.
	AddEquityCurve(points []types.EquityCurvePoint)

	// AddDrawdown adds the drawdown-from-peak panel.
	AddDrawdown(points []types.EquityCurvePoint)

	// AddTradeMarkers adds a panel of executed trades, buys and sells as
	// separate series plotted at their execution price.
	AddTradeMarkers(trades []types.Trade)

	// AddIndicatorPanel adds one named indicator series.
	AddIndicatorPanel(name string, timestamps []time.Time, values []float64)

	// Save renders all panels into a single HTML file.
	Save(path string) error
}

// Plotter creates canvases. It exists so tests can substitute a recording
// implementation for the chart library.
type Plotter interface {
	NewCanvas(title string) Canvas
}
