package report

import (
	"math"
	"os"
	"time"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/tradeforge/backtest/internal/types"
	"github.com/tradeforge/backtest/pkg/errors"
)

// EChartsPlotter renders canvases with go-echarts.
type EChartsPlotter struct{}

// NewEChartsPlotter creates the default chart renderer.
func NewEChartsPlotter() *EChartsPlotter {
	return &EChartsPlotter{}
}

// NewCanvas implements Plotter.
func (p *EChartsPlotter) NewCanvas(title string) Canvas {
	return &echartsCanvas{
		page:  components.NewPage(),
		title: title,
	}
}

type echartsCanvas struct {
	page  *components.Page
	title string
}

func (c *echartsCanvas) AddEquityCurve(points []types.EquityCurvePoint) {
	xs := make([]string, len(points))
	data := make([]opts.LineData, len(points))

	for i, p := range points {
		xs[i] = p.Timestamp.Format(time.RFC3339)
		data[i] = opts.LineData{Value: p.Equity}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: c.title + " Equity Curve"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	line.SetXAxis(xs).AddSeries("Equity", data)

	c.page.AddCharts(line)
}

func (c *echartsCanvas) AddDrawdown(points []types.EquityCurvePoint) {
	xs := make([]string, len(points))
	data := make([]opts.LineData, len(points))

	for i, p := range points {
		xs[i] = p.Timestamp.Format(time.RFC3339)
		data[i] = opts.LineData{Value: p.Drawdown}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Drawdown (%)"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	line.SetXAxis(xs).AddSeries("Drawdown", data)

	c.page.AddCharts(line)
}

func (c *echartsCanvas) AddTradeMarkers(trades []types.Trade) {
	xs := make([]string, len(trades))

	var buys, sells []opts.ScatterData

	for i, t := range trades {
		xs[i] = t.Timestamp.Format(time.RFC3339)

		point := opts.ScatterData{Value: []any{xs[i], t.Price}}
		if t.Side == types.SideBuy {
			buys = append(buys, point)
		} else {
			sells = append(sells, point)
		}
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: "Trade Executions"}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
	)
	scatter.SetXAxis(xs).
		AddSeries("BUY", buys).
		AddSeries("SELL", sells)

	c.page.AddCharts(scatter)
}

func (c *echartsCanvas) AddIndicatorPanel(name string, timestamps []time.Time, values []float64) {
	xs := make([]string, len(timestamps))
	data := make([]opts.LineData, len(timestamps))

	for i, ts := range timestamps {
		xs[i] = ts.Format(time.RFC3339)

		// NaN warm-up values render as gaps.
		if i < len(values) && !math.IsNaN(values[i]) {
			data[i] = opts.LineData{Value: values[i]}
		} else {
			data[i] = opts.LineData{Value: nil}
		}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithTitleOpts(opts.Title{Title: name}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
	)
	line.SetXAxis(xs).AddSeries(name, data)

	c.page.AddCharts(line)
}

func (c *echartsCanvas) Save(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return errors.Wrapf(errors.ErrCodePlotFailed, err, "failed to create plot file %q", path)
	}
	defer f.Close()

	if err := c.page.Render(f); err != nil {
		return errors.Wrap(errors.ErrCodePlotFailed, "failed to render charts", err)
	}

	return nil
}
