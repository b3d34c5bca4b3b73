package engine

import (
	"math"
	"sort"

	"github.com/tradeforge/backtest/internal/indicator"
	"github.com/tradeforge/backtest/pkg/errors"
)

// Trend labels for a timeframe snapshot.
const (
	TrendBullish = "bullish"
	TrendBearish = "bearish"
	TrendNeutral = "neutral"
)

// Volatility regime labels for a timeframe snapshot.
const (
	VolatilityLow    = "low"
	VolatilityNormal = "normal"
	VolatilityHigh   = "high"
)

// TimeframeSnapshot summarizes the latest indicator state of one timeframe.
type TimeframeSnapshot struct {
	Timeframe     string  `yaml:"timeframe" json:"timeframe"`
	Close         float64 `yaml:"close" json:"close"`
	RSI           float64 `yaml:"rsi" json:"rsi"`
	MACDHistogram float64 `yaml:"macd_histogram" json:"macd_histogram"`
	BBPosition    float64 `yaml:"bb_position" json:"bb_position"`
	Trend         string  `yaml:"trend" json:"trend"`
	Volatility    string  `yaml:"volatility" json:"volatility"`
}

// ConsolidatedView groups timeframes by their snapshot classification,
// preserving the engine's timeframe order.
type ConsolidatedView struct {
	BullishTimeframes        []string `yaml:"bullish_timeframes" json:"bullish_timeframes"`
	BearishTimeframes        []string `yaml:"bearish_timeframes" json:"bearish_timeframes"`
	HighVolatilityTimeframes []string `yaml:"high_volatility_timeframes" json:"high_volatility_timeframes"`
}

// MultiTimeframeReport is the cross-timeframe indicator summary.
type MultiTimeframeReport struct {
	Symbol       string              `yaml:"symbol" json:"symbol"`
	Snapshots    []TimeframeSnapshot `yaml:"snapshots" json:"snapshots"`
	Consolidated ConsolidatedView    `yaml:"consolidated" json:"consolidated"`
}

// MultiTimeframeAnalysis builds the latest snapshot for every timeframe
// the engine was loaded with, in the order the timeframes were requested.
func (e *Engine) MultiTimeframeAnalysis() (*MultiTimeframeReport, error) {
	report := &MultiTimeframeReport{Symbol: e.symbol}

	for _, tf := range e.timeframes {
		frame := e.frames[tf]

		bar, ok := frame.LastBar()
		if !ok {
			return nil, errors.Newf(errors.ErrCodeNoMarketData, "no bars for timeframe %s", tf)
		}

		snap := TimeframeSnapshot{
			Timeframe:     tf,
			Close:         bar.Close,
			RSI:           frame.Last(indicator.ColRSI),
			MACDHistogram: frame.Last(indicator.ColMACDHistogram),
			BBPosition:    bandPosition(frame, bar.Close),
			Trend:         classifyTrend(frame.Last(indicator.ColMACDHistogram)),
			Volatility:    classifyVolatility(frame),
		}

		report.Snapshots = append(report.Snapshots, snap)

		switch snap.Trend {
		case TrendBullish:
			report.Consolidated.BullishTimeframes = append(report.Consolidated.BullishTimeframes, tf)
		case TrendBearish:
			report.Consolidated.BearishTimeframes = append(report.Consolidated.BearishTimeframes, tf)
		}

		if snap.Volatility == VolatilityHigh {
			report.Consolidated.HighVolatilityTimeframes = append(report.Consolidated.HighVolatilityTimeframes, tf)
		}
	}

	return report, nil
}

// bandPosition locates the close inside the Bollinger channel on a 0..1
// scale, clipped at the band edges.
func bandPosition(frame *indicator.Frame, close float64) float64 {
	upper := frame.Last(indicator.ColUpperBand)
	lower := frame.Last(indicator.ColLowerBand)

	width := upper - lower
	if math.IsNaN(width) || width <= 0 {
		return 0.5
	}

	pos := (close - lower) / width

	if pos < 0 {
		return 0
	}

	if pos > 1 {
		return 1
	}

	return pos
}

func classifyTrend(histogram float64) string {
	switch {
	case math.IsNaN(histogram):
		return TrendNeutral
	case histogram > 0:
		return TrendBullish
	case histogram < 0:
		return TrendBearish
	default:
		return TrendNeutral
	}
}

// classifyVolatility compares the current Bollinger bandwidth against the
// frame's own bandwidth history: below the 25th percentile is low, above
// the 75th is high.
func classifyVolatility(frame *indicator.Frame) string {
	upper, okU := frame.Column(indicator.ColUpperBand)
	lower, okL := frame.Column(indicator.ColLowerBand)
	middle, okM := frame.Column(indicator.ColMiddleBand)

	if !okU || !okL || !okM {
		return VolatilityNormal
	}

	var widths []float64

	for i := range upper {
		if math.IsNaN(upper[i]) || math.IsNaN(lower[i]) || math.IsNaN(middle[i]) || middle[i] == 0 {
			continue
		}

		widths = append(widths, (upper[i]-lower[i])/middle[i])
	}

	if len(widths) < 4 {
		return VolatilityNormal
	}

	current := widths[len(widths)-1]

	sorted := make([]float64, len(widths))
	copy(sorted, widths)
	sort.Float64s(sorted)

	p25 := sorted[len(sorted)/4]
	p75 := sorted[len(sorted)*3/4]

	switch {
	case current < p25:
		return VolatilityLow
	case current > p75:
		return VolatilityHigh
	default:
		return VolatilityNormal
	}
}
