package indicator

import (
	"math"

	"github.com/tradeforge/backtest/internal/types"
	"github.com/tradeforge/backtest/pkg/errors"
)

// ATR computes the Average True Range over the given period using
// Wilder's smoothing. The true range of the first bar is high - low;
// later bars also consider gaps from the previous close.
func ATR(bars []types.Bar, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "atr period must be positive, got %d", period)
	}

	out := nanSlice(len(bars))
	if len(bars) < period {
		return out, nil
	}

	tr := make([]float64, len(bars))

	for i, b := range bars {
		if i == 0 {
			tr[i] = b.High - b.Low

			continue
		}

		prevClose := bars[i-1].Close
		tr[i] = math.Max(b.High-b.Low, math.Max(math.Abs(b.High-prevClose), math.Abs(b.Low-prevClose)))
	}

	var seed float64
	for i := 0; i < period; i++ {
		seed += tr[i]
	}

	prev := seed / float64(period)
	out[period-1] = prev

	for i := period; i < len(bars); i++ {
		prev = (prev*float64(period-1) + tr[i]) / float64(period)
		out[i] = prev
	}

	return out, nil
}
