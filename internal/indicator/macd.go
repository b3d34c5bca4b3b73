package indicator

import (
	"math"

	"github.com/tradeforge/backtest/pkg/errors"
)

// MACD computes the Moving Average Convergence Divergence:
// macd_line = EMA(fast) - EMA(slow), signal_line = EMA(macd_line, signal),
// histogram = macd_line - signal_line.
func MACD(closes []float64, fastPeriod, slowPeriod, signalPeriod int) (macdLine, signalLine, histogram []float64, err error) {
	if fastPeriod <= 0 || slowPeriod <= 0 || signalPeriod <= 0 {
		return nil, nil, nil, errors.Newf(errors.ErrCodeInvalidPeriod,
			"macd periods must be positive, got fast=%d slow=%d signal=%d", fastPeriod, slowPeriod, signalPeriod)
	}

	if fastPeriod >= slowPeriod {
		return nil, nil, nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"macd fast period %d must be shorter than slow period %d", fastPeriod, slowPeriod)
	}

	fast, err := EMA(closes, fastPeriod)
	if err != nil {
		return nil, nil, nil, err
	}

	slow, err := EMA(closes, slowPeriod)
	if err != nil {
		return nil, nil, nil, err
	}

	macdLine = nanSlice(len(closes))
	for i := range closes {
		macdLine[i] = fast[i] - slow[i]
	}

	// The macd line only becomes defined at slowPeriod-1; the signal EMA
	// is seeded over the defined suffix so NaNs do not poison it.
	signalLine = nanSlice(len(closes))
	histogram = nanSlice(len(closes))

	start := slowPeriod - 1
	if start >= len(closes) {
		return macdLine, signalLine, histogram, nil
	}

	defined := macdLine[start:]

	signalSuffix, err := EMA(defined, signalPeriod)
	if err != nil {
		return nil, nil, nil, err
	}

	for i, v := range signalSuffix {
		signalLine[start+i] = v
		if !math.IsNaN(v) {
			histogram[start+i] = macdLine[start+i] - v
		}
	}

	return macdLine, signalLine, histogram, nil
}
