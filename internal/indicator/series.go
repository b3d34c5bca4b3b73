// Package indicator implements pure technical-indicator transforms over
// ordered price series. Every function is deterministic for a given input
// and the value at index i depends only on inputs at index <= i, so the
// outputs stay valid under any truncation of the series. Warm-up indices,
// where a window is not yet filled, are NaN.
package indicator

import (
	"math"

	"github.com/tradeforge/backtest/pkg/errors"
)

// SMA computes the simple moving average with the given period.
func SMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "sma period must be positive, got %d", period)
	}

	out := nanSlice(len(values))

	var sum float64

	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}

		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}

	return out, nil
}

// EMA computes the exponential moving average with the given period,
// seeded with the SMA of the first period values.
func EMA(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "ema period must be positive, got %d", period)
	}

	out := nanSlice(len(values))
	if len(values) < period {
		return out, nil
	}

	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}

	seed /= float64(period)
	out[period-1] = seed

	alpha := 2.0 / (float64(period) + 1.0)
	prev := seed

	for i := period; i < len(values); i++ {
		prev = alpha*values[i] + (1-alpha)*prev
		out[i] = prev
	}

	return out, nil
}

// RollingStd computes the rolling population standard deviation over the
// given window.
func RollingStd(values []float64, period int) ([]float64, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "std period must be positive, got %d", period)
	}

	out := nanSlice(len(values))

	for i := period - 1; i < len(values); i++ {
		window := values[i-period+1 : i+1]

		var mean float64
		for _, v := range window {
			mean += v
		}

		mean /= float64(period)

		var variance float64
		for _, v := range window {
			d := v - mean
			variance += d * d
		}

		out[i] = math.Sqrt(variance / float64(period))
	}

	return out, nil
}

func nanSlice(n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = math.NaN()
	}

	return out
}
