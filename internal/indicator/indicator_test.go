package indicator

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tradeforge/backtest/internal/types"
	"github.com/tradeforge/backtest/pkg/errors"
)

type IndicatorTestSuite struct {
	suite.Suite
}

func TestIndicatorSuite(t *testing.T) {
	suite.Run(t, new(IndicatorTestSuite))
}

func makeBars(n int, price func(i int) float64) []types.Bar {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, n)

	for i := range bars {
		p := price(i)
		bars[i] = types.Bar{
			Symbol:    "BTCUSDT",
			Timeframe: "1h",
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      p,
			High:      p * 1.01,
			Low:       p * 0.99,
			Close:     p,
			Volume:    1000,
		}
	}

	return bars
}

func waveCloses(n int) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = 100 + 10*math.Sin(float64(i)/5)
	}

	return closes
}

func (s *IndicatorTestSuite) TestSMAWarmupAndValues() {
	values := []float64{1, 2, 3, 4, 5}

	out, err := SMA(values, 3)
	s.Require().NoError(err)
	s.Require().Len(out, 5)

	s.True(math.IsNaN(out[0]))
	s.True(math.IsNaN(out[1]))
	s.InDelta(2.0, out[2], 1e-9)
	s.InDelta(3.0, out[3], 1e-9)
	s.InDelta(4.0, out[4], 1e-9)
}

func (s *IndicatorTestSuite) TestSMARejectsBadPeriod() {
	_, err := SMA([]float64{1, 2, 3}, 0)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidPeriod))
}

func (s *IndicatorTestSuite) TestRSIStaysInBounds() {
	out, err := RSI(waveCloses(200), 14)
	s.Require().NoError(err)

	for i, v := range out {
		if math.IsNaN(v) {
			continue
		}

		s.GreaterOrEqual(v, 0.0, "index %d", i)
		s.LessOrEqual(v, 100.0, "index %d", i)
	}
}

func (s *IndicatorTestSuite) TestRSIAllGainsIsHundred() {
	closes := make([]float64, 50)
	for i := range closes {
		closes[i] = 100 + float64(i)
	}

	out, err := RSI(closes, 14)
	s.Require().NoError(err)

	s.InDelta(100.0, out[len(out)-1], 1e-9)
}

func (s *IndicatorTestSuite) TestBollingerBandOrdering() {
	upper, middle, lower, err := BollingerBands(waveCloses(100), 20, 2.0)
	s.Require().NoError(err)

	sma, err := SMA(waveCloses(100), 20)
	s.Require().NoError(err)

	for i := 19; i < 100; i++ {
		s.InDelta(sma[i], middle[i], 1e-9)
		s.GreaterOrEqual(upper[i], middle[i])
		s.LessOrEqual(lower[i], middle[i])
	}
}

func (s *IndicatorTestSuite) TestMACDRejectsFastNotBelowSlow() {
	_, _, _, err := MACD(waveCloses(100), 26, 12, 9)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))
}

func (s *IndicatorTestSuite) TestMACDHistogramIsDifference() {
	macdLine, signalLine, histogram, err := MACD(waveCloses(200), 12, 26, 9)
	s.Require().NoError(err)

	for i := range histogram {
		if math.IsNaN(histogram[i]) {
			continue
		}

		s.InDelta(macdLine[i]-signalLine[i], histogram[i], 1e-9)
	}
}

// Indicator values computed over a prefix must match the same indices of
// the full-series computation: a value may not depend on later bars.
func (s *IndicatorTestSuite) TestPrefixComputationMatchesFullSeries() {
	closes := waveCloses(200)
	cut := 120

	fullRSI, err := RSI(closes, 14)
	s.Require().NoError(err)

	prefixRSI, err := RSI(closes[:cut], 14)
	s.Require().NoError(err)

	fullMACD, fullSignal, _, err := MACD(closes, 12, 26, 9)
	s.Require().NoError(err)

	prefixMACD, prefixSignal, _, err := MACD(closes[:cut], 12, 26, 9)
	s.Require().NoError(err)

	fullUpper, _, fullLower, err := BollingerBands(closes, 20, 2.0)
	s.Require().NoError(err)

	prefixUpper, _, prefixLower, err := BollingerBands(closes[:cut], 20, 2.0)
	s.Require().NoError(err)

	for i := 0; i < cut; i++ {
		s.equalOrBothNaN(fullRSI[i], prefixRSI[i], "rsi", i)
		s.equalOrBothNaN(fullMACD[i], prefixMACD[i], "macd", i)
		s.equalOrBothNaN(fullSignal[i], prefixSignal[i], "signal", i)
		s.equalOrBothNaN(fullUpper[i], prefixUpper[i], "upper", i)
		s.equalOrBothNaN(fullLower[i], prefixLower[i], "lower", i)
	}
}

func (s *IndicatorTestSuite) equalOrBothNaN(want, got float64, name string, i int) {
	s.T().Helper()

	if math.IsNaN(want) {
		s.True(math.IsNaN(got), "%s at %d: want NaN, got %v", name, i, got)

		return
	}

	s.InDelta(want, got, 1e-9, "%s at %d", name, i)
}

func (s *IndicatorTestSuite) TestAnnotateIsIdempotent() {
	bars := makeBars(100, func(i int) float64 { return 100 + 10*math.Sin(float64(i)/5) })

	first, err := Annotate(bars)
	s.Require().NoError(err)

	second, err := Annotate(bars)
	s.Require().NoError(err)

	s.Equal(first.ColumnNames(), second.ColumnNames())

	for _, name := range first.ColumnNames() {
		a, _ := first.Column(name)
		b, _ := second.Column(name)
		s.Require().Len(b, len(a))

		for i := range a {
			s.equalOrBothNaN(a[i], b[i], name, i)
		}
	}
}

func (s *IndicatorTestSuite) TestTruncateSharesValues() {
	bars := makeBars(100, func(i int) float64 { return 100 + float64(i) })

	frame, err := Annotate(bars)
	s.Require().NoError(err)

	view := frame.Truncate(50)
	s.Equal(50, view.Len())

	for _, name := range frame.ColumnNames() {
		full, _ := frame.Column(name)
		truncated, _ := view.Column(name)

		s.Require().Len(truncated, 50)
		s.equalOrBothNaN(full[49], truncated[49], name, 49)
	}
}

// Re-slicing the view beyond its length must not expose bars past the
// cut, so the view's capacity has to end exactly at the cut.
func (s *IndicatorTestSuite) TestTruncateClipsCapacity() {
	bars := makeBars(100, func(i int) float64 { return 100 + float64(i) })

	frame, err := Annotate(bars)
	s.Require().NoError(err)

	view := frame.Truncate(50)

	s.Equal(50, cap(view.Bars))

	for _, name := range view.ColumnNames() {
		col, _ := view.Column(name)
		s.Equal(50, cap(col), name)
	}
}

func (s *IndicatorTestSuite) TestTruncateClampsRange() {
	frame := NewFrame(makeBars(10, func(i int) float64 { return 100 }))

	s.Equal(10, frame.Truncate(500).Len())
	s.Equal(0, frame.Truncate(-3).Len())
}

func (s *IndicatorTestSuite) TestTruncateAtExcludesFutureBars() {
	bars := makeBars(48, func(i int) float64 { return 100 + float64(i) })
	frame := NewFrame(bars)

	cutoff := bars[10].Timestamp.Add(30 * time.Minute)
	view := frame.TruncateAt(cutoff)

	s.Equal(11, view.Len())

	last, ok := view.LastBar()
	s.Require().True(ok)
	s.False(last.Timestamp.After(cutoff))
}

func (s *IndicatorTestSuite) TestLastIsNaNForMissingColumn() {
	frame := NewFrame(makeBars(5, func(i int) float64 { return 100 }))
	s.True(math.IsNaN(frame.Last("nope")))
}

func (s *IndicatorTestSuite) TestATRPositiveAfterWarmup() {
	bars := makeBars(60, func(i int) float64 { return 100 + 10*math.Sin(float64(i)/5) })

	atr, err := ATR(bars, 14)
	s.Require().NoError(err)

	s.True(math.IsNaN(atr[0]))
	s.Greater(atr[len(atr)-1], 0.0)
}
