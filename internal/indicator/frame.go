package indicator

import (
	"math"
	"sort"
	"time"

	"github.com/tradeforge/backtest/internal/types"
)

// Column names produced by Annotate.
const (
	ColRSI           = "rsi"
	ColUpperBand     = "upper_band"
	ColMiddleBand    = "middle_band"
	ColLowerBand     = "lower_band"
	ColMACDLine      = "macd_line"
	ColSignalLine    = "signal_line"
	ColMACDHistogram = "macd_histogram"
	ColSMA20         = "sma_20"
	ColEMA20         = "ema_20"
	ColATR           = "atr"
)

// Default indicator parameters.
const (
	DefaultRSIPeriod       = 14
	DefaultBollingerPeriod = 20
	DefaultBollingerK      = 2.0
	DefaultMACDFast        = 12
	DefaultMACDSlow        = 26
	DefaultMACDSignal      = 9
	DefaultTrendPeriod     = 20
	DefaultATRPeriod       = 14
)

// Frame is an ordered bar sequence together with derived indicator
// columns aligned index-for-index with the bars.
type Frame struct {
	Bars    []types.Bar
	Columns map[string][]float64
}

// NewFrame wraps a bar slice with no indicator columns.
func NewFrame(bars []types.Bar) *Frame {
	return &Frame{
		Bars:    bars,
		Columns: make(map[string][]float64),
	}
}

// Len returns the number of bars in the frame.
func (f *Frame) Len() int {
	return len(f.Bars)
}

// Closes returns the close price series.
func (f *Frame) Closes() []float64 {
	closes := make([]float64, len(f.Bars))
	for i, b := range f.Bars {
		closes[i] = b.Close
	}

	return closes
}

// Timestamps returns the bar timestamp series.
func (f *Frame) Timestamps() []time.Time {
	ts := make([]time.Time, len(f.Bars))
	for i, b := range f.Bars {
		ts[i] = b.Timestamp
	}

	return ts
}

// Column returns the named indicator column, if present.
func (f *Frame) Column(name string) ([]float64, bool) {
	col, ok := f.Columns[name]

	return col, ok
}

// ColumnNames returns the sorted names of all indicator columns.
func (f *Frame) ColumnNames() []string {
	names := make([]string, 0, len(f.Columns))
	for name := range f.Columns {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Last returns the value of the named column at the final bar,
// or NaN when the column is missing or the frame is empty.
func (f *Frame) Last(name string) float64 {
	col, ok := f.Columns[name]
	if !ok || len(col) == 0 {
		return math.NaN()
	}

	return col[len(col)-1]
}

// LastBar returns the final bar; ok is false for an empty frame.
func (f *Frame) LastBar() (types.Bar, bool) {
	if len(f.Bars) == 0 {
		return types.Bar{}, false
	}

	return f.Bars[len(f.Bars)-1], true
}

// Truncate returns a view of the frame limited to the first n bars.
// The view shares backing arrays with the original: indicator values at
// index i depend only on bars at index <= i, so sharing is safe. Capacity
// is clipped to the cut so re-slicing the view cannot reach past it.
func (f *Frame) Truncate(n int) *Frame {
	if n > len(f.Bars) {
		n = len(f.Bars)
	}

	if n < 0 {
		n = 0
	}

	cols := make(map[string][]float64, len(f.Columns))

	for name, col := range f.Columns {
		limit := n
		if limit > len(col) {
			limit = len(col)
		}

		cols[name] = col[:limit:limit]
	}

	return &Frame{
		Bars:    f.Bars[:n:n],
		Columns: cols,
	}
}

// TruncateAt returns the view of the frame containing only bars with a
// timestamp at or before the cutoff. Bars are ordered ascending, so this
// is a binary search over timestamps.
func (f *Frame) TruncateAt(cutoff time.Time) *Frame {
	n := sort.Search(len(f.Bars), func(i int) bool {
		return f.Bars[i].Timestamp.After(cutoff)
	})

	return f.Truncate(n)
}

// Annotate computes the default indicator column set over the given bars
// and returns a new frame; the input slice is not modified. Calling it
// twice on the same bars yields identical columns.
func Annotate(bars []types.Bar) (*Frame, error) {
	frame := NewFrame(bars)
	closes := frame.Closes()

	rsi, err := RSI(closes, DefaultRSIPeriod)
	if err != nil {
		return nil, err
	}

	upper, middle, lower, err := BollingerBands(closes, DefaultBollingerPeriod, DefaultBollingerK)
	if err != nil {
		return nil, err
	}

	macdLine, signalLine, histogram, err := MACD(closes, DefaultMACDFast, DefaultMACDSlow, DefaultMACDSignal)
	if err != nil {
		return nil, err
	}

	sma20, err := SMA(closes, DefaultTrendPeriod)
	if err != nil {
		return nil, err
	}

	ema20, err := EMA(closes, DefaultTrendPeriod)
	if err != nil {
		return nil, err
	}

	atr, err := ATR(bars, DefaultATRPeriod)
	if err != nil {
		return nil, err
	}

	frame.Columns[ColRSI] = rsi
	frame.Columns[ColUpperBand] = upper
	frame.Columns[ColMiddleBand] = middle
	frame.Columns[ColLowerBand] = lower
	frame.Columns[ColMACDLine] = macdLine
	frame.Columns[ColSignalLine] = signalLine
	frame.Columns[ColMACDHistogram] = histogram
	frame.Columns[ColSMA20] = sma20
	frame.Columns[ColEMA20] = ema20
	frame.Columns[ColATR] = atr

	return frame, nil
}
