package strategy

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/tradeforge/backtest/internal/indicator"
	"github.com/tradeforge/backtest/internal/types"
)

type StrategyTestSuite struct {
	suite.Suite
}

func TestStrategySuite(t *testing.T) {
	suite.Run(t, new(StrategyTestSuite))
}

func frameWithCloses(closes []float64) *indicator.Frame {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]types.Bar, len(closes))

	for i, c := range closes {
		bars[i] = types.Bar{
			Symbol:    "BTCUSDT",
			Timeframe: "1h",
			Timestamp: start.Add(time.Duration(i) * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}

	return indicator.NewFrame(bars)
}

func frameWithColumn(name string, values []float64) *indicator.Frame {
	frame := frameWithCloses(make([]float64, len(values)))
	frame.Columns[name] = values

	return frame
}

func constantCloses(n int, value float64) []float64 {
	closes := make([]float64, n)
	for i := range closes {
		closes[i] = value
	}

	return closes
}

func (s *StrategyTestSuite) TestRegistry() {
	registry := NewRegistry()
	registry.Register(NewSMACrossover("1h"))
	registry.Register(NewRSIReversal("1h"))
	registry.Register(NewMACDMomentum("1h"))

	s.Equal([]string{"macd_momentum", "rsi_reversal", "sma_crossover"}, registry.List())

	d, ok := registry.Get("rsi_reversal")
	s.Require().True(ok)
	s.Equal("rsi_reversal", d.Name())

	_, ok = registry.Get("nope")
	s.False(ok)
}

func (s *StrategyTestSuite) TestFuncAdapter() {
	called := false

	d := NewFunc("custom", func(view MarketView, symbol string) (types.Signal, error) {
		called = true
		s.Equal("BTCUSDT", symbol)

		return types.SignalBuy, nil
	})

	s.Equal("custom", d.Name())

	sig, err := d.Evaluate(MarketView{}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalBuy, sig)
	s.True(called)
}

func (s *StrategyTestSuite) TestSMACrossoverBuySignal() {
	closes := constantCloses(40, 100)
	closes[39] = 200 // short average jumps above the long one

	sig, err := NewSMACrossover("1h").Evaluate(MarketView{"1h": frameWithCloses(closes)}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalBuy, sig)
}

func (s *StrategyTestSuite) TestSMACrossoverSellSignal() {
	closes := constantCloses(40, 100)
	closes[39] = 10

	sig, err := NewSMACrossover("1h").Evaluate(MarketView{"1h": frameWithCloses(closes)}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalSell, sig)
}

func (s *StrategyTestSuite) TestSMACrossoverHoldsWithoutEnoughBars() {
	sig, err := NewSMACrossover("1h").Evaluate(MarketView{"1h": frameWithCloses(constantCloses(20, 100))}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalHold, sig)
}

func (s *StrategyTestSuite) TestSMACrossoverHoldsWithoutTimeframe() {
	sig, err := NewSMACrossover("1h").Evaluate(MarketView{}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalHold, sig)
}

func (s *StrategyTestSuite) TestRSIReversalSignals() {
	d := NewRSIReversal("1h")

	buy := frameWithColumn(indicator.ColRSI, []float64{25, 35})
	sig, err := d.Evaluate(MarketView{"1h": buy}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalBuy, sig)

	sell := frameWithColumn(indicator.ColRSI, []float64{75, 65})
	sig, err = d.Evaluate(MarketView{"1h": sell}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalSell, sig)

	hold := frameWithColumn(indicator.ColRSI, []float64{45, 50})
	sig, err = d.Evaluate(MarketView{"1h": hold}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalHold, sig)

	warmup := frameWithColumn(indicator.ColRSI, []float64{math.NaN(), 35})
	sig, err = d.Evaluate(MarketView{"1h": warmup}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalHold, sig, "NaN warm-up values never trigger a trade")
}

func (s *StrategyTestSuite) TestRSIThresholdSignals() {
	d := NewRSIThresholdFromParams("1h", map[string]float64{"oversold": 35, "overbought": 65})

	sig, err := d.Evaluate(MarketView{"1h": frameWithColumn(indicator.ColRSI, []float64{30})}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalBuy, sig)

	sig, err = d.Evaluate(MarketView{"1h": frameWithColumn(indicator.ColRSI, []float64{70})}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalSell, sig)

	sig, err = d.Evaluate(MarketView{"1h": frameWithColumn(indicator.ColRSI, []float64{50})}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalHold, sig)
}

func (s *StrategyTestSuite) TestRSIThresholdDefaults() {
	d := NewRSIThresholdFromParams("1h", nil)

	s.InDelta(30.0, d.Oversold, 1e-9)
	s.InDelta(70.0, d.Overbought, 1e-9)
}

func (s *StrategyTestSuite) TestMACDMomentumSignals() {
	d := NewMACDMomentum("1h")

	buy := frameWithColumn(indicator.ColMACDHistogram, []float64{-1, 1})
	sig, err := d.Evaluate(MarketView{"1h": buy}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalBuy, sig)

	sell := frameWithColumn(indicator.ColMACDHistogram, []float64{1, -1})
	sig, err = d.Evaluate(MarketView{"1h": sell}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalSell, sig)

	hold := frameWithColumn(indicator.ColMACDHistogram, []float64{1, 2})
	sig, err = d.Evaluate(MarketView{"1h": hold}, "BTCUSDT")
	s.Require().NoError(err)
	s.Equal(types.SignalHold, sig)
}
