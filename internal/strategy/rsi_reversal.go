package strategy

import (
	"math"

	"github.com/tradeforge/backtest/internal/indicator"
	"github.com/tradeforge/backtest/internal/types"
)

// RSIReversal buys when RSI crosses back up through the oversold level
// and sells when it crosses back down through the overbought level.
type RSIReversal struct {
	Timeframe  string
	Oversold   float64
	Overbought float64
}

// NewRSIReversal creates the reversal strategy with the conventional
// 30/70 levels.
func NewRSIReversal(timeframe string) *RSIReversal {
	return &RSIReversal{
		Timeframe:  timeframe,
		Oversold:   30,
		Overbought: 70,
	}
}

// Name implements Decision.
func (r *RSIReversal) Name() string {
	return "rsi_reversal"
}

// Evaluate implements Decision.
func (r *RSIReversal) Evaluate(view MarketView, _ string) (types.Signal, error) {
	frame, ok := view[r.Timeframe]
	if !ok || frame.Len() < 2 {
		return types.SignalHold, nil
	}

	rsi, ok := frame.Column(indicator.ColRSI)
	if !ok {
		return types.SignalHold, nil
	}

	cur, prev := rsi[len(rsi)-1], rsi[len(rsi)-2]
	if math.IsNaN(cur) || math.IsNaN(prev) {
		return types.SignalHold, nil
	}

	switch {
	case prev < r.Oversold && cur > r.Oversold:
		return types.SignalBuy, nil
	case prev > r.Overbought && cur < r.Overbought:
		return types.SignalSell, nil
	default:
		return types.SignalHold, nil
	}
}

// RSIThreshold is the parameterized variant used by the grid optimizer:
// it buys whenever RSI is below the oversold level and sells whenever it
// is above the overbought level.
type RSIThreshold struct {
	Timeframe  string
	Oversold   float64
	Overbought float64
}

// NewRSIThresholdFromParams builds an RSIThreshold from an optimizer
// parameter mapping with "oversold" and "overbought" keys; missing keys
// fall back to the conventional 30/70 levels.
func NewRSIThresholdFromParams(timeframe string, params map[string]float64) *RSIThreshold {
	oversold, ok := params["oversold"]
	if !ok {
		oversold = 30
	}

	overbought, ok := params["overbought"]
	if !ok {
		overbought = 70
	}

	return &RSIThreshold{
		Timeframe:  timeframe,
		Oversold:   oversold,
		Overbought: overbought,
	}
}

// Name implements Decision.
func (r *RSIThreshold) Name() string {
	return "rsi_threshold"
}

// Evaluate implements Decision.
func (r *RSIThreshold) Evaluate(view MarketView, _ string) (types.Signal, error) {
	frame, ok := view[r.Timeframe]
	if !ok || frame.Len() == 0 {
		return types.SignalHold, nil
	}

	cur := frame.Last(indicator.ColRSI)
	if math.IsNaN(cur) {
		return types.SignalHold, nil
	}

	switch {
	case cur < r.Oversold:
		return types.SignalBuy, nil
	case cur > r.Overbought:
		return types.SignalSell, nil
	default:
		return types.SignalHold, nil
	}
}
