package strategy

import (
	"math"

	"github.com/tradeforge/backtest/internal/indicator"
	"github.com/tradeforge/backtest/internal/types"
)

// MACDMomentum trades MACD histogram sign flips: a flip above zero is a
// buy, a flip below zero is a sell.
type MACDMomentum struct {
	Timeframe string
}

// NewMACDMomentum creates the histogram sign-flip strategy.
func NewMACDMomentum(timeframe string) *MACDMomentum {
	return &MACDMomentum{Timeframe: timeframe}
}

// Name implements Decision.
func (m *MACDMomentum) Name() string {
	return "macd_momentum"
}

// Evaluate implements Decision.
func (m *MACDMomentum) Evaluate(view MarketView, _ string) (types.Signal, error) {
	frame, ok := view[m.Timeframe]
	if !ok || frame.Len() < 2 {
		return types.SignalHold, nil
	}

	hist, ok := frame.Column(indicator.ColMACDHistogram)
	if !ok {
		return types.SignalHold, nil
	}

	cur, prev := hist[len(hist)-1], hist[len(hist)-2]
	if math.IsNaN(cur) || math.IsNaN(prev) {
		return types.SignalHold, nil
	}

	switch {
	case prev <= 0 && cur > 0:
		return types.SignalBuy, nil
	case prev >= 0 && cur < 0:
		return types.SignalSell, nil
	default:
		return types.SignalHold, nil
	}
}
