package strategy

import (
	"math"

	"github.com/tradeforge/backtest/internal/indicator"
	"github.com/tradeforge/backtest/internal/types"
)

// SMACrossover trades short/long simple moving average crossovers on one
// timeframe: a cross of the short average above the long is a buy, the
// opposite cross is a sell.
type SMACrossover struct {
	Timeframe   string
	ShortPeriod int
	LongPeriod  int
}

// NewSMACrossover creates the crossover strategy with the conventional
// 10/30 periods.
func NewSMACrossover(timeframe string) *SMACrossover {
	return &SMACrossover{
		Timeframe:   timeframe,
		ShortPeriod: 10,
		LongPeriod:  30,
	}
}

// Name implements Decision.
func (s *SMACrossover) Name() string {
	return "sma_crossover"
}

// Evaluate implements Decision.
func (s *SMACrossover) Evaluate(view MarketView, _ string) (types.Signal, error) {
	frame, ok := view[s.Timeframe]
	if !ok || frame.Len() < s.LongPeriod+1 {
		return types.SignalHold, nil
	}

	closes := frame.Closes()

	short, err := indicator.SMA(closes, s.ShortPeriod)
	if err != nil {
		return types.SignalHold, err
	}

	long, err := indicator.SMA(closes, s.LongPeriod)
	if err != nil {
		return types.SignalHold, err
	}

	n := len(closes)
	curShort, prevShort := short[n-1], short[n-2]
	curLong, prevLong := long[n-1], long[n-2]

	if anyNaN(curShort, prevShort, curLong, prevLong) {
		return types.SignalHold, nil
	}

	switch {
	case prevShort <= prevLong && curShort > curLong:
		return types.SignalBuy, nil
	case prevShort >= prevLong && curShort < curLong:
		return types.SignalSell, nil
	default:
		return types.SignalHold, nil
	}
}

func anyNaN(values ...float64) bool {
	for _, v := range values {
		if math.IsNaN(v) {
			return true
		}
	}

	return false
}
