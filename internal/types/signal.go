package types

// Signal is a strategy decision for one bar.
type Signal string

const (
	SignalBuy  Signal = "BUY"
	SignalSell Signal = "SELL"
	SignalHold Signal = "HOLD"
)

// Valid reports whether the signal is one of BUY, SELL or HOLD.
func (s Signal) Valid() bool {
	switch s {
	case SignalBuy, SignalSell, SignalHold:
		return true
	default:
		return false
	}
}

// Side is the direction of an executed trade leg.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)
