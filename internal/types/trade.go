package types

import (
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/tradeforge/backtest/pkg/errors"
)

// Trade is one executed leg of a round trip. An entry leg has
// EntryPoint set; the matching exit leg carries EntryPrice, ProfitLoss
// and ROIPct for the whole round trip.
type Trade struct {
	ID         string    `yaml:"trade_id" json:"trade_id"`
	Symbol     string    `yaml:"symbol" json:"symbol"`
	Side       Side      `yaml:"side" json:"side"`
	Timestamp  time.Time `yaml:"timestamp" json:"timestamp"`
	Price      float64   `yaml:"price" json:"price"`
	Quantity   float64   `yaml:"quantity" json:"quantity"`
	Value      float64   `yaml:"value" json:"value"`
	Commission float64   `yaml:"commission" json:"commission"`
	EntryPoint bool      `yaml:"entry_point" json:"entry_point"`
	EntryPrice float64   `yaml:"entry_price,omitempty" json:"entry_price,omitempty"`
	ProfitLoss float64   `yaml:"profit_loss,omitempty" json:"profit_loss,omitempty"`
	ROIPct     float64   `yaml:"roi_pct,omitempty" json:"roi_pct,omitempty"`
}

// timestampLayouts are the string forms accepted by ParseTimestamp,
// tried in order.
var timestampLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// ParseTimestamp canonicalizes the heterogeneous timestamp representations
// that reach the trade boundary: time.Time values, ISO-8601 style strings,
// and unix epochs in seconds or milliseconds. All representations converge
// to a UTC time.Time; anything else is a serialization error.
func ParseTimestamp(v any) (time.Time, error) {
	switch ts := v.(type) {
	case time.Time:
		return ts.UTC(), nil
	case *time.Time:
		if ts == nil {
			return time.Time{}, errors.New(errors.ErrCodeTimestampFormat, "nil timestamp")
		}

		return ts.UTC(), nil
	case string:
		for _, layout := range timestampLayouts {
			if parsed, err := time.Parse(layout, ts); err == nil {
				return parsed.UTC(), nil
			}
		}

		return time.Time{}, errors.Newf(errors.ErrCodeTimestampFormat, "unrecognized timestamp string %q", ts)
	case int64:
		return epochToTime(ts), nil
	case int:
		return epochToTime(int64(ts)), nil
	case float64:
		if math.IsNaN(ts) || math.IsInf(ts, 0) {
			return time.Time{}, errors.Newf(errors.ErrCodeTimestampFormat, "non-finite epoch timestamp %v", ts)
		}

		return epochToTime(int64(ts)), nil
	default:
		return time.Time{}, errors.Newf(errors.ErrCodeTimestampFormat, "unsupported timestamp type %T", v)
	}
}

// epochToTime interprets large epochs as milliseconds, smaller ones as seconds.
func epochToTime(epoch int64) time.Time {
	if epoch > 1e12 || epoch < -1e12 {
		return time.UnixMilli(epoch).UTC()
	}

	return time.Unix(epoch, 0).UTC()
}

// FormatTimestamp renders any accepted timestamp representation as the
// canonical RFC3339 string used for persistence. A value that cannot be
// parsed falls back to its plain string conversion; only nil fails.
func FormatTimestamp(v any) (string, error) {
	if v == nil {
		return "", errors.New(errors.ErrCodeTimestampFormat, "nil timestamp")
	}

	parsed, err := ParseTimestamp(v)
	if err != nil {
		// Recover locally with a canonical string conversion.
		return fmt.Sprintf("%v", v), nil
	}

	return parsed.Format(time.RFC3339), nil
}

// NewTrade builds a trade leg, canonicalizing the timestamp representation
// and deriving Value = Price * Quantity with decimal arithmetic.
func NewTrade(id, symbol string, side Side, timestamp any, price, quantity, commission float64) (Trade, error) {
	ts, err := ParseTimestamp(timestamp)
	if err != nil {
		return Trade{}, err
	}

	value, _ := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(quantity)).Float64()

	return Trade{
		ID:         id,
		Symbol:     symbol,
		Side:       side,
		Timestamp:  ts,
		Price:      price,
		Quantity:   quantity,
		Value:      value,
		Commission: commission,
		EntryPoint: side == SideBuy,
	}, nil
}

// CloseRoundTrip fills the exit leg's round-trip fields from its entry leg:
// profit_loss = exit.value - entry.value - total commission, and
// roi_pct = profit_loss / entry.value * 100.
func (t *Trade) CloseRoundTrip(entry Trade) {
	exitValue := decimal.NewFromFloat(t.Value)
	entryValue := decimal.NewFromFloat(entry.Value)
	fees := decimal.NewFromFloat(entry.Commission).Add(decimal.NewFromFloat(t.Commission))

	pnl := exitValue.Sub(entryValue).Sub(fees)

	t.EntryPoint = false
	t.EntryPrice = entry.Price
	t.ProfitLoss, _ = pnl.Float64()

	if entry.Value != 0 {
		roi := pnl.Div(decimal.NewFromFloat(entry.Value)).Mul(decimal.NewFromInt(100))
		t.ROIPct, _ = roi.Float64()
	}
}
