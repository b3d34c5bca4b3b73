package types

import (
	"sort"
	"time"
)

// Bar is one OHLCV sample at a timestamp for a symbol and timeframe.
type Bar struct {
	Symbol    string    `yaml:"symbol" json:"symbol"`
	Timeframe string    `yaml:"timeframe" json:"timeframe"`
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	Open      float64   `yaml:"open" json:"open"`
	High      float64   `yaml:"high" json:"high"`
	Low       float64   `yaml:"low" json:"low"`
	Close     float64   `yaml:"close" json:"close"`
	Volume    float64   `yaml:"volume" json:"volume"`
}

// TimeframeDuration converts a timeframe label such as "1m", "15m", "1h",
// "4h" or "1d" to its bar duration. Unknown labels return false.
func TimeframeDuration(timeframe string) (time.Duration, bool) {
	if len(timeframe) < 2 {
		return 0, false
	}

	unit := timeframe[len(timeframe)-1]

	var n int
	for _, c := range timeframe[:len(timeframe)-1] {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}

	if n == 0 {
		return 0, false
	}

	switch unit {
	case 'm':
		return time.Duration(n) * time.Minute, true
	case 'h':
		return time.Duration(n) * time.Hour, true
	case 'd':
		return time.Duration(n) * 24 * time.Hour, true
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, true
	default:
		return 0, false
	}
}

// PeriodsPerYear returns the number of bars of the given timeframe in a
// calendar year, used as the annualization factor for Sharpe and Sortino.
// Markets here trade around the clock, so a 365-day year is assumed.
// Unknown timeframes fall back to daily bars.
func PeriodsPerYear(timeframe string) float64 {
	d, ok := TimeframeDuration(timeframe)
	if !ok || d <= 0 {
		return 365
	}

	return float64(365*24*time.Hour) / float64(d)
}

// SortBars orders bars ascending by timestamp and drops duplicates,
// keeping the first occurrence of each timestamp.
func SortBars(bars []Bar) []Bar {
	sorted := make([]Bar, len(bars))
	copy(sorted, bars)

	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})

	deduped := sorted[:0]

	var last time.Time

	for _, b := range sorted {
		if len(deduped) > 0 && b.Timestamp.Equal(last) {
			continue
		}

		deduped = append(deduped, b)
		last = b.Timestamp
	}

	return deduped
}
