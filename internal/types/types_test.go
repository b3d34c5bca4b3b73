package types

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"gopkg.in/yaml.v3"

	"github.com/tradeforge/backtest/pkg/errors"
)

type TypesTestSuite struct {
	suite.Suite
}

func TestTypesSuite(t *testing.T) {
	suite.Run(t, new(TypesTestSuite))
}

// Every accepted representation of the same instant must converge to one
// canonical serialized form.
func (s *TypesTestSuite) TestTimestampRepresentationsConverge() {
	want := time.Date(2024, 3, 15, 12, 30, 0, 0, time.UTC)

	inputs := []any{
		want,
		&want,
		"2024-03-15T12:30:00Z",
		"2024-03-15T12:30:00",
		"2024-03-15 12:30:00",
		want.Unix(),
		int(want.Unix()),
		float64(want.Unix()),
		want.UnixMilli(),
	}

	for _, input := range inputs {
		parsed, err := ParseTimestamp(input)
		s.Require().NoError(err, "input %v (%T)", input, input)
		s.True(parsed.Equal(want), "input %v (%T) parsed to %v", input, input, parsed)

		formatted, err := FormatTimestamp(input)
		s.Require().NoError(err)
		s.Equal("2024-03-15T12:30:00Z", formatted)
	}
}

func (s *TypesTestSuite) TestParseTimestampDateOnly() {
	parsed, err := ParseTimestamp("2024-03-15")
	s.Require().NoError(err)
	s.Equal(time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), parsed)
}

func (s *TypesTestSuite) TestParseTimestampRejectsGarbage() {
	_, err := ParseTimestamp("not a time")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeTimestampFormat))

	_, err = ParseTimestamp(struct{}{})
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeTimestampFormat))
}

func (s *TypesTestSuite) TestFormatTimestampNilFails() {
	_, err := FormatTimestamp(nil)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeTimestampFormat))
}

func (s *TypesTestSuite) TestFormatTimestampFallsBackToString() {
	formatted, err := FormatTimestamp("close-of-day")
	s.Require().NoError(err)
	s.Equal("close-of-day", formatted)
}

func (s *TypesTestSuite) TestNewTradeDerivesValue() {
	trade, err := NewTrade("t1", "BTCUSDT", SideBuy, "2024-01-01T00:00:00Z", 100, 10, 5)
	s.Require().NoError(err)

	s.Equal(1000.0, trade.Value)
	s.True(trade.EntryPoint)
	s.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), trade.Timestamp)
}

func (s *TypesTestSuite) TestCloseRoundTripProfitLoss() {
	entry, err := NewTrade("t1", "BTCUSDT", SideBuy, "2024-01-01T00:00:00Z", 100, 10, 5)
	s.Require().NoError(err)

	exit, err := NewTrade("t2", "BTCUSDT", SideSell, "2024-01-02T00:00:00Z", 200, 10, 6)
	s.Require().NoError(err)

	exit.CloseRoundTrip(entry)

	s.False(exit.EntryPoint)
	s.Equal(100.0, exit.EntryPrice)
	s.InDelta(989.0, exit.ProfitLoss, 1e-9)
	s.InDelta(98.9, exit.ROIPct, 1e-9)
}

func (s *TypesTestSuite) TestSortBarsOrdersAndDedupes() {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	bars := []Bar{
		{Timestamp: t0.Add(2 * time.Hour), Close: 3},
		{Timestamp: t0, Close: 1},
		{Timestamp: t0.Add(time.Hour), Close: 2},
		{Timestamp: t0, Close: 99},
	}

	sorted := SortBars(bars)

	s.Require().Len(sorted, 3)
	s.Equal(1.0, sorted[0].Close, "first occurrence of a duplicate timestamp wins")
	s.Equal(2.0, sorted[1].Close)
	s.Equal(3.0, sorted[2].Close)

	for i := 1; i < len(sorted); i++ {
		s.True(sorted[i].Timestamp.After(sorted[i-1].Timestamp))
	}
}

func (s *TypesTestSuite) TestTimeframeDuration() {
	cases := map[string]time.Duration{
		"1m":  time.Minute,
		"15m": 15 * time.Minute,
		"1h":  time.Hour,
		"4h":  4 * time.Hour,
		"1d":  24 * time.Hour,
		"1w":  7 * 24 * time.Hour,
	}

	for label, want := range cases {
		got, ok := TimeframeDuration(label)
		s.Require().True(ok, label)
		s.Equal(want, got, label)
	}

	for _, label := range []string{"", "h", "0h", "1x", "abc"} {
		_, ok := TimeframeDuration(label)
		s.False(ok, label)
	}
}

func (s *TypesTestSuite) TestPeriodsPerYear() {
	s.InDelta(365.0, PeriodsPerYear("1d"), 1e-9)
	s.InDelta(8760.0, PeriodsPerYear("1h"), 1e-9)
	s.InDelta(365.0, PeriodsPerYear("bogus"), 1e-9)
}

func (s *TypesTestSuite) TestClosedTradesFiltersEntryLegs() {
	result := BacktestResult{
		Trades: []Trade{
			{ID: "a", EntryPoint: true},
			{ID: "b", EntryPoint: false, ProfitLoss: 10},
			{ID: "c", EntryPoint: true},
			{ID: "d", EntryPoint: false, ProfitLoss: -4},
		},
	}

	closed := result.ClosedTrades()
	s.Require().Len(closed, 2)
	s.Equal("b", closed[0].ID)
	s.Equal("d", closed[1].ID)
}

func (s *TypesTestSuite) TestWriteSnapshotRoundTrip() {
	result := BacktestResult{
		Symbol:         "BTCUSDT",
		StrategyName:   "sample",
		Timeframes:     []string{"1h"},
		InitialCapital: 10000,
		FinalEquity:    11000,
		TotalReturnPct: 10,
	}

	path := filepath.Join(s.T().TempDir(), "result.yaml")
	s.Require().NoError(result.WriteSnapshot(path))

	data, err := os.ReadFile(path)
	s.Require().NoError(err)

	var loaded BacktestResult
	s.Require().NoError(yaml.Unmarshal(data, &loaded))

	s.Equal(result.Symbol, loaded.Symbol)
	s.Equal(result.StrategyName, loaded.StrategyName)
	s.InDelta(result.TotalReturnPct, loaded.TotalReturnPct, 1e-9)
}

func (s *TypesTestSuite) TestSignalValidity() {
	s.True(SignalBuy.Valid())
	s.True(SignalSell.Valid())
	s.True(SignalHold.Valid())
	s.False(Signal("SHORT").Valid())
}
