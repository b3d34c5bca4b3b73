package runner

import (
	"fmt"
	"sort"
	"strings"

	"github.com/tradeforge/backtest/internal/types"
)

// summaryTopN limits how many strategies each leaderboard lists.
const summaryTopN = 3

// GenerateSummaryReport renders a plain-text summary of every recorded
// outcome: batch counts followed by leaderboards of the best runs by
// return and by Sharpe ratio.
func (r *Runner) GenerateSummaryReport() string {
	r.mu.Lock()

	var (
		total      int
		symbols    = make(map[string]struct{})
		strategies = make(map[string]struct{})
	)

	for symbol, bySymbol := range r.outcomes {
		symbols[symbol] = struct{}{}

		for name := range bySymbol {
			strategies[name] = struct{}{}
			total++
		}
	}

	r.mu.Unlock()

	results := r.successfulOutcomes()

	var b strings.Builder

	b.WriteString("Backtest Summary Report\n")
	b.WriteString("=======================\n\n")
	fmt.Fprintf(&b, "Total backtests run: %d\n", total)
	fmt.Fprintf(&b, "Symbols tested: %d\n", len(symbols))
	fmt.Fprintf(&b, "Strategies tested: %d\n", len(strategies))

	byReturn := make([]*types.BacktestResult, 0, len(results))
	for _, outcome := range results {
		byReturn = append(byReturn, outcome.Result)
	}

	bySharpe := make([]*types.BacktestResult, len(byReturn))
	copy(bySharpe, byReturn)

	sort.Slice(byReturn, func(i, j int) bool {
		if byReturn[i].TotalReturnPct != byReturn[j].TotalReturnPct {
			return byReturn[i].TotalReturnPct > byReturn[j].TotalReturnPct
		}

		return resultKey(byReturn[i]) < resultKey(byReturn[j])
	})

	sort.Slice(bySharpe, func(i, j int) bool {
		if bySharpe[i].SharpeRatio != bySharpe[j].SharpeRatio {
			return bySharpe[i].SharpeRatio > bySharpe[j].SharpeRatio
		}

		return resultKey(bySharpe[i]) < resultKey(bySharpe[j])
	})

	b.WriteString("\nTop Strategies by Return\n")

	for i, result := range byReturn {
		if i == summaryTopN {
			break
		}

		fmt.Fprintf(&b, "%d. %s on %s: %.2f%% return\n", i+1, result.StrategyName, result.Symbol, result.TotalReturnPct)
	}

	b.WriteString("\nTop Strategies by Risk-Adjusted Return\n")

	for i, result := range bySharpe {
		if i == summaryTopN {
			break
		}

		fmt.Fprintf(&b, "%d. %s on %s: Sharpe %.2f\n", i+1, result.StrategyName, result.Symbol, result.SharpeRatio)
	}

	return b.String()
}

func resultKey(r *types.BacktestResult) string {
	return r.StrategyName + "/" + r.Symbol
}
