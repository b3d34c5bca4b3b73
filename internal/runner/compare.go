package runner

import (
	"sort"

	"github.com/tradeforge/backtest/pkg/errors"
)

// StrategyRanking positions one symbol and strategy combination among all
// completed runs. Ranks start at 1 for the best and are computed across
// the whole comparison set; equal metric values share a rank. OverallRank
// averages the return and Sharpe ranks.
type StrategyRanking struct {
	Symbol         string  `yaml:"symbol" json:"symbol"`
	StrategyName   string  `yaml:"strategy_name" json:"strategy_name"`
	TotalReturnPct float64 `yaml:"total_return_pct" json:"total_return_pct"`
	SharpeRatio    float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	MaxDrawdown    float64 `yaml:"max_drawdown" json:"max_drawdown"`
	WinRate        float64 `yaml:"win_rate" json:"win_rate"`
	TotalTrades    int     `yaml:"total_trades" json:"total_trades"`
	ReturnRank     int     `yaml:"return_rank" json:"return_rank"`
	SharpeRank     int     `yaml:"sharpe_rank" json:"sharpe_rank"`
	OverallRank    float64 `yaml:"overall_rank" json:"overall_rank"`
}

// CompareStrategies flattens every completed run into one table, a row
// per symbol and strategy combination. Ranks are computed over the whole
// table. The returned slice is ordered best overall first, ties broken by
// symbol then strategy name for deterministic output.
func (r *Runner) CompareStrategies() ([]StrategyRanking, error) {
	r.mu.Lock()

	var rankings []StrategyRanking

	for symbol, bySymbol := range r.outcomes {
		for name, outcome := range bySymbol {
			if outcome.Err != nil || outcome.Result == nil {
				continue
			}

			rankings = append(rankings, StrategyRanking{
				Symbol:         symbol,
				StrategyName:   name,
				TotalReturnPct: outcome.Result.TotalReturnPct,
				SharpeRatio:    outcome.Result.SharpeRatio,
				MaxDrawdown:    outcome.Result.MaxDrawdown,
				WinRate:        outcome.Result.WinRate,
				TotalTrades:    outcome.Result.TotalTrades,
			})
		}
	}

	r.mu.Unlock()

	if len(rankings) == 0 {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "no completed runs to compare")
	}

	returns := make([]float64, len(rankings))
	sharpes := make([]float64, len(rankings))

	for i, rk := range rankings {
		returns[i] = rk.TotalReturnPct
		sharpes[i] = rk.SharpeRatio
	}

	returnRanks := rankDesc(returns)
	sharpeRanks := rankDesc(sharpes)

	for i := range rankings {
		rankings[i].ReturnRank = returnRanks[i]
		rankings[i].SharpeRank = sharpeRanks[i]
		rankings[i].OverallRank = float64(returnRanks[i]+sharpeRanks[i]) / 2
	}

	sort.Slice(rankings, func(i, j int) bool {
		if rankings[i].OverallRank != rankings[j].OverallRank {
			return rankings[i].OverallRank < rankings[j].OverallRank
		}

		if rankings[i].Symbol != rankings[j].Symbol {
			return rankings[i].Symbol < rankings[j].Symbol
		}

		return rankings[i].StrategyName < rankings[j].StrategyName
	})

	return rankings, nil
}

// rankDesc assigns competition ranks to values, highest value first.
// Equal values receive the same rank.
func rankDesc(values []float64) []int {
	idx := make([]int, len(values))
	for i := range idx {
		idx[i] = i
	}

	sort.SliceStable(idx, func(a, b int) bool {
		return values[idx[a]] > values[idx[b]]
	})

	ranks := make([]int, len(values))

	for pos, i := range idx {
		if pos > 0 && values[i] == values[idx[pos-1]] {
			ranks[i] = ranks[idx[pos-1]]
		} else {
			ranks[i] = pos + 1
		}
	}

	return ranks
}
