package engine

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/tradeforge/backtest/internal/report"
	"github.com/tradeforge/backtest/internal/types"
	"github.com/tradeforge/backtest/pkg/errors"
)

// GenerateReport writes the full report bundle for a run into outputDir:
// interactive charts, the CSV trade log and an HTML summary linking both.
// It returns the path of the HTML summary.
func (e *Engine) GenerateReport(result *types.BacktestResult, outputDir string) (string, error) {
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return "", errors.Wrapf(errors.ErrCodeReportWriteFailed, err, "failed to create report directory %q", outputDir)
	}

	base := fmt.Sprintf("%s_%s", result.Symbol, result.StrategyName)

	plotPath := filepath.Join(outputDir, base+"_plot.html")
	if _, err := e.PlotResults(result, PlotOptions{
		ShowIndicators: true,
		Filename:       optional.Some(plotPath),
	}); err != nil {
		return "", err
	}

	tradeLogPath := filepath.Join(outputDir, base+"_trades.csv")
	if _, err := e.GenerateTradeLog(result, optional.Some(tradeLogPath)); err != nil {
		return "", err
	}

	reportPath := filepath.Join(outputDir, base+"_report.html")

	err := report.WriteHTML(result, filepath.Base(plotPath), filepath.Base(tradeLogPath), reportPath)
	if err != nil {
		return "", err
	}

	e.log.Info("Report generated",
		zap.String("path", reportPath),
	)

	return reportPath, nil
}
