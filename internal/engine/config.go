package engine

import (
	"github.com/go-playground/validator/v10"
	"github.com/invopop/jsonschema"
	"gopkg.in/yaml.v3"

	"github.com/tradeforge/backtest/pkg/errors"
)

// AlertThresholds configures the post-run health checks.
type AlertThresholds struct {
	// MaxDrawdownPct triggers a high severity alert when the run's max
	// drawdown is at or below this value (percent, negative).
	MaxDrawdownPct float64 `yaml:"max_drawdown_pct" json:"max_drawdown_pct" jsonschema:"description=Drawdown floor in percent below which a high severity alert fires"`

	// MinWinRatePct triggers a medium severity alert when the win rate is
	// below this value and the run has at least MinTradeSample trades.
	MinWinRatePct float64 `yaml:"min_win_rate_pct" json:"min_win_rate_pct" validate:"gte=0,lte=100" jsonschema:"description=Win rate floor in percent below which a medium severity alert fires"`

	// MinTradeSample is the smallest trade count for which the win rate
	// check is meaningful.
	MinTradeSample int `yaml:"min_trade_sample" json:"min_trade_sample" validate:"gte=0" jsonschema:"description=Minimum closed trades before the win rate check applies"`

	// MinSharpe triggers a medium severity alert when the Sharpe ratio is
	// below this value.
	MinSharpe float64 `yaml:"min_sharpe" json:"min_sharpe" jsonschema:"description=Sharpe ratio floor below which a medium severity alert fires"`
}

// Config holds the account and execution parameters of a backtest run.
type Config struct {
	// InitialCapital is the starting cash balance.
	InitialCapital float64 `yaml:"initial_capital" json:"initial_capital" validate:"gt=0" jsonschema:"description=Starting cash balance"`

	// CommissionRate is the fee charged on each leg as a fraction of
	// traded value.
	CommissionRate float64 `yaml:"commission_rate" json:"commission_rate" validate:"gte=0,lt=1" jsonschema:"description=Fee per leg as a fraction of traded value"`

	// PositionFraction is the fraction of current equity committed when a
	// buy signal opens a position.
	PositionFraction float64 `yaml:"position_fraction" json:"position_fraction" validate:"gt=0,lte=1" jsonschema:"description=Fraction of equity committed per position"`

	// WarmupBars is the number of leading bars skipped before strategies
	// are consulted, so that indicator columns have left their warm-up.
	WarmupBars int `yaml:"warmup_bars" json:"warmup_bars" validate:"gte=0" jsonschema:"description=Leading bars skipped before the strategy is consulted"`

	// PeriodsPerYear overrides the annualization factor derived from the
	// primary timeframe. Zero keeps the derived value.
	PeriodsPerYear float64 `yaml:"periods_per_year" json:"periods_per_year" validate:"gte=0" jsonschema:"description=Annualization factor override, zero derives it from the primary timeframe"`

	// Alerts configures the post-run health checks.
	Alerts AlertThresholds `yaml:"alerts" json:"alerts"`
}

// DefaultConfig returns the standard run parameters.
func DefaultConfig() Config {
	return Config{
		InitialCapital:   10000,
		CommissionRate:   0.001,
		PositionFraction: 0.95,
		WarmupBars:       35,
		Alerts: AlertThresholds{
			MaxDrawdownPct: -15,
			MinWinRatePct:  40,
			MinTradeSample: 10,
			MinSharpe:      0.5,
		},
	}
}

// ParseConfig decodes and validates a YAML run configuration. Omitted
// fields keep their defaults.
func ParseConfig(data []byte) (Config, error) {
	cfg := DefaultConfig()

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the configuration against its struct constraints.
func (c Config) Validate() error {
	validate := validator.New()

	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid config", err)
	}

	return nil
}

// SchemaJSON returns the JSON schema describing the configuration file
// format, for editor tooling.
func SchemaJSON() ([]byte, error) {
	schema := jsonschema.Reflect(&Config{})

	data, err := schema.MarshalJSON()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to marshal config schema", err)
	}

	return data, nil
}
