package types

// AlertType identifies which degraded-performance rule fired.
type AlertType string

const (
	AlertTypeDrawdown    AlertType = "drawdown"
	AlertTypeWinRate     AlertType = "win_rate"
	AlertTypePerformance AlertType = "performance"
)

// AlertSeverity grades how urgent an alert is.
type AlertSeverity string

const (
	AlertSeverityLow    AlertSeverity = "low"
	AlertSeverityMedium AlertSeverity = "medium"
	AlertSeverityHigh   AlertSeverity = "high"
)

// Alert flags a performance metric that crossed a monitoring threshold.
// Alerts are derived values: the engine produces them, the caller decides
// what to do with them.
type Alert struct {
	Type        AlertType     `yaml:"type" json:"type"`
	Severity    AlertSeverity `yaml:"severity" json:"severity"`
	Message     string        `yaml:"message" json:"message"`
	MetricValue float64       `yaml:"metric_value" json:"metric_value"`
}
