package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidPeriod        ErrorCode = 102
	ErrCodeInvalidTimeframe     ErrorCode = 103
	ErrCodeMissingParameter     ErrorCode = 104
	ErrCodeInvalidDateRange     ErrorCode = 105

	// Data errors (200-299)
	ErrCodeNoMarketData   ErrorCode = 200
	ErrCodeQueryFailed    ErrorCode = 201
	ErrCodeDataOutOfOrder ErrorCode = 202

	// Indicator errors (300-399)
	ErrCodeInsufficientData     ErrorCode = 300
	ErrCodeUnknownIndicator     ErrorCode = 301
	ErrCodeIndicatorCalculation ErrorCode = 302

	// Strategy errors (400-499)
	ErrCodeStrategyFailed    ErrorCode = 400
	ErrCodeStrategyBadSignal ErrorCode = 401
	ErrCodeStrategyNotFound  ErrorCode = 402

	// Serialization errors (500-599)
	ErrCodeTimestampFormat ErrorCode = 500

	// Persistence errors (600-699)
	ErrCodeInsertFailed     ErrorCode = 600
	ErrCodeStoreUnavailable ErrorCode = 601

	// Report errors (700-799)
	ErrCodeReportWriteFailed ErrorCode = 700
	ErrCodePlotFailed        ErrorCode = 701
)
