package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidTakeProfit    ErrorCode = 103
	ErrCodeInvalidStopLoss      ErrorCode = 104
	ErrCodeInvalidOrder         ErrorCode = 105
	ErrCodeInsufficientData     ErrorCode = 106
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidThreshold     ErrorCode = 112
	ErrCodeInvalidOperator      ErrorCode = 120
	ErrCodeInvalidQuantity      ErrorCode = 121

	// Data/Resource errors (200-299)
	ErrCodeDataNotFound          ErrorCode = 200
	ErrCodeDataSourceUnavailable ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeMissingColumns        ErrorCode = 206

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302
	ErrCodeIndicatorMissing       ErrorCode = 303

	// Trading errors (500-599)
	ErrCodeOrderFailed          ErrorCode = 500
	ErrCodePositionNotFound     ErrorCode = 501
	ErrCodeMarketDataMissing    ErrorCode = 502
	ErrCodeBrokerLoginFailed    ErrorCode = 503
	ErrCodeUnsupportedOrderType ErrorCode = 504

	// Persistence errors (600-699)
	ErrCodeOrderLogReadFailed  ErrorCode = 600
	ErrCodeOrderLogWriteFailed ErrorCode = 601
	ErrCodeArchiveWriteFailed  ErrorCode = 602
	ErrCodeArchiveReadFailed   ErrorCode = 603

	// Market data errors (700-799)
	ErrCodeDataFetchFailed       ErrorCode = 700
	ErrCodeMarketDataParseFailed ErrorCode = 702
	ErrCodeInvalidTimespan       ErrorCode = 703
	ErrCodeInvalidProvider       ErrorCode = 704
)
