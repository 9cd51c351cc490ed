package completion

// Exports for testing.

var (
	WithChatCompleter = withChatCompleter
	ClassifyError     = classifyError
	IsRetryable       = isRetryable
	ExtractJSON       = extractJSON
)
