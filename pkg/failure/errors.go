package failure

// Severity classifies how a caller should react to a failure.
type Severity int

const (
	SeverityFatal Severity = iota
	SeverityRecoverable
)

type ClassifiedError interface {
	error
	Severity() Severity
}

// Retryable is implemented by classified errors that know whether
// repeating the same operation may succeed.
type Retryable interface {
	IsRetryable() bool
}
