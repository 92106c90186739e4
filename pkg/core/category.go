package core

// ErrorCategory classifies the type of error for logging and retry decisions
type ErrorCategory int

const (
	ErrCategoryNone       ErrorCategory = iota // No error
	ErrCategoryExtraction                      // Node attributes could not be read
	ErrCategoryResource                        // Native handle pool exhausted
	ErrCategoryTimeout                         // Operation timed out
	ErrCategoryConnection                      // Device/server connection lost
	ErrCategoryApp                             // Package install/uninstall/clear failed
	ErrCategoryConfig                          // Invalid configuration, missing required field
)

// String returns the string representation of ErrorCategory
func (c ErrorCategory) String() string {
	switch c {
	case ErrCategoryNone:
		return "none"
	case ErrCategoryExtraction:
		return "extraction"
	case ErrCategoryResource:
		return "resource"
	case ErrCategoryTimeout:
		return "timeout"
	case ErrCategoryConnection:
		return "connection"
	case ErrCategoryApp:
		return "app"
	case ErrCategoryConfig:
		return "config"
	default:
		return "unknown"
	}
}

// Retryable reports whether an error of this category may succeed when the
// whole operation is attempted again.
func (c ErrorCategory) Retryable() bool {
	switch c {
	case ErrCategoryResource, ErrCategoryTimeout, ErrCategoryConnection:
		return true
	default:
		return false
	}
}
