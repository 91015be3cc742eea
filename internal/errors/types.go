package errors

import (
	"errors"
	"fmt"
	"time"
)

// FormError represents a document or detection failure with enough context for a
// batch caller to decide whether to skip the document and continue.
type FormError struct {
	Type          ErrorType `json:"type"`
	Message       string    `json:"message"`
	Context       string    `json:"context,omitempty"`
	Path          string    `json:"path,omitempty"`
	FragmentIndex int       `json:"fragment_index,omitempty"`
	Recoverable   bool      `json:"recoverable"`
	Timestamp     time.Time `json:"timestamp"`
	Err           error     `json:"-"`
}

// ErrorType represents the categories of failures the system distinguishes
type ErrorType int

const (
	ErrorTypeUnknown ErrorType = iota
	ErrorTypeMissingContent
	ErrorTypeMatchAmbiguity
	ErrorTypeMalformedFragment
	ErrorTypeUnreadableDocument
	ErrorTypeUnsupportedFormat
	ErrorTypeWriteFailure
	ErrorTypeFileTooLarge
	ErrorTypePathViolation
)

// ErrorSeverity indicates how critical an error is
type ErrorSeverity int

const (
	SeverityInfo ErrorSeverity = iota
	SeverityWarning
	SeverityError
	SeverityFatal
)

// Error implements the error interface
func (e *FormError) Error() string {
	msg := fmt.Sprintf("[%s] %s", e.Type.String(), e.Message)
	if e.Path != "" {
		msg += " (" + e.Path + ")"
	}
	if e.Context != "" {
		msg += ": " + e.Context
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap exposes the underlying cause
func (e *FormError) Unwrap() error {
	return e.Err
}

// Is reports whether target is a FormError of the same type. A target with
// ErrorTypeUnknown matches any FormError.
func (e *FormError) Is(target error) bool {
	t, ok := target.(*FormError)
	if !ok {
		return false
	}
	return t.Type == ErrorTypeUnknown || t.Type == e.Type
}

// String returns a string representation of the ErrorType
func (et ErrorType) String() string {
	switch et {
	case ErrorTypeMissingContent:
		return "MISSING_CONTENT"
	case ErrorTypeMatchAmbiguity:
		return "MATCH_AMBIGUITY"
	case ErrorTypeMalformedFragment:
		return "MALFORMED_FRAGMENT"
	case ErrorTypeUnreadableDocument:
		return "UNREADABLE_DOCUMENT"
	case ErrorTypeUnsupportedFormat:
		return "UNSUPPORTED_FORMAT"
	case ErrorTypeWriteFailure:
		return "WRITE_FAILURE"
	case ErrorTypeFileTooLarge:
		return "FILE_TOO_LARGE"
	case ErrorTypePathViolation:
		return "PATH_VIOLATION"
	default:
		return "UNKNOWN"
	}
}

// GetSeverity returns the severity level for a given error type
func (et ErrorType) GetSeverity() ErrorSeverity {
	switch et {
	case ErrorTypeMatchAmbiguity:
		return SeverityInfo
	case ErrorTypeMissingContent, ErrorTypeMalformedFragment:
		return SeverityWarning
	case ErrorTypeUnreadableDocument, ErrorTypeUnsupportedFormat, ErrorTypeFileTooLarge,
		ErrorTypePathViolation:
		return SeverityError
	case ErrorTypeWriteFailure:
		return SeverityFatal
	default:
		return SeverityError
	}
}

// IsRecoverable determines if detection can continue past an error of this type
func (et ErrorType) IsRecoverable() bool {
	switch et {
	case ErrorTypeMissingContent, ErrorTypeMatchAmbiguity, ErrorTypeMalformedFragment:
		return true
	default:
		return false
	}
}

// New creates a new FormError
func New(errorType ErrorType, message string) *FormError {
	return &FormError{
		Type:        errorType,
		Message:     message,
		Recoverable: errorType.IsRecoverable(),
		Timestamp:   time.Now(),
	}
}

// Wrap creates a new FormError carrying a cause
func Wrap(errorType ErrorType, message string, err error) *FormError {
	e := New(errorType, message)
	e.Err = err
	return e
}

// WithPath sets the document path the error refers to
func (e *FormError) WithPath(path string) *FormError {
	e.Path = path
	return e
}

// WithContext adds free-form context
func (e *FormError) WithContext(context string) *FormError {
	e.Context = context
	return e
}

// WithFragment records the fragment index where a recoverable failure happened
func (e *FormError) WithFragment(index int) *FormError {
	e.FragmentIndex = index
	return e
}

// TypeOf returns the ErrorType of the first FormError in err's chain
func TypeOf(err error) ErrorType {
	var fe *FormError
	if errors.As(err, &fe) {
		return fe.Type
	}
	return ErrorTypeUnknown
}

// IsType reports whether err carries a FormError of the given type
func IsType(err error, errorType ErrorType) bool {
	return err != nil && TypeOf(err) == errorType
}
