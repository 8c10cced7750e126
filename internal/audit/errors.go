package audit

import (
	"errors"
	"fmt"
)

// Kind classifies pipeline failures so the API layer can map them to
// status codes without inspecting error text.
type Kind string

// Failure kinds, ordered roughly by pipeline stage.
const (
	KindInvalidInput        Kind = "invalid_input"
	KindPaymentVerification Kind = "payment_verification"
	KindRateLimitExceeded   Kind = "rate_limit_exceeded"
	KindScrapeFailure       Kind = "scrape_failure"
	KindAnalysisFailure     Kind = "analysis_failure"
	KindRenderFailure       Kind = "render_failure"
	KindPersistenceFailure  Kind = "persistence_failure"
	KindNotificationFailure Kind = "notification_failure"
)

// Error wraps a stage failure with its Kind.
type Error struct {
	Kind Kind
	Err  error
}

// NewError builds an Error of the given kind.
func NewError(kind Kind, err error) *Error {
	return &Error{Kind: kind, Err: err}
}

// Errorf builds an Error of the given kind from a format string.
func Errorf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Err: fmt.Errorf(format, args...)}
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf extracts the Kind from err, or empty string if err carries none.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return ""
}
