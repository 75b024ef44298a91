package insights

import (
	"errors"
	"fmt"
	"strings"
)

var (
	errMissingClient   = errors.New("insights: analytics client not configured")
	errMissingSession  = errors.New("insights: session id is required")
	errSessionNotFound = errors.New("insights: session not found")
)

// ValidationError reports input rejected before any upstream call is made.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("insights: invalid %s: %s", e.Field, e.Reason)
}

// RemoteServiceError reports a non-success response from the webhook.
type RemoteServiceError struct {
	StatusCode int
	Status     string
	Detail     string
}

func (e *RemoteServiceError) Error() string {
	status := strings.TrimSpace(e.Status)
	if status == "" {
		status = fmt.Sprintf("status %d", e.StatusCode)
	}
	if e.Detail != "" {
		return fmt.Sprintf("webhook API error: %s (%s)", status, e.Detail)
	}
	return fmt.Sprintf("webhook API error: %s", status)
}

// TransportError reports DNS, connection, or timeout failures.
type TransportError struct {
	Cause error
}

func (e *TransportError) Error() string {
	if e.Cause == nil {
		return "webhook unreachable"
	}
	return fmt.Sprintf("webhook unreachable: %v", e.Cause)
}

func (e *TransportError) Unwrap() error {
	return e.Cause
}

const fallbackErrorMessage = "An unexpected error occurred while fetching data."

// ErrorMessage converts any client failure into the single human-readable
// message shown in the notification.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	if msg := strings.TrimSpace(err.Error()); msg != "" {
		return msg
	}
	return fallbackErrorMessage
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}
