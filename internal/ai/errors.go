package ai

import (
	"fmt"

	"github.com/sells-group/lab-assistant/internal/resilience"
)

// AuthenticationError reports a rejected or missing credential (HTTP 401).
type AuthenticationError struct {
	Provider string
	Err      error
}

func (e *AuthenticationError) Error() string {
	return fmt.Sprintf("ai: %s rejected the API key: %v", e.Provider, e.Err)
}

func (e *AuthenticationError) Unwrap() error { return e.Err }

// Class implements resilience.Classifier.
func (e *AuthenticationError) Class() resilience.Class { return resilience.ClassConfiguration }

// UpstreamHTTPError reports any other non-success HTTP status.
type UpstreamHTTPError struct {
	Provider   string
	StatusCode int
	Body       string
}

func (e *UpstreamHTTPError) Error() string {
	return fmt.Sprintf("ai: %s returned %d: %s", e.Provider, e.StatusCode, e.Body)
}

// Class implements resilience.Classifier. Rate limits and server-side
// failures are worth re-submitting; other statuses are not.
func (e *UpstreamHTTPError) Class() resilience.Class {
	if resilience.IsTransientHTTPStatus(e.StatusCode) {
		return resilience.ClassTransient
	}
	return resilience.ClassUpstream
}

// TransportError reports a network-level failure: timeout, refused or reset
// connection, DNS failure.
type TransportError struct {
	Provider string
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("ai: %s unreachable: %v", e.Provider, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// Class implements resilience.Classifier.
func (e *TransportError) Class() resilience.Class { return resilience.ClassTransient }

// MalformedResponseError reports a success response that does not have the
// expected shape.
type MalformedResponseError struct {
	Provider string
	Err      error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("ai: malformed %s response: %v", e.Provider, e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// Class implements resilience.Classifier.
func (e *MalformedResponseError) Class() resilience.Class { return resilience.ClassUpstream }
