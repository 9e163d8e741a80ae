package resilience

import (
	"context"
	"errors"
	"net"
	"strings"
	"syscall"
)

// Class groups failures by what the caller can do about them.
type Class string

const (
	// ClassInternal is anything not otherwise classified.
	ClassInternal Class = "internal"
	// ClassConfiguration needs an operator fix (missing key, missing engine).
	ClassConfiguration Class = "configuration"
	// ClassTransient may succeed if the user tries again later.
	ClassTransient Class = "transient"
	// ClassInput needs different input from the user.
	ClassInput Class = "input"
	// ClassUpstream is a definitive failure reported by a remote service.
	ClassUpstream Class = "upstream"
)

// Classifier is implemented by errors that know their own class.
type Classifier interface {
	Class() Class
}

// ClassOf returns the class of the first Classifier in err's chain. Unclassified
// network failures count as transient; anything else is internal.
func ClassOf(err error) Class {
	if err == nil {
		return ""
	}

	var c Classifier
	if errors.As(err, &c) {
		return c.Class()
	}
	if IsTransient(err) {
		return ClassTransient
	}
	return ClassInternal
}

// IsTransient returns true if err matches common transient error patterns
// (deadlines, network timeouts, connection resets, DNS failures). A transient
// error is reported to the user as "try again"; nothing retries automatically.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	// Check for network-level transient errors.
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// Connection reset / refused / DNS.
	if errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, syscall.ECONNABORTED) {
		return true
	}

	// String-based heuristics for wrapped errors from HTTP clients.
	msg := strings.ToLower(err.Error())
	transientPatterns := []string{
		"connection reset by peer",
		"connection refused",
		"broken pipe",
		"temporary failure in name resolution",
		"no such host",
		"tls handshake timeout",
		"i/o timeout",
		"server closed idle connection",
		"transport connection broken",
		"client.timeout exceeded",
	}
	for _, p := range transientPatterns {
		if strings.Contains(msg, p) {
			return true
		}
	}

	return false
}

// IsTransientHTTPStatus returns true if the HTTP status code indicates a
// transient server-side issue.
func IsTransientHTTPStatus(statusCode int) bool {
	switch statusCode {
	case 408, // Request Timeout
		429, // Too Many Requests
		500, // Internal Server Error
		502, // Bad Gateway
		503, // Service Unavailable
		504: // Gateway Timeout
		return true
	default:
		return false
	}
}
