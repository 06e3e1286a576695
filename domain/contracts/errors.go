package contracts

import (
	"errors"
	"fmt"
	"net/http"
)

// Common errors for domain contracts
var (
	// ErrUnauthenticated occurs when the remote API rejects the request because no user is signed in
	ErrUnauthenticated = errors.New("not authenticated")
)

// APIError is a non-2xx response from the Feel-Log API.
// Message carries the response body's "message" field when present.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: status %d: %s", e.Endpoint, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s: status %d", e.Endpoint, e.StatusCode)
}

// Is lets errors.Is match ErrUnauthenticated on 401 responses.
func (e *APIError) Is(target error) bool {
	return target == ErrUnauthenticated && e.StatusCode == http.StatusUnauthorized
}

// APIMessage extracts the user-facing message from an API error, or returns fallback.
func APIMessage(err error, fallback string) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// ErrorClassifier reports whether an error belongs to a class of expected,
// non-diagnostic failures.
type ErrorClassifier func(error) bool

// IsUnauthenticated matches failures caused by a missing session.
func IsUnauthenticated(err error) bool {
	return errors.Is(err, ErrUnauthenticated)
}

// StatusCodeClassifier matches API errors with any of the given status codes.
func StatusCodeClassifier(codes ...int) ErrorClassifier {
	return func(err error) bool {
		var apiErr *APIError
		if !errors.As(err, &apiErr) {
			return false
		}
		for _, code := range codes {
			if apiErr.StatusCode == code {
				return true
			}
		}
		return false
	}
}

// DefaultExpectedErrors is the classifier list used when none is configured.
func DefaultExpectedErrors() []ErrorClassifier {
	return []ErrorClassifier{IsUnauthenticated}
}

// IsExpected reports whether any classifier matches err.
func IsExpected(err error, classifiers []ErrorClassifier) bool {
	if err == nil {
		return false
	}
	for _, classify := range classifiers {
		if classify(err) {
			return true
		}
	}
	return false
}
