package contracts

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAPIError_MatchesUnauthenticated(t *testing.T) {
	unauthorized := &APIError{StatusCode: http.StatusUnauthorized, Endpoint: "/records/latest-status"}
	wrapped := fmt.Errorf("fetch latest status: %w", unauthorized)

	assert.True(t, errors.Is(wrapped, ErrUnauthenticated))
	assert.True(t, IsUnauthenticated(wrapped))

	serverError := &APIError{StatusCode: http.StatusInternalServerError, Endpoint: "/records/latest-status"}
	assert.False(t, IsUnauthenticated(serverError))
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{StatusCode: 500, Message: "server error", Endpoint: "/dashboard"}
	assert.Equal(t, "/dashboard: status 500: server error", err.Error())

	err = &APIError{StatusCode: 502, Endpoint: "/dashboard"}
	assert.Equal(t, "/dashboard: status 502", err.Error())
}

func TestAPIMessage(t *testing.T) {
	err := fmt.Errorf("login: %w", &APIError{StatusCode: 401, Message: "wrong password"})
	assert.Equal(t, "wrong password", APIMessage(err, "Login failed."))
	assert.Equal(t, "Login failed.", APIMessage(errors.New("dial tcp: refused"), "Login failed."))
	assert.Equal(t, "Login failed.", APIMessage(&APIError{StatusCode: 500}, "Login failed."))
}

func TestIsExpected(t *testing.T) {
	notFound := &APIError{StatusCode: http.StatusNotFound}
	unauthorized := &APIError{StatusCode: http.StatusUnauthorized}

	assert.True(t, IsExpected(unauthorized, DefaultExpectedErrors()))
	assert.False(t, IsExpected(notFound, DefaultExpectedErrors()))
	assert.False(t, IsExpected(nil, DefaultExpectedErrors()))

	classifiers := append(DefaultExpectedErrors(), StatusCodeClassifier(http.StatusNotFound))
	assert.True(t, IsExpected(notFound, classifiers))
	assert.False(t, IsExpected(errors.New("boom"), classifiers))
}
