package llmservice

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsRetryable(t *testing.T) {
	retryable := []error{
		errors.New("API returned unexpected status code: 429: quota exceeded"),
		errors.New("API returned unexpected status code: 500"),
		errors.New("API returned unexpected status code: 503: overloaded"),
		errors.New("rate limit reached for requests"),
		errors.New("dial tcp: connection refused"),
		errors.New("net/http: request canceled (Client.Timeout exceeded)"),
		context.DeadlineExceeded,
	}
	for _, err := range retryable {
		assert.True(t, IsRetryable(err), "expected retryable: %v", err)
	}

	permanent := []error{
		nil,
		errors.New("API returned unexpected status code: 400: bad request"),
		errors.New("API returned unexpected status code: 401: invalid key"),
		errors.New("model not found"),
		context.Canceled,
	}
	for _, err := range permanent {
		assert.False(t, IsRetryable(err), "expected permanent: %v", err)
	}
}
