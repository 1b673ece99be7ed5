// internal/gateway/errors.go
package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a classified gateway failure. 5xx and rate-limit responses are
// retryable; other 4xx responses are not. Transport failures are reported as
// retryable with StatusCode 0.
type Error struct {
	StatusCode int
	Code       string
	Message    string
	Retryable  bool
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("gateway: %s", e.Message)
	}
	return fmt.Sprintf("gateway: status %d (%s): %s", e.StatusCode, e.Code, e.Message)
}

// IsRetryable reports whether err is a gateway failure worth retrying,
// including redelivery of the webhook that triggered it.
func IsRetryable(err error) bool {
	var gerr *Error
	if errors.As(err, &gerr) {
		return gerr.Retryable
	}
	return false
}

func transportError(err error) *Error {
	return &Error{Message: err.Error(), Retryable: true}
}

func statusError(statusCode int, code, message string) *Error {
	return &Error{
		StatusCode: statusCode,
		Code:       code,
		Message:    message,
		Retryable:  statusCode >= 500 || statusCode == http.StatusTooManyRequests,
	}
}
