package telegram

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/craftwatch/statusbot/pkg/domain/errors"
)

// envelope is the wrapper every Bot API response uses
type envelope struct {
	OK          bool                `json:"ok"`
	Result      json.RawMessage     `json:"result,omitempty"`
	Description string              `json:"description,omitempty"`
	ErrorCode   int                 `json:"error_code,omitempty"`
	Parameters  *responseParameters `json:"parameters,omitempty"`
}

type responseParameters struct {
	RetryAfter int `json:"retry_after,omitempty"`
}

// APIError carries the Bot API's own error report
type APIError struct {
	Method      string
	StatusCode  int
	ErrorCode   int
	Description string
	RetryAfter  time.Duration
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s: %d %s", e.Method, e.ErrorCode, e.Description)
}

// RetryDelay returns the wait Telegram asked for, zero when none was given
func (e *APIError) RetryDelay() time.Duration {
	return e.RetryAfter
}

func (env envelope) asError(method string, status int) error {
	apiErr := &APIError{
		Method:      method,
		StatusCode:  status,
		ErrorCode:   env.ErrorCode,
		Description: env.Description,
	}
	if apiErr.ErrorCode == 0 {
		apiErr.ErrorCode = status
	}
	if env.Parameters != nil && env.Parameters.RetryAfter > 0 {
		apiErr.RetryAfter = time.Duration(env.Parameters.RetryAfter) * time.Second
	}

	switch apiErr.ErrorCode {
	case http.StatusUnauthorized, http.StatusNotFound:
		// Telegram answers 404 for a malformed token and 401 for a revoked one
		return errors.New(errors.CodeConfigurationInvalid, errDomain, "bot token rejected", apiErr)
	case http.StatusTooManyRequests:
		return errors.New(errors.CodeRateLimited, errDomain, fmt.Sprintf("%s rate limited", method), apiErr)
	}
	return errors.New(errors.CodeOperationFailed, errDomain, fmt.Sprintf("%s failed", method), apiErr)
}
