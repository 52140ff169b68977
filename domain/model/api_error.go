package model

import (
	"errors"
	"fmt"
	"time"
)

// Backend business error codes the dashboard branches on.
const (
	CodeInvalidCredentials        = "INVALID_CREDENTIALS"
	CodeEmailNotVerified          = "USER_EMAIL_NOT_VERIFIED"
	CodeLoginRateLimited          = "LOGIN_RATE_LIMITED"
	CodeEmailExists               = "USER_EMAIL_EXISTS"
	CodeVerificationRateLimited   = "EMAIL_VERIFICATION_RATE_LIMITED"
	CodeEmailDispatchFailed       = "EMAIL_DISPATCH_FAILED"
	CodeVerificationTokenExpired  = "EMAIL_VERIFICATION_TOKEN_EXPIRED"
	CodeVerificationTokenNotFound = "EMAIL_VERIFICATION_TOKEN_NOT_FOUND"
	CodeResetTokenExpired         = "PASSWORD_RESET_TOKEN_EXPIRED"
	CodeResetTokenNotFound        = "PASSWORD_RESET_TOKEN_NOT_FOUND"
)

// ErrSessionInvalidated means a credential refresh failed and the session was
// cleared; the UI should send the user back to login.
var ErrSessionInvalidated = errors.New("session invalidated")

// ErrNoSession means an operation that needs credentials ran without any.
var ErrNoSession = errors.New("no active session")

// APIError is a non-2xx answer from the backend, carried to callers unchanged.
type APIError struct {
	Status            int     `json:"status"`
	ErrorCode         string  `json:"errorCode,omitempty"`
	Message           string  `json:"message,omitempty"`
	Detail            string  `json:"detail,omitempty"`
	RetryAfterSeconds float64 `json:"retryAfterSeconds,omitempty"`
}

func (e *APIError) Error() string {
	if e.ErrorCode != "" {
		return fmt.Sprintf("backend responded %d (%s): %s", e.Status, e.ErrorCode, e.text())
	}
	return fmt.Sprintf("backend responded %d: %s", e.Status, e.text())
}

func (e *APIError) text() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}

// RetryAfter surfaces rate-limit hints as a cooldown duration rather than raw
// seconds text. Zero when the backend sent no hint.
func (e *APIError) RetryAfter() time.Duration {
	if e.RetryAfterSeconds <= 0 {
		return 0
	}
	return time.Duration(e.RetryAfterSeconds * float64(time.Second))
}

func (e *APIError) IsAuthExpired() bool {
	return e.Status == 401
}

// AsAPIError unwraps err into an *APIError when it is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}
