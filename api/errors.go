package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/MrEthical07/goGate/session"
)

// ErrInvalidResponse is returned when a 2xx body cannot be decoded.
var ErrInvalidResponse = errors.New("invalid api response")

// NetworkError reports a request that failed before a response arrived.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("api %s: network error: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// APIError reports a non-2xx response. Errors holds the server's per-field messages.
type APIError struct {
	Op      string
	Status  int
	Message string
	Errors  session.FieldErrors
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api %s: %d %s: %s", e.Op, e.Status, http.StatusText(e.Status), e.Message)
	}
	return fmt.Sprintf("api %s: %d %s", e.Op, e.Status, http.StatusText(e.Status))
}

// Unauthorized reports whether the server rejected the credential.
func (e *APIError) Unauthorized() bool {
	return e.Status == http.StatusUnauthorized || e.Status == http.StatusForbidden
}

// FieldErrorsOf normalizes err into field errors suitable for form display.
// It returns nil for a nil error.
func FieldErrorsOf(err error) session.FieldErrors {
	if err == nil {
		return nil
	}

	var apiErr *APIError
	if errors.As(err, &apiErr) {
		out := apiErr.Errors.Clone()
		if out.Empty() {
			msg := apiErr.Message
			if msg == "" {
				msg = http.StatusText(apiErr.Status)
			}
			out["message"] = []string{msg}
		}
		return out
	}

	var netErr *NetworkError
	if errors.As(err, &netErr) {
		return session.FieldErrors{"network": {netErr.Err.Error()}}
	}

	return session.FieldErrors{"message": {err.Error()}}
}
