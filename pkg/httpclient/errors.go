package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	apperrors "github.com/utafrali/storefront/pkg/errors"
)

// Envelope is the response shape used by the storefront backend for both
// success and failure: {success, message?, code?, data?}.
type Envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message,omitempty"`
	Code    string          `json:"code,omitempty"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ParseResponseError reads the body of a non-2xx HTTP response and translates
// it into an AppError. Status and backend error code are preserved; Message
// carries the backend message verbatim and is empty when the body had none.
//
// The caller should only invoke this when resp.StatusCode indicates an error.
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return &apperrors.AppError{
			Code:   defaultCode(resp.StatusCode),
			Status: resp.StatusCode,
			Err:    fmt.Errorf("%s returned status %d (failed to read body: %w)", serviceName, resp.StatusCode, sentinelFor(resp.StatusCode)),
		}
	}

	var env Envelope
	if json.Unmarshal(bodyBytes, &env) != nil {
		env = Envelope{}
	}

	code := env.Code
	if code == "" {
		code = defaultCode(resp.StatusCode)
	}

	return &apperrors.AppError{
		Code:    code,
		Message: env.Message,
		Status:  resp.StatusCode,
		Err:     fmt.Errorf("%s returned status %d: %w", serviceName, resp.StatusCode, sentinelFor(resp.StatusCode)),
	}
}

func sentinelFor(status int) error {
	switch {
	case status == http.StatusNotFound:
		return apperrors.ErrNotFound
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.ErrInvalidInput
	case status == http.StatusUnauthorized:
		return apperrors.ErrUnauthorized
	case status == http.StatusForbidden:
		return apperrors.ErrForbidden
	case status == http.StatusConflict:
		return apperrors.ErrConflict
	case status >= 500:
		return apperrors.ErrServiceUnavail
	default:
		return apperrors.ErrUpstream
	}
}

func defaultCode(status int) string {
	switch {
	case status == http.StatusNotFound:
		return "NOT_FOUND"
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return "INVALID_INPUT"
	case status == http.StatusUnauthorized:
		return "UNAUTHORIZED"
	case status == http.StatusForbidden:
		return "FORBIDDEN"
	case status == http.StatusConflict:
		return "CONFLICT"
	case status >= 500:
		return "SERVER_ERROR"
	default:
		return "UPSTREAM_ERROR"
	}
}

// StatusOf returns the upstream HTTP status carried by err, or 0 if err did
// not come from a backend response.
func StatusOf(err error) int {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return appErr.Status
	}
	return 0
}

// IsClientError returns true if the HTTP status code is a 4xx client error.
func IsClientError(status int) bool {
	return status >= 400 && status < 500
}
