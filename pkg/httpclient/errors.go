package httpclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	apperrors "github.com/utafrali/bookstore/pkg/errors"
)

// maxErrorBody caps how much of an error response is read.
const maxErrorBody = 1 << 20

// ParseResponseError reads the body of a non-2xx response and translates it
// into an AppError. The book backend is inconsistent about error bodies, so
// the message is taken from the first of:
//
//   - {"error": {"code": ..., "message": ...}}
//   - {"error": "..."} or {"message": "..."}
//   - {"field": ["problem", ...], ...} (schema validation output)
//   - the raw body text, or the status text when the body is empty
//
// The response body is fully consumed and closed.
func ParseResponseError(resp *http.Response, serviceName string) error {
	defer func() { _ = resp.Body.Close() }()

	bodyBytes, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if err != nil {
		return apperrors.Network(serviceName, fmt.Errorf("read error body (status %d): %w", resp.StatusCode, err))
	}

	message := extractMessage(bodyBytes)
	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}

	return mapStatus(resp.StatusCode, message, serviceName)
}

// TransportError converts a failure to obtain any response at all (timeout,
// refused connection, open breaker, 5xx) into a retryable NetworkError.
// Errors that already carry an AppError are returned unchanged.
func TransportError(serviceName string, err error) error {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperrors.Network(serviceName, err)
}

func extractMessage(body []byte) string {
	trimmed := strings.TrimSpace(string(body))
	if trimmed == "" {
		return ""
	}

	var obj map[string]json.RawMessage
	if json.Unmarshal(body, &obj) != nil {
		return trimmed
	}

	if raw, ok := obj["error"]; ok {
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}
	if raw, ok := obj["message"]; ok {
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
	}

	// Field-keyed validation output: {"price": ["must be positive"]}.
	fields := make([]string, 0, len(obj))
	for name, raw := range obj {
		var msgs []string
		if json.Unmarshal(raw, &msgs) == nil && len(msgs) > 0 {
			fields = append(fields, name+": "+strings.Join(msgs, ", "))
		}
	}
	if len(fields) > 0 {
		sort.Strings(fields)
		return strings.Join(fields, "; ")
	}

	return trimmed
}

func mapStatus(status int, message, serviceName string) error {
	qualifiedMsg := fmt.Sprintf("%s: %s", serviceName, message)

	switch {
	case status == http.StatusNotFound:
		return &apperrors.AppError{
			Code:    "NOT_FOUND",
			Message: qualifiedMsg,
			Status:  http.StatusNotFound,
			Err:     apperrors.ErrNotFound,
		}
	case status == http.StatusBadRequest, status == http.StatusUnprocessableEntity:
		return apperrors.InvalidInput(qualifiedMsg)
	case status == http.StatusUnauthorized:
		return apperrors.Unauthorized(qualifiedMsg)
	case status == http.StatusForbidden:
		return apperrors.Forbidden(qualifiedMsg)
	case status == http.StatusConflict:
		return apperrors.Conflict(qualifiedMsg)
	case status >= 500:
		return apperrors.Network(serviceName, fmt.Errorf("status %d: %s", status, message))
	default:
		return &apperrors.AppError{
			Code:    "UPSTREAM_ERROR",
			Message: qualifiedMsg,
			Status:  status,
		}
	}
}

// IsSuccess reports whether the status code is 2xx.
func IsSuccess(status int) bool {
	return status >= 200 && status < 300
}
