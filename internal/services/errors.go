package services

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/bookclub/internal/shared"
)

// APIError is returned for non-2xx responses.
type APIError struct {
	StatusCode int
	Method     string
	Path       string
	// Message is the server's own error text, shown to the user verbatim.
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

// Unwrap lets callers match the status class with [errors.Is].
func (e *APIError) Unwrap() []error {
	errs := []error{shared.ErrAPIRequest}
	switch e.StatusCode {
	case http.StatusUnauthorized:
		errs = append(errs, shared.ErrNotAuthenticated)
	case http.StatusNotFound:
		errs = append(errs, shared.ErrNotFound)
	}
	return errs
}

func newAPIError(method, path string, resp *Response) *APIError {
	e := &APIError{StatusCode: resp.StatusCode, Method: method, Path: path}

	if obj, ok := resp.JSONData.(map[string]any); ok {
		for _, key := range []string{"message", "error", "detail"} {
			if msg, ok := obj[key].(string); ok && strings.TrimSpace(msg) != "" {
				e.Message = msg
				return e
			}
		}
	}

	if text := strings.TrimSpace(string(resp.Body)); text != "" && !resp.IsJSON && len(text) <= 200 {
		e.Message = text
		return e
	}

	e.Message = http.StatusText(resp.StatusCode)
	return e
}

// ErrorMessage returns the text to show the user for err: the server's message for API errors,
// the error string otherwise.
func ErrorMessage(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Message
	}
	return err.Error()
}
