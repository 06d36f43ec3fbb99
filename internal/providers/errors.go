package providers

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError is a non-2xx response from a provider.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s API error: HTTP %d: %s", e.Provider, e.StatusCode, e.Message)
	}
	return fmt.Sprintf("%s API error: HTTP %d", e.Provider, e.StatusCode)
}

// IsRetryable returns true for server errors (5xx) and rate limiting.
// Other client errors are considered permanent.
func (e *APIError) IsRetryable() bool {
	return e.StatusCode >= 500 || e.StatusCode == 429
}

func newAPIError(provider string, status int, body []byte) *APIError {
	return &APIError{
		Provider:   provider,
		StatusCode: status,
		Message:    errorMessage(body),
		Body:       string(body),
	}
}

// errorMessage pulls a human readable message out of the error shapes the
// providers use: {"message"}, {"error": "..."}, {"error": {"message"}},
// {"detail": {"message"}} and {"detail": "..."}.
func errorMessage(body []byte) string {
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(body, &payload); err != nil {
		return strings.TrimSpace(string(body))
	}
	for _, key := range []string{"message", "error", "detail"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var s string
		if json.Unmarshal(raw, &s) == nil && s != "" {
			return s
		}
		var nested struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &nested) == nil && nested.Message != "" {
			return nested.Message
		}
	}
	return ""
}

// SubmitError wraps a failed task submission.
type SubmitError struct {
	Provider string
	Err      error
}

func (e *SubmitError) Error() string {
	return fmt.Sprintf("%s submit failed: %v", e.Provider, e.Err)
}

func (e *SubmitError) Unwrap() error {
	return e.Err
}

// PollError wraps a status check that could not reach the provider or got a
// non-2xx answer. It says nothing about the task itself.
type PollError struct {
	Provider string
	TaskID   string
	Err      error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("%s poll %s failed: %v", e.Provider, e.TaskID, e.Err)
}

func (e *PollError) Unwrap() error {
	return e.Err
}
