package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error is a failure reported by the backend, either as a non-2xx status or
// as an `error` field inside a successful envelope (StatusCode is then zero).
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("backend error: %s", e.Message)
	}
	return fmt.Sprintf("backend returned status %d: %s", e.StatusCode, e.Message)
}

// Message returns the text to show a user for err: the backend's own message
// when there is one, the error string otherwise.
func Message(err error) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return err.Error()
}

// newStatusError builds an Error from a non-2xx response body. FastAPI puts the
// reason in `detail`; some handlers use `error` or `message` instead.
func newStatusError(status int, body []byte) *Error {
	var envelope struct {
		Detail  json.RawMessage `json:"detail"`
		Error   string          `json:"error"`
		Message string          `json:"message"`
	}

	msg := ""
	if err := json.Unmarshal(body, &envelope); err == nil {
		var detail string
		if len(envelope.Detail) > 0 && json.Unmarshal(envelope.Detail, &detail) == nil {
			msg = detail
		}
		if msg == "" {
			msg = envelope.Error
		}
		if msg == "" {
			msg = envelope.Message
		}
	}
	if msg == "" {
		msg = strings.TrimSpace(string(body))
	}
	if msg == "" {
		msg = http.StatusText(status)
	}

	return &Error{StatusCode: status, Message: msg}
}
