package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// genericErrorMessage is the fallback when the server payload matches none
// of the known error shapes.
const genericErrorMessage = "request failed"

// connectivityMessage is the user-presentable message for transport-level
// failures that produced no response at all.
const connectivityMessage = "Network error - please check your connection"

// SessionExpiredError indicates a 401 received outside the login flow. By
// the time the caller sees this error the session store has been cleared,
// the change broadcast announced, and the session-expired hook invoked; it
// is a navigational side effect, not a form error.
type SessionExpiredError struct {
	// Path is the request path that triggered the forced logout.
	Path string
}

func (e *SessionExpiredError) Error() string {
	return fmt.Sprintf("api: session expired or invalid (path %s)", e.Path)
}

// ConnectivityError indicates no response was received: DNS failure,
// unreachable network, or timeout. It is recoverable; the caller may retry.
type ConnectivityError struct {
	err error
}

func (e *ConnectivityError) Error() string {
	return connectivityMessage
}

func (e *ConnectivityError) Unwrap() error {
	return e.err
}

// ValidationError carries a non-2xx server response that passed through the
// wrapper untouched, with its message normalized from the server's error
// shape. It is surfaced verbatim to the relevant form.
type ValidationError struct {
	Status  int
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// errorShape covers the known JSON error envelopes the backend emits.
// Exactly one of the fields is populated per response.
type errorShape struct {
	Message string            `json:"message"`
	Err     string            `json:"error"`
	Errors  []json.RawMessage `json:"errors"`
}

type nestedError struct {
	Message string `json:"message"`
}

// decodeErrorMessage normalizes the heterogeneous server error payloads
// into one human-readable message. Shapes are attempted in a fixed order:
// plain JSON string, {message}, {error}, {errors: [...]}. Anything else
// falls back to a generic message.
func decodeErrorMessage(body []byte) string {
	body = []byte(strings.TrimSpace(string(body)))
	if len(body) == 0 {
		return genericErrorMessage
	}

	var plain string
	if err := json.Unmarshal(body, &plain); err == nil && plain != "" {
		return plain
	}

	var shape errorShape
	if err := json.Unmarshal(body, &shape); err != nil {
		// Plain-text bodies are surfaced verbatim, like the JSON string
		// shape. HTML error pages (proxies, gateways) and JSON of an
		// unknown shape get the generic message rather than leaking
		// markup into the UI.
		if !json.Valid(body) && body[0] != '<' {
			return string(body)
		}
		return genericErrorMessage
	}

	switch {
	case shape.Message != "":
		return shape.Message
	case shape.Err != "":
		return shape.Err
	case len(shape.Errors) > 0:
		parts := make([]string, 0, len(shape.Errors))
		for _, raw := range shape.Errors {
			var s string
			if err := json.Unmarshal(raw, &s); err == nil && s != "" {
				parts = append(parts, s)
				continue
			}
			var n nestedError
			if err := json.Unmarshal(raw, &n); err == nil && n.Message != "" {
				parts = append(parts, n.Message)
			}
		}
		if len(parts) > 0 {
			return strings.Join(parts, ", ")
		}
	}
	return genericErrorMessage
}
