package mediamtx

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies every failure the control-plane client can return. The set is
// closed: consumers switch over it exhaustively.
type Kind int

const (
	// Unauthorized means the control plane rejected the credential.
	Unauthorized Kind = iota + 1
	// NotFound means the named path config does not exist.
	NotFound
	// Conflict means a path config with the same name already exists.
	Conflict
	// InvalidConfig means the control plane rejected field values.
	InvalidConfig
	// Unreachable means a transport failure; the control plane gave no answer.
	Unreachable
	// BadResponse means the answer was malformed or of an unexpected shape.
	BadResponse
)

var kindNames = map[Kind]string{
	Unauthorized:  "unauthorized",
	NotFound:      "not found",
	Conflict:      "conflict",
	InvalidConfig: "invalid config",
	Unreachable:   "unreachable",
	BadResponse:   "bad response",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// Error makes a Kind usable as an errors.Is target, e.g. errors.Is(err, Unauthorized).
func (k Kind) Error() string {
	return k.String()
}

// Error is the single error type returned by Client operations.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e == nil {
		return "mediamtx error"
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.String()
}

// Unwrap exposes both the kind and the underlying cause.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// KindOf returns the Kind carried by err, or 0 if err did not come from this package.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	var k Kind
	if errors.As(err, &k) {
		return k
	}
	return 0
}

// statusError builds the error for a non-2xx response. body is the raw response text.
func statusError(op string, code int, body string) *Error {
	msg := strings.TrimSpace(body)
	if msg == "" {
		msg = fmt.Sprintf("API request failed: %d %s", code, http.StatusText(code))
	}
	return &Error{
		Kind:       kindForStatus(code, msg),
		Op:         op,
		StatusCode: code,
		Message:    msg,
	}
}

func kindForStatus(code int, msg string) Kind {
	lower := strings.ToLower(msg)
	switch code {
	case http.StatusUnauthorized, http.StatusForbidden:
		return Unauthorized
	case http.StatusNotFound:
		return NotFound
	case http.StatusConflict:
		return Conflict
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		// MediaMTX reports duplicates and unknown names as 400 with a message.
		switch {
		case strings.Contains(lower, "already exists"):
			return Conflict
		case strings.Contains(lower, "not found"):
			return NotFound
		default:
			return InvalidConfig
		}
	case http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return Unreachable
	default:
		return BadResponse
	}
}
