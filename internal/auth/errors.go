package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/bytedance/sonic"
)

var (
	// ErrUnauthorized is wrapped by every 401 response
	ErrUnauthorized = errors.New("unauthorized")
	// ErrMissingToken means a 2xx login response carried no access token
	ErrMissingToken = errors.New("missing access token")
	// ErrUnavailable means the request never reached a response
	ErrUnavailable = errors.New("auth service unavailable")
)

// Kind classifies an auth error
type Kind string

const (
	KindFailure      Kind = "failure"
	KindUnauthorized Kind = "unauthorized"
	KindUnavailable  Kind = "unavailable"
)

// Error is returned by every Client operation that fails
type Error struct {
	Kind       Kind
	Endpoint   string
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// IsClientError reports whether the server rejected the request itself
func (e *Error) IsClientError() bool {
	return e.StatusCode >= 400 && e.StatusCode < 500
}

func statusError(endpoint string, status int, body []byte) *Error {
	e := &Error{
		Kind:       KindFailure,
		Endpoint:   endpoint,
		StatusCode: status,
		Message:    messageFromBody(body),
	}
	if e.Message == "" {
		e.Message = http.StatusText(status)
	}
	if e.Message == "" {
		e.Message = fmt.Sprintf("request failed with status %d", status)
	}
	if status == http.StatusUnauthorized {
		e.Kind = KindUnauthorized
		e.Err = ErrUnauthorized
	}
	return e
}

func unavailable(endpoint string, err error) *Error {
	return &Error{
		Kind:     KindUnavailable,
		Endpoint: endpoint,
		Message:  fmt.Sprintf("%s: %v", ErrUnavailable, err),
		Err:      errors.Join(ErrUnavailable, err),
	}
}

// messageFromBody probes detail, message and error in that order
func messageFromBody(body []byte) string {
	var payload map[string]interface{}
	if len(body) == 0 || sonic.Unmarshal(body, &payload) != nil {
		return ""
	}
	for _, key := range []string{"detail", "message", "error"} {
		switch v := payload[key].(type) {
		case nil:
			continue
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		default:
			if raw, err := sonic.ConfigStd.MarshalToString(v); err == nil {
				return raw
			}
		}
	}
	return ""
}
