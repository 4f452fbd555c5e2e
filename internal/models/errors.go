package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Error classes. Callers match them with errors.Is.
var (
	// ErrInput marks invalid caller input (empty question, bad parameters).
	ErrInput = errors.New("invalid input")
	// ErrPrecondition marks an operation attempted before its prerequisites hold.
	ErrPrecondition = errors.New("precondition failed")
	// ErrUpstream marks a failed call to a remote embedding or language model provider.
	ErrUpstream = errors.New("upstream failure")
	// ErrData marks an absent or unreadable source document.
	ErrData = errors.New("data error")
	// ErrNotFound marks a missing stored entity.
	ErrNotFound = errors.New("not found")
)

// InputError returns an error wrapping ErrInput.
func InputError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInput, fmt.Sprintf(format, args...))
}

// PreconditionError returns an error wrapping ErrPrecondition.
func PreconditionError(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrPrecondition, fmt.Sprintf(format, args...))
}

// DataError returns an error wrapping ErrData and the underlying cause.
func DataError(cause error, format string, args ...any) error {
	return fmt.Errorf("%w: %s: %w", ErrData, fmt.Sprintf(format, args...), cause)
}

// NotFoundError returns an error wrapping ErrNotFound.
func NotFoundError(kind, id string) error {
	return fmt.Errorf("%w: %s %s", ErrNotFound, kind, id)
}

// UpstreamError is returned when a remote provider call fails. StatusCode is zero
// for transport failures and malformed responses.
type UpstreamError struct {
	Provider   string `json:"provider,omitempty"`
	StatusCode int    `json:"status_code,omitempty"`
	Message    string `json:"message"`
	Cause      error  `json:"-"`
}

// Error implements the error interface.
func (e *UpstreamError) Error() string {
	var parts []string
	if e.Provider != "" {
		parts = append(parts, "provider="+e.Provider)
	}
	if e.StatusCode > 0 {
		parts = append(parts, fmt.Sprintf("status=%d", e.StatusCode))
	}
	parts = append(parts, e.Message)
	if e.Cause != nil {
		parts = append(parts, "cause="+e.Cause.Error())
	}
	return "upstream error: " + strings.Join(parts, ": ")
}

// Unwrap returns the underlying error.
func (e *UpstreamError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is ErrUpstream.
func (e *UpstreamError) Is(target error) bool {
	return target == ErrUpstream
}

// UpstreamFromResponse builds an UpstreamError for a non-2xx provider response. The message
// is taken from an OpenAI-style {"error":{"message":...}} body when present, otherwise from
// the status text.
func UpstreamFromResponse(provider string, status int, body []byte) *UpstreamError {
	var payload struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	msg := ""
	if json.Unmarshal(body, &payload) == nil {
		msg = strings.TrimSpace(payload.Error.Message)
	}
	if msg == "" {
		msg = fmt.Sprintf("request failed with status %d", status)
		if text := http.StatusText(status); text != "" {
			msg += " (" + text + ")"
		}
	}
	return &UpstreamError{Provider: provider, StatusCode: status, Message: msg}
}
