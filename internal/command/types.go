// Package command defines the wire envelopes exchanged with clients and the
// contract every command handler satisfies.
package command

import "strings"

// Response status literals. Status is always exactly one of these.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// PingCommand is the reserved liveness probe, recognized case-insensitively
// both as bare raw text and as an envelope type, without touching the
// registry.
const PingCommand = "ping"

// EchoLimit caps how much of an offending input is echoed back inside an
// error payload.
const EchoLimit = 50

// Params is the loosely typed parameter bag of an inbound command.
type Params map[string]any

// Request is the inbound command envelope.
type Request struct {
	Type   string `json:"type"`
	Params Params `json:"params"`
}

// Response is the outbound envelope. Exactly one of Result/Error is
// populated; Command, StackTrace and ReceivedText are diagnostic fields set
// only on errors that have them.
type Response struct {
	Status       string `json:"status"`
	Result       any    `json:"result,omitempty"`
	Error        string `json:"error,omitempty"`
	Command      string `json:"command,omitempty"`
	StackTrace   string `json:"stackTrace,omitempty"`
	ReceivedText string `json:"receivedText,omitempty"`
}

// Success wraps a handler result in a success envelope.
func Success(result any) Response {
	return Response{Status: StatusSuccess, Result: result}
}

// Failure builds an error envelope carrying only a message.
func Failure(msg string) Response {
	return Response{Status: StatusError, Error: msg}
}

// FailureFor builds an error envelope attributed to a command name.
func FailureFor(cmd, msg string) Response {
	return Response{Status: StatusError, Error: msg, Command: cmd}
}

// Pong is the canonical liveness response.
func Pong() Response {
	return Success(map[string]string{"message": "pong"})
}

// IsPing reports whether s is the reserved liveness token. The comparison is
// case-insensitive and exact; callers trim raw text before asking.
func IsPing(s string) bool {
	return strings.EqualFold(s, PingCommand)
}

// TruncateEcho caps s at EchoLimit characters for inclusion in error
// payloads, appending an ellipsis when anything was cut.
func TruncateEcho(s string) string {
	r := []rune(s)
	if len(r) <= EchoLimit {
		return s
	}
	return string(r[:EchoLimit]) + "..."
}

// String returns the string value under key, or "" when absent or not a
// string.
func (p Params) String(key string) string {
	v, _ := p[key].(string)
	return v
}

// StringOr returns the string value under key, or fallback.
func (p Params) StringOr(key, fallback string) string {
	if v, ok := p[key].(string); ok {
		return v
	}
	return fallback
}

// Bool returns the boolean value under key, false when absent.
func (p Params) Bool(key string) bool {
	v, _ := p[key].(bool)
	return v
}

// IntOr returns the integer value under key, tolerating the float64 shape
// JSON decoding produces.
func (p Params) IntOr(key string, fallback int) int {
	switch v := p[key].(type) {
	case int:
		return v
	case float64:
		return int(v)
	}
	return fallback
}

// Map returns the nested object under key, or nil.
func (p Params) Map(key string) Params {
	if v, ok := p[key].(map[string]any); ok {
		return Params(v)
	}
	return nil
}

// List returns the array value under key, or nil.
func (p Params) List(key string) []any {
	v, _ := p[key].([]any)
	return v
}
