package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
)

type Kind int

const (
	KindUnexpected Kind = iota
	KindNetwork
	KindCanceled
	KindUnauthorized
	KindValidation
	KindServer
	KindMalformed
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindCanceled:
		return "canceled"
	case KindUnauthorized:
		return "unauthorized"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	case KindMalformed:
		return "malformed"
	default:
		return "unexpected"
	}
}

// User-facing messages.
const (
	MsgNetwork            = "Network error. Please check your internet connection."
	MsgInvalidCredentials = "Invalid username or password. Please try again."
	MsgSessionExpired     = "Your session has expired. Please log in again."
	MsgMalformed          = "The server returned an unexpected response."
	MsgCanceled           = "The request was canceled."
	MsgUnexpected         = "An unexpected error occurred. Please try again."
)

// FieldError is one entry of a backend validation error object.
type FieldError struct {
	Field    string
	Messages []string
}

// Error is returned by every Client call that does not get a usable 2xx.
// Detail is the server message surfaced verbatim for KindServer, Fields holds
// KindValidation entries in the order the server sent them and Body keeps the
// raw response for KindMalformed.
type Error struct {
	Kind       Kind
	Op         string
	StatusCode int
	Detail     string
	Fields     []FieldError
	Body       []byte
	Err        error
}

func (e *Error) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s error", e.Op, e.Kind)
	if e.StatusCode != 0 {
		fmt.Fprintf(&b, " (status %d)", e.StatusCode)
	}
	switch {
	case e.Kind == KindValidation:
		b.WriteString(": " + e.Flatten())
	case e.Detail != "":
		b.WriteString(": " + e.Detail)
	case e.Err != nil:
		b.WriteString(": " + e.Err.Error())
	}
	return b.String()
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Flatten joins every field message, in order, separated by a space.
func (e *Error) Flatten() string {
	var msgs []string
	for _, f := range e.Fields {
		msgs = append(msgs, f.Messages...)
	}
	return strings.Join(msgs, " ")
}

// FieldMessages returns the messages for one field, if any.
func (e *Error) FieldMessages(field string) []string {
	for _, f := range e.Fields {
		if f.Field == field {
			return f.Messages
		}
	}
	return nil
}

// Message maps any error to the text shown to the user.
func Message(err error) string {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if !errors.As(err, &apiErr) {
		return MsgUnexpected
	}
	switch apiErr.Kind {
	case KindNetwork:
		return MsgNetwork
	case KindCanceled:
		return MsgCanceled
	case KindUnauthorized:
		if apiErr.Op == OpLogin {
			return MsgInvalidCredentials
		}
		return MsgSessionExpired
	case KindValidation:
		return apiErr.Flatten()
	case KindServer:
		return apiErr.Detail
	case KindMalformed:
		return MsgMalformed
	default:
		return MsgUnexpected
	}
}

func IsKind(err error, kind Kind) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Kind == kind
}

func IsUnauthorized(err error) bool {
	return IsKind(err, KindUnauthorized)
}

// detailKeys carry a single human readable message.
var detailKeys = []string{"detail", "error", "message"}

var errShape = errors.New("unrecognised error body")

// parseErrorBody accepts exactly two shapes: an object carrying a string
// detail/error/message, or an object whose values are all strings or string
// arrays. Keys keep their document order.
func parseErrorBody(body []byte) (detail string, fields []FieldError, err error) {
	dec := json.NewDecoder(bytes.NewReader(body))
	tok, err := dec.Token()
	if err != nil {
		return "", nil, fmt.Errorf("%w: %v", errShape, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return "", nil, fmt.Errorf("%w: not an object", errShape)
	}

	details := map[string]string{}
	shapeOK := true
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return "", nil, fmt.Errorf("%w: %v", errShape, err)
		}
		key, _ := keyTok.(string)

		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return "", nil, fmt.Errorf("%w: %v", errShape, err)
		}

		msgs, ok := decodeMessages(raw)
		if !ok {
			shapeOK = false
			continue
		}
		if len(msgs) == 1 && isDetailKey(key) && raw[0] == '"' {
			details[key] = msgs[0]
		}
		fields = append(fields, FieldError{Field: key, Messages: msgs})
	}
	if _, err := dec.Token(); err != nil {
		return "", nil, fmt.Errorf("%w: %v", errShape, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return "", nil, fmt.Errorf("%w: trailing data", errShape)
	}

	for _, k := range detailKeys {
		if d, ok := details[k]; ok {
			return d, nil, nil
		}
	}
	if !shapeOK || len(fields) == 0 {
		return "", nil, errShape
	}
	return "", fields, nil
}

func decodeMessages(raw json.RawMessage) ([]string, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return []string{s}, true
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil && len(list) > 0 {
		return list, true
	}
	return nil, false
}

func isDetailKey(key string) bool {
	for _, k := range detailKeys {
		if k == key {
			return true
		}
	}
	return false
}
