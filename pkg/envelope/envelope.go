// Package envelope decodes the admin API wire envelope
// {"code": <int>, "message": <string>, "data": <any>} and the loosely shaped
// error payloads returned alongside HTTP error statuses.
package envelope

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Envelope is the wrapper around every admin API response body.
type Envelope struct {
	// Code is the raw JSON value of the "code" field. 0 means success.
	Code json.RawMessage `json:"code"`

	// Message is the server supplied message (may be empty).
	Message string `json:"message"`

	// Data is the payload. Not trusted unless OK() is true.
	Data json.RawMessage `json:"data"`
}

// Decode parses body as an envelope. The second return value is false when
// the body is not a JSON object carrying a "code" field, in which case the
// body must be delivered to the caller untouched.
func Decode(body []byte) (*Envelope, bool) {
	fields, ok := object(body)
	if !ok {
		return nil, false
	}

	code, ok := fields["code"]
	if !ok {
		return nil, false
	}

	return &Envelope{
		Code:    code,
		Message: stringField(fields["message"]),
		Data:    fields["data"],
	}, true
}

// OK reports whether the envelope signals success (code == 0).
func (e *Envelope) OK() bool {
	raw := bytes.TrimSpace(e.Code)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return false
	}

	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return false
	}
	return f == 0
}

// CodeString returns the code as text: numbers in their decimal form,
// strings unquoted, anything else empty.
func (e *Envelope) CodeString() string {
	return stringField(e.Code)
}

// Payload is the subset of an error response body the pipeline reads.
type Payload struct {
	Code    string
	Message string
	Detail  string
}

// DecodePayload extracts code, message and detail from an error body. Bodies
// that are not JSON objects (HTML error pages, plain text, empty) are treated
// as an empty object; this function never fails.
func DecodePayload(body []byte) Payload {
	fields, ok := object(body)
	if !ok {
		return Payload{}
	}
	return Payload{
		Code:    stringField(fields["code"]),
		Message: stringField(fields["message"]),
		Detail:  stringField(fields["detail"]),
	}
}

func object(body []byte) (map[string]json.RawMessage, bool) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, false
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &fields); err != nil {
		return nil, false
	}
	return fields, true
}

// stringField renders a JSON scalar as text. null, objects and arrays
// yield "".
func stringField(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return ""
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return ""
		}
		return s
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(raw, &b); err != nil {
			return ""
		}
		return strconv.FormatBool(b)
	case '-', '0', '1', '2', '3', '4', '5', '6', '7', '8', '9':
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return ""
		}
		return n.String()
	default:
		return ""
	}
}
