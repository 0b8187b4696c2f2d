package effects

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
)

// invalidFormatMessage prefixes the diagnostic carried by the synthesized
// failed payload when a double-encoded body cannot be decoded.
const invalidFormatMessage = "invalid response format from server"

// Response is a normalized 2xx response. Exactly one shape is populated:
// Value holds a decoded JSON object or array, Text holds a non-JSON body,
// and both are zero when the body was empty or JSON null.
type Response struct {
	StatusCode int
	Value      any
	Text       string
}

// Empty reports whether the server returned no usable payload.
func (r *Response) Empty() bool {
	return r == nil || (r.Value == nil && strings.TrimSpace(r.Text) == "")
}

// Structured reports whether the payload decoded to JSON.
func (r *Response) Structured() bool {
	return r != nil && r.Value != nil
}

// Fields returns the payload as an object, or nil when it is not one.
func (r *Response) Fields() map[string]any {
	if r == nil {
		return nil
	}
	m, _ := r.Value.(map[string]any)
	return m
}

// Decode copies the structured payload into out.
func (r *Response) Decode(out any) error {
	if !r.Structured() {
		return errors.New("effects: response is not structured")
	}
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		WeaklyTypedInput: true,
		TagName:          "mapstructure",
		Result:           out,
	})
	if err != nil {
		return fmt.Errorf("effects: build decoder: %w", err)
	}
	if err := dec.Decode(r.Value); err != nil {
		return fmt.Errorf("effects: decode response: %w", err)
	}
	return nil
}

// normalizeBody turns a successful body into a Response. The server is known
// to wrap JSON in a JSON string, so one extra decode is attempted. When that
// second decode fails the result is a structured failed status rather than a
// parse error, so a poll loop sees a regular terminal payload.
func normalizeBody(status int, raw []byte) *Response {
	resp := &Response{StatusCode: status}
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 {
		return resp
	}
	value, err := decodeJSON(trimmed)
	if err != nil {
		resp.Text = string(raw)
		return resp
	}
	switch v := value.(type) {
	case nil:
		return resp
	case map[string]any, []any:
		resp.Value = v
	case string:
		inner, err := decodeJSON([]byte(strings.TrimSpace(v)))
		switch inner.(type) {
		case map[string]any, []any:
			resp.Value = inner
		default:
			detail := "not a JSON object"
			if err != nil {
				detail = err.Error()
			}
			resp.Value = map[string]any{
				"status":        string(StatusFailed),
				"error_message": invalidFormatMessage + ": " + detail,
			}
		}
	default:
		resp.Text = string(raw)
	}
	return resp
}

func decodeJSON(data []byte) (any, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	if dec.More() {
		return nil, errors.New("trailing data after JSON value")
	}
	return v, nil
}

type errorPayload struct {
	Error   string `json:"error"`
	Details string `json:"details"`
	Detail  string `json:"detail"`
}

// rejectionMessage extracts the most useful text from a non-2xx body.
func rejectionMessage(status int, raw []byte) string {
	trimmed := bytes.TrimSpace(raw)
	var payload errorPayload
	if err := json.Unmarshal(trimmed, &payload); err == nil {
		msg := strings.TrimSpace(payload.Error)
		if msg == "" {
			msg = strings.TrimSpace(payload.Detail)
		}
		if details := strings.TrimSpace(payload.Details); details != "" {
			if msg == "" {
				msg = details
			} else {
				msg += ": " + details
			}
		}
		if msg != "" {
			return msg
		}
	}
	if len(trimmed) > 0 && !json.Valid(trimmed) {
		return string(trimmed)
	}
	return fmt.Sprintf("server returned status %d", status)
}
