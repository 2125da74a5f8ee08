package worker

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"unicode/utf8"
)

// DecodePayload decodes raw record bytes into a JSON object. Numbers are kept
// as json.Number so identifiers survive without float rounding.
func DecodePayload(raw []byte) (map[string]any, error) {
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil, &DecodeError{Err: errors.New("empty payload")}
	}
	if !utf8.Valid(raw) {
		return nil, &DecodeError{Err: errors.New("payload is not valid UTF-8")}
	}

	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()

	var value any
	if err := dec.Decode(&value); err != nil {
		return nil, &DecodeError{Err: err}
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, &DecodeError{Err: errors.New("unexpected data after JSON value")}
	}

	obj, ok := value.(map[string]any)
	if !ok {
		return nil, &DecodeError{Err: errNotAnObject}
	}
	return obj, nil
}

// withSMSDisabled returns a copy of payload whose notify.sms flag is false.
// The input map is left untouched.
func withSMSDisabled(payload map[string]any) map[string]any {
	out := make(map[string]any, len(payload)+1)
	for k, v := range payload {
		out[k] = v
	}

	notify := map[string]any{}
	if existing, ok := payload["notify"].(map[string]any); ok {
		for k, v := range existing {
			notify[k] = v
		}
	}
	notify["sms"] = false
	out["notify"] = notify
	return out
}

// jsonSafe converts a dead-letter source value into something that always
// marshals. Raw bytes become text with invalid sequences replaced.
func jsonSafe(value any) any {
	switch v := value.(type) {
	case []byte:
		return strings.ToValidUTF8(string(v), "\uFFFD")
	case string:
		return strings.ToValidUTF8(v, "\uFFFD")
	default:
		return v
	}
}

// sourceEventID extracts a trimmed event_id from a decoded payload. It
// returns "" unless the payload carries a non-blank string id.
func sourceEventID(value any) string {
	obj, ok := value.(map[string]any)
	if !ok {
		return ""
	}
	id, ok := obj["event_id"].(string)
	if !ok {
		return ""
	}
	return strings.TrimSpace(id)
}
