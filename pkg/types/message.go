package types

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// TimeLayout is the timestamp format carried by inbound messages and
// written to the store.
const TimeLayout = "2006-01-02 15:04"

// Message is a decoded inbound message body. Values keep their decoded
// JSON types; use Field/FieldOr for the flattened string view the
// normalizer and reconciler operate on.
type Message map[string]any

// DecodeMessage parses a raw JSON message body.
func DecodeMessage(body []byte) (Message, error) {
	var m Message
	if err := json.Unmarshal(body, &m); err != nil {
		return nil, fmt.Errorf("decoding message body: %w", err)
	}
	return m, nil
}

// Field returns the value at key rendered as a string. JSON numbers are
// rendered without exponent notation so integer-valued fields round-trip
// ("100", not "1e+02"). Missing keys and nulls yield "".
func (m Message) Field(key string) string {
	v, ok := m[key]
	if !ok {
		return ""
	}
	return renderScalar(v)
}

// renderScalar flattens one decoded JSON value to the string form the
// normalizer and store operate on.
func renderScalar(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	default:
		return fmt.Sprintf("%v", t)
	}
}

// FieldOr returns the value at key, or def when the key is missing or
// renders empty.
func (m Message) FieldOr(key, def string) string {
	if s := m.Field(key); s != "" {
		return s
	}
	return def
}

// Has reports whether key is present with a non-empty value.
func (m Message) Has(key string) bool {
	return m.Field(key) != ""
}

// ProcessID returns the external process id carried in the "uid" field.
// A missing or empty field defaults to 0; a non-numeric value is an
// error and the message cannot be reconciled.
func (m Message) ProcessID() (int, error) {
	s := strings.TrimSpace(m.Field("uid"))
	if s == "" {
		return 0, nil
	}
	id, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("non-numeric uid %q: %w", s, err)
	}
	return id, nil
}

// Timestamp returns the "date-time" field, defaulting to now rendered
// in TimeLayout when absent.
func (m Message) Timestamp(now time.Time) string {
	if s := m.Field("date-time"); s != "" {
		return s
	}
	return now.Format(TimeLayout)
}

// Clone returns a shallow copy of the message.
func (m Message) Clone() Message {
	out := make(Message, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Params flattens the message into a string/string map.
func (m Message) Params() map[string]string {
	out := make(map[string]string, len(m))
	for k := range m {
		out[k] = m.Field(k)
	}
	return out
}

// DecodePairList flattens the legacy "param_list" payload, an array of
// two-element ["key", "value"] pairs, into one parameter map. Later
// pairs win on duplicate keys.
func DecodePairList(m Message) (map[string]string, error) {
	raw, ok := m["param_list"]
	if !ok {
		return nil, fmt.Errorf("message has no param_list")
	}
	list, ok := raw.([]any)
	if !ok {
		return nil, fmt.Errorf("param_list is not an array")
	}
	out := make(map[string]string, len(list))
	for _, entry := range list {
		pair, ok := entry.([]any)
		if !ok || len(pair) != 2 {
			return nil, fmt.Errorf("param_list entry is not a [key, value] pair")
		}
		key, ok := pair[0].(string)
		if !ok {
			return nil, fmt.Errorf("param_list key %v is not a string", pair[0])
		}
		out[key] = renderScalar(pair[1])
	}
	return out, nil
}
