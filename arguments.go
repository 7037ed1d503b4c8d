package llmstream

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"
)

// Argument is a single key/value pair of a function call's arguments.
type Argument struct {
	Key   string
	Value any
}

// Arguments is an ordered string -> value mapping decoded from a tool call's
// JSON input. Keys keep the order in which they appeared in the document.
//
// Values keep their JSON typing:
//   - numbers are json.Number (no float rounding of large ids)
//   - booleans are bool, strings are string, null is nil
//   - nested objects are *Arguments, arrays are []any
type Arguments struct {
	entries []Argument
}

// ParseArguments parses a complete JSON object into Arguments.
// An empty (or whitespace-only) buffer is an empty mapping, not an error.
func ParseArguments(raw string) (*Arguments, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return &Arguments{}, nil
	}
	if !gjson.Valid(trimmed) {
		return nil, fmt.Errorf("arguments are not valid JSON (%d bytes)", len(trimmed))
	}

	doc := gjson.Parse(trimmed)
	if !doc.IsObject() {
		return nil, fmt.Errorf("arguments must be a JSON object, got %s", doc.Type)
	}
	return objectArguments(doc), nil
}

func objectArguments(obj gjson.Result) *Arguments {
	args := &Arguments{}
	obj.ForEach(func(key, value gjson.Result) bool {
		args.Set(key.String(), jsonValue(value))
		return true
	})
	return args
}

func jsonValue(r gjson.Result) any {
	switch r.Type {
	case gjson.Null:
		return nil
	case gjson.False:
		return false
	case gjson.True:
		return true
	case gjson.Number:
		return json.Number(r.Raw)
	case gjson.String:
		return r.Str
	}

	if r.IsObject() {
		return objectArguments(r)
	}
	items := []any{}
	r.ForEach(func(_, item gjson.Result) bool {
		items = append(items, jsonValue(item))
		return true
	})
	return items
}

// Set stores value under key. An existing key keeps its position.
func (a *Arguments) Set(key string, value any) {
	for i := range a.entries {
		if a.entries[i].Key == key {
			a.entries[i].Value = value
			return
		}
	}
	a.entries = append(a.entries, Argument{Key: key, Value: value})
}

// Get returns the value stored under key.
func (a *Arguments) Get(key string) (any, bool) {
	if a == nil {
		return nil, false
	}
	for _, e := range a.entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return nil, false
}

// Len returns the number of keys.
func (a *Arguments) Len() int {
	if a == nil {
		return 0
	}
	return len(a.entries)
}

// Keys returns the keys in document order.
func (a *Arguments) Keys() []string {
	if a == nil {
		return nil
	}
	keys := make([]string, len(a.entries))
	for i, e := range a.entries {
		keys[i] = e.Key
	}
	return keys
}

// Entries returns a copy of the ordered key/value pairs.
func (a *Arguments) Entries() []Argument {
	if a == nil {
		return nil
	}
	return append([]Argument(nil), a.entries...)
}

// Map converts the arguments into plain Go values, losing key order.
// Numbers become float64 when they fit, matching encoding/json defaults.
func (a *Arguments) Map() map[string]any {
	out := make(map[string]any, a.Len())
	if a == nil {
		return out
	}
	for _, e := range a.entries {
		out[e.Key] = plainValue(e.Value)
	}
	return out
}

func plainValue(v any) any {
	switch val := v.(type) {
	case *Arguments:
		return val.Map()
	case []any:
		out := make([]any, len(val))
		for i, item := range val {
			out[i] = plainValue(item)
		}
		return out
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	default:
		return v
	}
}

// JSON returns the compact JSON encoding with keys in document order.
func (a *Arguments) JSON() string {
	data, err := a.MarshalJSON()
	if err != nil {
		return "{}"
	}
	return string(data)
}

// MarshalJSON implements json.Marshaler, keeping key order.
func (a *Arguments) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	if a != nil {
		for i, e := range a.entries {
			if i > 0 {
				buf.WriteByte(',')
			}
			key, err := json.Marshal(e.Key)
			if err != nil {
				return nil, err
			}
			buf.Write(key)
			buf.WriteByte(':')
			value, err := json.Marshal(e.Value)
			if err != nil {
				return nil, fmt.Errorf("argument %q: %w", e.Key, err)
			}
			buf.Write(value)
		}
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Arguments) UnmarshalJSON(data []byte) error {
	if strings.TrimSpace(string(data)) == "null" {
		*a = Arguments{}
		return nil
	}
	parsed, err := ParseArguments(string(data))
	if err != nil {
		return err
	}
	*a = *parsed
	return nil
}
