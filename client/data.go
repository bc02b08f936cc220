package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"sort"
)

// Data is a decoded JSON object from a response or event.
// Numbers are kept as json.Number so that integers are not rounded through float64.
type Data map[string]any

func decodeData(raw json.RawMessage) (Data, error) {
	d := Data{}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return d, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	if err := dec.Decode(&d); err != nil {
		return nil, fmt.Errorf("decoding data: %w", err)
	}
	return d, nil
}

func (d Data) Str(key string) (string, bool) {
	s, ok := d[key].(string)
	return s, ok
}

func (d Data) Bool(key string) (bool, bool) {
	b, ok := d[key].(bool)
	return b, ok
}

func (d Data) Int(key string) (int64, bool) {
	switch v := d[key].(type) {
	case json.Number:
		n, err := v.Int64()
		if err != nil {
			f, ferr := v.Float64()
			if ferr != nil || f != float64(int64(f)) {
				return 0, false
			}
			return int64(f), true
		}
		return n, true
	case float64:
		if v != float64(int64(v)) {
			return 0, false
		}
		return int64(v), true
	case int:
		return int64(v), true
	case int64:
		return v, true
	}
	return 0, false
}

func (d Data) Float(key string) (float64, bool) {
	switch v := d[key].(type) {
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	}
	return 0, false
}

// Map returns a nested object.
func (d Data) Map(key string) (Data, bool) {
	switch v := d[key].(type) {
	case map[string]any:
		return Data(v), true
	case Data:
		return v, true
	}
	return nil, false
}

func (d Data) Slice(key string) ([]any, bool) {
	s, ok := d[key].([]any)
	return s, ok
}

// Keys returns the keys in sorted order.
func (d Data) Keys() []string {
	keys := make([]string, 0, len(d))
	for k := range d {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Attrs returns the keys converted to snake_case, in sorted order.
func (d Data) Attrs() []string {
	attrs := make([]string, 0, len(d))
	for k := range d {
		attrs = append(attrs, ToSnakeCase(k))
	}
	sort.Strings(attrs)
	return attrs
}

// Decode decodes the data into v, typically a pointer to a struct with json tags.
func (d Data) Decode(v any) error {
	b, err := json.Marshal(d)
	if err != nil {
		return fmt.Errorf("encoding data: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decoding data into %T: %w", v, err)
	}
	return nil
}
