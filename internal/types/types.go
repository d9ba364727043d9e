package types

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Value is a single cell of a flat record: string, number (int, float64,
// json.Number), bool or nil.
type Value = any

// Record is one row of the tabular domain. Field order is kept so sinks can
// render columns in the order the record was built.
type Record struct {
	keys []string
	vals map[string]Value
}

// NewRecord returns an empty record.
func NewRecord() *Record {
	return &Record{vals: map[string]Value{}}
}

// RecordOf builds a record from alternating key/value pairs.
func RecordOf(kv ...any) *Record {
	r := NewRecord()
	for i := 0; i+1 < len(kv); i += 2 {
		r.Set(fmt.Sprint(kv[i]), kv[i+1])
	}
	return r
}

// Set assigns v to field k, appending k to the field order if it is new.
func (r *Record) Set(k string, v Value) {
	if r.vals == nil {
		r.vals = map[string]Value{}
	}
	if _, ok := r.vals[k]; !ok {
		r.keys = append(r.keys, k)
	}
	r.vals[k] = v
}

// Get returns the value for k and whether the field exists.
func (r *Record) Get(k string) (Value, bool) {
	v, ok := r.vals[k]
	return v, ok
}

// Has reports whether field k exists.
func (r *Record) Has(k string) bool {
	_, ok := r.vals[k]
	return ok
}

// Text returns the value of k rendered as a string ("" when absent or nil).
func (r *Record) Text(k string) string {
	return Text(r.vals[k])
}

// Delete removes field k.
func (r *Record) Delete(k string) {
	if _, ok := r.vals[k]; !ok {
		return
	}
	delete(r.vals, k)
	for i, key := range r.keys {
		if key == k {
			r.keys = append(r.keys[:i], r.keys[i+1:]...)
			break
		}
	}
}

// Keys returns the field names in insertion order.
func (r *Record) Keys() []string {
	out := make([]string, len(r.keys))
	copy(out, r.keys)
	return out
}

// Len returns the number of fields.
func (r *Record) Len() int { return len(r.keys) }

// MarshalJSON encodes the record as an object with fields in order. HTML
// characters are not escaped.
func (r *Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if err := enc.Encode(k); err != nil {
			return nil, err
		}
		trimNewline(&buf)
		buf.WriteByte(':')
		if err := enc.Encode(r.vals[k]); err != nil {
			return nil, err
		}
		trimNewline(&buf)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func trimNewline(buf *bytes.Buffer) {
	if n := buf.Len(); n > 0 && buf.Bytes()[n-1] == '\n' {
		buf.Truncate(n - 1)
	}
}

// UnmarshalJSON decodes a flat JSON object keeping field order. Numbers are
// kept as json.Number; nested values are kept as decoded by encoding/json.
func (r *Record) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("record: expected object, got %v", tok)
	}
	r.keys = nil
	r.vals = map[string]Value{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		var v Value
		if err := dec.Decode(&v); err != nil {
			return err
		}
		r.Set(key, v)
	}
	_, err = dec.Token()
	return err
}

// Buffer is the ordered working set of one invocation.
type Buffer []*Record

// Fields returns the field order of the first record, which sinks use as the
// column header.
func (b Buffer) Fields() []string {
	if len(b) == 0 {
		return nil
	}
	return b[0].Keys()
}

// Text renders a cell value as a string. Floats use the shortest
// representation so 0.0 renders as "0".
func Text(v Value) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		if t {
			return "1"
		}
		return "0"
	default:
		return fmt.Sprint(t)
	}
}

// Truthy interprets flag-like cells ("1", "true", "yes", 1, true).
func Truthy(v Value) bool {
	switch Text(v) {
	case "1", "true", "True", "TRUE", "yes", "y", "Yes":
		return true
	}
	return false
}
