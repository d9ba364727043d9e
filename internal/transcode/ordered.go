package transcode

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// object is a JSON object whose member order is kept. Values stay raw until
// the caller decodes them.
type object struct {
	keys []string
	vals map[string]json.RawMessage
}

func (o *object) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		o.keys, o.vals = nil, map[string]json.RawMessage{}
		return nil
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("expected object, got %v", tok)
	}
	o.keys = nil
	o.vals = map[string]json.RawMessage{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		k, _ := tok.(string)
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if _, dup := o.vals[k]; !dup {
			o.keys = append(o.keys, k)
		}
		o.vals[k] = raw
	}
	_, err = dec.Token()
	return err
}

func (o *object) has(k string) bool {
	_, ok := o.vals[k]
	return ok
}

// decode unmarshals the member k into v. Missing members and JSON null leave
// v untouched.
func (o *object) decode(k string, v any) error {
	raw, ok := o.vals[k]
	if !ok || isNull(raw) {
		return nil
	}
	return unmarshal(raw, v)
}

// unmarshal decodes JSON keeping numbers as json.Number.
func unmarshal(b []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	return dec.Decode(v)
}

func isNull(raw json.RawMessage) bool {
	return len(bytes.TrimSpace(raw)) == 0 || string(bytes.TrimSpace(raw)) == "null"
}
