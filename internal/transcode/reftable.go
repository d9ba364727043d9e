package transcode

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/qsync/qsync/internal/types"
)

const resRefTable = "reftable"

// TypeDate marks a reference table column holding epoch milliseconds.
const TypeDate = "DATE"

// decimalCommaFields get ',' replaced by '.' before import.
var decimalCommaFields = map[string]bool{
	"Average window":  true,
	"Average MB rate": true,
}

// Schema describes one reference table.
type Schema struct {
	Name     string
	KeyLabel string
	// Fields are the value columns in server order.
	Fields []string
	Types  map[string]string
}

// Columns returns the key label followed by the value columns.
func (s Schema) Columns() []string {
	out := make([]string, 0, len(s.Fields)+1)
	out = append(out, s.KeyLabel)
	return append(out, s.Fields...)
}

// IsDate reports whether field holds dates.
func (s Schema) IsDate(field string) bool {
	return s.Types[field] == TypeDate
}

// DecodeSchema reads the reference_data/tables?filter=name="..." reply.
func DecodeSchema(name string, body []byte) (Schema, error) {
	var tables []json.RawMessage
	if err := unmarshal(body, &tables); err != nil {
		return Schema{}, &Error{Resource: resRefTable, Record: -1, Err: fmt.Errorf("decode schema: %w", err)}
	}
	if len(tables) == 0 {
		return Schema{}, &Error{Resource: resRefTable, Record: -1, Err: fmt.Errorf("reference table %q not found", name)}
	}
	var table object
	if err := unmarshal(tables[0], &table); err != nil {
		return Schema{}, &Error{Resource: resRefTable, Record: -1, Err: fmt.Errorf("decode schema: %w", err)}
	}
	s := Schema{Name: name, Types: map[string]string{}}
	if err := table.decode("key_label", &s.KeyLabel); err != nil {
		return Schema{}, &Error{Resource: resRefTable, Record: -1, Field: "key_label", Err: err}
	}
	var kinds object
	if err := table.decode("key_name_types", &kinds); err != nil {
		return Schema{}, &Error{Resource: resRefTable, Record: -1, Field: "key_name_types", Err: err}
	}
	for _, f := range kinds.keys {
		var kind string
		if err := kinds.decode(f, &kind); err != nil {
			return Schema{}, &Error{Resource: resRefTable, Record: -1, Field: f, Err: err}
		}
		s.Fields = append(s.Fields, f)
		s.Types[f] = kind
	}
	return s, nil
}

// Cell is one stored value of a reference table row.
type Cell struct {
	Field string
	Value string
}

// Row is one key of a reference table with its cells in server order.
type Row struct {
	Key   string
	Cells []Cell
}

// Value returns the cell for field.
func (r Row) Value(field string) (string, bool) {
	for _, c := range r.Cells {
		if c.Field == field {
			return c.Value, true
		}
	}
	return "", false
}

// DecodeRows reads the "data" member of a reference table reply keeping key
// and field order. Values are returned in their native text form.
func DecodeRows(body []byte) ([]Row, error) {
	var table object
	if err := unmarshal(body, &table); err != nil {
		return nil, &Error{Resource: resRefTable, Record: -1, Err: fmt.Errorf("decode table: %w", err)}
	}
	var data object
	if err := table.decode("data", &data); err != nil {
		return nil, &Error{Resource: resRefTable, Record: -1, Field: "data", Err: err}
	}
	rows := make([]Row, 0, len(data.keys))
	for _, key := range data.keys {
		var cells object
		if err := data.decode(key, &cells); err != nil {
			return nil, &Error{Resource: resRefTable, Record: len(rows), Field: key, Err: err}
		}
		row := Row{Key: key}
		for _, f := range cells.keys {
			var v struct {
				Value any `json:"value"`
			}
			if err := cells.decode(f, &v); err != nil {
				return nil, &Error{Resource: resRefTable, Record: len(rows), Field: f, Err: err}
			}
			row.Cells = append(row.Cells, Cell{Field: f, Value: types.Text(v.Value)})
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// DecodeRefTable flattens a reference table into one record per key. DATE
// columns are rendered through dates. A nil fields selects every schema
// column; an empty non-nil one selects none.
func DecodeRefTable(body []byte, schema Schema, fields []string, dates DateCodec) (types.Buffer, error) {
	rows, err := DecodeRows(body)
	if err != nil {
		return nil, err
	}
	if fields == nil {
		fields = schema.Columns()
	}
	buf := make(types.Buffer, 0, len(rows))
	for i, row := range rows {
		rec := types.NewRecord()
		for _, f := range fields {
			if f == schema.KeyLabel {
				rec.Set(f, row.Key)
				continue
			}
			v, _ := row.Value(f)
			if v != "" && schema.IsDate(f) {
				formatted, err := dates.Format(v)
				if err != nil {
					return nil, &Error{Resource: resRefTable, Record: i, Field: f, Value: v, Err: err}
				}
				v = formatted
			}
			rec.Set(f, v)
		}
		buf = append(buf, rec)
	}
	return buf, nil
}

// RecordKey returns the reference key of rec: the key label column when
// present, otherwise the first field.
func RecordKey(rec *types.Record, schema Schema) string {
	if schema.KeyLabel != "" && rec.Has(schema.KeyLabel) {
		return rec.Text(schema.KeyLabel)
	}
	keys := rec.Keys()
	if len(keys) == 0 {
		return ""
	}
	return rec.Text(keys[0])
}

// Entry is the write form of one reference table row.
type Entry struct {
	Key    string
	Values *types.Record
}

// Object returns {key: {field: value}}.
func (e Entry) Object() *types.Record {
	return types.RecordOf(e.Key, e.Values)
}

// EncodeRefTable renests records under their key. Empty values are omitted,
// dates are converted back to epoch milliseconds and decimal commas are
// normalized.
func EncodeRefTable(buf types.Buffer, schema Schema, dates DateCodec) ([]Entry, error) {
	out := make([]Entry, 0, len(buf))
	for i, rec := range buf {
		keyField := schema.KeyLabel
		if keyField == "" || !rec.Has(keyField) {
			if ks := rec.Keys(); len(ks) > 0 {
				keyField = ks[0]
			}
		}
		key := RecordKey(rec, schema)
		if key == "" {
			return nil, &Error{Resource: resRefTable, Record: i, Field: keyField, Err: fmt.Errorf("reference key is empty")}
		}
		values := types.NewRecord()
		for _, f := range rec.Keys() {
			if f == keyField {
				continue
			}
			v := rec.Text(f)
			if decimalCommaFields[f] {
				v = strings.ReplaceAll(v, ",", ".")
			}
			if v == "" {
				continue
			}
			if schema.IsDate(f) {
				ms, err := dates.Parse(v)
				if err != nil {
					return nil, &Error{Resource: resRefTable, Record: i, Field: f, Value: v, Err: err}
				}
				v = ms
			}
			values.Set(f, v)
		}
		out = append(out, Entry{Key: key, Values: values})
	}
	return out, nil
}

// Aggregate merges entries into one bulk load document. A repeated key keeps
// the last entry's values.
func Aggregate(entries []Entry) *types.Record {
	doc := types.NewRecord()
	for _, e := range entries {
		doc.Set(e.Key, e.Values)
	}
	return doc
}
