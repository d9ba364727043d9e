package transcode

import (
	"encoding/json"
	"fmt"

	"github.com/qsync/qsync/internal/types"
)

// resultKeys name the array member of a search results document.
var resultKeys = []string{"events", "flows"}

// DecodeResults passes search results through as records, keeping every
// column in server order.
func DecodeResults(body []byte) (types.Buffer, error) {
	var doc object
	if err := unmarshal(body, &doc); err != nil {
		return nil, &Error{Resource: "events", Record: -1, Err: fmt.Errorf("decode results: %w", err)}
	}
	for _, k := range resultKeys {
		if !doc.has(k) {
			continue
		}
		var rows []json.RawMessage
		if err := doc.decode(k, &rows); err != nil {
			return nil, &Error{Resource: "events", Record: -1, Field: k, Err: err}
		}
		buf := make(types.Buffer, 0, len(rows))
		for i, raw := range rows {
			rec := types.NewRecord()
			if err := rec.UnmarshalJSON(raw); err != nil {
				return nil, &Error{Resource: "events", Record: i, Err: err}
			}
			buf = append(buf, rec)
		}
		return buf, nil
	}
	return nil, &Error{Resource: "events", Record: -1, Err: fmt.Errorf("search results hold neither events nor flows")}
}
