package transcode

import (
	"fmt"

	"github.com/qsync/qsync/internal/types"
)

type nativeCollection struct {
	Name             any `json:"name"`
	ElementType      any `json:"element_type"`
	NumberOfElements any `json:"number_of_elements"`
}

// DecodeCollections flattens a reference data listing (tables, sets, maps or
// maps of sets) into name, type and elements.
func DecodeCollections(body []byte, fields []string) (types.Buffer, error) {
	var natives []nativeCollection
	if err := unmarshal(body, &natives); err != nil {
		return nil, &Error{Resource: "reference collections", Record: -1, Err: fmt.Errorf("decode collections: %w", err)}
	}
	buf := make(types.Buffer, 0, len(natives))
	for _, c := range natives {
		rec := types.NewRecord()
		for _, f := range fields {
			switch f {
			case "name":
				rec.Set(f, orEmpty(c.Name))
			case "type":
				rec.Set(f, orEmpty(c.ElementType))
			case "elements":
				if c.NumberOfElements == nil {
					rec.Set(f, 0)
				} else {
					rec.Set(f, c.NumberOfElements)
				}
			}
		}
		buf = append(buf, rec)
	}
	return buf, nil
}
