package report

import (
	"fmt"
	"strings"

	"github.com/qsync/qsync/internal/types"
)

// ParseInline turns "f1=v1,f2=v2" into a one-record buffer. Names and values
// are trimmed; a pair without '=' is an error.
func ParseInline(data string) (types.Buffer, error) {
	rec := types.NewRecord()
	for _, pair := range strings.Split(data, ",") {
		if strings.TrimSpace(pair) == "" {
			continue
		}
		k, v, ok := strings.Cut(pair, "=")
		k = strings.TrimSpace(k)
		if !ok || k == "" {
			return nil, fmt.Errorf("invalid data %q: expected field=value", pair)
		}
		rec.Set(k, strings.TrimSpace(v))
	}
	if rec.Len() == 0 {
		return nil, ErrEmptyFile
	}
	return types.Buffer{rec}, nil
}
