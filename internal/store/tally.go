package store

import (
	"fmt"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/audit"
)

func count(records []audit.Record, filter audit.Filter) int64 {
	var n int64
	for _, rec := range records {
		if filter.Matches(rec) {
			n++
		}
	}
	return n
}

func countBy(records []audit.Record, field audit.Field, filter audit.Filter) (map[string]int64, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("unsupported group field %q", field)
	}
	out := map[string]int64{}
	for _, rec := range records {
		if !filter.Matches(rec) {
			continue
		}
		key, _ := field.Value(rec)
		out[key]++
	}
	return out, nil
}
