package audit

import (
	"context"
	"time"
)

// Store persists audit records and answers aggregate counts. Implementations
// own their own locking.
type Store interface {
	Append(ctx context.Context, rec Record) error
	Count(ctx context.Context, filter Filter) (int64, error)
	CountBy(ctx context.Context, field Field, filter Filter) (map[string]int64, error)
}

// Filter selects records with Since <= CreatedAt < Until. Zero bounds are
// open; a nil WasBlocked matches both outcomes.
type Filter struct {
	Since      time.Time
	Until      time.Time
	WasBlocked *bool
}

func (f Filter) Matches(rec Record) bool {
	if !f.Since.IsZero() && rec.CreatedAt.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !rec.CreatedAt.Before(f.Until) {
		return false
	}
	if f.WasBlocked != nil && rec.WasBlocked != *f.WasBlocked {
		return false
	}
	return true
}

func Blocked(v bool) *bool {
	return &v
}

// Field names a group-by column. Values match the SQL column names.
type Field string

const (
	FieldThreatType Field = "threat_type"
	FieldSeverity   Field = "severity"
)

func (f Field) Valid() bool {
	return f == FieldThreatType || f == FieldSeverity
}

// Value returns rec's value for f.
func (f Field) Value(rec Record) (string, bool) {
	switch f {
	case FieldThreatType:
		return rec.ThreatType, true
	case FieldSeverity:
		return rec.Severity, true
	default:
		return "", false
	}
}
