// Package audit persists one record per flagged request.
package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/policy"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/rules"
)

// RequestInfo is the request context copied into a record. Empty optional
// fields are stored as NULL.
type RequestInfo struct {
	RequestID     string
	Policy        string
	Method        string
	Path          string
	Headers       string
	Body          string
	UserAgent     string
	SourceIP      string
	SourceCountry string
	UserID        string
	UserRole      string
}

type Logger struct {
	store     Store
	log       zerolog.Logger
	timeout   time.Duration
	now       func() time.Time
	newID     func() string
	onFailure func()
}

type Option func(*Logger)

// WithTimeout bounds each store write. Zero disables the bound.
func WithTimeout(d time.Duration) Option {
	return func(l *Logger) { l.timeout = d }
}

func WithClock(now func() time.Time) Option {
	return func(l *Logger) { l.now = now }
}

// WithFailureHook is called after every failed write.
func WithFailureHook(fn func()) Option {
	return func(l *Logger) { l.onFailure = fn }
}

func NewLogger(store Store, log zerolog.Logger, opts ...Option) *Logger {
	l := &Logger{
		store:   store,
		log:     log,
		timeout: 2 * time.Second,
		now:     time.Now,
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// LogEvent writes a record for a result with at least one hit and returns
// once the store has answered. Store errors are logged and dropped.
func (l *Logger) LogEvent(ctx context.Context, info RequestInfo, result rules.Result, decision policy.Decision) {
	if l == nil || l.store == nil || len(result.Hits) == 0 {
		return
	}

	rec := l.buildRecord(info, result, decision)

	ctx = context.WithoutCancel(ctx)
	if l.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, l.timeout)
		defer cancel()
	}

	if err := l.store.Append(ctx, rec); err != nil {
		l.log.Error().
			Err(err).
			Str("request_id", info.RequestID).
			Str("threat_type", rec.ThreatType).
			Str("action", rec.ActionTaken).
			Msg("audit write failed")
		if l.onFailure != nil {
			l.onFailure()
		}
	}
}

func (l *Logger) buildRecord(info RequestInfo, result rules.Result, decision policy.Decision) Record {
	primary, _ := result.Primary()

	hits := make([]HitRecord, len(result.Hits))
	for i, h := range result.Hits {
		hits[i] = HitRecord{
			RuleID:     h.RuleID,
			RuleName:   h.RuleName,
			ThreatType: string(h.Category),
			Pattern:    h.Pattern,
			Severity:   string(h.Severity),
			Score:      h.Score,
			Evidence:   redactSecrets(h.Evidence),
		}
	}

	return Record{
		ID:             l.newID(),
		CreatedAt:      l.now().UTC(),
		RequestPath:    info.Path,
		RequestMethod:  info.Method,
		RequestHeaders: info.Headers,
		RequestBody:    redactSecrets(excerpt(info.Body)),
		ThreatType:     string(primary.Category),
		ThreatPattern:  primary.Pattern,
		Severity:       string(primary.Severity),
		ThreatScore:    result.Score,
		ActionTaken:    string(decision.Action),
		WasBlocked:     decision.Blocked,
		SourceIP:       info.SourceIP,
		SourceCountry:  optional(info.SourceCountry),
		UserAgent:      info.UserAgent,
		UserID:         optional(info.UserID),
		UserRole:       optional(info.UserRole),
		RuleID:         primary.RuleID,
		RuleName:       primary.RuleName,
		Metadata: Metadata{
			Policy:    info.Policy,
			RequestID: info.RequestID,
			Hits:      hits,
		},
	}
}

func optional(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
