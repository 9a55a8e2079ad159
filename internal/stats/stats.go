// Package stats answers time-windowed questions over persisted audit records.
package stats

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/audit"
)

// Window is a creation-time range, Since inclusive and Until exclusive. A
// zero Until leaves the range open.
type Window struct {
	Since time.Time
	Until time.Time
}

// Today starts at midnight in now's location.
func Today(now time.Time) Window {
	y, m, d := now.Date()
	return Window{Since: time.Date(y, m, d, 0, 0, 0, 0, now.Location())}
}

func Last(d time.Duration, now time.Time) Window {
	return Window{Since: now.Add(-d)}
}

// ParseWindow accepts "today", a Go duration such as "90m", or a day count
// such as "7d".
func ParseWindow(value string, now time.Time) (Window, error) {
	value = strings.TrimSpace(strings.ToLower(value))
	switch {
	case value == "" || value == "today":
		return Today(now), nil
	case strings.HasSuffix(value, "d"):
		var days int
		if _, err := fmt.Sscanf(value, "%dd", &days); err != nil || days <= 0 {
			return Window{}, fmt.Errorf("invalid window %q", value)
		}
		return Last(time.Duration(days)*24*time.Hour, now), nil
	default:
		d, err := time.ParseDuration(value)
		if err != nil || d <= 0 {
			return Window{}, fmt.Errorf("invalid window %q", value)
		}
		return Last(d, now), nil
	}
}

func (w Window) filter() audit.Filter {
	return audit.Filter{Since: w.Since, Until: w.Until}
}

type Summary struct {
	Since        time.Time        `json:"since"`
	Until        *time.Time       `json:"until,omitempty"`
	BlockedCount int64            `json:"blockedCount"`
	LoggedCount  int64            `json:"loggedCount"`
	ByThreatType map[string]int64 `json:"byThreatType"`
	BySeverity   map[string]int64 `json:"bySeverity"`
}

func (s Summary) Total() int64 {
	return s.BlockedCount + s.LoggedCount
}

// Aggregator is read-only over the store.
type Aggregator struct {
	store audit.Store
}

func NewAggregator(store audit.Store) *Aggregator {
	return &Aggregator{store: store}
}

func (a *Aggregator) GetStats(ctx context.Context, w Window) (Summary, error) {
	summary := Summary{Since: w.Since}
	if !w.Until.IsZero() {
		until := w.Until
		summary.Until = &until
	}

	blocked := w.filter()
	blocked.WasBlocked = audit.Blocked(true)
	logged := w.filter()
	logged.WasBlocked = audit.Blocked(false)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		summary.BlockedCount, err = a.store.Count(ctx, blocked)
		return err
	})
	g.Go(func() (err error) {
		summary.LoggedCount, err = a.store.Count(ctx, logged)
		return err
	})
	g.Go(func() (err error) {
		summary.ByThreatType, err = a.store.CountBy(ctx, audit.FieldThreatType, w.filter())
		return err
	})
	g.Go(func() (err error) {
		summary.BySeverity, err = a.store.CountBy(ctx, audit.FieldSeverity, w.filter())
		return err
	})
	if err := g.Wait(); err != nil {
		return Summary{}, fmt.Errorf("aggregate audit records: %w", err)
	}

	if summary.ByThreatType == nil {
		summary.ByThreatType = map[string]int64{}
	}
	if summary.BySeverity == nil {
		summary.BySeverity = map[string]int64{}
	}
	return summary, nil
}
