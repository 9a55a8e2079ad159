package store

import (
	"context"
	"sync"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/audit"
)

// Memory keeps records in process. Records are lost on restart.
type Memory struct {
	mu      sync.RWMutex
	records []audit.Record
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Append(ctx context.Context, rec audit.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, rec)
	return nil
}

func (m *Memory) Count(_ context.Context, filter audit.Filter) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return count(m.records, filter), nil
}

func (m *Memory) CountBy(_ context.Context, field audit.Field, filter audit.Filter) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return countBy(m.records, field, filter)
}

// Records returns a copy of every stored record in append order.
func (m *Memory) Records() []audit.Record {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]audit.Record(nil), m.records...)
}

func (m *Memory) Close() error {
	return nil
}
