package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/audit"
	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/config"
)

var day = time.Date(2025, 3, 14, 0, 0, 0, 0, time.UTC)

func strPtr(s string) *string { return &s }

func fixtures() []audit.Record {
	return []audit.Record{
		{ID: "r1", CreatedAt: day.Add(-time.Hour), ThreatType: "sqli", Severity: "critical", ThreatScore: 90, ActionTaken: "blocked", WasBlocked: true},
		{ID: "r2", CreatedAt: day.Add(time.Hour), ThreatType: "sqli", Severity: "critical", ThreatScore: 90, ActionTaken: "blocked", WasBlocked: true},
		{ID: "r3", CreatedAt: day.Add(2 * time.Hour), ThreatType: "xss_encoded", Severity: "medium", ThreatScore: 45, ActionTaken: "logged"},
		{ID: "r4", CreatedAt: day.Add(3 * time.Hour), ThreatType: "bad_user_agent", Severity: "medium", ThreatScore: 60, ActionTaken: "blocked", WasBlocked: true,
			SourceCountry: strPtr("BD"), UserID: strPtr("u-42"), UserRole: strPtr("rider"),
			Metadata: audit.Metadata{Policy: "lenient", RequestID: "waf_x_0001", Hits: []audit.HitRecord{{RuleID: "ua-001", Score: 60}}}},
		{ID: "r5", CreatedAt: day.Add(24 * time.Hour), ThreatType: "path_traversal", Severity: "high", ThreatScore: 85, ActionTaken: "blocked", WasBlocked: true},
	}
}

func runStoreSuite(t *testing.T, s audit.Store) {
	t.Helper()
	ctx := context.Background()
	for _, rec := range fixtures() {
		require.NoError(t, s.Append(ctx, rec))
	}

	window := audit.Filter{Since: day, Until: day.Add(24 * time.Hour)}

	total, err := s.Count(ctx, audit.Filter{})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)

	inDay, err := s.Count(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, int64(3), inDay)

	blocked := window
	blocked.WasBlocked = audit.Blocked(true)
	n, err := s.Count(ctx, blocked)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	logged := window
	logged.WasBlocked = audit.Blocked(false)
	n, err = s.Count(ctx, logged)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	byType, err := s.CountBy(ctx, audit.FieldThreatType, window)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"sqli": 1, "xss_encoded": 1, "bad_user_agent": 1}, byType)

	bySeverity, err := s.CountBy(ctx, audit.FieldSeverity, audit.Filter{})
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"critical": 2, "medium": 2, "high": 1}, bySeverity)

	_, err = s.CountBy(ctx, audit.Field("source_ip"), window)
	assert.Error(t, err)
}

func TestMemoryStore(t *testing.T) {
	s := NewMemory()
	runStoreSuite(t, s)
	assert.Len(t, s.Records(), 5)
}

func TestMemoryStoreRejectsCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, NewMemory().Append(ctx, audit.Record{ID: "x"}))
}

func TestJSONLStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "audit.jsonl")
	s, err := OpenJSONL(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	runStoreSuite(t, s)

	records, err := ReadJSONL(context.Background(), path)
	require.NoError(t, err)
	require.Len(t, records, 5)
	assert.Equal(t, "r4", records[3].ID)
	require.NotNil(t, records[3].UserRole)
	assert.Equal(t, "rider", *records[3].UserRole)
	assert.Equal(t, "waf_x_0001", records[3].Metadata.RequestID)
}

func TestJSONLStoreClosed(t *testing.T) {
	s, err := OpenJSONL(filepath.Join(t.TempDir(), "audit.jsonl"))
	require.NoError(t, err)
	require.NoError(t, s.Close())
	assert.Error(t, s.Append(context.Background(), audit.Record{ID: "x"}))
}

func TestReadJSONLMissingFile(t *testing.T) {
	records, err := ReadJSONL(context.Background(), filepath.Join(t.TempDir(), "missing.jsonl"))
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestSQLiteStore(t *testing.T) {
	s, err := OpenSQLite(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })

	runStoreSuite(t, s)

	var rec audit.Record
	require.NoError(t, s.db.First(&rec, "id = ?", "r4").Error)
	require.NotNil(t, rec.SourceCountry)
	assert.Equal(t, "BD", *rec.SourceCountry)
	require.Len(t, rec.Metadata.Hits, 1)
	assert.Equal(t, "ua-001", rec.Metadata.Hits[0].RuleID)
	assert.True(t, s.db.Migrator().HasTable("security_audit_logs"))
}

func TestRedisStore(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	s := NewRedis(client, "test:audit")
	t.Cleanup(func() { _ = s.Close() })

	runStoreSuite(t, s)

	members, err := mr.ZMembers("test:audit")
	require.NoError(t, err)
	assert.Len(t, members, 5)
}

func TestRedisStoreSubMillisecondBounds(t *testing.T) {
	mr := miniredis.RunT(t)
	s := NewRedis(redis.NewClient(&redis.Options{Addr: mr.Addr()}), "test:audit")
	t.Cleanup(func() { _ = s.Close() })
	ctx := context.Background()

	base := time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)
	early := audit.Record{ID: "early", CreatedAt: base.Add(100 * time.Microsecond), ThreatType: "xss", Severity: "high", WasBlocked: true}
	late := audit.Record{ID: "late", CreatedAt: base.Add(900 * time.Microsecond), ThreatType: "sqli", Severity: "critical", WasBlocked: true}
	require.NoError(t, s.Append(ctx, early))
	require.NoError(t, s.Append(ctx, late))

	// Both records share one millisecond score.
	window := audit.Filter{Since: base.Add(500 * time.Microsecond), Until: base.Add(2 * time.Millisecond)}
	n, err := s.Count(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	window = audit.Filter{Since: base, Until: base.Add(500 * time.Microsecond)}
	n, err = s.Count(ctx, window)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	byType, err := s.CountBy(ctx, audit.FieldThreatType, window)
	require.NoError(t, err)
	assert.Equal(t, map[string]int64{"xss": 1}, byType)
}

func TestOpenRedisFailsFast(t *testing.T) {
	_, err := OpenRedis(context.Background(), &redis.Options{Addr: "127.0.0.1:1", MaxRetries: -1}, "k")
	assert.Error(t, err)
}

func TestOpenFromConfig(t *testing.T) {
	dir := t.TempDir()
	mr := miniredis.RunT(t)

	cases := []struct {
		name  string
		audit config.AuditConfig
	}{
		{"memory", config.AuditConfig{Store: config.StoreMemory}},
		{"jsonl", config.AuditConfig{Store: config.StoreJSONL, Path: filepath.Join(dir, "audit.jsonl")}},
		{"sqlite", config.AuditConfig{Store: config.StoreSQLite, Path: filepath.Join(dir, "audit.db")}},
		{"redis", config.AuditConfig{Store: config.StoreRedis, Redis: config.RedisConfig{Addr: mr.Addr(), Key: "k"}}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			backend, err := Open(context.Background(), &config.Config{Audit: tc.audit})
			require.NoError(t, err)
			require.NoError(t, backend.Append(context.Background(), audit.Record{ID: "a", CreatedAt: day, ThreatType: "xss", Severity: "high"}))
			n, err := backend.Count(context.Background(), audit.Filter{})
			require.NoError(t, err)
			assert.Equal(t, int64(1), n)
			require.NoError(t, backend.Close())
		})
	}

	_, err := Open(context.Background(), &config.Config{Audit: config.AuditConfig{Store: "mongo"}})
	assert.Error(t, err)
}
