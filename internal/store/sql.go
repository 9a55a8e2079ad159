package store

import (
	"context"
	"fmt"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/audit"
)

// SQL stores records in the security_audit_logs table through gorm.
type SQL struct {
	db *gorm.DB
}

func OpenSQLite(dsn string) (*SQL, error) {
	db, err := gorm.Open(sqlite.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	return NewSQL(db)
}

func OpenPostgres(dsn string) (*SQL, error) {
	db, err := gorm.Open(postgres.Open(dsn), gormConfig())
	if err != nil {
		return nil, fmt.Errorf("open postgres: %w", err)
	}
	return NewSQL(db)
}

// NewSQL migrates the audit table on db.
func NewSQL(db *gorm.DB) (*SQL, error) {
	if err := db.AutoMigrate(&audit.Record{}); err != nil {
		return nil, fmt.Errorf("migrate audit table: %w", err)
	}
	return &SQL{db: db}, nil
}

func gormConfig() *gorm.Config {
	return &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)}
}

func (s *SQL) Append(ctx context.Context, rec audit.Record) error {
	if err := s.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("insert audit record: %w", err)
	}
	return nil
}

func (s *SQL) Count(ctx context.Context, filter audit.Filter) (int64, error) {
	var n int64
	if err := s.scope(ctx, filter).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count audit records: %w", err)
	}
	return n, nil
}

func (s *SQL) CountBy(ctx context.Context, field audit.Field, filter audit.Filter) (map[string]int64, error) {
	if !field.Valid() {
		return nil, fmt.Errorf("unsupported group field %q", field)
	}

	var rows []struct {
		Grp   string
		Total int64
	}
	column := string(field)
	err := s.scope(ctx, filter).
		Select(column + " AS grp, COUNT(*) AS total").
		Group(column).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("group audit records by %s: %w", column, err)
	}

	out := make(map[string]int64, len(rows))
	for _, row := range rows {
		out[row.Grp] = row.Total
	}
	return out, nil
}

func (s *SQL) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *SQL) scope(ctx context.Context, filter audit.Filter) *gorm.DB {
	q := s.db.WithContext(ctx).Model(&audit.Record{})
	if !filter.Since.IsZero() {
		q = q.Where("created_at >= ?", filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		q = q.Where("created_at < ?", filter.Until.UTC())
	}
	if filter.WasBlocked != nil {
		q = q.Where("was_blocked = ?", *filter.WasBlocked)
	}
	return q
}
