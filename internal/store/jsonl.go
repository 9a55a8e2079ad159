package store

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/audit"
)

// JSONL appends one JSON object per line. Queries scan the whole file.
type JSONL struct {
	path string

	mu   sync.Mutex
	file *os.File
}

func OpenJSONL(path string) (*JSONL, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create audit dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	return &JSONL{path: path, file: file}, nil
}

func (s *JSONL) Append(ctx context.Context, rec audit.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return errors.New("audit log is closed")
	}
	if _, err := s.file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

func (s *JSONL) Count(ctx context.Context, filter audit.Filter) (int64, error) {
	records, err := s.readAll(ctx)
	if err != nil {
		return 0, err
	}
	return count(records, filter), nil
}

func (s *JSONL) CountBy(ctx context.Context, field audit.Field, filter audit.Filter) (map[string]int64, error) {
	records, err := s.readAll(ctx)
	if err != nil {
		return nil, err
	}
	return countBy(records, field, filter)
}

func (s *JSONL) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.file == nil {
		return nil
	}
	err := s.file.Close()
	s.file = nil
	return err
}

func (s *JSONL) readAll(ctx context.Context) ([]audit.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return ReadJSONL(ctx, s.path)
}

// ReadJSONL decodes every record in path. A missing file holds no records.
func ReadJSONL(ctx context.Context, path string) ([]audit.Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("open audit log: %w", err)
	}
	defer f.Close()

	dec := json.NewDecoder(bufio.NewReader(f))
	var out []audit.Record
	for {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		var rec audit.Record
		if err := dec.Decode(&rec); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return out, fmt.Errorf("decode audit log: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}
