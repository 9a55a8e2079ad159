package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mdislam7895121/SafeGo-platform-sub010/internal/audit"
)

// Redis keeps records as JSON members of one sorted set scored by creation
// time in milliseconds.
type Redis struct {
	client redis.UniversalClient
	key    string
}

func NewRedis(client redis.UniversalClient, key string) *Redis {
	return &Redis{client: client, key: key}
}

// OpenRedis connects and pings the server.
func OpenRedis(ctx context.Context, opts *redis.Options, key string) (*Redis, error) {
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}
	return NewRedis(client, key), nil
}

func (s *Redis) Append(ctx context.Context, rec audit.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	member := redis.Z{Score: float64(rec.CreatedAt.UnixMilli()), Member: string(data)}
	if err := s.client.ZAdd(ctx, s.key, member).Err(); err != nil {
		return fmt.Errorf("zadd %s: %w", s.key, err)
	}
	return nil
}

func (s *Redis) Count(ctx context.Context, filter audit.Filter) (int64, error) {
	if filter.WasBlocked == nil && onMilli(filter.Since) && onMilli(filter.Until) {
		lo, hi := scoreRange(filter)
		n, err := s.client.ZCount(ctx, s.key, lo, hi).Result()
		if err != nil {
			return 0, fmt.Errorf("zcount %s: %w", s.key, err)
		}
		return n, nil
	}
	records, err := s.load(ctx, filter)
	if err != nil {
		return 0, err
	}
	return count(records, filter), nil
}

func (s *Redis) CountBy(ctx context.Context, field audit.Field, filter audit.Filter) (map[string]int64, error) {
	records, err := s.load(ctx, filter)
	if err != nil {
		return nil, err
	}
	return countBy(records, field, filter)
}

func (s *Redis) Close() error {
	return s.client.Close()
}

func (s *Redis) load(ctx context.Context, filter audit.Filter) ([]audit.Record, error) {
	lo, hi := scoreRange(filter)
	members, err := s.client.ZRangeByScore(ctx, s.key, &redis.ZRangeBy{Min: lo, Max: hi}).Result()
	if err != nil {
		return nil, fmt.Errorf("zrangebyscore %s: %w", s.key, err)
	}

	out := make([]audit.Record, 0, len(members))
	for _, member := range members {
		var rec audit.Record
		if err := json.Unmarshal([]byte(member), &rec); err != nil {
			return nil, fmt.Errorf("decode record: %w", err)
		}
		out = append(out, rec)
	}
	return out, nil
}

// scoreRange maps the filter onto millisecond scores. The range covers every
// record the filter can match; callers re-check with Filter.Matches unless
// both bounds fall on whole milliseconds.
func scoreRange(filter audit.Filter) (string, string) {
	lo, hi := "-inf", "+inf"
	if !filter.Since.IsZero() {
		lo = strconv.FormatInt(filter.Since.UnixMilli(), 10)
	}
	if !filter.Until.IsZero() {
		until := strconv.FormatInt(filter.Until.UnixMilli(), 10)
		if onMilli(filter.Until) {
			hi = "(" + until
		} else {
			hi = until
		}
	}
	return lo, hi
}

func onMilli(t time.Time) bool {
	return t.IsZero() || t.Nanosecond()%int(time.Millisecond) == 0
}
