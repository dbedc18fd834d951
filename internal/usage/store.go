// Package usage accounts external-API consumption per tenant: one Postgres
// row per call category per day, plus a monthly message counter in Redis.
package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/redis/go-redis/v9"
)

// Call categories tracked by RecordAPICall.
const (
	CategoryChat          = "chat"
	CategoryTranscription = "transcription"
	CategoryVision        = "vision"
	CategoryEmbedding     = "embedding"
	CategorySpeech        = "speech"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store increments usage counters. Counters are only ever incremented.
type Store struct {
	pool  PgxPool
	redis *redis.Client
}

func NewStore(pool PgxPool, redisClient *redis.Client) *Store {
	if pool == nil {
		panic("usage: pgx pool required")
	}
	return &Store{pool: pool, redis: redisClient}
}

// RecordAPICall upserts the per-day row for (tenant, category).
func (s *Store) RecordAPICall(ctx context.Context, tenantID uuid.UUID, category string, tokens int) error {
	query := `
		INSERT INTO usage_records (tenant_id, category, day, calls, tokens)
		VALUES ($1, $2, CURRENT_DATE, 1, $3)
		ON CONFLICT (tenant_id, category, day)
		DO UPDATE SET calls = usage_records.calls + 1,
			tokens = usage_records.tokens + EXCLUDED.tokens
	`
	if _, err := s.pool.Exec(ctx, query, tenantID, category, tokens); err != nil {
		return fmt.Errorf("usage: record api call: %w", err)
	}
	return nil
}

// IncrementMonthlyMessages bumps the tenant's message counter for the
// current month and returns the new value. A nil redis client is a no-op.
func (s *Store) IncrementMonthlyMessages(ctx context.Context, tenantID uuid.UUID, now time.Time) (int64, error) {
	if s.redis == nil {
		return 0, nil
	}
	key := monthlyKey(tenantID, now)
	count, err := s.redis.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("usage: increment monthly counter: %w", err)
	}
	// Expire well past the end of the month so the key cleans itself up.
	s.redis.Expire(ctx, key, 62*24*time.Hour)
	return count, nil
}

func monthlyKey(tenantID uuid.UUID, now time.Time) string {
	return fmt.Sprintf("usage:%s:%s", tenantID, now.Format("2006-01"))
}
