package conversation

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// TurnStore persists conversation turns in Postgres. Turns are append-only
// and ordered by creation time.
type TurnStore struct {
	pool   PgxPool
	tracer trace.Tracer
}

func NewTurnStore(pool PgxPool, tracer trace.Tracer) *TurnStore {
	if pool == nil {
		panic("conversation: pgx pool required")
	}
	if tracer == nil {
		tracer = otel.Tracer("nipponflex.internal.conversation.turns")
	}
	return &TurnStore{pool: pool, tracer: tracer}
}

// Append logs one turn.
func (s *TurnStore) Append(ctx context.Context, tenantID uuid.UUID, phone, role, content string) (*Turn, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.append_turn")
	defer span.End()

	turn := &Turn{TenantID: tenantID, Phone: phone, Role: role, Content: content}
	query := `
		INSERT INTO conversation_turns (id, tenant_id, phone, role, content)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`
	if err := s.pool.QueryRow(ctx, query, uuid.New(), tenantID, phone, role, content).
		Scan(&turn.ID, &turn.CreatedAt); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: append turn failed: %w", err)
	}
	return turn, nil
}

// Recent returns the last limit turns for (tenant, phone) in chronological
// order, newest last.
func (s *TurnStore) Recent(ctx context.Context, tenantID uuid.UUID, phone string, limit int) ([]Turn, error) {
	ctx, span := s.tracer.Start(ctx, "conversation.recent_turns")
	defer span.End()

	if limit <= 0 {
		limit = 10
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, phone, role, content, created_at
		FROM conversation_turns
		WHERE tenant_id = $1 AND phone = $2
		ORDER BY created_at DESC
		LIMIT $3
	`, tenantID, phone, limit)
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("conversation: recent turns query failed: %w", err)
	}
	defer rows.Close()

	var turns []Turn
	for rows.Next() {
		var t Turn
		if err := rows.Scan(&t.ID, &t.TenantID, &t.Phone, &t.Role, &t.Content, &t.CreatedAt); err != nil {
			span.RecordError(err)
			return nil, fmt.Errorf("conversation: turn scan failed: %w", err)
		}
		turns = append(turns, t)
	}
	if err := rows.Err(); err != nil {
		span.RecordError(err)
		return nil, err
	}

	// Rows come newest-first; the prompt wants chronological order.
	for i, j := 0, len(turns)-1; i < j; i, j = i+1, j-1 {
		turns[i], turns[j] = turns[j], turns[i]
	}
	return turns, nil
}
