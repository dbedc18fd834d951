package agents

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PgxPool is the subset of pgxpool.Pool the store needs.
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads agent configuration rows.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("agents: pgx pool required")
	}
	return &Store{pool: pool}
}

const agentColumns = `id, tenant_id, system_prompt, temperature, max_tokens, model,
		start_hour, end_hour, out_of_hours_reply, voice_id, voice_replies`

// ActiveSettings returns the tenant's active configuration record, if any.
func (s *Store) ActiveSettings(ctx context.Context, tenantID uuid.UUID) (*Agent, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM agent_settings
		WHERE tenant_id = $1 AND active
		ORDER BY updated_at DESC
		LIMIT 1
	`, agentColumns)
	return s.scanAgent(s.pool.QueryRow(ctx, query, tenantID))
}

// LegacyAgent returns the tenant's active legacy agent record, if any.
func (s *Store) LegacyAgent(ctx context.Context, tenantID uuid.UUID) (*Agent, error) {
	query := fmt.Sprintf(`
		SELECT %s
		FROM agents
		WHERE tenant_id = $1 AND active
		ORDER BY created_at
		LIMIT 1
	`, agentColumns)
	return s.scanAgent(s.pool.QueryRow(ctx, query, tenantID))
}

func (s *Store) scanAgent(row pgx.Row) (*Agent, error) {
	var a Agent
	if err := row.Scan(
		&a.ID,
		&a.TenantID,
		&a.SystemPrompt,
		&a.Temperature,
		&a.MaxTokens,
		&a.Model,
		&a.StartHour,
		&a.EndHour,
		&a.OutOfHoursReply,
		&a.VoiceID,
		&a.VoiceReplies,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNoAgent
		}
		return nil, fmt.Errorf("agents: select failed: %w", err)
	}
	return &a, nil
}
