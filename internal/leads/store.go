// Package leads stores the contact records created from inbound phone
// numbers.
package leads

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// Lead is a contact identified by (tenant, phone), attached to the
// tenant's default pipeline stage on first contact.
type Lead struct {
	ID            uuid.UUID `json:"id"`
	TenantID      uuid.UUID `json:"tenant_id"`
	Phone         string    `json:"phone"`
	Name          string    `json:"name"`
	CreatedAt     time.Time `json:"created_at"`
	LastContactAt time.Time `json:"last_contact_at"`
}

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store persists leads in Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("leads: pgx pool required")
	}
	return &Store{pool: pool}
}

// Upsert creates the lead on first contact or touches its last-contact
// timestamp. Insert-or-fetch, safe under concurrent first-contact races.
func (s *Store) Upsert(ctx context.Context, tenantID uuid.UUID, phone, name string) (*Lead, error) {
	query := `
		INSERT INTO leads (id, tenant_id, phone, name, stage, last_contact_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), 'nuevo', now())
		ON CONFLICT (tenant_id, phone)
		DO UPDATE SET last_contact_at = now(),
			name = COALESCE(leads.name, EXCLUDED.name)
		RETURNING id, tenant_id, phone, COALESCE(name, ''), created_at, last_contact_at
	`
	var lead Lead
	if err := s.pool.QueryRow(ctx, query, uuid.New(), tenantID, phone, name).Scan(
		&lead.ID,
		&lead.TenantID,
		&lead.Phone,
		&lead.Name,
		&lead.CreatedAt,
		&lead.LastContactAt,
	); err != nil {
		return nil, fmt.Errorf("leads: upsert failed: %w", err)
	}
	return &lead, nil
}
