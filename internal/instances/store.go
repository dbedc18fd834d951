// Package instances resolves the messaging-transport instance named in a
// webhook back to the owning tenant.
package instances

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

var (
	ErrNotFound     = errors.New("instances: instance not found")
	ErrNotConnected = errors.New("instances: instance not connected")
)

// Instance binds one WhatsApp line to a tenant.
type Instance struct {
	ID       uuid.UUID
	TenantID uuid.UUID
	Name     string
	Status   string
	APIKey   string // per-tenant transport key override, may be empty
}

const StatusConnected = "connected"

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads instance rows from Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("instances: pgx pool required")
	}
	return &Store{pool: pool}
}

// ResolveConnected looks up an instance by its transport-level name and
// requires it to be in a connected state.
func (s *Store) ResolveConnected(ctx context.Context, name string) (*Instance, error) {
	query := `
		SELECT id, tenant_id, name, status, COALESCE(api_key, '')
		FROM instances
		WHERE name = $1
	`
	var inst Instance
	if err := s.pool.QueryRow(ctx, query, name).Scan(
		&inst.ID,
		&inst.TenantID,
		&inst.Name,
		&inst.Status,
		&inst.APIKey,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("instances: select failed: %w", err)
	}
	if inst.Status != StatusConnected {
		return nil, ErrNotConnected
	}
	return &inst, nil
}

// ConnectedForTenant returns the tenant's first connected instance, used
// by outbound flows that start from a tenant rather than a webhook.
func (s *Store) ConnectedForTenant(ctx context.Context, tenantID uuid.UUID) (*Instance, error) {
	query := `
		SELECT id, tenant_id, name, status, COALESCE(api_key, '')
		FROM instances
		WHERE tenant_id = $1 AND status = $2
		ORDER BY name
		LIMIT 1
	`
	var inst Instance
	if err := s.pool.QueryRow(ctx, query, tenantID, StatusConnected).Scan(
		&inst.ID,
		&inst.TenantID,
		&inst.Name,
		&inst.Status,
		&inst.APIKey,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("instances: select by tenant failed: %w", err)
	}
	return &inst, nil
}
