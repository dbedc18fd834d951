package knowledge

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Store reads knowledge snippets and products from Postgres.
type Store struct {
	pool PgxPool
}

func NewStore(pool PgxPool) *Store {
	if pool == nil {
		panic("knowledge: pgx pool required")
	}
	return &Store{pool: pool}
}

// SnippetsByAgent returns the agent's knowledge base with cached
// embeddings.
func (s *Store) SnippetsByAgent(ctx context.Context, agentID uuid.UUID) ([]Snippet, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, agent_id, content, embedding
		FROM knowledge_snippets
		WHERE agent_id = $1
	`, agentID)
	if err != nil {
		return nil, fmt.Errorf("knowledge: snippets query failed: %w", err)
	}
	defer rows.Close()

	var snippets []Snippet
	for rows.Next() {
		var sn Snippet
		if err := rows.Scan(&sn.ID, &sn.AgentID, &sn.Content, &sn.Embedding); err != nil {
			return nil, fmt.Errorf("knowledge: snippet scan failed: %w", err)
		}
		snippets = append(snippets, sn)
	}
	return snippets, rows.Err()
}

// ProductsByTenant returns the tenant's catalog with cached synonyms.
func (s *Store) ProductsByTenant(ctx context.Context, tenantID uuid.UUID) ([]Product, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, tenant_id, name, COALESCE(description, ''), price_cents,
			COALESCE(currency, ''), COALESCE(synonyms, '{}')
		FROM products
		WHERE tenant_id = $1
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("knowledge: products query failed: %w", err)
	}
	defer rows.Close()

	var products []Product
	for rows.Next() {
		var p Product
		if err := rows.Scan(&p.ID, &p.TenantID, &p.Name, &p.Description, &p.PriceCents, &p.Currency, &p.Synonyms); err != nil {
			return nil, fmt.Errorf("knowledge: product scan failed: %w", err)
		}
		products = append(products, p)
	}
	return products, rows.Err()
}

// CacheProductSynonyms stores the offline-generated synonym list on the
// product row.
func (s *Store) CacheProductSynonyms(ctx context.Context, productID uuid.UUID, synonyms []string) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE products SET synonyms = $2, updated_at = now() WHERE id = $1`,
		productID, synonyms); err != nil {
		return fmt.Errorf("knowledge: cache synonyms failed: %w", err)
	}
	return nil
}
