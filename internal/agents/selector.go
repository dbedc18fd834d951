package agents

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// lookupStrategy resolves a tenant's agent from one source. Strategies
// return ErrNoAgent when their source has no candidate.
type lookupStrategy func(ctx context.Context, tenantID uuid.UUID) (*Agent, error)

// Selector tries an ordered list of lookup strategies and returns the
// first hit: the active configuration record wins over the legacy agent
// record.
type Selector struct {
	strategies []lookupStrategy
}

func NewSelector(store *Store) *Selector {
	return &Selector{
		strategies: []lookupStrategy{
			store.ActiveSettings,
			store.LegacyAgent,
		},
	}
}

// Select returns the first agent any strategy produces, or ErrNoAgent.
func (s *Selector) Select(ctx context.Context, tenantID uuid.UUID) (*Agent, error) {
	for _, lookup := range s.strategies {
		agent, err := lookup(ctx, tenantID)
		if err == nil {
			return agent, nil
		}
		if !errors.Is(err, ErrNoAgent) {
			return nil, err
		}
	}
	return nil, ErrNoAgent
}
