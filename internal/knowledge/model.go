// Package knowledge grounds the model prompt in tenant data: knowledge-base
// snippets retrieved by embedding similarity and catalog products matched
// by a tiered relevance score.
package knowledge

import (
	"fmt"

	"github.com/google/uuid"
)

// Snippet is one knowledge-base excerpt attached to an agent.
type Snippet struct {
	ID        uuid.UUID
	AgentID   uuid.UUID
	Content   string
	Embedding []float32
}

// Product is one catalog entry. Synonyms are pre-generated offline and
// cached on the row.
type Product struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Name        string
	Description string
	PriceCents  int64
	Currency    string
	Synonyms    []string
}

// FormatPrice renders the price for prompt context ("$450.00 MXN").
func (p *Product) FormatPrice() string {
	currency := p.Currency
	if currency == "" {
		currency = "MXN"
	}
	return fmt.Sprintf("$%d.%02d %s", p.PriceCents/100, p.PriceCents%100, currency)
}

// ProductMatch pairs a product with its relevance tier score.
type ProductMatch struct {
	Product Product
	Score   int
}

// Context is what the prompt builder receives from retrieval.
type Context struct {
	Snippets []string
	Products []ProductMatch
}

// Empty reports whether retrieval found nothing usable.
func (c *Context) Empty() bool {
	return c == nil || (len(c.Snippets) == 0 && len(c.Products) == 0)
}
