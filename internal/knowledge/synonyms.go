package knowledge

import (
	"context"
	"fmt"
	"strings"

	openai "github.com/sashabaranov/go-openai"
)

type chatClient interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

// SynonymGenerator produces the per-product synonym list that the tiered
// matcher consumes. It runs offline (catalog import / admin flows), never
// inside the message pipeline.
type SynonymGenerator struct {
	client chatClient
	model  string
	store  *Store
}

func NewSynonymGenerator(client chatClient, model string, store *Store) *SynonymGenerator {
	if client == nil {
		panic("knowledge: chat client required")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	return &SynonymGenerator{client: client, model: model, store: store}
}

// Generate asks the model for colloquial synonyms and caches them on the
// product row.
func (g *SynonymGenerator) Generate(ctx context.Context, product *Product) ([]string, error) {
	prompt := fmt.Sprintf(
		"Lista hasta 8 sinónimos o nombres coloquiales en español para el producto %q (%s). "+
			"Responde solo los sinónimos separados por comas, sin numeración ni texto adicional.",
		product.Name, product.Description)

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       g.model,
		Temperature: 0.3,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("knowledge: synonym generation failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("knowledge: synonym generation returned no choices")
	}

	synonyms := splitSynonyms(resp.Choices[0].Message.Content)
	if g.store != nil && len(synonyms) > 0 {
		if err := g.store.CacheProductSynonyms(ctx, product.ID, synonyms); err != nil {
			return nil, err
		}
	}
	return synonyms, nil
}

func splitSynonyms(raw string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(raw, ",") {
		s := strings.TrimSpace(strings.Trim(strings.TrimSpace(part), ".\"'"))
		if s == "" {
			continue
		}
		key := strings.ToLower(s)
		if !seen[key] {
			seen[key] = true
			out = append(out, s)
		}
	}
	return out
}
