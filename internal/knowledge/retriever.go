package knowledge

import (
	"context"
	"math"
	"sort"
	"strings"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"

	"github.com/cristian1110/nipponflex-saas-sub000/pkg/logging"
)

type embeddingClient interface {
	CreateEmbeddings(ctx context.Context, request openai.EmbeddingRequestConverter) (openai.EmbeddingResponse, error)
}

const (
	defaultTopK      = 4
	defaultThreshold = 0.35
	maxProducts      = 3
)

// Product relevance tiers.
const (
	scoreExactName   = 100
	scoreSynonym     = 80
	scoreNameKeyword = 60
	scoreDescription = 40
)

// Retriever returns prompt-ready context for one utterance.
type Retriever struct {
	store     *Store
	client    embeddingClient
	model     string
	threshold float64
	topK      int
	logger    *logging.Logger
}

func NewRetriever(store *Store, client embeddingClient, model string, logger *logging.Logger) *Retriever {
	if store == nil {
		panic("knowledge: store required")
	}
	if model == "" {
		model = "text-embedding-3-small"
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Retriever{
		store:     store,
		client:    client,
		model:     model,
		threshold: defaultThreshold,
		topK:      defaultTopK,
		logger:    logger,
	}
}

// Query retrieves knowledge snippets above the similarity threshold plus,
// when the utterance looks like a product question, the best catalog
// matches. Retrieval failures degrade to an empty context; the turn must
// not die because grounding did.
func (r *Retriever) Query(ctx context.Context, agentID, tenantID uuid.UUID, utterance string) *Context {
	result := &Context{}

	snippets, err := r.querySnippets(ctx, agentID, utterance)
	if err != nil {
		r.logger.Warn("knowledge retrieval failed", "error", err, "agent_id", agentID)
	} else {
		result.Snippets = snippets
	}

	if looksLikeProductQuery(utterance) {
		products, err := r.store.ProductsByTenant(ctx, tenantID)
		if err != nil {
			r.logger.Warn("product lookup failed", "error", err, "tenant_id", tenantID)
		} else {
			result.Products = RankProducts(products, utterance)
		}
	}
	return result
}

func (r *Retriever) querySnippets(ctx context.Context, agentID uuid.UUID, utterance string) ([]string, error) {
	if r.client == nil {
		return nil, nil
	}
	snippets, err := r.store.SnippetsByAgent(ctx, agentID)
	if err != nil {
		return nil, err
	}
	if len(snippets) == 0 {
		return nil, nil
	}

	resp, err := r.client.CreateEmbeddings(ctx, &openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(r.model),
		Input: []string{utterance},
	})
	if err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, nil
	}
	queryVec := resp.Data[0].Embedding

	type scored struct {
		score   float64
		content string
	}
	var results []scored
	for _, sn := range snippets {
		score := cosineSimilarity(queryVec, sn.Embedding)
		if score >= r.threshold {
			results = append(results, scored{score: score, content: sn.Content})
		}
	}
	sort.Slice(results, func(i, j int) bool { return results[i].score > results[j].score })

	limit := r.topK
	if len(results) < limit {
		limit = len(results)
	}
	out := make([]string, 0, limit)
	for i := 0; i < limit; i++ {
		out = append(out, results[i].content)
	}
	return out, nil
}

// RankProducts scores every product against the utterance and returns the
// best matches, highest tier first.
func RankProducts(products []Product, utterance string) []ProductMatch {
	norm := normalizeText(utterance)
	var matches []ProductMatch
	for _, p := range products {
		if score := scoreProduct(&p, norm); score > 0 {
			matches = append(matches, ProductMatch{Product: p, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if len(matches) > maxProducts {
		matches = matches[:maxProducts]
	}
	return matches
}

// scoreProduct applies the relevance tiers: exact name > synonym > name
// keyword > description keyword.
func scoreProduct(p *Product, norm string) int {
	name := normalizeText(p.Name)
	if name != "" && strings.Contains(norm, name) {
		return scoreExactName
	}
	for _, syn := range p.Synonyms {
		if s := normalizeText(syn); s != "" && strings.Contains(norm, s) {
			return scoreSynonym
		}
	}
	for _, word := range strings.Fields(name) {
		if len(word) > 3 && strings.Contains(norm, word) {
			return scoreNameKeyword
		}
	}
	for _, word := range strings.Fields(normalizeText(p.Description)) {
		if len(word) > 4 && strings.Contains(norm, word) {
			return scoreDescription
		}
	}
	return 0
}

var productQueryHints = []string{
	"precio", "cuesta", "cuestan", "cuanto", "vale", "valen",
	"tienen", "tienes", "venden", "vendes", "manejan",
	"producto", "productos", "catalogo", "comprar", "disponible",
}

// looksLikeProductQuery is a cheap lexical heuristic; it errs on the side
// of running the catalog match.
func looksLikeProductQuery(utterance string) bool {
	norm := normalizeText(utterance)
	for _, hint := range productQueryHints {
		if strings.Contains(norm, hint) {
			return true
		}
	}
	return false
}

var textNormalizer = strings.NewReplacer(
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ü", "u",
	"¿", "", "?", "", "¡", "", "!", "", ",", "", ".", "",
)

func normalizeText(s string) string {
	return strings.TrimSpace(textNormalizer.Replace(strings.ToLower(s)))
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i] * b[i])
		normA += float64(a[i] * a[i])
		normB += float64(b[i] * b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
