// Command synonyms backfills the cached synonym list for a tenant's
// product catalog. Run it after importing products; the message pipeline
// only reads synonyms, never generates them.
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	openai "github.com/sashabaranov/go-openai"

	appconfig "github.com/cristian1110/nipponflex-saas-sub000/internal/config"
	"github.com/cristian1110/nipponflex-saas-sub000/internal/knowledge"
)

func main() {
	_ = godotenv.Load()

	tenantFlag := flag.String("tenant", "", "tenant id to backfill")
	force := flag.Bool("force", false, "regenerate even when synonyms exist")
	flag.Parse()

	tenantID, err := uuid.Parse(strings.TrimSpace(*tenantFlag))
	if err != nil {
		log.Fatalf("invalid -tenant: %v", err)
	}

	cfg := appconfig.Load()
	ctx := context.Background()

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	openaiConfig := openai.DefaultConfig(cfg.OpenAIAPIKey)
	if cfg.OpenAIBaseURL != "" {
		openaiConfig.BaseURL = cfg.OpenAIBaseURL
	}
	client := openai.NewClientWithConfig(openaiConfig)

	store := knowledge.NewStore(pool)
	generator := knowledge.NewSynonymGenerator(client, cfg.ChatModel, store)

	products, err := store.ProductsByTenant(ctx, tenantID)
	if err != nil {
		log.Fatalf("load products: %v", err)
	}

	generated := 0
	for i := range products {
		p := &products[i]
		if len(p.Synonyms) > 0 && !*force {
			continue
		}
		callCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		synonyms, err := generator.Generate(callCtx, p)
		cancel()
		if err != nil {
			log.Printf("product %s (%s): %v", p.Name, p.ID, err)
			continue
		}
		log.Printf("product %s: %d synonyms", p.Name, len(synonyms))
		generated++
	}
	log.Printf("done: %d of %d products updated", generated, len(products))
}
