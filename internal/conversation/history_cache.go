package conversation

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const historyTTL = 24 * time.Hour

type recentLoader interface {
	Recent(ctx context.Context, tenantID uuid.UUID, phone string, limit int) ([]Turn, error)
}

// HistoryCache is a read-through Redis cache in front of the turn store.
// Appending a turn invalidates the cached window.
type HistoryCache struct {
	redis  *redis.Client
	loader recentLoader
	tracer trace.Tracer
}

func NewHistoryCache(redisClient *redis.Client, loader recentLoader, tracer trace.Tracer) *HistoryCache {
	if loader == nil {
		panic("conversation: recent loader required")
	}
	if tracer == nil {
		tracer = otel.Tracer("nipponflex.internal.conversation.history")
	}
	return &HistoryCache{redis: redisClient, loader: loader, tracer: tracer}
}

// Recent returns the cached window or falls back to the store. Cache
// failures degrade to a direct read.
func (c *HistoryCache) Recent(ctx context.Context, tenantID uuid.UUID, phone string, limit int) ([]Turn, error) {
	ctx, span := c.tracer.Start(ctx, "conversation.history_recent")
	defer span.End()

	if c.redis == nil {
		return c.loader.Recent(ctx, tenantID, phone, limit)
	}

	key := historyKey(tenantID, phone, limit)
	if data, err := c.redis.Get(ctx, key).Bytes(); err == nil {
		var turns []Turn
		if err := json.Unmarshal(data, &turns); err == nil {
			return turns, nil
		}
	} else if err != redis.Nil {
		span.RecordError(err)
	}

	turns, err := c.loader.Recent(ctx, tenantID, phone, limit)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(turns); err == nil {
		c.redis.Set(ctx, key, data, historyTTL)
	}
	return turns, nil
}

// Invalidate drops every cached window for the conversation.
func (c *HistoryCache) Invalidate(ctx context.Context, tenantID uuid.UUID, phone string) {
	if c.redis == nil {
		return
	}
	iter := c.redis.Scan(ctx, 0, historyPrefix(tenantID, phone)+"*", 50).Iterator()
	for iter.Next(ctx) {
		c.redis.Del(ctx, iter.Val())
	}
}

func historyPrefix(tenantID uuid.UUID, phone string) string {
	return fmt.Sprintf("history:%s:%s:", tenantID, phone)
}

func historyKey(tenantID uuid.UUID, phone string, limit int) string {
	return fmt.Sprintf("%s%d", historyPrefix(tenantID, phone), limit)
}
