package services

import (
	"context"
	"encoding/json"
	"time"

	"account-service/models"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	productCachePrefix = "product:detail:"
	productCacheTTL    = 10 * time.Minute
)

// ProductCache is a read-through Redis cache for product lookups on the
// credit path. A nil client disables caching entirely.
type ProductCache struct {
	redis  *redis.Client
	logger *zap.Logger
}

func NewProductCache(client *redis.Client, logger *zap.Logger) *ProductCache {
	return &ProductCache{redis: client, logger: logger}
}

func (pc *ProductCache) Get(ctx context.Context, id uuid.UUID) (*models.Product, bool) {
	if pc == nil || pc.redis == nil {
		return nil, false
	}

	data, err := pc.redis.Get(ctx, productCachePrefix+id.String()).Result()
	if err != nil {
		return nil, false
	}

	var product models.Product
	if err := json.Unmarshal([]byte(data), &product); err != nil {
		pc.logger.Warn("Failed to unmarshal cached product", zap.Error(err))
		return nil, false
	}
	return &product, true
}

func (pc *ProductCache) Set(ctx context.Context, product *models.Product) {
	if pc == nil || pc.redis == nil {
		return
	}

	data, err := json.Marshal(product)
	if err != nil {
		return
	}
	if err := pc.redis.Set(ctx, productCachePrefix+product.ID.String(), data, productCacheTTL).Err(); err != nil {
		pc.logger.Warn("Failed to cache product", zap.String("product_id", product.ID.String()), zap.Error(err))
	}
}
