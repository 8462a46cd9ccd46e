package usecase

import (
	"context"
	"crypto/md5"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/fekuna/omnipos-catalog-service/internal/apperr"
	"github.com/fekuna/omnipos-catalog-service/internal/category"
	"github.com/fekuna/omnipos-catalog-service/internal/inventory"
	"github.com/fekuna/omnipos-catalog-service/internal/logger"
	"github.com/fekuna/omnipos-catalog-service/internal/model"
	"github.com/fekuna/omnipos-catalog-service/internal/product"
	"github.com/fekuna/omnipos-catalog-service/internal/product/dto"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	listCachePrefix = "products:list:"
	listCacheTTL    = 5 * time.Minute
)

type productUseCase struct {
	repo       product.Repository
	categories category.Repository
	stock      inventory.Repository
	cache      redis.Cmdable
	logger     logger.ZapLogger
}

// NewProductUseCase builds the catalog read side. cache may be nil, in which
// case list pages are always read from Postgres.
func NewProductUseCase(
	repo product.Repository,
	categories category.Repository,
	stock inventory.Repository,
	cache redis.Cmdable,
	log logger.ZapLogger,
) product.UseCase {
	return &productUseCase{
		repo:       repo,
		categories: categories,
		stock:      stock,
		cache:      cache,
		logger:     log,
	}
}

func (uc *productUseCase) GetProduct(ctx context.Context, id int64) (*dto.ProductDetail, error) {
	p, err := uc.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, fmt.Errorf("%w: product %d", apperr.ErrNotFound, id)
	}

	if p.CategoryID != nil {
		p.Category, err = uc.categories.FindByID(ctx, *p.CategoryID)
		if err != nil {
			return nil, err
		}
	}

	p.Stock, err = uc.stock.FindByProduct(ctx, p.ID, nil)
	if err != nil {
		return nil, err
	}

	return dto.NewProductDetail(p), nil
}

type cachedList struct {
	Products []model.Product
	Count    int
}

func (uc *productUseCase) ListProducts(ctx context.Context, filters *dto.ProductFilters) ([]model.Product, int, error) {
	cacheKey, err := generateCacheKey(filters)
	if err == nil && uc.cache != nil {
		val, err := uc.cache.Get(ctx, cacheKey).Result()
		if err == nil {
			var result cachedList
			if err := json.Unmarshal([]byte(val), &result); err == nil {
				return result.Products, result.Count, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			uc.logger.Warn("Product list cache read failed", zap.Error(err))
		}
	}

	products, count, err := uc.repo.FindAll(ctx, filters)
	if err != nil {
		return nil, 0, err
	}

	if cacheKey != "" && uc.cache != nil {
		if data, err := json.Marshal(cachedList{Products: products, Count: count}); err == nil {
			if err := uc.cache.Set(ctx, cacheKey, data, listCacheTTL).Err(); err != nil {
				uc.logger.Warn("Product list cache write failed", zap.Error(err))
			}
		}
	}

	return products, count, nil
}

func generateCacheKey(filters *dto.ProductFilters) (string, error) {
	data, err := json.Marshal(filters)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%x", listCachePrefix, md5.Sum(data)), nil
}

func (uc *productUseCase) InvalidateListCache(ctx context.Context) {
	if uc.cache == nil {
		return
	}

	var keys []string
	iter := uc.cache.Scan(ctx, 0, listCachePrefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		uc.logger.Warn("Product list cache scan failed", zap.Error(err))
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := uc.cache.Del(ctx, keys...).Err(); err != nil {
		uc.logger.Warn("Product list cache invalidation failed", zap.Error(err))
	}
}
