package cache

import (
	"context"
	"time"

	"flowershop/backend/internal/domain"
)

type CatalogCache interface {
	Get(ctx context.Context, key string) (*domain.CatalogListing, bool, error)
	Set(ctx context.Context, key string, value *domain.CatalogListing, ttl time.Duration) error
}

type NoopCatalogCache struct{}

func (NoopCatalogCache) Get(_ context.Context, _ string) (*domain.CatalogListing, bool, error) {
	return nil, false, nil
}

func (NoopCatalogCache) Set(_ context.Context, _ string, _ *domain.CatalogListing, _ time.Duration) error {
	return nil
}
