package cache

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pamankwah2405/ecommerce-api/internal/domain"
)

// NoopCache is used when no Redis address is configured: every read misses
// and writes are discarded, so the service falls through to the repository.
type NoopCache struct{}

func NewNoopCache() *NoopCache {
	return &NoopCache{}
}

func (NoopCache) Get(context.Context, primitive.ObjectID) (*domain.Cart, error) {
	return nil, ErrCacheMiss
}

func (NoopCache) Set(context.Context, primitive.ObjectID, *domain.Cart) error {
	return nil
}

func (NoopCache) Delete(context.Context, primitive.ObjectID) error {
	return nil
}
