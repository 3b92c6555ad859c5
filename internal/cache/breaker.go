package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pamankwah2405/ecommerce-api/internal/domain"
)

// BreakerCache wraps a CartCache with a circuit breaker so a Redis outage
// degrades reads to the repository instead of stalling every request on a
// dead connection. Cache misses are not failures and never trip the breaker.
type BreakerCache struct {
	inner CartCache
	cb    *gobreaker.CircuitBreaker[any]
}

func NewBreakerCache(inner CartCache) *BreakerCache {
	settings := gobreaker.Settings{
		Name:    "cart-cache",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrCacheMiss)
		},
	}

	return &BreakerCache{
		inner: inner,
		cb:    gobreaker.NewCircuitBreaker[any](settings),
	}
}

func (b *BreakerCache) Get(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	v, err := b.cb.Execute(func() (any, error) {
		return b.inner.Get(ctx, userID)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			// While the breaker is open the cache is effectively empty.
			return nil, ErrCacheMiss
		}
		return nil, err
	}
	return v.(*domain.Cart), nil
}

func (b *BreakerCache) Set(ctx context.Context, userID primitive.ObjectID, cart *domain.Cart) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Set(ctx, userID, cart)
	})
	return err
}

func (b *BreakerCache) Delete(ctx context.Context, userID primitive.ObjectID) error {
	_, err := b.cb.Execute(func() (any, error) {
		return nil, b.inner.Delete(ctx, userID)
	})
	return err
}
