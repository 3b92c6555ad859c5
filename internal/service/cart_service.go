package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/sync/singleflight"

	"github.com/pamankwah2405/ecommerce-api/internal/cache"
	"github.com/pamankwah2405/ecommerce-api/internal/domain"
	"github.com/pamankwah2405/ecommerce-api/internal/repository"
)

type CartService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	cache       cache.CartCache
	sfg         singleflight.Group // Prevents cache stampede
	logger      *log.Entry
}

func NewCartService(cartRepo repository.CartRepository, productRepo repository.ProductRepository, cartCache cache.CartCache, logger *log.Entry) *CartService {
	return &CartService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		cache:       cartCache,
		logger:      logger,
	}
}

// AddItem increments the user's line for the product, creating the line and
// the cart document as needed. Repeated calls accumulate quantity.
func (s *CartService) AddItem(ctx context.Context, userID, productID string, quantity int) error {
	uid, err := parseID(userID)
	if err != nil {
		return err
	}
	pid, err := parseID(productID)
	if err != nil {
		return err
	}
	if quantity <= 0 {
		return domain.ErrQuantityInvalid
	}

	item := domain.CartItem{ProductID: pid, Quantity: quantity}
	if err := s.cartRepo.AddItem(ctx, uid, item); err != nil {
		s.logger.WithError(err).WithField("user_id", userID).Error("repo add item failed")
		return err
	}

	s.invalidateCache(uid)
	return nil
}

// GetCart returns the enriched cart view: every line resolved against the
// catalog, lines whose product no longer exists silently omitted, total equal
// to the sum of the remaining subtotals.
func (s *CartService) GetCart(ctx context.Context, userID string) (domain.CartView, error) {
	uid, err := parseID(userID)
	if err != nil {
		return domain.CartView{}, err
	}

	cart, err := s.fetchCart(ctx, uid)
	if err != nil {
		return domain.CartView{}, err
	}

	view := domain.CartView{Products: make([]domain.CartLineView, 0, len(cart.Items))}
	for _, item := range cart.Items {
		product, err := s.productRepo.Get(ctx, item.ProductID)
		if errors.Is(err, repository.ErrProductNotFound) {
			// Dangling line: the product was deleted after it was added.
			continue
		}
		if err != nil {
			return domain.CartView{}, err
		}

		subtotal := product.Price * float64(item.Quantity)
		view.Products = append(view.Products, domain.CartLineView{
			ProductID: product.ID.Hex(),
			Name:      product.Name,
			Quantity:  item.Quantity,
			UnitPrice: product.Price,
			Subtotal:  subtotal,
		})
		view.Total += subtotal
	}

	return view, nil
}

// fetchCart reads the raw cart through the cache. Concurrent misses for the
// same user collapse into one repository read via singleflight.
func (s *CartService) fetchCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	v, err, _ := s.sfg.Do(userID.Hex(), func() (interface{}, error) {
		cart, err := s.cache.Get(ctx, userID)
		if err == nil {
			return cart, nil // cart is in cache
		}

		if !errors.Is(err, cache.ErrCacheMiss) {
			s.logger.WithError(err).Warn("cache get failed, falling back to repository")
		}

		cart, errGet := s.cartRepo.GetCart(ctx, userID)
		if errors.Is(errGet, repository.ErrCartNotFound) {
			// No cart yet reads the same as an empty one.
			return &domain.Cart{UserID: userID}, nil
		}
		if errGet != nil {
			return nil, errGet
		}

		go func() {
			setCtx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			if errSet := s.cache.Set(setCtx, userID, cart); errSet != nil {
				s.logger.WithError(errSet).Warn("cache set failed")
			}
		}()

		return cart, nil
	})

	if err != nil {
		return nil, err
	}

	return v.(*domain.Cart), nil
}

func (s *CartService) invalidateCache(userID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.WithError(err).Warn("cache invalidate failed")
	}
}
