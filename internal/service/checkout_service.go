package service

import (
	"context"
	"errors"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pamankwah2405/ecommerce-api/internal/cache"
	"github.com/pamankwah2405/ecommerce-api/internal/domain"
	"github.com/pamankwah2405/ecommerce-api/internal/metrics"
	"github.com/pamankwah2405/ecommerce-api/internal/repository"
)

// OrderEventPublisher notifies downstream consumers that an order committed.
type OrderEventPublisher interface {
	OrderPlaced(ctx context.Context, order domain.Order) error
}

type CheckoutService struct {
	cartRepo    repository.CartRepository
	productRepo repository.ProductRepository
	orderRepo   repository.OrderRepository
	cache       cache.CartCache
	publisher   OrderEventPublisher // optional
	metrics     *metrics.CheckoutMetrics
	logger      *log.Entry
}

func NewCheckoutService(
	cartRepo repository.CartRepository,
	productRepo repository.ProductRepository,
	orderRepo repository.OrderRepository,
	cartCache cache.CartCache,
	publisher OrderEventPublisher,
	checkoutMetrics *metrics.CheckoutMetrics,
	logger *log.Entry,
) *CheckoutService {
	return &CheckoutService{
		cartRepo:    cartRepo,
		productRepo: productRepo,
		orderRepo:   orderRepo,
		cache:       cartCache,
		publisher:   publisher,
		metrics:     checkoutMetrics,
		logger:      logger,
	}
}

// pendingLine is a cart line that passed validation and is waiting for its
// stock decrement.
type pendingLine struct {
	product  *domain.Product
	quantity int
}

// Checkout converts the user's cart into an order. Stock application is
// all-or-nothing: every line is validated before any decrement, each
// decrement is a compare-and-swap, and a conflict rolls back the decrements
// already applied, leaving cart and stock untouched.
func (s *CheckoutService) Checkout(ctx context.Context, userID string) (domain.CheckoutResult, error) {
	uid, err := parseID(userID)
	if err != nil {
		return domain.CheckoutResult{}, err
	}

	start := time.Now()
	s.metrics.CheckoutStarted()

	cart, err := s.cartRepo.GetCart(ctx, uid)
	if errors.Is(err, repository.ErrCartNotFound) {
		s.metrics.CheckoutFailed(metrics.ReasonEmptyCart, time.Since(start))
		return domain.CheckoutResult{}, domain.ErrEmptyCart
	}
	if err != nil {
		s.metrics.CheckoutFailed(metrics.ReasonStoreError, time.Since(start))
		return domain.CheckoutResult{}, err
	}
	if len(cart.Items) == 0 {
		s.metrics.CheckoutFailed(metrics.ReasonEmptyCart, time.Since(start))
		return domain.CheckoutResult{}, domain.ErrEmptyCart
	}

	lines, total, err := s.validateLines(ctx, cart)
	if err != nil {
		if domain.IsInsufficientStock(err) {
			s.metrics.CheckoutFailed(metrics.ReasonInsufficientStock, time.Since(start))
		} else {
			s.metrics.CheckoutFailed(metrics.ReasonStoreError, time.Since(start))
		}
		return domain.CheckoutResult{}, err
	}

	if err := s.applyDecrements(ctx, lines); err != nil {
		if domain.IsInsufficientStock(err) {
			s.metrics.CheckoutFailed(metrics.ReasonInsufficientStock, time.Since(start))
		} else {
			s.metrics.CheckoutFailed(metrics.ReasonStoreError, time.Since(start))
		}
		return domain.CheckoutResult{}, err
	}

	order := domain.Order{
		UserID:    uid,
		Products:  make([]domain.OrderLine, 0, len(lines)),
		Total:     total,
		CreatedAt: time.Now(),
	}
	for _, line := range lines {
		order.Products = append(order.Products, domain.OrderLine{
			ProductID: line.product.ID,
			Quantity:  line.quantity,
		})
	}

	orderID, err := s.orderRepo.Insert(ctx, order)
	if err != nil {
		// The order never committed, so the decrements must not stand.
		s.rollback(ctx, lines)
		s.metrics.CheckoutFailed(metrics.ReasonStoreError, time.Since(start))
		return domain.CheckoutResult{}, err
	}
	order.ID = orderID

	// The order is committed from here on: cleanup failures are logged, not
	// surfaced, because the purchase already happened.
	if err := s.cartRepo.DeleteCart(ctx, uid); err != nil && !errors.Is(err, repository.ErrCartNotFound) {
		s.logger.WithError(err).WithField("user_id", userID).Error("failed to clear cart after checkout")
	}
	s.invalidateCache(uid)

	if s.publisher != nil {
		if err := s.publisher.OrderPlaced(ctx, order); err != nil {
			s.logger.WithError(err).WithField("order_id", orderID.Hex()).Warn("order event not published")
		}
	}

	s.metrics.CheckoutCompleted(len(lines), time.Since(start))
	s.logger.WithFields(log.Fields{
		"user_id":  userID,
		"order_id": orderID.Hex(),
		"total":    total,
		"lines":    len(lines),
	}).Info("checkout completed")

	return domain.CheckoutResult{OrderID: orderID.Hex(), Total: total}, nil
}

// validateLines is the read-only pass: it resolves every cart line, skips
// dangling references, checks each stock constraint, and computes the total.
// Nothing is mutated here.
func (s *CheckoutService) validateLines(ctx context.Context, cart *domain.Cart) ([]pendingLine, float64, error) {
	lines := make([]pendingLine, 0, len(cart.Items))
	var total float64

	for _, item := range cart.Items {
		product, err := s.productRepo.Get(ctx, item.ProductID)
		if errors.Is(err, repository.ErrProductNotFound) {
			// Dangling line, same tolerance as the cart view.
			continue
		}
		if err != nil {
			return nil, 0, err
		}

		if product.Stock < item.Quantity {
			return nil, 0, &domain.InsufficientStockError{Product: product.Name}
		}

		lines = append(lines, pendingLine{product: product, quantity: item.Quantity})
		total += product.Price * float64(item.Quantity)
	}

	return lines, total, nil
}

// applyDecrements performs the conditional stock decrements. A conflict on
// any line (stock consumed by a concurrent checkout between the validation
// pass and here) undoes the decrements already applied.
func (s *CheckoutService) applyDecrements(ctx context.Context, lines []pendingLine) error {
	applied := make([]pendingLine, 0, len(lines))

	for _, line := range lines {
		err := s.productRepo.DecrementStock(ctx, line.product.ID, line.quantity)
		if err != nil {
			s.rollback(ctx, applied)
			if errors.Is(err, repository.ErrStockConflict) {
				return &domain.InsufficientStockError{Product: line.product.Name}
			}
			return err
		}
		applied = append(applied, line)
	}

	return nil
}

func (s *CheckoutService) rollback(ctx context.Context, applied []pendingLine) {
	if len(applied) == 0 {
		return
	}

	for i := len(applied) - 1; i >= 0; i-- {
		line := applied[i]
		if err := s.productRepo.RestoreStock(ctx, line.product.ID, line.quantity); err != nil {
			s.logger.WithError(err).WithField("product_id", line.product.ID.Hex()).
				Error("failed to restore stock during rollback")
		}
	}

	s.metrics.StockRolledBack(len(applied))
}

func (s *CheckoutService) invalidateCache(userID primitive.ObjectID) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := s.cache.Delete(ctx, userID); err != nil {
		s.logger.WithError(err).Warn("cache invalidate failed")
	}
}
