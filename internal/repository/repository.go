package repository

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/pamankwah2405/ecommerce-api/internal/domain"
)

var (
	ErrCartNotFound    = errors.New("cart not found")
	ErrProductNotFound = errors.New("product not found")
	ErrUserNotFound    = errors.New("user not found")
	// ErrStockConflict means a conditional stock decrement matched no document:
	// the product is gone or its stock dropped below the requested quantity.
	ErrStockConflict = errors.New("stock changed concurrently")
	// ErrDuplicateEmail surfaces the unique index on users.email.
	ErrDuplicateEmail = errors.New("email already exists")
)

// CartRepository defines the interface for cart data operations.
// Consumers define this interface, not the MongoDB implementation.
type CartRepository interface {
	GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error)
	AddItem(ctx context.Context, userID primitive.ObjectID, item domain.CartItem) error
	DeleteCart(ctx context.Context, userID primitive.ObjectID) error
}

type ProductRepository interface {
	List(ctx context.Context) ([]domain.Product, error)
	Get(ctx context.Context, id primitive.ObjectID) (*domain.Product, error)
	Insert(ctx context.Context, product domain.Product) (primitive.ObjectID, error)
	Update(ctx context.Context, id primitive.ObjectID, product domain.Product) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	// DecrementStock subtracts qty from the product's stock only if the
	// current stock covers it, returning ErrStockConflict otherwise.
	DecrementStock(ctx context.Context, id primitive.ObjectID, qty int) error
	// RestoreStock adds qty back after a failed multi-line decrement.
	RestoreStock(ctx context.Context, id primitive.ObjectID, qty int) error
}

type OrderRepository interface {
	Insert(ctx context.Context, order domain.Order) (primitive.ObjectID, error)
}

type UserRepository interface {
	Insert(ctx context.Context, user domain.User) (primitive.ObjectID, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
}
