package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidID means a caller-supplied identifier is not a valid hex object id.
	ErrInvalidID = errors.New("invalid identifier format")
	// ErrEmptyCart means checkout was attempted with no cart or no items.
	ErrEmptyCart = errors.New("cart is empty, nothing to checkout")
	// ErrEmailTaken means registration reused an existing email.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials means login failed verification.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrQuantityInvalid means a cart quantity was zero or negative.
	ErrQuantityInvalid = errors.New("quantity must be greater than zero")

	ErrProductNameRequired = errors.New("product name is required")
	ErrPriceNegative       = errors.New("product price must be non-negative")
	ErrStockNegative       = errors.New("product stock must be non-negative")
)

// InsufficientStockError names the product whose stock cannot cover the
// requested quantity.
type InsufficientStockError struct {
	Product string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("not enough stock for %s", e.Product)
}

// IsInsufficientStock reports whether err is an InsufficientStockError.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
