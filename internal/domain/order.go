package domain

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type Order struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	UserID    primitive.ObjectID `bson:"user_id"`
	Products  []OrderLine        `bson:"products"`
	Total     float64            `bson:"total"`
	CreatedAt time.Time          `bson:"created_at"`
}

// OrderLine snapshots a purchased line. Unit price is not captured, only
// the order-level total.
type OrderLine struct {
	ProductID primitive.ObjectID `bson:"product_id" json:"product_id"`
	Quantity  int                `bson:"quantity" json:"quantity"`
}

// CheckoutResult is what a successful checkout returns to the caller.
type CheckoutResult struct {
	OrderID string  `json:"order_id"`
	Total   float64 `json:"total"`
}
