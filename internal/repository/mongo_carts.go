package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/pamankwah2405/ecommerce-api/internal/domain"
)

type mongoCartRepository struct {
	collection *mongo.Collection
}

func NewCartRepository(db *mongo.Database) CartRepository {
	return &mongoCartRepository{
		collection: db.Collection("carts"),
	}
}

func (m *mongoCartRepository) GetCart(ctx context.Context, userID primitive.ObjectID) (*domain.Cart, error) {
	var cart domain.Cart

	filter := bson.M{"user_id": userID}
	err := m.collection.FindOne(ctx, filter).Decode(&cart)

	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}

	return &cart, nil
}

// addItemAttempts bounds the increment/push retry loop in AddItem.
const addItemAttempts = 3

// AddItem increments an existing line for the product atomically, or pushes
// a new line, creating the cart document if the user has none yet. A cart
// never ends up with two lines for one product: the push only matches carts
// without the line, so a concurrent first add loses the upsert race with a
// duplicate-key error on user_id and retries into the increment.
func (m *mongoCartRepository) AddItem(ctx context.Context, userID primitive.ObjectID, item domain.CartItem) error {
	now := time.Now()

	// Matches only carts that already carry a line for this product, so $inc
	// through the positional operator stays a single atomic document update.
	incFilter := bson.M{"user_id": userID, "items.product_id": item.ProductID}
	incUpdate := bson.M{
		"$inc": bson.M{"items.$.quantity": item.Quantity},
		"$set": bson.M{"updated_at": now},
	}

	// Matches only carts with no line for this product ($ne over the array
	// holds when no element equals the id), or no cart at all via the upsert.
	pushFilter := bson.M{"user_id": userID, "items.product_id": bson.M{"$ne": item.ProductID}}
	pushUpdate := bson.M{
		"$push":        bson.M{"items": item},
		"$set":         bson.M{"updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	opts := options.Update().SetUpsert(true)

	for attempt := 0; attempt < addItemAttempts; attempt++ {
		res, err := m.collection.UpdateOne(ctx, incFilter, incUpdate)
		if err != nil {
			return fmt.Errorf("failed to increment cart line: %w", err)
		}
		if res.MatchedCount > 0 {
			return nil
		}

		_, err = m.collection.UpdateOne(ctx, pushFilter, pushUpdate, opts)
		if err == nil {
			return nil
		}
		if !mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("failed to add cart line: %w", err)
		}
		// A concurrent add won the upsert: the line (or the cart) exists now,
		// so the increment must match on the next pass.
	}

	return fmt.Errorf("failed to add cart line for user %s: retries exhausted", userID.Hex())
}

func (m *mongoCartRepository) DeleteCart(ctx context.Context, userID primitive.ObjectID) error {
	filter := bson.M{"user_id": userID}

	result, err := m.collection.DeleteOne(ctx, filter)
	if err != nil {
		return fmt.Errorf("failed to delete cart: %w", err)
	}

	if result.DeletedCount == 0 {
		return ErrCartNotFound
	}

	return nil
}

func (m *mongoCartRepository) CreateIndexes(ctx context.Context) error {
	index := mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	}

	_, err := m.collection.Indexes().CreateOne(ctx, index)
	if err != nil {
		return fmt.Errorf("failed to create cart indexes: %w", err)
	}

	return nil
}
