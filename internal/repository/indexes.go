package repository

import (
	"context"

	"go.mongodb.org/mongo-driver/mongo"
)

// EnsureIndexes creates the unique indexes the repositories rely on: one
// cart per user, one account per email.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	carts := &mongoCartRepository{collection: db.Collection("carts")}
	if err := carts.CreateIndexes(ctx); err != nil {
		return err
	}

	users := &mongoUserRepository{collection: db.Collection("users")}
	return users.CreateIndexes(ctx)
}
