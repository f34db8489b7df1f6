package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raushankrgupta/maternity-matters/models"
)

// MongoPasswordResets implements PasswordResets on a TTL-indexed collection,
// so pending resets survive restarts and are shared by every instance.
type MongoPasswordResets struct {
	collection *mongo.Collection
}

func NewMongoPasswordResets(db *mongo.Database) *MongoPasswordResets {
	return &MongoPasswordResets{collection: db.Collection(PasswordResetsCollection)}
}

// EnsureIndexes makes MongoDB purge resets once expires_at has passed. The
// TTL monitor runs about once a minute, so Take callers still check expiry.
func (s *MongoPasswordResets) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "expires_at", Value: 1}},
		Options: options.Index().SetExpireAfterSeconds(0),
	})
	if err != nil {
		return fmt.Errorf("create password reset indexes: %w", err)
	}
	return nil
}

func (s *MongoPasswordResets) Create(ctx context.Context, reset models.PasswordReset) error {
	_, err := s.collection.InsertOne(ctx, reset)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (s *MongoPasswordResets) Take(ctx context.Context, tokenHash string) (*models.PasswordReset, error) {
	var reset models.PasswordReset
	err := s.collection.FindOneAndDelete(ctx, bson.M{"_id": tokenHash}).Decode(&reset)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &reset, nil
}

func (s *MongoPasswordResets) Delete(ctx context.Context, tokenHash string) error {
	_, err := s.collection.DeleteOne(ctx, bson.M{"_id": tokenHash})
	return err
}
