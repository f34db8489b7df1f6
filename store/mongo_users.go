package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raushankrgupta/maternity-matters/models"
)

// MongoUsers implements Users on the users collection.
type MongoUsers struct {
	collection *mongo.Collection
}

func NewMongoUsers(db *mongo.Database) *MongoUsers {
	return &MongoUsers{collection: db.Collection(UsersCollection)}
}

// EnsureIndexes creates the unique email index and the sparse unique
// activation token index.
func (s *MongoUsers) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "activation_token", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	if err != nil {
		return fmt.Errorf("create user indexes: %w", err)
	}
	return nil
}

func (s *MongoUsers) Create(ctx context.Context, user *models.User) error {
	res, err := s.collection.InsertOne(ctx, user)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoUsers) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUsers) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUsers) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	err := s.collection.FindOne(ctx, filter).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoUsers) ActivateByToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error) {
	filter := bson.M{
		"activation_token":         tokenHash,
		"activation_token_expires": bson.M{"$gt": now},
	}
	update := bson.M{
		"$set":   bson.M{"is_active": true},
		"$unset": bson.M{"activation_token": "", "activation_token_expires": ""},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var user models.User
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&user)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *MongoUsers) Activate(ctx context.Context, id primitive.ObjectID) error {
	return s.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":   bson.M{"is_active": true},
		"$unset": bson.M{"activation_token": "", "activation_token_expires": ""},
	})
}

func (s *MongoUsers) SetActivationToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	return s.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"activation_token": tokenHash, "activation_token_expires": expires},
	})
}

func (s *MongoUsers) UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error {
	return s.updateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set": bson.M{"password": passwordHash},
	})
}

func (s *MongoUsers) DeleteInactive(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id, "is_active": false})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoUsers) updateOne(ctx context.Context, filter, update bson.M) error {
	res, err := s.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
