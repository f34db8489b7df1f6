package store

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/raushankrgupta/maternity-matters/models"
)

// MongoComplaints implements Complaints on the complaints collection.
type MongoComplaints struct {
	collection *mongo.Collection
}

func NewMongoComplaints(db *mongo.Database) *MongoComplaints {
	return &MongoComplaints{collection: db.Collection(ComplaintsCollection)}
}

// EnsureIndexes creates the owner listing index.
func (s *MongoComplaints) EnsureIndexes(ctx context.Context) error {
	_, err := s.collection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "submitted_at", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("create complaint indexes: %w", err)
	}
	return nil
}

func (s *MongoComplaints) Create(ctx context.Context, complaint *models.Complaint) error {
	res, err := s.collection.InsertOne(ctx, complaint)
	if err != nil {
		return err
	}
	complaint.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoComplaints) ListByOwner(ctx context.Context, userID primitive.ObjectID) ([]models.Complaint, error) {
	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "submitted_at", Value: -1}}) // newest first

	cursor, err := s.collection.Find(ctx, bson.M{"user_id": userID}, findOptions)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	complaints := []models.Complaint{}
	if err := cursor.All(ctx, &complaints); err != nil {
		return nil, err
	}
	return complaints, nil
}

func (s *MongoComplaints) GetOwned(ctx context.Context, id, userID primitive.ObjectID) (*models.Complaint, error) {
	return s.findOne(ctx, bson.M{"_id": id, "user_id": userID})
}

func (s *MongoComplaints) Get(ctx context.Context, id primitive.ObjectID) (*models.Complaint, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoComplaints) findOne(ctx context.Context, filter bson.M) (*models.Complaint, error) {
	var complaint models.Complaint
	err := s.collection.FindOne(ctx, filter).Decode(&complaint)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

func (s *MongoComplaints) SaveDetails(ctx context.Context, c *models.Complaint) (*models.Complaint, error) {
	set := bson.M{
		"complainant_name":             c.ComplainantName,
		"complainant_contact":          c.ComplainantContact,
		"complainant_email":            c.ComplainantEmail,
		"company_name":                 c.CompanyName,
		"company_address":              c.CompanyAddress,
		"company_pincode":              c.CompanyPincode,
		"date_of_joining":              c.DateOfJoining,
		"expected_delivery_date":       c.ExpectedDeliveryDate,
		"actual_delivery_date":         c.ActualDeliveryDate,
		"number_of_surviving_children": c.NumberOfSurvivingChildren,
		"issues_faced":                 c.IssuesFaced,
		"additional_inputs":            c.AdditionalInputs,
		"supporting_documents_info":    c.SupportingDocumentsInfo,
		"consent_to_share":             c.ConsentToShare,
		"updated_at":                   c.UpdatedAt,
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Complaint
	err := s.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": c.ID, "user_id": c.UserID},
		bson.M{"$set": set},
		opts,
	).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}

func (s *MongoComplaints) DeleteOwned(ctx context.Context, id, userID primitive.ObjectID) error {
	res, err := s.collection.DeleteOne(ctx, bson.M{"_id": id, "user_id": userID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoComplaints) SetStatus(ctx context.Context, id primitive.ObjectID, change models.StatusChange) (*models.Complaint, error) {
	filter := bson.M{"_id": id, "status": change.From}
	update := bson.M{
		"$set":  bson.M{"status": change.To, "updated_at": change.ChangedAt},
		"$push": bson.M{"status_history": change},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updated models.Complaint
	err := s.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&updated)
	if errors.Is(err, mongo.ErrNoDocuments) {
		if _, getErr := s.Get(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, ErrStatusChanged
	}
	if err != nil {
		return nil, err
	}
	return &updated, nil
}
