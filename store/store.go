// Package store holds the MongoDB repositories for users, complaints and
// password resets.
package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/raushankrgupta/maternity-matters/models"
)

// Collection names.
const (
	UsersCollection          = "users"
	ComplaintsCollection     = "complaints"
	PasswordResetsCollection = "password_resets"
)

var (
	ErrNotFound  = errors.New("store: not found")
	ErrDuplicate = errors.New("store: duplicate key")
	// ErrStatusChanged is returned when a compare-and-set status update finds
	// the complaint in a different status than expected.
	ErrStatusChanged = errors.New("store: status changed concurrently")
)

// Users persists accounts.
type Users interface {
	Create(ctx context.Context, user *models.User) error
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	// ActivateByToken atomically activates the user holding tokenHash if it
	// has not expired at now, clearing the token fields.
	ActivateByToken(ctx context.Context, tokenHash string, now time.Time) (*models.User, error)
	// Activate marks the user active and clears any pending activation token.
	Activate(ctx context.Context, id primitive.ObjectID) error
	SetActivationToken(ctx context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error
	UpdatePassword(ctx context.Context, id primitive.ObjectID, passwordHash string) error
	// DeleteInactive removes a user only while it is still inactive.
	DeleteInactive(ctx context.Context, id primitive.ObjectID) error
}

// Complaints persists grievance records. Owner-scoped methods fold the
// ownership check into the query filter.
type Complaints interface {
	Create(ctx context.Context, complaint *models.Complaint) error
	ListByOwner(ctx context.Context, userID primitive.ObjectID) ([]models.Complaint, error)
	GetOwned(ctx context.Context, id, userID primitive.ObjectID) (*models.Complaint, error)
	// SaveDetails writes the owner-editable fields and updated_at. Status and
	// history are never touched.
	SaveDetails(ctx context.Context, complaint *models.Complaint) (*models.Complaint, error)
	DeleteOwned(ctx context.Context, id, userID primitive.ObjectID) error

	Get(ctx context.Context, id primitive.ObjectID) (*models.Complaint, error)
	// SetStatus moves the complaint from change.From to change.To only if its
	// current status is still change.From.
	SetStatus(ctx context.Context, id primitive.ObjectID, change models.StatusChange) (*models.Complaint, error)
}

// PasswordResets persists pending reset tokens.
type PasswordResets interface {
	Create(ctx context.Context, reset models.PasswordReset) error
	// Take atomically removes and returns the reset for tokenHash.
	Take(ctx context.Context, tokenHash string) (*models.PasswordReset, error)
	Delete(ctx context.Context, tokenHash string) error
}

var (
	_ Users          = (*MongoUsers)(nil)
	_ Complaints     = (*MongoComplaints)(nil)
	_ PasswordResets = (*MongoPasswordResets)(nil)
)
