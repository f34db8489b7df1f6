package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	ProviderLocal  = "local"
	ProviderGoogle = "google"
)

// User represents a registered portal account
type User struct {
	ID                     primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	Email                  string             `bson:"email" json:"email"`
	Password               string             `bson:"password" json:"-"` // bcrypt hash, never returned
	IsActive               bool               `bson:"is_active" json:"isActive"`
	AuthProvider           string             `bson:"auth_provider,omitempty" json:"authProvider,omitempty"`
	ActivationToken        string             `bson:"activation_token,omitempty" json:"-"` // sha256 of the emailed token
	ActivationTokenExpires *time.Time         `bson:"activation_token_expires,omitempty" json:"-"`
	CreatedAt              time.Time          `bson:"created_at" json:"createdAt"`
}
