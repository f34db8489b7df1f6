package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// PasswordReset is a pending password reset. TokenHash is the sha256 of the
// emailed token; the raw token is never stored.
type PasswordReset struct {
	TokenHash string             `bson:"_id"`
	UserID    primitive.ObjectID `bson:"user_id"`
	ExpiresAt time.Time          `bson:"expires_at"`
	CreatedAt time.Time          `bson:"created_at"`
}

// Expired reports whether the reset can no longer be used at now.
func (p PasswordReset) Expired(now time.Time) bool {
	return !now.Before(p.ExpiresAt)
}
