// Package auth implements account registration, activation, login, Google
// sign-in and password reset.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
	"golang.org/x/oauth2"

	"github.com/raushankrgupta/maternity-matters/apperr"
	"github.com/raushankrgupta/maternity-matters/models"
	"github.com/raushankrgupta/maternity-matters/store"
	"github.com/raushankrgupta/maternity-matters/utils"
)

const (
	ActivationTTL = 24 * time.Hour
	ResetTTL      = time.Hour
	MinPassword   = 6
)

// Client-facing messages.
const (
	MsgRegistered        = "Registration successful! Please check your email to activate your account."
	MsgActiveExists      = "User with this email already exists and is active."
	MsgInactiveExists    = "This email is already registered but not activated. Please check your email for the activation link or request a new one."
	MsgActivated         = "Account activated successfully! You can now log in."
	MsgActivationInvalid = "Activation token is invalid or has expired. Please try registering again or request a new activation link."
	MsgActivationResent  = "If an account with that email is awaiting activation, a new activation link has been sent."
	MsgInvalidLogin      = "Invalid email or password."
	MsgNotActivated      = "Your account is not activated. Please check your email for the activation link."
	MsgResetRequested    = "If an active account exists for that email address, a password reset link has been sent. Please check your inbox (and spam folder)."
	MsgResetInvalid      = "Password reset token is invalid or has expired. Please request a new one."
	MsgResetUserMissing  = "User associated with this token could not be found."
	MsgResetInactive     = "Account not activated. Cannot reset password."
	MsgPasswordReset     = "Your password has been successfully reset. You can now log in with your new password."
	MsgMailFailed        = "Failed to send email due to server email configuration or connection issue. Please try again later or contact support."
	MsgGoogleFailed      = "Google authentication failed."
	MsgGoogleUnverified  = "Google account email is not verified."
	MsgUserNotFound      = "User not found."
)

// Notifier sends the account emails.
type Notifier interface {
	SendActivation(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
	SendPasswordChanged(ctx context.Context, email string) error
}

// TokenIssuer signs session tokens.
type TokenIssuer interface {
	GenerateToken(userID, email string) (string, error)
}

// IDTokenVerifier verifies Google ID tokens.
type IDTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (utils.GoogleIdentity, error)
}

// Session is what a successful login returns.
type Session struct {
	Token  string `json:"token"`
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Profile identifies the authenticated user.
type Profile struct {
	UserID string `json:"userId"`
	Email  string `json:"email"`
}

// Service implements the account flows.
type Service struct {
	users    store.Users
	resets   store.PasswordResets
	notifier Notifier
	tokens   TokenIssuer
	google   IDTokenVerifier
	oauth    *oauth2.Config

	bcryptCost int
	now        func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithBcryptCost overrides bcrypt.DefaultCost.
func WithBcryptCost(cost int) Option {
	return func(s *Service) {
		if cost >= bcrypt.MinCost && cost <= bcrypt.MaxCost {
			s.bcryptCost = cost
		}
	}
}

// WithOAuthConfig enables the Google authorization code flow.
func WithOAuthConfig(cfg *oauth2.Config) Option {
	return func(s *Service) { s.oauth = cfg }
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(users store.Users, resets store.PasswordResets, notifier Notifier, tokens TokenIssuer, google IDTokenVerifier, opts ...Option) *Service {
	s := &Service{
		users:      users,
		resets:     resets,
		notifier:   notifier,
		tokens:     tokens,
		google:     google,
		bcryptCost: bcrypt.DefaultCost,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type credentials struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

var credentialMessages = map[string]string{
	"email":    "Please enter a valid email address.",
	"password": "Password must be at least 6 characters long.",
}

// passwordReset shares the password rule of credentials.
type passwordReset struct {
	Token       string `json:"token" validate:"required"`
	NewPassword string `json:"newPassword" validate:"required,min=6"`
}

var resetMessages = map[string]string{
	"token":       "Reset token is required.",
	"newPassword": "New password must be at least 6 characters long.",
}

type emailOnly struct {
	Email string `json:"email" validate:"required,email"`
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an inactive account and emails its activation link.
func (s *Service) Register(ctx context.Context, email, password string) (string, error) {
	email = NormalizeEmail(email)
	if fields := utils.ValidateStruct(credentials{Email: email, Password: password}, credentialMessages); len(fields) > 0 {
		return "", apperr.Validation(fields...)
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	existing, err := s.users.FindByEmail(dbCtx, email)
	switch {
	case err == nil && existing.IsActive:
		return "", apperr.Conflict(MsgActiveExists)
	case err == nil:
		return "", apperr.Conflict(MsgInactiveExists)
	case !errors.Is(err, store.ErrNotFound):
		return "", fmt.Errorf("find user: %w", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	token, tokenHash, err := utils.RandomToken()
	if err != nil {
		return "", fmt.Errorf("generate activation token: %w", err)
	}

	now := s.now().UTC()
	expires := now.Add(ActivationTTL)
	user := &models.User{
		Email:                  email,
		Password:               string(hash),
		IsActive:               false,
		AuthProvider:           models.ProviderLocal,
		ActivationToken:        tokenHash,
		ActivationTokenExpires: &expires,
		CreatedAt:              now,
	}
	if err := s.users.Create(dbCtx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return "", apperr.Conflict(MsgActiveExists)
		}
		return "", fmt.Errorf("create user: %w", err)
	}

	if err := s.notifier.SendActivation(ctx, email, token); err != nil {
		// Without the email the account could never be activated; free the address.
		if delErr := s.users.DeleteInactive(dbCtx, user.ID); delErr != nil {
			log.Error().Err(delErr).Str("user_id", user.ID.Hex()).Msg("Failed to remove user after activation email failure")
		}
		return "", apperr.Upstream(MsgMailFailed, err)
	}
	return MsgRegistered, nil
}

// ActivateAccount consumes an activation token.
func (s *Service) ActivateAccount(ctx context.Context, token string) (string, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return "", apperr.Validation(apperr.Field("token", "Activation token is required."))
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	if _, err := s.users.ActivateByToken(dbCtx, utils.HashToken(token), s.now().UTC()); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.InvalidToken(MsgActivationInvalid)
		}
		return "", fmt.Errorf("activate user: %w", err)
	}
	return MsgActivated, nil
}

// ResendActivation rotates the activation token of an inactive account and
// emails the new link. The reply does not reveal whether the account exists.
func (s *Service) ResendActivation(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	if fields := utils.ValidateStruct(emailOnly{Email: email}, credentialMessages); len(fields) > 0 {
		return "", apperr.Validation(fields...)
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	user, err := s.users.FindByEmail(dbCtx, email)
	if errors.Is(err, store.ErrNotFound) {
		return MsgActivationResent, nil
	}
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	if user.IsActive {
		return MsgActivationResent, nil
	}

	token, tokenHash, err := utils.RandomToken()
	if err != nil {
		return "", fmt.Errorf("generate activation token: %w", err)
	}
	if err := s.users.SetActivationToken(dbCtx, user.ID, tokenHash, s.now().UTC().Add(ActivationTTL)); err != nil {
		return "", fmt.Errorf("store activation token: %w", err)
	}
	// The rotated token was never delivered, so it is unusable if this fails.
	if err := s.notifier.SendActivation(ctx, email, token); err != nil {
		return "", apperr.Upstream(MsgMailFailed, err)
	}
	return MsgActivationResent, nil
}

// Login checks a password and issues a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*Session, error) {
	email = NormalizeEmail(email)
	fields := utils.ValidateStruct(emailOnly{Email: email}, credentialMessages)
	if password == "" {
		fields = append(fields, apperr.Field("password", "Password is required."))
	}
	if len(fields) > 0 {
		return nil, apperr.Validation(fields...)
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	user, err := s.users.FindByEmail(dbCtx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.Auth(MsgInvalidLogin)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return nil, apperr.Forbidden(MsgNotActivated)
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return nil, apperr.Auth(MsgInvalidLogin)
	}
	return s.session(user)
}

// GoogleLogin signs in with a Google ID token, creating or activating the
// account as needed.
func (s *Service) GoogleLogin(ctx context.Context, idToken string) (*Session, error) {
	idToken = strings.TrimSpace(idToken)
	if idToken == "" {
		return nil, apperr.Validation(apperr.Field("idToken", "Google ID token is required."))
	}

	identity, err := s.google.Verify(ctx, idToken)
	if err != nil {
		log.Warn().Err(err).Msg("Google ID token rejected")
		return nil, apperr.Auth(MsgGoogleFailed)
	}
	if !identity.EmailVerified || identity.Email == "" {
		return nil, apperr.Auth(MsgGoogleUnverified)
	}
	email := NormalizeEmail(identity.Email)

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	user, err := s.users.FindByEmail(dbCtx, email)
	switch {
	case err == nil:
		if !user.IsActive {
			if err := s.users.Activate(dbCtx, user.ID); err != nil {
				return nil, fmt.Errorf("activate user: %w", err)
			}
			user.IsActive = true
		}
	case errors.Is(err, store.ErrNotFound):
		user, err = s.createGoogleUser(dbCtx, email)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("find user: %w", err)
	}
	return s.session(user)
}

func (s *Service) createGoogleUser(ctx context.Context, email string) (*models.User, error) {
	// Google accounts get a random password nobody knows.
	unusable, _, err := utils.RandomToken()
	if err != nil {
		return nil, fmt.Errorf("generate password: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(unusable), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	user := &models.User{
		Email:        email,
		Password:     string(hash),
		IsActive:     true,
		AuthProvider: models.ProviderGoogle,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.users.Create(ctx, user); err != nil {
		if !errors.Is(err, store.ErrDuplicate) {
			return nil, fmt.Errorf("create user: %w", err)
		}
		// Lost a race with a concurrent sign-in for the same address.
		existing, findErr := s.users.FindByEmail(ctx, email)
		if findErr != nil {
			return nil, fmt.Errorf("find user: %w", findErr)
		}
		return existing, nil
	}
	return user, nil
}

// RequestPasswordReset emails a single-use reset link to an active account.
// The reply is the same whether or not the account exists.
func (s *Service) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	email = NormalizeEmail(email)
	if fields := utils.ValidateStruct(emailOnly{Email: email}, credentialMessages); len(fields) > 0 {
		return "", apperr.Validation(fields...)
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	user, err := s.users.FindByEmail(dbCtx, email)
	if errors.Is(err, store.ErrNotFound) {
		return MsgResetRequested, nil
	}
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return MsgResetRequested, nil
	}

	token, tokenHash, err := utils.RandomToken()
	if err != nil {
		return "", fmt.Errorf("generate reset token: %w", err)
	}
	now := s.now().UTC()
	reset := models.PasswordReset{
		TokenHash: tokenHash,
		UserID:    user.ID,
		ExpiresAt: now.Add(ResetTTL),
		CreatedAt: now,
	}
	if err := s.resets.Create(dbCtx, reset); err != nil {
		return "", fmt.Errorf("store reset token: %w", err)
	}

	if err := s.notifier.SendPasswordReset(ctx, email, token); err != nil {
		if delErr := s.resets.Delete(dbCtx, tokenHash); delErr != nil {
			log.Error().Err(delErr).Msg("Failed to remove undelivered reset token")
		}
		return "", apperr.Upstream(MsgMailFailed, err)
	}
	return MsgResetRequested, nil
}

// ResetPassword consumes a reset token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) (string, error) {
	token = strings.TrimSpace(token)
	if fields := utils.ValidateStruct(passwordReset{Token: token, NewPassword: newPassword}, resetMessages); len(fields) > 0 {
		return "", apperr.Validation(fields...)
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	// Take deletes the token, so it is single use whatever happens next.
	reset, err := s.resets.Take(dbCtx, utils.HashToken(token))
	if errors.Is(err, store.ErrNotFound) {
		return "", apperr.InvalidToken(MsgResetInvalid)
	}
	if err != nil {
		return "", fmt.Errorf("take reset token: %w", err)
	}
	if reset.Expired(s.now()) {
		return "", apperr.InvalidToken(MsgResetInvalid)
	}

	user, err := s.users.FindByID(dbCtx, reset.UserID)
	if errors.Is(err, store.ErrNotFound) {
		return "", apperr.NotFound(MsgResetUserMissing)
	}
	if err != nil {
		return "", fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return "", apperr.Forbidden(MsgResetInactive)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), s.bcryptCost)
	if err != nil {
		return "", fmt.Errorf("hash password: %w", err)
	}
	if err := s.users.UpdatePassword(dbCtx, user.ID, string(hash)); err != nil {
		return "", fmt.Errorf("update password: %w", err)
	}

	if err := s.notifier.SendPasswordChanged(ctx, user.Email); err != nil {
		log.Warn().Err(err).Str("user_id", user.ID.Hex()).Msg("Password changed email not sent")
	}
	return MsgPasswordReset, nil
}

// CurrentUser returns the profile of an active account.
func (s *Service) CurrentUser(ctx context.Context, userID string) (*Profile, error) {
	id, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, apperr.NotFound(MsgUserNotFound)
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	user, err := s.users.FindByID(dbCtx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(MsgUserNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return nil, apperr.NotFound(MsgUserNotFound)
	}
	return &Profile{UserID: user.ID.Hex(), Email: user.Email}, nil
}

func (s *Service) session(user *models.User) (*Session, error) {
	token, err := s.tokens.GenerateToken(user.ID.Hex(), user.Email)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}
	return &Session{Token: token, UserID: user.ID.Hex(), Email: user.Email}, nil
}
