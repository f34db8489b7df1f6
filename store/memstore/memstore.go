// Package memstore provides in-memory implementations of the store
// interfaces. They keep the same atomicity guarantees as the Mongo
// repositories and back the service and handler tests.
package memstore

import (
	"context"
	"slices"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/raushankrgupta/maternity-matters/models"
	"github.com/raushankrgupta/maternity-matters/store"
)

// Users is an in-memory store.Users.
type Users struct {
	mu    sync.Mutex
	users map[primitive.ObjectID]models.User
}

func NewUsers() *Users {
	return &Users{users: make(map[primitive.ObjectID]models.User)}
}

func (s *Users) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return store.ErrDuplicate
		}
		if user.ActivationToken != "" && u.ActivationToken == user.ActivationToken {
			return store.ErrDuplicate
		}
	}
	if user.ID.IsZero() {
		user.ID = primitive.NewObjectID()
	}
	s.users[user.ID] = cloneUser(*user)
	return nil
}

func (s *Users) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			c := cloneUser(u)
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Users) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := cloneUser(u)
	return &c, nil
}

func (s *Users) ActivateByToken(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id, u := range s.users {
		if u.ActivationToken == "" || u.ActivationToken != tokenHash {
			continue
		}
		if u.ActivationTokenExpires == nil || !u.ActivationTokenExpires.After(now) {
			return nil, store.ErrNotFound
		}
		u.IsActive = true
		u.ActivationToken = ""
		u.ActivationTokenExpires = nil
		s.users[id] = u
		c := cloneUser(u)
		return &c, nil
	}
	return nil, store.ErrNotFound
}

func (s *Users) Activate(_ context.Context, id primitive.ObjectID) error {
	return s.update(id, func(u *models.User) {
		u.IsActive = true
		u.ActivationToken = ""
		u.ActivationTokenExpires = nil
	})
}

func (s *Users) SetActivationToken(_ context.Context, id primitive.ObjectID, tokenHash string, expires time.Time) error {
	return s.update(id, func(u *models.User) {
		u.ActivationToken = tokenHash
		u.ActivationTokenExpires = &expires
	})
}

func (s *Users) UpdatePassword(_ context.Context, id primitive.ObjectID, passwordHash string) error {
	return s.update(id, func(u *models.User) { u.Password = passwordHash })
}

func (s *Users) DeleteInactive(_ context.Context, id primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok || u.IsActive {
		return store.ErrNotFound
	}
	delete(s.users, id)
	return nil
}

// Len returns the number of stored users.
func (s *Users) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func (s *Users) update(id primitive.ObjectID, fn func(*models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(&u)
	s.users[id] = u
	return nil
}

func cloneUser(u models.User) models.User {
	if u.ActivationTokenExpires != nil {
		t := *u.ActivationTokenExpires
		u.ActivationTokenExpires = &t
	}
	return u
}

// Complaints is an in-memory store.Complaints.
type Complaints struct {
	mu         sync.Mutex
	complaints map[primitive.ObjectID]models.Complaint
}

func NewComplaints() *Complaints {
	return &Complaints{complaints: make(map[primitive.ObjectID]models.Complaint)}
}

func (s *Complaints) Create(_ context.Context, complaint *models.Complaint) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if complaint.ID.IsZero() {
		complaint.ID = primitive.NewObjectID()
	}
	s.complaints[complaint.ID] = cloneComplaint(*complaint)
	return nil
}

func (s *Complaints) ListByOwner(_ context.Context, userID primitive.ObjectID) ([]models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []models.Complaint{}
	for _, c := range s.complaints {
		if c.UserID == userID {
			out = append(out, cloneComplaint(c))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].SubmittedAt.After(out[j].SubmittedAt)
	})
	return out, nil
}

func (s *Complaints) GetOwned(_ context.Context, id, userID primitive.ObjectID) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok || c.UserID != userID {
		return nil, store.ErrNotFound
	}
	out := cloneComplaint(c)
	return &out, nil
}

func (s *Complaints) Get(_ context.Context, id primitive.ObjectID) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	out := cloneComplaint(c)
	return &out, nil
}

func (s *Complaints) SaveDetails(_ context.Context, complaint *models.Complaint) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[complaint.ID]
	if !ok || c.UserID != complaint.UserID {
		return nil, store.ErrNotFound
	}
	next := cloneComplaint(*complaint)
	next.Status = c.Status
	next.StatusHistory = c.StatusHistory
	next.SubmittedAt = c.SubmittedAt
	s.complaints[c.ID] = next
	out := cloneComplaint(next)
	return &out, nil
}

func (s *Complaints) DeleteOwned(_ context.Context, id, userID primitive.ObjectID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok || c.UserID != userID {
		return store.ErrNotFound
	}
	delete(s.complaints, id)
	return nil
}

func (s *Complaints) SetStatus(_ context.Context, id primitive.ObjectID, change models.StatusChange) (*models.Complaint, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.complaints[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if c.Status != change.From {
		return nil, store.ErrStatusChanged
	}
	c.Status = change.To
	c.UpdatedAt = change.ChangedAt
	c.StatusHistory = append(slices.Clone(c.StatusHistory), change)
	s.complaints[id] = c
	out := cloneComplaint(c)
	return &out, nil
}

// Len returns the number of stored complaints.
func (s *Complaints) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.complaints)
}

func cloneComplaint(c models.Complaint) models.Complaint {
	c.IssuesFaced = slices.Clone(c.IssuesFaced)
	c.StatusHistory = slices.Clone(c.StatusHistory)
	if c.ExpectedDeliveryDate != nil {
		t := *c.ExpectedDeliveryDate
		c.ExpectedDeliveryDate = &t
	}
	if c.ActualDeliveryDate != nil {
		t := *c.ActualDeliveryDate
		c.ActualDeliveryDate = &t
	}
	return c
}

// PasswordResets is an in-memory store.PasswordResets.
type PasswordResets struct {
	mu     sync.Mutex
	resets map[string]models.PasswordReset
}

func NewPasswordResets() *PasswordResets {
	return &PasswordResets{resets: make(map[string]models.PasswordReset)}
}

func (s *PasswordResets) Create(_ context.Context, reset models.PasswordReset) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.resets[reset.TokenHash]; ok {
		return store.ErrDuplicate
	}
	s.resets[reset.TokenHash] = reset
	return nil
}

func (s *PasswordResets) Take(_ context.Context, tokenHash string) (*models.PasswordReset, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	reset, ok := s.resets[tokenHash]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(s.resets, tokenHash)
	return &reset, nil
}

func (s *PasswordResets) Delete(_ context.Context, tokenHash string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.resets, tokenHash)
	return nil
}

// Len returns the number of pending resets.
func (s *PasswordResets) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resets)
}

var (
	_ store.Users          = (*Users)(nil)
	_ store.Complaints     = (*Complaints)(nil)
	_ store.PasswordResets = (*PasswordResets)(nil)
)
