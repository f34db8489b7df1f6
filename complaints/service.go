// Package complaints validates and stores maternity-benefit grievances and
// drives their status lifecycle.
package complaints

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/raushankrgupta/maternity-matters/apperr"
	"github.com/raushankrgupta/maternity-matters/models"
	"github.com/raushankrgupta/maternity-matters/store"
	"github.com/raushankrgupta/maternity-matters/utils"
)

// Client-facing messages.
const (
	MsgCreated         = "Complaint submitted successfully!"
	MsgUpdated         = "Complaint updated successfully."
	MsgDeleted         = "Complaint deleted successfully."
	MsgInvalidID       = "Invalid complaint ID format."
	MsgNotFoundView    = "Complaint not found or you do not have permission to view it."
	MsgNotFoundEdit    = "Complaint not found or you do not have permission to edit it."
	MsgNotFoundDelete  = "Complaint not found or you do not have permission to delete it."
	MsgNotFound        = "Complaint not found."
	MsgUnknownStatus   = "Unknown complaint status."
	MsgStatusRaced     = "Complaint status changed while updating. Please retry."
	msgInvalidIdentity = "Invalid token. Authentication failed."
)

// Notifier sends complaint emails.
type Notifier interface {
	SendComplaintConfirmation(ctx context.Context, complaint *models.Complaint) error
	SendStatusUpdate(ctx context.Context, complaint *models.Complaint, change models.StatusChange) error
}

// CreateResult is returned by Create.
type CreateResult struct {
	Message     string            `json:"message"`
	ComplaintID string            `json:"complaintId"`
	Complaint   *models.Complaint `json:"complaint"`
}

// UpdateResult is returned by Update.
type UpdateResult struct {
	Message   string            `json:"message"`
	Complaint *models.Complaint `json:"complaint"`
}

// Service implements owner CRUD and the privileged status change.
type Service struct {
	complaints store.Complaints
	notifier   Notifier
	sanitize   sanitizer
	now        func() time.Time
}

func NewService(complaints store.Complaints, notifier Notifier) *Service {
	return &Service{
		complaints: complaints,
		notifier:   notifier,
		sanitize:   newSanitizer(),
		now:        time.Now,
	}
}

// Create validates req and files it for userID with status submitted. The
// confirmation email is sent after the complaint is stored; a failed send is
// logged and counted but does not fail the request.
func (s *Service) Create(ctx context.Context, userID string, req CreateRequest) (*CreateResult, error) {
	owner, err := ownerID(userID)
	if err != nil {
		return nil, err
	}

	s.sanitize.request(&req)
	now := s.now().UTC()
	complaint := &models.Complaint{
		UserID:      owner,
		Status:      models.StatusSubmitted,
		SubmittedAt: now,
		UpdatedAt:   now,
	}
	if err := build(req, complaint); err != nil {
		return nil, err
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()
	if err := s.complaints.Create(dbCtx, complaint); err != nil {
		return nil, fmt.Errorf("create complaint: %w", err)
	}
	utils.ComplaintsCreated.Inc()

	if err := s.notifier.SendComplaintConfirmation(ctx, complaint); err != nil {
		log.Warn().Err(err).Str("complaint_id", complaint.ID.Hex()).Msg("Complaint confirmation email not sent")
	}

	return &CreateResult{Message: MsgCreated, ComplaintID: complaint.ID.Hex(), Complaint: complaint}, nil
}

// List returns the caller's complaints, newest first.
func (s *Service) List(ctx context.Context, userID string) ([]models.Complaint, error) {
	owner, err := ownerID(userID)
	if err != nil {
		return nil, err
	}
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	list, err := s.complaints.ListByOwner(dbCtx, owner)
	if err != nil {
		return nil, fmt.Errorf("list complaints: %w", err)
	}
	if list == nil {
		list = []models.Complaint{}
	}
	return list, nil
}

// Get returns one of the caller's complaints.
func (s *Service) Get(ctx context.Context, userID, id string) (*models.Complaint, error) {
	owner, cid, err := ids(userID, id)
	if err != nil {
		return nil, err
	}
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	complaint, err := s.complaints.GetOwned(dbCtx, cid, owner)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(MsgNotFoundView)
	}
	if err != nil {
		return nil, fmt.Errorf("get complaint: %w", err)
	}
	return complaint, nil
}

// Update applies patch to one of the caller's complaints. Only patched fields
// change; status and history are never touched.
func (s *Service) Update(ctx context.Context, userID, id string, patch Patch) (*UpdateResult, error) {
	owner, cid, err := ids(userID, id)
	if err != nil {
		return nil, err
	}
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	current, err := s.complaints.GetOwned(dbCtx, cid, owner)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(MsgNotFoundEdit)
	}
	if err != nil {
		return nil, fmt.Errorf("get complaint: %w", err)
	}

	req := requestFromComplaint(current)
	s.sanitize.apply(&req, patch)
	next := *current
	if err := build(req, &next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.now().UTC()

	updated, err := s.complaints.SaveDetails(dbCtx, &next)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(MsgNotFoundEdit)
	}
	if err != nil {
		return nil, fmt.Errorf("save complaint: %w", err)
	}
	return &UpdateResult{Message: MsgUpdated, Complaint: updated}, nil
}

// Delete removes one of the caller's complaints.
func (s *Service) Delete(ctx context.Context, userID, id string) (string, error) {
	owner, cid, err := ids(userID, id)
	if err != nil {
		return "", err
	}
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	if err := s.complaints.DeleteOwned(dbCtx, cid, owner); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", apperr.NotFound(MsgNotFoundDelete)
		}
		return "", fmt.Errorf("delete complaint: %w", err)
	}
	return MsgDeleted, nil
}

// Lookup returns any complaint by id, regardless of owner. It backs the admin
// tooling and must not be reachable from the owner API.
func (s *Service) Lookup(ctx context.Context, id string) (*models.Complaint, error) {
	cid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return nil, apperr.Validation(apperr.Field("id", MsgInvalidID))
	}
	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()

	complaint, err := s.complaints.Get(dbCtx, cid)
	if errors.Is(err, store.ErrNotFound) {
		return nil, apperr.NotFound(MsgNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get complaint: %w", err)
	}
	return complaint, nil
}

// SetStatus moves a complaint along the lifecycle. It is a privileged
// operation with no owner check. The write is a compare-and-set on the
// status read here; the complainant is emailed afterwards, best effort.
func (s *Service) SetStatus(ctx context.Context, id string, to models.ComplaintStatus, note string) (*models.Complaint, error) {
	if !to.Valid() {
		return nil, apperr.Validation(apperr.Field("status", MsgUnknownStatus))
	}
	current, err := s.Lookup(ctx, id)
	if err != nil {
		return nil, err
	}
	if !CanTransition(current.Status, to) {
		return nil, apperr.Conflict(fmt.Sprintf("Cannot change status from %s to %s.", current.Status, to))
	}

	change := models.StatusChange{
		From:      current.Status,
		To:        to,
		Note:      strings.TrimSpace(note),
		ChangedAt: s.now().UTC(),
	}

	dbCtx, cancel := utils.WithDBTimeout(ctx)
	defer cancel()
	updated, err := s.complaints.SetStatus(dbCtx, current.ID, change)
	switch {
	case errors.Is(err, store.ErrStatusChanged):
		return nil, apperr.Conflict(MsgStatusRaced)
	case errors.Is(err, store.ErrNotFound):
		return nil, apperr.NotFound(MsgNotFound)
	case err != nil:
		return nil, fmt.Errorf("set complaint status: %w", err)
	}

	if err := s.notifier.SendStatusUpdate(ctx, updated, change); err != nil {
		log.Warn().Err(err).Str("complaint_id", updated.ID.Hex()).Msg("Status update email not sent")
	}
	return updated, nil
}

func ownerID(userID string) (primitive.ObjectID, error) {
	owner, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return primitive.NilObjectID, apperr.Auth(msgInvalidIdentity)
	}
	return owner, nil
}

func ids(userID, id string) (primitive.ObjectID, primitive.ObjectID, error) {
	owner, err := ownerID(userID)
	if err != nil {
		return owner, primitive.NilObjectID, err
	}
	cid, err := primitive.ObjectIDFromHex(strings.TrimSpace(id))
	if err != nil {
		return owner, primitive.NilObjectID, apperr.Validation(apperr.Field("id", MsgInvalidID))
	}
	return owner, cid, nil
}
