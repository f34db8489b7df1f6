package api

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/raushankrgupta/maternity-matters/complaints"
	"github.com/raushankrgupta/maternity-matters/utils"
)

// CreateComplaint handles POST /api/complaints
func (h *Handler) CreateComplaint(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[Create Complaint API]")
	defer flush()

	var req complaints.CreateRequest
	if err := decodeBody(r, &req, false); err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	claims := ClaimsFromContext(r.Context())
	res, err := h.complaints.Create(r.Context(), claims.UserID, req)
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(logMessageBuilder, fmt.Sprintf("Complaint %s filed by user %s", res.ComplaintID, claims.UserID))
	utils.RespondJSON(rec, http.StatusCreated, res)
}

// ListComplaints handles GET /api/complaints
func (h *Handler) ListComplaints(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[List Complaints API]")
	defer flush()

	claims := ClaimsFromContext(r.Context())
	list, err := h.complaints.List(r.Context(), claims.UserID)
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(logMessageBuilder, fmt.Sprintf("Found %d complaints", len(list)))
	utils.RespondJSON(rec, http.StatusOK, list)
}

// GetComplaint handles GET /api/complaints/{id}
func (h *Handler) GetComplaint(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[Get Complaint API]")
	defer flush()

	claims := ClaimsFromContext(r.Context())
	complaint, err := h.complaints.Get(r.Context(), claims.UserID, chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}
	utils.RespondJSON(rec, http.StatusOK, complaint)
}

// UpdateComplaint handles PUT /api/complaints/{id}. Fields outside the
// editable set, status included, are rejected.
func (h *Handler) UpdateComplaint(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[Update Complaint API]")
	defer flush()

	var patch complaints.Patch
	if err := decodeBody(r, &patch, true); err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	claims := ClaimsFromContext(r.Context())
	res, err := h.complaints.Update(r.Context(), claims.UserID, chi.URLParam(r, "id"), patch)
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(logMessageBuilder, fmt.Sprintf("Complaint %s updated", res.Complaint.ID.Hex()))
	utils.RespondJSON(rec, http.StatusOK, res)
}

// DeleteComplaint handles DELETE /api/complaints/{id}
func (h *Handler) DeleteComplaint(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[Delete Complaint API]")
	defer flush()

	claims := ClaimsFromContext(r.Context())
	id := chi.URLParam(r, "id")
	msg, err := h.complaints.Delete(r.Context(), claims.UserID, id)
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	utils.AddToLogMessage(logMessageBuilder, fmt.Sprintf("Complaint %s deleted", id))
	utils.RespondJSON(rec, http.StatusOK, messageResponse{Message: msg})
}
