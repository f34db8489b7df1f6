// Package api exposes the portal over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/raushankrgupta/maternity-matters/apperr"
	"github.com/raushankrgupta/maternity-matters/auth"
	"github.com/raushankrgupta/maternity-matters/chat"
	"github.com/raushankrgupta/maternity-matters/complaints"
	"github.com/raushankrgupta/maternity-matters/utils"
)

// Handler holds the services behind the HTTP endpoints.
type Handler struct {
	auth       *auth.Service
	complaints *complaints.Service
	chat       *chat.Assistant
	tokens     *utils.TokenIssuer

	// secureCookies marks the OAuth state cookie Secure.
	secureCookies bool
}

func NewHandler(authSvc *auth.Service, complaintSvc *complaints.Service, assistant *chat.Assistant, tokens *utils.TokenIssuer) *Handler {
	return &Handler{
		auth:       authSvc,
		complaints: complaintSvc,
		chat:       assistant,
		tokens:     tokens,
	}
}

// startRequestLog begins the per-request log for an endpoint. The returned
// flush writes it once the handler is done, at error level for 5xx.
func startRequestLog(w http.ResponseWriter, r *http.Request, name string) (*utils.StatusRecorder, *strings.Builder, func()) {
	rec := &utils.StatusRecorder{ResponseWriter: w, Status: http.StatusOK}
	logMessageBuilder := &strings.Builder{}
	utils.AddToLogMessage(logMessageBuilder, name)
	return rec, logMessageBuilder, func() {
		utils.FlushLogMessage(*zerolog.Ctx(r.Context()), logMessageBuilder, rec.Status)
	}
}

// respondServiceError maps a service error to its HTTP response.
func respondServiceError(w http.ResponseWriter, logMessageBuilder *strings.Builder, err error) {
	e, ok := apperr.As(err)
	if !ok {
		utils.AddToLogMessage(logMessageBuilder, fmt.Sprintf("Unhandled error: %v", err))
		utils.RespondJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	utils.AddToLogMessage(logMessageBuilder, e.Error())
	switch e.Kind {
	case apperr.KindValidation:
		utils.RespondJSON(w, e.Status(), map[string][]apperr.FieldError{"errors": e.Fields})
	case apperr.KindConflict:
		utils.RespondJSON(w, e.Status(), map[string][]apperr.FieldError{"errors": {{Msg: e.Message}}})
	default:
		utils.RespondJSON(w, e.Status(), map[string]string{"error": e.Message})
	}
}

const msgInvalidBody = "Invalid request body."

// decodeBody reads a JSON body into dest. With strict set, unknown fields are
// rejected and reported against the offending field.
func decodeBody(r *http.Request, dest any, strict bool) error {
	err := utils.DecodeJSON(r, dest, strict)
	if err == nil {
		return nil
	}
	if name, ok := strings.CutPrefix(err.Error(), "json: unknown field "); ok {
		name = strings.Trim(name, `"`)
		return apperr.Validation(apperr.Field(name, fmt.Sprintf("Field %q cannot be changed.", name)))
	}
	var maxErr *http.MaxBytesError
	if errors.As(err, &maxErr) {
		return apperr.Validation(apperr.Field("", "Request body is too large."))
	}
	return apperr.Validation(apperr.Field("", msgInvalidBody))
}
