package api

import (
	"net/http"

	"github.com/raushankrgupta/maternity-matters/chat"
	"github.com/raushankrgupta/maternity-matters/utils"
)

// Chat handles POST /api/ai/chat
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	rec, logMessageBuilder, flush := startRequestLog(w, r, "[AI Chat API]")
	defer flush()

	var req chat.Request
	if err := decodeBody(r, &req, false); err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}

	reply, err := h.chat.Reply(r.Context(), req)
	if err != nil {
		respondServiceError(rec, logMessageBuilder, err)
		return
	}
	utils.RespondJSON(rec, http.StatusOK, reply)
}
