package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/PhilHem/timeremaining/backend/auth"
	"github.com/PhilHem/timeremaining/backend/respond"
)

// Validate answers a signed external validation call. The body has already been
// read and verified by RequireAppSignature.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	var req auth.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.JSON(w, http.StatusBadRequest, auth.ValidateResult{Status: auth.StatusInvalid, Message: "Invalid request body"})
		return
	}

	result, err := h.svc.ValidateExternal(r.Context(), req)
	if err != nil {
		var verr *auth.ValidationError
		if errors.As(err, &verr) {
			respond.JSON(w, http.StatusBadRequest, auth.ValidateResult{Status: auth.StatusInvalid, Message: verr.Message})
			return
		}
		logger(r).Error("external validation failed", "source", "validate", "error", err.Error())
		respond.JSON(w, http.StatusInternalServerError, auth.ValidateResult{Status: auth.StatusInvalid, Message: "Internal server error"})
		return
	}
	respond.JSON(w, http.StatusOK, result)
}
