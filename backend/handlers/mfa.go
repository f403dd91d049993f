package handlers

import (
	"net/http"

	"github.com/PhilHem/timeremaining/backend/respond"
)

type codeRequest struct {
	Code string `json:"code"`
}

// TwoFactorSetup starts enrolment and returns the secret with its otpauth URI and QR code.
func (h *Handler) TwoFactorSetup(w http.ResponseWriter, r *http.Request) {
	email, ok := currentEmail(w, r)
	if !ok {
		return
	}

	setup, err := h.svc.SetupTwoFactor(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, setup)
}

// TwoFactorVerify confirms the pending secret and enables two-factor login.
func (h *Handler) TwoFactorVerify(w http.ResponseWriter, r *http.Request) {
	email, ok := currentEmail(w, r)
	if !ok {
		return
	}
	var req codeRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.EnableTwoFactor(r.Context(), email, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) TwoFactorDisable(w http.ResponseWriter, r *http.Request) {
	email, ok := currentEmail(w, r)
	if !ok {
		return
	}
	var req codeRequest
	if !h.decode(w, r, &req) {
		return
	}

	if err := h.svc.DisableTwoFactor(r.Context(), email, req.Code); err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, successResponse{Success: true})
}
