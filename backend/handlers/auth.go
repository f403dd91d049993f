package handlers

import (
	"net/http"

	"github.com/PhilHem/timeremaining/backend/respond"
)

type credentials struct {
	Email         string `json:"email"`
	Password      string `json:"password"`
	TwoFactorCode string `json:"twoFactorCode"`
}

func (h *Handler) Signup(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.svc.Signup(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.sessions.SetCookie(w, sess.Token)
	respond.JSON(w, http.StatusCreated, successResponse{Success: true})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req credentials
	if !h.decode(w, r, &req) {
		return
	}

	sess, err := h.svc.Login(r.Context(), req.Email, req.Password, req.TwoFactorCode)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	h.sessions.SetCookie(w, sess.Token)
	respond.JSON(w, http.StatusOK, successResponse{Success: true})
}

// Logout clears the cookie. Tokens are stateless, so there is nothing to revoke.
func (h *Handler) Logout(w http.ResponseWriter, r *http.Request) {
	if email, err := h.sessions.FromRequest(r); err == nil {
		logger(r).Info("user logged out", "source", "auth", "email", email)
	}
	h.sessions.ClearCookie(w)
	respond.JSON(w, http.StatusOK, successResponse{Success: true})
}

func (h *Handler) User(w http.ResponseWriter, r *http.Request) {
	email, ok := currentEmail(w, r)
	if !ok {
		return
	}

	profile, err := h.svc.Profile(r.Context(), email)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, profile)
}

type addTimeRequest struct {
	Hours float64 `json:"hours"`
}

type addTimeResponse struct {
	Success       bool  `json:"success"`
	TimeRemaining int64 `json:"timeRemaining"` // seconds
}

func (h *Handler) AddTime(w http.ResponseWriter, r *http.Request) {
	email, ok := currentEmail(w, r)
	if !ok {
		return
	}
	var req addTimeRequest
	if !h.decode(w, r, &req) {
		return
	}

	balance, err := h.svc.AddTime(r.Context(), email, req.Hours)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	respond.JSON(w, http.StatusOK, addTimeResponse{Success: true, TimeRemaining: balance})
}
