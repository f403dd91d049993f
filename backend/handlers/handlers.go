// Package handlers exposes the account service as a JSON API.
package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"mime"
	"net/http"

	"github.com/PhilHem/timeremaining/backend/auth"
	"github.com/PhilHem/timeremaining/backend/middleware"
	"github.com/PhilHem/timeremaining/backend/respond"
	"github.com/PhilHem/timeremaining/backend/session"
)

// DefaultMaxBodyBytes caps JSON request bodies.
const DefaultMaxBodyBytes = 1 << 20

type Handler struct {
	svc      *auth.Service
	sessions *session.Issuer

	appID     string
	appSecret []byte
	maxBody   int64
}

type Options struct {
	AppID        string
	AppSecret    []byte
	MaxBodyBytes int64
}

func New(svc *auth.Service, sessions *session.Issuer, opts Options) *Handler {
	h := &Handler{
		svc:       svc,
		sessions:  sessions,
		appID:     opts.AppID,
		appSecret: opts.AppSecret,
		maxBody:   opts.MaxBodyBytes,
	}
	if h.maxBody <= 0 {
		h.maxBody = DefaultMaxBodyBytes
	}
	return h
}

// Register adds every API route to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	requireSession := middleware.RequireSession(h.sessions)
	requireSignature := middleware.RequireAppSignature(h.appID, h.appSecret, h.maxBody)

	// Health check (unauthenticated, for load balancers)
	mux.HandleFunc("GET /health", Health)

	mux.HandleFunc("POST /api/auth/signup", h.Signup)
	mux.HandleFunc("POST /api/auth/login", h.Login)
	mux.HandleFunc("POST /api/auth/logout", h.Logout)

	mux.HandleFunc("GET /api/auth/user", requireSession(h.User))
	mux.HandleFunc("POST /api/auth/add-time", requireSession(h.AddTime))
	mux.HandleFunc("POST /api/auth/2fa/setup", requireSession(h.TwoFactorSetup))
	mux.HandleFunc("POST /api/auth/2fa/verify", requireSession(h.TwoFactorVerify))
	mux.HandleFunc("POST /api/auth/2fa/disable", requireSession(h.TwoFactorDisable))

	// Server-to-server, no cookies
	mux.HandleFunc("POST /api/validate", requireSignature(h.Validate))
}

func Health(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

type successResponse struct {
	Success bool `json:"success"`
}

// decode only accepts application/json, which a cross-site form or no-cors fetch cannot send.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil || mediaType != "application/json" {
		respond.Error(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return false
	}
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody)).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respond.Error(w, http.StatusRequestEntityTooLarge, "Request body too large")
			return false
		}
		respond.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// logger returns the default logger tagged with the request id.
func logger(r *http.Request) *slog.Logger {
	return slog.With("request_id", middleware.RequestID(r.Context()))
}

// currentEmail is only valid behind RequireSession.
func currentEmail(w http.ResponseWriter, r *http.Request) (string, bool) {
	email, ok := middleware.EmailFromContext(r.Context())
	if !ok {
		respond.Error(w, http.StatusUnauthorized, "Unauthorized")
	}
	return email, ok
}

// writeServiceError maps service errors to status codes. Anything unrecognised is
// logged and reported as a generic 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *auth.ValidationError
	switch {
	case errors.As(err, &verr):
		respond.Error(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, auth.ErrUnauthorized):
		respond.Error(w, http.StatusUnauthorized, "Unauthorized")
	case errors.Is(err, auth.ErrInvalidCredentials):
		respond.Error(w, http.StatusUnauthorized, "Invalid email or password")
	case errors.Is(err, auth.ErrInvalidCode):
		respond.Error(w, http.StatusUnauthorized, "Invalid authenticator code")
	case errors.Is(err, auth.ErrTwoFactorRequired):
		respond.JSON(w, http.StatusForbidden, map[string]any{
			"error":             "Two-factor code required",
			"requiresTwoFactor": true,
		})
	case errors.Is(err, auth.ErrAlreadyExists):
		respond.Error(w, http.StatusConflict, "User already exists")
	case errors.Is(err, auth.ErrTwoFactorAlreadyEnabled):
		respond.Error(w, http.StatusConflict, "Two-factor authentication already enabled")
	case errors.Is(err, auth.ErrNotFound):
		respond.Error(w, http.StatusNotFound, "User not found")
	case errors.Is(err, auth.ErrExpired):
		respond.Error(w, http.StatusBadRequest, "Setup session expired")
	case errors.Is(err, auth.ErrNoPendingSetup):
		respond.Error(w, http.StatusBadRequest, "Setup session not found")
	case errors.Is(err, auth.ErrTwoFactorNotEnabled):
		respond.Error(w, http.StatusBadRequest, "Two-factor authentication not enabled")
	default:
		logger(r).Error("request failed", "source", "http", "path", r.URL.Path, "error", err.Error())
		respond.Error(w, http.StatusInternalServerError, "Internal server error")
	}
}
