package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/PhilHem/timeremaining/backend/models"
	"github.com/PhilHem/timeremaining/backend/store"
)

const (
	StatusValid   = "valid"
	StatusInvalid = "invalid"

	msgAuthFailed  = "Authentication failed"
	msgNoTime      = "No time remaining"
	msgAuthSuccess = "Authentication successful"
)

// ValidateRequest is the body an external application signs. Either Email and Password,
// or APIKey, identify the account.
type ValidateRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	APIKey   string `json:"apiKey"`
}

type ValidateResult struct {
	Status        string `json:"status"`
	TimeRemaining *int64 `json:"timeRemaining,omitempty"` // seconds
	Message       string `json:"message"`
}

// ValidateExternal answers an already signature-checked validation call. Every
// authentication failure yields the same invalid result so callers cannot probe which
// emails exist. A non-nil error means the check could not be completed.
func (s *Service) ValidateExternal(ctx context.Context, req ValidateRequest) (*ValidateResult, error) {
	if req.APIKey == "" && (req.Email == "" || req.Password == "") {
		return nil, invalid("credentials", "Missing credentials")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	var (
		user *models.User
		err  error
	)
	if req.APIKey != "" {
		user, err = s.store.LookupByAPIKey(ctx, req.APIKey)
		if errors.Is(err, store.ErrNotFound) {
			err = store.ErrInvalidCredentials
		}
	} else {
		user, err = s.store.Authenticate(ctx, req.Email, req.Password)
	}
	if errors.Is(err, store.ErrInvalidCredentials) {
		return &ValidateResult{Status: StatusInvalid, Message: msgAuthFailed}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("validate credentials: %w", err)
	}

	balance := user.TimeRemaining
	if balance <= 0 {
		zero := int64(0)
		return &ValidateResult{Status: StatusInvalid, TimeRemaining: &zero, Message: msgNoTime}, nil
	}

	s.log.Info("external validation succeeded", "source", "validate", "email", user.Email)
	return &ValidateResult{Status: StatusValid, TimeRemaining: &balance, Message: msgAuthSuccess}, nil
}
