// Package store owns user records and pending two-factor setups.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/PhilHem/timeremaining/backend/models"
)

var (
	ErrAlreadyExists         = errors.New("user already exists")
	ErrInvalidCredentials    = errors.New("invalid credentials")
	ErrNotFound              = errors.New("record not found")
	ErrInvalidTwoFactorState = errors.New("two-factor cannot be enabled without a secret")
	ErrReplayedCode          = errors.New("two-factor code already used")
)

// Store is the persistence contract the auth service depends on.
//
// Emails are matched case-insensitively after trimming. Updates to a single user are
// atomic at the storage layer; callers never read-modify-write.
type Store interface {
	CreateUser(ctx context.Context, email, password string) (*models.User, error)
	// Authenticate returns ErrInvalidCredentials for both unknown emails and wrong passwords.
	Authenticate(ctx context.Context, email, password string) (*models.User, error)
	Lookup(ctx context.Context, email string) (*models.User, error)
	LookupByAPIKey(ctx context.Context, apiKey string) (*models.User, error)

	// SetTwoFactor writes secret and flag together. Disabling clears the secret.
	SetTwoFactor(ctx context.Context, email, secret string, enabled bool) error
	// AdvanceTOTPCounter raises the user's accepted time-step mark, or returns
	// ErrReplayedCode when counter is not above it.
	AdvanceTOTPCounter(ctx context.Context, email string, counter uint64) error

	// AdjustTimeRemaining adds deltaSeconds and returns the new balance, floored at zero.
	AdjustTimeRemaining(ctx context.Context, email string, deltaSeconds int64) (int64, error)

	// SavePendingTwoFactor replaces any pending setup for email.
	SavePendingTwoFactor(ctx context.Context, email, secret string, expiresAt time.Time) error
	PendingTwoFactor(ctx context.Context, email string) (*models.PendingTwoFactor, error)
	DeletePendingTwoFactor(ctx context.Context, email string) error
	// PromotePendingTwoFactor enables secret on the user and consumes the pending setup.
	PromotePendingTwoFactor(ctx context.Context, email, secret string) error
}
