package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/PhilHem/timeremaining/backend/store"
	"github.com/PhilHem/timeremaining/backend/totp"
)

// TwoFactorSetup is what a user needs to enrol an authenticator app.
type TwoFactorSetup struct {
	Secret     string    `json:"secret"`
	OTPAuthURL string    `json:"otpauthUrl"`
	QRCodeURL  string    `json:"qrCodeUrl"` // data: URL, the secret never leaves the server
	ExpiresAt  time.Time `json:"expiresAt"`
}

func validateCode(code string) error {
	if code == "" {
		return invalid("code", "Code is required")
	}
	if len(code) != totp.Digits {
		return invalid("code", "Code must be 6 digits")
	}
	return nil
}

// SetupTwoFactor issues a candidate secret pending confirmation. A new setup replaces
// any earlier pending one.
func (s *Service) SetupTwoFactor(ctx context.Context, email string) (*TwoFactorSetup, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	user, err := s.store.Lookup(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	if user.TOTPEnabled {
		return nil, ErrTwoFactorAlreadyEnabled
	}

	key, err := totp.GenerateKey(user.Email)
	if err != nil {
		return nil, err
	}
	qr, err := totp.QRCodeDataURL(key)
	if err != nil {
		return nil, err
	}

	expiresAt := s.now().Add(s.pendingTTL)
	if err := s.store.SavePendingTwoFactor(ctx, user.Email, key.Secret(), expiresAt); err != nil {
		return nil, fmt.Errorf("save pending setup: %w", err)
	}

	s.log.Info("two-factor setup started", "source", "mfa", "email", user.Email)
	return &TwoFactorSetup{Secret: key.Secret(), OTPAuthURL: key.URL(), QRCodeURL: qr, ExpiresAt: expiresAt}, nil
}

// EnableTwoFactor confirms the pending secret with a current code and enables it.
func (s *Service) EnableTwoFactor(ctx context.Context, email, code string) error {
	if err := validateCode(code); err != nil {
		return err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	pending, err := s.store.PendingTwoFactor(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNoPendingSetup
	}
	if err != nil {
		return fmt.Errorf("load pending setup: %w", err)
	}

	if s.now().After(pending.ExpiresAt) {
		if err := s.store.DeletePendingTwoFactor(ctx, pending.Email); err != nil {
			s.log.Warn("failed to discard expired setup", "source", "mfa", "email", pending.Email, "error", err.Error())
		}
		return ErrExpired
	}

	counter, ok := s.verifier.Match(pending.Secret, code)
	if !ok {
		s.log.Warn("two-factor enable failed: invalid code", "source", "mfa", "email", pending.Email)
		return ErrInvalidCode
	}

	err = s.store.PromotePendingTwoFactor(ctx, pending.Email, pending.Secret)
	if errors.Is(err, store.ErrNotFound) {
		// Replaced or consumed by a concurrent request.
		return ErrNoPendingSetup
	}
	if err != nil {
		return fmt.Errorf("enable two-factor: %w", err)
	}

	if s.preventReuse {
		if err := s.store.AdvanceTOTPCounter(ctx, pending.Email, counter); err != nil && !errors.Is(err, store.ErrReplayedCode) {
			return fmt.Errorf("advance totp counter: %w", err)
		}
	}

	s.log.Info("two-factor enabled", "source", "mfa", "email", pending.Email)
	return nil
}

// DisableTwoFactor clears the secret after checking a current code.
func (s *Service) DisableTwoFactor(ctx context.Context, email, code string) error {
	if err := validateCode(code); err != nil {
		return err
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	user, err := s.store.Lookup(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lookup user: %w", err)
	}
	if !user.TOTPEnabled || user.TOTPSecret == "" {
		return ErrTwoFactorNotEnabled
	}

	if err := s.checkCode(ctx, user.Email, user.TOTPSecret, code); err != nil {
		s.log.Warn("two-factor disable failed: invalid code", "source", "mfa", "email", user.Email)
		return err
	}

	if err := s.store.SetTwoFactor(ctx, user.Email, "", false); err != nil {
		return fmt.Errorf("disable two-factor: %w", err)
	}

	s.log.Info("two-factor disabled", "source", "mfa", "email", user.Email)
	return nil
}
