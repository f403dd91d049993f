package store

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PhilHem/timeremaining/backend/models"
	"github.com/PhilHem/timeremaining/backend/password"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const apiKeyPrefix = "sk_"

// GormStore implements Store on top of gorm.
type GormStore struct {
	db     *gorm.DB
	params password.Params
	// decoy is verified for unknown emails so both failure paths cost one hash.
	decoy string
}

var _ Store = (*GormStore)(nil)

func NewGormStore(db *gorm.DB, params password.Params) (*GormStore, error) {
	decoy, err := password.Hash("decoy-password", params)
	if err != nil {
		return nil, err
	}
	return &GormStore{db: db, params: params, decoy: decoy}, nil
}

// NormalizeEmail is the canonical form used as the identity key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *GormStore) CreateUser(ctx context.Context, email, plain string) (*models.User, error) {
	email = NormalizeEmail(email)

	var count int64
	if err := s.db.WithContext(ctx).Model(&models.User{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return nil, fmt.Errorf("check existing user: %w", err)
	}
	if count > 0 {
		return nil, ErrAlreadyExists
	}

	hash, err := password.Hash(plain, s.params)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	apiKey, err := newAPIKey()
	if err != nil {
		return nil, err
	}

	user := models.User{Email: email, PasswordHash: hash, APIKey: apiKey}
	if err := s.db.WithContext(ctx).Create(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrAlreadyExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &user, nil
}

func (s *GormStore) Authenticate(ctx context.Context, email, plain string) (*models.User, error) {
	user, err := s.Lookup(ctx, email)
	if errors.Is(err, ErrNotFound) {
		_, _ = password.Verify(plain, s.decoy)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	ok, err := password.Verify(plain, user.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password for user %d: %w", user.ID, err)
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

func (s *GormStore) Lookup(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&user).Error
	if err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) LookupByAPIKey(ctx context.Context, apiKey string) (*models.User, error) {
	if !strings.HasPrefix(apiKey, apiKeyPrefix) {
		return nil, ErrNotFound
	}
	var user models.User
	if err := s.db.WithContext(ctx).Where("api_key = ?", apiKey).First(&user).Error; err != nil {
		return nil, notFound(err)
	}
	return &user, nil
}

func (s *GormStore) SetTwoFactor(ctx context.Context, email, secret string, enabled bool) error {
	if enabled && secret == "" {
		return ErrInvalidTwoFactorState
	}
	if !enabled {
		secret = ""
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ?", NormalizeEmail(email)).
		Updates(map[string]any{
			"totp_secret":       secret,
			"totp_enabled":      enabled,
			"last_totp_counter": 0,
		})
	if res.Error != nil {
		return fmt.Errorf("update two-factor: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) AdvanceTOTPCounter(ctx context.Context, email string, counter uint64) error {
	email = NormalizeEmail(email)
	res := s.db.WithContext(ctx).Model(&models.User{}).
		Where("email = ? AND last_totp_counter < ?", email, int64(counter)).
		Update("last_totp_counter", int64(counter))
	if res.Error != nil {
		return fmt.Errorf("advance totp counter: %w", res.Error)
	}
	if res.RowsAffected > 0 {
		return nil
	}
	if _, err := s.Lookup(ctx, email); err != nil {
		return err
	}
	return ErrReplayedCode
}

func (s *GormStore) AdjustTimeRemaining(ctx context.Context, email string, deltaSeconds int64) (int64, error) {
	email = NormalizeEmail(email)

	var balance int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Single-statement increment; concurrent adjustments never lose updates.
		res := tx.Model(&models.User{}).
			Where("email = ?", email).
			Update("time_remaining", gorm.Expr("MAX(time_remaining + ?, 0)", deltaSeconds))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		var user models.User
		if err := tx.Select("time_remaining").Where("email = ?", email).First(&user).Error; err != nil {
			return err
		}
		balance = user.TimeRemaining
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return 0, ErrNotFound
		}
		return 0, fmt.Errorf("adjust time remaining: %w", err)
	}
	return balance, nil
}

func (s *GormStore) SavePendingTwoFactor(ctx context.Context, email, secret string, expiresAt time.Time) error {
	pending := models.PendingTwoFactor{
		Email:     NormalizeEmail(email),
		Secret:    secret,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoUpdates: clause.AssignmentColumns([]string{"secret", "expires_at", "created_at"}),
	}).Create(&pending).Error
	if err != nil {
		return fmt.Errorf("save pending two-factor: %w", err)
	}
	return nil
}

func (s *GormStore) PendingTwoFactor(ctx context.Context, email string) (*models.PendingTwoFactor, error) {
	var pending models.PendingTwoFactor
	if err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).First(&pending).Error; err != nil {
		return nil, notFound(err)
	}
	return &pending, nil
}

func (s *GormStore) DeletePendingTwoFactor(ctx context.Context, email string) error {
	err := s.db.WithContext(ctx).Where("email = ?", NormalizeEmail(email)).Delete(&models.PendingTwoFactor{}).Error
	if err != nil {
		return fmt.Errorf("delete pending two-factor: %w", err)
	}
	return nil
}

func (s *GormStore) PromotePendingTwoFactor(ctx context.Context, email, secret string) error {
	if secret == "" {
		return ErrInvalidTwoFactorState
	}
	email = NormalizeEmail(email)

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Only the exact secret that was verified may be promoted.
		res := tx.Where("email = ? AND secret = ?", email, secret).Delete(&models.PendingTwoFactor{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}

		res = tx.Model(&models.User{}).Where("email = ?", email).Updates(map[string]any{
			"totp_secret":       secret,
			"totp_enabled":      true,
			"last_totp_counter": 0,
		})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("promote pending two-factor: %w", err)
	}
	return nil
}

func newAPIKey() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate api key: %w", err)
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
