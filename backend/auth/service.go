// Package auth implements sign-up, login with optional TOTP, two-factor enrolment,
// time credit and the signed external validation protocol on top of a store.Store.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"time"

	"github.com/PhilHem/timeremaining/backend/session"
	"github.com/PhilHem/timeremaining/backend/store"
	"github.com/PhilHem/timeremaining/backend/totp"
)

const (
	maxPasswordLength = 1024
	// MaxHoursPerRequest caps a single add-time call.
	MaxHoursPerRequest = 10_000
	secondsPerHour     = 3600
)

var emailRegex = regexp.MustCompile(`^[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}$`)

// ValidateEmail checks email has a plausible user@domain.tld shape.
func ValidateEmail(email string) bool {
	return len(email) <= 254 && emailRegex.MatchString(email)
}

type Options struct {
	// Timeout bounds each operation's store work. Expiry fails closed.
	Timeout      time.Duration
	PendingTTL   time.Duration
	PreventReuse bool
	Now          func() time.Time
	Logger       *slog.Logger
}

type Service struct {
	store        store.Store
	sessions     *session.Issuer
	verifier     *totp.Verifier
	timeout      time.Duration
	pendingTTL   time.Duration
	preventReuse bool
	now          func() time.Time
	log          *slog.Logger
}

func NewService(st store.Store, sessions *session.Issuer, verifier *totp.Verifier, opts Options) *Service {
	s := &Service{
		store:        st,
		sessions:     sessions,
		verifier:     verifier,
		timeout:      opts.Timeout,
		pendingTTL:   opts.PendingTTL,
		preventReuse: opts.PreventReuse,
		now:          opts.Now,
		log:          opts.Logger,
	}
	if s.timeout <= 0 {
		s.timeout = 3 * time.Second
	}
	if s.pendingTTL <= 0 {
		s.pendingTTL = 10 * time.Minute
	}
	if s.now == nil {
		s.now = time.Now
	}
	if s.log == nil {
		s.log = slog.Default()
	}
	return s
}

func (s *Service) bounded(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.timeout)
}

// Session is an issued session token.
type Session struct {
	Token     string
	ExpiresAt time.Time
}

func (s *Service) issue(email string) (*Session, error) {
	token, exp, err := s.sessions.Issue(email)
	if err != nil {
		return nil, err
	}
	return &Session{Token: token, ExpiresAt: exp}, nil
}

// Signup creates the account and returns a session for it.
func (s *Service) Signup(ctx context.Context, email, password string) (*Session, error) {
	email = store.NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, invalid("email", "Email and password required")
	}
	if !ValidateEmail(email) {
		return nil, invalid("email", "Invalid email address")
	}
	if len(password) > maxPasswordLength {
		return nil, invalid("password", "Password too long")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	user, err := s.store.CreateUser(ctx, email, password)
	if errors.Is(err, store.ErrAlreadyExists) {
		s.log.Warn("signup failed: email exists", "source", "auth", "email", email)
		return nil, ErrAlreadyExists
	}
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.log.Info("user registered", "source", "auth", "email", user.Email)
	return s.issue(user.Email)
}

// Login checks credentials and, for accounts with two-factor enabled, the TOTP code.
// Unknown emails and wrong passwords produce the same ErrInvalidCredentials.
func (s *Service) Login(ctx context.Context, email, password, code string) (*Session, error) {
	if email == "" || password == "" {
		return nil, invalid("email", "Email and password required")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	user, err := s.store.Authenticate(ctx, email, password)
	if errors.Is(err, store.ErrInvalidCredentials) {
		s.log.Warn("login failed: invalid credentials", "source", "auth", "email", store.NormalizeEmail(email))
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, fmt.Errorf("authenticate: %w", err)
	}

	if user.TOTPEnabled {
		if code == "" {
			return nil, ErrTwoFactorRequired
		}
		if user.TOTPSecret == "" {
			return nil, fmt.Errorf("user %d has two-factor enabled without a secret", user.ID)
		}
		if err := s.checkCode(ctx, user.Email, user.TOTPSecret, code); err != nil {
			s.log.Warn("login failed: invalid two-factor code", "source", "auth", "email", user.Email)
			return nil, err
		}
	}

	s.log.Info("user logged in", "source", "auth", "email", user.Email, "two_factor", user.TOTPEnabled)
	return s.issue(user.Email)
}

// checkCode verifies code against secret and, when replay protection is on, consumes
// the matched time step.
func (s *Service) checkCode(ctx context.Context, email, secret, code string) error {
	counter, ok := s.verifier.Match(secret, code)
	if !ok {
		return ErrInvalidCode
	}
	if !s.preventReuse {
		return nil
	}
	err := s.store.AdvanceTOTPCounter(ctx, email, counter)
	if errors.Is(err, store.ErrReplayedCode) {
		return ErrInvalidCode
	}
	if err != nil {
		return fmt.Errorf("advance totp counter: %w", err)
	}
	return nil
}

// Profile is the account view returned to its owner.
type Profile struct {
	Email            string    `json:"email"`
	TimeRemaining    int64     `json:"timeRemaining"` // seconds
	TwoFactorEnabled bool      `json:"twoFactorEnabled"`
	APIKey           string    `json:"apiKey"`
	CreatedAt        time.Time `json:"createdAt"`
}

func (s *Service) Profile(ctx context.Context, email string) (*Profile, error) {
	ctx, cancel := s.bounded(ctx)
	defer cancel()

	user, err := s.store.Lookup(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lookup user: %w", err)
	}
	return &Profile{
		Email:            user.Email,
		TimeRemaining:    user.TimeRemaining,
		TwoFactorEnabled: user.TOTPEnabled,
		APIKey:           user.APIKey,
		CreatedAt:        user.CreatedAt,
	}, nil
}

// AddTime credits hours to the account and returns the new balance in seconds.
func (s *Service) AddTime(ctx context.Context, email string, hours float64) (int64, error) {
	if math.IsNaN(hours) || hours <= 0 || hours > MaxHoursPerRequest {
		return 0, invalid("hours", "Invalid hours value")
	}
	seconds := int64(math.Round(hours * secondsPerHour))
	if seconds < 1 {
		return 0, invalid("hours", "Invalid hours value")
	}

	ctx, cancel := s.bounded(ctx)
	defer cancel()

	balance, err := s.store.AdjustTimeRemaining(ctx, email, seconds)
	if errors.Is(err, store.ErrNotFound) {
		return 0, ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("adjust time remaining: %w", err)
	}

	s.log.Info("time added", "source", "auth", "email", store.NormalizeEmail(email), "seconds", seconds, "balance", balance)
	return balance, nil
}
