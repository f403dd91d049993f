// Package session issues and verifies the signed, time-limited session token carried in
// the auth cookie. Tokens are stateless HS256 JWTs; validity is signature plus expiry.
package session

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/sessions"
)

const (
	CookieName   = "auth-token"
	DefaultTTL   = 24 * time.Hour
	MinKeyLength = 32
)

var (
	ErrInvalid    = errors.New("invalid session token")
	ErrExpired    = errors.New("session token expired")
	ErrWeakSecret = fmt.Errorf("session secret must be at least %d bytes", MinKeyLength)
)

type Claims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies session tokens and writes the session cookie.
type Issuer struct {
	key     []byte
	ttl     time.Duration
	secure  bool
	now     func() time.Time
	methods []string
}

// NewIssuer fails when the key is shorter than MinKeyLength; there is no fallback key.
func NewIssuer(secret string, ttl time.Duration, secureCookie bool) (*Issuer, error) {
	if len(secret) < MinKeyLength {
		return nil, ErrWeakSecret
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Issuer{
		key:     []byte(secret),
		ttl:     ttl,
		secure:  secureCookie,
		now:     time.Now,
		methods: []string{jwt.SigningMethodHS256.Alg()},
	}, nil
}

// WithClock replaces the issuer's clock. Intended for tests.
func (i *Issuer) WithClock(now func() time.Time) *Issuer {
	c := *i
	c.now = now
	return &c
}

func (i *Issuer) TTL() time.Duration { return i.ttl }

// Issue returns a token for email expiring TTL from now.
func (i *Issuer) Issue(email string) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.ttl)
	claims := Claims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign session token: %w", err)
	}
	return token, expiresAt, nil
}

// Verify returns the email embedded in a valid token.
func (i *Issuer) Verify(token string) (string, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (any, error) { return i.key, nil },
		// The alg header is bound to HS256 so a token cannot pick its own algorithm.
		jwt.WithValidMethods(i.methods),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(i.now),
	)
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return "", ErrExpired
	case err != nil:
		return "", ErrInvalid
	case claims.Email == "" || claims.Subject != claims.Email:
		return "", ErrInvalid
	}
	return claims.Email, nil
}

func (i *Issuer) cookieOptions(maxAge int) *sessions.Options {
	return &sessions.Options{
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   i.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// SetCookie writes token as the session cookie.
func (i *Issuer) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, sessions.NewCookie(CookieName, token, i.cookieOptions(int(i.ttl.Seconds()))))
}

// ClearCookie expires the session cookie.
func (i *Issuer) ClearCookie(w http.ResponseWriter) {
	http.SetCookie(w, sessions.NewCookie(CookieName, "", i.cookieOptions(-1)))
}

// FromRequest verifies the session cookie on r.
func (i *Issuer) FromRequest(r *http.Request) (string, error) {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return "", ErrInvalid
	}
	return i.Verify(c.Value)
}
