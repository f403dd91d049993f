package auth

import "errors"

var (
	ErrUnauthorized            = errors.New("unauthorized")
	ErrInvalidCredentials      = errors.New("invalid email or password")
	ErrAlreadyExists           = errors.New("user already exists")
	ErrNotFound                = errors.New("user not found")
	ErrTwoFactorRequired       = errors.New("two-factor code required")
	ErrInvalidCode             = errors.New("invalid authenticator code")
	ErrNoPendingSetup          = errors.New("two-factor setup not found")
	ErrExpired                 = errors.New("two-factor setup expired")
	ErrTwoFactorNotEnabled     = errors.New("two-factor not enabled")
	ErrTwoFactorAlreadyEnabled = errors.New("two-factor already enabled")
)

// ValidationError reports malformed input. Message is safe to show to callers.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// IsValidation reports whether err is a *ValidationError.
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
