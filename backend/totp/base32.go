package totp

import (
	"encoding/base32"
	"errors"
	"strings"
)

// ErrInvalidSecret is returned when a secret is not upper-case RFC 4648 Base32.
var ErrInvalidSecret = errors.New("invalid base32 secret")

var rawEncoding = base32.StdEncoding.WithPadding(base32.NoPadding)

// EncodeBase32 encodes b with the A-Z2-7 alphabet, padded with '=' to a multiple of 8.
func EncodeBase32(b []byte) string {
	return base32.StdEncoding.EncodeToString(b)
}

// DecodeBase32 decodes s after stripping trailing padding. Only upper-case input is accepted.
func DecodeBase32(s string) ([]byte, error) {
	s = strings.TrimRight(s, "=")
	for i := 0; i < len(s); i++ {
		c := s[i]
		if (c < 'A' || c > 'Z') && (c < '2' || c > '7') {
			return nil, ErrInvalidSecret
		}
	}
	b, err := rawEncoding.DecodeString(s)
	if err != nil {
		return nil, errors.Join(ErrInvalidSecret, err)
	}
	return b, nil
}
