package totp

import (
	"bytes"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"image/png"
	"time"

	"github.com/pquerna/otp"
	pqtotp "github.com/pquerna/otp/totp"
)

const (
	// Issuer labels the account in authenticator apps.
	Issuer = "TimeRemaining"
	// Period is the length of one time step.
	Period = 30 * time.Second
	// DefaultWindow is how many steps either side of now are accepted.
	DefaultWindow = 1
	// SecretSize is the raw secret length in bytes (160 bits, as RFC 4226 recommends).
	SecretSize = 20
	qrCodeSize = 200
)

// Counter returns the time-step counter containing t.
func Counter(t time.Time) uint64 {
	unix := t.Unix()
	if unix < 0 {
		return 0
	}
	return uint64(unix / int64(Period/time.Second))
}

// GenerateCode returns the code for the Base32 secret at time t.
func GenerateCode(secret string, t time.Time) (string, error) {
	key, err := DecodeBase32(secret)
	if err != nil {
		return "", err
	}
	return GenerateHOTP(key, Counter(t)), nil
}

// GenerateKey creates a fresh key for account. Secret() is Base32 without padding and
// URL() is the otpauth:// URI authenticator apps enrol from.
func GenerateKey(account string) (*otp.Key, error) {
	key, err := pqtotp.Generate(pqtotp.GenerateOpts{
		Issuer:      Issuer,
		AccountName: account,
		Period:      uint(Period / time.Second),
		SecretSize:  SecretSize,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, fmt.Errorf("generate totp key: %w", err)
	}
	return key, nil
}

// QRCodeDataURL renders key as a PNG QR code embedded in a data: URL.
func QRCodeDataURL(key *otp.Key) (string, error) {
	img, err := key.Image(qrCodeSize, qrCodeSize)
	if err != nil {
		return "", fmt.Errorf("render qr code: %w", err)
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode qr code: %w", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes()), nil
}

// Verifier checks submitted codes against a window of adjacent time steps.
//
// With the default window of 1 a code stays acceptable for up to ~90 seconds of wall
// clock. The verifier keeps no state, so a leaked code can be replayed inside that span;
// callers that need single use must track the matched counter (see Match).
type Verifier struct {
	Window int
	Now    func() time.Time
}

// NewVerifier returns a Verifier using the wall clock.
func NewVerifier(window int) *Verifier {
	return &Verifier{Window: window, Now: time.Now}
}

// Verify reports whether code is valid for secret right now.
func (v *Verifier) Verify(secret, code string) bool {
	_, ok := v.Match(secret, code)
	return ok
}

// Match returns the counter the code matched.
func (v *Verifier) Match(secret, code string) (uint64, bool) {
	if !wellFormed(code) {
		return 0, false
	}
	key, err := DecodeBase32(secret)
	if err != nil || len(key) == 0 {
		return 0, false
	}

	now := time.Now
	if v.Now != nil {
		now = v.Now
	}
	current := int64(Counter(now()))

	var (
		matched uint64
		found   bool
	)
	// Every candidate is computed so timing does not reveal which step matched.
	for i := -v.Window; i <= v.Window; i++ {
		c := current + int64(i)
		if c < 0 {
			continue
		}
		candidate := GenerateHOTP(key, uint64(c))
		if subtle.ConstantTimeCompare([]byte(candidate), []byte(code)) == 1 && !found {
			matched, found = uint64(c), true
		}
	}
	return matched, found
}

func wellFormed(code string) bool {
	if len(code) != Digits {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < '0' || code[i] > '9' {
			return false
		}
	}
	return true
}
