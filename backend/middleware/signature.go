package middleware

import (
	"bytes"
	"crypto/subtle"
	"io"
	"log/slog"
	"net/http"

	"github.com/PhilHem/timeremaining/backend/respond"
	"github.com/PhilHem/timeremaining/backend/signature"
)

const (
	HeaderAppID     = "X-App-ID"
	HeaderSignature = "X-Signature"
)

type invalidRequest struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// RequireAppSignature admits server-to-server calls whose X-Signature is the hex
// HMAC-SHA256 of the exact request body under secret. When appID is empty any
// non-empty X-App-ID is accepted. Every rejection looks the same to the caller.
func RequireAppSignature(appID string, secret []byte, maxBody int64) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			reject := func(reason string) {
				slog.Warn("validation request rejected", "source", "validate", "reason", reason, "remote", r.RemoteAddr)
				respond.JSON(w, http.StatusUnauthorized, invalidRequest{Status: "invalid", Message: "Invalid request"})
			}

			gotID := r.Header.Get(HeaderAppID)
			sig := r.Header.Get(HeaderSignature)
			if gotID == "" || sig == "" {
				reject("missing headers")
				return
			}
			if appID != "" && subtle.ConstantTimeCompare([]byte(gotID), []byte(appID)) != 1 {
				reject("app id mismatch")
				return
			}

			body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBody))
			if err != nil {
				reject("unreadable body")
				return
			}
			if !signature.Verify(secret, body, sig) {
				reject("bad signature")
				return
			}

			r.Body = io.NopCloser(bytes.NewReader(body))
			next(w, r)
		}
	}
}
