package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PhilHem/timeremaining/backend/session"
)

const testSessionSecret = "middleware-test-secret-32-bytes!!"

func newTestIssuer(t *testing.T) *session.Issuer {
	t.Helper()
	issuer, err := session.NewIssuer(testSessionSecret, time.Hour, false)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	return issuer
}

func echoEmail(w http.ResponseWriter, r *http.Request) {
	email, ok := EmailFromContext(r.Context())
	if !ok {
		w.WriteHeader(http.StatusTeapot)
		return
	}
	w.Write([]byte(email))
}

// RED: Test requests without a session cookie are rejected
func TestRequireSession_NoCookie(t *testing.T) {
	handler := RequireSession(newTestIssuer(t))(echoEmail)

	req := httptest.NewRequest("GET", "/api/auth/user", nil)
	rec := httptest.NewRecorder()
	handler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("Expected JSON error body, got Content-Type %q", ct)
	}
}

// RED: Test a valid session puts the email in the request context
func TestRequireSession_ValidCookie(t *testing.T) {
	issuer := newTestIssuer(t)
	token, _, err := issuer.Issue("alice@example.com")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	req := httptest.NewRequest("GET", "/api/auth/user", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	rec := httptest.NewRecorder()
	RequireSession(issuer)(echoEmail)(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != "alice@example.com" {
		t.Errorf("Expected email in context, got %q", rec.Body.String())
	}
}

// RED: Test a token signed with another key is rejected
func TestRequireSession_ForeignToken(t *testing.T) {
	other, err := session.NewIssuer("another-secret-that-is-32-bytes-long", time.Hour, false)
	if err != nil {
		t.Fatal(err)
	}
	token, _, _ := other.Issue("alice@example.com")

	req := httptest.NewRequest("GET", "/api/auth/user", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	rec := httptest.NewRecorder()
	RequireSession(newTestIssuer(t))(echoEmail)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}

// RED: Test an expired session is rejected
func TestRequireSession_Expired(t *testing.T) {
	issuer := newTestIssuer(t)
	issued := time.Now().Add(-2 * time.Hour)
	token, _, err := issuer.WithClock(func() time.Time { return issued }).Issue("alice@example.com")
	if err != nil {
		t.Fatal(err)
	}

	req := httptest.NewRequest("GET", "/api/auth/user", nil)
	req.AddCookie(&http.Cookie{Name: session.CookieName, Value: token})
	rec := httptest.NewRecorder()
	RequireSession(newTestIssuer(t))(echoEmail)(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401 for expired session, got %d", rec.Code)
	}
}
