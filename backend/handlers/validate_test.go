package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/PhilHem/timeremaining/backend/middleware"
	"github.com/PhilHem/timeremaining/backend/signature"
)

func (s *testServer) validate(t *testing.T, body []byte, sig string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	req := httptest.NewRequest("POST", "/api/validate", bytes.NewReader(body))
	req.Header.Set(middleware.HeaderAppID, "client-app")
	req.Header.Set(middleware.HeaderSignature, sig)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)
	return rec, decodeBody(t, rec)
}

func (s *testServer) signedValidate(t *testing.T, payload map[string]string) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatal(err)
	}
	return s.validate(t, body, signature.Sign(testAppSecret, body))
}

func (s *testServer) credit(t *testing.T, email string, seconds int64) {
	t.Helper()
	if _, err := s.store.AdjustTimeRemaining(context.Background(), email, seconds); err != nil {
		t.Fatal(err)
	}
}

// RED: Test an account with no balance is invalid with timeRemaining 0
func TestValidate_NoTimeRemaining(t *testing.T) {
	s := setupTestServer(t)
	s.signup(t, "alice@example.com")

	rec, body := s.signedValidate(t, map[string]string{"email": "alice@example.com", "password": "pw123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if body["status"] != "invalid" || body["message"] != "No time remaining" || body["timeRemaining"] != float64(0) {
		t.Errorf("Unexpected body %v", body)
	}
}

// RED: Test a funded account is valid and reports its balance
func TestValidate_Valid(t *testing.T) {
	s := setupTestServer(t)
	s.signup(t, "alice@example.com")
	s.credit(t, "alice@example.com", 3600)

	rec, body := s.signedValidate(t, map[string]string{"email": "alice@example.com", "password": "pw123"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if body["status"] != "valid" || body["timeRemaining"] != float64(3600) {
		t.Errorf("Unexpected body %v", body)
	}
}

// RED: Test API keys authenticate in place of email and password
func TestValidate_APIKey(t *testing.T) {
	s := setupTestServer(t)
	s.signup(t, "alice@example.com")
	s.credit(t, "alice@example.com", 60)
	user, err := s.store.Lookup(context.Background(), "alice@example.com")
	if err != nil {
		t.Fatal(err)
	}

	if _, body := s.signedValidate(t, map[string]string{"apiKey": user.APIKey}); body["status"] != "valid" {
		t.Errorf("Expected valid for own API key, got %v", body)
	}

	_, body := s.signedValidate(t, map[string]string{"apiKey": "sk_unknown"})
	if body["status"] != "invalid" || body["message"] != "Authentication failed" {
		t.Errorf("Expected authentication failure, got %v", body)
	}
}

// RED: Test unknown email and wrong password give identical responses
func TestValidate_UnknownAndWrongPasswordLookAlike(t *testing.T) {
	s := setupTestServer(t)
	s.signup(t, "alice@example.com")

	rec1, wrong := s.signedValidate(t, map[string]string{"email": "alice@example.com", "password": "nope"})
	rec2, unknown := s.signedValidate(t, map[string]string{"email": "bob@example.com", "password": "nope"})

	if rec1.Code != rec2.Code || !reflect.DeepEqual(wrong, unknown) {
		t.Errorf("Responses differ: %d %v vs %d %v", rec1.Code, wrong, rec2.Code, unknown)
	}
	if wrong["message"] != "Authentication failed" {
		t.Errorf("Expected generic message, got %v", wrong["message"])
	}
	if _, ok := wrong["timeRemaining"]; ok {
		t.Error("Failed authentication must not report a balance")
	}
}

// RED: Test a single flipped byte fails the signature
func TestValidate_FlippedByteRejected(t *testing.T) {
	s := setupTestServer(t)
	s.signup(t, "alice@example.com")

	body := []byte(`{"email":"alice@example.com","password":"pw123"}`)
	sig := signature.Sign(testAppSecret, body)
	tampered := bytes.Clone(body)
	tampered[len(tampered)-3] ^= 0x01

	rec, resp := s.validate(t, tampered, sig)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
	if resp["status"] != "invalid" || resp["message"] != "Invalid request" {
		t.Errorf("Unexpected body %v", resp)
	}
}

// RED: Test missing credentials are a bad request
func TestValidate_MissingCredentials(t *testing.T) {
	s := setupTestServer(t)

	rec, body := s.signedValidate(t, map[string]string{"email": "alice@example.com"})
	if rec.Code != http.StatusBadRequest || body["status"] != "invalid" {
		t.Errorf("Expected 400 invalid, got %d %v", rec.Code, body)
	}
}

// RED: Test a session cookie does not stand in for a signature
func TestValidate_IgnoresSessionCookie(t *testing.T) {
	s := setupTestServer(t)
	c := s.signup(t, "alice@example.com")

	req := httptest.NewRequest("POST", "/api/validate", bytes.NewReader([]byte(`{}`)))
	req.AddCookie(c)
	rec := httptest.NewRecorder()
	s.mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
}
