package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
)

// RED: Test a request id is assigned and visible to the handler
func TestRequestLogger_AssignsID(t *testing.T) {
	var seen string
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = RequestID(r.Context())
		w.WriteHeader(http.StatusCreated)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest("POST", "/api/auth/signup", nil))

	id := rec.Header().Get(HeaderRequestID)
	if _, err := uuid.Parse(id); err != nil {
		t.Fatalf("Expected a UUID request id, got %q", id)
	}
	if seen != id {
		t.Errorf("Handler saw %q, response header is %q", seen, id)
	}
	if rec.Code != http.StatusCreated {
		t.Errorf("Expected 201 to pass through, got %d", rec.Code)
	}
}

// RED: Test a well-formed incoming id is kept
func TestRequestLogger_KeepsIncomingID(t *testing.T) {
	incoming := uuid.NewString()
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(HeaderRequestID, incoming)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(HeaderRequestID); got != incoming {
		t.Errorf("Expected %q, got %q", incoming, got)
	}
}

// RED: Test a malformed incoming id is replaced
func TestRequestLogger_ReplacesMalformedID(t *testing.T) {
	handler := RequestLogger(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest("GET", "/health", nil)
	req.Header.Set(HeaderRequestID, "<script>")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if got := rec.Header().Get(HeaderRequestID); got == "<script>" {
		t.Error("Malformed request id must not be echoed")
	}
}
