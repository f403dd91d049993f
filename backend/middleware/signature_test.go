package middleware

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/PhilHem/timeremaining/backend/signature"
)

var testAppSecret = []byte("shared-app-secret-for-tests-32-bytes")

const testBody = `{"email":"alice@example.com","password":"pw"}`

// echoBody proves the handler still sees the exact body after verification.
func echoBody(w http.ResponseWriter, r *http.Request) {
	b, _ := io.ReadAll(r.Body)
	w.Write(b)
}

func signedRequest(body, appID, sig string) *http.Request {
	req := httptest.NewRequest("POST", "/api/validate", strings.NewReader(body))
	if appID != "" {
		req.Header.Set(HeaderAppID, appID)
	}
	if sig != "" {
		req.Header.Set(HeaderSignature, sig)
	}
	return req
}

func serveSigned(appID string, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	RequireAppSignature(appID, testAppSecret, 1<<20)(echoBody)(rec, req)
	return rec
}

func checkUniformReject(t *testing.T, rec *httptest.ResponseRecorder) {
	t.Helper()
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected 401, got %d", rec.Code)
	}
	var body map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("Response is not JSON: %v", err)
	}
	if body["status"] != "invalid" || body["message"] != "Invalid request" || len(body) != 2 {
		t.Errorf("Expected the generic invalid body, got %v", body)
	}
}

// RED: Test a valid signature reaches the handler with the body intact
func TestRequireAppSignature_ValidPassesBodyThrough(t *testing.T) {
	sig := signature.Sign(testAppSecret, []byte(testBody))
	rec := serveSigned("", signedRequest(testBody, "client-app", sig))

	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if rec.Body.String() != testBody {
		t.Errorf("Expected body %q, got %q", testBody, rec.Body.String())
	}
}

// RED: Test every rejection looks the same
func TestRequireAppSignature_Rejections(t *testing.T) {
	good := signature.Sign(testAppSecret, []byte(testBody))
	flipped := []byte(testBody)
	flipped[2] ^= 0x01

	tests := []struct {
		name  string
		appID string
		req   *http.Request
	}{
		{"missing signature", "", signedRequest(testBody, "client-app", "")},
		{"missing app id", "", signedRequest(testBody, "", good)},
		{"body flipped", "", signedRequest(string(flipped), "client-app", good)},
		{"wrong secret", "", signedRequest(testBody, "client-app", signature.Sign([]byte("other"), []byte(testBody)))},
		{"not hex", "", signedRequest(testBody, "client-app", "zz"+good[2:])},
		{"app id mismatch", "client-app", signedRequest(testBody, "intruder", good)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkUniformReject(t, serveSigned(tt.appID, tt.req))
		})
	}
}

// RED: Test a configured app id is accepted when it matches
func TestRequireAppSignature_ConfiguredAppID(t *testing.T) {
	sig := signature.Sign(testAppSecret, []byte(testBody))
	rec := serveSigned("client-app", signedRequest(testBody, "client-app", sig))
	if rec.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", rec.Code)
	}
}

// RED: Test bodies over the cap are rejected like any other failure
func TestRequireAppSignature_BodyTooLarge(t *testing.T) {
	body := strings.Repeat("a", 64)
	sig := signature.Sign(testAppSecret, []byte(body))
	req := signedRequest(body, "client-app", sig)

	rec := httptest.NewRecorder()
	RequireAppSignature("", testAppSecret, 16)(echoBody)(rec, req)

	checkUniformReject(t, rec)
}
