package middleware

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/linkrelay/linkrelay/internal/auth"
)

func TestMain(m *testing.M) {
	minAuthDuration = 20 * time.Millisecond
	os.Exit(m.Run())
}

func newSiteTokenHandler(t *testing.T, logs *bytes.Buffer) http.Handler {
	t.Helper()
	v, err := auth.NewTokenVerifier("site-token-123", "")
	if err != nil {
		t.Fatal(err)
	}
	return SiteToken(AuthConfig{
		Logger:   slog.New(slog.NewJSONHandler(logs, nil)),
		Verifier: v,
	})(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))
}

func TestSiteToken(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		header     string
		wantStatus int
		wantCode   string
	}{
		{"valid", "Bearer site-token-123", http.StatusNoContent, ""},
		{"missing", "", http.StatusUnauthorized, "UNAUTHORIZED"},
		{"too short", "Bearer abc", http.StatusUnauthorized, "TOKEN_TOO_SHORT"},
		{"wrong", "Bearer site-token-124", http.StatusUnauthorized, "UNAUTHORIZED"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var logs bytes.Buffer
			h := newSiteTokenHandler(t, &logs)

			req := httptest.NewRequest(http.MethodGet, "/api/link/stats", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()

			start := time.Now()
			h.ServeHTTP(rec, req)
			elapsed := time.Since(start)

			if rec.Code != tt.wantStatus {
				t.Fatalf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
			if tt.wantCode == "" {
				return
			}

			var body struct {
				Error string `json:"error"`
				Code  string `json:"code"`
			}
			if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
				t.Fatalf("decode body: %v", err)
			}
			if body.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", body.Code, tt.wantCode)
			}
			if elapsed < minAuthDuration {
				t.Errorf("rejection took %v, want at least %v", elapsed, minAuthDuration)
			}
			if strings.Contains(logs.String(), "site-token") {
				t.Error("token value leaked into logs")
			}
		})
	}
}

func TestWriteAuthError_TooShortMessage(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	WriteAuthError(rec, auth.ErrTokenTooShort)

	if rec.Header().Get("Content-Type") != "application/json" {
		t.Error("expected JSON content type")
	}
	if !strings.Contains(rec.Body.String(), `"error":"Token is too short"`) {
		t.Errorf("unexpected body: %s", rec.Body.String())
	}
}
