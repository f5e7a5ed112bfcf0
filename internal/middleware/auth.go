package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/linkrelay/linkrelay/internal/auth"
)

// minAuthDuration is the floor for a rejected auth attempt, so failures
// take the same time however early they are detected.
var minAuthDuration = 200 * time.Millisecond

// TokenVerifier checks a presented site token.
type TokenVerifier interface {
	Verify(token string) error
}

// AuthConfig holds configuration for the auth middleware.
type AuthConfig struct {
	Logger   *slog.Logger
	Verifier TokenVerifier
}

// SiteToken returns a middleware that requires the site token as a bearer
// credential in the Authorization header.
func SiteToken(cfg AuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			err := cfg.Verifier.Verify(auth.BearerToken(r.Header.Get("Authorization")))
			if err == nil {
				next.ServeHTTP(w, r)
				return
			}

			cfg.Logger.Warn("authentication failed",
				slog.String("reason", err.Error()),
				slog.String("ip", ClientIP(r)),
				slog.String("endpoint", r.Method+" "+r.URL.Path),
				slog.String("request_id", GetRequestID(r.Context())),
			)

			if elapsed := time.Since(start); elapsed < minAuthDuration {
				time.Sleep(minAuthDuration - elapsed)
			}
			WriteAuthError(w, err)
		})
	}
}

// WriteAuthError writes a 401 for a failed token check.
// Only a too-short token gets its own message.
func WriteAuthError(w http.ResponseWriter, err error) {
	if errors.Is(err, auth.ErrTokenTooShort) {
		writeError(w, http.StatusUnauthorized, "TOKEN_TOO_SHORT", "Token is too short")
		return
	}
	writeError(w, http.StatusUnauthorized, "UNAUTHORIZED", "Invalid or missing token")
}
