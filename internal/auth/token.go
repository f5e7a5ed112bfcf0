package auth

import (
	"crypto/subtle"
	"errors"
	"regexp"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MinTokenLength is the shortest site token ever accepted.
const MinTokenLength = 8

// verifiedTTL bounds how long a token verified against an Argon2id hash
// skips re-hashing.
const verifiedTTL = 5 * time.Minute

// Token errors.
var (
	ErrTokenMissing  = errors.New("token missing")
	ErrTokenTooShort = errors.New("token is too short")
	ErrTokenMismatch = errors.New("token mismatch")
	ErrNoSiteToken   = errors.New("no site token configured")
)

var bearerPattern = regexp.MustCompile(`^Bearer\s+`)

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) string {
	return bearerPattern.ReplaceAllString(header, "")
}

// TokenVerifier checks presented tokens against the configured site token.
// With a hash configured, successful verifications are remembered by
// fingerprint so the Argon2id cost is paid once per verifiedTTL.
type TokenVerifier struct {
	plain    []byte
	hash     string
	verified *gocache.Cache
}

// NewTokenVerifier creates a verifier. hash (a PHC Argon2id string) wins over plain.
func NewTokenVerifier(plain, hash string) (*TokenVerifier, error) {
	if hash != "" {
		if _, _, _, err := decodeHash(hash); err != nil {
			return nil, err
		}
		return &TokenVerifier{hash: hash, verified: gocache.New(verifiedTTL, 2*verifiedTTL)}, nil
	}
	if len(plain) < MinTokenLength {
		return nil, ErrNoSiteToken
	}
	return &TokenVerifier{plain: []byte(plain)}, nil
}

// Verify returns nil when token is the site token.
func (v *TokenVerifier) Verify(token string) error {
	if token == "" {
		return ErrTokenMissing
	}
	if len(token) < MinTokenLength {
		return ErrTokenTooShort
	}

	if v.hash == "" {
		if subtle.ConstantTimeCompare([]byte(token), v.plain) != 1 {
			return ErrTokenMismatch
		}
		return nil
	}

	key := Fingerprint(token)
	if _, ok := v.verified.Get(key); ok {
		return nil
	}

	ok, err := VerifyToken(token, v.hash)
	if err != nil || !ok {
		return ErrTokenMismatch
	}
	v.verified.SetDefault(key, struct{}{})
	return nil
}
