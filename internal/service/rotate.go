package service

import (
	"crypto/md5"
	"encoding/hex"
	"net/url"
	"strings"
	"time"
)

const (
	dateKeyLayout     = "20060102"
	subdomainLabelLen = 8
)

// SubdomainRotator rewrites the subdomain of allow-listed destinations to
// a label derived from the current calendar date.
type SubdomainRotator struct {
	loc *time.Location
	now func() time.Time
}

// NewSubdomainRotator creates a rotator keyed on dates in loc.
// A nil loc means time.Local; a nil now means time.Now.
func NewSubdomainRotator(loc *time.Location, now func() time.Time) *SubdomainRotator {
	if loc == nil {
		loc = time.Local
	}
	if now == nil {
		now = time.Now
	}
	return &SubdomainRotator{loc: loc, now: now}
}

// DateKey formats t as YYYYMMDD.
func DateKey(t time.Time) string {
	return t.Format(dateKeyLayout)
}

// SubdomainLabel returns the last 8 hex characters of the MD5 of dateKey.
func SubdomainLabel(dateKey string) string {
	sum := md5.Sum([]byte(dateKey))
	digest := hex.EncodeToString(sum[:])
	return digest[len(digest)-subdomainLabelLen:]
}

// Label returns today's subdomain label.
func (r *SubdomainRotator) Label() string {
	return SubdomainLabel(DateKey(r.now().In(r.loc)))
}

// Rotate returns rawURL with its subdomain replaced by today's label when
// the host's root domain is in allowed. Only the hostname changes; every
// other byte of rawURL is kept. Anything unparsable comes back unchanged.
func (r *SubdomainRotator) Rotate(rawURL string, allowed []string) (string, bool) {
	if len(allowed) == 0 {
		return rawURL, false
	}

	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return rawURL, false
	}

	hostname := u.Hostname()
	labels := strings.Split(hostname, ".")
	if len(labels) < 3 {
		return rawURL, false
	}

	root := strings.ToLower(labels[len(labels)-2] + "." + labels[len(labels)-1])
	if !containsFold(allowed, root) {
		return rawURL, false
	}

	start, end, ok := hostnameSpan(rawURL)
	if !ok || !strings.EqualFold(rawURL[start:end], hostname) {
		return rawURL, false
	}

	return rawURL[:start] + r.Label() + "." + root + rawURL[end:], true
}

// hostnameSpan locates the hostname inside the authority of rawURL,
// skipping userinfo and stopping before a port.
func hostnameSpan(rawURL string) (int, int, bool) {
	i := strings.Index(rawURL, "//")
	if i < 0 {
		return 0, 0, false
	}
	authStart := i + 2

	authEnd := len(rawURL)
	if j := strings.IndexAny(rawURL[authStart:], "/?#"); j >= 0 {
		authEnd = authStart + j
	}

	start := authStart
	if at := strings.LastIndex(rawURL[authStart:authEnd], "@"); at >= 0 {
		start = authStart + at + 1
	}
	if strings.HasPrefix(rawURL[start:authEnd], "[") {
		return 0, 0, false
	}

	end := authEnd
	if colon := strings.IndexByte(rawURL[start:authEnd], ':'); colon >= 0 {
		end = start + colon
	}

	return start, end, start < end
}

func containsFold(list []string, s string) bool {
	for _, v := range list {
		if strings.EqualFold(strings.TrimSpace(v), s) {
			return true
		}
	}
	return false
}
