package model

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// MaxDomainLength bounds the raw domain input accepted for the allow-list.
const MaxDomainLength = 255

// Domain errors.
var (
	ErrInvalidDomain  = errors.New("invalid domain format")
	ErrDomainExists   = errors.New("domain already exists")
	ErrDomainNotFound = errors.New("domain not found")
)

var (
	schemePattern = regexp.MustCompile(`^https?://`)
	pathPattern   = regexp.MustCompile(`/.*$`)
	portPattern   = regexp.MustCompile(`:\d+$`)
)

// DomainConfig is one entry of the rotatable root-domain allow-list.
type DomainConfig struct {
	ID        string `json:"id"`
	Domain    string `json:"domain"`
	CreatedAt int64  `json:"createdAt"`
	UpdatedAt int64  `json:"updatedAt"`
}

// NewDomainConfig normalizes raw and returns a fresh allow-list entry.
func NewDomainConfig(raw string, now time.Time) (DomainConfig, error) {
	domain, err := NormalizeDomain(raw)
	if err != nil {
		return DomainConfig{}, err
	}
	ts := now.Unix()
	return DomainConfig{
		ID:        "domain_" + ulid.Make().String(),
		Domain:    domain,
		CreatedAt: ts,
		UpdatedAt: ts,
	}, nil
}

// NormalizeDomain reduces user input such as "https://a.Example.com:443/x"
// to its root domain ("example.com").
func NormalizeDomain(raw string) (string, error) {
	domain := strings.ToLower(strings.TrimSpace(raw))
	if domain == "" || len(domain) > MaxDomainLength {
		return "", ErrInvalidDomain
	}

	domain = schemePattern.ReplaceAllString(domain, "")
	domain = pathPattern.ReplaceAllString(domain, "")
	domain = portPattern.ReplaceAllString(domain, "")

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return "", ErrInvalidDomain
	}
	root := labels[len(labels)-2:]
	if root[0] == "" || root[1] == "" {
		return "", ErrInvalidDomain
	}
	return root[0] + "." + root[1], nil
}

// DomainNames extracts the root-domain strings in list order.
func DomainNames(configs []DomainConfig) []string {
	names := make([]string, 0, len(configs))
	for _, c := range configs {
		names = append(names, c.Domain)
	}
	return names
}
