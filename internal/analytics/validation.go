package analytics

import (
	"errors"
	"net"
)

var (
	errMissingLinkID   = errors.New("link_id is required")
	errMissingSlug     = errors.New("slug is required")
	errInvalidIP       = errors.New("ip is not a valid address")
	errInvalidCountry  = errors.New("country must be 2 chars")
	errMissingTime     = errors.New("timestamp must be set")
	errMetaTooLong     = errors.New("user_agent or referer too long")
	errInvalidInterval = errors.New("sample_interval must not be negative")
)

// ValidatePayload checks a decoded stream payload before it is stored.
// An empty IP is accepted; the redirect may not know the client address.
func ValidatePayload(p AccessLogPayload) error {
	if p.LinkID == "" {
		return errMissingLinkID
	}
	if p.Slug == "" {
		return errMissingSlug
	}
	if p.IP != "" && net.ParseIP(p.IP) == nil {
		return errInvalidIP
	}
	if p.Country != "" && len(p.Country) != 2 {
		return errInvalidCountry
	}
	if p.Timestamp <= 0 {
		return errMissingTime
	}
	if len(p.UserAgent) > maxMetaLength || len(p.Referer) > maxMetaLength {
		return errMetaTooLong
	}
	if p.SampleInterval < 0 {
		return errInvalidInterval
	}
	return nil
}
