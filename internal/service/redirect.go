package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/linkrelay/linkrelay/internal/metrics"
	"github.com/linkrelay/linkrelay/internal/model"
)

// RedirectConfig controls how a resolved link becomes a redirect.
type RedirectConfig struct {
	HomeURL    string
	StatusCode int
	WithQuery  bool
}

// RedirectRequest is the part of an inbound request the decision needs.
type RedirectRequest struct {
	Path      string
	Query     url.Values
	IP        string
	UserAgent string
	Referer   string
	Country   string
}

// Decision is the outcome of a redirect request.
// Matched is false when the caller should fall through to its own handling.
type Decision struct {
	Matched     bool
	Target      string
	StatusCode  int
	QueryMerged bool
	Rotated     bool
	Link        *model.Link
	Degraded    []DependencyFailure
}

// RedirectService turns a request path into a redirect.
type RedirectService struct {
	resolver  *SlugResolver
	domains   DomainSource
	accessLog AccessLogger
	rotator   *SubdomainRotator
	cfg       RedirectConfig
	logger    *slog.Logger
	metrics   metrics.Recorder
	now       func() time.Time
}

// NewRedirectService creates a new RedirectService.
// domains and accessLog may be nil, which disables rotation and logging.
func NewRedirectService(
	resolver *SlugResolver,
	domains DomainSource,
	accessLog AccessLogger,
	rotator *SubdomainRotator,
	cfg RedirectConfig,
	logger *slog.Logger,
	recorder metrics.Recorder,
) *RedirectService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if rotator == nil {
		rotator = NewSubdomainRotator(nil, nil)
	}
	if cfg.StatusCode == 0 {
		cfg.StatusCode = http.StatusMovedPermanently
	}
	return &RedirectService{
		resolver:  resolver,
		domains:   domains,
		accessLog: accessLog,
		rotator:   rotator,
		cfg:       cfg,
		logger:    logger.With("component", "redirect"),
		metrics:   recorder,
		now:       time.Now,
	}
}

// Decide resolves req into a redirect. It never returns an error:
// a lookup miss or failure yields an unmatched Decision, and failures of
// the access logger or domain list are reported in Decision.Degraded.
func (s *RedirectService) Decide(ctx context.Context, req RedirectRequest) Decision {
	start := time.Now()
	defer func() {
		s.metrics.ObserveRedirectDuration(time.Since(start))
	}()

	if req.Path == "/" && s.cfg.HomeURL != "" {
		s.metrics.IncRedirect(metrics.OutcomeHome)
		return Decision{Matched: true, Target: s.cfg.HomeURL, StatusCode: http.StatusFound}
	}

	slug := trimSlashes(req.Path)
	if s.resolver == nil || !s.resolver.Allowed(slug) {
		s.metrics.IncRedirect(metrics.OutcomeRejected)
		return Decision{}
	}

	var d Decision

	link, err := s.resolver.Resolve(ctx, slug)
	if err != nil {
		if !errors.Is(err, model.ErrLinkNotFound) {
			s.degrade(&d, DependencyLinkStore, err)
		}
		s.metrics.IncRedirect(metrics.OutcomeMiss)
		s.logger.Debug("redirect_miss", "slug", slug)
		return d
	}

	if s.accessLog != nil {
		entry := model.AccessLog{
			LinkID:         link.ID,
			Slug:           link.Slug,
			URL:            link.URL,
			IP:             req.IP,
			UserAgent:      req.UserAgent,
			Referer:        req.Referer,
			Country:        req.Country,
			SampleInterval: 1,
			Timestamp:      s.now().UTC(),
		}
		if err := s.accessLog.Record(ctx, entry); err != nil {
			s.degrade(&d, DependencyAccessLog, err)
		}
	}

	var allowed []string
	if s.domains != nil {
		allowed, err = s.domains.DomainList(ctx)
		if err != nil {
			s.degrade(&d, DependencyDomainList, err)
			allowed = nil
		}
	}

	target, rotated := s.rotator.Rotate(link.URL, allowed)
	if rotated {
		s.metrics.IncSubdomainRotated()
	}

	merged := false
	if s.cfg.WithQuery && len(req.Query) > 0 {
		target, merged = mergeQuery(target, req.Query)
	}

	d.Matched = true
	d.Target = target
	d.StatusCode = s.cfg.StatusCode
	d.QueryMerged = merged
	d.Rotated = rotated
	d.Link = link

	s.metrics.IncRedirect(metrics.OutcomeHit)
	s.logger.Debug("redirect_success", "slug", slug, "link_id", link.ID, "rotated", rotated)

	return d
}

// degrade records a failure for the caller to report. It does not log.
func (s *RedirectService) degrade(d *Decision, dependency string, err error) {
	d.Degraded = append(d.Degraded, DependencyFailure{Dependency: dependency, Err: err})
	s.metrics.IncDependencyFailure(dependency)
}

// trimSlashes drops one leading and one trailing slash.
func trimSlashes(path string) string {
	return strings.TrimSuffix(strings.TrimPrefix(path, "/"), "/")
}

// mergeQuery appends query to target. Target pairs whose key the caller
// also sends are dropped; every other byte of target is kept as stored.
func mergeQuery(target string, query url.Values) (string, bool) {
	if _, err := url.Parse(target); err != nil {
		return target, false
	}

	base, fragment, hasFragment := strings.Cut(target, "#")
	base, rawQuery, _ := strings.Cut(base, "?")

	var pairs []string
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key, _, _ := strings.Cut(pair, "=")
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if _, ok := query[key]; ok {
			continue
		}
		pairs = append(pairs, pair)
	}
	if encoded := query.Encode(); encoded != "" {
		pairs = append(pairs, encoded)
	}

	out := base
	if len(pairs) > 0 {
		out += "?" + strings.Join(pairs, "&")
	}
	if hasFragment {
		out += "#" + fragment
	}
	return out, true
}
