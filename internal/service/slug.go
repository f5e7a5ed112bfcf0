package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/linkrelay/linkrelay/internal/model"
)

// SlugPolicy is the operator policy applied before any lookup.
type SlugPolicy struct {
	Reserved      map[string]struct{}
	Pattern       *regexp.Regexp
	CaseSensitive bool
}

// SlugResolver finds the case variant under which a link record exists.
type SlugResolver struct {
	store  LinkStore
	policy SlugPolicy
}

// NewSlugResolver creates a SlugResolver. A nil pattern accepts any non-empty slug.
func NewSlugResolver(store LinkStore, policy SlugPolicy) *SlugResolver {
	if policy.Reserved == nil {
		policy.Reserved = map[string]struct{}{}
	}
	return &SlugResolver{store: store, policy: policy}
}

// Allowed reports whether slug passes the reserved and shape checks.
func (r *SlugResolver) Allowed(slug string) bool {
	if slug == "" {
		return false
	}
	if _, reserved := r.policy.Reserved[slug]; reserved {
		return false
	}
	if r.policy.Pattern != nil && !r.policy.Pattern.MatchString(slug) {
		return false
	}
	return true
}

// Resolve returns the link for slug.
//
// Case-insensitive policy looks up the lowercase slug first and falls back
// to the slug as given, so mixed-case records stored before the policy
// existed still resolve.
func (r *SlugResolver) Resolve(ctx context.Context, slug string) (*model.Link, error) {
	if !r.Allowed(slug) {
		return nil, ErrSlugRejected
	}

	if r.policy.CaseSensitive {
		return r.lookup(ctx, slug)
	}

	lower := strings.ToLower(slug)
	link, err := r.lookup(ctx, lower)
	if err == nil {
		return link, nil
	}
	if !errors.Is(err, model.ErrLinkNotFound) || lower == slug {
		return nil, err
	}

	return r.lookup(ctx, slug)
}

func (r *SlugResolver) lookup(ctx context.Context, slug string) (*model.Link, error) {
	link, err := r.store.GetLink(ctx, slug)
	if err != nil {
		if errors.Is(err, model.ErrLinkNotFound) {
			return nil, model.ErrLinkNotFound
		}
		return nil, fmt.Errorf("lookup %q: %w", slug, err)
	}
	return link, nil
}
