// Package service holds the redirect decision and traffic reporting logic.
// Storage and analytics backends are injected through the interfaces below.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/linkrelay/linkrelay/internal/model"
)

// ErrSlugRejected is returned for reserved slugs and slugs that fail the shape check.
var ErrSlugRejected = errors.New("slug rejected")

// Dependency names used in DependencyFailure and metrics.
const (
	DependencyLinkStore  = "link_store"
	DependencyDomainList = "domain_list"
	DependencyAccessLog  = "access_log"
	DependencyAnalytics  = "analytics"
)

// LinkStore is the link record store.
// GetLink returns model.ErrLinkNotFound when no record exists.
// ListLinkKeys pages through every link key; an empty next cursor ends the listing.
type LinkStore interface {
	GetLink(ctx context.Context, slug string) (*model.Link, error)
	ListLinkKeys(ctx context.Context, cursor string, limit int) ([]string, string, error)
	GetLinkWithMetadata(ctx context.Context, key string) (*model.LinkMetadata, *model.Link, error)
}

// DomainSource returns the rotatable root domains in stored order.
type DomainSource interface {
	DomainList(ctx context.Context) ([]string, error)
}

// DomainConfigSource returns the full allow-list entries.
type DomainConfigSource interface {
	Domains(ctx context.Context) ([]model.DomainConfig, error)
}

// AccessLogger records one redirect event.
type AccessLogger interface {
	Record(ctx context.Context, entry model.AccessLog) error
}

// AnalyticsEngine runs aggregate queries over the access log.
type AnalyticsEngine interface {
	Aggregate(ctx context.Context, q model.AggregateQuery) ([]model.AggregateRow, error)
}

// DependencyFailure is an ignorable failure of a collaborator.
type DependencyFailure struct {
	Dependency string
	Err        error
}

func (f DependencyFailure) Error() string {
	return fmt.Sprintf("%s: %v", f.Dependency, f.Err)
}

func (f DependencyFailure) Unwrap() error {
	return f.Err
}
