package kv

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/linkrelay/linkrelay/internal/model"
)

const domainCacheKey = "domains"

// LinkReader is the subset of Store the link cache reads through.
type LinkReader interface {
	GetLink(ctx context.Context, slug string) (*model.Link, error)
	GetLinkWithMetadata(ctx context.Context, key string) (*model.LinkMetadata, *model.Link, error)
	ListLinkKeys(ctx context.Context, cursor string, limit int) ([]string, string, error)
}

// CachedLinks fronts a LinkReader with an in-process TTL cache on point lookups.
// Staleness is bounded by the TTL; misses and errors are not cached.
// Enumeration and metadata reads always go to the backing store.
type CachedLinks struct {
	backend LinkReader
	cache   *gocache.Cache
}

// NewCachedLinks returns a read-through link cache. A zero ttl disables caching.
func NewCachedLinks(backend LinkReader, ttl time.Duration) *CachedLinks {
	c := &CachedLinks{backend: backend}
	if ttl > 0 {
		c.cache = gocache.New(ttl, 2*ttl)
	}
	return c
}

// GetLink returns the link for slug, from cache when fresh.
func (c *CachedLinks) GetLink(ctx context.Context, slug string) (*model.Link, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(slug); ok {
			link := v.(model.Link)
			return &link, nil
		}
	}

	link, err := c.backend.GetLink(ctx, slug)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		c.cache.SetDefault(slug, *link)
	}
	return link, nil
}

// GetLinkWithMetadata reads through to the backing store.
func (c *CachedLinks) GetLinkWithMetadata(ctx context.Context, key string) (*model.LinkMetadata, *model.Link, error) {
	return c.backend.GetLinkWithMetadata(ctx, key)
}

// ListLinkKeys reads through to the backing store.
func (c *CachedLinks) ListLinkKeys(ctx context.Context, cursor string, limit int) ([]string, string, error) {
	return c.backend.ListLinkKeys(ctx, cursor, limit)
}

// DomainStore is the subset of Store the domain cache reads through.
type DomainStore interface {
	Domains(ctx context.Context) ([]model.DomainConfig, error)
	AddDomain(ctx context.Context, raw string) (model.DomainConfig, error)
	DeleteDomain(ctx context.Context, id string) error
}

// CachedDomains fronts the allow-list with a short TTL cache.
// Writes made through it invalidate the cache immediately; writes made
// elsewhere become visible after at most one TTL.
type CachedDomains struct {
	backend DomainStore
	cache   *gocache.Cache
}

// NewCachedDomains returns a read-through allow-list cache. A zero ttl disables caching.
func NewCachedDomains(backend DomainStore, ttl time.Duration) *CachedDomains {
	c := &CachedDomains{backend: backend}
	if ttl > 0 {
		c.cache = gocache.New(ttl, 2*ttl)
	}
	return c
}

// Domains returns the allow-list entries.
func (c *CachedDomains) Domains(ctx context.Context) ([]model.DomainConfig, error) {
	if c.cache != nil {
		if v, ok := c.cache.Get(domainCacheKey); ok {
			cached := v.([]model.DomainConfig)
			out := make([]model.DomainConfig, len(cached))
			copy(out, cached)
			return out, nil
		}
	}

	configs, err := c.backend.Domains(ctx)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		stored := make([]model.DomainConfig, len(configs))
		copy(stored, configs)
		c.cache.SetDefault(domainCacheKey, stored)
	}
	return configs, nil
}

// DomainList returns the root-domain strings of the allow-list.
func (c *CachedDomains) DomainList(ctx context.Context) ([]string, error) {
	configs, err := c.Domains(ctx)
	if err != nil {
		return nil, err
	}
	return model.DomainNames(configs), nil
}

// AddDomain writes through and invalidates the cache.
func (c *CachedDomains) AddDomain(ctx context.Context, raw string) (model.DomainConfig, error) {
	created, err := c.backend.AddDomain(ctx, raw)
	c.invalidate()
	return created, err
}

// DeleteDomain writes through and invalidates the cache.
func (c *CachedDomains) DeleteDomain(ctx context.Context, id string) error {
	err := c.backend.DeleteDomain(ctx, id)
	c.invalidate()
	return err
}

func (c *CachedDomains) invalidate() {
	if c.cache != nil {
		c.cache.Delete(domainCacheKey)
	}
}
