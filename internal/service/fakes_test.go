package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/linkrelay/linkrelay/internal/model"
)

var errUnavailable = errors.New("backend unavailable")

// memoryLinks is an in-memory LinkStore keyed by slug.
type memoryLinks struct {
	mu      sync.Mutex
	links   map[string]*model.Link
	order   []string
	gets    []string
	getErr  error
	listErr error
	// pageRepeat re-sends the last key of each page, as Redis SCAN may.
	pageRepeat bool
}

func newMemoryLinks(links ...*model.Link) *memoryLinks {
	m := &memoryLinks{links: map[string]*model.Link{}}
	for _, l := range links {
		m.put(l)
	}
	return m
}

func (m *memoryLinks) put(l *model.Link) {
	if _, ok := m.links[l.Slug]; !ok {
		m.order = append(m.order, l.Slug)
	}
	m.links[l.Slug] = l
}

func (m *memoryLinks) GetLink(_ context.Context, slug string) (*model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.gets = append(m.gets, slug)
	if m.getErr != nil {
		return nil, m.getErr
	}
	l, ok := m.links[slug]
	if !ok {
		return nil, model.ErrLinkNotFound
	}
	copied := *l
	return &copied, nil
}

func (m *memoryLinks) ListLinkKeys(_ context.Context, cursor string, limit int) ([]string, string, error) {
	if m.listErr != nil {
		return nil, "", m.listErr
	}
	start := 0
	if cursor != "" {
		for i, slug := range m.order {
			if slug == cursor {
				start = i
			}
		}
	}
	end := min(start+limit, len(m.order))
	keys := make([]string, 0, end-start+1)
	for _, slug := range m.order[start:end] {
		keys = append(keys, "link:"+slug)
	}
	if m.pageRepeat && start > 0 {
		keys = append([]string{"link:" + m.order[start-1]}, keys...)
	}
	if end >= len(m.order) {
		return keys, "", nil
	}
	return keys, m.order[end], nil
}

func (m *memoryLinks) GetLinkWithMetadata(_ context.Context, key string) (*model.LinkMetadata, *model.Link, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	l, ok := m.links[strings.TrimPrefix(key, "link:")]
	if !ok {
		return nil, nil, model.ErrLinkNotFound
	}
	copied := *l
	meta := copied.Metadata()
	return &meta, &copied, nil
}

// staticDomains serves a fixed allow-list.
type staticDomains struct {
	configs []model.DomainConfig
	err     error
}

func domainsOf(names ...string) *staticDomains {
	s := &staticDomains{}
	for _, n := range names {
		s.configs = append(s.configs, model.DomainConfig{ID: "domain_" + n, Domain: n})
	}
	return s
}

func (s *staticDomains) Domains(context.Context) ([]model.DomainConfig, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.configs, nil
}

func (s *staticDomains) DomainList(ctx context.Context) ([]string, error) {
	configs, err := s.Domains(ctx)
	if err != nil {
		return nil, err
	}
	return model.DomainNames(configs), nil
}

// recordingLogger captures access logs.
type recordingLogger struct {
	mu      sync.Mutex
	entries []model.AccessLog
	err     error
}

func (r *recordingLogger) Record(_ context.Context, entry model.AccessLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.entries = append(r.entries, entry)
	return nil
}

// scriptedEngine answers aggregate queries from canned results.
type scriptedEngine struct {
	mu      sync.Mutex
	queries []model.AggregateQuery
	answer  func(q model.AggregateQuery) ([]model.AggregateRow, error)
}

func (e *scriptedEngine) Aggregate(_ context.Context, q model.AggregateQuery) ([]model.AggregateRow, error) {
	e.mu.Lock()
	e.queries = append(e.queries, q)
	e.mu.Unlock()
	if e.answer == nil {
		if q.GroupByLink {
			return nil, nil
		}
		return []model.AggregateRow{{}}, nil
	}
	return e.answer(q)
}

func (e *scriptedEngine) grouped() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	n := 0
	for _, q := range e.queries {
		if q.GroupByLink {
			n++
		}
	}
	return n
}

func (e *scriptedEngine) filters() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	var out []string
	for _, q := range e.queries {
		if q.Filter.Kind != model.FilterNone {
			out = append(out, q.Filter.Value)
		}
	}
	sort.Strings(out)
	return out
}
