package service

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/linkrelay/linkrelay/internal/metrics"
	"github.com/linkrelay/linkrelay/internal/model"
)

// Stats strategies.
const (
	StrategyGrouped = "grouped"
	StrategyPerLink = "per_link"
)

// Report names used in metrics.
const (
	ReportLinks   = "links"
	ReportDomains = "domains"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100

	defaultListPageLimit    = 500
	defaultMaxLinks         = 10000
	defaultQueryConcurrency = 8
)

// StatsConfig tunes report assembly.
type StatsConfig struct {
	Strategy         string
	ListPageLimit    int
	MaxLinks         int
	QueryConcurrency int
	Location         *time.Location
}

// PageRequest asks for one page of report rows. The zero value means no pagination.
type PageRequest struct {
	Page     int
	PageSize int
}

func (p PageRequest) requested() bool {
	return p.Page > 0 || p.PageSize > 0
}

// Windows are the two reporting windows of one request.
type Windows struct {
	Today     model.Window
	Yesterday model.Window
}

// ReportWindows returns today and yesterday as calendar days in loc.
func ReportWindows(now time.Time, loc *time.Location) Windows {
	local := now.In(loc)
	y, m, d := local.Date()

	today := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return Windows{
		Today:     model.Window{Start: today, End: time.Date(y, m, d+1, 0, 0, 0, 0, loc)},
		Yesterday: model.Window{Start: time.Date(y, m, d-1, 0, 0, 0, 0, loc), End: today},
	}
}

// StatsService assembles link and domain traffic reports.
type StatsService struct {
	links   LinkStore
	domains DomainConfigSource
	engine  AnalyticsEngine
	cfg     StatsConfig
	logger  *slog.Logger
	metrics metrics.Recorder
	now     func() time.Time
}

// NewStatsService creates a new StatsService.
func NewStatsService(links LinkStore, domains DomainConfigSource, engine AnalyticsEngine, cfg StatsConfig, logger *slog.Logger, recorder metrics.Recorder) *StatsService {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	if cfg.Strategy == "" {
		cfg.Strategy = StrategyGrouped
	}
	if cfg.ListPageLimit <= 0 {
		cfg.ListPageLimit = defaultListPageLimit
	}
	if cfg.MaxLinks <= 0 {
		cfg.MaxLinks = defaultMaxLinks
	}
	if cfg.QueryConcurrency <= 0 {
		cfg.QueryConcurrency = defaultQueryConcurrency
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	return &StatsService{
		links:   links,
		domains: domains,
		engine:  engine,
		cfg:     cfg,
		logger:  logger.With("component", "stats"),
		metrics: recorder,
		now:     time.Now,
	}
}

type linkEntry struct {
	link *model.Link
	meta *model.LinkMetadata
}

// LinkReport returns per-link rows for every enumerated link plus a
// summary computed by ungrouped global queries, so distinct counts are
// not summed across links.
func (s *StatsService) LinkReport(ctx context.Context, page PageRequest) (*model.LinkReport, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveStatsDuration(ReportLinks, time.Since(start))
	}()

	windows := ReportWindows(s.now(), s.cfg.Location)

	var (
		entries       []linkEntry
		summary       model.StatSummary
		todayRows     []model.AggregateRow
		yesterdayRows []model.AggregateRow
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		entries = s.enumerateLinks(gctx)
		return nil
	})
	g.Go(func() error {
		summary.Today = firstRow(s.aggregate(gctx, model.AggregateQuery{Window: windows.Today}))
		return nil
	})
	g.Go(func() error {
		summary.Yesterday = firstRow(s.aggregate(gctx, model.AggregateQuery{Window: windows.Yesterday}))
		return nil
	})
	if s.cfg.Strategy != StrategyPerLink {
		g.Go(func() error {
			todayRows = s.aggregate(gctx, model.AggregateQuery{Window: windows.Today, GroupByLink: true})
			return nil
		})
		g.Go(func() error {
			yesterdayRows = s.aggregate(gctx, model.AggregateQuery{Window: windows.Yesterday, GroupByLink: true})
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var rows []model.LinkStats
	if s.cfg.Strategy == StrategyPerLink {
		rows = s.perLinkRows(ctx, entries, windows)
	} else {
		rows = joinLinkRows(entries, todayRows, yesterdayRows)
	}

	pageRows, pagination := paginate(rows, page)
	return &model.LinkReport{
		Summary:    summary,
		Links:      pageRows,
		Pagination: pagination,
	}, nil
}

// DomainReport returns one row per allow-listed domain. When domain is
// set, only that domain is reported and model.ErrDomainNotFound is
// returned if it is not on the list. The summary is the sum of the rows,
// so an IP seen under two domains is counted twice.
func (s *StatsService) DomainReport(ctx context.Context, domain string, page PageRequest) (*model.DomainReport, error) {
	start := time.Now()
	defer func() {
		s.metrics.ObserveStatsDuration(ReportDomains, time.Since(start))
	}()

	configs, err := s.domains.Domains(ctx)
	if err != nil {
		s.logger.Warn("domain list unavailable, reporting no domains", "error", err)
		s.metrics.IncDependencyFailure(DependencyDomainList)
		configs = nil
	}

	if domain != "" && err == nil {
		configs, err = scopeDomains(configs, domain)
		if err != nil {
			return nil, err
		}
	}

	windows := ReportWindows(s.now(), s.cfg.Location)
	rows := make([]model.DomainStats, len(configs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.QueryConcurrency)
	for i, c := range configs {
		i := i
		rows[i] = model.DomainStats{ID: c.ID, Domain: c.Domain}
		filter := model.Filter{Kind: model.FilterURLContains, Value: c.Domain}
		g.Go(func() error {
			rows[i].Today = firstRow(s.aggregate(gctx, model.AggregateQuery{Filter: filter, Window: windows.Today}))
			return nil
		})
		g.Go(func() error {
			rows[i].Yesterday = firstRow(s.aggregate(gctx, model.AggregateQuery{Filter: filter, Window: windows.Yesterday}))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var summary model.StatSummary
	for _, r := range rows {
		summary.Today = summary.Today.Add(r.Today)
		summary.Yesterday = summary.Yesterday.Add(r.Yesterday)
	}

	pageRows, pagination := paginate(rows, page)
	return &model.DomainReport{
		Summary:    summary,
		Domains:    pageRows,
		Pagination: pagination,
	}, nil
}

func scopeDomains(configs []model.DomainConfig, domain string) ([]model.DomainConfig, error) {
	want, err := model.NormalizeDomain(domain)
	if err != nil {
		return nil, err
	}
	for _, c := range configs {
		if c.Domain == want {
			return []model.DomainConfig{c}, nil
		}
	}
	return nil, model.ErrDomainNotFound
}

// enumerateLinks lists every link key up to MaxLinks and fetches the
// records concurrently. Repeated keys are dropped, failed fetches are
// skipped and a listing failure ends enumeration with what was seen.
func (s *StatsService) enumerateLinks(ctx context.Context) []linkEntry {
	var keys []string
	seen := make(map[string]struct{})
	cursor := ""

list:
	for {
		page, next, err := s.links.ListLinkKeys(ctx, cursor, s.cfg.ListPageLimit)
		if err != nil {
			s.logger.Warn("link enumeration failed, reporting partial list", "error", err, "links_seen", len(keys))
			s.metrics.IncDependencyFailure(DependencyLinkStore)
			break
		}

		for _, key := range page {
			if _, dup := seen[key]; dup {
				continue
			}
			if len(keys) >= s.cfg.MaxLinks {
				s.logger.Warn("link enumeration hit cap", "max_links", s.cfg.MaxLinks)
				break list
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}

		if next == "" {
			break
		}
		cursor = next
	}

	fetched := make([]*linkEntry, len(keys))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.QueryConcurrency)
	for i, key := range keys {
		i, key := i, key
		g.Go(func() error {
			meta, link, err := s.links.GetLinkWithMetadata(gctx, key)
			if err != nil {
				s.logger.Debug("skipping unreadable link", "key", key, "error", err)
				return nil
			}
			fetched[i] = &linkEntry{link: link, meta: meta}
			return nil
		})
	}
	_ = g.Wait()

	entries := make([]linkEntry, 0, len(fetched))
	for _, e := range fetched {
		if e != nil {
			entries = append(entries, *e)
		}
	}
	return entries
}

// perLinkRows issues two link-id queries per link.
func (s *StatsService) perLinkRows(ctx context.Context, entries []linkEntry, windows Windows) []model.LinkStats {
	rows := make([]model.LinkStats, len(entries))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.cfg.QueryConcurrency)
	for i, e := range entries {
		i := i
		rows[i] = newLinkRow(e)
		filter := model.Filter{Kind: model.FilterLinkID, Value: e.link.ID}
		g.Go(func() error {
			rows[i].Today = firstRow(s.aggregate(gctx, model.AggregateQuery{Filter: filter, Window: windows.Today}))
			return nil
		})
		g.Go(func() error {
			rows[i].Yesterday = firstRow(s.aggregate(gctx, model.AggregateQuery{Filter: filter, Window: windows.Yesterday}))
			return nil
		})
	}
	_ = g.Wait()

	return orderByTraffic(rows)
}

// joinLinkRows merges grouped results with the enumerated links.
// Ids with data but no link record get a bare row after the known links.
func joinLinkRows(entries []linkEntry, todayRows, yesterdayRows []model.AggregateRow) []model.LinkStats {
	today := indexRows(todayRows)
	yesterday := indexRows(yesterdayRows)

	known := make(map[string]struct{}, len(entries))
	rows := make([]model.LinkStats, 0, len(entries))
	for _, e := range entries {
		row := newLinkRow(e)
		row.Today = today[e.link.ID]
		row.Yesterday = yesterday[e.link.ID]
		known[e.link.ID] = struct{}{}
		rows = append(rows, row)
	}

	active, idle := splitByTraffic(rows)

	addOrphan := func(id string) {
		if _, ok := known[id]; ok || id == "" {
			return
		}
		known[id] = struct{}{}
		active = append(active, model.LinkStats{
			ID:        id,
			Today:     today[id],
			Yesterday: yesterday[id],
		})
	}
	for _, r := range todayRows {
		addOrphan(r.LinkID)
	}
	for _, r := range yesterdayRows {
		addOrphan(r.LinkID)
	}

	return append(active, idle...)
}

func newLinkRow(e linkEntry) model.LinkStats {
	row := model.LinkStats{ID: e.link.ID, Slug: e.link.Slug, URL: e.link.URL, Comment: e.link.Comment}
	if e.meta != nil {
		row.URL = e.meta.URL
		row.Comment = e.meta.Comment
	}
	return row
}

func orderByTraffic(rows []model.LinkStats) []model.LinkStats {
	active, idle := splitByTraffic(rows)
	return append(active, idle...)
}

// splitByTraffic keeps enumeration order within each group.
func splitByTraffic(rows []model.LinkStats) (active, idle []model.LinkStats) {
	active = make([]model.LinkStats, 0, len(rows))
	for _, r := range rows {
		if r.Today.IsZero() && r.Yesterday.IsZero() {
			idle = append(idle, r)
		} else {
			active = append(active, r)
		}
	}
	return active, idle
}

func indexRows(rows []model.AggregateRow) map[string]model.StatWindow {
	out := make(map[string]model.StatWindow, len(rows))
	for _, r := range rows {
		out[r.LinkID] = out[r.LinkID].Add(r.StatWindow)
	}
	return out
}

// aggregate runs q and logs failures. A failed query yields no rows.
func (s *StatsService) aggregate(ctx context.Context, q model.AggregateQuery) []model.AggregateRow {
	rows, err := s.engine.Aggregate(ctx, q)
	if err != nil {
		s.logger.Warn("aggregate query failed, using zero window",
			"error", err,
			"filter", q.Filter.Value,
			"grouped", q.GroupByLink,
			"window_start", q.Window.Start,
		)
		s.metrics.IncDependencyFailure(DependencyAnalytics)
		return nil
	}
	return rows
}

func firstRow(rows []model.AggregateRow) model.StatWindow {
	if len(rows) == 0 {
		return model.StatWindow{}
	}
	return rows[0].StatWindow
}

// paginate slices rows for page. Without a page request every row is
// returned and the pagination block is omitted.
func paginate[T any](rows []T, page PageRequest) ([]T, *model.Pagination) {
	if rows == nil {
		rows = []T{}
	}
	if !page.requested() {
		return rows, nil
	}

	size := page.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	size = min(size, MaxPageSize)
	current := max(page.Page, 1)

	total := len(rows)
	from := total
	if current-1 <= total/size {
		from = min((current-1)*size, total)
	}
	to := min(from+size, total)

	return rows[from:to], &model.Pagination{
		Page:       current,
		PageSize:   size,
		Total:      total,
		TotalPages: (total + size - 1) / size,
	}
}
