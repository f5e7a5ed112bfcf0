package repository

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/lib/pq"

	"github.com/linkrelay/linkrelay/internal/model"
)

// DefaultDataset is the access log table created by the migrations.
const DefaultDataset = "access_logs"

// AccessLogRepository stores redirect events and answers aggregate queries over them.
type AccessLogRepository struct {
	repo  *Repository
	table string
}

// NewAccessLogRepository creates a new AccessLogRepository reading and
// writing the given dataset table. An empty dataset means DefaultDataset.
func NewAccessLogRepository(repo *Repository, dataset string) *AccessLogRepository {
	if dataset == "" {
		dataset = DefaultDataset
	}
	return &AccessLogRepository{repo: repo, table: pq.QuoteIdentifier(dataset)}
}

// BulkInsert inserts access logs with idempotency via ON CONFLICT DO NOTHING.
func (r *AccessLogRepository) BulkInsert(ctx context.Context, entries []*model.AccessLog) error {
	if len(entries) == 0 {
		return nil
	}

	query := `
		INSERT INTO ` + r.table + ` (
			id, event_id, link_id, slug, url, ip, user_agent,
			referer, country, sample_interval, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		ON CONFLICT (event_id) DO NOTHING
	`

	batch := &pgx.Batch{}
	for _, e := range entries {
		interval := e.SampleInterval
		if interval < 1 {
			interval = 1
		}
		batch.Queue(query,
			e.ID,
			e.EventID,
			e.LinkID,
			e.Slug,
			e.URL,
			e.IP,
			e.UserAgent,
			e.Referer,
			e.Country,
			interval,
			e.Timestamp,
		)
	}

	results := r.repo.pool.SendBatch(ctx, batch)
	defer results.Close()

	for i := range entries {
		if _, err := results.Exec(); err != nil {
			return fmt.Errorf("batch insert access log %d: %w", i, err)
		}
	}

	return nil
}

// Aggregate runs q against the access log.
// Ungrouped queries always return exactly one row.
func (r *AccessLogRepository) Aggregate(ctx context.Context, q model.AggregateQuery) ([]model.AggregateRow, error) {
	sql, args := BuildAggregateSQL(r.table, q)

	rows, err := r.repo.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("aggregate access logs: %w", err)
	}
	defer rows.Close()

	var out []model.AggregateRow
	for rows.Next() {
		var row model.AggregateRow
		if q.GroupByLink {
			err = rows.Scan(&row.LinkID, &row.PV, &row.UV, &row.IP)
		} else {
			err = rows.Scan(&row.PV, &row.UV, &row.IP)
		}
		if err != nil {
			return nil, fmt.Errorf("scan aggregate row: %w", err)
		}
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate aggregate rows: %w", err)
	}

	return out, nil
}

// BuildAggregateSQL translates q into a query over table, which must
// already be a quoted identifier. pv sums the sample interval; uv and
// ip are both the distinct count of client IPs.
func BuildAggregateSQL(table string, q model.AggregateQuery) (string, []any) {
	var b strings.Builder
	args := []any{q.Window.Start, q.Window.End}

	b.WriteString("SELECT ")
	if q.GroupByLink {
		b.WriteString("link_id, ")
	}
	b.WriteString("COALESCE(SUM(sample_interval), 0) AS pv, COUNT(DISTINCT ip) AS uv, COUNT(DISTINCT ip) AS ip")
	b.WriteString(" FROM ")
	b.WriteString(table)
	b.WriteString(" WHERE created_at >= $1 AND created_at < $2")

	switch q.Filter.Kind {
	case model.FilterURLContains:
		args = append(args, "%"+escapeLike(q.Filter.Value)+"%")
		fmt.Fprintf(&b, ` AND url LIKE $%d ESCAPE '\'`, len(args))
	case model.FilterLinkID:
		args = append(args, q.Filter.Value)
		fmt.Fprintf(&b, " AND link_id = $%d", len(args))
	}

	if q.GroupByLink {
		b.WriteString(" AND link_id <> '' GROUP BY link_id")
	}

	return b.String(), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}
