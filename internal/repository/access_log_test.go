package repository

import (
	"strings"
	"testing"
	"time"

	"github.com/linkrelay/linkrelay/internal/model"
)

func TestBuildAggregateSQL(t *testing.T) {
	t.Parallel()

	window := model.Window{
		Start: time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC),
		End:   time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC),
	}

	tests := []struct {
		name     string
		query    model.AggregateQuery
		contains []string
		excludes []string
		wantArgs int
		lastArg  any
	}{
		{
			name:     "global",
			query:    model.AggregateQuery{Window: window},
			contains: []string{"COUNT(DISTINCT ip) AS uv", "created_at >= $1 AND created_at < $2"},
			excludes: []string{"GROUP BY", "LIKE", "link_id ="},
			wantArgs: 2,
		},
		{
			name:     "grouped",
			query:    model.AggregateQuery{Window: window, GroupByLink: true},
			contains: []string{"SELECT link_id, ", "GROUP BY link_id", "link_id <> ''"},
			wantArgs: 2,
		},
		{
			name:     "url contains",
			query:    model.AggregateQuery{Window: window, Filter: model.Filter{Kind: model.FilterURLContains, Value: "example.com"}},
			contains: []string{`url LIKE $3 ESCAPE '\'`},
			wantArgs: 3,
			lastArg:  "%example.com%",
		},
		{
			name:     "link id",
			query:    model.AggregateQuery{Window: window, Filter: model.Filter{Kind: model.FilterLinkID, Value: "abc123"}},
			contains: []string{"link_id = $3"},
			excludes: []string{"GROUP BY"},
			wantArgs: 3,
			lastArg:  "abc123",
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			sql, args := BuildAggregateSQL(`"access_logs"`, tt.query)

			if !strings.Contains(sql, `FROM "access_logs"`) {
				t.Errorf("sql does not select from the table: %s", sql)
			}
			for _, s := range tt.contains {
				if !strings.Contains(sql, s) {
					t.Errorf("sql missing %q: %s", s, sql)
				}
			}
			for _, s := range tt.excludes {
				if strings.Contains(sql, s) {
					t.Errorf("sql unexpectedly contains %q: %s", s, sql)
				}
			}
			if len(args) != tt.wantArgs {
				t.Fatalf("len(args) = %d, want %d", len(args), tt.wantArgs)
			}
			if args[0] != window.Start || args[1] != window.End {
				t.Errorf("window args = %v, %v", args[0], args[1])
			}
			if tt.lastArg != nil && args[len(args)-1] != tt.lastArg {
				t.Errorf("filter arg = %v, want %v", args[len(args)-1], tt.lastArg)
			}
		})
	}
}

func TestEscapeLike(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"example.com": "example.com",
		"100%_sure":   `100\%\_sure`,
		`a\b`:         `a\\b`,
	}
	for in, want := range tests {
		if got := escapeLike(in); got != want {
			t.Errorf("escapeLike(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestNewAccessLogRepository_QuotesDataset(t *testing.T) {
	t.Parallel()

	r := NewAccessLogRepository(nil, "")
	if r.table != `"access_logs"` {
		t.Errorf("default table = %s", r.table)
	}

	r = NewAccessLogRepository(nil, `logs"; DROP TABLE x; --`)
	if !strings.HasPrefix(r.table, `"`) || !strings.HasSuffix(r.table, `"`) || strings.Count(r.table, `""`) != 1 {
		t.Errorf("dataset not quoted safely: %s", r.table)
	}
}
