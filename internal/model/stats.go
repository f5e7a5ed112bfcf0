package model

import "time"

// StatWindow holds the traffic counters of one scope over one time window.
// UV and IP are both the distinct count of client IPs.
type StatWindow struct {
	PV int64 `json:"pv"`
	UV int64 `json:"uv"`
	IP int64 `json:"ip"`
}

// Add returns the element-wise sum of w and o.
func (w StatWindow) Add(o StatWindow) StatWindow {
	return StatWindow{PV: w.PV + o.PV, UV: w.UV + o.UV, IP: w.IP + o.IP}
}

// IsZero reports whether every counter is zero.
func (w StatWindow) IsZero() bool {
	return w.PV == 0 && w.UV == 0 && w.IP == 0
}

// StatSummary pairs the today and yesterday windows of a scope.
type StatSummary struct {
	Today     StatWindow `json:"today"`
	Yesterday StatWindow `json:"yesterday"`
}

// LinkStats is one row of the link report.
type LinkStats struct {
	ID        string     `json:"id"`
	Slug      string     `json:"slug,omitempty"`
	URL       string     `json:"url,omitempty"`
	Comment   string     `json:"comment,omitempty"`
	Today     StatWindow `json:"today"`
	Yesterday StatWindow `json:"yesterday"`
}

// DomainStats is one row of the domain report.
type DomainStats struct {
	ID        string     `json:"id"`
	Domain    string     `json:"domain"`
	Today     StatWindow `json:"today"`
	Yesterday StatWindow `json:"yesterday"`
}

// Pagination describes the slice of a report that was returned.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"pageSize"`
	Total      int `json:"total"`
	TotalPages int `json:"totalPages"`
}

// LinkReport is the response of the link stats query.
type LinkReport struct {
	Summary    StatSummary `json:"summary"`
	Links      []LinkStats `json:"links"`
	Pagination *Pagination `json:"pagination,omitempty"`
}

// DomainReport is the response of the domain stats query.
type DomainReport struct {
	Summary    StatSummary   `json:"summary"`
	Domains    []DomainStats `json:"domains"`
	Pagination *Pagination   `json:"pagination,omitempty"`
}

// FilterKind selects how an aggregate query narrows the access log.
type FilterKind int

const (
	// FilterNone aggregates over every row in the window.
	FilterNone FilterKind = iota
	// FilterURLContains keeps rows whose URL contains Filter.Value.
	FilterURLContains
	// FilterLinkID keeps rows whose link id equals Filter.Value.
	FilterLinkID
)

// Filter narrows an aggregate query.
type Filter struct {
	Kind  FilterKind
	Value string
}

// Window is a closed-open time range [Start, End).
type Window struct {
	Start time.Time
	End   time.Time
}

// AggregateQuery asks the analytics engine for pv/uv/ip over a window.
type AggregateQuery struct {
	Filter      Filter
	Window      Window
	GroupByLink bool
}

// AggregateRow is one result row. LinkID is set only for grouped queries.
type AggregateRow struct {
	LinkID string
	StatWindow
}
