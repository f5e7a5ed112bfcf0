package model

import "time"

// AccessLog is a single redirect event, written to the analytics store.
type AccessLog struct {
	ID      string `json:"id"`       // ULID (time-sortable)
	EventID string `json:"event_id"` // Idempotency key (Redis stream ID)

	LinkID string `json:"link_id"`
	Slug   string `json:"slug"`
	URL    string `json:"url"` // destination before subdomain rotation

	IP        string `json:"ip"`
	UserAgent string `json:"user_agent,omitempty"`
	Referer   string `json:"referer,omitempty"`
	Country   string `json:"country,omitempty"` // ISO 3166-1 alpha-2

	// SampleInterval is the number of real hits this row stands for.
	SampleInterval int `json:"sample_interval"`

	Timestamp time.Time `json:"timestamp"`
}
