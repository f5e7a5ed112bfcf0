// Package analytics carries redirect access logs from the redirect path
// into the analytics store over a Redis stream.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkrelay/linkrelay/internal/metrics"
	"github.com/linkrelay/linkrelay/internal/model"
)

const (
	// StreamKey is the Redis stream for access logs.
	StreamKey = "stream:access_logs"

	// DeadLetterStreamKey is the Redis stream for poison messages.
	DeadLetterStreamKey = "stream:access_logs:dlq"

	// MaxStreamLen is the approximate max length of the stream.
	MaxStreamLen = 100000

	// PublishTimeout bounds how long a redirect waits on Redis.
	PublishTimeout = 100 * time.Millisecond

	maxMetaLength = 500
)

// AccessLogPayload is the compact stream encoding of model.AccessLog.
type AccessLogPayload struct {
	LinkID         string `json:"lid"`
	Slug           string `json:"s"`
	URL            string `json:"u"`
	IP             string `json:"ip"`
	UserAgent      string `json:"ua,omitempty"`
	Referer        string `json:"r,omitempty"`
	Country        string `json:"cc,omitempty"`
	SampleInterval int    `json:"si,omitempty"`
	Timestamp      int64  `json:"t"` // Unix milliseconds
}

// NewPayload trims entry to what the stream stores.
func NewPayload(entry model.AccessLog) AccessLogPayload {
	ts := entry.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	return AccessLogPayload{
		LinkID:         entry.LinkID,
		Slug:           entry.Slug,
		URL:            entry.URL,
		IP:             entry.IP,
		UserAgent:      TruncateUserAgent(entry.UserAgent),
		Referer:        SanitizeReferer(entry.Referer),
		Country:        ExtractCountryCode(entry.Country),
		SampleInterval: max(entry.SampleInterval, 1),
		Timestamp:      ts.UnixMilli(),
	}
}

// Publisher appends access logs to the Redis stream.
// It is the AccessLogger of the redirect path.
type Publisher struct {
	redis   *redis.Client
	logger  *slog.Logger
	metrics metrics.Recorder
	timeout time.Duration
}

// NewPublisher creates a new access log publisher.
func NewPublisher(client *redis.Client, logger *slog.Logger, recorder metrics.Recorder) *Publisher {
	if recorder == nil {
		recorder = metrics.NewNoop()
	}
	return &Publisher{
		redis:   client,
		logger:  logger.With("component", "analytics.publisher"),
		metrics: recorder,
		timeout: PublishTimeout,
	}
}

// Record publishes entry, waiting at most PublishTimeout.
// The caller decides what a failure means; Record only reports it.
func (p *Publisher) Record(ctx context.Context, entry model.AccessLog) error {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	streamID, err := p.Publish(ctx, NewPayload(entry))
	if err != nil {
		p.metrics.IncAccessLogPublished("dropped")
		return err
	}

	p.logger.Debug("access log published", "slug", entry.Slug, "stream_id", streamID)
	p.metrics.IncAccessLogPublished("success")
	return nil
}

// Publish adds a payload to the stream synchronously.
func (p *Publisher) Publish(ctx context.Context, payload AccessLogPayload) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal access log: %w", err)
	}

	id, err := p.redis.XAdd(ctx, &redis.XAddArgs{
		Stream: StreamKey,
		MaxLen: MaxStreamLen,
		Approx: true,
		ID:     "*",
		Values: map[string]any{"payload": string(data)},
	}).Result()
	if err != nil {
		return "", fmt.Errorf("xadd: %w", err)
	}

	return id, nil
}

// SanitizeReferer keeps scheme, host and path of a referer.
func SanitizeReferer(ref string) string {
	if ref == "" {
		return ""
	}

	parsed, err := url.Parse(ref)
	if err != nil {
		return ""
	}
	parsed.RawQuery = ""
	parsed.Fragment = ""
	parsed.User = nil

	return truncate(parsed.String(), maxMetaLength)
}

// TruncateUserAgent caps the user agent at 500 bytes.
func TruncateUserAgent(ua string) string {
	return truncate(ua, maxMetaLength)
}

// ExtractCountryCode accepts a two-letter country header value such as CF-IPCountry.
func ExtractCountryCode(v string) string {
	if len(v) == 2 {
		return strings.ToUpper(v)
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
