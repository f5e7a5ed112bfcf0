// Package model defines domain entities for the application.
package model

import (
	"errors"
	"strings"
	"time"
)

// MaxURLLength is the longest destination URL a link may carry.
const MaxURLLength = 2048

// Link errors.
var (
	ErrLinkNotFound = errors.New("link not found")
	ErrInvalidLink  = errors.New("invalid link record")
)

// Link is a short link record as stored in the link store.
// Links are written by an external creation path and never mutated here.
type Link struct {
	ID        string `json:"id"`
	Slug      string `json:"slug"`
	URL       string `json:"url"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt int64  `json:"createdAt,omitempty"`
	UpdatedAt int64  `json:"updatedAt,omitempty"`
}

// LinkMetadata is the small metadata stored next to a link record.
// It lets listings show a link without decoding the full value.
type LinkMetadata struct {
	URL     string `json:"url"`
	Comment string `json:"comment,omitempty"`
}

// Metadata returns the metadata view of the link.
func (l *Link) Metadata() LinkMetadata {
	return LinkMetadata{URL: l.URL, Comment: l.Comment}
}

// Validate checks the invariants every stored link must hold.
func (l *Link) Validate() error {
	if l.ID == "" || l.Slug == "" {
		return ErrInvalidLink
	}
	if strings.TrimSpace(l.URL) == "" || len(l.URL) > MaxURLLength {
		return ErrInvalidLink
	}
	return nil
}

// Touch sets the creation and update timestamps if they are unset.
func (l *Link) Touch(now time.Time) {
	if l.CreatedAt == 0 {
		l.CreatedAt = now.Unix()
	}
	if l.UpdatedAt == 0 {
		l.UpdatedAt = l.CreatedAt
	}
}
