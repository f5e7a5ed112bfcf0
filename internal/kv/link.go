package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/redis/go-redis/v9"

	"github.com/linkrelay/linkrelay/internal/model"
)

// Link record layout: hash link:{slug} with a JSON value and JSON metadata.
const (
	LinkKeyPrefix = "link:"

	fieldValue    = "value"
	fieldMetadata = "metadata"
)

// LinkKey returns the store key of a slug.
func LinkKey(slug string) string {
	return LinkKeyPrefix + slug
}

// SlugFromKey extracts the slug from a link key.
func SlugFromKey(key string) string {
	return strings.TrimPrefix(key, LinkKeyPrefix)
}

// GetLink retrieves a link by slug.
// Returns model.ErrLinkNotFound if no record exists.
func (s *Store) GetLink(ctx context.Context, slug string) (*model.Link, error) {
	raw, err := s.client.HGet(ctx, LinkKey(slug), fieldValue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, model.ErrLinkNotFound
		}
		return nil, fmt.Errorf("redis hget failed: %w", err)
	}

	return decodeLink(raw)
}

// GetLinkWithMetadata retrieves a link and its metadata by full key.
// Records written without metadata get it derived from the value.
func (s *Store) GetLinkWithMetadata(ctx context.Context, key string) (*model.LinkMetadata, *model.Link, error) {
	values, err := s.client.HMGet(ctx, key, fieldValue, fieldMetadata).Result()
	if err != nil {
		return nil, nil, fmt.Errorf("redis hmget failed: %w", err)
	}

	raw, ok := values[0].(string)
	if !ok {
		return nil, nil, model.ErrLinkNotFound
	}

	link, err := decodeLink(raw)
	if err != nil {
		return nil, nil, err
	}

	meta := link.Metadata()
	if rawMeta, ok := values[1].(string); ok && rawMeta != "" {
		if err := json.Unmarshal([]byte(rawMeta), &meta); err != nil {
			return nil, nil, fmt.Errorf("decode link metadata: %w", err)
		}
	}

	return &meta, link, nil
}

// ListLinkKeys returns one page of link keys and the cursor of the next page.
// An empty next cursor means the listing is exhausted. A page may contain
// keys already returned by an earlier page.
func (s *Store) ListLinkKeys(ctx context.Context, cursor string, limit int) ([]string, string, error) {
	var start uint64
	if cursor != "" {
		parsed, err := strconv.ParseUint(cursor, 10, 64)
		if err != nil {
			return nil, "", ErrInvalidCursor
		}
		start = parsed
	}

	keys, next, err := s.client.Scan(ctx, start, LinkKeyPrefix+"*", int64(limit)).Result()
	if err != nil {
		return nil, "", fmt.Errorf("failed to scan link keys: %w", err)
	}

	if next == 0 {
		return keys, "", nil
	}
	return keys, strconv.FormatUint(next, 10), nil
}

// PutLink stores a link record with its metadata.
// This is the storage primitive of the external creation path.
func (s *Store) PutLink(ctx context.Context, link *model.Link) error {
	if err := link.Validate(); err != nil {
		return err
	}

	value, err := json.Marshal(link)
	if err != nil {
		return fmt.Errorf("encode link: %w", err)
	}
	meta, err := json.Marshal(link.Metadata())
	if err != nil {
		return fmt.Errorf("encode link metadata: %w", err)
	}

	err = s.client.HSet(ctx, LinkKey(link.Slug), map[string]any{
		fieldValue:    string(value),
		fieldMetadata: string(meta),
	}).Err()
	if err != nil {
		return fmt.Errorf("failed to store link: %w", err)
	}

	return nil
}

// DeleteLink removes a link record.
func (s *Store) DeleteLink(ctx context.Context, slug string) error {
	if err := s.client.Del(ctx, LinkKey(slug)).Err(); err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	return nil
}

func decodeLink(raw string) (*model.Link, error) {
	var link model.Link
	if err := json.Unmarshal([]byte(raw), &link); err != nil {
		return nil, fmt.Errorf("decode link: %w", err)
	}
	return &link, nil
}
