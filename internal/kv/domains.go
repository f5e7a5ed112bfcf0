package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/linkrelay/linkrelay/internal/model"
)

// DomainListKey holds the JSON array of rotatable root domains.
const DomainListKey = "config:subdomain_domains"

const maxDomainTxRetries = 5

// Domains returns the allow-list in stored order. A missing key is an empty list.
func (s *Store) Domains(ctx context.Context) ([]model.DomainConfig, error) {
	return readDomains(ctx, s.client)
}

// DomainList returns just the root-domain strings of the allow-list.
func (s *Store) DomainList(ctx context.Context) ([]string, error) {
	configs, err := s.Domains(ctx)
	if err != nil {
		return nil, err
	}
	return model.DomainNames(configs), nil
}

// AddDomain normalizes raw and appends it to the allow-list.
// Returns model.ErrDomainExists if the root domain is already listed.
func (s *Store) AddDomain(ctx context.Context, raw string) (model.DomainConfig, error) {
	created, err := model.NewDomainConfig(raw, time.Now())
	if err != nil {
		return model.DomainConfig{}, err
	}

	err = s.updateDomains(ctx, func(current []model.DomainConfig) ([]model.DomainConfig, error) {
		for _, d := range current {
			if d.Domain == created.Domain {
				return nil, model.ErrDomainExists
			}
		}
		return append(current, created), nil
	})
	if err != nil {
		return model.DomainConfig{}, err
	}

	return created, nil
}

// DeleteDomain removes the allow-list entry with the given id.
// Returns model.ErrDomainNotFound if no entry matches.
func (s *Store) DeleteDomain(ctx context.Context, id string) error {
	return s.updateDomains(ctx, func(current []model.DomainConfig) ([]model.DomainConfig, error) {
		kept := make([]model.DomainConfig, 0, len(current))
		for _, d := range current {
			if d.ID != id {
				kept = append(kept, d)
			}
		}
		if len(kept) == len(current) {
			return nil, model.ErrDomainNotFound
		}
		return kept, nil
	})
}

// updateDomains applies fn to the allow-list under an optimistic WATCH transaction.
func (s *Store) updateDomains(ctx context.Context, fn func([]model.DomainConfig) ([]model.DomainConfig, error)) error {
	txf := func(tx *redis.Tx) error {
		current, err := readDomains(ctx, tx)
		if err != nil {
			return err
		}

		updated, err := fn(current)
		if err != nil {
			return err
		}

		data, err := json.Marshal(updated)
		if err != nil {
			return fmt.Errorf("encode domain list: %w", err)
		}

		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, DomainListKey, string(data), 0)
			return nil
		})
		return err
	}

	for i := 0; i < maxDomainTxRetries; i++ {
		err := s.client.Watch(ctx, txf, DomainListKey)
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		return err
	}

	return errors.New("domain list update conflicted too many times")
}

// getter is satisfied by both *redis.Client and *redis.Tx.
type getter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

func readDomains(ctx context.Context, c getter) ([]model.DomainConfig, error) {
	raw, err := c.Get(ctx, DomainListKey).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []model.DomainConfig{}, nil
		}
		return nil, fmt.Errorf("redis get domain list failed: %w", err)
	}

	var configs []model.DomainConfig
	if err := json.Unmarshal([]byte(raw), &configs); err != nil {
		return nil, fmt.Errorf("decode domain list: %w", err)
	}
	return configs, nil
}
