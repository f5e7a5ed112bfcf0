// Command admin performs one-off operator tasks:
//
//	go run scripts/admin.go -hash-token            # reads SITE_TOKEN, prints SITE_TOKEN_HASH
//	go run scripts/admin.go -put-link slug=https://example.com/page
//	go run scripts/admin.go -list-links
//	go run scripts/admin.go -delete-link slug
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/linkrelay/linkrelay/internal/auth"
	"github.com/linkrelay/linkrelay/internal/kv"
	"github.com/linkrelay/linkrelay/internal/model"
)

func main() {
	var (
		hashToken = flag.Bool("hash-token", false, "print an argon2id hash of SITE_TOKEN for SITE_TOKEN_HASH")
		putLink   = flag.String("put-link", "", "store a link given as slug=url")
		comment   = flag.String("comment", "", "comment stored with -put-link")
		listLinks = flag.Bool("list-links", false, "print every stored slug")
		delLink   = flag.String("delete-link", "", "remove the link with this slug")
		redisURL  = flag.String("redis-url", os.Getenv("REDIS_URL"), "Redis connection string")
	)
	flag.Parse()

	var err error
	switch {
	case *hashToken:
		err = printTokenHash(os.Getenv("SITE_TOKEN"))
	case *putLink != "":
		err = storeLink(*redisURL, *putLink, *comment)
	case *listLinks:
		err = printLinks(*redisURL)
	case *delLink != "":
		err = deleteLink(*redisURL, *delLink)
	default:
		flag.Usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}
}

func printTokenHash(token string) error {
	if len(token) < auth.MinTokenLength {
		return fmt.Errorf("SITE_TOKEN must be at least %d characters", auth.MinTokenLength)
	}
	hash, err := auth.HashToken(token)
	if err != nil {
		return fmt.Errorf("hash token: %w", err)
	}
	fmt.Println(hash)
	return nil
}

func storeLink(redisURL, spec, comment string) error {
	slug, target, ok := strings.Cut(spec, "=")
	if !ok || slug == "" || target == "" {
		return fmt.Errorf("-put-link expects slug=url, got %q", spec)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := connect(ctx, redisURL)
	if err != nil {
		return err
	}
	defer store.Close()

	link := &model.Link{
		ID:      ulid.Make().String(),
		Slug:    slug,
		URL:     target,
		Comment: comment,
	}
	link.Touch(time.Now())
	if err := store.PutLink(ctx, link); err != nil {
		return fmt.Errorf("put link: %w", err)
	}

	fmt.Printf("stored %s -> %s (id %s)\n", slug, target, link.ID)
	return nil
}

func printLinks(redisURL string) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	store, err := connect(ctx, redisURL)
	if err != nil {
		return err
	}
	defer store.Close()

	slugs, err := collectSlugs(ctx, store, 500)
	if err != nil {
		return err
	}
	for _, slug := range slugs {
		fmt.Println(slug)
	}
	return nil
}

func deleteLink(redisURL, slug string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	store, err := connect(ctx, redisURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.DeleteLink(ctx, slug); err != nil {
		return err
	}
	fmt.Printf("deleted %s\n", slug)
	return nil
}

type keyLister interface {
	ListLinkKeys(ctx context.Context, cursor string, limit int) ([]string, string, error)
}

// collectSlugs walks every page of link keys and returns the distinct slugs, sorted.
func collectSlugs(ctx context.Context, lister keyLister, pageSize int) ([]string, error) {
	seen := make(map[string]struct{})
	cursor := ""
	for {
		keys, next, err := lister.ListLinkKeys(ctx, cursor, pageSize)
		if err != nil {
			return nil, fmt.Errorf("list link keys: %w", err)
		}
		for _, key := range keys {
			seen[kv.SlugFromKey(key)] = struct{}{}
		}
		if next == "" {
			break
		}
		cursor = next
	}

	slugs := make([]string, 0, len(seen))
	for slug := range seen {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)
	return slugs, nil
}

func connect(ctx context.Context, redisURL string) (*kv.Store, error) {
	if redisURL == "" {
		return nil, fmt.Errorf("REDIS_URL is required")
	}
	store, err := kv.New(ctx, redisURL)
	if err != nil {
		return nil, fmt.Errorf("connect redis: %w", err)
	}
	return store, nil
}
