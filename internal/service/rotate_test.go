package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}

func TestSubdomainLabel(t *testing.T) {
	t.Parallel()

	// md5("20240305") = a5a74deb62935169369f26118b6812b8
	assert.Equal(t, "8b6812b8", SubdomainLabel("20240305"))
	assert.Len(t, SubdomainLabel("20240306"), 8)
	assert.NotEqual(t, SubdomainLabel("20240305"), SubdomainLabel("20240306"))
}

func TestDateKey_UsesRotatorZone(t *testing.T) {
	t.Parallel()

	tokyo := time.FixedZone("JST", 9*60*60)
	// 2024-03-04 20:00 UTC is already 2024-03-05 in Tokyo.
	r := NewSubdomainRotator(tokyo, fixedClock(time.Date(2024, 3, 4, 20, 0, 0, 0, time.UTC)))
	assert.Equal(t, SubdomainLabel("20240305"), r.Label())
}

func TestSubdomainRotator_Rotate(t *testing.T) {
	t.Parallel()

	r := NewSubdomainRotator(time.UTC, fixedClock(time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)))
	allowed := []string{"example.com"}

	tests := []struct {
		name    string
		in      string
		want    string
		rotated bool
	}{
		{"rotates", "https://shop.example.com/x", "https://8b6812b8.example.com/x", true},
		{"deep subdomain", "https://a.b.example.com/", "https://8b6812b8.example.com/", true},
		{"keeps port path query fragment", "http://shop.example.com:8080/a/b?x=1&y=%20#frag", "http://8b6812b8.example.com:8080/a/b?x=1&y=%20#frag", true},
		{"keeps userinfo", "https://u:p@shop.example.com/x", "https://u:p@8b6812b8.example.com/x", true},
		{"mixed case host", "https://Shop.Example.COM/X", "https://8b6812b8.example.com/X", true},
		{"bare root domain", "https://example.com/x", "https://example.com/x", false},
		{"not allowed", "https://shop.other.org/x", "https://shop.other.org/x", false},
		{"suffix lookalike", "https://shop.notexample.com/x", "https://shop.notexample.com/x", false},
		{"unparsable", "https://%zz.example.com/", "https://%zz.example.com/", false},
		{"no host", "/relative/path", "/relative/path", false},
		{"ipv6", "http://[2001:db8::1]/", "http://[2001:db8::1]/", false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			got, rotated := r.Rotate(tt.in, allowed)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.rotated, rotated)
		})
	}
}

func TestSubdomainRotator_EmptyAllowListIsIdentity(t *testing.T) {
	t.Parallel()

	r := NewSubdomainRotator(time.UTC, nil)
	got, rotated := r.Rotate("https://shop.example.com/x", nil)
	assert.Equal(t, "https://shop.example.com/x", got)
	assert.False(t, rotated)
}

func TestSubdomainRotator_StableWithinDayChangesAcrossDays(t *testing.T) {
	t.Parallel()

	allowed := []string{"example.com"}
	morning := NewSubdomainRotator(time.UTC, fixedClock(time.Date(2024, 3, 5, 0, 0, 1, 0, time.UTC)))
	evening := NewSubdomainRotator(time.UTC, fixedClock(time.Date(2024, 3, 5, 23, 59, 59, 0, time.UTC)))
	nextDay := NewSubdomainRotator(time.UTC, fixedClock(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)))

	a, _ := morning.Rotate("https://shop.example.com/x", allowed)
	b, _ := evening.Rotate("https://shop.example.com/x", allowed)
	c, _ := nextDay.Rotate("https://shop.example.com/x", allowed)

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
}
