package handler

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/linkrelay/linkrelay/internal/middleware"
	"github.com/linkrelay/linkrelay/internal/service"
	"github.com/linkrelay/linkrelay/internal/testutil"
)

type fakeRedirector struct {
	decision service.Decision
	got      service.RedirectRequest
}

func (f *fakeRedirector) Decide(_ context.Context, req service.RedirectRequest) service.Decision {
	f.got = req
	return f.decision
}

func TestRedirectHandler_Matched(t *testing.T) {
	svc := &fakeRedirector{decision: service.Decision{
		Matched:    true,
		Target:     "https://x.example.com/a",
		StatusCode: http.StatusMovedPermanently,
		Degraded:   []service.DependencyFailure{{Dependency: service.DependencyAccessLog, Err: errors.New("timeout")}},
	}}
	h := NewRedirectHandler(svc, testutil.DiscardLogger())

	req := httptest.NewRequest(http.MethodGet, "/abc?utm=1", nil)
	req.RemoteAddr = "203.0.113.5:4000"
	req.Header.Set("User-Agent", "Agent/1.0")
	req.Header.Set("Referer", "https://ref.example/page")
	req.Header.Set("CF-IPCountry", "DE")
	rec := httptest.NewRecorder()

	h.Redirect(rec, req)

	if rec.Code != http.StatusMovedPermanently {
		t.Fatalf("expected status 301, got %d", rec.Code)
	}
	if loc := rec.Header().Get("Location"); loc != "https://x.example.com/a" {
		t.Errorf("Location = %q", loc)
	}
	if cc := rec.Header().Get("Cache-Control"); cc != "private, max-age=0" {
		t.Errorf("Cache-Control = %q", cc)
	}

	got := svc.got
	if got.Path != "/abc" || got.Query.Get("utm") != "1" {
		t.Errorf("unexpected path/query: %q %v", got.Path, got.Query)
	}
	if got.IP != "203.0.113.5" || got.UserAgent != "Agent/1.0" || got.Referer != "https://ref.example/page" || got.Country != "DE" {
		t.Errorf("unexpected request metadata: %+v", got)
	}
}

func TestRedirectHandler_LogsDegradedOnce(t *testing.T) {
	svc := &fakeRedirector{decision: service.Decision{
		Matched:    true,
		Target:     "https://x.example.com/a",
		StatusCode: http.StatusFound,
		Degraded: []service.DependencyFailure{
			{Dependency: service.DependencyAccessLog, Err: errors.New("timeout")},
			{Dependency: service.DependencyDomainList, Err: errors.New("refused")},
		},
	}}
	var buf bytes.Buffer
	h := NewRedirectHandler(svc, slog.New(slog.NewTextHandler(&buf, nil)))

	req := httptest.NewRequest(http.MethodGet, "/abc", nil)
	req.Header.Set(middleware.RequestIDHeader, "req-42")
	rec := httptest.NewRecorder()
	middleware.RequestID(http.HandlerFunc(h.Redirect)).ServeHTTP(rec, req)

	out := buf.String()
	if n := strings.Count(out, "redirect degraded"); n != 2 {
		t.Fatalf("expected one record per failure, got %d:\n%s", n, out)
	}
	for _, want := range []string{"dependency=" + service.DependencyAccessLog, "dependency=" + service.DependencyDomainList, "request_id=req-42"} {
		if !strings.Contains(out, want) {
			t.Errorf("log missing %q:\n%s", want, out)
		}
	}
}

func TestRedirectHandler_NotMatched(t *testing.T) {
	h := NewRedirectHandler(&fakeRedirector{}, testutil.DiscardLogger())

	rec := httptest.NewRecorder()
	h.Redirect(rec, httptest.NewRequest(http.MethodGet, "/missing", nil))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", rec.Code)
	}
	if resp := decodeError(t, rec); resp.Code != "LINK_NOT_FOUND" {
		t.Errorf("unexpected code: %s", resp.Code)
	}
}

func TestRedirectHandler_InvalidClientIP(t *testing.T) {
	svc := &fakeRedirector{}
	h := NewRedirectHandler(svc, testutil.DiscardLogger())

	req := httptest.NewRequest(http.MethodGet, "/abc", nil)
	req.Header.Set("CF-Connecting-IP", "not-an-ip")
	h.Redirect(httptest.NewRecorder(), req)

	if svc.got.IP != "" {
		t.Errorf("IP = %q, want empty for an unparseable address", svc.got.IP)
	}
}
