package handler

import (
	"context"
	"log/slog"
	"net"
	"net/http"

	"github.com/linkrelay/linkrelay/internal/middleware"
	"github.com/linkrelay/linkrelay/internal/service"
)

// Redirector decides what a request path redirects to.
type Redirector interface {
	Decide(ctx context.Context, req service.RedirectRequest) service.Decision
}

// RedirectHandler handles redirect requests.
type RedirectHandler struct {
	svc    Redirector
	logger *slog.Logger
}

// NewRedirectHandler creates a new RedirectHandler.
func NewRedirectHandler(svc Redirector, logger *slog.Logger) *RedirectHandler {
	return &RedirectHandler{
		svc:    svc,
		logger: logger.With("component", "redirect_handler"),
	}
}

// Redirect handles GET /* for URL redirection.
func (h *RedirectHandler) Redirect(w http.ResponseWriter, r *http.Request) {
	decision := h.svc.Decide(r.Context(), service.RedirectRequest{
		Path:      r.URL.Path,
		Query:     r.URL.Query(),
		IP:        clientIP(r),
		UserAgent: r.UserAgent(),
		Referer:   r.Referer(),
		Country:   r.Header.Get("CF-IPCountry"),
	})

	for _, f := range decision.Degraded {
		h.logger.Warn("redirect degraded",
			"dependency", f.Dependency,
			"error", f.Err,
			"request_id", middleware.GetRequestID(r.Context()),
		)
	}

	w.Header().Set("Cache-Control", "private, max-age=0")
	if !decision.Matched {
		writeError(w, http.StatusNotFound, "LINK_NOT_FOUND", "Link not found")
		return
	}
	http.Redirect(w, r, decision.Target, decision.StatusCode)
}

// clientIP returns the visitor IP if it parses, else "".
func clientIP(r *http.Request) string {
	ip := net.ParseIP(middleware.ClientIP(r))
	if ip == nil {
		return ""
	}
	return ip.String()
}
