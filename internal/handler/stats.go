package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/linkrelay/linkrelay/internal/model"
	"github.com/linkrelay/linkrelay/internal/service"
)

// StatsReporter builds traffic reports.
type StatsReporter interface {
	LinkReport(ctx context.Context, page service.PageRequest) (*model.LinkReport, error)
	DomainReport(ctx context.Context, domain string, page service.PageRequest) (*model.DomainReport, error)
}

// StatsHandler serves the link and domain reports.
type StatsHandler struct {
	svc    StatsReporter
	logger *slog.Logger
}

// NewStatsHandler creates a new StatsHandler.
func NewStatsHandler(svc StatsReporter, logger *slog.Logger) *StatsHandler {
	return &StatsHandler{svc: svc, logger: logger.With("component", "stats_handler")}
}

// LinkStats handles GET /api/link/stats.
func (h *StatsHandler) LinkStats(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(w, r)
	if !ok {
		return
	}

	report, err := h.svc.LinkReport(r.Context(), page)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// DomainStats handles GET /api/config/domains/stats.
func (h *StatsHandler) DomainStats(w http.ResponseWriter, r *http.Request) {
	page, ok := parsePage(w, r)
	if !ok {
		return
	}

	report, err := h.svc.DomainReport(r.Context(), r.URL.Query().Get("domain"), page)
	if err != nil {
		h.handleError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (h *StatsHandler) handleError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, model.ErrInvalidDomain):
		writeError(w, http.StatusBadRequest, "INVALID_DOMAIN", "Invalid domain format")
	case errors.Is(err, model.ErrDomainNotFound):
		writeError(w, http.StatusNotFound, "DOMAIN_NOT_FOUND", "Domain not found")
	default:
		h.logger.Error("report failed", "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// parsePage reads page and pageSize. Absent values leave the report
// unpaginated; present values must be positive and pageSize at most
// service.MaxPageSize.
func parsePage(w http.ResponseWriter, r *http.Request) (service.PageRequest, bool) {
	q := r.URL.Query()
	var page service.PageRequest

	if v := q.Get("page"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			writeError(w, http.StatusBadRequest, "INVALID_PAGE", "page must be a positive integer")
			return page, false
		}
		page.Page = n
	}

	if v := q.Get("pageSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > service.MaxPageSize {
			writeError(w, http.StatusBadRequest, "INVALID_PAGE_SIZE",
				"pageSize must be between 1 and "+strconv.Itoa(service.MaxPageSize))
			return page, false
		}
		page.PageSize = n
	}

	return page, true
}
