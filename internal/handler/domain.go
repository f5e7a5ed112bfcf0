package handler

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/linkrelay/linkrelay/internal/handler/dto"
	"github.com/linkrelay/linkrelay/internal/model"
)

// DomainManager edits the subdomain allow-list.
type DomainManager interface {
	Domains(ctx context.Context) ([]model.DomainConfig, error)
	AddDomain(ctx context.Context, raw string) (model.DomainConfig, error)
	DeleteDomain(ctx context.Context, id string) error
}

// DomainHandler serves /api/config/domains.
type DomainHandler struct {
	store  DomainManager
	logger *slog.Logger
}

// NewDomainHandler creates a new DomainHandler.
func NewDomainHandler(store DomainManager, logger *slog.Logger) *DomainHandler {
	return &DomainHandler{store: store, logger: logger.With("component", "domain_handler")}
}

// List handles GET /api/config/domains.
func (h *DomainHandler) List(w http.ResponseWriter, r *http.Request) {
	domains, err := h.store.Domains(r.Context())
	if err != nil {
		h.logger.Error("list domains failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
		return
	}
	if domains == nil {
		domains = []model.DomainConfig{}
	}
	writeJSON(w, http.StatusOK, dto.DomainListResponse{Domains: domains})
}

// Create handles POST /api/config/domains.
func (h *DomainHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateDomainRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	raw := strings.TrimSpace(req.Domain)
	if raw == "" || len(raw) > model.MaxDomainLength {
		writeError(w, http.StatusBadRequest, "INVALID_DOMAIN", "Invalid domain format")
		return
	}

	cfg, err := h.store.AddDomain(r.Context(), raw)
	switch {
	case err == nil:
		h.logger.Info("domain added", "id", cfg.ID, "domain", cfg.Domain)
		writeJSON(w, http.StatusCreated, dto.DomainResponse{Domain: cfg})
	case errors.Is(err, model.ErrInvalidDomain):
		writeError(w, http.StatusBadRequest, "INVALID_DOMAIN", "Invalid domain format")
	case errors.Is(err, model.ErrDomainExists):
		writeError(w, http.StatusConflict, "DOMAIN_EXISTS", "Domain already exists")
	default:
		h.logger.Error("add domain failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}

// Delete handles POST /api/config/domains/delete.
func (h *DomainHandler) Delete(w http.ResponseWriter, r *http.Request) {
	var req dto.DeleteDomainRequest
	if err := decodeJSON(r, &req); err != nil || strings.TrimSpace(req.ID) == "" {
		writeError(w, http.StatusBadRequest, "INVALID_REQUEST", "Invalid request body")
		return
	}

	err := h.store.DeleteDomain(r.Context(), strings.TrimSpace(req.ID))
	switch {
	case err == nil:
		h.logger.Info("domain deleted", "id", req.ID)
		writeJSON(w, http.StatusOK, dto.SuccessResponse{Success: true})
	case errors.Is(err, model.ErrDomainNotFound):
		writeError(w, http.StatusNotFound, "DOMAIN_NOT_FOUND", "Domain not found")
	default:
		h.logger.Error("delete domain failed", "error", err)
		writeError(w, http.StatusInternalServerError, "INTERNAL_ERROR", "An internal error occurred")
	}
}
