package handler

import (
	"net/http"

	"github.com/linkrelay/linkrelay/internal/auth"
	"github.com/linkrelay/linkrelay/internal/handler/dto"
	"github.com/linkrelay/linkrelay/internal/middleware"
)

// VerifyHandler lets a client check a token without touching data.
type VerifyHandler struct {
	verifier middleware.TokenVerifier
	homeURL  string
}

// NewVerifyHandler creates a new VerifyHandler.
func NewVerifyHandler(verifier middleware.TokenVerifier, homeURL string) *VerifyHandler {
	return &VerifyHandler{verifier: verifier, homeURL: homeURL}
}

// Verify handles GET /api/verify.
func (h *VerifyHandler) Verify(w http.ResponseWriter, r *http.Request) {
	if err := h.verifier.Verify(auth.BearerToken(r.Header.Get("Authorization"))); err != nil {
		middleware.WriteAuthError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dto.VerifyResponse{Name: "linkrelay", URL: h.homeURL})
}
