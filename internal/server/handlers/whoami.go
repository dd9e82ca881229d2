package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/criteo/code-id-registry/internal/apierrors"
	"github.com/criteo/code-id-registry/internal/auth"
	"github.com/criteo/code-id-registry/internal/registry"
)

// AdminSource reports the current registry admin
type AdminSource interface {
	Admin(ctx context.Context) (string, error)
}

// WhoamiHandler tells callers which identity the server sees
type WhoamiHandler struct {
	admins AdminSource
	logger *slog.Logger
}

// NewWhoamiHandler creates a new whoami handler
func NewWhoamiHandler(admins AdminSource, logger *slog.Logger) *WhoamiHandler {
	return &WhoamiHandler{admins: admins, logger: logger}
}

// WhoamiResponse represents the whoami response
type WhoamiResponse struct {
	Username     string `json:"username"`
	IsAdmin      bool   `json:"is_admin"`
	Instantiated bool   `json:"instantiated"`
}

// GetWhoami handles GET /api/v1/whoami. It must sit behind an auth
// middleware.
func (h *WhoamiHandler) GetWhoami(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		h.logger.Debug("Whoami called without an authenticated user")
		auth.Challenge(w)
		return
	}

	resp := WhoamiResponse{Username: user.Username}
	admin, err := h.admins.Admin(r.Context())
	switch {
	case err == nil:
		resp.Instantiated = true
		resp.IsAdmin = admin == user.Username
	case errors.Is(err, registry.ErrNotInstantiated):
	default:
		h.logger.Error("Failed to read admin", "error", err)
		apierrors.WriteRegistryError(w, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, resp); err != nil {
		h.logger.Error("Failed to encode whoami response", "error", err)
	}
}
