package handlers

import (
	"log/slog"
	"net/http"

	"github.com/criteo/code-id-registry/internal/apierrors"
	"github.com/criteo/code-id-registry/internal/models"
	"github.com/criteo/code-id-registry/internal/registry"
)

// AdminHandler reads and transfers the registry admin
type AdminHandler struct {
	service *registry.Service
	metrics *MetricsHandler
	logger  *slog.Logger
}

// NewAdminHandler creates a new admin handler
func NewAdminHandler(service *registry.Service, metrics *MetricsHandler, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		metrics: metrics,
		logger:  logger,
	}
}

// GetAdmin handles GET /api/v1/admin
func (h *AdminHandler) GetAdmin(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncrementAdminReads()

	admin, err := h.service.Admin(r.Context())
	if err != nil {
		code, status := apierrors.WriteRegistryError(w, err)
		h.metrics.ObserveError(code)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Failed to read admin", "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, models.AdminResponse{Admin: admin})
}

// GetInfo handles GET /api/v1/info
func (h *AdminHandler) GetInfo(w http.ResponseWriter, r *http.Request) {
	info, err := h.service.ContractInfo(r.Context())
	if err != nil {
		code, status := apierrors.WriteRegistryError(w, err)
		h.metrics.ObserveError(code)
		if status >= http.StatusInternalServerError {
			h.logger.Error("Failed to read contract info", "error", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, info)
}

// UpdateAdmin handles PUT /api/v1/admin
func (h *AdminHandler) UpdateAdmin(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncrementAdminUpdates()

	who, err := caller(r)
	if err != nil {
		apierrors.WriteError(w, apierrors.ErrCodeUnauthenticated, err.Error(), http.StatusUnauthorized, nil)
		return
	}

	var req models.UpdateAdminRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.metrics.IncrementValidationErrors()
		apierrors.WriteError(w, apierrors.ErrCodeValidationError, "Invalid JSON in request body", http.StatusBadRequest, nil)
		return
	}

	if err := h.service.UpdateAdmin(r.Context(), who, req.Admin); err != nil {
		code, _ := apierrors.WriteRegistryError(w, err)
		h.metrics.ObserveError(code)
		return
	}

	writeJSON(w, http.StatusOK, models.AdminResponse{Admin: req.Admin})
}
