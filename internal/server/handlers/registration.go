package handlers

import (
	"log/slog"
	"net/http"

	"github.com/criteo/code-id-registry/internal/apierrors"
	"github.com/criteo/code-id-registry/internal/models"
	"github.com/criteo/code-id-registry/internal/registry"
)

// RegistrationHandler handles register and unregister requests
type RegistrationHandler struct {
	service *registry.Service
	metrics *MetricsHandler
	logger  *slog.Logger
}

// NewRegistrationHandler creates a new registration handler
func NewRegistrationHandler(service *registry.Service, metrics *MetricsHandler, logger *slog.Logger) *RegistrationHandler {
	return &RegistrationHandler{
		service: service,
		metrics: metrics,
		logger:  logger,
	}
}

// Register handles POST /api/v1/registrations
func (h *RegistrationHandler) Register(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncrementRegisters()

	who, err := caller(r)
	if err != nil {
		apierrors.WriteError(w, apierrors.ErrCodeUnauthenticated, err.Error(), http.StatusUnauthorized, nil)
		return
	}

	var req models.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("Failed to decode register request",
			"error", err,
			"remote_addr", r.RemoteAddr)
		h.metrics.IncrementValidationErrors()
		apierrors.WriteError(w, apierrors.ErrCodeValidationError, "Invalid JSON in request body", http.StatusBadRequest, nil)
		return
	}

	reg, err := h.service.Register(r.Context(), who, req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.GetRegistrationResponse{Registration: reg})
}

// Unregister handles DELETE /api/v1/registrations
func (h *RegistrationHandler) Unregister(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncrementUnregisters()

	who, err := caller(r)
	if err != nil {
		apierrors.WriteError(w, apierrors.ErrCodeUnauthenticated, err.Error(), http.StatusUnauthorized, nil)
		return
	}

	var req models.UnregisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		h.logger.Warn("Failed to decode unregister request",
			"error", err,
			"remote_addr", r.RemoteAddr)
		h.metrics.IncrementValidationErrors()
		apierrors.WriteError(w, apierrors.ErrCodeValidationError, "Invalid JSON in request body", http.StatusBadRequest, nil)
		return
	}

	if err := h.service.Unregister(r.Context(), who, req); err != nil {
		h.writeError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// writeError maps a service error; the service has already logged it
func (h *RegistrationHandler) writeError(w http.ResponseWriter, err error) {
	code, _ := apierrors.WriteRegistryError(w, err)
	h.metrics.ObserveError(code)
}
