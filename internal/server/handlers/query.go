package handlers

import (
	"log/slog"
	"net/http"

	"github.com/criteo/code-id-registry/internal/apierrors"
	"github.com/criteo/code-id-registry/internal/models"
	"github.com/criteo/code-id-registry/internal/registry"
)

// QueryHandler serves the public read routes
type QueryHandler struct {
	service *registry.Service
	metrics *MetricsHandler
	logger  *slog.Logger
}

// NewQueryHandler creates a new query handler
func NewQueryHandler(service *registry.Service, metrics *MetricsHandler, logger *slog.Logger) *QueryHandler {
	return &QueryHandler{
		service: service,
		metrics: metrics,
		logger:  logger,
	}
}

// ListRegistrations handles GET /api/v1/registrations/{name}/{chain_id}
func (h *QueryHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncrementListReads()

	name, chainID, ok := h.nameAndChain(w, r)
	if !ok {
		return
	}

	regs, err := h.service.ListRegistrations(r.Context(), name, chainID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	h.logger.Debug("Registrations listed",
		"contract_name", name,
		"chain_id", chainID,
		"count", len(regs))

	writeJSON(w, http.StatusOK, models.ListRegistrationsResponse{Registrations: regs})
}

// GetLatest handles GET /api/v1/registrations/{name}/{chain_id}/latest.
// A version query parameter selects that exact version instead, which is
// the only way to address a version literally named "latest" or an empty one.
func (h *QueryHandler) GetLatest(w http.ResponseWriter, r *http.Request) {
	var version *string
	if query := r.URL.Query(); query.Has("version") {
		v := query.Get("version")
		version = &v
	}
	h.getRegistration(w, r, version)
}

// GetVersion handles GET /api/v1/registrations/{name}/{chain_id}/{version}
func (h *QueryHandler) GetVersion(w http.ResponseWriter, r *http.Request) {
	version, err := pathParam(r, "version")
	if err != nil {
		h.writeValidationError(w, err)
		return
	}
	h.getRegistration(w, r, &version)
}

func (h *QueryHandler) getRegistration(w http.ResponseWriter, r *http.Request, version *string) {
	h.metrics.IncrementRegistrationReads()

	name, chainID, ok := h.nameAndChain(w, r)
	if !ok {
		return
	}

	reg, err := h.service.GetRegistration(r.Context(), name, chainID, version)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.GetRegistrationResponse{Registration: reg})
}

// GetCodeID handles GET /api/v1/code-ids/{chain_id}/{code_id}
func (h *QueryHandler) GetCodeID(w http.ResponseWriter, r *http.Request) {
	h.metrics.IncrementCodeIDReads()

	chainID, err := pathParam(r, "chain_id")
	if err != nil {
		h.writeValidationError(w, err)
		return
	}
	raw, err := pathParam(r, "code_id")
	if err != nil {
		h.writeValidationError(w, err)
		return
	}
	codeID, err := parseCodeID(raw)
	if err != nil {
		h.writeValidationError(w, err)
		return
	}

	reg, err := h.service.GetCodeIDInfo(r.Context(), chainID, codeID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, models.GetRegistrationResponse{Registration: reg})
}

func (h *QueryHandler) nameAndChain(w http.ResponseWriter, r *http.Request) (string, string, bool) {
	name, err := pathParam(r, "name")
	if err != nil {
		h.writeValidationError(w, err)
		return "", "", false
	}
	chainID, err := pathParam(r, "chain_id")
	if err != nil {
		h.writeValidationError(w, err)
		return "", "", false
	}
	return name, chainID, true
}

func (h *QueryHandler) writeValidationError(w http.ResponseWriter, err error) {
	h.metrics.IncrementValidationErrors()
	apierrors.WriteError(w, apierrors.ErrCodeValidationError, err.Error(), http.StatusBadRequest, nil)
}

func (h *QueryHandler) writeError(w http.ResponseWriter, err error) {
	code, status := apierrors.WriteRegistryError(w, err)
	h.metrics.ObserveError(code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("Registry query failed", "error", err)
	}
}
