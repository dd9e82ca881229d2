package handlers

import (
	"log/slog"
	"net/http"
	"strconv"
	"sync/atomic"

	"github.com/criteo/code-id-registry/internal/apierrors"
)

// MetricsHandler handles metrics requests
type MetricsHandler struct {
	logger *slog.Logger

	// Atomic counters for thread-safe increments
	totalRequests      atomic.Uint64
	registers          atomic.Uint64
	unregisters        atomic.Uint64
	adminUpdates       atomic.Uint64
	adminReads         atomic.Uint64
	registrationReads  atomic.Uint64
	codeIDReads        atomic.Uint64
	listReads          atomic.Uint64
	authFailures       atomic.Uint64
	rateLimitExceeded  atomic.Uint64
	validationErrors   atomic.Uint64
	forbidden          atomic.Uint64
	conflicts          atomic.Uint64
	notFound           atomic.Uint64
	storageUnavailable atomic.Uint64
	byClass            [6]atomic.Uint64 // index = status / 100
}

// NewMetricsHandler creates a new metrics handler
func NewMetricsHandler(logger *slog.Logger) *MetricsHandler {
	return &MetricsHandler{
		logger: logger,
	}
}

// MetricsResponse represents the metrics response
type MetricsResponse struct {
	Total    uint64            `json:"total_requests"`
	ByType   map[string]uint64 `json:"by_type"`
	ByStatus map[string]uint64 `json:"by_status"`
}

// Snapshot returns the current counter values
func (h *MetricsHandler) Snapshot() MetricsResponse {
	byStatus := map[string]uint64{
		"auth_failures":       h.authFailures.Load(),
		"rate_limit_exceeded": h.rateLimitExceeded.Load(),
		"validation_errors":   h.validationErrors.Load(),
		"forbidden":           h.forbidden.Load(),
		"conflicts":           h.conflicts.Load(),
		"not_found":           h.notFound.Load(),
		"storage_unavailable": h.storageUnavailable.Load(),
	}
	for class := 1; class < len(h.byClass); class++ {
		byStatus[strconv.Itoa(class)+"xx"] = h.byClass[class].Load()
	}

	return MetricsResponse{
		Total: h.totalRequests.Load(),
		ByType: map[string]uint64{
			"register_code_id":   h.registers.Load(),
			"unregister":         h.unregisters.Load(),
			"update_admin":       h.adminUpdates.Load(),
			"admin_reads":        h.adminReads.Load(),
			"registration_reads": h.registrationReads.Load(),
			"code_id_reads":      h.codeIDReads.Load(),
			"list_reads":         h.listReads.Load(),
		},
		ByStatus: byStatus,
	}
}

// GetMetrics handles GET /api/v1/metrics
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	if err := writeJSON(w, http.StatusOK, h.Snapshot()); err != nil {
		h.logger.Error("Failed to encode metrics response", "error", err)
	}
}

// ObserveStatus counts a completed request by status class
func (h *MetricsHandler) ObserveStatus(status int) {
	h.totalRequests.Add(1)
	if class := status / 100; class > 0 && class < len(h.byClass) {
		h.byClass[class].Add(1)
	}
}

// ObserveError counts a registry error response by code
func (h *MetricsHandler) ObserveError(code apierrors.ErrorCode) {
	switch code {
	case apierrors.ErrCodeValidationError, apierrors.ErrCodeInvalidIdentity:
		h.validationErrors.Add(1)
	case apierrors.ErrCodeUnauthorized, apierrors.ErrCodeUnauthorizedUpdateAdmin:
		h.forbidden.Add(1)
	case apierrors.ErrCodeCodeIDAlreadyRegistered, apierrors.ErrCodeRegistrationMismatch:
		h.conflicts.Add(1)
	case apierrors.ErrCodeNotFound:
		h.notFound.Add(1)
	case apierrors.ErrCodeStorageUnavailable:
		h.storageUnavailable.Add(1)
	}
}

// Request counter methods

func (h *MetricsHandler) IncrementRegisters() {
	h.registers.Add(1)
}

func (h *MetricsHandler) IncrementUnregisters() {
	h.unregisters.Add(1)
}

func (h *MetricsHandler) IncrementAdminUpdates() {
	h.adminUpdates.Add(1)
}

func (h *MetricsHandler) IncrementAdminReads() {
	h.adminReads.Add(1)
}

func (h *MetricsHandler) IncrementRegistrationReads() {
	h.registrationReads.Add(1)
}

func (h *MetricsHandler) IncrementCodeIDReads() {
	h.codeIDReads.Add(1)
}

func (h *MetricsHandler) IncrementListReads() {
	h.listReads.Add(1)
}

func (h *MetricsHandler) IncrementAuthFailures() {
	h.authFailures.Add(1)
}

func (h *MetricsHandler) IncrementRateLimitExceeded() {
	h.rateLimitExceeded.Add(1)
}

func (h *MetricsHandler) IncrementValidationErrors() {
	h.validationErrors.Add(1)
}
