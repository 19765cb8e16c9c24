package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/opensource-insurance/heron/internal/domain"
	"github.com/opensource-insurance/heron/internal/workflow"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	svc     *workflow.Service
	repo    domain.Repository
	cache   domain.Cache
	bus     domain.EventBus
	version string
}

// NewHandler creates a new API handler. Repository, cache and bus are
// only used for health reporting; all business traffic goes through the
// workflow service.
func NewHandler(svc *workflow.Service, repo domain.Repository, cache domain.Cache, bus domain.EventBus, version string) *Handler {
	return &Handler{
		svc:     svc,
		repo:    repo,
		cache:   cache,
		bus:     bus,
		version: version,
	}
}

// CreatePolicyRequest handles POST /api/v1/policy-requests.
func (h *Handler) CreatePolicyRequest(w http.ResponseWriter, r *http.Request) {
	var in domain.PolicyRequestInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "invalid JSON request body",
		})
		return
	}

	req, err := h.svc.Create(r.Context(), in)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, req)
}

// GetPolicyRequest handles GET /api/v1/policy-requests/{id}.
func (h *Handler) GetPolicyRequest(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	req, err := h.svc.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// ListByCustomer handles GET /api/v1/policy-requests/customer/{customerId}.
func (h *Handler) ListByCustomer(w http.ResponseWriter, r *http.Request) {
	customerID, err := uuid.Parse(chi.URLParam(r, "customerId"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "customerId must be a valid UUID",
		})
		return
	}

	reqs, err := h.svc.FindByCustomerID(r.Context(), customerID)
	if err != nil {
		writeError(w, err)
		return
	}
	if reqs == nil {
		reqs = []*domain.PolicyRequest{}
	}
	writeJSON(w, http.StatusOK, reqs)
}

// Validate handles POST /api/v1/policy-requests/{id}/validate.
func (h *Handler) Validate(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.svc.Validate)
}

// FraudAnalysis handles POST /api/v1/policy-requests/{id}/fraud-analysis.
func (h *Handler) FraudAnalysis(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.svc.ProcessFraudAnalysis)
}

// Payment handles POST /api/v1/policy-requests/{id}/payment.
func (h *Handler) Payment(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.svc.ProcessPayment)
}

// Subscription handles POST /api/v1/policy-requests/{id}/subscription.
func (h *Handler) Subscription(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.svc.ProcessSubscription)
}

// Cancel handles POST /api/v1/policy-requests/{id}/cancel.
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, h.svc.Cancel)
}

// step runs one workflow operation against the request in the URL and
// writes the resulting aggregate.
func (h *Handler) step(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, id uuid.UUID) (*domain.PolicyRequest, error)) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}

	req, err := op(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, req)
}

// Health handles GET /health requests.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	status := "healthy"

	if h.repo != nil {
		if err := h.repo.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.cache != nil {
		if err := h.cache.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}
	if h.bus != nil {
		if err := h.bus.Ping(r.Context()); err != nil {
			status = "degraded"
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{
		"status":  status,
		"version": h.version,
	})
}

// Ready handles GET /ready requests.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func parseID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"error": "id must be a valid UUID",
		})
		return uuid.Nil, false
	}
	return id, true
}

// writeError maps domain errors to HTTP statuses: validation 400, not
// found 404, illegal transition 409, sequencing and state errors 422,
// anything else 500.
func writeError(w http.ResponseWriter, err error) {
	var (
		validationErr *domain.ValidationError
		transitionErr *domain.InvalidTransitionError
		precondErr    *domain.PreconditionError
	)

	switch {
	case errors.As(err, &validationErr):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, domain.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.As(err, &transitionErr), errors.Is(err, domain.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	case errors.As(err, &precondErr), errors.Is(err, domain.ErrIllegalState):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]string{"error": err.Error()})
	default:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
