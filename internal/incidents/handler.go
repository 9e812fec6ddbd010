// Package incidents provides the incident register: validation, storage
// contract, business logic and HTTP handlers.
package incidents

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/bissquit/risk-ledger/internal/domain"
	"github.com/bissquit/risk-ledger/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Pagination constants.
const (
	DefaultAuditLimit = 50
	MaxAuditLimit     = 100
)

// Handler handles HTTP requests for the incident register.
type Handler struct {
	service *Service
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers read-only routes.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/incidents", h.ListIncidents)
	r.Get("/incidents/{id}", h.GetIncident)
	r.Get("/dashboard", h.GetDashboard)
	r.Get("/reference", h.GetReference)
	r.Get("/audit", h.ListAudit)
}

// RegisterWriteRoutes registers routes that change or check drafts.
func (h *Handler) RegisterWriteRoutes(r chi.Router) {
	r.Post("/incidents", h.CreateIncident)
	r.Put("/incidents", h.ReplaceIncidents)
	r.Post("/incidents/validate", h.ValidateIncident)
	r.Put("/incidents/{id}", h.UpdateIncident)
	r.Delete("/incidents/{id}", h.DeleteIncident)
}

// ReplaceRequest represents the request body for replacing the register.
type ReplaceRequest struct {
	Incidents []domain.Incident `json:"incidents"`
}

// ValidateResponse is the result of a dry-run validation.
type ValidateResponse struct {
	Valid  bool                  `json:"valid"`
	Errors []httputil.FieldError `json:"errors"`
}

// SeverityOption describes one severity level for selectors.
type SeverityOption struct {
	Value domain.Severity `json:"value"`
	Color string          `json:"color"`
}

// ReferenceResponse lists the closed value sets used by the incident form.
type ReferenceResponse struct {
	Teams      []domain.Team       `json:"teams"`
	Severities []SeverityOption    `json:"severities"`
	RICriteria []domain.RICriteria `json:"ri_criteria"`
}

// ListIncidents handles GET /incidents request.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.List(r.Context())
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}

	httputil.Success(w, http.StatusOK, list)
}

// GetIncident handles GET /incidents/{id} request.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := incidentID(w, r)
	if !ok {
		return
	}

	inc, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}

	httputil.Success(w, http.StatusOK, inc)
}

// CreateIncident handles POST /incidents request.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var fields DraftFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	draft := NewDraft()
	draft.Fields = fields

	inc, err := h.service.Submit(withOrigin(r), draft)
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}

	httputil.Success(w, http.StatusCreated, inc)
}

// UpdateIncident handles PUT /incidents/{id} request.
func (h *Handler) UpdateIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := incidentID(w, r)
	if !ok {
		return
	}

	existing, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}

	var fields DraftFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	// Full replacement: fields missing from the body are not carried over.
	draft := EditDraft(*existing)
	draft.Fields = fields

	inc, err := h.service.Submit(withOrigin(r), draft)
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}

	httputil.Success(w, http.StatusOK, inc)
}

// DeleteIncident handles DELETE /incidents/{id} request.
func (h *Handler) DeleteIncident(w http.ResponseWriter, r *http.Request) {
	id, ok := incidentID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(withOrigin(r), id); err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ReplaceIncidents handles PUT /incidents request.
func (h *Handler) ReplaceIncidents(w http.ResponseWriter, r *http.Request) {
	var req ReplaceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}
	if req.Incidents == nil {
		req.Incidents = make([]domain.Incident, 0)
	}

	if err := h.service.Replace(withOrigin(r), req.Incidents); err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}

	httputil.Success(w, http.StatusOK, req.Incidents)
}

// ValidateIncident handles POST /incidents/validate request.
func (h *Handler) ValidateIncident(w http.ResponseWriter, r *http.Request) {
	var fields DraftFields
	if err := json.NewDecoder(r.Body).Decode(&fields); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid json")
		return
	}

	errs := h.service.Validate(fields)
	resp := ValidateResponse{Valid: len(errs) == 0, Errors: make([]httputil.FieldError, 0, len(errs))}
	for _, field := range errs.Names() {
		resp.Errors = append(resp.Errors, httputil.FieldError{Field: field, Message: errs[field]})
	}

	httputil.Success(w, http.StatusOK, resp)
}

// GetDashboard handles GET /dashboard request.
func (h *Handler) GetDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := h.service.Dashboard(r.Context())
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}

	httputil.Success(w, http.StatusOK, dashboard)
}

// GetReference handles GET /reference request.
func (h *Handler) GetReference(w http.ResponseWriter, _ *http.Request) {
	severities := domain.Severities()
	options := make([]SeverityOption, len(severities))
	for i, s := range severities {
		options[i] = SeverityOption{Value: s, Color: s.Color()}
	}

	httputil.Success(w, http.StatusOK, ReferenceResponse{
		Teams:      domain.Teams(),
		Severities: options,
		RICriteria: domain.RICriteriaList(),
	})
}

// ListAudit handles GET /audit request.
func (h *Handler) ListAudit(w http.ResponseWriter, r *http.Request) {
	limit := DefaultAuditLimit
	offset := 0

	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed < 1 {
			httputil.Error(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > MaxAuditLimit {
			parsed = MaxAuditLimit
		}
		limit = parsed
	}

	if o := r.URL.Query().Get("offset"); o != "" {
		parsed, err := strconv.Atoi(o)
		if err != nil || parsed < 0 {
			httputil.Error(w, http.StatusBadRequest, "offset must be a non-negative integer")
			return
		}
		offset = parsed
	}

	entries, total, err := h.service.AuditLog(r.Context(), limit, offset)
	if err != nil {
		h.handleServiceError(r.Context(), w, err)
		return
	}

	response := map[string]interface{}{
		"entries": entries,
		"total":   total,
		"limit":   limit,
		"offset":  offset,
	}

	httputil.Success(w, http.StatusOK, response)
}

func incidentID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		httputil.Error(w, http.StatusBadRequest, "incident id must be a positive integer")
		return 0, false
	}
	return id, true
}

func withOrigin(r *http.Request) context.Context {
	return WithOrigin(r.Context(), middleware.GetReqID(r.Context()), r.RemoteAddr)
}

func (h *Handler) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		httputil.ValidationError(w, validationErr)
		return
	}

	httputil.HandleError(ctx, w, err, []httputil.ErrorMapping{
		{Error: ErrIncidentNotFound, Status: http.StatusNotFound, Message: ErrIncidentNotFound.Error()},
		{Error: ErrDuplicateID, Status: http.StatusConflict},
	})
}
