// Package handlers contains the HTTP request handlers for the civic
// complaint API. Handlers parse requests, call services, and return JSON
// responses; all decision logic lives in the services layer.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/nagarseva/civic-server/internal/middleware"
	"github.com/nagarseva/civic-server/internal/models"
	"github.com/nagarseva/civic-server/internal/queue"
	"github.com/nagarseva/civic-server/internal/services"
	"github.com/nagarseva/civic-server/internal/store"
)

// ComplaintHandler handles complaint lifecycle endpoints.
type ComplaintHandler struct {
	engine *services.LifecycleService
	audit  *services.AuditService
	events queue.Publisher
	logger *zap.SugaredLogger
}

// NewComplaintHandler creates a new complaint handler.
func NewComplaintHandler(engine *services.LifecycleService, audit *services.AuditService, events queue.Publisher, logger *zap.SugaredLogger) *ComplaintHandler {
	return &ComplaintHandler{engine: engine, audit: audit, events: events, logger: logger}
}

// Create handles POST /api/complaints.
func (h *ComplaintHandler) Create(w http.ResponseWriter, r *http.Request) {
	var draft models.ComplaintDraft
	if err := json.NewDecoder(r.Body).Decode(&draft); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	actor := middleware.ActorFrom(r.Context())
	complaint, err := h.engine.CreateComplaint(r.Context(), draft, actor)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.recordAndPublish(r.Context(), complaint, models.AuditActionCreated, actor,
		fmt.Sprintf("filed under category %s", complaint.Category))

	respondJSON(w, http.StatusCreated, map[string]interface{}{"complaint": complaint})
}

// Mine handles GET /api/complaints/mine.
func (h *ComplaintHandler) Mine(w http.ResponseWriter, r *http.Request) {
	complaints, err := h.engine.ListMine(r.Context(), middleware.ActorFrom(r.Context()))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"complaints": complaints})
}

// Get handles GET /api/complaints/{id}.
func (h *ComplaintHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	complaint, err := h.engine.GetByID(r.Context(), id, middleware.ActorFrom(r.Context()))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"complaint": complaint})
}

// Public handles GET /api/complaints/public.
func (h *ComplaintHandler) Public(w http.ResponseWriter, r *http.Request) {
	f, ok := h.publicFilter(w, r)
	if !ok {
		return
	}

	complaints, err := h.engine.ListPublic(r.Context(), f)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"complaints": complaints})
}

// PublicStats handles GET /api/complaints/public/stats.
func (h *ComplaintHandler) PublicStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.engine.PublicStats(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, stats)
}

// ListAdmin handles GET /api/admin/complaints.
func (h *ComplaintHandler) ListAdmin(w http.ResponseWriter, r *http.Request) {
	f := store.Filter{AssigneeID: r.URL.Query().Get("assignedTo")}

	if raw := r.URL.Query().Get("status"); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", raw))
			return
		}
		f.Status = status
	}
	if raw := r.URL.Query().Get("category"); raw != "" {
		f.Category = models.NormalizeCategory(raw)
	}
	f.Page, _ = strconv.Atoi(r.URL.Query().Get("page"))
	f.Limit, _ = strconv.Atoi(r.URL.Query().Get("limit"))

	complaints, err := h.engine.ListAll(r.Context(), f, middleware.ActorFrom(r.Context()))
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"complaints": complaints})
}

// UpdateStatus handles PATCH /api/admin/complaints/{id}/status.
func (h *ComplaintHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Status           string   `json:"status"`
		ResolutionNotes  string   `json:"resolutionNotes"`
		ResolutionPhotos []string `json:"resolutionPhotos"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	actor := middleware.ActorFrom(r.Context())
	complaint, err := h.engine.UpdateStatus(r.Context(), id, models.Status(req.Status), req.ResolutionNotes, req.ResolutionPhotos, actor)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.recordAndPublish(r.Context(), complaint, models.AuditActionStatusChanged, actor,
		fmt.Sprintf("status set to %s", complaint.Status))

	respondJSON(w, http.StatusOK, map[string]interface{}{"complaint": complaint})
}

// Assign handles PATCH /api/admin/complaints/{id}/assign.
func (h *ComplaintHandler) Assign(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AssignedTo string `json:"assignedTo"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	actor := middleware.ActorFrom(r.Context())
	complaint, err := h.engine.Assign(r.Context(), id, req.AssignedTo, actor)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	detail := ""
	if complaint.AssignedTo != nil {
		detail = fmt.Sprintf("assigned to %s", complaint.AssignedTo.Name)
	}
	h.recordAndPublish(r.Context(), complaint, models.AuditActionAssigned, actor, detail)

	respondJSON(w, http.StatusOK, map[string]interface{}{"complaint": complaint})
}

// Comment handles POST /api/admin/complaints/{id}/comment.
func (h *ComplaintHandler) Comment(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Message string `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	id := chi.URLParam(r, "id")
	actor := middleware.ActorFrom(r.Context())
	complaint, err := h.engine.AddComment(r.Context(), id, req.Message, actor)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.recordAndPublish(r.Context(), complaint, models.AuditActionCommented, actor, "")

	respondJSON(w, http.StatusOK, map[string]interface{}{"complaint": complaint})
}

// AuditTrail handles GET /api/admin/complaints/{id}/audit.
func (h *ComplaintHandler) AuditTrail(w http.ResponseWriter, r *http.Request) {
	actor := middleware.ActorFrom(r.Context())
	if actor == nil || !actor.Role.Can(models.CapViewAllComplaints) {
		respondError(w, http.StatusForbidden, "Forbidden")
		return
	}

	records, err := h.audit.ForComplaint(r.Context(), chi.URLParam(r, "id"), 100)
	if err != nil {
		h.logger.Errorw("Failed to fetch audit trail", "error", err)
		respondError(w, http.StatusInternalServerError, "Failed to fetch audit trail")
		return
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{"records": records})
}

// recordAndPublish writes the audit entry and emits the lifecycle event.
// Both are best-effort: the mutation already succeeded.
func (h *ComplaintHandler) recordAndPublish(ctx context.Context, c *models.Complaint, action string, actor *models.Identity, detail string) {
	if err := h.audit.Record(ctx, c.ID.Hex(), action, actor, detail); err != nil {
		h.logger.Warnw("Audit record failed", "complaint", c.ID.Hex(), "error", err)
	}

	event := queue.ComplaintEvent{
		ComplaintID: c.ID.Hex(),
		Action:      action,
		Status:      string(c.Status),
		Title:       c.Title,
		Category:    string(c.Category),
		ActorID:     actor.ID.String(),
		OccurredAt:  time.Now(),
	}
	if err := h.events.Publish(ctx, event); err != nil {
		h.logger.Warnw("Event publish failed", "complaint", c.ID.Hex(), "error", err)
	}
}

func (h *ComplaintHandler) publicFilter(w http.ResponseWriter, r *http.Request) (store.PublicFilter, bool) {
	q := r.URL.Query()
	f := store.PublicFilter{}

	if raw := q.Get("status"); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			respondError(w, http.StatusBadRequest, fmt.Sprintf("Unknown status %q", raw))
			return f, false
		}
		f.Status = status
	}
	if raw := q.Get("category"); raw != "" {
		f.Category = models.NormalizeCategory(raw)
	}
	f.Page, _ = strconv.Atoi(q.Get("page"))
	f.Limit, _ = strconv.Atoi(q.Get("limit"))

	lat, latErr := strconv.ParseFloat(q.Get("lat"), 64)
	lng, lngErr := strconv.ParseFloat(q.Get("lng"), 64)
	if latErr == nil && lngErr == nil {
		radius, err := strconv.ParseFloat(q.Get("radiusKm"), 64)
		if err != nil || radius <= 0 {
			radius = 5
		}
		f.Near = &store.GeoFilter{Latitude: lat, Longitude: lng, RadiusKm: radius}
	}

	return f, true
}

// respondServiceError maps the service error taxonomy to HTTP statuses.
func (h *ComplaintHandler) respondServiceError(w http.ResponseWriter, err error) {
	respondTaxonomy(w, h.logger, err)
}

func respondTaxonomy(w http.ResponseWriter, logger *zap.SugaredLogger, err error) {
	switch {
	case errors.Is(err, models.ErrUnauthenticated), errors.Is(err, models.ErrInvalidCredentials):
		respondError(w, http.StatusUnauthorized, err.Error())
	case errors.Is(err, models.ErrForbidden):
		respondError(w, http.StatusForbidden, err.Error())
	case errors.Is(err, models.ErrNotFound):
		respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, models.ErrInvalidInput),
		errors.Is(err, models.ErrInvalidTransition),
		errors.Is(err, models.ErrInvalidAssignee),
		errors.Is(err, models.ErrTooManyPhotos):
		respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, models.ErrDuplicateEmail):
		respondError(w, http.StatusConflict, err.Error())
	case errors.Is(err, models.ErrStoreUnavailable):
		logger.Errorw("Store unavailable", "error", err)
		respondError(w, http.StatusServiceUnavailable, "Service temporarily unavailable, please try again later")
	default:
		logger.Errorw("Unhandled error", "error", err)
		respondError(w, http.StatusInternalServerError, "Internal server error")
	}
}

// Helper: respond with JSON
func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// Helper: respond with error
func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
