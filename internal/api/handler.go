package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/agrosight/agrosight/internal/domain"
	"github.com/agrosight/agrosight/internal/engine"
	"github.com/agrosight/agrosight/internal/repository"
)

// Handler holds dependencies for API handlers.
type Handler struct {
	repo         domain.Repository
	cache        domain.Cache
	bus          domain.EventBus
	orchestrator *engine.Orchestrator
	version      string

	mu      sync.RWMutex
	lastRun *domain.RunSummary
}

// NewHandler creates a new API handler. When a bus is configured the handler
// tracks summaries of bus-triggered runs too, so GET /runs/latest covers both
// trigger paths.
func NewHandler(repo domain.Repository, cache domain.Cache, bus domain.EventBus, orchestrator *engine.Orchestrator, version string) *Handler {
	h := &Handler{
		repo:         repo,
		cache:        cache,
		bus:          bus,
		orchestrator: orchestrator,
		version:      version,
	}

	if bus != nil {
		_, err := bus.Subscribe(context.Background(), domain.TopicRunCompleted, func(ctx context.Context, msg *domain.Message) error {
			var summary domain.RunSummary
			if err := json.Unmarshal(msg.Payload, &summary); err != nil {
				return err
			}
			h.recordRun(&summary)
			return nil
		})
		if err != nil {
			slog.Error("failed to subscribe to run completions", "error", err)
		}
	}

	return h
}

func (h *Handler) recordRun(summary *domain.RunSummary) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.lastRun == nil || !summary.Timestamp.Before(h.lastRun.Timestamp) {
		h.lastRun = summary
	}
}

// RunResponse is the response for POST /runs.
type RunResponse struct {
	Success bool `json:"success"`
	*domain.RunSummary
}

// TriggerRun handles POST /runs: executes one generation run synchronously.
func (h *Handler) TriggerRun(w http.ResponseWriter, r *http.Request) {
	summary, err := h.orchestrator.Run(r.Context())
	if err != nil {
		slog.Error("run failed", "error", err)
		writeError(w, http.StatusInternalServerError, "run failed: "+err.Error())
		return
	}

	h.recordRun(summary)
	writeJSON(w, http.StatusOK, RunResponse{Success: true, RunSummary: summary})
}

// LatestRun handles GET /runs/latest.
func (h *Handler) LatestRun(w http.ResponseWriter, r *http.Request) {
	h.mu.RLock()
	last := h.lastRun
	h.mu.RUnlock()

	if last == nil {
		writeError(w, http.StatusNotFound, "no run has completed yet")
		return
	}
	writeJSON(w, http.StatusOK, RunResponse{Success: true, RunSummary: last})
}

// ListRules returns the active rule catalog.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	rules, err := h.repo.ListActiveRules(r.Context())
	if err != nil {
		slog.Error("failed to list rules", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list rules")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"rules": rules,
		"count": len(rules),
	})
}

// GetRule retrieves a rule by code.
func (h *Handler) GetRule(w http.ResponseWriter, r *http.Request) {
	code := chi.URLParam(r, "code")
	if code == "" {
		writeError(w, http.StatusBadRequest, "rule code is required")
		return
	}

	rule, err := h.repo.GetRule(r.Context(), code)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "rule not found")
			return
		}
		slog.Error("failed to get rule", "code", code, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get rule")
		return
	}

	writeJSON(w, http.StatusOK, rule)
}

// CreateRuleRequest is the request body for creating or updating a rule.
type CreateRuleRequest struct {
	Code            string `json:"code"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	Condition       string `json:"condition"`
	MessageTemplate string `json:"messageTemplate"`
	Severity        string `json:"severity"`
	ActionType      string `json:"actionType"`
	IsActive        bool   `json:"isActive"`
}

var validSeverities = map[domain.Severity]bool{
	domain.SeverityCritical: true,
	domain.SeverityHigh:     true,
	domain.SeverityMedium:   true,
	domain.SeverityInfo:     true,
}

var validActionTypes = map[domain.ActionType]bool{
	domain.ActionAlert:          true,
	domain.ActionNotification:   true,
	domain.ActionWarning:        true,
	domain.ActionRecommendation: true,
}

// CreateRule creates or updates a rule in the catalog.
func (h *Handler) CreateRule(w http.ResponseWriter, r *http.Request) {
	var req CreateRuleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	if req.Code == "" || req.Name == "" || req.Condition == "" || req.MessageTemplate == "" {
		writeError(w, http.StatusBadRequest, "code, name, condition and messageTemplate are required")
		return
	}
	if !validSeverities[domain.Severity(req.Severity)] {
		writeError(w, http.StatusBadRequest, "severity must be one of: critical, high, medium, info")
		return
	}
	if !validActionTypes[domain.ActionType(req.ActionType)] {
		writeError(w, http.StatusBadRequest, "actionType must be one of: alert, notification, warning, recommendation")
		return
	}

	rule := &domain.Rule{
		Code:            req.Code,
		Name:            req.Name,
		Description:     req.Description,
		Condition:       req.Condition,
		MessageTemplate: req.MessageTemplate,
		Severity:        domain.Severity(req.Severity),
		ActionType:      domain.ActionType(req.ActionType),
		IsActive:        req.IsActive,
	}

	if err := h.repo.SaveRule(r.Context(), rule); err != nil {
		slog.Error("failed to save rule", "code", rule.Code, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to save rule")
		return
	}

	// Saved rules must be visible to the next run immediately.
	if h.cache != nil {
		_ = h.cache.Delete(r.Context(), domain.CatalogCacheKey)
	}

	slog.Info("rule saved", "code", rule.Code, "name", rule.Name)
	writeJSON(w, http.StatusCreated, rule)
}

// ListRecommendations returns recommendations, optionally filtered by status.
func (h *Handler) ListRecommendations(w http.ResponseWriter, r *http.Request) {
	status := domain.Status(r.URL.Query().Get("status"))
	switch status {
	case "", domain.StatusPending, domain.StatusDone, domain.StatusDismissed:
	default:
		writeError(w, http.StatusBadRequest, "status must be one of: pending, done, dismissed")
		return
	}

	recs, err := h.repo.ListRecommendations(r.Context(), status)
	if err != nil {
		slog.Error("failed to list recommendations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list recommendations")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"recommendations": recs,
		"count":           len(recs),
	})
}

// GetRecommendation retrieves a recommendation by ID.
func (h *Handler) GetRecommendation(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "recommendation id is required")
		return
	}

	rec, err := h.repo.GetRecommendation(r.Context(), id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recommendation not found")
			return
		}
		slog.Error("failed to get recommendation", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get recommendation")
		return
	}

	writeJSON(w, http.StatusOK, rec)
}

// UpdateStatusRequest is the request body for a status transition.
type UpdateStatusRequest struct {
	Status string `json:"status"`
}

// UpdateRecommendationStatus transitions a recommendation to done or
// dismissed. Only pending records may transition.
func (h *Handler) UpdateRecommendationStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "recommendation id is required")
		return
	}

	var req UpdateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON request body")
		return
	}

	to := domain.Status(req.Status)
	if to != domain.StatusDone && to != domain.StatusDismissed {
		writeError(w, http.StatusBadRequest, "status must be done or dismissed")
		return
	}

	rec, err := h.repo.GetRecommendation(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			writeError(w, http.StatusNotFound, "recommendation not found")
			return
		}
		slog.Error("failed to get recommendation", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to get recommendation")
		return
	}

	if !domain.ValidTransition(rec.Status, to) {
		writeError(w, http.StatusConflict, "invalid transition from "+string(rec.Status)+" to "+string(to))
		return
	}

	if err := h.repo.UpdateRecommendationStatus(ctx, id, to); err != nil {
		slog.Error("failed to update recommendation status", "id", id, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to update status")
		return
	}

	// A resolved pair may legitimately trigger again on the next run.
	if h.cache != nil {
		_ = h.cache.Delete(ctx, domain.PendingKey(rec.RuleCode, rec.ProducerID))
	}

	rec.Status = to
	slog.Info("recommendation status updated", "id", id, "status", to)
	writeJSON(w, http.StatusOK, rec)
}

// Health returns server health status.
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

// Ready returns whether the server is ready to accept traffic.
func (h *Handler) Ready(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"ready": "true",
	})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"success":   false,
		"error":     msg,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
