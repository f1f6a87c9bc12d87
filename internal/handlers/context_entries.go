package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dkrasner/taskmind/internal/database"
	"github.com/dkrasner/taskmind/internal/models"
	"github.com/dkrasner/taskmind/internal/queue"
	"github.com/dkrasner/taskmind/internal/request"
	"github.com/dkrasner/taskmind/internal/services/ai"
	"github.com/dkrasner/taskmind/internal/validation"
)

// MaxContentLength is the maximum length for context entry content
const MaxContentLength = 50000

// ContextEntryHandler handles context entry requests
type ContextEntryHandler struct {
	contextRepo database.ContextEntryRepositoryInterface
	analyzer    *ai.ContextAnalyzer
	jobQueue    queue.JobQueue
	logger      *zap.Logger
}

// NewContextEntryHandler creates a new context entry handler. jobQueue may
// be nil when no queue is configured; fallback analyses then simply stay.
func NewContextEntryHandler(
	contextRepo database.ContextEntryRepositoryInterface,
	analyzer *ai.ContextAnalyzer,
	jobQueue queue.JobQueue,
	logger *zap.Logger,
) *ContextEntryHandler {
	return &ContextEntryHandler{
		contextRepo: contextRepo,
		analyzer:    analyzer,
		jobQueue:    jobQueue,
		logger:      logger,
	}
}

// RegisterRoutes registers context entry routes on the given router.
// The router should already have the /context prefix.
func (h *ContextEntryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListContextEntries).Methods("GET")
	r.HandleFunc("", h.CreateContextEntry).Methods("POST")
	r.HandleFunc("/{id}", h.GetContextEntry).Methods("GET")
	r.HandleFunc("/{id}", h.DeleteContextEntry).Methods("DELETE")
}

// CreateContextEntryRequest represents a create context entry request
type CreateContextEntryRequest struct {
	Content     string `json:"content" validate:"required,min=1,max=50000"`
	SourceType  string `json:"source_type" validate:"required,source_type"`
	SourceTitle string `json:"source_title" validate:"max=255"`
}

// ListContextEntries lists the user's context entries, newest first
func (h *ContextEntryHandler) ListContextEntries(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var sourceType *models.SourceType
	if s := r.URL.Query().Get("source_type"); s != "" {
		if err := validation.ValidateSourceType(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		st := models.SourceType(s)
		sourceType = &st
	}

	entries, err := h.contextRepo.GetByUserID(r.Context(), user.ID, sourceType)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve context entries")
		return
	}

	if entries == nil {
		entries = []*models.ContextEntry{}
	}

	respondJSON(w, http.StatusOK, entries)
}

// CreateContextEntry stores a context entry and analyzes it synchronously.
// When the completion service is unavailable the deterministic fallback
// insights are stored and a re-analysis job is enqueued so the entry is
// upgraded once the service recovers.
func (h *ContextEntryHandler) CreateContextEntry(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateContextEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validateStruct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	req.Content = validation.SanitizeText(req.Content)
	if req.Content == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Content is required and cannot be empty after sanitization")
		return
	}

	ctx := r.Context()
	sourceType := models.SourceType(req.SourceType)

	insights, fromProvider := h.analyzer.Analyze(ctx, req.Content, sourceType)

	entry := &models.ContextEntry{
		ID:             uuid.New(),
		UserID:         user.ID,
		Content:        req.Content,
		SourceType:     sourceType,
		SourceTitle:    validation.SanitizeText(req.SourceTitle),
		Insights:       insights,
		PriorityScore:  insights.DerivedPriorityScore(),
		SentimentScore: insights.DerivedSentimentScore(),
	}

	if err := h.contextRepo.Create(ctx, entry); err != nil {
		h.logger.Error("context_entry_create_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create context entry")
		return
	}

	if !fromProvider && h.jobQueue != nil {
		job := queue.NewJob(queue.JobTypeInsightReanalysis, user.ID, &entry.ID)
		if err := h.jobQueue.Enqueue(ctx, job); err != nil {
			h.logger.Warn("reanalysis_enqueue_failed",
				zap.String("entry_id", entry.ID.String()),
				zap.Error(err),
			)
		}
	}

	respondJSON(w, http.StatusCreated, entry)
}

// GetContextEntry retrieves a context entry by ID
func (h *ContextEntryHandler) GetContextEntry(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid context entry ID")
		return
	}

	entry, err := h.contextRepo.GetByID(r.Context(), user.ID, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Context entry not found")
		return
	}

	respondJSON(w, http.StatusOK, entry)
}

// DeleteContextEntry deletes a context entry by ID
func (h *ContextEntryHandler) DeleteContextEntry(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid context entry ID")
		return
	}

	if err := h.contextRepo.Delete(r.Context(), user.ID, id); err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Context entry not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Context entry deleted"})
}
