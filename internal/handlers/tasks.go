package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/dkrasner/taskmind/internal/database"
	"github.com/dkrasner/taskmind/internal/models"
	"github.com/dkrasner/taskmind/internal/request"
	"github.com/dkrasner/taskmind/internal/services/ai"
	"github.com/dkrasner/taskmind/internal/validation"
)

const (
	// MaxTitleLength is the maximum length for a task title
	MaxTitleLength = 255
	// MaxDescriptionLength is the maximum length for task descriptions
	MaxDescriptionLength = 10000
)

// TaskHandler handles task-related requests
type TaskHandler struct {
	taskRepo     database.TaskRepositoryInterface
	categoryRepo database.CategoryRepositoryInterface
	contextRepo  database.ContextEntryRepositoryInterface
	engine       *ai.SuggestionEngine
	logger       *zap.Logger
}

// NewTaskHandler creates a new task handler
func NewTaskHandler(
	taskRepo database.TaskRepositoryInterface,
	categoryRepo database.CategoryRepositoryInterface,
	contextRepo database.ContextEntryRepositoryInterface,
	engine *ai.SuggestionEngine,
	logger *zap.Logger,
) *TaskHandler {
	return &TaskHandler{
		taskRepo:     taskRepo,
		categoryRepo: categoryRepo,
		contextRepo:  contextRepo,
		engine:       engine,
		logger:       logger,
	}
}

// RegisterRoutes registers task routes on the given router.
// The router should already have the /tasks prefix.
func (h *TaskHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListTasks).Methods("GET")
	r.HandleFunc("", h.CreateTask).Methods("POST")
	r.HandleFunc("/stats", h.GetStats).Methods("GET")
	r.HandleFunc("/suggestions", h.GetSuggestions).Methods("POST")
	r.HandleFunc("/{id}", h.GetTask).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateTask).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteTask).Methods("DELETE")
	r.HandleFunc("/{id}/toggle", h.ToggleTaskStatus).Methods("PATCH")
}

// CreateTaskRequest represents a create task request
type CreateTaskRequest struct {
	Title       string     `json:"title" validate:"required,min=1,max=255"`
	Description string     `json:"description" validate:"max=10000"`
	Priority    string     `json:"priority" validate:"omitempty,task_priority"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// UpdateTaskRequest represents a partial task update
type UpdateTaskRequest struct {
	Title       *string              `json:"title,omitempty"`
	Description *string              `json:"description,omitempty"`
	Status      *models.TaskStatus   `json:"status,omitempty"`
	Priority    *models.TaskPriority `json:"priority,omitempty"`
	DueDate     *time.Time           `json:"due_date,omitempty"`
	CategoryID  *uuid.UUID           `json:"category_id,omitempty"`
	Tags        *[]string            `json:"tags,omitempty"`
}

// SuggestionsRequest asks for enrichment preview without creating a task
type SuggestionsRequest struct {
	Title       string `json:"title" validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"max=10000"`
}

// SuggestionsResponse carries the full enrichment preview
type SuggestionsResponse struct {
	PriorityScore       float64    `json:"priority_score"`
	SuggestedDeadline   *time.Time `json:"suggested_deadline"`
	Category            string     `json:"category"`
	Tags                []string   `json:"tags"`
	EnhancedDescription string     `json:"enhanced_description"`
}

// ListTasks lists tasks for the authenticated user with optional filters
func (h *TaskHandler) ListTasks(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	ctx := r.Context()
	filter := database.TaskFilter{}

	if s := r.URL.Query().Get("status"); s != "" {
		if err := validation.ValidateTaskStatus(s); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		status := models.TaskStatus(s)
		filter.Status = &status
	}

	if p := r.URL.Query().Get("priority"); p != "" {
		if err := validation.ValidateTaskPriority(p); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		priority := models.TaskPriority(p)
		filter.Priority = &priority
	}

	if c := r.URL.Query().Get("category_id"); c != "" {
		categoryID, err := uuid.Parse(c)
		if err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid category ID")
			return
		}
		filter.CategoryID = &categoryID
	}

	filter.Search = validation.SanitizeText(r.URL.Query().Get("search"))

	tasks, err := h.taskRepo.GetByUserID(ctx, user.ID, filter)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve tasks")
		return
	}

	if tasks == nil {
		tasks = []*models.Task{}
	}

	respondJSON(w, http.StatusOK, tasks)
}

// CreateTask creates a task and enriches it: priority score, suggested
// deadline, category with tags, and an enhanced description, each falling
// back to deterministic heuristics when the completion service is down.
func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CreateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if maxBytesErr, ok := err.(*http.MaxBytesError); ok {
			respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large", fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
			return
		}
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validateStruct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	req.Description = validation.SanitizeText(req.Description)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required and cannot be empty after sanitization")
		return
	}

	if req.DueDate != nil && req.DueDate.Before(time.Now()) {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Due date cannot be in the past")
		return
	}

	priority := models.TaskPriorityMedium
	if req.Priority != "" {
		priority = models.TaskPriority(req.Priority)
	}

	ctx := r.Context()
	task := &models.Task{
		ID:          uuid.New(),
		UserID:      user.ID,
		Title:       req.Title,
		Description: req.Description,
		Status:      models.TaskStatusPending,
		Priority:    priority,
		DueDate:     req.DueDate,
		Tags:        []string{},
	}

	recent := h.enrichTask(ctx, task)

	if err := h.taskRepo.Create(ctx, task); err != nil {
		h.logger.Error("task_create_failed", zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to create task")
		return
	}

	// Record which context entries informed the enrichment. Best-effort;
	// the task itself is already created.
	for _, entry := range recent {
		if err := h.taskRepo.LinkContextEntry(ctx, task.ID, entry.ID); err != nil {
			h.logger.Warn("context_link_failed",
				zap.String("task_id", task.ID.String()),
				zap.String("entry_id", entry.ID.String()),
				zap.Error(err),
			)
		}
	}

	respondJSON(w, http.StatusCreated, task)
}

// enrichTask fills the AI-derived fields on a new task and returns the
// recent context entries that informed the enrichment. Repository failures
// here degrade the enrichment rather than failing the create.
func (h *TaskHandler) enrichTask(ctx context.Context, task *models.Task) []models.ContextEntry {
	recent, err := h.contextRepo.GetRecent(ctx, task.UserID)
	if err != nil {
		h.logger.Warn("recent_context_unavailable", zap.Error(err))
		recent = nil
	}

	task.PriorityScore = h.engine.ScorePriority(ctx, task.Title, task.Description, recent)

	workload := 0
	if count, err := h.taskRepo.CountPending(ctx, task.UserID); err != nil {
		h.logger.Warn("pending_count_unavailable", zap.Error(err))
	} else {
		workload = count
	}
	task.SuggestedDeadline = h.engine.SuggestDeadline(ctx, task.Title, task.Description, workload)

	categoryName, tags := h.engine.SuggestCategoryAndTags(ctx, task.Title, task.Description)
	if categoryName != "" {
		category, err := h.categoryRepo.GetOrCreate(ctx, categoryName)
		if err != nil {
			h.logger.Warn("category_assignment_failed", zap.String("category", categoryName), zap.Error(err))
		} else {
			task.CategoryID = &category.ID
			task.Tags = tags
			if err := h.categoryRepo.IncrementUsage(ctx, category.ID); err != nil {
				h.logger.Warn("category_usage_increment_failed", zap.Error(err))
			}
		}
	}

	task.AIEnhancedDescription = h.engine.EnhanceDescription(ctx, task.Title, task.Description, recent)

	return recent
}

// GetTask retrieves a task by ID
func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return
	}

	task, err := h.taskRepo.GetByID(r.Context(), user.ID, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// UpdateTask partially updates a task. Status changes keep completed_at
// consistent: it is set when entering completed and cleared when leaving.
func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return
	}

	var req UpdateTaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	ctx := r.Context()
	task, err := h.taskRepo.GetByID(ctx, user.ID, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	if req.Title != nil {
		title := validation.SanitizeText(*req.Title)
		if title == "" {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title cannot be empty")
			return
		}
		if len(title) > MaxTitleLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Title exceeds maximum length of %d characters", MaxTitleLength))
			return
		}
		task.Title = title
	}

	if req.Description != nil {
		description := validation.SanitizeText(*req.Description)
		if len(description) > MaxDescriptionLength {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", fmt.Sprintf("Description exceeds maximum length of %d characters", MaxDescriptionLength))
			return
		}
		task.Description = description
	}

	if req.Status != nil {
		if err := validation.ValidateTaskStatus(string(*req.Status)); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		task.ApplyStatus(*req.Status, time.Now())
	}

	if req.Priority != nil {
		if err := validation.ValidateTaskPriority(string(*req.Priority)); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		task.Priority = *req.Priority
	}

	if req.DueDate != nil {
		task.DueDate = req.DueDate
	}

	if req.CategoryID != nil {
		if _, err := h.categoryRepo.GetByID(ctx, *req.CategoryID); err != nil {
			respondJSONError(w, http.StatusBadRequest, "Bad Request", "Category does not exist")
			return
		}
		task.CategoryID = req.CategoryID
	}

	if req.Tags != nil {
		task.Tags = *req.Tags
	}

	if err := h.taskRepo.Update(ctx, task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// DeleteTask deletes a task by ID
func (h *TaskHandler) DeleteTask(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return
	}

	if err := h.taskRepo.Delete(r.Context(), user.ID, id); err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Task deleted"})
}

// ToggleTaskStatus flips a task between pending and completed
func (h *TaskHandler) ToggleTaskStatus(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid task ID")
		return
	}

	ctx := r.Context()
	task, err := h.taskRepo.GetByID(ctx, user.ID, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Task not found")
		return
	}

	task.ToggleStatus(time.Now())

	if err := h.taskRepo.Update(ctx, task); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update task")
		return
	}

	respondJSON(w, http.StatusOK, task)
}

// GetStats returns aggregate task counts for the authenticated user
func (h *TaskHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	stats, err := h.taskRepo.Stats(r.Context(), user.ID)
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve stats")
		return
	}

	respondJSON(w, http.StatusOK, stats)
}

// GetSuggestions previews enrichment for a prospective task without
// persisting anything
func (h *TaskHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	user := request.UserFromContext(r)
	if user == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req SuggestionsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validateStruct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	req.Title = validation.SanitizeText(req.Title)
	req.Description = validation.SanitizeText(req.Description)
	if req.Title == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Title is required")
		return
	}

	ctx := r.Context()

	recent, err := h.contextRepo.GetRecent(ctx, user.ID)
	if err != nil {
		h.logger.Warn("recent_context_unavailable", zap.Error(err))
		recent = nil
	}

	workload := 0
	if count, err := h.taskRepo.CountPending(ctx, user.ID); err != nil {
		h.logger.Warn("pending_count_unavailable", zap.Error(err))
	} else {
		workload = count
	}

	// Same order as task creation: score, deadline, category, description
	priorityScore := h.engine.ScorePriority(ctx, req.Title, req.Description, recent)
	suggestedDeadline := h.engine.SuggestDeadline(ctx, req.Title, req.Description, workload)
	category, tags := h.engine.SuggestCategoryAndTags(ctx, req.Title, req.Description)
	enhanced := h.engine.EnhanceDescription(ctx, req.Title, req.Description, recent)

	response := SuggestionsResponse{
		PriorityScore:       priorityScore,
		SuggestedDeadline:   suggestedDeadline,
		Category:            category,
		Tags:                tags,
		EnhancedDescription: enhanced,
	}

	respondJSON(w, http.StatusOK, response)
}

// validateStruct runs the shared validator and flattens the first violation
// into a readable message
func validateStruct(v any) error {
	if err := validation.Validate.Struct(v); err != nil {
		if validationErrors, ok := err.(validator.ValidationErrors); ok {
			for _, fieldError := range validationErrors {
				return fmt.Errorf("validation failed: %s", fieldError.Error())
			}
		}
		return fmt.Errorf("validation failed")
	}
	return nil
}
