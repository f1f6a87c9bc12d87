package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/dkrasner/taskmind/internal/database"
	"github.com/dkrasner/taskmind/internal/models"
	"github.com/dkrasner/taskmind/internal/request"
	"github.com/dkrasner/taskmind/internal/validation"
)

// CategoryHandler handles category-related requests
type CategoryHandler struct {
	categoryRepo database.CategoryRepositoryInterface
}

// NewCategoryHandler creates a new category handler
func NewCategoryHandler(categoryRepo database.CategoryRepositoryInterface) *CategoryHandler {
	return &CategoryHandler{categoryRepo: categoryRepo}
}

// RegisterRoutes registers category routes on the given router.
// The router should already have the /categories prefix.
func (h *CategoryHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListCategories).Methods("GET")
	r.HandleFunc("", h.CreateCategory).Methods("POST")
	r.HandleFunc("/{id}", h.GetCategory).Methods("GET")
	r.HandleFunc("/{id}", h.UpdateCategory).Methods("PATCH")
	r.HandleFunc("/{id}", h.DeleteCategory).Methods("DELETE")
}

// CategoryRequest represents a create or update category request
type CategoryRequest struct {
	Name  string `json:"name" validate:"required,min=1,max=100"`
	Color string `json:"color" validate:"omitempty,hexcolor"`
}

// ListCategories lists all categories ordered by usage
func (h *CategoryHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	if request.UserFromContext(r) == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	categories, err := h.categoryRepo.List(r.Context())
	if err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to retrieve categories")
		return
	}

	if categories == nil {
		categories = []*models.Category{}
	}

	respondJSON(w, http.StatusOK, categories)
}

// CreateCategory creates a new category
func (h *CategoryHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	if request.UserFromContext(r) == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validateStruct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	req.Name = validation.SanitizeText(req.Name)
	if req.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name is required and cannot be empty after sanitization")
		return
	}

	category := &models.Category{
		ID:    uuid.New(),
		Name:  req.Name,
		Color: req.Color,
	}

	if err := h.categoryRepo.Create(r.Context(), category); err != nil {
		respondJSONError(w, http.StatusConflict, "Conflict", "Category could not be created")
		return
	}

	respondJSON(w, http.StatusCreated, category)
}

// GetCategory retrieves a category by ID
func (h *CategoryHandler) GetCategory(w http.ResponseWriter, r *http.Request) {
	if request.UserFromContext(r) == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid category ID")
		return
	}

	category, err := h.categoryRepo.GetByID(r.Context(), id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Category not found")
		return
	}

	respondJSON(w, http.StatusOK, category)
}

// UpdateCategory updates a category's name and color
func (h *CategoryHandler) UpdateCategory(w http.ResponseWriter, r *http.Request) {
	if request.UserFromContext(r) == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid category ID")
		return
	}

	var req CategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body")
		return
	}

	if err := validateStruct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	ctx := r.Context()
	category, err := h.categoryRepo.GetByID(ctx, id)
	if err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Category not found")
		return
	}

	category.Name = validation.SanitizeText(req.Name)
	if category.Name == "" {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Name cannot be empty")
		return
	}
	if req.Color != "" {
		category.Color = req.Color
	}

	if err := h.categoryRepo.Update(ctx, category); err != nil {
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", "Failed to update category")
		return
	}

	respondJSON(w, http.StatusOK, category)
}

// DeleteCategory deletes a category by ID
func (h *CategoryHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	if request.UserFromContext(r) == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "User not found in context")
		return
	}

	id, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid category ID")
		return
	}

	if err := h.categoryRepo.Delete(r.Context(), id); err != nil {
		respondJSONError(w, http.StatusNotFound, "Not Found", "Category not found")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Category deleted"})
}
