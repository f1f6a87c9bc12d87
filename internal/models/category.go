package models

import (
	"time"

	"github.com/google/uuid"
)

// DefaultCategoryColor is the hex color assigned to categories created by suggestion
const DefaultCategoryColor = "#3B82F6"

// Category represents a task category
type Category struct {
	ID             uuid.UUID `json:"id"`
	Name           string    `json:"name"`
	Color          string    `json:"color"`
	UsageFrequency int       `json:"usage_frequency"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}
