package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/dkrasner/taskmind/internal/models"
)

// TaskRepositoryInterface defines the interface for task repository operations
// This interface enables better testability by allowing mock implementations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Task, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]*models.Task, error)
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
	CountPending(ctx context.Context, userID uuid.UUID) (int, error)
	Stats(ctx context.Context, userID uuid.UUID) (*models.TaskStats, error)
	LinkContextEntry(ctx context.Context, taskID, entryID uuid.UUID) error
}

// CategoryRepositoryInterface defines the interface for category repository operations
type CategoryRepositoryInterface interface {
	Create(ctx context.Context, category *models.Category) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Category, error)
	GetOrCreate(ctx context.Context, name string) (*models.Category, error)
	List(ctx context.Context) ([]*models.Category, error)
	Update(ctx context.Context, category *models.Category) error
	IncrementUsage(ctx context.Context, id uuid.UUID) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// ContextEntryRepositoryInterface defines the interface for context entry repository operations
type ContextEntryRepositoryInterface interface {
	Create(ctx context.Context, entry *models.ContextEntry) error
	GetByID(ctx context.Context, userID, id uuid.UUID) (*models.ContextEntry, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, sourceType *models.SourceType) ([]*models.ContextEntry, error)
	GetRecent(ctx context.Context, userID uuid.UUID) ([]models.ContextEntry, error)
	Update(ctx context.Context, entry *models.ContextEntry) error
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface         = (*TaskRepository)(nil)
	_ CategoryRepositoryInterface     = (*CategoryRepository)(nil)
	_ ContextEntryRepositoryInterface = (*ContextEntryRepository)(nil)
	_ UserRepositoryInterface         = (*UserRepository)(nil)
)
