package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	"github.com/dkrasner/taskmind/internal/models"
)

// TaskRepository handles task database operations
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

// TaskFilter narrows List results. Nil fields are ignored. Search matches
// title and description case-insensitively.
type TaskFilter struct {
	Status     *models.TaskStatus
	Priority   *models.TaskPriority
	CategoryID *uuid.UUID
	Search     string
}

const taskColumns = `id, user_id, title, description, status, priority, priority_score,
	due_date, suggested_deadline, category_id, tags, ai_enhanced_description,
	created_at, updated_at, completed_at`

// Create creates a new task
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (id, user_id, title, description, status, priority, priority_score,
			due_date, suggested_deadline, category_id, tags, ai_enhanced_description,
			created_at, updated_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		RETURNING created_at, updated_at
	`

	tagsJSON, err := json.Marshal(task.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.PriorityScore,
		nullTime(task.DueDate),
		nullTime(task.SuggestedDeadline),
		nullUUID(task.CategoryID),
		tagsJSON,
		task.AIEnhancedDescription,
		now,
		now,
		nullTime(task.CompletedAt),
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a task by ID, scoped to its owner
func (r *TaskRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1 AND user_id = $2`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}

	return task, nil
}

// GetByUserID retrieves tasks for a user with optional filters, newest first
func (r *TaskRepository) GetByUserID(ctx context.Context, userID uuid.UUID, filter TaskFilter) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}
	argIndex := 2

	if filter.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, string(*filter.Status))
		argIndex++
	}

	if filter.Priority != nil {
		query += fmt.Sprintf(" AND priority = $%d", argIndex)
		args = append(args, string(*filter.Priority))
		argIndex++
	}

	if filter.CategoryID != nil {
		query += fmt.Sprintf(" AND category_id = $%d", argIndex)
		args = append(args, *filter.CategoryID)
		argIndex++
	}

	if filter.Search != "" {
		query += fmt.Sprintf(" AND (title ILIKE $%d OR description ILIKE $%d)", argIndex, argIndex)
		args = append(args, "%"+filter.Search+"%")
		argIndex++
	}

	query += " ORDER BY priority_score DESC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// Update updates an existing task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $3, description = $4, status = $5, priority = $6, priority_score = $7,
			due_date = $8, suggested_deadline = $9, category_id = $10, tags = $11,
			ai_enhanced_description = $12, updated_at = $13, completed_at = $14
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`

	tagsJSON, err := json.Marshal(task.Tags)
	if err != nil {
		return fmt.Errorf("failed to marshal tags: %w", err)
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.Status,
		task.Priority,
		task.PriorityScore,
		nullTime(task.DueDate),
		nullTime(task.SuggestedDeadline),
		nullUUID(task.CategoryID),
		tagsJSON,
		task.AIEnhancedDescription,
		now,
		nullTime(task.CompletedAt),
	).Scan(&task.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("task not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// Delete deletes a task by ID, scoped to its owner
func (r *TaskRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	query := `DELETE FROM tasks WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("task not found")
	}

	return nil
}

// CountPending returns the number of pending tasks for a user. The count
// feeds the deadline suggestion heuristic as the current workload.
func (r *TaskRepository) CountPending(ctx context.Context, userID uuid.UUID) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM tasks WHERE user_id = $1 AND status = 'pending'`

	if err := r.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count pending tasks: %w", err)
	}

	return count, nil
}

// Stats aggregates per-user task counts. High priority means a priority
// score of 0.7 or above; overdue means past due and still open.
func (r *TaskRepository) Stats(ctx context.Context, userID uuid.UUID) (*models.TaskStats, error) {
	stats := &models.TaskStats{}
	query := `
		SELECT
			COUNT(*),
			COUNT(*) FILTER (WHERE status = 'completed'),
			COUNT(*) FILTER (WHERE status = 'pending'),
			COUNT(*) FILTER (WHERE status = 'in_progress'),
			COUNT(*) FILTER (WHERE priority_score >= 0.7),
			COUNT(*) FILTER (WHERE due_date < NOW() AND status IN ('pending', 'in_progress'))
		FROM tasks
		WHERE user_id = $1
	`

	err := r.db.QueryRowContext(ctx, query, userID).Scan(
		&stats.Total,
		&stats.Completed,
		&stats.Pending,
		&stats.InProgress,
		&stats.HighPriority,
		&stats.Overdue,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate task stats: %w", err)
	}

	stats.CompletionRate = completionRate(stats.Completed, stats.Total)

	return stats, nil
}

// LinkContextEntry records that a context entry informed a task's enrichment
func (r *TaskRepository) LinkContextEntry(ctx context.Context, taskID, entryID uuid.UUID) error {
	query := `
		INSERT INTO task_context_refs (task_id, context_entry_id)
		VALUES ($1, $2)
		ON CONFLICT DO NOTHING
	`

	if _, err := r.db.ExecContext(ctx, query, taskID, entryID); err != nil {
		return fmt.Errorf("failed to link context entry: %w", err)
	}

	return nil
}

// completionRate returns completed/total as a percentage rounded to one
// decimal place, or 0 when there are no tasks.
func completionRate(completed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(completed)/float64(total)*1000) / 10
}

// scanner abstracts *sql.Row and *sql.Rows for scanTask
type scanner interface {
	Scan(dest ...any) error
}

func scanTask(s scanner) (*models.Task, error) {
	task := &models.Task{}
	var (
		tagsJSON          []byte
		dueDate           sql.NullTime
		suggestedDeadline sql.NullTime
		completedAt       sql.NullTime
		categoryID        uuid.NullUUID
	)

	err := s.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.Status,
		&task.Priority,
		&task.PriorityScore,
		&dueDate,
		&suggestedDeadline,
		&categoryID,
		&tagsJSON,
		&task.AIEnhancedDescription,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(tagsJSON, &task.Tags); err != nil {
		return nil, fmt.Errorf("failed to unmarshal tags: %w", err)
	}
	if task.Tags == nil {
		task.Tags = []string{}
	}

	if dueDate.Valid {
		task.DueDate = &dueDate.Time
	}
	if suggestedDeadline.Valid {
		task.SuggestedDeadline = &suggestedDeadline.Time
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	if categoryID.Valid {
		task.CategoryID = &categoryID.UUID
	}

	return task, nil
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func nullUUID(id *uuid.UUID) uuid.NullUUID {
	if id == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: *id, Valid: true}
}
