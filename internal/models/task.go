package models

import (
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusCancelled  TaskStatus = "cancelled"
)

// TaskPriority represents the user-facing priority label of a task
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "low"
	TaskPriorityMedium TaskPriority = "medium"
	TaskPriorityHigh   TaskPriority = "high"
	TaskPriorityUrgent TaskPriority = "urgent"
)

// Task represents a task item with its AI-derived enrichment fields
type Task struct {
	ID                    uuid.UUID    `json:"id"`
	UserID                uuid.UUID    `json:"user_id"`
	Title                 string       `json:"title"`
	Description           string       `json:"description,omitempty"`
	Status                TaskStatus   `json:"status"`
	Priority              TaskPriority `json:"priority"`
	PriorityScore         float64      `json:"priority_score"`
	DueDate               *time.Time   `json:"due_date,omitempty"`
	SuggestedDeadline     *time.Time   `json:"suggested_deadline,omitempty"`
	CategoryID            *uuid.UUID   `json:"category_id,omitempty"`
	Tags                  []string     `json:"tags"`
	AIEnhancedDescription string       `json:"ai_enhanced_description,omitempty"`
	CreatedAt             time.Time    `json:"created_at"`
	UpdatedAt             time.Time    `json:"updated_at"`
	CompletedAt           *time.Time   `json:"completed_at,omitempty"`
}

// ApplyStatus transitions the task to the given status and keeps CompletedAt
// consistent: non-nil iff the task is completed. Every status mutation goes
// through here so the invariant holds regardless of which endpoint changed it.
func (t *Task) ApplyStatus(status TaskStatus, now time.Time) {
	t.Status = status
	if status == TaskStatusCompleted {
		completed := now
		t.CompletedAt = &completed
	} else {
		t.CompletedAt = nil
	}
}

// ToggleStatus flips a task between pending and completed. Tasks in other
// states are left untouched.
func (t *Task) ToggleStatus(now time.Time) {
	switch t.Status {
	case TaskStatusPending:
		t.ApplyStatus(TaskStatusCompleted, now)
	case TaskStatusCompleted:
		t.ApplyStatus(TaskStatusPending, now)
	}
}

// TaskStats holds per-user aggregate counts for the stats endpoint
type TaskStats struct {
	Total          int     `json:"total"`
	Completed      int     `json:"completed"`
	Pending        int     `json:"pending"`
	InProgress     int     `json:"in_progress"`
	HighPriority   int     `json:"high_priority"`
	Overdue        int     `json:"overdue"`
	CompletionRate float64 `json:"completion_rate"`
}
