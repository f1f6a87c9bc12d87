package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dkrasner/taskmind/internal/models"
)

const (
	// recentContextWindow bounds how far back recent context reaches
	recentContextWindow = 7 * 24 * time.Hour
	// recentContextLimit caps how many entries feed a suggestion prompt
	recentContextLimit = 10
)

// ContextEntryRepository handles context entry database operations
type ContextEntryRepository struct {
	db *DB
}

// NewContextEntryRepository creates a new context entry repository
func NewContextEntryRepository(db *DB) *ContextEntryRepository {
	return &ContextEntryRepository{db: db}
}

// Create creates a new context entry
func (r *ContextEntryRepository) Create(ctx context.Context, entry *models.ContextEntry) error {
	query := `
		INSERT INTO context_entries (id, user_id, content, source_type, source_title,
			insights, priority_score, sentiment_score, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`

	insightsJSON, err := json.Marshal(entry.Insights)
	if err != nil {
		return fmt.Errorf("failed to marshal insights: %w", err)
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Content,
		entry.SourceType,
		entry.SourceTitle,
		insightsJSON,
		entry.PriorityScore,
		entry.SentimentScore,
		now,
		now,
	).Scan(&entry.CreatedAt, &entry.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create context entry: %w", err)
	}

	return nil
}

// GetByID retrieves a context entry by ID, scoped to its owner
func (r *ContextEntryRepository) GetByID(ctx context.Context, userID, id uuid.UUID) (*models.ContextEntry, error) {
	query := `
		SELECT id, user_id, content, source_type, source_title, insights,
			priority_score, sentiment_score, created_at, updated_at
		FROM context_entries
		WHERE id = $1 AND user_id = $2
	`

	entry, err := scanContextEntry(r.db.QueryRowContext(ctx, query, id, userID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("context entry not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get context entry: %w", err)
	}

	return entry, nil
}

// GetByUserID retrieves all context entries for a user, newest first,
// optionally filtered by source type
func (r *ContextEntryRepository) GetByUserID(ctx context.Context, userID uuid.UUID, sourceType *models.SourceType) ([]*models.ContextEntry, error) {
	query := `
		SELECT id, user_id, content, source_type, source_title, insights,
			priority_score, sentiment_score, created_at, updated_at
		FROM context_entries
		WHERE user_id = $1
	`
	args := []any{userID}

	if sourceType != nil {
		query += " AND source_type = $2"
		args = append(args, string(*sourceType))
	}

	query += " ORDER BY created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query context entries: %w", err)
	}
	defer rows.Close()

	return collectContextEntries(rows)
}

// GetRecent retrieves the user's context entries from the last seven days,
// newest first, capped so suggestion prompts stay bounded.
func (r *ContextEntryRepository) GetRecent(ctx context.Context, userID uuid.UUID) ([]models.ContextEntry, error) {
	query := `
		SELECT id, user_id, content, source_type, source_title, insights,
			priority_score, sentiment_score, created_at, updated_at
		FROM context_entries
		WHERE user_id = $1 AND created_at >= $2
		ORDER BY created_at DESC
		LIMIT $3
	`

	cutoff := time.Now().Add(-recentContextWindow)
	rows, err := r.db.QueryContext(ctx, query, userID, cutoff, recentContextLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent context entries: %w", err)
	}
	defer rows.Close()

	entries, err := collectContextEntries(rows)
	if err != nil {
		return nil, err
	}

	result := make([]models.ContextEntry, 0, len(entries))
	for _, entry := range entries {
		result = append(result, *entry)
	}

	return result, nil
}

// Update updates an existing context entry
func (r *ContextEntryRepository) Update(ctx context.Context, entry *models.ContextEntry) error {
	query := `
		UPDATE context_entries
		SET content = $3, source_type = $4, source_title = $5, insights = $6,
			priority_score = $7, sentiment_score = $8, updated_at = $9
		WHERE id = $1 AND user_id = $2
		RETURNING updated_at
	`

	insightsJSON, err := json.Marshal(entry.Insights)
	if err != nil {
		return fmt.Errorf("failed to marshal insights: %w", err)
	}

	now := time.Now()
	err = r.db.QueryRowContext(ctx, query,
		entry.ID,
		entry.UserID,
		entry.Content,
		entry.SourceType,
		entry.SourceTitle,
		insightsJSON,
		entry.PriorityScore,
		entry.SentimentScore,
		now,
	).Scan(&entry.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("context entry not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update context entry: %w", err)
	}

	return nil
}

// Delete deletes a context entry by ID, scoped to its owner
func (r *ContextEntryRepository) Delete(ctx context.Context, userID, id uuid.UUID) error {
	query := `DELETE FROM context_entries WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return fmt.Errorf("failed to delete context entry: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("context entry not found")
	}

	return nil
}

func collectContextEntries(rows *sql.Rows) ([]*models.ContextEntry, error) {
	var entries []*models.ContextEntry
	for rows.Next() {
		entry, err := scanContextEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan context entry: %w", err)
		}
		entries = append(entries, entry)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating context entries: %w", err)
	}

	return entries, nil
}

func scanContextEntry(s scanner) (*models.ContextEntry, error) {
	entry := &models.ContextEntry{}
	var insightsJSON []byte

	err := s.Scan(
		&entry.ID,
		&entry.UserID,
		&entry.Content,
		&entry.SourceType,
		&entry.SourceTitle,
		&insightsJSON,
		&entry.PriorityScore,
		&entry.SentimentScore,
		&entry.CreatedAt,
		&entry.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(insightsJSON, &entry.Insights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal insights: %w", err)
	}

	return entry, nil
}
