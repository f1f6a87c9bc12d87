package database

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

// Note: full integration testing of the repositories requires a database.
// These tests cover the pure helpers the queries are built on.

func TestCompletionRate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name      string
		completed int
		total     int
		want      float64
	}{
		{name: "no tasks", completed: 0, total: 0, want: 0},
		{name: "none completed", completed: 0, total: 5, want: 0},
		{name: "all completed", completed: 5, total: 5, want: 100},
		{name: "half completed", completed: 1, total: 2, want: 50},
		{name: "rounds to one decimal", completed: 1, total: 3, want: 33.3},
		{name: "rounds up", completed: 2, total: 3, want: 66.7},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := completionRate(tt.completed, tt.total); got != tt.want {
				t.Errorf("completionRate(%d, %d) = %v, want %v", tt.completed, tt.total, got, tt.want)
			}
		})
	}
}

func TestNullTime(t *testing.T) {
	t.Parallel()

	if got := nullTime(nil); got.Valid {
		t.Error("nullTime(nil).Valid = true, want false")
	}

	now := time.Now()
	got := nullTime(&now)
	if !got.Valid || !got.Time.Equal(now) {
		t.Errorf("nullTime(&now) = %+v, want valid %v", got, now)
	}
}

func TestNullUUID(t *testing.T) {
	t.Parallel()

	if got := nullUUID(nil); got.Valid {
		t.Error("nullUUID(nil).Valid = true, want false")
	}

	id := uuid.New()
	got := nullUUID(&id)
	if !got.Valid || got.UUID != id {
		t.Errorf("nullUUID(&id) = %+v, want valid %v", got, id)
	}
}
