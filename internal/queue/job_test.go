package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	entryID := uuid.New()
	job := NewJob(JobTypeInsightReanalysis, userID, &entryID)

	if job.ID == uuid.Nil {
		t.Error("expected job ID to be set")
	}
	if job.Type != JobTypeInsightReanalysis {
		t.Errorf("Type = %q, want %q", job.Type, JobTypeInsightReanalysis)
	}
	if job.UserID != userID {
		t.Errorf("UserID = %v, want %v", job.UserID, userID)
	}
	if job.EntryID == nil || *job.EntryID != entryID {
		t.Errorf("EntryID = %v, want %v", job.EntryID, entryID)
	}
	if job.RetryCount != 0 || job.MaxRetries != 3 {
		t.Errorf("retries = %d/%d, want 0/3", job.RetryCount, job.MaxRetries)
	}
}

func TestJobShouldProcess(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		notBefore *time.Time
		notAfter  *time.Time
		want      bool
	}{
		{name: "no window", want: true},
		{name: "not before in past", notBefore: &past, want: true},
		{name: "not before in future", notBefore: &future, want: false},
		{name: "not after in future", notAfter: &future, want: true},
		{name: "not after in past", notAfter: &past, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := NewJob(JobTypeInsightReanalysis, uuid.New(), nil)
			job.NotBefore = tt.notBefore
			job.NotAfter = tt.notAfter
			if got := job.ShouldProcess(); got != tt.want {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJobRetry(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeInsightReanalysis, uuid.New(), nil)

	for i := 0; i < 3; i++ {
		if !job.CanRetry() {
			t.Fatalf("CanRetry() = false after %d retries, want true", i)
		}
		job.IncrementRetry()
	}

	if job.CanRetry() {
		t.Error("CanRetry() = true after exhausting retries, want false")
	}
}

func TestJobIsExpired(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeInsightReanalysis, uuid.New(), nil)
	if job.IsExpired() {
		t.Error("IsExpired() = true with no NotAfter, want false")
	}

	past := time.Now().Add(-time.Minute)
	job.NotAfter = &past
	if !job.IsExpired() {
		t.Error("IsExpired() = false with past NotAfter, want true")
	}
}
