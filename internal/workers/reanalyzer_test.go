package workers

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dkrasner/taskmind/internal/models"
	"github.com/dkrasner/taskmind/internal/queue"
	"github.com/dkrasner/taskmind/internal/services/ai"
)

type stubProvider struct {
	reply string
	err   error
}

func (s *stubProvider) Complete(_ context.Context, _ string) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

type mockContextRepo struct {
	entries map[uuid.UUID]*models.ContextEntry
	updated []*models.ContextEntry
}

func newMockContextRepo() *mockContextRepo {
	return &mockContextRepo{entries: make(map[uuid.UUID]*models.ContextEntry)}
}

func (m *mockContextRepo) Create(_ context.Context, entry *models.ContextEntry) error {
	m.entries[entry.ID] = entry
	return nil
}

func (m *mockContextRepo) GetByID(_ context.Context, userID, id uuid.UUID) (*models.ContextEntry, error) {
	entry, ok := m.entries[id]
	if !ok || entry.UserID != userID {
		return nil, fmt.Errorf("context entry not found")
	}
	copied := *entry
	return &copied, nil
}

func (m *mockContextRepo) GetByUserID(_ context.Context, _ uuid.UUID, _ *models.SourceType) ([]*models.ContextEntry, error) {
	return nil, nil
}

func (m *mockContextRepo) GetRecent(_ context.Context, _ uuid.UUID) ([]models.ContextEntry, error) {
	return nil, nil
}

func (m *mockContextRepo) Update(_ context.Context, entry *models.ContextEntry) error {
	m.entries[entry.ID] = entry
	m.updated = append(m.updated, entry)
	return nil
}

func (m *mockContextRepo) Delete(_ context.Context, _, _ uuid.UUID) error {
	return nil
}

type mockJobQueue struct {
	enqueued   []*queue.Job
	enqueueErr error
}

func (m *mockJobQueue) Enqueue(_ context.Context, job *queue.Job) error {
	if m.enqueueErr != nil {
		return m.enqueueErr
	}
	m.enqueued = append(m.enqueued, job)
	return nil
}

func (m *mockJobQueue) Consume(_ context.Context, _ int) (<-chan *queue.Message, <-chan error, error) {
	return nil, nil, fmt.Errorf("not implemented")
}

func (m *mockJobQueue) Close() error {
	return nil
}

func (m *mockJobQueue) HealthCheck(_ context.Context) error {
	return nil
}

type mockMessage struct {
	job      *queue.Job
	acked    bool
	nacked   bool
	requeued bool
}

func (m *mockMessage) Ack() error {
	m.acked = true
	return nil
}

func (m *mockMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeued = requeue
	return nil
}

func (m *mockMessage) GetJob() *queue.Job {
	return m.job
}

func TestProcessJobReanalyzesEntry(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	entry := &models.ContextEntry{
		ID:         uuid.New(),
		UserID:     userID,
		Content:    "urgent deadline for the project report",
		SourceType: models.SourceTypeNotes,
	}

	repo := newMockContextRepo()
	repo.entries[entry.ID] = entry

	provider := &stubProvider{
		reply: `{"topics":["project"],"deadlines":["friday"],"priorities":["high"],"sentiment":"negative","action_items":["write report"],"keywords":["report"]}`,
	}
	analyzer := ai.NewContextAnalyzer(provider, zap.NewNop())
	worker := NewReanalyzer(analyzer, repo, &mockJobQueue{}, zap.NewNop())

	job := queue.NewJob(queue.JobTypeInsightReanalysis, userID, &entry.ID)
	msg := &mockMessage{job: job}

	if err := worker.ProcessJob(context.Background(), msg); err != nil {
		t.Fatalf("ProcessJob() error = %v", err)
	}

	if !msg.acked {
		t.Error("Expected message to be acked")
	}
	if len(repo.updated) != 1 {
		t.Fatalf("Expected 1 update, got %d", len(repo.updated))
	}

	got := repo.updated[0]
	if got.Insights.Sentiment != "negative" {
		t.Errorf("Expected sentiment 'negative', got %q", got.Insights.Sentiment)
	}
	if got.PriorityScore != 0.8 {
		t.Errorf("Expected priority score 0.8, got %v", got.PriorityScore)
	}
	if got.SentimentScore != 0.2 {
		t.Errorf("Expected sentiment score 0.2, got %v", got.SentimentScore)
	}
}

func TestProcessJobRepublishesRetryWhenProviderUnavailable(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	entry := &models.ContextEntry{
		ID:         uuid.New(),
		UserID:     userID,
		Content:    "buy groceries",
		SourceType: models.SourceTypeNotes,
	}

	repo := newMockContextRepo()
	repo.entries[entry.ID] = entry

	provider := &stubProvider{err: ai.Unavailable(fmt.Errorf("connection refused"))}
	analyzer := ai.NewContextAnalyzer(provider, zap.NewNop())
	jobQueue := &mockJobQueue{}
	worker := NewReanalyzer(analyzer, repo, jobQueue, zap.NewNop())

	job := queue.NewJob(queue.JobTypeInsightReanalysis, userID, &entry.ID)
	msg := &mockMessage{job: job}

	err := worker.ProcessJob(context.Background(), msg)
	if err == nil {
		t.Fatal("Expected error when provider is unavailable")
	}

	// Retries go out as a fresh message carrying the advanced count; the
	// original is acked, never requeued
	if !msg.acked {
		t.Error("Expected original message to be acked")
	}
	if msg.nacked {
		t.Error("Expected original message not to be nacked")
	}
	if len(jobQueue.enqueued) != 1 {
		t.Fatalf("Expected 1 re-published job, got %d", len(jobQueue.enqueued))
	}

	retry := jobQueue.enqueued[0]
	if retry.RetryCount != 1 {
		t.Errorf("Expected re-published retry count 1, got %d", retry.RetryCount)
	}
	if retry.ID != job.ID {
		t.Errorf("Expected retry to keep job ID %s, got %s", job.ID, retry.ID)
	}
	if retry.EntryID == nil || *retry.EntryID != entry.ID {
		t.Error("Expected retry to keep the entry ID")
	}
	if len(repo.updated) != 0 {
		t.Errorf("Expected no updates, got %d", len(repo.updated))
	}
}

func TestProcessJobDeadLettersAfterMaxRetries(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	entry := &models.ContextEntry{
		ID:         uuid.New(),
		UserID:     userID,
		Content:    "buy groceries",
		SourceType: models.SourceTypeNotes,
	}

	repo := newMockContextRepo()
	repo.entries[entry.ID] = entry

	provider := &stubProvider{err: ai.Unavailable(fmt.Errorf("connection refused"))}
	analyzer := ai.NewContextAnalyzer(provider, zap.NewNop())
	jobQueue := &mockJobQueue{}
	worker := NewReanalyzer(analyzer, repo, jobQueue, zap.NewNop())

	job := queue.NewJob(queue.JobTypeInsightReanalysis, userID, &entry.ID)
	job.RetryCount = job.MaxRetries
	msg := &mockMessage{job: job}

	err := worker.ProcessJob(context.Background(), msg)
	if err == nil {
		t.Fatal("Expected error after max retries")
	}

	if !msg.nacked {
		t.Error("Expected message to be nacked")
	}
	if msg.requeued {
		t.Error("Expected message not to be requeued after max retries")
	}
	if len(jobQueue.enqueued) != 0 {
		t.Errorf("Expected no re-published jobs, got %d", len(jobQueue.enqueued))
	}
}

func TestProcessJobDeadLettersWhenRetryPublishFails(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	entry := &models.ContextEntry{
		ID:         uuid.New(),
		UserID:     userID,
		Content:    "buy groceries",
		SourceType: models.SourceTypeNotes,
	}

	repo := newMockContextRepo()
	repo.entries[entry.ID] = entry

	provider := &stubProvider{err: ai.Unavailable(fmt.Errorf("connection refused"))}
	analyzer := ai.NewContextAnalyzer(provider, zap.NewNop())
	jobQueue := &mockJobQueue{enqueueErr: fmt.Errorf("channel closed")}
	worker := NewReanalyzer(analyzer, repo, jobQueue, zap.NewNop())

	job := queue.NewJob(queue.JobTypeInsightReanalysis, userID, &entry.ID)
	msg := &mockMessage{job: job}

	err := worker.ProcessJob(context.Background(), msg)
	if err == nil {
		t.Fatal("Expected error when retry publish fails")
	}

	if !msg.nacked || msg.requeued {
		t.Error("Expected message to be dead lettered when retry publish fails")
	}
}

// TestRetryCountSurvivesRedelivery walks a job through full broker delivery
// cycles: each cycle serializes the job as the wire body, deserializes it
// into a fresh Job the way the consumer does, and processes it. The retry
// count must advance across cycles so a permanently failing job reaches the
// dead-letter queue instead of cycling forever.
func TestRetryCountSurvivesRedelivery(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	entry := &models.ContextEntry{
		ID:         uuid.New(),
		UserID:     userID,
		Content:    "buy groceries",
		SourceType: models.SourceTypeNotes,
	}

	repo := newMockContextRepo()
	repo.entries[entry.ID] = entry

	provider := &stubProvider{err: ai.Unavailable(fmt.Errorf("connection refused"))}
	analyzer := ai.NewContextAnalyzer(provider, zap.NewNop())
	jobQueue := &mockJobQueue{}
	worker := NewReanalyzer(analyzer, repo, jobQueue, zap.NewNop())

	initial := queue.NewJob(queue.JobTypeInsightReanalysis, userID, &entry.ID)
	body, err := json.Marshal(initial)
	if err != nil {
		t.Fatalf("Failed to marshal job: %v", err)
	}

	// Initial delivery plus MaxRetries retries, then the DLQ
	maxDeliveries := initial.MaxRetries + 1
	deadLettered := false

	for cycle := 0; cycle < 10; cycle++ {
		var delivered queue.Job
		if err := json.Unmarshal(body, &delivered); err != nil {
			t.Fatalf("Failed to unmarshal wire body: %v", err)
		}
		if delivered.RetryCount != cycle {
			t.Fatalf("Cycle %d: expected wire retry count %d, got %d", cycle, cycle, delivered.RetryCount)
		}

		msg := &mockMessage{job: &delivered}
		_ = worker.ProcessJob(context.Background(), msg)

		if msg.nacked && !msg.requeued {
			deadLettered = true
			if cycle != maxDeliveries-1 {
				t.Errorf("Expected dead-letter on cycle %d, got cycle %d", maxDeliveries-1, cycle)
			}
			break
		}

		if !msg.acked {
			t.Fatalf("Cycle %d: expected message to be acked", cycle)
		}
		if len(jobQueue.enqueued) != cycle+1 {
			t.Fatalf("Cycle %d: expected %d re-published jobs, got %d", cycle, cycle+1, len(jobQueue.enqueued))
		}

		body, err = json.Marshal(jobQueue.enqueued[cycle])
		if err != nil {
			t.Fatalf("Failed to marshal re-published job: %v", err)
		}
	}

	if !deadLettered {
		t.Fatal("Expected job to reach the dead-letter queue")
	}
}

func TestProcessJobRejectsUnknownType(t *testing.T) {
	t.Parallel()

	worker := NewReanalyzer(nil, newMockContextRepo(), &mockJobQueue{}, zap.NewNop())

	job := queue.NewJob("unknown_type", uuid.New(), nil)
	msg := &mockMessage{job: job}

	err := worker.ProcessJob(context.Background(), msg)
	if err == nil {
		t.Fatal("Expected error for unknown job type")
	}

	if !msg.nacked || msg.requeued {
		t.Error("Expected message to be dead lettered")
	}
}

func TestProcessReanalysisJobRequiresEntryID(t *testing.T) {
	t.Parallel()

	worker := NewReanalyzer(nil, newMockContextRepo(), &mockJobQueue{}, zap.NewNop())

	job := queue.NewJob(queue.JobTypeInsightReanalysis, uuid.New(), nil)

	if err := worker.ProcessReanalysisJob(context.Background(), job); err == nil {
		t.Fatal("Expected error when entry_id is missing")
	}
}
