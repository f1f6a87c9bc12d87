package workers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/dkrasner/taskmind/internal/database"
	"github.com/dkrasner/taskmind/internal/queue"
	"github.com/dkrasner/taskmind/internal/services/ai"
)

// errProviderUnavailable marks re-analysis attempts where the language model
// still could not be reached, so the job should be retried later.
var errProviderUnavailable = errors.New("analysis provider unavailable")

// Reanalyzer processes insight re-analysis jobs. Entries created while the
// language model was unavailable carry heuristic insights; this worker
// replaces them with model-derived insights once the provider recovers.
type Reanalyzer struct {
	analyzer    *ai.ContextAnalyzer
	contextRepo database.ContextEntryRepositoryInterface
	jobQueue    queue.JobQueue
	logger      *zap.Logger
}

// NewReanalyzer creates a new re-analyzer worker. jobQueue is used to
// re-publish failed jobs with advanced retry counts; it may be nil, in which
// case failures dead-letter immediately.
func NewReanalyzer(analyzer *ai.ContextAnalyzer, contextRepo database.ContextEntryRepositoryInterface, jobQueue queue.JobQueue, logger *zap.Logger) *Reanalyzer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Reanalyzer{
		analyzer:    analyzer,
		contextRepo: contextRepo,
		jobQueue:    jobQueue,
		logger:      logger,
	}
}

// ProcessReanalysisJob re-runs analysis for a single context entry and
// persists the refreshed insights and derived scores
func (r *Reanalyzer) ProcessReanalysisJob(ctx context.Context, job *queue.Job) error {
	if job.EntryID == nil {
		return fmt.Errorf("entry_id is required for re-analysis job")
	}

	entry, err := r.contextRepo.GetByID(ctx, job.UserID, *job.EntryID)
	if err != nil {
		return fmt.Errorf("failed to get context entry: %w", err)
	}

	insights, fromProvider := r.analyzer.Analyze(ctx, entry.Content, entry.SourceType)
	if !fromProvider {
		// Heuristic output again; keep the stored insights untouched and
		// retry later
		return errProviderUnavailable
	}

	entry.Insights = insights
	entry.PriorityScore = insights.DerivedPriorityScore()
	entry.SentimentScore = insights.DerivedSentimentScore()

	if err := r.contextRepo.Update(ctx, entry); err != nil {
		return fmt.Errorf("failed to update context entry: %w", err)
	}

	r.logger.Info("context_entry_reanalyzed",
		zap.String("entry_id", entry.ID.String()),
		zap.String("user_id", entry.UserID.String()),
	)

	return nil
}

// ProcessJob dispatches a queue message based on its job type and handles
// acknowledgement
func (r *Reanalyzer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	switch job.Type {
	case queue.JobTypeInsightReanalysis:
		if err := r.ProcessReanalysisJob(ctx, job); err != nil {
			return r.handleJobError(ctx, msg, job, err)
		}
		if ackErr := msg.Ack(); ackErr != nil {
			return fmt.Errorf("failed to ack job: %w", ackErr)
		}
		return nil

	default:
		if nackErr := msg.Nack(false); nackErr != nil { // Unknown job type, send to DLQ
			r.logger.Warn("failed_to_nack_unknown_job", zap.Error(nackErr))
		}
		return fmt.Errorf("unknown job type: %s", job.Type)
	}
}

// handleJobError applies retry logic. Nacking with requeue would redeliver
// the original message body with its original retry count, so retries are
// instead re-published as a new message carrying the advanced count; the
// broker never sees the same counter twice. When the re-publish fails or
// retries are exhausted the message is dead-lettered.
func (r *Reanalyzer) handleJobError(ctx context.Context, msg queue.MessageInterface, job *queue.Job, err error) error {
	if job.CanRetry() && r.jobQueue != nil {
		retry := &queue.Job{
			ID:         job.ID,
			Type:       job.Type,
			UserID:     job.UserID,
			EntryID:    job.EntryID,
			NotBefore:  job.NotBefore,
			NotAfter:   job.NotAfter,
			Metadata:   job.Metadata,
			CreatedAt:  job.CreatedAt,
			RetryCount: job.RetryCount + 1,
			MaxRetries: job.MaxRetries,
		}

		enqueueErr := r.jobQueue.Enqueue(ctx, retry)
		if enqueueErr == nil {
			if ackErr := msg.Ack(); ackErr != nil {
				r.logger.Warn("failed_to_ack_retried_job", zap.Error(ackErr))
			}
			r.logger.Warn("reanalysis_job_retry",
				zap.String("job_id", job.ID.String()),
				zap.Int("retry_count", retry.RetryCount),
				zap.Int("max_retries", retry.MaxRetries),
				zap.Error(err),
			)
			return fmt.Errorf("job failed (will retry): %w", err)
		}
		r.logger.Error("reanalysis_retry_enqueue_failed",
			zap.String("job_id", job.ID.String()),
			zap.Error(enqueueErr),
		)
	}

	r.logger.Error("reanalysis_job_dead_lettered",
		zap.String("job_id", job.ID.String()),
		zap.Int("retry_count", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
		zap.Error(err),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		r.logger.Warn("failed_to_nack_job_to_dlq", zap.Error(nackErr))
	}
	return fmt.Errorf("job failed (max retries): %w", err)
}

// Run consumes jobs from the queue until the context is cancelled
func (r *Reanalyzer) Run(ctx context.Context, prefetchCount int) error {
	msgs, errs, err := r.jobQueue.Consume(ctx, prefetchCount)
	if err != nil {
		return fmt.Errorf("failed to start consuming: %w", err)
	}

	r.logger.Info("reanalyzer_started", zap.Int("prefetch_count", prefetchCount))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case consumeErr, ok := <-errs:
			if !ok {
				return nil
			}
			r.logger.Error("queue_consume_error", zap.Error(consumeErr))

		case msg, ok := <-msgs:
			if !ok {
				return nil
			}
			if err := r.ProcessJob(ctx, msg); err != nil {
				r.logger.Warn("job_processing_failed", zap.Error(err))
			}
		}
	}
}
