package verify

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/sells-group/verify-cli/internal/checkpoint"
	"github.com/sells-group/verify-cli/internal/model"
	"github.com/sells-group/verify-cli/internal/resilience"
	"github.com/sells-group/verify-cli/internal/store"
)

// BatchOptions tunes how a batch run is executed.
type BatchOptions struct {
	BatchSize   int           // announcements per batch, default 15
	Concurrency int           // workers within a batch, default 8
	Pacing      time.Duration // delay after each item, default 300ms
}

// DefaultBatchOptions returns the tuning used in production runs.
func DefaultBatchOptions() BatchOptions {
	return BatchOptions{
		BatchSize:   15,
		Concurrency: 8,
		Pacing:      300 * time.Millisecond,
	}
}

func (o BatchOptions) withDefaults() BatchOptions {
	d := DefaultBatchOptions()
	if o.BatchSize <= 0 {
		o.BatchSize = d.BatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = d.Concurrency
	}
	if o.Pacing < 0 {
		o.Pacing = d.Pacing
	}
	return o
}

// ProgressEvent reports the completion of one announcement during a
// batch run.
type ProgressEvent struct {
	Processed      int // announcements completed so far, including skipped
	Total          int
	AnnouncementID string
	Company        string
	Status         model.VerificationStatus
}

// Orchestrator runs the pipeline over many announcements in paced
// batches, persisting results per batch and checkpointing per item so
// an interrupted run can resume without repeating work.
type Orchestrator struct {
	pipeline     *Pipeline
	checkpoint   checkpoint.Store
	results      store.Store
	opts         BatchOptions
	storageRetry resilience.RetryConfig
	onProgress   func(ProgressEvent)
}

// NewOrchestrator builds an orchestrator around a pipeline.
func NewOrchestrator(p *Pipeline, cp checkpoint.Store, results store.Store, opts BatchOptions) *Orchestrator {
	return &Orchestrator{
		pipeline:     p,
		checkpoint:   cp,
		results:      results,
		opts:         opts.withDefaults(),
		storageRetry: storageRetryConfig(),
	}
}

// storageRetryConfig is the policy for checkpoint and store writes.
// Unlike network calls, every storage error is worth a retry, and the
// backoff is short so a stuck disk does not stall the whole run.
func storageRetryConfig() resilience.RetryConfig {
	return resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: 500 * time.Millisecond,
		MaxBackoff:     2 * time.Second,
		Multiplier:     2.0,
		ShouldRetry:    func(error) bool { return true },
		OnRetry:        resilience.RetryLogger("storage", "write"),
	}
}

// OnProgress registers a callback invoked after each announcement
// finishes. The callback runs on a worker goroutine.
func (o *Orchestrator) OnProgress(fn func(ProgressEvent)) { o.onProgress = fn }

// Run verifies every announcement not already covered by the
// checkpoint. Returns the run summary and all results from this run;
// results are also flushed to the store after each batch. The
// checkpoint is cleared only when the whole run completes.
func (o *Orchestrator) Run(ctx context.Context, announcements []model.Announcement) (model.RunSummary, []model.VerificationResult, error) {
	summary := model.RunSummary{
		RunID:     uuid.NewString(),
		Total:     len(announcements),
		ByStatus:  make(map[model.VerificationStatus]int),
		StartedAt: time.Now().UTC(),
	}

	processed := o.checkpoint.Load()
	pending := make([]model.Announcement, 0, len(announcements))
	for _, a := range announcements {
		if processed[a.ID] {
			continue
		}
		pending = append(pending, a)
	}
	if skipped := len(announcements) - len(pending); skipped > 0 {
		zap.L().Info("batch: resuming from checkpoint",
			zap.Int("already_processed", skipped),
			zap.Int("pending", len(pending)),
		)
	}

	var (
		mu         sync.Mutex // guards processed, results and saveErr
		allResults []model.VerificationResult
		saveErr    error
		done       atomic.Int64
		errCount   atomic.Int64
	)
	done.Store(int64(len(announcements) - len(pending)))

	for start := 0; start < len(pending); start += o.opts.BatchSize {
		if err := ctx.Err(); err != nil {
			return o.finish(summary, allResults, &done, &errCount), allResults, eris.Wrap(err, "batch: run interrupted")
		}

		end := min(start+o.opts.BatchSize, len(pending))
		batch := pending[start:end]
		batchResults := make([]model.VerificationResult, len(batch))

		zap.L().Info("batch: starting batch",
			zap.Int("batch_start", start),
			zap.Int("batch_size", len(batch)),
			zap.Int("total_pending", len(pending)),
		)

		g, gCtx := errgroup.WithContext(ctx)
		g.SetLimit(o.opts.Concurrency)

		for i, a := range batch {
			g.Go(func() error {
				result, failed := o.pipeline.VerifyOne(gCtx, a)
				batchResults[i] = result

				mu.Lock()
				processed[a.ID] = true
				err := resilience.Do(gCtx, o.storageRetry, func(context.Context) error {
					return o.checkpoint.Save(processed)
				})
				if err != nil && saveErr == nil {
					saveErr = err
				}
				mu.Unlock()

				if failed {
					errCount.Add(1)
				}
				n := done.Add(1)
				if o.onProgress != nil {
					o.onProgress(ProgressEvent{
						Processed:      int(n),
						Total:          summary.Total,
						AnnouncementID: a.ID,
						Company:        a.CompanyName,
						Status:         result.Status,
					})
				}

				if o.opts.Pacing > 0 {
					select {
					case <-time.After(o.opts.Pacing):
					case <-gCtx.Done():
					}
				}
				return nil
			})
		}
		_ = g.Wait()

		mu.Lock()
		allResults = append(allResults, batchResults...)
		mu.Unlock()

		if err := resilience.Do(ctx, o.storageRetry, func(ctx context.Context) error {
			return o.results.AppendResults(ctx, batchResults)
		}); err != nil {
			return o.finish(summary, allResults, &done, &errCount), allResults, eris.Wrap(err, "batch: flush results")
		}

		// A checkpoint that cannot be written means an interrupted run
		// would repeat work; surface it once the batch is flushed.
		if saveErr != nil {
			return o.finish(summary, allResults, &done, &errCount), allResults, eris.Wrap(saveErr, "batch: save checkpoint")
		}
	}

	summary = o.finish(summary, allResults, &done, &errCount)

	if err := resilience.Do(ctx, o.storageRetry, func(ctx context.Context) error {
		return o.results.WriteSummary(ctx, summary)
	}); err != nil {
		// Keep the checkpoint so the run can be replayed against a
		// store that recorded no summary for it.
		return summary, allResults, eris.Wrap(err, "batch: write summary")
	}

	if err := o.checkpoint.Clear(); err != nil {
		zap.L().Warn("batch: checkpoint clear failed", zap.Error(err))
	}

	zap.L().Info("batch: run complete",
		zap.String("run_id", summary.RunID),
		zap.Int("total", summary.Total),
		zap.Int("verified", summary.Verified),
		zap.Int("errors", summary.Errors),
		zap.Float64("mean_confidence", summary.MeanConfidence),
	)
	return summary, allResults, nil
}

func (o *Orchestrator) finish(summary model.RunSummary, results []model.VerificationResult, done, errCount *atomic.Int64) model.RunSummary {
	summary.Processed = int(done.Load())
	summary.Errors = int(errCount.Load())
	summary.FinishedAt = time.Now().UTC()

	var confSum float64
	for _, r := range results {
		summary.ByStatus[r.Status]++
		if r.Status == model.StatusVerified {
			summary.Verified++
		}
		confSum += r.Confidence
	}
	if len(results) > 0 {
		summary.MeanConfidence = confSum / float64(len(results))
	}
	return summary
}
