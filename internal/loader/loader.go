// Package loader bulk-indexes collections in fixed-size batches. Each batch
// is an independent unit: it is retried on its own, its outcome is recorded
// in the run ledger, and a failure never undoes batches already committed.
package loader

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/encoding/json"

	"github.com/mrlokans/apollo-indexer/internal/entities"
	"github.com/mrlokans/apollo-indexer/internal/search"
)

const (
	defaultMaxRetries  = 3
	initialRetryDelay  = 1 * time.Second
	maxRetryDelay      = 30 * time.Second
	retryBackoffFactor = 2
)

// Indexer submits documents to the store.
type Indexer interface {
	Bulk(ctx context.Context, index string, offset int, docs []json.RawMessage) (search.BulkResult, error)
}

// HealthChecker reports cluster health.
type HealthChecker interface {
	ClusterHealth(ctx context.Context) (search.Health, error)
}

// Source reads collection files.
type Source interface {
	Read(name string) ([]json.RawMessage, error)
}

// Ledger records runs and the outcome of every batch.
type Ledger interface {
	StartRun(index, collection string, totalDocs, batchSize, batches int) (*entities.Run, error)
	RecordBatch(rec *entities.BatchRecord) error
	SyncRun(runID uint) (*entities.Run, error)
	GetRun(id uint) (*entities.Run, error)
	GetBatch(runID uint, batch int) (*entities.BatchRecord, error)
}

// Config tunes batching and retries.
type Config struct {
	BatchSize  int
	MaxRetries int
	// StopOnFailure stops a load at the first failed batch instead of
	// carrying on with the remaining ones.
	StopOnFailure bool
	// RetryDelay is the delay before the first retry. It doubles on each
	// further attempt up to a 30s cap.
	RetryDelay time.Duration
}

// Loader indexes collections batch by batch.
type Loader struct {
	indexer Indexer
	source  Source
	ledger  Ledger
	cfg     Config

	// Progress, if set, is called after every batch with the number of
	// documents handled so far.
	Progress func(done, total int)

	sleep func(ctx context.Context, d time.Duration) error
}

// New creates a loader. Zero config values fall back to defaults.
func New(indexer Indexer, source Source, ledger Ledger, cfg Config) *Loader {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = initialRetryDelay
	}
	return &Loader{
		indexer: indexer,
		source:  source,
		ledger:  ledger,
		cfg:     cfg,
		sleep:   sleepContext,
	}
}

// BatchSize returns the configured batch size.
func (l *Loader) BatchSize() int {
	return l.cfg.BatchSize
}

// Report summarises a load.
type Report struct {
	Run       *entities.Run
	Batches   int
	Submitted int
	Indexed   int
	Failed    []*BatchError
	Elapsed   time.Duration
}

// Err joins the errors of every failed batch, or returns nil.
func (r Report) Err() error {
	if len(r.Failed) == 0 {
		return nil
	}
	errs := make([]error, len(r.Failed))
	for i, f := range r.Failed {
		errs[i] = f
	}
	return errors.Join(errs...)
}

// LoadCollection reads a collection and indexes it into the index of the
// same name.
func (l *Loader) LoadCollection(ctx context.Context, name string) (Report, error) {
	docs, err := l.source.Read(name)
	if err != nil {
		return Report{}, err
	}
	return l.Load(ctx, name, docs)
}

// Load submits docs to index sequentially in batches. A failed batch is
// recorded and reported; batches before it stay committed. The returned
// error is Report.Err() unless the run could not be started or the context
// was cancelled.
func (l *Loader) Load(ctx context.Context, index string, docs []json.RawMessage) (Report, error) {
	start := time.Now()
	batches := Batches(docs, l.cfg.BatchSize)

	run, err := l.ledger.StartRun(index, index, len(docs), l.cfg.BatchSize, len(batches))
	if err != nil {
		return Report{}, fmt.Errorf("start run: %w", err)
	}
	log.Printf("[LOADER] Run %d: indexing %d documents into %s in %d batches", run.ID, len(docs), index, len(batches))

	report := Report{Run: run, Batches: len(batches)}
	done := 0
	for _, batch := range batches {
		if err := ctx.Err(); err != nil {
			l.finish(&report, start)
			return report, err
		}

		report.Submitted++
		indexed, err := l.SubmitBatch(ctx, run.ID, index, batch)
		report.Indexed += indexed
		done += len(batch.Docs)
		if l.Progress != nil {
			l.Progress(done, len(docs))
		}

		if err != nil {
			var batchErr *BatchError
			if !errors.As(err, &batchErr) {
				l.finish(&report, start)
				return report, err
			}
			report.Failed = append(report.Failed, batchErr)
			if l.cfg.StopOnFailure {
				break
			}
		}
	}

	l.finish(&report, start)
	return report, report.Err()
}

func (l *Loader) finish(report *Report, start time.Time) {
	report.Elapsed = time.Since(start)
	if report.Run == nil {
		return
	}
	run, err := l.ledger.SyncRun(report.Run.ID)
	if err != nil {
		log.Printf("[LOADER] Failed to update run %d: %v", report.Run.ID, err)
		return
	}
	report.Run = run
	log.Printf("[LOADER] Run %d %s: %d indexed, %d failed batches in %s",
		run.ID, run.Status, report.Indexed, len(report.Failed), report.Elapsed.Round(time.Millisecond))
}

// SubmitBatch sends one batch, retrying transient failures, and records the
// outcome. It returns the number of documents indexed. A batch that still
// fails is returned as *BatchError; ledger failures are returned as is.
func (l *Loader) SubmitBatch(ctx context.Context, runID uint, index string, batch Batch) (int, error) {
	if len(batch.Docs) == 0 {
		return 0, ErrEmptyBatch
	}

	attempts, result, err := l.submit(ctx, index, batch.Offset, batch.Docs)

	rec := &entities.BatchRecord{
		RunID:    runID,
		Batch:    batch.Number,
		Index:    index,
		Offset:   batch.Offset,
		Count:    len(batch.Docs),
		Attempts: attempts,
		Status:   entities.BatchStatusSucceeded,
	}
	if err != nil {
		rec.Status = entities.BatchStatusFailed
		rec.Error = err.Error()
	}
	if recErr := l.ledger.RecordBatch(rec); recErr != nil {
		return result.Indexed, fmt.Errorf("record batch %d: %w", batch.Number, recErr)
	}

	if err != nil {
		log.Printf("[LOADER] Batch %d of %s failed after %d attempts: %v", batch.Number, index, attempts, err)
		return result.Indexed, &BatchError{
			RunID:  runID,
			Index:  index,
			Batch:  batch.Number,
			Offset: batch.Offset,
			Count:  len(batch.Docs),
			Err:    err,
		}
	}
	return result.Indexed, nil
}

// RetryBatch re-reads the collection of a recorded run and re-submits
// exactly one of its batches.
func (l *Loader) RetryBatch(ctx context.Context, runID uint, number int) (*entities.BatchRecord, error) {
	run, err := l.ledger.GetRun(runID)
	if err != nil {
		return nil, fmt.Errorf("run %d: %w", runID, err)
	}
	rec, err := l.ledger.GetBatch(runID, number)
	if err != nil {
		return nil, fmt.Errorf("run %d batch %d: %w", runID, number, err)
	}

	docs, err := l.source.Read(run.Collection)
	if err != nil {
		return nil, err
	}
	end := rec.Offset + rec.Count
	if rec.Offset < 0 || end > len(docs) {
		return nil, fmt.Errorf("batch %d covers documents %d-%d but %s has %d documents",
			number, rec.Offset, end-1, run.Collection, len(docs))
	}

	log.Printf("[LOADER] Retrying batch %d of run %d (%s, %d documents)", number, runID, run.Index, rec.Count)
	_, submitErr := l.SubmitBatch(ctx, runID, run.Index, Batch{
		Number: number,
		Offset: rec.Offset,
		Docs:   docs[rec.Offset:end],
	})

	if _, err := l.ledger.SyncRun(runID); err != nil {
		log.Printf("[LOADER] Failed to update run %d: %v", runID, err)
	}

	updated, err := l.ledger.GetBatch(runID, number)
	if err != nil {
		return nil, err
	}
	return updated, submitErr
}

// submit sends docs with retries. Only throttling, server errors and
// transport failures are retried.
func (l *Loader) submit(ctx context.Context, index string, offset int, docs []json.RawMessage) (int, search.BulkResult, error) {
	var result search.BulkResult
	var lastErr error

	attempt := 0
	for ; attempt < l.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			if err := l.sleep(ctx, l.retryDelay(attempt)); err != nil {
				return attempt, result, err
			}
		}

		result, lastErr = l.indexer.Bulk(ctx, index, offset, docs)
		if lastErr == nil && result.Failed > 0 {
			lastErr = &RejectedError{Failed: result.Failed, Reason: result.FirstError}
		}
		if lastErr == nil {
			return attempt + 1, result, nil
		}
		if !isRetryableError(ctx, lastErr) {
			return attempt + 1, result, lastErr
		}
	}

	return attempt, result, fmt.Errorf("max retries exceeded: %w", lastErr)
}

func (l *Loader) retryDelay(attempt int) time.Duration {
	delay := l.cfg.RetryDelay
	for i := 1; i < attempt; i++ {
		delay *= time.Duration(retryBackoffFactor)
	}
	if delay > maxRetryDelay {
		delay = maxRetryDelay
	}
	return delay
}

func isRetryableError(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var rejected *RejectedError
	if errors.As(err, &rejected) {
		return false
	}
	var respErr *search.ResponseError
	if errors.As(err, &respErr) {
		return respErr.Retryable()
	}
	// Transport failures: connection refused, reset, timeouts.
	return true
}

// Health reports cluster health. It is advisory: callers log the outcome
// and carry on.
func Health(ctx context.Context, checker HealthChecker) (search.Health, error) {
	health, err := checker.ClusterHealth(ctx)
	if err != nil {
		log.Printf("[LOADER] Cluster health unavailable: %v", err)
		return search.Health{}, err
	}
	log.Printf("[LOADER] Cluster %s is %s (took %s)", health.ClusterName, health.Status, health.Took)
	return health, nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
