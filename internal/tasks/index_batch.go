package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
	"github.com/segmentio/encoding/json"

	"github.com/mrlokans/apollo-indexer/internal/entities"
	"github.com/mrlokans/apollo-indexer/internal/loader"
)

// IndexBatchQueue is the queue name for batch tasks.
const IndexBatchQueue = "index_batch"

// BatchSubmitter sends one batch and records its outcome.
type BatchSubmitter interface {
	SubmitBatch(ctx context.Context, runID uint, index string, batch loader.Batch) (int, error)
}

// RunLedger plans runs and keeps their status current.
type RunLedger interface {
	StartRun(index, collection string, totalDocs, batchSize, batches int) (*entities.Run, error)
	RecordBatch(rec *entities.BatchRecord) error
	SyncRun(runID uint) (*entities.Run, error)
}

// IndexBatchTask carries one batch of documents for an index.
type IndexBatchTask struct {
	RunID  uint              `json:"run_id"`
	Index  string            `json:"index"`
	Batch  int               `json:"batch"`
	Offset int               `json:"offset"`
	Docs   []json.RawMessage `json:"docs"`
}

// Config returns the queue configuration for batch tasks. SubmitBatch retries
// internally and records the final outcome, so each task runs once. Failed
// batches are re-submitted with retry-batch.
func (t IndexBatchTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        IndexBatchQueue,
		MaxAttempts: 1,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// IndexBatchProcessor submits the batch and refreshes the run. A batch error
// is returned so backlite marks the task failed alongside the ledger.
func IndexBatchProcessor(submitter BatchSubmitter, ledger RunLedger) backlite.QueueProcessor[IndexBatchTask] {
	return func(ctx context.Context, task IndexBatchTask) error {
		if submitter == nil || ledger == nil {
			return fmt.Errorf("batch queue not configured")
		}

		indexed, err := submitter.SubmitBatch(ctx, task.RunID, task.Index, loader.Batch{
			Number: task.Batch,
			Offset: task.Offset,
			Docs:   task.Docs,
		})

		run, syncErr := ledger.SyncRun(task.RunID)
		if syncErr != nil {
			log.Printf("[TASK] Failed to update run %d: %v", task.RunID, syncErr)
		} else if run.Status != entities.RunStatusRunning {
			log.Printf("[TASK] Run %d (%s) finished: %s, %d indexed, %d failed",
				run.ID, run.Index, run.Status, run.Indexed, run.Failed)
		}

		if err != nil {
			return fmt.Errorf("index %s batch %d: %w", task.Index, task.Batch, err)
		}
		log.Printf("[TASK] Indexed batch %d of run %d into %s (%d documents)", task.Batch, task.RunID, task.Index, indexed)
		return nil
	}
}

// NewIndexBatchQueue creates the backlite queue for batch tasks.
func NewIndexBatchQueue(submitter BatchSubmitter, ledger RunLedger) backlite.Queue {
	return backlite.NewQueue(IndexBatchProcessor(submitter, ledger))
}

// Enqueuer adds tasks to the queue.
type Enqueuer interface {
	Add(tasks ...backlite.Task) *backlite.TaskAddOp
}

// EnqueueLoad plans a run for docs, records every batch as queued and adds
// one task per batch. Workers pick them up as soon as the queue is started.
func EnqueueLoad(queue Enqueuer, ledger RunLedger, index string, docs []json.RawMessage, batchSize int) (*entities.Run, []string, error) {
	batches := loader.Batches(docs, batchSize)

	run, err := ledger.StartRun(index, index, len(docs), batchSize, len(batches))
	if err != nil {
		return nil, nil, fmt.Errorf("start run: %w", err)
	}

	tasks := make([]backlite.Task, 0, len(batches))
	for _, b := range batches {
		if err := ledger.RecordBatch(&entities.BatchRecord{
			RunID:  run.ID,
			Batch:  b.Number,
			Index:  index,
			Offset: b.Offset,
			Count:  len(b.Docs),
			Status: entities.BatchStatusQueued,
		}); err != nil {
			return run, nil, fmt.Errorf("record batch %d: %w", b.Number, err)
		}
		tasks = append(tasks, IndexBatchTask{
			RunID:  run.ID,
			Index:  index,
			Batch:  b.Number,
			Offset: b.Offset,
			Docs:   b.Docs,
		})
	}

	if len(tasks) == 0 {
		run, err = ledger.SyncRun(run.ID)
		return run, nil, err
	}

	ids, err := queue.Add(tasks...).Save()
	if err != nil {
		return run, nil, fmt.Errorf("enqueue batches: %w", err)
	}
	log.Printf("[TASK] Queued %d batches of %s for run %d", len(ids), index, run.ID)
	return run, ids, nil
}
