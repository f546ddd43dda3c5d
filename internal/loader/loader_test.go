package loader

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/encoding/json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/apollo-indexer/internal/entities"
	"github.com/mrlokans/apollo-indexer/internal/search"
)

// fakeIndexer commits every accepted batch and fails the calls listed in
// failures (1-based call numbers).
type fakeIndexer struct {
	mu        sync.Mutex
	calls     int
	committed []json.RawMessage
	offsets   []int
	failures  map[int]error
	rejects   map[int]int
}

func (f *fakeIndexer) Bulk(ctx context.Context, index string, offset int, docs []json.RawMessage) (search.BulkResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.offsets = append(f.offsets, offset)
	if err, ok := f.failures[f.calls]; ok {
		return search.BulkResult{}, err
	}
	if n, ok := f.rejects[f.calls]; ok {
		return search.BulkResult{Indexed: len(docs) - n, Failed: n, FirstError: "mapper_parsing_exception: bad"}, nil
	}
	f.committed = append(f.committed, docs...)
	return search.BulkResult{Indexed: len(docs)}, nil
}

type memorySource map[string][]json.RawMessage

func (m memorySource) Read(name string) ([]json.RawMessage, error) {
	docs, ok := m[name]
	if !ok {
		return nil, fmt.Errorf("read %s: no such collection", name)
	}
	return docs, nil
}

type memoryLedger struct {
	runs    map[uint]*entities.Run
	batches map[uint]map[int]*entities.BatchRecord
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{
		runs:    map[uint]*entities.Run{},
		batches: map[uint]map[int]*entities.BatchRecord{},
	}
}

func (m *memoryLedger) StartRun(index, collection string, totalDocs, batchSize, batches int) (*entities.Run, error) {
	run := &entities.Run{
		ID:         uint(len(m.runs) + 1),
		Index:      index,
		Collection: collection,
		Status:     entities.RunStatusRunning,
		TotalDocs:  totalDocs,
		BatchSize:  batchSize,
		Batches:    batches,
	}
	m.runs[run.ID] = run
	m.batches[run.ID] = map[int]*entities.BatchRecord{}
	return run, nil
}

func (m *memoryLedger) RecordBatch(rec *entities.BatchRecord) error {
	if prev, ok := m.batches[rec.RunID][rec.Batch]; ok {
		rec.Attempts += prev.Attempts
	}
	copied := *rec
	m.batches[rec.RunID][rec.Batch] = &copied
	return nil
}

func (m *memoryLedger) SyncRun(runID uint) (*entities.Run, error) {
	run := m.runs[runID]
	run.Indexed, run.Failed = 0, 0
	for _, b := range m.batches[runID] {
		switch b.Status {
		case entities.BatchStatusSucceeded:
			run.Indexed += b.Count
		case entities.BatchStatusFailed:
			run.Failed += b.Count
		}
	}
	run.Status = entities.RunStatusCompleted
	if run.Failed > 0 {
		run.Status = entities.RunStatusPartial
	}
	return run, nil
}

func (m *memoryLedger) GetRun(id uint) (*entities.Run, error) {
	run, ok := m.runs[id]
	if !ok {
		return nil, errors.New("not found")
	}
	return run, nil
}

func (m *memoryLedger) GetBatch(runID uint, batch int) (*entities.BatchRecord, error) {
	rec, ok := m.batches[runID][batch]
	if !ok {
		return nil, errors.New("not found")
	}
	return rec, nil
}

func makeDocs(n int) []json.RawMessage {
	docs := make([]json.RawMessage, n)
	for i := range docs {
		docs[i] = json.RawMessage(fmt.Sprintf(`{"id":"D%d"}`, i))
	}
	return docs
}

func newTestLoader(indexer Indexer, source Source, ledger Ledger, cfg Config) *Loader {
	l := New(indexer, source, ledger, cfg)
	l.sleep = func(ctx context.Context, d time.Duration) error { return ctx.Err() }
	return l
}

func TestBatches(t *testing.T) {
	tests := []struct {
		docs, size, want int
	}{
		{0, 100, 0},
		{1, 100, 1},
		{100, 100, 1},
		{101, 100, 2},
		{250, 100, 3},
		{1000, 100, 10},
		{7, 3, 3},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%d docs by %d", tt.docs, tt.size), func(t *testing.T) {
			batches := Batches(makeDocs(tt.docs), tt.size)
			assert.Len(t, batches, tt.want)

			total := 0
			for i, b := range batches {
				assert.Equal(t, i+1, b.Number)
				assert.Equal(t, total, b.Offset)
				assert.LessOrEqual(t, len(b.Docs), tt.size)
				total += len(b.Docs)
			}
			assert.Equal(t, tt.docs, total)
		})
	}

	assert.Len(t, Batches(makeDocs(150), 0), 2, "non-positive size falls back to the default")
}

func TestLoader_SubmissionCount(t *testing.T) {
	indexer := &fakeIndexer{}
	ledger := newMemoryLedger()
	l := newTestLoader(indexer, nil, ledger, Config{})

	var progress []int
	l.Progress = func(done, total int) {
		assert.Equal(t, 250, total)
		progress = append(progress, done)
	}

	report, err := l.Load(context.Background(), "patrons", makeDocs(250))
	require.NoError(t, err)

	assert.Equal(t, 3, indexer.calls)
	assert.Equal(t, 3, report.Batches)
	assert.Equal(t, 3, report.Submitted)
	assert.Equal(t, 250, report.Indexed)
	assert.Equal(t, []int{100, 200, 250}, progress)
	assert.Equal(t, entities.RunStatusCompleted, report.Run.Status)
	assert.Equal(t, 250, report.Run.Indexed)
}

func TestLoader_FailureKeepsEarlierBatches(t *testing.T) {
	indexer := &fakeIndexer{failures: map[int]error{
		2: &search.ResponseError{Operation: "bulk", StatusCode: http.StatusBadRequest, Body: "bad request"},
	}}
	ledger := newMemoryLedger()
	l := newTestLoader(indexer, nil, ledger, Config{StopOnFailure: true})

	report, err := l.Load(context.Background(), "holdings", makeDocs(250))
	require.Error(t, err)

	var batchErr *BatchError
	require.True(t, errors.As(err, &batchErr))
	assert.Equal(t, "holdings", batchErr.Index)
	assert.Equal(t, 2, batchErr.Batch)
	assert.Equal(t, 100, batchErr.Offset)
	assert.Equal(t, 100, batchErr.Count)
	assert.Contains(t, err.Error(), "index holdings batch 2")

	assert.Len(t, indexer.committed, 100, "batch 1 stays committed")
	assert.Equal(t, 2, indexer.calls, "loading stops at the failed batch")
	assert.Equal(t, 2, report.Submitted)
	assert.Equal(t, entities.RunStatusPartial, report.Run.Status)

	rec, err := ledger.GetBatch(report.Run.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, entities.BatchStatusFailed, rec.Status)
	assert.Equal(t, 1, rec.Attempts, "client errors are not retried")
}

func TestLoader_ContinuesPastFailedBatch(t *testing.T) {
	indexer := &fakeIndexer{rejects: map[int]int{1: 3}}
	l := newTestLoader(indexer, nil, newMemoryLedger(), Config{BatchSize: 10})

	report, err := l.Load(context.Background(), "fines", makeDocs(25))
	require.Error(t, err)

	var rejected *RejectedError
	assert.True(t, errors.As(err, &rejected))
	assert.Equal(t, 3, indexer.calls)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 1, report.Failed[0].Batch)
	assert.Len(t, indexer.committed, 15)
	assert.Equal(t, 22, report.Indexed)
}

func TestLoader_RetriesTransientFailures(t *testing.T) {
	indexer := &fakeIndexer{failures: map[int]error{
		1: &search.ResponseError{Operation: "bulk", StatusCode: http.StatusTooManyRequests},
		2: errors.New("connection reset by peer"),
	}}
	ledger := newMemoryLedger()
	l := newTestLoader(indexer, nil, ledger, Config{})

	report, err := l.Load(context.Background(), "biblios", makeDocs(5))
	require.NoError(t, err)
	assert.Equal(t, 3, indexer.calls)
	assert.Len(t, indexer.committed, 5)

	rec, err := ledger.GetBatch(report.Run.ID, 1)
	require.NoError(t, err)
	assert.Equal(t, 3, rec.Attempts)
	assert.Equal(t, entities.BatchStatusSucceeded, rec.Status)
}

func TestLoader_MaxRetriesExceeded(t *testing.T) {
	unavailable := &search.ResponseError{Operation: "bulk", StatusCode: http.StatusServiceUnavailable}
	indexer := &fakeIndexer{failures: map[int]error{1: unavailable, 2: unavailable}}
	l := newTestLoader(indexer, nil, newMemoryLedger(), Config{MaxRetries: 2})

	_, err := l.Load(context.Background(), "reserves", makeDocs(1))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "max retries exceeded")
	assert.Equal(t, 2, indexer.calls)
}

func TestLoader_RetryDelay(t *testing.T) {
	l := New(nil, nil, nil, Config{})
	assert.Equal(t, 1*time.Second, l.retryDelay(1))
	assert.Equal(t, 2*time.Second, l.retryDelay(2))
	assert.Equal(t, 4*time.Second, l.retryDelay(3))
	assert.Equal(t, 30*time.Second, l.retryDelay(10))
}

func TestLoader_RetryBatch(t *testing.T) {
	docs := makeDocs(30)
	indexer := &fakeIndexer{failures: map[int]error{
		2: &search.ResponseError{Operation: "bulk", StatusCode: http.StatusBadRequest},
	}}
	ledger := newMemoryLedger()
	l := newTestLoader(indexer, memorySource{"checkouts": docs}, ledger, Config{BatchSize: 10})

	report, err := l.LoadCollection(context.Background(), "checkouts")
	require.Error(t, err)
	require.Len(t, report.Failed, 1)
	assert.Len(t, indexer.committed, 20)

	rec, err := l.RetryBatch(context.Background(), report.Run.ID, 2)
	require.NoError(t, err)
	assert.Equal(t, entities.BatchStatusSucceeded, rec.Status)
	assert.Equal(t, 2, rec.Attempts)
	assert.Equal(t, 4, indexer.calls, "only the failed batch is re-submitted")
	assert.Equal(t, docs[10:20], indexer.committed[20:])
	assert.Equal(t, []int{0, 10, 20, 10}, indexer.offsets, "a retried batch keeps its collection position")

	run, err := ledger.GetRun(report.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, entities.RunStatusCompleted, run.Status)
	assert.Equal(t, 30, run.Indexed)
}

func TestLoader_RetryBatchOutOfRange(t *testing.T) {
	ledger := newMemoryLedger()
	run, _ := ledger.StartRun("fines", "fines", 50, 10, 5)
	require.NoError(t, ledger.RecordBatch(&entities.BatchRecord{RunID: run.ID, Batch: 5, Offset: 40, Count: 10}))

	l := newTestLoader(&fakeIndexer{}, memorySource{"fines": makeDocs(20)}, ledger, Config{})
	_, err := l.RetryBatch(context.Background(), run.ID, 5)
	assert.ErrorContains(t, err, "fines has 20 documents")
}

func TestLoader_CancelledContext(t *testing.T) {
	indexer := &fakeIndexer{}
	l := newTestLoader(indexer, nil, newMemoryLedger(), Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := l.Load(ctx, "patrons", makeDocs(10))
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, indexer.calls)
}

type fakeHealth struct {
	health search.Health
	err    error
}

func (f fakeHealth) ClusterHealth(ctx context.Context) (search.Health, error) {
	return f.health, f.err
}

func TestHealth(t *testing.T) {
	h, err := Health(context.Background(), fakeHealth{health: search.Health{Status: search.StatusGreen}})
	require.NoError(t, err)
	assert.Equal(t, search.StatusGreen, h.Status)

	_, err = Health(context.Background(), fakeHealth{err: errors.New("down")})
	assert.Error(t, err)
}
