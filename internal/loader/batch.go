package loader

import (
	"errors"
	"fmt"

	"github.com/segmentio/encoding/json"
)

// DefaultBatchSize is the number of documents per bulk submission.
const DefaultBatchSize = 100

// ErrEmptyBatch is returned when asked to submit a batch with no documents.
var ErrEmptyBatch = errors.New("batch has no documents")

// Batch is one bulk submission. Number starts at 1.
type Batch struct {
	Number int
	Offset int
	Docs   []json.RawMessage
}

// Batches splits docs into consecutive slices of at most size documents.
// N documents always give ceil(N/size) batches.
func Batches(docs []json.RawMessage, size int) []Batch {
	if size <= 0 {
		size = DefaultBatchSize
	}

	batches := make([]Batch, 0, (len(docs)+size-1)/size)
	for offset := 0; offset < len(docs); offset += size {
		end := offset + size
		if end > len(docs) {
			end = len(docs)
		}
		batches = append(batches, Batch{
			Number: len(batches) + 1,
			Offset: offset,
			Docs:   docs[offset:end],
		})
	}
	return batches
}

// BatchError reports a batch that could not be indexed. It names the index
// and batch so the batch can be re-submitted on its own.
type BatchError struct {
	RunID  uint
	Index  string
	Batch  int
	Offset int
	Count  int
	Err    error
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("index %s batch %d (documents %d-%d, run %d): %v",
		e.Index, e.Batch, e.Offset, e.Offset+e.Count-1, e.RunID, e.Err)
}

func (e *BatchError) Unwrap() error {
	return e.Err
}

// RejectedError is returned when the store accepted the request but
// refused some of its documents. Resending the same documents will not help.
type RejectedError struct {
	Failed int
	Reason string
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("%d documents rejected: %s", e.Failed, e.Reason)
}
