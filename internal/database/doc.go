// Package database keeps the run ledger: one row per load of a collection
// and one row per bulk batch inside it.
//
// The ledger is what makes a failed batch recoverable on its own. Each batch
// row stores the index, offset and document count, so the batch can be cut
// out of the collection file again and re-submitted:
//
//	db, err := database.NewDatabase("./data/ledger.db")
//	failed, err := db.FailedBatches(runID)
//	for _, b := range failed {
//		loader.RetryBatch(ctx, runID, b.Batch)
//	}
package database
