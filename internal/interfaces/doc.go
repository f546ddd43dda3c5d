// Package interfaces lists the seams between the indexer's components and
// checks at compile time that the concrete types fit them.
//
// # Extraction
//
//   - extract.Sink: receives each collection as its stage finishes
//     (collections.Store)
//   - ids.Generator: mints output ids, random per run or stable per
//     source id (ids.Random, ids.Stable)
//
// # Loading
//
//   - loader.Indexer, loader.HealthChecker: bulk submission and cluster
//     health (search.Client)
//   - loader.Source: reads a collection back (collections.Store)
//   - loader.Ledger: records runs and batch outcomes (database.Database)
//   - services.IndexManager, services.CollectionLoader: index lifecycle
//     steps (search.Client, loader.Loader)
//
// # Batch Queue
//
//   - tasks.BatchSubmitter, tasks.RunLedger: what queue workers need to
//     submit a batch and record it (loader.Loader, database.Database)
//
// # Status Server
//
//   - http.RunStore, http.BatchRetrier, http.RefreshTrigger,
//     http.TaskStatusReader: read-mostly views used by the gin handlers
//
// Tests replace any of these with in-memory fakes.
package interfaces
