package interfaces

// Compile-time checks that the concrete types satisfy the interfaces their
// consumers declare.
//
// To verify all checks pass: go build ./internal/interfaces/...

import (
	"github.com/mrlokans/apollo-indexer/internal/collections"
	"github.com/mrlokans/apollo-indexer/internal/database"
	"github.com/mrlokans/apollo-indexer/internal/extract"
	"github.com/mrlokans/apollo-indexer/internal/http"
	"github.com/mrlokans/apollo-indexer/internal/ids"
	"github.com/mrlokans/apollo-indexer/internal/loader"
	"github.com/mrlokans/apollo-indexer/internal/scheduler"
	"github.com/mrlokans/apollo-indexer/internal/search"
	"github.com/mrlokans/apollo-indexer/internal/services"
	"github.com/mrlokans/apollo-indexer/internal/tasks"
)

// =============================================================================
// Extraction
// =============================================================================

var _ extract.Sink = (*collections.Store)(nil)

var _ ids.Generator = (*ids.Random)(nil)
var _ ids.Generator = (*ids.Stable)(nil)

// =============================================================================
// Loading
// =============================================================================

var _ loader.Indexer = (*search.Client)(nil)
var _ loader.HealthChecker = (*search.Client)(nil)
var _ loader.Source = (*collections.Store)(nil)
var _ loader.Ledger = (*database.Database)(nil)

var _ services.IndexManager = (*search.Client)(nil)
var _ services.CollectionLoader = (*loader.Loader)(nil)

// =============================================================================
// Batch Queue
// =============================================================================

var _ tasks.BatchSubmitter = (*loader.Loader)(nil)
var _ tasks.RunLedger = (*database.Database)(nil)
var _ tasks.Enqueuer = (*tasks.Client)(nil)

// =============================================================================
// Status Server
// =============================================================================

var _ http.Pinger = (*database.Database)(nil)
var _ http.ClusterChecker = (*search.Client)(nil)
var _ http.RunStore = (*database.Database)(nil)
var _ http.BatchRetrier = (*loader.Loader)(nil)
var _ http.RefreshTrigger = (*scheduler.RefreshScheduler)(nil)
var _ http.TaskStatusReader = (*tasks.Client)(nil)

var _ scheduler.Refresher = (*services.RefreshService)(nil)
