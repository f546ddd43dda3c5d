package cli

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/mrlokans/apollo-indexer/internal/collections"
	"github.com/mrlokans/apollo-indexer/internal/config"
	"github.com/mrlokans/apollo-indexer/internal/database"
	"github.com/mrlokans/apollo-indexer/internal/loader"
	"github.com/mrlokans/apollo-indexer/internal/search"
)

// formatElapsed renders d as "N min M sec".
func formatElapsed(d time.Duration) string {
	secs := int(d.Round(time.Second).Seconds())
	return fmt.Sprintf("%d min %d sec", secs/60, secs%60)
}

func newSearchClient(cfg config.Elastic) (*search.Client, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("ELASTIC_HOST is not set")
	}
	return search.NewClient(search.Config{
		Addresses: []string{cfg.Address()},
		Username:  cfg.User,
		Password:  cfg.Password,
		Timeout:   cfg.Timeout,
	})
}

// openLedger opens the run ledger, making the path absolute first.
func openLedger(path string) (*database.Database, string, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, "", fmt.Errorf("failed to get absolute path for ledger: %w", err)
	}
	db, err := database.NewDatabase(absPath)
	if err != nil {
		return nil, "", fmt.Errorf("failed to initialize ledger: %w", err)
	}
	return db, absPath, nil
}

// newLoader wires a loader to the collections in dataDir.
func newLoader(client *search.Client, dataDir string, ledger *database.Database, cfg config.Loader, batchSize int) (*loader.Loader, error) {
	store, err := collections.NewStore(dataDir)
	if err != nil {
		return nil, err
	}
	if batchSize <= 0 {
		batchSize = cfg.BatchSize
	}
	return loader.New(client, store, ledger, loader.Config{
		BatchSize:     batchSize,
		MaxRetries:    cfg.MaxRetries,
		RetryDelay:    cfg.RetryDelay,
		StopOnFailure: cfg.StopOnFailure,
	}), nil
}

func printBatchErrors(failed []*loader.BatchError) {
	if len(failed) == 0 {
		return
	}
	fmt.Printf("\n%d batches failed:\n", len(failed))
	for _, f := range failed {
		fmt.Printf("  [ERROR] %s\n", f)
	}
	fmt.Printf("\nRe-submit with: retry-batch -run %d -batch <n>  (or -all)\n", failed[0].RunID)
}
