package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/mrlokans/apollo-indexer/internal/collections"
	"github.com/mrlokans/apollo-indexer/internal/config"
	"github.com/mrlokans/apollo-indexer/internal/database"
	"github.com/mrlokans/apollo-indexer/internal/entities"
	"github.com/mrlokans/apollo-indexer/internal/loader"
	"github.com/mrlokans/apollo-indexer/internal/search"
	"github.com/mrlokans/apollo-indexer/internal/services"
	"github.com/mrlokans/apollo-indexer/internal/tasks"
)

const queuePollInterval = 2 * time.Second

// LoadCommand manages the index of one collection.
type LoadCommand struct {
	Collection string
	DataDir    string
	LedgerPath string
	BatchSize  int
	Actions    services.IndexActions
	Reindex    bool
	Queue      bool
	Verbose    bool

	cfg *config.Config
}

func NewLoadCommand() *LoadCommand {
	return &LoadCommand{cfg: config.NewConfig()}
}

func (cmd *LoadCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("load", flag.ExitOnError)

	fs.StringVar(&cmd.Collection, "collection", "", "Collection to load, also the index name (required)")
	fs.StringVar(&cmd.DataDir, "data-dir", cmd.cfg.Export.DataDir, "Directory holding the extracted collections")
	fs.StringVar(&cmd.LedgerPath, "ledger", cmd.cfg.Ledger.Path, "Path to the run ledger")
	fs.IntVar(&cmd.BatchSize, "batch-size", cmd.cfg.Loader.BatchSize, "Documents per bulk request")
	fs.BoolVar(&cmd.Actions.Delete, "delete", false, "Delete the index")
	fs.BoolVar(&cmd.Actions.Create, "create", false, "Create the index with its settings and mappings")
	fs.BoolVar(&cmd.Actions.Index, "index", false, "Bulk load the collection")
	fs.BoolVar(&cmd.Actions.Status, "status", false, "Print cluster health")
	fs.BoolVar(&cmd.Reindex, "reindex", false, "Same as -delete -create -index -status")
	fs.BoolVar(&cmd.Queue, "queue", false, "Index through the durable batch queue")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print progress after every batch")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s load -collection <name> [actions] [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Manage the search index of one extracted collection.\n")
		fmt.Fprintf(os.Stderr, "Collections: %v\n\n", entities.Collections)
		fmt.Fprintf(os.Stderr, "Actions run in the order delete, create, index, status.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s load -collection biblios -reindex\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s load -collection checkouts -index -queue\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.Collection == "" {
		return fmt.Errorf("required flag -collection not provided")
	}
	if !entities.IsCollection(cmd.Collection) {
		return fmt.Errorf("unknown collection %q, expected one of %v", cmd.Collection, entities.Collections)
	}
	if cmd.Reindex {
		cmd.Actions = services.ReindexActions()
	}
	if !cmd.Actions.Any() {
		return fmt.Errorf("no action given, use -create, -delete, -index, -reindex or -status")
	}
	if cmd.Queue && !cmd.Actions.Index {
		return fmt.Errorf("-queue requires -index or -reindex")
	}
	return nil
}

func (cmd *LoadCommand) Run() error {
	fmt.Println("Index Load")
	fmt.Println("==========")
	fmt.Printf("Collection: %s\n", cmd.Collection)
	fmt.Printf("Cluster:    %s\n", cmd.cfg.Elastic.Address())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newSearchClient(cmd.cfg.Elastic)
	if err != nil {
		return err
	}

	db, ledgerPath, err := openLedger(cmd.LedgerPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ld, err := newLoader(client, cmd.DataDir, db, cmd.cfg.Loader, cmd.BatchSize)
	if err != nil {
		return err
	}
	if cmd.Verbose {
		ld.Progress = func(done, total int) {
			fmt.Printf("  %d/%d documents\n", done, total)
		}
	}

	if cmd.Queue {
		return cmd.runQueued(ctx, client, ld, db, ledgerPath)
	}

	svc := services.NewIndexService(client, ld)
	result, err := svc.Apply(ctx, cmd.Collection, cmd.Actions)
	cmd.printResult(result)
	return err
}

// runQueued performs the lifecycle steps around indexing, handing the
// batches to queue workers and waiting for the run to settle.
func (cmd *LoadCommand) runQueued(ctx context.Context, client *search.Client, ld *loader.Loader, db *database.Database, ledgerPath string) error {
	pre := cmd.Actions
	pre.Index, pre.Status = false, false
	if pre.Any() {
		result, err := services.NewIndexService(client, ld).Apply(ctx, cmd.Collection, pre)
		cmd.printResult(result)
		if err != nil {
			return err
		}
	}

	store, err := collections.NewStore(cmd.DataDir)
	if err != nil {
		return err
	}
	docs, err := store.Read(cmd.Collection)
	if err != nil {
		return err
	}

	queue, err := tasks.NewClient(ledgerPath, tasks.Config{
		Workers:         cmd.cfg.Tasks.Workers,
		ReleaseAfter:    cmd.cfg.Tasks.ReleaseAfter,
		CleanupInterval: cmd.cfg.Tasks.CleanupInterval,
	})
	if err != nil {
		return err
	}
	defer queue.Close()
	queue.Register(tasks.NewIndexBatchQueue(ld, db))

	run, ids, err := tasks.EnqueueLoad(queue, db, cmd.Collection, docs, ld.BatchSize())
	if err != nil {
		return err
	}
	fmt.Printf("\nRun %d: queued %d batches of %d documents\n", run.ID, len(ids), len(docs))

	queue.Start(ctx)
	run, err = waitForRun(ctx, db, run.ID, cmd.Verbose)

	stopCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	queue.Stop(stopCtx)

	if err != nil {
		return err
	}

	fmt.Println("\n=== Load Summary ===")
	fmt.Printf("Run %d %s: %d indexed, %d failed of %d documents\n",
		run.ID, run.Status, run.Indexed, run.Failed, run.TotalDocs)

	failed, err := db.FailedBatches(run.ID)
	if err != nil {
		return err
	}
	if len(failed) > 0 {
		fmt.Printf("\n%d batches failed:\n", len(failed))
		for _, b := range failed {
			fmt.Printf("  [ERROR] batch %d (documents %d-%d): %s\n", b.Batch, b.Offset, b.Offset+b.Count-1, b.Error)
		}
		fmt.Printf("\nRe-submit with: retry-batch -run %d -all\n", run.ID)
		return fmt.Errorf("%d of %d batches failed", len(failed), run.Batches)
	}

	if cmd.Actions.Status {
		if h, err := loader.Health(ctx, client); err == nil {
			fmt.Printf("\nCluster %s: %s\n", h.ClusterName, h.Status)
		}
	}
	return nil
}

// waitForRun polls the ledger until no batch of the run is queued.
func waitForRun(ctx context.Context, db *database.Database, runID uint, verbose bool) (*entities.Run, error) {
	ticker := time.NewTicker(queuePollInterval)
	defer ticker.Stop()

	for {
		run, err := db.SyncRun(runID)
		if err != nil {
			return nil, err
		}
		if run.Status != entities.RunStatusRunning {
			return run, nil
		}
		if verbose {
			fmt.Printf("  %d/%d documents indexed\n", run.Indexed, run.TotalDocs)
		}

		select {
		case <-ctx.Done():
			return run, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (cmd *LoadCommand) printResult(result services.IndexResult) {
	if result.Deleted {
		fmt.Printf("Deleted index %s\n", cmd.Collection)
	}
	if result.Created {
		fmt.Printf("Created index %s\n", cmd.Collection)
	}
	if r := result.Report; r != nil {
		fmt.Println("\n=== Load Summary ===")
		if r.Run != nil {
			fmt.Printf("Run:       %d\n", r.Run.ID)
		}
		fmt.Printf("Batches:   %d\n", r.Batches)
		fmt.Printf("Submitted: %d\n", r.Submitted)
		fmt.Printf("Indexed:   %d\n", r.Indexed)
		fmt.Printf("Elapsed:   %s\n", formatElapsed(r.Elapsed))
		printBatchErrors(r.Failed)
	}
	if h := result.Health; h != nil {
		fmt.Printf("\nCluster %s: %s\n", h.ClusterName, h.Status)
	}
}
