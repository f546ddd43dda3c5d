package cli

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrlokans/apollo-indexer/internal/config"
)

// RetryBatchCommand re-submits failed batches of a recorded run.
type RetryBatchCommand struct {
	RunID      uint
	Batch      int
	All        bool
	DataDir    string
	LedgerPath string

	cfg *config.Config
}

func NewRetryBatchCommand() *RetryBatchCommand {
	return &RetryBatchCommand{cfg: config.NewConfig()}
}

func (cmd *RetryBatchCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("retry-batch", flag.ExitOnError)

	var runID uint64
	fs.Uint64Var(&runID, "run", 0, "Run id from the ledger (required)")
	fs.IntVar(&cmd.Batch, "batch", 0, "Batch number to re-submit, starting at 1")
	fs.BoolVar(&cmd.All, "all", false, "Re-submit every failed batch of the run")
	fs.StringVar(&cmd.DataDir, "data-dir", cmd.cfg.Export.DataDir, "Directory holding the extracted collections")
	fs.StringVar(&cmd.LedgerPath, "ledger", cmd.cfg.Ledger.Path, "Path to the run ledger")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s retry-batch -run <id> (-batch <n> | -all) [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Re-read the collection of a recorded run and re-submit its failed batches.\n")
		fmt.Fprintf(os.Stderr, "The collection must not have been re-extracted since the run.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if runID == 0 {
		return fmt.Errorf("required flag -run not provided")
	}
	cmd.RunID = uint(runID)

	if cmd.All == (cmd.Batch > 0) {
		return fmt.Errorf("use exactly one of -batch or -all")
	}
	return nil
}

func (cmd *RetryBatchCommand) Run() error {
	fmt.Println("Batch Retry")
	fmt.Println("===========")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	client, err := newSearchClient(cmd.cfg.Elastic)
	if err != nil {
		return err
	}

	db, _, err := openLedger(cmd.LedgerPath)
	if err != nil {
		return err
	}
	defer db.Close()

	ld, err := newLoader(client, cmd.DataDir, db, cmd.cfg.Loader, 0)
	if err != nil {
		return err
	}

	numbers := []int{cmd.Batch}
	if cmd.All {
		failed, err := db.FailedBatches(cmd.RunID)
		if err != nil {
			return err
		}
		if len(failed) == 0 {
			fmt.Printf("Run %d has no failed batches\n", cmd.RunID)
			return nil
		}
		numbers = numbers[:0]
		for _, b := range failed {
			numbers = append(numbers, b.Batch)
		}
	}

	var failures int
	for _, n := range numbers {
		rec, err := ld.RetryBatch(ctx, cmd.RunID, n)
		if err != nil {
			failures++
			fmt.Printf("  [ERROR] batch %d: %v\n", n, err)
			if ctx.Err() != nil {
				break
			}
			continue
		}
		fmt.Printf("  [OK] batch %d (%d documents, %d attempts)\n", rec.Batch, rec.Count, rec.Attempts)
	}

	run, err := db.GetRun(cmd.RunID)
	if err != nil {
		return err
	}
	fmt.Printf("\nRun %d is now %s: %d indexed of %d documents\n", run.ID, run.Status, run.Indexed, run.TotalDocs)

	if failures > 0 {
		return fmt.Errorf("%d of %d batches failed again", failures, len(numbers))
	}
	return nil
}
