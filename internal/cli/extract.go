package cli

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mrlokans/apollo-indexer/internal/collections"
	"github.com/mrlokans/apollo-indexer/internal/config"
	"github.com/mrlokans/apollo-indexer/internal/extract"
	"github.com/mrlokans/apollo-indexer/internal/services"
)

// ExtractCommand turns a library export into JSON collections.
type ExtractCommand struct {
	InputPath string
	DataDir   string
	Timezone  string
	Strict    bool
	StableIDs bool
	Verbose   bool

	cfg *config.Config
}

func NewExtractCommand() *ExtractCommand {
	return &ExtractCommand{cfg: config.NewConfig()}
}

func (cmd *ExtractCommand) ParseFlags(args []string) error {
	fs := flag.NewFlagSet("extract", flag.ExitOnError)

	fs.StringVar(&cmd.InputPath, "input", cmd.cfg.Export.Path, "Path to the library export XML")
	fs.StringVar(&cmd.DataDir, "data-dir", cmd.cfg.Export.DataDir, "Directory the collections are written to")
	fs.StringVar(&cmd.Timezone, "timezone", cmd.cfg.Export.Timezone, "Zone of the local timestamps in the export")
	fs.BoolVar(&cmd.Strict, "strict", cmd.cfg.Export.Strict, "Reject malformed XML instead of recovering")
	fs.BoolVar(&cmd.StableIDs, "stable-ids", cmd.cfg.Export.StableIDs, "Derive ids from source ids so reruns keep them")
	fs.BoolVar(&cmd.Verbose, "verbose", false, "Print per-collection counts and data-quality statistics")

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s extract [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Parse a library export and write biblios, patrons, addresses, fines,\n")
		fmt.Fprintf(os.Stderr, "reserves, holdings and checkouts as JSON arrays to the data directory.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		fs.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s extract -input export.xml -data-dir ./data\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s extract -input export.xml -stable-ids -verbose\n", os.Args[0])
	}

	if err := fs.Parse(args); err != nil {
		return err
	}

	if cmd.InputPath == "" {
		return fmt.Errorf("required flag -input not provided")
	}
	return nil
}

func (cmd *ExtractCommand) Run() error {
	fmt.Println("Library Export Extraction")
	fmt.Println("=========================")

	if _, err := os.Stat(cmd.InputPath); os.IsNotExist(err) {
		return fmt.Errorf("export file not found: %s", cmd.InputPath)
	}

	absDataDir, err := filepath.Abs(cmd.DataDir)
	if err != nil {
		return fmt.Errorf("failed to get absolute path for data dir: %w", err)
	}

	fmt.Printf("Input:    %s\n", cmd.InputPath)
	fmt.Printf("Output:   %s\n", absDataDir)
	fmt.Printf("Timezone: %s\n", cmd.Timezone)
	if cmd.StableIDs {
		fmt.Println("Ids:      stable")
	}

	store, err := collections.NewStore(absDataDir)
	if err != nil {
		return err
	}

	svc := services.NewExtractService(services.ExtractConfig{
		Timezone:   cmd.Timezone,
		Strict:     cmd.Strict,
		StableIDs:  cmd.StableIDs,
		Namespace:  cmd.cfg.Export.Namespace,
		Classifier: cmd.cfg.Export.Classifier(),
	}, store)

	fmt.Println("\nExtracting...")
	summary, err := svc.Extract(cmd.InputPath)
	if err != nil {
		if errors.Is(err, extract.ErrFatal) {
			fmt.Println("\nExtraction stopped. Collections written before the failure are kept.")
		}
		return err
	}

	if len(summary.Diagnostics) > 0 {
		fmt.Printf("\n%d parser diagnostics:\n", len(summary.Diagnostics))
		for _, d := range summary.Diagnostics {
			fmt.Printf("  [WARN] %s\n", d)
		}
	}

	fmt.Println("\n=== Extraction Summary ===")
	total := 0
	for _, c := range summary.Collections {
		total += c.Count
		if cmd.Verbose {
			fmt.Printf("%-10s %d\n", c.Name+":", c.Count)
		}
	}
	fmt.Printf("Records written: %d in %d collections\n", total, len(summary.Collections))

	if cmd.Verbose {
		fmt.Printf("\nMemberships: %d, categories: %d\n", summary.Memberships, summary.Categories)
		fmt.Printf("Checkouts without a patron:  %d\n", summary.UnlinkedPatrons)
		fmt.Printf("Checkouts without a holding: %d\n", summary.UnlinkedHoldings)
		fmt.Printf("Unresolved membership tokens: %d\n", summary.UnresolvedTokens)
	}

	fmt.Printf("\nCompleted in %s\n", formatElapsed(summary.Elapsed))
	return nil
}
