package main

import (
	"fmt"
	"os"

	"github.com/mrlokans/apollo-indexer/internal/cli"
	"github.com/mrlokans/apollo-indexer/internal/config"
	"github.com/mrlokans/apollo-indexer/internal/entrypoint"
)

// Version information - set at build time via ldflags
var (
	Version = "dev"
	Commit  = "unknown"
)

type command interface {
	ParseFlags(args []string) error
	Run() error
}

func main() {
	// If no arguments or "serve" command, run the status server
	if len(os.Args) < 2 || os.Args[1] == "serve" {
		cfg := config.NewConfig()
		entrypoint.Run(cfg, Version)
		return
	}

	name := os.Args[1]
	args := os.Args[2:]

	var cmd command
	switch name {
	case "extract":
		cmd = cli.NewExtractCommand()
	case "load":
		cmd = cli.NewLoadCommand()
	case "retry-batch":
		cmd = cli.NewRetryBatchCommand()
	case "-h", "--help", "help":
		printUsage()
		return
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n\n", name)
		printUsage()
		os.Exit(1)
	}

	if err := cmd.ParseFlags(args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if err := cmd.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Usage: %s <command> [options]\n\n", os.Args[0])
	fmt.Fprintf(os.Stderr, "Commands:\n")
	fmt.Fprintf(os.Stderr, "  serve         Start the status server and scheduled refresh (default if no command given)\n")
	fmt.Fprintf(os.Stderr, "  extract       Turn a library export XML into JSON collections\n")
	fmt.Fprintf(os.Stderr, "  load          Create, delete, fill or inspect the index of one collection\n")
	fmt.Fprintf(os.Stderr, "  retry-batch   Re-submit failed batches of a recorded load\n")
	fmt.Fprintf(os.Stderr, "\nUse '%s <command> -h' for help on a specific command.\n", os.Args[0])
}
