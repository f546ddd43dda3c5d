package config

// Default paths
const (
	// DefaultDataDir holds the collection files (biblios.json, ...)
	DefaultDataDir = "./data"

	// DefaultLedgerPath is the run ledger; the batch queue lives next to it
	DefaultLedgerPath = "./data/ledger.db"

	// DefaultExportPath is the library export read by extract and refresh
	DefaultExportPath = "./export.xml"
)
