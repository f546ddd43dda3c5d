package config

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/mrlokans/apollo-indexer/internal/localtime"
	"github.com/mrlokans/apollo-indexer/internal/reference"
)

type (
	Config struct {
		HTTP
		Global
		Export
		Elastic
		Loader
		Ledger
		Tasks
		Refresh
	}

	HTTP struct {
		Port int32
		Host string
	}
	Global struct {
		ShutdownTimeoutInSeconds int
	}
	Export struct {
		Path      string // Library export XML
		DataDir   string // Output directory for collections
		Timezone  string // Zone of the local timestamps in the export
		Strict    bool   // Reject malformed XML instead of recovering
		StableIDs bool   // Derive ids from source ids instead of random tokens
		Namespace string // Scopes stable ids

		PatronMembershipPrefix  string
		HoldingMembershipPrefix string
		IgnoredCategory         string
		DVDCategory             string
	}
	Elastic struct {
		Host     string
		User     string
		Password string
		Scheme   string
		Port     int
		Timeout  time.Duration
	}
	Loader struct {
		BatchSize     int
		MaxRetries    int
		RetryDelay    time.Duration
		StopOnFailure bool
	}
	Ledger struct {
		Path string
	}
	Tasks struct {
		Workers         int
		ReleaseAfter    time.Duration
		CleanupInterval time.Duration
	}
	Refresh struct {
		Schedule string        // Cron format: "0 3 * * *" = nightly at 03:00; empty disables
		Timeout  time.Duration // Upper bound for one refresh
	}
)

// Address returns the cluster URL built from scheme, host and port.
func (e Elastic) Address() string {
	if e.Port == 0 {
		return fmt.Sprintf("%s://%s", e.Scheme, e.Host)
	}
	return fmt.Sprintf("%s://%s:%d", e.Scheme, e.Host, e.Port)
}

// Classifier returns the membership token rules configured for the export.
func (e Export) Classifier() reference.Classifier {
	return reference.Classifier{
		PatronPrefix:  e.PatronMembershipPrefix,
		HoldingPrefix: e.HoldingMembershipPrefix,
		Ignored:       e.IgnoredCategory,
		DVD:           e.DVDCategory,
	}
}

// loadDotEnv reads an optional .env file. Variables already set in the
// environment win.
func loadDotEnv() {
	path := os.Getenv("ENV_FILE")
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil && !os.IsNotExist(err) {
		log.Printf("Warning: could not load %s: %v", path, err)
	}
}

func NewConfig() *Config {
	loadDotEnv()

	v := viper.New()
	v.AutomaticEnv()
	v.SetDefault("port", 8189)
	v.SetDefault("host", "0.0.0.0")
	v.SetDefault("shutdown_timeout_in_seconds", 5)

	v.SetDefault("export_path", DefaultExportPath)
	v.SetDefault("data_dir", DefaultDataDir)
	v.SetDefault("export_timezone", localtime.DefaultZone)
	v.SetDefault("export_strict", false)
	v.SetDefault("stable_ids", false)
	v.SetDefault("stable_ids_namespace", "")
	v.SetDefault("patron_membership_prefix", reference.DefaultPatronPrefix)
	v.SetDefault("holding_membership_prefix", reference.DefaultHoldingPrefix)
	v.SetDefault("ignored_category", reference.DefaultIgnoredCategory)
	v.SetDefault("dvd_category", reference.DefaultDVDCategory)

	v.SetDefault("elastic_host", "localhost")
	v.SetDefault("elastic_scheme", "https")
	v.SetDefault("elastic_port", 9243)
	v.SetDefault("elastic_timeout", "60s")

	v.SetDefault("loader_batch_size", 100)
	v.SetDefault("loader_max_retries", 3)
	v.SetDefault("loader_retry_delay", "1s")
	v.SetDefault("loader_stop_on_failure", false)

	v.SetDefault("ledger_path", DefaultLedgerPath)

	v.SetDefault("task_workers", 2)
	v.SetDefault("task_release_after", "15m")
	v.SetDefault("task_cleanup_interval", "1h")

	v.SetDefault("refresh_schedule", "")
	v.SetDefault("refresh_timeout", "1h")

	return &Config{
		HTTP: HTTP{
			Port: v.GetInt32("PORT"),
			Host: v.GetString("HOST"),
		},
		Global: Global{
			ShutdownTimeoutInSeconds: v.GetInt("SHUTDOWN_TIMEOUT_IN_SECONDS"),
		},
		Export: Export{
			Path:                    v.GetString("EXPORT_PATH"),
			DataDir:                 v.GetString("DATA_DIR"),
			Timezone:                v.GetString("EXPORT_TIMEZONE"),
			Strict:                  v.GetBool("EXPORT_STRICT"),
			StableIDs:               v.GetBool("STABLE_IDS"),
			Namespace:               v.GetString("STABLE_IDS_NAMESPACE"),
			PatronMembershipPrefix:  v.GetString("PATRON_MEMBERSHIP_PREFIX"),
			HoldingMembershipPrefix: v.GetString("HOLDING_MEMBERSHIP_PREFIX"),
			IgnoredCategory:         v.GetString("IGNORED_CATEGORY"),
			DVDCategory:             v.GetString("DVD_CATEGORY"),
		},
		Elastic: Elastic{
			Host:     v.GetString("ELASTIC_HOST"),
			User:     v.GetString("ELASTIC_USER"),
			Password: v.GetString("ELASTIC_PASSWORD"),
			Scheme:   v.GetString("ELASTIC_SCHEME"),
			Port:     v.GetInt("ELASTIC_PORT"),
			Timeout:  v.GetDuration("ELASTIC_TIMEOUT"),
		},
		Loader: Loader{
			BatchSize:     v.GetInt("LOADER_BATCH_SIZE"),
			MaxRetries:    v.GetInt("LOADER_MAX_RETRIES"),
			RetryDelay:    v.GetDuration("LOADER_RETRY_DELAY"),
			StopOnFailure: v.GetBool("LOADER_STOP_ON_FAILURE"),
		},
		Ledger: Ledger{
			Path: v.GetString("LEDGER_PATH"),
		},
		Tasks: Tasks{
			Workers:         v.GetInt("TASK_WORKERS"),
			ReleaseAfter:    v.GetDuration("TASK_RELEASE_AFTER"),
			CleanupInterval: v.GetDuration("TASK_CLEANUP_INTERVAL"),
		},
		Refresh: Refresh{
			Schedule: v.GetString("REFRESH_SCHEDULE"),
			Timeout:  v.GetDuration("REFRESH_TIMEOUT"),
		},
	}
}
