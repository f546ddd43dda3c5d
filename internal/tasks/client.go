package tasks

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"sync/atomic"

	_ "github.com/mattn/go-sqlite3"
	"github.com/mikestefanello/backlite"
)

// Client is the batch queue: a backlite client over its own sqlite file so
// queue churn never locks the ledger.
type Client struct {
	*backlite.Client

	db      *sql.DB
	workers int
	running atomic.Bool
}

// QueuePath returns the queue database stored next to the ledger:
// data/ledger.db gives data/ledger-tasks.db.
func QueuePath(ledgerPath string) string {
	ext := filepath.Ext(ledgerPath)
	return strings.TrimSuffix(ledgerPath, ext) + "-tasks" + ext
}

// NewClient opens the queue database for ledgerPath and installs the
// backlite schema. Queues must be registered before Start.
func NewClient(ledgerPath string, cfg Config) (*Client, error) {
	db, err := sql.Open("sqlite3", QueuePath(ledgerPath)+"?_journal=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open queue database: %w", err)
	}
	db.SetMaxOpenConns(cfg.Workers + 2)

	bl, err := backlite.NewClient(backlite.ClientConfig{
		DB:              db,
		NumWorkers:      cfg.Workers,
		ReleaseAfter:    cfg.ReleaseAfter,
		CleanupInterval: cfg.CleanupInterval,
		Logger:          queueLogger{},
	})
	if err == nil {
		err = bl.Install()
	}
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set up batch queue: %w", err)
	}

	return &Client{Client: bl, db: db, workers: cfg.Workers}, nil
}

// Register adds queues to the underlying client.
func (c *Client) Register(queues ...backlite.Queue) {
	for _, q := range queues {
		c.Client.Register(q)
	}
}

// Start launches the workers. Later calls are no-ops.
func (c *Client) Start(ctx context.Context) {
	if !c.running.CompareAndSwap(false, true) {
		return
	}
	log.Printf("[TASK] Batch queue started with %d workers", c.workers)
	c.Client.Start(ctx)
}

// Stop waits for in-flight batches until ctx expires and reports whether
// they all finished.
func (c *Client) Stop(ctx context.Context) bool {
	if !c.running.CompareAndSwap(true, false) {
		return true
	}
	if !c.Client.Stop(ctx) {
		log.Println("[TASK] Batch queue stopped with batches still in flight")
		return false
	}
	log.Println("[TASK] Batch queue stopped")
	return true
}

// Close releases the queue database. Call after Stop.
func (c *Client) Close() error {
	return c.db.Close()
}

type queueLogger struct{}

func (queueLogger) Info(message string, params ...any) {
	log.Printf("[TASK] "+message, params...)
}

func (queueLogger) Error(message string, params ...any) {
	log.Printf("[TASK ERROR] "+message, params...)
}
