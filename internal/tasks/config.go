package tasks

import "time"

// Config holds settings for the batch queue. Attempts, backoff and timeout
// are per queue and live on the task types.
type Config struct {
	// Workers is the number of batches submitted concurrently. Default: 2
	Workers int

	// ReleaseAfter is when stuck tasks are released back to the queue. Default: 15m
	ReleaseAfter time.Duration

	// CleanupInterval is how often finished tasks are purged. Default: 1h
	CleanupInterval time.Duration
}

// DefaultConfig returns the default queue settings.
func DefaultConfig() Config {
	return Config{
		Workers:         2,
		ReleaseAfter:    15 * time.Minute,
		CleanupInterval: 1 * time.Hour,
	}
}
