package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/apollo-indexer/internal/services"
)

// ErrRefreshInProgress is returned by RunNow while a refresh is running.
var ErrRefreshInProgress = errors.New("refresh already in progress")

// Refresher runs one full extract and reindex.
type Refresher interface {
	Refresh(ctx context.Context) (*services.RefreshSummary, error)
}

// Status is a snapshot of the scheduler.
type Status struct {
	Running     bool       `json:"running"`
	Refreshing  bool       `json:"refreshing"`
	Schedule    string     `json:"schedule,omitempty"`
	NextRunAt   *time.Time `json:"next_run_at,omitempty"`
	LastRunAt   *time.Time `json:"last_run_at,omitempty"`
	LastElapsed string     `json:"last_elapsed,omitempty"`
	LastError   string     `json:"last_error,omitempty"`
}

var parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

// ValidateSchedule checks a five-field cron expression.
func ValidateSchedule(schedule string) error {
	_, err := parser.Parse(schedule)
	return err
}

// RefreshScheduler runs the refresh on a cron schedule and on demand.
// Refreshes never overlap.
type RefreshScheduler struct {
	refresher Refresher
	schedule  string
	timeout   time.Duration

	cron       *cron.Cron
	entryID    cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	refreshing bool
	lastRunAt  *time.Time
	lastErr    error
	lastTook   time.Duration
	done       chan struct{}
}

// NewRefreshScheduler creates a scheduler. An empty schedule disables the
// cron trigger; RunNow still works.
func NewRefreshScheduler(refresher Refresher, schedule string, timeout time.Duration) *RefreshScheduler {
	if timeout <= 0 {
		timeout = time.Hour
	}
	return &RefreshScheduler{
		refresher: refresher,
		schedule:  schedule,
		timeout:   timeout,
		cron:      cron.New(cron.WithParser(parser)),
	}
}

// Start schedules the refresh. It stops when ctx is cancelled.
func (s *RefreshScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}
	if s.schedule == "" {
		log.Printf("[REFRESH] Scheduler disabled (no schedule)")
		return nil
	}
	if err := ValidateSchedule(s.schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", s.schedule, err)
	}

	entryID, err := s.cron.AddFunc(s.schedule, func() {
		if err := s.begin(); err != nil {
			log.Printf("[REFRESH] Skipped: %v", err)
			return
		}
		s.run()
	})
	if err != nil {
		return fmt.Errorf("failed to schedule refresh: %w", err)
	}
	s.entryID = entryID

	s.cron.Start()
	s.isRunning = true
	log.Printf("[REFRESH] Scheduler started with schedule '%s'. Next run: %v", s.schedule, s.nextRunLocked())

	go func() {
		<-ctx.Done()
		s.Stop()
	}()
	return nil
}

// Stop stops the cron trigger and waits for a scheduled refresh to finish.
func (s *RefreshScheduler) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	s.mu.Unlock()

	ctx := s.cron.Stop()
	<-ctx.Done()
	s.cron.Remove(s.entryID)
	log.Printf("[REFRESH] Scheduler stopped")
}

// RunNow starts a refresh in the background.
func (s *RefreshScheduler) RunNow() error {
	if err := s.begin(); err != nil {
		return err
	}
	go s.run()
	return nil
}

// Wait blocks until the refresh in progress, if any, has finished.
func (s *RefreshScheduler) Wait() {
	s.mu.RLock()
	done := s.done
	s.mu.RUnlock()
	if done != nil {
		<-done
	}
}

// Status returns a snapshot of the scheduler state.
func (s *RefreshScheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Status{
		Running:    s.isRunning,
		Refreshing: s.refreshing,
		Schedule:   s.schedule,
		LastRunAt:  s.lastRunAt,
	}
	if s.isRunning {
		st.NextRunAt = s.nextRunLocked()
	}
	if s.lastRunAt != nil {
		st.LastElapsed = s.lastTook.Round(time.Millisecond).String()
	}
	if s.lastErr != nil {
		st.LastError = s.lastErr.Error()
	}
	return st
}

func (s *RefreshScheduler) nextRunLocked() *time.Time {
	for _, entry := range s.cron.Entries() {
		if entry.ID == s.entryID {
			t := entry.Next
			return &t
		}
	}
	return nil
}

// begin claims the refresh slot.
func (s *RefreshScheduler) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refreshing {
		return ErrRefreshInProgress
	}
	s.refreshing = true
	s.done = make(chan struct{})
	return nil
}

// run performs a refresh. The caller must hold the slot from begin.
func (s *RefreshScheduler) run() {
	start := time.Now()
	log.Printf("[REFRESH] Starting full refresh")

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	_, err := s.refresher.Refresh(ctx)
	took := time.Since(start)
	if err != nil {
		log.Printf("[REFRESH] Finished with errors in %s: %v", took.Round(time.Millisecond), err)
	} else {
		log.Printf("[REFRESH] Finished in %s", took.Round(time.Millisecond))
	}

	s.mu.Lock()
	s.refreshing = false
	s.lastRunAt = &start
	s.lastErr = err
	s.lastTook = took
	close(s.done)
	s.mu.Unlock()
}
