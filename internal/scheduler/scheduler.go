// Package scheduler provides cron-based scheduling for periodic reindexing.
package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// ReindexFunc is the callback invoked when a scheduled reindex should run.
type ReindexFunc func(ctx context.Context) error

// Status describes the reindex job.
type Status struct {
	Scheduled bool      `json:"scheduled"`
	Running   bool      `json:"running"`
	Schedule  string    `json:"schedule,omitempty"`
	LastRun   time.Time `json:"last_run,omitzero"`
	NextRun   time.Time `json:"next_run,omitzero"`
	LastError string    `json:"last_error,omitempty"`
}

// Scheduler runs the reindex job on a cron schedule. Overlapping runs are
// suppressed: a tick that fires while a reindex is in flight is dropped.
type Scheduler struct {
	cron    *cron.Cron
	reindex ReindexFunc
	logger  *slog.Logger

	mu       sync.RWMutex
	entryID  cron.EntryID
	schedule string
	running  bool
	lastRun  time.Time
	lastErr  error
	started  bool
	stopped  bool

	ctx    context.Context    // cancelled on Stop
	cancel context.CancelFunc // cancels ctx
	wg     sync.WaitGroup     // tracks the in-flight reindex
}

// New creates a Scheduler with the given reindex callback.
func New(reindex ReindexFunc) *Scheduler {
	ctx, cancel := context.WithCancel(context.Background())
	return &Scheduler{
		cron: cron.New(cron.WithParser(cron.NewParser(
			cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
		))),
		reindex: reindex,
		logger:  slog.Default(),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// WithLogger sets the logger for the scheduler.
func (s *Scheduler) WithLogger(logger *slog.Logger) *Scheduler {
	s.logger = logger
	return s
}

// Schedule installs the reindex job with the given cron expression, replacing
// any previously installed schedule.
func (s *Scheduler) Schedule(cronExpr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.schedule != "" {
		s.cron.Remove(s.entryID)
		s.schedule = ""
	}

	entryID, err := s.cron.AddFunc(cronExpr, func() {
		s.mu.Lock()
		if s.stopped || s.running {
			s.mu.Unlock()
			return
		}
		s.running = true
		s.wg.Add(1)
		s.mu.Unlock()
		s.run()
	})
	if err != nil {
		return fmt.Errorf("invalid cron expression %q: %w", cronExpr, err)
	}

	s.entryID = entryID
	s.schedule = cronExpr
	s.logger.Info("scheduled reindex",
		"schedule", cronExpr,
		"next_run", s.cron.Entry(entryID).Next)
	return nil
}

// Start begins executing the schedule.
func (s *Scheduler) Start() {
	s.mu.Lock()
	s.started = true
	s.stopped = false
	s.mu.Unlock()

	s.cron.Start()
	s.logger.Info("scheduler started")
}

// IsRunning returns true if the scheduler has been started and not stopped.
func (s *Scheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started && !s.stopped
}

// Stop stops the scheduler, cancels an in-flight reindex, and returns a
// context that is done when all work completes.
func (s *Scheduler) Stop() context.Context {
	s.logger.Info("scheduler stopping")

	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()

	cronCtx := s.cron.Stop()
	s.cancel()

	done := make(chan struct{})
	go func() {
		<-cronCtx.Done()
		s.wg.Wait()
		close(done)
	}()

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		<-done
		cancel()
	}()
	return ctx
}

// Trigger runs the reindex immediately, outside the schedule. Returns an
// error if a reindex is already running or the scheduler is stopped.
func (s *Scheduler) Trigger() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		return fmt.Errorf("scheduler is stopped")
	}
	if s.running {
		return fmt.Errorf("reindex already running")
	}

	s.running = true
	s.wg.Add(1)
	go s.run()
	return nil
}

// run executes one reindex. The caller must have called wg.Add(1) and set
// running = true.
func (s *Scheduler) run() {
	defer s.wg.Done()
	defer func() {
		s.mu.Lock()
		s.running = false
		s.mu.Unlock()
	}()

	s.logger.Info("starting scheduled reindex")
	start := time.Now()

	err := s.reindex(s.ctx)

	s.mu.Lock()
	if err != nil {
		s.lastErr = err
		s.logger.Error("scheduled reindex failed",
			"duration", time.Since(start), "error", err)
	} else {
		s.lastRun = time.Now()
		s.lastErr = nil
		s.logger.Info("scheduled reindex completed",
			"duration", time.Since(start))
	}
	s.mu.Unlock()
}

// Status returns the current job status.
func (s *Scheduler) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	status := Status{
		Scheduled: s.schedule != "",
		Running:   s.running,
		Schedule:  s.schedule,
		LastRun:   s.lastRun,
	}
	if s.schedule != "" {
		status.NextRun = s.cron.Entry(s.entryID).Next
	}
	if s.lastErr != nil {
		status.LastError = s.lastErr.Error()
	}
	return status
}

// ValidateCronExpr validates a cron expression without scheduling anything.
func ValidateCronExpr(expr string) error {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(expr); err != nil {
		return fmt.Errorf("invalid cron expression: %w", err)
	}
	return nil
}
