package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"
)

func TestTriggerRunsReindex(t *testing.T) {
	var runs atomic.Int32
	done := make(chan struct{})

	s := New(func(ctx context.Context) error {
		runs.Add(1)
		close(done)
		return nil
	}).WithLogger(slog.New(slog.DiscardHandler))
	s.Start()

	if err := s.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("reindex never ran")
	}
	<-s.Stop().Done()

	if got := runs.Load(); got != 1 {
		t.Errorf("reindex ran %d times, want 1", got)
	}
	status := s.Status()
	if status.LastRun.IsZero() {
		t.Error("LastRun not recorded after successful run")
	}
	if status.LastError != "" {
		t.Errorf("LastError = %q, want empty", status.LastError)
	}
}

func TestTriggerWhileRunning(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})

	s := New(func(ctx context.Context) error {
		close(started)
		<-release
		return nil
	}).WithLogger(slog.New(slog.DiscardHandler))
	s.Start()

	if err := s.Trigger(); err != nil {
		t.Fatalf("first Trigger: %v", err)
	}
	<-started

	if err := s.Trigger(); err == nil {
		t.Error("second Trigger succeeded while reindex in flight")
	}

	close(release)
	<-s.Stop().Done()
}

func TestTriggerAfterStop(t *testing.T) {
	s := New(func(ctx context.Context) error { return nil }).
		WithLogger(slog.New(slog.DiscardHandler))
	s.Start()
	<-s.Stop().Done()

	if err := s.Trigger(); err == nil {
		t.Error("Trigger succeeded after Stop")
	}
	if s.IsRunning() {
		t.Error("IsRunning() = true after Stop")
	}
}

func TestRunErrorRecorded(t *testing.T) {
	done := make(chan struct{})
	s := New(func(ctx context.Context) error {
		defer close(done)
		return errors.New("disk full")
	}).WithLogger(slog.New(slog.DiscardHandler))
	s.Start()

	if err := s.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}
	<-done
	<-s.Stop().Done()

	status := s.Status()
	if status.LastError != "disk full" {
		t.Errorf("LastError = %q, want %q", status.LastError, "disk full")
	}
	if !status.LastRun.IsZero() {
		t.Error("LastRun recorded for a failed run")
	}
}

func TestStopCancelsInFlightReindex(t *testing.T) {
	canceled := make(chan struct{})
	s := New(func(ctx context.Context) error {
		<-ctx.Done()
		close(canceled)
		return ctx.Err()
	}).WithLogger(slog.New(slog.DiscardHandler))
	s.Start()

	if err := s.Trigger(); err != nil {
		t.Fatalf("Trigger: %v", err)
	}

	stopCtx := s.Stop()
	select {
	case <-canceled:
	case <-time.After(5 * time.Second):
		t.Fatal("in-flight reindex never saw cancellation")
	}
	select {
	case <-stopCtx.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("Stop context never completed")
	}
}

func TestScheduleValidation(t *testing.T) {
	s := New(func(ctx context.Context) error { return nil }).
		WithLogger(slog.New(slog.DiscardHandler))

	if err := s.Schedule("not a cron expr"); err == nil {
		t.Error("Schedule accepted a malformed expression")
	}
	if err := s.Schedule("*/5 * * * *"); err != nil {
		t.Errorf("Schedule rejected a valid expression: %v", err)
	}

	status := s.Status()
	if !status.Scheduled || status.Schedule != "*/5 * * * *" {
		t.Errorf("status = %+v, want scheduled */5 * * * *", status)
	}
}

func TestValidateCronExpr(t *testing.T) {
	if err := ValidateCronExpr("0 3 * * *"); err != nil {
		t.Errorf("ValidateCronExpr rejected valid expression: %v", err)
	}
	if err := ValidateCronExpr("bogus"); err == nil {
		t.Error("ValidateCronExpr accepted bogus expression")
	}
}
