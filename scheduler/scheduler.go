// Package scheduler provides automated dataset refresh scheduling and
// staleness monitoring. It re-runs the acquisition pipelines at fixed
// daily times so the served artifacts stay current.
package scheduler

import (
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/Nicaras/memilio/logging"
	"github.com/go-co-op/gocron"
	"github.com/google/uuid"
)

// Pipeline is one runnable dataset acquisition pipeline.
type Pipeline interface {
	Refresh() error
}

// Scheduler re-runs a pipeline on a daily schedule.
type Scheduler struct {
	pipeline    Pipeline
	scheduler   *gocron.Scheduler
	times       string
	lastUpdated atomic.Value // time.Time
	updating    atomic.Bool
	done        chan struct{}
}

// New creates a scheduler refreshing pipeline at the given daily times
// ("HH:MM;HH:MM").
func New(pipeline Pipeline, refreshTimes string) *Scheduler {
	return &Scheduler{
		pipeline:  pipeline,
		scheduler: gocron.NewScheduler(time.Local),
		times:     refreshTimes,
		done:      make(chan struct{}),
	}
}

// Start performs the initial refresh, schedules the daily runs and
// starts the staleness monitor.
func (s *Scheduler) Start() error {
	if err := s.refresh(); err != nil {
		logging.Error("Failed to perform initial data load", "error", err)
		return fmt.Errorf("initial data load failed: %w", err)
	}

	_, err := s.scheduler.Every(1).Days().At(s.times).Do(func() {
		if err := s.refresh(); err != nil {
			logging.Error("Failed to refresh data", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule refreshes", "error", err)
		return fmt.Errorf("failed to schedule refreshes: %w", err)
	}

	s.scheduler.StartAsync()
	go s.monitorStaleness()
	return nil
}

// Stop stops the scheduler and the staleness monitor.
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	close(s.done)
}

// LastUpdated returns the completion time of the last successful refresh.
func (s *Scheduler) LastUpdated() time.Time {
	if v := s.lastUpdated.Load(); v != nil {
		if t, ok := v.(time.Time); ok {
			return t
		}
	}
	return time.Time{}
}

// IsUpdating reports whether a refresh is currently running.
func (s *Scheduler) IsUpdating() bool {
	return s.updating.Load()
}

func (s *Scheduler) refresh() error {
	// Prevent concurrent refreshes
	if !s.updating.CompareAndSwap(false, true) {
		logging.Info("Refresh already in progress, skipping...")
		return nil
	}
	defer s.updating.Store(false)

	runID := uuid.NewString()
	start := time.Now()
	logging.Info("Starting dataset refresh", "run_id", runID, "scheduled_times", s.times)

	if err := s.pipeline.Refresh(); err != nil {
		logging.Error("Dataset refresh failed", "run_id", runID, "error", err)
		return err
	}

	s.lastUpdated.Store(time.Now())
	logging.Info("Dataset refresh completed", "run_id", runID,
		"duration", time.Since(start).String())
	return nil
}

// monitorStaleness warns when no refresh has completed for over a day,
// which means the scheduled runs are silently failing.
func (s *Scheduler) monitorStaleness() {
	ticker := time.NewTicker(1 * time.Hour)
	defer ticker.Stop()

	runsPerDay := len(strings.Split(s.times, ";"))
	threshold := 25 * time.Hour
	if runsPerDay > 1 {
		threshold = time.Duration(25/runsPerDay) * time.Hour
	}

	for {
		select {
		case <-s.done:
			return
		case <-ticker.C:
			if time.Since(s.LastUpdated()) > threshold {
				logging.Warn("Data has not been refreshed recently",
					"last_updated", s.LastUpdated(), "threshold", threshold.String())
			}
		}
	}
}
