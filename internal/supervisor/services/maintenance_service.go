// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package services

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/tomtom215/moviesavanna/internal/logging"
	"github.com/tomtom215/moviesavanna/internal/metrics"
)

// Task is one periodic sweep. Run returns how many entries it removed.
type Task struct {
	Name string
	Run  func(ctx context.Context) (int, error)
}

// MaintenanceService runs a fixed set of sweeps on an interval: stale TMDB
// cache entries, expired attempt-limiter windows and expired sessions.
// A failing task is logged and does not stop the others.
type MaintenanceService struct {
	interval time.Duration
	tasks    []Task
	logger   zerolog.Logger
	name     string
}

// NewMaintenanceService creates a maintenance service. A non-positive
// interval defaults to 5 minutes.
func NewMaintenanceService(interval time.Duration, tasks ...Task) *MaintenanceService {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	return &MaintenanceService{
		interval: interval,
		tasks:    tasks,
		logger:   logging.WithComponent("maintenance"),
		name:     "maintenance",
	}
}

// Serve implements suture.Service.
func (s *MaintenanceService) Serve(ctx context.Context) error {
	s.logger.Info().
		Dur("interval", s.interval).
		Int("tasks", len(s.tasks)).
		Msg("maintenance service starting")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info().Msg("maintenance service shutting down")
			return ctx.Err()
		case <-ticker.C:
			s.RunOnce(ctx)
		}
	}
}

// RunOnce runs every task once and returns the total removed.
func (s *MaintenanceService) RunOnce(ctx context.Context) int {
	total := 0
	for _, task := range s.tasks {
		if ctx.Err() != nil {
			return total
		}
		removed, err := task.Run(ctx)
		if err != nil {
			s.logger.Warn().Err(err).Str("task", task.Name).Msg("maintenance task failed")
			continue
		}
		if removed > 0 {
			metrics.RecordMaintenance(task.Name, removed)
			s.logger.Debug().Str("task", task.Name).Int("removed", removed).Msg("maintenance task complete")
		}
		total += removed
	}
	return total
}

// String implements fmt.Stringer for suture's event log.
func (s *MaintenanceService) String() string {
	return s.name
}
