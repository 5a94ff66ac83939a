// Cartographus - Media Server Analytics and Geographic Visualization
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/cartographus

package services

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/thejerf/suture/v4"
)

func countingTask(name string, removed int, err error, runs *atomic.Int32) Task {
	return Task{
		Name: name,
		Run: func(context.Context) (int, error) {
			runs.Add(1)
			return removed, err
		},
	}
}

func TestMaintenanceService_Interface(t *testing.T) {
	var _ suture.Service = (*MaintenanceService)(nil)
}

func TestNewMaintenanceService_DefaultInterval(t *testing.T) {
	t.Parallel()

	svc := NewMaintenanceService(0)
	if svc.interval != 5*time.Minute {
		t.Errorf("interval = %v, want 5m", svc.interval)
	}
	if svc.String() != "maintenance" {
		t.Errorf("String() = %q", svc.String())
	}
}

func TestMaintenanceService_RunOnce(t *testing.T) {
	t.Parallel()

	var a, b, c atomic.Int32
	svc := NewMaintenanceService(time.Minute,
		countingTask("stale-cache", 3, nil, &a),
		countingTask("sessions", 0, errors.New("store unavailable"), &b),
		countingTask("attempts", 2, nil, &c),
	)

	if got := svc.RunOnce(context.Background()); got != 5 {
		t.Errorf("RunOnce() = %d, want 5", got)
	}
	if a.Load() != 1 || b.Load() != 1 || c.Load() != 1 {
		t.Errorf("runs = %d/%d/%d, want each task once", a.Load(), b.Load(), c.Load())
	}
}

func TestMaintenanceService_RunOnce_CanceledContext(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	svc := NewMaintenanceService(time.Minute, countingTask("stale-cache", 1, nil, &runs))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if got := svc.RunOnce(ctx); got != 0 {
		t.Errorf("RunOnce() = %d, want 0", got)
	}
	if runs.Load() != 0 {
		t.Error("task ran after cancellation")
	}
}

func TestMaintenanceService_Serve(t *testing.T) {
	t.Parallel()

	var runs atomic.Int32
	svc := NewMaintenanceService(10*time.Millisecond, countingTask("sessions", 1, nil, &runs))

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- svc.Serve(ctx) }()

	deadline := time.After(2 * time.Second)
	for runs.Load() < 2 {
		select {
		case <-deadline:
			t.Fatalf("task ran %d times, want at least 2", runs.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}

	cancel()
	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Serve() = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Serve did not return after cancel")
	}
}
