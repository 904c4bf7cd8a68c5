package tasks

import (
	"context"
	"log/slog"
	"time"
)

// routeSweeper is the slice of the route cache the cleanup task needs.
type routeSweeper interface {
	Cleanup(ctx context.Context) (int64, error)
}

// RouteCleanup periodically deletes cached routes older than the retention
// window. The sweep itself lives in the route cache; this task only owns the
// schedule.
type RouteCleanup struct {
	sweeper  routeSweeper
	interval time.Duration
}

// NewRouteCleanup creates a retention sweep task. The default interval is
// once a day.
func NewRouteCleanup(sweeper routeSweeper, interval time.Duration) *RouteCleanup {
	if interval <= 0 {
		interval = 24 * time.Hour
	}
	return &RouteCleanup{sweeper: sweeper, interval: interval}
}

func (t *RouteCleanup) Run(ctx context.Context) error {
	deleted, err := t.sweeper.Cleanup(ctx)
	if err != nil {
		return err
	}
	slog.Debug("Route retention sweep complete", "deleted", deleted)
	return nil
}

func (t *RouteCleanup) Interval() time.Duration {
	return t.interval
}

func (t *RouteCleanup) Name() string {
	return "route_cleanup"
}
