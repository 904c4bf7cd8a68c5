package tasks

import (
	"context"
	"log/slog"
	"time"

	"skywatch/internal/models"
	"skywatch/internal/search"
)

// Watch is one persistent aircraft watch: a named criterion that alerts when
// matching aircraft appear.
type Watch struct {
	Name      string
	Criterion search.Criterion
}

// Notifier receives watch hits. Delivery (push, banner, whatever the UI
// does) is the implementer's problem.
type Notifier interface {
	Notify(watch string, aircraft models.AircraftRecord)
}

// searcher is the slice of the aggregator the monitor needs.
type searcher interface {
	Search(ctx context.Context, c search.Criterion) (search.Result, error)
}

// WatchMonitor runs every configured watch on a timer and notifies once per
// aircraft while it keeps matching. When an aircraft drops out of the result
// set it becomes eligible to alert again.
type WatchMonitor struct {
	searcher searcher
	notifier Notifier
	watches  []Watch
	interval time.Duration

	// active holds the hexes currently matching each watch. Only Run
	// touches it; the scheduler never runs the same task concurrently.
	active map[string]map[string]struct{}
}

// NewWatchMonitor creates a watch monitor task
func NewWatchMonitor(searcher searcher, notifier Notifier, watches []Watch, interval time.Duration) *WatchMonitor {
	if interval <= 0 {
		interval = time.Minute
	}
	return &WatchMonitor{
		searcher: searcher,
		notifier: notifier,
		watches:  watches,
		interval: interval,
		active:   make(map[string]map[string]struct{}),
	}
}

func (m *WatchMonitor) Run(ctx context.Context) error {
	for _, watch := range m.watches {
		result, err := m.searcher.Search(ctx, watch.Criterion)
		if err != nil {
			return err
		}
		for _, subErr := range result.Errors {
			slog.Warn("Watch sub-query failed", "watch", watch.Name, "error", subErr)
		}
		m.reconcile(watch.Name, result.Aircraft)
	}
	return nil
}

func (m *WatchMonitor) reconcile(watch string, aircraft []models.AircraftRecord) {
	previous := m.active[watch]
	current := make(map[string]struct{}, len(aircraft))

	for _, ac := range aircraft {
		current[ac.Hex] = struct{}{}
		if _, known := previous[ac.Hex]; known {
			continue
		}
		slog.Info("Watch matched aircraft", "watch", watch, "hex", ac.Hex, "callsign", ac.Callsign)
		if m.notifier != nil {
			m.notifier.Notify(watch, ac)
		}
	}

	m.active[watch] = current
}

func (m *WatchMonitor) Interval() time.Duration {
	return m.interval
}

func (m *WatchMonitor) Name() string {
	return "watch_monitor"
}
