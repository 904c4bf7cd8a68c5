package search

import (
	"context"
	"log/slog"

	"skywatch/internal/models"
)

// Fetcher is the transport surface the aggregator fans out over. Implemented
// by trackerapi.Client.
type Fetcher interface {
	ByHex(ctx context.Context, hexes []string) ([]models.AircraftRecord, error)
	BySquawk(ctx context.Context, squawks []string) ([]models.AircraftRecord, error)
	ByCallsign(ctx context.Context, callsigns []string) ([]models.AircraftRecord, error)
	ByRegistration(ctx context.Context, registrations []string) ([]models.AircraftRecord, error)
	ByType(ctx context.Context, types []string) ([]models.AircraftRecord, error)
	ByCircle(ctx context.Context, lat, lon, radiusMeters float64) ([]models.AircraftRecord, error)
	Military(ctx context.Context) ([]models.AircraftRecord, error)
	LADD(ctx context.Context) ([]models.AircraftRecord, error)
	PIA(ctx context.Context) ([]models.AircraftRecord, error)
}

// AircraftStore receives every merged snapshot for persistence. Implemented
// by database.AircraftRepository.
type AircraftStore interface {
	UpsertBatch(aircraft []models.AircraftRecord) error
}

// Result is one merged snapshot of an in-progress search. Aircraft are
// deduplicated by hex; Pending stays true while any sub-query is still
// outstanding; Errors holds one entry per failed sub-query.
type Result struct {
	Aircraft []models.AircraftRecord
	Pending  bool
	Errors   []error
}

// progressKind is the per-sub-query state: queued, in flight, or terminal.
type progressKind int

const (
	progressPending progressKind = iota
	progressRunning
	progressDone
)

type progress struct {
	kind     progressKind
	aircraft []models.AircraftRecord
	err      error
}

type subQuery struct {
	name string
	run  func(ctx context.Context) ([]models.AircraftRecord, error)
}

type transition struct {
	index int
	state progress
}

// Aggregator fans one criterion out into independent sub-queries and merges
// their results into a progressive stream of snapshots.
type Aggregator struct {
	fetcher Fetcher
	store   AircraftStore
}

// New creates a search aggregator
func New(fetcher Fetcher, store AircraftStore) *Aggregator {
	return &Aggregator{fetcher: fetcher, store: store}
}

// Stream launches one sub-query per non-empty category of the criterion and
// returns a channel of merged snapshots. Every sub-query transition produces
// exactly one new snapshot; the terminal snapshot has Pending=false and the
// channel closes after it. Cancelling ctx abandons the search: in-flight
// sub-queries stop and no further snapshots are delivered.
func (a *Aggregator) Stream(ctx context.Context, c Criterion) <-chan Result {
	out := make(chan Result, 1)
	subs := buildPlan(c).subQueries(a.fetcher)

	if len(subs) == 0 {
		// Nothing to fan out: a single, already-complete empty result.
		out <- Result{Pending: false}
		close(out)
		return out
	}

	// Two transitions per sub-query; full buffering lets the goroutines
	// finish their sends and exit even after an abandoned merge stops
	// draining.
	events := make(chan transition, 2*len(subs))
	for i, sub := range subs {
		i, sub := i, sub
		go func() {
			events <- transition{index: i, state: progress{kind: progressRunning}}
			aircraft, err := sub.run(ctx)
			events <- transition{index: i, state: progress{kind: progressDone, aircraft: aircraft, err: err}}
		}()
	}

	go a.merge(ctx, subs, events, out)
	return out
}

// Search runs the criterion to completion and returns only the final merged
// snapshot. The error is non-nil only when the caller's context ends before
// the search does; sub-query failures are reported inside Result.Errors.
func (a *Aggregator) Search(ctx context.Context, c Criterion) (Result, error) {
	var last Result
	seen := false
	for snapshot := range a.Stream(ctx, c) {
		last = snapshot
		seen = true
	}
	if err := ctx.Err(); err != nil && (!seen || last.Pending) {
		return Result{}, err
	}
	return last, nil
}

// merge is the single mutation point for sub-query state. It recomputes the
// combined snapshot on every transition, persists the merged aircraft set,
// and emits the snapshot, until every sub-query has completed.
func (a *Aggregator) merge(ctx context.Context, subs []subQuery, events <-chan transition, out chan<- Result) {
	defer close(out)

	states := make([]progress, len(subs))

	// Initial emission: everything still queued.
	if !a.emit(ctx, mergeSnapshot(subs, states), out) {
		return
	}

	remaining := len(subs)
	for remaining > 0 {
		select {
		case <-ctx.Done():
			return
		case ev := <-events:
			if ctx.Err() != nil {
				// Abandoned search: discard partial results.
				return
			}
			states[ev.index] = ev.state
			if ev.state.kind != progressDone {
				// In-flight transitions change state without a new snapshot.
				continue
			}
			remaining--
			if ev.state.err != nil {
				slog.Debug("Search sub-query failed", "category", subs[ev.index].name, "error", ev.state.err)
			}
			if !a.emit(ctx, mergeSnapshot(subs, states), out) {
				return
			}
		}
	}
}

// emit persists the merged aircraft set and delivers the snapshot. The store
// write completes before the snapshot becomes visible to the caller.
func (a *Aggregator) emit(ctx context.Context, snapshot Result, out chan<- Result) bool {
	if a.store != nil && len(snapshot.Aircraft) > 0 {
		if err := a.store.UpsertBatch(snapshot.Aircraft); err != nil {
			slog.Warn("Failed to persist merged aircraft set", "count", len(snapshot.Aircraft), "error", err)
		}
	}
	select {
	case out <- snapshot:
		return true
	case <-ctx.Done():
		return false
	}
}

// mergeSnapshot combines all sub-query states into one Result, unioning
// completed aircraft sets by hex and concatenating errors.
func mergeSnapshot(subs []subQuery, states []progress) Result {
	result := Result{}
	seen := make(map[string]struct{})
	for i, state := range states {
		if state.kind != progressDone {
			result.Pending = true
			continue
		}
		if state.err != nil {
			result.Errors = append(result.Errors, &SubQueryError{Category: subs[i].name, Err: state.err})
			continue
		}
		for _, ac := range state.aircraft {
			if _, dup := seen[ac.Hex]; dup {
				continue
			}
			seen[ac.Hex] = struct{}{}
			result.Aircraft = append(result.Aircraft, ac)
		}
	}
	return result
}

// SubQueryError ties a sub-query failure to the category that produced it so
// the caller can surface per-category messaging.
type SubQueryError struct {
	Category string
	Err      error
}

func (e *SubQueryError) Error() string {
	return e.Category + " search failed: " + e.Err.Error()
}

func (e *SubQueryError) Unwrap() error {
	return e.Err
}

func (p plan) subQueries(f Fetcher) []subQuery {
	var subs []subQuery
	if len(p.hexes) > 0 {
		hexes := p.hexes
		subs = append(subs, subQuery{"hex", func(ctx context.Context) ([]models.AircraftRecord, error) {
			return f.ByHex(ctx, hexes)
		}})
	}
	if len(p.squawks) > 0 {
		squawks := p.squawks
		subs = append(subs, subQuery{"squawk", func(ctx context.Context) ([]models.AircraftRecord, error) {
			return f.BySquawk(ctx, squawks)
		}})
	}
	if len(p.callsigns) > 0 {
		callsigns := p.callsigns
		subs = append(subs, subQuery{"callsign", func(ctx context.Context) ([]models.AircraftRecord, error) {
			return f.ByCallsign(ctx, callsigns)
		}})
	}
	if len(p.registrations) > 0 {
		registrations := p.registrations
		subs = append(subs, subQuery{"registration", func(ctx context.Context) ([]models.AircraftRecord, error) {
			return f.ByRegistration(ctx, registrations)
		}})
	}
	if len(p.types) > 0 {
		types := p.types
		subs = append(subs, subQuery{"type", func(ctx context.Context) ([]models.AircraftRecord, error) {
			return f.ByType(ctx, types)
		}})
	}
	if p.location != nil {
		loc := *p.location
		subs = append(subs, subQuery{"location", func(ctx context.Context) ([]models.AircraftRecord, error) {
			return f.ByCircle(ctx, loc.Lat, loc.Lon, loc.RadiusMeters)
		}})
	}
	if p.military {
		subs = append(subs, subQuery{"military", f.Military})
	}
	if p.ladd {
		subs = append(subs, subQuery{"ladd", f.LADD})
	}
	if p.pia {
		subs = append(subs, subQuery{"pia", f.PIA})
	}
	return subs
}
