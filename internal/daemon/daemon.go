package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"skywatch/internal/config"
	"skywatch/internal/database"
	"skywatch/internal/routecache"
	"skywatch/internal/scheduler"
	"skywatch/internal/search"
	"skywatch/internal/tasks"
	"skywatch/internal/trackerapi"
)

// seedBatchSize is how many airport rows go into one transaction when the
// seed dataset is loaded.
const seedBatchSize = 5000

// Config holds daemon configuration
type Config struct {
	App      *config.Config
	Watches  []tasks.Watch  // optional persistent watches
	Notifier tasks.Notifier // receives watch hits, may be nil
}

// Daemon wires the tracking client, search aggregator, route cache, and
// scheduler together around one database.
type Daemon struct {
	ctx        context.Context
	cancel     context.CancelFunc
	scheduler  *scheduler.Scheduler
	db         *database.DB
	client     *trackerapi.Client
	aggregator *search.Aggregator
	resolver   *routecache.Resolver
}

// New creates a new daemon instance
func New(cfg Config) (*Daemon, error) {
	if cfg.App == nil {
		return nil, fmt.Errorf("configuration is required")
	}

	ctx, cancel := context.WithCancel(context.Background())

	db, err := database.New(cfg.App.DBPath)
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := seedAirports(db, cfg.App.AirportCSVPath); err != nil {
		db.Close()
		cancel()
		return nil, err
	}

	client := trackerapi.NewClient(trackerapi.Config{
		APIKey:     cfg.App.Tracker.APIKey,
		PremiumURL: cfg.App.Tracker.PremiumURL,
		PublicURL:  cfg.App.Tracker.PublicURL,
		ChunkSize:  cfg.App.Tracker.ChunkSize,
	})

	aggregator := search.New(client, db.AircraftRepository())

	httpClient := &http.Client{Timeout: 15 * time.Second}
	resolver := routecache.New(routecache.Config{
		Routes:   db.RouteRepository(),
		Airports: db.AirportRepository(),
		Providers: []routecache.RouteProvider{
			&routecache.PrimaryProvider{BaseURL: cfg.App.Routes.PrimaryURL, HTTPClient: httpClient},
			&routecache.SecondaryProvider{BaseURL: cfg.App.Routes.SecondaryURL, HTTPClient: httpClient},
		},
		Freshness: time.Duration(cfg.App.Routes.FreshnessMinutes) * time.Minute,
		Retention: time.Duration(cfg.App.Routes.RetentionDays) * 24 * time.Hour,
	})

	sched := scheduler.New(ctx)
	sched.AddTask(tasks.NewRouteCleanup(resolver, 24*time.Hour))
	if len(cfg.Watches) > 0 {
		interval := time.Duration(cfg.App.WatchInterval) * time.Second
		sched.AddTask(tasks.NewWatchMonitor(aggregator, cfg.Notifier, cfg.Watches, interval))
	}

	return &Daemon{
		ctx:        ctx,
		cancel:     cancel,
		scheduler:  sched,
		db:         db,
		client:     client,
		aggregator: aggregator,
		resolver:   resolver,
	}, nil
}

// seedAirports loads the airport dataset on first run so cached routes can
// display names before any provider enrichment has arrived.
func seedAirports(db *database.DB, csvPath string) error {
	if csvPath == "" {
		return nil
	}

	airports := db.AirportRepository()
	populated, err := airports.IsPopulated()
	if err != nil {
		return fmt.Errorf("failed to check airports table: %w", err)
	}
	if populated {
		slog.Info("Airports table is already populated")
		return nil
	}

	slog.Info("Airports table is empty, loading seed dataset", "csv_path", csvPath)
	if err := airports.SeedFromCSV(csvPath, seedBatchSize); err != nil {
		return fmt.Errorf("failed to seed airports: %w", err)
	}
	slog.Info("Airport seed dataset loaded")
	return nil
}

// Start begins the scheduled tasks
func (d *Daemon) Start() error {
	slog.Info("Starting daemon")
	d.scheduler.Start()
	slog.Info("Daemon started successfully")
	return nil
}

// Stop gracefully stops the daemon
func (d *Daemon) Stop() error {
	slog.Info("Stopping daemon")
	d.cancel()
	d.scheduler.Stop()

	if err := d.db.Close(); err != nil {
		slog.Error("Error closing database", "error", err)
	}

	slog.Info("Daemon stopped")
	return nil
}

// Aggregator exposes the search aggregator for embedding callers.
func (d *Daemon) Aggregator() *search.Aggregator {
	return d.aggregator
}

// Routes exposes the route resolver for embedding callers.
func (d *Daemon) Routes() *routecache.Resolver {
	return d.resolver
}

// Tracker exposes the tracking client for embedding callers.
func (d *Daemon) Tracker() *trackerapi.Client {
	return d.client
}
