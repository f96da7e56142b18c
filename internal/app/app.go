package app

import (
	"context"
	"fmt"
	"log"
	"log/slog"

	"github.com/lcalzada-xor/netrisk/internal/adapters/cve"
	"github.com/lcalzada-xor/netrisk/internal/adapters/epss"
	"github.com/lcalzada-xor/netrisk/internal/adapters/storage"
	"github.com/lcalzada-xor/netrisk/internal/adapters/web"
	"github.com/lcalzada-xor/netrisk/internal/config"
	"github.com/lcalzada-xor/netrisk/internal/core/ports"
	"github.com/lcalzada-xor/netrisk/internal/core/services/enrich"
	"github.com/lcalzada-xor/netrisk/internal/core/services/ingest"
	"github.com/lcalzada-xor/netrisk/internal/core/services/scoring"
	"github.com/lcalzada-xor/netrisk/internal/telemetry"
)

// Application holds the core components of the pipeline. It acts as the
// facade wiring adapters into services and running the selected stages.
type Application struct {
	Config *config.Config

	Store     *storage.SQLiteAdapter
	Ingest    *ingest.Service
	Scorer    *scoring.Scorer
	WebServer *web.Server
}

// New creates a new Application instance and bootstraps its components.
func New(cfg *config.Config) (*Application, error) {
	app := &Application{Config: cfg}

	if err := app.bootstrap(); err != nil {
		return nil, fmt.Errorf("application bootstrap failed: %w", err)
	}

	return app, nil
}

func (app *Application) bootstrap() error {
	telemetry.InitMetrics()

	store, err := storage.NewSQLiteAdapter(app.Config.DBPath)
	if err != nil {
		return err
	}
	app.Store = store

	app.Ingest = ingest.NewService(store)

	calc, err := scoring.NewCalculator(scoring.DefaultConfig())
	if err != nil {
		return err
	}
	app.Scorer = scoring.NewScorer(calc, store)

	app.WebServer = web.NewServer(app.Config.Addr, store, store)

	slog.Info("Application bootstrapped",
		"db", app.Config.DBPath,
		"schema_version", storage.SchemaVersion)
	return nil
}

// Run executes the selected pipeline stages in ingest, match, merge, score,
// aggregate order, then optionally serves the reporting API. Every stage is
// idempotent, so a failed run is recovered by running again.
func (app *Application) Run(ctx context.Context) error {
	cfg := app.Config

	if cfg.Pipeline || cfg.IngestGlob != "" {
		if cfg.IngestGlob == "" {
			return fmt.Errorf("pipeline mode requires -ingest with a file glob")
		}
		summary, err := app.Ingest.IngestGlob(ctx, cfg.IngestGlob)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}
		slog.Info("Ingest complete",
			"files", summary.Files, "services", summary.Services,
			"skipped", summary.Skipped, "failures", summary.Failures)
	}

	if cfg.Pipeline || cfg.Match {
		if err := app.runMatch(ctx); err != nil {
			return fmt.Errorf("match: %w", err)
		}
	}

	if cfg.Pipeline || cfg.MergeEPSS {
		if err := app.runMerge(ctx); err != nil {
			return fmt.Errorf("epss merge: %w", err)
		}
	}

	if cfg.Pipeline || cfg.Score {
		summary, err := app.Scorer.Run(ctx, scoring.Options{
			Recompute: cfg.Recompute,
			DryRun:    cfg.DryRun,
			Limit:     cfg.Limit,
		})
		if err != nil {
			return fmt.Errorf("score: %w", err)
		}
		slog.Info("Scoring complete", "processed", summary.Processed, "updated", summary.Updated)
	}

	if cfg.Pipeline || cfg.Aggregate {
		if cfg.DryRun {
			log.Printf("[SCORE] Dry run: skipping aggregation")
		} else if err := app.Scorer.Aggregate(ctx); err != nil {
			return fmt.Errorf("aggregate: %w", err)
		}
	}

	if cfg.Serve {
		return app.WebServer.Run(ctx)
	}

	return nil
}

// runMatch opens the configured CVE lookup source for the duration of one
// matcher run. A seeded lookup database is preferred; otherwise the JSON
// cache file is loaded directly. A missing source is fatal for the
// invocation: matching never proceeds without a mapping.
func (app *Application) runMatch(ctx context.Context) error {
	var lookup ports.CVELookup
	var err error
	if app.Config.CVEDBPath != "" {
		lookup, err = cve.NewSQLiteRepository(app.Config.CVEDBPath)
	} else {
		lookup, err = cve.NewCacheLookup(app.Config.CVECachePath)
	}
	if err != nil {
		return err
	}
	defer lookup.Close()

	matcher := enrich.NewMatcher(app.Store, app.Store, lookup)
	summary, err := matcher.Run(ctx)
	if err != nil {
		return err
	}
	slog.Info("CVE match complete",
		"services", summary.ServicesProcessed,
		"skipped", summary.ServicesSkipped,
		"findings_attempted", summary.FindingsAttempted)
	return nil
}

// runMerge picks the likelihood source: the local cache when configured,
// the remote batched client otherwise.
func (app *Application) runMerge(ctx context.Context) error {
	var source ports.LikelihoodSource
	if app.Config.EPSSCache != "" {
		cacheSource, err := epss.NewCacheSource(app.Config.EPSSCache)
		if err != nil {
			return err
		}
		source = cacheSource
	} else {
		source = epss.NewClient(app.Config.EPSSEndpoint, app.Config.EPSSPause)
	}

	merger := enrich.NewMerger(app.Store, source)
	summary, err := merger.Run(ctx, app.Config.RefreshEPSS)
	if err != nil {
		return err
	}
	slog.Info("Likelihood merge complete",
		"cves", summary.CVEs, "matched", summary.Matched, "updated", summary.Updated)
	return nil
}

// Close releases the application's resources.
func (app *Application) Close() error {
	if app.Store != nil {
		return app.Store.Close()
	}
	return nil
}
