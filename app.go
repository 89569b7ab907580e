package reagentcrawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/temoto/robotstxt"
	"golang.org/x/sync/semaphore"

	"github.com/lazuli-inc/reagentcrawler/workbook"
)

const (
	SinkCsv      = "csv"
	SinkMongo    = "mongo"
	SinkBigQuery = "bigquery"
)

// Crawler runs one site: listing traversal, product discovery and detail
// extraction, emitting one item per product.
type Crawler struct {
	Config *configService
	Name   string
	Logger Logger

	target     TraversalPolicy
	listing    ListingRecipe
	extraction ExtractionRecipe
	preference AppPreference

	engine   *Engine
	driver   Driver
	filter   *ResourceFilter
	throttle *Throttle
	rotator  *IdentityRotator
	provider IdentityProvider
	emitter  *Emitter
	sinks    []Sink
	csv      *csvSink
	audit    *crawlAudit
	fetches  *semaphore.Weighted

	robotsData *robotstxt.RobotsData
	isLocalEnv bool
	runID      string
	columns    []string

	seenMu sync.Mutex
	seen   map[string]struct{}
}

// NewCrawler builds a site crawler from its descriptor, applying .env overrides.
func NewCrawler(cfg CrawlerConfig) (*Crawler, error) {
	config := newConfig()
	return newCrawler(cfg, config, newDefaultLogger(cfg.Name, config))
}

func newCrawler(cfg CrawlerConfig, config *configService, logger Logger) (*Crawler, error) {
	if cfg.Name == "" {
		return nil, fmt.Errorf("crawler name is required")
	}
	if err := cfg.Traversal.validate(); err != nil {
		return nil, fmt.Errorf("crawler %s: %w", cfg.Name, err)
	}
	engine := getDefaultEngine()
	overrideEngineDefaults(&engine, &cfg.Engine)
	if err := config.applyConfig(cfg.Name, &engine); err != nil {
		return nil, err
	}

	runID := uuid.NewString()
	app := &Crawler{
		Config:     config,
		Name:       cfg.Name,
		Logger:     logger,
		target:     cfg.Traversal,
		listing:    cfg.Listing,
		extraction: cfg.Extraction,
		preference: cfg.Preference,
		engine:     &engine,
		filter:     newEngineFilter(engine),
		throttle:   newThrottle(engine),
		provider:   newIdentityProvider(engine),
		audit:      newCrawlAudit(cfg.Name, runID),
		isLocalEnv: isLocalEnv(config.EnvString("APP_ENV")),
		runID:      runID,
		columns:    itemColumns(cfg.Listing, cfg.Extraction),
		seen:       make(map[string]struct{}),
	}
	return app, nil
}

// SetDriver replaces the render driver, e.g. with an already launched browser.
func (app *Crawler) SetDriver(driver Driver) *Crawler {
	app.driver = driver
	return app
}

func (app *Crawler) SetIdentityProvider(provider IdentityProvider) *Crawler {
	app.provider = provider
	return app
}

// AddSink registers an extra sink next to the configured ones.
func (app *Crawler) AddSink(sink Sink) *Crawler {
	app.sinks = append(app.sinks, sink)
	return app
}

func (app *Crawler) Columns() []string {
	return append([]string(nil), app.columns...)
}

func (app *Crawler) RunID() string {
	return app.runID
}

// configuredSinks opens the sinks named in SINKS. The CSV sink is always present.
func (app *Crawler) configuredSinks(ctx context.Context) []Sink {
	app.csv = newCsvSink(generateCsvFileName(app.Name), app.columns)
	app.csv.uploader = func(path string) { uploadToBucket(app, path) }
	sinks := []Sink{app.csv}

	for _, name := range app.Config.GetStringList("SINKS") {
		switch strings.ToLower(name) {
		case SinkCsv:
		case SinkMongo:
			sink, err := newMongoSink(ctx, app.Config, app.Name)
			if err != nil {
				app.Logger.Error("Mongo sink disabled: %v", err)
				continue
			}
			sinks = append(sinks, sink)
		case SinkBigQuery:
			sink, err := newBigQuerySink(ctx, app.Config)
			if err != nil {
				app.Logger.Error("BigQuery sink disabled: %v", err)
				continue
			}
			sinks = append(sinks, sink)
		default:
			app.Logger.Warn("Unknown sink %q ignored", name)
		}
	}
	return append(sinks, app.sinks...)
}

// Start crawls the site and returns its items as a sheet in discovery order.
func (app *Crawler) Start(ctx context.Context) (workbook.Sheet, error) {
	startTime := time.Now()
	app.Logger.Info("Crawler Started! 🚀")
	defer app.Stop()

	app.bootstrap(ctx)
	if app.driver == nil {
		driver, err := newDriver(app)
		if err != nil {
			return workbook.Sheet{}, fmt.Errorf("failed to start %s driver: %w", app.engine.Adapter, err)
		}
		app.driver = driver
	}
	app.rotator = NewIdentityRotator(app.provider, app.engine.RotateEvery, app.engine.MaxProxyFetchAttempts, app.engine.UserAgents, app.Logger).
		OnExhausted(func(err error) { app.audit.warn(WarningIdentity, "", err) })
	app.fetches = semaphore.NewWeighted(int64(max(app.engine.ConcurrentLimit, 1)))
	app.emitter = NewEmitter(app.Logger, app.configuredSinks(ctx)...)

	crawlErr := app.traverse(ctx)

	closeCtx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	if err := app.emitter.Close(closeCtx); err != nil {
		app.Logger.Error("Failed to close sinks: %v", err)
	}
	if app.Config.GetBool("AUDIT_DATASTORE") {
		if err := app.flushWarnings(closeCtx); err != nil {
			app.Logger.Error("Failed to store crawl warnings: %v", err)
		}
	}

	stats := app.Stats()
	stats.Duration = time.Since(startTime)
	app.logSummary(stats)

	sheet := app.csv.Sheet(app.Name)
	if crawlErr != nil && !errors.Is(crawlErr, context.Canceled) {
		return sheet, crawlErr
	}
	return sheet, ctx.Err()
}

// Stop releases the render driver.
func (app *Crawler) Stop() {
	defer func() {
		if r := recover(); r != nil {
			app.Logger.Error("Recovered in Stop: %v", r)
		}
	}()
	if app.driver != nil {
		if err := app.driver.Close(); err != nil {
			app.Logger.Error("Failed to close driver: %v", err)
		}
	}
	if l, ok := app.Logger.(*defaultLogger); ok {
		l.Close()
	}
}

// Stats reports counters of the current or finished crawl.
func (app *Crawler) Stats() CrawlStats {
	stats := app.audit.stats()
	if app.emitter != nil {
		stats.Emitted = app.emitter.Accepted()
		stats.SinkFailures = app.emitter.Failures()
	}
	if app.rotator != nil {
		stats.Rotations = app.rotator.Rotations()
	}
	return stats
}

func (app *Crawler) Warnings() []CrawlWarning {
	return app.audit.Warnings()
}

func (app *Crawler) logSummary(stats CrawlStats) {
	app.Logger.Summary("Listing pages: %d, detail pages: %d", stats.ListingPages, stats.DetailPages)
	app.Logger.Summary("Products found: %d (duplicates %d), skipped: %d", stats.Products, stats.Duplicates, stats.Skipped)
	app.Logger.Summary("Items emitted: %d, sink failures: %d", stats.Emitted, stats.SinkFailures)
	if stats.CapReached > 0 {
		app.Logger.Summary("Partitions stopped at page cap: %d", stats.CapReached)
	}
	if stats.Rotations > 0 {
		app.Logger.Summary("Identity rotations: %d", stats.Rotations)
	}
	if n := len(app.audit.Warnings()); n > 0 {
		app.Logger.Summary("Warnings: %d", n)
	}
	app.Logger.Info("Crawler stopped in ⚡ %v", stats.Duration)
}
