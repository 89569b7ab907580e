package reagentcrawler

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/lazuli-inc/reagentcrawler/workbook"
)

// CrawlerConfig describes one vendor: where its listings live, how products
// are found on them and which fields are read from each detail page.
type CrawlerConfig struct {
	Name       string
	Traversal  TraversalPolicy
	Listing    ListingRecipe
	Extraction ExtractionRecipe
	Engine     Engine
	Preference AppPreference
}

// SiteResult is the outcome of one site crawl.
type SiteResult struct {
	Site     string
	Sheet    workbook.Sheet
	Stats    CrawlStats
	Warnings []CrawlWarning
	Err      error
}

// workbookLogName names the log directory of the consolidation step.
const workbookLogName = "workbook"

type ReagentCrawler struct {
	Config []CrawlerConfig
	config *configService
}

func NewReagentCrawler() *ReagentCrawler {
	return &ReagentCrawler{config: newConfig()}
}

func (rc *ReagentCrawler) AddSite(config CrawlerConfig) *ReagentCrawler {
	rc.Config = append(rc.Config, config)
	return rc
}

// Start crawls every site concurrently. One site failing never stops the
// others. When OUTPUT_WORKBOOK is set the sheets are consolidated into it.
func (rc *ReagentCrawler) Start(ctx context.Context) []SiteResult {
	results := make([]SiteResult, len(rc.Config))
	var wg sync.WaitGroup
	for i, cfg := range rc.Config {
		i, cfg := i, cfg
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i] = rc.run(ctx, cfg)
		}()
	}
	wg.Wait()

	if path := rc.config.EnvString("OUTPUT_WORKBOOK"); path != "" {
		if err := writeWorkbook(path, results); err != nil {
			logger := newDefaultLogger(workbookLogName, rc.config)
			logger.Error("Failed to write workbook %s: %v", path, err)
			logger.Close()
		}
	}
	return results
}

func (rc *ReagentCrawler) run(ctx context.Context, cfg CrawlerConfig) (result SiteResult) {
	result.Site = cfg.Name
	defer func() {
		if r := recover(); r != nil {
			result.Err = fmt.Errorf("crawler %s panicked: %v", cfg.Name, r)
		}
	}()

	app, err := newCrawler(cfg, rc.config, newDefaultLogger(cfg.Name, rc.config))
	if err != nil {
		result.Err = err
		return result
	}
	result.Sheet, result.Err = app.Start(ctx)
	result.Stats = app.Stats()
	result.Warnings = app.Warnings()
	return result
}

// writeWorkbook writes one sheet per site, ordered by site name.
func writeWorkbook(path string, results []SiteResult) error {
	var sheets []workbook.Sheet
	for _, r := range results {
		if len(r.Sheet.Rows) == 0 {
			continue
		}
		sheets = append(sheets, r.Sheet)
	}
	if len(sheets) == 0 {
		return nil
	}
	sort.Slice(sheets, func(i, j int) bool { return sheets[i].Name < sheets[j].Name })
	return workbook.Write(path, sheets)
}
