package reagentcrawler

import (
	"sync"
	"sync/atomic"
	"time"
)

const (
	WarningListing    = "listing"
	WarningDetail   = "detail"
	WarningIdentity = "identity"
	WarningRobots   = "robots"
)

// CrawlWarning records a page the crawl gave up on.
type CrawlWarning struct {
	Site      string    `datastore:"site"`
	RunID     string    `datastore:"run_id"`
	Kind      string    `datastore:"kind"`
	URL       string    `datastore:"url"`
	Message   string    `datastore:"message,noindex"`
	CreatedAt time.Time `datastore:"created_at"`
}

// CrawlStats counts what a site crawl did.
type CrawlStats struct {
	ListingPages int64
	DetailPages  int64
	Products     int64
	Duplicates   int64
	Skipped      int64
	CapReached   int64
	Emitted      int64
	SinkFailures int64
	Rotations    int
	Duration     time.Duration
}

type crawlAudit struct {
	site  string
	runID string

	listingPages atomic.Int64
	detailPages  atomic.Int64
	products     atomic.Int64
	duplicates   atomic.Int64
	skipped      atomic.Int64
	capReached   atomic.Int64

	mu       sync.Mutex
	warnings []CrawlWarning
}

func newCrawlAudit(site, runID string) *crawlAudit {
	return &crawlAudit{site: site, runID: runID}
}

func (a *crawlAudit) warn(kind, url string, err error) {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.warnings = append(a.warnings, CrawlWarning{
		Site:      a.site,
		RunID:     a.runID,
		Kind:      kind,
		URL:       url,
		Message:   msg,
		CreatedAt: time.Now(),
	})
}

func (a *crawlAudit) Warnings() []CrawlWarning {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]CrawlWarning, len(a.warnings))
	copy(out, a.warnings)
	return out
}

func (a *crawlAudit) stats() CrawlStats {
	return CrawlStats{
		ListingPages: a.listingPages.Load(),
		DetailPages:  a.detailPages.Load(),
		Products:     a.products.Load(),
		Duplicates:   a.duplicates.Load(),
		Skipped:      a.skipped.Load(),
		CapReached:   a.capReached.Load(),
	}
}
