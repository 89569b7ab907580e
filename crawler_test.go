package reagentcrawler

import (
	"context"
	"encoding/csv"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// catalogServer serves a fake vendor catalogue: listing pages under /list
// and product pages under /p/<id>.
type catalogServer struct {
	mu      sync.Mutex
	hits    map[string]int
	listing func(page int) (int, string)
	detail  func(id string, hit int) (int, string)
}

func newCatalogServer(t *testing.T, listing func(page int) (int, string)) (*catalogServer, *httptest.Server) {
	t.Helper()
	c := &catalogServer{
		hits:    map[string]int{},
		listing: listing,
		detail: func(id string, _ int) (int, string) {
			return http.StatusOK, detailHTML(id)
		},
	}
	srv := httptest.NewServer(c)
	t.Cleanup(srv.Close)
	return c, srv
}

func (c *catalogServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	c.mu.Lock()
	c.hits[r.URL.RequestURI()]++
	hit := c.hits[r.URL.RequestURI()]
	c.mu.Unlock()

	var status int
	var body string
	switch {
	case r.URL.Path == "/list":
		page, _ := strconv.Atoi(r.URL.Query().Get("page"))
		status, body = c.listing(page)
	case strings.HasPrefix(r.URL.Path, "/p/"):
		status, body = c.detail(strings.TrimPrefix(r.URL.Path, "/p/"), hit)
	default:
		status, body = http.StatusNotFound, "not found"
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(body))
}

func (c *catalogServer) count(prefix string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for uri, hits := range c.hits {
		if strings.HasPrefix(uri, prefix) {
			n += hits
		}
	}
	return n
}

func (c *catalogServer) hitsFor(uri string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.hits[uri]
}

func listingHTML(ids ...string) string {
	var b strings.Builder
	b.WriteString("<html><body><div class=\"results\">")
	for _, id := range ids {
		fmt.Fprintf(&b, `<div class="card"><a class="product" href="/p/%s">Product %s</a></div>`, id, id)
	}
	b.WriteString("</div></body></html>")
	return b.String()
}

func detailHTML(id string) string {
	return fmt.Sprintf(`<html><body><h1>Protein %s</h1>
		<table><tr><td>Purity</td><td>&gt;95%%</td></tr></table></body></html>`, id)
}

func pagesOf(pages map[int][]string) func(int) (int, string) {
	return func(page int) (int, string) {
		return http.StatusOK, listingHTML(pages[page]...)
	}
}

func catalogConfig(srv *httptest.Server) CrawlerConfig {
	return CrawlerConfig{
		Name:      "vendor",
		Traversal: TraversalPolicy{Kind: PageQuery, StartURL: srv.URL + "/list"},
		Listing:   ListingRecipe{LinkSelector: "a.product"},
		Extraction: ExtractionRecipe{Fields: []FieldRecipe{
			{Name: "name", Selector: "h1"},
			{Name: "purity", Label: "Purity"},
		}},
		Engine: Engine{Adapter: AdapterHttp, PageCap: 5, ConcurrentLimit: 2},
	}
}

func newTestCrawler(t *testing.T, cfg CrawlerConfig, values map[string]string) *Crawler {
	t.Helper()
	chdirTemp(t)
	app, err := newCrawler(cfg, testConfig(values), testLogger(cfg.Name))
	require.NoError(t, err)
	return app
}

func TestCrawlerEndToEnd(t *testing.T) {
	catalog, srv := newCatalogServer(t, pagesOf(map[int][]string{1: {"1", "2", "3"}}))
	app := newTestCrawler(t, catalogConfig(srv), nil)

	sheet, err := app.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, catalog.count("/list"))
	assert.Equal(t, 3, catalog.count("/p/"))

	require.Len(t, sheet.Rows, 4)
	assert.Equal(t, "vendor", sheet.Name)
	assert.Equal(t, []string{"name", "catalog_no", "purity", "url"}, sheet.Rows[0])
	assert.Equal(t, []string{"Protein 1", DefaultValue, ">95%", srv.URL + "/p/1"}, sheet.Rows[1])
	assert.Equal(t, srv.URL+"/p/3", sheet.Rows[3][3])

	stats := app.Stats()
	assert.EqualValues(t, 2, stats.ListingPages)
	assert.EqualValues(t, 3, stats.DetailPages)
	assert.EqualValues(t, 3, stats.Emitted)
	assert.Empty(t, app.Warnings())

	f, err := os.Open(filepath.Join("storage", "data", "vendor", "vendor.csv"))
	require.NoError(t, err)
	defer f.Close()
	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	assert.Equal(t, sheet.Rows, records)
}

func TestCrawlerPageCap(t *testing.T) {
	catalog, srv := newCatalogServer(t, func(page int) (int, string) {
		return http.StatusOK, listingHTML(strconv.Itoa(page))
	})
	cfg := catalogConfig(srv)
	cfg.Engine.PageCap = 2
	app := newTestCrawler(t, cfg, nil)

	sheet, err := app.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, catalog.count("/list"))
	assert.Zero(t, catalog.hitsFor("/list?page=3"))
	assert.Len(t, sheet.Rows, 3)

	assert.Empty(t, app.Warnings())
	assert.EqualValues(t, 1, app.Stats().CapReached)
}

func TestCrawlerListingFailureEndsPartition(t *testing.T) {
	catalog, srv := newCatalogServer(t, func(page int) (int, string) {
		if page == 2 {
			return http.StatusInternalServerError, "boom"
		}
		return http.StatusOK, listingHTML("a", "b")
	})
	app := newTestCrawler(t, catalogConfig(srv), nil)

	sheet, err := app.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, catalog.hitsFor("/list?page=2"))
	assert.Zero(t, catalog.hitsFor("/list?page=3"))
	assert.Len(t, sheet.Rows, 3)

	warnings := app.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, WarningListing, warnings[0].Kind)
	assert.Contains(t, warnings[0].Message, "500")
}

func TestCrawlerSkipsFailedDetail(t *testing.T) {
	catalog, srv := newCatalogServer(t, pagesOf(map[int][]string{1: {"1", "2", "3"}}))
	catalog.detail = func(id string, _ int) (int, string) {
		if id == "2" {
			return http.StatusNotFound, "gone"
		}
		return http.StatusOK, detailHTML(id)
	}
	app := newTestCrawler(t, catalogConfig(srv), nil)

	sheet, err := app.Start(context.Background())
	require.NoError(t, err)

	require.Len(t, sheet.Rows, 3)
	assert.Equal(t, srv.URL+"/p/1", sheet.Rows[1][3])
	assert.Equal(t, srv.URL+"/p/3", sheet.Rows[2][3])
	assert.Equal(t, 1, catalog.hitsFor("/p/2"))

	stats := app.Stats()
	assert.EqualValues(t, 1, stats.Skipped)
	warnings := app.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, WarningDetail, warnings[0].Kind)
	assert.Equal(t, srv.URL+"/p/2", warnings[0].URL)
}

func TestCrawlerRetriesRetryableStatus(t *testing.T) {
	catalog, srv := newCatalogServer(t, pagesOf(map[int][]string{1: {"1", "2"}}))
	catalog.detail = func(id string, hit int) (int, string) {
		switch {
		case id == "1" && hit == 1:
			return http.StatusTooManyRequests, "slow down"
		case id == "2":
			return http.StatusTooManyRequests, "slow down"
		}
		return http.StatusOK, detailHTML(id)
	}
	cfg := catalogConfig(srv)
	cfg.Engine.ErrorCodes = []int{429}
	cfg.Engine.MaxRetryAttempts = 2
	app := newTestCrawler(t, cfg, nil)

	sheet, err := app.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, catalog.hitsFor("/p/1"))
	assert.Equal(t, 3, catalog.hitsFor("/p/2"))
	require.Len(t, sheet.Rows, 2)
	assert.Equal(t, "Protein 1", sheet.Rows[1][0])
}

func TestCrawlerDeduplicatesAcrossPages(t *testing.T) {
	catalog, srv := newCatalogServer(t, pagesOf(map[int][]string{
		1: {"1", "2"},
		2: {"2", "3", "1"},
	}))
	app := newTestCrawler(t, catalogConfig(srv), nil)

	sheet, err := app.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, catalog.count("/p/"))
	assert.Len(t, sheet.Rows, 4)
	stats := app.Stats()
	assert.EqualValues(t, 3, stats.Products)
	assert.EqualValues(t, 2, stats.Duplicates)
}

func TestCrawlerDevLimit(t *testing.T) {
	catalog, srv := newCatalogServer(t, func(page int) (int, string) {
		return http.StatusOK, listingHTML(fmt.Sprintf("%d-a", page), fmt.Sprintf("%d-b", page))
	})
	cfg := catalogConfig(srv)
	cfg.Engine.DevCrawlLimit = 3
	app := newTestCrawler(t, cfg, map[string]string{"APP_ENV": "local"})

	sheet, err := app.Start(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 3, catalog.count("/p/"))
	assert.Len(t, sheet.Rows, 4)
	assert.Equal(t, 2, catalog.count("/list"))
}

func TestCrawlerPartitions(t *testing.T) {
	c := &catalogServer{hits: map[string]int{}}
	c.detail = func(id string, _ int) (int, string) { return http.StatusOK, detailHTML(id) }
	mux := http.NewServeMux()
	mux.HandleFunc("/list/", func(w http.ResponseWriter, r *http.Request) {
		c.mu.Lock()
		c.hits[r.URL.RequestURI()]++
		c.mu.Unlock()
		parts := strings.Split(strings.Trim(r.URL.Path, "/"), "/")
		letter, page := parts[1], strings.TrimSuffix(parts[2], ".html")
		if page != "1" {
			_, _ = w.Write([]byte(listingHTML()))
			return
		}
		_, _ = w.Write([]byte(listingHTML(letter + "1")))
	})
	mux.Handle("/p/", c)
	srv := httptest.NewServer(mux)
	defer srv.Close()

	cfg := catalogConfig(srv)
	cfg.Traversal = TraversalPolicy{
		Kind:       PageTemplate,
		Template:   srv.URL + "/list/{partition}/{page}.html",
		Partitions: []string{"B", "A"},
	}
	cfg.Engine.PartitionConcurrency = 2
	app := newTestCrawler(t, cfg, nil)

	sheet, err := app.Start(context.Background())
	require.NoError(t, err)

	require.Len(t, sheet.Rows, 3)
	// Rows follow partition order, not completion order.
	assert.Equal(t, srv.URL+"/p/B1", sheet.Rows[1][3])
	assert.Equal(t, srv.URL+"/p/A1", sheet.Rows[2][3])
	assert.Equal(t, 4, c.count("/list/"))
}

func TestCrawlerCancelled(t *testing.T) {
	_, srv := newCatalogServer(t, pagesOf(map[int][]string{1: {"1"}}))
	app := newTestCrawler(t, catalogConfig(srv), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := app.Start(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestCrawlerRobotsDisallow(t *testing.T) {
	catalog, _ := newCatalogServer(t, pagesOf(map[int][]string{1: {"1", "2"}}))
	robots := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = w.Write([]byte("User-agent: *\nDisallow: /p/2\n"))
			return
		}
		catalog.ServeHTTP(w, r)
	}))
	defer robots.Close()

	cfg := catalogConfig(robots)
	cfg.Preference.CheckRobotsTxt = true
	app := newTestCrawler(t, cfg, nil)

	sheet, err := app.Start(context.Background())
	require.NoError(t, err)

	assert.Len(t, sheet.Rows, 2)
	assert.Zero(t, catalog.hitsFor("/p/2"))
	warnings := app.Warnings()
	require.Len(t, warnings, 1)
	assert.Equal(t, WarningRobots, warnings[0].Kind)
}

func TestNewCrawlerRequiresName(t *testing.T) {
	_, err := newCrawler(CrawlerConfig{}, testConfig(nil), testLogger("x"))
	assert.Error(t, err)
}

func TestNewCrawlerRejectsCursorWithoutPageParam(t *testing.T) {
	cfg := CrawlerConfig{
		Name:      "vendor",
		Traversal: TraversalPolicy{Kind: Cursor, StartURL: "https://vendor.test/list", NextSelector: "a.next"},
	}
	_, err := newCrawler(cfg, testConfig(nil), testLogger("vendor"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "page param")

	cfg.Traversal.PageParam = "page"
	_, err = newCrawler(cfg, testConfig(nil), testLogger("vendor"))
	assert.NoError(t, err)
}

func TestConfiguredSinks(t *testing.T) {
	cfg := CrawlerConfig{Name: "vendor", Traversal: TraversalPolicy{StartURL: "https://vendor.test/list"}}
	app, err := newCrawler(cfg, testConfig(map[string]string{"SINKS": " CSV , ledger"}), testLogger("vendor"))
	require.NoError(t, err)
	extra := &recordingSink{}
	app.AddSink(extra)

	sinks := app.configuredSinks(context.Background())
	require.Len(t, sinks, 2)
	assert.Equal(t, "csv", sinks[0].Name())
	assert.Same(t, extra, sinks[1])
}
