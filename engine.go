package reagentcrawler

import (
	"time"
)

const (
	AdapterPlaywright = "playwright"
	AdapterRod        = "rod"
	AdapterHttp       = "http"
)

// Engine holds every tunable knob of a site crawl. Zero values in a site
// descriptor mean "keep the default".
type Engine struct {
	Adapter                string // playwright, rod, http
	BrowserType            string
	ForceInstallPlaywright bool
	ConcurrentLimit        int
	PartitionConcurrency   int
	DownloadDelay          time.Duration
	RandomizeDelay         bool
	AutoThrottle           AutoThrottle
	PageCap                int
	DevCrawlLimit          int
	BlockResources         bool
	BlockedResourceTypes   []string
	BlockedURLs            []string
	BlockedExtensions      []string
	ProxyServers           []Proxy
	ProxyProvider          string
	RotateEvery            int
	MaxProxyFetchAttempts  int
	MaxRetryAttempts       int
	ErrorCodes             []int
	Timeout                time.Duration
	SelectorTimeout        time.Duration
	UserAgents             []string
	Headers                map[string]string
	Stealth                bool
	Viewport               *Viewport
	Args                   []string
	StoreHtml              bool
}

func (app *Crawler) SetConcurrentLimit(concurrentLimit int) *Crawler {
	app.engine.ConcurrentLimit = concurrentLimit
	return app
}

func (app *Crawler) SetPageCap(pageCap int) *Crawler {
	app.engine.PageCap = pageCap
	return app
}

func (app *Crawler) SetCrawlLimit(crawlLimit int) *Crawler {
	app.engine.DevCrawlLimit = crawlLimit
	return app
}

func (app *Crawler) SetDownloadDelay(delay time.Duration) *Crawler {
	app.engine.DownloadDelay = delay
	app.throttle = newThrottle(*app.engine)
	return app
}

func (app *Crawler) SetTimeout(timeout time.Duration) *Crawler {
	app.engine.Timeout = timeout
	return app
}

func (app *Crawler) SetSelectorTimeout(timeout time.Duration) *Crawler {
	app.engine.SelectorTimeout = timeout
	return app
}

func getDefaultEngine() Engine {
	return Engine{
		Adapter:              AdapterPlaywright,
		BrowserType:          "chromium",
		ConcurrentLimit:      1,
		PartitionConcurrency: 1,
		PageCap:              100,
		DevCrawlLimit:        50,
		BlockResources:       true,
		BlockedResourceTypes: []string{"image", "font", "media"},
		BlockedURLs: []string{
			"www.googletagmanager.com",
			"google-analytics.com",
			"doubleclick.net",
		},
		RotateEvery:           50,
		MaxProxyFetchAttempts: 3,
		MaxRetryAttempts:      3,
		ErrorCodes:            []int{429, 1015},
		Timeout:               60 * time.Second,
		SelectorTimeout:       10 * time.Second,
		UserAgents:            []string{defaultUserAgent},
		Headers:               map[string]string{"Accept-Language": "en"},
	}
}

func overrideEngineDefaults(defaultEngine *Engine, eng *Engine) {
	if eng.Adapter != "" {
		defaultEngine.Adapter = eng.Adapter
	}
	if eng.BrowserType != "" {
		defaultEngine.BrowserType = eng.BrowserType
	}
	if eng.ForceInstallPlaywright {
		defaultEngine.ForceInstallPlaywright = true
	}
	if eng.ConcurrentLimit > 0 {
		defaultEngine.ConcurrentLimit = eng.ConcurrentLimit
	}
	if eng.PartitionConcurrency > 0 {
		defaultEngine.PartitionConcurrency = eng.PartitionConcurrency
	}
	if eng.DownloadDelay > 0 {
		defaultEngine.DownloadDelay = eng.DownloadDelay
	}
	if eng.RandomizeDelay {
		defaultEngine.RandomizeDelay = true
	}
	if eng.AutoThrottle.Enabled {
		defaultEngine.AutoThrottle = eng.AutoThrottle
	}
	if eng.PageCap > 0 {
		defaultEngine.PageCap = eng.PageCap
	}
	if eng.DevCrawlLimit > 0 {
		defaultEngine.DevCrawlLimit = eng.DevCrawlLimit
	}
	if eng.BlockResources {
		defaultEngine.BlockResources = true
	}
	if len(eng.BlockedResourceTypes) > 0 {
		defaultEngine.BlockedResourceTypes = eng.BlockedResourceTypes
	}
	if len(eng.BlockedExtensions) > 0 {
		defaultEngine.BlockedExtensions = eng.BlockedExtensions
	}
	if len(eng.ProxyServers) > 0 {
		defaultEngine.ProxyServers = eng.ProxyServers
	}
	if eng.ProxyProvider != "" {
		defaultEngine.ProxyProvider = eng.ProxyProvider
	}
	if eng.RotateEvery > 0 {
		defaultEngine.RotateEvery = eng.RotateEvery
	}
	if eng.MaxProxyFetchAttempts > 0 {
		defaultEngine.MaxProxyFetchAttempts = eng.MaxProxyFetchAttempts
	}
	if eng.MaxRetryAttempts > 0 {
		defaultEngine.MaxRetryAttempts = eng.MaxRetryAttempts
	}
	if len(eng.ErrorCodes) > 0 {
		defaultEngine.ErrorCodes = eng.ErrorCodes
	}
	if eng.Timeout > 0 {
		defaultEngine.Timeout = eng.Timeout
	}
	if eng.SelectorTimeout > 0 {
		defaultEngine.SelectorTimeout = eng.SelectorTimeout
	}
	if len(eng.UserAgents) > 0 {
		defaultEngine.UserAgents = eng.UserAgents
	}
	for k, v := range eng.Headers {
		defaultEngine.Headers[k] = v
	}
	if eng.Stealth {
		defaultEngine.Stealth = true
	}
	if eng.Viewport != nil {
		defaultEngine.Viewport = eng.Viewport
	}
	if len(eng.Args) > 0 {
		defaultEngine.Args = eng.Args
	}
	if eng.StoreHtml {
		defaultEngine.StoreHtml = true
	}
	defaultEngine.BlockedURLs = append(defaultEngine.BlockedURLs, eng.BlockedURLs...)
}

func (e *Engine) userAgent() string {
	if len(e.UserAgents) > 0 && e.UserAgents[0] != "" {
		return e.UserAgents[0]
	}
	return defaultUserAgent
}
