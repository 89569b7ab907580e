package reagentcrawler

import (
	"context"
	"net/http"
	"net/url"
	"time"

	"github.com/temoto/robotstxt"
)

func (app *Crawler) bootstrap(ctx context.Context) {
	if app.preference.CheckRobotsTxt {
		app.checkRobotsTxt(ctx)
	}
}

func (app *Crawler) checkRobotsTxt(ctx context.Context) {
	baseURL := getBaseUrl(newPager(app.target).first(app.target.partitions()[0]))
	if baseURL == "" {
		return
	}
	app.Logger.Info("Checking robots.txt")
	app.robotsData = fetchRobotsTxt(ctx, baseURL, app.engine.userAgent())
}

// fetchRobotsTxt returns nil when robots.txt is unavailable, which allows everything.
func fetchRobotsTxt(ctx context.Context, baseURL, userAgent string) *robotstxt.RobotsData {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+"/robots.txt", nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", userAgent)
	response, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil
	}
	defer response.Body.Close()
	if response.StatusCode != http.StatusOK {
		return nil
	}
	robotsData, err := robotstxt.FromResponse(response)
	if err != nil {
		return nil
	}
	return robotsData
}

// allowed reports whether robots.txt lets the crawler fetch rawURL.
func (app *Crawler) allowed(rawURL string) bool {
	if app.robotsData == nil {
		return true
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return true
	}
	path := u.EscapedPath()
	if u.RawQuery != "" {
		path += "?" + u.RawQuery
	}
	return app.robotsData.TestAgent(path, app.engine.userAgent())
}
