package reagentcrawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/playwright-community/playwright-go"
)

type playwrightDriver struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	engine  *Engine
	filter  *ResourceFilter
	logger  Logger
}

// newPlaywrightDriver starts Playwright and launches one browser. Every
// session gets its own browser context so proxy and user agent stay per identity.
func newPlaywrightDriver(engine *Engine, filter *ResourceFilter, logger Logger, isLocal bool) (*playwrightDriver, error) {
	if engine.ForceInstallPlaywright || !isLocal {
		logger.Info("Force Installing Playwright!")
		if err := playwright.Install(); err != nil {
			return nil, err
		}
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("failed to start playwright: %w", err)
	}

	launchOptions := playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(!isLocal),
	}
	if len(engine.Args) > 0 {
		launchOptions.Args = engine.Args
	}

	var browser playwright.Browser
	switch engine.BrowserType {
	case "chromium", "":
		browser, err = pw.Chromium.Launch(launchOptions)
	case "firefox":
		browser, err = pw.Firefox.Launch(launchOptions)
	case "webkit":
		browser, err = pw.WebKit.Launch(launchOptions)
	default:
		err = fmt.Errorf("unsupported browser type: %s", engine.BrowserType)
	}
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	return &playwrightDriver{pw: pw, browser: browser, engine: engine, filter: filter, logger: logger}, nil
}

func (d *playwrightDriver) NewSession(ctx context.Context, id Identity) (RenderSession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	opts := playwright.BrowserNewContextOptions{
		UserAgent:         playwright.String(id.UserAgent),
		JavaScriptEnabled: playwright.Bool(true),
		ExtraHttpHeaders:  d.engine.Headers,
	}
	if d.engine.Viewport != nil {
		opts.Viewport = &playwright.Size{Width: d.engine.Viewport.Width, Height: d.engine.Viewport.Height}
	}
	if !id.IsDirect() {
		opts.Proxy = &playwright.Proxy{Server: id.Proxy.Server}
		if id.Proxy.Username != "" {
			opts.Proxy.Username = playwright.String(id.Proxy.Username)
			opts.Proxy.Password = playwright.String(id.Proxy.Password)
		}
	}
	browserContext, err := d.browser.NewContext(opts)
	if err != nil {
		return nil, fmt.Errorf("could not create new browser context: %w", err)
	}
	if d.engine.Stealth {
		if err := browserContext.AddInitScript(playwright.Script{Content: playwright.String(stealthScript)}); err != nil {
			_ = browserContext.Close()
			return nil, fmt.Errorf("failed to add stealth script: %w", err)
		}
	}
	page, err := browserContext.NewPage()
	if err != nil {
		_ = browserContext.Close()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}

	if d.filter != nil {
		mainFrame := page.MainFrame()
		err := page.Route("**/*", func(route playwright.Route) {
			req := route.Request()
			verdict := d.filter.Decide(ResourceRequest{
				Type:         req.ResourceType(),
				URL:          req.URL(),
				IsNavigation: req.IsNavigationRequest() && req.Frame() == mainFrame,
			})
			if verdict == Block {
				_ = route.Abort()
			} else {
				_ = route.Continue()
			}
		})
		if err != nil {
			_ = page.Close()
			_ = browserContext.Close()
			return nil, fmt.Errorf("failed to set up request interception: %w", err)
		}
	}

	return &playwrightSession{context: browserContext, page: page, logger: d.logger}, nil
}

func (d *playwrightDriver) Close() error {
	var errs []error
	if d.browser != nil {
		errs = append(errs, d.browser.Close())
	}
	if d.pw != nil {
		errs = append(errs, d.pw.Stop())
	}
	return errors.Join(errs...)
}

type playwrightSession struct {
	context playwright.BrowserContext
	page    playwright.Page
	logger  Logger
}

func (s *playwrightSession) Open(ctx context.Context, url string, opts NavigateOptions) error {
	if err := ctx.Err(); err != nil {
		return newNavigationError(url, 0, err)
	}
	gotoOptions := playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateDomcontentloaded,
	}
	if opts.Timeout > 0 {
		gotoOptions.Timeout = playwright.Float(float64(opts.Timeout.Milliseconds()))
	}
	res, err := s.page.Goto(url, gotoOptions)
	if err != nil {
		return newNavigationError(url, 0, err)
	}
	if res != nil && !Ok(res.Status()) {
		return newNavigationError(url, res.Status(), fmt.Errorf("%s", res.StatusText()))
	}
	return nil
}

func (s *playwrightSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handle, err := s.page.WaitForSelector(selector, playwright.PageWaitForSelectorOptions{
		State:   playwright.WaitForSelectorStateAttached,
		Timeout: playwright.Float(float64(timeout.Milliseconds())),
	})
	if err != nil || handle == nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSelectorTimeout, selector, err)
	}
	return &playwrightElement{handle: handle}, nil
}

func (s *playwrightSession) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	handles, err := s.page.QuerySelectorAll(selector)
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(handles))
	for _, h := range handles {
		elements = append(elements, &playwrightElement{handle: h})
	}
	return elements, nil
}

func (s *playwrightSession) Evaluate(ctx context.Context, script string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if _, err := s.page.Evaluate(script); err != nil {
		return fmt.Errorf("%w: evaluate: %v", ErrInteraction, err)
	}
	return nil
}

func (s *playwrightSession) Document() (*goquery.Document, error) {
	html, err := s.page.Content()
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (s *playwrightSession) HTML() string {
	html, err := s.page.Content()
	if err != nil {
		s.logger.Debug("failed to get html from page: %v", err)
	}
	return html
}

func (s *playwrightSession) URL() string {
	return s.page.URL()
}

func (s *playwrightSession) Close() error {
	return errors.Join(s.page.Close(), s.context.Close())
}

type playwrightElement struct {
	handle playwright.ElementHandle
}

func (e *playwrightElement) Text() (string, error) {
	return e.handle.InnerText()
}

func (e *playwrightElement) Attribute(name string) (string, bool, error) {
	v, err := e.handle.GetAttribute(name)
	if err != nil {
		return "", false, err
	}
	return v, v != "", nil
}

func (e *playwrightElement) Click(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := e.handle.Click(); err != nil {
		return fmt.Errorf("%w: click: %v", ErrInteraction, err)
	}
	return nil
}

func Ok(status int) bool {
	return status == 0 || (status >= 200 && status <= 299)
}
