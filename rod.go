package reagentcrawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
)

// rodDriver launches a browser per proxy, since Chrome takes its proxy as a
// launch flag. Only the browser of the current identity is kept open.
type rodDriver struct {
	engine  *Engine
	filter  *ResourceFilter
	logger  Logger
	isLocal bool
	pool    *browserPool[*rod.Browser]
}

func newRodDriver(engine *Engine, filter *ResourceFilter, logger Logger, isLocal bool) *rodDriver {
	d := &rodDriver{
		engine:  engine,
		filter:  filter,
		logger:  logger,
		isLocal: isLocal,
	}
	d.pool = newBrowserPool(d.launch, logger)
	return d
}

func (d *rodDriver) launch(proxy Proxy) (*rod.Browser, error) {
	l := launcher.New().Headless(!d.isLocal).NoSandbox(!d.isLocal)
	if proxy.Server != "" {
		l = l.Set(flags.ProxyServer, proxy.Server)
	}
	for _, arg := range d.engine.Args {
		name, value, hasValue := strings.Cut(strings.TrimPrefix(arg, "--"), "=")
		if hasValue {
			l = l.Set(flags.Flag(name), value)
		} else {
			l = l.Set(flags.Flag(name))
		}
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}
	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect browser: %w", err)
	}
	if proxy.Username != "" && proxy.Password != "" {
		go func() {
			_ = browser.HandleAuth(proxy.Username, proxy.Password)()
		}()
	}
	d.logger.Debug("Launched browser for %s", Identity{Proxy: proxy})
	return browser, nil
}

func (d *rodDriver) NewSession(ctx context.Context, id Identity) (RenderSession, error) {
	browser, release, err := d.pool.acquire(id.Proxy)
	if err != nil {
		return nil, err
	}
	var page *rod.Page
	if d.engine.Stealth {
		page, err = stealth.Page(browser)
	} else {
		page, err = browser.Page(proto.TargetCreateTarget{})
	}
	if err != nil {
		_ = release()
		return nil, fmt.Errorf("failed to create page: %w", err)
	}
	page = page.Context(ctx)
	s := &rodSession{page: page, logger: d.logger, release: release}

	if err := page.SetUserAgent(&proto.NetworkSetUserAgentOverride{UserAgent: id.UserAgent}); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("error setting user agent: %w", err)
	}
	if vp := d.engine.Viewport; vp != nil {
		err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
			Width:             vp.Width,
			Height:            vp.Height,
			DeviceScaleFactor: 1,
		})
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("error setting viewport: %w", err)
		}
	}

	if d.filter != nil {
		router := page.HijackRequests()
		err := router.Add("*", "", func(h *rod.Hijack) {
			verdict := d.filter.Decide(ResourceRequest{
				Type:         strings.ToLower(string(h.Request.Type())),
				URL:          h.Request.URL().String(),
				IsNavigation: h.Request.Type() == proto.NetworkResourceTypeDocument && s.navigating.Load(),
			})
			if verdict == Block {
				h.Response.Fail(proto.NetworkErrorReasonBlockedByClient)
				return
			}
			h.ContinueRequest(&proto.FetchContinueRequest{})
		})
		if err != nil {
			_ = s.Close()
			return nil, fmt.Errorf("failed to set up request interception: %w", err)
		}
		go router.Run()
		s.router = router
	}
	return s, nil
}

func (d *rodDriver) Close() error {
	return d.pool.Close()
}

type rodSession struct {
	page       *rod.Page
	router     *rod.HijackRouter
	release    func() error
	logger     Logger
	navigating atomic.Bool
}

func (s *rodSession) Open(ctx context.Context, url string, opts NavigateOptions) error {
	page := s.page.Context(ctx)
	if opts.Timeout > 0 {
		page = page.Timeout(opts.Timeout)
		defer page.CancelTimeout()
	}
	s.navigating.Store(true)
	defer s.navigating.Store(false)

	e := proto.NetworkResponseReceived{}
	wait := page.WaitEvent(&e)
	if err := page.Navigate(url); err != nil {
		return newNavigationError(url, 0, err)
	}
	wait()
	if e.Response == nil {
		return newNavigationError(url, 0, errors.New("no response received"))
	}
	if !Ok(e.Response.Status) {
		return newNavigationError(url, e.Response.Status, errors.New(e.Response.StatusText))
	}
	if err := page.WaitLoad(); err != nil {
		return newNavigationError(url, 0, err)
	}
	return nil
}

func (s *rodSession) WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error) {
	el, err := s.page.Context(ctx).Timeout(timeout).Element(selector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrSelectorTimeout, selector, err)
	}
	return &rodElement{el: el.CancelTimeout()}, nil
}

func (s *rodSession) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	els, err := s.page.Context(ctx).Elements(selector)
	if err != nil {
		return nil, err
	}
	elements := make([]Element, 0, len(els))
	for _, el := range els {
		elements = append(elements, &rodElement{el: el})
	}
	return elements, nil
}

func (s *rodSession) Evaluate(ctx context.Context, script string) error {
	if _, err := s.page.Context(ctx).Eval(script); err != nil {
		return fmt.Errorf("%w: evaluate: %v", ErrInteraction, err)
	}
	return nil
}

func (s *rodSession) Document() (*goquery.Document, error) {
	html, err := s.page.HTML()
	if err != nil {
		return nil, err
	}
	return goquery.NewDocumentFromReader(strings.NewReader(html))
}

func (s *rodSession) HTML() string {
	html, err := s.page.HTML()
	if err != nil {
		s.logger.Debug("failed to get html from page: %v", err)
	}
	return html
}

func (s *rodSession) URL() string {
	info, err := s.page.Info()
	if err != nil {
		return ""
	}
	return info.URL
}

func (s *rodSession) Close() error {
	var errs []error
	if s.router != nil {
		errs = append(errs, s.router.Stop())
	}
	errs = append(errs, s.page.Context(context.Background()).Close())
	if s.release != nil {
		errs = append(errs, s.release())
	}
	return errors.Join(errs...)
}

type rodElement struct {
	el *rod.Element
}

func (e *rodElement) Text() (string, error) {
	return e.el.Text()
}

func (e *rodElement) Attribute(name string) (string, bool, error) {
	v, err := e.el.Attribute(name)
	if err != nil {
		return "", false, err
	}
	if v == nil {
		return "", false, nil
	}
	return *v, true, nil
}

func (e *rodElement) Click(ctx context.Context) error {
	if err := e.el.Context(ctx).Click(proto.InputMouseButtonLeft, 1); err != nil {
		return fmt.Errorf("%w: click: %v", ErrInteraction, err)
	}
	return nil
}
