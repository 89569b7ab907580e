package reagentcrawler

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

// httpDriver renders pages without a browser. It suits catalogues that
// serve their listings server-side; interactions are not supported.
type httpDriver struct {
	engine *Engine
}

func newHttpDriver(engine *Engine) *httpDriver {
	return &httpDriver{engine: engine}
}

func (d *httpDriver) NewSession(_ context.Context, id Identity) (RenderSession, error) {
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   60 * time.Second,
			KeepAlive: 60 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout: 60 * time.Second,
	}
	if !id.IsDirect() {
		proxyURL, err := url.Parse(ensureScheme(id.Proxy.Server))
		if err != nil {
			return nil, fmt.Errorf("failed to parse proxy URL: %w", err)
		}
		if id.Proxy.Username != "" && id.Proxy.Password != "" {
			proxyURL.User = url.UserPassword(id.Proxy.Username, id.Proxy.Password)
		}
		transport.Proxy = http.ProxyURL(proxyURL)
		transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true}
	}
	return &httpSession{
		client:    &http.Client{Transport: transport},
		userAgent: id.UserAgent,
		headers:   d.engine.Headers,
	}, nil
}

func (d *httpDriver) Close() error { return nil }

type httpSession struct {
	client    *http.Client
	userAgent string
	headers   map[string]string
	url       string
	html      []byte
	doc       *goquery.Document
}

func (s *httpSession) Open(ctx context.Context, urlString string, opts NavigateOptions) error {
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, urlString, nil)
	if err != nil {
		return newNavigationError(urlString, 0, err)
	}
	for k, v := range s.headers {
		req.Header.Set(k, v)
	}
	if s.userAgent != "" {
		req.Header.Set("User-Agent", s.userAgent)
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return newNavigationError(urlString, 0, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return newNavigationError(urlString, 0, fmt.Errorf("failed to read response body: %w", err))
	}
	s.url = resp.Request.URL.String()
	s.html = body
	if !Ok(resp.StatusCode) {
		return newNavigationError(urlString, resp.StatusCode, fmt.Errorf("%s", resp.Status))
	}

	reader, err := charset.NewReader(bytes.NewReader(body), resp.Header.Get("Content-Type"))
	if err != nil {
		return newNavigationError(urlString, 0, fmt.Errorf("failed to create reader with correct encoding: %w", err))
	}
	doc, err := goquery.NewDocumentFromReader(reader)
	if err != nil {
		return newNavigationError(urlString, 0, err)
	}
	s.doc = doc
	return nil
}

// WaitFor does not wait: a static document never changes after load.
func (s *httpSession) WaitFor(_ context.Context, selector string, _ time.Duration) (Element, error) {
	if s.doc == nil {
		return nil, fmt.Errorf("%w: %s: no document loaded", ErrSelectorTimeout, selector)
	}
	sel := s.doc.Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSelectorTimeout, selector)
	}
	return &staticElement{sel: sel}, nil
}

func (s *httpSession) QueryAll(_ context.Context, selector string) ([]Element, error) {
	if s.doc == nil {
		return nil, nil
	}
	var elements []Element
	s.doc.Find(selector).Each(func(_ int, sel *goquery.Selection) {
		elements = append(elements, &staticElement{sel: sel})
	})
	return elements, nil
}

func (s *httpSession) Evaluate(_ context.Context, _ string) error {
	return fmt.Errorf("%w: scripts need a browser adapter", ErrInteraction)
}

func (s *httpSession) Document() (*goquery.Document, error) {
	if s.doc == nil {
		return nil, fmt.Errorf("no document loaded")
	}
	return s.doc, nil
}

func (s *httpSession) HTML() string { return string(s.html) }

func (s *httpSession) URL() string { return s.url }

func (s *httpSession) Close() error {
	s.client.CloseIdleConnections()
	s.doc = nil
	return nil
}

type staticElement struct {
	sel *goquery.Selection
}

func (e *staticElement) Text() (string, error) {
	return e.sel.Text(), nil
}

func (e *staticElement) Attribute(name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *staticElement) Click(_ context.Context) error {
	return fmt.Errorf("%w: clicks need a browser adapter", ErrInteraction)
}
