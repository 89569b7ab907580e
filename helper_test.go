package reagentcrawler

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession renders a fixed HTML document. Clicking a selector listed in
// onClick swaps in the mapped document.
type fakeSession struct {
	html    string
	url     string
	onClick map[string]string
	clicks  map[string]int
	waits   []string
	closed  int
	openErr error
}

func newFakeSession(html string) *fakeSession {
	return &fakeSession{html: html, url: "https://vendor.test/p/1", clicks: map[string]int{}}
}

func (s *fakeSession) doc() *goquery.Document {
	doc, _ := goquery.NewDocumentFromReader(strings.NewReader(s.html))
	return doc
}

func (s *fakeSession) Open(_ context.Context, u string, _ NavigateOptions) error {
	s.url = u
	return s.openErr
}

func (s *fakeSession) WaitFor(_ context.Context, selector string, _ time.Duration) (Element, error) {
	s.waits = append(s.waits, selector)
	sel := s.doc().Find(selector).First()
	if sel.Length() == 0 {
		return nil, fmt.Errorf("%w: %s", ErrSelectorTimeout, selector)
	}
	return &fakeElement{session: s, selector: selector, sel: sel}, nil
}

func (s *fakeSession) QueryAll(_ context.Context, selector string) ([]Element, error) {
	var out []Element
	s.doc().Find(selector).Each(func(_ int, sel *goquery.Selection) {
		out = append(out, &fakeElement{session: s, selector: selector, sel: sel})
	})
	return out, nil
}

func (s *fakeSession) Evaluate(context.Context, string) error { return nil }

func (s *fakeSession) Document() (*goquery.Document, error) { return s.doc(), nil }

func (s *fakeSession) HTML() string { return s.html }

func (s *fakeSession) URL() string { return s.url }

func (s *fakeSession) Close() error {
	s.closed++
	return nil
}

type fakeElement struct {
	session  *fakeSession
	selector string
	sel      *goquery.Selection
}

func (e *fakeElement) Text() (string, error) { return e.sel.Text(), nil }

func (e *fakeElement) Attribute(name string) (string, bool, error) {
	v, ok := e.sel.Attr(name)
	return v, ok, nil
}

func (e *fakeElement) Click(context.Context) error {
	e.session.clicks[e.selector]++
	next, ok := e.session.onClick[e.selector]
	if !ok {
		return fmt.Errorf("%w: %s is not clickable", ErrInteraction, e.selector)
	}
	e.session.html = next
	return nil
}

// fakeDriver serves fakeSessions from a map of URL to HTML.
type fakeDriver struct {
	mu       sync.Mutex
	pages    map[string]string
	opened   []string
	sessions []*fakeSession
}

func (d *fakeDriver) NewSession(context.Context, Identity) (RenderSession, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := &fakeSession{clicks: map[string]int{}}
	d.sessions = append(d.sessions, s)
	return &fakeDriverSession{fakeSession: s, driver: d}, nil
}

func (d *fakeDriver) Close() error { return nil }

type fakeDriverSession struct {
	*fakeSession
	driver *fakeDriver
}

func (s *fakeDriverSession) Open(_ context.Context, u string, _ NavigateOptions) error {
	s.driver.mu.Lock()
	defer s.driver.mu.Unlock()
	s.driver.opened = append(s.driver.opened, u)
	html, ok := s.driver.pages[u]
	if !ok {
		return newNavigationError(u, 404, fmt.Errorf("not found"))
	}
	s.url = u
	s.html = html
	return nil
}

func testConfig(values map[string]string) *configService {
	v := viper.New()
	for k, val := range values {
		v.Set(k, val)
	}
	return newConfigFrom(v)
}

func testLogger(name string) Logger {
	return newWriterLogger(name, io.Discard)
}

// chdirTemp runs the test inside a temporary working directory so exports
// under storage/ do not leak into the package.
func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestResolveURL(t *testing.T) {
	base, _ := url.Parse("https://www.vendor.test/search?page=2")

	got, ok := resolveURL(base, "/products/egfr#specs")
	assert.True(t, ok)
	assert.Equal(t, "https://www.vendor.test/products/egfr", got)

	_, ok = resolveURL(base, "#top")
	assert.False(t, ok)
	_, ok = resolveURL(base, "javascript:void(0)")
	assert.False(t, ok)
}

func TestURLSuffix(t *testing.T) {
	assert.Equal(t, "206-IL", urlSuffix("https://www.rndsystems.com/products/human-il-6_206-IL", "_"))
	assert.Equal(t, "", urlSuffix("https://www.rndsystems.com/products/human-il-6", "_"))
	assert.Equal(t, "10", urlSuffix("https://x.test/a_b_10/", "_"))
}

func TestGenerateFilename(t *testing.T) {
	name := generateFilename("https://vendor.test/a?b=c")
	assert.True(t, strings.HasSuffix(name, "_https___vendor.test_a_b=c.html"))
	assert.NotContains(t, name, "/")
}
