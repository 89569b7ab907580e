package reagentcrawler

import (
	"context"
	"fmt"
	"time"

	"github.com/PuerkitoBio/goquery"
)

// Element is a handle to one node of a live page.
type Element interface {
	Text() (string, error)
	Attribute(name string) (string, bool, error)
	Click(ctx context.Context) error
}

type NavigateOptions struct {
	Timeout time.Duration
}

// RenderSession is one page owned by exactly one task. Close must run once.
type RenderSession interface {
	Open(ctx context.Context, url string, opts NavigateOptions) error
	WaitFor(ctx context.Context, selector string, timeout time.Duration) (Element, error)
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	Evaluate(ctx context.Context, script string) error
	// Document snapshots the current DOM.
	Document() (*goquery.Document, error)
	HTML() string
	URL() string
	Close() error
}

// Driver creates render sessions bound to an identity.
type Driver interface {
	NewSession(ctx context.Context, id Identity) (RenderSession, error)
	Close() error
}

// WithSession opens a session, hands it to fn and closes it on every exit path,
// including panics inside fn.
func WithSession(ctx context.Context, driver Driver, id Identity, fn func(RenderSession) error) (err error) {
	session, err := driver.NewSession(ctx, id)
	if err != nil {
		return fmt.Errorf("failed to create render session: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("render session panic: %v", r)
		}
		if closeErr := session.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("failed to close render session: %w", closeErr)
		}
	}()
	return fn(session)
}

func newDriver(app *Crawler) (Driver, error) {
	switch app.engine.Adapter {
	case AdapterPlaywright, "":
		return newPlaywrightDriver(app.engine, app.filter, app.Logger, app.isLocalEnv)
	case AdapterRod:
		return newRodDriver(app.engine, app.filter, app.Logger, app.isLocalEnv), nil
	case AdapterHttp:
		return newHttpDriver(app.engine), nil
	default:
		return nil, fmt.Errorf("unsupported adapter: %s", app.engine.Adapter)
	}
}
