package reagentcrawler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// visit opens url in a fresh render session and hands it to fn. Every attempt
// takes a fetch slot, waits for the throttle and carries the identity current
// at issue time. Retryable statuses report the identity as failing and retry.
func (app *Crawler) visit(ctx context.Context, url string, fn func(RenderSession) error) error {
	if !app.allowed(url) {
		app.audit.warn(WarningRobots, url, ErrDisallowed)
		return fmt.Errorf("%w: %s", ErrDisallowed, url)
	}

	var lastErr error
	for attempt := 0; attempt <= app.engine.MaxRetryAttempts; attempt++ {
		if err := app.fetches.Acquire(ctx, 1); err != nil {
			return err
		}
		err := app.visitOnce(ctx, url, fn)
		app.fetches.Release(1)
		if err == nil {
			return nil
		}
		lastErr = err

		var navErr *NavigationError
		if !errors.As(err, &navErr) || !navErr.Retryable(app.engine.ErrorCodes) || ctx.Err() != nil {
			return err
		}
		app.Logger.Warn("Retrying %s (%d/%d): %v", url, attempt+1, app.engine.MaxRetryAttempts, err)
	}
	return lastErr
}

func (app *Crawler) visitOnce(ctx context.Context, url string, fn func(RenderSession) error) error {
	if err := app.throttle.Wait(ctx); err != nil {
		return err
	}
	id := app.rotator.Acquire(ctx)
	if id.IsDirect() {
		app.Logger.Debug("Crawling %s", url)
	} else {
		app.Logger.Debug("Crawling %s using Proxy %s", url, id.Proxy.Server)
	}

	start := time.Now()
	err := WithSession(ctx, app.driver, id, func(session RenderSession) error {
		if err := session.Open(ctx, url, NavigateOptions{Timeout: app.engine.Timeout}); err != nil {
			if app.engine.StoreHtml {
				app.Logger.Html(session.HTML(), url, err.Error())
			}
			return err
		}
		return fn(session)
	})

	status := http.StatusOK
	var navErr *NavigationError
	if errors.As(err, &navErr) {
		status = navErr.StatusCode
		if navErr.Retryable(app.engine.ErrorCodes) {
			app.rotator.ReportFailure(ctx, id)
		}
	}
	app.throttle.Observe(time.Since(start), status)
	return err
}

// crawlDetail extracts one product and emits it. A failed detail page skips
// the product with a warning; no partial item is emitted.
func (app *Crawler) crawlDetail(ctx context.Context, ref ProductRef) {
	var result ExtractionResult
	err := app.visit(ctx, ref.URL, func(session RenderSession) error {
		result = newFieldExtractor(session, app.extraction, ref.URL, app.engine.SelectorTimeout, app.Logger).Extract(ctx)
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		app.audit.skipped.Add(1)
		if !errors.Is(err, ErrDisallowed) {
			app.audit.warn(WarningDetail, ref.URL, err)
		}
		app.Logger.Warn("Skipping %s: %v", ref.URL, err)
		return
	}
	app.audit.detailPages.Add(1)

	item := buildItem(app.Name, app.columns, ref, result, app.runID)
	if !app.emitter.Emit(item) {
		app.Logger.Error("Emitter closed, dropping %s", ref.URL)
	}
}
