package reagentcrawler

import (
	"context"
	"errors"
	"fmt"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/sync/errgroup"
)

// traverse walks every partition of the site. Partitions run in parallel up
// to PartitionConcurrency; a failing partition never stops the others.
func (app *Crawler) traverse(ctx context.Context) error {
	pg := newPager(app.target)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(app.engine.PartitionConcurrency, 1))

	for i, partition := range app.target.partitions() {
		cursor := PageCursor{
			Site:           app.Name,
			Page:           1,
			Partition:      partition,
			PartitionIndex: i,
			URL:            pg.first(partition),
		}
		g.Go(func() error {
			err := app.crawlPartition(gctx, pg, cursor)
			if errors.Is(err, ErrCrawlLimitReached) {
				return err
			}
			if err != nil && gctx.Err() == nil {
				app.Logger.Warn("Partition %q of %s ended: %v", cursor.Partition, app.Name, err)
			}
			return nil
		})
	}
	err := g.Wait()
	if errors.Is(err, ErrCrawlLimitReached) {
		app.Logger.Info("Crawl limit of %d reached, stopping...", app.engine.DevCrawlLimit)
		return nil
	}
	if err != nil {
		return err
	}
	return ctx.Err()
}

// crawlPartition visits listing pages of one partition until the pager runs
// out, a page yields no products, a listing fetch fails or the page cap is hit.
// The cap is checked before fetching so page PageCap+1 is never requested.
func (app *Crawler) crawlPartition(ctx context.Context, pg pager, cursor PageCursor) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		if app.engine.PageCap > 0 && cursor.Page > app.engine.PageCap {
			app.Logger.Info("Page cap %d reached for partition %q", app.engine.PageCap, cursor.Partition)
			app.audit.capReached.Add(1)
			return nil
		}

		refs, doc, err := app.crawlListing(ctx, cursor)
		if err != nil {
			if !errors.Is(err, ErrDisallowed) {
				app.audit.warn(WarningListing, cursor.URL, err)
			}
			return fmt.Errorf("listing page %d: %w", cursor.Page, err)
		}
		cursor.Visited++
		if len(refs) == 0 {
			app.Logger.Info("No products on %s, partition %q done", cursor.URL, cursor.Partition)
			return nil
		}
		app.Logger.Info("Found %d products on page %d of partition %q", len(refs), cursor.Page, cursor.Partition)

		if err := app.crawlDetails(ctx, refs); err != nil {
			return err
		}

		next, ok := pg.next(cursor, doc)
		if !ok {
			return nil
		}
		cursor.Page++
		cursor.URL = next
	}
}

// crawlListing fetches one listing page and discovers the products on it.
func (app *Crawler) crawlListing(ctx context.Context, cursor PageCursor) ([]ProductRef, *goquery.Document, error) {
	var (
		refs []ProductRef
		doc  *goquery.Document
	)
	err := app.visit(ctx, cursor.URL, func(session RenderSession) error {
		if err := runActions(ctx, session, app.listing.Ready, app.engine.SelectorTimeout); err != nil {
			app.Logger.Debug("Listing ready actions on %s: %v", cursor.URL, err)
		}
		d, err := session.Document()
		if err != nil {
			return err
		}
		doc = d
		refs = Discover(d, session.URL(), app.listing)
		return nil
	})
	if err != nil {
		return nil, nil, err
	}
	app.audit.listingPages.Add(1)

	for i := range refs {
		refs[i].Partition = cursor.PartitionIndex
		refs[i].Page = cursor.Page
		refs[i].Position = i
	}
	return refs, doc, nil
}

// crawlDetails fetches the detail page of every unseen product on one listing page.
func (app *Crawler) crawlDetails(ctx context.Context, refs []ProductRef) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(app.engine.ConcurrentLimit, 1))

	limitHit := false
	for _, ref := range refs {
		if app.limitReached() {
			limitHit = true
			break
		}
		if !app.markSeen(ref.URL) {
			app.audit.duplicates.Add(1)
			continue
		}
		app.audit.products.Add(1)
		ref := ref
		g.Go(func() error {
			app.crawlDetail(gctx, ref)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	if limitHit {
		return ErrCrawlLimitReached
	}
	return nil
}

// limitReached applies DevCrawlLimit in the local environment only.
func (app *Crawler) limitReached() bool {
	return app.isLocalEnv && app.engine.DevCrawlLimit > 0 && app.audit.products.Load() >= int64(app.engine.DevCrawlLimit)
}

// markSeen reports whether url is new to this crawl.
func (app *Crawler) markSeen(url string) bool {
	app.seenMu.Lock()
	defer app.seenMu.Unlock()
	if _, ok := app.seen[url]; ok {
		return false
	}
	app.seen[url] = struct{}{}
	return true
}
