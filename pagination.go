package reagentcrawler

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

type PaginationKind string

const (
	// PageQuery sets a page number query parameter on StartURL.
	PageQuery PaginationKind = "page_query"
	// PageTemplate fills {partition} and {page} placeholders of Template.
	PageTemplate PaginationKind = "page_template"
	// Cursor follows the href of NextSelector.
	Cursor PaginationKind = "cursor"
	// SinglePage visits StartURL only.
	SinglePage PaginationKind = "single"
)

// TraversalPolicy describes how listing pages of one site are enumerated.
type TraversalPolicy struct {
	Kind         PaginationKind
	StartURL     string
	PageParam    string
	Template     string
	Partitions   []string
	NextSelector string
}

// PageCursor tracks traversal of one partition.
type PageCursor struct {
	Site           string
	Page           int
	Partition      string
	PartitionIndex int
	Visited        int
	URL            string
}

// pager is the strategy behind a TraversalPolicy.
type pager interface {
	first(partition string) string
	// next returns the URL of the page after cursor. ok is false when the
	// strategy has nothing further to offer.
	next(cursor PageCursor, doc *goquery.Document) (string, bool)
}

func newPager(p TraversalPolicy) pager {
	switch p.Kind {
	case PageTemplate:
		return templatePager{template: p.Template}
	case Cursor:
		c := cursorPager{start: p.StartURL, nextSelector: p.NextSelector}
		if p.PageParam != "" {
			c.probe = &queryPager{start: p.StartURL, param: p.PageParam}
		}
		return c
	case SinglePage:
		return singlePager{start: p.StartURL}
	default:
		param := p.PageParam
		if param == "" {
			param = "page"
		}
		return queryPager{start: p.StartURL, param: param}
	}
}

// validate rejects policies whose pager could stop early or never advance.
// A cursor needs PageParam so a missing next link falls back to page numbers.
func (p TraversalPolicy) validate() error {
	switch p.Kind {
	case PageTemplate:
		if !strings.Contains(p.Template, "{page}") {
			return fmt.Errorf("page template %q has no {page} placeholder", p.Template)
		}
	case Cursor:
		if p.NextSelector == "" {
			return fmt.Errorf("cursor traversal needs a next selector")
		}
		if p.PageParam == "" {
			return fmt.Errorf("cursor traversal needs a page param for pages without a next link")
		}
	}
	return nil
}

func (p TraversalPolicy) partitions() []string {
	if len(p.Partitions) == 0 {
		return []string{""}
	}
	return p.Partitions
}

type queryPager struct {
	start string
	param string
}

func (q queryPager) pageURL(page int) string {
	u, err := url.Parse(q.start)
	if err != nil {
		return q.start
	}
	values := u.Query()
	values.Set(q.param, strconv.Itoa(page))
	u.RawQuery = values.Encode()
	return u.String()
}

func (q queryPager) first(string) string { return q.pageURL(1) }

// next probes the following page number; a missing "next" link is not an end signal.
func (q queryPager) next(c PageCursor, _ *goquery.Document) (string, bool) {
	return q.pageURL(c.Page + 1), true
}

type templatePager struct {
	template string
}

func (t templatePager) pageURL(partition string, page int) string {
	return strings.NewReplacer("{partition}", partition, "{page}", strconv.Itoa(page)).Replace(t.template)
}

func (t templatePager) first(partition string) string { return t.pageURL(partition, 1) }

func (t templatePager) next(c PageCursor, _ *goquery.Document) (string, bool) {
	return t.pageURL(c.Partition, c.Page+1), true
}

// cursorPager follows the next link. Without one it falls back to a page
// number; crawlers are validated to always have a PageParam.
type cursorPager struct {
	start        string
	nextSelector string
	probe        *queryPager
}

func (c cursorPager) first(string) string { return c.start }

func (c cursorPager) next(cursor PageCursor, doc *goquery.Document) (string, bool) {
	if next, ok := c.link(cursor, doc); ok {
		return next, true
	}
	if c.probe != nil {
		return c.probe.next(cursor, doc)
	}
	return "", false
}

func (c cursorPager) link(cursor PageCursor, doc *goquery.Document) (string, bool) {
	if doc == nil {
		return "", false
	}
	href, ok := doc.Find(c.nextSelector).First().Attr("href")
	if !ok {
		return "", false
	}
	base, _ := url.Parse(cursor.URL)
	next, ok := resolveURL(base, href)
	if !ok || next == cursor.URL {
		return "", false
	}
	return next, true
}

type singlePager struct {
	start string
}

func (s singlePager) first(string) string { return s.start }

func (s singlePager) next(PageCursor, *goquery.Document) (string, bool) { return "", false }
