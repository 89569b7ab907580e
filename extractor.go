package reagentcrawler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// fieldExtractor runs one ExtractionRecipe against one live detail page.
// Interactions run at most once and invalidate the DOM snapshot.
type fieldExtractor struct {
	session         RenderSession
	recipe          ExtractionRecipe
	selectorTimeout time.Duration
	logger          Logger
	pageURL         string

	doc          *goquery.Document
	interactions map[string]error
}

func newFieldExtractor(session RenderSession, recipe ExtractionRecipe, pageURL string, selectorTimeout time.Duration, logger Logger) *fieldExtractor {
	return &fieldExtractor{
		session:         session,
		recipe:          recipe,
		selectorTimeout: selectorTimeout,
		logger:          logger,
		pageURL:         pageURL,
		interactions:    make(map[string]error),
	}
}

// Extract always returns every declared field. Failures resolve to the field default.
func (x *fieldExtractor) Extract(ctx context.Context) ExtractionResult {
	if err := x.runActions(ctx, x.recipe.Ready); err != nil {
		x.logger.Debug("Ready actions on %s: %v", x.pageURL, err)
	}
	result := make(ExtractionResult, len(x.recipe.Fields))
	for _, f := range x.recipe.Fields {
		result[f.Name] = x.field(ctx, f)
	}
	return result
}

func (x *fieldExtractor) field(ctx context.Context, f FieldRecipe) (value string) {
	value = f.defaultValue()
	defer func() {
		if r := recover(); r != nil {
			x.logger.Error("Field %s on %s panicked: %v", f.Name, x.pageURL, r)
			value = f.defaultValue()
		}
	}()

	if f.Requires != "" {
		if err := x.interaction(ctx, f.Requires); err != nil {
			x.logger.Debug("Field %s on %s: interaction %q failed: %v", f.Name, x.pageURL, f.Requires, err)
			return value
		}
	}
	if f.Wait && f.Selector != "" {
		if _, err := x.session.WaitFor(ctx, f.Selector, x.timeout(f.Timeout)); err != nil {
			x.logger.Debug("Field %s on %s: %v", f.Name, x.pageURL, err)
			return value
		}
	}
	doc, err := x.document()
	if err != nil {
		x.logger.Warn("Field %s on %s: %v", f.Name, x.pageURL, err)
		return value
	}
	return JoinValues(readValues(doc.Selection, f, x.pageURL), value)
}

func (x *fieldExtractor) interaction(ctx context.Context, name string) error {
	if err, done := x.interactions[name]; done {
		return err
	}
	actions, ok := x.recipe.Interactions[name]
	if !ok {
		err := fmt.Errorf("%w: unknown interaction %q", ErrInteraction, name)
		x.interactions[name] = err
		return err
	}
	err := x.runActions(ctx, actions)
	x.interactions[name] = err
	return err
}

func (x *fieldExtractor) runActions(ctx context.Context, actions []Action) error {
	if len(actions) == 0 {
		return nil
	}
	x.doc = nil
	return runActions(ctx, x.session, actions, x.selectorTimeout)
}

func (x *fieldExtractor) document() (*goquery.Document, error) {
	if x.doc != nil {
		return x.doc, nil
	}
	doc, err := x.session.Document()
	if err != nil {
		return nil, err
	}
	x.doc = doc
	return doc, nil
}

func (x *fieldExtractor) timeout(d time.Duration) time.Duration {
	if d > 0 {
		return d
	}
	return x.selectorTimeout
}

// runActions executes actions in order and stops at the first failure.
func runActions(ctx context.Context, session RenderSession, actions []Action, defaultTimeout time.Duration) error {
	for _, a := range actions {
		timeout := a.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		switch a.Kind {
		case ActionWaitFor:
			if _, err := session.WaitFor(ctx, a.Selector, timeout); err != nil {
				return err
			}
		case ActionClick:
			el, err := session.WaitFor(ctx, a.Selector, timeout)
			if err != nil {
				return err
			}
			if err := el.Click(ctx); err != nil {
				if !errors.Is(err, ErrInteraction) {
					err = fmt.Errorf("%w: %v", ErrInteraction, err)
				}
				return err
			}
		case ActionSleep:
			if err := sleepContext(ctx, a.Delay); err != nil {
				return err
			}
		case ActionEvaluate:
			if err := session.Evaluate(ctx, a.Script); err != nil {
				return err
			}
		default:
			return fmt.Errorf("%w: unknown action %q", ErrInteraction, a.Kind)
		}
	}
	return nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// readValues evaluates a field recipe against a DOM scope. Values are cleaned
// and never empty.
func readValues(scope *goquery.Selection, f FieldRecipe, pageURL string) []string {
	if f.URLSuffix != "" {
		if v := CleanText(urlSuffix(pageURL, f.URLSuffix)); v != "" {
			return []string{v}
		}
		return nil
	}

	var matches *goquery.Selection
	switch {
	case f.Label != "":
		matches = labelledValue(scope, f)
	case f.Selector != "":
		matches = scope.Find(f.Selector)
	default:
		matches = scope
	}
	if f.Skip > 0 {
		if f.Skip >= matches.Length() {
			return nil
		}
		matches = matches.Slice(f.Skip, matches.Length())
	}

	var values []string
	matches.Each(func(_ int, s *goquery.Selection) {
		var raw []string
		switch {
		case f.Attr != "":
			if v, ok := s.Attr(f.Attr); ok {
				raw = append(raw, v)
			}
		case f.SplitText:
			raw = textNodes(s)
		case f.OwnText:
			raw = append(raw, ownText(s))
		default:
			raw = append(raw, s.Text())
		}
		for _, v := range raw {
			v = CleanText(v)
			if v == "" || (f.Contains != "" && !strings.Contains(v, f.Contains)) {
				continue
			}
			values = append(values, v)
		}
	})
	if f.Unique {
		values = uniqueStrings(values)
	}
	if !f.Multiple && len(values) > 1 {
		values = values[:1]
	}
	return values
}

func labelledValue(scope *goquery.Selection, f FieldRecipe) *goquery.Selection {
	labelSelector := f.LabelSelector
	if labelSelector == "" {
		labelSelector = "td"
	}
	label := scope.Find(labelSelector).FilterFunction(func(_ int, s *goquery.Selection) bool {
		if f.LabelContains {
			return strings.Contains(CleanText(s.Text()), f.Label)
		}
		return CleanText(ownText(s)) == f.Label
	}).First()
	if label.Length() == 0 {
		return label
	}
	if f.ValueSelector != "" {
		return label.Find(f.ValueSelector).First()
	}
	return label.Next()
}

func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if n := c.Get(0); n != nil && n.Type == html.TextNode {
			b.WriteString(n.Data)
			b.WriteString(" ")
		}
	})
	return b.String()
}

func textNodes(s *goquery.Selection) []string {
	var out []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			out = append(out, n.Data)
			return
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range s.Nodes {
		walk(n)
	}
	return out
}
