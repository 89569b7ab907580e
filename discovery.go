package reagentcrawler

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Discover reads product references from a rendered listing page. Refs are
// unique by absolute URL; an empty result means the page holds no products.
func Discover(doc *goquery.Document, pageURL string, recipe ListingRecipe) []ProductRef {
	if doc == nil {
		return nil
	}
	base, _ := url.Parse(pageURL)

	var items *goquery.Selection
	if recipe.ItemSelector != "" {
		items = doc.Find(recipe.ItemSelector)
	} else {
		items = doc.Find(recipe.LinkSelector)
	}

	var pageNames []string
	if recipe.PageNameSelector != "" {
		doc.Find(recipe.PageNameSelector).Each(func(_ int, s *goquery.Selection) {
			pageNames = append(pageNames, CleanText(s.Text()))
		})
	}

	seen := make(map[string]struct{})
	var refs []ProductRef
	items.Each(func(i int, item *goquery.Selection) {
		link := item
		if recipe.ItemSelector != "" {
			link = item.Find(recipe.LinkSelector).First()
		}
		href, ok := link.Attr(recipe.linkAttr())
		if !ok {
			return
		}
		if recipe.LinkPrefix != "" && !strings.HasPrefix(strings.TrimSpace(href), recipe.LinkPrefix) {
			return
		}
		abs, ok := resolveURL(base, href)
		if !ok {
			return
		}
		if _, dup := seen[abs]; dup {
			return
		}
		seen[abs] = struct{}{}

		ref := ProductRef{
			URL:       abs,
			Name:      DefaultValue,
			CatalogNo: DefaultValue,
			Position:  len(refs),
		}
		switch {
		case recipe.PageNameSelector != "":
			if i < len(pageNames) && pageNames[i] != "" {
				ref.Name = pageNames[i]
			}
		case recipe.NameSelector != "":
			if name := CleanText(item.Find(recipe.NameSelector).First().Text()); name != "" {
				ref.Name = name
			}
		default:
			if name := CleanText(link.Text()); name != "" {
				ref.Name = name
			}
		}
		if recipe.CatalogSelector != "" {
			if cat := CleanText(item.Find(recipe.CatalogSelector).First().Text()); cat != "" {
				ref.CatalogNo = cat
			}
		}
		if len(recipe.Fields) > 0 {
			ref.Meta = make(map[string]string, len(recipe.Fields))
			for _, f := range recipe.Fields {
				ref.Meta[f.Name] = JoinValues(readValues(item, f, abs), f.defaultValue())
			}
		}
		refs = append(refs, ref)
	})
	return refs
}
