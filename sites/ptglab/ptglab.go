// Package ptglab crawls the Proteintech HumanKine results page. The listing
// is a single lazily loaded page.
package ptglab

import (
	"time"

	"github.com/lazuli-inc/reagentcrawler"
)

const (
	Name       = "ptglab"
	sizeButton = "div.sizes-box_sizeList__Kr6Gg button"
)

func labelField(name, label string) reagentcrawler.FieldRecipe {
	return reagentcrawler.FieldRecipe{
		Name:          name,
		Label:         label,
		LabelSelector: "li",
		LabelContains: true,
		ValueSelector: "span",
		OwnText:       true,
	}
}

func Crawler() reagentcrawler.CrawlerConfig {
	return reagentcrawler.CrawlerConfig{
		Name: Name,
		Traversal: reagentcrawler.TraversalPolicy{
			Kind:     reagentcrawler.SinglePage,
			StartURL: "https://www.ptglab.com/results?q=humankine",
		},
		Listing: reagentcrawler.ListingRecipe{
			Ready: []reagentcrawler.Action{
				reagentcrawler.ScrollUntilStable(2000, 5, time.Second),
				reagentcrawler.Sleep(2 * time.Second),
			},
			LinkSelector: `div[data-category="HumanKine"] a`,
		},
		Extraction: reagentcrawler.ExtractionRecipe{
			Interactions: map[string][]reagentcrawler.Action{
				"sizes": reagentcrawler.ClickAndSettle(sizeButton, 30*time.Second, 2*time.Second),
			},
			Fields: []reagentcrawler.FieldRecipe{
				{Name: "name", Selector: "h1[role='heading']", OwnText: true},
				{Name: "catalog_no", Selector: "div.catalog-number span", OwnText: true},
				{Name: "sizes", Selector: "div.magic-dropdown-box li", OwnText: true, Multiple: true, Requires: "sizes"},
				{Name: "prices", Selector: "div.magic-dropdown-box li span", OwnText: true, Contains: "$", Multiple: true, Requires: "sizes"},
				labelField("expression_system", "Expression System"),
				labelField("purity", "Purity"),
				labelField("endotoxin_level", "Endotoxin Level"),
			},
		},
		Engine: reagentcrawler.Engine{
			Adapter:         reagentcrawler.AdapterPlaywright,
			PageCap:         1,
			ConcurrentLimit: 1,
			DownloadDelay:   60 * time.Second,
			AutoThrottle: reagentcrawler.AutoThrottle{
				Enabled:           true,
				StartDelay:        60 * time.Second,
				MaxDelay:          120 * time.Second,
				TargetConcurrency: 1,
			},
		},
	}
}
