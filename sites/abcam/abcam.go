// Package abcam crawls the Abcam proteins and peptides catalogue.
package abcam

import (
	"time"

	"github.com/lazuli-inc/reagentcrawler"
)

const (
	Name     = "abcam"
	startURL = "https://www.abcam.com/en-us/products/proteins-peptides?page=1"
	pageCap  = 601
)

func engine() reagentcrawler.Engine {
	return reagentcrawler.Engine{
		Adapter:              reagentcrawler.AdapterPlaywright,
		PageCap:              pageCap,
		BlockResources:       true,
		BlockedResourceTypes: []string{"font", "stylesheet", "image", "media", "document"},
		BlockedExtensions:    []string{".svg", ".gif", ".png", ".woff", ".ttf", ".eot"},
	}
}

func listing() reagentcrawler.ListingRecipe {
	return reagentcrawler.ListingRecipe{
		LinkSelector: "p.font-bold > a",
		LinkPrefix:   "/en-us/products/proteins-peptides",
	}
}

func datasheetField(name, testID string) reagentcrawler.FieldRecipe {
	return reagentcrawler.FieldRecipe{
		Name:     name,
		Selector: `div[data-testid="` + testID + `"] dd`,
		Wait:     true,
		Timeout:  10 * time.Second,
	}
}

func extraction(sizeWait time.Duration) reagentcrawler.ExtractionRecipe {
	return reagentcrawler.ExtractionRecipe{
		Interactions: map[string][]reagentcrawler.Action{
			"sizes": {reagentcrawler.WaitFor("div.sizes-box_sizeList__Kr6Gg", sizeWait)},
		},
		Fields: []reagentcrawler.FieldRecipe{
			datasheetField("expression_system", "expression-system"),
			datasheetField("purity", "purity"),
			datasheetField("endotoxin_level", "endotoxin-level"),
			{Name: "sizes", Selector: `div[data-cy="size-button-content"]`, Requires: "sizes"},
			{Name: "prices", Selector: `div[data-testid="base-price"] > span`, Requires: "sizes"},
			datasheetField("applications", "applications"),
		},
	}
}

// Crawler walks the numbered listing pages.
func Crawler() reagentcrawler.CrawlerConfig {
	return reagentcrawler.CrawlerConfig{
		Name: Name,
		Traversal: reagentcrawler.TraversalPolicy{
			Kind:      reagentcrawler.PageQuery,
			StartURL:  startURL,
			PageParam: "page",
		},
		Listing:    listing(),
		Extraction: extraction(20 * time.Second),
		Engine:     engine(),
	}
}

// CursorCrawler follows the listing's next link, probing page numbers when it is missing.
func CursorCrawler() reagentcrawler.CrawlerConfig {
	cfg := Crawler()
	cfg.Traversal = reagentcrawler.TraversalPolicy{
		Kind:         reagentcrawler.Cursor,
		StartURL:     startURL,
		PageParam:    "page",
		NextSelector: "a.pagination__next",
	}
	cfg.Extraction = extraction(30 * time.Second)
	return cfg
}
