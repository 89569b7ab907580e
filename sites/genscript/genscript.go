// Package genscript crawls the GenScript protein list, one letter at a time.
package genscript

import (
	"fmt"
	"time"

	"github.com/lazuli-inc/reagentcrawler"
)

const Name = "genscript"

func letters() []string {
	out := make([]string, 0, 26)
	for c := 'A'; c <= 'Z'; c++ {
		out = append(out, string(c))
	}
	return out
}

func valueRow(name string, row int) reagentcrawler.FieldRecipe {
	return reagentcrawler.FieldRecipe{
		Name:      name,
		Selector:  fmt.Sprintf("tr:nth-of-type(%d) td.right-value", row),
		SplitText: true,
		Multiple:  true,
	}
}

func Crawler() reagentcrawler.CrawlerConfig {
	return reagentcrawler.CrawlerConfig{
		Name: Name,
		Traversal: reagentcrawler.TraversalPolicy{
			Kind:       reagentcrawler.PageTemplate,
			Template:   "https://www.genscript.com/protein-list/{partition}/{page}.html",
			Partitions: letters(),
		},
		Listing: reagentcrawler.ListingRecipe{
			ItemSelector:    "tr.gridtable-tr",
			LinkSelector:    "td:nth-child(2) a",
			CatalogSelector: "td:nth-child(1) div",
			Fields: []reagentcrawler.FieldRecipe{
				{Name: "sizes", Selector: "td:nth-child(4) select option", Multiple: true},
				{Name: "prices", Selector: "td:nth-child(4) select option", Attr: "price", Multiple: true},
			},
		},
		Extraction: reagentcrawler.ExtractionRecipe{
			Fields: []reagentcrawler.FieldRecipe{
				valueRow("purity", 3),
				valueRow("endotoxin_level", 4),
				valueRow("expression_system", 6),
			},
		},
		Engine: reagentcrawler.Engine{
			Adapter:              reagentcrawler.AdapterPlaywright,
			PageCap:              15,
			ConcurrentLimit:      1,
			DownloadDelay:        60 * time.Second,
			AutoThrottle: reagentcrawler.AutoThrottle{
				Enabled:           true,
				StartDelay:        60 * time.Second,
				MaxDelay:          120 * time.Second,
				TargetConcurrency: 1,
			},
			BlockResources:       true,
			BlockedResourceTypes: []string{"font", "stylesheet", "image", "media", "document"},
			BlockedURLs: []string{
				"webanalytics.internet.genscript.com",
				"e.clarity.ms",
				"clarity.ms",
				"aria.microsoft.com",
				"browser.pipe.aria.microsoft.com",
			},
		},
	}
}
