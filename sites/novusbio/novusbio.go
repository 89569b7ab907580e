// Package novusbio crawls the Novus Biologicals peptides and proteins search.
package novusbio

import (
	"fmt"
	"time"

	"github.com/lazuli-inc/reagentcrawler"
)

const Name = "novusbio"

func datasheet(name, table string, row int, leaf string) reagentcrawler.FieldRecipe {
	return reagentcrawler.FieldRecipe{
		Name:     name,
		Selector: fmt.Sprintf("%s tbody tr:nth-of-type(%d) td:nth-of-type(2) %s", table, row, leaf),
		OwnText:  true,
	}
}

func Crawler() reagentcrawler.CrawlerConfig {
	return reagentcrawler.CrawlerConfig{
		Name: Name,
		Traversal: reagentcrawler.TraversalPolicy{
			Kind:      reagentcrawler.PageQuery,
			StartURL:  "https://www.novusbio.com/search?category=Peptides%20and%20Proteins&keywords=protein&page=1",
			PageParam: "page",
		},
		Listing: reagentcrawler.ListingRecipe{
			ItemSelector:     "div.catalog_number_wrapper.not3column",
			LinkSelector:     "a",
			CatalogSelector:  "a",
			PageNameSelector: "h2.col3_hdr",
		},
		Extraction: reagentcrawler.ExtractionRecipe{
			Fields: []reagentcrawler.FieldRecipe{
				{Name: "sizes", Selector: "table.sticky-enabled tr.odd td:nth-child(1) div.atc_size", OwnText: true, Multiple: true},
				{Name: "prices", Selector: "table.sticky-enabled tr.odd td:nth-child(3) div.price", OwnText: true, Multiple: true},
				datasheet("reactivity", "table.ds_list", 1, "span"),
				datasheet("application", "table.ds_list", 2, "span"),
				datasheet("format", "table.ds_list", 3, "div"),
				datasheet("gene", "table.ds_list.wide", 7, "div"),
				datasheet("purity", "table.ds_list.wide", 8, "div"),
				datasheet("endotoxin_level", "table.ds_list.wide", 9, "div"),
			},
		},
		Engine: reagentcrawler.Engine{
			Adapter:         reagentcrawler.AdapterPlaywright,
			PageCap:         3180,
			ConcurrentLimit: 2,
			DownloadDelay:   3 * time.Second,
			RandomizeDelay:  true,
			AutoThrottle: reagentcrawler.AutoThrottle{
				Enabled:           true,
				StartDelay:        3 * time.Second,
				MaxDelay:          10 * time.Second,
				TargetConcurrency: 1,
			},
			MaxRetryAttempts:     3,
			ErrorCodes:           []int{429, 1015},
			BlockResources:       true,
			BlockedResourceTypes: []string{"font", "stylesheet", "image", "media", "document"},
			BlockedExtensions:    []string{".gif"},
			BlockedURLs: []string{
				"aa.agkn.com",
				"ade.clmbtech.com",
				"ad.tpmn.co.kr",
				"sync.outbrain.com",
				"ads.stickyadstv.com",
				"cm.g.doubleclick.net",
				"clarity.ms",
				"novusbio.com/ajax",
				"novusbio.com/distributors/ajax",
				"novusbio.com/products/ajax",
			},
		},
	}
}
