// Package rndsystems crawls R&D Systems human proteins and enzymes.
package rndsystems

import (
	"time"

	"github.com/lazuli-inc/reagentcrawler"
)

const Name = "rndsystems"

func detail(name, label string) reagentcrawler.FieldRecipe {
	return reagentcrawler.FieldRecipe{Name: name, Label: label, OwnText: true}
}

func Crawler() reagentcrawler.CrawlerConfig {
	return reagentcrawler.CrawlerConfig{
		Name: Name,
		Traversal: reagentcrawler.TraversalPolicy{
			Kind:      reagentcrawler.PageQuery,
			StartURL:  "https://www.rndsystems.com/search?keywords=protein&category=Proteins%20and%20Enzymes&species=Human&page=1",
			PageParam: "page",
		},
		Listing: reagentcrawler.ListingRecipe{
			Ready:        reagentcrawler.Settle("div#search-results", 0, 2*time.Second),
			LinkSelector: "a.ecommerce_link",
		},
		Extraction: reagentcrawler.ExtractionRecipe{
			Ready: reagentcrawler.Settle("a.ecommerce_link", 0, time.Second),
			Fields: []reagentcrawler.FieldRecipe{
				{Name: "catalog_no", URLSuffix: "_"},
				{Name: "name", Selector: "h1.ds_title", OwnText: true},
				{Name: "sizes_prices", Selector: "span.size_price", OwnText: true, Multiple: true, Unique: true},
				detail("purity", "Purity"),
				detail("endotoxin_level", "Endotoxin Level"),
				detail("activity", "Activity"),
				detail("source", "Source"),
			},
		},
		Engine: reagentcrawler.Engine{
			Adapter:        reagentcrawler.AdapterPlaywright,
			PageCap:        1,
			BlockResources: true,
			BlockedURLs:    []string{"bam.nr-data.net"},
		},
	}
}
