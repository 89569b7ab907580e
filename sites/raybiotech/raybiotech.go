// Package raybiotech crawls RayBiotech recombinant proteins. The site checks
// for automation, so pages are opened with the stealth profile.
package raybiotech

import (
	"time"

	"github.com/lazuli-inc/reagentcrawler"
)

const (
	Name      = "raybiotech"
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/138.0.0.0 Safari/537.36"
)

func datasheetRow(name, class string) reagentcrawler.FieldRecipe {
	return reagentcrawler.FieldRecipe{
		Name:     name,
		Selector: "tr." + class + " td span.final-data",
		OwnText:  true,
	}
}

func Crawler() reagentcrawler.CrawlerConfig {
	return reagentcrawler.CrawlerConfig{
		Name: Name,
		Traversal: reagentcrawler.TraversalPolicy{
			Kind:      reagentcrawler.PageQuery,
			StartURL:  "https://www.raybiotech.com/proteins-and-peptides-products/recombinant-proteins?page=1",
			PageParam: "page",
		},
		Listing: reagentcrawler.ListingRecipe{
			Ready:        []reagentcrawler.Action{reagentcrawler.WaitFor("h3.result-title", 0)},
			LinkSelector: "a.result:has(h3.result-title)",
			NameSelector: "h3.result-title",
		},
		Extraction: reagentcrawler.ExtractionRecipe{
			Ready: []reagentcrawler.Action{reagentcrawler.WaitFor("span.base", 0)},
			Fields: []reagentcrawler.FieldRecipe{
				{Name: "name", Selector: "span.base", OwnText: true},
				{Name: "sizes", Selector: "select#attribute169 option", Skip: 1, Multiple: true},
				{Name: "prices", Selector: "select#attribute169 option", Attr: "value", Skip: 1, Multiple: true},
				datasheetRow("species", "species"),
				datasheetRow("protein_name", `protein_name_\/_synonyms`),
				datasheetRow("expressed_region", "expressed_region"),
				datasheetRow("expression_system", "expression_system"),
				datasheetRow("purity", "purity"),
				datasheetRow("endotoxin_level", "endotoxin_level"),
			},
		},
		Engine: reagentcrawler.Engine{
			Adapter:         reagentcrawler.AdapterPlaywright,
			PageCap:         15,
			ConcurrentLimit: 1,
			DownloadDelay:   30 * time.Second,
			RandomizeDelay:  true,
			AutoThrottle: reagentcrawler.AutoThrottle{
				Enabled:           true,
				StartDelay:        30 * time.Second,
				MaxDelay:          60 * time.Second,
				TargetConcurrency: 1,
			},
			Stealth:              true,
			Viewport:             &reagentcrawler.Viewport{Width: 1920, Height: 1080},
			UserAgents:           []string{userAgent},
			Headers:              map[string]string{"Accept-Language": "en-US,en;q=0.9"},
			BlockResources:       true,
			BlockedResourceTypes: []string{"image", "media", "font", "stylesheet"},
			BlockedURLs: []string{
				"analytics.google.com",
				"googletagmanager.com",
				"google-analytics.com",
				"clarity.ms",
				"cloudflare.com",
				"wp-admin/admin-ajax.php",
			},
		},
	}
}
