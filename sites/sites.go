// Package sites lists the vendor crawlers known to the command line.
package sites

import (
	"sort"
	"strings"

	"github.com/lazuli-inc/reagentcrawler"
	"github.com/lazuli-inc/reagentcrawler/sites/abcam"
	"github.com/lazuli-inc/reagentcrawler/sites/genscript"
	"github.com/lazuli-inc/reagentcrawler/sites/novusbio"
	"github.com/lazuli-inc/reagentcrawler/sites/ptglab"
	"github.com/lazuli-inc/reagentcrawler/sites/raybiotech"
	"github.com/lazuli-inc/reagentcrawler/sites/rndsystems"
)

var registry = map[string]func() reagentcrawler.CrawlerConfig{
	abcam.Name:          abcam.Crawler,
	abcam.Name + "_next": abcam.CursorCrawler,
	genscript.Name:      genscript.Crawler,
	novusbio.Name:       novusbio.Crawler,
	ptglab.Name:         ptglab.Crawler,
	raybiotech.Name:     raybiotech.Crawler,
	rndsystems.Name:     rndsystems.Crawler,
}

// Names returns every registered crawler name in order.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the crawler registered under name.
func Lookup(name string) (reagentcrawler.CrawlerConfig, bool) {
	fn, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return reagentcrawler.CrawlerConfig{}, false
	}
	cfg := fn()
	cfg.Name = strings.ToLower(strings.TrimSpace(name))
	return cfg, true
}

// Default lists the crawlers run when none are selected. The cursor variant
// of abcam is opt-in.
func Default() []string {
	return []string{abcam.Name, genscript.Name, novusbio.Name, ptglab.Name, raybiotech.Name, rndsystems.Name}
}
