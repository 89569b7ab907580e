package reagentcrawler

import (
	"errors"
	"sync"
)

type closer interface {
	Close() error
}

// browserPool keeps a browser per proxy server, but only the one for the most
// recently requested proxy stays open. Older browsers close as soon as their
// last page is released.
type browserPool[B closer] struct {
	mu      sync.Mutex
	launch  func(Proxy) (B, error)
	logger  Logger
	current string
	entries map[string]*pooledBrowser[B]
}

type pooledBrowser[B closer] struct {
	browser B
	refs    int
	retired bool
}

func newBrowserPool[B closer](launch func(Proxy) (B, error), logger Logger) *browserPool[B] {
	return &browserPool[B]{
		launch:  launch,
		logger:  logger,
		entries: make(map[string]*pooledBrowser[B]),
	}
}

// acquire returns the browser for proxy and a release func that must be
// called once the page opened on it is closed.
func (p *browserPool[B]) acquire(proxy Proxy) (B, func() error, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	key := proxy.Server
	entry, ok := p.entries[key]
	if !ok {
		browser, err := p.launch(proxy)
		if err != nil {
			var zero B
			return zero, nil, err
		}
		entry = &pooledBrowser[B]{browser: browser}
		p.entries[key] = entry
	}
	entry.retired = false
	entry.refs++

	if p.current != key {
		if prev, ok := p.entries[p.current]; ok {
			prev.retired = true
			if err := p.closeIdleLocked(p.current, prev); err != nil {
				p.logger.Warn("Failed to close browser for %q: %v", p.current, err)
			}
		}
		p.current = key
	}

	var once sync.Once
	release := func() error {
		var releaseErr error
		once.Do(func() {
			p.mu.Lock()
			defer p.mu.Unlock()
			entry.refs--
			releaseErr = p.closeIdleLocked(key, entry)
		})
		return releaseErr
	}
	return entry.browser, release, nil
}

func (p *browserPool[B]) closeIdleLocked(key string, entry *pooledBrowser[B]) error {
	if !entry.retired || entry.refs > 0 || p.entries[key] != entry {
		return nil
	}
	delete(p.entries, key)
	return entry.browser.Close()
}

// live reports how many browsers are open.
func (p *browserPool[B]) live() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.entries)
}

func (p *browserPool[B]) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var errs []error
	for key, entry := range p.entries {
		errs = append(errs, entry.browser.Close())
		delete(p.entries, key)
	}
	p.current = ""
	return errors.Join(errs...)
}
