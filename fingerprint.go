package reagentcrawler

import "sync"

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/122.0.0.0 Safari/537.36"

// stealthScript hides the most common automation tells before any page script runs.
const stealthScript = `
Object.defineProperty(navigator, 'webdriver', {get: () => undefined});
window.chrome = {runtime: {}};
Object.defineProperty(navigator, 'languages', {get: () => ['en-US', 'en']});
Object.defineProperty(navigator, 'plugins', {get: () => [1, 2, 3, 4, 5]});
`

// userAgentPool hands out user agents round-robin, one per new identity.
type userAgentPool struct {
	mu      sync.Mutex
	agents  []string
	current int
}

func newUserAgentPool(agents []string) *userAgentPool {
	if len(agents) == 0 {
		agents = []string{defaultUserAgent}
	}
	return &userAgentPool{agents: agents}
}

func (p *userAgentPool) next() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	ua := p.agents[p.current]
	p.current = (p.current + 1) % len(p.agents)
	return ua
}
