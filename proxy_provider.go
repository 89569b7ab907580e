package reagentcrawler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"
)

const defaultProxyProviderURL = "https://gimmeproxy.com/api/getProxy?protocol=http&supportsHttps=true&anonymityLevel=elite"

var errNoProxies = errors.New("proxy pool is empty")

// ProxyPool serves a static list of proxies round-robin.
type ProxyPool struct {
	proxies []Proxy
	mu      sync.Mutex
	current int
}

func newProxyPool(proxies []Proxy) *ProxyPool {
	return &ProxyPool{proxies: proxies}
}

func (p *ProxyPool) Fetch(_ context.Context) (Proxy, error) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.proxies) == 0 {
		return Proxy{}, errNoProxies
	}

	proxy := p.proxies[p.current]
	p.current = (p.current + 1) % len(p.proxies)
	return proxy, nil
}

// GimmeProxyProvider asks an upstream JSON endpoint for a fresh proxy.
// The response must carry an "ipPort" field.
type GimmeProxyProvider struct {
	Endpoint string
	Client   *http.Client
}

func NewGimmeProxyProvider(endpoint string) *GimmeProxyProvider {
	if endpoint == "" || endpoint == "gimmeproxy" {
		endpoint = defaultProxyProviderURL
	}
	return &GimmeProxyProvider{
		Endpoint: endpoint,
		Client:   &http.Client{Timeout: 10 * time.Second},
	}
}

type gimmeProxyResponse struct {
	IPPort   string `json:"ipPort"`
	Protocol string `json:"protocol"`
}

func (g *GimmeProxyProvider) Fetch(ctx context.Context) (Proxy, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.Endpoint, nil)
	if err != nil {
		return Proxy{}, fmt.Errorf("failed to create proxy request: %w", err)
	}
	resp, err := g.Client.Do(req)
	if err != nil {
		return Proxy{}, fmt.Errorf("failed to fetch proxy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Proxy{}, fmt.Errorf("proxy provider responded with %d", resp.StatusCode)
	}
	var body gimmeProxyResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Proxy{}, fmt.Errorf("failed to decode proxy response: %w", err)
	}
	if body.IPPort == "" {
		return Proxy{}, errors.New("proxy response has no ipPort")
	}
	return Proxy{Server: "http://" + body.IPPort}, nil
}

// newIdentityProvider picks the upstream provider over the static pool.
func newIdentityProvider(eng Engine) IdentityProvider {
	if eng.ProxyProvider != "" {
		return NewGimmeProxyProvider(eng.ProxyProvider)
	}
	if len(eng.ProxyServers) > 0 {
		return newProxyPool(eng.ProxyServers)
	}
	return nil
}
