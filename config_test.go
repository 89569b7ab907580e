package reagentcrawler

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDuration(t *testing.T) {
	cases := map[string]time.Duration{
		"60":    time.Minute,
		"2.5":   2500 * time.Millisecond,
		"90s":   90 * time.Second,
		"1m30s": 90 * time.Second,
	}
	for in, want := range cases {
		got, err := parseDuration(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := parseDuration("soon")
	assert.Error(t, err)
}

func TestApplyConfigSitePrefixWins(t *testing.T) {
	cfg := testConfig(map[string]string{
		"CONCURRENT_LIMIT":           "4",
		"GENSCRIPT_CONCURRENT_LIMIT": "1",
		"DOWNLOAD_DELAY":             "5",
		"RETRY_HTTP_CODES":           "429, 503",
		"PROXY_SERVERS":              "http://a:1,http://b:2",
		"BLOCKED_URLS":               "tracker.test",
		"ADAPTER":                    "rod",
	})
	eng := getDefaultEngine()
	require.NoError(t, cfg.applyConfig("genscript", &eng))

	assert.Equal(t, 1, eng.ConcurrentLimit)
	assert.Equal(t, 5*time.Second, eng.DownloadDelay)
	assert.Equal(t, []int{429, 503}, eng.ErrorCodes)
	assert.Equal(t, []Proxy{{Server: "http://a:1"}, {Server: "http://b:2"}}, eng.ProxyServers)
	assert.Contains(t, eng.BlockedURLs, "tracker.test")
	assert.Contains(t, eng.BlockedURLs, "doubleclick.net")
	assert.Equal(t, AdapterRod, eng.Adapter)

	other := getDefaultEngine()
	require.NoError(t, cfg.applyConfig("novusbio", &other))
	assert.Equal(t, 4, other.ConcurrentLimit)
}

func TestApplyConfigRejectsGarbage(t *testing.T) {
	eng := getDefaultEngine()
	assert.Error(t, testConfig(map[string]string{"PAGE_CAP": "many"}).applyConfig("x", &eng))
	assert.Error(t, testConfig(map[string]string{"RETRY_HTTP_CODES": "429,slow"}).applyConfig("x", &eng))
	assert.Error(t, testConfig(map[string]string{"DOWNLOAD_DELAY": "later"}).applyConfig("x", &eng))
}

func TestEnvString(t *testing.T) {
	cfg := testConfig(map[string]string{"SINKS": "csv,mongo"})
	assert.Equal(t, "csv,mongo", cfg.EnvString("SINKS"))
	assert.Equal(t, "fallback", cfg.EnvString("MISSING", "fallback"))
	assert.Equal(t, []string{"csv", "mongo"}, cfg.GetStringList("SINKS"))
}

func TestOverrideEngineDefaults(t *testing.T) {
	eng := getDefaultEngine()
	overrideEngineDefaults(&eng, &Engine{
		PageCap:        601,
		DownloadDelay:  time.Minute,
		RandomizeDelay: true,
		BlockedURLs:    []string{"bam.nr-data.net"},
		Headers:        map[string]string{"Accept-Language": "en-US,en;q=0.9"},
		Viewport:       &Viewport{Width: 1920, Height: 1080},
	})

	assert.Equal(t, 601, eng.PageCap)
	assert.Equal(t, time.Minute, eng.DownloadDelay)
	assert.True(t, eng.RandomizeDelay)
	assert.Equal(t, AdapterPlaywright, eng.Adapter)
	assert.Equal(t, 1, eng.ConcurrentLimit)
	assert.Contains(t, eng.BlockedURLs, "bam.nr-data.net")
	assert.Contains(t, eng.BlockedURLs, "www.googletagmanager.com")
	assert.Equal(t, "en-US,en;q=0.9", eng.Headers["Accept-Language"])
	assert.Equal(t, 1920, eng.Viewport.Width)
}

func TestEngineUserAgent(t *testing.T) {
	assert.Equal(t, defaultUserAgent, (&Engine{}).userAgent())
	assert.Equal(t, "bot/1.0", (&Engine{UserAgents: []string{"bot/1.0"}}).userAgent())
}
