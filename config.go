package reagentcrawler

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// configService wraps viper for .env and environment lookups.
type configService struct {
	v *viper.Viper
}

func newConfig() *configService {
	v := viper.New()
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/")
	v.AllowEmptyEnv(true)
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("Error reading Config file: %v\n", err)
	}

	return &configService{v: v}
}

func newConfigFrom(v *viper.Viper) *configService {
	return &configService{v: v}
}

// Env retrieves a configuration value from environment variables.
func (c *configService) Env(envName string, defaultValue ...interface{}) interface{} {
	value := c.v.Get(envName)
	if value != nil {
		return value
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return nil
}

func (c *configService) EnvString(envName string, defaultValue ...string) string {
	value := c.v.Get(envName)
	if value != nil {
		return fmt.Sprint(value)
	}

	if len(defaultValue) > 0 {
		return defaultValue[0]
	}

	return ""
}

// Add adds a configuration to the application.
func (c *configService) Add(name string, configuration interface{}) {
	c.v.Set(name, configuration)
}

func (c *configService) GetString(path string) string {
	return c.v.GetString(path)
}

func (c *configService) GetInt(path string) int {
	return c.v.GetInt(path)
}

func (c *configService) GetBool(path string) bool {
	return c.v.GetBool(path)
}

func (c *configService) GetStringList(path string) []string {
	return splitList(c.v.GetString(path))
}

// siteValue looks up SITE_KEY first, then KEY.
func (c *configService) siteValue(site, key string) (string, bool) {
	if site != "" {
		prefixed := strings.ToUpper(strings.ReplaceAll(site, "-", "_")) + "_" + key
		if c.v.IsSet(prefixed) {
			if s := strings.TrimSpace(c.v.GetString(prefixed)); s != "" {
				return s, true
			}
		}
	}
	if c.v.IsSet(key) {
		if s := strings.TrimSpace(c.v.GetString(key)); s != "" {
			return s, true
		}
	}
	return "", false
}

func (c *configService) siteInt(site, key string, dst *int) error {
	s, ok := c.siteValue(site, key)
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return fmt.Errorf("config %s: %w", key, err)
	}
	*dst = n
	return nil
}

func (c *configService) siteDuration(site, key string, dst *time.Duration) error {
	s, ok := c.siteValue(site, key)
	if !ok {
		return nil
	}
	d, err := parseDuration(s)
	if err != nil {
		return fmt.Errorf("config %s: %w", key, err)
	}
	*dst = d
	return nil
}

// parseDuration accepts Go duration strings and bare numbers of seconds.
func parseDuration(s string) (time.Duration, error) {
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return time.Duration(f * float64(time.Second)), nil
	}
	return time.ParseDuration(s)
}

// applyConfig overrides engine knobs with configured values.
func (c *configService) applyConfig(site string, eng *Engine) error {
	ints := map[string]*int{
		"CONCURRENT_LIMIT":         &eng.ConcurrentLimit,
		"PARTITION_CONCURRENCY":    &eng.PartitionConcurrency,
		"PAGE_CAP":                 &eng.PageCap,
		"ROTATE_EVERY":             &eng.RotateEvery,
		"MAX_PROXY_FETCH_ATTEMPTS": &eng.MaxProxyFetchAttempts,
		"RETRY_TIMES":              &eng.MaxRetryAttempts,
		"CRAWL_LIMIT":              &eng.DevCrawlLimit,
	}
	for key, dst := range ints {
		if err := c.siteInt(site, key, dst); err != nil {
			return err
		}
	}
	durations := map[string]*time.Duration{
		"DOWNLOAD_DELAY":     &eng.DownloadDelay,
		"NAVIGATION_TIMEOUT": &eng.Timeout,
		"SELECTOR_TIMEOUT":   &eng.SelectorTimeout,
		"AUTOTHROTTLE_MAX":   &eng.AutoThrottle.MaxDelay,
	}
	for key, dst := range durations {
		if err := c.siteDuration(site, key, dst); err != nil {
			return err
		}
	}
	if s, ok := c.siteValue(site, "RETRY_HTTP_CODES"); ok {
		var codes []int
		for _, part := range splitList(s) {
			code, err := strconv.Atoi(part)
			if err != nil {
				return fmt.Errorf("config RETRY_HTTP_CODES: %w", err)
			}
			codes = append(codes, code)
		}
		eng.ErrorCodes = codes
	}
	if s, ok := c.siteValue(site, "PROXY_SERVERS"); ok {
		eng.ProxyServers = eng.ProxyServers[:0]
		for _, server := range splitList(s) {
			eng.ProxyServers = append(eng.ProxyServers, Proxy{Server: server})
		}
	}
	if s, ok := c.siteValue(site, "PROXY_PROVIDER"); ok {
		eng.ProxyProvider = s
	}
	if s, ok := c.siteValue(site, "ADAPTER"); ok {
		eng.Adapter = s
	}
	if s, ok := c.siteValue(site, "BLOCKED_URLS"); ok {
		eng.BlockedURLs = append(eng.BlockedURLs, splitList(s)...)
	}
	if s, ok := c.siteValue(site, "STORE_HTML"); ok {
		eng.StoreHtml, _ = strconv.ParseBool(s)
	}
	return nil
}
