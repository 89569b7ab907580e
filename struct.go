package reagentcrawler

import "time"

type Proxy struct {
	Server   string
	Username string
	Password string
}

type Viewport struct {
	Width  int
	Height int
}

type AppPreference struct {
	CheckRobotsTxt bool
}

// AutoThrottle adjusts the download delay from observed response latency.
type AutoThrottle struct {
	Enabled           bool
	StartDelay        time.Duration
	MaxDelay          time.Duration
	TargetConcurrency float64
}
