package reagentcrawler

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle paces outbound fetches for one site. The delay between fetches is
// optionally jittered and, with auto-throttle, follows observed latency.
type Throttle struct {
	mu        sync.Mutex
	limiter   *rate.Limiter
	minDelay  time.Duration
	delay     time.Duration
	randomize bool
	auto      AutoThrottle
	rnd       *rand.Rand
}

func newThrottle(eng Engine) *Throttle {
	t := &Throttle{
		minDelay:  eng.DownloadDelay,
		delay:     eng.DownloadDelay,
		randomize: eng.RandomizeDelay,
		auto:      eng.AutoThrottle,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	if t.auto.Enabled {
		if t.auto.StartDelay > t.delay {
			t.delay = t.auto.StartDelay
		}
		if t.auto.TargetConcurrency <= 0 {
			t.auto.TargetConcurrency = 1
		}
		if t.auto.MaxDelay <= 0 {
			t.auto.MaxDelay = 60 * time.Second
		}
	}
	t.limiter = rate.NewLimiter(t.limitFor(t.delay), 1)
	return t
}

func (t *Throttle) limitFor(d time.Duration) rate.Limit {
	if d <= 0 {
		return rate.Inf
	}
	return rate.Every(d)
}

// Wait blocks until the next fetch may start or ctx is done.
func (t *Throttle) Wait(ctx context.Context) error {
	t.mu.Lock()
	if t.delay > 0 && t.randomize {
		t.limiter.SetLimit(t.limitFor(jitter(t.delay, t.rnd.Float64())))
	}
	limiter := t.limiter
	t.mu.Unlock()
	return limiter.Wait(ctx)
}

// Observe feeds a response latency back into auto-throttle.
func (t *Throttle) Observe(latency time.Duration, status int) {
	if !t.auto.Enabled {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()

	next := autoThrottleDelay(t.delay, latency, status, t.auto, t.minDelay)
	if next != t.delay {
		t.delay = next
		t.limiter.SetLimit(t.limitFor(next))
	}
}

// Delay returns the current base delay.
func (t *Throttle) Delay() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.delay
}

// jitter scales d into [0.5d, 1.5d) for f in [0, 1).
func jitter(d time.Duration, f float64) time.Duration {
	return time.Duration(float64(d) * (0.5 + f))
}

// autoThrottleDelay moves the delay halfway towards latency/target. Error
// responses may only raise it.
func autoThrottleDelay(current, latency time.Duration, status int, auto AutoThrottle, floor time.Duration) time.Duration {
	target := time.Duration(float64(latency) / auto.TargetConcurrency)
	next := (current + target) / 2
	if next < target {
		next = target
	}
	if next > auto.MaxDelay {
		next = auto.MaxDelay
	}
	if next < floor {
		next = floor
	}
	if status != 0 && (status < 200 || status > 299) && next <= current {
		return current
	}
	return next
}
