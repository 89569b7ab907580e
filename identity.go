package reagentcrawler

import (
	"context"
	"fmt"
	"sync"
)

// Identity is the egress point and client fingerprint a request goes out with.
type Identity struct {
	Proxy     Proxy
	UserAgent string

	// generation of the rotation that produced this identity
	gen int
}

func (i Identity) IsDirect() bool {
	return i.Proxy.Server == ""
}

func (i Identity) String() string {
	if i.IsDirect() {
		return "direct"
	}
	return i.Proxy.Server
}

// IdentityProvider returns a fresh proxy each time it is asked.
type IdentityProvider interface {
	Fetch(ctx context.Context) (Proxy, error)
}

type rotationState int

const (
	stateDirect rotationState = iota
	stateUsing
	stateRotating
)

func (s rotationState) String() string {
	switch s {
	case stateUsing:
		return "using"
	case stateRotating:
		return "rotating"
	default:
		return "direct"
	}
}

// IdentityRotator owns the identity shared by every fetch of one site.
// Acquire reads the current identity and counts the request under one lock,
// so a threshold crossing triggers exactly one rotation.
type IdentityRotator struct {
	mu          sync.Mutex
	provider    IdentityProvider
	agents      *userAgentPool
	logger      Logger
	threshold   int
	maxAttempts int
	onExhausted func(error)

	state    rotationState
	current  Identity
	obtained bool
	tried    bool
	counter  int
	attempts int
}

func NewIdentityRotator(provider IdentityProvider, threshold, maxAttempts int, agents []string, logger Logger) *IdentityRotator {
	if threshold <= 0 {
		threshold = 50
	}
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	pool := newUserAgentPool(agents)
	return &IdentityRotator{
		provider:    provider,
		agents:      pool,
		logger:      logger,
		threshold:   threshold,
		maxAttempts: maxAttempts,
		current:     Identity{UserAgent: pool.next()},
	}
}

// OnExhausted registers fn to run, under the rotator lock, each time a
// rotation gives up after maxAttempts.
func (r *IdentityRotator) OnExhausted(fn func(error)) *IdentityRotator {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.onExhausted = fn
	return r
}

// Acquire returns the identity the next request must use. The first request
// asks the provider for an identity; after that rotation only happens every
// threshold requests, also while the rotator has fallen back to direct.
func (r *IdentityRotator) Acquire(ctx context.Context) Identity {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.counter++
	if r.provider != nil && (!r.tried || r.counter >= r.threshold) {
		r.rotateLocked(ctx)
	}
	if r.state == stateDirect && r.obtained {
		r.state = stateUsing
	}
	return r.current
}

// ReportFailure forces a rotation when failed is still the current identity.
// Concurrent reports about the same identity rotate once, even when the
// rotation could not replace it.
func (r *IdentityRotator) ReportFailure(ctx context.Context, failed Identity) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.provider == nil || failed.gen != r.current.gen || failed.Proxy != r.current.Proxy {
		return
	}
	r.logger.Warn("Identity %s reported as failing, rotating", failed)
	r.rotateLocked(ctx)
}

func (r *IdentityRotator) rotateLocked(ctx context.Context) {
	previous := r.state
	r.state = stateRotating
	r.attempts++
	r.tried = true
	defer func() { r.counter = 0 }()

	var lastErr error
	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			lastErr = err
			break
		}
		proxy, err := r.provider.Fetch(ctx)
		if err == nil && proxy.Server != "" {
			r.current = Identity{Proxy: proxy, UserAgent: r.agents.next(), gen: r.attempts}
			r.obtained = true
			r.state = stateUsing
			r.logger.Info("Rotated identity to %s", r.current)
			return
		}
		if err == nil {
			err = fmt.Errorf("provider returned an empty proxy")
		}
		lastErr = err
		r.logger.Debug("Identity fetch attempt %d/%d failed: %v", attempt, r.maxAttempts, err)
	}

	r.current.gen = r.attempts
	err := fmt.Errorf("%w: %v", ErrIdentityExhaustion, lastErr)
	if r.onExhausted != nil {
		r.onExhausted(err)
	}
	if r.obtained {
		r.state = stateUsing
		r.logger.Warn("Degraded: %v, keeping %s", err, r.current)
		return
	}
	r.state = previous
	if r.state == stateRotating {
		r.state = stateDirect
	}
	r.logger.Warn("Degraded: %v, continuing without proxy", err)
}

// Current returns the identity without counting a request.
func (r *IdentityRotator) Current() Identity {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

// Rotations returns how many rotation attempts have run.
func (r *IdentityRotator) Rotations() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.attempts
}

func (r *IdentityRotator) State() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state.String()
}
