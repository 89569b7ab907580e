package reagentcrawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingProvider struct {
	calls atomic.Int64
	fail  bool
}

func (p *countingProvider) Fetch(context.Context) (Proxy, error) {
	n := p.calls.Add(1)
	if p.fail {
		return Proxy{}, errors.New("upstream down")
	}
	return Proxy{Server: fmt.Sprintf("http://10.0.0.%d:8080", n)}, nil
}

func TestIdentityRotatorThreshold(t *testing.T) {
	provider := &countingProvider{}
	r := NewIdentityRotator(provider, 10, 3, nil, testLogger("identity"))

	for i := 0; i < 50; i++ {
		r.Acquire(context.Background())
	}
	assert.EqualValues(t, 5, provider.calls.Load())
	assert.Equal(t, 5, r.Rotations())
	assert.Equal(t, "using", r.State())
}

func TestIdentityRotatorConcurrentAcquire(t *testing.T) {
	provider := &countingProvider{}
	r := NewIdentityRotator(provider, 10, 3, nil, testLogger("identity"))

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := r.Acquire(context.Background())
			assert.False(t, id.IsDirect())
		}()
	}
	wg.Wait()
	assert.EqualValues(t, 5, provider.calls.Load())
}

func TestIdentityRotatorWithoutProviderIsDirect(t *testing.T) {
	r := NewIdentityRotator(nil, 10, 3, []string{"agent-a"}, testLogger("identity"))
	for i := 0; i < 20; i++ {
		id := r.Acquire(context.Background())
		assert.True(t, id.IsDirect())
		assert.Equal(t, "agent-a", id.UserAgent)
	}
	assert.Equal(t, 0, r.Rotations())
	assert.Equal(t, "direct", r.State())
}

func TestIdentityRotatorExhaustionFallsBackToDirect(t *testing.T) {
	provider := &countingProvider{fail: true}
	r := NewIdentityRotator(provider, 10, 3, nil, testLogger("identity"))

	id := r.Acquire(context.Background())
	assert.True(t, id.IsDirect())
	assert.EqualValues(t, 3, provider.calls.Load())
	assert.Equal(t, "direct", r.State())

	for i := 0; i < 9; i++ {
		assert.True(t, r.Acquire(context.Background()).IsDirect())
	}
	assert.EqualValues(t, 3, provider.calls.Load())
	assert.Equal(t, 1, r.Rotations())

	// The next threshold window retries the provider.
	r.Acquire(context.Background())
	assert.EqualValues(t, 6, provider.calls.Load())
	assert.Equal(t, "direct", r.State())
}

func TestIdentityRotatorDirectRetriesOncePerWindow(t *testing.T) {
	provider := &countingProvider{fail: true}
	exhausted := 0
	r := NewIdentityRotator(provider, 10, 3, nil, testLogger("identity")).
		OnExhausted(func(error) { exhausted++ })

	for i := 0; i < 30; i++ {
		r.Acquire(context.Background())
	}
	assert.EqualValues(t, 9, provider.calls.Load())
	assert.Equal(t, 3, r.Rotations())
	assert.Equal(t, 3, exhausted)
}

func TestIdentityRotatorRecoversFromDirect(t *testing.T) {
	provider := &countingProvider{fail: true}
	r := NewIdentityRotator(provider, 5, 2, nil, testLogger("identity"))

	require.True(t, r.Acquire(context.Background()).IsDirect())
	provider.fail = false
	for i := 0; i < 4; i++ {
		assert.True(t, r.Acquire(context.Background()).IsDirect())
	}
	id := r.Acquire(context.Background())
	assert.False(t, id.IsDirect())
	assert.Equal(t, "using", r.State())
}

func TestIdentityRotatorDirectFailureReportsRotateOnce(t *testing.T) {
	provider := &countingProvider{fail: true}
	r := NewIdentityRotator(provider, 100, 3, nil, testLogger("identity"))

	failed := r.Acquire(context.Background())
	require.EqualValues(t, 3, provider.calls.Load())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.ReportFailure(context.Background(), failed)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 6, provider.calls.Load())
	assert.Equal(t, 2, r.Rotations())
	assert.True(t, r.Current().IsDirect())
}

func TestIdentityRotatorExhaustionKeepsCurrent(t *testing.T) {
	provider := &countingProvider{}
	r := NewIdentityRotator(provider, 2, 2, nil, testLogger("identity"))

	first := r.Acquire(context.Background())
	require.False(t, first.IsDirect())

	provider.fail = true
	r.Acquire(context.Background())
	got := r.Acquire(context.Background())
	assert.Equal(t, first.Proxy, got.Proxy)
	assert.Equal(t, "using", r.State())
}

func TestIdentityRotatorReportFailureRotatesOnce(t *testing.T) {
	provider := &countingProvider{}
	r := NewIdentityRotator(provider, 100, 3, nil, testLogger("identity"))

	failed := r.Acquire(context.Background())
	require.EqualValues(t, 1, provider.calls.Load())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.ReportFailure(context.Background(), failed)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 2, provider.calls.Load())
	assert.NotEqual(t, failed.Proxy, r.Current().Proxy)
}

func TestIdentityRotatorUserAgentPerIdentity(t *testing.T) {
	provider := &countingProvider{}
	r := NewIdentityRotator(provider, 1, 1, []string{"a", "b"}, testLogger("identity"))

	seen := map[string]bool{}
	for i := 0; i < 4; i++ {
		seen[r.Acquire(context.Background()).UserAgent] = true
	}
	assert.Len(t, seen, 2)
}

func TestIdentityRotatorReportsExhaustion(t *testing.T) {
	var got []error
	r := NewIdentityRotator(&countingProvider{fail: true}, 10, 2, nil, testLogger("identity")).
		OnExhausted(func(err error) { got = append(got, err) })

	r.Acquire(context.Background())
	require.Len(t, got, 1)
	assert.ErrorIs(t, got[0], ErrIdentityExhaustion)
}
