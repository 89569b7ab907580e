package reagentcrawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingSink struct {
	mu     sync.Mutex
	urls   []string
	closed bool
	delay  time.Duration
	err    error
}

func (s *recordingSink) Name() string { return "recording" }

func (s *recordingSink) Write(_ context.Context, item CrawlItem) error {
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.urls = append(s.urls, item.URL)
	return s.err
}

func (s *recordingSink) Close(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func TestEmitterDeliversEverything(t *testing.T) {
	sink := &recordingSink{delay: time.Millisecond}
	e := NewEmitter(testLogger("emitter"), sink)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			assert.True(t, e.Emit(CrawlItem{URL: fmt.Sprintf("https://vendor.test/p/%d", i)}))
		}()
	}
	wg.Wait()
	require.NoError(t, e.Close(context.Background()))

	assert.Len(t, sink.urls, 50)
	assert.ElementsMatch(t, sink.urls, uniqueStrings(sink.urls))
	assert.True(t, sink.closed)
	assert.EqualValues(t, 50, e.Accepted())
}

func TestEmitterRejectsAfterClose(t *testing.T) {
	sink := &recordingSink{}
	e := NewEmitter(testLogger("emitter"), sink)
	require.NoError(t, e.Close(context.Background()))

	assert.False(t, e.Emit(CrawlItem{URL: "https://vendor.test/late"}))
	assert.Empty(t, sink.urls)
	assert.NoError(t, e.Close(context.Background()))
}

func TestEmitterSinkFailureDoesNotStopOthers(t *testing.T) {
	broken := &recordingSink{err: errors.New("disk full")}
	healthy := &recordingSink{}
	e := NewEmitter(testLogger("emitter"), broken, healthy)

	e.Emit(CrawlItem{URL: "https://vendor.test/p/1"})
	e.Emit(CrawlItem{URL: "https://vendor.test/p/2"})
	require.NoError(t, e.Close(context.Background()))

	assert.Len(t, healthy.urls, 2)
	assert.EqualValues(t, 2, e.Failures())
}

func TestEmitterCloseHonoursContext(t *testing.T) {
	slow := &recordingSink{delay: 200 * time.Millisecond}
	e := NewEmitter(testLogger("emitter"), slow)
	for i := 0; i < 5; i++ {
		e.Emit(CrawlItem{URL: fmt.Sprintf("https://vendor.test/p/%d", i)})
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, e.Close(ctx), context.DeadlineExceeded)
}
