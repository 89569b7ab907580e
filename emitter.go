package reagentcrawler

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
)

// Sink persists finished items. Write is called once per item, from a single goroutine.
type Sink interface {
	Name() string
	Write(ctx context.Context, item CrawlItem) error
	Close(ctx context.Context) error
}

// Emitter hands items to sinks in the background. Emit never blocks on a
// sink and never drops an accepted item.
type Emitter struct {
	mu     sync.Mutex
	queue  []CrawlItem
	closed bool
	wake   chan struct{}
	done   chan struct{}

	sinks    []Sink
	logger   Logger
	accepted atomic.Int64
	failures atomic.Int64
}

func NewEmitter(logger Logger, sinks ...Sink) *Emitter {
	e := &Emitter{
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		sinks:  sinks,
		logger: logger,
	}
	go e.run()
	return e
}

// Emit queues item and returns false once the emitter is closed.
func (e *Emitter) Emit(item CrawlItem) bool {
	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return false
	}
	e.queue = append(e.queue, item)
	e.mu.Unlock()
	e.accepted.Add(1)

	select {
	case e.wake <- struct{}{}:
	default:
	}
	return true
}

func (e *Emitter) run() {
	defer close(e.done)
	ctx := context.Background()
	for {
		<-e.wake
		for {
			e.mu.Lock()
			batch := e.queue
			e.queue = nil
			closed := e.closed
			e.mu.Unlock()

			if len(batch) == 0 {
				if closed {
					return
				}
				break
			}
			for _, item := range batch {
				e.deliver(ctx, item)
			}
		}
	}
}

func (e *Emitter) deliver(ctx context.Context, item CrawlItem) {
	for _, sink := range e.sinks {
		if err := sink.Write(ctx, item); err != nil {
			e.failures.Add(1)
			e.logger.Error("Sink %s failed for %s: %v", sink.Name(), item.URL, err)
		}
	}
}

// Close drains the queue and closes every sink.
func (e *Emitter) Close(ctx context.Context) error {
	e.mu.Lock()
	alreadyClosed := e.closed
	e.closed = true
	e.mu.Unlock()
	if alreadyClosed {
		return nil
	}
	select {
	case e.wake <- struct{}{}:
	default:
	}

	select {
	case <-e.done:
	case <-ctx.Done():
		return fmt.Errorf("emitter drain interrupted: %w", ctx.Err())
	}

	var errs []error
	for _, sink := range e.sinks {
		if err := sink.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (e *Emitter) Accepted() int64 { return e.accepted.Load() }

func (e *Emitter) Failures() int64 { return e.failures.Load() }
