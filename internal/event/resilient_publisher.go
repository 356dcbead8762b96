package event

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/osse101/BrandishDuels_Go/internal/logger"
)

type retryEntry struct {
	event   Event
	attempt int
	lastErr error
}

// ResilientPublisher wraps a Bus with background retries and a dead-letter file.
// A failed publish never reaches the caller; it is retried with exponential backoff
// and written to the dead-letter file once maxRetries is exhausted.
type ResilientPublisher struct {
	bus        Bus
	retryQueue chan retryEntry
	maxRetries int
	retryDelay time.Duration
	shutdown   chan struct{}
	deadLetter *DeadLetterWriter
	clock      clockwork.Clock
	wg         sync.WaitGroup
	closeOnce  sync.Once
}

// PublisherOption customizes a ResilientPublisher
type PublisherOption func(*ResilientPublisher)

// WithPublisherClock replaces the wall clock used for backoff waits
func WithPublisherClock(c clockwork.Clock) PublisherOption {
	return func(p *ResilientPublisher) { p.clock = c }
}

// WithQueueSize overrides the retry queue buffer size
func WithQueueSize(n int) PublisherOption {
	return func(p *ResilientPublisher) { p.retryQueue = make(chan retryEntry, n) }
}

// NewResilientPublisher creates a publisher and starts its retry worker
func NewResilientPublisher(bus Bus, maxRetries int, retryDelay time.Duration, deadLetterPath string, opts ...PublisherOption) (*ResilientPublisher, error) {
	dl, err := NewDeadLetterWriter(deadLetterPath)
	if err != nil {
		return nil, err
	}

	p := &ResilientPublisher{
		bus:        bus,
		retryQueue: make(chan retryEntry, RetryQueueBufferSize),
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		shutdown:   make(chan struct{}),
		deadLetter: dl,
		clock:      clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(p)
	}

	p.wg.Add(1)
	go p.retryWorker()
	return p, nil
}

// Publish implements Bus. Delivery failures are absorbed by the retry queue.
func (p *ResilientPublisher) Publish(ctx context.Context, evt Event) error {
	p.PublishWithRetry(ctx, evt)
	return nil
}

// Subscribe implements Bus by delegating to the wrapped bus
func (p *ResilientPublisher) Subscribe(eventType Type, handler Handler) {
	p.bus.Subscribe(eventType, handler)
}

// PublishWithRetry publishes once and queues the event for retry on failure
func (p *ResilientPublisher) PublishWithRetry(ctx context.Context, evt Event) {
	err := p.bus.Publish(ctx, evt)
	if err == nil {
		return
	}

	logger.FromContext(ctx).Warn(LogMsgEventPublishFailed, "event_type", evt.Type, "error", err)
	p.enqueue(retryEntry{event: evt, attempt: 1, lastErr: err})
}

func (p *ResilientPublisher) enqueue(entry retryEntry) {
	select {
	case <-p.shutdown:
		p.writeDeadLetter(entry)
		return
	default:
	}

	select {
	case p.retryQueue <- entry:
	default:
		logger.Error(LogMsgRetryQueueFull, "event_type", entry.event.Type)
		p.writeDeadLetter(entry)
	}
}

func (p *ResilientPublisher) retryWorker() {
	defer p.wg.Done()

	for {
		var entry retryEntry
		select {
		case <-p.shutdown:
			return
		case entry = <-p.retryQueue:
		}

		select {
		case <-p.shutdown:
			p.writeDeadLetter(entry)
			return
		case <-p.clock.After(CalculateRetryDelay(p.retryDelay, entry.attempt)):
		}

		err := p.bus.Publish(context.Background(), entry.event)
		if err == nil {
			logger.Info(LogMsgEventRetrySucceeded, "event_type", entry.event.Type, "attempt", entry.attempt)
			continue
		}

		entry.lastErr = err
		if entry.attempt >= p.maxRetries {
			logger.Error(LogMsgEventRetryExhausted, "event_type", entry.event.Type, "attempts", entry.attempt, "error", err)
			p.writeDeadLetter(entry)
			continue
		}

		logger.Warn(LogMsgEventRetryFailed, "event_type", entry.event.Type, "attempt", entry.attempt, "error", err)
		entry.attempt++
		p.enqueue(entry)
	}
}

func (p *ResilientPublisher) writeDeadLetter(entry retryEntry) {
	if err := p.deadLetter.Write(entry.event, entry.attempt, entry.lastErr); err != nil {
		logger.Error(LogMsgDeadLetterWriteFailed, "event_type", entry.event.Type, "error", err)
	}
}

// Shutdown stops the retry worker, dead-letters anything still queued and closes the file.
// It returns ctx.Err() if the worker does not stop in time.
func (p *ResilientPublisher) Shutdown(ctx context.Context) error {
	p.closeOnce.Do(func() { close(p.shutdown) })

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		logger.Warn(LogMsgShutdownTimeout)
		return ctx.Err()
	}

	drained := 0
	for {
		select {
		case entry := <-p.retryQueue:
			p.writeDeadLetter(entry)
			drained++
			continue
		default:
		}
		break
	}
	if drained > 0 {
		logger.Info(LogMsgQueueDrainedShutdown, "count", drained)
	}
	return p.deadLetter.Close()
}
