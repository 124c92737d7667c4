package event

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"
	"time"
)

const (
	defaultPoolSize = 10000
	defaultTimeout  = 30 * time.Second
)

type Event interface {
	Name() string
}

type Handler func(ctx context.Context, e Event) error

// Bus is an in-memory event bus. The room core publishes on it after a state
// transition commits; subscribers (journal, leaderboard mirror, notification
// fan-out) run asynchronously and never feed back into the core.
type Bus struct {
	pool     chan struct{}
	wg       *sync.WaitGroup
	mu       sync.RWMutex
	handlers map[string][]Handler
}

// NewBus creates a new event bus. Caller should call Stop for graceful shutdown of the bus.
func NewBus(opts ...BusOption) *Bus {
	b := &Bus{
		wg:       new(sync.WaitGroup),
		handlers: make(map[string][]Handler),
	}

	size := defaultPoolSize
	for _, opt := range opts {
		opt(b, &size)
	}
	b.pool = make(chan struct{}, size)

	return b
}

type BusOption func(b *Bus, poolSize *int)

// WithPoolSize bounds the number of in-flight handler goroutines.
func WithPoolSize(n int) BusOption {
	return func(_ *Bus, poolSize *int) {
		if n > 0 {
			*poolSize = n
		}
	}
}

// Subscribe to an event by name.
func (b *Bus) Subscribe(name string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.handlers[name] = append(b.handlers[name], h)
}

// SubscribeAll subscribes the handler to every listed event name.
func (b *Bus) SubscribeAll(names []string, h Handler) {
	for _, name := range names {
		b.Subscribe(name, h)
	}
}

// Publish an event to all subscribed handlers.
func (b *Bus) Publish(ctx context.Context, e Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, h := range b.handlers[e.Name()] {
		b.dispatch(ctx, h, e)
	}
}

func (b *Bus) dispatch(ctx context.Context, h Handler, e Event) {
	b.wg.Add(1)

	b.pool <- struct{}{}

	go func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultTimeout)
		defer func() {
			if r := recover(); r != nil {
				slog.ErrorContext(ctx, "event: handler panic",
					"event", e.Name(),
					"error", fmt.Errorf("%v, stack: %s", r, debug.Stack()),
				)
			}

			cancel()
			<-b.pool
			b.wg.Done()
		}()

		if err := h(ctx, e); err != nil {
			slog.ErrorContext(ctx, "event: handle event failed",
				"event", e.Name(),
				"error", err,
			)
		}
	}()
}

// Stop waits for all in-flight handlers to finish.
func (b *Bus) Stop() {
	b.wg.Wait()
}
