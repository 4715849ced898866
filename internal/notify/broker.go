// Package notify fans classification changes out to subscribers and external sinks
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/theopenlane/detectify/internal/types"
)

const (
	// defaultBuffer is the per-subscriber channel size
	defaultBuffer = 64
	// defaultSinkTimeout bounds one sink delivery
	defaultSinkTimeout = 10 * time.Second
)

// Sink receives every published event
type Sink interface {
	Name() string
	Notify(ctx context.Context, ev types.Event) error
}

// Broker delivers events to in-process subscribers and registered sinks. Delivery is best
// effort: a full subscriber channel drops the event, so consumers must treat events as hints and
// read final state with a point lookup
type Broker struct {
	mu          sync.RWMutex
	subscribers map[uint64]chan types.Event
	next        uint64
	closed      bool
	sinks       []Sink
	sinkTimeout time.Duration
	wg          sync.WaitGroup
}

// BrokerOption configures a Broker
type BrokerOption func(*Broker)

// WithSinks registers external sinks
func WithSinks(sinks ...Sink) BrokerOption {
	return func(b *Broker) {
		for _, s := range sinks {
			if s != nil {
				b.sinks = append(b.sinks, s)
			}
		}
	}
}

// WithSinkTimeout bounds each sink delivery
func WithSinkTimeout(timeout time.Duration) BrokerOption {
	return func(b *Broker) {
		if timeout > 0 {
			b.sinkTimeout = timeout
		}
	}
}

// NewBroker creates a broker
func NewBroker(opts ...BrokerOption) *Broker {
	b := &Broker{
		subscribers: make(map[uint64]chan types.Event),
		sinkTimeout: defaultSinkTimeout,
	}

	for _, opt := range opts {
		opt(b)
	}

	return b
}

// Subscribe registers a subscriber. The returned cancel function unsubscribes and closes the
// channel; it is safe to call more than once
func (b *Broker) Subscribe(buffer int) (<-chan types.Event, func(), error) {
	if buffer <= 0 {
		buffer = defaultBuffer
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return nil, nil, ErrBrokerClosed
	}

	id := b.next
	b.next++

	ch := make(chan types.Event, buffer)
	b.subscribers[id] = ch

	var once sync.Once

	cancel := func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			if sub, ok := b.subscribers[id]; ok {
				delete(b.subscribers, id)
				close(sub)
			}
		})
	}

	return ch, cancel, nil
}

// Publish delivers ev to every subscriber without blocking and hands it to each sink in the
// background
func (b *Broker) Publish(ctx context.Context, ev types.Event) {
	if ev.UpdatedAt.IsZero() {
		ev.UpdatedAt = time.Now().UTC()
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for id, ch := range b.subscribers {
		select {
		case ch <- ev:
		default:
			log.Warn().Uint64("subscriber", id).Str("url", ev.URL).Str("kind", string(ev.Kind)).Msg("subscriber full, dropping event")
		}
	}

	for _, sink := range b.sinks {
		b.wg.Add(1)

		go b.deliver(context.WithoutCancel(ctx), sink, ev)
	}
}

func (b *Broker) deliver(ctx context.Context, sink Sink, ev types.Event) {
	defer b.wg.Done()

	ctx, cancel := context.WithTimeout(ctx, b.sinkTimeout)
	defer cancel()

	if err := sink.Notify(ctx, ev); err != nil {
		log.Error().Err(err).Str("sink", sink.Name()).Str("url", ev.URL).Msg("sink delivery failed")
	}
}

// Subscribers returns the number of active subscribers
func (b *Broker) Subscribers() int {
	b.mu.RLock()
	defer b.mu.RUnlock()

	return len(b.subscribers)
}

// Flush waits for in-flight sink deliveries
func (b *Broker) Flush() {
	b.wg.Wait()
}

// Close unsubscribes everyone and waits for sink deliveries to finish
func (b *Broker) Close() {
	b.mu.Lock()

	if !b.closed {
		b.closed = true

		for id, ch := range b.subscribers {
			delete(b.subscribers, id)
			close(ch)
		}
	}

	b.mu.Unlock()

	b.wg.Wait()
}
