// Package pubsub provides a generic publish/subscribe broker used to fan
// worker and log events out to console surfaces. Publishing never blocks;
// a subscriber that falls behind loses events rather than stalling the
// publisher.
package pubsub

import (
	"context"
	"sync"
)

const defaultBufferSize = 64

// Broker fans published values out to any number of subscribers. Payloads
// carry their own metadata; the broker adds none.
type Broker[T any] struct {
	mu     sync.RWMutex
	subs   map[uint64]chan T
	nextID uint64
	closed bool
	buffer int
}

// NewBroker creates a broker with the default subscriber buffer (64).
func NewBroker[T any]() *Broker[T] {
	return NewBrokerWithBuffer[T](defaultBufferSize)
}

// NewBrokerWithBuffer creates a broker with a custom subscriber buffer size.
func NewBrokerWithBuffer[T any](size int) *Broker[T] {
	if size <= 0 {
		size = defaultBufferSize
	}
	return &Broker[T]{
		subs:   make(map[uint64]chan T),
		buffer: size,
	}
}

// Subscribe registers a new subscriber and returns its channel. The
// subscription is removed and the channel closed when ctx is canceled or
// the broker closes, whichever happens first. Subscribing to a closed
// broker returns an already-closed channel.
func (b *Broker[T]) Subscribe(ctx context.Context) <-chan T {
	b.mu.Lock()

	if b.closed {
		b.mu.Unlock()
		ch := make(chan T)
		close(ch)
		return ch
	}

	id := b.nextID
	b.nextID++
	ch := make(chan T, b.buffer)
	b.subs[id] = ch
	b.mu.Unlock()

	go func() {
		<-ctx.Done()
		b.unsubscribe(id)
	}()

	return ch
}

func (b *Broker[T]) unsubscribe(id uint64) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	ch, ok := b.subs[id]
	if !ok {
		return
	}
	delete(b.subs, id)
	close(ch)
}

// Publish delivers the value to every subscriber without blocking. A
// subscriber whose buffer is full misses this value.
func (b *Broker[T]) Publish(value T) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}

	for _, ch := range b.subs {
		select {
		case ch <- value:
		default:
			// Subscriber full; drop rather than stall the worker
		}
	}
}

// Close shuts down the broker and closes every subscriber channel.
// Publishing after Close is a no-op.
func (b *Broker[T]) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.closed {
		return
	}
	b.closed = true

	for id, ch := range b.subs {
		delete(b.subs, id)
		close(ch)
	}
}

// SubscriberCount returns the number of active subscribers.
func (b *Broker[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Publisher is the publish side of a broker, for components that should
// not be able to subscribe or close.
type Publisher[T any] interface {
	Publish(value T)
}

// Subscriber is the subscribe side of a broker.
type Subscriber[T any] interface {
	Subscribe(ctx context.Context) <-chan T
}
