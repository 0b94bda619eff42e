package pubsub

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
)

// ListenCmd creates a Bubble Tea command that waits for one value on the
// channel and returns it as a tea.Msg. Returns nil if the context is
// canceled or the channel is closed.
func ListenCmd[T any](ctx context.Context, ch <-chan T) tea.Cmd {
	return func() tea.Msg {
		select {
		case <-ctx.Done():
			return nil
		case value, ok := <-ch:
			if !ok {
				return nil
			}
			return value
		}
	}
}

// ContinuousListener holds a broker subscription for the Bubble Tea update
// loop. Call Listen after handling each received value to keep receiving.
type ContinuousListener[T any] struct {
	ctx context.Context
	ch  <-chan T
}

// NewContinuousListener subscribes to the broker. The subscription cleans
// itself up when ctx is canceled.
func NewContinuousListener[T any](ctx context.Context, broker *Broker[T]) *ContinuousListener[T] {
	return &ContinuousListener[T]{
		ctx: ctx,
		ch:  broker.Subscribe(ctx),
	}
}

// Listen returns a tea.Cmd that waits for the next value.
func (l *ContinuousListener[T]) Listen() tea.Cmd {
	return ListenCmd(l.ctx, l.ch)
}
