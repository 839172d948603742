package ws

import (
	"context"
	"sync"

	"term-chatroom/domain/event"
	"term-chatroom/errors"
)

// ConnSink bridges the engine fan-out to one connection's write pump.
// Consume is called while the engine holds its lock, so it never
// blocks: a full buffer means the peer stopped draining and is
// reported as a delivery failure, which makes the engine evict it.
type ConnSink struct {
	events    chan event.DomainEvent
	closeOnce sync.Once
}

func NewConnSink(bufferSize int) *ConnSink {
	return &ConnSink{events: make(chan event.DomainEvent, bufferSize)}
}

func (s *ConnSink) Consume(ctx context.Context, e event.DomainEvent) error {
	select {
	case s.events <- e:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	default:
		return errors.ErrDeliveryFailure
	}
}

// Events is drained by the connection's write pump; the channel closes
// when the engine evicts the connection or the session shuts down.
func (s *ConnSink) Events() <-chan event.DomainEvent {
	return s.events
}

// Close is safe to call from both the engine (eviction) and the session
// (shutdown); only the first call closes the channel.
func (s *ConnSink) Close() {
	s.closeOnce.Do(func() { close(s.events) })
}
