// Package sink contains EventSink implementations fed by the engine
// fan-out. Sinks never block the engine: Consume enqueues into a bounded
// buffer and the actual work happens in a supervised worker.
package sink

import (
	"context"
	"log/slog"

	"term-chatroom/domain/event"
	"term-chatroom/observability"
	"term-chatroom/repositories"
)

// DiskSink persists accepted messages asynchronously. Durable storage is
// fire-and-forget from the engine's point of view: a failed or slow
// write is logged and the chat keeps operating.
type DiskSink struct {
	repository repositories.IMessageRepository
	log        *slog.Logger
	metrics    *observability.ChatMetrics
	pending    chan repositories.DiskMessage
}

func NewDiskSink(repository repositories.IMessageRepository, log *slog.Logger,
	metrics *observability.ChatMetrics, bufferSize int) *DiskSink {
	return &DiskSink{
		repository: repository,
		log:        log,
		metrics:    metrics,
		pending:    make(chan repositories.DiskMessage, bufferSize),
	}
}

// Consume implements the EventSink interface. Only message events are
// persisted; presence events are transient. A full buffer drops the
// write rather than stalling the engine.
func (s *DiskSink) Consume(_ context.Context, e event.DomainEvent) error {
	posted, ok := e.(event.MessagePosted)
	if !ok {
		return nil
	}
	select {
	case s.pending <- repositories.FromChatMessage(posted.Message):
		return nil
	default:
		s.log.Error("persistence buffer full, message not stored",
			"sequence", posted.Message.Sequence)
		if s.metrics != nil {
			s.metrics.IncrDroppedEvents()
		}
		return nil
	}
}

// Run drains the pending buffer into the repository until the context
// is canceled. Implements the Worker interface for supervision.
func (s *DiskSink) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			s.log.Debug("Context done, stopping disk sink")
			return nil
		case message := <-s.pending:
			if err := s.repository.StoreMessage(message); err != nil {
				s.log.Error("failed to persist message",
					"sequence", message.Sequence,
					"error", err)
			}
		}
	}
}
