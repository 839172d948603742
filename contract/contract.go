//go:generate go run go.uber.org/mock/mockgen -source=contract.go -destination=../mocks/mock_contract.go -package=mocks
package contract

import (
	"context"
	"reflect"

	"github.com/google/uuid"

	"term-chatroom/domain"
	"term-chatroom/domain/event"
)

type ISupervisor interface {
	Add(worker ...Worker) ISupervisor
	Run(ctx context.Context)
	Start(ctx context.Context, worker Worker)
	Stop()
}

// Worker doesn't protect itself
// Can be silly, focused
type Worker interface {
	Run(ctx context.Context) error
}

// GetWorkerName uses reflection to retrieve the type name of the worker.
// This is used for logging and supervision purposes during worker initialization
// or lifecycle events, avoiding the need for manual naming in the Worker interface.
func GetWorkerName(w Worker) string {
	if w == nil {
		return "NilWorker"
	}
	t := reflect.TypeOf(w)
	for t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	return t.Name()
}

// EventSink receives domain events from the engine fan-out.
// Consume must not block: per-connection sinks enqueue into a bounded
// buffer and report ErrDeliveryFailure when it is full, so that a slow
// subscriber never holds the engine lock.
type EventSink interface {
	Consume(ctx context.Context, e event.DomainEvent) error
}

// IEngine is the single serialization point over the connection registry,
// the history buffer and the sequence allocator.
type IEngine interface {
	Join(conn domain.Connection, sink EventSink) ([]domain.ChatMessage, error)
	Leave(connID uuid.UUID)
	Send(connID uuid.UUID, content string) (domain.ChatMessage, error)
	ListOnline() []domain.Identity
}
