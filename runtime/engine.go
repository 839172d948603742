// Package runtime hosts the presence and broadcast coordination core.
// It serializes join/leave/send events, assigns the total message order,
// and fans events out to live connections without blocking on slow peers.
package runtime

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"term-chatroom/contract"
	"term-chatroom/domain"
	"term-chatroom/domain/event"
	"term-chatroom/errors"
	"term-chatroom/moderation"
	"term-chatroom/observability"
)

// closableSink is implemented by per-connection sinks that can be shut
// down when the engine evicts their connection.
type closableSink interface {
	Close()
}

// RoomEngine owns the only mutable shared state of the chat core: the
// connection registry, the history buffer and the sequence allocator.
// A single mutex guards all three, so every broadcast observes a
// consistent snapshot and the history served to a joiner contains
// exactly the messages sequenced before its registration completed.
type RoomEngine struct {
	mu             sync.Mutex
	log            *slog.Logger
	registry       *ConnectionRegistry
	history        *domain.HistoryBuffer
	lastSeq        uint64
	permanentSinks []contract.EventSink
	moderator      *moderation.Moderator
	metrics        *observability.ChatMetrics
}

func NewRoomEngine(log *slog.Logger, historyCapacity int,
	moderator *moderation.Moderator, metrics *observability.ChatMetrics) *RoomEngine {
	return &RoomEngine{
		log:       log,
		registry:  NewConnectionRegistry(),
		history:   domain.NewHistoryBuffer(historyCapacity),
		moderator: moderator,
		metrics:   metrics,
	}
}

// Add attaches permanent sinks (persistence, projections, telemetry).
// Permanent sinks receive every domain event; their failures are logged
// and never gate fan-out to connections.
func (e *RoomEngine) Add(sinks ...contract.EventSink) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.permanentSinks = append(e.permanentSinks, sinks...)
}

// Restore preloads the history buffer from persisted messages, oldest
// first, and resumes the sequence allocator after the highest restored
// sequence. Call it at startup, before any connection joins.
func (e *RoomEngine) Restore(messages []domain.ChatMessage) {
	e.mu.Lock()
	defer e.mu.Unlock()

	for _, message := range messages {
		e.history.Append(message)
		if message.Sequence > e.lastSeq {
			e.lastSeq = message.Sequence
		}
	}
}

// Join registers the connection and returns the history snapshot the
// joiner must receive. Registration, the history snapshot and the
// user_joined broadcast to the other members happen as one atomic step,
// so the snapshot cannot miss a message already fanned out nor include
// one sent after registration completed.
func (e *RoomEngine) Join(conn domain.Connection, sink contract.EventSink) ([]domain.ChatMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := e.registry.Register(conn, sink); err != nil {
		return nil, err
	}
	if e.metrics != nil {
		e.metrics.IncrJoins()
		e.metrics.SetOnline(e.registry.Len())
	}

	history := e.history.Snapshot()
	joined := event.UserJoined{Username: conn.Identity, At: conn.JoinedAt}
	e.consumePermanentLocked(joined)
	dead := e.broadcastLocked(joined, conn.ID)
	e.evictLocked(dead)

	e.log.Info("connection joined", "username", conn.Identity, "conn_id", conn.ID, "online", e.registry.Len())
	return history, nil
}

// Leave removes the connection and broadcasts user_left to the remaining
// members. It is idempotent: a second call for the same connection is a
// no-op and produces no broadcast.
func (e *RoomEngine) Leave(connID uuid.UUID) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.leaveLocked(connID)
}

// Send validates, sequences, buffers, persists and fans out one message.
// The sequence number is consumed only after validation passed, so a
// rejected send leaves no gap.
func (e *RoomEngine) Send(connID uuid.UUID, content string) (domain.ChatMessage, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	sender, ok := e.registry.Lookup(connID)
	if !ok {
		return domain.ChatMessage{}, errors.ErrNotRegistered
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return domain.ChatMessage{}, errors.ErrEmptyContent
	}

	if e.moderator != nil {
		censored, matched := e.moderator.Censor(content)
		if len(matched) > 0 {
			e.log.Warn("message censored", "username", sender, "words", len(matched))
			content = censored
		}
	}

	e.lastSeq++
	message := domain.ChatMessage{
		ID:        uuid.New(),
		Sequence:  e.lastSeq,
		Sender:    sender,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	e.history.Append(message)
	if e.metrics != nil {
		e.metrics.IncrMessages()
	}

	posted := event.MessagePosted{Message: message}
	e.consumePermanentLocked(posted)
	dead := e.broadcastLocked(posted, uuid.Nil)
	e.evictLocked(dead)

	return message, nil
}

// ListOnline returns the identities currently registered, in join order.
func (e *RoomEngine) ListOnline() []domain.Identity {
	e.mu.Lock()
	defer e.mu.Unlock()

	members := e.registry.Snapshot()
	online := make([]domain.Identity, 0, len(members))
	for _, member := range members {
		online = append(online, member.Conn.Identity)
	}
	return online
}

// OnlineCount reports the registry size for telemetry.
func (e *RoomEngine) OnlineCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.registry.Len()
}

// LastSequence reports the highest sequence number allocated so far.
func (e *RoomEngine) LastSequence() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastSeq
}

// leaveLocked performs removal plus the user_left broadcast as one step.
func (e *RoomEngine) leaveLocked(connID uuid.UUID) {
	conn, ok := e.registry.Unregister(connID)
	if !ok {
		return
	}
	if e.metrics != nil {
		e.metrics.IncrLeaves()
		e.metrics.SetOnline(e.registry.Len())
	}
	e.log.Info("connection left", "username", conn.Identity, "conn_id", conn.ID, "online", e.registry.Len())

	left := event.UserLeft{Username: conn.Identity, At: time.Now().UTC()}
	e.consumePermanentLocked(left)
	dead := e.broadcastLocked(left, uuid.Nil)
	e.evictLocked(dead)
}

// broadcastLocked enqueues the event to every member of the current
// snapshot except skip. Enqueueing is non-blocking: members whose sink
// rejected delivery are returned as dead and never block healthy peers.
func (e *RoomEngine) broadcastLocked(evt event.DomainEvent, skip uuid.UUID) []uuid.UUID {
	var dead []uuid.UUID
	for _, member := range e.registry.Snapshot() {
		if member.Conn.ID == skip {
			continue
		}
		if err := member.Sink.Consume(context.Background(), evt); err != nil {
			e.log.Warn("delivery failed, evicting connection",
				"username", member.Conn.Identity,
				"conn_id", member.Conn.ID,
				"event", evt.Name(),
				"error", err)
			if e.metrics != nil {
				e.metrics.IncrDeliveryFailures()
			}
			dead = append(dead, member.Conn.ID)
		}
	}
	return dead
}

// evictLocked force-leaves dead connections, cascading through any peers
// that fail while receiving the resulting user_left events.
func (e *RoomEngine) evictLocked(dead []uuid.UUID) {
	for _, connID := range dead {
		member, ok := e.registry.byConn[connID]
		e.leaveLocked(connID)
		if ok {
			if closer, closable := member.Sink.(closableSink); closable {
				closer.Close()
			}
		}
	}
}

// consumePermanentLocked feeds permanent sinks. Persistence failures are
// logged and never surfaced to any client.
func (e *RoomEngine) consumePermanentLocked(evt event.DomainEvent) {
	for _, sink := range e.permanentSinks {
		if err := sink.Consume(context.Background(), evt); err != nil {
			e.log.Error("permanent sink rejected event", "event", evt.Name(), "error", err)
		}
	}
}
