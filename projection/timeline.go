// Package projection builds local read models from observed events.
// Handles ordering and bounded retention. Does not emit events or
// interact with transports directly.
package projection

import (
	"context"
	"sync"
	"time"

	"term-chatroom/domain"
	"term-chatroom/domain/event"
)

const defaultRetention = 200

// EntryKind tags a timeline entry.
type EntryKind string

const (
	EntryJoined  EntryKind = "joined"
	EntryLeft    EntryKind = "left"
	EntryMessage EntryKind = "message"
)

// Entry is one observed room activity.
type Entry struct {
	Kind     EntryKind
	Username domain.Identity
	Sequence uint64 // zero for presence entries
	At       time.Time
}

// Timeline keeps a bounded, ordered activity log of the room: joins,
// leaves and messages as the fan-out observed them. It is a permanent
// sink, so consumption may race with snapshot reads.
type Timeline struct {
	mu        sync.Mutex
	retention int
	entries   []Entry
}

func NewTimeline() *Timeline {
	return &Timeline{retention: defaultRetention}
}

func (t *Timeline) Consume(_ context.Context, e event.DomainEvent) error {
	entry, ok := toEntry(e)
	if !ok {
		return nil
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries = append(t.entries, entry)
	if len(t.entries) > t.retention {
		t.entries = append(t.entries[:0:0], t.entries[len(t.entries)-t.retention:]...)
	}
	return nil
}

// Snapshot returns the retained entries oldest first.
func (t *Timeline) Snapshot() []Entry {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

func toEntry(e event.DomainEvent) (Entry, bool) {
	switch evt := e.(type) {
	case event.UserJoined:
		return Entry{Kind: EntryJoined, Username: evt.Username, At: evt.At}, true
	case event.UserLeft:
		return Entry{Kind: EntryLeft, Username: evt.Username, At: evt.At}, true
	case event.MessagePosted:
		return Entry{
			Kind:     EntryMessage,
			Username: evt.Message.Sender,
			Sequence: evt.Message.Sequence,
			At:       evt.Message.CreatedAt,
		}, true
	default:
		return Entry{}, false
	}
}
