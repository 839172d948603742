// Package event defines the domain events fanned out by the room engine.
// Events are immutable snapshots; sinks must never mutate them.
package event

import (
	"time"

	"term-chatroom/domain"
)

type DomainEvent interface {
	Name() string
}

// MessagePosted is emitted once per accepted message, after sequencing.
// Every connection in the registry snapshot at send time receives it,
// including the sender.
type MessagePosted struct {
	Message domain.ChatMessage
}

func (MessagePosted) Name() string { return "new_message" }

// UserJoined is emitted to every connection except the joining one.
type UserJoined struct {
	Username domain.Identity
	At       time.Time
}

func (UserJoined) Name() string { return "user_joined" }

// UserLeft is emitted exactly once per departed connection, to every
// connection remaining after removal.
type UserLeft struct {
	Username domain.Identity
	At       time.Time
}

func (UserLeft) Name() string { return "user_left" }
