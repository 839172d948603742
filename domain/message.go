// Package domain contains core concepts of the chat system.
// This file defines ChatMessage events and related rules.
// Messages are immutable and created only by the room engine.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// ChatMessage represents an immutable chat event.
// Sequence is a process-wide, strictly increasing integer starting at 1;
// it totally orders all messages, even across history eviction.
type ChatMessage struct {
	ID        uuid.UUID
	Sequence  uint64
	Sender    Identity
	Content   string
	CreatedAt time.Time
}
