// Package domain contains core concepts of the chat system.
// This file defines identities, connections and their lifecycle.
// No runtime, network, or UI logic should be added here.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Identity is a verified username, the unit of uniqueness for "who is online".
// It is opaque beyond equality and hashing; credentials never reach the core.
type Identity string

// ConnState tracks the lifecycle of a transport session.
// Left is absorbing: no registry mutation or broadcast may be attributed
// to a connection once it reached Left.
type ConnState int

const (
	StateUnauthenticated ConnState = iota
	StateJoined
	StateLeft
)

// Connection is one live transport session bound to at most one Identity.
// Created on successful join, destroyed on explicit leave, transport failure,
// or forced disconnect (duplicate identity, slow consumer).
type Connection struct {
	ID       uuid.UUID
	Identity Identity
	JoinedAt time.Time
}

func NewConnection(identity Identity) Connection {
	return Connection{
		ID:       uuid.New(),
		Identity: identity,
		JoinedAt: time.Now().UTC(),
	}
}
