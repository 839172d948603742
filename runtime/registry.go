package runtime

import (
	"fmt"

	"github.com/google/uuid"

	"term-chatroom/contract"
	"term-chatroom/domain"
	"term-chatroom/errors"
)

// Member pairs a registered connection with its delivery sink.
type Member struct {
	Conn domain.Connection
	Sink contract.EventSink
}

// ConnectionRegistry maps active connections to verified identities and
// enforces at most one connection per identity. The mapping is bijective
// while a session is active and is the single source of truth for
// "who is online".
//
// The registry is NOT safe for concurrent use on its own. All access is
// serialized by the engine lock; splitting locks between the registry,
// the history buffer and the sequence allocator would allow inconsistent
// snapshots.
type ConnectionRegistry struct {
	byConn     map[uuid.UUID]Member
	byIdentity map[domain.Identity]uuid.UUID
	order      []uuid.UUID // join order, drives snapshots and online listings
}

func NewConnectionRegistry() *ConnectionRegistry {
	return &ConnectionRegistry{
		byConn:     make(map[uuid.UUID]Member),
		byIdentity: make(map[domain.Identity]uuid.UUID),
	}
}

// Register atomically inserts the identity/connection mapping.
// It fails with ErrDuplicateIdentity when the identity already has an
// active connection, leaving the registry untouched.
func (r *ConnectionRegistry) Register(conn domain.Connection, sink contract.EventSink) error {
	if _, taken := r.byIdentity[conn.Identity]; taken {
		return errors.ErrDuplicateIdentity
	}
	if _, exists := r.byConn[conn.ID]; exists {
		// Two live sessions sharing a connection ID means the serialization
		// discipline is broken. Fail loudly instead of limping on.
		panic(fmt.Sprintf("registry invariant violated: connection %s registered twice", conn.ID))
	}
	r.byConn[conn.ID] = Member{Conn: conn, Sink: sink}
	r.byIdentity[conn.Identity] = conn.ID
	r.order = append(r.order, conn.ID)
	return nil
}

// Unregister removes the mapping if present. It is idempotent: removing
// an already-absent connection is a no-op reported through the boolean.
func (r *ConnectionRegistry) Unregister(connID uuid.UUID) (domain.Connection, bool) {
	member, ok := r.byConn[connID]
	if !ok {
		return domain.Connection{}, false
	}
	delete(r.byConn, connID)
	delete(r.byIdentity, member.Conn.Identity)
	for i, id := range r.order {
		if id == connID {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return member.Conn, true
}

// Lookup resolves a connection ID to its identity.
func (r *ConnectionRegistry) Lookup(connID uuid.UUID) (domain.Identity, bool) {
	member, ok := r.byConn[connID]
	if !ok {
		return "", false
	}
	return member.Conn.Identity, true
}

// Snapshot returns the registered members in join order. The slice is a
// copy taken at a single point in time; broadcasters iterate it freely.
func (r *ConnectionRegistry) Snapshot() []Member {
	out := make([]Member, 0, len(r.order))
	for _, id := range r.order {
		member, ok := r.byConn[id]
		if !ok {
			panic(fmt.Sprintf("registry invariant violated: ordered connection %s has no entry", id))
		}
		out = append(out, member)
	}
	return out
}

func (r *ConnectionRegistry) Len() int {
	return len(r.byConn)
}
