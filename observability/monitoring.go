// Package observability aggregates chat telemetry. Counters are atomic
// so the engine can bump them while holding its lock without contention.
package observability

import (
	"sync/atomic"
)

// ChatStats is a point-in-time view of the chat counters.
type ChatStats struct {
	Online           int64  `json:"online"`
	Joins            uint64 `json:"joins"`
	Leaves           uint64 `json:"leaves"`
	Messages         uint64 `json:"messages"`
	DeliveryFailures uint64 `json:"delivery_failures"`
	DroppedEvents    uint64 `json:"dropped_events"`
}

// ChatMetrics tracks live counters for the room.
type ChatMetrics struct {
	online           atomic.Int64
	joins            atomic.Uint64
	leaves           atomic.Uint64
	messages         atomic.Uint64
	deliveryFailures atomic.Uint64
	droppedEvents    atomic.Uint64
}

func NewChatMetrics() *ChatMetrics {
	return &ChatMetrics{}
}

func (m *ChatMetrics) SetOnline(n int)       { m.online.Store(int64(n)) }
func (m *ChatMetrics) IncrJoins()            { m.joins.Add(1) }
func (m *ChatMetrics) IncrLeaves()           { m.leaves.Add(1) }
func (m *ChatMetrics) IncrMessages()         { m.messages.Add(1) }
func (m *ChatMetrics) IncrDeliveryFailures() { m.deliveryFailures.Add(1) }
func (m *ChatMetrics) IncrDroppedEvents()    { m.droppedEvents.Add(1) }

func (m *ChatMetrics) Stats() ChatStats {
	return ChatStats{
		Online:           m.online.Load(),
		Joins:            m.joins.Load(),
		Leaves:           m.leaves.Load(),
		Messages:         m.messages.Load(),
		DeliveryFailures: m.deliveryFailures.Load(),
		DroppedEvents:    m.droppedEvents.Load(),
	}
}
