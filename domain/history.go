package domain

// DefaultHistoryCapacity bounds the recent-history buffer served to late joiners.
const DefaultHistoryCapacity = 50

// HistoryBuffer is a bounded, ordered store of the most recent messages
// with FIFO eviction. It is not safe for concurrent use: the room engine
// owns it exclusively and serializes every access behind its own lock.
type HistoryBuffer struct {
	capacity int
	messages []ChatMessage
}

func NewHistoryBuffer(capacity int) *HistoryBuffer {
	if capacity <= 0 {
		capacity = DefaultHistoryCapacity
	}
	return &HistoryBuffer{capacity: capacity}
}

// Append inserts at the tail and evicts the head once size exceeds capacity.
func (h *HistoryBuffer) Append(message ChatMessage) {
	h.messages = append(h.messages, message)
	if len(h.messages) > h.capacity {
		evicted := len(h.messages) - h.capacity
		h.messages = append(h.messages[:0:0], h.messages[evicted:]...)
	}
}

// Snapshot returns the buffered messages oldest first.
// The returned slice is a copy; callers may keep it across engine calls.
func (h *HistoryBuffer) Snapshot() []ChatMessage {
	out := make([]ChatMessage, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *HistoryBuffer) Len() int {
	return len(h.messages)
}

func (h *HistoryBuffer) Capacity() int {
	return h.capacity
}
