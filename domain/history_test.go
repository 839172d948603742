package domain

import (
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

func newMessage(seq uint64) ChatMessage {
	return ChatMessage{
		ID:        uuid.New(),
		Sequence:  seq,
		Sender:    "alice",
		Content:   fmt.Sprintf("message %d", seq),
		CreatedAt: time.Now().UTC(),
	}
}

func TestHistoryBuffer_Append_KeepsArrivalOrder(t *testing.T) {
	req := require.New(t)
	buffer := NewHistoryBuffer(10)

	// When three messages are appended
	for seq := uint64(1); seq <= 3; seq++ {
		buffer.Append(newMessage(seq))
	}

	// Then the snapshot lists them oldest first
	snapshot := buffer.Snapshot()
	req.Len(snapshot, 3)
	req.Equal(uint64(1), snapshot[0].Sequence)
	req.Equal(uint64(3), snapshot[2].Sequence)
}

func TestHistoryBuffer_Append_EvictsOldestBeyondCapacity(t *testing.T) {
	req := require.New(t)
	capacity := 50
	buffer := NewHistoryBuffer(capacity)

	// When capacity+1 messages are appended
	for seq := uint64(1); seq <= uint64(capacity)+1; seq++ {
		buffer.Append(newMessage(seq))
	}

	// Then the buffer holds exactly the last K messages
	snapshot := buffer.Snapshot()
	req.Len(snapshot, capacity)

	// And the numerically smallest sequence was evicted
	req.Equal(uint64(2), snapshot[0].Sequence)
	req.Equal(uint64(capacity)+1, snapshot[len(snapshot)-1].Sequence)
}

func TestHistoryBuffer_Snapshot_IsACopy(t *testing.T) {
	req := require.New(t)
	buffer := NewHistoryBuffer(10)
	buffer.Append(newMessage(1))

	snapshot := buffer.Snapshot()
	snapshot[0].Content = "mutated"

	req.Equal("message 1", buffer.Snapshot()[0].Content)
}

func TestHistoryBuffer_DefaultCapacity(t *testing.T) {
	req := require.New(t)
	req.Equal(DefaultHistoryCapacity, NewHistoryBuffer(0).Capacity())
	req.Equal(DefaultHistoryCapacity, NewHistoryBuffer(-1).Capacity())
}
