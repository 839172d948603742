//go:generate go run go.uber.org/mock/mockgen -source=message.go -destination=../mocks/mock_message_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"term-chatroom/domain"
)

type IMessageRepository interface {
	StoreMessage(message DiskMessage) error
	GetRecent(limit int) ([]DiskMessage, error)
}

type MessageRepository struct {
	db  *badger.DB
	log *slog.Logger
}

func NewMessageRepository(db *badger.DB, log *slog.Logger) MessageRepository {
	return MessageRepository{db: db, log: log}
}

// DiskMessage is the stored representation of a chat message.
type DiskMessage struct {
	ID       uuid.UUID `json:"id"`
	Sequence uint64    `json:"sequence"`
	Author   string    `json:"author"`
	Content  string    `json:"content"`
	At       time.Time `json:"at"`
}

// StoreMessage persists a message in BadgerDB.
// The key embeds the sequence number with 19-digit zero padding so a
// plain prefix scan returns messages in total order; the sequence is
// unique process-wide, so no collision disambiguator is needed.
func (m MessageRepository) StoreMessage(message DiskMessage) error {
	key := fmt.Sprintf("msg:%019d", message.Sequence)
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	return m.db.Update(func(txn *badger.Txn) error {
		return txn.Set([]byte(key), data)
	})
}

// GetRecent returns the last limit messages, oldest first.
// Thanks to the padded sequence in the key, a reverse scan yields the
// newest entries; the result is flipped before returning.
func (m MessageRepository) GetRecent(limit int) ([]DiskMessage, error) {
	var raw [][]byte
	err := m.db.View(func(txn *badger.Txn) error {
		prefix := []byte("msg:")
		options := badger.DefaultIteratorOptions
		options.Reverse = true
		it := txn.NewIterator(options)
		defer it.Close()

		// Seek past the largest possible sequence, then walk backwards.
		seekKey := append(append([]byte{}, prefix...), []byte("9999999999999999999")...)
		for it.Seek(seekKey); it.ValidForPrefix(prefix); it.Next() {
			if limit > 0 && len(raw) == limit {
				break
			}
			err := it.Item().Value(func(value []byte) error {
				raw = append(raw, append([]byte{}, value...))
				return nil
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	messages := make([]DiskMessage, 0, len(raw))
	for i := len(raw) - 1; i >= 0; i-- {
		var message DiskMessage
		if err := json.Unmarshal(raw[i], &message); err != nil {
			return nil, err
		}
		messages = append(messages, message)
	}
	return messages, nil
}

// FromChatMessage maps a sequenced domain message to its disk form.
func FromChatMessage(message domain.ChatMessage) DiskMessage {
	return DiskMessage{
		ID:       message.ID,
		Sequence: message.Sequence,
		Author:   string(message.Sender),
		Content:  message.Content,
		At:       message.CreatedAt,
	}
}

// ToChatMessages maps stored messages back to domain messages.
func ToChatMessages(messages []DiskMessage) []domain.ChatMessage {
	return lo.Map(messages, func(item DiskMessage, _ int) domain.ChatMessage {
		return domain.ChatMessage{
			ID:        item.ID,
			Sequence:  item.Sequence,
			Sender:    domain.Identity(item.Author),
			Content:   item.Content,
			CreatedAt: item.At,
		}
	})
}
