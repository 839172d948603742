package services

import (
	"github.com/google/uuid"

	"term-chatroom/contract"
	"term-chatroom/domain"
)

type IChatService interface {
	Join(username domain.Identity, sink contract.EventSink) (domain.Connection, []domain.ChatMessage, error)
	Leave(connID uuid.UUID)
	Send(connID uuid.UUID, content string) (domain.ChatMessage, error)
	ListOnline() []domain.Identity
}

// ChatService is the transport-facing facade over the room engine.
// It owns connection creation so transports never fabricate handles.
type ChatService struct {
	engine contract.IEngine
}

func NewChatService(engine contract.IEngine) *ChatService {
	return &ChatService{engine: engine}
}

func (s *ChatService) Join(username domain.Identity, sink contract.EventSink) (domain.Connection, []domain.ChatMessage, error) {
	conn := domain.NewConnection(username)
	history, err := s.engine.Join(conn, sink)
	if err != nil {
		return domain.Connection{}, nil, err
	}
	return conn, history, nil
}

func (s *ChatService) Leave(connID uuid.UUID) {
	s.engine.Leave(connID)
}

func (s *ChatService) Send(connID uuid.UUID, content string) (domain.ChatMessage, error) {
	return s.engine.Send(connID, content)
}

func (s *ChatService) ListOnline() []domain.Identity {
	return s.engine.ListOnline()
}
