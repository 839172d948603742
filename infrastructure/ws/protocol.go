// Package ws exposes the chat over WebSocket. Every frame is a tagged
// envelope; inbound payloads are schema-validated before they reach the
// core, so malformed events never touch the engine.
package ws

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/samber/lo"

	"term-chatroom/domain"
	"term-chatroom/errors"
)

// Inbound event types.
const (
	EventJoin           = "join"
	EventSendMessage    = "send_message"
	EventGetOnlineUsers = "get_online_users"
)

// Outbound event types.
const (
	EventMessageHistory = "message_history"
	EventNewMessage     = "new_message"
	EventUserJoined     = "user_joined"
	EventUserLeft       = "user_left"
	EventOnlineUsers    = "online_users"
	EventError          = "error"
)

var validate = validator.New()

// Envelope is the wire frame: a type tag plus a type-specific payload.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Inbound is the tagged union of client-initiated events.
type Inbound interface {
	isInbound()
}

type JoinRequest struct {
	Username string `json:"username" validate:"required,alphanum,min=3,max=32"`
	Token    string `json:"token" validate:"required"`
}

func (JoinRequest) isInbound() {}

// SendMessageRequest carries raw content; emptiness is a domain rule
// (no sequence consumed), so the engine judges it, not the schema.
type SendMessageRequest struct {
	Content string `json:"content"`
}

func (SendMessageRequest) isInbound() {}

type GetOnlineUsersRequest struct{}

func (GetOnlineUsersRequest) isInbound() {}

// DecodeInbound parses and validates one wire frame.
func DecodeInbound(data []byte) (Inbound, error) {
	var envelope Envelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err)
	}

	switch envelope.Type {
	case EventJoin:
		var req JoinRequest
		if err := unmarshalPayload(envelope.Payload, &req); err != nil {
			return nil, err
		}
		return req, nil
	case EventSendMessage:
		var req SendMessageRequest
		if err := unmarshalPayload(envelope.Payload, &req); err != nil {
			return nil, err
		}
		return req, nil
	case EventGetOnlineUsers:
		return GetOnlineUsersRequest{}, nil
	default:
		return nil, fmt.Errorf("%w: %q", errors.ErrUnknownEventType, envelope.Type)
	}
}

func unmarshalPayload(payload json.RawMessage, target any) error {
	if len(payload) == 0 {
		payload = []byte("{}")
	}
	if err := json.Unmarshal(payload, target); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err)
	}
	if err := validate.Struct(target); err != nil {
		return fmt.Errorf("%w: %v", errors.ErrMalformedPayload, err)
	}
	return nil
}

// MessagePayload is the outbound form of one chat message.
type MessagePayload struct {
	Sequence  uint64    `json:"sequence"`
	Sender    string    `json:"sender"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type HistoryPayload struct {
	Messages []MessagePayload `json:"messages"`
}

type PresencePayload struct {
	Username string `json:"username"`
}

type OnlineUsersPayload struct {
	Users []string `json:"users"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

// EncodeFrame wraps a payload into its envelope, ready for the wire.
func EncodeFrame(eventType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: eventType, Payload: raw})
}

func ToMessagePayload(message domain.ChatMessage) MessagePayload {
	return MessagePayload{
		Sequence:  message.Sequence,
		Sender:    string(message.Sender),
		Content:   message.Content,
		Timestamp: message.CreatedAt,
	}
}

func ToHistoryPayload(messages []domain.ChatMessage) HistoryPayload {
	return HistoryPayload{
		Messages: lo.Map(messages, func(item domain.ChatMessage, _ int) MessagePayload {
			return ToMessagePayload(item)
		}),
	}
}

func ToOnlineUsersPayload(users []domain.Identity) OnlineUsersPayload {
	return OnlineUsersPayload{
		Users: lo.Map(users, func(item domain.Identity, _ int) string {
			return string(item)
		}),
	}
}
