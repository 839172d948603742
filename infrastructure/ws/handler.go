package ws

import (
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"term-chatroom/auth"
	"term-chatroom/domain"
	"term-chatroom/domain/event"
	"term-chatroom/errors"
	"term-chatroom/services"
)

// Handler upgrades HTTP requests and runs one session per connection.
type Handler struct {
	log                  *slog.Logger
	chat                 services.IChatService
	tokens               *auth.TokenManager
	upgrader             websocket.Upgrader
	connectionBufferSize int
	writeTimeout         time.Duration
}

func NewHandler(log *slog.Logger, chat services.IChatService, tokens *auth.TokenManager,
	connectionBufferSize int, writeTimeout time.Duration) *Handler {
	return &Handler{
		log:    log,
		chat:   chat,
		tokens: tokens,
		upgrader: websocket.Upgrader{
			// The terminal client is not a browser; origin checks stay open.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		connectionBufferSize: connectionBufferSize,
		writeTimeout:         writeTimeout,
	}
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	socket, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	s := &session{handler: h, socket: socket}
	defer s.shutdown()
	s.readLoop()
}

// session is the per-connection state machine: Unauthenticated until a
// valid join, Joined while registered, Left once shutdown ran. Leaving
// is absorbing; shutdown runs exactly once however the session ends.
type session struct {
	handler *Handler
	socket  *websocket.Conn

	writeMu sync.Mutex // gorilla conns allow one concurrent writer

	state  domain.ConnState
	conn   domain.Connection
	sink   *ConnSink
	pumpWG sync.WaitGroup
	once   sync.Once
}

func (s *session) readLoop() {
	for {
		_, data, err := s.socket.ReadMessage()
		if err != nil {
			// Client-initiated close and transport failure end up here alike.
			s.handler.log.Debug("websocket read ended", "error", err)
			return
		}

		inbound, err := DecodeInbound(data)
		if err != nil {
			s.writeError(err)
			continue
		}

		switch req := inbound.(type) {
		case JoinRequest:
			s.handleJoin(req)
		case SendMessageRequest:
			s.handleSend(req)
		case GetOnlineUsersRequest:
			s.handleOnlineUsers()
		}
	}
}

func (s *session) handleJoin(req JoinRequest) {
	if s.state != domain.StateUnauthenticated {
		s.writeError(errors.ErrAlreadyJoined)
		return
	}

	claims, err := s.handler.tokens.Validate(req.Token)
	if err != nil {
		s.writeError(err)
		return
	}
	if claims.Username != req.Username {
		s.writeError(errors.ErrInvalidToken)
		return
	}

	sink := NewConnSink(s.handler.connectionBufferSize)
	conn, history, err := s.handler.chat.Join(domain.Identity(req.Username), sink)
	if err != nil {
		sink.Close()
		s.writeError(err)
		return
	}

	s.state = domain.StateJoined
	s.conn = conn
	s.sink = sink

	// The history snapshot doubles as the join acknowledgment.
	s.writeFrame(EventMessageHistory, ToHistoryPayload(history))

	s.pumpWG.Add(1)
	go s.writePump()
}

func (s *session) handleSend(req SendMessageRequest) {
	if s.state != domain.StateJoined {
		s.writeError(errors.ErrNotRegistered)
		return
	}

	// The accepted message comes back through the sink like for every
	// other member; only failures are answered directly.
	if _, err := s.handler.chat.Send(s.conn.ID, req.Content); err != nil {
		s.writeError(err)
	}
}

func (s *session) handleOnlineUsers() {
	s.writeFrame(EventOnlineUsers, ToOnlineUsersPayload(s.handler.chat.ListOnline()))
}

// writePump drains the sink into the socket. It ends when the sink
// closes: either the engine evicted this connection or the session
// shut down.
func (s *session) writePump() {
	defer s.pumpWG.Done()
	for evt := range s.sink.Events() {
		if err := s.writeEvent(evt); err != nil {
			s.handler.log.Warn("websocket write failed, dropping connection",
				"username", s.conn.Identity, "error", err)
			s.handler.chat.Leave(s.conn.ID)
			break
		}
	}
	// Unblock the read loop so the session tears down promptly.
	_ = s.socket.Close()
}

func (s *session) writeEvent(evt event.DomainEvent) error {
	switch e := evt.(type) {
	case event.MessagePosted:
		return s.writeFrame(EventNewMessage, ToMessagePayload(e.Message))
	case event.UserJoined:
		return s.writeFrame(EventUserJoined, PresencePayload{Username: string(e.Username)})
	case event.UserLeft:
		return s.writeFrame(EventUserLeft, PresencePayload{Username: string(e.Username)})
	default:
		s.handler.log.Debug("unmapped domain event", "event", evt.Name())
		return nil
	}
}

func (s *session) writeFrame(eventType string, payload any) error {
	data, err := EncodeFrame(eventType, payload)
	if err != nil {
		return err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.socket.SetWriteDeadline(time.Now().Add(s.handler.writeTimeout))
	return s.socket.WriteMessage(websocket.TextMessage, data)
}

func (s *session) writeError(err error) {
	_ = s.writeFrame(EventError, ErrorPayload{Message: err.Error()})
}

// shutdown triggers exactly-once unregistration plus the user_left
// broadcast, whether the close was client-initiated or detected via
// transport failure.
func (s *session) shutdown() {
	s.once.Do(func() {
		if s.state == domain.StateJoined {
			s.handler.chat.Leave(s.conn.ID)
			s.sink.Close()
			s.pumpWG.Wait()
			s.state = domain.StateLeft
		}
		_ = s.socket.Close()
	})
}
