package errors

import "fmt"

var (
	// Room engine errors, reported to the offending connection only.
	ErrDuplicateIdentity = fmt.Errorf("identity already connected")
	ErrNotRegistered     = fmt.Errorf("connection is not registered")
	ErrEmptyContent      = fmt.Errorf("message content is empty")

	// ErrDeliveryFailure marks a connection whose outbound buffer is full
	// or whose transport write failed. The engine forces a leave for that
	// connection; the error is never surfaced to the sender.
	ErrDeliveryFailure = fmt.Errorf("event delivery failed")

	// Auth errors.
	ErrInvalidCredentials = fmt.Errorf("invalid credentials")
	ErrUserAlreadyExists  = fmt.Errorf("username already exists")
	ErrInvalidPassword    = fmt.Errorf("password does not meet requirements")
	ErrInvalidUsername    = fmt.Errorf("username does not meet requirements")
	ErrTokenGeneration    = fmt.Errorf("token generation failed")
	ErrInvalidToken       = fmt.Errorf("invalid or expired token")

	// Transport errors.
	ErrUnknownEventType = fmt.Errorf("unknown event type")
	ErrMalformedPayload = fmt.Errorf("malformed event payload")
	ErrAlreadyJoined    = fmt.Errorf("connection already joined")

	ErrWorkerPanic = fmt.Errorf("worker panic")
	ErrEmptyWords  = fmt.Errorf("no words have been found")
)
