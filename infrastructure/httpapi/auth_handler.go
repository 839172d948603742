// Package httpapi exposes the credential endpoints in front of the
// websocket room: register and login both answer with a session token
// the client presents when joining.
package httpapi

import (
	"encoding/json"
	stderrors "errors"
	"log/slog"
	"net/http"

	"term-chatroom/errors"
	"term-chatroom/services"
)

type AuthHandler struct {
	log  *slog.Logger
	auth services.IAuthService
}

func NewAuthHandler(log *slog.Logger, auth services.IAuthService) *AuthHandler {
	return &AuthHandler{log: log, auth: auth}
}

type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type tokenResponse struct {
	Token string `json:"token"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	token, err := h.auth.Register(creds.Username, creds.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.log.Info("user registered", "username", creds.Username)
	writeJSON(w, http.StatusCreated, tokenResponse{Token: string(token)})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	creds, ok := h.decodeCredentials(w, r)
	if !ok {
		return
	}

	token, err := h.auth.Login(creds.Username, creds.Password)
	if err != nil {
		h.writeAuthError(w, err)
		return
	}

	h.log.Info("user logged in", "username", creds.Username)
	writeJSON(w, http.StatusOK, tokenResponse{Token: string(token)})
}

func (h *AuthHandler) decodeCredentials(w http.ResponseWriter, r *http.Request) (credentialsRequest, bool) {
	var creds credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed request body"})
		return credentialsRequest{}, false
	}
	return creds, true
}

func (h *AuthHandler) writeAuthError(w http.ResponseWriter, err error) {
	switch {
	case stderrors.Is(err, errors.ErrUserAlreadyExists):
		writeJSON(w, http.StatusConflict, errorResponse{Error: err.Error()})
	case stderrors.Is(err, errors.ErrInvalidUsername), stderrors.Is(err, errors.ErrInvalidPassword):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
	case stderrors.Is(err, errors.ErrInvalidCredentials):
		writeJSON(w, http.StatusUnauthorized, errorResponse{Error: err.Error()})
	default:
		h.log.Error("authentication failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: "internal error"})
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
