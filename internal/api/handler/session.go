package handler

import (
	"context"
	"net/http"

	"github.com/Rrens/workspace-sync/internal/api/response"
	"github.com/Rrens/workspace-sync/internal/domain"
)

// SessionService is the session surface used by SessionHandler
type SessionService interface {
	SignIn(ctx context.Context, in domain.SignIn) (*domain.SignInResponse, error)
	SignOut(ctx context.Context) error
	CurrentSession(ctx context.Context) (*domain.Session, error)
}

// SessionHandler handles session endpoints
type SessionHandler struct {
	sessionService SessionService
}

// NewSessionHandler creates a new session handler
func NewSessionHandler(sessionService SessionService) *SessionHandler {
	return &SessionHandler{sessionService: sessionService}
}

// SignIn stores the cloud session handed over by the application
func (h *SessionHandler) SignIn(w http.ResponseWriter, r *http.Request) {
	var req domain.SignIn
	if !decode(w, r, &req) {
		return
	}

	resp, err := h.sessionService.SignIn(r.Context(), req)
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.Created(w, resp)
}

// Current returns the signed-in session
func (h *SessionHandler) Current(w http.ResponseWriter, r *http.Request) {
	session, err := h.sessionService.CurrentSession(r.Context())
	if err != nil {
		response.FromError(w, err)
		return
	}

	response.OK(w, session)
}

// SignOut removes the current session
func (h *SessionHandler) SignOut(w http.ResponseWriter, r *http.Request) {
	if err := h.sessionService.SignOut(r.Context()); err != nil {
		response.FromError(w, err)
		return
	}

	response.NoContent(w)
}
