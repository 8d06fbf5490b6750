// Conversation HTTP handlers.
//
// This file exposes REST endpoints for conversation resources:
//   - POST /conversations           (find-or-create with a peer)
//   - GET  /conversations           (snapshot list, activity desc)
//   - GET  /conversations/{id}      (fetch one, participants only)
//   - POST /conversations/{id}/read (mark the summary read)
package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mexonis/quickchat-backend/internal/domain"
	"github.com/mexonis/quickchat-backend/internal/services"
)

// CreateConversationRequest is the JSON payload for opening a
// conversation with another user.
type CreateConversationRequest struct {
	PeerID string `json:"peerID" binding:"required"`
}

// CreateConversation returns the conversation between the caller and the
// requested peer, creating it when none exists. Repeating the call with
// the same peer (in either direction) yields the same conversation.
func (h *Handlers) CreateConversation(c *gin.Context) {
	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "peerID required")
		return
	}

	// The peer must be a registered profile; the directory memoizes the
	// lookup so repeated opens against the same peer stay cheap.
	if _, err := h.dir.Get(c.Request.Context(), req.PeerID); err != nil {
		if errors.Is(err, services.ErrUserNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "peer not found")
			return
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "peer lookup failed")
		return
	}

	conv, err := h.convs.FindOrCreate(c.Request.Context(), userID(c), req.PeerID)
	switch {
	case errors.Is(err, services.ErrSameParticipant):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "cannot open a conversation with yourself")
		return
	case errors.Is(err, services.ErrEmptyParticipant):
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "peerID required")
		return
	case err != nil:
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "conversation lookup failed")
		return
	}
	ok(c, http.StatusOK, conv)
}

// ListConversations returns the caller's conversations ordered by last
// activity, most recent first.
func (h *Handlers) ListConversations(c *gin.Context) {
	convs, err := h.convs.Snapshot(c.Request.Context(), userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "conversation listing failed")
		return
	}
	ok(c, http.StatusOK, convs)
}

// GetConversation returns one conversation. Non-participants get a 404
// rather than a 403 so the endpoint does not confirm the conversation
// exists.
func (h *Handlers) GetConversation(c *gin.Context) {
	conv, okc := h.memberConversation(c)
	if !okc {
		return
	}
	ok(c, http.StatusOK, conv)
}

// MarkConversationRead records that the caller has seen the
// conversation's latest activity. Calling it again is a no-op.
func (h *Handlers) MarkConversationRead(c *gin.Context) {
	conv, okc := h.memberConversation(c)
	if !okc {
		return
	}
	if err := h.convs.MarkRead(c.Request.Context(), conv, userID(c)); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "mark read failed")
		return
	}
	noContent(c)
}

// memberConversation loads the conversation from the :id path parameter
// and verifies the caller participates in it. On failure it writes the
// error response and returns false.
func (h *Handlers) memberConversation(c *gin.Context) (*domain.Conversation, bool) {
	conv, err := h.convs.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		if errors.Is(err, services.ErrConversationNotFound) {
			fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
			return nil, false
		}
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "conversation lookup failed")
		return nil, false
	}
	if !conv.HasParticipant(userID(c)) {
		fail(c, http.StatusNotFound, ErrCodeNotFound, "conversation not found")
		return nil, false
	}
	return conv, true
}
