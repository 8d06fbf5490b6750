// Server-Sent Events handlers.
//
// This file bridges the registry and ledger subscriptions onto HTTP:
//   - GET /conversations/stream                (live conversation list)
//   - GET /conversations/{id}/messages/stream  (live message feed)
//
// Each stream replays the current snapshot as "added" events and then
// delivers live changes. Client disconnect or request-context cancellation
// tears the underlying subscription down, so abandoned streams never leak
// goroutines.
package handlers

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mexonis/quickchat-backend/internal/store"
)

// Wire names for SSE event kinds.
const (
	eventAdded   = "added"
	eventUpdated = "updated"
	eventRemoved = "removed"
)

// StreamConversations streams changes to the caller's conversation list.
// Events arrive in store order; clients re-sort by timestamp for display.
func (h *Handlers) StreamConversations(c *gin.Context) {
	ctx := c.Request.Context()
	stream, err := h.convs.ListForUser(ctx, userID(c))
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "stream setup failed")
		return
	}
	defer stream.Cancel()

	setSSEHeaders(c)
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, open := <-stream.Events():
			if !open {
				return false
			}
			c.SSEvent(eventName(ev.Kind), ev.Conversation)
			return true
		case <-ctx.Done():
			return false
		}
	})
}

// StreamMessages streams messages appended to one conversation. Only
// participants may attach; the existing ledger is replayed first.
func (h *Handlers) StreamMessages(c *gin.Context) {
	conv, okc := h.memberConversation(c)
	if !okc {
		return
	}

	ctx := c.Request.Context()
	stream, err := h.msgs.Subscribe(ctx, conv.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "stream setup failed")
		return
	}
	defer stream.Cancel()

	setSSEHeaders(c)
	c.Stream(func(w io.Writer) bool {
		select {
		case ev, open := <-stream.Events():
			if !open {
				return false
			}
			c.SSEvent(eventAdded, toMessageResponse(ev.Message))
			return true
		case <-ctx.Done():
			return false
		}
	})
}

func setSSEHeaders(c *gin.Context) {
	h := c.Writer.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
	h.Set("X-Accel-Buffering", "no") // disable proxy buffering
}

func eventName(k store.EventKind) string {
	switch k {
	case store.EventUpdated:
		return eventUpdated
	case store.EventRemoved:
		return eventRemoved
	default:
		return eventAdded
	}
}
