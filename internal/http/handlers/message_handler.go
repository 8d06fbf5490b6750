// Message HTTP handlers.
//
// This file exposes REST endpoints for message resources:
//   - GET  /conversations/{id}/messages       (paginated snapshot, oldest first)
//   - POST /conversations/{id}/messages       (send via the coordinator)
//   - POST /conversations/{id}/messages/read  (mark incoming messages read)
//
// Sending an image takes the encoded bytes inline; the handler uploads
// them to the blob store first and the ledger only ever stores the
// resulting URL.
package handlers

import (
	"encoding/base64"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/mexonis/quickchat-backend/internal/domain"
	"github.com/mexonis/quickchat-backend/internal/utils"
)

// Wire names for message content types.
const (
	messageTypeText     = "text"
	messageTypeImage    = "image"
	messageTypeLocation = "location"
)

// maxImageBytes caps inline image payloads at 10 MiB decoded.
const maxImageBytes = 10 << 20

// SendMessageRequest is the JSON payload for sending a message.
//
// Type selects the content kind and defaults to "text". Text messages put
// the text in Body; location messages put "lat,lon" in Body; image
// messages put the base64-encoded bytes in Image and leave Body empty.
type SendMessageRequest struct {
	Type  string `json:"type"`
	Body  string `json:"body"`
	Image string `json:"image"`
}

// MessageResponse is the wire shape of one ledger entry.
type MessageResponse struct {
	ID        string `json:"id"`
	SenderID  string `json:"ownerID"`
	Type      string `json:"type"`
	Body      string `json:"body"`
	Timestamp int64  `json:"timestamp"`
	IsRead    bool   `json:"isRead"`
}

// Pagination carries pagination metadata for list responses.
type Pagination struct {
	Page       int  `json:"page"`
	PageSize   int  `json:"page_size"`
	Total      int  `json:"total"`
	TotalPages int  `json:"total_pages"`
	HasNext    bool `json:"has_next"`
}

// ListMessagesResponse wraps a page of messages and pagination
// information.
type ListMessagesResponse struct {
	Messages   []MessageResponse `json:"messages"`
	Pagination Pagination        `json:"pagination"`
}

// clampPagination parses and bounds the page and page_size query params.
func clampPagination(c *gin.Context) (page, pageSize int) {
	const (
		defaultPage     = 1
		defaultPageSize = 50
		maxPageSize     = 200
	)
	page = utils.AtoiDefault(c.Query("page"), defaultPage)
	if page < 1 {
		page = 1
	}
	pageSize = utils.AtoiDefault(c.Query("page_size"), defaultPageSize)
	if pageSize < 1 {
		pageSize = 1
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}
	return
}

// ListMessages returns a page of the conversation's messages ordered
// oldest first.
func (h *Handlers) ListMessages(c *gin.Context) {
	conv, okc := h.memberConversation(c)
	if !okc {
		return
	}
	page, pageSize := clampPagination(c)

	msgs, err := h.msgs.Snapshot(c.Request.Context(), conv.ID)
	if err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeListFailed, "message listing failed")
		return
	}

	total := len(msgs)
	totalPages := (total + pageSize - 1) / pageSize
	lo := (page - 1) * pageSize
	hi := lo + pageSize
	if lo > total {
		lo = total
	}
	if hi > total {
		hi = total
	}

	items := make([]MessageResponse, 0, hi-lo)
	for _, m := range msgs[lo:hi] {
		items = append(items, toMessageResponse(m))
	}
	ok(c, http.StatusOK, ListMessagesResponse{
		Messages: items,
		Pagination: Pagination{
			Page:       page,
			PageSize:   pageSize,
			Total:      total,
			TotalPages: totalPages,
			HasNext:    page < totalPages,
		},
	})
}

// SendMessage appends a message to the conversation ledger and refreshes
// the conversation summary. Images are uploaded to the blob store before
// anything is written to the ledger.
func (h *Handlers) SendMessage(c *gin.Context) {
	conv, okc := h.memberConversation(c)
	if !okc {
		return
	}

	var req SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "invalid JSON body")
		return
	}

	ctx := c.Request.Context()
	uid := userID(c)

	var msg *domain.Message
	switch strings.ToLower(strings.TrimSpace(req.Type)) {
	case "", messageTypeText:
		body := strings.TrimSpace(req.Body)
		if body == "" {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body required for text messages")
			return
		}
		msg = &domain.Message{SenderID: uid, ContentType: domain.ContentText, Body: body}

	case messageTypeLocation:
		body := strings.TrimSpace(req.Body)
		if body == "" {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "body required for location messages")
			return
		}
		msg = &domain.Message{SenderID: uid, ContentType: domain.ContentLocation, Body: body}

	case messageTypeImage:
		data, err := base64.StdEncoding.DecodeString(req.Image)
		if err != nil || len(data) == 0 {
			fail(c, http.StatusBadRequest, ErrCodeBadRequest, "image must be non-empty base64")
			return
		}
		if len(data) > maxImageBytes {
			fail(c, http.StatusRequestEntityTooLarge, ErrCodeBadRequest, "image exceeds 10 MiB")
			return
		}
		path := "messages/" + conv.ID + "/" + uuid.NewString()
		url, err := h.blobs.Upload(ctx, path, data)
		if err != nil {
			fail(c, http.StatusInternalServerError, ErrCodeUploadFailed, "image upload failed")
			return
		}
		msg = &domain.Message{SenderID: uid, ContentType: domain.ContentImage, Body: url}

	default:
		fail(c, http.StatusBadRequest, ErrCodeBadRequest, "type must be text, image or location")
		return
	}

	if err := h.sender.Send(ctx, conv, msg); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeSendFailed, "send failed")
		return
	}
	ok(c, http.StatusCreated, toMessageResponse(msg))
}

// MarkMessagesRead flips the read flag on every message the caller did
// not author. The batch is best-effort; a partial failure returns 500 and
// the client simply retries.
func (h *Handlers) MarkMessagesRead(c *gin.Context) {
	conv, okc := h.memberConversation(c)
	if !okc {
		return
	}
	if err := h.msgs.MarkAllRead(c.Request.Context(), conv.ID, userID(c)); err != nil {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "mark read failed")
		return
	}
	noContent(c)
}

// toMessageResponse maps a ledger entry to its wire shape.
func toMessageResponse(m *domain.Message) MessageResponse {
	return MessageResponse{
		ID:        m.ID,
		SenderID:  m.SenderID,
		Type:      messageTypeName(m.ContentType),
		Body:      m.Body,
		Timestamp: m.Timestamp,
		IsRead:    m.IsRead,
	}
}

func messageTypeName(ct domain.ContentType) string {
	switch ct {
	case domain.ContentImage:
		return messageTypeImage
	case domain.ContentLocation:
		return messageTypeLocation
	default:
		return messageTypeText
	}
}
