// Package domain defines the core chat entities (users, two-party
// conversations, and messages) together with the codec that maps them to
// and from the generic documents persisted in the document store. The store
// is the system of record; these types are typed projections of it.
package domain

import (
	"time"

	"github.com/google/uuid"
)

// Collection names in the document store.
const (
	CollectionUsers         = "users"
	CollectionConversations = "conversations"
	CollectionCredentials   = "credentials"
)

// MessagesCollection returns the nested collection holding the messages of
// one conversation.
func MessagesCollection(conversationID string) string {
	return CollectionConversations + "/" + conversationID + "/messages"
}

// ContentType classifies a message payload.
type ContentType int

const (
	// ContentText carries the message text verbatim in Body.
	ContentText ContentType = iota
	// ContentImage carries a blob-store URL in Body. The binary upload
	// happens before the message is appended; the ledger never sees bytes.
	ContentImage
	// ContentLocation carries a serialized "lat,lon" pair in Body.
	ContentLocation
)

// Preview placeholders for non-text messages shown in conversation lists.
const (
	PreviewAttachment = "Attachment"
	PreviewLocation   = "Location"
)

// User is a registered profile. Immutable after creation except AvatarURL,
// which is set once a profile image upload completes.
type User struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"profilePicLink,omitempty"`
}

// Conversation is a thread between exactly two participants.
//
// Fields:
//   - ID: client-generated UUID, globally unique.
//   - ParticipantIDs: the unordered pair, fixed at creation.
//   - LastMessage: short preview of the most recent message ("" if none).
//   - Timestamp: epoch seconds of the last activity; never decreases.
//   - ReadState: one boolean per participant; true means the participant
//     has seen the latest activity. Exactly one entry per participant.
type Conversation struct {
	ID             string          `json:"id"`
	ParticipantIDs []string        `json:"userIDs"`
	LastMessage    string          `json:"lastMessage,omitempty"`
	Timestamp      int64           `json:"timestamp"`
	ReadState      map[string]bool `json:"isRead"`
}

// NewConversation builds a fresh conversation between a and b. With no
// messages yet there is nothing unread, so both read flags start true.
func NewConversation(a, b string, now time.Time) *Conversation {
	return &Conversation{
		ID:             uuid.NewString(),
		ParticipantIDs: []string{a, b},
		Timestamp:      now.Unix(),
		ReadState:      map[string]bool{a: true, b: true},
	}
}

// HasParticipant reports whether userID is one of the two participants.
func (c *Conversation) HasParticipant(userID string) bool {
	for _, id := range c.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// OtherParticipant returns the participant that is not userID, or "" when
// userID is not part of the conversation.
func (c *Conversation) OtherParticipant(userID string) string {
	if !c.HasParticipant(userID) {
		return ""
	}
	for _, id := range c.ParticipantIDs {
		if id != userID {
			return id
		}
	}
	return ""
}

// Message is a single immutable entry in a conversation's ledger.
// Timestamp is assigned from the sender's clock in whole epoch seconds;
// ties are broken by the store's own insertion order.
type Message struct {
	ID             string      `json:"id"`
	ConversationID string      `json:"-"`
	SenderID       string      `json:"ownerID"`
	ContentType    ContentType `json:"-"`
	Body           string      `json:"-"`
	Timestamp      int64       `json:"timestamp"`
	IsRead         bool        `json:"isRead"`
}

// NewMessage builds a text/image/location message from senderID.
func NewMessage(senderID string, ct ContentType, body string, now time.Time) *Message {
	return &Message{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		ContentType: ct,
		Body:        body,
		Timestamp:   now.Unix(),
	}
}

// Preview returns the conversation-list summary for the message: the text
// body verbatim, or a fixed placeholder for attachments and locations.
func (m *Message) Preview() string {
	switch m.ContentType {
	case ContentImage:
		return PreviewAttachment
	case ContentLocation:
		return PreviewLocation
	default:
		return m.Body
	}
}
