// Codec between typed domain entities and the untyped field maps the
// document store persists. This is the only place in the codebase where the
// weakly-typed wire shape is visible; everything above it works with the
// typed records in models.go.
//
// Wire shapes (field name: type):
//   - users:         id, name, email, profilePicLink?
//   - conversations: id, userIDs [string], timestamp int, lastMessage?, isRead {string:bool}
//   - messages:      id, message?, timestamp int, location?, ownerID, profilePicLink?, isRead bool
//
// A message carries exactly one payload field: "message" for text,
// "profilePicLink" for an image URL, "location" for a coordinate pair. The
// content type is derived from which field is present.
package domain

import (
	"errors"
	"fmt"
)

// ErrBadDocument is returned when a stored document cannot be decoded into
// its typed record (missing id, malformed field types).
var ErrBadDocument = errors.New("malformed document")

// EncodeUser renders a user profile as store fields.
func EncodeUser(u *User) map[string]any {
	fields := map[string]any{
		"id":    u.ID,
		"name":  u.Name,
		"email": u.Email,
	}
	if u.AvatarURL != "" {
		fields["profilePicLink"] = u.AvatarURL
	}
	return fields
}

// DecodeUser parses a user document.
func DecodeUser(fields map[string]any) (*User, error) {
	id := asString(fields["id"])
	if id == "" {
		return nil, fmt.Errorf("user: %w: missing id", ErrBadDocument)
	}
	return &User{
		ID:        id,
		Name:      asString(fields["name"]),
		Email:     asString(fields["email"]),
		AvatarURL: asString(fields["profilePicLink"]),
	}, nil
}

// EncodeConversation renders a conversation as store fields. The full
// document is written on every mutation, matching the merge-upsert the
// store performs.
func EncodeConversation(c *Conversation) map[string]any {
	fields := map[string]any{
		"id":        c.ID,
		"userIDs":   c.ParticipantIDs,
		"timestamp": c.Timestamp,
		"isRead":    c.ReadState,
	}
	if c.LastMessage != "" {
		fields["lastMessage"] = c.LastMessage
	}
	return fields
}

// DecodeConversation parses a conversation document.
func DecodeConversation(fields map[string]any) (*Conversation, error) {
	id := asString(fields["id"])
	if id == "" {
		return nil, fmt.Errorf("conversation: %w: missing id", ErrBadDocument)
	}
	participants, err := asStringSlice(fields["userIDs"])
	if err != nil {
		return nil, fmt.Errorf("conversation %s: %w: userIDs", id, ErrBadDocument)
	}
	readState, err := asBoolMap(fields["isRead"])
	if err != nil {
		return nil, fmt.Errorf("conversation %s: %w: isRead", id, ErrBadDocument)
	}
	return &Conversation{
		ID:             id,
		ParticipantIDs: participants,
		LastMessage:    asString(fields["lastMessage"]),
		Timestamp:      asInt64(fields["timestamp"]),
		ReadState:      readState,
	}, nil
}

// EncodeMessage renders a message as store fields. Exactly one payload
// field is written depending on the content type.
func EncodeMessage(m *Message) map[string]any {
	fields := map[string]any{
		"id":        m.ID,
		"ownerID":   m.SenderID,
		"timestamp": m.Timestamp,
		"isRead":    m.IsRead,
	}
	switch m.ContentType {
	case ContentImage:
		fields["profilePicLink"] = m.Body
	case ContentLocation:
		fields["location"] = m.Body
	default:
		fields["message"] = m.Body
	}
	return fields
}

// DecodeMessage parses a message document belonging to conversationID.
// The content type is derived from the payload field that is present;
// location wins over image, image over text.
func DecodeMessage(conversationID string, fields map[string]any) (*Message, error) {
	id := asString(fields["id"])
	if id == "" {
		return nil, fmt.Errorf("message: %w: missing id", ErrBadDocument)
	}
	m := &Message{
		ID:             id,
		ConversationID: conversationID,
		SenderID:       asString(fields["ownerID"]),
		Timestamp:      asInt64(fields["timestamp"]),
		IsRead:         asBool(fields["isRead"]),
	}
	switch {
	case asString(fields["location"]) != "":
		m.ContentType = ContentLocation
		m.Body = asString(fields["location"])
	case asString(fields["profilePicLink"]) != "":
		m.ContentType = ContentImage
		m.Body = asString(fields["profilePicLink"])
	default:
		m.ContentType = ContentText
		m.Body = asString(fields["message"])
	}
	return m, nil
}

// --- loose-typed field accessors ---
//
// Field values round-trip through JSON inside the store, so numbers come
// back as float64, slices as []any, and maps as map[string]any.

func asString(v any) string {
	s, _ := v.(string)
	return s
}

func asBool(v any) bool {
	b, _ := v.(bool)
	return b
}

func asInt64(v any) int64 {
	switch n := v.(type) {
	case int64:
		return n
	case int:
		return int64(n)
	case float64:
		return int64(n)
	default:
		return 0
	}
}

func asStringSlice(v any) ([]string, error) {
	switch s := v.(type) {
	case []string:
		return append([]string(nil), s...), nil
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			str, ok := e.(string)
			if !ok {
				return nil, ErrBadDocument
			}
			out = append(out, str)
		}
		return out, nil
	case nil:
		return nil, nil
	default:
		return nil, ErrBadDocument
	}
}

func asBoolMap(v any) (map[string]bool, error) {
	switch m := v.(type) {
	case map[string]bool:
		out := make(map[string]bool, len(m))
		for k, b := range m {
			out[k] = b
		}
		return out, nil
	case map[string]any:
		out := make(map[string]bool, len(m))
		for k, e := range m {
			b, ok := e.(bool)
			if !ok {
				return nil, ErrBadDocument
			}
			out[k] = b
		}
		return out, nil
	case nil:
		return map[string]bool{}, nil
	default:
		return nil, ErrBadDocument
	}
}
