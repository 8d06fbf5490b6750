package domain

import (
	"encoding/json"
	"errors"
	"testing"
	"time"
)

// jsonRoundTrip pushes a field map through JSON the way the store does, so
// decode paths see float64 numbers, []any slices, and map[string]any maps.
func jsonRoundTrip(t *testing.T, fields map[string]any) map[string]any {
	t.Helper()
	raw, err := json.Marshal(fields)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	return out
}

func TestUserCodec_RoundTrip(t *testing.T) {
	u := &User{ID: "u1", Name: "Alice", Email: "alice@x.io", AvatarURL: "http://img/1"}
	got, err := DecodeUser(jsonRoundTrip(t, EncodeUser(u)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if *got != *u {
		t.Fatalf("round trip mismatch: %+v != %+v", got, u)
	}

	if _, err := DecodeUser(map[string]any{"name": "no id"}); !errors.Is(err, ErrBadDocument) {
		t.Fatalf("expected ErrBadDocument, got %v", err)
	}
}

func TestConversationCodec_RoundTrip(t *testing.T) {
	c := NewConversation("a", "b", time.Unix(1700000000, 0))
	c.LastMessage = "hello"

	got, err := DecodeConversation(jsonRoundTrip(t, EncodeConversation(c)))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ID != c.ID || got.Timestamp != 1700000000 || got.LastMessage != "hello" {
		t.Fatalf("scalar fields mismatch: %+v", got)
	}
	if len(got.ParticipantIDs) != 2 || got.ParticipantIDs[0] != "a" || got.ParticipantIDs[1] != "b" {
		t.Fatalf("participants mismatch: %v", got.ParticipantIDs)
	}
	if !got.ReadState["a"] || !got.ReadState["b"] || len(got.ReadState) != 2 {
		t.Fatalf("read state mismatch: %v", got.ReadState)
	}
}

func TestDecodeConversation_Malformed(t *testing.T) {
	cases := []map[string]any{
		{"userIDs": []any{"a"}, "isRead": map[string]any{}},         // missing id
		{"id": "c1", "userIDs": []any{1.0}},                         // non-string participant
		{"id": "c1", "userIDs": []any{"a"}, "isRead": "not a map"},  // bad read state
		{"id": "c1", "userIDs": []any{"a"}, "isRead": map[string]any{"a": "yes"}}, // non-bool flag
	}
	for i, fields := range cases {
		if _, err := DecodeConversation(fields); !errors.Is(err, ErrBadDocument) {
			t.Fatalf("case %d: expected ErrBadDocument, got %v", i, err)
		}
	}
}

func TestMessageCodec_ContentTypeDerivation(t *testing.T) {
	cases := []struct {
		name     string
		msg      *Message
		wantType ContentType
		wantBody string
	}{
		{"text", NewMessage("a", ContentText, "hi there", time.Unix(10, 0)), ContentText, "hi there"},
		{"image", NewMessage("a", ContentImage, "http://blob/img", time.Unix(10, 0)), ContentImage, "http://blob/img"},
		{"location", NewMessage("a", ContentLocation, "52.1,4.3", time.Unix(10, 0)), ContentLocation, "52.1,4.3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := DecodeMessage("c1", jsonRoundTrip(t, EncodeMessage(tc.msg)))
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if got.ContentType != tc.wantType || got.Body != tc.wantBody {
				t.Fatalf("derived %v/%q, want %v/%q", got.ContentType, got.Body, tc.wantType, tc.wantBody)
			}
			if got.ConversationID != "c1" || got.SenderID != "a" || got.Timestamp != 10 {
				t.Fatalf("fields mismatch: %+v", got)
			}
		})
	}
}

func TestDecodeMessage_LocationWinsOverImage(t *testing.T) {
	got, err := DecodeMessage("c1", map[string]any{
		"id":             "m1",
		"ownerID":        "a",
		"location":       "1,2",
		"profilePicLink": "http://img",
	})
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got.ContentType != ContentLocation || got.Body != "1,2" {
		t.Fatalf("location should win: %+v", got)
	}
}

func TestPreview(t *testing.T) {
	now := time.Unix(0, 0)
	if p := NewMessage("a", ContentText, "what's up", now).Preview(); p != "what's up" {
		t.Fatalf("text preview: %q", p)
	}
	if p := NewMessage("a", ContentImage, "http://img", now).Preview(); p != PreviewAttachment {
		t.Fatalf("image preview: %q", p)
	}
	if p := NewMessage("a", ContentLocation, "1,2", now).Preview(); p != PreviewLocation {
		t.Fatalf("location preview: %q", p)
	}
}

func TestConversationHelpers(t *testing.T) {
	c := NewConversation("a", "b", time.Unix(0, 0))
	if !c.HasParticipant("a") || !c.HasParticipant("b") || c.HasParticipant("z") {
		t.Fatalf("HasParticipant wrong")
	}
	if c.OtherParticipant("a") != "b" || c.OtherParticipant("b") != "a" {
		t.Fatalf("OtherParticipant wrong")
	}
}
