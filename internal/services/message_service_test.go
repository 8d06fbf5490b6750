package services

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/mexonis/quickchat-backend/internal/domain"
)

func TestAppend_Validation(t *testing.T) {
	svc := NewMessageService(newTestStore(t))
	ctx := context.Background()

	if _, err := svc.Append(ctx, "", &domain.Message{SenderID: "a", Body: "x"}); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("empty conversation: %v", err)
	}
	if _, err := svc.Append(ctx, "c1", &domain.Message{Body: "x"}); !errors.Is(err, ErrEmptySender) {
		t.Fatalf("empty sender: %v", err)
	}
	if _, err := svc.Append(ctx, "c1", &domain.Message{SenderID: "a"}); !errors.Is(err, ErrEmptyMessage) {
		t.Fatalf("empty body: %v", err)
	}
}

func TestAppend_AssignsIDAndTimestamp(t *testing.T) {
	svc := NewMessageService(newTestStore(t))
	svc.Now = func() time.Time { return time.Unix(1234, 0) }

	msg, err := svc.Append(context.Background(), "c1", &domain.Message{SenderID: "a", Body: "hello"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if msg.ID == "" {
		t.Fatalf("id not assigned")
	}
	if msg.Timestamp != 1234 {
		t.Fatalf("timestamp not assigned from clock: %d", msg.Timestamp)
	}
	if msg.ConversationID != "c1" {
		t.Fatalf("conversation id not set: %q", msg.ConversationID)
	}

	// Explicit timestamps are kept.
	msg2, err := svc.Append(context.Background(), "c1",
		&domain.Message{SenderID: "a", Body: "again", Timestamp: 99})
	if err != nil || msg2.Timestamp != 99 {
		t.Fatalf("explicit timestamp: %v %d", err, msg2.Timestamp)
	}
}

func TestSnapshot_OrderedAscendingWithStableTies(t *testing.T) {
	svc := NewMessageService(newTestStore(t))
	ctx := context.Background()

	// Appended out of order, with two messages sharing a timestamp.
	seed := []struct {
		body string
		ts   int64
	}{
		{"third", 300},
		{"first", 100},
		{"tie-a", 200},
		{"tie-b", 200},
	}
	for _, s := range seed {
		if _, err := svc.Append(ctx, "c1",
			&domain.Message{SenderID: "a", Body: s.body, Timestamp: s.ts}); err != nil {
			t.Fatalf("append %s: %v", s.body, err)
		}
	}

	msgs, err := svc.Snapshot(ctx, "c1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	got := make([]string, len(msgs))
	for i, m := range msgs {
		got[i] = m.Body
	}
	want := []string{"first", "tie-a", "tie-b", "third"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order %v, want %v", got, want)
		}
	}
}

func TestSubscribe_ForwardsOnlyAppendedMessages(t *testing.T) {
	svc := NewMessageService(newTestStore(t))
	ctx := context.Background()

	if _, err := svc.Subscribe(ctx, ""); !errors.Is(err, ErrConversationNotFound) {
		t.Fatalf("empty conversation: %v", err)
	}

	first, err := svc.Append(ctx, "c1", &domain.Message{SenderID: "a", Body: "hello"})
	if err != nil {
		t.Fatalf("seed: %v", err)
	}

	stream, err := svc.Subscribe(ctx, "c1")
	if err != nil {
		t.Fatalf("subscribe: %v", err)
	}
	defer stream.Cancel()

	if got := waitMessage(t, stream); got.ID != first.ID {
		t.Fatalf("replay wrong: %+v", got)
	}

	// Read-flag updates are bookkeeping, not content: nothing is forwarded
	// for them, and the next delivery is the next appended message.
	if err := svc.MarkAllRead(ctx, "c1", "b"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	second, err := svc.Append(ctx, "c1", &domain.Message{SenderID: "b", Body: "reply"})
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if got := waitMessage(t, stream); got.ID != second.ID {
		t.Fatalf("expected the appended message, got %+v", got)
	}
}

func TestMarkAllRead_SkipsOwnAndAlreadyRead(t *testing.T) {
	ts := &trackingStore{Store: newTestStore(t)}
	svc := NewMessageService(ts)
	ctx := context.Background()

	if _, err := svc.Append(ctx, "c1", &domain.Message{SenderID: "alice", Body: "mine"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := svc.Append(ctx, "c1", &domain.Message{SenderID: "bob", Body: "theirs"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := svc.Append(ctx, "c1",
		&domain.Message{SenderID: "bob", Body: "seen", IsRead: true}); err != nil {
		t.Fatalf("append: %v", err)
	}

	writes := ts.upsertCount()
	if err := svc.MarkAllRead(ctx, "c1", "alice"); err != nil {
		t.Fatalf("mark all read: %v", err)
	}
	// Only the single unread incoming message is rewritten.
	if ts.upsertCount() != writes+1 {
		t.Fatalf("expected exactly one write, got %d", ts.upsertCount()-writes)
	}

	msgs, err := svc.Snapshot(ctx, "c1")
	if err != nil {
		t.Fatalf("snapshot: %v", err)
	}
	for _, m := range msgs {
		if m.SenderID == "bob" && !m.IsRead {
			t.Fatalf("incoming message left unread: %+v", m)
		}
	}
}

func TestMarkAllRead_PartialFailureLeavesEarlierWrites(t *testing.T) {
	ts := &trackingStore{Store: newTestStore(t)}
	svc := NewMessageService(ts)
	ctx := context.Background()

	var ids []string
	for i := 0; i < 3; i++ {
		msg, err := svc.Append(ctx, "c1",
			&domain.Message{SenderID: "bob", Body: fmt.Sprintf("m%d", i), Timestamp: int64(i + 1)})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		ids = append(ids, msg.ID)
	}

	// Fail the second flag write. The first stays written, the third is
	// never attempted, and nothing rolls back.
	boom := errors.New("disk full")
	ts.failUpsert = func(collection, id string) error {
		if id == ids[1] {
			return boom
		}
		return nil
	}

	err := svc.MarkAllRead(ctx, "c1", "alice")
	if !errors.Is(err, boom) {
		t.Fatalf("expected injected failure, got %v", err)
	}

	msgs, err2 := svc.Snapshot(ctx, "c1")
	if err2 != nil {
		t.Fatalf("snapshot: %v", err2)
	}
	read := map[string]bool{}
	for _, m := range msgs {
		read[m.ID] = m.IsRead
	}
	if !read[ids[0]] || read[ids[1]] || read[ids[2]] {
		t.Fatalf("partial state wrong: %v", read)
	}
}

func waitMessage(t *testing.T, s *MessageStream) *domain.Message {
	t.Helper()
	select {
	case ev, open := <-s.Events():
		if !open {
			t.Fatalf("stream closed")
		}
		return ev.Message
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for message event")
		return nil
	}
}
