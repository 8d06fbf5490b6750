// Package services – MessageService
//
// This file implements the message ledger: append-only persistence of
// messages under their conversation, live subscription to new entries, and
// the best-effort batch that marks incoming messages read. The ledger is
// authoritative; the conversation summary is a derived projection updated
// elsewhere (ConversationService), never the other way around.
package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mexonis/quickchat-backend/internal/domain"
	"github.com/mexonis/quickchat-backend/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MessageService is the message ledger over the document store.
type MessageService struct {
	// Store is the document store acting as system of record.
	Store store.Store
	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

// NewMessageService constructs a ledger over st.
func NewMessageService(st store.Store) *MessageService {
	return &MessageService{Store: st}
}

func (s *MessageService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Append persists msg as a new entry in the conversation's ledger and
// returns the stored message. Image messages must already carry a blob URL
// in Body; the ledger never handles binary payloads. Missing id or
// timestamp are assigned here (sender clock, whole epoch seconds).
func (s *MessageService) Append(ctx context.Context, conversationID string, msg *domain.Message) (*domain.Message, error) {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "Append",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer span.End()

	if conversationID == "" {
		return nil, ErrConversationNotFound
	}
	if msg.SenderID == "" {
		return nil, ErrEmptySender
	}
	if msg.Body == "" {
		return nil, ErrEmptyMessage
	}

	if msg.ID == "" {
		msg.ID = uuid.NewString()
	}
	if msg.Timestamp == 0 {
		msg.Timestamp = s.now().Unix()
	}
	msg.ConversationID = conversationID

	if err := s.Store.Upsert(ctx, domain.MessagesCollection(conversationID), msg.ID,
		domain.EncodeMessage(msg)); err != nil {
		return nil, fmt.Errorf("append message: %w", err)
	}
	return msg, nil
}

// Snapshot returns all messages of the conversation ordered for display:
// timestamp ascending, ties kept in store insertion order.
func (s *MessageService) Snapshot(ctx context.Context, conversationID string) ([]*domain.Message, error) {
	docs, err := s.Store.Query(ctx, domain.MessagesCollection(conversationID))
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	out := make([]*domain.Message, 0, len(docs))
	for _, doc := range docs {
		msg, derr := domain.DecodeMessage(conversationID, doc.Fields)
		if derr != nil {
			continue
		}
		out = append(out, msg)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp < out[j].Timestamp })
	return out, nil
}

// MessageEvent is one new entry on a conversation's ledger.
type MessageEvent struct {
	Message *domain.Message
}

// MessageStream is a live, cancellable feed of appended messages. The
// Events channel closes after Cancel.
type MessageStream struct {
	sub    *store.Subscription
	events chan MessageEvent
}

// Events returns the receive side of the stream.
func (s *MessageStream) Events() <-chan MessageEvent { return s.events }

// Cancel stops delivery. The owning component must call it on teardown.
func (s *MessageStream) Cancel() { s.sub.Cancel() }

// Subscribe delivers every message appended to the conversation, exactly
// once, in store order. The existing ledger is replayed first. Only
// additions are forwarded; messages are immutable so updates carry no
// display information (the per-message read flag changes via MarkAllRead
// are summary bookkeeping, not content).
func (s *MessageService) Subscribe(ctx context.Context, conversationID string) (*MessageStream, error) {
	if conversationID == "" {
		return nil, ErrConversationNotFound
	}
	sub, err := s.Store.Subscribe(ctx, domain.MessagesCollection(conversationID))
	if err != nil {
		return nil, fmt.Errorf("watch messages: %w", err)
	}

	stream := &MessageStream{sub: sub, events: make(chan MessageEvent)}
	go func() {
		defer close(stream.events)
		for {
			select {
			case <-sub.Done():
				return
			case e := <-sub.Events():
				if e.Kind != store.EventAdded {
					continue
				}
				msg, derr := domain.DecodeMessage(conversationID, e.Doc.Fields)
				if derr != nil {
					continue
				}
				select {
				case stream.events <- MessageEvent{Message: msg}:
				case <-sub.Done():
					return
				}
			}
		}
	}()
	return stream, nil
}

// MarkAllRead flips the read flag on every message the reader did not
// author. It is a scan over the current snapshot with one write per unread
// message, not a transaction: a mid-batch failure leaves earlier flags
// written and later ones untouched, and nothing rolls back. Callers treat
// it as best-effort.
func (s *MessageService) MarkAllRead(ctx context.Context, conversationID, readerID string) error {
	tr := otel.Tracer("services/MessageService")
	ctx, span := tr.Start(ctx, "MarkAllRead",
		trace.WithAttributes(attribute.String("conversation.id", conversationID)))
	defer span.End()

	collection := domain.MessagesCollection(conversationID)
	docs, err := s.Store.Query(ctx, collection)
	if err != nil {
		return fmt.Errorf("mark all read: %w", err)
	}
	for _, doc := range docs {
		msg, derr := domain.DecodeMessage(conversationID, doc.Fields)
		if derr != nil {
			continue
		}
		if msg.SenderID == readerID || msg.IsRead {
			continue
		}
		msg.IsRead = true
		if err := s.Store.Upsert(ctx, collection, msg.ID, domain.EncodeMessage(msg)); err != nil {
			return fmt.Errorf("mark all read: %w", err)
		}
	}
	return nil
}
