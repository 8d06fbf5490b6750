// Package services – ConversationService
//
// This file implements the conversation registry: create-or-find for a
// participant pair, realtime listing per user, read-state mutation, and the
// summary update applied after each outgoing message. The registry owns the
// conversation document; the message ledger never writes it.
package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/mexonis/quickchat-backend/internal/domain"
	"github.com/mexonis/quickchat-backend/internal/store"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// ConversationService is the conversation registry over the document store.
type ConversationService struct {
	// Store is the document store acting as system of record.
	Store store.Store
	// Now overrides the clock in tests; nil means time.Now.
	Now func() time.Time
}

// NewConversationService constructs a registry over st.
func NewConversationService(st store.Store) *ConversationService {
	return &ConversationService{Store: st}
}

func (s *ConversationService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// FindOrCreate returns the conversation between a and b, creating it when
// none exists. The pair is unordered: FindOrCreate(a, b) and
// FindOrCreate(b, a) resolve to the same conversation.
//
// Two concurrent calls for the same new pair can both observe "not found"
// and both create a conversation. The store offers no uniqueness
// constraint across fields, so this race is accepted rather than papered
// over with process-local locking that a second instance would defeat.
func (s *ConversationService) FindOrCreate(ctx context.Context, a, b string) (*domain.Conversation, error) {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "FindOrCreate")
	defer span.End()

	if a == "" || b == "" {
		return nil, ErrEmptyParticipant
	}
	if a == b {
		return nil, ErrSameParticipant
	}

	docs, err := s.Store.Query(ctx, domain.CollectionConversations,
		store.Where("userIDs", store.OpArrayContains, a))
	if err != nil {
		return nil, fmt.Errorf("find conversation: %w", err)
	}
	for _, doc := range docs {
		conv, derr := domain.DecodeConversation(doc.Fields)
		if derr != nil {
			continue // skip undecodable documents, as the listener path does
		}
		if conv.HasParticipant(b) {
			return conv, nil
		}
	}

	conv := domain.NewConversation(a, b, s.now())
	if err := s.Store.Upsert(ctx, domain.CollectionConversations, conv.ID,
		domain.EncodeConversation(conv)); err != nil {
		return nil, fmt.Errorf("create conversation: %w", err)
	}
	span.SetAttributes(attribute.String("conversation.id", conv.ID))
	return conv, nil
}

// Get fetches one conversation by id.
func (s *ConversationService) Get(ctx context.Context, id string) (*domain.Conversation, error) {
	docs, err := s.Store.Query(ctx, domain.CollectionConversations,
		store.Where("id", store.OpEqual, id))
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrConversationNotFound
	}
	conv, err := domain.DecodeConversation(docs[0].Fields)
	if err != nil {
		return nil, fmt.Errorf("get conversation: %w", err)
	}
	return conv, nil
}

// Snapshot lists the user's conversations ordered by activity, most recent
// first. Store delivery order does not track timestamps, so the sort
// happens here.
func (s *ConversationService) Snapshot(ctx context.Context, userID string) ([]*domain.Conversation, error) {
	docs, err := s.Store.Query(ctx, domain.CollectionConversations,
		store.Where("userIDs", store.OpArrayContains, userID))
	if err != nil {
		return nil, fmt.Errorf("list conversations: %w", err)
	}
	out := make([]*domain.Conversation, 0, len(docs))
	for _, doc := range docs {
		conv, derr := domain.DecodeConversation(doc.Fields)
		if derr != nil {
			continue
		}
		out = append(out, conv)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp > out[j].Timestamp })
	return out, nil
}

// ConversationEvent is one change on a user's conversation list.
type ConversationEvent struct {
	Kind         store.EventKind
	Conversation *domain.Conversation
}

// ConversationStream is a live, cancellable feed of conversation changes.
// The Events channel closes after Cancel.
type ConversationStream struct {
	sub    *store.Subscription
	events chan ConversationEvent
}

// Events returns the receive side of the stream.
func (s *ConversationStream) Events() <-chan ConversationEvent { return s.events }

// Cancel stops delivery. The owning component must call it on teardown.
func (s *ConversationStream) Cancel() { s.sub.Cancel() }

// ListForUser subscribes to every conversation the user participates in.
// The current snapshot is replayed as added events before live changes.
// Delivery order is store order; callers re-sort by Timestamp for display.
func (s *ConversationService) ListForUser(ctx context.Context, userID string) (*ConversationStream, error) {
	if userID == "" {
		return nil, ErrEmptyParticipant
	}
	sub, err := s.Store.Subscribe(ctx, domain.CollectionConversations,
		store.Where("userIDs", store.OpArrayContains, userID))
	if err != nil {
		return nil, fmt.Errorf("watch conversations: %w", err)
	}

	stream := &ConversationStream{sub: sub, events: make(chan ConversationEvent)}
	go func() {
		defer close(stream.events)
		for {
			select {
			case <-sub.Done():
				return
			case e := <-sub.Events():
				conv, derr := domain.DecodeConversation(e.Doc.Fields)
				if derr != nil {
					continue
				}
				select {
				case stream.events <- ConversationEvent{Kind: e.Kind, Conversation: conv}:
				case <-sub.Done():
					return
				}
			}
		}
	}()
	return stream, nil
}

// MarkRead records that userID has seen the conversation's latest activity.
// A second call in a row is a no-op and performs no store write.
func (s *ConversationService) MarkRead(ctx context.Context, conv *domain.Conversation, userID string) error {
	if !conv.HasParticipant(userID) {
		return ErrNotParticipant
	}
	if conv.ReadState[userID] {
		return nil
	}
	conv.ReadState[userID] = true
	if err := s.Store.Upsert(ctx, domain.CollectionConversations, conv.ID,
		domain.EncodeConversation(conv)); err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// RecordOutgoingMessage refreshes the conversation summary after msg has
// been durably appended to the ledger: activity timestamp, preview text,
// and read flags (authoring keeps the sender's own flag true, everyone
// else becomes unread). The activity timestamp never moves backwards even
// if the sender's clock lags.
func (s *ConversationService) RecordOutgoingMessage(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error {
	tr := otel.Tracer("services/ConversationService")
	ctx, span := tr.Start(ctx, "RecordOutgoingMessage",
		trace.WithAttributes(attribute.String("conversation.id", conv.ID)))
	defer span.End()

	if !conv.HasParticipant(msg.SenderID) {
		return ErrNotParticipant
	}

	if msg.Timestamp > conv.Timestamp {
		conv.Timestamp = msg.Timestamp
	}
	conv.LastMessage = msg.Preview()

	// Rebuild the map from the participant list so it always carries
	// exactly one entry per participant.
	readState := make(map[string]bool, len(conv.ParticipantIDs))
	for _, id := range conv.ParticipantIDs {
		readState[id] = id == msg.SenderID
	}
	conv.ReadState = readState

	if err := s.Store.Upsert(ctx, domain.CollectionConversations, conv.ID,
		domain.EncodeConversation(conv)); err != nil {
		return fmt.Errorf("update summary: %w", err)
	}
	return nil
}
