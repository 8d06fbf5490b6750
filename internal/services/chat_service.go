// Package services – ChatService
//
// This file implements the send coordinator: the single entry point the
// transport layer calls to send a message. It sequences the two-step
// "append to ledger, then refresh conversation summary" so the caller
// issues one call and sees one failure.
//
// The ordering is deliberate: the ledger write comes first, and a ledger
// failure returns immediately without touching the summary. When the
// summary update fails afterwards the message is already durable: the
// system prefers "message exists, summary lags" over "message lost".
package services

import (
	"context"
	"fmt"

	"github.com/mexonis/quickchat-backend/internal/domain"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// MessageLedger is the slice of MessageService the coordinator needs.
type MessageLedger interface {
	Append(ctx context.Context, conversationID string, msg *domain.Message) (*domain.Message, error)
}

// ConversationRegistry is the slice of ConversationService the coordinator
// needs.
type ConversationRegistry interface {
	RecordOutgoingMessage(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error
}

// ChatService coordinates message sends across the ledger and the registry.
type ChatService struct {
	Ledger   MessageLedger
	Registry ConversationRegistry
}

// NewChatService constructs the coordinator.
func NewChatService(ledger MessageLedger, registry ConversationRegistry) *ChatService {
	return &ChatService{Ledger: ledger, Registry: registry}
}

// Send appends msg to the conversation's ledger and then refreshes the
// conversation summary. On append failure the summary is left untouched
// and the error is returned. On summary failure the error is returned as
// well, but the message itself is already stored.
func (s *ChatService) Send(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error {
	tr := otel.Tracer("services/ChatService")
	ctx, span := tr.Start(ctx, "Send",
		trace.WithAttributes(
			attribute.String("conversation.id", conv.ID),
			attribute.String("sender.id", msg.SenderID),
		),
	)
	defer span.End()

	appended, err := s.Ledger.Append(ctx, conv.ID, msg)
	if err != nil {
		return fmt.Errorf("send: %w", err)
	}
	if err := s.Registry.RecordOutgoingMessage(ctx, conv, appended); err != nil {
		return fmt.Errorf("send: summary update after durable append: %w", err)
	}
	return nil
}
