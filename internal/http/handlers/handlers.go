// Handler wiring.
//
// Handlers are transport-thin: they validate input, call application
// services through narrow context-aware interfaces, and translate results
// into HTTP responses. All business rules (participant checks, read-state
// semantics, send ordering) live in the services.
package handlers

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/mexonis/quickchat-backend/internal/blob"
	"github.com/mexonis/quickchat-backend/internal/domain"
	"github.com/mexonis/quickchat-backend/internal/http/middleware"
	"github.com/mexonis/quickchat-backend/internal/services"
)

//
// Service contracts (context-aware)
//

// IdentityProvider defines the account operations consumed by the auth
// endpoints. Implementations must be safe for concurrent use.
type IdentityProvider interface {
	// Register creates an account and returns (userID, token).
	Register(ctx context.Context, email, password string) (string, string, error)
	// SignIn verifies credentials and returns (userID, token).
	SignIn(ctx context.Context, email, password string) (string, string, error)
}

// ProfileService defines user-profile operations consumed by HTTP handlers.
type ProfileService interface {
	// CreateProfile stores a new user document.
	CreateProfile(ctx context.Context, u *domain.User) error
	// Profile fetches one user by id.
	Profile(ctx context.Context, id string) (*domain.User, error)
	// Search lists users whose name starts with prefix ("" lists all).
	Search(ctx context.Context, prefix string) ([]*domain.User, error)
	// SetAvatar uploads image bytes and links them to the user document.
	SetAvatar(ctx context.Context, userID string, data []byte) (string, error)
}

// ConversationRegistry defines the conversation operations consumed by
// HTTP handlers.
type ConversationRegistry interface {
	FindOrCreate(ctx context.Context, a, b string) (*domain.Conversation, error)
	Get(ctx context.Context, id string) (*domain.Conversation, error)
	Snapshot(ctx context.Context, userID string) ([]*domain.Conversation, error)
	ListForUser(ctx context.Context, userID string) (*services.ConversationStream, error)
	MarkRead(ctx context.Context, conv *domain.Conversation, userID string) error
}

// MessageLedger defines the message operations consumed by HTTP handlers.
type MessageLedger interface {
	Snapshot(ctx context.Context, conversationID string) ([]*domain.Message, error)
	Subscribe(ctx context.Context, conversationID string) (*services.MessageStream, error)
	MarkAllRead(ctx context.Context, conversationID, readerID string) error
}

// SendCoordinator defines the single send entry point.
type SendCoordinator interface {
	Send(ctx context.Context, conv *domain.Conversation, msg *domain.Message) error
}

// UserDirectory resolves user ids to profiles through the read-through
// cache. Handlers use it for existence checks on hot paths.
type UserDirectory interface {
	Get(ctx context.Context, id string) (*domain.User, error)
}

//
// Handler wiring
//

// Handlers groups the HTTP endpoints for auth, profiles, conversations,
// and messages. It depends on abstract service interfaces to keep
// transport concerns separate from business logic.
type Handlers struct {
	auth   IdentityProvider
	users  ProfileService
	convs  ConversationRegistry
	msgs   MessageLedger
	sender SendCoordinator
	dir    UserDirectory
	blobs  blob.Store
}

// New constructs a Handlers instance bound to the given services.
func New(auth IdentityProvider, users ProfileService, convs ConversationRegistry,
	msgs MessageLedger, sender SendCoordinator, dir UserDirectory, blobs blob.Store) *Handlers {
	return &Handlers{
		auth:   auth,
		users:  users,
		convs:  convs,
		msgs:   msgs,
		sender: sender,
		dir:    dir,
		blobs:  blobs,
	}
}

// userID extracts the authenticated user id set by the auth middleware.
func userID(c *gin.Context) string {
	return middleware.UserID(c)
}
