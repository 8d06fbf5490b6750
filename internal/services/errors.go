// Package services implements the chat core: the conversation registry,
// the message ledger, the send coordinator, the user directory cache, and
// profile management. This file centralizes the service-level error values
// so they can be consistently returned by service methods and checked by
// callers with errors.Is.
//
// Store failures are not represented here: they wrap and surface the
// underlying store error verbatim, and nothing in this layer retries them.
package services

import "errors"

// Conversation-related errors.
var (
	// ErrEmptyParticipant is returned when a participant id is blank.
	ErrEmptyParticipant = errors.New("participant id is empty")

	// ErrSameParticipant is returned when both participants of a
	// conversation would be the same user.
	ErrSameParticipant = errors.New("participants must be distinct")

	// ErrNotParticipant is returned when a user acts on a conversation
	// they are not part of.
	ErrNotParticipant = errors.New("user is not a conversation participant")

	// ErrConversationNotFound indicates the requested conversation does
	// not exist.
	ErrConversationNotFound = errors.New("conversation not found")
)

// Message-related errors.
var (
	// ErrEmptyMessage is returned when a text message has no body.
	ErrEmptyMessage = errors.New("message body is empty")

	// ErrEmptySender is returned when a message carries no sender id.
	ErrEmptySender = errors.New("message sender is empty")
)

// User-related errors.
var (
	// ErrUserNotFound indicates the requested user profile does not exist.
	ErrUserNotFound = errors.New("user not found")
)
