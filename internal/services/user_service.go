// Package services – UserService
//
// This file implements profile management: creating the profile document
// at registration, fetching and listing profiles, name-prefix search, and
// the one mutation a profile allows: setting the avatar after its image
// has been uploaded to the blob store.
package services

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/google/uuid"

	"github.com/mexonis/quickchat-backend/internal/blob"
	"github.com/mexonis/quickchat-backend/internal/domain"
	"github.com/mexonis/quickchat-backend/internal/store"
)

// searchUpperBound closes a prefix range: every string with the prefix
// sorts below prefix + U+F8FF.
const searchUpperBound = "\uf8ff"

// UserService manages user profile documents.
type UserService struct {
	// Store is the document store acting as system of record.
	Store store.Store
	// Blobs receives avatar uploads before the profile link is written.
	Blobs blob.Store
}

// NewUserService constructs the service.
func NewUserService(st store.Store, blobs blob.Store) *UserService {
	return &UserService{Store: st, Blobs: blobs}
}

// CreateProfile persists a new user document. Called once per account,
// right after the identity provider assigns the id.
func (s *UserService) CreateProfile(ctx context.Context, u *domain.User) error {
	if u.ID == "" {
		return ErrUserNotFound
	}
	if err := s.Store.Upsert(ctx, domain.CollectionUsers, u.ID, domain.EncodeUser(u)); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// Profile fetches one user by id, straight from the store (no cache; use
// Directory for the memoized path).
func (s *UserService) Profile(ctx context.Context, id string) (*domain.User, error) {
	docs, err := s.Store.Query(ctx, domain.CollectionUsers,
		store.Where("id", store.OpEqual, id))
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}
	u, err := domain.DecodeUser(docs[0].Fields)
	if err != nil {
		return nil, fmt.Errorf("profile: %w", err)
	}
	return u, nil
}

// Contacts lists every registered profile, sorted by name.
func (s *UserService) Contacts(ctx context.Context) ([]*domain.User, error) {
	docs, err := s.Store.Query(ctx, domain.CollectionUsers)
	if err != nil {
		return nil, fmt.Errorf("contacts: %w", err)
	}
	return decodeUsers(docs), nil
}

// Search lists profiles whose name starts with prefix, using an ordered
// range query on the name field.
func (s *UserService) Search(ctx context.Context, prefix string) ([]*domain.User, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return s.Contacts(ctx)
	}
	docs, err := s.Store.Query(ctx, domain.CollectionUsers,
		store.Where("name", store.OpGreaterOrEqual, prefix),
		store.Where("name", store.OpLessThan, prefix+searchUpperBound))
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}
	return decodeUsers(docs), nil
}

// SetAvatar uploads the image bytes to the blob store and, on success,
// writes the returned URL into the user document. The upload happens
// first; a failed upload leaves the profile untouched.
func (s *UserService) SetAvatar(ctx context.Context, userID string, data []byte) (string, error) {
	if _, err := s.Profile(ctx, userID); err != nil {
		return "", err
	}

	path := "avatars/" + userID + "/" + uuid.NewString()
	url, err := s.Blobs.Upload(ctx, path, data)
	if err != nil {
		return "", fmt.Errorf("set avatar: %w", err)
	}

	// Merge-upsert: only the avatar link changes.
	err = s.Store.Upsert(ctx, domain.CollectionUsers, userID,
		map[string]any{"profilePicLink": url})
	if err != nil {
		return "", fmt.Errorf("set avatar: %w", err)
	}
	return url, nil
}

func decodeUsers(docs []store.Document) []*domain.User {
	out := make([]*domain.User, 0, len(docs))
	for _, doc := range docs {
		u, err := domain.DecodeUser(doc.Fields)
		if err != nil {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
