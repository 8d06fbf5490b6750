// Package services – Directory
//
// This file implements the user directory: a read-through cache mapping
// user id to profile. Entries are fetched lazily from the document store
// and memoized for the process lifetime; nothing invalidates them, so a
// renamed user or refreshed avatar shows stale until restart. That
// staleness is an accepted tradeoff, not a bug.
package services

import (
	"context"
	"fmt"
	"sync"

	"github.com/mexonis/quickchat-backend/internal/domain"
	"github.com/mexonis/quickchat-backend/internal/store"
)

// Directory caches user profiles per process lifetime. It is an explicitly
// owned, injected component (construct one and share it) and is safe for
// concurrent use. Concurrent misses for the same id cause redundant
// fetches, never corruption.
type Directory struct {
	store store.Store

	mu    sync.RWMutex
	users map[string]*domain.User
}

// NewDirectory constructs a directory over st.
func NewDirectory(st store.Store) *Directory {
	return &Directory{store: st, users: make(map[string]*domain.User)}
}

// Get returns the profile for id, fetching it from the store on first use.
// Returns ErrUserNotFound when no such profile exists; misses are not
// cached.
func (d *Directory) Get(ctx context.Context, id string) (*domain.User, error) {
	d.mu.RLock()
	u, ok := d.users[id]
	d.mu.RUnlock()
	if ok {
		return u, nil
	}

	docs, err := d.store.Query(ctx, domain.CollectionUsers,
		store.Where("id", store.OpEqual, id))
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}
	if len(docs) == 0 {
		return nil, ErrUserNotFound
	}
	u, err = domain.DecodeUser(docs[0].Fields)
	if err != nil {
		return nil, fmt.Errorf("directory: %w", err)
	}

	d.mu.Lock()
	d.users[id] = u
	d.mu.Unlock()
	return u, nil
}
