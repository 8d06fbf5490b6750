package services

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/mexonis/quickchat-backend/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	db, err := store.OpenSQLite(":memory:")
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	st, err := store.NewSQLite(db)
	if err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return st
}

// trackingStore wraps a Store, counting calls and optionally injecting
// write failures.
type trackingStore struct {
	store.Store

	queries int32
	upserts int32

	// failUpsert, when non-nil, is consulted before each Upsert; returning
	// a non-nil error short-circuits the write.
	failUpsert func(collection, id string) error
}

func (ts *trackingStore) Query(ctx context.Context, collection string, filters ...store.Filter) ([]store.Document, error) {
	atomic.AddInt32(&ts.queries, 1)
	return ts.Store.Query(ctx, collection, filters...)
}

func (ts *trackingStore) Upsert(ctx context.Context, collection, id string, fields map[string]any) error {
	if ts.failUpsert != nil {
		if err := ts.failUpsert(collection, id); err != nil {
			return err
		}
	}
	atomic.AddInt32(&ts.upserts, 1)
	return ts.Store.Upsert(ctx, collection, id, fields)
}

func (ts *trackingStore) queryCount() int32  { return atomic.LoadInt32(&ts.queries) }
func (ts *trackingStore) upsertCount() int32 { return atomic.LoadInt32(&ts.upserts) }
