// SQLite-backed Store implementation. Documents are rows in a single
// "documents" table keyed by (collection, doc_id), with fields serialized
// as JSON. Row order (the autoincrement seq) supplies the store's document
// order, so Query results are stable insertion order, the tie-break the
// message ledger relies on for equal timestamps.
//
// Realtime subscriptions are served by an in-process hub: every committed
// Upsert/Delete is fanned out to subscribers whose filters match. This
// matches the single-process deployment the service targets; a multi-node
// deployment would need an external change feed instead.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	sqlite "github.com/glebarez/sqlite"
	"gorm.io/gorm"
)

// documentRow is the GORM model backing every collection.
type documentRow struct {
	Seq        uint64 `gorm:"primaryKey;autoIncrement"`
	Collection string `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_collection_doc,priority:1"`
	DocID      string `gorm:"type:TEXT NOT NULL;uniqueIndex:ux_collection_doc,priority:2"`
	Fields     string `gorm:"type:TEXT NOT NULL"`
	UpdatedAt  time.Time
}

// TableName returns the database table name for documentRow.
func (documentRow) TableName() string { return "documents" }

// OpenSQLite opens (or creates) the SQLite database and applies PRAGMAs.
func OpenSQLite(path string) (*gorm.DB, error) {
	// Fail early if the parent directory does not exist instead of a cryptic
	// sqlite "out of memory (14)".
	if dir := filepath.Dir(path); dir != "." && !strings.HasPrefix(path, ":memory:") {
		if _, err := os.Stat(dir); err != nil {
			return nil, err
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	db.Exec("PRAGMA journal_mode=WAL;")
	db.Exec("PRAGMA synchronous=NORMAL;")
	db.Exec("PRAGMA busy_timeout=5000;")

	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(10)
		sqlDB.SetMaxIdleConns(10)
		sqlDB.SetConnMaxIdleTime(5 * time.Minute)
		sqlDB.SetConnMaxLifetime(30 * time.Minute)
	}

	return db, nil
}

// subscriber pairs a live subscription with its filters.
type subscriber struct {
	sub     *Subscription
	filters []Filter
}

// SQLite is the Store implementation over a GORM SQLite handle.
type SQLite struct {
	db *gorm.DB

	mu   sync.Mutex
	subs map[string][]*subscriber
}

// compile-time interface check
var _ Store = (*SQLite)(nil)

// NewSQLite migrates the documents table and returns a ready Store.
func NewSQLite(db *gorm.DB) (*SQLite, error) {
	if err := db.AutoMigrate(&documentRow{}); err != nil {
		return nil, err
	}
	return &SQLite{db: db, subs: make(map[string][]*subscriber)}, nil
}

// Query implements Store. Filters are evaluated in-process over the decoded
// field maps; results keep insertion order.
func (s *SQLite) Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error) {
	var rows []documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ?", collection).
		Order("seq ASC").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", collection, err)
	}

	docs := make([]Document, 0, len(rows))
	for _, row := range rows {
		fields, err := decodeFields(row.Fields)
		if err != nil {
			return nil, fmt.Errorf("query %s/%s: %w", collection, row.DocID, err)
		}
		if !matches(fields, filters) {
			continue
		}
		docs = append(docs, Document{ID: row.DocID, Fields: fields})
	}
	return docs, nil
}

// Subscribe implements Store. The current matching snapshot is replayed as
// EventAdded before live events; registration and replay happen under the
// hub lock so no concurrent write is missed or duplicated.
func (s *SQLite) Subscribe(ctx context.Context, collection string, filters ...Filter) (*Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot, err := s.Query(ctx, collection, filters...)
	if err != nil {
		return nil, err
	}

	entry := &subscriber{filters: filters}
	entry.sub = NewSubscription(func() { s.detach(collection, entry) })
	for _, doc := range snapshot {
		entry.sub.Publish(Event{Kind: EventAdded, Doc: doc})
	}
	s.subs[collection] = append(s.subs[collection], entry)
	return entry.sub, nil
}

// Upsert implements Store with merge semantics, then notifies subscribers.
func (s *SQLite) Upsert(ctx context.Context, collection, id string, fields map[string]any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing documentRow
	kind := EventAdded
	merged := fields

	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&existing).Error
	switch {
	case err == nil:
		kind = EventUpdated
		prev, derr := decodeFields(existing.Fields)
		if derr != nil {
			return fmt.Errorf("upsert %s/%s: %w", collection, id, derr)
		}
		merged = mergeFields(prev, fields)
	case errors.Is(err, gorm.ErrRecordNotFound):
		// first write
	default:
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}

	raw, err := json.Marshal(merged)
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}

	if kind == EventUpdated {
		existing.Fields = string(raw)
		if err := s.db.WithContext(ctx).Save(&existing).Error; err != nil {
			return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
		}
	} else {
		row := documentRow{Collection: collection, DocID: id, Fields: string(raw)}
		if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
			return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
		}
	}

	// Round-trip through JSON so subscribers observe the same loose types
	// (float64 numbers, []any slices) a later Query would return.
	normalized, err := decodeFields(string(raw))
	if err != nil {
		return fmt.Errorf("upsert %s/%s: %w", collection, id, err)
	}
	s.notify(collection, Event{Kind: kind, Doc: Document{ID: id, Fields: normalized}})
	return nil
}

// Delete implements Store. Removing an absent document is a no-op.
func (s *SQLite) Delete(ctx context.Context, collection, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var existing documentRow
	err := s.db.WithContext(ctx).
		Where("collection = ? AND doc_id = ?", collection, id).
		First(&existing).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}

	if err := s.db.WithContext(ctx).Delete(&documentRow{}, existing.Seq).Error; err != nil {
		return fmt.Errorf("delete %s/%s: %w", collection, id, err)
	}

	fields, derr := decodeFields(existing.Fields)
	if derr != nil {
		fields = map[string]any{}
	}
	s.notify(collection, Event{Kind: EventRemoved, Doc: Document{ID: id, Fields: fields}})
	return nil
}

// notify fans an event out to matching subscribers. Caller holds s.mu.
func (s *SQLite) notify(collection string, e Event) {
	for _, entry := range s.subs[collection] {
		if e.Kind == EventRemoved || matches(e.Doc.Fields, entry.filters) {
			entry.sub.Publish(e)
		}
	}
}

// detach unregisters a cancelled subscriber from the hub.
func (s *SQLite) detach(collection string, entry *subscriber) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.subs[collection]
	for i, e := range list {
		if e == entry {
			s.subs[collection] = append(list[:i], list[i+1:]...)
			return
		}
	}
}

func decodeFields(raw string) (map[string]any, error) {
	var fields map[string]any
	if err := json.Unmarshal([]byte(raw), &fields); err != nil {
		return nil, err
	}
	return fields, nil
}

func mergeFields(prev, next map[string]any) map[string]any {
	merged := make(map[string]any, len(prev)+len(next))
	for k, v := range prev {
		merged[k] = v
	}
	for k, v := range next {
		merged[k] = v
	}
	return merged
}

// matches reports whether fields satisfy every filter.
func matches(fields map[string]any, filters []Filter) bool {
	for _, f := range filters {
		if !matchOne(fields[f.Field], f) {
			return false
		}
	}
	return true
}

func matchOne(v any, f Filter) bool {
	switch f.Op {
	case OpEqual:
		cmp, ok := compareValues(v, f.Value)
		return ok && cmp == 0
	case OpLessThan:
		cmp, ok := compareValues(v, f.Value)
		return ok && cmp < 0
	case OpGreaterThan:
		cmp, ok := compareValues(v, f.Value)
		return ok && cmp > 0
	case OpGreaterOrEqual:
		cmp, ok := compareValues(v, f.Value)
		return ok && cmp >= 0
	case OpArrayContains:
		return arrayContains(v, f.Value)
	default:
		return false
	}
}

// compareValues orders two loosely-typed values. Numbers compare as
// float64, strings lexically; mixed or unsupported kinds do not compare.
func compareValues(a, b any) (int, bool) {
	if fa, ok := asFloat(a); ok {
		fb, ok := asFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case fa < fb:
			return -1, true
		case fa > fb:
			return 1, true
		default:
			return 0, true
		}
	}
	sa, okA := a.(string)
	sb, okB := b.(string)
	if okA && okB {
		return strings.Compare(sa, sb), true
	}
	ba, okA := a.(bool)
	bb, okB := b.(bool)
	if okA && okB && ba == bb {
		return 0, true
	}
	return 0, false
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}

func arrayContains(v, want any) bool {
	switch arr := v.(type) {
	case []any:
		for _, e := range arr {
			if cmp, ok := compareValues(e, want); ok && cmp == 0 {
				return true
			}
		}
	case []string:
		s, ok := want.(string)
		if !ok {
			return false
		}
		for _, e := range arr {
			if e == s {
				return true
			}
		}
	}
	return false
}
