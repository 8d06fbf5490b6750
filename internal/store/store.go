// Package store defines the abstract document-store capability the chat core
// is written against: collections of id-keyed documents with field filters,
// merge upserts, and realtime change subscriptions. The concrete SQLite
// implementation lives in sqlite.go; services and tests may substitute any
// other implementation of Store.
//
// Documents are weakly typed at this boundary (map[string]any); the typed
// encode/decode step happens in the domain package and nowhere else.
package store

import (
	"context"
	"errors"
	"sync"
)

// ErrNotFound indicates that a query expected a matching document and none
// exists.
var ErrNotFound = errors.New("document not found")

// Op enumerates the comparison operators supported by Filter.
type Op int

const (
	// OpEqual matches documents whose field equals the filter value.
	OpEqual Op = iota
	// OpLessThan matches fields strictly below the value (numbers, strings).
	OpLessThan
	// OpGreaterThan matches fields strictly above the value.
	OpGreaterThan
	// OpGreaterOrEqual matches fields at or above the value. Used together
	// with OpLessThan for ordered prefix scans.
	OpGreaterOrEqual
	// OpArrayContains matches documents whose array field contains the value.
	OpArrayContains
)

// Filter is a single field predicate. Multiple filters passed to Query or
// Subscribe are combined with AND.
type Filter struct {
	Field string
	Op    Op
	Value any
}

// Where is a convenience constructor for Filter.
func Where(field string, op Op, value any) Filter {
	return Filter{Field: field, Op: op, Value: value}
}

// Document is one stored record: an id unique within its collection plus an
// open set of fields.
type Document struct {
	ID     string
	Fields map[string]any
}

// EventKind classifies a change notification.
type EventKind int

const (
	// EventAdded signals a document new to the subscriber. Subscriptions
	// replay the current matching snapshot as EventAdded before going live.
	EventAdded EventKind = iota
	// EventUpdated signals a change to an existing document.
	EventUpdated
	// EventRemoved signals a deletion; Doc carries the last known fields.
	EventRemoved
)

// Event is a single change delivered on a subscription.
type Event struct {
	Kind EventKind
	Doc  Document
}

// Store is the document-store capability. All operations are synchronous
// from the caller's perspective and honor ctx cancellation where the
// backend supports it. Write failures surface to the caller as errors;
// no implementation retries on its own.
type Store interface {
	// Query returns all documents in collection matching every filter, in
	// the store's own document order (insertion order). Callers needing a
	// different order sort client-side.
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)

	// Subscribe returns a live subscription to collection changes matching
	// the filters. Delivery order follows store order, not any field value.
	// The subscription stays live until Cancel is called.
	Subscribe(ctx context.Context, collection string, filters ...Filter) (*Subscription, error)

	// Upsert writes fields under (collection, id) with merge semantics:
	// provided fields overwrite, absent fields are retained.
	Upsert(ctx context.Context, collection, id string, fields map[string]any) error

	// Delete removes (collection, id). Deleting a missing document is a
	// no-op.
	Delete(ctx context.Context, collection, id string) error
}

// Subscription is a cancellable stream of change events. Events are
// delivered exactly once, in publish order, on the Events channel. The
// owning component must call Cancel on teardown; afterwards no further
// events are delivered and the publisher side is detached.
//
// Publishing never blocks the writer: events queue internally and a pump
// goroutine forwards them to the (unbuffered) Events channel as the
// consumer drains it.
type Subscription struct {
	events   chan Event
	notify   chan struct{}
	stop     chan struct{}
	once     sync.Once
	onCancel func()

	mu    sync.Mutex
	queue []Event
}

// NewSubscription creates a live subscription. onCancel, if non-nil, runs
// exactly once when Cancel is called (implementations use it to detach the
// subscriber from their notification hub).
func NewSubscription(onCancel func()) *Subscription {
	s := &Subscription{
		events:   make(chan Event),
		notify:   make(chan struct{}, 1),
		stop:     make(chan struct{}),
		onCancel: onCancel,
	}
	go s.pump()
	return s
}

// Events returns the receive side of the stream.
func (s *Subscription) Events() <-chan Event { return s.events }

// Done is closed when the subscription has been cancelled.
func (s *Subscription) Done() <-chan struct{} { return s.stop }

// Cancel stops delivery. Safe to call multiple times and concurrently with
// Publish; events queued but not yet consumed are dropped.
func (s *Subscription) Cancel() {
	s.once.Do(func() {
		close(s.stop)
		if s.onCancel != nil {
			s.onCancel()
		}
	})
}

// Publish enqueues an event for delivery. It returns immediately; a
// cancelled subscription discards the event.
func (s *Subscription) Publish(e Event) {
	s.mu.Lock()
	select {
	case <-s.stop:
		s.mu.Unlock()
		return
	default:
	}
	s.queue = append(s.queue, e)
	s.mu.Unlock()

	select {
	case s.notify <- struct{}{}:
	default:
	}
}

// pump forwards queued events to the consumer channel until cancelled.
func (s *Subscription) pump() {
	for {
		s.mu.Lock()
		for len(s.queue) > 0 {
			e := s.queue[0]
			s.queue = s.queue[1:]
			s.mu.Unlock()
			select {
			case s.events <- e:
			case <-s.stop:
				return
			}
			s.mu.Lock()
		}
		s.mu.Unlock()

		select {
		case <-s.notify:
		case <-s.stop:
			return
		}
	}
}
