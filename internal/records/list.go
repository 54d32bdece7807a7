// Package records holds the signed-in user's entries and shifts in memory
// and exposes the operations that change them. Every mutation is persisted
// to the local cache and followed by a sync attempt.
package records

import (
	"context"
	"io"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Tiliavir/fieldtime/internal/model"
	"github.com/Tiliavir/fieldtime/internal/session"
	"github.com/Tiliavir/fieldtime/internal/storage"
	"github.com/Tiliavir/fieldtime/internal/syncer"
)

// Option configures a store.
type Option func(*options)

type options struct {
	logger *log.Logger
	now    func() time.Time
	newID  func() string
}

func defaultOptions(opts []Option) options {
	o := options{
		logger: log.New(io.Discard, "", 0),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

func (o options) engineOptions() []syncer.Option {
	return []syncer.Option{syncer.WithLogger(o.logger), syncer.WithClock(o.now)}
}

// WithLogger sets the logger handed to the sync engine.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now for timestamps.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// WithIDs replaces the record id generator.
func WithIDs(newID func() string) Option {
	return func(o *options) {
		if newID != nil {
			o.newID = newID
		}
	}
}

// List is the observable in-memory record list for the current user.
type List[T model.Record] struct {
	cache *storage.Cache[T]
	users session.Provider

	mu      sync.Mutex
	items   []T
	loading bool
	subs    map[int]func([]T)
	next    int

	// persistMu keeps snapshots reaching the cache in the order they were taken.
	persistMu sync.Mutex
}

func newList[T model.Record](cache *storage.Cache[T], users session.Provider) *List[T] {
	return &List[T]{
		cache:   cache,
		users:   users,
		loading: true,
		subs:    map[int]func([]T){},
	}
}

// Load replaces the list with the current user's cached records. It does
// nothing when nobody is signed in.
func (l *List[T]) Load(ctx context.Context) error {
	user := l.users.Current()
	if user == nil {
		return nil
	}
	items, err := l.cache.Load(ctx, user.ID)
	if err != nil {
		return err
	}
	l.mu.Lock()
	l.items = items
	l.loading = false
	l.mu.Unlock()
	l.notify()
	return nil
}

// Loading reports whether Load has not completed yet.
func (l *List[T]) Loading() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.loading
}

// Snapshot returns a copy of the list in display order.
func (l *List[T]) Snapshot() []T {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]T, len(l.items))
	copy(out, l.items)
	return out
}

// Find returns the record with the given id.
func (l *List[T]) Find(id string) (T, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, rec := range l.items {
		if rec.Key() == id {
			return rec, true
		}
	}
	var zero T
	return zero, false
}

// Update applies fn to the record with id. Subscribers are notified when fn
// reports a change.
func (l *List[T]) Update(id string, fn func(*T) bool) bool {
	l.mu.Lock()
	changed := false
	for i := range l.items {
		if l.items[i].Key() == id {
			changed = fn(&l.items[i])
			break
		}
	}
	l.mu.Unlock()
	if changed {
		l.notify()
	}
	return changed
}

func (l *List[T]) append(rec T) {
	l.mu.Lock()
	l.items = append(l.items, rec)
	l.mu.Unlock()
	l.notify()
}

func (l *List[T]) replace(items []T) {
	l.mu.Lock()
	l.items = items
	l.loading = false
	l.mu.Unlock()
	l.notify()
}

// Reset empties the list, e.g. after sign-out.
func (l *List[T]) Reset() {
	l.mu.Lock()
	l.items = nil
	l.loading = true
	l.mu.Unlock()
	l.notify()
}

// Persist writes the current user's records to the cache. Records owned by
// someone else (present after an admin FetchAll) are never written under
// the current user's key.
func (l *List[T]) Persist(ctx context.Context) error {
	user := l.users.Current()
	if user == nil {
		return nil
	}

	l.persistMu.Lock()
	defer l.persistMu.Unlock()

	snapshot := l.Snapshot()
	own := make([]T, 0, len(snapshot))
	for _, rec := range snapshot {
		if rec.Owner() == "" || rec.Owner() == user.ID {
			own = append(own, rec)
		}
	}
	return l.cache.Persist(ctx, own, user.ID)
}

// Subscribe registers fn to receive a snapshot after every change.
func (l *List[T]) Subscribe(fn func([]T)) (unsubscribe func()) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.next++
	id := l.next
	l.subs[id] = fn
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.subs, id)
	}
}

func (l *List[T]) notify() {
	l.mu.Lock()
	if len(l.subs) == 0 {
		l.mu.Unlock()
		return
	}
	fns := make([]func([]T), 0, len(l.subs))
	for _, fn := range l.subs {
		fns = append(fns, fn)
	}
	l.mu.Unlock()

	snapshot := l.Snapshot()
	for _, fn := range fns {
		fn(snapshot)
	}
}
