// Package syncer pushes locally pending records to the remote store.
//
// An Engine runs reconciliation passes for one record type. A pass selects
// the pending records, upserts each one independently, marks the accepted
// ones as synced and persists the list once. Passes never overlap; a trigger
// that arrives while a pass is running is dropped and the next trigger
// (reconnect or mutation) picks the work up.
package syncer

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Tiliavir/fieldtime/internal/model"
	"github.com/Tiliavir/fieldtime/internal/netstatus"
	"github.com/Tiliavir/fieldtime/internal/remote"
	"github.com/Tiliavir/fieldtime/internal/session"
)

// Source is the record list an engine reconciles.
type Source[T any] interface {
	// Snapshot returns a copy of the current list.
	Snapshot() []T
	// Update applies fn to the record with the given id under the list lock.
	// fn reports whether it changed the record.
	Update(id string, fn func(*T) bool) bool
	// Persist writes the current list to the local cache.
	Persist(ctx context.Context) error
}

// Option configures an Engine.
type Option func(*options)

type options struct {
	logger *log.Logger
	now    func() time.Time
}

// WithLogger sets the logger used for per-record failures and pass summaries.
func WithLogger(l *log.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(o *options) {
		if now != nil {
			o.now = now
		}
	}
}

// Engine reconciles one record type.
type Engine[T model.Record, R any] struct {
	policy  Policy[T, R]
	source  Source[T]
	table   remote.Table[R]
	monitor *netstatus.Monitor
	users   session.Provider
	logger  *log.Logger
	now     func() time.Time

	syncing atomic.Bool
	wg      sync.WaitGroup

	mu      sync.Mutex
	lastErr string
}

// New creates an engine. A nil table means no remote store is configured
// and every pass is a no-op.
func New[T model.Record, R any](policy Policy[T, R], source Source[T], table remote.Table[R], monitor *netstatus.Monitor, users session.Provider, opts ...Option) *Engine[T, R] {
	o := options{
		logger: log.New(io.Discard, "", 0),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(&o)
	}
	if monitor == nil {
		monitor = netstatus.NewMonitor(true)
	}
	return &Engine[T, R]{
		policy:  policy,
		source:  source,
		table:   table,
		monitor: monitor,
		users:   users,
		logger:  o.logger,
		now:     o.now,
	}
}

// Enabled reports whether a remote store is configured.
func (e *Engine[T, R]) Enabled() bool { return e.table != nil }

// Online mirrors the network monitor.
func (e *Engine[T, R]) Online() bool { return e.monitor.Online() }

// Syncing reports whether a pass is in progress.
func (e *Engine[T, R]) Syncing() bool { return e.syncing.Load() }

// Table returns the remote table, or nil when not configured.
func (e *Engine[T, R]) Table() remote.Table[R] { return e.table }

// LastSyncError returns the most recent failure message of the current or
// last pass, or "" if it had none.
func (e *Engine[T, R]) LastSyncError() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.lastErr
}

// RecordError overwrites the last-error slot.
func (e *Engine[T, R]) RecordError(msg string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lastErr = msg
}

// Reconcile runs one pass and returns the number of records the remote
// store accepted. Remote rejections are isolated per record and surfaced
// through LastSyncError; the returned error is reserved for local storage
// failures.
func (e *Engine[T, R]) Reconcile(ctx context.Context) (int, error) {
	if e.table == nil || !e.monitor.Online() {
		return 0, nil
	}
	user := e.users.Current()
	if user == nil || user.ID == "" {
		return 0, nil
	}

	var pending []T
	for _, rec := range e.source.Snapshot() {
		if e.policy.Pending(rec) {
			pending = append(pending, rec)
		}
	}
	if len(pending) == 0 {
		return 0, nil
	}

	if !e.syncing.CompareAndSwap(false, true) {
		droppedTriggers.WithLabelValues(e.policy.Kind).Inc()
		return 0, nil
	}
	defer e.syncing.Store(false)

	start := time.Now()
	passes.WithLabelValues(e.policy.Kind).Inc()
	defer func() {
		passDuration.WithLabelValues(e.policy.Kind).Observe(time.Since(start).Seconds())
	}()

	e.RecordError("")
	synced := 0
	for _, rec := range pending {
		row := e.policy.Row(rec, *user, e.now())
		if err := e.table.Upsert(ctx, row); err != nil {
			e.RecordError(err.Error())
			recordsFailed.WithLabelValues(e.policy.Kind).Inc()
			e.logger.Printf("%s %s: upsert failed: %v", e.policy.Kind, rec.Key(), err)
			continue
		}
		e.source.Update(rec.Key(), func(t *T) bool {
			e.policy.MarkSynced(t, e.now())
			return true
		})
		recordsSynced.WithLabelValues(e.policy.Kind).Inc()
		synced++
	}

	if err := e.source.Persist(ctx); err != nil {
		return synced, fmt.Errorf("persisting %s after sync: %w", e.policy.Kind, err)
	}
	e.logger.Printf("%s: synced %d of %d pending", e.policy.Kind, synced, len(pending))
	return synced, nil
}

// Trigger starts a pass in the background. Use Wait to block until every
// background pass has finished.
func (e *Engine[T, R]) Trigger(ctx context.Context) {
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		if _, err := e.Reconcile(ctx); err != nil {
			e.RecordError(err.Error())
			e.logger.Printf("%s: %v", e.policy.Kind, err)
		}
	}()
}

// Wait blocks until all passes started by Trigger have returned.
func (e *Engine[T, R]) Wait() {
	e.wg.Wait()
}

// Start subscribes to reachability changes and runs a pass on every
// transition to online, plus one right away if already online. The
// returned stop function unsubscribes and waits for running passes.
func (e *Engine[T, R]) Start(ctx context.Context) (stop func()) {
	unsubscribe := e.monitor.Subscribe(func(ev netstatus.Event) {
		if ev == netstatus.Online {
			e.Trigger(ctx)
		}
	})
	if e.monitor.Online() {
		e.Trigger(ctx)
	}
	return func() {
		unsubscribe()
		e.Wait()
	}
}
