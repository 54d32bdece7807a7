// Package remotetest provides an in-memory remote.Table for tests.
package remotetest

import (
	"context"
	"sort"
	"sync"

	"github.com/Tiliavir/fieldtime/internal/remote"
)

// Table stores rows by id and counts calls. Failures can be injected per id
// or for SelectAll.
type Table[R any] struct {
	id   func(R) string
	date func(R) string

	mu        sync.Mutex
	rows      map[string]R
	order     []string
	upserts   int
	failures  map[string]error
	selectErr error
	onUpsert  func(R)
}

// NewTable returns an empty table. id and date extract the row key and sort key.
func NewTable[R any](id, date func(R) string) *Table[R] {
	return &Table[R]{
		id:       id,
		date:     date,
		rows:     map[string]R{},
		failures: map[string]error{},
	}
}

// NewEntries returns a table of entry rows.
func NewEntries() *Table[remote.EntryRow] {
	return NewTable(
		func(r remote.EntryRow) string { return r.ID },
		func(r remote.EntryRow) string { return r.Date },
	)
}

// NewShifts returns a table of shift rows.
func NewShifts() *Table[remote.ShiftRow] {
	return NewTable(
		func(r remote.ShiftRow) string { return r.ID },
		func(r remote.ShiftRow) string { return r.Date },
	)
}

// FailFor makes every upsert of id return err until cleared with a nil err.
func (t *Table[R]) FailFor(id string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err == nil {
		delete(t.failures, id)
		return
	}
	t.failures[id] = err
}

// FailSelect makes SelectAll return err.
func (t *Table[R]) FailSelect(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.selectErr = err
}

// OnUpsert registers a hook called before each upsert is applied, outside the table lock.
func (t *Table[R]) OnUpsert(fn func(R)) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.onUpsert = fn
}

// Upserts returns the number of Upsert calls, failed ones included.
func (t *Table[R]) Upserts() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.upserts
}

// Rows returns the stored rows in first-insert order.
func (t *Table[R]) Rows() []R {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]R, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	return out
}

// Put stores a row directly, bypassing counters and failures.
func (t *Table[R]) Put(row R) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.put(row)
}

func (t *Table[R]) put(row R) {
	id := t.id(row)
	if _, ok := t.rows[id]; !ok {
		t.order = append(t.order, id)
	}
	t.rows[id] = row
}

// Upsert implements remote.Table.
func (t *Table[R]) Upsert(ctx context.Context, row R) error {
	t.mu.Lock()
	hook := t.onUpsert
	t.mu.Unlock()
	if hook != nil {
		hook(row)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	t.upserts++
	if err := ctx.Err(); err != nil {
		return err
	}
	if err, ok := t.failures[t.id(row)]; ok {
		return err
	}
	t.put(row)
	return nil
}

// SelectAll implements remote.Table.
func (t *Table[R]) SelectAll(ctx context.Context) ([]R, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.selectErr != nil {
		return nil, t.selectErr
	}
	out := make([]R, 0, len(t.order))
	for _, id := range t.order {
		out = append(out, t.rows[id])
	}
	sort.SliceStable(out, func(i, j int) bool { return t.date(out[i]) < t.date(out[j]) })
	return out, nil
}

var (
	_ remote.Table[remote.EntryRow] = (*Table[remote.EntryRow])(nil)
	_ remote.Table[remote.ShiftRow] = (*Table[remote.ShiftRow])(nil)
)
