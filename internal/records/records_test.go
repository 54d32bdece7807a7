package records_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Tiliavir/fieldtime/internal/model"
	"github.com/Tiliavir/fieldtime/internal/netstatus"
	"github.com/Tiliavir/fieldtime/internal/records"
	"github.com/Tiliavir/fieldtime/internal/remote"
	"github.com/Tiliavir/fieldtime/internal/remote/remotetest"
	"github.com/Tiliavir/fieldtime/internal/session"
	"github.com/Tiliavir/fieldtime/internal/storage"
)

var fixedNow = time.Date(2026, 2, 27, 18, 30, 0, 0, time.UTC)

type fixture struct {
	engine  *storage.FileEngine
	users   *session.Session
	monitor *netstatus.Monitor
	entries *remotetest.Table[remote.EntryRow]
	shifts  *remotetest.Table[remote.ShiftRow]
	opts    []records.Option
}

func newFixture(t *testing.T, online bool) *fixture {
	t.Helper()
	users := session.New("admin@example.com")
	users.SignIn(model.User{ID: "u1", Email: "worker@example.com"})
	n := 0
	return &fixture{
		engine:  storage.NewFileEngine(t.TempDir()),
		users:   users,
		monitor: netstatus.NewMonitor(online),
		entries: remotetest.NewEntries(),
		shifts:  remotetest.NewShifts(),
		opts: []records.Option{
			records.WithClock(func() time.Time { return fixedNow }),
			records.WithIDs(func() string { n++; return fmt.Sprintf("id-%d", n) }),
		},
	}
}

func (f *fixture) entryStore() *records.Entries {
	return records.NewEntries(storage.NewEntryCache(f.engine), f.entries, f.monitor, f.users, f.opts...)
}

func (f *fixture) shiftStore() *records.Shifts {
	return records.NewShifts(storage.NewShiftCache(f.engine), f.shifts, f.monitor, f.users, f.opts...)
}

func TestLoadSignedOutIsNoop(t *testing.T) {
	f := newFixture(t, true)
	f.users.SignOut()
	store := f.entryStore()

	if err := store.Load(context.Background()); err != nil {
		t.Fatal(err)
	}
	if !store.Loading() {
		t.Error("Loading cleared without a user")
	}
	if got, err := store.Add(context.Background(), "2026-02-27", "09:00", "17:00"); got != nil || err != nil {
		t.Errorf("Add = %v, %v; want nil, nil", got, err)
	}
}

func TestAddSyncsWhenOnline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	store := f.entryStore()
	if err := store.Load(ctx); err != nil {
		t.Fatal(err)
	}

	got, err := store.Add(ctx, "2026-02-27", "09:00", "17:30")
	if err != nil {
		t.Fatalf("Add: %v", err)
	}
	if got.Hours != 8.5 {
		t.Errorf("hours = %v, want 8.5", got.Hours)
	}
	if got.Status != model.EntrySynced {
		t.Errorf("status = %q, want synced", got.Status)
	}
	if got.UserID != "u1" || got.CreatedAt != "2026-02-27T18:30:00.000Z" {
		t.Errorf("entry = %+v", got)
	}
	if len(f.entries.Rows()) != 1 {
		t.Fatalf("remote rows = %d, want 1", len(f.entries.Rows()))
	}

	cached, err := storage.NewEntryCache(f.engine).Load(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 1 || cached[0].Status != model.EntrySynced {
		t.Errorf("cache = %+v, want the synced entry", cached)
	}
}

func TestAddOfflineStaysPending(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	store := f.entryStore()
	stop := store.Engine().Start(ctx)
	defer stop()

	got, err := store.Add(ctx, "2026-02-27", "22:00", "06:00")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != model.EntryPending || got.Hours != 8 {
		t.Errorf("entry = %+v, want pending overnight 8h", got)
	}
	if f.entries.Upserts() != 0 {
		t.Errorf("upserts while offline = %d", f.entries.Upserts())
	}

	f.monitor.SetOnline(true)
	store.Engine().Wait()
	if e, _ := store.Find(got.ID); e.Status != model.EntrySynced {
		t.Errorf("status after reconnect = %q, want synced", e.Status)
	}
	if f.entries.Upserts() != 1 {
		t.Errorf("upserts = %d, want 1", f.entries.Upserts())
	}
}

func TestReloadKeepsRecords(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	first := f.shiftStore()
	if _, err := first.Add(ctx, "2026-03-01", "08:00", "16:00"); err != nil {
		t.Fatal(err)
	}

	second := f.shiftStore()
	if err := second.Load(ctx); err != nil {
		t.Fatal(err)
	}
	got := second.Snapshot()
	if len(got) != 1 || got[0].Status != model.ShiftPlanned || got[0].Synced {
		t.Errorf("reloaded = %+v, want one unsynced planned shift", got)
	}
}

func TestConfirmShift(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	shifts := f.shiftStore()
	entries := f.entryStore()

	sh, err := shifts.Add(ctx, "2026-02-27", "09:00", "17:00")
	if err != nil {
		t.Fatal(err)
	}
	if !sh.Synced {
		t.Error("shift not synced while online")
	}

	draft, err := shifts.Confirm(ctx, sh.ID)
	if err != nil {
		t.Fatal(err)
	}
	if draft == nil {
		t.Fatal("Confirm returned no draft")
	}
	if draft.ID == sh.ID || draft.TimeIn != "09:00" || draft.UserID != "u1" {
		t.Errorf("draft = %+v", draft)
	}
	cur, _ := shifts.Find(sh.ID)
	if cur.Status != model.ShiftConfirmed || cur.ConfirmedAt == "" {
		t.Errorf("shift after confirm = %+v", cur)
	}

	again, err := shifts.Confirm(ctx, sh.ID)
	if again != nil || err != nil {
		t.Errorf("second Confirm = %v, %v; want nil, nil", again, err)
	}
	if missing, _ := shifts.Confirm(ctx, "nope"); missing != nil {
		t.Error("Confirm of unknown id returned a draft")
	}

	entry, err := entries.AddDraft(ctx, *draft)
	if err != nil {
		t.Fatal(err)
	}
	if entry.Hours != 8 || entry.Status != model.EntrySynced || entry.ID != draft.ID {
		t.Errorf("entry from draft = %+v", entry)
	}
}

// failingEngine passes writes through until its budget is spent, then
// fails every Set.
type failingEngine struct {
	storage.Engine
	mu     sync.Mutex
	armed  bool
	budget int
}

func (e *failingEngine) failAfter(writes int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.armed = true
	e.budget = writes
}

func (e *failingEngine) Set(ctx context.Context, namespace, key string, value []byte) error {
	e.mu.Lock()
	if e.armed {
		if e.budget == 0 {
			e.mu.Unlock()
			return errors.New("disk full")
		}
		e.budget--
	}
	e.mu.Unlock()
	return e.Engine.Set(ctx, namespace, key, value)
}

func TestConfirmKeepsDraftWhenSyncPersistFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	disk := &failingEngine{Engine: f.engine}
	shifts := records.NewShifts(storage.NewShiftCache(disk), f.shifts, f.monitor, f.users, f.opts...)

	worked, err := shifts.Add(ctx, "2026-02-27", "09:00", "17:00")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := shifts.Add(ctx, "2026-02-28", "10:00", "14:00"); err != nil {
		t.Fatal(err)
	}

	// The confirmation write succeeds; the write after pushing the other
	// planned shift does not.
	f.monitor.SetOnline(true)
	disk.failAfter(1)

	draft, err := shifts.Confirm(ctx, worked.ID)
	if err == nil {
		t.Fatal("Confirm succeeded although the post-sync write failed")
	}
	if draft == nil {
		t.Fatal("Confirm dropped the draft of a saved confirmation")
	}
	if draft.Date != "2026-02-27" || draft.TimeIn != "09:00" || draft.TimeOut != "17:00" {
		t.Errorf("draft = %+v", draft)
	}

	cached, err := storage.NewShiftCache(f.engine).Load(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	for _, sh := range cached {
		if sh.ID == worked.ID && sh.Status != model.ShiftConfirmed {
			t.Errorf("cached shift = %+v, want confirmed", sh)
		}
	}

	again, err := shifts.Confirm(ctx, worked.ID)
	if again != nil || err != nil {
		t.Errorf("second Confirm = %v, %v; want nil, nil", again, err)
	}
}

func TestConfirmRollsBackWhenPersistFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	disk := &failingEngine{Engine: f.engine}
	shifts := records.NewShifts(storage.NewShiftCache(disk), f.shifts, f.monitor, f.users, f.opts...)

	sh, err := shifts.Add(ctx, "2026-02-27", "09:00", "17:00")
	if err != nil {
		t.Fatal(err)
	}

	disk.failAfter(0)
	draft, err := shifts.Confirm(ctx, sh.ID)
	if err == nil || draft != nil {
		t.Fatalf("Confirm = %v, %v; want nil draft and an error", draft, err)
	}
	cur, _ := shifts.Find(sh.ID)
	if cur.Status != model.ShiftPlanned || cur.ConfirmedAt != "" {
		t.Errorf("shift after failed confirm = %+v, want planned", cur)
	}

	disk.failAfter(1)
	draft, err = shifts.Confirm(ctx, sh.ID)
	if err != nil || draft == nil {
		t.Errorf("retry Confirm = %v, %v; want a draft", draft, err)
	}
}

func TestTodayFiltersPlanned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	shifts := f.shiftStore()

	a, _ := shifts.Add(ctx, "2026-02-27", "06:00", "10:00")
	shifts.Add(ctx, "2026-02-28", "06:00", "10:00")
	c, _ := shifts.Add(ctx, "2026-02-27", "14:00", "18:00")
	shifts.Confirm(ctx, c.ID)

	today := shifts.Today(fixedNow)
	if len(today) != 1 || today[0].ID != a.ID {
		t.Errorf("Today = %+v, want only %s", today, a.ID)
	}
}

func TestFetchAll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, true)
	f.entries.Put(remote.EntryRow{ID: "r2", Date: "2026-02-20", TimeIn: "09:00", TimeOut: "12:00", Hours: 3, UserID: "u2"})
	f.entries.Put(remote.EntryRow{ID: "r1", Date: "2026-02-10", TimeIn: "09:00", TimeOut: "10:00", Hours: 1, UserID: "u1"})
	store := f.entryStore()

	if err := store.FetchAll(ctx); err != nil {
		t.Fatal(err)
	}
	got := store.Snapshot()
	if len(got) != 2 || got[0].ID != "r1" || got[1].ID != "r2" {
		t.Fatalf("fetched = %+v, want r1, r2 by date", got)
	}
	for _, e := range got {
		if e.Status != model.EntrySynced {
			t.Errorf("%s status = %q, want synced", e.ID, e.Status)
		}
	}
	if store.TotalHours() != 4 {
		t.Errorf("TotalHours = %v, want 4", store.TotalHours())
	}

	// Other users' rows must not land under the admin's cache key.
	if err := store.Persist(ctx); err != nil {
		t.Fatal(err)
	}
	cached, err := storage.NewEntryCache(f.engine).Load(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(cached) != 1 || cached[0].ID != "r1" {
		t.Errorf("cache = %+v, want only r1", cached)
	}
}

func TestFetchAllFailureKeepsList(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	store := f.entryStore()
	if _, err := store.Add(ctx, "2026-02-27", "09:00", "10:00"); err != nil {
		t.Fatal(err)
	}

	// Offline: nothing happens.
	if err := store.FetchAll(ctx); err != nil {
		t.Fatalf("offline FetchAll: %v", err)
	}

	f.monitor.SetOnline(true)
	boom := &remote.Error{StatusCode: 503, Message: "service unavailable"}
	f.entries.FailSelect(boom)
	if err := store.FetchAll(ctx); !errors.Is(err, boom) {
		t.Fatalf("FetchAll error = %v, want %v", err, boom)
	}
	if len(store.Snapshot()) != 1 {
		t.Error("list changed after failed fetch")
	}
	if store.Engine().LastSyncError() != "service unavailable" {
		t.Errorf("LastSyncError = %q", store.Engine().LastSyncError())
	}
}

func TestSubscribe(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, false)
	store := f.shiftStore()

	var seen []int
	unsubscribe := store.Subscribe(func(items []model.Shift) { seen = append(seen, len(items)) })
	if err := store.Load(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Add(ctx, "2026-02-27", "09:00", "10:00"); err != nil {
		t.Fatal(err)
	}
	unsubscribe()
	store.Reset()

	if len(seen) != 2 || seen[0] != 0 || seen[1] != 1 {
		t.Errorf("notifications = %v, want [0 1]", seen)
	}
	if !store.Loading() || len(store.Snapshot()) != 0 {
		t.Error("Reset did not clear the list")
	}
}
