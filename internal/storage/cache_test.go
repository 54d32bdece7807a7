package storage_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/Tiliavir/fieldtime/internal/model"
	"github.com/Tiliavir/fieldtime/internal/storage"
)

func entry(id, user string) model.Entry {
	return model.Entry{
		ID:      id,
		Date:    "2026-02-27",
		TimeIn:  "09:00",
		TimeOut: "17:00",
		Hours:   8,
		Status:  model.EntryPending,
		UserID:  user,
	}
}

func TestLoadEmpty(t *testing.T) {
	cache := storage.NewEntryCache(storage.NewFileEngine(t.TempDir()))
	got, err := cache.Load(context.Background(), "u1")
	if err != nil {
		t.Fatalf("Load on empty storage: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Errorf("Load = %#v, want empty non-nil list", got)
	}
}

func TestPersistUserIsolation(t *testing.T) {
	ctx := context.Background()
	cache := storage.NewEntryCache(storage.NewFileEngine(t.TempDir()))

	listA := []model.Entry{entry("a1", "u1"), entry("a2", "u1")}
	listB := []model.Entry{entry("b1", "u2")}

	if err := cache.Persist(ctx, listA, "u1"); err != nil {
		t.Fatalf("Persist u1: %v", err)
	}
	if err := cache.Persist(ctx, listB, "u2"); err != nil {
		t.Fatalf("Persist u2: %v", err)
	}

	gotA, err := cache.Load(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	gotB, err := cache.Load(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(gotA, listA) {
		t.Errorf("Load(u1) = %#v, want %#v", gotA, listA)
	}
	if !reflect.DeepEqual(gotB, listB) {
		t.Errorf("Load(u2) = %#v, want %#v", gotB, listB)
	}
}

func TestPersistCopiesRecords(t *testing.T) {
	ctx := context.Background()
	cache := storage.NewEntryCache(storage.NewFileEngine(t.TempDir()))

	list := []model.Entry{entry("a1", "u1")}
	if err := cache.Persist(ctx, list, "u1"); err != nil {
		t.Fatal(err)
	}
	list[0].Status = model.EntrySynced

	got, err := cache.Load(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got[0].Status != model.EntryPending {
		t.Errorf("stored status = %q, want caller mutation not to leak", got[0].Status)
	}
}

func TestNoUserGuards(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	engine := storage.NewFileEngine(dir)
	cache := storage.NewEntryCache(engine)

	if err := cache.Persist(ctx, []model.Entry{entry("a1", "u1")}, "u1"); err != nil {
		t.Fatal(err)
	}
	before, _, err := engine.Get(ctx, storage.EntriesNamespace, storage.EntriesKey)
	if err != nil {
		t.Fatal(err)
	}

	if err := cache.Persist(ctx, []model.Entry{entry("x", "")}, ""); err != nil {
		t.Fatalf("Persist without user: %v", err)
	}
	if err := cache.Clear(ctx, ""); err != nil {
		t.Fatalf("Clear without user: %v", err)
	}

	after, _, err := engine.Get(ctx, storage.EntriesNamespace, storage.EntriesKey)
	if err != nil {
		t.Fatal(err)
	}
	if string(before) != string(after) {
		t.Errorf("stored value changed:\nbefore %s\nafter  %s", before, after)
	}
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	cache := storage.NewShiftCache(storage.NewFileEngine(t.TempDir()))

	shift := model.Shift{ID: "s1", Status: model.ShiftPlanned, UserID: "u1"}
	other := model.Shift{ID: "s2", Status: model.ShiftPlanned, UserID: "u2"}
	if err := cache.Persist(ctx, []model.Shift{shift}, "u1"); err != nil {
		t.Fatal(err)
	}
	if err := cache.Persist(ctx, []model.Shift{other}, "u2"); err != nil {
		t.Fatal(err)
	}

	if err := cache.Clear(ctx, "u1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if err := cache.Clear(ctx, "nobody"); err != nil {
		t.Fatalf("Clear missing user: %v", err)
	}

	got, err := cache.Load(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("Load(u1) after Clear = %d records, want 0", len(got))
	}
	got, err = cache.Load(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "s2" {
		t.Errorf("Load(u2) = %#v, want s2 untouched", got)
	}
}

func writeLegacy(t *testing.T, engine storage.Engine, value string) {
	t.Helper()
	if err := engine.Set(context.Background(), storage.EntriesNamespace, storage.EntriesKey, []byte(value)); err != nil {
		t.Fatal(err)
	}
}

func TestLoadLegacyFiltersByOwner(t *testing.T) {
	ctx := context.Background()
	engine := storage.NewFileEngine(t.TempDir())
	legacy := `[{"id":"1","userId":"u1","status":"pending"},{"id":"2","userId":"u2","status":"pending"},{"id":"3","status":"synced"}]`
	writeLegacy(t, engine, legacy)

	cache := storage.NewEntryCache(engine)
	got, err := cache.Load(ctx, "u1")
	if err != nil {
		t.Fatalf("Load legacy: %v", err)
	}
	var ids []string
	for _, e := range got {
		ids = append(ids, e.ID)
	}
	if !reflect.DeepEqual(ids, []string{"1", "3"}) {
		t.Errorf("legacy ids = %v, want [1 3]", ids)
	}

	// Loading is read-only: the legacy array stays on disk as written.
	raw, _, err := engine.Get(ctx, storage.EntriesNamespace, storage.EntriesKey)
	if err != nil {
		t.Fatal(err)
	}
	if string(raw) != legacy {
		t.Errorf("legacy value rewritten by Load: %s", raw)
	}
}

func TestPersistOverLegacyKeepsOtherOwners(t *testing.T) {
	ctx := context.Background()
	engine := storage.NewFileEngine(t.TempDir())
	writeLegacy(t, engine, `[{"id":"1","userId":"u1"},{"id":"2","userId":"u2"}]`)

	cache := storage.NewEntryCache(engine)
	if err := cache.Persist(ctx, []model.Entry{entry("1", "u1"), entry("9", "u1")}, "u1"); err != nil {
		t.Fatalf("Persist over legacy: %v", err)
	}

	raw, _, err := engine.Get(ctx, storage.EntriesNamespace, storage.EntriesKey)
	if err != nil {
		t.Fatal(err)
	}
	if raw[0] != '{' {
		t.Fatalf("stored value not converted to map form: %s", raw)
	}

	got, err := cache.Load(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != "2" {
		t.Errorf("Load(u2) after conversion = %#v, want legacy record 2", got)
	}
	got, err = cache.Load(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Errorf("Load(u1) = %d records, want 2", len(got))
	}
}

func TestClearLeavesLegacyAlone(t *testing.T) {
	ctx := context.Background()
	engine := storage.NewFileEngine(t.TempDir())
	legacy := `[{"id":"1","userId":"u1"}]`
	writeLegacy(t, engine, legacy)

	if err := storage.NewEntryCache(engine).Clear(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	raw, _, _ := engine.Get(ctx, storage.EntriesNamespace, storage.EntriesKey)
	if string(raw) != legacy {
		t.Errorf("Clear rewrote legacy value: %s", raw)
	}
}

func TestCorruptValueIsBackedUp(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	engine := storage.NewFileEngine(dir)
	writeLegacy(t, engine, "{bad json")

	_, err := storage.NewEntryCache(engine).Load(ctx, "u1")
	if !errors.Is(err, storage.ErrCorrupt) {
		t.Fatalf("Load corrupt = %v, want ErrCorrupt", err)
	}
	path := filepath.Join(dir, storage.EntriesNamespace, storage.EntriesKey+".json")
	if _, statErr := os.Stat(path + ".corrupt"); os.IsNotExist(statErr) {
		t.Error("expected backup file to exist after corrupt JSON")
	}
}

type failingEngine struct {
	storage.Engine
	setErr error
}

func (f failingEngine) Set(context.Context, string, string, []byte) error {
	return f.setErr
}

func TestPersistFailureKeepsPreviousValue(t *testing.T) {
	ctx := context.Background()
	engine := storage.NewFileEngine(t.TempDir())
	good := storage.NewEntryCache(engine)
	if err := good.Persist(ctx, []model.Entry{entry("a1", "u1")}, "u1"); err != nil {
		t.Fatal(err)
	}

	quota := errors.New("quota exceeded")
	bad := storage.NewEntryCache(failingEngine{Engine: engine, setErr: quota})
	err := bad.Persist(ctx, []model.Entry{entry("a1", "u1"), entry("a2", "u1")}, "u1")
	if !errors.Is(err, quota) {
		t.Fatalf("Persist error = %v, want %v", err, quota)
	}

	got, err := good.Load(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 {
		t.Errorf("Load after failed persist = %d records, want 1", len(got))
	}
}

func TestEntryAndShiftCachesAreSeparate(t *testing.T) {
	ctx := context.Background()
	engine := storage.NewFileEngine(t.TempDir())
	entries := storage.NewEntryCache(engine)
	shifts := storage.NewShiftCache(engine)

	if err := entries.Persist(ctx, []model.Entry{entry("e1", "u1")}, "u1"); err != nil {
		t.Fatal(err)
	}
	got, err := shifts.Load(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Errorf("shift cache sees %d records written to entry cache", len(got))
	}
}
