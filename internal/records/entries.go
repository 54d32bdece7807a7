package records

import (
	"context"

	"github.com/Tiliavir/fieldtime/internal/model"
	"github.com/Tiliavir/fieldtime/internal/netstatus"
	"github.com/Tiliavir/fieldtime/internal/remote"
	"github.com/Tiliavir/fieldtime/internal/session"
	"github.com/Tiliavir/fieldtime/internal/storage"
	"github.com/Tiliavir/fieldtime/internal/syncer"
	"github.com/Tiliavir/fieldtime/internal/timecalc"
)

// EntryEngine is the sync engine for entries.
type EntryEngine = syncer.Engine[model.Entry, remote.EntryRow]

// Entries is the worked-time store.
type Entries struct {
	*List[model.Entry]
	engine *EntryEngine
	users  session.Provider
	opts   options
}

// NewEntries wires an entry store to its cache and sync engine. table may
// be nil when no remote store is configured.
func NewEntries(cache *storage.Cache[model.Entry], table remote.Table[remote.EntryRow], monitor *netstatus.Monitor, users session.Provider, opts ...Option) *Entries {
	o := defaultOptions(opts)
	list := newList(cache, users)
	return &Entries{
		List:   list,
		engine: syncer.New(syncer.EntryPolicy, syncer.Source[model.Entry](list), table, monitor, users, o.engineOptions()...),
		users:  users,
		opts:   o,
	}
}

// Engine returns the entry sync engine.
func (s *Entries) Engine() *EntryEngine { return s.engine }

// Sync runs a reconciliation pass.
func (s *Entries) Sync(ctx context.Context) (int, error) {
	return s.engine.Reconcile(ctx)
}

// Add records worked time for the current user. It returns nil without
// changing anything when nobody is signed in.
func (s *Entries) Add(ctx context.Context, date, timeIn, timeOut string) (*model.Entry, error) {
	user := s.users.Current()
	if user == nil {
		return nil, nil
	}
	entry := model.Entry{
		ID:        s.opts.newID(),
		Date:      date,
		TimeIn:    timeIn,
		TimeOut:   timeOut,
		Hours:     timecalc.CalculateHours(date, timeIn, timeOut),
		Status:    model.EntryPending,
		CreatedAt: model.Timestamp(s.opts.now()),
		UserID:    user.ID,
		UserEmail: user.Email,
	}
	return s.insert(ctx, entry)
}

// AddDraft stores the entry derived from a confirmed shift, computing its
// hours. Owner fields missing from the draft come from the current user.
func (s *Entries) AddDraft(ctx context.Context, draft model.EntryDraft) (*model.Entry, error) {
	user := s.users.Current()
	if user == nil {
		return nil, nil
	}
	if draft.ID == "" {
		draft.ID = s.opts.newID()
	}
	if draft.CreatedAt == "" {
		draft.CreatedAt = model.Timestamp(s.opts.now())
	}
	if draft.UserID == "" {
		draft.UserID, draft.UserEmail = user.ID, user.Email
	}
	entry := draft.Entry(timecalc.CalculateHours(draft.Date, draft.TimeIn, draft.TimeOut))
	return s.insert(ctx, entry)
}

func (s *Entries) insert(ctx context.Context, entry model.Entry) (*model.Entry, error) {
	s.append(entry)
	if err := s.Persist(ctx); err != nil {
		return nil, err
	}
	if _, err := s.engine.Reconcile(ctx); err != nil {
		return nil, err
	}
	if cur, ok := s.Find(entry.ID); ok {
		entry = cur
	}
	return &entry, nil
}

// TotalHours sums the hours of every entry in the list.
func (s *Entries) TotalHours() float64 {
	return timecalc.TotalHours(s.Snapshot())
}

// FetchAll replaces the list with every entry in the remote store, for all
// users. It does nothing when no remote store is configured or the device
// is offline. On failure the message is recorded as the last sync error and
// the list is kept.
func (s *Entries) FetchAll(ctx context.Context) error {
	table := s.engine.Table()
	if table == nil || !s.engine.Online() {
		return nil
	}
	rows, err := table.SelectAll(ctx)
	if err != nil {
		s.engine.RecordError(err.Error())
		return err
	}
	items := make([]model.Entry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.Entry())
	}
	s.replace(items)
	return nil
}
