package records

import (
	"context"
	"time"

	"github.com/Tiliavir/fieldtime/internal/model"
	"github.com/Tiliavir/fieldtime/internal/netstatus"
	"github.com/Tiliavir/fieldtime/internal/remote"
	"github.com/Tiliavir/fieldtime/internal/session"
	"github.com/Tiliavir/fieldtime/internal/storage"
	"github.com/Tiliavir/fieldtime/internal/syncer"
	"github.com/Tiliavir/fieldtime/internal/timecalc"
)

// ShiftEngine is the sync engine for shifts.
type ShiftEngine = syncer.Engine[model.Shift, remote.ShiftRow]

// Shifts is the planned-shift store.
type Shifts struct {
	*List[model.Shift]
	engine *ShiftEngine
	users  session.Provider
	opts   options
}

// NewShifts wires a shift store to its cache and sync engine.
func NewShifts(cache *storage.Cache[model.Shift], table remote.Table[remote.ShiftRow], monitor *netstatus.Monitor, users session.Provider, opts ...Option) *Shifts {
	o := defaultOptions(opts)
	list := newList(cache, users)
	return &Shifts{
		List:   list,
		engine: syncer.New(syncer.ShiftPolicy, syncer.Source[model.Shift](list), table, monitor, users, o.engineOptions()...),
		users:  users,
		opts:   o,
	}
}

// Engine returns the shift sync engine.
func (s *Shifts) Engine() *ShiftEngine { return s.engine }

// Sync runs a reconciliation pass.
func (s *Shifts) Sync(ctx context.Context) (int, error) {
	return s.engine.Reconcile(ctx)
}

// Add plans a shift for the current user. It returns nil without changing
// anything when nobody is signed in.
func (s *Shifts) Add(ctx context.Context, date, timeIn, timeOut string) (*model.Shift, error) {
	user := s.users.Current()
	if user == nil {
		return nil, nil
	}
	shift := model.Shift{
		ID:        s.opts.newID(),
		Date:      date,
		TimeIn:    timeIn,
		TimeOut:   timeOut,
		Status:    model.ShiftPlanned,
		CreatedAt: model.Timestamp(s.opts.now()),
		UserID:    user.ID,
		UserEmail: user.Email,
		Synced:    false,
	}
	s.append(shift)
	if err := s.Persist(ctx); err != nil {
		return nil, err
	}
	if _, err := s.engine.Reconcile(ctx); err != nil {
		return nil, err
	}
	if cur, ok := s.Find(shift.ID); ok {
		shift = cur
	}
	return &shift, nil
}

// Confirm marks a planned shift as worked and returns the entry draft the
// caller should hand to the entry store. Missing or already confirmed
// shifts yield a nil draft and no change.
//
// Once the confirmation is saved the draft is always returned, together
// with any error from the following sync pass. If saving the confirmation
// fails the shift goes back to planned and no draft is returned.
func (s *Shifts) Confirm(ctx context.Context, id string) (*model.EntryDraft, error) {
	now := s.opts.now()
	var draft model.EntryDraft
	confirmed := s.Update(id, func(sh *model.Shift) bool {
		if sh.Status != model.ShiftPlanned {
			return false
		}
		sh.Status = model.ShiftConfirmed
		sh.ConfirmedAt = model.Timestamp(now)
		draft = model.EntryDraft{
			ID:        s.opts.newID(),
			Date:      sh.Date,
			TimeIn:    sh.TimeIn,
			TimeOut:   sh.TimeOut,
			CreatedAt: model.Timestamp(now),
			UserID:    sh.UserID,
			UserEmail: sh.UserEmail,
		}
		return true
	})
	if !confirmed {
		return nil, nil
	}
	if err := s.Persist(ctx); err != nil {
		s.Update(id, func(sh *model.Shift) bool {
			sh.Status = model.ShiftPlanned
			sh.ConfirmedAt = ""
			return true
		})
		return nil, err
	}
	if _, err := s.engine.Reconcile(ctx); err != nil {
		return &draft, err
	}
	return &draft, nil
}

// Today returns the shifts still planned for now's calendar day.
func (s *Shifts) Today(now time.Time) []model.Shift {
	today := timecalc.Today(now)
	var out []model.Shift
	for _, sh := range s.Snapshot() {
		if sh.Date == today && sh.Status == model.ShiftPlanned {
			out = append(out, sh)
		}
	}
	return out
}

// FetchAll replaces the list with every shift in the remote store, each
// tagged as synced. See Entries.FetchAll for the guards.
func (s *Shifts) FetchAll(ctx context.Context) error {
	table := s.engine.Table()
	if table == nil || !s.engine.Online() {
		return nil
	}
	rows, err := table.SelectAll(ctx)
	if err != nil {
		s.engine.RecordError(err.Error())
		return err
	}
	items := make([]model.Shift, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.Shift())
	}
	s.replace(items)
	return nil
}
