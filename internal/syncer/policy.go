package syncer

import (
	"time"

	"github.com/Tiliavir/fieldtime/internal/model"
	"github.com/Tiliavir/fieldtime/internal/remote"
)

// Policy describes how one record type is reconciled.
type Policy[T model.Record, R any] struct {
	// Kind labels logs and metrics.
	Kind string
	// Pending reports whether a record still needs to reach the remote store.
	Pending func(T) bool
	// Row builds the remote payload. Missing createdAt and owner fields are
	// filled from now and the current user.
	Row func(rec T, user model.User, now time.Time) R
	// MarkSynced records a successful upsert on the local copy.
	MarkSynced func(rec *T, now time.Time)
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

// EntryPolicy syncs entries with status pending and moves them to synced.
var EntryPolicy = Policy[model.Entry, remote.EntryRow]{
	Kind: remote.EntriesTable,
	Pending: func(e model.Entry) bool {
		return e.Status == model.EntryPending
	},
	Row: func(e model.Entry, user model.User, now time.Time) remote.EntryRow {
		return remote.EntryRow{
			ID:        e.ID,
			Date:      e.Date,
			TimeIn:    e.TimeIn,
			TimeOut:   e.TimeOut,
			Hours:     e.Hours,
			CreatedAt: orDefault(e.CreatedAt, model.Timestamp(now)),
			UserID:    orDefault(e.UserID, user.ID),
			UserEmail: orDefault(e.UserEmail, user.Email),
		}
	},
	MarkSynced: func(e *model.Entry, now time.Time) {
		e.Status = model.EntrySynced
		if e.SyncedAt == "" {
			e.SyncedAt = model.Timestamp(now)
		}
	},
}

// ShiftPolicy syncs planned shifts that have not been pushed yet. Only the
// synced flag changes; the planning status is left to the user.
var ShiftPolicy = Policy[model.Shift, remote.ShiftRow]{
	Kind: remote.ShiftsTable,
	Pending: func(s model.Shift) bool {
		return s.Status == model.ShiftPlanned && !s.Synced
	},
	Row: func(s model.Shift, user model.User, now time.Time) remote.ShiftRow {
		return remote.ShiftRow{
			ID:        s.ID,
			Date:      s.Date,
			TimeIn:    s.TimeIn,
			TimeOut:   s.TimeOut,
			Status:    string(s.Status),
			CreatedAt: orDefault(s.CreatedAt, model.Timestamp(now)),
			UserID:    orDefault(s.UserID, user.ID),
			UserEmail: orDefault(s.UserEmail, user.Email),
		}
	},
	MarkSynced: func(s *model.Shift, _ time.Time) {
		s.Synced = true
	},
}
