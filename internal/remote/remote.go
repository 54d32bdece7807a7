// Package remote defines the authoritative backend the sync engines push to.
// Rows use the backend's snake_case column names; conversion to and from the
// local model is a one-to-one field mapping.
package remote

import (
	"context"
	"errors"
	"fmt"

	"github.com/Tiliavir/fieldtime/internal/model"
)

// Backend table names.
const (
	EntriesTable = "entries"
	ShiftsTable  = "shifts"
)

// ErrNotConfigured is returned when an operation needs a backend and none is set up.
var ErrNotConfigured = errors.New("remote store is not configured")

// Table is one backend resource. Upsert must be idempotent on the row id.
// SelectAll returns every row ordered by date ascending.
type Table[R any] interface {
	Upsert(ctx context.Context, row R) error
	SelectAll(ctx context.Context) ([]R, error)
}

// Error is a rejection reported by the backend.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("remote store error %d", e.StatusCode)
}

// EntryRow is the backend shape of an Entry.
type EntryRow struct {
	ID        string  `json:"id"`
	Date      string  `json:"date"`
	TimeIn    string  `json:"time_in"`
	TimeOut   string  `json:"time_out"`
	Hours     float64 `json:"hours"`
	CreatedAt string  `json:"created_at"`
	UserID    string  `json:"user_id"`
	UserEmail string  `json:"user_email"`
}

// ShiftRow is the backend shape of a Shift.
type ShiftRow struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	TimeIn    string `json:"time_in"`
	TimeOut   string `json:"time_out"`
	Status    string `json:"status"`
	CreatedAt string `json:"created_at"`
	UserID    string `json:"user_id"`
	UserEmail string `json:"user_email"`
}

// Entry maps the row to a local entry. Rows coming from the backend are by
// definition synced.
func (r EntryRow) Entry() model.Entry {
	return model.Entry{
		ID:        r.ID,
		Date:      r.Date,
		TimeIn:    r.TimeIn,
		TimeOut:   r.TimeOut,
		Hours:     r.Hours,
		Status:    model.EntrySynced,
		CreatedAt: r.CreatedAt,
		UserID:    r.UserID,
		UserEmail: r.UserEmail,
	}
}

// Shift maps the row to a local shift marked as synced.
func (r ShiftRow) Shift() model.Shift {
	return model.Shift{
		ID:        r.ID,
		Date:      r.Date,
		TimeIn:    r.TimeIn,
		TimeOut:   r.TimeOut,
		Status:    model.ShiftStatus(r.Status),
		CreatedAt: r.CreatedAt,
		UserID:    r.UserID,
		UserEmail: r.UserEmail,
		Synced:    true,
	}
}
