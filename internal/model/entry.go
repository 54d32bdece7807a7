package model

// EntryStatus is the sync lifecycle state of an Entry.
type EntryStatus string

const (
	// EntryPending marks an entry that exists locally but has not been
	// acknowledged by the remote store.
	EntryPending EntryStatus = "pending"
	// EntrySynced marks an entry the remote store has accepted.
	EntrySynced EntryStatus = "synced"
)

// Entry represents a single worked-time record.
// JSON names match the caches written by the web client, so existing
// offline data loads unchanged.
type Entry struct {
	ID        string      `json:"id"`
	Date      string      `json:"date"`
	TimeIn    string      `json:"timeIn"`
	TimeOut   string      `json:"timeOut"`
	Hours     float64     `json:"hours"`
	Status    EntryStatus `json:"status"`
	CreatedAt string      `json:"createdAt,omitempty"`
	SyncedAt  string      `json:"syncedAt,omitempty"`
	UserID    string      `json:"userId,omitempty"`
	UserEmail string      `json:"userEmail,omitempty"`
}

// Key returns the record identity.
func (e Entry) Key() string { return e.ID }

// Owner returns the user id the entry belongs to.
func (e Entry) Owner() string { return e.UserID }

// EntryDraft is the entry derived from a confirmed shift. Hours are left
// for the entry store to compute.
type EntryDraft struct {
	ID        string
	Date      string
	TimeIn    string
	TimeOut   string
	CreatedAt string
	UserID    string
	UserEmail string
}

// Entry converts the draft into a pending Entry with the given hours.
func (d EntryDraft) Entry(hours float64) Entry {
	return Entry{
		ID:        d.ID,
		Date:      d.Date,
		TimeIn:    d.TimeIn,
		TimeOut:   d.TimeOut,
		Hours:     hours,
		Status:    EntryPending,
		CreatedAt: d.CreatedAt,
		UserID:    d.UserID,
		UserEmail: d.UserEmail,
	}
}
