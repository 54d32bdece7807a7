package model

// ShiftStatus is the planning state of a Shift. It is independent of
// whether the shift has reached the remote store.
type ShiftStatus string

const (
	ShiftPlanned   ShiftStatus = "planned"
	ShiftConfirmed ShiftStatus = "confirmed"
)

// Shift represents a planned work period.
type Shift struct {
	ID          string      `json:"id"`
	Date        string      `json:"date"`
	TimeIn      string      `json:"timeIn"`
	TimeOut     string      `json:"timeOut"`
	Status      ShiftStatus `json:"status"`
	CreatedAt   string      `json:"createdAt,omitempty"`
	ConfirmedAt string      `json:"confirmedAt,omitempty"`
	UserID      string      `json:"userId,omitempty"`
	UserEmail   string      `json:"userEmail,omitempty"`
	Synced      bool        `json:"synced"`
}

// Key returns the record identity.
func (s Shift) Key() string { return s.ID }

// Owner returns the user id the shift belongs to.
func (s Shift) Owner() string { return s.UserID }

// Record is implemented by every type the local cache can hold.
type Record interface {
	Entry | Shift
	Key() string
	Owner() string
}
