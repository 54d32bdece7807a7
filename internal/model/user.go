package model

import "time"

// TimestampLayout matches the millisecond UTC timestamps the web client
// writes (e.g. 2026-02-27T09:00:00.000Z).
const TimestampLayout = "2006-01-02T15:04:05.000Z07:00"

// Timestamp formats t for createdAt, confirmedAt and syncedAt fields.
func Timestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// User is the signed-in account as supplied by the session provider.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}
